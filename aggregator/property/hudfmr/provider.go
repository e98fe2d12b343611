// Copyright 2025 Property Underwriter
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hudfmr provides an adapter for HUD Fair Market Rent open data.
// It produces area-level rent benchmarks by bedroom count, keyed by zip.
// As an open-data benchmark source it ranks below the commercial providers
// and never contributes property-level fields.
package hudfmr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

// ProviderID is the registry identifier for this adapter.
const ProviderID = "hud_fmr"

// Config contains configuration for the HUD FMR adapter.
type Config struct {
	BaseURL string        // Required: FMR endpoint base URL
	APIKey  string        // Optional: passed as api_key query parameter
	Timeout time.Duration // Optional: HTTP timeout
	Client  property.HTTPClient
}

// Provider implements property.Provider for HUD Fair Market Rent data.
type Provider struct {
	baseURL string
	apiKey  string
	client  property.HTTPClient
}

// NewProvider creates a new HUD FMR adapter.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hud fmr base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = property.DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, client: client}, nil
}

// ID implements property.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements property.Provider.
func (p *Provider) Capabilities() []property.Capability {
	return []property.Capability{property.CapabilityAreaLevel}
}

// FetchForProperty implements property.Provider; HUD FMR is area-only.
func (p *Provider) FetchForProperty(ctx context.Context, addr property.Address) *property.Result {
	return property.Failure(ProviderID, property.ErrUnavailable, "hud fmr has no property-level data", nil, time.Now())
}

// fmrPayload mirrors the FMR endpoint response: a bedroom-count to rent map
// plus the dataset year.
type fmrPayload struct {
	FMR  map[string]json.Number `json:"fmr"`
	Year *int                   `json:"year"`
}

// FetchForArea implements property.Provider.
func (p *Provider) FetchForArea(ctx context.Context, addr property.Address) *property.Result {
	started := time.Now()
	n := addr.Normalize()

	q := url.Values{}
	q.Set("zip", n.Zip)
	if p.apiKey != "" {
		q.Set("api_key", p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/fmr?"+q.Encode(), nil)
	if err != nil {
		return property.Failure(ProviderID, property.ErrUnavailable, "building request failed", err, started)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		kind := property.ClassifyTransportError(ctx, err)
		return property.Failure(ProviderID, kind, "request failed", err, started)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return property.Failure(ProviderID, property.ErrParse, "reading response body failed", err, started)
	}
	if kind, bad := property.ClassifyStatus(resp.StatusCode); bad {
		msg := fmt.Sprintf("/fmr returned HTTP %d", resp.StatusCode)
		return property.Failure(ProviderID, kind, msg, nil, started)
	}

	var payload fmrPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return property.Failure(ProviderID, property.ErrParse, "unexpected /fmr payload", err, started)
	}

	benchmarks := parseBenchmarks(payload, n.Zip)
	if len(benchmarks) == 0 {
		return property.Failure(ProviderID, property.ErrParse, "no benchmark values for zip", nil, started)
	}

	return property.Success(ProviderID, nil, benchmarks, string(body), started)
}

// parseBenchmarks converts the bedroom->rent map into benchmarks, ordered by
// bedroom count so output stays deterministic.
func parseBenchmarks(payload fmrPayload, zip string) []property.AreaRentBenchmark {
	keys := make([]string, 0, len(payload.FMR))
	for k := range payload.FMR {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []property.AreaRentBenchmark
	for _, k := range keys {
		rent, err := payload.FMR[k].Float64()
		if err != nil {
			continue
		}
		b := property.AreaRentBenchmark{
			Zip:        zip,
			MedianRent: rent,
			Year:       payload.Year,
			Currency:   "USD",
		}
		if beds, err := strconv.Atoi(k); err == nil {
			b.BedroomCount = property.Int(beds)
		}
		out = append(out, b)
	}
	return out
}
