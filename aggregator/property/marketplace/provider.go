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

// Package marketplace provides a feature-flagged adapter for third-party
// rental comps APIs. It averages comparable rents into a rent estimate and
// keeps the normalized comps list in the patch meta. It is the only
// retry-capable adapter: transient failures (timeout, rate limit) are
// retried with exponential backoff, bounded by the caller's deadline.
//
// The upstream API is assumed to be compliant with the relevant site Terms
// of Service; no scraping happens here.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

// ProviderID is the registry identifier for this adapter.
const ProviderID = "marketplace"

// DefaultMaxResults caps how many comps contribute to the estimate.
const DefaultMaxResults = 10

// Config contains configuration for the marketplace comps adapter.
type Config struct {
	BaseURL    string        // Required: comps API base URL
	APIKey     string        // Optional: bearer token
	Timeout    time.Duration // Optional: HTTP timeout
	MaxResults int           // Optional: comp count cap
	Retry      property.RetryConfig
	Client     property.HTTPClient
}

// Provider implements property.Provider for marketplace comps.
type Provider struct {
	baseURL    string
	apiKey     string
	maxResults int
	retry      property.RetryConfig
	client     property.HTTPClient
}

// NewProvider creates a new marketplace comps adapter.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("marketplace base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = property.DefaultTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Retry.BackoffFactor == 0 {
		cfg.Retry = property.DefaultRetryConfig()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
		retry:      cfg.Retry,
		client:     client,
	}, nil
}

// ID implements property.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements property.Provider.
func (p *Provider) Capabilities() []property.Capability {
	return []property.Capability{property.CapabilityPropertyLevel}
}

// comp is one comparable listing from the upstream API.
type comp struct {
	Address      string   `json:"address"`
	Beds         *float64 `json:"beds"`
	Baths        *float64 `json:"baths"`
	Rent         *float64 `json:"rent"`
	Price        *float64 `json:"price"`
	Distance     *float64 `json:"distance"`
	DaysOnMarket *int     `json:"days_on_market"`
}

// compsEnvelope allows the upstream to return either a bare array or a
// {"results": [...]} wrapper.
type compsEnvelope struct {
	Results []comp `json:"results"`
}

// FetchForProperty implements property.Provider, retrying transient failures.
func (p *Provider) FetchForProperty(ctx context.Context, addr property.Address) *property.Result {
	return property.FetchWithRetry(ctx, p.retry, func(ctx context.Context) *property.Result {
		return p.fetchOnce(ctx, addr)
	})
}

// FetchForArea implements property.Provider; comps are property-scoped.
func (p *Provider) FetchForArea(ctx context.Context, addr property.Address) *property.Result {
	return property.Failure(ProviderID, property.ErrUnavailable, "marketplace has no area-level data", nil, time.Now())
}

func (p *Provider) fetchOnce(ctx context.Context, addr property.Address) *property.Result {
	started := time.Now()
	n := addr.Normalize()

	reqBody, _ := json.Marshal(map[string]any{
		"line1": n.Line1,
		"city":  n.City,
		"state": n.State,
		"zip":   n.Zip,
		"limit": p.maxResults,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/comps", bytes.NewReader(reqBody))
	if err != nil {
		return property.Failure(ProviderID, property.ErrUnavailable, "building request failed", err, started)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

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
		msg := fmt.Sprintf("/comps returned HTTP %d", resp.StatusCode)
		return property.Failure(ProviderID, kind, msg, nil, started)
	}

	comps, err := decodeComps(body)
	if err != nil {
		return property.Failure(ProviderID, property.ErrParse, "unexpected /comps payload", err, started)
	}
	if len(comps) == 0 {
		return property.Failure(ProviderID, property.ErrParse, "no comps for address", nil, started)
	}
	if len(comps) > p.maxResults {
		comps = comps[:p.maxResults]
	}

	patch := buildPatch(comps)
	return property.Success(ProviderID, patch, nil, string(body), started)
}

// decodeComps accepts both the bare-array and wrapped response shapes.
func decodeComps(body []byte) ([]comp, error) {
	var bare []comp
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var wrapped compsEnvelope
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Results, nil
}

// buildPatch averages comp rents into a rent estimate and records the
// normalized comps under the patch meta.
func buildPatch(comps []comp) *property.Patch {
	var rents []float64
	normalized := make([]map[string]any, 0, len(comps))
	for _, c := range comps {
		rent := c.Rent
		if rent == nil {
			rent = c.Price
		}
		if rent != nil {
			rents = append(rents, *rent)
		}
		normalized = append(normalized, map[string]any{
			"address":        c.Address,
			"beds":           c.Beds,
			"baths":          c.Baths,
			"rent":           rent,
			"distance":       c.Distance,
			"days_on_market": c.DaysOnMarket,
		})
	}

	patch := &property.Patch{Meta: map[string]string{}}
	if encoded, err := json.Marshal(normalized); err == nil {
		patch.Meta["marketplace_comps"] = string(encoded)
	}
	if len(rents) > 0 {
		sum := 0.0
		for _, r := range rents {
			sum += r
		}
		avg := math.Round(sum/float64(len(rents))*100) / 100
		patch.RentEstimate = property.Float(avg)
	}
	return patch
}
