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

// Package rentcast provides a property data adapter for the RentCast API.
// RentCast is a commercial valuation/rent source and holds the highest
// precedence rank in the default registry. It supports both property-level
// record lookups and area-level rent benchmarks by zip.
package rentcast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

const (
	// ProviderID is the registry identifier for this adapter.
	ProviderID = "rentcast"

	// DefaultBaseURL is the default RentCast API endpoint.
	DefaultBaseURL = "https://api.rentcast.io/v1"
)

// Config contains configuration for the RentCast adapter.
type Config struct {
	APIKey  string        // Required: RentCast API key
	BaseURL string        // Optional: API base URL
	Timeout time.Duration // Optional: HTTP timeout
	Client  property.HTTPClient
}

// Provider implements property.Provider for RentCast.
type Provider struct {
	apiKey  string
	baseURL string
	client  property.HTTPClient
}

// NewProvider creates a new RentCast adapter.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("rentcast API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = property.DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, client: client}, nil
}

// ID implements property.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements property.Provider.
func (p *Provider) Capabilities() []property.Capability {
	return []property.Capability{property.CapabilityPropertyLevel, property.CapabilityAreaLevel}
}

// propertyRecord mirrors the subset of the RentCast /properties payload we map.
type propertyRecord struct {
	Bedrooms       *float64            `json:"bedrooms"`
	Bathrooms      *float64            `json:"bathrooms"`
	SquareFootage  *int                `json:"squareFootage"`
	LotSize        *int                `json:"lotSize"`
	YearBuilt      *int                `json:"yearBuilt"`
	RentEstimate   *float64            `json:"rentEstimate"`
	TaxAssessments map[string]taxEntry `json:"taxAssessments"`
	PropertyTaxes  map[string]taxBill  `json:"propertyTaxes"`
}

type taxEntry struct {
	Value *float64 `json:"value"`
}

type taxBill struct {
	Total *float64 `json:"total"`
}

// FetchForProperty implements property.Provider.
func (p *Provider) FetchForProperty(ctx context.Context, addr property.Address) *property.Result {
	started := time.Now()
	n := addr.Normalize()

	q := url.Values{}
	q.Set("address", n.Line1)
	q.Set("city", n.City)
	q.Set("state", n.State)
	q.Set("zipCode", n.Zip)

	body, res := p.get(ctx, "/properties", q, started)
	if res != nil {
		return res
	}

	var records []propertyRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return property.Failure(ProviderID, property.ErrParse, "unexpected /properties payload", err, started)
	}
	if len(records) == 0 {
		return property.Failure(ProviderID, property.ErrParse, "no property records for address", nil, started)
	}
	rec := records[0]

	patch := &property.Patch{
		Beds:         rec.Bedrooms,
		Baths:        rec.Bathrooms,
		Sqft:         rec.SquareFootage,
		LotSqft:      rec.LotSize,
		YearBuilt:    rec.YearBuilt,
		RentEstimate: rec.RentEstimate,
	}
	if v := latestValue(rec.TaxAssessments, func(e taxEntry) *float64 { return e.Value }); v != nil {
		patch.MarketValueEstimate = v
	}
	if v := latestValue(rec.PropertyTaxes, func(e taxBill) *float64 { return e.Total }); v != nil {
		patch.AnnualTaxes = v
	}

	return property.Success(ProviderID, patch, nil, string(body), started)
}

// marketPayload mirrors the subset of the RentCast /markets payload we map.
type marketPayload struct {
	RentalData struct {
		MedianRent *float64 `json:"medianRent"`
		DataPoints *int     `json:"dataPoints"`
	} `json:"rentalData"`
}

// FetchForArea implements property.Provider, returning the zip-level median
// rent benchmark.
func (p *Provider) FetchForArea(ctx context.Context, addr property.Address) *property.Result {
	started := time.Now()
	n := addr.Normalize()

	q := url.Values{}
	q.Set("zipCode", n.Zip)

	body, res := p.get(ctx, "/markets", q, started)
	if res != nil {
		return res
	}

	var payload marketPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return property.Failure(ProviderID, property.ErrParse, "unexpected /markets payload", err, started)
	}
	if payload.RentalData.MedianRent == nil {
		return property.Failure(ProviderID, property.ErrParse, "no rental data for zip", nil, started)
	}

	benchmark := property.AreaRentBenchmark{
		Zip:        n.Zip,
		MedianRent: *payload.RentalData.MedianRent,
		SampleSize: payload.RentalData.DataPoints,
		Currency:   "USD",
	}
	return property.Success(ProviderID, nil, []property.AreaRentBenchmark{benchmark}, string(body), started)
}

// get performs one API call and folds every failure into a Result.
func (p *Provider) get(ctx context.Context, path string, q url.Values, started time.Time) ([]byte, *property.Result) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, property.Failure(ProviderID, property.ErrUnavailable, "building request failed", err, started)
	}
	req.Header.Set("X-Api-Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		kind := property.ClassifyTransportError(ctx, err)
		return nil, property.Failure(ProviderID, kind, "request failed", err, started)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, property.Failure(ProviderID, property.ErrParse, "reading response body failed", err, started)
	}
	if kind, bad := property.ClassifyStatus(resp.StatusCode); bad {
		msg := fmt.Sprintf("%s returned HTTP %d", path, resp.StatusCode)
		return nil, property.Failure(ProviderID, kind, msg, nil, started)
	}
	return body, nil
}

// latestValue picks the value for the most recent numeric year key.
func latestValue[E any](byYear map[string]E, pick func(E) *float64) *float64 {
	best := -1
	var out *float64
	for year, entry := range byYear {
		y, err := strconv.Atoi(year)
		if err != nil {
			continue
		}
		if v := pick(entry); v != nil && y > best {
			best = y
			out = v
		}
	}
	return out
}
