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

// Package estated provides a property data adapter for the Estated v4 API,
// a commercial property-record source ranked below RentCast in the default
// registry. It is property-level only.
package estated

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

const (
	// ProviderID is the registry identifier for this adapter.
	ProviderID = "estated"

	// DefaultBaseURL is the default Estated API endpoint.
	DefaultBaseURL = "https://apis.estated.com/v4"
)

// Config contains configuration for the Estated adapter.
type Config struct {
	Token   string        // Required: Estated API token
	BaseURL string        // Optional: API base URL
	Timeout time.Duration // Optional: HTTP timeout
	Client  property.HTTPClient
}

// Provider implements property.Provider for Estated.
type Provider struct {
	token   string
	baseURL string
	client  property.HTTPClient
}

// NewProvider creates a new Estated adapter.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("estated API token is required")
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
	return &Provider{token: cfg.Token, baseURL: cfg.BaseURL, client: client}, nil
}

// ID implements property.Provider.
func (p *Provider) ID() string { return ProviderID }

// Capabilities implements property.Provider.
func (p *Provider) Capabilities() []property.Capability {
	return []property.Capability{property.CapabilityPropertyLevel}
}

// propertyEnvelope mirrors the subset of the Estated /property payload we map.
type propertyEnvelope struct {
	Data struct {
		Structure struct {
			BedsCount  *float64 `json:"beds_count"`
			BathsCount *float64 `json:"baths"`
			YearBuilt  *int     `json:"year_built"`
		} `json:"structure"`
		Parcel struct {
			AreaSqFt *int `json:"area_sq_ft"`
		} `json:"parcel"`
		Area struct {
			Sqft *int `json:"sqft"`
		} `json:"area"`
		Valuation struct {
			Value *float64 `json:"value"`
		} `json:"valuation"`
		Taxes []taxRecord `json:"taxes"`
	} `json:"data"`
}

type taxRecord struct {
	Amount *float64 `json:"amount"`
	Year   *int     `json:"year"`
}

// FetchForProperty implements property.Provider.
func (p *Provider) FetchForProperty(ctx context.Context, addr property.Address) *property.Result {
	started := time.Now()
	n := addr.Normalize()

	q := url.Values{}
	q.Set("token", p.token)
	q.Set("street_address", n.Line1)
	q.Set("city", n.City)
	q.Set("state", n.State)
	q.Set("zip_code", n.Zip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/property?"+q.Encode(), nil)
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
		msg := fmt.Sprintf("/property returned HTTP %d", resp.StatusCode)
		return property.Failure(ProviderID, kind, msg, nil, started)
	}

	var envelope propertyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return property.Failure(ProviderID, property.ErrParse, "unexpected /property payload", err, started)
	}

	data := envelope.Data
	patch := &property.Patch{
		Beds:                data.Structure.BedsCount,
		Baths:               data.Structure.BathsCount,
		YearBuilt:           data.Structure.YearBuilt,
		Sqft:                data.Area.Sqft,
		LotSqft:             data.Parcel.AreaSqFt,
		MarketValueEstimate: data.Valuation.Value,
	}
	if tax := latestTax(data.Taxes); tax != nil {
		patch.AnnualTaxes = tax
	}
	if patch.Empty() {
		return property.Failure(ProviderID, property.ErrParse, "property record carried no usable fields", nil, started)
	}

	return property.Success(ProviderID, patch, nil, string(body), started)
}

// FetchForArea implements property.Provider; Estated has no area benchmarks.
func (p *Provider) FetchForArea(ctx context.Context, addr property.Address) *property.Result {
	return property.Failure(ProviderID, property.ErrUnavailable, "estated has no area-level data", nil, time.Now())
}

// latestTax picks the tax amount for the most recent year present.
func latestTax(taxes []taxRecord) *float64 {
	best := -1
	var out *float64
	for _, t := range taxes {
		if t.Amount == nil {
			continue
		}
		year := 0
		if t.Year != nil {
			year = *t.Year
		}
		if year >= best {
			best = year
			out = t.Amount
		}
	}
	return out
}
