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

package property

import (
	"context"
	"encoding/json"
	"time"
)

// MockProviderID identifies the deterministic fallback provider.
const MockProviderID = "mock"

// mockFetchedAt is a fixed reference time so mock results are byte-for-byte
// reproducible across calls, which tests rely on as a baseline.
var mockFetchedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// MockProvider returns the same fixed property record for every address.
// It is registered as the only provider when no real adapter has usable
// credentials and the mock fallback flag is set.
type MockProvider struct{}

// NewMockProvider creates the deterministic fallback provider.
func NewMockProvider() *MockProvider { return &MockProvider{} }

// ID implements Provider.
func (m *MockProvider) ID() string { return MockProviderID }

// Capabilities implements Provider.
func (m *MockProvider) Capabilities() []Capability {
	return []Capability{CapabilityPropertyLevel}
}

// FetchForProperty implements Provider with placeholder, deterministic
// values for repeatability.
func (m *MockProvider) FetchForProperty(ctx context.Context, addr Address) *Result {
	patch := &Patch{
		Beds:                Float(3),
		Baths:               Float(2),
		Sqft:                Int(1600),
		LotSqft:             Int(6000),
		YearBuilt:           Int(1995),
		MarketValueEstimate: Float(375000),
		RentEstimate:        Float(2450),
		AnnualTaxes:         Float(4200),
		ClosingCostEstimate: Float(8000),
	}

	raw, _ := json.Marshal(map[string]any{
		"provider": MockProviderID,
		"address":  addr.Normalize().String(),
		"patch":    patch,
	})

	return &Result{
		Patch:      patch,
		RawPayload: string(raw),
		Metadata: Metadata{
			ProviderID: MockProviderID,
			FetchedAt:  mockFetchedAt,
			Outcome:    "ok",
		},
	}
}

// FetchForArea implements Provider; the mock has no area data.
func (m *MockProvider) FetchForArea(ctx context.Context, addr Address) *Result {
	return Failure(MockProviderID, ErrUnavailable, "mock provider has no area data", nil, time.Now())
}
