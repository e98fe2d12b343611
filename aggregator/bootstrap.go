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

package aggregator

import (
	"fmt"

	"github.com/t-haskell/property-underwriter/aggregator/property"
	"github.com/t-haskell/property-underwriter/aggregator/property/estated"
	"github.com/t-haskell/property-underwriter/aggregator/property/hudfmr"
	"github.com/t-haskell/property-underwriter/aggregator/property/marketplace"
	"github.com/t-haskell/property-underwriter/aggregator/property/rentcast"
	"github.com/t-haskell/property-underwriter/config"
)

// Precedence ranks. Lower wins a field conflict during the merge.
const (
	rankRentcast    = 1
	rankEstated     = 2
	rankHudFmr      = 3
	rankMarketplace = 4
	rankMock        = 9
)

// BuildRegistry assembles the provider registry from configuration. Each
// provider is registered only when its credentials are present; when no
// external source is configured and the mock fallback flag is on, the
// deterministic mock provider is registered so the service still answers.
func BuildRegistry(cfg *config.Config) (*property.Registry, error) {
	var entries []property.Ranked

	if cfg.Providers.Rentcast.Configured() {
		p, err := rentcast.NewProvider(rentcast.Config{
			APIKey:  cfg.Providers.Rentcast.APIKey,
			BaseURL: cfg.Providers.Rentcast.BaseURL,
			Timeout: cfg.Providers.Rentcast.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("building rentcast provider: %w", err)
		}
		entries = append(entries, property.Ranked{Provider: p, Rank: rankRentcast})
	}

	if cfg.Providers.Estated.Configured() {
		p, err := estated.NewProvider(estated.Config{
			Token:   cfg.Providers.Estated.APIKey,
			BaseURL: cfg.Providers.Estated.BaseURL,
			Timeout: cfg.Providers.Estated.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("building estated provider: %w", err)
		}
		entries = append(entries, property.Ranked{Provider: p, Rank: rankEstated})
	}

	// HUD FMR is keyed by endpoint, not credential.
	if cfg.Providers.HudFmr.BaseURL != "" {
		p, err := hudfmr.NewProvider(hudfmr.Config{
			BaseURL: cfg.Providers.HudFmr.BaseURL,
			APIKey:  cfg.Providers.HudFmr.APIKey,
			Timeout: cfg.Providers.HudFmr.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("building hud fmr provider: %w", err)
		}
		entries = append(entries, property.Ranked{Provider: p, Rank: rankHudFmr})
	}

	if cfg.Features.EnableComps && cfg.Providers.Marketplace.BaseURL != "" {
		retry := property.DefaultRetryConfig()
		retry.MaxRetries = cfg.Providers.Marketplace.MaxRetries
		retry.InitialBackoff = cfg.Providers.Marketplace.Backoff()

		p, err := marketplace.NewProvider(marketplace.Config{
			BaseURL:    cfg.Providers.Marketplace.BaseURL,
			APIKey:     cfg.Providers.Marketplace.APIKey,
			Timeout:    cfg.Providers.Marketplace.Timeout(),
			MaxResults: cfg.Providers.Marketplace.MaxResults,
			Retry:      retry,
		})
		if err != nil {
			return nil, fmt.Errorf("building marketplace provider: %w", err)
		}
		entries = append(entries, property.Ranked{Provider: p, Rank: rankMarketplace})
	}

	if len(entries) == 0 {
		if !cfg.Features.UseMockIfUnconfigured {
			return nil, fmt.Errorf("no providers configured and mock fallback disabled")
		}
		entries = append(entries, property.Ranked{Provider: property.NewMockProvider(), Rank: rankMock})
	}

	return property.NewRegistry(entries)
}
