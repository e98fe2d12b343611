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

// Package main is the entry point for the property data aggregation service.
//
// The aggregator answers a property address with one canonical record by:
// - Fanning out concurrently to ranked external data providers
// - Merging partial results field-by-field by provider precedence
// - Recording per-field provenance and per-provider attempt outcomes
// - Caching merged records with a TTL and persisting them to PostgreSQL
//
// Usage:
//
//	./aggregator
//
// Environment Variables:
//
//	CONFIG_FILE - path to a YAML configuration file (optional)
//	PORT - HTTP server port (default: 8080)
//	DATABASE_URL - PostgreSQL connection string (optional)
//	REDIS_URL - Redis cache URL (optional, memory cache by default)
//	RENTCAST_API_KEY - RentCast API key (optional)
//	ESTATED_API_KEY - Estated API token (optional)
//	HUD_FMR_BASE_URL - HUD Fair Market Rent endpoint (optional)
//	MARKETPLACE_API_KEY - marketplace comps token (optional)
package main

import (
	"github.com/t-haskell/property-underwriter/aggregator"
)

func main() {
	aggregator.Run()
}
