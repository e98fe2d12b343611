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

// Package cache provides the response cache for aggregated property records,
// keyed by the hash of the normalized address. Entries are valid for a
// configurable TTL; failed aggregations are never cached. Two backends are
// available: an in-process store and a Redis-backed store.
package cache

import (
	"context"
	"time"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

// DefaultTTL is the record validity window when configuration does not
// specify one.
const DefaultTTL = 60 * time.Minute

// Cache is the read-through response cache contract. Get returns the cached
// record and true only while the entry is fresh; a stale or missing entry
// returns false and forces a new aggregation run. Implementations must be
// safe for concurrent use across independent in-flight requests.
type Cache interface {
	Get(ctx context.Context, key string) (*property.Canonical, bool, error)
	Set(ctx context.Context, key string, record *property.Canonical) error
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}
