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
	"fmt"
	"sort"
)

// Ranked associates a provider with its fixed precedence rank. Lower rank
// wins field conflicts during merge.
type Ranked struct {
	Provider Provider
	Rank     int
}

// Registry is the immutable, process-lifetime set of enabled providers,
// ordered by precedence rank. It is built once at startup and is safe for
// concurrent reads without locking because it is never mutated afterwards.
type Registry struct {
	entries []Ranked
	byID    map[string]Ranked
}

// NewRegistry builds a registry from the given entries. Entries are sorted
// by rank ascending (provider ID breaks ties). Duplicate provider IDs or
// duplicate ranks are rejected so precedence stays unambiguous.
func NewRegistry(entries []Ranked) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("registry requires at least one provider")
	}

	sorted := make([]Ranked, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rank != sorted[j].Rank {
			return sorted[i].Rank < sorted[j].Rank
		}
		return sorted[i].Provider.ID() < sorted[j].Provider.ID()
	})

	byID := make(map[string]Ranked, len(sorted))
	seenRank := make(map[int]string, len(sorted))
	for _, e := range sorted {
		if e.Provider == nil {
			return nil, fmt.Errorf("registry entry with rank %d has nil provider", e.Rank)
		}
		id := e.Provider.ID()
		if id == "" {
			return nil, fmt.Errorf("provider with rank %d has empty ID", e.Rank)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate provider ID %q", id)
		}
		if other, dup := seenRank[e.Rank]; dup {
			return nil, fmt.Errorf("providers %q and %q share rank %d", other, id, e.Rank)
		}
		byID[id] = e
		seenRank[e.Rank] = id
	}

	return &Registry{entries: sorted, byID: byID}, nil
}

// All returns every registered provider in rank order.
func (r *Registry) All() []Ranked {
	out := make([]Ranked, len(r.entries))
	copy(out, r.entries)
	return out
}

// PropertyProviders returns providers supporting property-level lookups,
// in rank order.
func (r *Registry) PropertyProviders() []Ranked {
	return r.withCapability(CapabilityPropertyLevel)
}

// AreaProviders returns providers supporting area-level lookups, in rank order.
func (r *Registry) AreaProviders() []Ranked {
	return r.withCapability(CapabilityAreaLevel)
}

// Get returns the ranked entry for a provider ID.
func (r *Registry) Get(id string) (Ranked, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) withCapability(c Capability) []Ranked {
	var out []Ranked
	for _, e := range r.entries {
		if HasCapability(e.Provider, c) {
			out = append(out, e)
		}
	}
	return out
}
