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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	id   string
	caps []Capability
}

func (s *stubProvider) ID() string { return s.id }

func (s *stubProvider) Capabilities() []Capability { return s.caps }

func (s *stubProvider) FetchForProperty(ctx context.Context, addr Address) *Result {
	return fixedResult(s.id, &Patch{Beds: Float(1)}, nil, "{}")
}

func (s *stubProvider) FetchForArea(ctx context.Context, addr Address) *Result {
	return fixedResult(s.id, nil, []AreaRentBenchmark{{MedianRent: 1000}}, "{}")
}

func propertyStub(id string) *stubProvider {
	return &stubProvider{id: id, caps: []Capability{CapabilityPropertyLevel}}
}

func areaStub(id string) *stubProvider {
	return &stubProvider{id: id, caps: []Capability{CapabilityAreaLevel}}
}

func TestNewRegistry_SortsByRank(t *testing.T) {
	reg, err := NewRegistry([]Ranked{
		{Provider: propertyStub("third"), Rank: 3},
		{Provider: propertyStub("first"), Rank: 1},
		{Provider: propertyStub("second"), Rank: 2},
	})
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Provider.ID())
	assert.Equal(t, "second", all[1].Provider.ID())
	assert.Equal(t, "third", all[2].Provider.ID())
	assert.Equal(t, 3, reg.Len())
}

func TestNewRegistry_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		entries []Ranked
	}{
		{name: "empty", entries: nil},
		{
			name: "duplicate provider ID",
			entries: []Ranked{
				{Provider: propertyStub("dup"), Rank: 1},
				{Provider: propertyStub("dup"), Rank: 2},
			},
		},
		{
			name: "duplicate rank",
			entries: []Ranked{
				{Provider: propertyStub("a"), Rank: 1},
				{Provider: propertyStub("b"), Rank: 1},
			},
		},
		{
			name:    "nil provider",
			entries: []Ranked{{Provider: nil, Rank: 1}},
		},
		{
			name:    "empty provider ID",
			entries: []Ranked{{Provider: propertyStub(""), Rank: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_CapabilityFilters(t *testing.T) {
	reg, err := NewRegistry([]Ranked{
		{Provider: propertyStub("prop"), Rank: 1},
		{Provider: areaStub("area"), Rank: 2},
		{Provider: &stubProvider{
			id:   "both",
			caps: []Capability{CapabilityPropertyLevel, CapabilityAreaLevel},
		}, Rank: 3},
	})
	require.NoError(t, err)

	props := reg.PropertyProviders()
	require.Len(t, props, 2)
	assert.Equal(t, "prop", props[0].Provider.ID())
	assert.Equal(t, "both", props[1].Provider.ID())

	areas := reg.AreaProviders()
	require.Len(t, areas, 2)
	assert.Equal(t, "area", areas[0].Provider.ID())
	assert.Equal(t, "both", areas[1].Provider.ID())
}

func TestRegistry_Get(t *testing.T) {
	reg, err := NewRegistry([]Ranked{
		{Provider: propertyStub("known"), Rank: 1},
	})
	require.NoError(t, err)

	entry, ok := reg.Get("known")
	require.True(t, ok)
	assert.Equal(t, 1, entry.Rank)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}
