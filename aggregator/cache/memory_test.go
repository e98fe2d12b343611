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

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

func testRecord(line1 string) *property.Canonical {
	return &property.Canonical{
		Address:   property.Address{Line1: line1, City: "boston", State: "MA", Zip: "02129"},
		Sources:   []string{"mock"},
		Meta:      map[string]string{},
		FetchedAt: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	rec := testRecord("123 main st")
	require.NoError(t, m.Set(ctx, "key1", rec))

	got, ok, err := m.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// The cached record keeps its original fetch time.
	assert.Equal(t, rec.FetchedAt, got.FetchedAt)
}

func TestMemory_MissingKey(t *testing.T) {
	m := NewMemory(time.Minute)

	_, ok, err := m.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_TTLExpiry(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(10*time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "key1", testRecord("123 main st")))

	// Just inside the TTL.
	now = now.Add(10*time.Minute - time.Second)
	_, ok, err := m.Get(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, ok)

	// At the TTL boundary the entry is stale and lazily dropped.
	now = now.Add(time.Second)
	_, ok, err = m.Get(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_SetRefreshesEntry(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(10*time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "key1", testRecord("old")))
	now = now.Add(9 * time.Minute)
	require.NoError(t, m.Set(ctx, "key1", testRecord("new")))

	now = now.Add(5 * time.Minute)
	got, ok, err := m.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Address.Line1)
}

func TestMemory_CapacityEviction(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour, WithCapacity(2), WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "first", testRecord("1 elm st")))
	require.NoError(t, m.Set(ctx, "second", testRecord("2 elm st")))
	require.NoError(t, m.Set(ctx, "third", testRecord("3 elm st")))

	assert.Equal(t, 2, m.Len())

	_, ok, _ := m.Get(ctx, "first")
	assert.False(t, ok, "oldest insertion should have been evicted")
	_, ok, _ = m.Get(ctx, "third")
	assert.True(t, ok)

	assert.Equal(t, int64(1), m.Stats().Evictions)
}

func TestMemory_Stats(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	m.Get(ctx, "absent")
	require.NoError(t, m.Set(ctx, "key1", testRecord("123 main st")))
	m.Get(ctx, "key1")
	m.Get(ctx, "key1")

	stats := m.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			_ = m.Set(ctx, key, testRecord(key))
		}(i)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			_, _, _ = m.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, m.Len(), 10)
}
