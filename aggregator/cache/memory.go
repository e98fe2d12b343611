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
	"sync"
	"time"

	"github.com/t-haskell/property-underwriter/aggregator/property"
)

// entry is one cached record with its insertion time.
type entry struct {
	record     *property.Canonical
	insertedAt time.Time
}

// expired reports whether the entry has outlived the TTL.
func (e *entry) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.insertedAt) >= ttl
}

// Memory is an in-process TTL cache. Expiry is lazy: stale entries are
// dropped when read. An optional capacity bound evicts the oldest insertion
// first to keep memory use bounded; strict LRU is deliberately not attempted.
type Memory struct {
	entries  map[string]*entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
	mu       sync.RWMutex
	stats    Stats
}

// MemoryOption configures the in-memory cache.
type MemoryOption func(*Memory)

// WithCapacity bounds the number of cached records. Zero means unbounded.
func WithCapacity(n int) MemoryOption {
	return func(m *Memory) { m.capacity = n }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an in-memory cache with the given TTL.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, key string) (*property.Canonical, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.recordMiss()
		return nil, false, nil
	}
	if e.expired(m.ttl, m.now()) {
		m.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry in the meantime.
		if cur, still := m.entries[key]; still && cur.expired(m.ttl, m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		m.recordMiss()
		return nil, false, nil
	}

	m.recordHit()
	return e.record, true, nil
}

// Set implements Cache.
func (m *Memory) Set(ctx context.Context, key string, record *property.Canonical) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 && len(m.entries) >= m.capacity {
		if _, exists := m.entries[key]; !exists {
			m.evictOldestLocked()
		}
	}
	m.entries[key] = &entry{record: record, insertedAt: m.now()}
	return nil
}

// Len returns the current number of entries, including ones not yet lazily
// expired.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range m.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.insertedAt, false
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.stats.Evictions++
	}
}

func (m *Memory) recordHit() {
	m.mu.Lock()
	m.stats.Hits++
	m.mu.Unlock()
}

func (m *Memory) recordMiss() {
	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
}
