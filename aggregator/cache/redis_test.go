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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisWithClient(client, ttl), srv
}

func TestRedis_SetGet(t *testing.T) {
	c, _ := newTestRedis(t, time.Minute)
	ctx := context.Background()

	rec := testRecord("123 main st")
	require.NoError(t, c.Set(ctx, "key1", rec))

	got, ok, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, rec.Address, got.Address)
	assert.Equal(t, rec.Sources, got.Sources)
	assert.True(t, rec.FetchedAt.Equal(got.FetchedAt), "cached record must keep its original fetch time")
}

func TestRedis_MissingKey(t *testing.T) {
	c, _ := newTestRedis(t, time.Minute)

	_, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_TTLExpiry(t *testing.T) {
	c, srv := newTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", testRecord("123 main st")))

	srv.FastForward(30 * time.Second)
	_, ok, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, ok)

	srv.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_KeysAreNamespaced(t *testing.T) {
	c, srv := newTestRedis(t, time.Minute)
	require.NoError(t, c.Set(context.Background(), "key1", testRecord("123 main st")))

	assert.True(t, srv.Exists("propdata:key1"))
}

func TestRedis_CorruptEntryBehavesLikeMiss(t *testing.T) {
	c, srv := newTestRedis(t, time.Minute)
	require.NoError(t, srv.Set("propdata:key1", "{not json"))

	_, ok, err := c.Get(context.Background(), "key1")
	assert.Error(t, err)
	assert.False(t, ok)
}
