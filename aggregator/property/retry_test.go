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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrTimeout))
	assert.True(t, Retryable(ErrRateLimited))
	assert.False(t, Retryable(ErrUnauthorized))
	assert.False(t, Retryable(ErrUnavailable))
	assert.False(t, Retryable(ErrParse))
}

func TestFetchWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	calls := 0
	res := FetchWithRetry(context.Background(), cfg, func(ctx context.Context) *Result {
		calls++
		if calls < 3 {
			return fixedFailure("flaky", ErrRateLimited)
		}
		return fixedResult("flaky", &Patch{Beds: Float(2)}, nil, "{}")
	})

	require.NotNil(t, res)
	assert.Nil(t, res.Err)
	assert.Equal(t, 3, calls)
}

func TestFetchWithRetry_NonRetryableFailsFast(t *testing.T) {
	cfg := DefaultRetryConfig()

	calls := 0
	res := FetchWithRetry(context.Background(), cfg, func(ctx context.Context) *Result {
		calls++
		return fixedFailure("denied", ErrUnauthorized)
	})

	require.NotNil(t, res.Err)
	assert.Equal(t, ErrUnauthorized, res.Err.Kind)
	assert.Equal(t, 1, calls)
}

func TestFetchWithRetry_ExhaustsBudget(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	calls := 0
	res := FetchWithRetry(context.Background(), cfg, func(ctx context.Context) *Result {
		calls++
		return fixedFailure("busy", ErrRateLimited)
	})

	require.NotNil(t, res.Err)
	assert.Equal(t, ErrRateLimited, res.Err.Kind)
	assert.Equal(t, 3, calls) // first call + two retries
}

func TestFetchWithRetry_RespectsContextDeadline(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries:     10,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
		BackoffFactor:  1.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	res := FetchWithRetry(ctx, cfg, func(ctx context.Context) *Result {
		calls++
		return fixedFailure("slow", ErrTimeout)
	})

	// The next backoff (1s) cannot fit into the remaining budget, so the
	// helper returns the last failure immediately instead of sleeping.
	require.NotNil(t, res.Err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFetchWithRetry_NilResultReturned(t *testing.T) {
	res := FetchWithRetry(context.Background(), DefaultRetryConfig(), func(ctx context.Context) *Result {
		return nil
	})
	assert.Nil(t, res)
}
