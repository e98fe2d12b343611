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
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for retry-capable adapters.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first call.
	MaxRetries int

	// InitialBackoff is the wait time before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait time between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64

	// Jitter adds randomness to avoid thundering herd (0.0-1.0).
	Jitter float64
}

// DefaultRetryConfig returns a sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
	}
}

// Retryable reports whether a failure kind is worth retrying. Only transient
// kinds qualify; auth and parse failures fail fast.
func Retryable(kind ErrorKind) bool {
	return kind == ErrTimeout || kind == ErrRateLimited
}

// FetchWithRetry runs a provider call with exponential backoff on retryable
// failures. The caller's context deadline is a hard bound: when the next
// backoff would not fit in the remaining budget, the helper abandons further
// attempts and returns the last failed result instead of overrunning it.
func FetchWithRetry(ctx context.Context, cfg RetryConfig, fn func(context.Context) *Result) *Result {
	var last *Result

	for attempt := 0; ; attempt++ {
		last = fn(ctx)
		if last == nil || last.Err == nil || !Retryable(last.Err.Kind) {
			return last
		}
		if attempt >= cfg.MaxRetries {
			return last
		}

		backoff := cfg.InitialBackoff * time.Duration(pow(cfg.BackoffFactor, float64(attempt)))
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
		if cfg.Jitter > 0 {
			delta := float64(backoff) * cfg.Jitter
			backoff = time.Duration(float64(backoff) + (rand.Float64()*2*delta - delta))
		}

		if deadline, ok := ctx.Deadline(); ok {
			if time.Until(deadline) <= backoff {
				return last
			}
		}

		select {
		case <-ctx.Done():
			return last
		case <-time.After(backoff):
		}
	}
}

// pow calculates base^exp for floats.
func pow(base, exp float64) float64 {
	result := 1.0
	for exp > 0 {
		if int(exp)%2 == 1 {
			result *= base
		}
		exp = float64(int(exp) / 2)
		base *= base
	}
	return result
}
