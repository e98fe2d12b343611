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
	"errors"
	"net"
	"net/http"
	"time"
)

// Provider is the unified interface for all property data sources.
// Implementations must be safe for concurrent use.
//
// A Provider never returns a Go error across this boundary: every transport,
// auth, or parse failure is folded into Result.Err so the orchestrator's
// fan-out only ever handles Result values. Cancellation and timeouts are
// owned by the caller through the context.
type Provider interface {
	// ID returns the unique identifier for this provider instance.
	// It is used for provenance, raw payload keys, logging, and metrics.
	ID() string

	// Capabilities returns the lookups this provider supports.
	Capabilities() []Capability

	// FetchForProperty looks up property-level facts for one address.
	// Only meaningful for providers declaring CapabilityPropertyLevel.
	FetchForProperty(ctx context.Context, addr Address) *Result

	// FetchForArea looks up area-scoped rent benchmarks for the address's
	// zip/metro. Only meaningful for providers declaring CapabilityAreaLevel.
	FetchForArea(ctx context.Context, addr Address) *Result
}

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HasCapability reports whether the provider declares the given capability.
func HasCapability(p Provider, c Capability) bool {
	for _, got := range p.Capabilities() {
		if got == c {
			return true
		}
	}
	return false
}

// ClassifyStatus maps an HTTP response status to an ErrorKind. Adapters share
// this mapping so the orchestrator sees a uniform failure taxonomy.
func ClassifyStatus(status int) (ErrorKind, bool) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized, true
	case status == http.StatusTooManyRequests:
		return ErrRateLimited, true
	case status >= 500:
		return ErrUnavailable, true
	case status >= 400:
		return ErrParse, true
	}
	return "", false
}

// ClassifyTransportError maps a transport-level error to an ErrorKind.
// Context expiry and network timeouts report as Timeout; anything else as
// Unavailable.
func ClassifyTransportError(ctx context.Context, err error) ErrorKind {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}

// DefaultTimeout is the per-provider call timeout used when configuration
// does not specify one.
const DefaultTimeout = 10 * time.Second
