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

// Package property defines the common data model and provider abstractions
// for the property data aggregation engine. This package holds the unified
// types used across all provider integrations, enabling pluggable adapter
// implementations selected through an immutable registry.
package property

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Address identifies a single property. All aggregation, caching, and merge
// identity is keyed by the normalized form of this value.
type Address struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)
var zipRe = regexp.MustCompile(`^\d{5}$`)
var stateRe = regexp.MustCompile(`^[A-Za-z]{2}$`)

// Normalize returns a canonical copy of the address: whitespace collapsed,
// street and city lower-cased, state upper-cased, zip trimmed. Two addresses
// that normalize equal are treated as the same property.
func (a Address) Normalize() Address {
	clean := func(s string) string {
		return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	}
	return Address{
		Line1: strings.ToLower(clean(a.Line1)),
		City:  strings.ToLower(clean(a.City)),
		State: strings.ToUpper(clean(a.State)),
		Zip:   clean(a.Zip),
	}
}

// Validate checks that the address is complete enough to query providers.
func (a Address) Validate() error {
	n := a.Normalize()
	switch {
	case n.Line1 == "":
		return fmt.Errorf("address line1 is required")
	case n.City == "":
		return fmt.Errorf("address city is required")
	case !stateRe.MatchString(n.State):
		return fmt.Errorf("address state must be a 2-letter code, got %q", a.State)
	case !zipRe.MatchString(n.Zip):
		return fmt.Errorf("address zip must be 5 digits, got %q", a.Zip)
	}
	return nil
}

// CacheKey returns a stable hash of the normalized address, used as the
// response cache key.
func (a Address) CacheKey() string {
	n := a.Normalize()
	sum := sha256.Sum256([]byte(n.Line1 + "|" + n.City + "|" + n.State + "|" + n.Zip))
	return hex.EncodeToString(sum[:])
}

// String returns the normalized single-line form of the address.
func (a Address) String() string {
	n := a.Normalize()
	return fmt.Sprintf("%s, %s, %s %s", n.Line1, n.City, n.State, n.Zip)
}

// Capability identifies what kind of lookups a provider supports.
type Capability string

const (
	// CapabilityPropertyLevel means the provider returns facts about one property.
	CapabilityPropertyLevel Capability = "property_level"

	// CapabilityAreaLevel means the provider returns area-scoped rent benchmarks.
	CapabilityAreaLevel Capability = "area_level"
)

// ErrorKind classifies provider call failures. Adapters must fold every
// transport or parse failure into one of these kinds; no other error type
// crosses the adapter boundary.
type ErrorKind string

const (
	ErrTimeout      ErrorKind = "timeout"
	ErrUnauthorized ErrorKind = "unauthorized"
	ErrRateLimited  ErrorKind = "rate_limited"
	ErrUnavailable  ErrorKind = "unavailable"
	ErrParse        ErrorKind = "parse_error"
)

// ProviderError is the only error shape an adapter may report.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Metadata records when and how a provider call completed.
type Metadata struct {
	ProviderID string        `json:"provider_id"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Latency    time.Duration `json:"latency"`
	Outcome    string        `json:"outcome"`
}

// Patch is a partial property record returned by a single provider. Any
// subset of fields may be present; nil means the provider did not report
// that field.
type Patch struct {
	MarketValueEstimate *float64          `json:"market_value_estimate,omitempty"`
	RentEstimate        *float64          `json:"rent_estimate,omitempty"`
	AnnualTaxes         *float64          `json:"annual_taxes,omitempty"`
	Beds                *float64          `json:"beds,omitempty"`
	Baths               *float64          `json:"baths,omitempty"`
	Sqft                *int              `json:"sqft,omitempty"`
	LotSqft             *int              `json:"lot_sqft,omitempty"`
	YearBuilt           *int              `json:"year_built,omitempty"`
	ClosingCostEstimate *float64          `json:"closing_cost_estimate,omitempty"`
	Meta                map[string]string `json:"meta,omitempty"`
}

// Empty reports whether the patch carries no field values at all.
func (p *Patch) Empty() bool {
	if p == nil {
		return true
	}
	return p.MarketValueEstimate == nil && p.RentEstimate == nil &&
		p.AnnualTaxes == nil && p.Beds == nil && p.Baths == nil &&
		p.Sqft == nil && p.LotSqft == nil && p.YearBuilt == nil &&
		p.ClosingCostEstimate == nil
}

// AreaRentBenchmark is an area-scoped rent statistic, keyed by zip or metro.
// Benchmarks supplement the canonical record and never override
// property-level fields.
type AreaRentBenchmark struct {
	ProviderID   string  `json:"provider_id"`
	Zip          string  `json:"zip,omitempty"`
	Metro        string  `json:"metro,omitempty"`
	BedroomCount *int    `json:"bedroom_count,omitempty"`
	MedianRent   float64 `json:"median_rent"`
	SampleSize   *int    `json:"sample_size,omitempty"`
	Year         *int    `json:"year,omitempty"`
	Currency     string  `json:"currency,omitempty"`
}

// Result is the outcome of one capability call against one provider.
// Exactly one of (Patch or Benchmarks present) or (Err present) holds.
type Result struct {
	Patch      *Patch              `json:"patch,omitempty"`
	Benchmarks []AreaRentBenchmark `json:"benchmarks,omitempty"`
	RawPayload string              `json:"raw_payload,omitempty"`
	Metadata   Metadata            `json:"metadata"`
	Err        *ProviderError      `json:"-"`
}

// Succeeded reports whether the call produced usable data.
func (r *Result) Succeeded() bool {
	return r != nil && r.Err == nil && (!r.Patch.Empty() || len(r.Benchmarks) > 0 || r.RawPayload != "")
}

// Failure builds a failed Result for the given provider and error kind.
func Failure(providerID string, kind ErrorKind, msg string, cause error, started time.Time) *Result {
	return &Result{
		Metadata: Metadata{
			ProviderID: providerID,
			FetchedAt:  time.Now().UTC(),
			Latency:    time.Since(started),
			Outcome:    "error:" + string(kind),
		},
		Err: &ProviderError{Kind: kind, Message: msg, Cause: cause},
	}
}

// Success builds a succeeded Result carrying a patch and/or benchmarks.
func Success(providerID string, patch *Patch, benchmarks []AreaRentBenchmark, raw string, started time.Time) *Result {
	return &Result{
		Patch:      patch,
		Benchmarks: benchmarks,
		RawPayload: raw,
		Metadata: Metadata{
			ProviderID: providerID,
			FetchedAt:  time.Now().UTC(),
			Latency:    time.Since(started),
			Outcome:    "ok",
		},
	}
}

// FieldProvenance records which provider supplied one canonical field.
type FieldProvenance struct {
	Field      string    `json:"field"`
	ProviderID string    `json:"provider_id"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Attempt records the outcome of one provider call, success or failure.
// Failed providers are kept here for observability rather than dropped.
type Attempt struct {
	ProviderID string        `json:"provider_id"`
	Rank       int           `json:"rank"`
	OK         bool          `json:"ok"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Latency    time.Duration `json:"latency"`
}

// Canonical is the merged property record produced by one aggregation run.
// It is immutable once constructed; a later fetch for the same address
// produces a new instance rather than mutating this one.
type Canonical struct {
	Address             Address             `json:"address"`
	MarketValueEstimate *float64            `json:"market_value_estimate,omitempty"`
	RentEstimate        *float64            `json:"rent_estimate,omitempty"`
	AnnualTaxes         *float64            `json:"annual_taxes,omitempty"`
	Beds                *float64            `json:"beds,omitempty"`
	Baths               *float64            `json:"baths,omitempty"`
	Sqft                *int                `json:"sqft,omitempty"`
	LotSqft             *int                `json:"lot_sqft,omitempty"`
	YearBuilt           *int                `json:"year_built,omitempty"`
	ClosingCostEstimate *float64            `json:"closing_cost_estimate,omitempty"`
	Benchmarks          []AreaRentBenchmark `json:"benchmarks,omitempty"`
	Provenance          []FieldProvenance   `json:"provenance"`
	Sources             []string            `json:"sources"`
	Meta                map[string]string   `json:"meta"`
	Attempts            []Attempt           `json:"attempts"`
	FetchedAt           time.Time           `json:"fetched_at"`
}

// Float returns a pointer to v. Convenience for building patches.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v. Convenience for building patches.
func Int(v int) *int { return &v }
