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
	"sort"
	"time"
)

// RankedResult pairs one provider call outcome with the provider's
// precedence rank assigned by the registry.
type RankedResult struct {
	Rank   int
	Result *Result
}

// fieldSpec describes one canonical field for the precedence merge. apply
// copies the field from the patch into the record if the record does not
// have it yet, returning true when it set the value.
type fieldSpec struct {
	name  string
	apply func(c *Canonical, p *Patch) bool
}

// mergeFields is the fixed canonical field order. Provenance entries are
// emitted in this order per provider.
var mergeFields = []fieldSpec{
	{"market_value_estimate", func(c *Canonical, p *Patch) bool {
		return setFloat(&c.MarketValueEstimate, p.MarketValueEstimate)
	}},
	{"rent_estimate", func(c *Canonical, p *Patch) bool {
		return setFloat(&c.RentEstimate, p.RentEstimate)
	}},
	{"annual_taxes", func(c *Canonical, p *Patch) bool {
		return setFloat(&c.AnnualTaxes, p.AnnualTaxes)
	}},
	{"beds", func(c *Canonical, p *Patch) bool {
		return setFloat(&c.Beds, p.Beds)
	}},
	{"baths", func(c *Canonical, p *Patch) bool {
		return setFloat(&c.Baths, p.Baths)
	}},
	{"sqft", func(c *Canonical, p *Patch) bool {
		return setInt(&c.Sqft, p.Sqft)
	}},
	{"lot_sqft", func(c *Canonical, p *Patch) bool {
		return setInt(&c.LotSqft, p.LotSqft)
	}},
	{"year_built", func(c *Canonical, p *Patch) bool {
		return setInt(&c.YearBuilt, p.YearBuilt)
	}},
	{"closing_cost_estimate", func(c *Canonical, p *Patch) bool {
		return setFloat(&c.ClosingCostEstimate, p.ClosingCostEstimate)
	}},
}

func setFloat(dst **float64, src *float64) bool {
	if *dst != nil || src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func setInt(dst **int, src *int) bool {
	if *dst != nil || src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}

// Merge combines provider results into a single canonical record. It is a
// pure function and its output is identical for any permutation of the
// input slice: results are ordered by precedence rank (provider ID breaking
// ties), never by arrival order.
//
// For each canonical field the first provider in rank order with a non-nil
// value wins and gets a provenance entry; later values for that field are
// ignored. Area benchmarks are appended independently and never touch
// property-level fields. Every successful provider contributes its raw
// payload under "{id}_raw" in Meta and its ID to Sources, whether or not
// any of its fields were selected. Failed results are recorded in Attempts.
func Merge(addr Address, results []RankedResult, fetchedAt time.Time) *Canonical {
	ordered := make([]RankedResult, 0, len(results))
	for _, rr := range results {
		if rr.Result != nil {
			ordered = append(ordered, rr)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Result, ordered[j].Result
		if ordered[i].Rank != ordered[j].Rank {
			return ordered[i].Rank < ordered[j].Rank
		}
		if ri.Metadata.ProviderID != rj.Metadata.ProviderID {
			return ri.Metadata.ProviderID < rj.Metadata.ProviderID
		}
		// One provider can answer both the property and the area lookup.
		// Order the property result first, then fall back to payload bytes,
		// so the merge stays independent of arrival order.
		if (ri.Patch != nil) != (rj.Patch != nil) {
			return ri.Patch != nil
		}
		return ri.RawPayload < rj.RawPayload
	})

	record := &Canonical{
		Address:    addr.Normalize(),
		Provenance: []FieldProvenance{},
		Sources:    []string{},
		Meta:       map[string]string{},
		Attempts:   make([]Attempt, 0, len(ordered)),
		FetchedAt:  fetchedAt,
	}

	for _, rr := range ordered {
		res := rr.Result
		id := res.Metadata.ProviderID

		record.Attempts = append(record.Attempts, Attempt{
			ProviderID: id,
			Rank:       rr.Rank,
			OK:         res.Err == nil,
			ErrorKind:  errKind(res),
			Latency:    res.Metadata.Latency,
		})

		if res.Err != nil {
			continue
		}

		if !containsString(record.Sources, id) {
			record.Sources = append(record.Sources, id)
		}
		if res.RawPayload != "" {
			if _, taken := record.Meta[id+"_raw"]; !taken {
				record.Meta[id+"_raw"] = res.RawPayload
			}
		}

		if res.Patch != nil {
			for _, f := range mergeFields {
				if f.apply(record, res.Patch) {
					record.Provenance = append(record.Provenance, FieldProvenance{
						Field:      f.name,
						ProviderID: id,
						FetchedAt:  res.Metadata.FetchedAt,
					})
				}
			}
			for k, v := range res.Patch.Meta {
				if _, taken := record.Meta[k]; !taken && v != "" {
					record.Meta[k] = v
				}
			}
		}

		for _, b := range res.Benchmarks {
			b.ProviderID = id
			record.Benchmarks = append(record.Benchmarks, b)
		}
	}

	return record
}

func errKind(r *Result) ErrorKind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

func containsString(list []string, s string) bool {
	for _, got := range list {
		if got == s {
			return true
		}
	}
	return false
}
