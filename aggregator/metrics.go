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

package aggregator

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	promAggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_aggregator_requests_total",
			Help: "Total number of aggregation requests processed",
		},
		[]string{"status"},
	)
	promAggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "property_aggregator_request_duration_milliseconds",
			Help:    "Aggregation request duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
		},
	)
	promProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_aggregator_provider_calls_total",
			Help: "Total number of provider API calls",
		},
		[]string{"provider", "status"},
	)
	promCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_aggregator_cache_lookups_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"result"},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promAggregationsTotal)
	prometheus.MustRegister(promAggregationDuration)
	prometheus.MustRegister(promProviderCalls)
	prometheus.MustRegister(promCacheLookups)
}
