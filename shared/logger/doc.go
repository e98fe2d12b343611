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

/*
Package logger provides structured JSON logging for the property
underwriting services.

# Overview

The logger outputs single-line JSON to stdout, making logs easily
consumable by CloudWatch, ELK, or other log aggregation systems.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (aggregator, cache, store, ...)
  - Host name
  - Request ID (for correlating one aggregation run across the fan-out)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("aggregator")

Log messages with request context:

	log.Info("req-456", "aggregation complete", map[string]any{
	    "providers": 3,
	    "cache_hit": false,
	})

Log with duration tracking:

	start := time.Now()
	// ... do work ...
	log.InfoWithDuration("req-456", "fan-out complete",
	    float64(time.Since(start).Milliseconds()), nil)

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
