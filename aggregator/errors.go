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

import "fmt"

// Aggregation error codes.
const (
	// ErrCodeInvalidAddress indicates the address failed validation before
	// any network call was made.
	ErrCodeInvalidAddress = "invalid_address"

	// ErrCodeAllProvidersFailed indicates every candidate adapter failed.
	ErrCodeAllProvidersFailed = "all_providers_failed"
)

// AggregationError is the only error type Aggregate returns to callers.
type AggregationError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation error (%s): %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error {
	return e.Cause
}

// IsInvalidAddress reports whether err is an address validation failure.
func IsInvalidAddress(err error) bool {
	ae, ok := err.(*AggregationError)
	return ok && ae.Code == ErrCodeInvalidAddress
}

// IsAllProvidersFailed reports whether err means no adapter succeeded.
func IsAllProvidersFailed(err error) bool {
	ae, ok := err.(*AggregationError)
	return ok && ae.Code == ErrCodeAllProvidersFailed
}

func invalidAddress(cause error) *AggregationError {
	return &AggregationError{
		Code:    ErrCodeInvalidAddress,
		Message: cause.Error(),
		Cause:   cause,
	}
}

func allProvidersFailed(attempted int) *AggregationError {
	return &AggregationError{
		Code:    ErrCodeAllProvidersFailed,
		Message: fmt.Sprintf("all %d provider calls failed", attempted),
	}
}
