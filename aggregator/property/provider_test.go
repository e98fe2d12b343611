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
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
		isErr  bool
	}{
		{http.StatusOK, "", false},
		{http.StatusCreated, "", false},
		{http.StatusUnauthorized, ErrUnauthorized, true},
		{http.StatusForbidden, ErrUnauthorized, true},
		{http.StatusTooManyRequests, ErrRateLimited, true},
		{http.StatusInternalServerError, ErrUnavailable, true},
		{http.StatusBadGateway, ErrUnavailable, true},
		{http.StatusServiceUnavailable, ErrUnavailable, true},
		{http.StatusBadRequest, ErrParse, true},
		{http.StatusNotFound, ErrParse, true},
	}

	for _, tt := range tests {
		kind, isErr := ClassifyStatus(tt.status)
		assert.Equal(t, tt.isErr, isErr, "status %d", tt.status)
		assert.Equal(t, tt.want, kind, "status %d", tt.status)
	}
}

// timeoutErr satisfies net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	bg := context.Background()

	assert.Equal(t, ErrUnavailable, ClassifyTransportError(bg, errors.New("connection refused")))
	assert.Equal(t, ErrTimeout, ClassifyTransportError(bg, timeoutErr{}))
	assert.Equal(t, ErrTimeout, ClassifyTransportError(bg, context.DeadlineExceeded))

	expired, cancel := context.WithTimeout(bg, time.Nanosecond)
	defer cancel()
	<-expired.Done()
	assert.Equal(t, ErrTimeout, ClassifyTransportError(expired, errors.New("request aborted")))
}
