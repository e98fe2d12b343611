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

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestNew tests logger initialization
func TestNew(t *testing.T) {
	l := New("aggregator")

	if l.Component != "aggregator" {
		t.Errorf("Expected component aggregator, got %s", l.Component)
	}
	if l.Host == "" {
		t.Error("Expected host to be set from hostname")
	}
}

// TestLogLevels tests all log level methods
func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		logFunc   func(*Logger, string, string, map[string]any)
		level     Level
		message   string
		requestID string
		fields    map[string]any
	}{
		{
			name:      "Info log",
			logFunc:   (*Logger).Info,
			level:     INFO,
			message:   "aggregation complete",
			requestID: "req-456",
			fields:    map[string]any{"providers": "3"},
		},
		{
			name:      "Warn log",
			logFunc:   (*Logger).Warn,
			level:     WARN,
			message:   "cache write failed",
			requestID: "req-def",
			fields:    nil,
		},
		{
			name:      "Debug log",
			logFunc:   (*Logger).Debug,
			level:     DEBUG,
			message:   "provider selected",
			requestID: "req-uvw",
			fields:    map[string]any{"rank": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter("test-component", &buf)
			tt.logFunc(l, tt.requestID, tt.message, tt.fields)

			var entry Entry
			if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v\nOutput: %s", err, buf.String())
			}

			if entry.Level != tt.level {
				t.Errorf("Expected level %s, got %s", tt.level, entry.Level)
			}
			if entry.Message != tt.message {
				t.Errorf("Expected message '%s', got '%s'", tt.message, entry.Message)
			}
			if entry.RequestID != tt.requestID {
				t.Errorf("Expected request ID '%s', got '%s'", tt.requestID, entry.RequestID)
			}
			if entry.Component != "test-component" {
				t.Errorf("Expected component 'test-component', got '%s'", entry.Component)
			}
			if _, err := time.Parse(time.RFC3339Nano, entry.Timestamp); err != nil {
				t.Errorf("Invalid timestamp format: %s", entry.Timestamp)
			}

			for key, expected := range tt.fields {
				actual, ok := entry.Fields[key]
				if !ok {
					t.Errorf("Expected field '%s' not found", key)
					continue
				}
				// JSON unmarshals numbers as float64
				if n, isInt := expected.(int); isInt {
					if got, isFloat := actual.(float64); !isFloat || int(got) != n {
						t.Errorf("Field '%s': expected %v, got %v", key, expected, actual)
					}
					continue
				}
				if actual != expected {
					t.Errorf("Field '%s': expected %v, got %v", key, expected, actual)
				}
			}
		})
	}
}

// TestErrorAttachesErrField tests that Error folds the error into fields
func TestErrorAttachesErrField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test-component", &buf)

	l.Error("req-1", "provider call failed", &testError{msg: "connection refused"}, map[string]any{
		"provider": "rentcast",
	})

	var entry Entry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if entry.Level != ERROR {
		t.Errorf("Expected ERROR level, got %s", entry.Level)
	}
	if entry.Fields["error"] != "connection refused" {
		t.Errorf("Expected error field 'connection refused', got %v", entry.Fields["error"])
	}
	if entry.Fields["provider"] != "rentcast" {
		t.Errorf("Expected provider field preserved, got %v", entry.Fields["provider"])
	}
}

// TestInfoWithDuration tests the InfoWithDuration helper method
func TestInfoWithDuration(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test-component", &buf)

	l.InfoWithDuration("req-456", "aggregation complete", 123.45, map[string]any{
		"endpoint": "/api/v1/properties/aggregate",
	})

	var entry Entry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if entry.Fields["duration_ms"] != 123.45 {
		t.Errorf("Expected duration_ms 123.45, got %v", entry.Fields["duration_ms"])
	}
	if entry.Fields["endpoint"] != "/api/v1/properties/aggregate" {
		t.Errorf("Expected endpoint field preserved, got %v", entry.Fields["endpoint"])
	}
	if entry.Level != INFO {
		t.Errorf("Expected INFO level, got %s", entry.Level)
	}
}

// TestJSONMarshalError tests behavior when JSON marshaling fails
func TestJSONMarshalError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("test-component", &buf)

	// Channels cannot be marshaled to JSON
	l.Info("req-456", "bad fields", map[string]any{"channel": make(chan int)})

	if strings.Contains(buf.String(), "bad fields") {
		t.Error("Expected no entry written when marshaling fails")
	}
}

// Helper type for testing errors
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

// BenchmarkLog benchmarks the logging performance
func BenchmarkLog(b *testing.B) {
	var buf bytes.Buffer
	l := NewWithWriter("benchmark-component", &buf)

	fields := map[string]any{
		"provider": "rentcast",
		"duration": 45.67,
		"success":  true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Info("req-456", "provider call complete", fields)
		buf.Reset()
	}
}
