// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StandardObserver implements observability for all components
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	mu            sync.Mutex
	DebugObserver *DebugObserver // Reference to debug observer when in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityWarn    ObservabilityLevel = 1
	ObservabilityMetrics ObservabilityLevel = 2
	ObservabilityDebug   ObservabilityLevel = 3
)

// ParseLevel maps a config string to a level. Unknown values mean warn.
func ParseLevel(s string) ObservabilityLevel {
	switch s {
	case "off", "none":
		return ObservabilityOff
	case "metrics", "info":
		return ObservabilityMetrics
	case "debug":
		return ObservabilityDebug
	default:
		return ObservabilityWarn
	}
}

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// Level returns the configured level; a nil observer is off.
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, subject string) func(success bool, metadata map[string]interface{}) {
	if o.Level() < ObservabilityMetrics {
		return func(bool, map[string]interface{}) {}
	}
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Subject:    subject,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o.Level() < ObservabilityMetrics {
		return
	}
	if data.Level == "" {
		data.Level = "info"
	}
	o.write(data)
}

// Debug records a debug event such as a failed strategy transition.
func (o *StandardObserver) Debug(component, message string, fields map[string]interface{}) {
	if o.Level() < ObservabilityDebug {
		return
	}
	if o.DebugObserver != nil {
		o.DebugObserver.LogDetail(component, formatDetail(message, fields))
		return
	}
	o.write(StandardObservabilityData{
		Level:     "debug",
		Component: component,
		Operation: message,
		Success:   true,
		Metadata:  fields,
	})
}

// Warn records a condition worth surfacing: a discarded highlight, a
// synthesized fallback span or a location that could not be found.
func (o *StandardObserver) Warn(component, message string, fields map[string]interface{}) {
	if o.Level() < ObservabilityWarn {
		return
	}
	if o.DebugObserver != nil {
		o.DebugObserver.LogWarning(component, formatDetail(message, fields))
		return
	}
	o.write(StandardObservabilityData{
		Level:     "warn",
		Component: component,
		Operation: message,
		Success:   false,
		Metadata:  fields,
	})
}

func (o *StandardObserver) write(data StandardObservabilityData) {
	data.RequestID = "req-" + uuid.NewString()
	data.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = json.NewEncoder(o.writer).Encode(data)
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Timestamp  string                 `json:"ts"`
	Level      string                 `json:"level"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	Subject    string                 `json:"subject,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	MatchCount int                    `json:"match_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
