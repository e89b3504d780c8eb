// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// ObservabilityLevel controls how much the observer emits.
type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// StandardObserver emits structured JSON timing events for pipeline
// components. Safe for concurrent use; events are written one per line.
type StandardObserver struct {
	level  ObservabilityLevel
	writer io.Writer
	mu     sync.Mutex
}

// NewStandardObserver creates an observer writing to the given writer.
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// Level returns the configured observability level.
func (o *StandardObserver) Level() ObservabilityLevel {
	return o.level
}

// StartTiming begins timing an operation and returns the function that
// completes it.
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(OperationEvent{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation emits one event. Events are only written in debug mode;
// metrics mode keeps timing overhead without the output volume.
func (o *StandardObserver) LogOperation(event OperationEvent) {
	if o.level < ObservabilityDebug || o.writer == nil {
		return
	}
	event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	o.mu.Lock()
	defer o.mu.Unlock()
	json.NewEncoder(o.writer).Encode(event)
}

// OperationEvent is one timed pipeline operation.
type OperationEvent struct {
	Timestamp  string                 `json:"timestamp"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
