// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTimingEmitsEventInDebug(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)

	done := o.StartTiming("scanner", "scan_file", "LICENSE")
	done(true, map[string]interface{}{"detections": 2})

	var event OperationEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "scanner", event.Component)
	assert.Equal(t, "scan_file", event.Operation)
	assert.Equal(t, "LICENSE", event.FilePath)
	assert.True(t, event.Success)
	assert.NotEmpty(t, event.Timestamp)
	assert.EqualValues(t, 2, event.Metadata["detections"])
}

func TestMetricsLevelStaysQuiet(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityMetrics, &buf)

	o.StartTiming("scanner", "scan_file", "LICENSE")(true, nil)
	assert.Empty(t, buf.Bytes())
}

func TestOffLevelStaysQuiet(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityOff, &buf)

	o.LogOperation(OperationEvent{Component: "scanner"})
	assert.Empty(t, buf.Bytes())
}
