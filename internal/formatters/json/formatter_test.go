// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	stdjson "encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichen-scan/internal/core"
	"lichen-scan/internal/detection"
	"lichen-scan/internal/formatters"
	"lichen-scan/internal/suppressions"
)

func sampleResults() []core.FileDetections {
	return []core.FileDetections{
		{
			Path: "LICENSE",
			Detections: []*detection.LicenseDetection{
				{
					LicenseExpression:     "mit",
					LicenseExpressionSPDX: "MIT",
					Identifier:            "mit-0000",
					FileRegion:            &detection.FileRegion{Path: "LICENSE", StartLine: 1, EndLine: 21},
				},
			},
			Suppressed: []suppressions.SuppressedDetection{
				{
					Detection: &detection.LicenseDetection{LicenseExpression: "gpl-2.0"},
					Path:      "LICENSE",
					RuleID:    "SUP-00000001",
				},
			},
		},
	}
}

func TestFormatValidJSON(t *testing.T) {
	out, err := NewFormatter().Format(sampleResults(), formatters.Options{ShowSuppressed: true})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, stdjson.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "files")
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, out, `"license_expression_spdx": "MIT"`)
	assert.Contains(t, out, "SUP-00000001")
}

func TestFormatHidesSuppressedByDefault(t *testing.T) {
	results := sampleResults()
	out, err := NewFormatter().Format(results, formatters.Options{})
	require.NoError(t, err)
	assert.NotContains(t, out, "SUP-00000001")
	assert.NotEmpty(t, results[0].Suppressed, "caller's results stay intact")
}

func TestFormatEmptyResults(t *testing.T) {
	out, err := NewFormatter().Format(nil, formatters.Options{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, stdjson.Unmarshal([]byte(out), &decoded))
	assert.NotNil(t, decoded["files"])
}

func TestRegisteredInDefaultRegistry(t *testing.T) {
	_, ok := formatters.Get("json")
	assert.True(t, ok)
}
