// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichen-scan/internal/core"
	"lichen-scan/internal/detection"
	"lichen-scan/internal/formatters"
	"lichen-scan/internal/licenses"
	"lichen-scan/internal/match"
	"lichen-scan/internal/suppressions"
)

func sampleResults() []core.FileDetections {
	m := &match.LicenseMatch{
		Rule:          &licenses.Rule{Identifier: "mit_notice.RULE"},
		Matcher:       match.MatcherHash,
		Score:         100,
		MatchCoverage: 100,
		MatchedLength: 20,
		StartLine:     1,
		EndLine:       5,
	}
	return []core.FileDetections{
		{
			Path: "LICENSE",
			Detections: []*detection.LicenseDetection{
				{
					LicenseExpression:     "mit",
					LicenseExpressionSPDX: "MIT",
					Matches:               []*match.LicenseMatch{m},
					DetectionLog:          []string{"perfect-detection"},
					FileRegion:            &detection.FileRegion{StartLine: 1, EndLine: 5},
				},
			},
		},
		{Path: "clean.go"},
	}
}

func TestFormatShowsDetections(t *testing.T) {
	out, err := NewFormatter().Format(sampleResults(), formatters.Options{NoColor: true})
	require.NoError(t, err)

	assert.Contains(t, out, "LICENSE")
	assert.Contains(t, out, "MIT")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "lines 1-5")
	assert.NotContains(t, out, "clean.go", "files without findings stay quiet")
	assert.Contains(t, out, "2 files scanned, 1 detections in 1 files, 1 unique licenses")
}

func TestFormatVerboseShowsMatches(t *testing.T) {
	out, err := NewFormatter().Format(sampleResults(), formatters.Options{NoColor: true, Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, out, "perfect-detection")
	assert.Contains(t, out, "mit_notice.RULE")
	assert.Contains(t, out, match.MatcherHash)
}

func TestFormatShowsSuppressed(t *testing.T) {
	results := sampleResults()
	results[0].Suppressed = []suppressions.SuppressedDetection{
		{
			Detection: &detection.LicenseDetection{LicenseExpression: "gpl-2.0"},
			Reason:    "vendored",
			RuleID:    "SUP-00000001",
		},
	}

	out, err := NewFormatter().Format(results, formatters.Options{NoColor: true, ShowSuppressed: true})
	require.NoError(t, err)
	assert.Contains(t, out, "gpl-2.0")
	assert.Contains(t, out, "vendored")

	quiet, err := NewFormatter().Format(results, formatters.Options{NoColor: true})
	require.NoError(t, err)
	assert.NotContains(t, quiet, "gpl-2.0")
}

func TestFormatErrorLine(t *testing.T) {
	results := []core.FileDetections{{Path: "broken.pdf", Error: "invalid PDF"}}
	out, err := NewFormatter().Format(results, formatters.Options{NoColor: true})
	require.NoError(t, err)
	assert.Contains(t, out, "broken.pdf")
	assert.Contains(t, out, "invalid PDF")
	assert.Contains(t, out, "1 errors")
}

func TestRegisteredInDefaultRegistry(t *testing.T) {
	_, ok := formatters.Get("text")
	assert.True(t, ok)
}
