// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichen-scan/internal/suppressions"
)

const mitNotice = "Permission is hereby granted free of charge to any person obtaining " +
	"a copy of this software to deal in the software without restriction"

func writeRulesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rule := "---\nlicense_expression: mit\nis_license_notice: yes\n---\n" + mitNotice
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mit_notice.RULE"), []byte(rule), 0o600))
	lic := "---\nkey: mit\nname: MIT License\nspdx_license_key: MIT\n---\n" + mitNotice
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mit.LICENSE"), []byte(lic), 0o600))
	return dir
}

func newTestScanner(t *testing.T, sm *suppressions.Manager) *Scanner {
	t.Helper()
	det, err := BuildDetector(writeRulesDir(t), "")
	require.NoError(t, err)
	return NewScanner(det, nil, sm, nil, 0)
}

func TestBuildDetectorEmptyDir(t *testing.T) {
	_, err := BuildDetector(t.TempDir(), "")
	assert.Error(t, err)
}

func TestScanFileDetectsLicense(t *testing.T) {
	s := newTestScanner(t, nil)

	path := filepath.Join(t.TempDir(), "NOTICE.txt")
	require.NoError(t, os.WriteFile(path, []byte(mitNotice+"\n"), 0o600))

	result := s.ScanFile(path)
	assert.Empty(t, result.Error)
	require.NotEmpty(t, result.Detections)
	assert.Equal(t, "mit", result.Detections[0].LicenseExpression)
	assert.Equal(t, "MIT", result.Detections[0].LicenseExpressionSPDX)
	require.NotNil(t, result.Detections[0].FileRegion)
	assert.Equal(t, path, result.Detections[0].FileRegion.Path)
}

func TestScanFileMissingFile(t *testing.T) {
	s := newTestScanner(t, nil)

	result := s.ScanFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Detections)
}

func TestScanFileNoLicense(t *testing.T) {
	s := newTestScanner(t, nil)

	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o600))

	result := s.ScanFile(path)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.Detections)
}

func TestScanFileAppliesSuppressions(t *testing.T) {
	smPath := filepath.Join(t.TempDir(), "suppressions.yaml")
	sm := suppressions.NewManager(smPath)
	require.NoError(t, sm.Add("*", "mit", "known dependency", "tester", nil))

	s := newTestScanner(t, sm)

	path := filepath.Join(t.TempDir(), "NOTICE.txt")
	require.NoError(t, os.WriteFile(path, []byte(mitNotice+"\n"), 0o600))

	result := s.ScanFile(path)
	assert.Empty(t, result.Detections)
	require.NotEmpty(t, result.Suppressed)
	assert.Equal(t, "known dependency", result.Suppressed[0].Reason)
}

func TestScanText(t *testing.T) {
	s := newTestScanner(t, nil)

	detections := s.ScanText(mitNotice)
	require.NotEmpty(t, detections)
	assert.Equal(t, "mit", detections[0].LicenseExpression)
}
