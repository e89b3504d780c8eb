// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichen-scan/internal/detection"
)

func newTestDetection(expr string) *detection.LicenseDetection {
	return &detection.LicenseDetection{
		LicenseExpression:     expr,
		LicenseExpressionSPDX: expr,
	}
}

func TestNewManagerMissingFile(t *testing.T) {
	m := NewManager("/nonexistent/path.yaml")
	require.NotNil(t, m)
	assert.True(t, m.IsEnabled())
	assert.Empty(t, m.List())
}

func TestAddAndIsSuppressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	m := NewManager(path)

	require.NoError(t, m.Add("vendor/*", "mit", "vendored code", "tester", nil))

	ok, rule := m.IsSuppressed("vendor/lib.go", newTestDetection("mit"))
	require.True(t, ok)
	require.NotNil(t, rule)
	assert.Equal(t, "vendored code", rule.Reason)
	assert.Equal(t, "SUP-00000001", rule.ID)

	ok, _ = m.IsSuppressed("src/lib.go", newTestDetection("mit"))
	assert.False(t, ok, "path outside the glob stays active")

	ok, _ = m.IsSuppressed("vendor/lib.go", newTestDetection("apache-2.0"))
	assert.False(t, ok, "different expression stays active")
}

func TestWildcardExpressionMatchesAny(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	m := NewManager(path)
	require.NoError(t, m.Add("testdata/**", "*", "fixtures", "tester", nil))

	ok, _ := m.IsSuppressed("testdata/licenses/gpl.txt", newTestDetection("gpl-2.0"))
	assert.True(t, ok)
}

func TestApplySplitsActiveAndSuppressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	m := NewManager(path)
	require.NoError(t, m.Add("*", "mit", "known", "tester", nil))

	dets := []*detection.LicenseDetection{
		newTestDetection("mit"),
		newTestDetection("apache-2.0"),
	}
	active, suppressed := m.Apply("main.go", dets)
	require.Len(t, active, 1)
	assert.Equal(t, "apache-2.0", active[0].LicenseExpression)
	require.Len(t, suppressed, 1)
	assert.Equal(t, "known", suppressed[0].Reason)
	assert.Equal(t, "main.go", suppressed[0].Path)
}

func TestExpiredRuleIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	m := NewManager(path)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, m.Add("*", "mit", "expired", "tester", &past))

	ok, _ := m.IsSuppressed("main.go", newTestDetection("mit"))
	assert.False(t, ok)

	assert.Equal(t, 1, m.CleanupExpired())
	assert.Empty(t, m.List())
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	m := NewManager(path)
	require.NoError(t, m.Add("*", "mit", "r", "tester", nil))

	require.NoError(t, m.Remove("SUP-00000001"))
	assert.Empty(t, m.List())
	assert.Error(t, m.Remove("SUP-00000001"))
}

func TestDisabledManagerSuppressesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	m := NewManager(path)
	require.NoError(t, m.Add("*", "mit", "r", "tester", nil))
	m.SetEnabled(false)

	ok, _ := m.IsSuppressed("main.go", newTestDetection("mit"))
	assert.False(t, ok)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	first := NewManager(path)
	require.NoError(t, first.Add("docs/*", "cc-by-4.0", "documentation", "tester", nil))

	second := NewManager(path)
	require.Len(t, second.List(), 1)
	assert.Equal(t, "docs/*", second.List()[0].PathGlob)
}
