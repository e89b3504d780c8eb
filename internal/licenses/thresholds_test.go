// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package licenses

import "testing"

func TestComputeThresholdsOccurrences(t *testing.T) {
	tests := []struct {
		name         string
		coverage     int
		length       int
		highLength   int
		wantCoverage int
		wantMin      int
		wantMinHigh  int
	}{
		{"explicit full coverage", 100, 50, 20, 100, 50, 20},
		{"under 3 tokens", 0, 2, 1, 100, 2, 1},
		{"under 10 tokens", 0, 8, 3, 80, 8, 3},
		{"under 30 tokens", 0, 25, 10, 50, 12, 3},
		{"under 200 tokens", 0, 100, 40, 0, 4, 3},
		{"200 and above", 0, 500, 200, 0, 50, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coverage, minLen, minHigh := ComputeThresholdsOccurrences(tt.coverage, tt.length, tt.highLength)
			if coverage != tt.wantCoverage || minLen != tt.wantMin || minHigh != tt.wantMinHigh {
				t.Errorf("got (%d,%d,%d), want (%d,%d,%d)",
					coverage, minLen, minHigh, tt.wantCoverage, tt.wantMin, tt.wantMinHigh)
			}
		})
	}
}

func TestComputeThresholdsUnique(t *testing.T) {
	tests := []struct {
		name        string
		coverage    int
		length      int
		unique      int
		highUnique  int
		wantMin     int
		wantMinHigh int
	}{
		{"explicit full coverage", 100, 50, 30, 15, 30, 15},
		{"over 200", 0, 500, 300, 150, 50, 15},
		{"under 5", 0, 3, 2, 1, 2, 1},
		{"under 10", 0, 8, 5, 3, 4, 3},
		{"under 20", 0, 15, 10, 5, 5, 5},
		{"20 to 200", 0, 100, 40, 20, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minLen, minHigh := ComputeThresholdsUnique(tt.coverage, tt.length, tt.unique, tt.highUnique)
			if minLen != tt.wantMin || minHigh != tt.wantMinHigh {
				t.Errorf("got (%d,%d), want (%d,%d)", minLen, minHigh, tt.wantMin, tt.wantMinHigh)
			}
		})
	}
}

func TestLegalese(t *testing.T) {
	if id, ok := LegaleseToken("license"); !ok || id != 0 {
		t.Errorf("license should map to id 0, got %d/%v", id, ok)
	}
	if id, ok := LegaleseToken("licence"); !ok || id != 0 {
		t.Errorf("licence should share id 0 with license, got %d/%v", id, ok)
	}
	if _, ok := LegaleseToken("widget"); ok {
		t.Error("widget should not be legalese")
	}
	if !IsLegaleseWord("copyright") || IsLegaleseWord("hello") {
		t.Error("IsLegaleseWord misclassified")
	}
	if LegaleseCount() < 50 {
		t.Errorf("legalese list unexpectedly small: %d", LegaleseCount())
	}
}
