// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package licenses

const (
	// MinMatchLength is the minimum matched token count for approximate
	// matching of longer rules.
	MinMatchLength = 4

	// MinMatchHighLength is the minimum matched legalese token count.
	MinMatchHighLength = 3

	// SmallRule marks rules shorter than this as "small": matched exactly
	// or at high coverage only.
	SmallRule = 15

	// TinyRule marks rules shorter than this as "tiny".
	TinyRule = 6
)

// ComputeThresholdsOccurrences derives the minimum matched lengths for a
// rule from its total token length and legalese occurrence count. Returns
// the possibly-tightened minimum coverage and the occurrence thresholds.
//
// minimumCoverage of 0 means unspecified.
func ComputeThresholdsOccurrences(minimumCoverage, length, highLength int) (coverage, minMatchedLength, minHighMatchedLength int) {
	if minimumCoverage == 100 {
		return minimumCoverage, length, highLength
	}

	switch {
	case length < 3:
		return 100, length, highLength
	case length < 10:
		return 80, length, highLength
	case length < 30:
		return 50, length / 2, minInt(highLength, MinMatchHighLength)
	case length < 200:
		return minimumCoverage, MinMatchLength, minInt(highLength, MinMatchHighLength)
	default:
		return minimumCoverage, length / 10, highLength / 10
	}
}

// ComputeThresholdsUnique derives the unique-token thresholds from the rule
// length and its unique token counts.
func ComputeThresholdsUnique(minimumCoverage, length, lengthUnique, highLengthUnique int) (minMatchedLengthUnique, minHighMatchedLengthUnique int) {
	if minimumCoverage == 100 {
		return lengthUnique, highLengthUnique
	}

	switch {
	case length > 200:
		return length / 10, highLengthUnique / 10
	case length < 5:
		return lengthUnique, highLengthUnique
	case length < 10:
		if lengthUnique < 2 {
			return lengthUnique, highLengthUnique
		}
		return lengthUnique - 1, highLengthUnique
	case length < 20:
		return highLengthUnique, highLengthUnique
	default:
		return MinMatchLength, minInt(highLengthUnique, MinMatchHighLength)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
