// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package match implements the matcher strategies (hash, SPDX tag,
// Aho-Corasick, sequence, unknown) and the refinement pipeline that merges
// and filters their raw results.
package match

import (
	"sort"

	"lichen-scan/internal/licenses"
	"lichen-scan/internal/span"
)

// Matcher strategy names, ordered by cost.
const (
	MatcherHash       = "1-hash"
	MatcherSpdxID     = "1-spdx-id"
	MatcherAho        = "2-aho"
	MatcherSeq        = "3-seq"
	MatcherUnknown    = "5-unknown"
	MatcherUndetected = "5-undetected"
)

// LicenseMatch is one strategy's claim that a query token range matched a
// rule. Token positions use [StartToken, EndToken) query coordinates;
// sequence and merged matches additionally carry their exact position sets.
type LicenseMatch struct {
	RID  int
	Rule *licenses.Rule

	LicenseExpression     string
	LicenseExpressionSPDX string

	Matcher string

	// Score is 0-100: MatchCoverage weighted by the rule relevance.
	Score float64

	// MatchedLength counts matched query tokens, which can be fewer than
	// EndToken-StartToken for non-contiguous matches.
	MatchedLength int

	// MatchCoverage is the percentage of the rule's tokens matched, 0-100.
	MatchCoverage float64

	RuleRelevance int

	StartToken int
	// EndToken is exclusive.
	EndToken int

	// QSpan lists the exact matched query positions; nil means the full
	// [StartToken, EndToken) range matched contiguously. ISpan is the
	// rule-side counterpart, relative to position 0 of the rule.
	QSpan *span.Span
	ISpan *span.Span

	// HiLen counts matched legalese tokens.
	HiLen int

	StartLine int
	EndLine   int

	MatchedText string
	FromFile    string

	ReferencedFilenames []string
}

// QuerySpan returns the match's query positions as a span, materializing
// the contiguous range when no explicit position list is present.
func (m *LicenseMatch) QuerySpan() *span.Span {
	if m.QSpan != nil {
		return m.QSpan
	}
	return span.FromRange(m.StartToken, m.EndToken)
}

// RuleSpan returns the match's rule-side positions.
func (m *LicenseMatch) RuleSpan() *span.Span {
	if m.ISpan != nil {
		return m.ISpan
	}
	return span.FromRange(0, m.MatchedLength)
}

// Len returns the matched token count.
func (m *LicenseMatch) Len() int {
	return m.MatchedLength
}

// QRegionLen returns the width of the query region the match occupies,
// including any gaps.
func (m *LicenseMatch) QRegionLen() int {
	return m.EndToken - m.StartToken
}

// QDensity is the ratio of matched tokens to the occupied query region.
// 1.0 means fully contiguous.
func (m *LicenseMatch) QDensity() float64 {
	region := m.QRegionLen()
	if region <= 0 {
		return 0
	}
	return float64(m.MatchedLength) / float64(region)
}

// QContains reports whether this match's query positions contain all of
// other's.
func (m *LicenseMatch) QContains(other *LicenseMatch) bool {
	return m.QuerySpan().ContainsSpan(other.QuerySpan())
}

// QOverlap returns the number of query positions shared with other.
func (m *LicenseMatch) QOverlap(other *LicenseMatch) int {
	return m.QuerySpan().Overlap(other.QuerySpan())
}

// QDistanceTo returns the token gap between this match and a following
// match; 0 when they touch or overlap.
func (m *LicenseMatch) QDistanceTo(other *LicenseMatch) int {
	if other.StartToken >= m.EndToken {
		return other.StartToken - m.EndToken
	}
	if m.StartToken >= other.EndToken {
		return m.StartToken - other.EndToken
	}
	return 0
}

// LineDistanceTo returns the line gap to a following match; 0 when their
// line ranges touch or overlap.
func (m *LicenseMatch) LineDistanceTo(other *LicenseMatch) int {
	if other.StartLine > m.EndLine {
		return other.StartLine - m.EndLine
	}
	if m.StartLine > other.EndLine {
		return m.StartLine - other.EndLine
	}
	return 0
}

// SameRule reports whether both matches claim the same rule.
func (m *LicenseMatch) SameRule(other *LicenseMatch) bool {
	return m.RID == other.RID
}

// computeScore derives the 0-100 score from coverage and rule relevance.
func computeScore(matchCoverage float64, relevance int) float64 {
	return matchCoverage * float64(relevance) / 100.0
}

// IsSmallMatch reports whether a (sequence) match is too small to trust,
// per the rule's computed minimum thresholds.
func (m *LicenseMatch) IsSmallMatch() bool {
	r := m.Rule
	if r == nil {
		return false
	}
	if m.MatchedLength < r.MinMatchedLength || m.HiLen < r.MinHighMatchedLength {
		return true
	}
	if r.IsSmall && m.MatchCoverage < 80 {
		return true
	}
	return false
}

// SortMatches orders matches by start token, then by longer region, then
// by rule identifier for determinism.
func SortMatches(matches []*LicenseMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.StartToken != b.StartToken {
			return a.StartToken < b.StartToken
		}
		if a.EndToken != b.EndToken {
			return a.EndToken > b.EndToken
		}
		if a.Rule != nil && b.Rule != nil {
			return a.Rule.Identifier < b.Rule.Identifier
		}
		return false
	})
}
