// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"lichen-scan/internal/index"
	"lichen-scan/internal/licenses"
	"lichen-scan/internal/query"
)

const (
	// minNgramMatches is the minimum license-like ngram hits a region needs
	// before it counts as an undetected license.
	minNgramMatches = 3

	// minRegionLength is the smallest region, in tokens, worth scanning.
	minRegionLength = 5

	// minUnknownRegionLength is the smallest region that can become an
	// unknown match.
	minUnknownRegionLength = index.UnknownNgramLength * 4
)

// unknownRule is the synthetic rule behind every unknown match.
var unknownRule = &licenses.Rule{
	Identifier:        "unknown",
	LicenseExpression: "unknown",
	Relevance:         50,
}

// UnknownMatch flags regions not covered by any known match that still
// carry a high density of license-like ngrams. It always runs last and
// never consumes query positions.
func UnknownMatch(idx *index.RuleIndex, q *query.Query, knownMatches []*LicenseMatch) []*LicenseMatch {
	if len(q.Tokens) == 0 || idx.UnknownAutomaton == nil {
		return nil
	}

	covered := coveredPositionsByLine(q, knownMatches)

	var matches []*LicenseMatch
	for _, region := range unmatchedRegions(len(q.Tokens), covered) {
		start, end := region[0], region[1]
		length := end - start
		if length < minRegionLength {
			continue
		}

		ngrams := countRegionNgrams(idx, q.Tokens[start:end])
		if ngrams < minNgramMatches {
			continue
		}
		if length < minUnknownRegionLength {
			continue
		}

		hiLen := 0
		for pos := start; pos < end; pos++ {
			if q.IsHighToken(pos) {
				hiLen++
			}
		}

		score := float64(ngrams) / float64(length) * 100
		if score > 100 {
			score = 100
		}

		matches = append(matches, &LicenseMatch{
			RID:                   -1,
			Rule:                  unknownRule,
			LicenseExpression:     unknownRule.LicenseExpression,
			LicenseExpressionSPDX: unknownRule.LicenseExpression,
			Matcher:               MatcherUnknown,
			MatchedLength:         length,
			MatchCoverage:         100,
			Score:                 score,
			RuleRelevance:         unknownRule.Relevance,
			StartToken:            start,
			EndToken:              end,
			HiLen:                 hiLen,
			StartLine:             q.Line(start),
			EndLine:               q.Line(end - 1),
		})
	}
	return matches
}

// coveredPositionsByLine marks every position on a line touched by a known
// match, so an unknown region never overlaps a known finding's lines.
func coveredPositionsByLine(q *query.Query, knownMatches []*LicenseMatch) map[int]struct{} {
	coveredLines := make(map[int]struct{})
	for _, m := range knownMatches {
		for line := m.StartLine; line <= m.EndLine; line++ {
			coveredLines[line] = struct{}{}
		}
	}
	covered := make(map[int]struct{})
	for pos, line := range q.LineByPos {
		if _, ok := coveredLines[line]; ok {
			covered[pos] = struct{}{}
		}
	}
	return covered
}

func unmatchedRegions(queryLen int, covered map[int]struct{}) [][2]int {
	var regions [][2]int
	start := -1
	for pos := 0; pos < queryLen; pos++ {
		if _, ok := covered[pos]; !ok {
			if start == -1 {
				start = pos
			}
			continue
		}
		if start != -1 {
			regions = append(regions, [2]int{start, pos})
			start = -1
		}
	}
	if start != -1 {
		regions = append(regions, [2]int{start, queryLen})
	}
	return regions
}

func countRegionNgrams(idx *index.RuleIndex, tokens []uint16) int {
	return len(idx.UnknownAutomaton.Match(index.TokensToBytes(tokens)))
}
