// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"lichen-scan/internal/index"
	"lichen-scan/internal/query"
)

// AhoMatch scans the run's encoded token stream for exact occurrences of
// whole rule texts. A hit is accepted only when it is aligned on a token
// boundary and every covered position is still matchable.
func AhoMatch(idx *index.RuleIndex, run *query.Run) []*LicenseMatch {
	if idx.RulesAutomaton == nil || run.Len() == 0 {
		return nil
	}
	q := run.Query

	var matches []*LicenseMatch
	for _, hit := range idx.RulesAutomaton.Match(index.TokensToBytes(run.Tokens())) {
		if hit.Pos()%2 != 0 {
			// Matched across a token boundary: two adjacent token ids
			// happened to encode the pattern bytes.
			continue
		}
		rid := idx.AutomatonRids[hit.Pattern()]
		rule := idx.Rule(rid)
		qstart := run.Start + int(hit.Pos())/2
		qend := qstart + rule.Length()

		if !q.RangeMatchable(qstart, qend) {
			continue
		}

		hiLen := 0
		for pos := qstart; pos < qend; pos++ {
			if q.IsHighToken(pos) {
				hiLen++
			}
		}

		matches = append(matches, &LicenseMatch{
			RID:                   rid,
			Rule:                  rule,
			LicenseExpression:     rule.LicenseExpression,
			LicenseExpressionSPDX: rule.LicenseExpression,
			Matcher:               MatcherAho,
			MatchedLength:         rule.Length(),
			MatchCoverage:         100,
			Score:                 computeScore(100, rule.Relevance),
			RuleRelevance:         rule.Relevance,
			StartToken:            qstart,
			EndToken:              qend,
			HiLen:                 hiLen,
			StartLine:             q.Line(qstart),
			EndLine:               q.Line(qend - 1),
			ReferencedFilenames:   rule.ReferencedFilenames,
		})
	}
	SortMatches(matches)
	return matches
}
