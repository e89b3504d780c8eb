// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"lichen-scan/internal/index"
	"lichen-scan/internal/query"
)

// HashMatch matches the run's entire token sequence against whole rules by
// SHA1 digest. It yields at most one match, always at 100% coverage.
func HashMatch(idx *index.RuleIndex, run *query.Run) []*LicenseMatch {
	tokens := run.Tokens()
	if len(tokens) == 0 {
		return nil
	}

	rid, ok := idx.RidByHash[index.ComputeHash(tokens)]
	if !ok {
		return nil
	}
	rule := idx.Rule(rid)

	hiLen := 0
	for _, tid := range tokens {
		if int(tid) < idx.LenLegalese {
			hiLen++
		}
	}

	m := &LicenseMatch{
		RID:                   rid,
		Rule:                  rule,
		LicenseExpression:     rule.LicenseExpression,
		LicenseExpressionSPDX: rule.LicenseExpression,
		Matcher:               MatcherHash,
		MatchedLength:         len(tokens),
		MatchCoverage:         100,
		Score:                 computeScore(100, rule.Relevance),
		RuleRelevance:         rule.Relevance,
		StartToken:            run.Start,
		EndToken:              run.End + 1,
		HiLen:                 hiLen,
		StartLine:             run.Query.Line(run.Start),
		EndLine:               run.Query.Line(run.End),
		ReferencedFilenames:   rule.ReferencedFilenames,
	}
	return []*LicenseMatch{m}
}
