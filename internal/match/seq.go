// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"math"
	"sort"

	"lichen-scan/internal/index"
	"lichen-scan/internal/query"
	"lichen-scan/internal/span"
)

const (
	// TopCandidatesNearDuplicate bounds the candidate list for the
	// near-duplicate pass, which demands high resemblance.
	TopCandidatesNearDuplicate = 10

	// TopCandidatesSeq bounds the per-run candidate list for regular
	// sequence matching.
	TopCandidatesSeq = 70

	highResemblance = 0.8

	// minSeqCoverage filters sequence matches covering less than half of
	// their rule.
	minSeqCoverage = 50.0
)

// scoresVector ranks a candidate rule by multiset similarity with the run.
type scoresVector struct {
	containment      float64
	resemblance      float64
	matchedLength    float64
	highlyResemblant bool
}

func (v scoresVector) less(o scoresVector) bool {
	if v.containment != o.containment {
		return v.containment < o.containment
	}
	if v.resemblance != o.resemblance {
		return v.resemblance < o.resemblance
	}
	if v.matchedLength != o.matchedLength {
		return v.matchedLength < o.matchedLength
	}
	return !v.highlyResemblant && o.highlyResemblant
}

type candidate struct {
	rid  int
	full scoresVector
	// rounded coarsens the vector so near-equal candidates group together
	// when ranked.
	rounded scoresVector
}

// compareTokenSets computes containment and resemblance between the run's
// matchable tokens and one rule. Returns ok=false when the overlap carries
// no legalese token at all.
func compareTokenSets(qset index.TokenSet, qmset index.TokenMultiset,
	rset index.TokenSet, rmset index.TokenMultiset, lenLegalese int) (full, rounded scoresVector, ok bool) {

	intersection := index.IntersectSets(qset, rset)
	if len(intersection) == 0 {
		return full, rounded, false
	}
	if len(index.HighSetSubset(intersection, lenLegalese)) == 0 {
		return full, rounded, false
	}

	matched := 0
	for tid := range intersection {
		qcount := qmset[tid]
		rcount := rmset[tid]
		if qcount < rcount {
			matched += qcount
		} else {
			matched += rcount
		}
	}
	queryLen := index.MsetCounter(qmset)
	ruleLen := index.MsetCounter(rmset)
	if matched == 0 || ruleLen == 0 {
		return full, rounded, false
	}

	unionLen := queryLen + ruleLen - matched
	resemblance := float64(matched) / float64(unionLen)
	containment := float64(matched) / float64(ruleLen)
	amplified := resemblance * resemblance

	full = scoresVector{
		containment:      containment,
		resemblance:      amplified,
		matchedLength:    float64(matched),
		highlyResemblant: resemblance >= highResemblance,
	}
	rounded = scoresVector{
		containment:      math.Round(containment*10) / 10,
		resemblance:      math.Round(amplified*10) / 10,
		matchedLength:    float64(matched) / 20,
		highlyResemblant: full.highlyResemblant,
	}
	return full, rounded, true
}

// selectCandidates ranks the approx-matchable rules against the run's
// still-matchable tokens and keeps the topN. With requireHigh set, only
// highly resemblant candidates qualify.
func selectCandidates(idx *index.RuleIndex, run *query.Run, topN int, requireHigh bool) []candidate {
	positions := run.MatchablePositions()
	if len(positions) == 0 {
		return nil
	}
	tokens := make([]uint16, len(positions))
	for i, pos := range positions {
		tokens[i] = run.Query.Tokens[pos]
	}
	qset, qmset := index.BuildSetAndMset(tokens)

	var candidates []candidate
	for rid := range idx.ApproxMatchableRids {
		rset := idx.SetsByRid[rid]
		rmset := idx.MsetsByRid[rid]
		full, rounded, ok := compareTokenSets(qset, qmset, rset, rmset, idx.LenLegalese)
		if !ok {
			continue
		}
		if requireHigh && !full.highlyResemblant {
			continue
		}
		candidates = append(candidates, candidate{rid: rid, full: full, rounded: rounded})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.full != b.full {
			return b.full.less(a.full)
		}
		return a.rid < b.rid
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// alignmentBlock is a maximal run of equal tokens between query and rule.
type alignmentBlock struct {
	qstart int
	rstart int
	length int
}

// alignSequences finds ordered, non-crossing blocks of equal tokens
// between the run's still-matchable positions and the rule. Single-token
// blocks are kept only when the token is legalese.
func alignSequences(q *query.Query, positions []int, ruleTokens []uint16, lenLegalese int) []alignmentBlock {
	var blocks []alignmentBlock
	rNext := 0

	i := 0
	for i < len(positions) {
		qpos := positions[i]
		qtoken := q.Tokens[qpos]

		rstart := -1
		for r := rNext; r < len(ruleTokens); r++ {
			if ruleTokens[r] == qtoken {
				rstart = r
				break
			}
		}
		if rstart == -1 {
			i++
			continue
		}

		// Extend through contiguous query positions only, so a block maps
		// one query range to one rule range.
		length := 1
		for i+length < len(positions) &&
			positions[i+length] == qpos+length &&
			rstart+length < len(ruleTokens) &&
			q.Tokens[positions[i+length]] == ruleTokens[rstart+length] {
			length++
		}

		if length > 1 || int(qtoken) < lenLegalese {
			blocks = append(blocks, alignmentBlock{qstart: qpos, rstart: rstart, length: length})
			rNext = rstart + length
		}
		i += length
	}
	return blocks
}

// SeqMatch runs approximate sequence matching over the run. Candidates are
// ranked by multiset similarity, then aligned token-by-token; each accepted
// candidate yields one possibly non-contiguous match carrying its exact
// position sets.
func SeqMatch(idx *index.RuleIndex, run *query.Run, topN int, requireHigh bool) []*LicenseMatch {
	q := run.Query
	var matches []*LicenseMatch

	for _, cand := range selectCandidates(idx, run, topN, requireHigh) {
		ruleTokens := idx.TidsByRid[cand.rid]
		rule := idx.Rule(cand.rid)

		positions := run.MatchablePositions()
		if len(positions) == 0 {
			break
		}
		blocks := alignSequences(q, positions, ruleTokens, idx.LenLegalese)
		if len(blocks) == 0 {
			continue
		}

		var qPositions, rPositions []int
		hiLen := 0
		for _, b := range blocks {
			for k := 0; k < b.length; k++ {
				qPositions = append(qPositions, b.qstart+k)
				rPositions = append(rPositions, b.rstart+k)
				if int(q.Tokens[b.qstart+k]) < idx.LenLegalese {
					hiLen++
				}
			}
		}

		matchedLength := len(qPositions)
		coverage := float64(matchedLength) / float64(rule.Length()) * 100
		if coverage < minSeqCoverage {
			continue
		}

		qspan := span.FromPositions(qPositions)
		startToken := qPositions[0]
		endToken := qPositions[len(qPositions)-1] + 1

		matches = append(matches, &LicenseMatch{
			RID:                   cand.rid,
			Rule:                  rule,
			LicenseExpression:     rule.LicenseExpression,
			LicenseExpressionSPDX: rule.LicenseExpression,
			Matcher:               MatcherSeq,
			MatchedLength:         matchedLength,
			MatchCoverage:         coverage,
			Score:                 computeScore(coverage, rule.Relevance),
			RuleRelevance:         rule.Relevance,
			StartToken:            startToken,
			EndToken:              endToken,
			QSpan:                 qspan,
			ISpan:                 span.FromPositions(rPositions),
			HiLen:                 hiLen,
			StartLine:             q.Line(startToken),
			EndLine:               q.Line(endToken - 1),
			ReferencedFilenames:   rule.ReferencedFilenames,
		})
	}

	SortMatches(matches)
	return matches
}
