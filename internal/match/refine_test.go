// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichen-scan/internal/licenses"
	"lichen-scan/internal/query"
	"lichen-scan/internal/span"
)

func seqFragment(rule *licenses.Rule, rid, qstart, qend, istart, iend, hilen int) *LicenseMatch {
	length := qend - qstart
	coverage := float64(length) / float64(rule.Length()) * 100
	return &LicenseMatch{
		RID:               rid,
		Rule:              rule,
		LicenseExpression: rule.LicenseExpression,
		Matcher:           MatcherSeq,
		MatchedLength:     length,
		MatchCoverage:     coverage,
		Score:             computeScore(coverage, rule.Relevance),
		RuleRelevance:     rule.Relevance,
		StartToken:        qstart,
		EndToken:          qend,
		QSpan:             span.FromRange(qstart, qend),
		ISpan:             span.FromRange(istart, iend),
		HiLen:             hilen,
		StartLine:         1,
		EndLine:           1,
	}
}

func TestRefineMergesAdjacentFragments(t *testing.T) {
	idx := buildTestIndex(t, newTestRule("mit_text.RULE", "mit", permissionText))
	rule := idx.Rule(0)
	q := query.New(permissionText, idx)

	a := seqFragment(rule, 0, 0, 10, 0, 10, 3)
	b := seqFragment(rule, 0, 10, 20, 10, 20, 0)

	refined := Refine(idx, []*LicenseMatch{a, b}, q)
	require.Len(t, refined, 1)

	m := refined[0]
	assert.Equal(t, 0, m.StartToken)
	assert.Equal(t, 20, m.EndToken)
	assert.Equal(t, 20, m.MatchedLength)
	assert.InDelta(t, float64(20)/float64(rule.Length())*100, m.MatchCoverage, 0.01)
	assert.Equal(t, 3, m.HiLen, "legalese recounted over the merged span")
}

func TestRefineIdempotent(t *testing.T) {
	idx := buildTestIndex(t, newTestRule("mit_text.RULE", "mit", permissionText))
	rule := idx.Rule(0)
	q := query.New(permissionText, idx)

	a := seqFragment(rule, 0, 0, 10, 0, 10, 3)
	b := seqFragment(rule, 0, 10, 20, 10, 20, 0)

	once := Refine(idx, []*LicenseMatch{a, b}, q)
	twice := Refine(idx, once, q)

	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i].StartToken, twice[i].StartToken)
		assert.Equal(t, once[i].EndToken, twice[i].EndToken)
		assert.Equal(t, once[i].MatchedLength, twice[i].MatchedLength)
		assert.Equal(t, once[i].Score, twice[i].Score)
	}
}

func TestRefineDropsContainedMatch(t *testing.T) {
	big := newTestRule("mit_text.RULE", "mit", permissionText)
	small := newTestRule("mit_ref.RULE", "mit", "free of charge to any person obtaining")
	idx := buildTestIndex(t, big, small)
	q := query.New(permissionText, idx)

	bigMatch := &LicenseMatch{
		RID: 0, Rule: idx.Rule(0), LicenseExpression: "mit",
		Matcher: MatcherAho, MatchedLength: idx.Rule(0).Length(),
		MatchCoverage: 100, Score: 100, RuleRelevance: 100,
		StartToken: 0, EndToken: idx.Rule(0).Length(),
		HiLen: 3, StartLine: 1, EndLine: 1,
	}
	smallMatch := &LicenseMatch{
		RID: 1, Rule: idx.Rule(1), LicenseExpression: "mit",
		Matcher: MatcherAho, MatchedLength: idx.Rule(1).Length(),
		MatchCoverage: 100, Score: 100, RuleRelevance: 100,
		StartToken: 4, EndToken: 4 + idx.Rule(1).Length(),
		StartLine: 1, EndLine: 1,
	}

	refined := Refine(idx, []*LicenseMatch{bigMatch, smallMatch}, q)
	require.Len(t, refined, 1)
	assert.Equal(t, "mit_text.RULE", refined[0].Rule.Identifier)
}

func TestMergeDedupesIdenticalMatches(t *testing.T) {
	idx := buildTestIndex(t, newTestRule("mit_text.RULE", "mit", permissionText))
	rule := idx.Rule(0)
	q := query.New(permissionText, idx)

	a := seqFragment(rule, 0, 0, 10, 0, 10, 3)
	b := seqFragment(rule, 0, 0, 10, 0, 10, 3)

	merged := mergeMatches([]*LicenseMatch{a, b}, q)
	assert.Len(t, merged, 1)
}

func TestFilterBelowMinimumCoverage(t *testing.T) {
	rule := &licenses.Rule{Identifier: "x.RULE", MinimumCoverage: 80, Relevance: 100}

	seq := &LicenseMatch{Rule: rule, Matcher: MatcherSeq, MatchCoverage: 70}
	exact := &LicenseMatch{Rule: rule, Matcher: MatcherAho, MatchCoverage: 70}

	kept := filterBelowMinimumCoverage([]*LicenseMatch{seq, exact})
	require.Len(t, kept, 1)
	assert.Equal(t, MatcherAho, kept[0].Matcher, "only sequence matches are held to minimum coverage")
}

func TestFilterSpuriousSingleToken(t *testing.T) {
	idx := buildTestIndex(t, newTestRule("mit_text.RULE", "mit", permissionText))
	rule := idx.Rule(0)
	q := query.New(permissionText, idx)

	noisy := seqFragment(rule, 0, 8, 9, 8, 9, 0)
	clean := seqFragment(rule, 0, 15, 16, 15, 16, 0)

	// Surround position 8 with unknown-word noise on both sides.
	q.UnknownsByPos[7] = 5
	q.UnknownsByPos[8] = 5

	kept := filterSpuriousSingleToken([]*LicenseMatch{noisy, clean}, q, spuriousSingleTokenWindow)
	require.Len(t, kept, 1)
	assert.Equal(t, 15, kept[0].StartToken)
}

func TestFilterScatteredOnTooManyLines(t *testing.T) {
	smallRule := &licenses.Rule{Identifier: "small.RULE", IsSmall: true, Relevance: 100}
	tagRule := &licenses.Rule{Identifier: "tag.RULE", IsSmall: true, IsLicenseTag: true, Relevance: 100}

	scattered := &LicenseMatch{Rule: smallRule, Matcher: MatcherSeq,
		MatchedLength: 3, StartLine: 1, EndLine: 10}
	tag := &LicenseMatch{Rule: tagRule, Matcher: MatcherSeq,
		MatchedLength: 3, StartLine: 1, EndLine: 5}

	kept := filterScatteredOnTooManyLines([]*LicenseMatch{scattered, tag})
	require.Len(t, kept, 1)
	assert.Equal(t, "tag.RULE", kept[0].Rule.Identifier, "tag rules get two lines of slack")
}

func TestRestoreNonOverlapping(t *testing.T) {
	idx := buildTestIndex(t, newTestRule("mit_text.RULE", "mit", permissionText))
	rule := idx.Rule(0)
	q := query.New(permissionText, idx)

	kept := seqFragment(rule, 0, 0, 8, 0, 8, 3)
	kept.StartLine, kept.EndLine = 1, 2

	overlapping := seqFragment(rule, 0, 10, 15, 0, 5, 1)
	overlapping.StartLine, overlapping.EndLine = 2, 3

	distant := seqFragment(rule, 0, 30, 35, 0, 5, 1)
	distant.StartLine, distant.EndLine = 5, 6

	restored, stillDiscarded := restoreNonOverlapping(
		[]*LicenseMatch{kept}, []*LicenseMatch{overlapping, distant}, q)

	require.Len(t, restored, 1)
	assert.Equal(t, 30, restored[0].StartToken)
	require.Len(t, stillDiscarded, 1)
	assert.Equal(t, 10, stillDiscarded[0].StartToken)
}

func TestFilterFalsePositiveLicenseLists(t *testing.T) {
	var matches []*LicenseMatch
	for i := 0; i < 16; i++ {
		rule := &licenses.Rule{
			Identifier:         fmt.Sprintf("ref_%d.RULE", i),
			LicenseExpression:  fmt.Sprintf("lic-%d", i),
			IsLicenseReference: true,
			Relevance:          100,
		}
		matches = append(matches, &LicenseMatch{
			Rule:              rule,
			LicenseExpression: rule.LicenseExpression,
			Matcher:           MatcherAho,
			MatchedLength:     2,
			MatchCoverage:     100,
			StartToken:        i * 3,
			EndToken:          i*3 + 2,
		})
	}

	kept, discarded := FilterFalsePositiveLicenseLists(matches)
	assert.Empty(t, kept)
	assert.Len(t, discarded, 16, "a dense run of distinct short references is a license list")
}

func TestFilterFalsePositiveLicenseListsShortRunKept(t *testing.T) {
	var matches []*LicenseMatch
	for i := 0; i < 5; i++ {
		rule := &licenses.Rule{
			Identifier:         fmt.Sprintf("ref_%d.RULE", i),
			LicenseExpression:  fmt.Sprintf("lic-%d", i),
			IsLicenseReference: true,
			Relevance:          100,
		}
		matches = append(matches, &LicenseMatch{
			Rule:              rule,
			LicenseExpression: rule.LicenseExpression,
			Matcher:           MatcherAho,
			MatchedLength:     2,
			MatchCoverage:     100,
			StartToken:        i * 3,
			EndToken:          i*3 + 2,
		})
	}

	kept, discarded := FilterFalsePositiveLicenseLists(matches)
	assert.Len(t, kept, 5)
	assert.Empty(t, discarded)
}

func TestFilterInvalidContainedUnknownMatches(t *testing.T) {
	good := &LicenseMatch{StartToken: 0, EndToken: 30}
	inside := &LicenseMatch{StartToken: 5, EndToken: 25, Matcher: MatcherUnknown}
	outside := &LicenseMatch{StartToken: 40, EndToken: 70, Matcher: MatcherUnknown}

	kept := FilterInvalidContainedUnknownMatches(
		[]*LicenseMatch{inside, outside}, []*LicenseMatch{good})
	require.Len(t, kept, 1)
	assert.Equal(t, 40, kept[0].StartToken)
}
