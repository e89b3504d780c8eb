// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lichen-scan/internal/licenses"
	"lichen-scan/internal/match"
)

func testMatch(expr, matcher string, startLine, endLine int) *match.LicenseMatch {
	return &match.LicenseMatch{
		Rule: &licenses.Rule{
			Identifier:        expr + ".RULE",
			LicenseExpression: expr,
			Relevance:         100,
		},
		LicenseExpression:     expr,
		LicenseExpressionSPDX: expr,
		Matcher:               matcher,
		Score:                 100,
		MatchedLength:         20,
		MatchCoverage:         100,
		RuleRelevance:         100,
		StartLine:             startLine,
		EndLine:               endLine,
		StartToken:            startLine * 100,
		EndToken:              startLine*100 + 20,
		MatchedText:           expr + " notice",
	}
}

func TestGroupMatchesByRegionProximity(t *testing.T) {
	near1 := testMatch("mit", match.MatcherAho, 1, 3)
	near2 := testMatch("apache-2.0", match.MatcherAho, 5, 7)
	far := testMatch("gpl-2.0", match.MatcherAho, 40, 42)

	groups := GroupMatchesByRegion([]*match.LicenseMatch{near1, near2, far})
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Matches, 2, "line gap 2 groups together")
	assert.Len(t, groups[1].Matches, 1)
	assert.Equal(t, 1, groups[0].StartLine)
	assert.Equal(t, 7, groups[0].EndLine)
}

func TestGroupMatchesTokenProximity(t *testing.T) {
	// Far apart in lines but adjacent in token space.
	a := testMatch("mit", match.MatcherAho, 1, 1)
	b := testMatch("apache-2.0", match.MatcherAho, 20, 20)
	a.StartToken, a.EndToken = 0, 20
	b.StartToken, b.EndToken = 25, 45

	groups := GroupMatchesByRegion([]*match.LicenseMatch{a, b})
	require.Len(t, groups, 1, "token gap 5 groups despite the line gap")
}

func TestGroupMatchesIntroPullsNextMatch(t *testing.T) {
	intro := testMatch("unknown", match.MatcherAho, 1, 1)
	intro.Rule.IsLicenseIntro = true
	main := testMatch("mit", match.MatcherAho, 30, 35)

	groups := GroupMatchesByRegion([]*match.LicenseMatch{intro, main})
	require.Len(t, groups, 1, "an intro always attaches to what follows")
	assert.Len(t, groups[0].Matches, 2)
}

func TestGroupMatchesClueStandsAlone(t *testing.T) {
	main := testMatch("mit", match.MatcherAho, 1, 3)
	clue := testMatch("gpl-2.0", match.MatcherAho, 4, 4)
	clue.Rule.IsLicenseClue = true

	groups := GroupMatchesByRegion([]*match.LicenseMatch{main, clue})
	require.Len(t, groups, 2)
	assert.Len(t, groups[1].Matches, 1)
}

func TestAnalyzeDetectionPerfect(t *testing.T) {
	matches := []*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}
	assert.Equal(t, LogPerfectDetection, AnalyzeDetection(matches, false))
}

func TestAnalyzeDetectionImperfectCoverage(t *testing.T) {
	m := testMatch("mit", match.MatcherSeq, 1, 5)
	m.MatchCoverage = 85
	m.Score = 85
	assert.Equal(t, LogImperfectCoverage, AnalyzeDetection([]*match.LicenseMatch{m}, false))
}

func TestAnalyzeDetectionLicenseClues(t *testing.T) {
	m := testMatch("mit", match.MatcherSeq, 1, 5)
	m.MatchCoverage = 40
	m.Score = 40
	assert.Equal(t, LogLicenseClues, AnalyzeDetection([]*match.LicenseMatch{m}, false))
}

func TestAnalyzeDetectionUnknown(t *testing.T) {
	m := testMatch("unknown", match.MatcherUnknown, 1, 5)
	m.MatchCoverage = 100
	assert.Equal(t, LogUnknownMatch, AnalyzeDetection([]*match.LicenseMatch{m}, false))
}

func TestAnalyzeDetectionFalsePositive(t *testing.T) {
	m := testMatch("gpl-2.0", match.MatcherAho, 1, 1)
	m.Rule.Identifier = "gpl_bare.RULE"
	m.RuleRelevance = 50
	m.Rule.Relevance = 50
	assert.Equal(t, LogFalsePositive, AnalyzeDetection([]*match.LicenseMatch{m}, false))
}

func TestAnalyzeDetectionIntroFollowedByMatch(t *testing.T) {
	intro := testMatch("unknown", match.MatcherAho, 1, 1)
	intro.Rule.IsLicenseIntro = true
	main := testMatch("mit", match.MatcherHash, 2, 6)

	got := AnalyzeDetection([]*match.LicenseMatch{intro, main}, false)
	assert.Equal(t, LogUnknownIntroFollowedByMatch, got)
}

func TestAnalyzeDetectionReferenceToLocalFile(t *testing.T) {
	m := testMatch("mit", match.MatcherAho, 1, 1)
	m.ReferencedFilenames = []string{"LICENSE"}
	assert.Equal(t, LogUnknownReferenceToLocalFile,
		AnalyzeDetection([]*match.LicenseMatch{m}, false))
}

func TestScoreWeightedByLength(t *testing.T) {
	long := testMatch("mit", match.MatcherAho, 1, 5)
	long.MatchedLength = 90
	long.Score = 100
	short := testMatch("mit", match.MatcherSeq, 6, 7)
	short.MatchedLength = 10
	short.Score = 50

	got := Score([]*match.LicenseMatch{long, short})
	assert.InDelta(t, 95.0, got, 0.01)
}

func TestScoreSingleMatchCapped(t *testing.T) {
	m := testMatch("mit", match.MatcherHash, 1, 5)
	m.Score = 120
	assert.Equal(t, 100.0, Score([]*match.LicenseMatch{m}))
}

func TestCombinedExpressionDeduplicates(t *testing.T) {
	matches := []*match.LicenseMatch{
		testMatch("mit", match.MatcherHash, 1, 5),
		testMatch("mit", match.MatcherAho, 10, 12),
		testMatch("apache-2.0", match.MatcherAho, 20, 22),
	}
	expr, err := CombinedExpression(matches)
	require.NoError(t, err)
	assert.Equal(t, "mit AND apache-2.0", expr)
}

func TestFromGroupDropsIntro(t *testing.T) {
	intro := testMatch("unknown", match.MatcherAho, 1, 1)
	intro.Rule.IsLicenseIntro = true
	main := testMatch("mit", match.MatcherHash, 2, 6)

	d := FromGroup(newGroup([]*match.LicenseMatch{intro, main}))
	assert.Equal(t, "mit", d.LicenseExpression, "intro never pollutes the expression")
	assert.Contains(t, d.DetectionLog, LogUnknownIntroFollowedByMatch)
	assert.Len(t, d.Matches, 1)
	require.NotNil(t, d.FileRegion)
	assert.Equal(t, 1, d.FileRegion.StartLine)
	assert.Equal(t, 6, d.FileRegion.EndLine)
}

func TestIdentifierStability(t *testing.T) {
	a := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))
	b := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))
	require.NotEmpty(t, a.Identifier)
	assert.Equal(t, a.Identifier, b.Identifier, "identical content yields identical identifiers")
	assert.Contains(t, a.Identifier, "mit-")
}

func TestIdentifierDistinguishesContent(t *testing.T) {
	a := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))

	different := testMatch("mit", match.MatcherHash, 1, 5)
	different.MatchedText = "a different notice body"
	b := FromGroup(newGroup([]*match.LicenseMatch{different}))

	assert.NotEqual(t, a.Identifier, b.Identifier,
		"same expression, different content keeps separate identifiers")
}

func TestRemoveDuplicates(t *testing.T) {
	a := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))
	dup := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))

	distinct := testMatch("mit", match.MatcherHash, 40, 45)
	distinct.MatchedText = "another occurrence"
	c := FromGroup(newGroup([]*match.LicenseMatch{distinct}))

	out := RemoveDuplicates([]*LicenseDetection{a, dup, c})
	assert.Len(t, out, 2, "duplicates collapse, distinct locations survive")
}

func TestClassifyDetection(t *testing.T) {
	good := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))
	assert.True(t, ClassifyDetection(good, 90))

	weak := testMatch("mit", match.MatcherSeq, 1, 5)
	weak.MatchCoverage = 40
	weak.Score = 40
	low := FromGroup(newGroup([]*match.LicenseMatch{weak}))
	assert.False(t, ClassifyDetection(low, 90))
}

func TestApplyPreferencesKeepsHigherScore(t *testing.T) {
	strong := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))
	weakMatch := testMatch("mit", match.MatcherSeq, 10, 15)
	weakMatch.Score = 60
	weakMatch.MatchCoverage = 60
	weak := FromGroup(newGroup([]*match.LicenseMatch{weakMatch}))

	out := ApplyPreferences([]*LicenseDetection{weak, strong})
	require.Len(t, out, 1)
	assert.Equal(t, match.MatcherHash, out[0].Matches[0].Matcher)
}

func TestPostProcessOrdersByLine(t *testing.T) {
	late := FromGroup(newGroup([]*match.LicenseMatch{testMatch("apache-2.0", match.MatcherHash, 50, 55)}))
	early := FromGroup(newGroup([]*match.LicenseMatch{testMatch("mit", match.MatcherHash, 1, 5)}))

	out := PostProcess([]*LicenseDetection{late, early}, 90)
	require.Len(t, out, 2)
	assert.Equal(t, "mit", out[0].LicenseExpression)
	assert.Equal(t, "apache-2.0", out[1].LicenseExpression)
}
