// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"sort"
	"strings"

	"lichen-scan/internal/expression"
	"lichen-scan/internal/index"
	"lichen-scan/internal/query"
	"lichen-scan/internal/span"
)

const (
	overlapSmall      = 0.10
	overlapMedium     = 0.40
	overlapLarge      = 0.70
	overlapExtraLarge = 0.90

	minShortFPListLength        = 15
	minLongFPListLength         = 150
	minUniqueLicenses           = minShortFPListLength / 3
	minUniqueLicensesProportion = 1.0 / 3.0
	maxCandidateLength          = 20
	maxDistanceBetweenCands     = 10
	maxDist                     = 100

	spuriousSingleTokenWindow = 5
)

// matcherOrder ranks strategies by confidence for tie-breaking.
func matcherOrder(matcher string) int {
	switch matcher {
	case MatcherHash:
		return 0
	case MatcherSpdxID:
		return 1
	case MatcherAho:
		return 2
	case MatcherSeq:
		return 3
	default:
		return 5
	}
}

// Refine runs the full ordered refinement pipeline over raw matches from
// all strategies. The pass order matters: merging must precede the
// containment and overlap filters, and the restore steps bring back
// discarded matches that turned out not to conflict with anything kept.
// Running Refine on its own output is a no-op.
func Refine(idx *index.RuleIndex, matches []*LicenseMatch, q *query.Query) []*LicenseMatch {
	if len(matches) == 0 {
		return nil
	}

	merged := mergeMatches(matches, q)
	kept, _ := filterMissingRequiredPhrases(merged, q)
	kept = filterSpuriousMatches(kept)
	kept = filterBelowMinimumCoverage(kept)
	kept = filterSpuriousSingleToken(kept, q, spuriousSingleTokenWindow)
	kept = filterTooShortMatches(kept)
	kept = filterScatteredOnTooManyLines(kept)
	kept = filterSingleWordGibberish(kept, q)

	kept = mergeMatches(kept, q)
	kept, discardedContained := filterContainedMatches(kept)
	kept, discardedOverlapping := filterOverlappingMatches(kept, idx)

	if len(discardedContained) > 0 {
		restored, _ := restoreNonOverlapping(kept, discardedContained, q)
		kept = append(kept, restored...)
	}
	if len(discardedOverlapping) > 0 {
		restored, _ := restoreNonOverlapping(kept, discardedOverlapping, q)
		kept = append(kept, restored...)
	}
	kept, _ = filterContainedMatches(kept)

	kept = filterFalsePositiveRuleMatches(idx, kept)
	kept, _ = FilterFalsePositiveLicenseLists(kept)

	kept = mergeMatches(kept, q)
	updateScores(kept)
	SortMatches(kept)
	return kept
}

// FilterInvalidContainedUnknownMatches drops unknown matches whose token
// region falls inside any good match's region.
func FilterInvalidContainedUnknownMatches(unknown, good []*LicenseMatch) []*LicenseMatch {
	var kept []*LicenseMatch
	for _, u := range unknown {
		contained := false
		for _, g := range good {
			if g.StartToken <= u.StartToken && g.EndToken >= u.EndToken {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, u)
		}
	}
	return kept
}

// combineMatches merges two same-rule matches into one spanning the union
// of their query and rule positions. Lengths, hilen and coverage are
// recomputed from the union, never taken as a max.
func combineMatches(a, b *LicenseMatch, q *query.Query) *LicenseMatch {
	merged := *a

	qspan := a.QuerySpan().Union(b.QuerySpan())
	ispan := a.RuleSpan().Union(b.RuleSpan())
	qPositions := qspan.Positions()

	hiLen := 0
	for _, pos := range qPositions {
		if q.IsHighToken(pos) {
			hiLen++
		}
	}

	merged.StartToken = qspan.Start()
	merged.EndToken = qspan.End()
	merged.MatchedLength = qspan.Len()
	merged.HiLen = hiLen
	merged.QSpan = qspan
	merged.ISpan = ispan
	if a.StartLine < b.StartLine {
		merged.StartLine = a.StartLine
	} else {
		merged.StartLine = b.StartLine
	}
	if a.EndLine > b.EndLine {
		merged.EndLine = a.EndLine
	} else {
		merged.EndLine = b.EndLine
	}
	if b.Score > merged.Score {
		merged.Score = b.Score
	}

	if ruleLen := merged.Rule.Length(); ruleLen > 0 {
		matched := merged.MatchedLength
		if matched > ruleLen {
			matched = ruleLen
		}
		merged.MatchCoverage = float64(matched) / float64(ruleLen) * 100
	}
	return &merged
}

// iDistanceTo returns the rule-side gap between two matches.
func iDistanceTo(a, b *LicenseMatch) int {
	as, ae := a.RuleSpan().Start(), a.RuleSpan().End()
	bs, be := b.RuleSpan().Start(), b.RuleSpan().End()
	if bs >= ae {
		return bs - ae
	}
	if as >= be {
		return as - be
	}
	return 0
}

// surround reports whether a's query bounds enclose b's.
func surround(a, b *LicenseMatch) bool {
	return a.StartToken <= b.StartToken && a.EndToken >= b.EndToken
}

// isAfter reports whether b follows a on both the query and rule sides.
func isAfter(a, b *LicenseMatch) bool {
	return b.StartToken >= a.EndToken && b.RuleSpan().Start() >= a.RuleSpan().End()
}

// mergeMatches merges overlapping and adjacent matches of the same rule.
// Matches of different rules are never merged here.
func mergeMatches(matches []*LicenseMatch, q *query.Query) []*LicenseMatch {
	if len(matches) <= 1 {
		return append([]*LicenseMatch(nil), matches...)
	}

	sorted := append([]*LicenseMatch(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rule.Identifier != b.Rule.Identifier {
			return a.Rule.Identifier < b.Rule.Identifier
		}
		if a.StartToken != b.StartToken {
			return a.StartToken < b.StartToken
		}
		if a.HiLen != b.HiLen {
			return a.HiLen > b.HiLen
		}
		return a.MatchedLength > b.MatchedLength
	})

	var merged []*LicenseMatch
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Rule.Identifier == sorted[start].Rule.Identifier {
			end++
		}
		merged = append(merged, mergeRuleGroup(sorted[start:end], q)...)
		start = end
	}
	return merged
}

func mergeRuleGroup(group []*LicenseMatch, q *query.Query) []*LicenseMatch {
	if len(group) == 1 {
		return []*LicenseMatch{group[0]}
	}

	ruleLen := group[0].Rule.Length()
	maxRuleSideDist := ruleLen / 2
	if maxRuleSideDist < 1 {
		maxRuleSideDist = 1
	}
	if maxRuleSideDist > maxDist {
		maxRuleSideDist = maxDist
	}

	ms := append([]*LicenseMatch(nil), group...)
	i := 0
	for i < len(ms)-1 {
		j := i + 1
		for j < len(ms) {
			current, next := ms[i], ms[j]

			if current.QDistanceTo(next) > maxRuleSideDist || iDistanceTo(current, next) > maxRuleSideDist {
				break
			}

			curQ, nextQ := current.QuerySpan(), next.QuerySpan()
			curI, nextI := current.RuleSpan(), next.RuleSpan()

			if spanEqual(curQ, nextQ) && spanEqual(curI, nextI) {
				ms = removeAt(ms, j)
				continue
			}

			if spanEqual(curI, nextI) && current.QOverlap(next) > 0 {
				if current.MatchedLength >= next.MatchedLength {
					ms = removeAt(ms, j)
					continue
				}
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			if current.QContains(next) {
				ms = removeAt(ms, j)
				continue
			}
			if next.QContains(current) {
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			if surround(current, next) {
				combined := combineMatches(current, next, q)
				if combined.QuerySpan().Len() == combined.RuleSpan().Len() {
					ms[i] = combined
					ms = removeAt(ms, j)
					continue
				}
			}
			if surround(next, current) {
				combined := combineMatches(current, next, q)
				if combined.QuerySpan().Len() == combined.RuleSpan().Len() {
					ms[j] = combined
					ms = removeAt(ms, i)
					if i > 0 {
						i--
					}
					break
				}
			}

			if isAfter(current, next) {
				ms[i] = combineMatches(current, next, q)
				ms = removeAt(ms, j)
				continue
			}

			// Partial overlap advancing in lockstep on both sides.
			if curQ.Start() <= nextQ.Start() && curQ.End() <= nextQ.End() &&
				curI.Start() <= nextI.Start() && curI.End() <= nextI.End() {
				qoverlap := current.QOverlap(next)
				if qoverlap > 0 && qoverlap == curI.Overlap(nextI) {
					ms[i] = combineMatches(current, next, q)
					ms = removeAt(ms, j)
					continue
				}
			}

			j++
		}
		i++
	}
	return ms
}

func spanEqual(a, b *span.Span) bool {
	return a.Len() == b.Len() && a.Overlap(b) == a.Len()
}

func removeAt(ms []*LicenseMatch, i int) []*LicenseMatch {
	return append(ms[:i], ms[i+1:]...)
}

// filterContainedMatches discards matches whose positions are wholly
// contained in another match, or whose expression is subsumed by the
// containing match's expression.
func filterContainedMatches(matches []*LicenseMatch) (kept, discarded []*LicenseMatch) {
	if len(matches) < 2 {
		return append([]*LicenseMatch(nil), matches...), nil
	}

	ms := append([]*LicenseMatch(nil), matches...)
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.StartToken != b.StartToken {
			return a.StartToken < b.StartToken
		}
		if a.HiLen != b.HiLen {
			return a.HiLen > b.HiLen
		}
		if a.MatchedLength != b.MatchedLength {
			return a.MatchedLength > b.MatchedLength
		}
		return matcherOrder(a.Matcher) < matcherOrder(b.Matcher)
	})

	i := 0
	for i < len(ms)-1 {
		j := i + 1
		for j < len(ms) {
			current, next := ms[i], ms[j]

			if next.EndToken > current.EndToken {
				break
			}

			if current.StartToken == next.StartToken && current.EndToken == next.EndToken {
				if current.MatchCoverage >= next.MatchCoverage {
					discarded = append(discarded, next)
					ms = removeAt(ms, j)
					continue
				}
				discarded = append(discarded, current)
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			if current.QContains(next) || licensingContainsMatch(current, next) {
				discarded = append(discarded, next)
				ms = removeAt(ms, j)
				continue
			}
			if next.QContains(current) || licensingContainsMatch(next, current) {
				discarded = append(discarded, current)
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			j++
		}
		i++
	}
	return ms, discarded
}

func licensingContainsMatch(container, contained *LicenseMatch) bool {
	if container.LicenseExpression == "" || contained.LicenseExpression == "" {
		return false
	}
	return expression.ContainsExpressions(container.LicenseExpression, contained.LicenseExpression)
}

// filterOverlappingMatches resolves partially overlapping matches of
// different rules using graduated overlap thresholds: the bigger the
// overlap relative to a match, the weaker the extra evidence needed to
// discard it.
func filterOverlappingMatches(matches []*LicenseMatch, idx *index.RuleIndex) (kept, discarded []*LicenseMatch) {
	if len(matches) < 2 {
		return append([]*LicenseMatch(nil), matches...), nil
	}

	ms := append([]*LicenseMatch(nil), matches...)
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.StartToken != b.StartToken {
			return a.StartToken < b.StartToken
		}
		if a.HiLen != b.HiLen {
			return a.HiLen > b.HiLen
		}
		if a.MatchedLength != b.MatchedLength {
			return a.MatchedLength > b.MatchedLength
		}
		if matcherOrder(a.Matcher) != matcherOrder(b.Matcher) {
			return matcherOrder(a.Matcher) < matcherOrder(b.Matcher)
		}
		return a.Rule.Identifier < b.Rule.Identifier
	})

	i := 0
	for i < len(ms)-1 {
		j := i + 1
		for j < len(ms) {
			current, next := ms[i], ms[j]

			if next.StartToken >= current.EndToken {
				break
			}
			if isFalsePositiveMatch(idx, current) && isFalsePositiveMatch(idx, next) {
				j++
				continue
			}
			overlap := current.QOverlap(next)
			if overlap == 0 || current.MatchedLength == 0 || next.MatchedLength == 0 {
				j++
				continue
			}

			overlapToNext := float64(overlap) / float64(next.MatchedLength)
			overlapToCurrent := float64(overlap) / float64(current.MatchedLength)

			if overlapToNext >= overlapExtraLarge && current.MatchedLength >= next.MatchedLength {
				discarded = append(discarded, next)
				ms = removeAt(ms, j)
				continue
			}
			if overlapToCurrent >= overlapExtraLarge && current.MatchedLength <= next.MatchedLength {
				discarded = append(discarded, current)
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			if overlapToNext >= overlapLarge &&
				current.MatchedLength >= next.MatchedLength && current.HiLen >= next.HiLen {
				discarded = append(discarded, next)
				ms = removeAt(ms, j)
				continue
			}
			if overlapToCurrent >= overlapLarge &&
				current.MatchedLength <= next.MatchedLength && current.HiLen <= next.HiLen {
				discarded = append(discarded, current)
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			if overlapToNext >= overlapMedium || overlapToCurrent >= overlapMedium {
				if licensingContainsMatch(current, next) &&
					current.MatchedLength >= next.MatchedLength && current.HiLen >= next.HiLen {
					discarded = append(discarded, next)
					ms = removeAt(ms, j)
					continue
				}
				if licensingContainsMatch(next, current) &&
					current.MatchedLength <= next.MatchedLength && current.HiLen <= next.HiLen {
					discarded = append(discarded, current)
					ms = removeAt(ms, i)
					if i > 0 {
						i--
					}
					break
				}
			}

			// A 2-token match like "MIT license" bridging the tail of one
			// rule and the head of another is noise.
			if overlapToNext >= overlapMedium &&
				next.MatchedLength == 2 && current.MatchedLength >= next.MatchedLength+2 &&
				current.HiLen >= next.HiLen &&
				current.Rule.EndsWithLicense && next.Rule.StartsWithLicense {
				discarded = append(discarded, next)
				ms = removeAt(ms, j)
				continue
			}

			if overlapToNext >= overlapSmall && surround(current, next) &&
				licensingContainsMatch(current, next) &&
				current.MatchedLength >= next.MatchedLength && current.HiLen >= next.HiLen {
				discarded = append(discarded, next)
				ms = removeAt(ms, j)
				continue
			}
			if overlapToCurrent >= overlapSmall && surround(next, current) &&
				licensingContainsMatch(next, current) &&
				current.MatchedLength <= next.MatchedLength && current.HiLen <= next.HiLen {
				discarded = append(discarded, current)
				ms = removeAt(ms, i)
				if i > 0 {
					i--
				}
				break
			}

			// A match sandwiched between its neighbors with 90%+ of its
			// tokens shared is redundant.
			if i > 0 && ms[i-1].EndToken <= next.StartToken {
				cpo := current.QOverlap(ms[i-1])
				cno := current.QOverlap(next)
				if cpo > 0 && cno > 0 &&
					float64(cpo+cno) >= float64(current.MatchedLength)*0.9 {
					discarded = append(discarded, current)
					ms = removeAt(ms, i)
					i--
					break
				}
			}

			j++
		}
		i++
	}
	return ms, discarded
}

func isFalsePositiveMatch(idx *index.RuleIndex, m *LicenseMatch) bool {
	return m.RID >= 0 && idx.IsFalsePositive(m.RID)
}

// restoreNonOverlapping returns the discarded matches whose line regions
// do not intersect any kept match, merged first so fragments come back
// whole.
func restoreNonOverlapping(kept, discarded []*LicenseMatch, q *query.Query) (restored, stillDiscarded []*LicenseMatch) {
	keptLines := span.New()
	for _, m := range kept {
		keptLines = keptLines.Union(span.FromRange(m.StartLine, m.EndLine+1))
	}

	for _, disc := range mergeMatches(discarded, q) {
		discLines := span.FromRange(disc.StartLine, disc.EndLine+1)
		if !discLines.Intersects(keptLines) {
			restored = append(restored, disc)
		} else {
			stillDiscarded = append(stillDiscarded, disc)
		}
	}
	return restored, stillDiscarded
}

// filterFalsePositiveRuleMatches drops matches to false-positive rules.
func filterFalsePositiveRuleMatches(idx *index.RuleIndex, matches []*LicenseMatch) []*LicenseMatch {
	var kept []*LicenseMatch
	for _, m := range matches {
		if isFalsePositiveMatch(idx, m) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func updateScores(matches []*LicenseMatch) {
	for _, m := range matches {
		m.Score = computeScore(m.MatchCoverage, m.RuleRelevance)
	}
}

// filterSpuriousMatches drops low-density sequence and unknown matches:
// the shorter the match, the denser it must be.
func filterSpuriousMatches(matches []*LicenseMatch) []*LicenseMatch {
	var kept []*LicenseMatch
	for _, m := range matches {
		if m.Matcher != MatcherSeq && m.Matcher != MatcherUnknown {
			kept = append(kept, m)
			continue
		}
		qdens := m.QDensity()
		idens := iDensity(m)
		mlen := m.MatchedLength
		hilen := m.HiLen

		spurious := false
		switch {
		case mlen < 10 && (qdens < 0.1 || idens < 0.1):
			spurious = true
		case mlen < 15 && (qdens < 0.2 || idens < 0.2):
			spurious = true
		case mlen < 20 && hilen < 5 && (qdens < 0.3 || idens < 0.3):
			spurious = true
		case mlen < 30 && hilen < 8 && (qdens < 0.4 || idens < 0.4):
			spurious = true
		case qdens < 0.4 || idens < 0.4:
			spurious = true
		}
		if !spurious {
			kept = append(kept, m)
		}
	}
	return kept
}

func iDensity(m *LicenseMatch) float64 {
	is := m.RuleSpan()
	region := is.End() - is.Start()
	if region <= 0 {
		return 0
	}
	return float64(is.Len()) / float64(region)
}

// filterBelowMinimumCoverage drops sequence matches under their rule's
// minimum coverage.
func filterBelowMinimumCoverage(matches []*LicenseMatch) []*LicenseMatch {
	var kept []*LicenseMatch
	for _, m := range matches {
		if m.Matcher == MatcherSeq && m.Rule != nil && m.Rule.MinimumCoverage > 0 &&
			m.MatchCoverage < float64(m.Rule.MinimumCoverage) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// filterSpuriousSingleToken drops single-token sequence matches surrounded
// on both sides by a crowd of unknown, one-character or digit tokens.
func filterSpuriousSingleToken(matches []*LicenseMatch, q *query.Query, window int) []*LicenseMatch {
	var kept []*LicenseMatch
	for _, m := range matches {
		if m.Matcher != MatcherSeq || m.MatchedLength != 1 {
			kept = append(kept, m)
			continue
		}
		qstart := m.StartToken

		before := q.UnknownsByPos[qstart-1]
		for pos := qstart - window; pos < qstart; pos++ {
			if _, ok := q.ShortsAndDigitsPos[pos]; ok {
				before++
			}
		}
		if before < window {
			kept = append(kept, m)
			continue
		}

		after := q.UnknownsByPos[qstart]
		for pos := qstart + 1; pos <= qstart+window; pos++ {
			if _, ok := q.ShortsAndDigitsPos[pos]; ok {
				after++
			}
		}
		if after < window {
			kept = append(kept, m)
		}
	}
	return kept
}

// filterTooShortMatches drops sequence matches under the rule's computed
// minimum matched lengths.
func filterTooShortMatches(matches []*LicenseMatch) []*LicenseMatch {
	var kept []*LicenseMatch
	for _, m := range matches {
		if m.Matcher == MatcherSeq && m.IsSmallMatch() {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// filterScatteredOnTooManyLines drops small-rule matches spread across
// more lines than they have tokens. Tag rules get two lines of slack.
func filterScatteredOnTooManyLines(matches []*LicenseMatch) []*LicenseMatch {
	if len(matches) == 1 {
		return matches
	}
	var kept []*LicenseMatch
	for _, m := range matches {
		if m.Rule != nil && m.Rule.IsSmall {
			lineSpan := m.EndLine - m.StartLine + 1
			allowed := m.MatchedLength
			if m.Rule.IsLicenseTag {
				allowed += 2
			}
			if lineSpan > allowed {
				continue
			}
		}
		kept = append(kept, m)
	}
	return kept
}

// filterSingleWordGibberish drops, in binary inputs only, matches to
// single-word reference/clue rules whose matched text is garbled relative
// to the rule word.
func filterSingleWordGibberish(matches []*LicenseMatch, q *query.Query) []*LicenseMatch {
	if !q.IsBinary {
		return matches
	}
	var kept []*LicenseMatch
	for _, m := range matches {
		r := m.Rule
		if r != nil && r.LengthUnique == 1 &&
			(r.IsLicenseReference || r.IsLicenseClue) && m.MatchedText != "" {
			maxDiff := 0
			if r.Relevance >= 80 {
				maxDiff = 1
			}
			if !isValidShortMatch(m.MatchedText, r.Text, maxDiff) {
				continue
			}
		}
		kept = append(kept, m)
	}
	return kept
}

// isValidShortMatch decides whether a short single-word match plausibly is
// the rule word rather than binary garbage around it.
func isValidShortMatch(matchedText, ruleText string, maxDiff int) bool {
	matched := strings.TrimSpace(matchedText)
	rule := strings.TrimSpace(ruleText)

	if matched == rule {
		return true
	}

	normMatched := strings.Join(strings.Fields(matched), " ")
	normRule := strings.Join(strings.Fields(rule), " ")
	if normMatched == normRule {
		return true
	}
	if len(normRule) >= 5 {
		return true
	}

	diff := len(normMatched) - len(normRule)
	if diff < 0 {
		diff = -diff
	}
	if diff > 0 && diff != maxDiff {
		return false
	}

	matchedCheck, ruleCheck := matched, rule
	if strings.HasSuffix(rule, "+") {
		matchedCheck = strings.TrimRight(matched, "+")
		ruleCheck = strings.TrimRight(rule, "+")
	}

	if isTitleCase(matchedCheck) {
		return true
	}
	if strings.ToLower(matchedCheck) == matchedCheck || strings.ToUpper(matchedCheck) == matchedCheck {
		return true
	}
	return strings.Contains(matchedCheck, ruleCheck)
}

func isTitleCase(s string) bool {
	if s == "" {
		return false
	}
	first := rune(s[0])
	if first < 'A' || first > 'Z' {
		return false
	}
	for _, r := range s[1:] {
		if r >= 'A' && r <= 'Z' {
			return false
		}
	}
	return true
}

// filterMissingRequiredPhrases discards matches to rules whose marked
// {{...}} phrases are absent, broken up, or polluted by unknown words or
// diverging stopword runs on the query side. Continuous rules must match
// as one uninterrupted range.
func filterMissingRequiredPhrases(matches []*LicenseMatch, q *query.Query) (kept, discarded []*LicenseMatch) {
	for _, m := range matches {
		r := m.Rule
		if r == nil {
			kept = append(kept, m)
			continue
		}
		isContinuous := r.IsContinuous || r.IsRequiredPhrase
		if len(r.RequiredPhraseSpans) == 0 && !isContinuous {
			kept = append(kept, m)
			continue
		}

		if isContinuous {
			if !matchIsContinuous(m, q) {
				discarded = append(discarded, m)
				continue
			}
			if matchHasInnerUnknowns(m, q) || !matchStopwordsAgree(m, q, nil) {
				discarded = append(discarded, m)
				continue
			}
			kept = append(kept, m)
			continue
		}

		qPositions := m.QuerySpan().Positions()
		iPositions := m.RuleSpan().Positions()
		iSet := make(map[int]struct{}, len(iPositions))
		for _, p := range iPositions {
			iSet[p] = struct{}{}
		}

		valid := true
		for _, phrase := range r.RequiredPhraseSpans {
			contained := true
			for pos := phrase.Start(); pos < phrase.End(); pos++ {
				if _, ok := iSet[pos]; !ok {
					contained = false
					break
				}
			}
			if !contained {
				valid = false
				break
			}

			// Collect the query positions of this phrase's rule tokens.
			var qkey []int
			for k := 0; k < len(qPositions) && k < len(iPositions); k++ {
				if iPositions[k] >= phrase.Start() && iPositions[k] < phrase.End() {
					qkey = append(qkey, qPositions[k])
				}
			}
			for k := 1; k < len(qkey); k++ {
				if qkey[k] != qkey[k-1]+1 {
					valid = false
					break
				}
			}
			if !valid {
				break
			}
			for k := 0; k < len(qkey)-1; k++ {
				if q.UnknownsByPos[qkey[k]] > 0 {
					valid = false
					break
				}
			}
			if !valid {
				break
			}
			if !matchStopwordsAgree(m, q, qkey) {
				valid = false
				break
			}
		}

		if valid {
			kept = append(kept, m)
		} else {
			discarded = append(discarded, m)
		}
	}
	return kept, discarded
}

func matchIsContinuous(m *LicenseMatch, q *query.Query) bool {
	if m.MatchedLength != m.QRegionLen() {
		return false
	}
	return true
}

func matchHasInnerUnknowns(m *LicenseMatch, q *query.Query) bool {
	for pos := m.StartToken; pos < m.EndToken-1; pos++ {
		if q.UnknownsByPos[pos] > 0 {
			return true
		}
	}
	return false
}

// matchStopwordsAgree checks that the stopword run after each matched
// query position equals the rule's recorded run at the aligned rule
// position. With qkeyFilter set, only those query positions are checked;
// the last one is exempt since trailing stopwords are unconstrained.
func matchStopwordsAgree(m *LicenseMatch, q *query.Query, qkeyFilter []int) bool {
	qPositions := m.QuerySpan().Positions()
	iPositions := m.RuleSpan().Positions()

	var filter map[int]struct{}
	last := -1
	if qkeyFilter != nil {
		if len(qkeyFilter) == 0 {
			return true
		}
		filter = make(map[int]struct{}, len(qkeyFilter))
		for _, p := range qkeyFilter {
			filter[p] = struct{}{}
		}
		last = qkeyFilter[len(qkeyFilter)-1]
	} else if len(qPositions) > 0 {
		last = qPositions[len(qPositions)-1]
	}

	for k := 0; k < len(qPositions) && k < len(iPositions); k++ {
		qpos, ipos := qPositions[k], iPositions[k]
		if filter != nil {
			if _, ok := filter[qpos]; !ok {
				continue
			}
		}
		if qpos == last {
			continue
		}
		if m.Rule.StopwordsByPos[ipos] != q.StopwordsByPos[qpos] {
			return false
		}
	}
	return true
}

// isCandidateFalsePositive marks short exact tag/reference matches that
// often appear in lists of license names rather than real notices.
func isCandidateFalsePositive(m *LicenseMatch) bool {
	r := m.Rule
	if r == nil {
		return false
	}
	isTagOrRef := r.IsLicenseReference || r.IsLicenseTag || r.IsLicenseIntro || r.IsLicenseClue
	return isTagOrRef &&
		m.Matcher != MatcherSpdxID &&
		m.MatchCoverage >= 100 &&
		m.MatchedLength <= maxCandidateLength
}

func countUniqueLicenses(matches []*LicenseMatch) int {
	seen := make(map[string]struct{})
	for _, m := range matches {
		seen[m.LicenseExpression] = struct{}{}
	}
	return len(seen)
}

func isListOfFalsePositives(matches []*LicenseMatch, minMatches, minUnique int,
	minUniqueProportion, minCandidateProportion float64) bool {
	if len(matches) == 0 {
		return false
	}
	if len(matches) < minMatches {
		return false
	}

	unique := countUniqueLicenses(matches)
	hasEnoughLicenses := float64(unique)/float64(len(matches)) > minUniqueProportion
	if !hasEnoughLicenses {
		hasEnoughLicenses = unique >= minUnique
	}
	if !hasEnoughLicenses {
		return false
	}

	if minCandidateProportion > 0 {
		candidates := 0
		for _, m := range matches {
			if isCandidateFalsePositive(m) {
				candidates++
			}
		}
		if float64(candidates)/float64(len(matches)) <= minCandidateProportion {
			return false
		}
	}
	return true
}

// FilterFalsePositiveLicenseLists discards runs of short consecutive
// tag/reference matches to many distinct licenses, which are almost always
// a list of license names (a chooser, a registry dump) rather than actual
// licensing.
func FilterFalsePositiveLicenseLists(matches []*LicenseMatch) (kept, discarded []*LicenseMatch) {
	if len(matches) < minShortFPListLength {
		return matches, nil
	}

	if len(matches) > minLongFPListLength &&
		isListOfFalsePositives(matches, minLongFPListLength, minLongFPListLength,
			minUniqueLicensesProportion, 0.95) {
		return nil, matches
	}

	var candidates []*LicenseMatch
	flush := func() {
		if isListOfFalsePositives(candidates, minShortFPListLength, minUniqueLicenses,
			minUniqueLicensesProportion, 0) {
			discarded = append(discarded, candidates...)
		} else {
			kept = append(kept, candidates...)
		}
		candidates = nil
	}

	for _, m := range matches {
		if isCandidateFalsePositive(m) {
			closeEnough := len(candidates) == 0 ||
				candidates[len(candidates)-1].QDistanceTo(m) <= maxDistanceBetweenCands
			if closeEnough {
				candidates = append(candidates, m)
			} else {
				flush()
				candidates = append(candidates, m)
			}
		} else {
			flush()
			kept = append(kept, m)
		}
	}
	flush()
	return kept, discarded
}
