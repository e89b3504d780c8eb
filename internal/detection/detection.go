// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package detection assembles refined license matches into final
// LicenseDetection findings: proximity grouping, category analysis,
// expression composition and deduplication.
package detection

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"lichen-scan/internal/expression"
	"lichen-scan/internal/match"
)

const (
	// maxTokenGap and maxLineGap bound the distance between consecutive
	// matches grouped into one detection. Either dimension being close is
	// enough to group.
	maxTokenGap = 10
	maxLineGap  = 3

	// imperfectCoverageThreshold marks any coverage under 100 as imperfect.
	imperfectCoverageThreshold = 100.0

	// cluesCoverageThreshold is the coverage under which matches are
	// reported as clues rather than detections.
	cluesCoverageThreshold = 60.0

	falsePositiveRuleLength = 3
	falsePositiveStartLine  = 1000
)

// Detection log categories explaining how a detection was assembled.
const (
	LogPerfectDetection            = "perfect-detection"
	LogFalsePositive               = "possible-false-positive"
	LogLicenseClues                = "license-clues"
	LogLowQualityMatches           = "low-quality-matches"
	LogImperfectCoverage           = "imperfect-match-coverage"
	LogUnknownMatch                = "unknown-match"
	LogExtraWords                  = "extra-words"
	LogUndetectedLicense           = "undetected-license"
	LogUnknownIntroFollowedByMatch = "unknown-intro-followed-by-match"
	LogUnknownReferenceToLocalFile = "unknown-reference-to-local-file"
)

// FileRegion locates a detection inside a file.
type FileRegion struct {
	Path      string `json:"path,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// LicenseDetection combines one or more nearby matches into a single
// finding with a composed license expression.
type LicenseDetection struct {
	LicenseExpression     string                `json:"license_expression"`
	LicenseExpressionSPDX string                `json:"license_expression_spdx,omitempty"`
	Matches               []*match.LicenseMatch `json:"matches"`
	DetectionLog          []string              `json:"detection_log,omitempty"`
	Identifier            string                `json:"identifier"`
	FileRegion            *FileRegion           `json:"file_region,omitempty"`
}

// Group is a run of matches near each other in the file.
type Group struct {
	Matches   []*match.LicenseMatch
	StartLine int
	EndLine   int
}

func newGroup(matches []*match.LicenseMatch) *Group {
	g := &Group{Matches: matches}
	for i, m := range matches {
		if i == 0 || m.StartLine < g.StartLine {
			g.StartLine = m.StartLine
		}
		if m.EndLine > g.EndLine {
			g.EndLine = m.EndLine
		}
	}
	return g
}

// SortMatchesByLine orders matches for grouping.
func SortMatchesByLine(matches []*match.LicenseMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.EndLine < b.EndLine
	})
}

// shouldGroupTogether reports whether cur belongs to prev's group: close
// in token distance or in line distance, either one suffices.
func shouldGroupTogether(prev, cur *match.LicenseMatch) bool {
	if prev.QDistanceTo(cur) < maxTokenGap {
		return true
	}
	return prev.LineDistanceTo(cur) < maxLineGap
}

// GroupMatchesByRegion walks the line-ordered matches and cuts groups at
// proximity boundaries. A license intro always pulls the following match
// into its group; a license clue always stands alone.
func GroupMatchesByRegion(matches []*match.LicenseMatch) []*Group {
	var groups []*Group
	var current []*match.LicenseMatch

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, newGroup(current))
			current = nil
		}
	}

	for _, m := range matches {
		if len(current) == 0 {
			current = append(current, m)
			continue
		}
		prev := current[len(current)-1]

		switch {
		case prev.Rule != nil && prev.Rule.IsLicenseIntro:
			current = append(current, m)
		case m.Rule != nil && m.Rule.IsLicenseIntro:
			flush()
			current = append(current, m)
		case m.Rule != nil && m.Rule.IsLicenseClue:
			flush()
			groups = append(groups, newGroup([]*match.LicenseMatch{m}))
		case shouldGroupTogether(prev, m):
			current = append(current, m)
		default:
			flush()
			current = append(current, m)
		}
	}
	flush()
	return groups
}

func isCorrectDetection(matches []*match.LicenseMatch) bool {
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		switch m.Matcher {
		case match.MatcherHash, match.MatcherSpdxID, match.MatcherAho:
		default:
			return false
		}
		if m.MatchCoverage < imperfectCoverageThreshold-0.01 {
			return false
		}
	}
	return true
}

// isCoverageBelowThreshold with anyMatches reports whether any match falls
// under the threshold; without it, whether none exceed the threshold.
func isCoverageBelowThreshold(matches []*match.LicenseMatch, threshold float64, anyMatches bool) bool {
	if anyMatches {
		for _, m := range matches {
			if m.MatchCoverage < threshold-0.01 {
				return true
			}
		}
		return false
	}
	for _, m := range matches {
		if m.MatchCoverage > threshold {
			return false
		}
	}
	return true
}

func hasUnknownMatches(matches []*match.LicenseMatch) bool {
	for _, m := range matches {
		if strings.Contains(ruleIdentifier(m), "unknown") ||
			strings.Contains(m.LicenseExpression, "unknown") {
			return true
		}
	}
	return false
}

// hasExtraWords detects matches whose score fell below coverage times
// relevance, the signature of extra text inside the matched region.
func hasExtraWords(matches []*match.LicenseMatch) bool {
	for _, m := range matches {
		expected := m.MatchCoverage * float64(m.RuleRelevance) / 100.0
		if expected-m.Score > 0.01 {
			return true
		}
	}
	return false
}

func ruleIdentifier(m *match.LicenseMatch) string {
	if m.Rule == nil {
		return ""
	}
	return m.Rule.Identifier
}

func ruleLength(m *match.LicenseMatch) int {
	if m.Rule == nil {
		return 0
	}
	return m.Rule.Length()
}

func isFalsePositiveDetection(matches []*match.LicenseMatch) bool {
	if len(matches) == 0 {
		return false
	}

	fullRelevance := true
	for _, m := range matches {
		if m.RuleRelevance != 100 {
			fullRelevance = false
			break
		}
	}
	if fullRelevance {
		return false
	}

	startLine := matches[0].StartLine
	for _, m := range matches {
		if m.StartLine < startLine {
			startLine = m.StartLine
		}
	}

	bareRules := []string{"gpl_bare", "freeware_bare", "public-domain_bare"}
	isBare := true
	isGpl := true
	allLengthOne := true
	allLowRelevance := true
	allTags := true
	anyShort := false
	for _, m := range matches {
		id := strings.ToLower(ruleIdentifier(m))
		bare := false
		for _, b := range bareRules {
			if strings.Contains(id, b) {
				bare = true
			}
		}
		isBare = isBare && bare
		isGpl = isGpl && strings.Contains(id, "gpl")
		allLengthOne = allLengthOne && ruleLength(m) == 1
		allLowRelevance = allLowRelevance && m.RuleRelevance < 60
		allTags = allTags && m.Rule != nil && m.Rule.IsLicenseTag
		anyShort = anyShort || ruleLength(m) <= falsePositiveRuleLength
	}

	single := len(matches) == 1

	if single && isBare && allLowRelevance {
		return true
	}
	if isGpl && allLengthOne {
		return true
	}
	if allLowRelevance && startLine > falsePositiveStartLine && anyShort {
		return true
	}
	if allTags && allLengthOne {
		return true
	}
	if single && matches[0].Rule != nil && matches[0].Rule.IsLicenseReference &&
		ruleLength(matches[0]) <= falsePositiveRuleLength {
		return true
	}
	return false
}

func isLowQualityMatches(matches []*match.LicenseMatch) bool {
	if len(matches) == 0 {
		return true
	}
	return !isCorrectDetection(matches) &&
		isCoverageBelowThreshold(matches, cluesCoverageThreshold, false)
}

func isUndetectedLicenseMatches(matches []*match.LicenseMatch) bool {
	return len(matches) == 1 && matches[0].Matcher == match.MatcherUndetected
}

func isUnknownIntro(m *match.LicenseMatch) bool {
	if !strings.Contains(m.LicenseExpression, "unknown") {
		return false
	}
	return (m.Rule != nil && (m.Rule.IsLicenseIntro || m.Rule.IsLicenseClue)) ||
		m.LicenseExpression == "free-unknown"
}

// hasUnknownIntroBeforeDetection detects an intro statement ("licensed
// under...") followed by the actual license it introduces.
func hasUnknownIntroBeforeDetection(matches []*match.LicenseMatch) bool {
	if len(matches) <= 1 {
		return false
	}

	allIntro := true
	for _, m := range matches {
		if !isUnknownIntro(m) {
			allIntro = false
			break
		}
	}
	if allIntro {
		return false
	}

	seenIntro := false
	for _, m := range matches {
		if isUnknownIntro(m) {
			seenIntro = true
			continue
		}
		if seenIntro &&
			m.MatchCoverage >= imperfectCoverageThreshold-0.01 &&
			!strings.Contains(ruleIdentifier(m), "unknown") &&
			!strings.Contains(m.LicenseExpression, "unknown") {
			return true
		}
	}

	if seenIntro {
		filtered := FilterLicenseIntros(matches)
		if len(filtered) != len(matches) &&
			isCoverageBelowThreshold(filtered, imperfectCoverageThreshold, false) {
			return true
		}
	}
	return false
}

// isIntroForFiltering marks intro and clue matches that can be safely
// dropped before expression composition: exact or fully covered.
func isIntroForFiltering(m *match.LicenseMatch) bool {
	flagged := m.LicenseExpression == "free-unknown" ||
		(m.Rule != nil && (m.Rule.IsLicenseIntro || m.Rule.IsLicenseClue))
	return flagged && (m.Matcher == match.MatcherAho || m.MatchCoverage >= 99.99)
}

// FilterLicenseIntros removes intro matches, keeping the original list
// whenever filtering would empty it.
func FilterLicenseIntros(matches []*match.LicenseMatch) []*match.LicenseMatch {
	var filtered []*match.LicenseMatch
	for _, m := range matches {
		if !isIntroForFiltering(m) {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return matches
	}
	return filtered
}

func referencesLocalFile(m *match.LicenseMatch) bool {
	return len(m.ReferencedFilenames) > 0
}

// FilterLicenseReferences removes matches referencing other files, with
// the same non-empty guard as intro filtering.
func FilterLicenseReferences(matches []*match.LicenseMatch) []*match.LicenseMatch {
	var filtered []*match.LicenseMatch
	for _, m := range matches {
		if !referencesLocalFile(m) {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return matches
	}
	return filtered
}

func hasReferencesToLocalFiles(matches []*match.LicenseMatch) bool {
	if hasExtraWords(matches) {
		return false
	}
	for _, m := range matches {
		if referencesLocalFile(m) {
			return true
		}
	}
	return false
}

// AnalyzeDetection classifies a group of matches into a detection log
// category. The checks run most specific first.
func AnalyzeDetection(matches []*match.LicenseMatch, packageLicense bool) string {
	if isUndetectedLicenseMatches(matches) {
		return LogUndetectedLicense
	}
	if hasUnknownIntroBeforeDetection(matches) {
		return LogUnknownIntroFollowedByMatch
	}
	if hasReferencesToLocalFiles(matches) {
		return LogUnknownReferenceToLocalFile
	}
	if !packageLicense && isFalsePositiveDetection(matches) {
		return LogFalsePositive
	}
	if !packageLicense && isLowQualityMatches(matches) {
		return LogLicenseClues
	}
	if isCorrectDetection(matches) && !hasUnknownMatches(matches) && !hasExtraWords(matches) {
		return LogPerfectDetection
	}
	if hasUnknownMatches(matches) {
		return LogUnknownMatch
	}
	if isCoverageBelowThreshold(matches, imperfectCoverageThreshold, true) {
		return LogImperfectCoverage
	}
	if hasExtraWords(matches) {
		return LogExtraWords
	}
	return LogPerfectDetection
}

// Score is the length-weighted average of match scores, capped at 100.
func Score(matches []*match.LicenseMatch) float64 {
	return weightedAverage(matches, func(m *match.LicenseMatch) float64 { return m.Score })
}

// Coverage is the length-weighted average of match coverages, capped at 100.
func Coverage(matches []*match.LicenseMatch) float64 {
	return weightedAverage(matches, func(m *match.LicenseMatch) float64 { return m.MatchCoverage })
}

func weightedAverage(matches []*match.LicenseMatch, value func(*match.LicenseMatch) float64) float64 {
	if len(matches) == 0 {
		return 0
	}
	if len(matches) == 1 {
		v := value(matches[0])
		if v > 100 {
			return 100
		}
		return v
	}

	total := 0.0
	for _, m := range matches {
		total += float64(m.MatchedLength)
	}
	if total < 0.01 {
		sum := 0.0
		for _, m := range matches {
			sum += value(m)
		}
		return sum / float64(len(matches))
	}

	weighted := 0.0
	for _, m := range matches {
		weighted += value(m) * float64(m.MatchedLength) / total
	}
	if weighted > 100 {
		return 100
	}
	return weighted
}

// CombinedExpression folds the matches' expressions with AND,
// deduplicating repeats.
func CombinedExpression(matches []*match.LicenseMatch) (string, error) {
	if len(matches) == 0 {
		return "", fmt.Errorf("no matches to combine")
	}
	exprs := make([]string, len(matches))
	for i, m := range matches {
		exprs[i] = m.LicenseExpression
	}
	return expression.Combine(exprs, "AND", true)
}

// safeName reduces an expression to alphanumerics and underscores for use
// inside identifiers.
func safeName(s string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
		} else if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// contentUUID derives a stable UUID from the matches' rule identifiers,
// scores and matched texts.
func contentUUID(matches []*match.LicenseMatch) string {
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "(%q, %.4f, %q)", ruleIdentifier(m), m.Score, m.MatchedText)
	}
	sum := sha1.Sum([]byte(b.String()))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		return fmt.Sprintf("%x", sum[:16])
	}
	return id.String()
}

// ComputeIdentifier builds the detection identifier: sanitized expression
// plus a content-derived UUID. Two detections share an identifier only
// when they matched the same rules with the same text.
func ComputeIdentifier(d *LicenseDetection) string {
	return safeName(d.LicenseExpression) + "-" + contentUUID(d.Matches)
}

// FromGroup builds a fully populated detection from one match group,
// applying category-specific match filtering before composing the
// expression.
func FromGroup(g *Group) *LicenseDetection {
	d := &LicenseDetection{}
	if len(g.Matches) == 0 {
		return d
	}

	category := AnalyzeDetection(g.Matches, false)

	switch category {
	case LogUnknownIntroFollowedByMatch:
		d.Matches = FilterLicenseIntros(g.Matches)
	case LogUnknownReferenceToLocalFile:
		d.Matches = FilterLicenseReferences(FilterLicenseIntros(g.Matches))
	default:
		d.Matches = g.Matches
	}

	if expr, err := CombinedExpression(d.Matches); err == nil {
		d.LicenseExpression = expr
	}
	spdxExprs := make([]string, len(d.Matches))
	for i, m := range d.Matches {
		spdxExprs[i] = m.LicenseExpressionSPDX
	}
	if spdxExpr, err := expression.Combine(spdxExprs, "AND", true); err == nil {
		d.LicenseExpressionSPDX = spdxExpr
	}

	d.DetectionLog = append(d.DetectionLog, category)
	d.Identifier = ComputeIdentifier(d)
	if g.StartLine > 0 {
		d.FileRegion = &FileRegion{StartLine: g.StartLine, EndLine: g.EndLine}
	}
	return d
}

// ClassifyDetection reports whether a detection is a true positive at the
// given minimum score.
func ClassifyDetection(d *LicenseDetection, minScore float64) bool {
	if len(d.Matches) == 0 {
		return false
	}
	return Score(d.Matches) >= minScore-0.01 &&
		!isLowQualityMatches(d.Matches) &&
		!isFalsePositiveDetection(d.Matches)
}

// FilterByScore keeps only true-positive detections at the minimum score.
func FilterByScore(detections []*LicenseDetection, minScore float64) []*LicenseDetection {
	var kept []*LicenseDetection
	for _, d := range detections {
		if ClassifyDetection(d, minScore) {
			kept = append(kept, d)
		}
	}
	return kept
}

// RemoveDuplicates drops detections sharing an identifier, keeping the
// highest-scoring one. Detections with equal expressions but different
// content keep distinct identifiers and are never merged.
func RemoveDuplicates(detections []*LicenseDetection) []*LicenseDetection {
	byID := make(map[string]*LicenseDetection)
	var order []string
	for _, d := range detections {
		id := d.Identifier
		if id == "" {
			id = ComputeIdentifier(d)
			d.Identifier = id
		}
		existing, ok := byID[id]
		if !ok {
			byID[id] = d
			order = append(order, id)
			continue
		}
		if Score(d.Matches) > Score(existing.Matches) {
			byID[id] = d
		}
	}

	out := make([]*LicenseDetection, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func matcherPriority(matcher string) int {
	switch {
	case matcher == match.MatcherSpdxID:
		return 1
	case matcher == match.MatcherHash:
		return 2
	case matcher == match.MatcherAho:
		return 3
	case strings.HasPrefix(matcher, match.MatcherSeq):
		return 4
	default:
		return 5
	}
}

// ApplyPreferences keeps, per expression, the detection with the higher
// score, breaking near-ties by matcher confidence.
func ApplyPreferences(detections []*LicenseDetection) []*LicenseDetection {
	type entry struct {
		score    float64
		priority int
		d        *LicenseDetection
	}
	best := make(map[string]entry)
	var order []string

	for _, d := range detections {
		score := Score(d.Matches)
		priority := 5
		for _, m := range d.Matches {
			if p := matcherPriority(m.Matcher); p < priority {
				priority = p
			}
		}

		existing, ok := best[d.LicenseExpression]
		if !ok {
			best[d.LicenseExpression] = entry{score, priority, d}
			order = append(order, d.LicenseExpression)
			continue
		}

		keep := false
		if diff := score - existing.score; diff > -0.01 && diff < 0.01 {
			keep = priority < existing.priority
		} else {
			keep = score > existing.score
		}
		if keep {
			best[d.LicenseExpression] = entry{score, priority, d}
		}
	}

	out := make([]*LicenseDetection, 0, len(order))
	for _, expr := range order {
		out = append(out, best[expr].d)
	}
	return out
}

// Rank orders detections by descending score, then descending coverage.
func Rank(detections []*LicenseDetection) []*LicenseDetection {
	sort.SliceStable(detections, func(i, j int) bool {
		si, sj := Score(detections[i].Matches), Score(detections[j].Matches)
		if si != sj {
			return si > sj
		}
		return Coverage(detections[i].Matches) > Coverage(detections[j].Matches)
	})
	return detections
}

// SortByLine orders detections by their earliest match line.
func SortByLine(detections []*LicenseDetection) []*LicenseDetection {
	minLine := func(d *LicenseDetection) int {
		line := 0
		for i, m := range d.Matches {
			if i == 0 || m.StartLine < line {
				line = m.StartLine
			}
		}
		return line
	}
	sort.SliceStable(detections, func(i, j int) bool {
		return minLine(detections[i]) < minLine(detections[j])
	})
	return detections
}

// PostProcess applies score filtering, deduplication, preferences and
// ranking, returning detections in file order.
func PostProcess(detections []*LicenseDetection, minScore float64) []*LicenseDetection {
	filtered := FilterByScore(detections, minScore)
	deduplicated := RemoveDuplicates(filtered)
	preferred := ApplyPreferences(deduplicated)
	return SortByLine(Rank(preferred))
}
