// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detection

import (
	"strings"

	"lichen-scan/internal/index"
	"lichen-scan/internal/match"
	"lichen-scan/internal/query"
	"lichen-scan/internal/spdx"
)

// Detector runs the full detection pipeline against one rule index. It is
// safe for concurrent use: the index and mapping are read-only and every
// call owns its query.
type Detector struct {
	idx     *index.RuleIndex
	mapping *spdx.Mapping
}

// NewDetector wires a detector over a built index and SPDX mapping. The
// mapping may be nil, in which case SPDX expressions keep ScanCode keys.
func NewDetector(idx *index.RuleIndex, mapping *spdx.Mapping) *Detector {
	return &Detector{idx: idx, mapping: mapping}
}

// Detect runs the matcher cascade, refinement and assembly over one text.
// Deterministic for a given index and text.
func (d *Detector) Detect(text string) []*LicenseDetection {
	matches := d.MatchText(text)
	if len(matches) == 0 {
		return nil
	}

	SortMatchesByLine(matches)
	var detections []*LicenseDetection
	for _, g := range GroupMatchesByRegion(matches) {
		det := FromGroup(g)
		if d.mapping != nil && det.LicenseExpression != "" {
			if spdxExpr, err := d.mapping.ExpressionToSpdx(det.LicenseExpression); err == nil {
				det.LicenseExpressionSPDX = spdxExpr
			}
		}
		detections = append(detections, det)
	}
	return SortByLine(RemoveDuplicates(detections))
}

// MatchText runs the matcher cascade and refinement, returning the final
// refined matches without grouping them into detections.
func (d *Detector) MatchText(text string) []*match.LicenseMatch {
	q := query.New(text, d.idx)
	if q.Len() == 0 {
		return nil
	}

	var matches []*match.LicenseMatch

	// Exact whole-run hash first: the cheapest strategy, and when it hits it
	// consumes the entire run.
	whole := q.WholeRun()
	for _, m := range match.HashMatch(d.idx, whole) {
		matches = append(matches, m)
		q.Subtract(m.QuerySpan())
	}

	// SPDX identifier lines never subtract; the same text is still available
	// to the exact matcher.
	matches = append(matches, match.SpdxMatch(q, d.mapping)...)

	for _, m := range match.AhoMatch(d.idx, whole) {
		matches = append(matches, m)
		q.Subtract(m.QuerySpan())
	}

	// Near-duplicate pass over the whole run: high-resemblance candidates
	// only, subtracting as soon as each match is accepted.
	if q.MatchableCount() > 0 {
		for _, m := range match.SeqMatch(d.idx, q.WholeRun(), match.TopCandidatesNearDuplicate, true) {
			matches = append(matches, m)
			q.Subtract(m.QuerySpan())
		}
	}

	// Per-run approximate matching over what is left.
	if q.MatchableCount() > 0 {
		for _, run := range q.Runs() {
			if run.MatchableCount() == 0 {
				continue
			}
			for _, m := range match.SeqMatch(d.idx, run, match.TopCandidatesSeq, false) {
				matches = append(matches, m)
				q.Subtract(m.QuerySpan())
			}
		}
	}

	// Unknown detection runs last and never consumes positions.
	unknown := match.UnknownMatch(d.idx, q, matches)
	unknown = match.FilterInvalidContainedUnknownMatches(unknown, matches)
	matches = append(matches, unknown...)

	fillMatchedTexts(text, matches)
	refined := match.Refine(d.idx, matches, q)
	d.fillSpdxExpressions(refined)
	return refined
}

// fillSpdxExpressions translates ScanCode keys to SPDX identifiers on
// matches that did not come from an SPDX tag line.
func (d *Detector) fillSpdxExpressions(matches []*match.LicenseMatch) {
	if d.mapping == nil {
		return
	}
	for _, m := range matches {
		if m.Matcher == match.MatcherSpdxID {
			continue
		}
		if converted, err := d.mapping.ExpressionToSpdx(m.LicenseExpression); err == nil {
			m.LicenseExpressionSPDX = converted
		}
	}
}

// fillMatchedTexts records the matched line region of each match, used by
// content identifiers and reporting.
func fillMatchedTexts(text string, matches []*match.LicenseMatch) {
	lines := strings.Split(text, "\n")
	for _, m := range matches {
		if m.MatchedText != "" || m.StartLine < 1 || m.EndLine > len(lines) {
			continue
		}
		m.MatchedText = strings.TrimSpace(strings.Join(lines[m.StartLine-1:m.EndLine], "\n"))
	}
}
