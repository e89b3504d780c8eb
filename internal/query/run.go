// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package query

// LinesThreshold is the number of consecutive lines without a legalese
// token that splits the query into separate runs.
const LinesThreshold = 4

// Run is a view over the inclusive token position range [Start, End] of a
// query.
type Run struct {
	Query *Query
	Start int
	// End is inclusive; End < Start means an empty run.
	End int
}

// WholeRun returns a single run spanning the entire token range.
func (q *Query) WholeRun() *Run {
	return &Run{Query: q, Start: 0, End: len(q.Tokens) - 1}
}

// Runs splits the query wherever LinesThreshold or more consecutive lines
// carry no legalese token. Every run starts and ends on a line that has at
// least one legalese token; the junk stretches between runs are dropped.
// When no split happens the single whole run is returned.
func (q *Query) Runs() []*Run {
	if len(q.Tokens) == 0 {
		return nil
	}

	legaleseLines := make(map[int]bool)
	for pos, tid := range q.Tokens {
		if q.idx.Dictionary.IsLegalese(tid) {
			legaleseLines[q.LineByPos[pos]] = true
		}
	}

	firstPosByLine := make(map[int]int)
	lastPosByLine := make(map[int]int)
	for pos, line := range q.LineByPos {
		if _, ok := firstPosByLine[line]; !ok {
			firstPosByLine[line] = pos
		}
		lastPosByLine[line] = pos
	}

	maxLine := q.LineByPos[len(q.LineByPos)-1]
	var runs []*Run
	runStart := -1
	runEnd := -1
	junk := 0
	for line := 1; line <= maxLine; line++ {
		if legaleseLines[line] {
			junk = 0
			if runStart == -1 {
				runStart = firstPosByLine[line]
			}
			runEnd = lastPosByLine[line]
			continue
		}
		junk++
		if junk >= LinesThreshold && runStart != -1 {
			runs = append(runs, &Run{Query: q, Start: runStart, End: runEnd})
			runStart, runEnd = -1, -1
		}
	}
	if runStart != -1 {
		runs = append(runs, &Run{Query: q, Start: runStart, End: runEnd})
	}

	if len(runs) == 0 {
		return []*Run{q.WholeRun()}
	}
	if len(runs) == 1 && runs[0].Start == 0 && runs[0].End == len(q.Tokens)-1 {
		return []*Run{q.WholeRun()}
	}
	return runs
}

// Len returns the run's token count.
func (r *Run) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Tokens returns the run's token id slice. The slice aliases the query.
func (r *Run) Tokens() []uint16 {
	if r.Len() == 0 {
		return nil
	}
	return r.Query.Tokens[r.Start : r.End+1]
}

// MatchableCount returns the unconsumed positions within the run.
func (r *Run) MatchableCount() int {
	count := 0
	for pos := r.Start; pos <= r.End; pos++ {
		if r.Query.IsMatchable(pos) {
			count++
		}
	}
	return count
}

// HighMatchableCount returns the unconsumed legalese positions within the
// run.
func (r *Run) HighMatchableCount() int {
	count := 0
	for pos := r.Start; pos <= r.End; pos++ {
		if r.Query.IsHighMatchable(pos) {
			count++
		}
	}
	return count
}

// MatchablePositions returns the sorted unconsumed positions within the
// run.
func (r *Run) MatchablePositions() []int {
	var positions []int
	for pos := r.Start; pos <= r.End; pos++ {
		if r.Query.IsMatchable(pos) {
			positions = append(positions, pos)
		}
	}
	return positions
}
