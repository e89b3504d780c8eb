// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package query turns input text into the positional token view the
// matchers work on: known-token ids with line numbers, unknown and stopword
// counters, mutable matchable position sets, and recorded SPDX identifier
// lines.
package query

import (
	"regexp"
	"strings"

	"lichen-scan/internal/index"
	"lichen-scan/internal/span"
	"lichen-scan/internal/tokenize"
)

// spdxLinePattern recognizes "SPDX-License-Identifier:" lines, tolerating
// the misspellings seen in the wild, plus NuGet license URL lines.
var spdxLinePattern = regexp.MustCompile(
	`(?i)(spd[xz][\-\s]+lin?[cs]en?[sc]es?[\-\s]+identifi?er\s*:?\s*|https?://licenses\.nuget\.org/?\s*:?\s*)`)

// longLineThreshold flags likely generated or minified content.
const longLineThreshold = 1000

// SpdxLine is one recorded SPDX identifier line: the expression text after
// the prefix and the line's known-token position range.
type SpdxLine struct {
	Text     string
	Line     int
	StartPos int
	// EndPos is exclusive.
	EndPos int
}

// Query is the tokenized input for one detection call. It is mutated in
// place as the cascade consumes positions and must not be shared across
// calls.
type Query struct {
	Text string

	// Tokens holds the known-token ids in position order; LineByPos holds
	// each position's 1-based line number.
	Tokens    []uint16
	LineByPos []int

	// UnknownsByPos and StopwordsByPos count the unknown words and
	// stopwords that follow each known position. Position -1 buckets those
	// before the first known token.
	UnknownsByPos  map[int]int
	StopwordsByPos map[int]int

	// ShortsAndDigitsPos holds positions whose token is a single character
	// or made only of digits.
	ShortsAndDigitsPos map[int]struct{}

	// highMatchables and lowMatchables shrink as matches consume positions.
	highMatchables map[int]struct{}
	lowMatchables  map[int]struct{}

	SpdxLines []SpdxLine

	HasLongLines bool
	IsBinary     bool

	idx *index.RuleIndex
}

// New tokenizes text against the index dictionary. Unknown words never
// occupy a position; they only increment the counter of the preceding known
// position.
func New(text string, idx *index.RuleIndex) *Query {
	q := &Query{
		Text:               text,
		UnknownsByPos:      make(map[int]int),
		StopwordsByPos:     make(map[int]int),
		ShortsAndDigitsPos: make(map[int]struct{}),
		highMatchables:     make(map[int]struct{}),
		lowMatchables:      make(map[int]struct{}),
		idx:                idx,
		IsBinary:           strings.ContainsRune(text, '\x00'),
	}

	lines := strings.Split(text, "\n")
	for lineIdx, line := range lines {
		lineNum := lineIdx + 1
		if len(line) > longLineThreshold {
			q.HasLongLines = true
		}

		spdxLoc := spdxLinePattern.FindStringIndex(line)
		lineStart := len(q.Tokens)

		for _, word := range tokenize.TokenizeKeepStopwords(line) {
			if tokenize.IsStopword(word) {
				q.StopwordsByPos[len(q.Tokens)-1]++
				continue
			}
			tid, known := idx.Dictionary.Get(word)
			if !known {
				q.UnknownsByPos[len(q.Tokens)-1]++
				continue
			}
			pos := len(q.Tokens)
			q.Tokens = append(q.Tokens, tid)
			q.LineByPos = append(q.LineByPos, lineNum)
			if len(word) == 1 || tokenize.IsDigitsOnly(word) {
				q.ShortsAndDigitsPos[pos] = struct{}{}
			}
			if idx.Dictionary.IsLegalese(tid) {
				q.highMatchables[pos] = struct{}{}
			} else {
				q.lowMatchables[pos] = struct{}{}
			}
		}

		if spdxLoc != nil && len(q.Tokens) > lineStart {
			q.SpdxLines = append(q.SpdxLines, SpdxLine{
				Text:     strings.TrimSpace(line[spdxLoc[1]:]),
				Line:     lineNum,
				StartPos: lineStart,
				EndPos:   len(q.Tokens),
			})
		}
	}

	return q
}

// Len returns the known-token count.
func (q *Query) Len() int {
	return len(q.Tokens)
}

// Subtract removes every position in s from the matchable sets. Safe to
// call with positions already consumed.
func (q *Query) Subtract(s *span.Span) {
	if s == nil {
		return
	}
	for _, pos := range s.Positions() {
		delete(q.highMatchables, pos)
		delete(q.lowMatchables, pos)
	}
}

// SubtractRange consumes the contiguous position range [start, end).
func (q *Query) SubtractRange(start, end int) {
	for pos := start; pos < end; pos++ {
		delete(q.highMatchables, pos)
		delete(q.lowMatchables, pos)
	}
}

// IsMatchable reports whether the position has not been consumed.
func (q *Query) IsMatchable(pos int) bool {
	if _, ok := q.highMatchables[pos]; ok {
		return true
	}
	_, ok := q.lowMatchables[pos]
	return ok
}

// IsHighMatchable reports whether the position holds an unconsumed legalese
// token.
func (q *Query) IsHighMatchable(pos int) bool {
	_, ok := q.highMatchables[pos]
	return ok
}

// IsHighToken reports whether the token at pos is legalese, regardless of
// whether the position has been consumed.
func (q *Query) IsHighToken(pos int) bool {
	return q.idx.Dictionary.IsLegalese(q.Tokens[pos])
}

// RangeMatchable reports whether every position in [start, end) is still
// matchable.
func (q *Query) RangeMatchable(start, end int) bool {
	for pos := start; pos < end; pos++ {
		if !q.IsMatchable(pos) {
			return false
		}
	}
	return end > start
}

// MatchableCount returns the number of unconsumed positions.
func (q *Query) MatchableCount() int {
	return len(q.highMatchables) + len(q.lowMatchables)
}

// HighMatchableCount returns the number of unconsumed legalese positions.
func (q *Query) HighMatchableCount() int {
	return len(q.highMatchables)
}

// MatchableSpan returns the unconsumed positions as a span, or nil when
// everything is consumed.
func (q *Query) MatchableSpan() *span.Span {
	positions := make([]int, 0, q.MatchableCount())
	for pos := range q.highMatchables {
		positions = append(positions, pos)
	}
	for pos := range q.lowMatchables {
		positions = append(positions, pos)
	}
	if len(positions) == 0 {
		return nil
	}
	return span.FromPositions(positions)
}

// Line returns the 1-based line number of a token position.
func (q *Query) Line(pos int) int {
	return q.LineByPos[pos]
}

// UnknownsInRange sums the unknown-word counters inside [start, end).
func (q *Query) UnknownsInRange(start, end int) int {
	total := 0
	for pos := start; pos < end; pos++ {
		total += q.UnknownsByPos[pos]
	}
	return total
}
