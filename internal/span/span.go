// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package span provides integer range sets used to track matched token
// positions. A span holds sorted, non-overlapping half-open ranges and
// supports the union, overlap and containment arithmetic the match
// refinement passes rely on.
package span

import "sort"

// Range is a half-open interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Span is a set of integer positions stored as ranges.
type Span struct {
	ranges []Range
}

// New returns an empty span.
func New() *Span {
	return &Span{}
}

// FromRange returns a span covering the single range [start, end).
func FromRange(start, end int) *Span {
	if end <= start {
		return New()
	}
	return &Span{ranges: []Range{{Start: start, End: end}}}
}

// FromPositions builds a span from individual positions, coalescing
// contiguous runs into ranges. Duplicates and ordering do not matter.
func FromPositions(positions []int) *Span {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)

	s := New()
	i := 0
	for i < len(sorted) {
		start := sorted[i]
		end := start + 1
		i++
		for i < len(sorted) {
			if sorted[i] == end {
				end++
				i++
			} else if sorted[i] < end {
				i++ // duplicate
			} else {
				break
			}
		}
		s.ranges = append(s.ranges, Range{Start: start, End: end})
	}
	return s
}

// Add inserts the range [start, end), merging with any overlapping ranges.
func (s *Span) Add(start, end int) {
	if end <= start {
		return
	}
	merged := Range{Start: start, End: end}
	var kept []Range
	for _, r := range s.ranges {
		if rangesOverlap(merged, r) || adjacent(merged, r) {
			merged = mergeRanges(merged, r)
		} else {
			kept = append(kept, r)
		}
	}
	kept = append(kept, merged)
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	s.ranges = kept
}

func rangesOverlap(a, b Range) bool {
	return a.Start < b.End && b.Start < a.End
}

func adjacent(a, b Range) bool {
	return a.End == b.Start || b.End == a.Start
}

func mergeRanges(a, b Range) Range {
	start := a.Start
	if b.Start < start {
		start = b.Start
	}
	end := a.End
	if b.End > end {
		end = b.End
	}
	return Range{Start: start, End: end}
}

// IsEmpty reports whether the span covers no positions.
func (s *Span) IsEmpty() bool {
	return len(s.ranges) == 0
}

// Len returns the total number of positions covered.
func (s *Span) Len() int {
	total := 0
	for _, r := range s.ranges {
		total += r.End - r.Start
	}
	return total
}

// Start returns the lowest covered position, or 0 for an empty span.
func (s *Span) Start() int {
	if len(s.ranges) == 0 {
		return 0
	}
	return s.ranges[0].Start
}

// End returns one past the highest covered position, or 0 for an empty span.
func (s *Span) End() int {
	if len(s.ranges) == 0 {
		return 0
	}
	return s.ranges[len(s.ranges)-1].End
}

// Contains reports whether the position is covered.
func (s *Span) Contains(pos int) bool {
	for _, r := range s.ranges {
		if pos >= r.Start && pos < r.End {
			return true
		}
		if pos < r.Start {
			break
		}
	}
	return false
}

// ContainsSpan reports whether every position of other is covered by s.
func (s *Span) ContainsSpan(other *Span) bool {
	for _, pos := range other.Positions() {
		if !s.Contains(pos) {
			return false
		}
	}
	return !other.IsEmpty()
}

// Positions returns all covered positions in ascending order.
func (s *Span) Positions() []int {
	var out []int
	for _, r := range s.ranges {
		for p := r.Start; p < r.End; p++ {
			out = append(out, p)
		}
	}
	return out
}

// Overlap returns the number of positions covered by both spans.
func (s *Span) Overlap(other *Span) int {
	count := 0
	for _, a := range s.ranges {
		for _, b := range other.ranges {
			lo := a.Start
			if b.Start > lo {
				lo = b.Start
			}
			hi := a.End
			if b.End < hi {
				hi = b.End
			}
			if lo < hi {
				count += hi - lo
			}
		}
	}
	return count
}

// OverlapRatio returns the overlap size divided by the larger span length.
func (s *Span) OverlapRatio(other *Span) float64 {
	maxLen := s.Len()
	if l := other.Len(); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	return float64(s.Overlap(other)) / float64(maxLen)
}

// Intersects reports whether the two spans share any position.
func (s *Span) Intersects(other *Span) bool {
	for _, a := range s.ranges {
		for _, b := range other.ranges {
			if rangesOverlap(a, b) {
				return true
			}
		}
	}
	return false
}

// Union returns a new span covering every position of s and other.
func (s *Span) Union(other *Span) *Span {
	out := s.Clone()
	for _, r := range other.ranges {
		out.Add(r.Start, r.End)
	}
	return out
}

// Clone returns an independent copy.
func (s *Span) Clone() *Span {
	out := &Span{ranges: make([]Range, len(s.ranges))}
	copy(out.ranges, s.ranges)
	return out
}

// Ranges returns the sorted non-overlapping ranges of the span.
func (s *Span) Ranges() []Range {
	out := make([]Range, len(s.ranges))
	copy(out, s.ranges)
	return out
}
