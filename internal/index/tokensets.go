// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package index

// TokenSet is a set of unique token ids.
type TokenSet map[uint16]struct{}

// TokenMultiset counts token id occurrences.
type TokenMultiset map[uint16]int

// BuildSetAndMset computes the unique-token set and frequency multiset of a
// token sequence. Candidate ranking for the sequence matcher works on these.
func BuildSetAndMset(tokens []uint16) (TokenSet, TokenMultiset) {
	set := make(TokenSet, len(tokens))
	mset := make(TokenMultiset, len(tokens))
	for _, tid := range tokens {
		set[tid] = struct{}{}
		mset[tid]++
	}
	return set, mset
}

// HighSetSubset returns the subset of ids below lenLegalese.
func HighSetSubset(set TokenSet, lenLegalese int) TokenSet {
	out := make(TokenSet)
	for tid := range set {
		if int(tid) < lenLegalese {
			out[tid] = struct{}{}
		}
	}
	return out
}

// HighMsetSubset returns the multiset entries for ids below lenLegalese.
func HighMsetSubset(mset TokenMultiset, lenLegalese int) TokenMultiset {
	out := make(TokenMultiset)
	for tid, count := range mset {
		if int(tid) < lenLegalese {
			out[tid] = count
		}
	}
	return out
}

// SetCounter returns the number of unique ids in the set.
func SetCounter(set TokenSet) int {
	return len(set)
}

// MsetCounter returns the total occurrence count across the multiset.
func MsetCounter(mset TokenMultiset) int {
	total := 0
	for _, count := range mset {
		total += count
	}
	return total
}

// IntersectSets returns the ids present in both sets.
func IntersectSets(a, b TokenSet) TokenSet {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	out := make(TokenSet)
	for tid := range small {
		if _, ok := large[tid]; ok {
			out[tid] = struct{}{}
		}
	}
	return out
}
