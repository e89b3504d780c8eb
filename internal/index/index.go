// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"crypto/sha1"
	"strings"

	ahocorasick "github.com/BobuSumisu/aho-corasick"

	"lichen-scan/internal/licenses"
)

// RuleIndex is the compiled rule corpus. It is built once and read-only
// afterward, so it can be shared across concurrent detection calls.
type RuleIndex struct {
	// Dictionary maps token strings to ids; ids below LenLegalese are
	// license-significant.
	Dictionary  *TokenDictionary
	LenLegalese int

	// DigitOnlyTids holds ids of tokens made entirely of digits, which can
	// degenerate matching when they appear in long runs.
	DigitOnlyTids map[uint16]struct{}

	// RidByHash maps the SHA1 digest of a rule's token sequence to its rid
	// for whole-run exact matching. False-positive rules are excluded.
	RidByHash map[[sha1.Size]byte]int

	// RulesByRid and TidsByRid are indexed by rule id.
	RulesByRid []*licenses.Rule
	TidsByRid  [][]uint16

	// RulesAutomaton matches every non-empty rule token sequence, encoded
	// as 2-byte little-endian ids. AutomatonRids maps its pattern index
	// back to the rid.
	RulesAutomaton *ahocorasick.Trie
	AutomatonRids  []int

	// UnknownAutomaton matches license-like 6-gram fragments from
	// approx-matchable rules, for unknown-license detection.
	UnknownAutomaton *ahocorasick.Trie

	// SetsByRid/MsetsByRid drive candidate selection and ranking.
	SetsByRid  map[int]TokenSet
	MsetsByRid map[int]TokenMultiset

	// HighPostingsByRid maps legalese token ids to their positions within
	// each approx-matchable rule.
	HighPostingsByRid map[int]map[uint16][]int

	RegularRids         map[int]struct{}
	FalsePositiveRids   map[int]struct{}
	ApproxMatchableRids map[int]struct{}

	// LicensesByKey holds the license metadata records.
	LicensesByKey map[string]*licenses.License

	// RidByLicenseKey maps a single-key license expression (and, lowercased,
	// its SPDX alias) to a representative rid, used by the SPDX-tag matcher.
	RidByLicenseKey map[string]int
}

// TokensToBytes encodes a token id sequence as the 2-byte little-endian
// stream the automatons are built over.
func TokensToBytes(tokens []uint16) []byte {
	out := make([]byte, 0, len(tokens)*2)
	for _, tid := range tokens {
		out = append(out, byte(tid), byte(tid>>8))
	}
	return out
}

// ComputeHash returns the SHA1 digest of a token sequence in its 2-byte
// little-endian encoding. Used for whole-rule exact matching.
func ComputeHash(tokens []uint16) [sha1.Size]byte {
	return sha1.Sum(TokensToBytes(tokens))
}

// Rule returns the rule for a rid.
func (idx *RuleIndex) Rule(rid int) *licenses.Rule {
	return idx.RulesByRid[rid]
}

// RuleCount returns the number of indexed rules.
func (idx *RuleIndex) RuleCount() int {
	return len(idx.RulesByRid)
}

// License returns the license record for a ScanCode key, if loaded.
func (idx *RuleIndex) License(key string) (*licenses.License, bool) {
	lic, ok := idx.LicensesByKey[key]
	return lic, ok
}

// RidForKey resolves a license identifier (ScanCode key or SPDX alias,
// case-insensitive) to a representative rid.
func (idx *RuleIndex) RidForKey(key string) (int, bool) {
	rid, ok := idx.RidByLicenseKey[strings.ToLower(key)]
	return rid, ok
}

// IsApproxMatchable reports whether the rid participates in sequence
// matching.
func (idx *RuleIndex) IsApproxMatchable(rid int) bool {
	_, ok := idx.ApproxMatchableRids[rid]
	return ok
}

// IsFalsePositive reports whether the rid is a false-positive rule.
func (idx *RuleIndex) IsFalsePositive(rid int) bool {
	_, ok := idx.FalsePositiveRids[rid]
	return ok
}
