// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"crypto/sha1"
	"fmt"
	"strings"

	ahocorasick "github.com/BobuSumisu/aho-corasick"

	"lichen-scan/internal/licenses"
	"lichen-scan/internal/tokenize"
)

// UnknownNgramLength is the fragment size indexed for unknown-license
// detection.
const UnknownNgramLength = 6

// markers are tokens that frequently start copyright statements or URLs
// rather than license text. An ngram containing one is too ambiguous to
// signal an unknown license.
var markers = []string{
	"copyright", "c", "copyrights", "rights", "reserved", "trademark",
	"foundation", "government", "institute", "university", "inc", "corp",
	"co", "author", "com", "org", "net", "uk", "fr", "be", "de",
	"http", "https", "www",
}

// BuildIndex compiles the loaded rules and licenses into a RuleIndex.
//
// Token ids are assigned with legalese words first so that id < LenLegalese
// identifies a license-significant token. Rules whose text yields no tokens
// are kept in RulesByRid but excluded from every matching structure.
func BuildIndex(rules []*licenses.Rule, lics []*licenses.License) (*RuleIndex, error) {
	dict := NewDictionary(licenses.LegaleseWords())
	lenLegalese := dict.LegaleseCount()

	idx := &RuleIndex{
		Dictionary:          dict,
		LenLegalese:         lenLegalese,
		DigitOnlyTids:       make(map[uint16]struct{}),
		RidByHash:           make(map[[sha1.Size]byte]int, len(rules)),
		RulesByRid:          make([]*licenses.Rule, 0, len(rules)),
		TidsByRid:           make([][]uint16, 0, len(rules)),
		SetsByRid:           make(map[int]TokenSet),
		MsetsByRid:          make(map[int]TokenMultiset),
		HighPostingsByRid:   make(map[int]map[uint16][]int),
		RegularRids:         make(map[int]struct{}),
		FalsePositiveRids:   make(map[int]struct{}),
		ApproxMatchableRids: make(map[int]struct{}),
		LicensesByKey:       make(map[string]*licenses.License, len(lics)),
		RidByLicenseKey:     make(map[string]int),
	}

	for _, lic := range lics {
		idx.LicensesByKey[lic.Key] = lic
	}

	rulesBuilder := ahocorasick.NewTrieBuilder()
	unknownBuilder := ahocorasick.NewTrieBuilder()
	seenNgrams := make(map[string]struct{})
	haveRulePatterns := false
	haveUnknownPatterns := false

	for rid, rule := range rules {
		words, stopsByPos, err := ruleTokenWords(rule.Text)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Identifier, err)
		}
		rule.StopwordsByPos = stopsByPos

		tids := make([]uint16, len(words))
		for i, w := range words {
			tids[i] = dict.GetOrAssign(w)
		}
		rule.Tokens = tids
		idx.RulesByRid = append(idx.RulesByRid, rule)
		idx.TidsByRid = append(idx.TidsByRid, tids)

		finalizeRule(rule, words, lenLegalese)

		if rule.IsFalsePositive {
			idx.FalsePositiveRids[rid] = struct{}{}
		} else {
			idx.RegularRids[rid] = struct{}{}
		}

		if len(tids) == 0 {
			continue
		}

		if !rule.IsFalsePositive {
			hash := ComputeHash(tids)
			if prev, dup := idx.RidByHash[hash]; dup {
				return nil, fmt.Errorf("rule %s duplicates the text of %s",
					rule.Identifier, rules[prev].Identifier)
			}
			idx.RidByHash[hash] = rid
		}

		rulesBuilder.AddPattern(TokensToBytes(tids))
		idx.AutomatonRids = append(idx.AutomatonRids, rid)
		haveRulePatterns = true

		if !rule.IsFalsePositive {
			registerLicenseKey(idx, rid, rule)
		}

		if !isApproxMatchable(rule) {
			continue
		}
		idx.ApproxMatchableRids[rid] = struct{}{}

		set, mset := BuildSetAndMset(tids)
		idx.SetsByRid[rid] = set
		idx.MsetsByRid[rid] = mset

		postings := make(map[uint16][]int)
		for pos, tid := range tids {
			if int(tid) < lenLegalese {
				postings[tid] = append(postings[tid], pos)
			}
		}
		idx.HighPostingsByRid[rid] = postings

		for _, ngram := range goodNgrams(tids, words, lenLegalese) {
			encoded := TokensToBytes(ngram)
			key := string(encoded)
			if _, dup := seenNgrams[key]; dup {
				continue
			}
			seenNgrams[key] = struct{}{}
			unknownBuilder.AddPattern(encoded)
			haveUnknownPatterns = true
		}
	}

	for token, tid := range dict.Tokens() {
		if tokenize.IsDigitsOnly(token) {
			idx.DigitOnlyTids[tid] = struct{}{}
		}
	}

	if haveRulePatterns {
		idx.RulesAutomaton = rulesBuilder.Build()
	}
	if haveUnknownPatterns {
		idx.UnknownAutomaton = unknownBuilder.Build()
	}

	return idx, nil
}

// ruleTokenWords tokenizes rule text with the {{...}} markers stripped,
// dropping stopwords but recording how many follow each kept position.
// Position -1 counts stopwords before the first kept token.
func ruleTokenWords(text string) ([]string, map[int]int, error) {
	cleaned := strings.ReplaceAll(text, "{{", " ")
	cleaned = strings.ReplaceAll(cleaned, "}}", " ")

	all := tokenize.TokenizeKeepStopwords(cleaned)
	words := make([]string, 0, len(all))
	stops := make(map[int]int)
	pos := -1
	for _, w := range all {
		if tokenize.IsStopword(w) {
			stops[pos]++
			continue
		}
		words = append(words, w)
		pos++
	}
	if len(stops) == 0 {
		stops = nil
	}
	return words, stops, nil
}

// finalizeRule fills the computed Rule fields: lengths, thresholds and the
// small/tiny and starts/ends-with-license flags.
func finalizeRule(rule *licenses.Rule, words []string, lenLegalese int) {
	length := len(rule.Tokens)
	unique := make(map[uint16]struct{}, length)
	uniqueHigh := make(map[uint16]struct{})
	highLength := 0
	for _, tid := range rule.Tokens {
		unique[tid] = struct{}{}
		if int(tid) < lenLegalese {
			highLength++
			uniqueHigh[tid] = struct{}{}
		}
	}
	rule.LengthUnique = len(unique)
	rule.HighLength = highLength
	rule.HighLengthUnique = len(uniqueHigh)

	coverage, minLen, minHigh := licenses.ComputeThresholdsOccurrences(
		rule.MinimumCoverage, length, highLength)
	rule.MinimumCoverage = coverage
	rule.MinMatchedLength = minLen
	rule.MinHighMatchedLength = minHigh

	minUnique, minHighUnique := licenses.ComputeThresholdsUnique(
		rule.MinimumCoverage, length, rule.LengthUnique, rule.HighLengthUnique)
	rule.MinMatchedLengthUnique = minUnique
	rule.MinHighMatchedLengthUnique = minHighUnique

	rule.IsSmall = length < licenses.SmallRule
	rule.IsTiny = length < licenses.TinyRule

	if len(words) > 0 {
		rule.StartsWithLicense = isLicenseWord(words[0])
		rule.EndsWithLicense = isLicenseWord(words[len(words)-1])
	}
}

func isLicenseWord(word string) bool {
	switch word {
	case "license", "licence", "licensed":
		return true
	}
	return false
}

// isApproxMatchable reports whether the rule participates in sequence
// matching. Rules that must match exactly or contiguously, tiny rules,
// small references and tags, and rules with no legalese token at all are
// excluded.
func isApproxMatchable(rule *licenses.Rule) bool {
	if rule.IsFalsePositive || rule.IsRequiredPhrase || rule.IsTiny || rule.IsContinuous {
		return false
	}
	if rule.IsSmall && (rule.IsLicenseReference || rule.IsLicenseTag) {
		return false
	}
	// A rule with no legalese token is too weak to match approximately.
	return rule.HighLength > 0
}

// goodNgrams yields the license-like fixed-size ngrams of a rule's token
// sequence, skipping ngrams dominated by digits, years, single characters
// or copyright/URL markers.
func goodNgrams(tids []uint16, words []string, lenLegalese int) [][]uint16 {
	if len(tids) < UnknownNgramLength {
		return nil
	}
	var out [][]uint16
	for start := 0; start+UnknownNgramLength <= len(tids); start++ {
		ngram := tids[start : start+UnknownNgramLength]
		if isGoodNgram(ngram, words[start:start+UnknownNgramLength], lenLegalese) {
			out = append(out, ngram)
		}
	}
	return out
}

func isGoodNgram(ngram []uint16, words []string, lenLegalese int) bool {
	digits := 0
	singles := 0
	hasLegalese := false
	unique := make(map[uint16]struct{}, len(ngram))
	for i, tid := range ngram {
		word := words[i]
		if tokenize.IsDigitsOnly(word) {
			digits++
			if len(word) == 4 {
				// Likely a year.
				return false
			}
		}
		if len(word) == 1 {
			singles++
		}
		if int(tid) < lenLegalese {
			hasLegalese = true
		}
		for _, m := range markers {
			if word == m {
				return false
			}
		}
		unique[tid] = struct{}{}
	}
	if digits >= 3 || singles >= 3 {
		return false
	}
	if len(unique) <= 2 {
		return false
	}
	return hasLegalese
}

// registerLicenseKey records a representative rid for single-key license
// expressions, so the SPDX-tag matcher can resolve bare identifiers. Tag
// rules win over other kinds; among equals the first rule seen wins.
func registerLicenseKey(idx *RuleIndex, rid int, rule *licenses.Rule) {
	expr := strings.TrimSpace(rule.LicenseExpression)
	if expr == "" || strings.ContainsAny(expr, " \t") {
		return
	}
	key := strings.ToLower(expr)
	record := func(k string) {
		prev, ok := idx.RidByLicenseKey[k]
		if !ok {
			idx.RidByLicenseKey[k] = rid
			return
		}
		if rule.IsLicenseTag && !idx.RulesByRid[prev].IsLicenseTag {
			idx.RidByLicenseKey[k] = rid
		}
	}
	record(key)
	if lic, ok := idx.LicensesByKey[key]; ok && lic.SpdxLicenseKey != "" {
		record(strings.ToLower(lic.SpdxLicenseKey))
	}
	if rule.SpdxLicenseKey != "" {
		record(strings.ToLower(rule.SpdxLicenseKey))
	}
}
