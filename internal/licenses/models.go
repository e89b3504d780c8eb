// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package licenses holds the license and rule corpus model: the License and
// Rule records loaded from .LICENSE/.RULE files, the legalese word list and
// the per-rule match threshold computation.
package licenses

import (
	"lichen-scan/internal/span"
)

// License is one license record from the corpus.
type License struct {
	// Key is the unique lowercase identifier, e.g. "mit".
	Key string

	// Name is the full license name.
	Name string

	// SpdxLicenseKey is the SPDX identifier if one exists, e.g. "MIT".
	SpdxLicenseKey string

	// Category classifies the license, e.g. "Permissive", "Copyleft".
	Category string

	// Text is the full license text.
	Text string

	ReferenceURLs []string
	Notes         string

	IsDeprecated bool
	ReplacedBy   []string

	// MinimumCoverage is the required match coverage percentage, 0 when
	// unspecified.
	MinimumCoverage int

	IgnorableCopyrights []string
	IgnorableHolders    []string
	IgnorableAuthors    []string
	IgnorableURLs       []string
	IgnorableEmails     []string
}

// Rule is one corpus entry: a known license text, notice, tag, reference,
// intro, clue or false-positive pattern, with its license expression and the
// flags and thresholds the matchers and refinement passes consult.
//
// A Rule is built once at index time and never mutated afterward.
type Rule struct {
	// Identifier is the rule's file name, e.g. "mit_14.RULE".
	Identifier string

	// LicenseExpression uses lowercase ScanCode keys and may be compound,
	// e.g. "gpl-2.0 WITH classpath-exception-2.0".
	LicenseExpression string

	// Text is the raw rule text with {{...}} required-phrase markers intact.
	Text string

	// Tokens is the rule's token id sequence after stopword removal.
	Tokens []uint16

	IsLicenseText      bool
	IsLicenseNotice    bool
	IsLicenseReference bool
	IsLicenseTag       bool
	IsLicenseIntro     bool
	IsLicenseClue      bool

	// IsFalsePositive marks a rule that never contributes to a positive
	// detection and only suppresses spurious matches.
	IsFalsePositive bool

	IsRequiredPhrase bool

	// IsContinuous requires the rule to match without internal gaps.
	IsContinuous bool

	// Relevance is the 0-100 confidence weight of the rule.
	Relevance int

	// MinimumCoverage is the required match coverage percentage; 0 means
	// unspecified. The index builder may tighten this for short rules.
	MinimumCoverage int

	// RequiredPhraseSpans holds the rule-side token positions of the
	// {{...}} marked phrases.
	RequiredPhraseSpans []*span.Span

	// StopwordsByPos counts stopwords following each token position;
	// position -1 counts stopwords before the first token.
	StopwordsByPos map[int]int

	ReferencedFilenames []string
	IgnorableURLs       []string
	IgnorableEmails     []string
	IgnorableCopyrights []string
	IgnorableHolders    []string
	IgnorableAuthors    []string
	Language            string
	Notes               string

	IsDeprecated         bool
	SpdxLicenseKey       string
	OtherSpdxLicenseKeys []string

	// Fields below are computed by the index builder.

	// LengthUnique is the count of distinct token ids.
	LengthUnique int

	// HighLength counts legalese token occurrences; HighLengthUnique counts
	// distinct legalese token ids.
	HighLength       int
	HighLengthUnique int

	MinMatchedLength           int
	MinHighMatchedLength       int
	MinMatchedLengthUnique     int
	MinHighMatchedLengthUnique int

	// IsSmall is length < 15; IsTiny is length < 6.
	IsSmall bool
	IsTiny  bool

	// StartsWithLicense/EndsWithLicense report whether the first/last token
	// is one of "license", "licence", "licensed".
	StartsWithLicense bool
	EndsWithLicense   bool
}

// Length returns the rule's token count including duplicates.
func (r *Rule) Length() int {
	return len(r.Tokens)
}
