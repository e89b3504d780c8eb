// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package licenses

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"lichen-scan/internal/span"
	"lichen-scan/internal/tokenize"
)

// yesNoBool accepts YAML booleans as well as the yes/no/1/0 strings found
// in corpus frontmatter.
type yesNoBool bool

func (b *yesNoBool) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "yes", "true", "1":
		*b = true
	case "no", "false", "0", "":
		*b = false
	default:
		*b = false
	}
	return nil
}

type ruleFrontmatter struct {
	LicenseExpression   string    `yaml:"license_expression"`
	IsLicenseText       yesNoBool `yaml:"is_license_text"`
	IsLicenseNotice     yesNoBool `yaml:"is_license_notice"`
	IsLicenseReference  yesNoBool `yaml:"is_license_reference"`
	IsLicenseTag        yesNoBool `yaml:"is_license_tag"`
	IsLicenseIntro      yesNoBool `yaml:"is_license_intro"`
	IsLicenseClue       yesNoBool `yaml:"is_license_clue"`
	IsFalsePositive     yesNoBool `yaml:"is_false_positive"`
	IsRequiredPhrase    yesNoBool `yaml:"is_required_phrase"`
	IsContinuous        yesNoBool `yaml:"is_continuous"`
	IsDeprecated        yesNoBool `yaml:"is_deprecated"`
	Relevance           *float64  `yaml:"relevance"`
	MinimumCoverage     *float64  `yaml:"minimum_coverage"`
	ReferencedFilenames []string  `yaml:"referenced_filenames"`
	IgnorableURLs       []string  `yaml:"ignorable_urls"`
	IgnorableEmails     []string  `yaml:"ignorable_emails"`
	IgnorableCopyrights []string  `yaml:"ignorable_copyrights"`
	IgnorableHolders    []string  `yaml:"ignorable_holders"`
	IgnorableAuthors    []string  `yaml:"ignorable_authors"`
	Language            string    `yaml:"language"`
	Notes               string    `yaml:"notes"`
}

type licenseFrontmatter struct {
	Key                 string    `yaml:"key"`
	ShortName           string    `yaml:"short_name"`
	Name                string    `yaml:"name"`
	Category            string    `yaml:"category"`
	HomepageURL         string    `yaml:"homepage_url"`
	Notes               string    `yaml:"notes"`
	SpdxLicenseKey      string    `yaml:"spdx_license_key"`
	OtherSpdxKeys       []string  `yaml:"other_spdx_license_keys"`
	TextURLs            []string  `yaml:"text_urls"`
	OsiURL              string    `yaml:"osi_url"`
	FaqURL              string    `yaml:"faq_url"`
	OtherURLs           []string  `yaml:"other_urls"`
	IsDeprecated        yesNoBool `yaml:"is_deprecated"`
	IsUnknown           yesNoBool `yaml:"is_unknown"`
	IsGeneric           yesNoBool `yaml:"is_generic"`
	ReplacedBy          []string  `yaml:"replaced_by"`
	MinimumCoverage     *float64  `yaml:"minimum_coverage"`
	IgnorableCopyrights []string  `yaml:"ignorable_copyrights"`
	IgnorableHolders    []string  `yaml:"ignorable_holders"`
	IgnorableAuthors    []string  `yaml:"ignorable_authors"`
	IgnorableURLs       []string  `yaml:"ignorable_urls"`
	IgnorableEmails     []string  `yaml:"ignorable_emails"`
}

// splitFrontmatter splits a corpus file into its YAML frontmatter and text
// body. Files look like: ---\n<yaml>\n---\n<text>.
func splitFrontmatter(content, path string) (frontmatter, body string, err error) {
	if len(content) < 6 {
		return "", "", fmt.Errorf("file content too short: %s", path)
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		if strings.TrimSpace(content) == "" {
			return "", "", fmt.Errorf("file is empty: %s", path)
		}
		return "", "", fmt.Errorf("file missing frontmatter delimiter %q: %s", "---", path)
	}
	body = strings.TrimSpace(strings.TrimLeft(parts[2], "\n"))
	return parts[1], body, nil
}

// ParseRuleFile reads one .RULE file into a Rule. The rule text keeps its
// {{...}} required-phrase markers; RequiredPhraseSpans holds their parsed
// token positions.
func ParseRuleFile(path string) (*Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	return ParseRule(filepath.Base(path), string(raw))
}

// ParseRule parses rule file content already in memory.
func ParseRule(identifier, content string) (*Rule, error) {
	frontmatter, text, err := splitFrontmatter(content, identifier)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("rule %s has empty text content", identifier)
	}

	var fm ruleFrontmatter
	if err := yaml.Unmarshal([]byte(frontmatter), &fm); err != nil {
		return nil, fmt.Errorf("parsing rule frontmatter in %s: %w", identifier, err)
	}

	expression := fm.LicenseExpression
	if expression == "" {
		if !bool(fm.IsFalsePositive) {
			return nil, fmt.Errorf("rule %s missing required field license_expression", identifier)
		}
		expression = "unknown"
	}

	relevance := 100
	if fm.Relevance != nil && *fm.Relevance >= 0 && *fm.Relevance <= 255 {
		relevance = int(*fm.Relevance)
	}
	minimumCoverage := 0
	if fm.MinimumCoverage != nil && *fm.MinimumCoverage > 0 && *fm.MinimumCoverage <= 100 {
		minimumCoverage = int(*fm.MinimumCoverage)
	}

	phraseSpans, err := ParseRequiredPhraseSpans(text)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", identifier, err)
	}

	return &Rule{
		Identifier:          identifier,
		LicenseExpression:   expression,
		Text:                text,
		IsLicenseText:       bool(fm.IsLicenseText),
		IsLicenseNotice:     bool(fm.IsLicenseNotice),
		IsLicenseReference:  bool(fm.IsLicenseReference),
		IsLicenseTag:        bool(fm.IsLicenseTag),
		IsLicenseIntro:      bool(fm.IsLicenseIntro),
		IsLicenseClue:       bool(fm.IsLicenseClue),
		IsFalsePositive:     bool(fm.IsFalsePositive),
		IsRequiredPhrase:    bool(fm.IsRequiredPhrase),
		IsContinuous:        bool(fm.IsContinuous),
		IsDeprecated:        bool(fm.IsDeprecated),
		Relevance:           relevance,
		MinimumCoverage:     minimumCoverage,
		RequiredPhraseSpans: phraseSpans,
		ReferencedFilenames: fm.ReferencedFilenames,
		IgnorableURLs:       fm.IgnorableURLs,
		IgnorableEmails:     fm.IgnorableEmails,
		IgnorableCopyrights: fm.IgnorableCopyrights,
		IgnorableHolders:    fm.IgnorableHolders,
		IgnorableAuthors:    fm.IgnorableAuthors,
		Language:            fm.Language,
		Notes:               strings.TrimSpace(fm.Notes),
	}, nil
}

// ParseLicenseFile reads one .LICENSE file into a License. The license key
// comes from the file name and must agree with the frontmatter key when
// both are present.
func ParseLicenseFile(path string) (*License, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading license file: %w", err)
	}
	key := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseLicense(key, string(raw))
}

// ParseLicense parses license file content already in memory.
func ParseLicense(key, content string) (*License, error) {
	frontmatter, text, err := splitFrontmatter(content, key)
	if err != nil {
		return nil, err
	}

	var fm licenseFrontmatter
	if err := yaml.Unmarshal([]byte(frontmatter), &fm); err != nil {
		return nil, fmt.Errorf("parsing license frontmatter for %s: %w", key, err)
	}

	if fm.Key != "" && fm.Key != key {
		return nil, fmt.Errorf("license key mismatch: file %q vs frontmatter %q", key, fm.Key)
	}

	isDeprecated := bool(fm.IsDeprecated)
	if text == "" && !isDeprecated && !bool(fm.IsUnknown) && !bool(fm.IsGeneric) {
		return nil, fmt.Errorf("license %s has empty text and is not deprecated, unknown or generic", key)
	}

	name := fm.Name
	if name == "" {
		name = fm.ShortName
	}
	if name == "" {
		name = key
	}

	var urls []string
	urls = append(urls, fm.TextURLs...)
	urls = append(urls, fm.OtherURLs...)
	for _, u := range []string{fm.OsiURL, fm.FaqURL, fm.HomepageURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}

	minimumCoverage := 0
	if fm.MinimumCoverage != nil && *fm.MinimumCoverage > 0 && *fm.MinimumCoverage <= 100 {
		minimumCoverage = int(*fm.MinimumCoverage)
	}

	return &License{
		Key:                 key,
		Name:                name,
		SpdxLicenseKey:      fm.SpdxLicenseKey,
		Category:            fm.Category,
		Text:                text,
		ReferenceURLs:       urls,
		Notes:               strings.TrimSpace(fm.Notes),
		IsDeprecated:        isDeprecated,
		ReplacedBy:          fm.ReplacedBy,
		MinimumCoverage:     minimumCoverage,
		IgnorableCopyrights: fm.IgnorableCopyrights,
		IgnorableHolders:    fm.IgnorableHolders,
		IgnorableAuthors:    fm.IgnorableAuthors,
		IgnorableURLs:       fm.IgnorableURLs,
		IgnorableEmails:     fm.IgnorableEmails,
	}, nil
}

// LoadRulesFromDirectory parses every .RULE file in dir. Files that fail to
// parse are skipped with a warning so one bad rule does not sink the corpus.
func LoadRulesFromDirectory(dir string) ([]*Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading rules directory: %w", err)
	}

	var rules []*Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".RULE") {
			continue
		}
		rule, err := ParseRuleFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping rule file %s: %v\n", entry.Name(), err)
			continue
		}
		rules = append(rules, rule)
	}

	ValidateRules(rules)
	return rules, nil
}

// LoadLicensesFromDirectory parses every .LICENSE file in dir.
func LoadLicensesFromDirectory(dir string) ([]*License, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading licenses directory: %w", err)
	}

	var licenses []*License
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".LICENSE") {
			continue
		}
		lic, err := ParseLicenseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping license file %s: %v\n", entry.Name(), err)
			continue
		}
		licenses = append(licenses, lic)
	}
	return licenses, nil
}

// ValidateRules warns about duplicate rule texts and non-false-positive
// rules with empty expressions.
func ValidateRules(rules []*Rule) {
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if _, dup := seen[rule.Text]; dup {
			fmt.Fprintf(os.Stderr, "Warning: duplicate rule text for expression %s\n", rule.LicenseExpression)
		}
		seen[rule.Text] = struct{}{}

		if !rule.IsFalsePositive && strings.TrimSpace(rule.LicenseExpression) == "" {
			fmt.Fprintf(os.Stderr, "Warning: rule %s has an empty license_expression\n", rule.Identifier)
		}
	}
}

// ParseRequiredPhraseSpans extracts the token-position spans of {{...}}
// marked phrases from rule text. Positions count non-stopword tokens, the
// same positions the rule's token sequence uses. An unclosed marker is a
// build error.
func ParseRequiredPhraseSpans(text string) ([]*span.Span, error) {
	var spans []*span.Span
	pos := 0
	rest := text
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			break
		}
		pos += len(tokenize.Tokenize(rest[:open]))
		rest = rest[open+2:]

		end := strings.Index(rest, "}}")
		if end < 0 {
			return nil, fmt.Errorf("unclosed {{ required-phrase marker")
		}
		n := len(tokenize.Tokenize(rest[:end]))
		if n > 0 {
			spans = append(spans, span.FromRange(pos, pos+n))
		}
		pos += n
		rest = rest[end+2:]
	}
	return spans, nil
}
