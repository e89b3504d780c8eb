// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"strings"

	"lichen-scan/internal/expression"
	"lichen-scan/internal/licenses"
	"lichen-scan/internal/query"
	"lichen-scan/internal/spdx"
)

// SpdxMatch emits one match per recorded SPDX identifier line, at 100%
// coverage, using the line's actual token positions. Lines whose trailing
// expression cannot be parsed are skipped.
func SpdxMatch(q *query.Query, mapping *spdx.Mapping) []*LicenseMatch {
	var matches []*LicenseMatch
	for _, line := range q.SpdxLines {
		cleaned := CleanSpdxText(line.Text)
		if cleaned == "" {
			continue
		}
		parsed, err := expression.Parse(cleaned)
		if err != nil {
			continue
		}
		scancodeExpr := expression.String(toScancodeKeys(parsed, mapping))

		// A synthetic tag rule stands in for the matched line; there is no
		// corpus rule behind an SPDX identifier.
		rule := &licenses.Rule{
			Identifier:        "spdx-license-identifier-" + sanitizeIdentifier(scancodeExpr),
			LicenseExpression: scancodeExpr,
			IsLicenseTag:      true,
			Relevance:         100,
			MinimumCoverage:   100,
		}

		length := line.EndPos - line.StartPos
		hiLen := 0
		for pos := line.StartPos; pos < line.EndPos; pos++ {
			if q.IsHighToken(pos) {
				hiLen++
			}
		}

		matches = append(matches, &LicenseMatch{
			RID:                   -1,
			Rule:                  rule,
			LicenseExpression:     scancodeExpr,
			LicenseExpressionSPDX: cleaned,
			Matcher:               MatcherSpdxID,
			MatchedLength:         length,
			MatchCoverage:         100,
			Score:                 computeScore(100, rule.Relevance),
			RuleRelevance:         rule.Relevance,
			StartToken:            line.StartPos,
			EndToken:              line.EndPos,
			HiLen:                 hiLen,
			StartLine:             line.Line,
			EndLine:               line.Line,
		})
	}
	return matches
}

func toScancodeKeys(e expression.Expression, mapping *spdx.Mapping) expression.Expression {
	switch n := e.(type) {
	case expression.License:
		return expression.License{Key: scancodeKeyFor(n.Key, mapping)}
	case expression.LicenseRef:
		return expression.License{Key: scancodeKeyFor(n.Key, mapping)}
	case expression.And:
		return expression.And{Operands: allToScancode(n.Operands, mapping)}
	case expression.Or:
		return expression.Or{Operands: allToScancode(n.Operands, mapping)}
	case expression.With:
		return expression.With{
			License:   toScancodeKeys(n.License, mapping),
			Exception: toScancodeKeys(n.Exception, mapping),
		}
	}
	return e
}

func allToScancode(operands []expression.Expression, mapping *spdx.Mapping) []expression.Expression {
	out := make([]expression.Expression, len(operands))
	for i, op := range operands {
		out[i] = toScancodeKeys(op, mapping)
	}
	return out
}

// scancodeKeyFor maps an SPDX identifier to its ScanCode key, falling back
// to the lower-cased identifier when the corpus does not list it.
func scancodeKeyFor(spdxKey string, mapping *spdx.Mapping) string {
	if mapping != nil {
		if key, ok := mapping.FromSpdx(spdxKey); ok {
			return key
		}
	}
	return strings.ToLower(spdxKey)
}

func sanitizeIdentifier(expr string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(expr) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// CleanSpdxText normalizes the expression text that follows an SPDX
// identifier prefix: dangling markup is removed, whitespace collapsed,
// edge punctuation stripped and a lone unbalanced parenthesis dropped.
func CleanSpdxText(text string) string {
	for _, tag := range []string{"</a>", "</p>", "</div>", "</licenseUrl>"} {
		text = strings.ReplaceAll(text, tag, "")
	}
	text = normalizeSpaces(text)
	text = stripEdgePunctuation(text)
	text = fixUnbalancedParens(text)

	if strings.Contains(text, "\">") {
		parts := strings.SplitN(text, "\">", 2)
		if len(parts) == 2 && strings.Contains(parts[1], parts[0]) {
			text = parts[0]
		}
	}
	return normalizeSpaces(text)
}

func normalizeSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

const edgePunctuation = "!\"#$%&'*,-./:;<=>?@[\\]^_`{|}~ \t\r\n"

func stripEdgePunctuation(text string) string {
	text = strings.TrimLeft(text, edgePunctuation+")")
	text = strings.TrimRight(text, edgePunctuation+"(")
	return text
}

func fixUnbalancedParens(text string) string {
	open := strings.Count(text, "(")
	closed := strings.Count(text, ")")
	if open == 1 && closed == 0 {
		return strings.ReplaceAll(text, "(", " ")
	}
	if closed == 1 && open == 0 {
		return strings.ReplaceAll(text, ")", " ")
	}
	return text
}
