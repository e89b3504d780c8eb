// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package spdx maps between ScanCode license keys and SPDX identifiers and
// translates whole license expressions between the two vocabularies.
package spdx

import (
	"fmt"
	"strings"

	"lichen-scan/internal/expression"
	"lichen-scan/internal/licenses"
)

// LicenseRefPrefix prefixes keys that have no listed SPDX identifier.
const LicenseRefPrefix = "LicenseRef-scancode-"

// Mapping is the bidirectional ScanCode key <-> SPDX identifier table.
// Built once from the loaded license corpus and read-only afterward.
type Mapping struct {
	spdxByKey map[string]string
	keyBySpdx map[string]string
}

// NewMapping builds the table from license records. A license without an
// SPDX identifier maps to "LicenseRef-scancode-<key>". When several keys
// share one SPDX identifier the first one wins for the reverse direction.
func NewMapping(lics []*licenses.License) *Mapping {
	m := &Mapping{
		spdxByKey: make(map[string]string, len(lics)),
		keyBySpdx: make(map[string]string, len(lics)),
	}
	for _, lic := range lics {
		spdxKey := lic.SpdxLicenseKey
		if spdxKey == "" {
			spdxKey = LicenseRefPrefix + lic.Key
		}
		m.spdxByKey[lic.Key] = spdxKey
		if _, taken := m.keyBySpdx[strings.ToLower(spdxKey)]; !taken {
			m.keyBySpdx[strings.ToLower(spdxKey)] = lic.Key
		}
	}
	return m
}

// ToSpdx returns the SPDX identifier for a ScanCode key.
func (m *Mapping) ToSpdx(scancodeKey string) (string, bool) {
	spdxKey, ok := m.spdxByKey[scancodeKey]
	return spdxKey, ok
}

// FromSpdx resolves an SPDX identifier (case-insensitive) to a ScanCode
// key. "LicenseRef-scancode-<key>" identifiers resolve to <key> even when
// the corpus never listed them.
func (m *Mapping) FromSpdx(spdxKey string) (string, bool) {
	lower := strings.ToLower(spdxKey)
	if key, ok := m.keyBySpdx[lower]; ok {
		return key, true
	}
	if strings.HasPrefix(lower, strings.ToLower(LicenseRefPrefix)) {
		return lower[len(LicenseRefPrefix):], true
	}
	return "", false
}

// KeyCount returns the number of mapped ScanCode keys.
func (m *Mapping) KeyCount() int {
	return len(m.spdxByKey)
}

// ExpressionToSpdx translates a ScanCode-keyed expression string into its
// SPDX rendering. Keys with no mapping become LicenseRef identifiers.
func (m *Mapping) ExpressionToSpdx(scancodeExpr string) (string, error) {
	parsed, err := expression.Parse(scancodeExpr)
	if err != nil {
		return "", fmt.Errorf("translating %q: %w", scancodeExpr, err)
	}
	return expression.String(m.convert(parsed)), nil
}

func (m *Mapping) convert(e expression.Expression) expression.Expression {
	switch n := e.(type) {
	case expression.License:
		spdxKey, ok := m.spdxByKey[n.Key]
		if !ok {
			return expression.LicenseRef{Key: LicenseRefPrefix + n.Key}
		}
		if strings.HasPrefix(spdxKey, "LicenseRef-") {
			return expression.LicenseRef{Key: spdxKey}
		}
		return expression.License{Key: spdxKey}
	case expression.LicenseRef:
		if spdxKey, ok := m.spdxByKey[n.Key]; ok {
			return expression.LicenseRef{Key: spdxKey}
		}
		return n
	case expression.And:
		return expression.And{Operands: m.convertAll(n.Operands)}
	case expression.Or:
		return expression.Or{Operands: m.convertAll(n.Operands)}
	case expression.With:
		return expression.With{
			License:   m.convert(n.License),
			Exception: m.convert(n.Exception),
		}
	}
	return e
}

func (m *Mapping) convertAll(operands []expression.Expression) []expression.Expression {
	out := make([]expression.Expression, len(operands))
	for i, op := range operands {
		out[i] = m.convert(op)
	}
	return out
}
