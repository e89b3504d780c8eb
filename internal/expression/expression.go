// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package expression parses, simplifies, renders and compares license
// expressions such as "gpl-2.0 WITH classpath-exception-2.0 OR mit".
// Precedence, tightest first: parentheses, WITH, AND, OR.
package expression

import (
	"sort"
	"strings"
)

// Expression is a parsed license expression node.
type Expression interface {
	// precedence orders operators for minimal-parentheses rendering; leaf
	// nodes rank highest.
	precedence() int
}

// License is a bare license key, e.g. "mit".
type License struct {
	Key string
}

// LicenseRef is a non-listed license reference, e.g. "LicenseRef-scancode-x".
type LicenseRef struct {
	Key string
}

// With pairs a license with an exception, e.g. "gpl-2.0 WITH classpath-exception-2.0".
type With struct {
	License   Expression
	Exception Expression
}

// And is a conjunction of two or more operands.
type And struct {
	Operands []Expression
}

// Or is a disjunction of two or more operands.
type Or struct {
	Operands []Expression
}

const (
	precOr = iota + 1
	precAnd
	precWith
	precLeaf
)

func (License) precedence() int    { return precLeaf }
func (LicenseRef) precedence() int { return precLeaf }
func (With) precedence() int       { return precWith }
func (And) precedence() int        { return precAnd }
func (Or) precedence() int         { return precOr }

// String renders the expression with minimal parentheses: a child is
// parenthesized only when its operator binds strictly looser than its
// parent's.
func String(e Expression) string {
	switch n := e.(type) {
	case License:
		return n.Key
	case LicenseRef:
		return n.Key
	case With:
		return renderChild(n.License, precWith) + " WITH " + renderChild(n.Exception, precWith)
	case And:
		return renderNary(n.Operands, " AND ", precAnd)
	case Or:
		return renderNary(n.Operands, " OR ", precOr)
	}
	return ""
}

func renderNary(operands []Expression, sep string, parentPrec int) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = renderChild(op, parentPrec)
	}
	return strings.Join(parts, sep)
}

func renderChild(child Expression, parentPrec int) string {
	s := String(child)
	if child.precedence() < parentPrec {
		return "(" + s + ")"
	}
	return s
}

// Simplify flattens nested same-operator nodes and deduplicates operands
// within a single AND/OR level, keyed by the operand's canonical form.
// Single-operand nodes collapse to their operand.
func Simplify(e Expression) Expression {
	switch n := e.(type) {
	case And:
		return simplifyNary(n.Operands, true)
	case Or:
		return simplifyNary(n.Operands, false)
	case With:
		return With{License: Simplify(n.License), Exception: Simplify(n.Exception)}
	default:
		return e
	}
}

func simplifyNary(operands []Expression, isAnd bool) Expression {
	var flat []Expression
	seen := make(map[string]struct{})
	var walk func(ops []Expression)
	walk = func(ops []Expression) {
		for _, op := range ops {
			switch child := op.(type) {
			case And:
				if isAnd {
					walk(child.Operands)
					continue
				}
			case Or:
				if !isAnd {
					walk(child.Operands)
					continue
				}
			}
			simplified := Simplify(op)
			key := canonicalKey(simplified)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			flat = append(flat, simplified)
		}
	}
	walk(operands)

	if len(flat) == 1 {
		return flat[0]
	}
	if isAnd {
		return And{Operands: flat}
	}
	return Or{Operands: flat}
}

// canonicalKey renders an order-independent identity for an expression:
// AND/OR operand keys are sorted so that "a AND b" and "b AND a" compare
// equal.
func canonicalKey(e Expression) string {
	switch n := e.(type) {
	case License:
		return n.Key
	case LicenseRef:
		return strings.ToLower(n.Key)
	case With:
		return canonicalKey(n.License) + " WITH " + canonicalKey(n.Exception)
	case And:
		return canonicalNary(n.Operands, " AND ")
	case Or:
		return canonicalNary(n.Operands, " OR ")
	}
	return ""
}

func canonicalNary(operands []Expression, sep string) string {
	keys := make([]string, len(operands))
	for i, op := range operands {
		key := canonicalKey(op)
		if op.precedence() < precLeaf {
			key = "(" + key + ")"
		}
		keys[i] = key
	}
	sort.Strings(keys)
	return strings.Join(keys, sep)
}

// Equal reports whether two expressions are the same after simplification,
// ignoring operand order within AND/OR.
func Equal(a, b Expression) bool {
	return canonicalKey(Simplify(a)) == canonicalKey(Simplify(b))
}

// Contains reports whether container semantically contains contained. Both
// are simplified first.
//
// The relation is deliberately shallow: for an AND/OR container a single
// license is contained only when it appears as a direct operand, never
// inside a nested sub-expression. A WITH container decomposes into its
// license and exception for this check. Version-suffixed keys are wholly
// distinct: "gpl-2.0-plus" never contains "gpl-2.0".
func Contains(container, contained Expression) bool {
	container = Simplify(container)
	contained = Simplify(contained)

	if canonicalKey(container) == canonicalKey(contained) {
		return true
	}

	switch c := container.(type) {
	case And:
		return containsNary(c.Operands, contained, true)
	case Or:
		return containsNary(c.Operands, contained, false)
	case With:
		return canonicalKey(c.License) == canonicalKey(contained) ||
			canonicalKey(c.Exception) == canonicalKey(contained)
	}
	return false
}

func containsNary(operands []Expression, contained Expression, isAnd bool) bool {
	// Same-operator containment: every operand of contained must match
	// some operand of the container.
	var innerOps []Expression
	switch inner := contained.(type) {
	case And:
		if isAnd {
			innerOps = inner.Operands
		}
	case Or:
		if !isAnd {
			innerOps = inner.Operands
		}
	}
	if innerOps != nil {
		for _, want := range innerOps {
			if !memberOf(operands, want) {
				return false
			}
		}
		return true
	}
	return memberOf(operands, contained)
}

func memberOf(operands []Expression, want Expression) bool {
	key := canonicalKey(want)
	for _, op := range operands {
		if canonicalKey(op) == key {
			return true
		}
	}
	return false
}

// ContainsExpressions parses, simplifies and compares two expression
// strings. Unparsable or empty operands are never contained.
func ContainsExpressions(container, contained string) bool {
	a, err := Parse(container)
	if err != nil {
		return false
	}
	b, err := Parse(contained)
	if err != nil {
		return false
	}
	return Contains(a, b)
}

// Combine folds expression strings into one with the given relation ("AND"
// or "OR"), optionally deduplicating simplification-equal entries. Empty
// strings are skipped; an unparsable entry aborts with its parse error.
func Combine(exprs []string, relation string, unique bool) (string, error) {
	var operands []Expression
	seen := make(map[string]struct{})
	for _, s := range exprs {
		if strings.TrimSpace(s) == "" {
			continue
		}
		parsed, err := Parse(s)
		if err != nil {
			return "", err
		}
		simplified := Simplify(parsed)
		if unique {
			key := canonicalKey(simplified)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		operands = append(operands, simplified)
	}

	switch len(operands) {
	case 0:
		return "", nil
	case 1:
		return String(operands[0]), nil
	}
	var combined Expression
	if strings.EqualFold(relation, "AND") {
		combined = And{Operands: operands}
	} else {
		combined = Or{Operands: operands}
	}
	return String(Simplify(combined)), nil
}
