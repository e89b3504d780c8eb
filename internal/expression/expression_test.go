// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	expr, err := Parse("MIT")
	require.NoError(t, err)
	assert.Equal(t, License{Key: "mit"}, expr)
}

func TestParseOperators(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"mit", "mit"},
		{"mit OR apache-2.0", "mit OR apache-2.0"},
		{"mit AND apache-2.0", "mit AND apache-2.0"},
		{"mit and apache-2.0", "mit AND apache-2.0"},
		{"gpl-2.0 WITH classpath-exception-2.0", "gpl-2.0 WITH classpath-exception-2.0"},
		{"mit OR apache-2.0 AND bsd-new", "mit OR apache-2.0 AND bsd-new"},
		{"(mit OR apache-2.0) AND bsd-new", "(mit OR apache-2.0) AND bsd-new"},
		{"gpl-2.0 WITH classpath-exception-2.0 OR mit", "gpl-2.0 WITH classpath-exception-2.0 OR mit"},
		{"gpl-2.0-plus", "gpl-2.0-plus"},
		{"LicenseRef-scancode-unknown", "LicenseRef-scancode-unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, String(expr))
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unmatched open", "(mit"},
		{"unmatched close", "mit)"},
		{"dangling operator", "mit OR"},
		{"leading operator", "AND mit"},
		{"bad character", "mit & apache"},
		{"missing exception", "gpl-2.0 WITH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestSimplifyDeduplicates(t *testing.T) {
	expr, err := Parse("mit AND mit AND apache-2.0")
	require.NoError(t, err)
	assert.Equal(t, "mit AND apache-2.0", String(Simplify(expr)))

	expr, err = Parse("mit OR mit")
	require.NoError(t, err)
	assert.Equal(t, "mit", String(Simplify(expr)))
}

func TestSimplifyFlattens(t *testing.T) {
	expr, err := Parse("(mit AND apache-2.0) AND (mit AND bsd-new)")
	require.NoError(t, err)
	assert.Equal(t, "mit AND apache-2.0 AND bsd-new", String(Simplify(expr)))
}

func TestStringMinimalParentheses(t *testing.T) {
	// OR under AND needs parentheses, AND under OR does not.
	expr := And{Operands: []Expression{
		Or{Operands: []Expression{License{"mit"}, License{"apache-2.0"}}},
		License{"bsd-new"},
	}}
	assert.Equal(t, "(mit OR apache-2.0) AND bsd-new", String(expr))

	expr2 := Or{Operands: []Expression{
		And{Operands: []Expression{License{"mit"}, License{"apache-2.0"}}},
		License{"bsd-new"},
	}}
	assert.Equal(t, "mit AND apache-2.0 OR bsd-new", String(expr2))

	// WITH binds tightest and never needs parentheses.
	expr3 := And{Operands: []Expression{
		With{License: License{"gpl-2.0"}, Exception: License{"classpath-exception-2.0"}},
		License{"mit"},
	}}
	assert.Equal(t, "gpl-2.0 WITH classpath-exception-2.0 AND mit", String(expr3))
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"mit",
		"mit OR apache-2.0",
		"mit AND apache-2.0 AND bsd-new",
		"(mit OR apache-2.0) AND gpl-2.0",
		"gpl-2.0 WITH classpath-exception-2.0 OR mit",
		"mit AND mit OR apache-2.0",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input)
			require.NoError(t, err)
			simplified := Simplify(first)
			reparsed, err := Parse(String(simplified))
			require.NoError(t, err)
			assert.True(t, Equal(simplified, reparsed),
				"round trip changed %q into %q", String(simplified), String(Simplify(reparsed)))
		})
	}
}

func TestContainsEquality(t *testing.T) {
	assert.True(t, ContainsExpressions("mit", "mit"))
	assert.True(t, ContainsExpressions("mit OR apache-2.0", "apache-2.0 OR mit"),
		"operand order must not matter")
	assert.False(t, ContainsExpressions("mit", "apache-2.0"))
}

func TestContainsDirectOperand(t *testing.T) {
	assert.True(t, ContainsExpressions("mit OR apache-2.0", "mit"))
	assert.True(t, ContainsExpressions("mit AND apache-2.0", "apache-2.0"))
	assert.False(t, ContainsExpressions("mit", "mit OR apache-2.0"))
}

func TestContainsDoesNotRecurse(t *testing.T) {
	// (A OR B) AND C contains the sub-expression A OR B and C, but not
	// bare A.
	container := "(mit OR apache-2.0) AND gpl-2.0"
	assert.False(t, ContainsExpressions(container, "mit"))
	assert.True(t, ContainsExpressions(container, "mit OR apache-2.0"))
	assert.True(t, ContainsExpressions(container, "gpl-2.0"))
}

func TestContainsSameOperatorSubset(t *testing.T) {
	assert.True(t, ContainsExpressions("mit OR apache-2.0 OR bsd-new", "mit OR bsd-new"))
	assert.False(t, ContainsExpressions("mit OR apache-2.0", "mit OR gpl-2.0"))
	assert.True(t, ContainsExpressions("mit AND apache-2.0 AND bsd-new", "apache-2.0 AND mit"))
}

func TestContainsWithDecomposition(t *testing.T) {
	assert.True(t, ContainsExpressions("gpl-2.0 WITH classpath-exception-2.0", "gpl-2.0"))
	assert.True(t, ContainsExpressions("gpl-2.0 WITH classpath-exception-2.0", "classpath-exception-2.0"))
	assert.False(t, ContainsExpressions("gpl-2.0", "gpl-2.0 WITH classpath-exception-2.0"))
}

func TestContainsNoSuffixRelation(t *testing.T) {
	assert.False(t, ContainsExpressions("gpl-2.0-plus", "gpl-2.0"))
	assert.False(t, ContainsExpressions("gpl-2.0", "gpl-2.0-plus"))
	assert.False(t, ContainsExpressions("apache-2.0", "apache"))
}

func TestContainsInvalidOperands(t *testing.T) {
	assert.False(t, ContainsExpressions("", "mit"))
	assert.False(t, ContainsExpressions("mit", ""))
	assert.False(t, ContainsExpressions("mit OR", "mit"))
}

func TestContainsAntisymmetry(t *testing.T) {
	pairs := [][2]string{
		{"mit OR apache-2.0", "mit"},
		{"gpl-2.0 WITH classpath-exception-2.0", "gpl-2.0"},
		{"mit AND apache-2.0 AND bsd-new", "mit AND apache-2.0"},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if ContainsExpressions(a, b) && ContainsExpressions(b, a) {
			ea, _ := Parse(a)
			eb, _ := Parse(b)
			assert.True(t, Equal(ea, eb),
				"mutual containment of %q and %q requires equality", a, b)
		}
	}
}

func TestCombine(t *testing.T) {
	got, err := Combine([]string{"mit", "apache-2.0"}, "AND", false)
	require.NoError(t, err)
	assert.Equal(t, "mit AND apache-2.0", got)

	got, err = Combine([]string{"mit", "mit", "apache-2.0"}, "OR", true)
	require.NoError(t, err)
	assert.Equal(t, "mit OR apache-2.0", got)

	got, err = Combine([]string{"mit OR bsd-new", "apache-2.0"}, "AND", false)
	require.NoError(t, err)
	assert.Equal(t, "(mit OR bsd-new) AND apache-2.0", got)

	got, err = Combine([]string{"mit"}, "AND", true)
	require.NoError(t, err)
	assert.Equal(t, "mit", got)

	got, err = Combine([]string{"", "  "}, "OR", false)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = Combine([]string{"mit", "(("}, "OR", false)
	assert.Error(t, err)
}
