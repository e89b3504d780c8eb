// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tokenize

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "simple words",
			input:    "Hello World",
			expected: []string{"hello", "world"},
		},
		{
			name:  "punctuation and stopword a",
			input: "Hello, World! This is a test.",
			// "a" is dropped because it is an HTML tag stopword
			expected: []string{"hello", "world", "this", "is", "test"},
		},
		{
			name:     "mixed case and spacing",
			input:    "some Text with   spAces!",
			expected: []string{"some", "text", "with", "spaces"},
		},
		{
			name:     "trailing plus preserved",
			input:    "GPL2+ and GPL3",
			expected: []string{"gpl2+", "and", "gpl3"},
		},
		{
			name:     "stopwords filtered",
			input:    "Hello div World p",
			expected: []string{"hello", "world"},
		},
		{
			name:     "special characters",
			input:    "special+-_!@ chars",
			expected: []string{"special+", "chars"},
		},
		{
			name:     "underscores split",
			input:    "hello_world foo_bar",
			expected: []string{"hello", "world", "foo", "bar"},
		},
		{
			name:     "numbers split on dot",
			input:    "version 2.0 and 3.0",
			expected: []string{"version", "2", "0", "and", "3", "0"},
		},
		{
			name:     "double plus collapses",
			input:    "C++ and GPL+",
			expected: []string{"c+", "and", "gpl+"},
		},
		{
			name:     "braces stripped",
			input:    "{{Hi}}some {{}}Text with{{noth+-_!@ing}}   {{junk}}spAces!",
			expected: []string{"hi", "some", "text", "with", "noth+", "ing", "junk", "spaces"},
		},
		{
			name:     "entities filtered",
			input:    "some &quot< markup &gt\"",
			expected: []string{"some", "markup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenizeKeepStopwords(t *testing.T) {
	got := TokenizeKeepStopwords("Hello div World p")
	expected := []string{"hello", "div", "world", "p"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("TokenizeKeepStopwords = %v, want %v", got, expected)
	}

	if TokenizeKeepStopwords("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestIsStopword(t *testing.T) {
	for _, w := range []string{"div", "quot", "rem", "dnl", "printf", "echo"} {
		if !IsStopword(w) {
			t.Errorf("expected %q to be a stopword", w)
		}
	}
	for _, w := range []string{"license", "copyright", "mit"} {
		if IsStopword(w) {
			t.Errorf("did not expect %q to be a stopword", w)
		}
	}
}

func TestIsDigitsOnly(t *testing.T) {
	tests := []struct {
		token    string
		expected bool
	}{
		{"2024", true},
		{"0", true},
		{"", false},
		{"v2", false},
		{"2+", false},
	}
	for _, tt := range tests {
		if got := IsDigitsOnly(tt.token); got != tt.expected {
			t.Errorf("IsDigitsOnly(%q) = %v, want %v", tt.token, got, tt.expected)
		}
	}
}
