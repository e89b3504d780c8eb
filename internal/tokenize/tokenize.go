// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tokenize

import (
	"regexp"
	"strings"
)

// wordPattern splits on whitespace and punctuation, keeping only letters,
// digits and a single embedded or trailing plus sign. "GPL2+" stays one
// token, "hello_world" splits in two.
var wordPattern = regexp.MustCompile(`[A-Za-z0-9]+\+?[A-Za-z0-9]*`)

// Tokenize splits text into lowercase word tokens with stopwords removed.
// This is the normalization used for both rule indexing and query text.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	for _, token := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if token == "" || IsStopword(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// TokenizeKeepStopwords splits text into lowercase word tokens, keeping
// stopwords. Query construction uses this so stopwords can be counted by
// position instead of silently dropped.
func TokenizeKeepStopwords(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	for _, token := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// IsDigitsOnly reports whether every byte of the token is an ASCII digit.
func IsDigitsOnly(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}
