// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tokenize

// stopwords are common words ignored from matching: HTML tags and entities,
// comment-line markers, CSS property names and similar markup noise that
// surrounds license text in real files.
var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	words := []string{
		// XML character references as in &quot;
		"amp", "apos", "gt", "lt", "nbsp", "quot",

		// HTML tags as in <a href=...>...</a>
		"a", "abbr", "alt", "blockquote", "body", "br", "class", "div",
		"em", "h1", "h2", "h3", "h4", "h5", "hr", "href", "img", "li",
		"ol", "p", "pre", "rel", "script", "span", "src", "td", "th",
		"tr", "ul",

		// comment line markers: batch files and autotools
		"rem", "dnl",

		// DocBook tags as in <para>
		"para", "ulink",

		// HTML punctuation entities as in &emdash;
		"bdquo", "bull", "bullet", "colon", "comma", "emdash", "emsp",
		"ensp", "ge", "hairsp", "ldquo", "ldquor", "le", "lpar",
		"lsaquo", "lsquo", "lsquor", "mdash", "ndash", "numsp",
		"period", "puncsp", "raquo", "rdquo", "rdquor", "rpar",
		"rsaquo", "rsquo", "rsquor", "sbquo", "semi", "thinsp", "tilde",

		// XML char entities
		"x3c", "x3e",

		// seen in many CSS files
		"lists", "side", "nav", "height", "auto", "border", "padding", "width",

		// Perl POD headings
		"head1", "head2", "head3",

		// common in C literals
		"printf",

		// common in shell
		"echo",
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether the lowercase token is in the stopword set.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
