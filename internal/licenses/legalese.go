// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package licenses

// LegaleseEntry binds one word to its pre-assigned low token id. Several
// words can share an id when they are spelling variants of the same term.
type LegaleseEntry struct {
	Word string
	ID   uint16
}

// legaleseWords is the curated list of license-significant words. These get
// the lowest token ids so the matchers can tell high-signal tokens from
// ordinary prose.
var legaleseWords = []LegaleseEntry{
	{"license", 0}, {"licence", 0},
	{"copyright", 1},
	{"redistribute", 2},
	{"permit", 3},
	{"permission", 4},
	{"derivative", 5},
	{"commercial", 6},
	{"noncommercial", 7},
	{"agreement", 8},
	{"warranty", 9}, {"warranties", 9},
	{"disclaimer", 10},
	{"liability", 11},
	{"contribute", 12},
	{"contribution", 13},
	{"modification", 14},
	{"modify", 15},
	{"restriction", 16},
	{"intellectual", 17},
	{"property", 18},
	{"patent", 19},
	{"trademark", 20},
	{"notice", 21},
	{"conditions", 22},
	{"obligate", 23},
	{"obligation", 24},
	{"enforceable", 25},
	{"statutory", 26},
	{"consequential", 27},
	{"indemnify", 28},
	{"indemnification", 29},
	{"accordance", 30},
	{"pursuant", 31},
	{"hereby", 32},
	{"hereunder", 33},
	{"hereinafter", 34},
	{"foregoing", 35},
	{"aforementioned", 36},
	{"notwithstanding", 37},
	{"terminate", 38},
	{"termination", 39},
	{"grant", 40},
	{"granted", 41},
	{"guarantee", 42}, {"guaranty", 42},
	{"acknowledge", 43},
	{"acknowledgement", 44},
	{"express", 45},
	{"implied", 46},
	{"contract", 47},
	{"binding", 48},
	{"merchantability", 49},

	// GPL family
	{"gpl", 50},
	{"gnu", 51},
	{"general", 52},
	{"public", 53},
	{"copyleft", 54},

	// permissive license names
	{"mit", 55},
	{"bsd", 56},
	{"apache", 57},
	{"mozilla", 58},

	// words common in short notices
	{"licensed", 59},
	{"rights", 60},
	{"reserved", 61},
	{"distribution", 62},
}

// LegaleseCount returns the number of reserved legalese token ids.
func LegaleseCount() int {
	max := uint16(0)
	for _, e := range legaleseWords {
		if e.ID > max {
			max = e.ID
		}
	}
	return int(max) + 1
}

// LegaleseWords returns the legalese entries ordered by token id.
func LegaleseWords() []LegaleseEntry {
	out := make([]LegaleseEntry, len(legaleseWords))
	copy(out, legaleseWords)
	return out
}

// LegaleseToken returns the pre-assigned token id for a word, if any.
func LegaleseToken(word string) (uint16, bool) {
	for _, e := range legaleseWords {
		if e.Word == word {
			return e.ID, true
		}
	}
	return 0, false
}

// IsLegaleseWord reports whether the word is in the legalese list.
func IsLegaleseWord(word string) bool {
	_, ok := LegaleseToken(word)
	return ok
}
