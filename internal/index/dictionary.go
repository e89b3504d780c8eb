// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package index compiles the rule corpus into the structures the matchers
// query: the token dictionary, per-rule token sequences and sets, hash and
// automaton lookups, and rule classification sets.
package index

import (
	"lichen-scan/internal/licenses"
)

// TokenDictionary maps token strings to small integer ids. Ids below the
// legalese count are reserved for license-significant words; all other
// tokens are assigned ids in encounter order.
type TokenDictionary struct {
	ids         map[string]uint16
	lenLegalese int
	nextID      uint16
}

// NewDictionary builds a dictionary pre-seeded with the legalese entries.
// Equivalent spellings share a pre-assigned id.
func NewDictionary(legalese []licenses.LegaleseEntry) *TokenDictionary {
	ids := make(map[string]uint16, len(legalese)*4)
	max := uint16(0)
	for _, e := range legalese {
		ids[e.Word] = e.ID
		if e.ID > max {
			max = e.ID
		}
	}
	lenLegalese := 0
	if len(legalese) > 0 {
		lenLegalese = int(max) + 1
	}
	return &TokenDictionary{
		ids:         ids,
		lenLegalese: lenLegalese,
		nextID:      uint16(lenLegalese),
	}
}

// GetOrAssign returns the token's id, assigning the next free id for a new
// token.
func (d *TokenDictionary) GetOrAssign(token string) uint16 {
	if id, ok := d.ids[token]; ok {
		return id
	}
	id := d.nextID
	d.nextID++
	d.ids[token] = id
	return id
}

// Get returns the token's id if the token is known.
func (d *TokenDictionary) Get(token string) (uint16, bool) {
	id, ok := d.ids[token]
	return id, ok
}

// IsLegalese reports whether the id is in the reserved legalese range.
func (d *TokenDictionary) IsLegalese(id uint16) bool {
	return int(id) < d.lenLegalese
}

// LegaleseCount returns the number of reserved legalese ids.
func (d *TokenDictionary) LegaleseCount() int {
	return d.lenLegalese
}

// Len returns the number of registered tokens.
func (d *TokenDictionary) Len() int {
	return len(d.ids)
}

// Tokens returns the underlying token-to-id map. Callers must not mutate it.
func (d *TokenDictionary) Tokens() map[string]uint16 {
	return d.ids
}
