// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package expression

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyExpression is returned when the input has no tokens.
var ErrEmptyExpression = errors.New("empty license expression")

// ParseError reports where and why parsing failed.
type ParseError struct {
	Expression string
	Message    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid license expression %q: %s", e.Expression, e.Message)
}

type tokenKind int

const (
	tokKey tokenKind = iota
	tokAnd
	tokOr
	tokWith
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

// Parse builds the AST for a license expression string. Operator keywords
// are case-insensitive; license keys are lower-cased except LicenseRef
// identifiers which keep their spelling.
func Parse(input string) (Expression, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyExpression
	}
	p := &parser{input: input, tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, p.errorf("unexpected token %q", p.tokens[p.pos].text)
	}
	return expr, nil
}

func lex(input string) ([]token, error) {
	var tokens []token
	word := strings.Builder{}
	flush := func() {
		if word.Len() == 0 {
			return
		}
		text := word.String()
		word.Reset()
		switch strings.ToUpper(text) {
		case "AND":
			tokens = append(tokens, token{tokAnd, text})
		case "OR":
			tokens = append(tokens, token{tokOr, text})
		case "WITH":
			tokens = append(tokens, token{tokWith, text})
		default:
			tokens = append(tokens, token{tokKey, text})
		}
	}
	for _, r := range input {
		switch {
		case r == '(':
			flush()
			tokens = append(tokens, token{tokLParen, "("})
		case r == ')':
			flush()
			tokens = append(tokens, token{tokRParen, ")"})
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		case isKeyRune(r):
			word.WriteRune(r)
		default:
			return nil, &ParseError{Expression: input,
				Message: fmt.Sprintf("invalid character %q", r)}
		}
	}
	flush()
	return tokens, nil
}

func isKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '.' || r == '+' || r == '_' || r == ':':
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Expression: p.input, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Expression{left}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOr {
			break
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return Or{Operands: operands}, nil
}

func (p *parser) parseAnd() (Expression, error) {
	left, err := p.parseWith()
	if err != nil {
		return nil, err
	}
	operands := []Expression{left}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokAnd {
			break
		}
		p.pos++
		right, err := p.parseWith()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return And{Operands: operands}, nil
}

func (p *parser) parseWith() (Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	tok, ok := p.peek()
	if !ok || tok.kind != tokWith {
		return left, nil
	}
	p.pos++
	exception, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return With{License: left, Exception: exception}, nil
}

func (p *parser) parsePrimary() (Expression, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of expression")
	}
	switch tok.kind {
	case tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, p.errorf("unmatched parenthesis")
		}
		p.pos++
		return inner, nil
	case tokKey:
		p.pos++
		if strings.HasPrefix(strings.ToLower(tok.text), "licenseref-") {
			return LicenseRef{Key: tok.text}, nil
		}
		return License{Key: strings.ToLower(tok.text)}, nil
	case tokRParen:
		return nil, p.errorf("unmatched parenthesis")
	default:
		return nil, p.errorf("unexpected token %q", tok.text)
	}
}
