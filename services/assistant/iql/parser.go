// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package iql

import (
	"fmt"
	"strings"
	"unicode"
)

// tokenKind classifies lexer output.
type tokenKind int

const (
	tokWord tokenKind = iota // bare word or keyword
	tokString                // double-quoted string, quotes stripped
	tokEq
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

// lex splits a predicate string into tokens. Quoted strings may contain
// spaces and any punctuation except an unescaped double quote.
func lex(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '=':
			toks = append(toks, token{tokEq, "="})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string at offset %d: %w", i, ErrMalformedPredicate)
			}
			toks = append(toks, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case isWordRune(r):
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			toks = append(toks, token{tokWord, string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d: %w", r, i, ErrMalformedPredicate)
		}
	}
	return toks, nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// parser walks a token stream.
type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token, bool) {
	if p.done() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// Parse reads a predicate from its textual form.
//
// Description:
//
//	Grammar, keywords case-insensitive:
//
//	  predicate := condition ("AND" condition)*
//	  condition := field "=" value
//	             | field "IN" "(" value ("," value)* ")"
//	             | "assignee" "IS" "EMPTY"
//	  value     := quoted string | bare word
//
//	The result is validated before return, so callers never receive a
//	structurally invalid predicate.
//
// Outputs:
//
//	Predicate - The parsed conjunction.
//	error - ErrMalformedPredicate (wrapped) on syntax errors, or any
//	        Validate error on structural ones.
func Parse(input string) (Predicate, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	var pred Predicate
	for {
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		pred = append(pred, cond)

		t, ok := p.peek()
		if !ok {
			break
		}
		if t.kind != tokWord || !strings.EqualFold(t.text, "AND") {
			return nil, fmt.Errorf("expected AND, got %q: %w", t.text, ErrMalformedPredicate)
		}
		p.next()
	}

	if err := pred.Validate(); err != nil {
		return nil, err
	}
	return pred, nil
}

// condition parses one conjunct.
func (p *parser) condition() (Condition, error) {
	t, ok := p.next()
	if !ok {
		return Condition{}, fmt.Errorf("expected field name: %w", ErrMalformedPredicate)
	}
	if t.kind != tokWord {
		return Condition{}, fmt.Errorf("expected field name, got %q: %w", t.text, ErrMalformedPredicate)
	}
	field := strings.ToLower(t.text)

	op, ok := p.next()
	if !ok {
		return Condition{}, fmt.Errorf("field %q: expected operator: %w", field, ErrMalformedPredicate)
	}

	switch {
	case op.kind == tokEq:
		v, err := p.value(field)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Op: OpEq, Values: []string{v}}, nil

	case op.kind == tokWord && strings.EqualFold(op.text, "IN"):
		values, err := p.valueList(field)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Op: OpIn, Values: values}, nil

	case op.kind == tokWord && strings.EqualFold(op.text, "IS"):
		kw, ok := p.next()
		if !ok || kw.kind != tokWord || !strings.EqualFold(kw.text, "EMPTY") {
			return Condition{}, fmt.Errorf("field %q: expected EMPTY after IS: %w", field, ErrMalformedPredicate)
		}
		return Condition{Field: field, Op: OpIsEmpty}, nil

	default:
		return Condition{}, fmt.Errorf("field %q: operator %q: %w", field, op.text, ErrUnsupportedOperator)
	}
}

// value parses a single quoted or bare value.
func (p *parser) value(field string) (string, error) {
	t, ok := p.next()
	if !ok {
		return "", fmt.Errorf("field %q: expected value: %w", field, ErrMalformedPredicate)
	}
	switch t.kind {
	case tokString, tokWord:
		return t.text, nil
	default:
		return "", fmt.Errorf("field %q: expected value, got %q: %w", field, t.text, ErrMalformedPredicate)
	}
}

// valueList parses a parenthesized, comma-separated value list.
func (p *parser) valueList(field string) ([]string, error) {
	t, ok := p.next()
	if !ok || t.kind != tokLParen {
		return nil, fmt.Errorf("field %q: expected ( after IN: %w", field, ErrMalformedPredicate)
	}

	var values []string
	for {
		v, err := p.value(field)
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		t, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("field %q: unterminated value list: %w", field, ErrMalformedPredicate)
		}
		if t.kind == tokRParen {
			return values, nil
		}
		if t.kind != tokComma {
			return nil, fmt.Errorf("field %q: expected , or ), got %q: %w", field, t.text, ErrMalformedPredicate)
		}
	}
}
