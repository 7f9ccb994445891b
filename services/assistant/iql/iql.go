// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package iql implements the structured issue query language and its
// executor.
//
// The language is deliberately small: a conjunction of equality and
// set-membership tests over a fixed field set, plus IS EMPTY for the
// assignee. Anything else is rejected rather than guessed at; a malformed
// predicate must never silently turn into a different predicate. The
// orchestration layer reacts to rejection by downgrading the query to
// similarity mode.
package iql

import (
	"fmt"
	"strings"
)

// Field names accepted by the predicate language.
const (
	FieldProject    = "project"
	FieldStatus     = "status"
	FieldPriority   = "priority"
	FieldAssignee   = "assignee"
	FieldLabels     = "labels"
	FieldComponents = "components"
)

// validFields is the closed set of queryable fields. Unknown fields are
// rejected, not ignored.
var validFields = map[string]bool{
	FieldProject:    true,
	FieldStatus:     true,
	FieldPriority:   true,
	FieldAssignee:   true,
	FieldLabels:     true,
	FieldComponents: true,
}

// Op is a predicate operator.
type Op int

const (
	// OpEq tests scalar equality, or set containment for labels/components.
	OpEq Op = iota

	// OpIn tests membership of the field value in an explicit value list.
	OpIn

	// OpIsEmpty tests for an absent value. Only valid on assignee.
	OpIsEmpty
)

// String returns the operator's query-language spelling.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpIn:
		return "IN"
	case OpIsEmpty:
		return "IS EMPTY"
	default:
		return "?"
	}
}

// Condition is a single conjunct of a predicate.
type Condition struct {
	// Field is one of the Field* constants.
	Field string

	// Op is the test to apply.
	Op Op

	// Values holds the comparison values: exactly one for OpEq, one or
	// more for OpIn, none for OpIsEmpty.
	Values []string
}

// String renders the condition in canonical query syntax.
func (c Condition) String() string {
	switch c.Op {
	case OpIsEmpty:
		return fmt.Sprintf("%s IS EMPTY", c.Field)
	case OpIn:
		quoted := make([]string, len(c.Values))
		for i, v := range c.Values {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(quoted, ", "))
	default:
		return fmt.Sprintf("%s = %q", c.Field, c.Values[0])
	}
}

// Predicate is a conjunction of conditions. An empty predicate is invalid:
// "match everything" must be an explicit caller decision, never the
// accidental result of a parse that found nothing.
type Predicate []Condition

// String renders the predicate in canonical query syntax.
func (p Predicate) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Validate checks structural validity without touching a store.
//
// Outputs:
//
//	error - ErrEmptyPredicate, ErrUnknownField, ErrUnsupportedOperator, or
//	        ErrMalformedPredicate wrapped with position detail; nil when
//	        the predicate is well formed.
func (p Predicate) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPredicate
	}
	for _, c := range p {
		if !validFields[c.Field] {
			return fmt.Errorf("field %q: %w", c.Field, ErrUnknownField)
		}
		switch c.Op {
		case OpEq:
			if len(c.Values) != 1 {
				return fmt.Errorf("field %q: equality needs exactly one value: %w", c.Field, ErrMalformedPredicate)
			}
		case OpIn:
			if len(c.Values) == 0 {
				return fmt.Errorf("field %q: IN needs at least one value: %w", c.Field, ErrMalformedPredicate)
			}
		case OpIsEmpty:
			if c.Field != FieldAssignee {
				return fmt.Errorf("field %q: IS EMPTY is only valid on assignee: %w", c.Field, ErrUnsupportedOperator)
			}
		default:
			return fmt.Errorf("field %q: %w", c.Field, ErrUnsupportedOperator)
		}
	}
	return nil
}
