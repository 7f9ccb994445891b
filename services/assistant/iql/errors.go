// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package iql

import "errors"

// Sentinel errors for predicate parsing and execution. All of them are
// query errors in the pipeline taxonomy: the orchestration layer recovers
// by downgrading to similarity mode, never by surfacing them to the user.
var (
	// ErrEmptyPredicate indicates a predicate with no conditions. Rejected
	// so that a parse that extracted nothing cannot match the whole store.
	ErrEmptyPredicate = errors.New("empty predicate")

	// ErrUnknownField indicates a field outside the queryable set.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnsupportedOperator indicates an operator the language does not
	// define for the given field.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrMalformedPredicate indicates syntax the parser could not read.
	ErrMalformedPredicate = errors.New("malformed predicate")
)
