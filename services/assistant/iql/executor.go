// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package iql

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

var tracer = otel.Tracer("issueassist/iql")

// Execute evaluates a predicate against every issue in the store.
//
// Description:
//
//	Returns the issues satisfying every condition, in the store's stable
//	iteration order. Scalar comparisons are case-insensitive; labels and
//	components use membership semantics (equality means "the set contains
//	this value"). Zero matches is a normal outcome, not an error.
//
// Inputs:
//
//	ctx - Context for tracing.
//	pred - The predicate to evaluate. Must be structurally valid.
//	st - The issue store.
//
// Outputs:
//
//	[]store.Issue - Matching issues, possibly empty, never nil.
//	error - Validate errors for an invalid predicate; nil otherwise.
//
// Thread Safety: safe for concurrent use.
func Execute(ctx context.Context, pred Predicate, st *store.Store) ([]store.Issue, error) {
	_, span := tracer.Start(ctx, "iql.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("iql.predicate", pred.String()),
		attribute.Int("iql.conditions", len(pred)),
	)

	if err := pred.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	matched := []store.Issue{}
	for _, is := range st.Issues() {
		if matches(pred, is) {
			matched = append(matched, is)
		}
	}
	span.SetAttributes(attribute.Int("iql.matched", len(matched)))
	return matched, nil
}

// matches reports whether an issue satisfies every condition.
func matches(pred Predicate, is store.Issue) bool {
	for _, c := range pred {
		if !matchCondition(c, is) {
			return false
		}
	}
	return true
}

func matchCondition(c Condition, is store.Issue) bool {
	switch c.Field {
	case FieldProject:
		return matchScalar(c, is.Project)
	case FieldStatus:
		return matchScalar(c, is.Status)
	case FieldPriority:
		return matchScalar(c, is.Priority)
	case FieldAssignee:
		if c.Op == OpIsEmpty {
			return is.Unassigned()
		}
		return matchScalar(c, is.Assignee)
	case FieldLabels:
		return matchSet(c, is.Labels)
	case FieldComponents:
		return matchSet(c, is.Components)
	default:
		return false
	}
}

// matchScalar tests a scalar field under OpEq or OpIn.
func matchScalar(c Condition, got string) bool {
	for _, want := range c.Values {
		if strings.EqualFold(got, want) {
			return true
		}
	}
	return false
}

// matchSet tests a multi-valued field: the condition holds when any
// condition value is present in the issue's set.
func matchSet(c Condition, set []string) bool {
	for _, want := range c.Values {
		for _, got := range set {
			if strings.EqualFold(got, want) {
				return true
			}
		}
	}
	return false
}
