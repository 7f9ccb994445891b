// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package iql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New([]store.Issue{
		{Key: "FIN-101", Project: "FIN", Summary: "Payment retries fail", Status: "In Progress", Priority: "High", Assignee: "Dana Wu", Labels: []string{"payments", "urgent"}, Components: []string{"billing"}},
		{Key: "FIN-102", Project: "FIN", Summary: "Invoice totals rounded wrong", Status: "Done", Priority: "Medium", Assignee: "Dana Wu", Labels: []string{"payments"}, Components: []string{"billing"}},
		{Key: "FIN-103", Project: "FIN", Summary: "Quarterly export times out", Status: "Open", Priority: "Low", Labels: []string{"reporting"}, Components: []string{"exports"}},
		{Key: "SEC-201", Project: "SEC", Summary: "Session tokens not rotated", Status: "In Progress", Priority: "Critical", Assignee: "Omar Reyes", Labels: []string{"auth"}, Components: []string{"identity"}},
		{Key: "OPS-301", Project: "OPS", Summary: "Deploy pipeline flaky on retry", Status: "Open", Priority: "High", Labels: []string{"ci"}, Components: []string{"pipeline"}},
	})
	require.NoError(t, err)
	return st
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Predicate
	}{
		{
			name:  "single equality quoted",
			input: `project = "FIN"`,
			expected: Predicate{
				{Field: FieldProject, Op: OpEq, Values: []string{"FIN"}},
			},
		},
		{
			name:  "equality bare value",
			input: `priority = High`,
			expected: Predicate{
				{Field: FieldPriority, Op: OpEq, Values: []string{"High"}},
			},
		},
		{
			name:  "conjunction with IN list",
			input: `project = "FIN" AND status IN ("Open", "In Progress")`,
			expected: Predicate{
				{Field: FieldProject, Op: OpEq, Values: []string{"FIN"}},
				{Field: FieldStatus, Op: OpIn, Values: []string{"Open", "In Progress"}},
			},
		},
		{
			name:  "assignee is empty",
			input: `assignee IS EMPTY`,
			expected: Predicate{
				{Field: FieldAssignee, Op: OpIsEmpty},
			},
		},
		{
			name:  "keywords are case insensitive",
			input: `status = "Open" and assignee is empty`,
			expected: Predicate{
				{Field: FieldStatus, Op: OpEq, Values: []string{"Open"}},
				{Field: FieldAssignee, Op: OpIsEmpty},
			},
		},
		{
			name:  "quoted value with spaces",
			input: `status = "In Progress"`,
			expected: Predicate{
				{Field: FieldStatus, Op: OpEq, Values: []string{"In Progress"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected error
	}{
		{name: "empty input", input: "", expected: ErrMalformedPredicate},
		{name: "unknown field", input: `reporter = "Dana"`, expected: ErrUnknownField},
		{name: "is empty on status", input: `status IS EMPTY`, expected: ErrUnsupportedOperator},
		{name: "unterminated string", input: `project = "FIN`, expected: ErrMalformedPredicate},
		{name: "missing value", input: `project =`, expected: ErrMalformedPredicate},
		{name: "unterminated IN list", input: `status IN ("Open"`, expected: ErrMalformedPredicate},
		{name: "empty IN list", input: `status IN ()`, expected: ErrMalformedPredicate},
		{name: "dangling AND", input: `project = "FIN" AND`, expected: ErrMalformedPredicate},
		{name: "unsupported operator", input: `priority > "High"`, expected: ErrMalformedPredicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), "got %v, want %v", err, tt.expected)
		})
	}
}

func TestPredicateString(t *testing.T) {
	pred := Predicate{
		{Field: FieldProject, Op: OpEq, Values: []string{"FIN"}},
		{Field: FieldStatus, Op: OpIn, Values: []string{"Open", "In Progress"}},
		{Field: FieldAssignee, Op: OpIsEmpty},
	}
	assert.Equal(t, `project = "FIN" AND status IN ("Open", "In Progress") AND assignee IS EMPTY`, pred.String())
}

func TestExecute(t *testing.T) {
	st := testStore(t)

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "project and status",
			input:    `project = "FIN" AND status = "In Progress"`,
			expected: []string{"FIN-101"},
		},
		{
			name:     "case insensitive scalar match",
			input:    `status = "in progress"`,
			expected: []string{"FIN-101", "SEC-201"},
		},
		{
			name:     "IN over statuses preserves store order",
			input:    `status IN ("Open", "Done")`,
			expected: []string{"FIN-102", "FIN-103", "OPS-301"},
		},
		{
			name:     "label membership",
			input:    `labels = "payments"`,
			expected: []string{"FIN-101", "FIN-102"},
		},
		{
			name:     "component membership",
			input:    `components = "identity"`,
			expected: []string{"SEC-201"},
		},
		{
			name:     "unassigned",
			input:    `assignee IS EMPTY`,
			expected: []string{"FIN-103", "OPS-301"},
		},
		{
			name:     "assignee equality",
			input:    `assignee = "Dana Wu"`,
			expected: []string{"FIN-101", "FIN-102"},
		},
		{
			name:     "no matches is empty not error",
			input:    `project = "FIN" AND priority = "Critical"`,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := Parse(tt.input)
			require.NoError(t, err)

			got, err := Execute(context.Background(), pred, st)
			require.NoError(t, err)

			keys := make([]string, 0, len(got))
			for _, is := range got {
				keys = append(keys, is.Key)
			}
			assert.Equal(t, tt.expected, keys)
		})
	}
}

func TestExecuteRejectsEmptyPredicate(t *testing.T) {
	st := testStore(t)
	_, err := Execute(context.Background(), Predicate{}, st)
	assert.ErrorIs(t, err, ErrEmptyPredicate)
}
