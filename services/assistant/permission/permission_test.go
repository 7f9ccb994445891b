// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package permission

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

func testIssues() []store.Issue {
	return []store.Issue{
		{Key: "FIN-101", Project: "FIN", Summary: "Payment retries fail", Status: "In Progress", Labels: []string{"payments"}, Components: []string{"billing"},
			Comments: []store.Comment{{Author: "Dana Wu", Body: "Backoff resets on reload."}}},
		{Key: "SEC-201", Project: "SEC", Summary: "Tokens not rotated", Status: "In Progress", Labels: []string{"auth", "audit-finding"}, Components: []string{"identity"}},
		{Key: "OPS-301", Project: "OPS", Summary: "Pipeline flaky", Status: "Open", Labels: []string{"ci"}, Components: []string{"pipeline"}},
	}
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable(filepath.Join("testdata", "permissions.json"))
	require.NoError(t, err)

	rule, err := table.Lookup("user-003")
	require.NoError(t, err)
	assert.Equal(t, []string{"FIN"}, rule.AllowedProjects)

	_, err = table.Lookup("user-999")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestApplyProjectRestriction(t *testing.T) {
	table := NewTable(map[string]Rule{
		"user-003": {AllowedProjects: []string{"FIN"}, CanViewComments: true},
	})
	f := NewFilter(table)

	result := f.Apply(testIssues(), "user-003")
	require.Len(t, result.Allowed, 1)
	assert.Equal(t, "FIN-101", result.Allowed[0].Key)
	assert.Equal(t, 2, result.HiddenCount)
}

func TestApplyUnknownUserFailsClosed(t *testing.T) {
	table := NewTable(nil)
	f := NewFilter(table)

	result := f.Apply(testIssues(), "nobody")
	assert.Empty(t, result.Allowed)
	assert.NotNil(t, result.Allowed)
	assert.Equal(t, 3, result.HiddenCount)
}

func TestApplyDeniedComponentAndLabel(t *testing.T) {
	table := NewTable(map[string]Rule{
		"user-008": {
			AllowedProjects:  []string{"FIN", "SEC", "OPS"},
			DeniedComponents: []string{"identity"},
			DeniedLabels:     []string{"audit-finding"},
			CanViewComments:  true,
		},
	})
	f := NewFilter(table)

	result := f.Apply(testIssues(), "user-008")
	keys := make([]string, 0, len(result.Allowed))
	for _, is := range result.Allowed {
		keys = append(keys, is.Key)
	}
	assert.Equal(t, []string{"FIN-101", "OPS-301"}, keys)
	assert.Equal(t, 1, result.HiddenCount)
}

func TestApplyRedactsComments(t *testing.T) {
	table := NewTable(map[string]Rule{
		"user-010": {AllowedProjects: []string{"FIN"}, CanViewComments: false},
	})
	f := NewFilter(table)

	input := testIssues()
	result := f.Apply(input, "user-010")
	require.Len(t, result.Allowed, 1)
	assert.Empty(t, result.Allowed[0].Comments)

	// Redaction must not leak back into the caller's issues.
	assert.Len(t, input[0].Comments, 1)
}

func TestApplyPreservesInputOrder(t *testing.T) {
	table := NewTable(map[string]Rule{
		"user-001": {AllowedProjects: []string{"FIN", "SEC", "OPS"}, CanViewComments: true},
	})
	f := NewFilter(table)

	// Ranked order, not store order.
	ranked := []store.Issue{
		{Key: "OPS-301", Project: "OPS"},
		{Key: "FIN-101", Project: "FIN"},
		{Key: "SEC-201", Project: "SEC"},
	}
	result := f.Apply(ranked, "user-001")
	require.Len(t, result.Allowed, 3)
	assert.Equal(t, "OPS-301", result.Allowed[0].Key)
	assert.Equal(t, "FIN-101", result.Allowed[1].Key)
	assert.Equal(t, "SEC-201", result.Allowed[2].Key)
}

func TestApplyEmptyInput(t *testing.T) {
	table := NewTable(map[string]Rule{"user-001": {AllowedProjects: []string{"FIN"}}})
	f := NewFilter(table)

	result := f.Apply(nil, "user-001")
	assert.Empty(t, result.Allowed)
	assert.Zero(t, result.HiddenCount)
}
