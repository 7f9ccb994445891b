// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	st, err := Load(filepath.Join("testdata", "issues.json"))
	require.NoError(t, err)

	assert.Equal(t, 6, st.Len())

	is, ok := st.ByKey("FIN-101")
	require.True(t, ok)
	assert.Equal(t, "In Progress", is.Status)
	assert.Equal(t, "Dana Wu", is.Assignee)
	assert.Len(t, is.Comments, 2)

	_, ok = st.ByKey("FIN-999")
	assert.False(t, ok)
}

func TestLoadVocabularyFromFile(t *testing.T) {
	st, err := Load(filepath.Join("testdata", "issues.json"))
	require.NoError(t, err)

	vocab := st.Vocab()
	assert.Equal(t, []string{"FIN", "OPS", "SEC"}, vocab.Projects)
	assert.Equal(t, []string{"Open", "In Progress", "Done"}, vocab.Statuses)
	assert.Equal(t, []string{"Critical", "High", "Medium", "Low"}, vocab.Priorities)
	// Assignees are always derived from the issues.
	assert.Equal(t, []string{"Dana Wu", "Omar Reyes"}, vocab.Assignees)
}

func TestNewDerivesVocabulary(t *testing.T) {
	st, err := New([]Issue{
		{Key: "ABC-1", Summary: "first", Status: "Open", Priority: "High", Assignee: "Kim Soto"},
		{Key: "ABC-2", Summary: "second", Status: "Done"},
	})
	require.NoError(t, err)

	vocab := st.Vocab()
	assert.Equal(t, []string{"ABC"}, vocab.Projects)
	assert.Equal(t, []string{"Done", "Open"}, vocab.Statuses)
	assert.Equal(t, []string{"High"}, vocab.Priorities)
	assert.Equal(t, []string{"Kim Soto"}, vocab.Assignees)
}

func TestNewBackfillsProjectFromKey(t *testing.T) {
	st, err := New([]Issue{{Key: "XYZ-7", Summary: "no project field", Status: "Open"}})
	require.NoError(t, err)

	is, ok := st.ByKey("XYZ-7")
	require.True(t, ok)
	assert.Equal(t, "XYZ", is.Project)
	assert.Equal(t, "XYZ", st.Issues()[0].Project)
}

func TestNewRejectsBadData(t *testing.T) {
	tests := []struct {
		name     string
		issues   []Issue
		expected error
	}{
		{
			name:     "lowercase key",
			issues:   []Issue{{Key: "fin-1"}},
			expected: ErrBadIssueKey,
		},
		{
			name:     "missing number",
			issues:   []Issue{{Key: "FIN-"}},
			expected: ErrBadIssueKey,
		},
		{
			name:     "duplicate keys",
			issues:   []Issue{{Key: "FIN-1"}, {Key: "FIN-1"}},
			expected: ErrDuplicateKey,
		},
		{
			name:     "project disagrees with key prefix",
			issues:   []Issue{{Key: "FIN-1", Project: "OPS"}},
			expected: ErrProjectMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.issues)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestIssuesReturnsCopy(t *testing.T) {
	st, err := New([]Issue{{Key: "ABC-1", Summary: "original", Status: "Open"}})
	require.NoError(t, err)

	issues := st.Issues()
	issues[0].Summary = "mutated"

	fresh := st.Issues()
	assert.Equal(t, "original", fresh[0].Summary)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Issue{
		Key:      "ABC-1",
		Labels:   []string{"a"},
		Comments: []Comment{{Author: "x", Body: "y"}},
	}
	cp := orig.Clone()
	cp.Labels[0] = "changed"
	cp.Comments[0].Body = "changed"

	assert.Equal(t, "a", orig.Labels[0])
	assert.Equal(t, "y", orig.Comments[0].Body)
}

func TestUnassigned(t *testing.T) {
	assert.True(t, Issue{Assignee: ""}.Unassigned())
	assert.True(t, Issue{Assignee: "   "}.Unassigned())
	assert.False(t, Issue{Assignee: "Dana Wu"}.Unassigned())
}
