// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grounding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

func testVocab() store.Vocabulary {
	return store.Vocabulary{
		Projects:   []string{"FIN", "SEC"},
		Statuses:   []string{"Done", "In Progress", "Open"},
		Priorities: []string{"Critical", "High", "Low", "Medium"},
		Assignees:  []string{"Dana Wu", "Omar Reyes"},
	}
}

func retrievedIssues() []store.Issue {
	return []store.Issue{
		{Key: "FIN-101", Project: "FIN", Summary: "Payment retries fail", Status: "In Progress", Priority: "High", Assignee: "Dana Wu"},
		{Key: "FIN-102", Project: "FIN", Summary: "Invoice totals rounded wrong", Status: "Done", Priority: "Medium", Assignee: "Dana Wu"},
	}
}

func TestValidateGroundedAnswer(t *testing.T) {
	v := NewValidator(testVocab())

	answer := "Found 2 issues. FIN-101 (Payment retries fail) is In Progress with High priority and is assigned to Dana Wu. FIN-102 is Done."
	result := v.Validate(context.Background(), answer, retrievedIssues())

	assert.True(t, result.Valid)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Empty(t, result.Violations)
	assert.Equal(t, 3, result.ChecksRun)
}

func TestValidatePhantomKey(t *testing.T) {
	v := NewValidator(testVocab())

	answer := "FIN-101 is In Progress. You should also look at FAKE-999 for context."
	result := v.Validate(context.Background(), answer, retrievedIssues())

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"FAKE-999"}, result.HallucinatedKeys)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, ViolationPhantomKey, result.Violations[0].Type)
}

func TestValidateStoreKeyNotRetrievedIsPhantom(t *testing.T) {
	v := NewValidator(testVocab())

	// SEC-201 may exist in the tracker, but it was not retrieved for this
	// query, so the generator had no grounded way to mention it.
	answer := "FIN-101 is In Progress. SEC-201 covers the related auth work."
	result := v.Validate(context.Background(), answer, retrievedIssues())

	assert.False(t, result.Valid)
	assert.Contains(t, result.HallucinatedKeys, "SEC-201")
}

func TestValidateCountMismatch(t *testing.T) {
	v := NewValidator(testVocab())

	result := v.Validate(context.Background(), "There are 5 issues matching your filters.", retrievedIssues())

	assert.False(t, result.Valid)
	require.Len(t, result.CountMismatches, 1)
	assert.Equal(t, 5, result.CountMismatches[0].Claimed)
	assert.Equal(t, 2, result.CountMismatches[0].Actual)
}

func TestValidateCountWords(t *testing.T) {
	v := NewValidator(testVocab())

	tests := []struct {
		name   string
		answer string
		valid  bool
	}{
		{name: "correct number word", answer: "I found two issues.", valid: true},
		{name: "wrong number word", answer: "I found three issues.", valid: false},
		{name: "hedged wrong count still fails", answer: "There are about 10 issues in this area.", valid: false},
		{name: "hedged correct count passes", answer: "There are about 2 issues in this area.", valid: true},
		{name: "vague quantity not validated", answer: "Several issues mention payments.", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(context.Background(), tt.answer, retrievedIssues())
			assert.Equal(t, tt.valid, result.Valid, "violations: %+v", result.Violations)
		})
	}
}

func TestValidateFieldMismatches(t *testing.T) {
	v := NewValidator(testVocab())

	tests := []struct {
		name     string
		answer   string
		field    string
		claimed  string
		actual   string
	}{
		{
			name:    "wrong status",
			answer:  "FIN-101 is Done.",
			field:   "status",
			claimed: "Done",
			actual:  "In Progress",
		},
		{
			name:    "wrong priority",
			answer:  "FIN-102 is a Critical priority issue.",
			field:   "priority",
			claimed: "Critical",
			actual:  "Medium",
		},
		{
			name:    "wrong assignee",
			answer:  "FIN-101 is assigned to Omar Reyes.",
			field:   "assignee",
			claimed: "Omar Reyes",
			actual:  "Dana Wu",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(context.Background(), tt.answer, retrievedIssues())
			assert.False(t, result.Valid)

			var found bool
			for _, fm := range result.FieldMismatches {
				if fm.Field == tt.field && fm.Claimed == tt.claimed {
					found = true
					assert.Equal(t, tt.actual, fm.Actual)
				}
			}
			assert.True(t, found, "expected %s mismatch, got %+v", tt.field, result.FieldMismatches)
		})
	}
}

func TestValidateClaimScopedToSentence(t *testing.T) {
	v := NewValidator(testVocab())

	// "Done" appears in a different sentence than FIN-101, so it is not a
	// claim about FIN-101.
	answer := "FIN-101 is In Progress. FIN-102 is Done."
	result := v.Validate(context.Background(), answer, retrievedIssues())
	assert.True(t, result.Valid, "violations: %+v", result.Violations)
}

func TestValidateConfidenceDecreases(t *testing.T) {
	v := NewValidator(testVocab())

	answer := "FAKE-1 and FAKE-2 and FAKE-3 and FAKE-4 and FAKE-5 are all relevant."
	result := v.Validate(context.Background(), answer, retrievedIssues())

	assert.False(t, result.Valid)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Len(t, result.HallucinatedKeys, 5)
}

func TestValidateEmptyRetrievedSet(t *testing.T) {
	v := NewValidator(testVocab())

	result := v.Validate(context.Background(), EmptyResultAnswer, nil)
	assert.True(t, result.Valid)

	result = v.Validate(context.Background(), "FIN-101 might be relevant.", nil)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"FIN-101"}, result.HallucinatedKeys)
}

func TestShouldFallback(t *testing.T) {
	v := NewValidator(testVocab())

	assert.True(t, v.ShouldFallback(nil))
	assert.True(t, v.ShouldFallback(&Result{Valid: false}))
	assert.False(t, v.ShouldFallback(&Result{Valid: true}))
}

func TestRenderTemplate(t *testing.T) {
	issues := retrievedIssues()

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, EmptyResultAnswer, RenderTemplate(TemplateList, nil))
	})

	t.Run("list", func(t *testing.T) {
		out := RenderTemplate(TemplateList, issues)
		assert.Contains(t, out, "FIN-101: Payment retries fail (In Progress, High priority)")
		assert.Contains(t, out, "FIN-102")
	})

	t.Run("count", func(t *testing.T) {
		out := RenderTemplate(TemplateCount, issues)
		assert.Contains(t, out, "Found 2 issues")
	})

	t.Run("detail", func(t *testing.T) {
		out := RenderTemplate(TemplateDetail, issues[:1])
		assert.Contains(t, out, "Status: In Progress")
		assert.Contains(t, out, "Assignee: Dana Wu")
	})

	t.Run("templates survive their own validation", func(t *testing.T) {
		v := NewValidator(testVocab())
		for _, kind := range []TemplateKind{TemplateList, TemplateCount, TemplateDetail} {
			out := RenderTemplate(kind, issues)
			result := v.Validate(context.Background(), out, issues)
			assert.True(t, result.Valid, "kind %d violations: %+v", kind, result.Violations)
		}
	})
}
