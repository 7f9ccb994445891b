// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

func corpus() []store.Issue {
	return []store.Issue{
		{Key: "FIN-101", Project: "FIN", Summary: "Payment retries fail after gateway timeout", Labels: []string{"payments"}, Components: []string{"billing"}},
		{Key: "FIN-102", Project: "FIN", Summary: "Invoice totals rounded incorrectly", Labels: []string{"payments"}, Components: []string{"billing"}},
		{Key: "SEC-201", Project: "SEC", Summary: "Session tokens not rotated after password change", Labels: []string{"auth"}, Components: []string{"identity"}},
		{Key: "SEC-202", Project: "SEC", Summary: "Login page allows weak passwords", Labels: []string{"auth"}, Components: []string{"identity"}},
		{Key: "OPS-301", Project: "OPS", Summary: "Deploy pipeline flaky when artifact upload times out", Labels: []string{"ci"}, Components: []string{"pipeline"}},
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "lowercases and stems",
			input:    "Payment retries FAILING",
			expected: []string{"payment", "retri", "fail"},
		},
		{
			name:     "drops stopwords and short tokens",
			input:    "the issue is in a DB",
			expected: []string{"issu", "db"},
		},
		{
			name:     "punctuation separates tokens",
			input:    "login/timeout, again?",
			expected: []string{"login", "timeout", "again"},
		},
		{
			name:     "nothing survives",
			input:    "a an of",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.input))
		})
	}
}

func TestSearchRanksByRelevance(t *testing.T) {
	idx := NewIndex(corpus())

	results := idx.Search(context.Background(), "password problems on login", DefaultConfig())
	require.NotEmpty(t, results)

	keys := make([]string, 0, len(results))
	for _, r := range results {
		keys = append(keys, r.Issue.Key)
		assert.GreaterOrEqual(t, r.Score, DefaultConfig().MinScore)
		assert.LessOrEqual(t, r.Score, 1.0)
	}

	// Both password issues should rank, and the two-term match first.
	assert.Equal(t, "SEC-202", keys[0])
	assert.Contains(t, keys, "SEC-201")
	assert.NotContains(t, keys, "FIN-102")
}

func TestSearchDescendingScores(t *testing.T) {
	idx := NewIndex(corpus())
	results := idx.Search(context.Background(), "payment invoice timeout", Config{TopK: 10, MinScore: 0})
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchNoCorpusTerms(t *testing.T) {
	idx := NewIndex(corpus())
	results := idx.Search(context.Background(), "quantum blockchain synergies", DefaultConfig())
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestSearchEmptyCorpus(t *testing.T) {
	idx := NewIndex(nil)
	results := idx.Search(context.Background(), "anything", DefaultConfig())
	assert.Empty(t, results)
}

func TestSearchTieBreakByKey(t *testing.T) {
	idx := NewIndex([]store.Issue{
		{Key: "ZZZ-2", Project: "ZZZ", Summary: "cache eviction storm"},
		{Key: "AAA-1", Project: "AAA", Summary: "cache eviction storm"},
		{Key: "FIN-9", Project: "FIN", Summary: "unrelated ledger drift"},
	})

	results := idx.Search(context.Background(), "cache eviction", DefaultConfig())
	require.Len(t, results, 2)
	assert.Equal(t, "AAA-1", results[0].Issue.Key)
	assert.Equal(t, "ZZZ-2", results[1].Issue.Key)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestSearchTopKBound(t *testing.T) {
	idx := NewIndex(corpus())
	results := idx.Search(context.Background(), "payment invoice login password timeout", Config{TopK: 2, MinScore: 0})
	assert.LessOrEqual(t, len(results), 2)
}

func TestFindSimilar(t *testing.T) {
	idx := NewIndex(corpus())

	results, err := idx.FindSimilar(context.Background(), "SEC-201", Config{TopK: 10, MinScore: 0.01})
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, "SEC-201", r.Issue.Key, "source issue must be excluded")
	}
	require.NotEmpty(t, results)
	assert.Equal(t, "SEC-202", results[0].Issue.Key)
}

func TestFindSimilarUnknownKey(t *testing.T) {
	idx := NewIndex(corpus())
	_, err := idx.FindSimilar(context.Background(), "NOPE-1", DefaultConfig())
	assert.ErrorIs(t, err, ErrIssueNotIndexed)
}
