// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// QueryRequest is the body of POST /v1/assistant/query.
type QueryRequest struct {
	// Query is the natural-language question.
	Query string `json:"query" binding:"required"`

	// UserID identifies the requesting user for permission filtering.
	UserID string `json:"user_id" binding:"required"`
}

// CommentView is a comment as returned to the client.
type CommentView struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// IssueView is an issue as returned to the client. Comments reflect the
// requesting user's permissions, and Score is present only for issues
// that went through similarity ranking.
type IssueView struct {
	Key        string        `json:"key"`
	Summary    string        `json:"summary"`
	Status     string        `json:"status"`
	Priority   string        `json:"priority,omitempty"`
	Assignee   string        `json:"assignee,omitempty"`
	Labels     []string      `json:"labels,omitempty"`
	Components []string      `json:"components,omitempty"`
	Comments   []CommentView `json:"comments,omitempty"`
	Score      *float64      `json:"score,omitempty"`
}

// QueryResponse is the body returned for every answered query.
type QueryResponse struct {
	// RequestID correlates logs and traces for this request.
	RequestID string `json:"request_id"`

	// Answer is the final answer text, post-validation.
	Answer string `json:"answer"`

	// Issues are the permission-filtered retrieved issues backing the
	// answer, in final ranking order.
	Issues []IssueView `json:"issues"`

	// TotalCount is len(Issues). Included so clients need not count.
	TotalCount int `json:"total_count"`

	// QueryMode is the retrieval mode that actually ran: "filtered",
	// "similarity", "combined", or "clarification".
	QueryMode string `json:"query_mode"`

	// Predicate is the executed structured predicate, when one ran.
	Predicate string `json:"predicate,omitempty"`

	// SimilarityQuery is the cleaned similarity text, when ranking ran.
	SimilarityQuery string `json:"similarity_query,omitempty"`

	// ValidationPassed is false when the generated answer failed
	// validation and a grounded template was substituted.
	ValidationPassed bool `json:"validation_passed"`

	// Warnings carries non-fatal notices, such as the aggregate count of
	// permission-hidden issues or a retrieval downgrade.
	Warnings []string `json:"warnings,omitempty"`

	// Errors carries recovered internal failures, such as a generation
	// error that forced a template answer.
	Errors []string `json:"errors,omitempty"`
}

// issueView converts a store issue for the response, attaching the
// similarity score when the issue was ranked.
func issueView(is store.Issue, scores map[string]float64) IssueView {
	view := IssueView{
		Key:        is.Key,
		Summary:    is.Summary,
		Status:     is.Status,
		Priority:   is.Priority,
		Assignee:   is.Assignee,
		Labels:     is.Labels,
		Components: is.Components,
	}
	for _, c := range is.Comments {
		view.Comments = append(view.Comments, CommentView{Author: c.Author, Body: c.Body})
	}
	if score, ok := scores[is.Key]; ok {
		s := score
		view.Score = &s
	}
	return view
}
