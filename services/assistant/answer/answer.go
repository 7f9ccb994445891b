// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package answer generates natural-language answers from retrieved issues.
//
// Two implementations: a deterministic template answerer that needs no
// model, and an OpenAI-backed answerer whose prompt contains only the
// retrieved issues. Either way the output goes through grounding
// validation before it reaches the user.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/AleutianAI/issueassist/services/assistant/grounding"
	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// Answerer produces an answer to a question from retrieved issues.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Answerer interface {
	// Answer generates an answer grounded in the given issues.
	//
	// Inputs:
	//   ctx - Context for cancellation.
	//   query - The user's question.
	//   issues - The permission-filtered retrieved issues.
	//
	// Outputs:
	//   string - The answer text.
	//   error - Non-nil when generation itself failed; the caller falls
	//           back to a grounded template.
	Answer(ctx context.Context, query string, issues []store.Issue) (string, error)
}

// NewFromEnv selects an answerer from the LLM_BACKEND_TYPE environment
// variable: "openai" for the model-backed answerer, anything else
// (including unset) for the template answerer.
func NewFromEnv() (Answerer, error) {
	backend := strings.ToLower(os.Getenv("LLM_BACKEND_TYPE"))
	switch backend {
	case "openai":
		return NewOpenAIAnswerer()
	case "", "template":
		slog.Info("Using template answerer")
		return NewTemplateAnswerer(), nil
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND_TYPE %q", backend)
	}
}

// countQuestionPattern mirrors the classifier's count detection: a count
// question gets a count-shaped answer.
var countQuestionPattern = regexp.MustCompile(`(?i)\bhow\s+many\b|\bcount\b|\bnumber\s+of\b|\btotal\b`)

// listCutoff is the largest result set rendered issue-by-issue. Bigger
// sets get a status breakdown plus the top entries.
const listCutoff = 5

// TemplateAnswerer renders answers from templates, no model involved.
// Every fact is copied from the issue records, so its answers pass
// validation by construction.
type TemplateAnswerer struct{}

// NewTemplateAnswerer creates a TemplateAnswerer.
func NewTemplateAnswerer() *TemplateAnswerer {
	return &TemplateAnswerer{}
}

// Answer renders a template shaped by the question's intent.
func (a *TemplateAnswerer) Answer(ctx context.Context, query string, issues []store.Issue) (string, error) {
	switch {
	case len(issues) == 0:
		return grounding.EmptyResultAnswer, nil

	case countQuestionPattern.MatchString(query):
		return grounding.RenderTemplate(grounding.TemplateCount, issues), nil

	case len(issues) == 1 && mentionsKey(query, issues[0].Key):
		return grounding.RenderTemplate(grounding.TemplateDetail, issues), nil

	case len(issues) <= listCutoff:
		return grounding.RenderTemplate(grounding.TemplateList, issues), nil

	default:
		return renderSummary(issues), nil
	}
}

// mentionsKey reports whether the question names a specific issue key.
func mentionsKey(query, key string) bool {
	return strings.Contains(strings.ToUpper(query), key)
}

// renderSummary handles large result sets: exact total, a breakdown by
// status, and the first few issues.
func renderSummary(issues []store.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d issues.\n", len(issues))

	byStatus := map[string]int{}
	var order []string
	for _, is := range issues {
		if _, seen := byStatus[is.Status]; !seen {
			order = append(order, is.Status)
		}
		byStatus[is.Status]++
	}
	b.WriteString("By status:\n")
	for _, status := range order {
		fmt.Fprintf(&b, "- %s: %d\n", status, byStatus[status])
	}

	fmt.Fprintf(&b, "First %d:\n", listCutoff)
	for _, is := range issues[:listCutoff] {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", is.Key, is.Summary, is.Status)
	}
	fmt.Fprintf(&b, "...and %d more.", len(issues)-listCutoff)
	return b.String()
}

// Ensure TemplateAnswerer implements Answerer.
var _ Answerer = (*TemplateAnswerer)(nil)
