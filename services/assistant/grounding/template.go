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
	"fmt"
	"strings"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// TemplateKind selects the shape of a grounded template response.
type TemplateKind int

const (
	// TemplateList enumerates the retrieved issues.
	TemplateList TemplateKind = iota

	// TemplateCount states the result count, then enumerates.
	TemplateCount

	// TemplateDetail describes a single issue in full.
	TemplateDetail
)

// EmptyResultAnswer is the fixed answer for an empty retrieval. Stated
// explicitly, never apologetically, and with no invented suggestions.
const EmptyResultAnswer = "No issues found matching your query."

// RenderTemplate builds a deterministic answer from retrieved issues.
//
// Description:
//
//	Every fact in the output is copied verbatim from the issue records,
//	so the result passes validation by construction. Used both as the
//	substitute for a rejected generated answer and as the direct answer
//	when no generator is configured.
//
// Inputs:
//
//	kind - The template shape.
//	issues - The permission-filtered retrieved issues, in final order.
//
// Outputs:
//
//	string - The rendered answer. EmptyResultAnswer when issues is empty.
func RenderTemplate(kind TemplateKind, issues []store.Issue) string {
	if len(issues) == 0 {
		return EmptyResultAnswer
	}

	switch kind {
	case TemplateCount:
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d %s:\n", len(issues), pluralIssues(len(issues)))
		writeIssueLines(&b, issues)
		return strings.TrimRight(b.String(), "\n")

	case TemplateDetail:
		return renderDetail(issues[0])

	default:
		var b strings.Builder
		fmt.Fprintf(&b, "Here %s the %d matching %s:\n", isAre(len(issues)), len(issues), pluralIssues(len(issues)))
		writeIssueLines(&b, issues)
		return strings.TrimRight(b.String(), "\n")
	}
}

// writeIssueLines appends one summary line per issue.
func writeIssueLines(b *strings.Builder, issues []store.Issue) {
	for _, is := range issues {
		fmt.Fprintf(b, "- %s: %s (%s", is.Key, is.Summary, is.Status)
		if is.Priority != "" {
			fmt.Fprintf(b, ", %s priority", is.Priority)
		}
		b.WriteString(")\n")
	}
}

// renderDetail describes one issue in full.
func renderDetail(is store.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", is.Key, is.Summary)
	fmt.Fprintf(&b, "Status: %s\n", is.Status)
	if is.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", is.Priority)
	}
	if is.Unassigned() {
		b.WriteString("Assignee: unassigned\n")
	} else {
		fmt.Fprintf(&b, "Assignee: %s\n", is.Assignee)
	}
	if len(is.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(is.Labels, ", "))
	}
	if len(is.Components) > 0 {
		fmt.Fprintf(&b, "Components: %s\n", strings.Join(is.Components, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func pluralIssues(n int) string {
	if n == 1 {
		return "issue"
	}
	return "issues"
}

func isAre(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}
