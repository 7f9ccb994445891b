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
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// sentencePattern splits answer text into claim-bearing sentences. A field
// claim is only attributed to an issue mentioned in the same sentence.
var sentencePattern = regexp.MustCompile(`[.!?\n]+`)

// assigneeClaimPattern captures the name following "assigned to" within a
// sentence that mentions an issue key.
var assigneeClaimPattern = regexp.MustCompile(`(?i)\bassigned\s+to\s+([A-Za-z][A-Za-z .'-]*)`)

// FieldChecker verifies status, priority, and assignee claims about
// retrieved issues.
//
// Claim attribution is sentence-scoped: a vocabulary value appearing in
// the same sentence as a retrieved issue's key is treated as a claim about
// that issue and compared to the retrieved record. Claims about keys not
// in the retrieved set are KeyChecker's problem, not ours.
//
// Thread Safety: This type is safe for concurrent use after initialization.
type FieldChecker struct {
	// statusPatterns and priorityPatterns pair each vocabulary value with
	// its word-boundary pattern.
	statusPatterns   []valuePattern
	priorityPatterns []valuePattern
}

type valuePattern struct {
	value   string
	pattern *regexp.Regexp
}

// NewFieldChecker compiles claim patterns for the given vocabulary.
func NewFieldChecker(vocab store.Vocabulary) *FieldChecker {
	c := &FieldChecker{}
	for _, s := range vocab.Statuses {
		c.statusPatterns = append(c.statusPatterns, valuePattern{
			value:   s,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s) + `\b`),
		})
	}
	for _, p := range vocab.Priorities {
		c.priorityPatterns = append(c.priorityPatterns, valuePattern{
			value:   p,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `(?:\s+priority)?\b`),
		})
	}
	return c
}

// Name returns the checker name.
func (c *FieldChecker) Name() string {
	return "field_checker"
}

// Check finds field claims that disagree with the retrieved records.
func (c *FieldChecker) Check(ctx context.Context, input *CheckInput) []Violation {
	var violations []Violation

	offset := 0
	for _, sentence := range sentencePattern.Split(input.Answer, -1) {
		keys := keyMentionPattern.FindAllString(sentence, -1)
		for _, key := range keys {
			is, retrieved := input.ByKey[key]
			if !retrieved {
				continue
			}
			violations = append(violations, c.checkSentence(sentence, offset, key, is)...)
		}
		offset += len(sentence) + 1
	}

	return violations
}

// checkSentence verifies every field claim one sentence makes about one
// retrieved issue.
func (c *FieldChecker) checkSentence(sentence string, offset int, key string, is store.Issue) []Violation {
	var violations []Violation

	for _, vp := range c.statusPatterns {
		loc := vp.pattern.FindStringIndex(sentence)
		if loc == nil || strings.EqualFold(vp.value, is.Status) {
			continue
		}
		violations = append(violations, Violation{
			Type:     ViolationStatusMismatch,
			Message:  fmt.Sprintf("answer describes %s as %q but its status is %q", key, vp.value, is.Status),
			Evidence: vp.value,
			Expected: is.Status,
			Location: key,
			Position: offset + loc[0],
		})
	}

	for _, vp := range c.priorityPatterns {
		loc := vp.pattern.FindStringIndex(sentence)
		if loc == nil || strings.EqualFold(vp.value, is.Priority) {
			continue
		}
		violations = append(violations, Violation{
			Type:     ViolationPriorityMismatch,
			Message:  fmt.Sprintf("answer describes %s as %q but its priority is %q", key, vp.value, is.Priority),
			Evidence: vp.value,
			Expected: is.Priority,
			Location: key,
			Position: offset + loc[0],
		})
	}

	if m := assigneeClaimPattern.FindStringSubmatchIndex(sentence); m != nil {
		claimed := strings.TrimSpace(sentence[m[2]:m[3]])
		if !assigneeMatches(claimed, is.Assignee) {
			actual := is.Assignee
			if is.Unassigned() {
				actual = "unassigned"
			}
			violations = append(violations, Violation{
				Type:     ViolationAssigneeMismatch,
				Message:  fmt.Sprintf("answer says %s is assigned to %q but the record shows %q", key, claimed, actual),
				Evidence: claimed,
				Expected: actual,
				Location: key,
				Position: offset + m[2],
			})
		}
	}

	return violations
}

// assigneeMatches reports whether a claimed name refers to the actual
// assignee. The claim capture is greedy and may trail into following
// words, so any word prefix of the claim matching the full assignee name
// counts.
func assigneeMatches(claimed, actual string) bool {
	if actual == "" {
		return false
	}
	words := strings.Fields(claimed)
	for n := len(words); n > 0; n-- {
		if strings.EqualFold(strings.Join(words[:n], " "), actual) {
			return true
		}
	}
	return false
}

// Ensure FieldChecker implements Checker.
var _ Checker = (*FieldChecker)(nil)
