// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grounding validates generated answers against the retrieved
// issues that backed them.
//
// The generator is only ever given retrieved issue data, but generation is
// not trusted: every checkable claim in the answer text is verified against
// the retrieved set before the answer reaches the user. A single failed
// claim invalidates the whole answer; the caller then substitutes a
// deterministic template built from the retrieved data. Validation never
// triggers regeneration.
package grounding

import (
	"context"
	"strconv"
	"time"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// ViolationType categorizes the kind of grounding failure.
type ViolationType string

const (
	// ViolationPhantomKey indicates the answer mentions an issue key that
	// is not in the retrieved set. This includes keys that exist in the
	// store but were not retrieved for this query: the generator had no
	// legitimate way to know about them.
	ViolationPhantomKey ViolationType = "phantom_key"

	// ViolationCountMismatch indicates a claimed result count that does
	// not equal the actual retrieved count. Counts must be exact; hedging
	// ("about 10") does not excuse a wrong number.
	ViolationCountMismatch ViolationType = "count_mismatch"

	// ViolationStatusMismatch indicates a status attributed to an issue
	// that disagrees with the retrieved record.
	ViolationStatusMismatch ViolationType = "status_mismatch"

	// ViolationPriorityMismatch indicates a priority attributed to an
	// issue that disagrees with the retrieved record.
	ViolationPriorityMismatch ViolationType = "priority_mismatch"

	// ViolationAssigneeMismatch indicates an assignee attributed to an
	// issue that disagrees with the retrieved record.
	ViolationAssigneeMismatch ViolationType = "assignee_mismatch"
)

// Violation represents a single grounding failure.
type Violation struct {
	// Type is the kind of violation.
	Type ViolationType `json:"type"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Evidence is the claimed value that triggered this violation.
	Evidence string `json:"evidence,omitempty"`

	// Expected is the value the retrieved data actually supports.
	Expected string `json:"expected,omitempty"`

	// Location is the issue key the claim was about, when applicable.
	Location string `json:"location,omitempty"`

	// Position is the character offset of the claim in the answer text.
	Position int `json:"position,omitempty"`
}

// CountMismatch summarizes a failed count claim.
type CountMismatch struct {
	// Claimed is the count asserted in the answer.
	Claimed int `json:"claimed"`

	// Actual is the retrieved result count.
	Actual int `json:"actual"`
}

// FieldMismatch summarizes a failed field claim about one issue.
type FieldMismatch struct {
	// Key is the issue the claim was about.
	Key string `json:"key"`

	// Field is the claimed field: "status", "priority", or "assignee".
	Field string `json:"field"`

	// Claimed is the value asserted in the answer.
	Claimed string `json:"claimed"`

	// Actual is the value in the retrieved record.
	Actual string `json:"actual"`
}

// Result contains the outcome of answer validation.
type Result struct {
	// Valid is true when every checkable claim held. Any violation makes
	// the answer unusable as-is.
	Valid bool `json:"valid"`

	// Confidence is a score from 0.0 to 1.0. Starts at 1.0 and decreases
	// with each violation. Informational; rejection is driven by Valid.
	Confidence float64 `json:"confidence"`

	// HallucinatedKeys lists issue keys mentioned in the answer but
	// absent from the retrieved set, in mention order, deduplicated.
	HallucinatedKeys []string `json:"hallucinated_keys,omitempty"`

	// CountMismatches lists failed count claims.
	CountMismatches []CountMismatch `json:"count_mismatches,omitempty"`

	// FieldMismatches lists failed per-issue field claims.
	FieldMismatches []FieldMismatch `json:"field_mismatches,omitempty"`

	// Violations contains all violations found during checking.
	Violations []Violation `json:"violations,omitempty"`

	// ChecksRun is the number of checkers that executed.
	ChecksRun int `json:"checks_run"`

	// CheckDuration is how long validation took.
	CheckDuration time.Duration `json:"check_duration"`
}

// AddViolation records a violation and updates the summary fields.
func (r *Result) AddViolation(v Violation) {
	r.Violations = append(r.Violations, v)
	r.Valid = false
	r.Confidence -= 0.25
	if r.Confidence < 0 {
		r.Confidence = 0
	}

	switch v.Type {
	case ViolationPhantomKey:
		for _, k := range r.HallucinatedKeys {
			if k == v.Evidence {
				return
			}
		}
		r.HallucinatedKeys = append(r.HallucinatedKeys, v.Evidence)
	case ViolationCountMismatch:
		claimed, _ := strconv.Atoi(v.Evidence)
		actual, _ := strconv.Atoi(v.Expected)
		r.CountMismatches = append(r.CountMismatches, CountMismatch{Claimed: claimed, Actual: actual})
	case ViolationStatusMismatch:
		r.FieldMismatches = append(r.FieldMismatches, FieldMismatch{Key: v.Location, Field: "status", Claimed: v.Evidence, Actual: v.Expected})
	case ViolationPriorityMismatch:
		r.FieldMismatches = append(r.FieldMismatches, FieldMismatch{Key: v.Location, Field: "priority", Claimed: v.Evidence, Actual: v.Expected})
	case ViolationAssigneeMismatch:
		r.FieldMismatches = append(r.FieldMismatches, FieldMismatch{Key: v.Location, Field: "assignee", Claimed: v.Evidence, Actual: v.Expected})
	}
}

// Checker is a single answer validation check.
//
// Each checker focuses on one claim category. Checkers are composed by the
// Validator to form the complete validation pass.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Checker interface {
	// Name returns the checker name for logging and metrics.
	Name() string

	// Check extracts this checker's claims from the answer and verifies
	// them against the retrieved issues.
	//
	// Inputs:
	//   ctx - Context for cancellation.
	//   input - The answer text and retrieved set.
	//
	// Outputs:
	//   []Violation - Any violations found. Empty when all claims held.
	Check(ctx context.Context, input *CheckInput) []Violation
}

// CheckInput provides all data needed for a validation check.
type CheckInput struct {
	// Answer is the generated answer text.
	Answer string

	// Retrieved is the permission-filtered issue set the generator saw.
	Retrieved []store.Issue

	// ByKey indexes Retrieved by issue key.
	ByKey map[string]store.Issue
}

// NewCheckInput builds a CheckInput, indexing the retrieved issues.
func NewCheckInput(answer string, retrieved []store.Issue) *CheckInput {
	byKey := make(map[string]store.Issue, len(retrieved))
	for _, is := range retrieved {
		byKey[is.Key] = is
	}
	return &CheckInput{
		Answer:    answer,
		Retrieved: retrieved,
		ByKey:     byKey,
	}
}
