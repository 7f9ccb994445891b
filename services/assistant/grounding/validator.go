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
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// Validator runs every checker against a generated answer.
//
// Thread Safety: This type is safe for concurrent use after initialization.
type Validator struct {
	checkers []Checker
}

// NewValidator creates a validator with the standard checker set: issue
// key membership, exact counts, and per-issue field claims.
//
// Inputs:
//
//	vocab - The field vocabulary, used by the field checker to recognize
//	        status and priority claims.
//
// Outputs:
//
//	*Validator - Ready for Validate calls.
func NewValidator(vocab store.Vocabulary) *Validator {
	return &Validator{
		checkers: []Checker{
			NewKeyChecker(),
			NewCountChecker(),
			NewFieldChecker(vocab),
		},
	}
}

// Validate checks a generated answer against the retrieved issues.
//
// Description:
//
//	Runs every checker and aggregates the violations into a Result. The
//	result starts valid with confidence 1.0; each violation flips Valid
//	to false and decrements confidence. Validation itself never fails:
//	an answer that cannot be checked positively is treated as invalid by
//	construction of the checkers, not by an error path.
//
// Inputs:
//
//	ctx - Context for tracing and cancellation.
//	answer - The generated answer text.
//	retrieved - The permission-filtered issues the generator was given.
//
// Outputs:
//
//	*Result - The validation outcome. Never nil.
//
// Thread Safety: This method is safe for concurrent use.
func (v *Validator) Validate(ctx context.Context, answer string, retrieved []store.Issue) *Result {
	ctx, span := tracer.Start(ctx, "grounding.Validator.Validate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("grounding.answer_length", len(answer)),
		attribute.Int("grounding.retrieved_count", len(retrieved)),
	)

	start := time.Now()
	input := NewCheckInput(answer, retrieved)
	result := &Result{Valid: true, Confidence: 1.0}

	for _, checker := range v.checkers {
		checkStart := time.Now()
		violations := checker.Check(ctx, input)
		AddCheckerEvent(span, checker.Name(), len(violations), time.Since(checkStart))

		for _, violation := range violations {
			result.AddViolation(violation)
			RecordViolation(ctx, checker.Name(), violation)
		}
		result.ChecksRun++
	}

	// Stable report order regardless of checker order.
	sort.SliceStable(result.Violations, func(a, b int) bool {
		return result.Violations[a].Position < result.Violations[b].Position
	})

	result.CheckDuration = time.Since(start)
	span.SetAttributes(
		attribute.Bool("grounding.valid", result.Valid),
		attribute.Float64("grounding.confidence", result.Confidence),
		attribute.Int("grounding.violations", len(result.Violations)),
	)
	RecordValidation(ctx, result)

	return result
}

// ShouldFallback reports whether the answer must be replaced with a
// grounded template. Any violation at all means yes.
func (v *Validator) ShouldFallback(result *Result) bool {
	return result == nil || !result.Valid
}
