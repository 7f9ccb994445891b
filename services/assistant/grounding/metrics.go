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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for validation operations.
var (
	tracer = otel.Tracer("issueassist.grounding")
	meter  = otel.Meter("issueassist.grounding")
)

// Metrics for validation operations.
var (
	validationsTotal    metric.Int64Counter
	checkDuration       metric.Float64Histogram
	violationsTotal     metric.Int64Counter
	fallbacksTotal      metric.Int64Counter
	confidenceHistogram metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		validationsTotal, err = meter.Int64Counter(
			"assistant_validations_total",
			metric.WithDescription("Total answer validations by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkDuration, err = meter.Float64Histogram(
			"assistant_validation_duration_seconds",
			metric.WithDescription("Answer validation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		violationsTotal, err = meter.Int64Counter(
			"assistant_validation_violations_total",
			metric.WithDescription("Total validation violations by type and checker"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		fallbacksTotal, err = meter.Int64Counter(
			"assistant_grounded_fallbacks_total",
			metric.WithDescription("Total answers replaced with grounded templates"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		confidenceHistogram, err = meter.Float64Histogram(
			"assistant_validation_confidence",
			metric.WithDescription("Answer confidence score distribution"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// RecordValidation records aggregate metrics for one validation run.
//
// Thread Safety: Safe for concurrent use.
func RecordValidation(ctx context.Context, result *Result) {
	if err := initMetrics(); err != nil {
		return
	}
	if result == nil {
		return
	}

	outcome := "valid"
	if !result.Valid {
		outcome = "invalid"
	}

	validationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	checkDuration.Record(ctx, result.CheckDuration.Seconds())
	confidenceHistogram.Record(ctx, result.Confidence)
}

// RecordViolation records a single violation.
//
// Thread Safety: Safe for concurrent use.
func RecordViolation(ctx context.Context, checker string, v Violation) {
	if err := initMetrics(); err != nil {
		return
	}

	violationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(v.Type)),
		attribute.String("checker", checker),
	))
}

// RecordFallback records that an invalid answer was replaced with a
// grounded template.
//
// Thread Safety: Safe for concurrent use.
func RecordFallback(ctx context.Context, reason string) {
	if err := initMetrics(); err != nil {
		return
	}
	fallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// AddCheckerEvent adds a span event for one checker execution.
//
// Thread Safety: Safe for concurrent use.
func AddCheckerEvent(span trace.Span, checker string, violationCount int, duration time.Duration) {
	span.AddEvent("checker_executed", trace.WithAttributes(
		attribute.String("checker", checker),
		attribute.Int("violations", violationCount),
		attribute.Int64("duration_ms", duration.Milliseconds()),
	))
}
