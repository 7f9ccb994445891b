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
	"strconv"
	"strings"
)

// countClaimPatterns recognize count assertions about the result set.
// Group 1 captures an optional hedge qualifier, group 2 the number
// (digits or a number word).
var countClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(about |around |roughly |approximately |over |more than |nearly )?(\d+|[a-z]+)\s+(?:issues?|tickets?|results?|matches)\b`),
	regexp.MustCompile(`(?i)\bthere\s+(?:are|is)\s+(about |around |roughly |approximately |over |more than |nearly )?(\d+|[a-z]+)\b`),
	regexp.MustCompile(`(?i)\bfound\s+(about |around |roughly |approximately |over |more than |nearly )?(\d+|[a-z]+)\b`),
	regexp.MustCompile(`(?i)\btotal\s+of\s+(about |around |roughly |approximately |over |more than |nearly )?(\d+|[a-z]+)\b`),
}

// numberWords maps English number words to their integer values. Words
// outside this map (e.g. "several", "many") are not exact claims and are
// not validated.
var numberWords = map[string]int{
	"zero":     0,
	"one":      1,
	"two":      2,
	"three":    3,
	"four":     4,
	"five":     5,
	"six":      6,
	"seven":    7,
	"eight":    8,
	"nine":     9,
	"ten":      10,
	"eleven":   11,
	"twelve":   12,
	"thirteen": 13,
	"fourteen": 14,
	"fifteen":  15,
	"sixteen":  16,
	"twenty":   20,
}

// CountChecker verifies count claims against the retrieved result count.
//
// Hedged claims ("about 10 issues") are held to the same exact-equality
// standard as bare ones. The retrieved count is known precisely, so there
// is never a legitimate reason for the generator to round it; a hedge
// around the right number passes, a hedge around the wrong number is
// still a mismatch. Non-numeric quantifiers ("several", "many") carry no
// checkable number and are not claims.
//
// Thread Safety: This type is safe for concurrent use.
type CountChecker struct{}

// NewCountChecker creates a CountChecker.
func NewCountChecker() *CountChecker {
	return &CountChecker{}
}

// Name returns the checker name.
func (c *CountChecker) Name() string {
	return "count_checker"
}

// Check finds count claims that disagree with len(Retrieved).
func (c *CountChecker) Check(ctx context.Context, input *CheckInput) []Violation {
	var violations []Violation
	actual := len(input.Retrieved)

	// Dedupe by position so overlapping patterns report a claim once.
	claimed := map[int]bool{}

	for _, pattern := range countClaimPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(input.Answer, -1) {
			numStart, numEnd := m[4], m[5]
			n, ok := parseCount(input.Answer[numStart:numEnd])
			if !ok || claimed[numStart] {
				continue
			}
			claimed[numStart] = true

			if n != actual {
				violations = append(violations, Violation{
					Type:     ViolationCountMismatch,
					Message:  fmt.Sprintf("answer claims %d results but %d were retrieved", n, actual),
					Evidence: strconv.Itoa(n),
					Expected: strconv.Itoa(actual),
					Position: numStart,
				})
			}
		}
	}

	return violations
}

// parseCount converts a digit string or number word to an int.
func parseCount(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	n, ok := numberWords[strings.ToLower(s)]
	return n, ok
}

// Ensure CountChecker implements Checker.
var _ Checker = (*CountChecker)(nil)
