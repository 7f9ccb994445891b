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
)

// keyMentionPattern finds issue key mentions in answer text. Matches the
// store key format: uppercase project code, dash, number.
var keyMentionPattern = regexp.MustCompile(`\b[A-Z]+-[0-9]+\b`)

// KeyChecker verifies that every issue key mentioned in the answer belongs
// to the retrieved set.
//
// The check is membership in Retrieved, not existence in the store. A key
// that is real but was not retrieved is just as much a fabrication from
// the reader's point of view: the generator was never shown it.
//
// Thread Safety: This type is safe for concurrent use.
type KeyChecker struct{}

// NewKeyChecker creates a KeyChecker.
func NewKeyChecker() *KeyChecker {
	return &KeyChecker{}
}

// Name returns the checker name.
func (c *KeyChecker) Name() string {
	return "key_checker"
}

// Check finds key mentions absent from the retrieved set.
//
// Repeated mentions of the same phantom key produce one violation, at the
// first mention's position.
func (c *KeyChecker) Check(ctx context.Context, input *CheckInput) []Violation {
	var violations []Violation

	seen := map[string]bool{}
	for _, loc := range keyMentionPattern.FindAllStringIndex(input.Answer, -1) {
		key := input.Answer[loc[0]:loc[1]]
		if seen[key] {
			continue
		}
		seen[key] = true

		if _, ok := input.ByKey[key]; ok {
			continue
		}
		violations = append(violations, Violation{
			Type:     ViolationPhantomKey,
			Message:  fmt.Sprintf("answer mentions %s, which is not in the retrieved results", key),
			Evidence: key,
			Position: loc[0],
		})
	}

	return violations
}

// Ensure KeyChecker implements Checker.
var _ Checker = (*KeyChecker)(nil)
