// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "errors"

// Sentinel errors for store construction.
var (
	// ErrBadIssueKey indicates a key that does not match KeyPattern.
	ErrBadIssueKey = errors.New("issue key does not match PROJECT-number format")

	// ErrDuplicateKey indicates two issues share the same key.
	ErrDuplicateKey = errors.New("duplicate issue key")

	// ErrProjectMismatch indicates an issue's project field disagrees
	// with its key prefix.
	ErrProjectMismatch = errors.New("issue project does not match key prefix")
)
