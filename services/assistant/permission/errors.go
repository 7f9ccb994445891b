// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package permission

import "errors"

// ErrUnknownUser indicates no rule exists for the requested identity.
// Filtering treats this as zero access, never as full access.
var ErrUnknownUser = errors.New("unknown user identity")
