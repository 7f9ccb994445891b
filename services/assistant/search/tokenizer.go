// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"regexp"
	"strings"

	"github.com/surgebase/porter2"
)

// tokenPattern extracts lowercase alphanumeric runs. Everything else is
// treated as a separator.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// stopwords are dropped before stemming. Kept small on purpose: issue
// summaries are short, so aggressive stopword removal costs more recall
// than it saves.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true,
	"to": true, "was": true, "were": true, "will": true, "with": true,
	"when": true, "this": true, "not": true, "no": true, "all": true,
}

// Tokenize splits text into normalized index terms.
//
// Description:
//
//	Lowercases, extracts alphanumeric runs, drops stopwords and
//	single-character tokens, then applies Porter2 stemming so that
//	"payments" and "payment" land on the same term.
//
// Outputs:
//
//	[]string - Terms in text order, possibly with repeats. Empty (never
//	           nil) when nothing survives normalization.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		terms = append(terms, porter2.Stem(tok))
	}
	return terms
}
