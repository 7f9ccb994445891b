// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classifier routes natural-language questions to a retrieval mode.
//
// The classifier decides whether a question maps to a structured predicate
// (exact field constraints), a free-text similarity search, or both. It is
// deliberately conservative: a clause it cannot resolve against the known
// vocabulary downgrades the whole query to similarity search rather than
// guessing a predicate that silently returns the wrong issues.
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/issueassist/services/assistant/iql"
	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// Mode is the retrieval strategy chosen for a query.
type Mode int

const (
	// ModeFiltered retrieves by structured predicate only.
	ModeFiltered Mode = iota

	// ModeSimilarity retrieves by free-text similarity only.
	ModeSimilarity

	// ModeCombined restricts by predicate first, then ranks the surviving
	// candidates by similarity.
	ModeCombined
)

// String returns the mode name used in logs and API responses.
func (m Mode) String() string {
	switch m {
	case ModeFiltered:
		return "filtered"
	case ModeSimilarity:
		return "similarity"
	case ModeCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// Decision is the classifier's output for one query.
type Decision struct {
	// Mode is the chosen retrieval strategy.
	Mode Mode

	// Predicate holds the extracted field constraints. Non-empty exactly
	// when Mode is ModeFiltered or ModeCombined.
	Predicate iql.Predicate

	// SimilarityQuery is the cleaned free-text query. Non-empty exactly
	// when Mode is ModeSimilarity or ModeCombined. For combined queries
	// the matched filter phrases have been stripped out so they do not
	// pollute the similarity ranking.
	SimilarityQuery string

	// Reasoning is a short human-readable account of the decision, for
	// logs and traces.
	Reasoning string
}

// QueryClassifier classifies user questions into retrieval decisions.
//
// Thread Safety: Implementations must be safe for concurrent use.
type QueryClassifier interface {
	// Classify maps a question to a retrieval decision.
	//
	// Inputs:
	//   ctx - Context for tracing and cancellation. Must not be nil.
	//   query - The user's question text.
	//
	// Outputs:
	//   Decision - The chosen mode with its predicate and/or cleaned query.
	//
	// Thread Safety: This method is safe for concurrent use.
	Classify(ctx context.Context, query string) Decision
}

// countPattern recognizes questions asking for a quantity. A count question
// with extractable fields always goes to the filtered path: counting
// requires exact retrieval, not a ranked sample.
var countPattern = regexp.MustCompile(`(?i)\bhow\s+many\b|\bcount\b|\bnumber\s+of\b|\btotal\b`)

// semanticPatterns recognize free-text phrasing that calls for similarity
// search rather than exact field matching.
var semanticPatterns = []string{
	`\brelated\s+to\b`,
	`\bsimilar\s+to\b`,
	`\babout\b`,
	`\blike\b`,
	`\bissues?\s+(?:with|involving)\b`,
	`\bproblems?\s+with\b`,
	`\bdealing\s+with\b`,
	`\bregarding\b`,
	`\bmention(?:s|ing)?\b`,
}

// assignedToPattern captures the name following "assigned to". The name is
// resolved against the assignee vocabulary afterwards.
var assignedToPattern = regexp.MustCompile(`(?i)\bassigned\s+to\s+([A-Za-z][A-Za-z .'-]*)`)

// unassignedPattern recognizes phrasing for issues with no assignee.
var unassignedPattern = regexp.MustCompile(`(?i)\bunassigned\b|\bno\s+assignee\b|\bwithout\s+an?\s+assignee\b`)

// labelPattern captures an explicit label mention.
var labelPattern = regexp.MustCompile(`(?i)\blabell?(?:ed)?\s+"?([\w-]+)"?`)

// componentPattern captures an explicit component mention.
var componentPattern = regexp.MustCompile(`(?i)\bcomponent\s+"?([\w-]+)"?`)

// leadingFillerPattern strips interrogative openers before the query is
// used as similarity text.
var leadingFillerPattern = regexp.MustCompile(`(?i)^\s*(?:what|which|show\s+me|show|find|get|list|give\s+me|tell\s+me)\s+(?:(?:are|is)\s+)?(?:all\s+)?(?:the\s+)?`)

// RegexClassifier implements QueryClassifier with vocabulary-anchored
// regular expressions.
//
// Field values are only ever extracted when they resolve to a known
// vocabulary entry, so the produced predicates always reference real
// projects, statuses, priorities, and assignees.
//
// Thread Safety: This type is safe for concurrent use after initialization.
type RegexClassifier struct {
	semanticPattern *regexp.Regexp

	projectPatterns  []vocabPattern
	statusPatterns   []vocabPattern
	priorityPatterns []vocabPattern

	// assignees maps the lowercased display name to its canonical form.
	assignees map[string]string
}

// vocabPattern pairs a canonical vocabulary value with the pattern that
// recognizes it in query text.
type vocabPattern struct {
	value   string
	pattern *regexp.Regexp
}

// NewRegexClassifier compiles patterns for the given vocabulary.
//
// Description:
//
//	Builds one word-boundary pattern per known project, status, and
//	priority value, plus the shared semantic and count patterns. Priority
//	values also match when followed by the word "priority" ("high
//	priority issues").
//
// Inputs:
//
//	vocab - The valid field values from the issue store.
//
// Outputs:
//
//	*RegexClassifier - A classifier ready for use.
//
// Thread Safety: The returned classifier is safe for concurrent use.
func NewRegexClassifier(vocab store.Vocabulary) *RegexClassifier {
	c := &RegexClassifier{
		semanticPattern: regexp.MustCompile("(?i)(" + strings.Join(semanticPatterns, "|") + ")"),
		assignees:       make(map[string]string, len(vocab.Assignees)),
	}

	for _, p := range vocab.Projects {
		c.projectPatterns = append(c.projectPatterns, vocabPattern{
			value:   p,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `(?:-\d+)?\b`),
		})
	}
	for _, s := range vocab.Statuses {
		c.statusPatterns = append(c.statusPatterns, vocabPattern{
			value:   s,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s) + `\b`),
		})
	}
	for _, p := range vocab.Priorities {
		c.priorityPatterns = append(c.priorityPatterns, vocabPattern{
			value:   p,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `(?:\s+priority)?\b`),
		})
	}
	for _, a := range vocab.Assignees {
		c.assignees[strings.ToLower(a)] = a
	}

	return c
}

// Classify maps a question to a retrieval decision.
//
// Description:
//
//	Extracts field constraints anchored on the vocabulary, detects
//	semantic and count phrasing, and picks the mode:
//
//	  fields only, or fields plus a count question  -> filtered
//	  semantic phrasing only, or nothing extracted  -> similarity
//	  fields plus semantic phrasing                 -> combined
//
//	An "assigned to X" clause whose name is not in the vocabulary makes
//	the whole query similarity mode. Returning a wrong-but-plausible
//	predicate would be worse than a fuzzy ranking.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	query - The user's question text.
//
// Outputs:
//
//	Decision - Mode, predicate, cleaned similarity text, and reasoning.
//
// Thread Safety: This method is safe for concurrent use.
func (c *RegexClassifier) Classify(ctx context.Context, query string) Decision {
	if ctx == nil {
		ctx = context.Background()
	}

	_, span := otel.Tracer("issueassist/classifier").Start(ctx, "classifier.RegexClassifier.Classify",
		trace.WithAttributes(
			attribute.Int("query_length", len(query)),
		),
	)
	defer span.End()

	ext := c.extract(query)
	isSemantic := c.semanticPattern.MatchString(query)
	isCount := countPattern.MatchString(query)

	var d Decision
	switch {
	case ext.unresolved != "":
		d = Decision{
			Mode:            ModeSimilarity,
			SimilarityQuery: cleanQuery(query, nil),
			Reasoning:       fmt.Sprintf("could not resolve %s; falling back to similarity search", ext.unresolved),
		}

	case len(ext.pred) > 0 && isSemantic && !isCount:
		d = Decision{
			Mode:            ModeCombined,
			Predicate:       ext.pred,
			SimilarityQuery: cleanQuery(query, ext.phrases),
			Reasoning:       fmt.Sprintf("extracted %s with free-text phrasing; filtering then ranking", describe(ext.pred)),
		}

	case len(ext.pred) > 0:
		reason := fmt.Sprintf("extracted %s", describe(ext.pred))
		if isCount {
			reason += "; count question requires exact retrieval"
		}
		d = Decision{
			Mode:      ModeFiltered,
			Predicate: ext.pred,
			Reasoning: reason,
		}

	default:
		reason := "no field constraints found; similarity search"
		if isSemantic {
			reason = "free-text phrasing; similarity search"
		}
		d = Decision{
			Mode:            ModeSimilarity,
			SimilarityQuery: cleanQuery(query, nil),
			Reasoning:       reason,
		}
	}

	span.SetAttributes(
		attribute.String("classifier.mode", d.Mode.String()),
		attribute.Int("classifier.conditions", len(d.Predicate)),
		attribute.Bool("classifier.count_question", isCount),
		attribute.String("classifier.reasoning", d.Reasoning),
	)
	return d
}

// extraction is the result of scanning a query for field constraints.
type extraction struct {
	pred iql.Predicate

	// phrases are the matched query substrings, removed from the
	// similarity text for combined queries.
	phrases []string

	// unresolved names the first clause that looked like a constraint but
	// did not resolve against the vocabulary. Empty when all resolved.
	unresolved string
}

// extract scans the query for vocabulary-anchored field constraints.
func (c *RegexClassifier) extract(query string) extraction {
	var ext extraction

	addIn := func(field string, values, phrases []string) {
		if len(values) == 0 {
			return
		}
		op := iql.OpEq
		if len(values) > 1 {
			op = iql.OpIn
		}
		ext.pred = append(ext.pred, iql.Condition{Field: field, Op: op, Values: values})
		ext.phrases = append(ext.phrases, phrases...)
	}

	projectValues, projectPhrases := matchVocab(c.projectPatterns, query)
	addIn(iql.FieldProject, projectValues, projectPhrases)
	statusValues, statusPhrases := matchVocab(c.statusPatterns, query)
	addIn(iql.FieldStatus, statusValues, statusPhrases)
	priorityValues, priorityPhrases := matchVocab(c.priorityPatterns, query)
	addIn(iql.FieldPriority, priorityValues, priorityPhrases)

	if m := unassignedPattern.FindString(query); m != "" {
		ext.pred = append(ext.pred, iql.Condition{Field: iql.FieldAssignee, Op: iql.OpIsEmpty})
		ext.phrases = append(ext.phrases, m)
	} else if m := assignedToPattern.FindStringSubmatch(query); m != nil {
		name, matched := c.resolveAssignee(m[1])
		if name == "" {
			ext.unresolved = fmt.Sprintf("assignee %q", strings.TrimSpace(m[1]))
			return ext
		}
		ext.pred = append(ext.pred, iql.Condition{Field: iql.FieldAssignee, Op: iql.OpEq, Values: []string{name}})
		ext.phrases = append(ext.phrases, "assigned to "+matched)
	}

	if m := labelPattern.FindStringSubmatch(query); m != nil {
		ext.pred = append(ext.pred, iql.Condition{Field: iql.FieldLabels, Op: iql.OpEq, Values: []string{m[1]}})
		ext.phrases = append(ext.phrases, m[0])
	}
	if m := componentPattern.FindStringSubmatch(query); m != nil {
		ext.pred = append(ext.pred, iql.Condition{Field: iql.FieldComponents, Op: iql.OpEq, Values: []string{m[1]}})
		ext.phrases = append(ext.phrases, m[0])
	}

	return ext
}

// resolveAssignee matches a captured name against the assignee vocabulary.
//
// The capture is greedy and may trail into unrelated words ("assigned to
// dana wu right now"), so resolution tries progressively shorter word
// prefixes. Returns the canonical name and the prefix that matched, or two
// empty strings.
func (c *RegexClassifier) resolveAssignee(captured string) (canonical, matched string) {
	words := strings.Fields(strings.TrimSpace(captured))
	for n := len(words); n > 0; n-- {
		candidate := strings.Join(words[:n], " ")
		if canonical, ok := c.assignees[strings.ToLower(candidate)]; ok {
			return canonical, candidate
		}
	}
	return "", ""
}

// matchVocab collects every vocabulary value whose pattern matches,
// returning canonical values and the exact matched substrings.
func matchVocab(patterns []vocabPattern, query string) (values, phrases []string) {
	for _, vp := range patterns {
		if m := vp.pattern.FindString(query); m != "" {
			values = append(values, vp.value)
			phrases = append(phrases, m)
		}
	}
	return values, phrases
}

// cleanQuery normalizes a question into similarity-search text: removes
// the given filter phrases, strips interrogative openers and trailing
// punctuation, and collapses whitespace.
func cleanQuery(query string, phrases []string) string {
	out := query
	for _, p := range phrases {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p))
		out = re.ReplaceAllString(out, " ")
	}
	out = leadingFillerPattern.ReplaceAllString(out, "")
	out = strings.TrimRight(strings.TrimSpace(out), "?!. ")
	return strings.Join(strings.Fields(out), " ")
}

// describe renders a predicate for reasoning strings.
func describe(pred iql.Predicate) string {
	if len(pred) == 1 {
		return "constraint " + pred.String()
	}
	return fmt.Sprintf("%d constraints (%s)", len(pred), pred.String())
}

// Ensure RegexClassifier implements QueryClassifier.
var _ QueryClassifier = (*RegexClassifier)(nil)
