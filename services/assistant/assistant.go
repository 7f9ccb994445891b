// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assistant wires the retrieval-and-grounding pipeline into a
// request-scoped service.
//
// Pipeline order per request: classify, retrieve (predicate, similarity,
// or both), permission-filter, generate, validate. Two orderings are load
// bearing: permission filtering happens after ranking so relevance order
// survives, and before generation so the generator never sees an issue
// the user cannot. Validation failure substitutes a grounded template; it
// never loops back into generation.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/issueassist/services/assistant/answer"
	"github.com/AleutianAI/issueassist/services/assistant/classifier"
	"github.com/AleutianAI/issueassist/services/assistant/grounding"
	"github.com/AleutianAI/issueassist/services/assistant/iql"
	"github.com/AleutianAI/issueassist/services/assistant/permission"
	"github.com/AleutianAI/issueassist/services/assistant/search"
	"github.com/AleutianAI/issueassist/services/assistant/store"
)

var tracer = otel.Tracer("issueassist/assistant")

// minQueryRunes is the shortest query worth classifying. Anything shorter
// gets a clarification response instead of a guessed retrieval.
const minQueryRunes = 3

// clarificationAnswer is returned for queries too short to interpret.
const clarificationAnswer = "Could you rephrase your question? Try naming a project, status, assignee, or describing the issue you are looking for."

// countQuestionPattern selects the count-shaped template on fallback.
var countQuestionPattern = regexp.MustCompile(`(?i)\bhow\s+many\b|\bcount\b|\bnumber\s+of\b|\btotal\b`)

// Service runs the full query pipeline over a loaded issue store.
//
// Thread Safety: safe for concurrent use after construction.
type Service struct {
	store      *store.Store
	filter     *permission.Filter
	classifier classifier.QueryClassifier
	answerer   answer.Answerer
	validator  *grounding.Validator

	// index covers the whole store, for pure similarity queries. Combined
	// queries build a per-request index over their predicate's candidates.
	index     *search.Index
	searchCfg search.Config
}

// NewService builds a service over the given store and permission table.
//
// Inputs:
//
//	st - The loaded issue store.
//	table - The permission table.
//	answerer - The answer generator. Use answer.NewTemplateAnswerer() for
//	           deterministic operation without a model.
//
// Outputs:
//
//	*Service - Ready for ProcessQuery calls.
func NewService(st *store.Store, table *permission.Table, answerer answer.Answerer) *Service {
	return &Service{
		store:      st,
		filter:     permission.NewFilter(table),
		classifier: classifier.NewRegexClassifier(st.Vocab()),
		answerer:   answerer,
		validator:  grounding.NewValidator(st.Vocab()),
		index:      search.NewIndex(st.Issues()),
		searchCfg:  search.DefaultConfig(),
	}
}

// ProcessQuery runs one question through the full pipeline.
//
// Description:
//
//	Classifies the query, retrieves issues in the chosen mode, filters
//	them for the requesting user, generates an answer from the survivors
//	only, and validates that answer before returning it. Recoverable
//	failures degrade rather than error out: a bad predicate downgrades
//	to similarity search, a permission lookup failure returns an empty
//	(not complete) result set, a generation failure or validation
//	rejection substitutes a grounded template.
//
// Inputs:
//
//	ctx - Context for tracing and cancellation.
//	req - The validated request.
//
// Outputs:
//
//	QueryResponse - Always a complete response; pipeline failures surface
//	                in its Warnings and Errors fields, not as an error.
//
// Thread Safety: safe for concurrent use.
func (s *Service) ProcessQuery(ctx context.Context, req QueryRequest) QueryResponse {
	ctx, span := tracer.Start(ctx, "assistant.Service.ProcessQuery")
	defer span.End()

	requestID := uuid.NewString()
	log := slog.With("request_id", requestID, "user_id", req.UserID)
	span.SetAttributes(
		attribute.String("assistant.request_id", requestID),
		attribute.Int("assistant.query_length", len(req.Query)),
	)

	query := strings.TrimSpace(req.Query)
	if utf8.RuneCountInString(query) < minQueryRunes {
		log.Info("Query too short, asking for clarification")
		return QueryResponse{
			RequestID:        requestID,
			Answer:           clarificationAnswer,
			Issues:           []IssueView{},
			QueryMode:        "clarification",
			ValidationPassed: true,
		}
	}

	resp := QueryResponse{RequestID: requestID, ValidationPassed: true}

	decision := s.classifier.Classify(ctx, query)
	log.Info("Classified query", "mode", decision.Mode.String(), "reasoning", decision.Reasoning)

	retrieved, scores := s.retrieve(ctx, query, &decision, &resp, log)
	resp.QueryMode = decision.Mode.String()
	if len(decision.Predicate) > 0 {
		resp.Predicate = decision.Predicate.String()
	}
	resp.SimilarityQuery = decision.SimilarityQuery

	// Permission filtering runs last in retrieval, on the final ranked
	// order, so nothing can reintroduce a hidden issue afterwards.
	filtered := s.filter.Apply(retrieved, req.UserID)
	if filtered.HiddenCount > 0 {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("%d issue(s) hidden due to permissions", filtered.HiddenCount))
		log.Info("Permission filter hid issues", "hidden", filtered.HiddenCount, "allowed", len(filtered.Allowed))
	}
	allowed := filtered.Allowed

	resp.Answer = s.generate(ctx, query, allowed, &resp, log)
	resp.Issues = make([]IssueView, 0, len(allowed))
	for _, is := range allowed {
		resp.Issues = append(resp.Issues, issueView(is, scores))
	}
	resp.TotalCount = len(allowed)

	span.SetAttributes(
		attribute.String("assistant.mode", resp.QueryMode),
		attribute.Int("assistant.results", resp.TotalCount),
		attribute.Bool("assistant.validation_passed", resp.ValidationPassed),
	)
	return resp
}

// retrieve fetches candidate issues per the classification decision. A
// failed predicate downgrades the decision to similarity mode in place.
func (s *Service) retrieve(ctx context.Context, query string, decision *classifier.Decision, resp *QueryResponse, log *slog.Logger) ([]store.Issue, map[string]float64) {
	switch decision.Mode {
	case classifier.ModeFiltered:
		issues, err := iql.Execute(ctx, decision.Predicate, s.store)
		if err != nil {
			log.Warn("Structured retrieval failed, downgrading to similarity", "error", err, "predicate", decision.Predicate.String())
			resp.Warnings = append(resp.Warnings, "structured query failed; answered with similarity search instead")
			*decision = classifier.Decision{
				Mode:            classifier.ModeSimilarity,
				SimilarityQuery: query,
				Reasoning:       "downgraded after structured query failure",
			}
			return s.similarity(ctx, decision.SimilarityQuery)
		}
		return issues, nil

	case classifier.ModeCombined:
		candidates, err := iql.Execute(ctx, decision.Predicate, s.store)
		if err != nil {
			log.Warn("Structured retrieval failed, downgrading to similarity", "error", err, "predicate", decision.Predicate.String())
			resp.Warnings = append(resp.Warnings, "structured query failed; answered with similarity search instead")
			*decision = classifier.Decision{
				Mode:            classifier.ModeSimilarity,
				SimilarityQuery: query,
				Reasoning:       "downgraded after structured query failure",
			}
			return s.similarity(ctx, decision.SimilarityQuery)
		}
		return s.rankWithin(ctx, candidates, decision.SimilarityQuery)

	default:
		return s.similarity(ctx, decision.SimilarityQuery)
	}
}

// similarity searches the whole-store index.
func (s *Service) similarity(ctx context.Context, query string) ([]store.Issue, map[string]float64) {
	scored := s.index.Search(ctx, query, s.searchCfg)
	issues := make([]store.Issue, 0, len(scored))
	scores := make(map[string]float64, len(scored))
	for _, r := range scored {
		issues = append(issues, r.Issue)
		scores[r.Issue.Key] = r.Score
	}
	return issues, scores
}

// rankWithin orders predicate candidates by similarity. Ranked issues
// come first; candidates the ranking dropped follow in store order, since
// they still satisfy the predicate and the user asked for them.
func (s *Service) rankWithin(ctx context.Context, candidates []store.Issue, query string) ([]store.Issue, map[string]float64) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	idx := search.NewIndex(candidates)
	scored := idx.Search(ctx, query, search.Config{TopK: len(candidates), MinScore: s.searchCfg.MinScore})

	ranked := make([]store.Issue, 0, len(candidates))
	scores := make(map[string]float64, len(scored))
	for _, r := range scored {
		ranked = append(ranked, r.Issue)
		scores[r.Issue.Key] = r.Score
	}
	for _, is := range candidates {
		if _, ok := scores[is.Key]; !ok {
			ranked = append(ranked, is)
		}
	}
	return ranked, scores
}

// generate produces the final, validated answer text.
func (s *Service) generate(ctx context.Context, query string, allowed []store.Issue, resp *QueryResponse, log *slog.Logger) string {
	if len(allowed) == 0 {
		return grounding.EmptyResultAnswer
	}

	text, err := s.answerer.Answer(ctx, query, allowed)
	if err != nil {
		log.Error("Answer generation failed, using grounded template", "error", err)
		resp.Errors = append(resp.Errors, "answer generation failed; returning a grounded summary")
		return grounding.RenderTemplate(templateKindFor(query, allowed), allowed)
	}

	result := s.validator.Validate(ctx, text, allowed)
	if s.validator.ShouldFallback(result) {
		log.Warn("Answer failed validation, substituting grounded template",
			"hallucinated_keys", result.HallucinatedKeys,
			"count_mismatches", len(result.CountMismatches),
			"field_mismatches", len(result.FieldMismatches),
			"confidence", result.Confidence)
		grounding.RecordFallback(ctx, fallbackReason(result))
		resp.ValidationPassed = false
		return grounding.RenderTemplate(templateKindFor(query, allowed), allowed)
	}

	return text
}

// templateKindFor picks the template shape matching the question's intent.
func templateKindFor(query string, issues []store.Issue) grounding.TemplateKind {
	switch {
	case countQuestionPattern.MatchString(query):
		return grounding.TemplateCount
	case len(issues) == 1 && strings.Contains(strings.ToUpper(query), issues[0].Key):
		return grounding.TemplateDetail
	default:
		return grounding.TemplateList
	}
}

// fallbackReason names the dominant violation category for metrics.
func fallbackReason(result *grounding.Result) string {
	switch {
	case len(result.HallucinatedKeys) > 0:
		return "phantom_key"
	case len(result.CountMismatches) > 0:
		return "count_mismatch"
	case len(result.FieldMismatches) > 0:
		return "field_mismatch"
	default:
		return "other"
	}
}
