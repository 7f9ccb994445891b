// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search ranks issues against free-text queries with a TF-IDF
// vector model over the candidate corpus.
//
// Indexes are cheap to build (tens to low thousands of documents), so the
// combined retrieval path builds a fresh index over just the filtered
// candidates rather than re-weighting a global one. IDF computed over the
// candidate set is what makes the similarity score meaningful within that
// set.
package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

var tracer = otel.Tracer("issueassist/search")

// Config bounds a similarity search.
type Config struct {
	// TopK is the maximum number of results returned.
	TopK int

	// MinScore is the cosine similarity floor. Results below it are
	// dropped; better to return nothing than noise.
	MinScore float64
}

// DefaultConfig returns the standard search bounds.
func DefaultConfig() Config {
	return Config{
		TopK:     10,
		MinScore: 0.1,
	}
}

// Scored pairs an issue with its similarity to the query.
type Scored struct {
	Issue store.Issue

	// Score is cosine similarity in [0, 1].
	Score float64
}

// Index is a TF-IDF index over a fixed issue set.
//
// Thread Safety: read-only after construction; safe for concurrent use.
type Index struct {
	issues []store.Issue

	// docVectors holds one normalized term-frequency vector per issue,
	// parallel to issues.
	docVectors []map[string]float64

	// idf maps each term to log(N / documentFrequency).
	idf map[string]float64
}

// indexText is the text a single issue contributes to the index: the
// summary plus its label and component tokens. Comments are excluded so
// that comment redaction can never change ranking.
func indexText(is store.Issue) string {
	parts := []string{is.Summary}
	parts = append(parts, is.Labels...)
	parts = append(parts, is.Components...)
	return strings.Join(parts, " ")
}

// NewIndex builds an index over the given issues.
//
// Inputs:
//
//	issues - The candidate corpus. May be empty.
//
// Outputs:
//
//	*Index - Ready for Search and FindSimilar calls.
func NewIndex(issues []store.Issue) *Index {
	idx := &Index{
		issues:     append([]store.Issue(nil), issues...),
		docVectors: make([]map[string]float64, len(issues)),
		idf:        map[string]float64{},
	}

	docFreq := map[string]int{}
	for i, is := range idx.issues {
		terms := Tokenize(indexText(is))

		tf := map[string]float64{}
		for _, term := range terms {
			tf[term]++
		}
		if len(terms) > 0 {
			for term := range tf {
				tf[term] /= float64(len(terms))
			}
		}
		idx.docVectors[i] = tf

		for term := range tf {
			docFreq[term]++
		}
	}

	n := float64(len(idx.issues))
	for term, df := range docFreq {
		idx.idf[term] = math.Log(n / float64(df))
	}

	return idx
}

// Len returns the number of indexed issues.
func (x *Index) Len() int {
	return len(x.issues)
}

// Search ranks indexed issues against a free-text query.
//
// Description:
//
//	Tokenizes the query, weights terms by the corpus IDF, and scores each
//	document by cosine similarity. Results are sorted by descending score
//	with ties broken by ascending issue key, so a given corpus and query
//	always produce the same ordering.
//
//	A query whose terms never appear in the corpus produces a zero vector
//	and an empty result. That is the contract: no matches means no
//	results, never a fabricated "closest" issue.
//
// Inputs:
//
//	ctx - Context for tracing.
//	query - Free text. Filter phrasing should already be stripped.
//	cfg - TopK and MinScore bounds.
//
// Outputs:
//
//	[]Scored - At most cfg.TopK results, possibly empty, never nil.
//
// Thread Safety: safe for concurrent use.
func (x *Index) Search(ctx context.Context, query string, cfg Config) []Scored {
	_, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("search.corpus_size", len(x.issues)),
		attribute.Int("search.top_k", cfg.TopK),
	)

	qvec := x.queryVector(Tokenize(query))
	results := x.rank(qvec, cfg, -1)

	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results
}

// FindSimilar ranks indexed issues by similarity to one of their own.
//
// The source issue itself is excluded from the results.
//
// Outputs:
//
//	[]Scored - Ranked neighbors, possibly empty, never nil.
//	error - ErrIssueNotIndexed when key is not in this index.
func (x *Index) FindSimilar(ctx context.Context, key string, cfg Config) ([]Scored, error) {
	_, span := tracer.Start(ctx, "search.FindSimilar")
	defer span.End()
	span.SetAttributes(attribute.String("search.source_key", key))

	source := -1
	for i, is := range x.issues {
		if is.Key == key {
			source = i
			break
		}
	}
	if source < 0 {
		span.RecordError(ErrIssueNotIndexed)
		return nil, ErrIssueNotIndexed
	}

	// Use the source document's own vector, IDF-weighted, as the query.
	qvec := map[string]float64{}
	for term, tf := range x.docVectors[source] {
		qvec[term] = tf * x.idf[term]
	}

	return x.rank(qvec, cfg, source), nil
}

// queryVector builds an IDF-weighted term-frequency vector for query terms.
// Terms absent from the corpus contribute nothing.
func (x *Index) queryVector(terms []string) map[string]float64 {
	if len(terms) == 0 {
		return map[string]float64{}
	}
	tf := map[string]float64{}
	for _, term := range terms {
		if _, known := x.idf[term]; known {
			tf[term]++
		}
	}
	vec := map[string]float64{}
	for term, count := range tf {
		vec[term] = (count / float64(len(terms))) * x.idf[term]
	}
	return vec
}

// rank scores every document against qvec and returns the bounded,
// deterministically ordered result list. exclude is a document index to
// skip, or -1.
func (x *Index) rank(qvec map[string]float64, cfg Config, exclude int) []Scored {
	results := []Scored{}
	if len(qvec) == 0 {
		return results
	}

	for i, is := range x.issues {
		if i == exclude {
			continue
		}
		score := cosine(qvec, x.weighted(i))
		if score >= cfg.MinScore {
			results = append(results, Scored{Issue: is, Score: score})
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Issue.Key < results[b].Issue.Key
	})

	if cfg.TopK > 0 && len(results) > cfg.TopK {
		results = results[:cfg.TopK]
	}
	return results
}

// weighted returns document i's IDF-weighted vector.
func (x *Index) weighted(i int) map[string]float64 {
	vec := make(map[string]float64, len(x.docVectors[i]))
	for term, tf := range x.docVectors[i] {
		vec[term] = tf * x.idf[term]
	}
	return vec
}

// cosine computes cosine similarity between two sparse vectors.
func cosine(a, b map[string]float64) float64 {
	var dot float64
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (norm(a) * norm(b))
}

func norm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
