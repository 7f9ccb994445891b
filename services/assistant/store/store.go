// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store holds the in-memory issue corpus.
//
// The store is loaded once at process start and is read-only for the
// lifetime of the process. Every pipeline stage reads from the same shared
// instance; nothing mutates it during request processing, so concurrent
// readers need no locking.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// KeyPattern is the canonical issue key format: uppercase project code,
// a dash, and a numeric sequence (e.g. FIN-101). Case-sensitive.
var KeyPattern = regexp.MustCompile(`^[A-Z]+-[0-9]+$`)

// Comment is a single comment on an issue.
type Comment struct {
	// Author is the display name of the comment author.
	Author string `json:"author"`

	// Body is the comment text.
	Body string `json:"body"`
}

// Issue is an immutable issue record.
//
// Fields mirror the tracker's data model. The zero value is not a valid
// issue; issues are only created by loading a data file or by tests.
type Issue struct {
	// Key uniquely identifies the issue (e.g. "FIN-101").
	Key string `json:"key"`

	// Project is the project code, equal to the key prefix (e.g. "FIN").
	Project string `json:"project"`

	// Summary is the one-line issue title.
	Summary string `json:"summary"`

	// Status is one of the tracker's status vocabulary values.
	Status string `json:"status"`

	// Priority is one of the tracker's priority vocabulary values.
	Priority string `json:"priority"`

	// Assignee is the assignee display name, or empty when unassigned.
	Assignee string `json:"assignee"`

	// Labels is the set of labels on the issue.
	Labels []string `json:"labels"`

	// Components is the set of components the issue touches.
	Components []string `json:"components"`

	// Comments is the ordered comment sequence.
	Comments []Comment `json:"comments"`
}

// Unassigned reports whether the issue has no assignee.
func (i Issue) Unassigned() bool {
	return strings.TrimSpace(i.Assignee) == ""
}

// HasLabel reports whether the issue carries the given label (exact match).
func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// HasComponent reports whether the issue touches the given component.
func (i Issue) HasComponent(component string) bool {
	for _, c := range i.Components {
		if c == component {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the issue. Used by the permission filter
// so redaction never touches the shared store.
func (i Issue) Clone() Issue {
	out := i
	out.Labels = append([]string(nil), i.Labels...)
	out.Components = append([]string(nil), i.Components...)
	out.Comments = append([]Comment(nil), i.Comments...)
	return out
}

// Vocabulary holds the valid values for the enum-like issue fields.
//
// The classifier uses it to recognize filter phrases and the validator
// uses it to recognize field claims. Values are taken from the data file
// when present, otherwise derived from the loaded issues.
type Vocabulary struct {
	Projects   []string
	Statuses   []string
	Priorities []string
	Assignees  []string
}

// Store is the read-only issue collection.
//
// Iteration order is the data file order and is stable across calls, which
// the filter executor relies on for deterministic results.
//
// Thread Safety: safe for concurrent reads after construction.
type Store struct {
	issues []Issue
	byKey  map[string]Issue
	vocab  Vocabulary
}

// dataFile is the on-disk shape of the issue data file.
type dataFile struct {
	Projects   []string `json:"projects"`
	Statuses   []string `json:"statuses"`
	Priorities []string `json:"priorities"`
	Issues     []Issue  `json:"issues"`
}

// Load reads the issue data file at path and builds a store.
//
// Inputs:
//
//	path - Path to the JSON data file.
//
// Outputs:
//
//	*Store - The loaded store.
//	error - Non-nil if the file is unreadable, malformed, contains an
//	        issue key that violates KeyPattern, or contains duplicates.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading issue data: %w", err)
	}

	var f dataFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing issue data: %w", err)
	}

	st, err := New(f.Issues)
	if err != nil {
		return nil, err
	}

	// Prefer the file's declared vocabulary; it may list values no issue
	// currently uses.
	if len(f.Projects) > 0 {
		st.vocab.Projects = f.Projects
	}
	if len(f.Statuses) > 0 {
		st.vocab.Statuses = f.Statuses
	}
	if len(f.Priorities) > 0 {
		st.vocab.Priorities = f.Priorities
	}

	return st, nil
}

// New builds a store from an issue slice, deriving the vocabulary.
//
// Inputs:
//
//	issues - Issues in the order they should iterate.
//
// Outputs:
//
//	*Store - The constructed store.
//	error - Non-nil on malformed keys, key/project mismatch, or duplicates.
func New(issues []Issue) (*Store, error) {
	st := &Store{
		issues: append([]Issue(nil), issues...),
		byKey:  make(map[string]Issue, len(issues)),
	}

	projects := map[string]bool{}
	statuses := map[string]bool{}
	priorities := map[string]bool{}
	assignees := map[string]bool{}

	for i := range st.issues {
		is := &st.issues[i]
		if !KeyPattern.MatchString(is.Key) {
			return nil, fmt.Errorf("issue key %q: %w", is.Key, ErrBadIssueKey)
		}
		prefix := is.Key[:strings.IndexByte(is.Key, '-')]
		if is.Project == "" {
			is.Project = prefix
		}
		if is.Project != prefix {
			return nil, fmt.Errorf("issue %s declares project %q: %w", is.Key, is.Project, ErrProjectMismatch)
		}
		if _, dup := st.byKey[is.Key]; dup {
			return nil, fmt.Errorf("issue key %q: %w", is.Key, ErrDuplicateKey)
		}
		st.byKey[is.Key] = *is

		projects[is.Project] = true
		if is.Status != "" {
			statuses[is.Status] = true
		}
		if is.Priority != "" {
			priorities[is.Priority] = true
		}
		if !is.Unassigned() {
			assignees[is.Assignee] = true
		}
	}

	st.vocab = Vocabulary{
		Projects:   sortedKeys(projects),
		Statuses:   sortedKeys(statuses),
		Priorities: sortedKeys(priorities),
		Assignees:  sortedKeys(assignees),
	}

	return st, nil
}

// Issues returns the issues in store iteration order.
//
// The returned slice is a copy; the backing issues are shared and must not
// be mutated by callers.
func (s *Store) Issues() []Issue {
	return append([]Issue(nil), s.issues...)
}

// ByKey looks up a single issue.
func (s *Store) ByKey(key string) (Issue, bool) {
	is, ok := s.byKey[key]
	return is, ok
}

// Len returns the number of issues in the store.
func (s *Store) Len() int {
	return len(s.issues)
}

// Vocab returns the valid values for the enum-like fields.
func (s *Store) Vocab() Vocabulary {
	return s.vocab
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
