// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package permission enforces per-user access rules on retrieved issues.
//
// The filter runs after retrieval and ranking but before any issue reaches
// the generation step: the generator can only repeat data it was given, so
// filtering here is what prevents cross-user data leakage. Every retrieval
// path must pass through Filter.Apply; there is no exit that bypasses it.
//
// Lookup failures fail closed. An unknown user sees nothing, never
// everything.
package permission

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// Rule is the access rule for one user.
type Rule struct {
	// AllowedProjects lists project codes the user may see.
	AllowedProjects []string `json:"allowed_projects"`

	// DeniedComponents lists components that hide an issue from the user.
	DeniedComponents []string `json:"denied_components"`

	// DeniedLabels lists labels that hide an issue from the user.
	DeniedLabels []string `json:"denied_labels"`

	// CanViewComments controls whether issue comments are visible.
	// When false, comments are redacted (replaced with an empty sequence)
	// on issues the user can otherwise see.
	CanViewComments bool `json:"can_view_comments"`
}

// allowsProject reports whether the rule grants access to a project code.
func (r Rule) allowsProject(project string) bool {
	for _, p := range r.AllowedProjects {
		if p == project {
			return true
		}
	}
	return false
}

// Table maps user identities to access rules.
//
// Loaded once at process start; read-only afterwards.
//
// Thread Safety: safe for concurrent reads after construction.
type Table struct {
	rules map[string]Rule
}

// tableFile is the on-disk shape of the permission file.
type tableFile struct {
	Permissions map[string]Rule `json:"permissions"`
}

// LoadTable reads the permission file at path.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading permissions: %w", err)
	}

	var f tableFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing permissions: %w", err)
	}
	if f.Permissions == nil {
		f.Permissions = map[string]Rule{}
	}

	return &Table{rules: f.Permissions}, nil
}

// NewTable builds a table from an in-memory rule map. Used by tests.
func NewTable(rules map[string]Rule) *Table {
	if rules == nil {
		rules = map[string]Rule{}
	}
	return &Table{rules: rules}
}

// Lookup returns the rule for a user identity.
//
// Outputs:
//
//	Rule - The user's rule. Zero value when the user is unknown.
//	error - ErrUnknownUser when no rule exists. Callers that filter issue
//	        lists should treat this as "zero access", not as a failure.
func (t *Table) Lookup(userID string) (Rule, error) {
	rule, ok := t.rules[userID]
	if !ok {
		return Rule{}, fmt.Errorf("user %q: %w", userID, ErrUnknownUser)
	}
	return rule, nil
}

// Result is the outcome of filtering one issue sequence for one user.
type Result struct {
	// Allowed is the permitted subsequence, in the input order. Comments
	// are redacted per the user's rule.
	Allowed []store.Issue

	// HiddenCount is how many input issues were withheld. Only the
	// aggregate is reported; no identifying detail about hidden issues
	// leaves the filter.
	HiddenCount int
}

// Filter applies a permission table to issue sequences.
type Filter struct {
	table *Table
}

// NewFilter creates a filter over the given table.
func NewFilter(table *Table) *Filter {
	return &Filter{table: table}
}

// Apply filters issues for a user.
//
// Description:
//
//	Keeps only issues whose project is allowed and which carry none of the
//	user's denied components or labels. Input order is preserved so that
//	relevance ranking survives filtering. Issues that pass have their
//	comments redacted unless the rule grants comment visibility.
//
//	An unknown user yields an empty Allowed set with every input counted
//	as hidden (fail closed). This is deliberately indistinguishable, from
//	the caller's perspective, from a user who is denied everything.
//
// Inputs:
//
//	issues - Candidate issues in ranked or store order.
//	userID - The requesting user's identity.
//
// Outputs:
//
//	Result - Permitted issues plus the aggregate hidden count.
//
// Thread Safety: safe for concurrent use.
func (f *Filter) Apply(issues []store.Issue, userID string) Result {
	rule, err := f.table.Lookup(userID)
	if err != nil {
		return Result{Allowed: []store.Issue{}, HiddenCount: len(issues)}
	}

	allowed := make([]store.Issue, 0, len(issues))
	for _, is := range issues {
		if !f.visible(rule, is) {
			continue
		}
		out := is.Clone()
		if !rule.CanViewComments {
			out.Comments = []store.Comment{}
		}
		allowed = append(allowed, out)
	}

	return Result{
		Allowed:     allowed,
		HiddenCount: len(issues) - len(allowed),
	}
}

// visible reports whether a single issue passes the rule.
func (f *Filter) visible(rule Rule, is store.Issue) bool {
	if !rule.allowsProject(is.Project) {
		return false
	}
	for _, c := range rule.DeniedComponents {
		if is.HasComponent(c) {
			return false
		}
	}
	for _, l := range rule.DeniedLabels {
		if is.HasLabel(l) {
			return false
		}
	}
	return true
}
