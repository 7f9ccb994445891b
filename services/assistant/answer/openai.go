// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package answer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/issueassist/services/assistant/store"
)

// systemPromptHeader instructs the model before the issue data is
// appended. The instructions reduce hallucination but do not prevent it;
// the grounding validator is what actually enforces them.
const systemPromptHeader = `You are an assistant that answers questions about tracked issues.
You may ONLY use the issue data listed below. Rules:
- Never mention an issue key that is not listed below.
- State statuses, priorities, and assignees exactly as listed.
- When giving a count, count the listed issues exactly.
- If the list is empty, say that no issues matched.

Issue data:
`

// OpenAIAnswerer generates answers with an OpenAI chat model. The prompt
// contains only the retrieved issues; temperature is pinned to zero.
type OpenAIAnswerer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnswerer builds the answerer from environment configuration.
//
// OPENAI_API_KEY supplies the key, with /run/secrets/openai_api_key as a
// fallback for container deployments. OPENAI_MODEL selects the model,
// defaulting to gpt-4o-mini.
func NewOpenAIAnswerer() (*OpenAIAnswerer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		raw, err := os.ReadFile(secretPath)
		if err != nil {
			slog.Error("OPENAI_API_KEY not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		apiKey = strings.TrimSpace(string(raw))
		slog.Info("Read the OpenAI API key from secrets")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}

	slog.Info("Initializing OpenAI answerer", "model", model)
	return &OpenAIAnswerer{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Answer generates an answer from the retrieved issues.
func (a *OpenAIAnswerer) Answer(ctx context.Context, query string, issues []store.Issue) (string, error) {
	slog.Debug("Generating answer via OpenAI", "model", a.model, "issues", len(issues))

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(issues)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildSystemPrompt serializes the retrieved issues into the system
// prompt. This is the generator's entire view of the world.
func buildSystemPrompt(issues []store.Issue) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)

	if len(issues) == 0 {
		b.WriteString("(no issues matched)\n")
		return b.String()
	}

	for _, is := range issues {
		fmt.Fprintf(&b, "- key=%s summary=%q status=%q priority=%q", is.Key, is.Summary, is.Status, is.Priority)
		if is.Unassigned() {
			b.WriteString(" assignee=unassigned")
		} else {
			fmt.Fprintf(&b, " assignee=%q", is.Assignee)
		}
		if len(is.Labels) > 0 {
			fmt.Fprintf(&b, " labels=%s", strings.Join(is.Labels, ","))
		}
		if len(is.Components) > 0 {
			fmt.Fprintf(&b, " components=%s", strings.Join(is.Components, ","))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total issues listed: %d\n", len(issues))
	return b.String()
}

// Ensure OpenAIAnswerer implements Answerer.
var _ Answerer = (*OpenAIAnswerer)(nil)
