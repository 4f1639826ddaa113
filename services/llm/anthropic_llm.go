// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    []systemBlock      `json:"system,omitempty"` // Top-level system prompt
	MaxTokens int                `json:"max_tokens"`

	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	StopSeqs    []string `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"` // Must be "ephemeral"
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// --- Client Implementation ---

type AnthropicClient struct {
	httpClient *http.Client
	key        *SecretKey
	baseURL    string
	model      string
}

var _ LLMClient = (*AnthropicClient)(nil)

func NewAnthropicClient(model string) (*AnthropicClient, error) {
	key, err := LoadSecretKey("ANTHROPIC_API_KEY", "/run/secrets/anthropic_api_key")
	if err != nil {
		slog.Warn("Anthropic API key is missing")
		return nil, err
	}
	if model == "" {
		model = os.Getenv("CLAUDE_MODEL")
	}
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
		slog.Info("No Claude model configured, defaulting to", "model", model)
	}
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		key:        key,
		baseURL:    anthropicBaseURL,
		model:      model,
	}, nil
}

// Generate implements the LLMClient interface
func (a *AnthropicClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	ctx, span := tracer.Start(ctx, "AnthropicClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", a.model),
		attribute.Bool("llm.json_mode", params.JSONMode),
	)

	systemPrompt := params.SystemPrompt
	if params.JSONMode {
		// The Messages API has no native JSON output mode.
		if systemPrompt != "" {
			systemPrompt += "\n\n"
		}
		systemPrompt += "Respond with a single valid JSON object and nothing else."
	}

	var systemBlocks []systemBlock
	if systemPrompt != "" {
		block := systemBlock{
			Type: "text",
			Text: systemPrompt,
		}
		if len(systemPrompt) > 1024 {
			block.CacheControl = &cacheControl{Type: "ephemeral"}
		}
		systemBlocks = append(systemBlocks, block)
	}

	reqPayload := anthropicRequest{
		Model: a.model,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
		System:      systemBlocks,
		MaxTokens:   4096,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		TopK:        params.TopK,
		StopSeqs:    params.Stop,
	}
	if params.MaxTokens != nil {
		reqPayload.MaxTokens = *params.MaxTokens
	}

	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	slog.Debug("Sending REST request to Anthropic", "model", a.model)

	var resp *http.Response
	err = a.key.Use(func(apiKey string) error {
		req.Header.Set("x-api-key", apiKey)
		var callErr error
		resp, callErr = a.httpClient.Do(req)
		req.Header.Del("x-api-key")
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	finalText := ""
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			finalText += block.Text
		}
	}

	if finalText == "" {
		slog.Warn("Anthropic returned no text content")
		return "", ErrEmptyResponse
	}

	return finalText, nil
}
