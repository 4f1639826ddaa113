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
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type LocalLlamaCppClient struct {
	httpClient *http.Client
	baseURL    string
}

var _ LLMClient = (*LocalLlamaCppClient)(nil)

type llamaCppPayload struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type llamaCppResp struct {
	Content string `json:"content"`
}

func NewLocalLlamaCppClient() (*LocalLlamaCppClient, error) {
	baseURL := os.Getenv("LLM_SERVICE_URL_BASE")
	if baseURL == "" {
		return nil, fmt.Errorf("LLM_SERVICE_URL_BASE environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &LocalLlamaCppClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
	}, nil
}

// Generate implements the LLMClient interface.
//
// llama.cpp's /completion endpoint takes a single flat prompt, so the
// system prompt is prepended to the user prompt. There is no server-side
// JSON mode either; JSONMode becomes an instruction in the prompt.
func (l *LocalLlamaCppClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "LocalLlamaCppClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.base_url", l.baseURL),
		attribute.Bool("llm.json_mode", params.JSONMode),
	)

	fullPrompt := prompt
	if params.SystemPrompt != "" {
		fullPrompt = params.SystemPrompt + "\n\n" + prompt
	}
	if params.JSONMode {
		fullPrompt += "\n\nRespond with a single valid JSON object and nothing else."
	}

	payload := llamaCppPayload{Prompt: fullPrompt}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
	} else {
		payload.NPredict = 4096
	}
	if params.Temperature != nil {
		payload.Temperature = params.Temperature
	} else {
		var defaultTemperature float32 = 0.1
		payload.Temperature = &defaultTemperature
	}
	if params.TopK != nil {
		payload.TopK = params.TopK
	}
	if params.TopP != nil {
		payload.TopP = params.TopP
	}
	payload.Stop = params.Stop

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal the payload: %w", err)
	}

	completionURL := l.baseURL + "/completion"
	req, err := http.NewRequestWithContext(ctx, "POST", completionURL, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Calling llama.cpp completion", "url", completionURL)
	resp, err := l.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to make a request to the llm: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read the llm's response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama.cpp returned status %d: %s", resp.StatusCode, string(body))
	}

	var llmResponseBody llamaCppResp
	if err := json.Unmarshal(body, &llmResponseBody); err != nil {
		return "", fmt.Errorf("failed to parse the llm response: %w", err)
	}
	if llmResponseBody.Content == "" {
		return "", ErrEmptyResponse
	}
	return llmResponseBody.Content, nil
}
