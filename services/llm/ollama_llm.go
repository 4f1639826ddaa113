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

type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

var _ LLMClient = (*OllamaClient)(nil)

// Ollama API request structure
type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Format  string                 `json:"format,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

func NewOllamaClient(model string) (*OllamaClient, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("OLLAMA_BASE_URL environment variable not set")
	}
	if model == "" {
		model = os.Getenv("OLLAMA_MODEL")
	}
	if model == "" {
		model = "llama3.1"
		slog.Warn("No Ollama model configured, defaulting to llama3.1")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama client", "base_url", baseURL, "model", model)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// Generate implements the LLMClient interface
func (o *OllamaClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "OllamaClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Bool("llm.json_mode", params.JSONMode),
	)
	slog.Debug("Generating text via Ollama", "model", o.model)

	generateURL := o.baseURL + "/api/generate"
	options := make(map[string]interface{})
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	} else {
		options["temperature"] = float32(0.1)
	}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	} else {
		options["num_predict"] = 4096
	}
	if len(params.Stop) > 0 {
		options["stop"] = params.Stop
	}

	payload := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		System:  params.SystemPrompt,
		Stream:  false,
		Options: options,
	}
	if params.JSONMode {
		payload.Format = "json"
	}

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to encode the Ollama payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generateURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to build the Ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Ollama request failed", "error", err)
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to read the Ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// A 404 for a missing model gets a hint the operator can act on.
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBodyBytes, &errResp); err == nil &&
				strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				slog.Warn("Requested Ollama model is not pulled", "model", o.model)
				return "", fmt.Errorf("model '%s' not found. Please run: 'ollama pull %s'", o.model, o.model)
			}
		}
		slog.Error("Ollama returned a non-OK status",
			"status_code", resp.StatusCode, "response", string(respBodyBytes))
		return "", fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, string(respBodyBytes))
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.Unmarshal(respBodyBytes, &ollamaResp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Ollama response is not valid JSON", "error", err)
		return "", fmt.Errorf("failed to decode the Ollama response: %w", err)
	}

	if ollamaResp.Response == "" {
		slog.Warn("Ollama returned an empty response")
		return "", ErrEmptyResponse
	}
	slog.Debug("Received response from Ollama")
	return ollamaResp.Response, nil
}

// WarmUp loads the model into memory before the first real request by
// sending an empty prompt with keep_alive. Ollama unloads idle models
// after five minutes by default, which would add cold-start latency to
// the first pipeline run.
func (o *OllamaClient) WarmUp(ctx context.Context, keepAlive string) error {
	if keepAlive == "" {
		keepAlive = "30m"
	}
	payload := map[string]interface{}{
		"model":      o.model,
		"keep_alive": keepAlive,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal warmup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create warmup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("warmup request failed: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("failed to drain warmup response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warmup failed with status %d", resp.StatusCode)
	}
	slog.Info("Ollama model warmed", "model", o.model, "keep_alive", keepAlive)
	return nil
}
