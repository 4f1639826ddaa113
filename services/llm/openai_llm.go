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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type OpenAIClient struct {
	key   *SecretKey
	model string
}

var _ LLMClient = (*OpenAIClient)(nil)

func NewOpenAIClient(model string) (*OpenAIClient, error) {
	key, err := LoadSecretKey("OPENAI_API_KEY", "/run/secrets/openai_api_key")
	if err != nil {
		slog.Error("OpenAI API key is missing", "error", err)
		return nil, err
	}
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = "gpt-4o"
		slog.Warn("No OpenAI model configured, defaulting to gpt-4o")
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{key: key, model: model}, nil
}

// Generate implements the LLMClient interface
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Bool("llm.json_mode", params.JSONMode),
	)
	slog.Debug("Generating text via OpenAI", "model", o.model)

	var messages []openai.ChatCompletionMessage
	if params.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: params.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	if params.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	err := o.key.Use(func(apiKey string) error {
		var callErr error
		resp, callErr = openai.NewClient(apiKey).CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("OpenAI returned no choices or empty content")
		return "", ErrEmptyResponse
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
