// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the pluggable model backends used by the compliance
// pipeline. All backends implement LLMClient; the pipeline only ever sees
// the interface.
package llm

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tere4ai.llm")

// Sentinel errors shared by all backends.
var (
	// ErrEmptyResponse indicates the model returned no usable content.
	ErrEmptyResponse = errors.New("llm returned empty response")

	// ErrInvalidJSON indicates the model response could not be parsed as
	// the requested JSON object.
	ErrInvalidJSON = errors.New("llm returned invalid json")
)

// GenerationParams carries per-call generation settings. Pointer fields
// are optional; backends fall back to their own defaults when nil.
type GenerationParams struct {
	// SystemPrompt is prepended as the system role where the backend
	// supports one.
	SystemPrompt string `json:"system_prompt,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`

	// JSONMode asks the backend to return a single JSON object. Backends
	// without native JSON output enforce it through the system prompt.
	JSONMode bool `json:"json_mode,omitempty"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
