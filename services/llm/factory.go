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
	"log/slog"
	"os"
)

// New builds the backend selected by provider. An empty provider falls
// back to the TERE4AI_LLM_PROVIDER environment variable, then to openai.
// An empty model lets each backend apply its own default.
func New(provider string, model string) (LLMClient, error) {
	if provider == "" {
		provider = os.Getenv("TERE4AI_LLM_PROVIDER")
	}

	switch provider {
	case "local", "llamacpp":
		slog.Info("Using Local Llama.cpp LLM backend")
		return NewLocalLlamaCppClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return NewOllamaClient(model)
	case "claude", "anthropic":
		slog.Info("Using Anthropic (Claude) LLM backend")
		return NewAnthropicClient(model)
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return NewOpenAIClient(model)
	default:
		slog.Warn("TERE4AI_LLM_PROVIDER not set or invalid, defaulting to openai",
			"provider", provider)
		return NewOpenAIClient(model)
	}
}
