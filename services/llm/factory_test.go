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
	"fmt"
	"testing"
)

func TestNew_SelectsBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")
	t.Setenv("LLM_SERVICE_URL_BASE", "http://localhost:8080")

	tests := []struct {
		provider string
		wantType string
	}{
		{"openai", "*llm.OpenAIClient"},
		{"ollama", "*llm.OllamaClient"},
		{"claude", "*llm.AnthropicClient"},
		{"anthropic", "*llm.AnthropicClient"},
		{"local", "*llm.LocalLlamaCppClient"},
		{"llamacpp", "*llm.LocalLlamaCppClient"},
		{"bogus", "*llm.OpenAIClient"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := New(tt.provider, "")
			if err != nil {
				t.Fatalf("New(%q) returned error: %v", tt.provider, err)
			}
			got := fmt.Sprintf("%T", client)
			if got != tt.wantType {
				t.Errorf("New(%q) = %s, want %s", tt.provider, got, tt.wantType)
			}
		})
	}
}

func TestNew_EnvFallback(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")
	t.Setenv("TERE4AI_LLM_PROVIDER", "ollama")

	client, err := New("", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := client.(*OllamaClient); !ok {
		t.Errorf("Expected OllamaClient from env fallback, got %T", client)
	}
}
