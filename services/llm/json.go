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
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the first valid JSON object out of a model response.
//
// Models wrap JSON in markdown fences, preamble text, or trailing chatter
// even when asked not to. The scanner walks the response for a balanced
// object, skipping braces inside string literals, and returns the first
// candidate that parses.
func ExtractJSON(response string) ([]byte, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, fmt.Errorf("response is empty: %w", ErrEmptyResponse)
	}

	start := 0
	for {
		open := strings.IndexByte(trimmed[start:], '{')
		if open < 0 {
			return nil, fmt.Errorf("no JSON object found in response: %w", ErrInvalidJSON)
		}
		open += start

		end, balanced := scanObjectEnd(trimmed, open)
		if !balanced {
			return nil, fmt.Errorf("unterminated JSON object in response: %w", ErrInvalidJSON)
		}

		candidate := trimmed[open:end]
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
		start = open + 1
	}
}

// scanObjectEnd returns the index just past the object opened at s[open],
// tracking string literals so braces inside values do not count.
func scanObjectEnd(s string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// GenerateJSON runs a generation in JSON mode and decodes the result into v.
func GenerateJSON(ctx context.Context, client LLMClient, prompt string,
	params GenerationParams, v any) error {

	params.JSONMode = true
	raw, err := client.Generate(ctx, prompt, params)
	if err != nil {
		return err
	}

	data, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode response into %T: %v: %w", v, err, ErrInvalidJSON)
	}
	return nil
}
