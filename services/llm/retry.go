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
	"log/slog"
	"time"
)

// RetryClient re-issues failed calls against a wrapped backend with a
// linearly growing delay between attempts. JSON validation happens above
// this layer, so only transport and empty-response failures are retried.
type RetryClient struct {
	inner       LLMClient
	maxAttempts int
	delay       time.Duration
}

var _ LLMClient = (*RetryClient)(nil)

// NewRetryClient wraps inner with up to maxAttempts tries per call.
// Attempts below 1 are treated as a single try; a non-positive delay
// retries immediately.
func NewRetryClient(inner LLMClient, maxAttempts int, delay time.Duration) *RetryClient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryClient{
		inner:       inner,
		maxAttempts: maxAttempts,
		delay:       delay,
	}
}

// Generate delegates to the wrapped backend, retrying on error until the
// attempt budget is spent or the context is cancelled.
func (r *RetryClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		out, err := r.inner.Generate(ctx, prompt, params)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == r.maxAttempts {
			break
		}
		slog.Warn("LLM call failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.maxAttempts),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return "", lastErr
		case <-time.After(r.delay * time.Duration(attempt)):
		}
	}
	return "", lastErr
}
