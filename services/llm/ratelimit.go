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

	"golang.org/x/time/rate"
)

// RateLimitedClient throttles calls to a wrapped backend. Hosted providers
// enforce per-minute request quotas; a burst of parallel article requests
// can trip them without this.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

var _ LLMClient = (*RateLimitedClient)(nil)

// NewRateLimitedClient wraps inner with a requests-per-minute cap.
// A non-positive rpm disables throttling.
func NewRateLimitedClient(inner LLMClient, rpm int) *RateLimitedClient {
	if rpm <= 0 {
		return &RateLimitedClient{
			inner:   inner,
			limiter: rate.NewLimiter(rate.Inf, 1),
		}
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// Generate blocks until the limiter grants a slot, then delegates.
func (r *RateLimitedClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait cancelled: %w", err)
	}
	return r.inner.Generate(ctx, prompt, params)
}
