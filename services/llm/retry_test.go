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
	"errors"
	"testing"
	"time"
)

// flakyClient fails a configured number of calls before succeeding.
type flakyClient struct {
	failures int
	calls    int
}

var _ LLMClient = (*flakyClient)(nil)

func (f *flakyClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient failure")
	}
	return "ok", nil
}

func TestRetryClient_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	inner := &flakyClient{failures: 2}
	client := NewRetryClient(inner, 3, time.Millisecond)

	out, err := client.Generate(context.Background(), "prompt", GenerationParams{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected inner response, got %q", out)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryClient_ReturnsLastErrorWhenBudgetSpent(t *testing.T) {
	t.Parallel()

	inner := &flakyClient{failures: 10}
	client := NewRetryClient(inner, 3, time.Millisecond)

	_, err := client.Generate(context.Background(), "prompt", GenerationParams{})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryClient_SingleAttemptDoesNotRetry(t *testing.T) {
	t.Parallel()

	inner := &flakyClient{failures: 1}
	client := NewRetryClient(inner, 1, time.Millisecond)

	if _, err := client.Generate(context.Background(), "prompt", GenerationParams{}); err == nil {
		t.Fatal("expected the single failure to surface")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", inner.calls)
	}
}

func TestRetryClient_ClampsZeroAttempts(t *testing.T) {
	t.Parallel()

	inner := &flakyClient{}
	client := NewRetryClient(inner, 0, time.Millisecond)

	out, err := client.Generate(context.Background(), "prompt", GenerationParams{})
	if err != nil || out != "ok" {
		t.Errorf("zero attempts should clamp to one try, got %q, %v", out, err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", inner.calls)
	}
}

func TestRetryClient_CancelledContextStopsRetrying(t *testing.T) {
	t.Parallel()

	inner := &flakyClient{failures: 10}
	client := NewRetryClient(inner, 5, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := client.Generate(ctx, "prompt", GenerationParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("cancelled context should stop after the first attempt, got %d", inner.calls)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled context must not wait out the delay")
	}
}
