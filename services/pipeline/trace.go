// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the per-run trace that records agent phases and
// collaborator calls for inclusion in run results.
package pipeline

import (
	"sync"
	"time"
)

// =============================================================================
// Constants
// =============================================================================

// maxTraceArgLen bounds recorded call arguments so traces stay small
// even when a full system description is passed through.
const maxTraceArgLen = 200

// =============================================================================
// Types
// =============================================================================

// AgentTrace records one phase agent invocation.
type AgentTrace struct {
	Agent       string    `json:"agent"`
	Model       string    `json:"model"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Err         string    `json:"error,omitempty"`
}

// CollaboratorCall records one call to an external collaborator, either
// the LLM backend or the knowledge store.
type CollaboratorCall struct {
	Tool       string `json:"tool"`
	Args       string `json:"args"`
	DurationMs int64  `json:"duration_ms"`
	Err        string `json:"error,omitempty"`
}

// RunTrace accumulates the agent and collaborator activity of a single
// pipeline run. A nil *RunTrace is valid and records nothing, so
// callers that do not want tracing simply pass nil.
//
// The mutex guards concurrent appends during the fan-out phase of
// specification, where per-article tasks record calls in parallel.
type RunTrace struct {
	mu sync.Mutex

	Agents []AgentTrace       `json:"agents"`
	Calls  []CollaboratorCall `json:"collaborator_calls"`
}

// =============================================================================
// Recording
// =============================================================================

// RecordAgent appends a phase agent entry.
func (t *RunTrace) RecordAgent(agent, model string, startedAt, completedAt time.Time, err error) {
	if t == nil {
		return
	}
	entry := AgentTrace{
		Agent:       agent,
		Model:       model,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
	}
	if err != nil {
		entry.Err = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.Agents = append(t.Agents, entry)
}

// RecordCall appends a collaborator call entry. Arguments are truncated
// to maxTraceArgLen.
func (t *RunTrace) RecordCall(tool, args string, startedAt time.Time, err error) {
	if t == nil {
		return
	}
	entry := CollaboratorCall{
		Tool:       tool,
		Args:       truncate(args, maxTraceArgLen),
		DurationMs: time.Since(startedAt).Milliseconds(),
	}
	if err != nil {
		entry.Err = err.Error()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, entry)
}

// =============================================================================
// Helpers
// =============================================================================

// truncate shortens s to at most max bytes, appending an ellipsis when
// anything was cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// clip shortens s to at most max bytes with no ellipsis.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
