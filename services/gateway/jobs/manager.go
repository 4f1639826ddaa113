// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jobs tracks in-flight and finished pipeline runs for the
// gateway's asynchronous analysis API.
//
// # Description
//
// Every POST /v1/analyze creates a Job. The pipeline runs in a
// background goroutine and reports phase transitions through the
// Manager, which translates them into coarse progress percentages for
// polling clients and fans them out to websocket subscribers. Jobs are
// kept in memory only; the report archive is the durable record.
package jobs

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/tere4ai/services/pipeline"
	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrJobNotFound indicates the job ID is unknown to this manager.
	ErrJobNotFound = errors.New("job not found")

	// ErrTooManyJobs indicates the manager is at capacity and every
	// tracked job is still running.
	ErrTooManyJobs = errors.New("too many jobs in flight")
)

// =============================================================================
// Job Status
// =============================================================================

// JobStatus is the coarse lifecycle state of a job, derived from the
// pipeline phase it last reported.
type JobStatus string

const (
	StatusQueued   JobStatus = "queued"
	StatusRunning  JobStatus = "running"
	StatusComplete JobStatus = "complete"
	StatusFailed   JobStatus = "failed"
)

// IsTerminal reports whether the status is a final state.
func (s JobStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// =============================================================================
// Progress Mapping
// =============================================================================

// phaseProgress maps each pipeline phase to the percentage shown to
// clients. The steps are uneven on purpose: specification dominates the
// wall-clock time of a real run.
var phaseProgress = map[pipeline.Phase]int{
	pipeline.PhaseQueued:     0,
	pipeline.PhaseEliciting:  15,
	pipeline.PhaseAnalyzing:  35,
	pipeline.PhaseSpecifying: 60,
	pipeline.PhaseValidating: 85,
	pipeline.PhaseFinalizing: 95,
	pipeline.PhaseComplete:   100,
	pipeline.PhaseFailed:     100,
}

// phaseMessages supplies a status line when a transition arrives
// without one. The strings match what the pipeline itself reports.
var phaseMessages = map[pipeline.Phase]string{
	pipeline.PhaseQueued:     "Queued for processing",
	pipeline.PhaseEliciting:  "Extracting system characteristics...",
	pipeline.PhaseAnalyzing:  "Classifying risk level...",
	pipeline.PhaseSpecifying: "Generating requirements...",
	pipeline.PhaseValidating: "Validating completeness...",
	pipeline.PhaseFinalizing: "Finalizing report...",
	pipeline.PhaseComplete:   "Report ready",
	pipeline.PhaseFailed:     "Pipeline failed",
}

// ProgressForPhase returns the progress percentage for a phase.
// Unknown phases map to 0.
func ProgressForPhase(phase pipeline.Phase) int {
	return phaseProgress[phase]
}

// =============================================================================
// Job
// =============================================================================

// Job is the tracked state of one pipeline run.
//
// # Description
//
// Result is nil until Finish is called; after that the job is terminal
// and immutable. Callers receive copies of the struct, so the Result
// pointer is the only shared state and it is never written again.
type Job struct {
	ID        string              `json:"id"`
	Status    JobStatus           `json:"status"`
	Phase     pipeline.Phase      `json:"phase"`
	Progress  int                 `json:"progress"`
	Message   string              `json:"message"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Result    *pipeline.RunResult `json:"-"`
}

// ProgressEvent is one phase transition delivered to subscribers.
type ProgressEvent struct {
	JobID    string         `json:"job_id"`
	Status   JobStatus      `json:"status"`
	Phase    pipeline.Phase `json:"phase"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
}

// =============================================================================
// Manager
// =============================================================================

// subscriberBuffer is the channel depth per websocket subscriber. A
// full run emits seven transitions, so a subscriber only drops events
// if it stops reading entirely.
const subscriberBuffer = 16

// Manager owns the job table and the progress fan-out.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	jobs        map[string]*Job
	subscribers map[string][]chan ProgressEvent
	maxJobs     int
}

// NewManager creates a Manager that tracks at most maxJobs jobs.
// A non-positive maxJobs falls back to 100.
func NewManager(maxJobs int) *Manager {
	if maxJobs < 1 {
		maxJobs = 100
	}
	return &Manager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[string][]chan ProgressEvent),
		maxJobs:     maxJobs,
	}
}

// Create registers a new queued job.
//
// # Description
//
// When the table is full, the oldest finished jobs are evicted to make
// room, up to half the capacity. If every tracked job is still running
// the request is rejected with ErrTooManyJobs; the caller should turn
// that into a 503.
func (m *Manager) Create() (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) >= m.maxJobs {
		evicted := m.evictFinishedLocked(m.maxJobs / 2)
		if evicted > 0 {
			slog.Info("Evicted finished jobs to make room",
				slog.Int("evicted", evicted),
				slog.Int("tracked", len(m.jobs)))
		}
		if len(m.jobs) >= m.maxJobs {
			return Job{}, ErrTooManyJobs
		}
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusQueued,
		Phase:     pipeline.PhaseQueued,
		Progress:  phaseProgress[pipeline.PhaseQueued],
		Message:   phaseMessages[pipeline.PhaseQueued],
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job

	return *job, nil
}

// Get returns a snapshot of the job, or false if the ID is unknown.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Advance records a non-terminal phase transition.
//
// # Description
//
// Terminal phases are ignored here; Finish owns the terminal
// transition so that a job never reads as complete before its result
// is attached. Unknown job IDs are ignored, which makes Advance safe
// to call from a pipeline progress callback after an eviction.
func (m *Manager) Advance(id string, phase pipeline.Phase, message string) {
	if phase.IsTerminal() {
		return
	}
	if message == "" {
		message = phaseMessages[phase]
	}

	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}

	job.Phase = phase
	job.Progress = phaseProgress[phase]
	job.Message = message
	job.UpdatedAt = time.Now()
	if phase != pipeline.PhaseQueued {
		job.Status = StatusRunning
	}

	event := progressEventLocked(job)
	subs := append([]chan ProgressEvent(nil), m.subscribers[id]...)
	m.mu.Unlock()

	publish(subs, event)
}

// Finish attaches the run result and moves the job to its terminal
// state. Subscriber channels receive the final event and are closed.
func (m *Manager) Finish(id string, result *pipeline.RunResult) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}

	job.Result = result
	if result != nil && result.Success {
		job.Status = StatusComplete
		job.Phase = pipeline.PhaseComplete
	} else {
		job.Status = StatusFailed
		job.Phase = pipeline.PhaseFailed
	}
	job.Progress = phaseProgress[job.Phase]
	job.Message = phaseMessages[job.Phase]
	job.UpdatedAt = time.Now()

	event := progressEventLocked(job)
	subs := m.subscribers[id]
	delete(m.subscribers, id)
	m.mu.Unlock()

	publish(subs, event)
	for _, ch := range subs {
		close(ch)
	}
}

// Subscribe registers for the job's progress events.
//
// # Description
//
// The returned channel is buffered and closed when the job reaches a
// terminal state. A subscriber that stops reading loses events rather
// than blocking the pipeline. Subscribing to an already-terminal job
// delivers the final event immediately and closes the channel. The
// cancel function detaches the subscription; it is safe to call after
// the channel has closed.
func (m *Manager) Subscribe(id string) (<-chan ProgressEvent, func(), error) {
	m.mu.Lock()

	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return nil, nil, ErrJobNotFound
	}

	ch := make(chan ProgressEvent, subscriberBuffer)

	if job.Status.IsTerminal() {
		event := progressEventLocked(job)
		m.mu.Unlock()
		ch <- event
		close(ch)
		return ch, func() {}, nil
	}

	m.subscribers[id] = append(m.subscribers[id], ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		subs := m.subscribers[id]
		for i, sub := range subs {
			if sub == ch {
				m.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
	}

	return ch, cancel, nil
}

// Len returns the number of tracked jobs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// =============================================================================
// Internal
// =============================================================================

// evictFinishedLocked removes up to n of the oldest terminal jobs.
// Caller must hold mu.
func (m *Manager) evictFinishedLocked(n int) int {
	var finished []*Job
	for _, job := range m.jobs {
		if job.Status.IsTerminal() {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	evicted := 0
	for _, job := range finished {
		if evicted >= n {
			break
		}
		delete(m.jobs, job.ID)
		evicted++
	}
	return evicted
}

// progressEventLocked builds the event for the job's current state.
// Caller must hold mu.
func progressEventLocked(job *Job) ProgressEvent {
	return ProgressEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Phase:    job.Phase,
		Progress: job.Progress,
		Message:  job.Message,
	}
}

// publish delivers the event to each subscriber without blocking. Full
// channels drop the event.
func publish(subs []chan ProgressEvent, event ProgressEvent) {
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			slog.Debug("Dropped progress event for slow subscriber",
				slog.String("job_id", event.JobID),
				slog.String("phase", string(event.Phase)))
		}
	}
}
