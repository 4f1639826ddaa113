// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and telemetry wiring for the
// gateway.
//
// # Description
//
// This file implements Prometheus metrics for monitoring pipeline runs
// through the HTTP API:
//   - Run counters (by status and risk level)
//   - Phase latency histograms
//   - Requirement production counters
//   - Active run and rejected job gauges/counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all gateway metrics.
const metricsNamespace = "tere4ai"

// PipelineMetrics holds the Prometheus instruments for pipeline runs.
//
// # Fields
//
//   - RunsTotal: Counter of finished runs by status and risk level
//   - PhaseDurationSeconds: Histogram of per-phase latency
//   - RequirementsGeneratedTotal: Counter of requirements produced
//   - ActiveRuns: Gauge of runs currently in flight
//   - JobsRejectedTotal: Counter of analyze requests refused at capacity
//   - LLMCallsTotal: Counter of model calls by backend and status
//   - SensitiveSubmissionsTotal: Counter of flagged submissions
type PipelineMetrics struct {
	// RunsTotal counts finished pipeline runs.
	// Labels: status (success, failed), risk_level (unacceptable, high,
	// limited, minimal, unknown).
	RunsTotal *prometheus.CounterVec

	// PhaseDurationSeconds measures how long each pipeline phase ran.
	// Labels: phase (eliciting, analyzing, specifying, validating).
	PhaseDurationSeconds *prometheus.HistogramVec

	// RequirementsGeneratedTotal counts requirements across all runs.
	RequirementsGeneratedTotal prometheus.Counter

	// ActiveRuns tracks pipeline runs currently executing.
	ActiveRuns prometheus.Gauge

	// JobsRejectedTotal counts analyze requests rejected because the
	// job table was full.
	JobsRejectedTotal prometheus.Counter

	// LLMCallsTotal counts model invocations.
	// Labels: backend (openai, ollama, ...), status (success, error).
	LLMCallsTotal *prometheus.CounterVec

	// SensitiveSubmissionsTotal counts analyze requests whose
	// description was flagged by the policy engine.
	// Labels: classification (secret, pii).
	SensitiveSubmissionsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance used by the gateway.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics initializes the default metrics instance against the
// global Prometheus registry. Call once at startup; calling twice
// panics on duplicate registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = newPipelineMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// newPipelineMetrics builds the instrument set against the given
// registerer. Tests pass an isolated registry.
func newPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total pipeline runs by status and risk level",
			},
			[]string{"status", "risk_level"},
		),

		PhaseDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "phase_duration_seconds",
				Help:      "Pipeline phase duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"phase"},
		),

		RequirementsGeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requirements_generated_total",
				Help:      "Total requirements generated across all runs",
			},
		),

		ActiveRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_runs",
				Help:      "Number of pipeline runs currently executing",
			},
		),

		JobsRejectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "jobs_rejected_total",
				Help:      "Analyze requests rejected because the job table was full",
			},
		),

		LLMCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "llm_calls_total",
				Help:      "Total LLM calls by backend and status",
			},
			[]string{"backend", "status"},
		),

		SensitiveSubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sensitive_submissions_total",
				Help:      "Analyze requests flagged by the policy engine, by classification",
			},
			[]string{"classification"},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRun records a finished pipeline run. riskLevel should be the
// classified level, or "unknown" when the run failed before analysis.
func (m *PipelineMetrics) RecordRun(success bool, riskLevel string) {
	status := "success"
	if !success {
		status = "failed"
	}
	if riskLevel == "" {
		riskLevel = "unknown"
	}
	m.RunsTotal.WithLabelValues(status, riskLevel).Inc()
}

// RecordPhaseDuration records how long one pipeline phase ran.
func (m *PipelineMetrics) RecordPhaseDuration(phase string, seconds float64) {
	m.PhaseDurationSeconds.WithLabelValues(phase).Observe(seconds)
}

// RecordRequirements adds to the requirement production counter.
func (m *PipelineMetrics) RecordRequirements(count int) {
	if count > 0 {
		m.RequirementsGeneratedTotal.Add(float64(count))
	}
}

// RunStarted increments the active runs gauge.
func (m *PipelineMetrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunEnded decrements the active runs gauge.
func (m *PipelineMetrics) RunEnded() {
	m.ActiveRuns.Dec()
}

// RecordRejectedJob increments the rejected jobs counter.
func (m *PipelineMetrics) RecordRejectedJob() {
	m.JobsRejectedTotal.Inc()
}

// RecordLLMCall records one model invocation.
func (m *PipelineMetrics) RecordLLMCall(backend string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.LLMCallsTotal.WithLabelValues(backend, status).Inc()
}

// RecordSensitiveSubmission counts one flagged analyze request.
func (m *PipelineMetrics) RecordSensitiveSubmission(classification string) {
	m.SensitiveSubmissionsTotal.WithLabelValues(classification).Inc()
}
