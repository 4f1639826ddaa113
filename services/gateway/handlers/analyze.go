// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the gateway API.
// Handlers are closure factories: each takes its dependencies and
// returns a gin.HandlerFunc, so routes.SetupRoutes decides the wiring
// and tests can substitute stubs.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tere4ai/services/gateway/analytics"
	"github.com/AleutianAI/tere4ai/services/gateway/archive"
	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/gateway/jobs"
	"github.com/AleutianAI/tere4ai/services/gateway/observability"
	"github.com/AleutianAI/tere4ai/services/pipeline"
	"github.com/AleutianAI/tere4ai/services/policy_engine"
)

// Runner executes one compliance analysis. *pipeline.Orchestrator
// satisfies it.
type Runner interface {
	Run(ctx context.Context, input pipeline.RunInput) *pipeline.RunResult
}

// AnalyzeSystem returns the handler for POST /v1/analyze.
//
// # Description
//
// Validates the request, creates a job, and starts the pipeline on a
// background goroutine. The response is a 202 with the job ID and the
// URLs to poll. The pipeline itself may take minutes; nothing about
// this handler blocks on it.
//
// Accepted submissions are scanned by the policy engine. A flagged
// submission is still analyzed, but its report is archived locally
// only, never mirrored off-site.
//
// # Inputs
//
//   - runner: the pipeline to execute
//   - manager: job table the client polls for progress
//   - store: report archive, written on success (may be nil)
//   - recorder: run analytics sink (may be nil)
//   - scanner: submission classifier (may be nil)
//
// # Outputs
//
//   - 202 with datatypes.AnalyzeAccepted on success
//   - 400 for malformed or out-of-bounds input
//   - 503 when the job table is full of running jobs
func AnalyzeSystem(runner Runner, manager *jobs.Manager, store *archive.Store,
	recorder *analytics.Recorder, scanner *policy_engine.PolicyEngine) gin.HandlerFunc {

	return func(c *gin.Context) {
		var req datatypes.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Error("Failed to parse analyze request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		job, err := manager.Create()
		if err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRejectedJob()
			}
			slog.Warn("Rejected analyze request, job table full",
				slog.String("request_id", req.RequestID))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "too many analyses in progress, retry later",
			})
			return
		}

		classification := classifySubmission(scanner, job.ID, req)

		slog.Info("Accepted analysis job",
			slog.String("job_id", job.ID),
			slog.String("request_id", req.RequestID),
			slog.Int("description_len", len(req.Description)))

		// The request context dies with the HTTP response; the run
		// gets its own.
		go runPipeline(context.Background(), runner, manager, store, recorder,
			job.ID, req, classification)

		c.JSON(http.StatusAccepted, datatypes.AnalyzeAccepted{
			JobID:     job.ID,
			Status:    string(job.Status),
			StatusURL: "/v1/jobs/" + job.ID,
			ReportURL: "/v1/jobs/" + job.ID + "/report",
		})
	}
}

// classifySubmission scans the submission text and returns its
// classification, "public" when nothing matched or no scanner is
// wired. Flagged submissions are counted and logged by pattern ID;
// the matched content itself never reaches the log.
func classifySubmission(scanner *policy_engine.PolicyEngine, jobID string,
	req datatypes.AnalyzeRequest) string {

	if scanner == nil {
		return "public"
	}

	text := req.Description + "\n" + req.AdditionalContext
	classification := scanner.ClassifyData([]byte(text))
	if classification == "public" {
		return classification
	}

	if m := observability.DefaultMetrics; m != nil {
		m.RecordSensitiveSubmission(classification)
	}

	seen := make(map[string]bool)
	var patterns []string
	for _, finding := range scanner.ScanContent(text) {
		if !seen[finding.PatternID] {
			seen[finding.PatternID] = true
			patterns = append(patterns, finding.PatternID)
		}
	}

	slog.Warn("Submission flagged by policy engine",
		slog.String("job_id", jobID),
		slog.String("classification", classification),
		slog.String("patterns", strings.Join(patterns, ",")))

	return classification
}

// runPipeline executes one analysis to completion, feeding progress
// into the job table and recording the outcome.
func runPipeline(ctx context.Context, runner Runner, manager *jobs.Manager,
	store *archive.Store, recorder *analytics.Recorder,
	jobID string, req datatypes.AnalyzeRequest, classification string) {

	if m := observability.DefaultMetrics; m != nil {
		m.RunStarted()
		defer m.RunEnded()
	}

	// The progress callback runs on this goroutine only.
	lastPhase := pipeline.PhaseQueued
	lastTime := time.Now()

	result := runner.Run(ctx, pipeline.RunInput{
		Description:       req.Description,
		AdditionalContext: req.AdditionalContext,
		Progress: func(phase pipeline.Phase, message string) {
			if phase != lastPhase {
				if m := observability.DefaultMetrics; m != nil && lastPhase != pipeline.PhaseQueued {
					m.RecordPhaseDuration(string(lastPhase), time.Since(lastTime).Seconds())
				}
				lastPhase = phase
				lastTime = time.Now()
			}
			// Terminal transitions belong to Finish, which attaches
			// the result first.
			if phase.IsTerminal() {
				return
			}
			manager.Advance(jobID, phase, message)
		},
	})

	manager.Finish(jobID, result)

	riskLevel := ""
	if result.Report != nil && result.Report.RiskClassification != nil {
		riskLevel = string(result.Report.RiskClassification.Level)
	}
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRun(result.Success, riskLevel)
		if result.Report != nil {
			m.RecordRequirements(len(result.Report.Requirements))
		}
	}

	recorder.Record(ctx, result)

	// Failed runs stay reachable through the job report endpoint but
	// are not archived.
	if result.Success && store != nil && result.Report != nil {
		// The archived document embeds the raw submission, so a
		// flagged report must not reach the off-site mirror.
		var archiveErr error
		if classification != "public" {
			archiveErr = store.PutLocal(result.Report)
		} else {
			archiveErr = store.Put(ctx, result.Report)
		}
		if archiveErr != nil {
			slog.Error("Failed to archive report",
				slog.String("job_id", jobID),
				slog.String("error", archiveErr.Error()))
		}
	}

	slog.Info("Analysis job finished",
		slog.String("job_id", jobID),
		slog.Bool("success", result.Success),
		slog.Int64("duration_ms", result.TotalDurationMs))
}
