// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline runs the four-phase requirements engineering pipeline:
// elicitation, analysis, specification, and validation.
//
// The phases execute strictly in order because each consumes the previous
// phase's output. The one conditional branch is the prohibited-system
// short-circuit: a system classified as unacceptable risk skips
// specification and validation entirely and gets a report with no
// requirements. Any phase failure aborts the run and produces a failed
// report; the orchestrator never raises to its caller.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/llm"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

var pipelineTracer = otel.Tracer("tere4ai.pipeline")

// =============================================================================
// Phases
// =============================================================================

// Phase identifies one stage of a pipeline run.
type Phase string

const (
	PhaseQueued     Phase = "queued"
	PhaseEliciting  Phase = "eliciting"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseSpecifying Phase = "specifying"
	PhaseValidating Phase = "validating"
	PhaseFinalizing Phase = "finalizing"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// validPhases contains all valid Phase values.
var validPhases = map[Phase]bool{
	PhaseQueued:     true,
	PhaseEliciting:  true,
	PhaseAnalyzing:  true,
	PhaseSpecifying: true,
	PhaseValidating: true,
	PhaseFinalizing: true,
	PhaseComplete:   true,
	PhaseFailed:     true,
}

// IsValid checks if the Phase is a valid value.
func (p Phase) IsValid() bool {
	return validPhases[p]
}

// IsTerminal reports whether the phase ends a run.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// Phase labels recorded in Report.ProcessingPhases.
const (
	phaseLabelElicitation   = "elicitation"
	phaseLabelAnalysis      = "analysis"
	phaseLabelSpecification = "specification"
	phaseLabelValidation    = "validation"
)

// =============================================================================
// Run Input / Result
// =============================================================================

// ProgressFunc receives phase transitions during a run. Callbacks run on
// the pipeline goroutine; a panicking callback is logged and swallowed.
type ProgressFunc func(phase Phase, message string)

// RunInput is one pipeline run request.
type RunInput struct {
	Description       string
	AdditionalContext string
	Progress          ProgressFunc
}

// RunResult is the outcome of one pipeline run. Report is always
// populated, even on failure.
type RunResult struct {
	Report          *model.Report `json:"report"`
	Trace           *RunTrace     `json:"trace,omitempty"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	Success         bool          `json:"success"`
	Err             string        `json:"error,omitempty"`
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator sequences the four phase agents and assembles the final
// report.
type Orchestrator struct {
	elicitor  *Elicitor
	analyzer  *Analyzer
	specifier *Specifier
	validator *Validator
	cfg       AgentConfig
}

// NewOrchestrator builds the pipeline over the given knowledge store and
// LLM client. The client is wrapped with the configured retry policy;
// retries live at this boundary, never inside the phases.
func NewOrchestrator(store knowledge.Store, client llm.LLMClient, cfg AgentConfig) *Orchestrator {
	cfg = applyAgentConfigDefaults(cfg)
	if cfg.MaxRetries > 1 {
		client = llm.NewRetryClient(client, cfg.MaxRetries, cfg.RetryDelay)
	}
	return &Orchestrator{
		elicitor:  NewElicitor(client, cfg),
		analyzer:  NewAnalyzer(store, client, cfg),
		specifier: NewSpecifier(store, client, cfg),
		validator: NewValidator(store, client, cfg),
		cfg:       cfg,
	}
}

// Run executes the full pipeline for one description. It never returns
// an error: failures are reported through the result's Report and Err
// fields so callers always have something renderable.
func (o *Orchestrator) Run(ctx context.Context, input RunInput) (result *RunResult) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.Run")
	defer span.End()

	start := time.Now()
	var trace *RunTrace
	if o.cfg.TraceEnabled {
		trace = &RunTrace{}
	}
	var phases []string
	var warnings []string

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panicked", slog.Any("panic", r))
			result = o.failedResult(input, trace, phases, warnings, start,
				fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	slog.Info("Starting pipeline run",
		slog.Int("description_length", len(input.Description)))

	// Phase 1: Elicitation.
	phases = append(phases, phaseLabelElicitation)
	notifyProgress(input.Progress, PhaseEliciting, "Extracting system characteristics...")

	agentStart := time.Now()
	desc, err := o.elicitor.Elicit(ctx, input.Description, input.AdditionalContext, trace)
	trace.RecordAgent(phaseLabelElicitation, o.cfg.Model, agentStart, time.Now(), err)
	if err != nil {
		return o.failedResult(input, trace, phases, warnings, start, err)
	}

	// Phase 2: Analysis.
	phases = append(phases, phaseLabelAnalysis)
	notifyProgress(input.Progress, PhaseAnalyzing, "Classifying risk level...")

	agentStart = time.Now()
	cls, err := o.analyzer.Classify(ctx, desc, trace)
	trace.RecordAgent(phaseLabelAnalysis, o.cfg.Model, agentStart, time.Now(), err)
	if err != nil {
		return o.failedResult(input, trace, phases, warnings, start, err)
	}

	// Prohibited systems get no compliance scaffolding.
	if cls.IsProhibited() {
		slog.Warn("System is prohibited, skipping specification and validation")
		warnings = append(warnings,
			"System is prohibited under "+cls.LegalBasis.Primary.FormatReference())
		notifyProgress(input.Progress, PhaseFinalizing, "System classified as prohibited")

		report := assembleReport(desc, cls, nil, nil, phases, nil, warnings)
		notifyProgress(input.Progress, PhaseComplete, "Report ready")

		return &RunResult{
			Report:          report,
			Trace:           trace,
			TotalDurationMs: time.Since(start).Milliseconds(),
			Success:         true,
		}
	}

	// Phase 3: Specification.
	phases = append(phases, phaseLabelSpecification)
	notifyProgress(input.Progress, PhaseSpecifying, "Generating requirements...")

	agentStart = time.Now()
	spec, err := o.specifier.Generate(ctx, desc, cls, trace)
	trace.RecordAgent(phaseLabelSpecification, o.cfg.Model, agentStart, time.Now(), err)
	if err != nil {
		return o.failedResult(input, trace, phases, warnings, start, err)
	}
	if len(spec.Requirements) == 0 {
		warnings = append(warnings, "No requirements generated for this risk level")
	}

	// Phase 4: Validation.
	phases = append(phases, phaseLabelValidation)
	notifyProgress(input.Progress, PhaseValidating, "Validating completeness...")

	agentStart = time.Now()
	validation, err := o.validator.Validate(ctx, spec.Requirements, cls,
		spec.ArticlesProcessed, trace)
	trace.RecordAgent(phaseLabelValidation, o.cfg.Model, agentStart, time.Now(), err)
	if err != nil {
		return o.failedResult(input, trace, phases, warnings, start, err)
	}

	if !validation.IsComplete {
		warnings = append(warnings,
			fmt.Sprintf("Article coverage (%.1f%%) below 80%% threshold",
				validation.ArticleCoverage*100))
	}
	if validation.HasConflicts() {
		warnings = append(warnings,
			fmt.Sprintf("%d conflicts detected between requirements",
				len(validation.Conflicts)))
	}

	notifyProgress(input.Progress, PhaseFinalizing, "Finalizing report...")
	report := assembleReport(desc, cls, spec.Requirements, validation, phases, nil, warnings)
	notifyProgress(input.Progress, PhaseComplete, "Report ready")

	duration := time.Since(start)
	slog.Info("Pipeline run complete",
		slog.String("risk_level", string(cls.Level)),
		slog.Int("requirements", len(spec.Requirements)),
		slog.Int64("duration_ms", duration.Milliseconds()))

	return &RunResult{
		Report:          report,
		Trace:           trace,
		TotalDurationMs: duration.Milliseconds(),
		Success:         true,
	}
}

// failedResult converts a phase error into the failed-run result.
// Partial results from completed phases are discarded so a failed report
// never carries a half-built classification.
func (o *Orchestrator) failedResult(input RunInput, trace *RunTrace,
	phases, warnings []string, start time.Time, err error) *RunResult {

	slog.Error("Pipeline failed", slog.String("error", err.Error()))
	notifyProgress(input.Progress, PhaseFailed, "Pipeline failed")

	report := model.NewReport()
	report.ProcessingPhases = phases
	report.ProcessingErrors = []string{err.Error()}
	report.ProcessingWarnings = warnings

	return &RunResult{
		Report:          report,
		Trace:           trace,
		TotalDurationMs: time.Since(start).Milliseconds(),
		Success:         false,
		Err:             err.Error(),
	}
}

// assembleReport builds the final report envelope. Validation is nil on
// the prohibited path.
func assembleReport(desc *model.SystemDescription, cls *model.RiskClassification,
	reqs []model.Requirement, validation *model.ValidationResult,
	phases, errors, warnings []string) *model.Report {

	report := model.NewReport()
	report.SystemDescription = desc
	report.RiskClassification = cls
	if reqs != nil {
		report.Requirements = reqs
	}
	report.Validation = validation
	report.CoverageMatrix = BuildCoverageMatrix(report.Requirements)
	report.Metrics = ComputeMetrics(report.Requirements, validation)
	report.ProcessingPhases = phases
	report.ProcessingErrors = errors
	report.ProcessingWarnings = warnings

	return report
}

// notifyProgress invokes the callback if one is set. Callback panics are
// logged and swallowed so a broken observer cannot abort a run.
func notifyProgress(fn ProgressFunc, phase Phase, message string) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Progress callback panicked", slog.Any("panic", r))
		}
	}()
	fn(phase, message)
}

// =============================================================================
// Report Assembly
// =============================================================================

// BuildCoverageMatrix cross-references every requirement with the
// articles, principles, and subtopics it traces to. Buckets are not
// deduplicated: repeated citations appear repeatedly.
func BuildCoverageMatrix(reqs []model.Requirement) model.CoverageMatrix {
	matrix := model.NewCoverageMatrix()

	for _, req := range reqs {
		articles := make([]string, 0, len(req.DerivedFromArticles))
		for _, art := range req.DerivedFromArticles {
			articles = append(articles, art)
			matrix.ArticleToRequirements[art] = append(matrix.ArticleToRequirements[art], req.ID)
		}
		matrix.RequirementToArticles[req.ID] = articles

		principles := make([]string, 0, len(req.AddressesHLEGPrinciples))
		for _, pid := range req.AddressesHLEGPrinciples {
			principles = append(principles, pid)
			matrix.HLEGToRequirements[pid] = append(matrix.HLEGToRequirements[pid], req.ID)
		}
		matrix.RequirementToHLEG[req.ID] = principles

		for _, st := range req.AddressesHLEGSubtopics {
			if st == "" {
				continue
			}
			matrix.SubtopicToRequirements[st] = append(matrix.SubtopicToRequirements[st], req.ID)
		}
	}

	return matrix
}

// ComputeMetrics tallies citation and requirement counts. Coverage
// ratios come from the validation result rather than being recomputed;
// a nil validation leaves them zero.
func ComputeMetrics(reqs []model.Requirement, validation *model.ValidationResult) model.ReportMetrics {
	metrics := model.ReportMetrics{TotalRequirements: len(reqs)}

	uniqueArticles := make(map[string]bool)
	uniqueParagraphs := make(map[string]bool)
	uniqueRecitals := make(map[int]bool)
	uniquePrinciples := make(map[string]bool)
	uniqueSubtopics := make(map[string]bool)

	for _, req := range reqs {
		for _, cit := range req.EUAIActCitations {
			metrics.EUAIActCitations++
			if cit.Article != "" {
				uniqueArticles[cit.Article] = true
				if cit.Paragraph != nil && *cit.Paragraph != 0 {
					uniqueParagraphs[fmt.Sprintf("%s(%d)", cit.Article, *cit.Paragraph)] = true
				}
			}
		}
		for _, cit := range req.HLEGCitations {
			metrics.HLEGCitations++
			if cit.RequirementID != "" {
				uniquePrinciples[cit.RequirementID] = true
			}
			if cit.SubtopicID != "" {
				uniqueSubtopics[cit.SubtopicID] = true
			}
		}
		for _, cit := range req.SupportingRecitals {
			metrics.RecitalCitations++
			if cit.Recital != nil {
				uniqueRecitals[*cit.Recital] = true
			}
		}

		switch req.Priority {
		case model.PriorityCritical:
			metrics.CriticalRequirements++
		case model.PriorityHigh:
			metrics.HighRequirements++
		}
	}

	metrics.TotalCitations = metrics.EUAIActCitations + metrics.HLEGCitations + metrics.RecitalCitations
	metrics.UniqueArticlesCited = len(uniqueArticles)
	metrics.UniqueParagraphsCited = len(uniqueParagraphs)
	metrics.UniqueRecitalsCited = len(uniqueRecitals)
	metrics.UniqueHLEGPrinciplesAddressed = len(uniquePrinciples)
	metrics.UniqueHLEGSubtopicsAddressed = len(uniqueSubtopics)

	if validation != nil {
		metrics.ArticleCoverage = validation.ArticleCoverage
		metrics.HLEGCoverage = validation.HLEGCoverage
	}

	return metrics
}
