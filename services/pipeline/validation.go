// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the validation phase: coverage, consistency, and
// citation integrity checks over a generated requirement set.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/llm"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// Constants
// =============================================================================

const (
	conflictCheckMaxTokens = 2048
	maxStatementSummaryLen = 200
)

// =============================================================================
// System Prompt
// =============================================================================

const validationSystemPrompt = `You are the Validation Agent for TERE4AI, a Requirements Engineering system for AI Act compliance.

Your task is to check requirements for conflicts and suggest improvements.

CONFLICT TYPES:
1. contradiction - Two requirements make incompatible demands
2. redundancy - Two requirements say the same thing
3. overlap - Two requirements partially overlap in scope
4. dependency - One requirement depends on another but doesn't reference it

For each potential conflict, provide:
- requirement_id_1: First requirement ID
- requirement_id_2: Second requirement ID
- conflict_type: One of the types above
- explanation: Why this is a conflict
- suggested_resolution: How to fix it

OUTPUT FORMAT:
{
  "conflicts": [
    {
      "requirement_id_1": "REQ-001",
      "requirement_id_2": "REQ-005",
      "conflict_type": "redundancy",
      "explanation": "Both requirements address the same risk management aspect",
      "suggested_resolution": "Merge into single comprehensive requirement"
    }
  ],
  "recommendations": [
    "Consider adding requirement for Article X paragraph Y",
    "HLEG principle Z lacks specific requirements"
  ]
}`

// =============================================================================
// Validator
// =============================================================================

// Validator checks a requirement set for completeness, consistency, and
// citation integrity. It is the fourth phase of the pipeline.
//
// # Description
//
// Three of the four checks are pure functions over the requirement
// list. Conflict detection is the exception: it asks the LLM to reason
// over requirement summaries, and a failed conflict check fails the
// whole validation. A failed principle-coverage lookup degrades to the
// all-seven baseline instead, since the expected set has a well-defined
// fallback.
type Validator struct {
	store knowledge.Store
	llm   llm.LLMClient
	cfg   AgentConfig
}

// NewValidator creates a validation agent backed by the given knowledge
// store and LLM client.
func NewValidator(store knowledge.Store, client llm.LLMClient, cfg AgentConfig) *Validator {
	return &Validator{store: store, llm: client, cfg: applyAgentConfigDefaults(cfg)}
}

// Validate runs all four checks against the requirement set and renders
// the verdicts.
func (v *Validator) Validate(ctx context.Context, reqs []model.Requirement,
	cls *model.RiskClassification, applicableArticles []int,
	trace *RunTrace) (*model.ValidationResult, error) {

	ctx, span := pipelineTracer.Start(ctx, "pipeline.Validate")
	defer span.End()
	span.SetAttributes(attribute.Int("requirements", len(reqs)))

	articles := calculateArticleCoverage(reqs, applicableArticles)
	hleg := v.calculateHLEGCoverage(ctx, reqs, applicableArticles, trace)

	conflicts, err := v.checkConflicts(ctx, reqs, trace)
	if err != nil {
		return nil, err
	}

	invalid := validateCitations(reqs)

	result := &model.ValidationResult{
		ArticleCoverage:  articles.coverage,
		HLEGCoverage:     hleg.coverage,
		SubtopicCoverage: hleg.subtopicCoverage,

		CoveredArticles: articles.covered,
		MissingArticles: articles.missing,

		CoveredHLEGPrinciples: hleg.covered,
		MissingHLEGPrinciples: hleg.missing,
		CoveredSubtopics:      hleg.subtopics,

		Conflicts:        conflicts,
		InvalidCitations: invalid,

		IsComplete:   articles.coverage >= model.ArticleCoverageThreshold,
		IsConsistent: len(conflicts) == 0,
		IsValid:      len(invalid) == 0,
	}
	result.Recommendations = buildRecommendations(articles, hleg, conflicts, invalid)

	slog.Info("Validation complete",
		slog.Float64("article_coverage", result.ArticleCoverage),
		slog.Float64("hleg_coverage", result.HLEGCoverage),
		slog.Int("conflicts", len(conflicts)),
		slog.Int("invalid_citations", len(invalid)))

	return result, nil
}

// =============================================================================
// Article Coverage
// =============================================================================

type articleCoverageResult struct {
	coverage       float64
	covered        []string
	missing        []string
	missingNumbers []int
}

// calculateArticleCoverage intersects the articles the requirements cite
// with the applicable set. An empty applicable set is vacuously fully
// covered.
func calculateArticleCoverage(reqs []model.Requirement, applicable []int) articleCoverageResult {
	if len(applicable) == 0 {
		return articleCoverageResult{coverage: 1.0}
	}

	cited := make(map[int]bool)
	for _, req := range reqs {
		for _, art := range req.DerivedFromArticles {
			if n, err := strconv.Atoi(art); err == nil {
				cited[n] = true
			}
		}
		for _, cit := range req.EUAIActCitations {
			if cit.Article == "" {
				continue
			}
			if n, err := strconv.Atoi(cit.Article); err == nil {
				cited[n] = true
			}
		}
	}

	unique := make([]int, 0, len(applicable))
	for _, n := range applicable {
		if !slices.Contains(unique, n) {
			unique = append(unique, n)
		}
	}
	slices.Sort(unique)

	result := articleCoverageResult{}
	for _, n := range unique {
		if cited[n] {
			result.covered = append(result.covered, strconv.Itoa(n))
		} else {
			result.missing = append(result.missing, strconv.Itoa(n))
			result.missingNumbers = append(result.missingNumbers, n)
		}
	}
	result.coverage = float64(len(result.covered)) / float64(len(unique))

	return result
}

// =============================================================================
// HLEG Coverage
// =============================================================================

type hlegCoverageResult struct {
	coverage         float64
	subtopicCoverage float64
	covered          []string
	missing          []string
	subtopics        []string
}

// calculateHLEGCoverage compares the principles the requirements address
// against the set the cited articles are expected to cover. When the
// coverage lookup fails or comes back empty, the expected set is all
// seven principles.
func (v *Validator) calculateHLEGCoverage(ctx context.Context, reqs []model.Requirement,
	applicableArticles []int, trace *RunTrace) hlegCoverageResult {

	coveredSet := make(map[string]bool)
	subtopicSet := make(map[string]bool)
	for _, req := range reqs {
		for _, pid := range req.AddressesHLEGPrinciples {
			if model.IsCanonicalHLEGPrincipleID(pid) {
				coveredSet[pid] = true
			}
		}
		for _, cit := range req.HLEGCitations {
			if model.IsCanonicalHLEGPrincipleID(cit.RequirementID) {
				coveredSet[cit.RequirementID] = true
			}
			if cit.SubtopicID != "" {
				subtopicSet[cit.SubtopicID] = true
			}
		}
		for _, st := range req.AddressesHLEGSubtopics {
			if st != "" {
				subtopicSet[st] = true
			}
		}
	}

	expectedSet := make(map[string]bool)
	expectedSubtopics := make(map[string]bool)
	callStart := time.Now()
	coverage, err := v.store.PrincipleCoverage(ctx, applicableArticles)
	trace.RecordCall("knowledge.get_hleg_coverage",
		fmt.Sprintf("articles=%d", len(applicableArticles)), callStart, err)
	if err != nil {
		slog.Warn("Principle coverage lookup failed, assuming all principles expected",
			slog.String("error", err.Error()))
	} else {
		for pid, entry := range coverage.Principles {
			expectedSet[pid] = true
			for _, st := range entry.Subtopics {
				expectedSubtopics[st] = true
			}
		}
	}
	if len(expectedSet) == 0 {
		for _, pid := range model.CanonicalHLEGPrincipleIDs {
			expectedSet[pid] = true
		}
	}

	result := hlegCoverageResult{}
	coveredExpected := 0
	for _, pid := range model.CanonicalHLEGPrincipleIDs {
		if coveredSet[pid] {
			result.covered = append(result.covered, pid)
			if expectedSet[pid] {
				coveredExpected++
			}
		} else if expectedSet[pid] {
			result.missing = append(result.missing, pid)
		}
	}
	result.coverage = float64(coveredExpected) / float64(len(expectedSet))

	result.subtopics = make([]string, 0, len(subtopicSet))
	for st := range subtopicSet {
		result.subtopics = append(result.subtopics, st)
	}
	slices.Sort(result.subtopics)

	if len(expectedSubtopics) > 0 {
		coveredSubtopics := 0
		for st := range expectedSubtopics {
			if subtopicSet[st] {
				coveredSubtopics++
			}
		}
		result.subtopicCoverage = float64(coveredSubtopics) / float64(len(expectedSubtopics))
	}

	return result
}

// =============================================================================
// Conflict Detection
// =============================================================================

// requirementSummary is the condensed requirement view sent to the
// conflict check.
type requirementSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Statement string `json:"statement"`
	Category  string `json:"category"`
}

type conflictsDTO struct {
	Conflicts []conflictDTO `json:"conflicts"`
}

type conflictDTO struct {
	RequirementID1      string `json:"requirement_id_1"`
	RequirementID2      string `json:"requirement_id_2"`
	ConflictType        string `json:"conflict_type"`
	Explanation         string `json:"explanation"`
	SuggestedResolution string `json:"suggested_resolution"`
}

// checkConflicts asks the LLM to find semantic conflicts between
// requirements. Fewer than two requirements cannot conflict, so the
// check is skipped entirely.
func (v *Validator) checkConflicts(ctx context.Context, reqs []model.Requirement,
	trace *RunTrace) ([]model.Conflict, error) {

	if len(reqs) < 2 {
		return nil, nil
	}

	summaries := make([]requirementSummary, 0, len(reqs))
	for _, req := range reqs {
		category := string(req.Category)
		if category == "" {
			category = "general"
		}
		summaries = append(summaries, requirementSummary{
			ID:        req.ID,
			Title:     req.Title,
			Statement: clip(req.Statement, maxStatementSummaryLen),
			Category:  category,
		})
	}

	summariesJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding requirement summaries: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Check these requirements for conflicts:\n\n")
	sb.Write(summariesJSON)
	sb.WriteString("\n\nIdentify any contradictions, redundancies, overlaps, or missing dependencies.\n")
	sb.WriteString(`Return your response as JSON with a "conflicts" array. Return empty array if no conflicts found.`)

	params := v.cfg.generationParams(validationSystemPrompt)
	maxTokens := conflictCheckMaxTokens
	params.MaxTokens = &maxTokens

	var dto conflictsDTO
	callStart := time.Now()
	err = llm.GenerateJSON(ctx, v.llm, sb.String(), params, &dto)
	trace.RecordCall("llm.check_conflicts", fmt.Sprintf("requirements=%d", len(reqs)), callStart, err)
	if err != nil {
		return nil, fmt.Errorf("checking requirement conflicts: %w", err)
	}

	conflicts := make([]model.Conflict, 0, len(dto.Conflicts))
	for _, c := range dto.Conflicts {
		conflictType := model.ConflictType(c.ConflictType)
		if !conflictType.IsValid() {
			conflictType = model.ConflictOverlap
		}
		conflicts = append(conflicts, model.Conflict{
			RequirementID1:      c.RequirementID1,
			RequirementID2:      c.RequirementID2,
			Type:                conflictType,
			Explanation:         c.Explanation,
			SuggestedResolution: c.SuggestedResolution,
		})
	}

	return conflicts, nil
}

// =============================================================================
// Citation Validity
// =============================================================================

// validateCitations runs the local integrity checks: an EU citation
// needs an article number and quoted text, and an HLEG citation with a
// requirement ID needs a canonical one. The two EU checks are
// independent, so one citation can produce two findings.
func validateCitations(reqs []model.Requirement) []model.InvalidCitation {
	var invalid []model.InvalidCitation

	for _, req := range reqs {
		for i, cit := range req.EUAIActCitations {
			if cit.Article == "" {
				invalid = append(invalid, model.InvalidCitation{
					RequirementID: req.ID,
					CitationRef:   fmt.Sprintf("EU citation %d", i+1),
					CitationType:  "eu_ai_act",
					Reason:        "Missing article number",
				})
			}
			if cit.QuotedText == "" {
				article := cit.Article
				if article == "" {
					article = "?"
				}
				invalid = append(invalid, model.InvalidCitation{
					RequirementID: req.ID,
					CitationRef:   "Article " + article,
					CitationType:  "eu_ai_act",
					Reason:        "Missing quoted text",
				})
			}
		}

		for _, cit := range req.HLEGCitations {
			if cit.RequirementID != "" && !model.IsCanonicalHLEGPrincipleID(cit.RequirementID) {
				invalid = append(invalid, model.InvalidCitation{
					RequirementID: req.ID,
					CitationRef:   "HLEG: " + cit.RequirementID,
					CitationType:  "hleg",
					Reason:        "Invalid HLEG requirement ID: " + cit.RequirementID,
				})
			}
		}
	}

	return invalid
}

// =============================================================================
// Recommendations
// =============================================================================

// buildRecommendations renders improvement suggestions in a fixed
// priority order, falling back to a single all-clear message.
func buildRecommendations(articles articleCoverageResult, hleg hlegCoverageResult,
	conflicts []model.Conflict, invalid []model.InvalidCitation) []string {

	var recommendations []string

	if articles.coverage < model.ArticleCoverageThreshold && len(articles.missingNumbers) > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Add requirements for missing articles: %v", articles.missingNumbers))
	}

	if hleg.coverage < model.HLEGCoverageThreshold && len(hleg.missing) > 0 {
		names := make([]string, 0, len(hleg.missing))
		for _, pid := range hleg.missing {
			names = append(names, model.HLEGPrincipleName(pid))
		}
		recommendations = append(recommendations,
			fmt.Sprintf("Add requirements addressing HLEG principles: %v", names))
	}

	if len(conflicts) > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Resolve %d identified conflicts between requirements", len(conflicts)))
	}

	if len(invalid) > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Fix %d invalid citations", len(invalid)))
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Requirements set meets coverage thresholds")
	}

	return recommendations
}
