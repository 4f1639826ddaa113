// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the final report assembled after the pipeline runs:
// the coverage matrix, quantitative metrics, and the report envelope that
// ties description, classification, requirements, and validation together.
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Version identifies the report format produced by this release.
const Version = "0.1.0"

// =============================================================================
// Coverage Matrix
// =============================================================================

// CoverageMatrix records which requirements trace to which legal sources,
// in both directions.
//
// # Description
//
// The matrix is built mechanically from each requirement's derived
// articles, addressed HLEG principles, and addressed subtopics. Entries
// are not deduplicated: a requirement that cites the same article twice
// appears twice, which keeps the matrix an honest record of what the
// generation produced.
type CoverageMatrix struct {
	HLEGToRequirements     map[string][]string `json:"hleg_to_requirements"`
	SubtopicToRequirements map[string][]string `json:"subtopic_to_requirements"`
	ArticleToRequirements  map[string][]string `json:"article_to_requirements"`
	RequirementToArticles  map[string][]string `json:"requirement_to_articles"`
	RequirementToHLEG      map[string][]string `json:"requirement_to_hleg"`
}

// NewCoverageMatrix returns an empty matrix with all maps initialized.
func NewCoverageMatrix() CoverageMatrix {
	return CoverageMatrix{
		HLEGToRequirements:     make(map[string][]string),
		SubtopicToRequirements: make(map[string][]string),
		ArticleToRequirements:  make(map[string][]string),
		RequirementToArticles:  make(map[string][]string),
		RequirementToHLEG:      make(map[string][]string),
	}
}

// UncoveredArticles returns the applicable articles no requirement derives
// from, sorted numerically.
func (m *CoverageMatrix) UncoveredArticles(applicableArticles []string) []string {
	var uncovered []string
	for _, a := range applicableArticles {
		if _, ok := m.ArticleToRequirements[a]; !ok {
			uncovered = append(uncovered, a)
		}
	}
	sort.Slice(uncovered, func(i, j int) bool {
		return articleSortKey(uncovered[i]) < articleSortKey(uncovered[j])
	})
	return uncovered
}

// UncoveredHLEGPrinciples returns the canonical HLEG principles no
// requirement addresses, sorted lexically.
func (m *CoverageMatrix) UncoveredHLEGPrinciples() []string {
	var uncovered []string
	for _, pid := range CanonicalHLEGPrincipleIDs {
		if _, ok := m.HLEGToRequirements[pid]; !ok {
			uncovered = append(uncovered, pid)
		}
	}
	sort.Strings(uncovered)
	return uncovered
}

// =============================================================================
// Report Metrics
// =============================================================================

// ReportMetrics carries the quantitative traceability measures of a
// report. Coverage fields are ratios in [0, 1], taken from the validation
// result rather than recomputed from citations.
type ReportMetrics struct {
	// Citation counts.
	TotalCitations    int `json:"total_citations"`
	EUAIActCitations  int `json:"eu_ai_act_citations"`
	HLEGCitations     int `json:"hleg_citations"`
	RecitalCitations  int `json:"recital_citations"`

	// Unique sources.
	UniqueArticlesCited           int `json:"unique_articles_cited"`
	UniqueParagraphsCited         int `json:"unique_paragraphs_cited"`
	UniqueRecitalsCited           int `json:"unique_recitals_cited"`
	UniqueHLEGPrinciplesAddressed int `json:"unique_hleg_principles_addressed"`
	UniqueHLEGSubtopicsAddressed  int `json:"unique_hleg_subtopics_addressed"`

	// Coverage ratios.
	ArticleCoverage float64 `json:"article_coverage"`
	HLEGCoverage    float64 `json:"hleg_coverage"`

	// Requirement counts.
	TotalRequirements    int `json:"total_requirements"`
	CriticalRequirements int `json:"critical_requirements"`
	HighRequirements     int `json:"high_requirements"`
}

// =============================================================================
// Report
// =============================================================================

// Report is the complete output of one pipeline run.
//
// # Description
//
// The report echoes the system description back to the user, carries the
// risk classification with its legal grounding, and lists the generated
// requirements with validation and coverage analysis. For a prohibited
// system the requirements list is empty and Validation is nil; the
// prohibition itself is explained through the classification. A run that
// fails partway still produces a report, with the failure recorded in
// ProcessingErrors and the result fields left empty.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"tere4ai_version"`
	ReportID    string    `json:"report_id"`

	SystemDescription  *SystemDescription  `json:"system_description,omitempty"`
	RiskClassification *RiskClassification `json:"risk_classification,omitempty"`
	Requirements       []Requirement       `json:"requirements"`
	Validation         *ValidationResult   `json:"validation,omitempty"`

	CoverageMatrix CoverageMatrix `json:"coverage_matrix"`
	Metrics        ReportMetrics  `json:"metrics"`

	ProcessingPhases   []string `json:"processing_phases"`
	ProcessingErrors   []string `json:"processing_errors,omitempty"`
	ProcessingWarnings []string `json:"processing_warnings,omitempty"`
}

// NewReport returns a report envelope with a fresh ID and timestamp.
func NewReport() *Report {
	return &Report{
		GeneratedAt:    time.Now(),
		Version:        Version,
		ReportID:       uuid.New().String(),
		Requirements:   []Requirement{},
		CoverageMatrix: NewCoverageMatrix(),
	}
}

// IsProhibited reports whether the classified system is prohibited.
func (r *Report) IsProhibited() bool {
	return r.RiskClassification != nil && r.RiskClassification.IsProhibited()
}

// HasRequirements reports whether any requirements were generated.
func (r *Report) HasRequirements() bool {
	return len(r.Requirements) > 0
}

// RequirementsByCategory returns the requirements in the given category,
// preserving their order.
func (r *Report) RequirementsByCategory(category RequirementCategory) []Requirement {
	var out []Requirement
	for _, req := range r.Requirements {
		if req.Category == category {
			out = append(out, req)
		}
	}
	return out
}

// RequirementsByPriority returns the requirements at the given priority,
// preserving their order.
func (r *Report) RequirementsByPriority(priority RequirementPriority) []Requirement {
	var out []Requirement
	for _, req := range r.Requirements {
		if req.Priority == priority {
			out = append(out, req)
		}
	}
	return out
}

// AllCitations returns every citation across all requirements, in
// document order.
func (r *Report) AllCitations() []Citation {
	var out []Citation
	for i := range r.Requirements {
		out = append(out, r.Requirements[i].AllCitations()...)
	}
	return out
}
