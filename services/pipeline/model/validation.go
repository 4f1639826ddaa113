// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the validation phase output: coverage ratios,
// requirement conflicts, and citation integrity findings.
package model

// Coverage thresholds used to judge a requirements set. All coverage
// values in the pipeline are ratios in [0, 1]; rendering as percentages
// happens at presentation time only.
const (
	// ArticleCoverageThreshold is the minimum article coverage ratio for
	// a requirements set to count as complete.
	ArticleCoverageThreshold = 0.80

	// HLEGCoverageThreshold is the minimum HLEG principle coverage ratio
	// before a coverage recommendation is emitted.
	HLEGCoverageThreshold = 0.70
)

// =============================================================================
// Conflict Types
// =============================================================================

// ConflictType classifies how two requirements interfere with each other.
//
// Valid Values:
//   - "contradiction": requirements demand incompatible things
//   - "redundancy": requirements duplicate each other
//   - "overlap": requirements partially cover the same obligation
//   - "dependency": one requirement silently depends on the other
type ConflictType string

const (
	ConflictContradiction ConflictType = "contradiction"
	ConflictRedundancy    ConflictType = "redundancy"
	ConflictOverlap       ConflictType = "overlap"
	ConflictDependency    ConflictType = "dependency"
)

// validConflictTypes contains all valid ConflictType values.
var validConflictTypes = map[ConflictType]bool{
	ConflictContradiction: true,
	ConflictRedundancy:    true,
	ConflictOverlap:       true,
	ConflictDependency:    true,
}

// IsValid checks if the ConflictType is a valid value.
func (t ConflictType) IsValid() bool {
	return validConflictTypes[t]
}

// Conflict records one detected interference between two requirements.
type Conflict struct {
	RequirementID1      string       `json:"requirement_id_1"`
	RequirementID2      string       `json:"requirement_id_2"`
	Type                ConflictType `json:"conflict_type"`
	Explanation         string       `json:"explanation"`
	SuggestedResolution string       `json:"suggested_resolution,omitempty"`
}

// InvalidCitation records one citation that fails integrity checks, e.g.
// an EU citation without an article number or an HLEG citation with a
// non-canonical principle ID.
type InvalidCitation struct {
	RequirementID string `json:"requirement_id"`
	CitationRef   string `json:"citation_ref"`
	CitationType  string `json:"citation_type"`
	Reason        string `json:"reason"`
}

// =============================================================================
// Validation Result
// =============================================================================

// ValidationResult is the validation phase's assessment of a generated
// requirements set.
//
// # Description
//
// Coverage fields are ratios in [0, 1]. IsComplete holds when article
// coverage meets ArticleCoverageThreshold, IsConsistent when no conflicts
// were found, and IsValid when every citation passed integrity checks.
// Recommendations collect the follow-up actions derived from whichever
// checks fell short.
type ValidationResult struct {
	ArticleCoverage  float64 `json:"article_coverage"`
	HLEGCoverage     float64 `json:"hleg_coverage"`
	SubtopicCoverage float64 `json:"subtopic_coverage"`

	CoveredArticles []string `json:"covered_articles,omitempty"`
	MissingArticles []string `json:"missing_articles,omitempty"`

	CoveredHLEGPrinciples []string `json:"covered_hleg_principles,omitempty"`
	MissingHLEGPrinciples []string `json:"missing_hleg_principles,omitempty"`
	CoveredSubtopics      []string `json:"covered_subtopics,omitempty"`

	Conflicts        []Conflict        `json:"conflicts,omitempty"`
	InvalidCitations []InvalidCitation `json:"invalid_citations,omitempty"`
	Recommendations  []string          `json:"recommendations,omitempty"`

	IsComplete   bool `json:"is_complete"`
	IsConsistent bool `json:"is_consistent"`
	IsValid      bool `json:"is_valid"`
}

// HasConflicts reports whether any requirement conflicts were detected.
func (v *ValidationResult) HasConflicts() bool {
	return len(v.Conflicts) > 0
}

// HasInvalidCitations reports whether any citation failed integrity
// checks.
func (v *ValidationResult) HasInvalidCitations() bool {
	return len(v.InvalidCitations) > 0
}
