// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the legal corpus payloads returned by the knowledge
// store: article content, HLEG mappings, principle coverage, and search
// results.
package model

// Point is one lettered point within an article paragraph.
type Point struct {
	Marker string `json:"marker"`
	Text   string `json:"text"`
}

// Paragraph is one numbered paragraph of an article, 1-based.
type Paragraph struct {
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Points []Point `json:"points,omitempty"`
}

// RecitalRef is a recital cited in support of an article.
type RecitalRef struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// HLEGMapping links an article to one HLEG principle it aligns with.
type HLEGMapping struct {
	RequirementID   string   `json:"requirement_id"`
	RequirementName string   `json:"requirement_name"`
	Relevance       float64  `json:"relevance"`
	Rationale       string   `json:"rationale,omitempty"`
	Subtopics       []string `json:"subtopics,omitempty"`
}

// ArticleSummary is the light article view returned when listing the
// articles applicable to a risk level.
type ArticleSummary struct {
	Number     int         `json:"number"`
	Title      string      `json:"title"`
	Section    string      `json:"section"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Category   string      `json:"category"`
}

// Article is the complete article bundle used for requirement
// generation: full text, paragraph structure, supporting recitals, and
// HLEG mappings.
type Article struct {
	Number       int           `json:"number"`
	Title        string        `json:"title"`
	FullText     string        `json:"full_text"`
	Paragraphs   []Paragraph   `json:"paragraphs"`
	Recitals     []RecitalRef  `json:"recitals,omitempty"`
	HLEGMappings []HLEGMapping `json:"hleg_mappings,omitempty"`
	Section      string        `json:"section"`
	Category     string        `json:"category"`
}

// =============================================================================
// Principle Coverage
// =============================================================================

// PrincipleCoverageEntry describes how one HLEG principle is covered by a
// set of articles.
type PrincipleCoverageEntry struct {
	Name         string   `json:"name"`
	MaxRelevance float64  `json:"max_relevance"`
	Articles     []int    `json:"articles"`
	Subtopics    []string `json:"subtopics"`
}

// HLEGCoverage maps a set of articles onto the seven HLEG principles.
// Coverage is the ratio of principles touched, in [0, 1].
type HLEGCoverage struct {
	Principles          map[string]PrincipleCoverageEntry `json:"principles"`
	Coverage            float64                           `json:"coverage"`
	UncoveredPrinciples []string                          `json:"uncovered_principles"`
	TotalMappings       int                               `json:"total_mappings"`
}

// =============================================================================
// Legal Text Search
// =============================================================================

// Search filter sources.
const (
	SearchSourceEUAIAct = "eu_ai_act"
	SearchSourceHLEG    = "hleg"
	SearchSourceAll     = "all"
)

// SearchFilters narrows a legal text search.
type SearchFilters struct {
	// Source is one of "eu_ai_act", "hleg", or "all" (the default).
	Source string `json:"source,omitempty"`

	// ArticleRange restricts article matches to [min, max] inclusive
	// when it has two elements.
	ArticleRange []int `json:"article_range,omitempty"`

	// Limit caps the number of matches. Zero means the default of 10.
	Limit int `json:"limit,omitempty"`
}

// SearchMatch is one hit from a legal text search.
type SearchMatch struct {
	Type          string `json:"type"`
	Reference     string `json:"reference"`
	Text          string `json:"text"`
	ArticleNumber int    `json:"article_number,omitempty"`
	RecitalNumber int    `json:"recital_number,omitempty"`
	RequirementID string `json:"requirement_id,omitempty"`
}

// SearchResult is the full result of a legal text search, echoing the
// query back for traceability.
type SearchResult struct {
	Results      []SearchMatch `json:"results"`
	TotalMatches int           `json:"total_matches"`
	Query        string        `json:"query"`
}
