// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the data structures shared across the compliance
// pipeline: system descriptions, risk classifications, generated
// requirements, validation results, and the assembled report.
//
// This file contains citation types. Every classification and requirement
// the pipeline produces is anchored to the legal corpus through these
// types, so traceability rules (valid source, canonical HLEG principle
// identifiers, bounded relevance scores) are enforced here rather than in
// each agent.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// Citation Sources
// =============================================================================

// CitationSource identifies the legal corpus a citation points into.
//
// Valid Values:
//   - "EU_AI_ACT": Regulation (EU) 2024/1689 (articles, recitals, annexes)
//   - "AI_HLEG": the HLEG Ethics Guidelines for Trustworthy AI (2019)
type CitationSource string

const (
	SourceEUAIAct CitationSource = "EU_AI_ACT"
	SourceAIHLEG  CitationSource = "AI_HLEG"
)

// validCitationSources contains all valid CitationSource values.
var validCitationSources = map[CitationSource]bool{
	SourceEUAIAct: true,
	SourceAIHLEG:  true,
}

// IsValid checks if the CitationSource is a valid value.
func (s CitationSource) IsValid() bool {
	return validCitationSources[s]
}

// Document identifiers used by citations into the two corpora.
const (
	DocumentEUAIAct2024 = "eu_ai_act_2024"
	DocumentAIHLEG2019  = "ai_hleg_2019"
)

// =============================================================================
// Canonical HLEG Principles
// =============================================================================

// CanonicalHLEGPrincipleIDs lists the seven HLEG trustworthy-AI requirements
// in their canonical order. HLEG citations and coverage calculations accept
// exactly these identifiers; anything else is rejected at validation time.
var CanonicalHLEGPrincipleIDs = []string{
	"human_agency_and_oversight",
	"technical_robustness_and_safety",
	"privacy_and_data_governance",
	"transparency",
	"diversity_non_discrimination_and_fairness",
	"societal_and_environmental_wellbeing",
	"accountability",
}

// hlegPrincipleNames maps canonical principle IDs to display names.
var hlegPrincipleNames = map[string]string{
	"human_agency_and_oversight":                "Human Agency and Oversight",
	"technical_robustness_and_safety":           "Technical Robustness and Safety",
	"privacy_and_data_governance":               "Privacy and Data Governance",
	"transparency":                              "Transparency",
	"diversity_non_discrimination_and_fairness": "Diversity, Non-discrimination and Fairness",
	"societal_and_environmental_wellbeing":      "Societal and Environmental Well-being",
	"accountability":                            "Accountability",
}

// IsCanonicalHLEGPrincipleID reports whether id is one of the seven
// canonical HLEG principle identifiers.
func IsCanonicalHLEGPrincipleID(id string) bool {
	_, ok := hlegPrincipleNames[id]
	return ok
}

// HLEGPrincipleName returns the display name for a canonical principle ID.
// Unknown IDs are returned unchanged so callers never render an empty label.
func HLEGPrincipleName(id string) string {
	if name, ok := hlegPrincipleNames[id]; ok {
		return name
	}
	return id
}

// =============================================================================
// Sentinel Errors
// =============================================================================

// Sentinel errors for citation validation.
var (
	// ErrInvalidCitationSource indicates a source outside the two corpora.
	ErrInvalidCitationSource = errors.New("invalid citation source")

	// ErrInvalidHLEGPrincipleID indicates a non-canonical HLEG identifier.
	ErrInvalidHLEGPrincipleID = errors.New("invalid HLEG principle id")

	// ErrRelevanceOutOfRange indicates a relevance score outside [0, 1].
	ErrRelevanceOutOfRange = errors.New("relevance score out of range")
)

// =============================================================================
// Citation
// =============================================================================

// Citation is a single pointer into the legal corpus.
//
// # Description
//
// A Citation locates one provision in either the EU AI Act or the HLEG
// guidelines. EU AI Act citations use Article/Paragraph/Point or
// Recital or Annex/AnnexSection; HLEG citations use RequirementID and
// optionally SubtopicID. The unused locator fields stay zero. QuotedText
// carries the text (or close paraphrase) the citation relies on, and
// ReferenceText a preformatted human-readable reference.
//
// # Examples
//
//	para := 1
//	c := Citation{
//	    Source:     SourceEUAIAct,
//	    DocumentID: DocumentEUAIAct2024,
//	    Article:    "9",
//	    Paragraph:  &para,
//	    QuotedText: "A risk management system shall be established...",
//	}
//	fmt.Println(c.FormatReference()) // "Article 9(1)"
//
// # Limitations
//
//   - Article is a string because the Act contains lettered articles
//     (e.g. "6a" in some consolidations); numeric sorting treats
//     non-numeric articles as 0.
type Citation struct {
	Source     CitationSource `json:"source"`
	DocumentID string         `json:"document_id,omitempty"`

	// EU AI Act locators.
	Chapter      string `json:"chapter,omitempty"`
	Section      string `json:"section,omitempty"`
	Article      string `json:"article,omitempty"`
	Paragraph    *int   `json:"paragraph,omitempty"`
	Point        string `json:"point,omitempty"`
	Recital      *int   `json:"recital,omitempty"`
	Annex        string `json:"annex,omitempty"`
	AnnexSection string `json:"annex_section,omitempty"`

	// HLEG locators.
	RequirementID string `json:"requirement_id,omitempty"`
	SubtopicID    string `json:"subtopic_id,omitempty"`

	// Content.
	ReferenceText  string   `json:"reference_text,omitempty"`
	QuotedText     string   `json:"quoted_text,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

// Validate checks source validity, canonical HLEG identifiers, and the
// relevance score range.
func (c *Citation) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCitationSource, c.Source)
	}
	if c.RequirementID != "" && !IsCanonicalHLEGPrincipleID(c.RequirementID) {
		return fmt.Errorf("%w: %q", ErrInvalidHLEGPrincipleID, c.RequirementID)
	}
	if c.RelevanceScore != nil && (*c.RelevanceScore < 0 || *c.RelevanceScore > 1) {
		return fmt.Errorf("%w: %v", ErrRelevanceOutOfRange, *c.RelevanceScore)
	}
	return nil
}

// FormatReference renders the citation as a human-readable legal reference.
//
// # Description
//
// EU AI Act citations prefer, in order: recital, annex, article. An
// article reference appends the paragraph and point when present, e.g.
// "Article 9(1)(a)". HLEG citations render as "HLEG: <reference text>"
// with the subtopic appended in title case when set. When no locator is
// populated the raw ReferenceText is returned.
func (c *Citation) FormatReference() string {
	if c.Source == SourceAIHLEG {
		ref := "HLEG: " + c.ReferenceText
		if c.SubtopicID != "" {
			ref += " - " + titleWords(c.SubtopicID)
		}
		return ref
	}

	if c.Recital != nil {
		return fmt.Sprintf("Recital (%d)", *c.Recital)
	}
	if c.Annex != "" {
		if c.AnnexSection != "" {
			return fmt.Sprintf("Annex %s, Section %s", c.Annex, c.AnnexSection)
		}
		return "Annex " + c.Annex
	}
	if c.Article != "" {
		ref := "Article " + c.Article
		if c.Paragraph != nil {
			ref += fmt.Sprintf("(%d)", *c.Paragraph)
		}
		if c.Point != "" {
			ref += fmt.Sprintf("(%s)", c.Point)
		}
		return ref
	}
	return c.ReferenceText
}

// titleWords converts a snake_case identifier into a spaced title-case
// label, e.g. "resilience_to_attack" -> "Resilience To Attack".
func titleWords(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// =============================================================================
// CitationBundle
// =============================================================================

// CitationBundle groups the primary legal basis for a decision with its
// supporting citations and the rationale connecting them.
type CitationBundle struct {
	Primary    Citation   `json:"primary"`
	Supporting []Citation `json:"supporting,omitempty"`
	Rationale  string     `json:"rationale"`
}

// AllCitations returns the primary citation followed by all supporting
// citations.
func (b *CitationBundle) AllCitations() []Citation {
	out := make([]Citation, 0, 1+len(b.Supporting))
	out = append(out, b.Primary)
	out = append(out, b.Supporting...)
	return out
}

// CountBySource tallies citations per corpus. Both corpora are always
// present in the result, with zero counts when unused.
func (b *CitationBundle) CountBySource() map[CitationSource]int {
	counts := map[CitationSource]int{
		SourceEUAIAct: 0,
		SourceAIHLEG:  0,
	}
	for _, c := range b.AllCitations() {
		switch c.Source {
		case SourceEUAIAct, SourceAIHLEG:
			counts[c.Source]++
		}
	}
	return counts
}

// ArticlesCited returns the unique articles referenced across the bundle,
// sorted numerically. Non-numeric article labels sort first.
func (b *CitationBundle) ArticlesCited() []string {
	seen := make(map[string]bool)
	var articles []string
	for _, c := range b.AllCitations() {
		if c.Article != "" && !seen[c.Article] {
			seen[c.Article] = true
			articles = append(articles, c.Article)
		}
	}
	sort.Slice(articles, func(i, j int) bool {
		return articleSortKey(articles[i]) < articleSortKey(articles[j])
	})
	return articles
}

// HLEGPrinciplesCited returns the unique HLEG principle IDs referenced
// across the bundle, sorted lexically.
func (b *CitationBundle) HLEGPrinciplesCited() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range b.AllCitations() {
		if c.RequirementID != "" && !seen[c.RequirementID] {
			seen[c.RequirementID] = true
			ids = append(ids, c.RequirementID)
		}
	}
	sort.Strings(ids)
	return ids
}

// articleSortKey maps an article label to its numeric position.
func articleSortKey(article string) int {
	n, err := strconv.Atoi(article)
	if err != nil {
		return 0
	}
	return n
}
