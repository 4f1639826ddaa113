// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// =============================================================================
// FormatReference Tests
// =============================================================================

func TestCitation_FormatReference_ArticleParagraphPoint(t *testing.T) {
	c := &Citation{
		Source:    SourceEUAIAct,
		Article:   "9",
		Paragraph: intPtr(1),
		Point:     "a",
	}

	if got := c.FormatReference(); got != "Article 9(1)(a)" {
		t.Errorf("expected %q, got %q", "Article 9(1)(a)", got)
	}
}

func TestCitation_FormatReference_ArticleOnly(t *testing.T) {
	c := &Citation{Source: SourceEUAIAct, Article: "50"}

	if got := c.FormatReference(); got != "Article 50" {
		t.Errorf("expected %q, got %q", "Article 50", got)
	}
}

func TestCitation_FormatReference_RecitalWinsOverArticle(t *testing.T) {
	c := &Citation{
		Source:  SourceEUAIAct,
		Article: "9",
		Recital: intPtr(47),
	}

	if got := c.FormatReference(); got != "Recital (47)" {
		t.Errorf("expected %q, got %q", "Recital (47)", got)
	}
}

func TestCitation_FormatReference_AnnexWithSection(t *testing.T) {
	c := &Citation{
		Source:       SourceEUAIAct,
		Annex:        "III",
		AnnexSection: "5(a)",
	}

	if got := c.FormatReference(); got != "Annex III, Section 5(a)" {
		t.Errorf("expected %q, got %q", "Annex III, Section 5(a)", got)
	}
}

func TestCitation_FormatReference_AnnexWithoutSection(t *testing.T) {
	c := &Citation{Source: SourceEUAIAct, Annex: "III"}

	if got := c.FormatReference(); got != "Annex III" {
		t.Errorf("expected %q, got %q", "Annex III", got)
	}
}

func TestCitation_FormatReference_HLEGWithSubtopic(t *testing.T) {
	c := &Citation{
		Source:        SourceAIHLEG,
		RequirementID: "technical_robustness_and_safety",
		SubtopicID:    "resilience_to_attack",
		ReferenceText: "Technical Robustness and Safety",
	}

	want := "HLEG: Technical Robustness and Safety - Resilience To Attack"
	if got := c.FormatReference(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCitation_FormatReference_HLEGWithoutSubtopic(t *testing.T) {
	c := &Citation{
		Source:        SourceAIHLEG,
		RequirementID: "accountability",
		ReferenceText: "Accountability",
	}

	if got := c.FormatReference(); got != "HLEG: Accountability" {
		t.Errorf("expected %q, got %q", "HLEG: Accountability", got)
	}
}

func TestCitation_FormatReference_FallsBackToReferenceText(t *testing.T) {
	c := &Citation{
		Source:        SourceEUAIAct,
		ReferenceText: "No specific regulatory requirements",
	}

	if got := c.FormatReference(); got != "No specific regulatory requirements" {
		t.Errorf("expected reference text fallback, got %q", got)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestCitation_Validate_Success(t *testing.T) {
	c := &Citation{
		Source:         SourceAIHLEG,
		RequirementID:  "transparency",
		RelevanceScore: floatPtr(0.9),
	}

	if err := c.Validate(); err != nil {
		t.Errorf("expected valid citation, got error: %v", err)
	}
}

func TestCitation_Validate_InvalidSource(t *testing.T) {
	c := &Citation{Source: "GDPR"}

	err := c.Validate()
	if !errors.Is(err, ErrInvalidCitationSource) {
		t.Errorf("expected ErrInvalidCitationSource, got %v", err)
	}
}

func TestCitation_Validate_InvalidHLEGPrincipleID(t *testing.T) {
	c := &Citation{
		Source:        SourceAIHLEG,
		RequirementID: "robustness",
	}

	err := c.Validate()
	if !errors.Is(err, ErrInvalidHLEGPrincipleID) {
		t.Errorf("expected ErrInvalidHLEGPrincipleID, got %v", err)
	}
}

func TestCitation_Validate_RelevanceOutOfRange(t *testing.T) {
	c := &Citation{
		Source:         SourceEUAIAct,
		Article:        "9",
		RelevanceScore: floatPtr(1.5),
	}

	err := c.Validate()
	if !errors.Is(err, ErrRelevanceOutOfRange) {
		t.Errorf("expected ErrRelevanceOutOfRange, got %v", err)
	}
}

func TestIsCanonicalHLEGPrincipleID_CoversAllSeven(t *testing.T) {
	if len(CanonicalHLEGPrincipleIDs) != 7 {
		t.Fatalf("expected 7 canonical principles, got %d", len(CanonicalHLEGPrincipleIDs))
	}
	for _, id := range CanonicalHLEGPrincipleIDs {
		if !IsCanonicalHLEGPrincipleID(id) {
			t.Errorf("canonical id %q not recognized", id)
		}
	}
}

func TestHLEGPrincipleName_UnknownIDPassesThrough(t *testing.T) {
	if got := HLEGPrincipleName("not_a_principle"); got != "not_a_principle" {
		t.Errorf("expected pass-through for unknown id, got %q", got)
	}
}

// =============================================================================
// CitationBundle Tests
// =============================================================================

func TestCitationBundle_AllCitations_PrimaryFirst(t *testing.T) {
	b := &CitationBundle{
		Primary: Citation{Source: SourceEUAIAct, Article: "5"},
		Supporting: []Citation{
			{Source: SourceAIHLEG, RequirementID: "transparency"},
		},
	}

	all := b.AllCitations()
	if len(all) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(all))
	}
	if all[0].Article != "5" {
		t.Errorf("expected primary citation first, got %+v", all[0])
	}
}

func TestCitationBundle_CountBySource_AlwaysHasBothKeys(t *testing.T) {
	b := &CitationBundle{
		Primary: Citation{Source: SourceEUAIAct, Article: "6"},
	}

	counts := b.CountBySource()
	if counts[SourceEUAIAct] != 1 {
		t.Errorf("expected 1 EU AI Act citation, got %d", counts[SourceEUAIAct])
	}
	if got, ok := counts[SourceAIHLEG]; !ok || got != 0 {
		t.Errorf("expected HLEG key with zero count, got %d (present=%v)", got, ok)
	}
}

func TestCitationBundle_ArticlesCited_NumericSortUnique(t *testing.T) {
	b := &CitationBundle{
		Primary: Citation{Source: SourceEUAIAct, Article: "10"},
		Supporting: []Citation{
			{Source: SourceEUAIAct, Article: "9"},
			{Source: SourceEUAIAct, Article: "10"},
			{Source: SourceEUAIAct, Article: "15"},
		},
	}

	got := b.ArticlesCited()
	want := []string{"9", "10", "15"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCitationBundle_HLEGPrinciplesCited_SortedUnique(t *testing.T) {
	b := &CitationBundle{
		Primary: Citation{Source: SourceEUAIAct, Article: "6"},
		Supporting: []Citation{
			{Source: SourceAIHLEG, RequirementID: "transparency"},
			{Source: SourceAIHLEG, RequirementID: "accountability"},
			{Source: SourceAIHLEG, RequirementID: "transparency"},
		},
	}

	got := b.HLEGPrinciplesCited()
	want := []string{"accountability", "transparency"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
