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

import "testing"

func TestNewReport_PopulatesEnvelope(t *testing.T) {
	r := NewReport()

	if r.ReportID == "" {
		t.Error("expected report ID to be generated")
	}
	if r.Version != Version {
		t.Errorf("expected version %q, got %q", Version, r.Version)
	}
	if r.GeneratedAt.IsZero() {
		t.Error("expected generation timestamp")
	}
	if r.Requirements == nil {
		t.Error("expected requirements initialized to an empty slice")
	}
	if r.CoverageMatrix.ArticleToRequirements == nil {
		t.Error("expected coverage matrix maps initialized")
	}
}

func TestRiskClassification_ApplicableArticleRange(t *testing.T) {
	tests := []struct {
		name     string
		articles []string
		want     string
	}{
		{"empty", nil, "None"},
		{"single", []string{"50"}, "Article 50"},
		{"range", []string{"27", "8", "15"}, "Articles 8-27"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &RiskClassification{ApplicableArticles: tt.articles}
			if got := rc.ApplicableArticleRange(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCoverageMatrix_UncoveredArticles(t *testing.T) {
	m := NewCoverageMatrix()
	m.ArticleToRequirements["9"] = []string{"REQ-001"}
	m.ArticleToRequirements["10"] = []string{"REQ-002"}

	got := m.UncoveredArticles([]string{"9", "10", "11", "12"})
	want := []string{"11", "12"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCoverageMatrix_UncoveredHLEGPrinciples(t *testing.T) {
	m := NewCoverageMatrix()
	for _, pid := range CanonicalHLEGPrincipleIDs {
		m.HLEGToRequirements[pid] = []string{"REQ-001"}
	}
	delete(m.HLEGToRequirements, "accountability")

	got := m.UncoveredHLEGPrinciples()
	if len(got) != 1 || got[0] != "accountability" {
		t.Errorf("expected [accountability], got %v", got)
	}
}

func TestReport_IsProhibited(t *testing.T) {
	r := NewReport()
	if r.IsProhibited() {
		t.Error("report without classification should not be prohibited")
	}

	r.RiskClassification = &RiskClassification{Level: RiskUnacceptable}
	if !r.IsProhibited() {
		t.Error("expected prohibited report for unacceptable classification")
	}
}

func TestReport_RequirementsByPriority(t *testing.T) {
	r := NewReport()
	r.Requirements = []Requirement{
		{ID: "REQ-001", Priority: PriorityCritical},
		{ID: "REQ-002", Priority: PriorityMedium},
		{ID: "REQ-003", Priority: PriorityCritical},
	}

	critical := r.RequirementsByPriority(PriorityCritical)
	if len(critical) != 2 {
		t.Fatalf("expected 2 critical requirements, got %d", len(critical))
	}
	if critical[0].ID != "REQ-001" || critical[1].ID != "REQ-003" {
		t.Errorf("expected order preserved, got %v", critical)
	}
}

func TestReport_AllCitations_IncludesSupportingRecitals(t *testing.T) {
	rec := 47
	r := NewReport()
	r.Requirements = []Requirement{
		{
			ID: "REQ-001",
			EUAIActCitations: []Citation{
				{Source: SourceEUAIAct, Article: "9"},
			},
			HLEGCitations: []Citation{
				{Source: SourceAIHLEG, RequirementID: "accountability"},
			},
			SupportingRecitals: []Citation{
				{Source: SourceEUAIAct, Recital: &rec},
			},
		},
	}

	all := r.AllCitations()
	if len(all) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(all))
	}
	if all[0].Article != "9" || all[1].RequirementID != "accountability" || all[2].Recital == nil {
		t.Errorf("expected EU, HLEG, recital order, got %+v", all)
	}
}

func TestValidationResult_HasConflicts(t *testing.T) {
	v := &ValidationResult{}
	if v.HasConflicts() {
		t.Error("expected no conflicts on empty result")
	}

	v.Conflicts = []Conflict{{RequirementID1: "REQ-001", RequirementID2: "REQ-002", Type: ConflictOverlap}}
	if !v.HasConflicts() {
		t.Error("expected conflicts to be reported")
	}
}
