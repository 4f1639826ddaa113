// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

func highRiskClassification() *model.RiskClassification {
	return &model.RiskClassification{
		Level:            model.RiskHigh,
		AnnexIIICategory: model.AnnexEssentialServices,
	}
}

func TestGenerate_FanOutAndRenumber(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	client := highRiskLLM()
	specifier := NewSpecifier(store, client, testConfig())
	trace := &RunTrace{}

	out, err := specifier.Generate(context.Background(), testDescription(),
		highRiskClassification(), trace)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(out.Requirements) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(out.Requirements))
	}
	// Results gather in article order no matter which task finished
	// first: both Article 9 requirements precede the Article 14 one.
	if out.Requirements[0].Title != "Establish lifecycle risk management" ||
		out.Requirements[2].Title != "Provide effective human oversight" {
		t.Errorf("results should gather in article order, got %q / %q / %q",
			out.Requirements[0].Title, out.Requirements[1].Title, out.Requirements[2].Title)
	}
	for i, want := range []string{"REQ-001", "REQ-002", "REQ-003"} {
		if out.Requirements[i].ID != want {
			t.Errorf("requirement %d should be renumbered to %s, got %s",
				i, want, out.Requirements[i].ID)
		}
	}
	if len(out.ArticlesProcessed) != 2 ||
		out.ArticlesProcessed[0] != 9 || out.ArticlesProcessed[1] != 14 {
		t.Errorf("expected articles [9 14], got %v", out.ArticlesProcessed)
	}
	if len(out.GenerationNotes) != 1 ||
		out.GenerationNotes[0] != "Generated 3 requirements from 2 articles." {
		t.Errorf("expected summary note, got %v", out.GenerationNotes)
	}

	var llmCalls int
	for _, call := range trace.Calls {
		if call.Tool == "llm.generate_requirements" {
			llmCalls++
		}
	}
	if llmCalls != 2 {
		t.Errorf("expected 2 generation calls recorded, got %d", llmCalls)
	}
}

func TestGenerate_ProhibitedProducesNothing(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{}
	specifier := NewSpecifier(highRiskStore(), client, testConfig())

	cls := &model.RiskClassification{Level: model.RiskUnacceptable}
	out, err := specifier.Generate(context.Background(), testDescription(), cls, nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(out.Requirements) != 0 {
		t.Errorf("prohibited systems get no requirements, got %d", len(out.Requirements))
	}
	if len(out.GenerationNotes) != 1 ||
		!strings.Contains(out.GenerationNotes[0], "prohibited under Article 5") {
		t.Errorf("expected prohibition note, got %v", out.GenerationNotes)
	}
	if client.calls != 0 {
		t.Errorf("prohibited path should make no LLM calls, got %d", client.calls)
	}
}

func TestGenerate_NoApplicableArticles(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.applicable = nil
	specifier := NewSpecifier(store, &scriptedLLM{}, testConfig())

	cls := &model.RiskClassification{Level: model.RiskMinimal}
	out, err := specifier.Generate(context.Background(), testDescription(), cls, nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(out.Requirements) != 0 {
		t.Errorf("expected no requirements, got %d", len(out.Requirements))
	}
	if len(out.GenerationNotes) != 1 ||
		out.GenerationNotes[0] != "No specific articles apply for minimal risk level." {
		t.Errorf("expected no-articles note, got %v", out.GenerationNotes)
	}
}

func TestGenerate_DropsMalformedRequirements(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.applicable = store.applicable[:1] // Article 9 only
	client := highRiskLLM()
	client.articles = map[int]string{9: `{
	  "requirements": [
	    {
	      "id": "REQ-001",
	      "title": "Establish lifecycle risk management",
	      "statement": "The system SHALL implement a documented risk management process.",
	      "category": "risk_management",
	      "priority": "high",
	      "requirement_type": "mandatory",
	      "eu_ai_act_citations": [{"article": "9", "paragraph": 1, "quoted_text": "shall be established"}]
	    },
	    {"title": 42},
	    {"id": "REQ-003", "title": "Orphan", "statement": "   "}
	  ]
	}`}
	specifier := NewSpecifier(store, client, testConfig())

	out, err := specifier.Generate(context.Background(), testDescription(),
		highRiskClassification(), nil)
	if err != nil {
		t.Fatalf("one bad requirement must not fail the batch: %v", err)
	}

	if len(out.Requirements) != 1 {
		t.Fatalf("expected 1 surviving requirement, got %d", len(out.Requirements))
	}
	if out.Requirements[0].ID != "REQ-001" {
		t.Errorf("survivor should be renumbered first, got %s", out.Requirements[0].ID)
	}

	var dropNotes int
	for _, note := range out.GenerationNotes {
		if strings.Contains(note, "Dropped a malformed requirement") {
			dropNotes++
		}
	}
	if dropNotes != 2 {
		t.Errorf("expected 2 drop notes, got %v", out.GenerationNotes)
	}
}

func TestGenerate_ApplicableArticlesErrorIsFatal(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.applicableErr = errors.New("corpus unavailable")
	specifier := NewSpecifier(store, highRiskLLM(), testConfig())

	_, err := specifier.Generate(context.Background(), testDescription(),
		highRiskClassification(), nil)
	if err == nil || !strings.Contains(err.Error(), "listing applicable articles") {
		t.Errorf("expected wrapped lookup error, got %v", err)
	}
}

func TestGenerate_MissingArticleIsFatal(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	delete(store.articles, 14)
	specifier := NewSpecifier(store, highRiskLLM(), testConfig())

	_, err := specifier.Generate(context.Background(), testDescription(),
		highRiskClassification(), nil)
	if err == nil || !strings.Contains(err.Error(), "fetching article 14") {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestGenerate_ArticleTaskErrorIsFatal(t *testing.T) {
	t.Parallel()

	client := highRiskLLM()
	client.failSubstring = "ARTICLE 14:"
	client.failErr = errors.New("backend down")
	specifier := NewSpecifier(highRiskStore(), client, testConfig())

	_, err := specifier.Generate(context.Background(), testDescription(),
		highRiskClassification(), nil)
	if err == nil || !strings.Contains(err.Error(), "generating requirements for article 14") {
		t.Errorf("expected wrapped generation error, got %v", err)
	}
}

// =============================================================================
// Requirement Parsing Tests
// =============================================================================

func TestParseRequirement_BuildsCitations(t *testing.T) {
	t.Parallel()

	paragraph := flexInt(2)
	dto := &requirementDTO{
		Title:     "Log all ranking decisions",
		Statement: "The system SHALL keep an audit log of every ranking decision.",
		Category:  "record_keeping",
		Priority:  "high",
		EUAIActCites: []euCitationDTO{
			{Article: "", Paragraph: &paragraph, Point: "a", QuotedText: "automatic recording of events"},
			{Article: "12", QuotedText: "logging capabilities"},
		},
		HLEGCites: []hlegCitationDTO{
			{RequirementID: "transparency", SubtopicID: "traceability"},
			{RequirementID: "mind_reading"},
			{RequirementID: ""},
		},
	}

	req, ok := parseRequirement(dto, 12)
	if !ok {
		t.Fatal("a titled requirement with a statement should parse")
	}

	if len(req.EUAIActCitations) != 2 {
		t.Fatalf("expected 2 EU citations, got %d", len(req.EUAIActCitations))
	}
	first := req.EUAIActCitations[0]
	if first.Article != "12" {
		t.Errorf("empty article should fall back to the source article, got %q", first.Article)
	}
	if first.ReferenceText != "Article 12(2)(a)" {
		t.Errorf("expected reference Article 12(2)(a), got %q", first.ReferenceText)
	}
	if req.EUAIActCitations[1].ReferenceText != "Article 12" {
		t.Errorf("citation without paragraph keeps the bare reference, got %q",
			req.EUAIActCitations[1].ReferenceText)
	}

	if len(req.HLEGCitations) != 1 {
		t.Fatalf("unknown and empty principle IDs should be dropped, got %d", len(req.HLEGCitations))
	}
	hleg := req.HLEGCitations[0]
	if hleg.RequirementID != "transparency" || hleg.SubtopicID != "traceability" {
		t.Errorf("unexpected HLEG citation: %+v", hleg)
	}
	if hleg.RelevanceScore == nil || *hleg.RelevanceScore != defaultHLEGRelevance {
		t.Errorf("missing relevance should default, got %v", hleg.RelevanceScore)
	}

	if len(req.DerivedFromArticles) != 1 || req.DerivedFromArticles[0] != "12" {
		t.Errorf("derived articles should dedupe, got %v", req.DerivedFromArticles)
	}
	if len(req.AddressesHLEGPrinciples) != 1 || req.AddressesHLEGPrinciples[0] != "transparency" {
		t.Errorf("expected one addressed principle, got %v", req.AddressesHLEGPrinciples)
	}
	if len(req.AddressesHLEGSubtopics) != 1 || req.AddressesHLEGSubtopics[0] != "traceability" {
		t.Errorf("expected one addressed subtopic, got %v", req.AddressesHLEGSubtopics)
	}

	if req.Category != model.CategoryRecordKeeping {
		t.Errorf("expected record_keeping category, got %s", req.Category)
	}
	if req.Type != model.TypeMandatory {
		t.Errorf("missing type should default to mandatory, got %s", req.Type)
	}
	if req.SupportingRecitals == nil {
		t.Error("supporting recitals should be an empty slice, not nil")
	}
}

func TestParseRequirement_RejectsBlankTitleOrStatement(t *testing.T) {
	t.Parallel()

	if _, ok := parseRequirement(&requirementDTO{Title: "  ", Statement: "x"}, 9); ok {
		t.Error("blank title should be rejected")
	}
	if _, ok := parseRequirement(&requirementDTO{Title: "x", Statement: ""}, 9); ok {
		t.Error("blank statement should be rejected")
	}
}

func TestParseRequirement_CoercesUnknownEnums(t *testing.T) {
	t.Parallel()

	dto := &requirementDTO{
		Title:           "T",
		Statement:       "S",
		Category:        "astral_plane",
		Priority:        "urgent",
		RequirementType: "wishful",
	}
	req, ok := parseRequirement(dto, 9)
	if !ok {
		t.Fatal("requirement should parse")
	}
	if req.Category != model.CategoryGeneral {
		t.Errorf("unknown category should coerce to general, got %s", req.Category)
	}
	if req.Priority != model.PriorityMedium {
		t.Errorf("unknown priority should coerce to medium, got %s", req.Priority)
	}
	if req.Type != model.TypeMandatory {
		t.Errorf("unknown type should coerce to mandatory, got %s", req.Type)
	}
	if req.ID != "REQ-000" {
		t.Errorf("missing ID should get the placeholder, got %s", req.ID)
	}
}

func TestParseRequirement_ZeroParagraphOmittedFromReference(t *testing.T) {
	t.Parallel()

	paragraph := flexInt(0)
	dto := &requirementDTO{
		Title:        "T",
		Statement:    "S",
		EUAIActCites: []euCitationDTO{{Article: "9", Paragraph: &paragraph, Point: "a"}},
	}
	req, ok := parseRequirement(dto, 9)
	if !ok {
		t.Fatal("requirement should parse")
	}
	if req.EUAIActCitations[0].ReferenceText != "Article 9" {
		t.Errorf("zero paragraph keeps the bare reference, got %q",
			req.EUAIActCitations[0].ReferenceText)
	}
}

// =============================================================================
// Flexible Decoding Tests
// =============================================================================

func TestFlexString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want flexString
	}{
		{`"9"`, "9"},
		{`9`, "9"},
		{`9.0`, "9.0"},
		{`null`, ""},
	}
	for _, tc := range cases {
		var f flexString
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Errorf("Unmarshal(%s) returned error: %v", tc.in, err)
			continue
		}
		if f != tc.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tc.in, f, tc.want)
		}
	}
}

func TestFlexInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want flexInt
	}{
		{`3`, 3},
		{`2.9`, 2},
		{`"4"`, 4},
		{`" 5 "`, 5},
		{`""`, 0},
		{`null`, 0},
	}
	for _, tc := range cases {
		var f flexInt
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Errorf("Unmarshal(%s) returned error: %v", tc.in, err)
			continue
		}
		if f != tc.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tc.in, f, tc.want)
		}
	}
}

func TestFlexInt_RejectsGarbageStrings(t *testing.T) {
	t.Parallel()

	var f flexInt
	if err := json.Unmarshal([]byte(`"two"`), &f); err == nil {
		t.Error("non-numeric string should fail to decode")
	}
}
