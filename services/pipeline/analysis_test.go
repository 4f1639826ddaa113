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
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

func testDescription() *model.SystemDescription {
	return &model.SystemDescription{
		RawDescription: "An AI triage system.",
		Domain:         model.DomainHealthcare,
		Purpose:        "Prioritize emergency department patients",
		AutonomyLevel:  model.AutonomyAdvisory,
		SafetyCritical: true,
	}
}

func TestClassify_HighRisk(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	client := highRiskLLM()
	analyzer := NewAnalyzer(store, client, testConfig())
	trace := &RunTrace{}

	cls, err := analyzer.Classify(context.Background(), testDescription(), trace)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	if cls.Level != model.RiskHigh {
		t.Errorf("expected high risk, got %s", cls.Level)
	}
	if cls.AnnexIIICategory != model.AnnexEssentialServices {
		t.Errorf("expected Annex III category 5, got %s", cls.AnnexIIICategory)
	}
	if cls.AnnexIIISubcategory != "5(a)" {
		t.Errorf("expected subcategory 5(a), got %s", cls.AnnexIIISubcategory)
	}

	primary := cls.LegalBasis.Primary
	if primary.Article != "6" || primary.Paragraph == nil || *primary.Paragraph != 2 {
		t.Errorf("high-risk primary citation should be Article 6(2), got %+v", primary)
	}
	if primary.Annex != "III" || primary.AnnexSection != "5" {
		t.Errorf("high-risk primary citation should reference Annex III section 5, got %+v", primary)
	}

	if len(cls.ApplicableArticles) != 20 ||
		cls.ApplicableArticles[0] != "8" || cls.ApplicableArticles[19] != "27" {
		t.Errorf("high risk should expand to Articles 8-27, got %v", cls.ApplicableArticles)
	}

	if !cls.Article63ExceptionChecked {
		t.Error("exception-checked flag comes from the enrichment")
	}
	if cls.Article63ExceptionApplies {
		t.Error("exception-applies flag must follow the rule result")
	}

	if cls.Reasoning != "Healthcare triage falls under Annex III point 5." {
		t.Errorf("enrichment reasoning should win, got %q", cls.Reasoning)
	}
	if cls.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", cls.Confidence)
	}
	if len(cls.HLEGImplications) != 2 {
		t.Errorf("expected 2 HLEG implications, got %d", len(cls.HLEGImplications))
	}

	if len(trace.Calls) != 2 {
		t.Fatalf("expected classify and enrich calls recorded, got %+v", trace.Calls)
	}
	if trace.Calls[0].Tool != "knowledge.classify_risk_level" ||
		trace.Calls[1].Tool != "llm.enrich_classification" {
		t.Errorf("unexpected call tools: %+v", trace.Calls)
	}
}

func TestClassify_RuleLevelWinsOverEnrichment(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	client := highRiskLLM()
	// The enrichment tries to downgrade; the rule result must hold.
	client.enrichment = `{"level": "minimal", "reasoning": "looks harmless", "confidence": 0.5}`
	analyzer := NewAnalyzer(store, client, testConfig())

	cls, err := analyzer.Classify(context.Background(), testDescription(), nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if cls.Level != model.RiskHigh {
		t.Errorf("rule-based level must win, got %s", cls.Level)
	}
}

func TestClassify_Unacceptable(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.classification = &model.Classification{
		RiskLevel:         model.RiskUnacceptable,
		LegalBasisArticle: "Article 5(1)(c)",
		LegalBasisText:    "social scoring leading to detrimental treatment",
		HLEGPrinciples:    []string{"diversity_non_discrimination_and_fairness"},
		Reasoning:         "Social scoring is prohibited.",
	}
	client := highRiskLLM()
	client.enrichment = `{
	  "prohibited_practice": "5_1_c",
	  "prohibition_details": "General purpose social scoring",
	  "reasoning": "Prohibited under Article 5(1)(c).",
	  "confidence": 0.99
	}`
	analyzer := NewAnalyzer(store, client, testConfig())

	cls, err := analyzer.Classify(context.Background(), testDescription(), nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	if !cls.IsProhibited() {
		t.Fatalf("expected prohibited classification, got %s", cls.Level)
	}
	if cls.ProhibitedPractice != model.ProhibitedSocialScoring {
		t.Errorf("expected prohibited practice 5_1_c, got %s", cls.ProhibitedPractice)
	}

	primary := cls.LegalBasis.Primary
	if primary.Article != "5" || primary.Paragraph == nil || *primary.Paragraph != 1 || primary.Point != "c" {
		t.Errorf("primary citation should be Article 5(1)(c), got %+v", primary)
	}
	if got := primary.FormatReference(); got != "Article 5(1)(c)" {
		t.Errorf("expected reference Article 5(1)(c), got %q", got)
	}
	if len(cls.ApplicableArticles) != 0 {
		t.Errorf("prohibited systems have no applicable articles, got %v", cls.ApplicableArticles)
	}

	// Principles fall back to the rule result when the enrichment omits
	// them.
	if len(cls.HLEGImplications) != 1 ||
		cls.HLEGImplications[0].RequirementID != "diversity_non_discrimination_and_fairness" {
		t.Errorf("expected rule-based principle fallback, got %+v", cls.HLEGImplications)
	}
}

func TestClassify_Limited(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.classification = &model.Classification{
		RiskLevel:      model.RiskLimited,
		LegalBasisText: "AI systems intended to interact directly with natural persons",
		HLEGPrinciples: []string{"transparency"},
		Reasoning:      "Chatbot transparency obligations apply.",
	}
	client := highRiskLLM()
	client.enrichment = `{"reasoning": "Transparency obligations.", "confidence": 0.9}`
	analyzer := NewAnalyzer(store, client, testConfig())

	cls, err := analyzer.Classify(context.Background(), testDescription(), nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	primary := cls.LegalBasis.Primary
	if primary.Article != "50" {
		t.Errorf("limited-risk primary citation should be Article 50, got %+v", primary)
	}
	if len(cls.ApplicableArticles) != 1 || cls.ApplicableArticles[0] != "50" {
		t.Errorf("limited risk applies Article 50 only, got %v", cls.ApplicableArticles)
	}
}

func TestClassify_Minimal(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.classification = &model.Classification{
		RiskLevel:      model.RiskMinimal,
		LegalBasisText: "",
		Reasoning:      "No regulated characteristics.",
	}
	client := highRiskLLM()
	client.enrichment = `{"reasoning": "Minimal risk.", "confidence": 0.95}`
	analyzer := NewAnalyzer(store, client, testConfig())

	cls, err := analyzer.Classify(context.Background(), testDescription(), nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	primary := cls.LegalBasis.Primary
	if primary.ReferenceText != "No specific regulatory requirements" {
		t.Errorf("minimal risk gets the no-requirements citation, got %+v", primary)
	}
	if len(cls.ApplicableArticles) != 0 {
		t.Errorf("minimal risk has no applicable articles, got %v", cls.ApplicableArticles)
	}
}

func TestClassify_StoreErrorIsFatal(t *testing.T) {
	t.Parallel()

	store := highRiskStore()
	store.classification = nil
	store.classifyErr = errors.New("corpus unavailable")
	analyzer := NewAnalyzer(store, highRiskLLM(), testConfig())

	_, err := analyzer.Classify(context.Background(), testDescription(), nil)
	if err == nil || !strings.Contains(err.Error(), "classifying risk level") {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestClassify_EnrichmentErrorIsFatal(t *testing.T) {
	t.Parallel()

	client := highRiskLLM()
	client.failSubstring = "Analyze this risk classification"
	client.failErr = errors.New("backend down")
	analyzer := NewAnalyzer(highRiskStore(), client, testConfig())

	_, err := analyzer.Classify(context.Background(), testDescription(), nil)
	if err == nil || !strings.Contains(err.Error(), "enriching risk classification") {
		t.Errorf("expected wrapped enrichment error, got %v", err)
	}
}

func TestBuildHLEGCitations_DropsUnknownIDs(t *testing.T) {
	t.Parallel()

	citations := buildHLEGCitations([]string{"transparency", "telepathy", "accountability"})

	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	for _, c := range citations {
		if c.Source != model.SourceAIHLEG {
			t.Errorf("citation source should be HLEG, got %s", c.Source)
		}
		if c.RelevanceScore == nil || *c.RelevanceScore != defaultHLEGRelevance {
			t.Errorf("citation should carry the default relevance, got %v", c.RelevanceScore)
		}
	}
	if citations[0].ReferenceText != "Transparency" {
		t.Errorf("reference text should be the principle name, got %q", citations[0].ReferenceText)
	}
}
