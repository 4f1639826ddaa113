// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the analysis phase: risk classification with legal
// grounding.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
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
	maxQuotedTextLen     = 500
	defaultHLEGRelevance = 0.8
)

// =============================================================================
// System Prompt
// =============================================================================

const analysisSystemPrompt = `You are the Analysis Agent for TERE4AI, a Requirements Engineering system for AI Act compliance.

Your task is to analyze the risk classification result from the knowledge base and build a complete
RiskClassification model with proper legal grounding.

You will receive:
1. The SystemDescription (structured input)
2. The knowledge base classification result

Your job is to:
1. Validate the classification makes sense for the system described
2. Build proper Citation and CitationBundle objects for legal grounding
3. Identify HLEG principles that are implicated
4. Provide clear reasoning

LEGAL GROUNDING RULES:

1. PRIMARY CITATION must reference the exact legal source:
   - For UNACCEPTABLE: Article 5(1)(a-h) prohibition
   - For HIGH: Article 6(2) + Annex III category
   - For LIMITED: Article 50
   - For MINIMAL: No specific article

2. SUPPORTING CITATIONS should include:
   - Related recitals that provide context
   - HLEG principles that are implicated
   - Related articles if applicable

3. HLEG IMPLICATIONS:
   - For UNACCEPTABLE: Which principles are VIOLATED
   - For HIGH/LIMITED: Which principles must be ADDRESSED

OUTPUT: Return a JSON object with these fields:
- level: "unacceptable" | "high" | "limited" | "minimal"
- prohibited_practice: For UNACCEPTABLE, e.g. "5_1_a"
- prohibition_details: Explanation if prohibited
- annex_iii_category: For HIGH, e.g. "1" through "8"
- annex_iii_subcategory: e.g. "5(a)" for healthcare
- applicable_articles: List of article numbers as strings
- article_6_3_exception_checked: boolean
- article_6_3_exception_applies: boolean
- article_6_3_rationale: Explanation if checked
- hleg_principles: List of HLEG principle IDs implicated
- reasoning: Complete classification reasoning
- confidence: 0.0-1.0

HLEG PRINCIPLE IDs:
- human_agency_and_oversight
- technical_robustness_and_safety
- privacy_and_data_governance
- transparency
- diversity_non_discrimination_and_fairness
- societal_and_environmental_wellbeing
- accountability`

// =============================================================================
// Analyzer
// =============================================================================

// Analyzer classifies an AI system against the EU AI Act risk tiers.
// It is the second phase of the pipeline.
//
// # Description
//
// Classification happens in two steps. The rule-based knowledge store
// determines the risk level; that result is authoritative and the LLM
// never overrides it. The LLM then enriches the classification with
// reasoning, prohibited-practice and Annex III details, and implicated
// HLEG principles. Malformed enrichment output is a hard failure since
// silently misclassifying risk is unacceptable here.
type Analyzer struct {
	store knowledge.Store
	llm   llm.LLMClient
	cfg   AgentConfig
}

// NewAnalyzer creates an analysis agent backed by the given knowledge
// store and LLM client.
func NewAnalyzer(store knowledge.Store, client llm.LLMClient, cfg AgentConfig) *Analyzer {
	return &Analyzer{store: store, llm: client, cfg: applyAgentConfigDefaults(cfg)}
}

// Classify determines the risk level of the described system and builds
// a fully grounded RiskClassification.
func (a *Analyzer) Classify(ctx context.Context, desc *model.SystemDescription,
	trace *RunTrace) (*model.RiskClassification, error) {

	ctx, span := pipelineTracer.Start(ctx, "pipeline.Classify")
	defer span.End()

	features := desc.Features()

	callStart := time.Now()
	cls, err := a.store.Classify(ctx, features)
	trace.RecordCall("knowledge.classify_risk_level", "domain="+features.Domain, callStart, err)
	if err != nil {
		return nil, fmt.Errorf("classifying risk level: %w", err)
	}
	span.SetAttributes(attribute.String("risk_level", string(cls.RiskLevel)))

	dto, err := a.enrich(ctx, desc, cls, trace)
	if err != nil {
		return nil, err
	}

	result := buildRiskClassification(dto, cls)

	slog.Info("Risk classification complete",
		slog.String("level", string(result.Level)),
		slog.Float64("confidence", result.Confidence))

	return result, nil
}

// enrich asks the LLM to flesh out the rule-based classification with
// legal grounding details.
func (a *Analyzer) enrich(ctx context.Context, desc *model.SystemDescription,
	cls *model.Classification, trace *RunTrace) (*riskAnalysisDTO, error) {

	clsJSON, err := json.MarshalIndent(cls, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding classification: %w", err)
	}

	autonomy := string(desc.AutonomyLevel)
	if autonomy == "" {
		autonomy = "partial"
	}
	features := desc.Features()

	var sb strings.Builder
	sb.WriteString("Analyze this risk classification and build a complete RiskClassification:\n\n")
	sb.WriteString("SYSTEM DESCRIPTION:\n")
	fmt.Fprintf(&sb, "- Domain: %s\n", features.Domain)
	fmt.Fprintf(&sb, "- Purpose: %s\n", features.Purpose)
	fmt.Fprintf(&sb, "- Data Types: %v\n", features.DataTypes)
	fmt.Fprintf(&sb, "- Decision Types: %v\n", features.DecisionTypes)
	fmt.Fprintf(&sb, "- Autonomy Level: %s\n", autonomy)
	fmt.Fprintf(&sb, "- Affects Fundamental Rights: %t\n", desc.AffectsFundamentalRights)
	fmt.Fprintf(&sb, "- Safety Critical: %t\n", desc.SafetyCritical)
	fmt.Fprintf(&sb, "- Biometric Processing: %t\n", desc.BiometricProcessing)
	fmt.Fprintf(&sb, "- Real-time Biometric: %t\n", desc.RealTimeBiometric)
	fmt.Fprintf(&sb, "- Law Enforcement Use: %t\n", desc.LawEnforcementUse)
	fmt.Fprintf(&sb, "- Emotion Recognition: %t\n", desc.EmotionRecognition)
	fmt.Fprintf(&sb, "- Social Scoring: %t\n", desc.SocialScoring)
	fmt.Fprintf(&sb, "- Vulnerable Groups: %t\n", desc.VulnerableGroups)
	sb.WriteString("\nKNOWLEDGE BASE CLASSIFICATION RESULT:\n")
	sb.Write(clsJSON)
	sb.WriteString("\n\nBuild a complete RiskClassification with proper legal grounding.")

	var dto riskAnalysisDTO
	callStart := time.Now()
	err = llm.GenerateJSON(ctx, a.llm, sb.String(),
		a.cfg.generationParams(analysisSystemPrompt), &dto)
	trace.RecordCall("llm.enrich_classification", "level="+string(cls.RiskLevel), callStart, err)
	if err != nil {
		return nil, fmt.Errorf("enriching risk classification: %w", err)
	}

	return &dto, nil
}

// =============================================================================
// Response Parsing
// =============================================================================

// riskAnalysisDTO is the raw shape of the enrichment response. Level,
// ApplicableArticles and the exception-applies flag are accepted but
// ignored: the rule-based result is authoritative for those.
type riskAnalysisDTO struct {
	Level                     string   `json:"level"`
	ProhibitedPractice        string   `json:"prohibited_practice"`
	ProhibitionDetails        string   `json:"prohibition_details"`
	AnnexIIICategory          string   `json:"annex_iii_category"`
	AnnexIIISubcategory       string   `json:"annex_iii_subcategory"`
	ApplicableArticles        []string `json:"applicable_articles"`
	Article63ExceptionChecked bool     `json:"article_6_3_exception_checked"`
	Article63ExceptionApplies bool     `json:"article_6_3_exception_applies"`
	Article63Rationale        string   `json:"article_6_3_rationale"`
	HLEGPrinciples            []string `json:"hleg_principles"`
	Reasoning                 string   `json:"reasoning"`
	Confidence                *float64 `json:"confidence"`
}

// buildRiskClassification merges the rule-based classification with the
// LLM enrichment. The rule result wins on the risk level, the exception
// flag, and the applicable-articles range.
func buildRiskClassification(dto *riskAnalysisDTO, cls *model.Classification) *model.RiskClassification {
	level := cls.RiskLevel

	principles := dto.HLEGPrinciples
	if principles == nil {
		principles = cls.HLEGPrinciples
	}

	reasoning := dto.Reasoning
	if reasoning == "" {
		reasoning = cls.Reasoning
	}

	confidence := 1.0
	if dto.Confidence != nil {
		confidence = clamp01(*dto.Confidence)
	}

	result := &model.RiskClassification{
		Level: level,
		LegalBasis: model.CitationBundle{
			Primary:    buildPrimaryCitation(cls, level),
			Supporting: buildHLEGCitations(principles),
			Rationale:  reasoning,
		},
		ProhibitionDetails:        dto.ProhibitionDetails,
		AnnexIIISubcategory:       dto.AnnexIIISubcategory,
		ApplicableArticles:        []string{},
		Article63ExceptionChecked: dto.Article63ExceptionChecked,
		Article63ExceptionApplies: cls.Article6Exception,
		Article63Rationale:        dto.Article63Rationale,
		HLEGImplications:          buildHLEGCitations(principles),
		Reasoning:                 reasoning,
		Confidence:                confidence,
	}

	switch level {
	case model.RiskUnacceptable:
		if pp := model.ProhibitedPractice(dto.ProhibitedPractice); pp.IsValid() {
			result.ProhibitedPractice = pp
		}
	case model.RiskHigh:
		annex := dto.AnnexIIICategory
		if annex == "" {
			annex = cls.AnnexCategory
		}
		if ac := model.AnnexIIICategory(annex); ac.IsValid() {
			result.AnnexIIICategory = ac
		}
		result.ApplicableArticles = chapterIIIArticles()
	case model.RiskLimited:
		result.ApplicableArticles = []string{"50"}
	}

	return result
}

// buildPrimaryCitation constructs the deterministic legal-basis citation
// for a risk level.
func buildPrimaryCitation(cls *model.Classification, level model.RiskLevel) model.Citation {
	switch level {
	case model.RiskUnacceptable:
		// The rule result phrases the basis as "Article 5(1)(x)".
		point := ""
		if strings.Contains(cls.LegalBasisArticle, "(") {
			parts := strings.Split(strings.ReplaceAll(cls.LegalBasisArticle, "Article ", ""), "(")
			if len(parts) >= 3 {
				point = strings.TrimSuffix(parts[2], ")")
			}
		}
		return model.Citation{
			Source:        model.SourceEUAIAct,
			DocumentID:    model.DocumentEUAIAct2024,
			Article:       "5",
			Paragraph:     intPtr(1),
			Point:         point,
			ReferenceText: "Article 5 - Prohibited AI Practices",
			QuotedText:    clip(cls.LegalBasisText, maxQuotedTextLen),
		}

	case model.RiskHigh:
		ref := cls.LegalBasisArticle
		if ref == "" {
			ref = "Article 6(2) + Annex III"
		}
		return model.Citation{
			Source:        model.SourceEUAIAct,
			DocumentID:    model.DocumentEUAIAct2024,
			Article:       "6",
			Paragraph:     intPtr(2),
			Annex:         "III",
			AnnexSection:  cls.AnnexCategory,
			ReferenceText: ref,
			QuotedText:    clip(cls.LegalBasisText, maxQuotedTextLen),
		}

	case model.RiskLimited:
		return model.Citation{
			Source:        model.SourceEUAIAct,
			DocumentID:    model.DocumentEUAIAct2024,
			Article:       "50",
			Paragraph:     intPtr(1),
			ReferenceText: "Article 50 - Transparency obligations",
			QuotedText:    clip(cls.LegalBasisText, maxQuotedTextLen),
		}

	default:
		return model.Citation{
			Source:        model.SourceEUAIAct,
			DocumentID:    model.DocumentEUAIAct2024,
			ReferenceText: "No specific regulatory requirements",
			QuotedText:    "System does not fall under specific regulatory categories.",
		}
	}
}

// buildHLEGCitations builds one citation per canonical HLEG principle
// ID. Unknown IDs are dropped.
func buildHLEGCitations(principleIDs []string) []model.Citation {
	var citations []model.Citation
	for _, pid := range principleIDs {
		if !model.IsCanonicalHLEGPrincipleID(pid) {
			continue
		}
		name := model.HLEGPrincipleName(pid)
		citations = append(citations, model.Citation{
			Source:         model.SourceAIHLEG,
			DocumentID:     model.DocumentAIHLEG2019,
			RequirementID:  pid,
			ReferenceText:  name,
			QuotedText:     "HLEG Requirement: " + name,
			RelevanceScore: floatPtr(defaultHLEGRelevance),
		})
	}
	return citations
}

// =============================================================================
// Helpers
// =============================================================================

// chapterIIIArticles lists the high-risk obligations, Articles 8-27.
func chapterIIIArticles() []string {
	out := make([]string, 0, 20)
	for n := 8; n <= 27; n++ {
		out = append(out, strconv.Itoa(n))
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
