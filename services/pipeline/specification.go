// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the specification phase: generation of traceable
// requirements from the applicable EU AI Act articles.
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
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/llm"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// System Prompt
// =============================================================================

const specificationSystemPrompt = `You are the Specification Agent for TERE4AI, a Requirements Engineering system for AI Act compliance.

Your task is to generate formal requirements from EU AI Act articles. Each requirement must be:
1. TRACEABLE - Anchored to specific article paragraphs
2. VERIFIABLE - Has clear verification criteria
3. COMPLETE - Covers the article's obligations
4. HLEG-ALIGNED - Addresses relevant HLEG principles

REQUIREMENT FORMAT:

1. ID: Use format REQ-XXX (e.g., REQ-001, REQ-002)

2. TITLE: Short descriptive title (5-10 words)

3. STATEMENT: Formal requirement text using:
   - SHALL for mandatory requirements
   - SHOULD for recommended requirements
   - MAY for optional requirements
   Example: "The system SHALL implement a documented risk management process..."

4. CATEGORY: One of:
   - risk_management (Article 9)
   - data_governance (Article 10)
   - documentation (Article 11)
   - record_keeping (Article 12)
   - transparency (Article 13)
   - human_oversight (Article 14)
   - accuracy_robustness (Article 15)
   - provider_obligations (Articles 16-22)
   - deployer_obligations (Articles 26-27)
   - transparency_limited (Article 50)
   - general (other)

5. PRIORITY: critical | high | medium | low
   - critical: Safety-related or fundamental rights
   - high: Core compliance requirements
   - medium: Supporting requirements
   - low: Nice-to-have

6. EU AI ACT CITATIONS: List of citations with:
   - article: Article number as string
   - paragraph: Paragraph number (1-based)
   - point: Point letter if applicable (a, b, c, etc.)
   - quoted_text: Exact or close paraphrase from article

7. HLEG CITATIONS: List of HLEG principles with:
   - requirement_id: One of the 7 canonical IDs
   - subtopic_id: Specific subtopic if applicable
   - relevance_score: 0.0-1.0

8. VERIFICATION CRITERIA: List of testable criteria
   Example: ["Risk management documentation exists", "Risks are identified and assessed"]

9. VERIFICATION METHOD: How to verify
   Example: "Documentation review and process audit"

10. RATIONALE: Why this requirement is needed

OUTPUT FORMAT:
Return a JSON object with:
{
  "requirements": [
    {
      "id": "REQ-001",
      "title": "...",
      "statement": "The system SHALL...",
      "category": "risk_management",
      "priority": "high",
      "requirement_type": "mandatory",
      "eu_ai_act_citations": [
        {
          "article": "9",
          "paragraph": 1,
          "point": null,
          "quoted_text": "..."
        }
      ],
      "hleg_citations": [
        {
          "requirement_id": "technical_robustness_and_safety",
          "subtopic_id": "resilience_to_attack",
          "relevance_score": 0.9
        }
      ],
      "verification_criteria": ["..."],
      "verification_method": "...",
      "rationale": "...",
      "context": "..."
    }
  ]
}

HLEG PRINCIPLE IDS (use exactly these):
- human_agency_and_oversight
- technical_robustness_and_safety
- privacy_and_data_governance
- transparency
- diversity_non_discrimination_and_fairness
- societal_and_environmental_wellbeing
- accountability`

// =============================================================================
// Specifier
// =============================================================================

// SpecificationOutput is the result of the specification phase.
type SpecificationOutput struct {
	Requirements      []model.Requirement `json:"requirements"`
	ArticlesProcessed []int               `json:"articles_processed"`
	GenerationNotes   []string            `json:"generation_notes,omitempty"`
}

// Specifier generates formal compliance requirements from the articles
// applicable to a risk classification. It is the third phase of the
// pipeline.
//
// # Description
//
// Each applicable article becomes one generation task. Tasks run
// concurrently, bounded by AgentConfig.ArticleConcurrency, and results
// are gathered in article order so output is deterministic regardless
// of completion order. A final pass assigns gapless REQ-NNN IDs across
// the whole batch. Prohibited systems get no requirements at all.
type Specifier struct {
	store knowledge.Store
	llm   llm.LLMClient
	cfg   AgentConfig
}

// NewSpecifier creates a specification agent backed by the given
// knowledge store and LLM client.
func NewSpecifier(store knowledge.Store, client llm.LLMClient, cfg AgentConfig) *Specifier {
	return &Specifier{store: store, llm: client, cfg: applyAgentConfigDefaults(cfg)}
}

// Generate produces requirements for every article applicable to the
// classification. A failed article task fails the whole generation;
// individual malformed requirements within a response are dropped with
// a warning instead.
func (s *Specifier) Generate(ctx context.Context, desc *model.SystemDescription,
	cls *model.RiskClassification, trace *RunTrace) (*SpecificationOutput, error) {

	ctx, span := pipelineTracer.Start(ctx, "pipeline.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("risk_level", string(cls.Level)))

	out := &SpecificationOutput{
		Requirements:      make([]model.Requirement, 0),
		ArticlesProcessed: make([]int, 0),
	}

	if cls.IsProhibited() {
		out.GenerationNotes = append(out.GenerationNotes,
			"System is prohibited under Article 5. No requirements generated.")
		return out, nil
	}

	callStart := time.Now()
	articles, err := s.store.ApplicableArticles(ctx, cls.Level, string(cls.AnnexIIICategory))
	trace.RecordCall("knowledge.get_applicable_articles", "level="+string(cls.Level), callStart, err)
	if err != nil {
		return nil, fmt.Errorf("listing applicable articles: %w", err)
	}

	if len(articles) == 0 {
		out.GenerationNotes = append(out.GenerationNotes,
			fmt.Sprintf("No specific articles apply for %s risk level.", cls.Level))
		return out, nil
	}

	results := make([]*articleRequirements, len(articles))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ArticleConcurrency)
	for i, article := range articles {
		i, article := i, article // Capture loop variables
		g.Go(func() error {
			reqs, err := s.generateForArticle(gCtx, desc, article.Number, trace)
			if err != nil {
				return err
			}
			results[i] = reqs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		out.Requirements = append(out.Requirements, r.requirements...)
		out.GenerationNotes = append(out.GenerationNotes, r.notes...)
		out.ArticlesProcessed = append(out.ArticlesProcessed, r.article)
	}
	renumberRequirements(out.Requirements)

	out.GenerationNotes = append(out.GenerationNotes,
		fmt.Sprintf("Generated %d requirements from %d articles.",
			len(out.Requirements), len(out.ArticlesProcessed)))

	slog.Info("Requirements generated",
		slog.Int("requirements", len(out.Requirements)),
		slog.Int("articles", len(out.ArticlesProcessed)))

	return out, nil
}

// articleRequirements is the per-article generation result before the
// ordered gather.
type articleRequirements struct {
	article      int
	requirements []model.Requirement
	notes        []string
}

// generateForArticle fetches one article and generates 1-3 requirements
// from it.
func (s *Specifier) generateForArticle(ctx context.Context, desc *model.SystemDescription,
	number int, trace *RunTrace) (*articleRequirements, error) {

	ctx, span := pipelineTracer.Start(ctx, "pipeline.GenerateArticle")
	defer span.End()
	span.SetAttributes(attribute.Int("article", number))

	callStart := time.Now()
	art, err := s.store.ArticleDetail(ctx, number)
	trace.RecordCall("knowledge.get_article", fmt.Sprintf("article=%d", number), callStart, err)
	if err != nil {
		return nil, fmt.Errorf("fetching article %d: %w", number, err)
	}

	prompt, err := buildArticlePrompt(desc, art)
	if err != nil {
		return nil, err
	}

	var dto requirementsDTO
	callStart = time.Now()
	err = llm.GenerateJSON(ctx, s.llm, prompt,
		s.cfg.generationParams(specificationSystemPrompt), &dto)
	trace.RecordCall("llm.generate_requirements", fmt.Sprintf("article=%d", number), callStart, err)
	if err != nil {
		return nil, fmt.Errorf("generating requirements for article %d: %w", number, err)
	}

	result := &articleRequirements{article: number}
	for _, raw := range dto.Requirements {
		var reqDTO requirementDTO
		if err := json.Unmarshal(raw, &reqDTO); err != nil {
			slog.Warn("Failed to parse requirement",
				slog.Int("article", number),
				slog.String("error", err.Error()))
			result.notes = append(result.notes,
				fmt.Sprintf("Dropped a malformed requirement generated from Article %d.", number))
			continue
		}
		req, ok := parseRequirement(&reqDTO, number)
		if !ok {
			slog.Warn("Dropping requirement without title or statement",
				slog.Int("article", number))
			result.notes = append(result.notes,
				fmt.Sprintf("Dropped a malformed requirement generated from Article %d.", number))
			continue
		}
		result.requirements = append(result.requirements, req)
	}

	return result, nil
}

// buildArticlePrompt renders the per-article generation prompt with the
// article text, its HLEG mappings, and the system context.
func buildArticlePrompt(desc *model.SystemDescription, art *model.Article) (string, error) {
	domain := string(desc.Domain)
	if domain == "" {
		domain = "general"
	}
	title := art.Title
	if title == "" {
		title = fmt.Sprintf("Article %d", art.Number)
	}
	category := art.Category
	if category == "" {
		category = "general"
	}

	mappings := art.HLEGMappings
	if mappings == nil {
		mappings = []model.HLEGMapping{}
	}
	mappingsJSON, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding HLEG mappings for article %d: %w", art.Number, err)
	}

	var text strings.Builder
	for _, p := range art.Paragraphs {
		if p.Text == "" {
			continue
		}
		fmt.Fprintf(&text, "\n%d. %s", p.Index, p.Text)
		for _, pt := range p.Points {
			if pt.Text == "" {
				continue
			}
			fmt.Fprintf(&text, "\n   (%s) %s", pt.Marker, pt.Text)
		}
	}

	var sb strings.Builder
	sb.WriteString("Generate requirements from this EU AI Act article for the following system:\n\n")
	sb.WriteString("SYSTEM CONTEXT:\n")
	fmt.Fprintf(&sb, "- Domain: %s\n", domain)
	fmt.Fprintf(&sb, "- Purpose: %s\n", desc.Purpose)
	fmt.Fprintf(&sb, "- Safety Critical: %t\n", desc.SafetyCritical)
	fmt.Fprintf(&sb, "- Biometric Processing: %t\n", desc.BiometricProcessing)
	fmt.Fprintf(&sb, "\nARTICLE %d: %s\n", art.Number, title)
	sb.WriteString(text.String())
	sb.WriteString("\n\nHLEG MAPPINGS FOR THIS ARTICLE:\n")
	sb.Write(mappingsJSON)
	fmt.Fprintf(&sb, "\n\nREQUIREMENT CATEGORY: %s\n", category)
	sb.WriteString("START ID: REQ-001\n\n")
	sb.WriteString("Generate 1-3 requirements that capture the key obligations from this article.\n")
	sb.WriteString("Each requirement must have proper citations back to specific paragraphs.")

	return sb.String(), nil
}

// renumberRequirements assigns strictly increasing gapless IDs across
// the whole batch. The IDs the model proposed are per-article and would
// collide after the gather.
func renumberRequirements(reqs []model.Requirement) {
	for i := range reqs {
		reqs[i].ID = fmt.Sprintf("REQ-%03d", i+1)
	}
}

// =============================================================================
// Response Parsing
// =============================================================================

// requirementsDTO defers per-requirement decoding so one malformed
// entry drops that entry, not the whole batch.
type requirementsDTO struct {
	Requirements []json.RawMessage `json:"requirements"`
}

type requirementDTO struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Statement       string            `json:"statement"`
	Category        string            `json:"category"`
	Priority        string            `json:"priority"`
	RequirementType string            `json:"requirement_type"`
	EUAIActCites    []euCitationDTO   `json:"eu_ai_act_citations"`
	HLEGCites       []hlegCitationDTO `json:"hleg_citations"`

	VerificationCriteria []string `json:"verification_criteria"`
	VerificationMethod   string   `json:"verification_method"`
	Rationale            string   `json:"rationale"`
	Context              string   `json:"context"`
}

type euCitationDTO struct {
	Article    flexString `json:"article"`
	Paragraph  *flexInt   `json:"paragraph"`
	Point      string     `json:"point"`
	QuotedText string     `json:"quoted_text"`
}

type hlegCitationDTO struct {
	RequirementID  string   `json:"requirement_id"`
	SubtopicID     string   `json:"subtopic_id"`
	RelevanceScore *float64 `json:"relevance_score"`
}

// parseRequirement converts one decoded requirement into the model
// form. Returns false when the requirement has no usable title or
// statement.
func parseRequirement(dto *requirementDTO, articleNumber int) (model.Requirement, bool) {
	if strings.TrimSpace(dto.Title) == "" || strings.TrimSpace(dto.Statement) == "" {
		return model.Requirement{}, false
	}

	category := model.RequirementCategory(dto.Category)
	if !category.IsValid() {
		category = model.CategoryGeneral
	}
	priority := model.RequirementPriority(dto.Priority)
	if !priority.IsValid() {
		priority = model.PriorityMedium
	}
	reqType := model.RequirementType(dto.RequirementType)
	if !reqType.IsValid() {
		reqType = model.TypeMandatory
	}

	euCitations := make([]model.Citation, 0, len(dto.EUAIActCites))
	for _, cit := range dto.EUAIActCites {
		article := string(cit.Article)
		if article == "" {
			article = strconv.Itoa(articleNumber)
		}
		refText := "Article " + article
		var paragraph *int
		if cit.Paragraph != nil {
			paragraph = intPtr(int(*cit.Paragraph))
			if *paragraph != 0 {
				refText += fmt.Sprintf("(%d)", *paragraph)
				if cit.Point != "" {
					refText += fmt.Sprintf("(%s)", cit.Point)
				}
			}
		}
		euCitations = append(euCitations, model.Citation{
			Source:        model.SourceEUAIAct,
			DocumentID:    model.DocumentEUAIAct2024,
			Article:       article,
			Paragraph:     paragraph,
			Point:         cit.Point,
			ReferenceText: refText,
			QuotedText:    cit.QuotedText,
		})
	}

	var hlegCitations []model.Citation
	for _, cit := range dto.HLEGCites {
		if cit.RequirementID == "" {
			continue
		}
		if !model.IsCanonicalHLEGPrincipleID(cit.RequirementID) {
			slog.Debug("Dropping citation with unknown HLEG principle ID",
				slog.String("requirement_id", cit.RequirementID))
			continue
		}
		name := model.HLEGPrincipleName(cit.RequirementID)
		relevance := defaultHLEGRelevance
		if cit.RelevanceScore != nil {
			relevance = clamp01(*cit.RelevanceScore)
		}
		hlegCitations = append(hlegCitations, model.Citation{
			Source:         model.SourceAIHLEG,
			DocumentID:     model.DocumentAIHLEG2019,
			RequirementID:  cit.RequirementID,
			SubtopicID:     cit.SubtopicID,
			ReferenceText:  name,
			QuotedText:     "HLEG: " + name,
			RelevanceScore: floatPtr(relevance),
		})
	}

	derived := []string{strconv.Itoa(articleNumber)}
	for _, cit := range euCitations {
		if cit.Article != "" && !slices.Contains(derived, cit.Article) {
			derived = append(derived, cit.Article)
		}
	}

	var principles []string
	var subtopics []string
	for _, cit := range hlegCitations {
		if !slices.Contains(principles, cit.RequirementID) {
			principles = append(principles, cit.RequirementID)
		}
		if cit.SubtopicID != "" && !slices.Contains(subtopics, cit.SubtopicID) {
			subtopics = append(subtopics, cit.SubtopicID)
		}
	}

	id := dto.ID
	if id == "" {
		id = "REQ-000"
	}

	return model.Requirement{
		ID:        id,
		Title:     dto.Title,
		Statement: dto.Statement,
		Category:  category,
		Priority:  priority,
		Type:      reqType,

		EUAIActCitations:   euCitations,
		HLEGCitations:      hlegCitations,
		SupportingRecitals: []model.Citation{},

		Rationale: dto.Rationale,
		Context:   dto.Context,

		VerificationCriteria: dto.VerificationCriteria,
		VerificationMethod:   dto.VerificationMethod,

		DerivedFromArticles:     derived,
		AddressesHLEGPrinciples: principles,
		AddressesHLEGSubtopics:  subtopics,
	}, true
}

// =============================================================================
// Flexible Decoding
// =============================================================================

// flexString accepts either a JSON string or a bare number, since the
// model sometimes emits article numbers unquoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %q as paragraph number: %w", v, err)
		}
		*f = flexInt(n)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexInt(int(v))
	return nil
}
