// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the elicitation phase: extraction of a structured
// system description from free-text input.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/tere4ai/services/llm"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// System Prompt
// =============================================================================

const elicitationSystemPrompt = `You are the Elicitation Agent for TERE4AI, a Requirements Engineering system for AI Act compliance.

Your task is to extract a structured system description from the user's natural language input.
You must identify all risk-relevant characteristics for EU AI Act classification.

EXTRACTION PRINCIPLES:

1. CONSERVATIVE FLAGGING
   - If you're uncertain whether a risk flag applies, FLAG IT as true
   - False positives are acceptable; false negatives are not
   - The Analysis Agent will make the final determination

2. GROUNDED EXTRACTION
   - Only extract what is stated or clearly implied
   - Do not invent features not mentioned
   - Document assumptions in the 'assumptions' field

3. COMPLETENESS
   - Extract ALL risk-relevant characteristics
   - Consider both explicit statements and implications
   - Think about who uses the system and who is affected

4. AMBIGUITY HANDLING
   - Document any ambiguities in the 'ambiguities' field
   - Make reasonable assumptions and document them
   - Assign appropriate confidence scores

DOMAIN CLASSIFICATION:
Use these domains: healthcare, education, employment, finance, law_enforcement, justice,
migration, critical_infrastructure, biometrics, social_services, transport, energy,
consumer, entertainment, general, other

DATA CATEGORIES (select all that apply):
biometric, health, financial, behavioral, location, communication, social, employment,
educational, criminal, genetic, political, religious, sexual_orientation,
personal_identifiable, anonymized, synthetic, public, other

DECISION TYPES (select all that apply):
access_denial, resource_allocation, ranking, assessment, prediction, recommendation,
classification, identification, content_generation, content_moderation, automation,
monitoring, other

DEPLOYMENT CONTEXTS:
public_sector, private_sector, healthcare_facility, educational_institution, workplace,
public_space, online_platform, critical_infrastructure, law_enforcement, border_control,
consumer_product, research, other

AUTONOMY LEVELS:
- full: System makes decisions without human intervention
- partial: System makes recommendations that humans typically follow
- advisory: System provides advice that humans independently evaluate
- assistive: System supports human decision-making with information

RISK FLAGS (set true if indicated or uncertain):
- affects_fundamental_rights: Impacts rights like privacy, non-discrimination, dignity
- safety_critical: Could cause physical harm or safety risks
- biometric_processing: Processes biometric data (face, fingerprint, voice, etc.)
- real_time_biometric: Real-time biometric identification (not verification)
- law_enforcement_use: Used by or for law enforcement purposes
- critical_infrastructure: Part of critical infrastructure (energy, water, transport)
- vulnerable_groups: Affects children, disabled, elderly, or other vulnerable groups
- emotion_recognition: Infers emotional states from behavior/physiological signals
- social_scoring: Evaluates/classifies people based on social behavior
- subliminal_techniques: Uses techniques below conscious awareness

OUTPUT FORMAT:
Return a JSON object matching the SystemDescription schema exactly.
Include confidence score (0.0-1.0) reflecting extraction certainty.
List any ambiguities and assumptions made.`

// =============================================================================
// Elicitor
// =============================================================================

// Elicitor extracts a structured SystemDescription from a free-text
// system description. It is the first phase of the pipeline.
//
// Extraction is conservative: uncertain risk flags come back true, and
// the analysis phase makes the final determination. Values outside the
// known vocabularies are coerced to safe defaults rather than rejected.
type Elicitor struct {
	llm llm.LLMClient
	cfg AgentConfig
}

// NewElicitor creates an elicitation agent backed by the given LLM
// client.
func NewElicitor(client llm.LLMClient, cfg AgentConfig) *Elicitor {
	return &Elicitor{llm: client, cfg: applyAgentConfigDefaults(cfg)}
}

// Elicit extracts a SystemDescription from raw free-text input.
// additionalContext is optional clarifying text appended to the prompt.
// The raw description is always preserved verbatim on the result.
func (e *Elicitor) Elicit(ctx context.Context, raw, additionalContext string,
	trace *RunTrace) (*model.SystemDescription, error) {

	ctx, span := pipelineTracer.Start(ctx, "pipeline.Elicit")
	defer span.End()
	span.SetAttributes(attribute.Int("description_length", len(raw)))

	var sb strings.Builder
	sb.WriteString("Extract a structured system description from the following:\n\n")
	sb.WriteString("SYSTEM DESCRIPTION:\n")
	sb.WriteString(raw)
	if additionalContext != "" {
		sb.WriteString("\n\nADDITIONAL CONTEXT:\n")
		sb.WriteString(additionalContext)
	}

	var dto systemDescriptionDTO
	callStart := time.Now()
	err := llm.GenerateJSON(ctx, e.llm, sb.String(),
		e.cfg.generationParams(elicitationSystemPrompt), &dto)
	trace.RecordCall("llm.extract_description", truncate(raw, maxTraceArgLen), callStart, err)
	if err != nil {
		return nil, fmt.Errorf("extracting system description: %w", err)
	}

	desc := dto.toSystemDescription(raw)

	slog.Info("System description extracted",
		slog.String("domain", string(desc.Domain)),
		slog.Float64("confidence", desc.ExtractionConfidence))

	return desc, nil
}

// =============================================================================
// Response Parsing
// =============================================================================

// systemDescriptionDTO is the raw shape of the extraction response.
// ExtractionConfidence is a pointer so a missing score can be told apart
// from a legitimate 0.0.
type systemDescriptionDTO struct {
	Name                string   `json:"name"`
	Domain              string   `json:"domain"`
	SecondaryDomains    []string `json:"secondary_domains"`
	Purpose             string   `json:"purpose"`
	IntendedUsers       []string `json:"intended_users"`
	AffectedPersons     []string `json:"affected_persons"`
	DataTypes           []string `json:"data_types"`
	DataTypesDetail     []string `json:"data_types_detail"`
	DecisionTypes       []string `json:"decision_types"`
	DecisionTypesDetail []string `json:"decision_types_detail"`
	AutonomyLevel       string   `json:"autonomy_level"`
	DeploymentContext   string   `json:"deployment_context"`
	DeploymentScale     string   `json:"deployment_scale"`

	AffectsFundamentalRights bool `json:"affects_fundamental_rights"`
	SafetyCritical           bool `json:"safety_critical"`
	BiometricProcessing      bool `json:"biometric_processing"`
	RealTimeBiometric        bool `json:"real_time_biometric"`
	LawEnforcementUse        bool `json:"law_enforcement_use"`
	CriticalInfrastructure   bool `json:"critical_infrastructure"`
	VulnerableGroups         bool `json:"vulnerable_groups"`
	EmotionRecognition       bool `json:"emotion_recognition"`
	SocialScoring            bool `json:"social_scoring"`
	SubliminalTechniques     bool `json:"subliminal_techniques"`

	ExtractionConfidence *float64 `json:"extraction_confidence"`
	Ambiguities          []string `json:"ambiguities"`
	Assumptions          []string `json:"assumptions"`
}

// toSystemDescription coerces the raw response into a valid
// SystemDescription. The raw input always wins over whatever the model
// echoed back, and an empty purpose falls back to a truncated copy of
// the raw description.
func (dto *systemDescriptionDTO) toSystemDescription(raw string) *model.SystemDescription {
	purpose := strings.TrimSpace(dto.Purpose)
	if purpose == "" {
		purpose = truncate(raw, 200)
	}

	confidence := 1.0
	if dto.ExtractionConfidence == nil {
		slog.Warn("Extraction confidence missing, defaulting to 1.0")
	} else {
		confidence = clamp01(*dto.ExtractionConfidence)
	}

	return &model.SystemDescription{
		RawDescription: raw,
		Name:           strings.TrimSpace(dto.Name),
		Domain:         coerceDomain(dto.Domain),

		SecondaryDomains: filterDomains(dto.SecondaryDomains),
		Purpose:          purpose,
		IntendedUsers:    dto.IntendedUsers,
		AffectedPersons:  dto.AffectedPersons,

		DataTypes:           filterDataCategories(dto.DataTypes),
		DataTypesDetail:     dto.DataTypesDetail,
		DecisionTypes:       filterDecisionTypes(dto.DecisionTypes),
		DecisionTypesDetail: dto.DecisionTypesDetail,
		AutonomyLevel:       coerceAutonomy(dto.AutonomyLevel),
		DeploymentContext:   coerceDeployment(dto.DeploymentContext),
		DeploymentScale:     strings.TrimSpace(dto.DeploymentScale),

		AffectsFundamentalRights: dto.AffectsFundamentalRights,
		SafetyCritical:           dto.SafetyCritical,
		BiometricProcessing:      dto.BiometricProcessing,
		RealTimeBiometric:        dto.RealTimeBiometric,
		LawEnforcementUse:        dto.LawEnforcementUse,
		CriticalInfrastructure:   dto.CriticalInfrastructure,
		VulnerableGroups:         dto.VulnerableGroups,
		EmotionRecognition:       dto.EmotionRecognition,
		SocialScoring:            dto.SocialScoring,
		SubliminalTechniques:     dto.SubliminalTechniques,

		ExtractionConfidence: confidence,
		Ambiguities:          dto.Ambiguities,
		Assumptions:          dto.Assumptions,
	}
}

// =============================================================================
// Enum Coercion
// =============================================================================

func coerceDomain(s string) model.SystemDomain {
	d := model.SystemDomain(strings.TrimSpace(s))
	if !d.IsValid() {
		return model.DomainGeneral
	}
	return d
}

func coerceAutonomy(s string) model.AutonomyLevel {
	a := model.AutonomyLevel(strings.TrimSpace(s))
	if !a.IsValid() {
		return model.AutonomyPartial
	}
	return a
}

func coerceDeployment(s string) model.DeploymentContext {
	c := model.DeploymentContext(strings.TrimSpace(s))
	if !c.IsValid() {
		return model.DeploymentPrivateSector
	}
	return c
}

func filterDomains(values []string) []model.SystemDomain {
	var out []model.SystemDomain
	for _, v := range values {
		d := model.SystemDomain(strings.TrimSpace(v))
		if d.IsValid() {
			out = append(out, d)
		}
	}
	return out
}

func filterDataCategories(values []string) []model.DataCategory {
	var out []model.DataCategory
	for _, v := range values {
		c := model.DataCategory(strings.TrimSpace(v))
		if c.IsValid() {
			out = append(out, c)
		}
	}
	return out
}

func filterDecisionTypes(values []string) []model.DecisionType {
	var out []model.DecisionType
	for _, v := range values {
		t := model.DecisionType(strings.TrimSpace(v))
		if t.IsValid() {
			out = append(out, t)
		}
	}
	return out
}
