// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the generated compliance requirement and its
// category, priority, and modality enumerations.
package model

// =============================================================================
// Requirement Category
// =============================================================================

// RequirementCategory groups requirements by the obligation area they
// cover, roughly following the Chapter III article structure.
type RequirementCategory string

const (
	CategoryRiskManagement      RequirementCategory = "risk_management"
	CategoryDataGovernance      RequirementCategory = "data_governance"
	CategoryDocumentation       RequirementCategory = "documentation"
	CategoryRecordKeeping       RequirementCategory = "record_keeping"
	CategoryTransparency        RequirementCategory = "transparency"
	CategoryHumanOversight      RequirementCategory = "human_oversight"
	CategoryAccuracyRobustness  RequirementCategory = "accuracy_robustness"
	CategoryProviderObligations RequirementCategory = "provider_obligations"
	CategoryDeployerObligations RequirementCategory = "deployer_obligations"
	CategoryTransparencyLimited RequirementCategory = "transparency_limited"
	CategoryGeneral             RequirementCategory = "general"
)

// validRequirementCategories contains all valid RequirementCategory values.
var validRequirementCategories = map[RequirementCategory]bool{
	CategoryRiskManagement:      true,
	CategoryDataGovernance:      true,
	CategoryDocumentation:       true,
	CategoryRecordKeeping:       true,
	CategoryTransparency:        true,
	CategoryHumanOversight:      true,
	CategoryAccuracyRobustness:  true,
	CategoryProviderObligations: true,
	CategoryDeployerObligations: true,
	CategoryTransparencyLimited: true,
	CategoryGeneral:             true,
}

// IsValid checks if the RequirementCategory is a valid value.
func (c RequirementCategory) IsValid() bool {
	return validRequirementCategories[c]
}

// =============================================================================
// Requirement Priority
// =============================================================================

// RequirementPriority ranks how important a requirement is for compliance.
//
// Valid Values:
//   - "critical": safety-related or fundamental rights
//   - "high": core compliance requirements
//   - "medium": supporting requirements
//   - "low": nice-to-have
type RequirementPriority string

const (
	PriorityCritical RequirementPriority = "critical"
	PriorityHigh     RequirementPriority = "high"
	PriorityMedium   RequirementPriority = "medium"
	PriorityLow      RequirementPriority = "low"
)

// validRequirementPriorities contains all valid RequirementPriority values.
var validRequirementPriorities = map[RequirementPriority]bool{
	PriorityCritical: true,
	PriorityHigh:     true,
	PriorityMedium:   true,
	PriorityLow:      true,
}

// IsValid checks if the RequirementPriority is a valid value.
func (p RequirementPriority) IsValid() bool {
	return validRequirementPriorities[p]
}

// =============================================================================
// Requirement Type
// =============================================================================

// RequirementType is the modality of the requirement statement.
//
// Valid Values:
//   - "mandatory": SHALL statements
//   - "recommended": SHOULD statements
//   - "optional": MAY statements
type RequirementType string

const (
	TypeMandatory   RequirementType = "mandatory"
	TypeRecommended RequirementType = "recommended"
	TypeOptional    RequirementType = "optional"
)

// validRequirementTypes contains all valid RequirementType values.
var validRequirementTypes = map[RequirementType]bool{
	TypeMandatory:   true,
	TypeRecommended: true,
	TypeOptional:    true,
}

// IsValid checks if the RequirementType is a valid value.
func (t RequirementType) IsValid() bool {
	return validRequirementTypes[t]
}

// =============================================================================
// Requirement
// =============================================================================

// Requirement is one formal compliance requirement generated by the
// specification phase.
//
// # Description
//
// Each requirement is anchored to the legal corpus twice over: the
// citation lists carry the exact provisions it rests on, and the derived
// and addressed lists summarize them for coverage analysis. IDs follow the
// REQ-001 convention and are renumbered sequentially after generation so
// the set reads as one document regardless of how articles were fanned
// out.
type Requirement struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Statement string `json:"statement"`

	Category RequirementCategory `json:"category"`
	Priority RequirementPriority `json:"priority"`
	Type     RequirementType     `json:"requirement_type"`

	EUAIActCitations   []Citation `json:"eu_ai_act_citations"`
	HLEGCitations      []Citation `json:"hleg_citations,omitempty"`
	SupportingRecitals []Citation `json:"supporting_recitals,omitempty"`

	Rationale string `json:"rationale,omitempty"`
	Context   string `json:"context,omitempty"`

	VerificationCriteria []string `json:"verification_criteria,omitempty"`
	VerificationMethod   string   `json:"verification_method,omitempty"`

	DerivedFromArticles     []string `json:"derived_from_articles"`
	AddressesHLEGPrinciples []string `json:"addresses_hleg_principles,omitempty"`
	AddressesHLEGSubtopics  []string `json:"addresses_hleg_subtopics,omitempty"`
}

// AllCitations returns the EU AI Act citations, then the HLEG citations,
// then the supporting recital citations.
func (r *Requirement) AllCitations() []Citation {
	out := make([]Citation, 0,
		len(r.EUAIActCitations)+len(r.HLEGCitations)+len(r.SupportingRecitals))
	out = append(out, r.EUAIActCitations...)
	out = append(out, r.HLEGCitations...)
	out = append(out, r.SupportingRecitals...)
	return out
}
