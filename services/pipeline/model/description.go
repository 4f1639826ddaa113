// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the structured system description extracted during
// elicitation, together with the enumerations used to characterize an AI
// system for risk classification.
package model

// =============================================================================
// System Domain
// =============================================================================

// SystemDomain is the primary application domain of an AI system.
type SystemDomain string

const (
	DomainHealthcare             SystemDomain = "healthcare"
	DomainEducation              SystemDomain = "education"
	DomainEmployment             SystemDomain = "employment"
	DomainFinance                SystemDomain = "finance"
	DomainLawEnforcement         SystemDomain = "law_enforcement"
	DomainJustice                SystemDomain = "justice"
	DomainMigration              SystemDomain = "migration"
	DomainCriticalInfrastructure SystemDomain = "critical_infrastructure"
	DomainBiometrics             SystemDomain = "biometrics"
	DomainSocialServices         SystemDomain = "social_services"
	DomainTransport              SystemDomain = "transport"
	DomainEnergy                 SystemDomain = "energy"
	DomainConsumer               SystemDomain = "consumer"
	DomainEntertainment          SystemDomain = "entertainment"
	DomainGeneral                SystemDomain = "general"
	DomainOther                  SystemDomain = "other"
)

// validSystemDomains contains all valid SystemDomain values.
var validSystemDomains = map[SystemDomain]bool{
	DomainHealthcare:             true,
	DomainEducation:              true,
	DomainEmployment:             true,
	DomainFinance:                true,
	DomainLawEnforcement:         true,
	DomainJustice:                true,
	DomainMigration:              true,
	DomainCriticalInfrastructure: true,
	DomainBiometrics:             true,
	DomainSocialServices:         true,
	DomainTransport:              true,
	DomainEnergy:                 true,
	DomainConsumer:               true,
	DomainEntertainment:          true,
	DomainGeneral:                true,
	DomainOther:                  true,
}

// IsValid checks if the SystemDomain is a valid value.
func (d SystemDomain) IsValid() bool {
	return validSystemDomains[d]
}

// highRiskDomains are the domains that alone indicate the system may fall
// under an Annex III high-risk category.
var highRiskDomains = map[SystemDomain]bool{
	DomainHealthcare:             true,
	DomainEducation:              true,
	DomainEmployment:             true,
	DomainLawEnforcement:         true,
	DomainJustice:                true,
	DomainMigration:              true,
	DomainCriticalInfrastructure: true,
	DomainBiometrics:             true,
}

// =============================================================================
// Autonomy Level
// =============================================================================

// AutonomyLevel describes how much decision authority the system has.
//
// Valid Values:
//   - "full": decides without human intervention
//   - "partial": recommends, humans typically follow
//   - "advisory": advises, humans independently evaluate
//   - "assistive": supplies information supporting human decisions
type AutonomyLevel string

const (
	AutonomyFull      AutonomyLevel = "full"
	AutonomyPartial   AutonomyLevel = "partial"
	AutonomyAdvisory  AutonomyLevel = "advisory"
	AutonomyAssistive AutonomyLevel = "assistive"
)

// validAutonomyLevels contains all valid AutonomyLevel values.
var validAutonomyLevels = map[AutonomyLevel]bool{
	AutonomyFull:      true,
	AutonomyPartial:   true,
	AutonomyAdvisory:  true,
	AutonomyAssistive: true,
}

// IsValid checks if the AutonomyLevel is a valid value.
func (a AutonomyLevel) IsValid() bool {
	return validAutonomyLevels[a]
}

// =============================================================================
// Deployment Context
// =============================================================================

// DeploymentContext describes the setting the system operates in.
type DeploymentContext string

const (
	DeploymentPublicSector           DeploymentContext = "public_sector"
	DeploymentPrivateSector          DeploymentContext = "private_sector"
	DeploymentHealthcareFacility     DeploymentContext = "healthcare_facility"
	DeploymentEducationalInstitution DeploymentContext = "educational_institution"
	DeploymentWorkplace              DeploymentContext = "workplace"
	DeploymentPublicSpace            DeploymentContext = "public_space"
	DeploymentOnlinePlatform         DeploymentContext = "online_platform"
	DeploymentCriticalInfra          DeploymentContext = "critical_infrastructure"
	DeploymentLawEnforcement         DeploymentContext = "law_enforcement"
	DeploymentBorderControl          DeploymentContext = "border_control"
	DeploymentConsumerProduct        DeploymentContext = "consumer_product"
	DeploymentResearch               DeploymentContext = "research"
	DeploymentOther                  DeploymentContext = "other"
)

// validDeploymentContexts contains all valid DeploymentContext values.
var validDeploymentContexts = map[DeploymentContext]bool{
	DeploymentPublicSector:           true,
	DeploymentPrivateSector:          true,
	DeploymentHealthcareFacility:     true,
	DeploymentEducationalInstitution: true,
	DeploymentWorkplace:              true,
	DeploymentPublicSpace:            true,
	DeploymentOnlinePlatform:         true,
	DeploymentCriticalInfra:          true,
	DeploymentLawEnforcement:         true,
	DeploymentBorderControl:          true,
	DeploymentConsumerProduct:        true,
	DeploymentResearch:               true,
	DeploymentOther:                  true,
}

// IsValid checks if the DeploymentContext is a valid value.
func (c DeploymentContext) IsValid() bool {
	return validDeploymentContexts[c]
}

// =============================================================================
// Data Category
// =============================================================================

// DataCategory classifies the kinds of data the system processes.
type DataCategory string

const (
	DataBiometric            DataCategory = "biometric"
	DataHealth               DataCategory = "health"
	DataFinancial            DataCategory = "financial"
	DataBehavioral           DataCategory = "behavioral"
	DataLocation             DataCategory = "location"
	DataCommunication        DataCategory = "communication"
	DataSocial               DataCategory = "social"
	DataEmployment           DataCategory = "employment"
	DataEducational          DataCategory = "educational"
	DataCriminal             DataCategory = "criminal"
	DataGenetic              DataCategory = "genetic"
	DataPolitical            DataCategory = "political"
	DataReligious            DataCategory = "religious"
	DataSexualOrientation    DataCategory = "sexual_orientation"
	DataPersonalIdentifiable DataCategory = "personal_identifiable"
	DataAnonymized           DataCategory = "anonymized"
	DataSynthetic            DataCategory = "synthetic"
	DataPublic               DataCategory = "public"
	DataOther                DataCategory = "other"
)

// validDataCategories contains all valid DataCategory values.
var validDataCategories = map[DataCategory]bool{
	DataBiometric:            true,
	DataHealth:               true,
	DataFinancial:            true,
	DataBehavioral:           true,
	DataLocation:             true,
	DataCommunication:        true,
	DataSocial:               true,
	DataEmployment:           true,
	DataEducational:          true,
	DataCriminal:             true,
	DataGenetic:              true,
	DataPolitical:            true,
	DataReligious:            true,
	DataSexualOrientation:    true,
	DataPersonalIdentifiable: true,
	DataAnonymized:           true,
	DataSynthetic:            true,
	DataPublic:               true,
	DataOther:                true,
}

// IsValid checks if the DataCategory is a valid value.
func (d DataCategory) IsValid() bool {
	return validDataCategories[d]
}

// =============================================================================
// Decision Type
// =============================================================================

// DecisionType classifies the kinds of decisions or outputs the system
// produces about people.
type DecisionType string

const (
	DecisionAccessDenial       DecisionType = "access_denial"
	DecisionResourceAllocation DecisionType = "resource_allocation"
	DecisionRanking            DecisionType = "ranking"
	DecisionAssessment         DecisionType = "assessment"
	DecisionPrediction         DecisionType = "prediction"
	DecisionRecommendation     DecisionType = "recommendation"
	DecisionClassification     DecisionType = "classification"
	DecisionIdentification     DecisionType = "identification"
	DecisionContentGeneration  DecisionType = "content_generation"
	DecisionContentModeration  DecisionType = "content_moderation"
	DecisionAutomation         DecisionType = "automation"
	DecisionMonitoring         DecisionType = "monitoring"
	DecisionOther              DecisionType = "other"
)

// validDecisionTypes contains all valid DecisionType values.
var validDecisionTypes = map[DecisionType]bool{
	DecisionAccessDenial:       true,
	DecisionResourceAllocation: true,
	DecisionRanking:            true,
	DecisionAssessment:         true,
	DecisionPrediction:         true,
	DecisionRecommendation:     true,
	DecisionClassification:     true,
	DecisionIdentification:     true,
	DecisionContentGeneration:  true,
	DecisionContentModeration:  true,
	DecisionAutomation:         true,
	DecisionMonitoring:         true,
	DecisionOther:              true,
}

// IsValid checks if the DecisionType is a valid value.
func (d DecisionType) IsValid() bool {
	return validDecisionTypes[d]
}

// =============================================================================
// System Description
// =============================================================================

// SystemDescription is the structured characterization of an AI system
// extracted from the user's free-text description.
//
// # Description
//
// The elicitation phase populates this from natural language; every later
// phase reads it. Risk flags follow a conservative convention: extraction
// sets a flag when the description indicates it or leaves it uncertain, and
// the analysis phase makes the final call. ExtractionConfidence reflects how
// certain the extraction was, with ambiguities and assumptions recorded
// alongside.
//
// # Assumptions
//
//   - RawDescription is always preserved verbatim; keyword-based rules in
//     the knowledge store depend on it.
type SystemDescription struct {
	RawDescription string       `json:"raw_description"`
	Name           string       `json:"name,omitempty"`
	Domain         SystemDomain `json:"domain"`

	SecondaryDomains []SystemDomain `json:"secondary_domains,omitempty"`
	Purpose          string         `json:"purpose,omitempty"`
	IntendedUsers    []string       `json:"intended_users,omitempty"`
	AffectedPersons  []string       `json:"affected_persons,omitempty"`

	DataTypes           []DataCategory    `json:"data_types,omitempty"`
	DataTypesDetail     []string          `json:"data_types_detail,omitempty"`
	DecisionTypes       []DecisionType    `json:"decision_types,omitempty"`
	DecisionTypesDetail []string          `json:"decision_types_detail,omitempty"`
	AutonomyLevel       AutonomyLevel     `json:"autonomy_level"`
	DeploymentContext   DeploymentContext `json:"deployment_context"`
	DeploymentScale     string            `json:"deployment_scale,omitempty"`

	// Risk flags. True means indicated or uncertain.
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

	ExtractionConfidence float64  `json:"extraction_confidence"`
	Ambiguities          []string `json:"ambiguities,omitempty"`
	Assumptions          []string `json:"assumptions,omitempty"`
}

// EnsureDefaults populates the enum fields the extraction may have left
// empty. Confidence defaults are the parser's concern since 0.0 is a
// legitimate score.
func (d *SystemDescription) EnsureDefaults() {
	if d.Domain == "" {
		d.Domain = DomainGeneral
	}
	if d.AutonomyLevel == "" {
		d.AutonomyLevel = AutonomyAdvisory
	}
	if d.DeploymentContext == "" {
		d.DeploymentContext = DeploymentOther
	}
}

// HasProhibitedIndicators reports whether the description carries flags
// that map directly onto an Article 5 prohibited practice.
func (d *SystemDescription) HasProhibitedIndicators() bool {
	return d.SocialScoring ||
		d.SubliminalTechniques ||
		(d.RealTimeBiometric && d.LawEnforcementUse)
}

// HasHighRiskIndicators reports whether the description carries flags or a
// domain that suggest an Annex III high-risk category.
func (d *SystemDescription) HasHighRiskIndicators() bool {
	return d.SafetyCritical ||
		d.BiometricProcessing ||
		d.LawEnforcementUse ||
		d.CriticalInfrastructure ||
		d.AffectsFundamentalRights ||
		highRiskDomains[d.Domain]
}

// =============================================================================
// System Features
// =============================================================================

// SystemFeatures is the flattened view of a SystemDescription consumed by
// the risk classification rules. Purpose falls back to "Not specified" and
// RawDescription is carried for keyword detection.
type SystemFeatures struct {
	Domain            string   `json:"domain"`
	SecondaryDomains  []string `json:"secondary_domains"`
	Purpose           string   `json:"purpose"`
	RawDescription    string   `json:"raw_description"`
	IntendedUsers     []string `json:"intended_users"`
	AffectedPersons   []string `json:"affected_persons"`
	DataTypes         []string `json:"data_types"`
	DecisionTypes     []string `json:"decision_types"`
	AutonomyLevel     string   `json:"autonomy_level"`
	DeploymentContext string   `json:"deployment_context"`

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
}

// Features flattens the description into the form the classification rules
// expect.
func (d *SystemDescription) Features() SystemFeatures {
	purpose := d.Purpose
	if purpose == "" {
		purpose = "Not specified"
	}
	return SystemFeatures{
		Domain:            string(d.Domain),
		SecondaryDomains:  domainStrings(d.SecondaryDomains),
		Purpose:           purpose,
		RawDescription:    d.RawDescription,
		IntendedUsers:     d.IntendedUsers,
		AffectedPersons:   d.AffectedPersons,
		DataTypes:         dataCategoryStrings(d.DataTypes),
		DecisionTypes:     decisionTypeStrings(d.DecisionTypes),
		AutonomyLevel:     string(d.AutonomyLevel),
		DeploymentContext: string(d.DeploymentContext),

		AffectsFundamentalRights: d.AffectsFundamentalRights,
		SafetyCritical:           d.SafetyCritical,
		BiometricProcessing:      d.BiometricProcessing,
		RealTimeBiometric:        d.RealTimeBiometric,
		LawEnforcementUse:        d.LawEnforcementUse,
		CriticalInfrastructure:   d.CriticalInfrastructure,
		VulnerableGroups:         d.VulnerableGroups,
		EmotionRecognition:       d.EmotionRecognition,
		SocialScoring:            d.SocialScoring,
		SubliminalTechniques:     d.SubliminalTechniques,
	}
}

func domainStrings(domains []SystemDomain) []string {
	out := make([]string, len(domains))
	for i, d := range domains {
		out[i] = string(d)
	}
	return out
}

func dataCategoryStrings(categories []DataCategory) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func decisionTypeStrings(types []DecisionType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
