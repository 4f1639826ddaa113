// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the deterministic risk classification rules. The
// checks run in strict order: Article 5 prohibitions, then Annex III
// high-risk categories (with the Article 6(3) derogation), then Article 50
// transparency, then minimal by default. Keyword matches run over the
// lowercased purpose and raw description.
package knowledge

import (
	"strings"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// Keyword Indicators
// =============================================================================

// prohibitedContentIndicators flag generation of intimate imagery or
// deepfakes without consent, treated as an Article 5(1)(c) variant.
var prohibitedContentIndicators = []string{
	"nude", "naked", "intimate", "deepfake", "deep fake",
	"fake nude", "realistic nude", "undress", "sexual content",
	"without consent", "non-consensual", "fake image", "fake video",
}

// healthcareIndicators flag medical systems. "treatment" and "emergency"
// are deliberately absent: alone they match non-medical systems such as
// water treatment plants.
var healthcareIndicators = []string{
	"triage", "diagnos", "medical", "patient", "hospital",
	"clinical", "symptom", "vital sign",
}

// medicalContextTerms are the multi-word phrases that establish a medical
// setting where the single-word indicators would be ambiguous.
var medicalContextTerms = []string{
	"medical treatment", "patient treatment", "emergency room", "emergency care", "health",
}

// recommendationIndicators flag pure recommender systems, which fall
// outside Article 50 unless they also converse with users.
var recommendationIndicators = []string{
	"recommend", "suggestion", "suggests", "recommender",
	"movie recommend", "product recommend", "content recommend",
	"personalize", "personalizes", "personalization",
}

// chatbotIndicators flag direct interaction with natural persons.
var chatbotIndicators = []string{
	"chatbot", "chat bot", "conversational", "conversational ai",
	"virtual assistant", "customer service bot",
	"responds to", "answers questions",
}

// creditIndicators flag creditworthiness evaluation, Annex III 5(b).
var creditIndicators = []string{
	"credit scor", "creditworthiness", "credit risk",
	"loan approval", "loan application", "credit application",
}

// =============================================================================
// Classification Entry Point
// =============================================================================

// classifySystem runs the full rule tree over the extracted features and
// returns the raw classification.
func classifySystem(corpus *Corpus, features model.SystemFeatures) *model.Classification {
	if result := checkProhibitedPractices(corpus, features); result != nil {
		return result
	}

	if result := checkAnnexIII(corpus, features); result != nil {
		if !hasSignificantOutputInfluence(features) {
			return &model.Classification{
				RiskLevel:         model.RiskLimited,
				LegalBasisArticle: "Article 6(3)",
				LegalBasisText: "The AI system performs a purely accessory function and does not " +
					"materially influence the outcome of the decision.",
				AnnexCategory:     result.AnnexCategory,
				Article6Exception: true,
				HLEGPrinciples:    []string{"transparency"},
				Reasoning: "System matches Annex III category but Article 6(3) exception " +
					"applies - system output is not determinative.",
			}
		}
		return result
	}

	if requiresTransparency(features) {
		return &model.Classification{
			RiskLevel:         model.RiskLimited,
			LegalBasisArticle: "Article 50",
			LegalBasisText:    corpus.article50Text(),
			HLEGPrinciples:    []string{"transparency"},
			Reasoning: "System interacts with natural persons or generates synthetic content, " +
				"requiring transparency disclosures under Article 50.",
		}
	}

	return &model.Classification{
		RiskLevel:      model.RiskMinimal,
		LegalBasisText: "No specific regulatory obligations apply.",
		HLEGPrinciples: []string{},
		Reasoning: "System does not fall under prohibited practices, high-risk categories, " +
			"or transparency requirements. General AI Act provisions apply.",
	}
}

// =============================================================================
// Article 5: Prohibited Practices
// =============================================================================

// checkProhibitedPractices returns an unacceptable-risk classification when
// the system matches an Article 5 prohibition, nil otherwise.
func checkProhibitedPractices(corpus *Corpus, features model.SystemFeatures) *model.Classification {
	purpose := strings.ToLower(features.Purpose)
	rawDesc := strings.ToLower(features.RawDescription)

	if anyIndicator(purpose, rawDesc, prohibitedContentIndicators) {
		return &model.Classification{
			RiskLevel:         model.RiskUnacceptable,
			LegalBasisArticle: "Article 5(1)(c)",
			LegalBasisText: "AI systems that deploy subliminal techniques or intentionally manipulative " +
				"or deceptive techniques with the objective of materially distorting behaviour " +
				"or that generate intimate images without consent are prohibited.",
			HLEGPrinciples: []string{
				"human_agency_and_oversight",
				"privacy_and_data_governance",
				"societal_and_environmental_wellbeing",
			},
			Reasoning: "System generates intimate/deepfake content without consent, violating " +
				"fundamental rights to privacy and dignity, prohibited under Article 5.",
		}
	}

	if features.SocialScoring {
		return &model.Classification{
			RiskLevel:         model.RiskUnacceptable,
			LegalBasisArticle: "Article 5(1)(c)",
			LegalBasisText:    corpus.prohibitedText("1_c"),
			HLEGPrinciples: []string{
				"human_agency_and_oversight",
				"diversity_non_discrimination_and_fairness",
				"societal_and_environmental_wellbeing",
			},
			Reasoning: "System performs social scoring - evaluating or classifying natural " +
				"persons based on social behavior or personality characteristics, " +
				"which is prohibited under Article 5(1)(c).",
		}
	}

	if features.SubliminalTechniques {
		return &model.Classification{
			RiskLevel:         model.RiskUnacceptable,
			LegalBasisArticle: "Article 5(1)(a)",
			LegalBasisText:    corpus.prohibitedText("1_a"),
			HLEGPrinciples: []string{
				"human_agency_and_oversight",
				"transparency",
			},
			Reasoning: "System uses subliminal techniques to materially distort behavior " +
				"in ways that cause or are likely to cause harm, which is prohibited " +
				"under Article 5(1)(a).",
		}
	}

	if features.RealTimeBiometric && features.LawEnforcementUse {
		return &model.Classification{
			RiskLevel:         model.RiskUnacceptable,
			LegalBasisArticle: "Article 5(1)(h)",
			LegalBasisText:    corpus.prohibitedText("1_h"),
			HLEGPrinciples: []string{
				"human_agency_and_oversight",
				"privacy_and_data_governance",
				"diversity_non_discrimination_and_fairness",
			},
			Reasoning: "System performs real-time remote biometric identification in " +
				"publicly accessible spaces for law enforcement purposes, which " +
				"is prohibited under Article 5(1)(h) with narrow exceptions.",
		}
	}

	if features.EmotionRecognition {
		context := features.DeploymentContext
		if context == "workplace" || context == "educational_institution" {
			return &model.Classification{
				RiskLevel:         model.RiskUnacceptable,
				LegalBasisArticle: "Article 5(1)(f)",
				LegalBasisText:    corpus.prohibitedText("1_f"),
				HLEGPrinciples: []string{
					"human_agency_and_oversight",
					"privacy_and_data_governance",
				},
				Reasoning: "System performs emotion recognition in workplace or educational " +
					"settings, which is prohibited under Article 5(1)(f).",
			}
		}
	}

	return nil
}

// =============================================================================
// Annex III: High-Risk Categories
// =============================================================================

// checkAnnexIII returns a high-risk classification when the system matches
// an Annex III category, nil otherwise. The critical infrastructure check
// runs first so an explicit flag takes precedence over keyword matches
// like "water treatment".
func checkAnnexIII(corpus *Corpus, features model.SystemFeatures) *model.Classification {
	domain := features.Domain
	purpose := strings.ToLower(features.Purpose)
	rawDesc := strings.ToLower(features.RawDescription)

	if domain == "critical_infrastructure" || features.CriticalInfrastructure {
		return &model.Classification{
			RiskLevel:         model.RiskHigh,
			LegalBasisArticle: "Article 6(2) + Annex III, Section 2",
			LegalBasisText:    corpus.annexText("2"),
			AnnexCategory:     "2",
			HLEGPrinciples: []string{
				"technical_robustness_and_safety",
				"human_agency_and_oversight",
				"accountability",
			},
			Reasoning: "System is a safety component of critical infrastructure " +
				"(energy, water, digital, transport), falling under Annex III category 2.",
		}
	}

	isHealthcare := domain == "healthcare" || anyIndicator(purpose, rawDesc, healthcareIndicators)
	hasMedicalContext := anyIndicator(purpose, rawDesc, medicalContextTerms)
	isTriageOrDiagnosis := anyIndicator(purpose, rawDesc, []string{"triage", "diagnos"})

	if isHealthcare && (features.SafetyCritical || hasMedicalContext || isTriageOrDiagnosis) {
		return &model.Classification{
			RiskLevel:         model.RiskHigh,
			LegalBasisArticle: "Article 6(2) + Annex III, Section 5(a)",
			LegalBasisText:    corpus.annexText("5_a"),
			AnnexCategory:     "5",
			HLEGPrinciples: []string{
				"technical_robustness_and_safety",
				"privacy_and_data_governance",
				"human_agency_and_oversight",
				"accountability",
			},
			Reasoning: "System is intended for use in healthcare as a safety component or " +
				"for triage/treatment decisions, falling under Annex III category 5(a).",
		}
	}

	if domain == "education" {
		if containsDecisionType(features.DecisionTypes, "assessment") ||
			containsDecisionType(features.DecisionTypes, "access_denial") {
			return &model.Classification{
				RiskLevel:         model.RiskHigh,
				LegalBasisArticle: "Article 6(2) + Annex III, Section 3",
				LegalBasisText:    corpus.annexText("3"),
				AnnexCategory:     "3",
				HLEGPrinciples: []string{
					"diversity_non_discrimination_and_fairness",
					"human_agency_and_oversight",
					"transparency",
				},
				Reasoning: "System is used in education for student assessment or access " +
					"to educational opportunities, falling under Annex III category 3.",
			}
		}
	}

	if domain == "employment" {
		return &model.Classification{
			RiskLevel:         model.RiskHigh,
			LegalBasisArticle: "Article 6(2) + Annex III, Section 4",
			LegalBasisText:    corpus.annexText("4"),
			AnnexCategory:     "4",
			HLEGPrinciples: []string{
				"diversity_non_discrimination_and_fairness",
				"human_agency_and_oversight",
				"transparency",
				"accountability",
			},
			Reasoning: "System is used in employment context for recruitment, selection, " +
				"or worker management, falling under Annex III category 4.",
		}
	}

	if domain == "law_enforcement" || features.LawEnforcementUse {
		return &model.Classification{
			RiskLevel:         model.RiskHigh,
			LegalBasisArticle: "Article 6(2) + Annex III, Section 6",
			LegalBasisText:    corpus.annexText("6"),
			AnnexCategory:     "6",
			HLEGPrinciples: []string{
				"human_agency_and_oversight",
				"diversity_non_discrimination_and_fairness",
				"accountability",
				"transparency",
			},
			Reasoning: "System is intended for use by law enforcement authorities, " +
				"falling under Annex III category 6.",
		}
	}

	if features.BiometricProcessing {
		return &model.Classification{
			RiskLevel:         model.RiskHigh,
			LegalBasisArticle: "Article 6(2) + Annex III, Section 1",
			LegalBasisText:    corpus.annexText("1"),
			AnnexCategory:     "1",
			HLEGPrinciples: []string{
				"privacy_and_data_governance",
				"diversity_non_discrimination_and_fairness",
				"human_agency_and_oversight",
			},
			Reasoning: "System uses biometric identification or categorization, " +
				"falling under Annex III category 1.",
		}
	}

	// Checked last so the category assignments above keep precedence for
	// systems that match more than one area.
	if anyIndicator(purpose, rawDesc, creditIndicators) ||
		(domain == "finance" && containsDecisionType(features.DecisionTypes, "assessment")) {
		return &model.Classification{
			RiskLevel:         model.RiskHigh,
			LegalBasisArticle: "Article 6(2) + Annex III, Section 5(b)",
			LegalBasisText:    corpus.annexText("5"),
			AnnexCategory:     "5",
			HLEGPrinciples: []string{
				"diversity_non_discrimination_and_fairness",
				"transparency",
				"accountability",
			},
			Reasoning: "System evaluates creditworthiness or establishes a credit score of " +
				"natural persons, falling under Annex III category 5(b).",
		}
	}

	return nil
}

// =============================================================================
// Article 6(3) and Article 50 Helpers
// =============================================================================

// hasSignificantOutputInfluence reports whether the system output
// materially influences decisions. Conservative: anything not clearly
// advisory is treated as significant.
func hasSignificantOutputInfluence(features model.SystemFeatures) bool {
	return features.AutonomyLevel != string(model.AutonomyAdvisory)
}

// requiresTransparency reports whether Article 50 disclosure obligations
// apply.
//
// Article 50 covers systems that interact directly with natural persons,
// generate synthetic content, or perform emotion recognition or biometric
// categorisation. It does not cover pure recommenders, backend analytics,
// or decision support without a user-facing surface.
func requiresTransparency(features model.SystemFeatures) bool {
	purpose := strings.ToLower(features.Purpose)
	rawDesc := strings.ToLower(features.RawDescription)

	isRecommendation := containsDecisionType(features.DecisionTypes, "recommendation") ||
		anyIndicator(purpose, rawDesc, recommendationIndicators)

	// A pure recommender is minimal risk; one that also chats is limited.
	if isRecommendation && !anyIndicator(purpose, rawDesc, chatbotIndicators) {
		return false
	}

	if containsDecisionType(features.DecisionTypes, "content_generation") {
		return true
	}

	if anyIndicator(purpose, rawDesc, chatbotIndicators) {
		return true
	}

	if features.EmotionRecognition {
		return true
	}

	return false
}

// =============================================================================
// Matching Helpers
// =============================================================================

// anyIndicator reports whether any indicator occurs in either text. Both
// texts must already be lowercased.
func anyIndicator(purpose, rawDesc string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(purpose, ind) || strings.Contains(rawDesc, ind) {
			return true
		}
	}
	return false
}

// containsDecisionType reports whether any declared decision type exactly
// matches the wanted value.
func containsDecisionType(decisionTypes []string, want string) bool {
	for _, dt := range decisionTypes {
		if dt == want {
			return true
		}
	}
	return false
}
