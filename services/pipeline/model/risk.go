// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the risk taxonomy of the EU AI Act: the four-tier
// risk level, Annex III high-risk categories, Article 5 prohibited
// practices, and the classification produced by the analysis phase.
package model

import (
	"fmt"
	"sort"
	"strconv"
)

// =============================================================================
// Risk Level
// =============================================================================

// RiskLevel is the four-tier risk classification of the EU AI Act.
//
// Valid Values:
//   - "unacceptable": prohibited under Article 5, the pipeline stops here
//   - "high": Annex III match, Chapter III (Articles 8-27) applies
//   - "limited": Article 50 transparency obligations apply
//   - "minimal": no specific obligations
type RiskLevel string

const (
	RiskUnacceptable RiskLevel = "unacceptable"
	RiskHigh         RiskLevel = "high"
	RiskLimited      RiskLevel = "limited"
	RiskMinimal      RiskLevel = "minimal"
)

// validRiskLevels contains all valid RiskLevel values.
var validRiskLevels = map[RiskLevel]bool{
	RiskUnacceptable: true,
	RiskHigh:         true,
	RiskLimited:      true,
	RiskMinimal:      true,
}

// IsValid checks if the RiskLevel is a valid value.
func (l RiskLevel) IsValid() bool {
	return validRiskLevels[l]
}

// =============================================================================
// Annex III Categories
// =============================================================================

// AnnexIIICategory identifies one of the eight Annex III high-risk areas.
type AnnexIIICategory string

const (
	AnnexBiometrics          AnnexIIICategory = "1"
	AnnexCriticalInfra       AnnexIIICategory = "2"
	AnnexEducationTraining   AnnexIIICategory = "3"
	AnnexEmployment          AnnexIIICategory = "4"
	AnnexEssentialServices   AnnexIIICategory = "5"
	AnnexLawEnforcement      AnnexIIICategory = "6"
	AnnexMigrationAsylum     AnnexIIICategory = "7"
	AnnexJusticeAndDemocracy AnnexIIICategory = "8"
)

// validAnnexIIICategories contains all valid AnnexIIICategory values.
var validAnnexIIICategories = map[AnnexIIICategory]bool{
	AnnexBiometrics:          true,
	AnnexCriticalInfra:       true,
	AnnexEducationTraining:   true,
	AnnexEmployment:          true,
	AnnexEssentialServices:   true,
	AnnexLawEnforcement:      true,
	AnnexMigrationAsylum:     true,
	AnnexJusticeAndDemocracy: true,
}

// IsValid checks if the AnnexIIICategory is a valid value.
func (c AnnexIIICategory) IsValid() bool {
	return validAnnexIIICategories[c]
}

// =============================================================================
// Prohibited Practices
// =============================================================================

// ProhibitedPractice identifies an Article 5(1) prohibition by its point.
type ProhibitedPractice string

const (
	ProhibitedSubliminalManipulation    ProhibitedPractice = "5_1_a"
	ProhibitedExploitationVulnerability ProhibitedPractice = "5_1_b"
	ProhibitedSocialScoring             ProhibitedPractice = "5_1_c"
	ProhibitedCrimePrediction           ProhibitedPractice = "5_1_d"
	ProhibitedFacialScraping            ProhibitedPractice = "5_1_e"
	ProhibitedEmotionInference          ProhibitedPractice = "5_1_f"
	ProhibitedBiometricCategorization   ProhibitedPractice = "5_1_g"
	ProhibitedRealTimeBiometric         ProhibitedPractice = "5_1_h"
)

// validProhibitedPractices contains all valid ProhibitedPractice values.
var validProhibitedPractices = map[ProhibitedPractice]bool{
	ProhibitedSubliminalManipulation:    true,
	ProhibitedExploitationVulnerability: true,
	ProhibitedSocialScoring:             true,
	ProhibitedCrimePrediction:           true,
	ProhibitedFacialScraping:            true,
	ProhibitedEmotionInference:          true,
	ProhibitedBiometricCategorization:   true,
	ProhibitedRealTimeBiometric:         true,
}

// IsValid checks if the ProhibitedPractice is a valid value.
func (p ProhibitedPractice) IsValid() bool {
	return validProhibitedPractices[p]
}

// =============================================================================
// Risk Classification
// =============================================================================

// RiskClassification is the analysis phase's full output: the risk level
// with its complete legal grounding.
//
// # Description
//
// LegalBasis carries the primary citation (the exact provision the level
// rests on) plus supporting citations. The prohibited-practice fields are
// populated only for RiskUnacceptable, the Annex III fields only for
// RiskHigh. ApplicableArticles drives the specification phase: Articles
// 8-27 for high risk, Article 50 for limited, empty otherwise.
type RiskClassification struct {
	Level      RiskLevel      `json:"level"`
	LegalBasis CitationBundle `json:"legal_basis"`

	// Populated for unacceptable risk only.
	ProhibitedPractice ProhibitedPractice `json:"prohibited_practice,omitempty"`
	ProhibitionDetails string             `json:"prohibition_details,omitempty"`

	// Populated for high risk only.
	AnnexIIICategory    AnnexIIICategory `json:"annex_iii_category,omitempty"`
	AnnexIIISubcategory string           `json:"annex_iii_subcategory,omitempty"`

	ApplicableArticles []string `json:"applicable_articles"`

	Article63ExceptionChecked bool   `json:"article_6_3_exception_checked"`
	Article63ExceptionApplies bool   `json:"article_6_3_exception_applies"`
	Article63Rationale        string `json:"article_6_3_rationale,omitempty"`

	HLEGImplications []Citation `json:"hleg_implications,omitempty"`

	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// IsProhibited reports whether the system is prohibited under Article 5.
func (r *RiskClassification) IsProhibited() bool {
	return r.Level == RiskUnacceptable
}

// RequiresChapterIIICompliance reports whether the Chapter III high-risk
// requirements (Articles 8-27) apply.
func (r *RiskClassification) RequiresChapterIIICompliance() bool {
	return r.Level == RiskHigh
}

// RequiresTransparencyOnly reports whether only the Article 50
// transparency obligations apply.
func (r *RiskClassification) RequiresTransparencyOnly() bool {
	return r.Level == RiskLimited
}

// ApplicableArticleRange renders the applicable articles as a compact
// range, e.g. "Articles 8-27", "Article 50", or "None".
func (r *RiskClassification) ApplicableArticleRange() string {
	if len(r.ApplicableArticles) == 0 {
		return "None"
	}
	sorted := make([]string, len(r.ApplicableArticles))
	copy(sorted, r.ApplicableArticles)
	sort.Slice(sorted, func(i, j int) bool {
		return articleSortKey(sorted[i]) < articleSortKey(sorted[j])
	})
	if len(sorted) == 1 {
		return "Article " + sorted[0]
	}
	return fmt.Sprintf("Articles %s-%s", sorted[0], sorted[len(sorted)-1])
}

// =============================================================================
// Classification (rule engine output)
// =============================================================================

// Classification is the raw result of the knowledge store's risk rules,
// before the analysis phase enriches it into a RiskClassification.
type Classification struct {
	RiskLevel         RiskLevel `json:"risk_level"`
	LegalBasisArticle string    `json:"legal_basis_article,omitempty"`
	LegalBasisText    string    `json:"legal_basis_text"`
	AnnexCategory     string    `json:"annex_category,omitempty"`
	Article6Exception bool      `json:"article_6_exception"`
	HLEGPrinciples    []string  `json:"hleg_principles"`
	Reasoning         string    `json:"reasoning"`
}

// ArticleNumbersFromStrings converts article labels to their numeric
// values, skipping labels that do not parse.
func ArticleNumbersFromStrings(articles []string) []int {
	out := make([]int, 0, len(articles))
	for _, a := range articles {
		if n, err := strconv.Atoi(a); err == nil {
			out = append(out, n)
		}
	}
	return out
}
