// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export renders compliance reports for download. The JSON form
// is the report struct verbatim; the Markdown form is a human-readable
// document suitable for dropping into a compliance folder.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// categoryOrder fixes the section order for the requirements chapter.
// It follows the order of the Chapter III articles the categories map
// to, with the cross-cutting categories at the end.
var categoryOrder = []struct {
	Category model.RequirementCategory
	Title    string
}{
	{model.CategoryRiskManagement, "Risk Management"},
	{model.CategoryDataGovernance, "Data Governance"},
	{model.CategoryDocumentation, "Technical Documentation"},
	{model.CategoryRecordKeeping, "Record-Keeping"},
	{model.CategoryTransparency, "Transparency"},
	{model.CategoryHumanOversight, "Human Oversight"},
	{model.CategoryAccuracyRobustness, "Accuracy and Robustness"},
	{model.CategoryProviderObligations, "Provider Obligations"},
	{model.CategoryDeployerObligations, "Deployer Obligations"},
	{model.CategoryTransparencyLimited, "Transparency Obligations (Article 50)"},
	{model.CategoryGeneral, "General"},
}

// riskLevelTitles maps risk levels to their display form.
var riskLevelTitles = map[model.RiskLevel]string{
	model.RiskUnacceptable: "Unacceptable (Prohibited)",
	model.RiskHigh:         "High",
	model.RiskLimited:      "Limited",
	model.RiskMinimal:      "Minimal",
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *model.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteMarkdown writes the report as a Markdown document.
//
// # Description
//
// Sections: header with report metadata, system profile, risk
// classification, requirements grouped by category, validation summary,
// recommendations, and the processing log. Sections with nothing to say
// are omitted. A prohibited system gets its prohibition details in the
// classification section and no requirements chapter.
//
// Coverage ratios are stored in [0, 1] everywhere else; this writer is
// the one place they become percentages.
func WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	writeHeader(&b, report)
	writeSystemProfile(&b, report.SystemDescription)
	writeClassification(&b, report.RiskClassification)
	writeRequirements(&b, report)
	writeValidation(&b, report.Validation)
	writeProcessingLog(&b, report)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeHeader(b *strings.Builder, report *model.Report) {
	b.WriteString("# AI System Compliance Report\n\n")
	fmt.Fprintf(b, "- **Report ID:** %s\n", report.ReportID)
	fmt.Fprintf(b, "- **Generated:** %s\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "- **Format version:** %s\n\n", report.Version)
}

func writeSystemProfile(b *strings.Builder, desc *model.SystemDescription) {
	if desc == nil {
		return
	}

	b.WriteString("## System Profile\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	if desc.Name != "" {
		fmt.Fprintf(b, "| Name | %s |\n", desc.Name)
	}
	fmt.Fprintf(b, "| Domain | %s |\n", desc.Domain)
	if desc.Purpose != "" {
		fmt.Fprintf(b, "| Purpose | %s |\n", desc.Purpose)
	}
	fmt.Fprintf(b, "| Autonomy | %s |\n", desc.AutonomyLevel)
	fmt.Fprintf(b, "| Deployment | %s |\n", desc.DeploymentContext)
	if flags := riskFlagSummary(desc); len(flags) > 0 {
		fmt.Fprintf(b, "| Risk indicators | %s |\n", strings.Join(flags, ", "))
	}
	b.WriteString("\n")

	if len(desc.Assumptions) > 0 {
		b.WriteString("Assumptions made during analysis:\n\n")
		for _, a := range desc.Assumptions {
			fmt.Fprintf(b, "- %s\n", a)
		}
		b.WriteString("\n")
	}
}

func writeClassification(b *strings.Builder, rc *model.RiskClassification) {
	if rc == nil {
		return
	}

	b.WriteString("## Risk Classification\n\n")
	title := riskLevelTitles[rc.Level]
	if title == "" {
		title = string(rc.Level)
	}
	fmt.Fprintf(b, "**Risk level: %s**\n\n", title)

	fmt.Fprintf(b, "- **Legal basis:** %s\n", rc.LegalBasis.Primary.FormatReference())
	for i := range rc.LegalBasis.Supporting {
		fmt.Fprintf(b, "- **Supporting:** %s\n", rc.LegalBasis.Supporting[i].FormatReference())
	}
	fmt.Fprintf(b, "- **Applicable articles:** %s\n", rc.ApplicableArticleRange())
	if rc.IsProhibited() {
		fmt.Fprintf(b, "- **Prohibited practice:** %s\n", rc.ProhibitedPractice)
	}
	if rc.AnnexIIICategory != "" {
		fmt.Fprintf(b, "- **Annex III category:** %s\n", rc.AnnexIIICategory)
	}
	if rc.Article63ExceptionChecked {
		fmt.Fprintf(b, "- **Article 6(3) exception applies:** %s\n",
			boolWord(rc.Article63ExceptionApplies))
	}
	b.WriteString("\n")

	if rc.Reasoning != "" {
		fmt.Fprintf(b, "%s\n\n", rc.Reasoning)
	}
	if rc.IsProhibited() && rc.ProhibitionDetails != "" {
		fmt.Fprintf(b, "%s\n\n", rc.ProhibitionDetails)
	}
}

func writeRequirements(b *strings.Builder, report *model.Report) {
	if !report.HasRequirements() {
		if report.IsProhibited() {
			b.WriteString("## Requirements\n\n")
			b.WriteString("No requirements are generated for a prohibited system. ")
			b.WriteString("The practice itself must not be placed on the market.\n\n")
		}
		return
	}

	fmt.Fprintf(b, "## Requirements (%d)\n\n", len(report.Requirements))

	for _, group := range categoryOrder {
		reqs := report.RequirementsByCategory(group.Category)
		if len(reqs) == 0 {
			continue
		}

		fmt.Fprintf(b, "### %s\n\n", group.Title)
		for i := range reqs {
			writeRequirement(b, &reqs[i])
		}
	}
}

func writeRequirement(b *strings.Builder, req *model.Requirement) {
	fmt.Fprintf(b, "#### %s: %s\n\n", req.ID, req.Title)
	fmt.Fprintf(b, "%s\n\n", req.Statement)

	fmt.Fprintf(b, "- **Priority:** %s\n", req.Priority)
	if req.Type != "" {
		fmt.Fprintf(b, "- **Type:** %s\n", req.Type)
	}
	if refs := citationRefs(req.AllCitations()); len(refs) > 0 {
		fmt.Fprintf(b, "- **Citations:** %s\n", strings.Join(refs, "; "))
	}
	b.WriteString("\n")

	if req.Rationale != "" {
		fmt.Fprintf(b, "%s\n\n", req.Rationale)
	}
	if len(req.VerificationCriteria) > 0 {
		b.WriteString("Verification criteria:\n\n")
		for _, c := range req.VerificationCriteria {
			fmt.Fprintf(b, "- %s\n", c)
		}
		b.WriteString("\n")
	}
}

func writeValidation(b *strings.Builder, v *model.ValidationResult) {
	if v == nil {
		return
	}

	b.WriteString("## Validation\n\n")
	fmt.Fprintf(b, "- **Article coverage:** %s\n", percent(v.ArticleCoverage))
	fmt.Fprintf(b, "- **HLEG principle coverage:** %s\n", percent(v.HLEGCoverage))
	fmt.Fprintf(b, "- **HLEG subtopic coverage:** %s\n", percent(v.SubtopicCoverage))
	fmt.Fprintf(b, "- **Complete:** %s\n", boolWord(v.IsComplete))
	fmt.Fprintf(b, "- **Consistent:** %s\n\n", boolWord(v.IsConsistent))

	if len(v.MissingArticles) > 0 {
		fmt.Fprintf(b, "Articles without requirements: %s\n\n",
			strings.Join(v.MissingArticles, ", "))
	}
	if len(v.MissingHLEGPrinciples) > 0 {
		fmt.Fprintf(b, "HLEG principles not addressed: %s\n\n",
			strings.Join(v.MissingHLEGPrinciples, ", "))
	}

	if v.HasConflicts() {
		b.WriteString("### Conflicts\n\n")
		for _, c := range v.Conflicts {
			fmt.Fprintf(b, "- **%s / %s** (%s): %s\n",
				c.RequirementID1, c.RequirementID2, c.Type, c.Explanation)
			if c.SuggestedResolution != "" {
				fmt.Fprintf(b, "  - Suggested resolution: %s\n", c.SuggestedResolution)
			}
		}
		b.WriteString("\n")
	}

	if v.HasInvalidCitations() {
		b.WriteString("### Invalid Citations\n\n")
		for _, ic := range v.InvalidCitations {
			fmt.Fprintf(b, "- **%s** cites %s: %s\n",
				ic.RequirementID, ic.CitationRef, ic.Reason)
		}
		b.WriteString("\n")
	}

	if len(v.Recommendations) > 0 {
		b.WriteString("### Recommendations\n\n")
		for _, r := range v.Recommendations {
			fmt.Fprintf(b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
}

func writeProcessingLog(b *strings.Builder, report *model.Report) {
	if len(report.ProcessingPhases) == 0 &&
		len(report.ProcessingErrors) == 0 &&
		len(report.ProcessingWarnings) == 0 {
		return
	}

	b.WriteString("## Processing Log\n\n")
	if len(report.ProcessingPhases) > 0 {
		fmt.Fprintf(b, "Phases completed: %s\n\n",
			strings.Join(report.ProcessingPhases, ", "))
	}
	for _, e := range report.ProcessingErrors {
		fmt.Fprintf(b, "- Error: %s\n", e)
	}
	for _, w := range report.ProcessingWarnings {
		fmt.Fprintf(b, "- Warning: %s\n", w)
	}
	if len(report.ProcessingErrors) > 0 || len(report.ProcessingWarnings) > 0 {
		b.WriteString("\n")
	}
}

// percent renders a ratio in [0, 1] as a percentage with one decimal.
func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func boolWord(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// citationRefs formats each citation, dropping empty references.
func citationRefs(citations []model.Citation) []string {
	var refs []string
	for i := range citations {
		if ref := citations[i].FormatReference(); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// riskFlagSummary lists the risk indicator flags set on the description.
func riskFlagSummary(d *model.SystemDescription) []string {
	var flags []string
	add := func(set bool, name string) {
		if set {
			flags = append(flags, name)
		}
	}
	add(d.AffectsFundamentalRights, "fundamental rights")
	add(d.SafetyCritical, "safety critical")
	add(d.BiometricProcessing, "biometric processing")
	add(d.RealTimeBiometric, "real-time biometric")
	add(d.LawEnforcementUse, "law enforcement")
	add(d.CriticalInfrastructure, "critical infrastructure")
	add(d.VulnerableGroups, "vulnerable groups")
	add(d.EmotionRecognition, "emotion recognition")
	add(d.SocialScoring, "social scoring")
	add(d.SubliminalTechniques, "subliminal techniques")
	return flags
}
