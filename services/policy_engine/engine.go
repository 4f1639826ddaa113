// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy_engine classifies submitted text against embedded data
// classification rules.
//
// The gateway scans every incoming system description before the
// analysis starts. Submissions carrying secrets or personal data are
// flagged in the run metrics and kept out of the off-site report
// mirror; the descriptions themselves still flow to the pipeline, since
// refusing them would block legitimate assessments of systems that
// happen to process such data.
package policy_engine

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/tere4ai/services/policy_engine/enforcement"
	"gopkg.in/yaml.v3"
)

// PolicyEngine scans submission text against the embedded rule file.
//
// Classifiers is ordered from highest to lowest priority and read-only
// after construction, so one engine serves concurrent scans.
type PolicyEngine struct {
	Classifiers []Classification
}

// NewPolicyEngine parses the embedded rule file, compiles every
// pattern, and orders the classification groups by priority.
//
// A malformed rule file or an uncompilable regex fails construction:
// the gateway refuses to start rather than run with a silent gap in
// submission scanning.
func NewPolicyEngine() (*PolicyEngine, error) {
	var rules ruleFile
	if err := yaml.Unmarshal(enforcement.DataClassificationPatterns, &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded policy file: %w", err)
	}
	if err := rules.compile(); err != nil {
		return nil, err
	}
	return &PolicyEngine{Classifiers: rules.Classifications}, nil
}

// ClassifyData returns the name of the highest-priority classification
// group with a match in data, or "public" when nothing matches.
//
// This is the fast check on the analyze request path; only the
// category matters there, not where it matched.
func (e *PolicyEngine) ClassifyData(data []byte) string {
	for _, group := range e.Classifiers {
		for _, p := range group.Patterns {
			if p.re.Match(data) {
				return group.Name
			}
		}
	}
	return "public"
}

// ScanContent audits a submission line by line and reports every
// pattern match with its location. Within a line, findings follow
// group priority order.
//
// Use this where detailed feedback is required; the findings include
// the matched content, so they must not be logged.
func (e *PolicyEngine) ScanContent(content string) []ScanFinding {
	var findings []ScanFinding
	for i, line := range strings.Split(content, "\n") {
		for _, group := range e.Classifiers {
			for _, p := range group.Patterns {
				match := p.re.FindString(line)
				if match == "" {
					continue
				}
				findings = append(findings, ScanFinding{
					LineNumber:         i + 1,
					MatchedContent:     strings.TrimSpace(match),
					ClassificationName: group.Name,
					PatternID:          p.ID,
					PatternDescription: p.Description,
					Confidence:         p.Confidence,
				})
			}
		}
	}
	return findings
}
