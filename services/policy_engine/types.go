// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package policy_engine

import (
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// ConfidenceLevel grades how likely a pattern match is a true positive.
type ConfidenceLevel string

const (
	Low    ConfidenceLevel = "low"
	Medium ConfidenceLevel = "medium"
	High   ConfidenceLevel = "high"
)

// UnmarshalYAML rejects confidence grades outside the known set, so a
// typo in the rule file surfaces at engine construction instead of
// silently riding along on every finding.
func (c *ConfidenceLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch level := ConfidenceLevel(s); level {
	case High, Medium, Low:
		*c = level
		return nil
	default:
		return fmt.Errorf("invalid value for Confidence: %q", s)
	}
}

// ruleFile mirrors the embedded YAML rule document.
type ruleFile struct {
	Classifications []Classification `yaml:"classifications"`
}

// Classification is one named group of detection rules. Priority
// decides which name a submission gets when groups overlap: the engine
// reports the highest-priority group with a match.
type Classification struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is a single detection rule. Its regex is compiled once at
// engine construction and shared by every scan after that.
type Pattern struct {
	ID          string          `yaml:"id"`
	Description string          `yaml:"description"`
	Regex       string          `yaml:"regex"`
	Confidence  ConfidenceLevel `yaml:"confidence"`

	re *regexp.Regexp `yaml:"-"`
}

// compile builds every rule's regex and orders the groups from highest
// to lowest priority.
func (f *ruleFile) compile() error {
	for i := range f.Classifications {
		group := &f.Classifications[i]
		for j := range group.Patterns {
			p := &group.Patterns[j]
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return fmt.Errorf("rule %s: failed to compile regex %q: %w", p.ID, p.Regex, err)
			}
			p.re = re
		}
	}
	sort.SliceStable(f.Classifications, func(i, j int) bool {
		return f.Classifications[i].Priority > f.Classifications[j].Priority
	})
	return nil
}

// ScanFinding describes one pattern match inside a submission. The
// matched content is included for callers that surface findings to the
// submitter; it must never be written to logs or analytics.
type ScanFinding struct {
	LineNumber         int             `json:"line_number"`
	MatchedContent     string          `json:"matched_content"`
	ClassificationName string          `json:"classification_name"`
	PatternID          string          `json:"pattern_id"`
	PatternDescription string          `json:"pattern_description"`
	Confidence         ConfidenceLevel `json:"confidence"`
}
