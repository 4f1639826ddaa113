// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

func TestElicit_ExtractsDescription(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{extraction: extractionResponse}
	elicitor := NewElicitor(client, testConfig())
	trace := &RunTrace{}

	raw := "An AI triage system that ranks emergency room patients."
	desc, err := elicitor.Elicit(context.Background(), raw, "", trace)
	if err != nil {
		t.Fatalf("Elicit returned error: %v", err)
	}

	if desc.RawDescription != raw {
		t.Error("raw description must be preserved verbatim")
	}
	if desc.Name != "TriageAssist" {
		t.Errorf("expected extracted name, got %q", desc.Name)
	}
	if desc.Domain != model.DomainHealthcare {
		t.Errorf("expected healthcare domain, got %s", desc.Domain)
	}
	if desc.AutonomyLevel != model.AutonomyAdvisory {
		t.Errorf("expected advisory autonomy, got %s", desc.AutonomyLevel)
	}
	if len(desc.DataTypes) != 2 {
		t.Errorf("expected 2 data types, got %v", desc.DataTypes)
	}
	if !desc.SafetyCritical || !desc.AffectsFundamentalRights {
		t.Error("risk flags should carry through")
	}
	if desc.ExtractionConfidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", desc.ExtractionConfidence)
	}

	if len(trace.Calls) != 1 || trace.Calls[0].Tool != "llm.extract_description" {
		t.Errorf("expected one recorded extraction call, got %+v", trace.Calls)
	}
}

func TestElicit_AppendsAdditionalContext(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{extraction: extractionResponse}
	elicitor := NewElicitor(client, testConfig())

	_, err := elicitor.Elicit(context.Background(), "raw text", "used only in hospitals", nil)
	if err != nil {
		t.Fatalf("Elicit returned error: %v", err)
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "ADDITIONAL CONTEXT:\nused only in hospitals") {
		t.Errorf("additional context should be appended to the prompt, got %q", prompt)
	}
}

func TestElicit_CoercesUnknownVocabulary(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{extraction: `{
	  "name": "  Oracle  ",
	  "domain": "astrology",
	  "purpose": "",
	  "data_types": ["health", "star_signs"],
	  "decision_types": ["prediction", "divination"],
	  "autonomy_level": "clairvoyant",
	  "deployment_context": "moonbase"
	}`}
	elicitor := NewElicitor(client, testConfig())

	raw := "A fortune telling service."
	desc, err := elicitor.Elicit(context.Background(), raw, "", nil)
	if err != nil {
		t.Fatalf("Elicit returned error: %v", err)
	}

	if desc.Domain != model.DomainGeneral {
		t.Errorf("unknown domain should coerce to general, got %s", desc.Domain)
	}
	if desc.AutonomyLevel != model.AutonomyPartial {
		t.Errorf("unknown autonomy should coerce to partial, got %s", desc.AutonomyLevel)
	}
	if desc.DeploymentContext != model.DeploymentPrivateSector {
		t.Errorf("unknown deployment should coerce to private_sector, got %s", desc.DeploymentContext)
	}
	if len(desc.DataTypes) != 1 || desc.DataTypes[0] != model.DataHealth {
		t.Errorf("invalid data categories should be dropped, got %v", desc.DataTypes)
	}
	if len(desc.DecisionTypes) != 1 {
		t.Errorf("invalid decision types should be dropped, got %v", desc.DecisionTypes)
	}
	if desc.Name != "Oracle" {
		t.Errorf("name should be trimmed, got %q", desc.Name)
	}
	if desc.Purpose != raw {
		t.Errorf("empty purpose should fall back to the raw description, got %q", desc.Purpose)
	}
	if desc.ExtractionConfidence != 1.0 {
		t.Errorf("missing confidence should default to 1.0, got %f", desc.ExtractionConfidence)
	}
}

func TestElicit_LongPurposeFallbackIsTruncated(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{extraction: `{"domain": "general", "purpose": ""}`}
	elicitor := NewElicitor(client, testConfig())

	raw := strings.Repeat("long description ", 40)
	desc, err := elicitor.Elicit(context.Background(), raw, "", nil)
	if err != nil {
		t.Fatalf("Elicit returned error: %v", err)
	}

	if len(desc.Purpose) != 203 || !strings.HasSuffix(desc.Purpose, "...") {
		t.Errorf("purpose fallback should be truncated to 200 bytes plus ellipsis, got %d bytes",
			len(desc.Purpose))
	}
}

func TestElicit_ClampsConfidence(t *testing.T) {
	t.Parallel()

	client := &scriptedLLM{extraction: `{"domain": "general", "extraction_confidence": 1.8}`}
	elicitor := NewElicitor(client, testConfig())

	desc, err := elicitor.Elicit(context.Background(), "raw", "", nil)
	if err != nil {
		t.Fatalf("Elicit returned error: %v", err)
	}
	if desc.ExtractionConfidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %f", desc.ExtractionConfidence)
	}
}

func TestElicit_PropagatesBackendError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend down")
	client := &scriptedLLM{failSubstring: "Extract", failErr: wantErr}
	elicitor := NewElicitor(client, testConfig())
	trace := &RunTrace{}

	_, err := elicitor.Elicit(context.Background(), "raw", "", trace)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
	if len(trace.Calls) != 1 || trace.Calls[0].Err == "" {
		t.Errorf("failed call should be recorded with its error, got %+v", trace.Calls)
	}
}
