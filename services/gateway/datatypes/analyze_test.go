// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAnalyzeRequest_ValidDescription(t *testing.T) {
	t.Parallel()

	req := AnalyzeRequest{
		Description: "A hospital triage assistant that prioritizes patients.",
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestAnalyzeRequest_DescriptionBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		wantErr     bool
	}{
		{"empty", "", true},
		{"below minimum", "too short", true},
		{"exactly minimum", strings.Repeat("a", MinDescriptionLen), false},
		{"exactly maximum", strings.Repeat("a", MaxDescriptionLen), false},
		{"above maximum", strings.Repeat("a", MaxDescriptionLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := AnalyzeRequest{Description: tt.description}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeRequest_AdditionalContextBounds(t *testing.T) {
	t.Parallel()

	base := AnalyzeRequest{Description: strings.Repeat("a", 50)}

	req := base
	req.AdditionalContext = strings.Repeat("b", MaxAdditionalContextLen)
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() with max context = %v, want nil", err)
	}

	req = base
	req.AdditionalContext = strings.Repeat("b", MaxAdditionalContextLen+1)
	if err := req.Validate(); err == nil {
		t.Error("Validate() with oversized context = nil, want error")
	}
}

func TestAnalyzeRequest_RequestIDMustBeUUID(t *testing.T) {
	t.Parallel()

	req := AnalyzeRequest{
		RequestID:   "not-a-uuid",
		Description: strings.Repeat("a", 50),
	}
	if err := req.Validate(); err == nil {
		t.Error("Validate() with malformed request ID = nil, want error")
	}

	req.RequestID = uuid.New().String()
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() with UUID request ID = %v, want nil", err)
	}
}

func TestAnalyzeRequest_EnsureDefaults(t *testing.T) {
	t.Parallel()

	req := AnalyzeRequest{Description: strings.Repeat("a", 50)}
	req.EnsureDefaults()

	if _, err := uuid.Parse(req.RequestID); err != nil {
		t.Errorf("EnsureDefaults() RequestID = %q, not a UUID: %v", req.RequestID, err)
	}
	if req.Timestamp == 0 {
		t.Error("EnsureDefaults() left Timestamp zero")
	}
}

func TestAnalyzeRequest_EnsureDefaultsPreservesClientValues(t *testing.T) {
	t.Parallel()

	id := uuid.New().String()
	req := AnalyzeRequest{
		RequestID:   id,
		Timestamp:   1700000000000,
		Description: strings.Repeat("a", 50),
	}
	req.EnsureDefaults()

	if req.RequestID != id {
		t.Errorf("EnsureDefaults() overwrote RequestID: got %q, want %q", req.RequestID, id)
	}
	if req.Timestamp != 1700000000000 {
		t.Errorf("EnsureDefaults() overwrote Timestamp: got %d", req.Timestamp)
	}
}

func TestSearchRequest_QueryBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"empty", "", true},
		{"single char", "a", true},
		{"two chars", "ai", false},
		{"normal", "risk management system", false},
		{"oversized", strings.Repeat("q", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := SearchRequest{Query: tt.query}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
