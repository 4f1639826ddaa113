// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the gateway
// service.
//
// This file contains the types for the analysis endpoints: submitting a
// system description, polling job status, and the canned example systems.
package datatypes

import (
	"time"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Request Bounds
// =============================================================================

const (
	// MinDescriptionLen is the shortest system description accepted.
	// Anything below this cannot be meaningfully classified.
	MinDescriptionLen = 10

	// MaxDescriptionLen caps the system description size.
	MaxDescriptionLen = 10000

	// MaxAdditionalContextLen caps the optional clarification text.
	MaxAdditionalContextLen = 5000
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// analyzeValidate is the validator instance for gateway datatypes.
var analyzeValidate *validator.Validate

func init() {
	analyzeValidate = validator.New()
}

// =============================================================================
// Analyze Request
// =============================================================================

// AnalyzeRequest is the body of POST /v1/analyze.
//
// # Description
//
// Carries the free-text description of the AI system to assess, plus
// optional clarifying context. Every request has a unique ID and a
// timestamp for audit trails; both are generated server-side when the
// client leaves them empty.
//
// # Validation
//
//   - RequestID: optional, must be a UUID v4 when set
//   - Description: required, 10-10000 characters
//   - AdditionalContext: optional, at most 5000 characters
type AnalyzeRequest struct {
	RequestID         string `json:"request_id,omitempty" validate:"omitempty,uuid4"`
	Timestamp         int64  `json:"timestamp,omitempty" validate:"gte=0"`
	Description       string `json:"description" validate:"required,min=10,max=10000"`
	AdditionalContext string `json:"additional_context,omitempty" validate:"omitempty,max=5000"`
}

// Validate checks the request against its validation tags. Call after
// binding the JSON body.
func (r *AnalyzeRequest) Validate() error {
	return analyzeValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client did
// not provide them.
func (r *AnalyzeRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Analyze Response
// =============================================================================

// AnalyzeAccepted is the 202 response to POST /v1/analyze. The pipeline
// runs in the background; StatusURL and ReportURL tell the client where
// to poll and where the finished report will appear.
type AnalyzeAccepted struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
	ReportURL string `json:"report_url"`
}

// JobStatusResponse is the body of GET /v1/jobs/:jobId.
type JobStatusResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Phase     string    `json:"phase"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// Knowledge Search
// =============================================================================

// SearchRequest is the body of POST /v1/knowledge/search. Filters pass
// through to the knowledge store unchanged.
type SearchRequest struct {
	Query   string               `json:"query" validate:"required,min=2,max=500"`
	Filters *model.SearchFilters `json:"filters,omitempty"`
}

// Validate checks the search request against its validation tags.
func (r *SearchRequest) Validate() error {
	return analyzeValidate.Struct(r)
}

// =============================================================================
// Examples
// =============================================================================

// ExampleSystem is one canned system description served by
// GET /v1/examples, with the risk level a correct run should produce.
type ExampleSystem struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	ExpectedRiskLevel string `json:"expected_risk_level"`
}
