// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for client-provided identifiers that are
// used in storage keys, cloud object names, or telemetry attributes. Using
// these validators prevents injection attacks (path traversal, log forging,
// query injection).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// reportIDPattern matches report and job identifiers, which are always
// UUID v4 strings generated by the gateway.
var reportIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateReportID validates a report identifier before it is used as a
// storage key or cloud object name.
//
// Valid identifiers:
//   - Lowercase UUID format (8-4-4-4-12 hex groups)
//   - No path separators, whitespace, or control characters
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateReportID(id); err != nil {
//	    return nil, fmt.Errorf("invalid report id: %w", err)
//	}
//	// Safe to use as an object name
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("report id cannot be empty")
	}

	if !reportIDPattern.MatchString(id) {
		return fmt.Errorf("invalid report id format: %q (must be a lowercase UUID)", id)
	}

	return nil
}

// SanitizeReportID normalizes and validates a report identifier.
// Returns the lowercase identifier if valid, or an error if invalid.
//
// Use this on identifiers arriving from URL paths, where clients may
// have uppercased or padded the value:
//
//	safeID, err := validation.SanitizeReportID(c.Param("reportId"))
//	if err != nil {
//	    return err
//	}
//	// safeID is lowercase and validated
func SanitizeReportID(id string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if err := ValidateReportID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
