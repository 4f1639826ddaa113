// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides gin middleware for the gateway.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth returns middleware requiring the configured API key on
// every request except /health and /metrics. The key may arrive as a
// Bearer token or in the X-API-Key header. An empty configured key
// disables authentication entirely.
//
// # Description
//
// The comparison is constant-time. Probes and scanners hitting the
// gateway should learn nothing about key length or prefix from
// response timing.
func APIKeyAuth(key string) gin.HandlerFunc {
	if key == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if isExemptPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		presented := extractBearerToken(c.GetHeader("Authorization"))
		if presented == "" {
			presented = c.GetHeader("X-API-Key")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		c.Next()
	}
}

// isExemptPath reports whether the path skips authentication.
// Liveness probes and the Prometheus scraper do not carry keys.
func isExemptPath(path string) bool {
	return path == "/health" || path == "/metrics"
}

// extractBearerToken pulls the token out of an Authorization header.
// Returns empty string if the header is missing or malformed.
func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
