// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuth(key))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/v1/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doRequest(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuthDisabledWhenEmpty(t *testing.T) {
	router := newAuthRouter("")

	w := doRequest(router, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuthRejectsMissingKey(t *testing.T) {
	router := newAuthRouter("secret-key")

	w := doRequest(router, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAPIKeyAuthRejectsWrongKey(t *testing.T) {
	router := newAuthRouter("secret-key")

	w := doRequest(router, map[string]string{"Authorization": "Bearer wrong-key"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAPIKeyAuthAcceptsBearerToken(t *testing.T) {
	router := newAuthRouter("secret-key")

	w := doRequest(router, map[string]string{"Authorization": "Bearer secret-key"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuthAcceptsHeaderKey(t *testing.T) {
	router := newAuthRouter("secret-key")

	w := doRequest(router, map[string]string{"X-API-Key": "secret-key"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuthExemptsHealthAndMetrics(t *testing.T) {
	router := newAuthRouter("secret-key")

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "empty", header: "", want: ""},
		{name: "standard", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "no scheme", header: "abc123", want: ""},
		{name: "wrong scheme", header: "Basic abc123", want: ""},
		{name: "trailing space", header: "Bearer abc123 ", want: "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractBearerToken(tt.header); got != tt.want {
				t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
