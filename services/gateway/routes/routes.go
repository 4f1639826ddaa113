// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes maps the gateway's HTTP surface onto its handlers.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tere4ai/services/gateway/analytics"
	"github.com/AleutianAI/tere4ai/services/gateway/archive"
	"github.com/AleutianAI/tere4ai/services/gateway/handlers"
	"github.com/AleutianAI/tere4ai/services/gateway/jobs"
	"github.com/AleutianAI/tere4ai/services/gateway/observability"
	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/policy_engine"
)

// SetupRoutes registers all gateway routes.
//
// # Description
//
// Routes:
//   - GET  /health                          - liveness and version
//   - GET  /metrics                         - Prometheus scrape endpoint
//   - POST /v1/analyze                      - start an analysis job
//   - GET  /v1/examples                     - canned example systems
//   - GET  /v1/jobs/:jobId                  - job status
//   - GET  /v1/jobs/:jobId/report           - finished report
//   - GET  /v1/jobs/:jobId/export/:format   - report as attachment
//   - GET  /v1/jobs/:jobId/ws               - progress websocket
//   - GET  /v1/reports                      - archived report listing
//   - GET  /v1/reports/:reportId            - archived report
//   - POST /v1/knowledge/search             - corpus search
//   - GET  /v1/knowledge/articles/:number   - article detail
func SetupRoutes(
	router *gin.Engine,
	runner handlers.Runner,
	manager *jobs.Manager,
	store knowledge.Store,
	reports *archive.Store,
	recorder *analytics.Recorder,
	scanner *policy_engine.PolicyEngine,
	version string,
) {
	router.GET("/health", handlers.HealthCheck(version))
	router.GET("/metrics", observability.MetricsHandler())

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", handlers.AnalyzeSystem(runner, manager, reports, recorder, scanner))
		v1.GET("/examples", handlers.ListExamples())

		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.GET("/:jobId", handlers.JobStatus(manager))
			jobsGroup.GET("/:jobId/report", handlers.JobReport(manager))
			jobsGroup.GET("/:jobId/export/:format", handlers.ExportJobReport(manager))
			jobsGroup.GET("/:jobId/ws", handlers.JobProgressWS(manager))
		}

		reportsGroup := v1.Group("/reports")
		{
			reportsGroup.GET("", handlers.ListReports(reports))
			reportsGroup.GET("/:reportId", handlers.GetReport(reports))
		}

		knowledgeGroup := v1.Group("/knowledge")
		{
			knowledgeGroup.POST("/search", handlers.SearchKnowledge(store))
			knowledgeGroup.GET("/articles/:number", handlers.GetArticle(store))
		}
	}
}
