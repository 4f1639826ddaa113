// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/gateway/export"
	"github.com/AleutianAI/tere4ai/services/gateway/jobs"
)

// JobStatus returns the handler for GET /v1/jobs/:jobId.
func JobStatus(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := manager.Get(c.Param("jobId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}

		c.JSON(http.StatusOK, jobStatusResponse(job))
	}
}

// JobReport returns the handler for GET /v1/jobs/:jobId/report.
//
// # Description
//
// A job still in flight answers 400 with the current status so a
// client polling the wrong URL learns where it stands. A terminal job
// answers 200 with the report, for failed runs too: the report of a
// failed run carries the processing errors, which is exactly what the
// caller wants to see.
func JobReport(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := manager.Get(c.Param("jobId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}

		if !job.Status.IsTerminal() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "report not ready",
				"status": jobStatusResponse(job),
			})
			return
		}

		if job.Result == nil || job.Result.Report == nil {
			slog.Error("Terminal job has no report", slog.String("job_id", job.ID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report missing"})
			return
		}

		c.JSON(http.StatusOK, job.Result.Report)
	}
}

// ExportJobReport returns the handler for
// GET /v1/jobs/:jobId/export/:format. Supported formats are "json"
// and "markdown"; the response is an attachment.
func ExportJobReport(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.Param("format")
		if format != "json" && format != "markdown" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format: " + format})
			return
		}

		job, ok := manager.Get(c.Param("jobId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if !job.Status.IsTerminal() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "report not ready",
				"status": jobStatusResponse(job),
			})
			return
		}
		if job.Result == nil || job.Result.Report == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report missing"})
			return
		}

		report := job.Result.Report
		var buf bytes.Buffer
		var contentType, extension string
		var err error

		switch format {
		case "json":
			contentType = "application/json"
			extension = "json"
			err = export.WriteJSON(&buf, report)
		case "markdown":
			contentType = "text/markdown; charset=utf-8"
			extension = "md"
			err = export.WriteMarkdown(&buf, report)
		}
		if err != nil {
			slog.Error("Failed to render report export",
				slog.String("job_id", job.ID),
				slog.String("format", format),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
			return
		}

		filename := "tere4ai-report-" + report.ReportID + "." + extension
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

func jobStatusResponse(job jobs.Job) datatypes.JobStatusResponse {
	return datatypes.JobStatusResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Phase:     string(job.Phase),
		Progress:  job.Progress,
		Message:   job.Message,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
