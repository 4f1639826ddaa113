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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tere4ai/pkg/validation"
	"github.com/AleutianAI/tere4ai/services/gateway/archive"
)

// ListReports returns the handler for GET /v1/reports. The optional
// limit query parameter caps the page size; summaries come back
// newest first.
func ListReports(store *archive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		summaries, err := store.List(limit)
		if err != nil {
			slog.Error("Failed to list archived reports", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"reports": summaries,
			"count":   len(summaries),
		})
	}
}

// GetReport returns the handler for GET /v1/reports/:reportId. The
// identifier is validated before it reaches the store, since archived
// report IDs double as cloud object names.
func GetReport(store *archive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		reportID, err := validation.SanitizeReportID(c.Param("reportId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report, err := store.Get(reportID)
		if errors.Is(err, archive.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		if err != nil {
			slog.Error("Failed to read archived report",
				slog.String("report_id", reportID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read report"})
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
