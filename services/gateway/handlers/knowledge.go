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

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/knowledge"
)

// SearchKnowledge returns the handler for POST /v1/knowledge/search.
// The same store the pipeline consults serves ad-hoc queries, so what
// a requirement cites and what a user can look up never diverge.
func SearchKnowledge(store knowledge.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := store.Search(c.Request.Context(), req.Query, req.Filters)
		if err != nil {
			slog.Error("Knowledge search failed",
				slog.String("query", req.Query),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// GetArticle returns the handler for GET /v1/knowledge/articles/:number.
func GetArticle(store knowledge.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		number, err := strconv.Atoi(c.Param("number"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "article number must be an integer"})
			return
		}

		article, err := store.ArticleDetail(c.Request.Context(), number)
		if errors.Is(err, knowledge.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		if err != nil {
			slog.Error("Failed to load article",
				slog.Int("number", number),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load article"})
			return
		}

		c.JSON(http.StatusOK, article)
	}
}
