// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge implements the regulatory knowledge store backing risk
// analysis and requirement generation.
//
// The store answers five questions: what risk level an AI system falls
// under, which EU AI Act articles apply at that level, what an article says
// (with supporting recitals and AI HLEG principle mappings), how a set of
// articles covers the seven HLEG principles, and which provisions match a
// free-text query.
//
// Two implementations exist. LocalStore serves everything from an embedded
// YAML corpus and is the default. WeaviateStore layers BM25 search over a
// Weaviate instance for deployments that ingest the corpus there;
// classification and coverage always run against the local corpus because
// the risk rules are deterministic and must not depend on index state.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use.
package knowledge

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store is the query surface of the regulatory knowledge base.
//
// # Description
//
// Classify runs the deterministic risk rules over extracted system
// features. ApplicableArticles expands a risk level into the articles the
// specification phase must generate requirements from. ArticleDetail
// returns the full citation bundle for one article. PrincipleCoverage maps
// a set of articles onto the seven HLEG principles. Search performs
// keyword lookup across articles, recitals, and HLEG requirements.
type Store interface {
	Classify(ctx context.Context, features model.SystemFeatures) (*model.Classification, error)

	ApplicableArticles(ctx context.Context, level model.RiskLevel, annexCategory string) ([]model.ArticleSummary, error)

	ArticleDetail(ctx context.Context, number int) (*model.Article, error)

	PrincipleCoverage(ctx context.Context, articles []int) (*model.HLEGCoverage, error)

	Search(ctx context.Context, query string, filters *model.SearchFilters) (*model.SearchResult, error)
}

// =============================================================================
// Sentinel Errors
// =============================================================================

// Sentinel errors for knowledge store operations.
var (
	// ErrArticleNotFound indicates the requested article is not in the
	// corpus. Articles reachable through ApplicableArticles always are.
	ErrArticleNotFound = errors.New("article not found in corpus")

	// ErrCorpusInvalid indicates the corpus file failed validation.
	ErrCorpusInvalid = errors.New("corpus file invalid")
)

// =============================================================================
// OTel Tracer
// =============================================================================

var knowledgeTracer = otel.Tracer("tere4ai.knowledge")

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tere4ai_knowledge_classifications_total",
		Help: "Total risk classifications by resulting risk level",
	}, []string{"risk_level"})

	legalSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tere4ai_knowledge_searches_total",
		Help: "Total legal text searches by source filter",
	}, []string{"source"})

	corpusReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tere4ai_corpus_reloads_total",
		Help: "Total successful corpus reloads from disk",
	})

	corpusReloadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tere4ai_corpus_reload_errors_total",
		Help: "Total corpus reload failures",
	})
)
