// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains WeaviateStore, which layers BM25 search over a
// Weaviate instance. Classification, article lookup, and coverage always
// run on the local corpus; only Search touches Weaviate, and it falls back
// to the local keyword scan when the instance is unreachable.
package knowledge

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// Constants
// =============================================================================

// LegalProvisionClassName is the Weaviate class holding corpus provisions.
const LegalProvisionClassName = "LegalProvision"

const (
	// ingestBatchSize is the number of provisions per batch insert.
	ingestBatchSize = 100

	// provisionChunkSize is the character budget per indexed chunk.
	provisionChunkSize = 1000

	// provisionChunkOverlap keeps context across chunk boundaries.
	provisionChunkOverlap = 100
)

// WeaviateURLEnv names the environment variable holding the Weaviate base
// URL. Unset means search stays local.
const WeaviateURLEnv = "TERE4AI_WEAVIATE_URL"

// =============================================================================
// Client Construction
// =============================================================================

// NewWeaviateClient builds a client from a base URL such as
// "http://localhost:8080".
func NewWeaviateClient(baseURL string) (*weaviate.Client, error) {
	cfg := weaviate.Config{
		Host:   baseURL,
		Scheme: "http",
	}
	if len(baseURL) > 8 && baseURL[:8] == "https://" {
		cfg.Scheme = "https"
		cfg.Host = baseURL[8:]
	} else if len(baseURL) > 7 && baseURL[:7] == "http://" {
		cfg.Host = baseURL[7:]
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return client, nil
}

// NewWeaviateClientFromEnv builds a client from TERE4AI_WEAVIATE_URL, or
// returns nil when the variable is unset.
func NewWeaviateClientFromEnv() (*weaviate.Client, error) {
	baseURL := os.Getenv(WeaviateURLEnv)
	if baseURL == "" {
		return nil, nil
	}
	return NewWeaviateClient(baseURL)
}

// =============================================================================
// Schema
// =============================================================================

// legalProvisionSchema returns the LegalProvision class definition. The
// class carries no vectorizer; search runs on BM25 over the text field.
func legalProvisionSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	indexSearchable := new(bool)
	*indexSearchable = true

	return &models.Class{
		Class:       LegalProvisionClassName,
		Description: "EU AI Act and AI HLEG provisions for legal text search",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "provisionId",
				DataType:        []string{"text"},
				Description:     "Stable identifier, e.g. article_9_para_2 or recital_47",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "docType",
				DataType:        []string{"text"},
				Description:     "article, recital, annex, prohibited_practice, or hleg",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "Corpus the provision belongs to: eu_ai_act or hleg",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "articleNumber",
				DataType:        []string{"int"},
				Description:     "Article number, zero for non-article provisions",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "recitalNumber",
				DataType:        []string{"int"},
				Description:     "Recital number, zero for non-recital provisions",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "requirementId",
				DataType:        []string{"text"},
				Description:     "HLEG principle identifier, empty for AI Act provisions",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "sectionId",
				DataType:        []string{"text"},
				Description:     "Annex III section or Article 5(1) point identifier",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "title",
				DataType:     []string{"text"},
				Description:  "Human-readable reference, e.g. Article 9(2)",
				Tokenization: "word",
			},
			{
				Name:            "text",
				DataType:        []string{"text"},
				Description:     "Provision text",
				IndexSearchable: indexSearchable,
				Tokenization:    "word",
			},
			{
				Name:            "category",
				DataType:        []string{"text"},
				Description:     "Requirement category for article provisions",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// EnsureSchema creates the LegalProvision class if it does not exist.
// Idempotent.
func EnsureSchema(ctx context.Context, client *weaviate.Client) error {
	_, err := client.Schema().ClassGetter().WithClassName(LegalProvisionClassName).Do(ctx)
	if err == nil {
		slog.Info("LegalProvision schema already exists")
		return nil
	}

	slog.Info("Creating LegalProvision schema")
	if err := client.Schema().ClassCreator().WithClass(legalProvisionSchema()).Do(ctx); err != nil {
		return fmt.Errorf("creating LegalProvision schema: %w", err)
	}
	return nil
}

// =============================================================================
// Ingestion
// =============================================================================

// provisionRecord is one indexable unit of the corpus.
type provisionRecord struct {
	ID            string
	DocType       string
	Source        string
	ArticleNumber int
	RecitalNumber int
	RequirementID string
	SectionID     string
	Title         string
	Text          string
	Category      string
}

// IngestCorpus indexes the corpus into Weaviate. Long provision texts are
// split into overlapping chunks; object IDs derive from the provision
// identifier, so re-ingestion updates in place. Returns the number of
// objects written.
func IngestCorpus(ctx context.Context, client *weaviate.Client, corpus *Corpus) (int, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(provisionChunkSize),
		textsplitter.WithChunkOverlap(provisionChunkOverlap),
	)

	var objects []*models.Object
	for _, rec := range corpusProvisions(corpus) {
		chunks := []string{rec.Text}
		if len(rec.Text) > provisionChunkSize {
			split, err := splitter.SplitText(rec.Text)
			if err != nil {
				return 0, fmt.Errorf("splitting provision %s: %w", rec.ID, err)
			}
			chunks = split
		}

		for i, chunk := range chunks {
			chunkID := rec.ID
			if len(chunks) > 1 {
				chunkID = fmt.Sprintf("%s_part_%d", rec.ID, i+1)
			}
			hash := sha256.Sum256([]byte(chunkID))
			objUUID, err := uuid.FromBytes(hash[:16])
			if err != nil {
				return 0, fmt.Errorf("deriving object id for %s: %w", chunkID, err)
			}

			objects = append(objects, &models.Object{
				Class: LegalProvisionClassName,
				ID:    strfmt.UUID(objUUID.String()),
				Properties: map[string]interface{}{
					"provisionId":   chunkID,
					"docType":       rec.DocType,
					"source":        rec.Source,
					"articleNumber": rec.ArticleNumber,
					"recitalNumber": rec.RecitalNumber,
					"requirementId": rec.RequirementID,
					"sectionId":     rec.SectionID,
					"title":         rec.Title,
					"text":          chunk,
					"category":      rec.Category,
				},
			})
		}
	}

	indexed := 0
	for i := 0; i < len(objects); i += ingestBatchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		end := i + ingestBatchSize
		if end > len(objects) {
			end = len(objects)
		}

		result, err := client.Batch().ObjectsBatcher().WithObjects(objects[i:end]...).Do(ctx)
		if err != nil {
			return indexed, fmt.Errorf("batch import failed: %w", err)
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors == nil {
				indexed++
			}
		}

		slog.Info("Indexed provision batch",
			slog.Int("count", end-i),
			slog.Int("total_indexed", indexed))
	}

	return indexed, nil
}

// corpusProvisions flattens the corpus into indexable records: one per
// article paragraph (points folded into the text), recital, Annex III
// section, prohibited practice, and HLEG principle.
func corpusProvisions(corpus *Corpus) []provisionRecord {
	var records []provisionRecord

	for _, art := range corpus.Articles {
		for _, p := range art.Paragraphs {
			text := p.Text
			for _, pt := range p.Points {
				text += fmt.Sprintf("\n(%s) %s", pt.Marker, pt.Text)
			}
			records = append(records, provisionRecord{
				ID:            fmt.Sprintf("article_%d_para_%d", art.Number, p.Index),
				DocType:       "article",
				Source:        model.SearchSourceEUAIAct,
				ArticleNumber: art.Number,
				Title:         fmt.Sprintf("Article %d(%d)", art.Number, p.Index),
				Text:          text,
				Category:      categoryForArticle(art.Number),
			})
		}
	}

	for _, r := range corpus.Recitals {
		records = append(records, provisionRecord{
			ID:            fmt.Sprintf("recital_%d", r.Number),
			DocType:       "recital",
			Source:        model.SearchSourceEUAIAct,
			RecitalNumber: r.Number,
			Title:         fmt.Sprintf("Recital (%d)", r.Number),
			Text:          r.Text,
		})
	}

	for _, s := range corpus.AnnexIII {
		records = append(records, provisionRecord{
			ID:        fmt.Sprintf("annex_iii_%s", s.ID),
			DocType:   "annex",
			Source:    model.SearchSourceEUAIAct,
			SectionID: s.ID,
			Title:     fmt.Sprintf("Annex III, Section %s", s.ID),
			Text:      s.Text,
		})
	}

	for _, p := range corpus.ProhibitedPractices {
		records = append(records, provisionRecord{
			ID:        fmt.Sprintf("prohibited_%s", p.ID),
			DocType:   "prohibited_practice",
			Source:    model.SearchSourceEUAIAct,
			SectionID: p.ID,
			Title:     p.Label,
			Text:      p.Text,
		})
	}

	for _, p := range corpus.HLEGPrinciples {
		records = append(records, provisionRecord{
			ID:            fmt.Sprintf("hleg_%s", p.ID),
			DocType:       "hleg",
			Source:        model.SearchSourceHLEG,
			RequirementID: p.ID,
			Title:         p.Name,
			Text:          p.ShortDescription,
		})
	}

	return records
}

// =============================================================================
// WeaviateStore
// =============================================================================

// WeaviateStore is a Store that answers Search via Weaviate BM25 and
// everything else from the wrapped LocalStore. A nil client degrades
// Search to the local keyword scan as well.
type WeaviateStore struct {
	local  *LocalStore
	client *weaviate.Client
}

// Verify interface compliance at compile time.
var _ Store = (*WeaviateStore)(nil)

// NewWeaviateStore wraps a LocalStore with BM25 search. client may be nil.
func NewWeaviateStore(local *LocalStore, client *weaviate.Client) *WeaviateStore {
	return &WeaviateStore{local: local, client: client}
}

// Classify runs the deterministic risk rules on the local corpus.
func (s *WeaviateStore) Classify(ctx context.Context, features model.SystemFeatures) (*model.Classification, error) {
	return s.local.Classify(ctx, features)
}

// ApplicableArticles expands a risk level from the local corpus.
func (s *WeaviateStore) ApplicableArticles(ctx context.Context, level model.RiskLevel, annexCategory string) ([]model.ArticleSummary, error) {
	return s.local.ApplicableArticles(ctx, level, annexCategory)
}

// ArticleDetail reads the article bundle from the local corpus.
func (s *WeaviateStore) ArticleDetail(ctx context.Context, number int) (*model.Article, error) {
	return s.local.ArticleDetail(ctx, number)
}

// PrincipleCoverage aggregates HLEG mappings from the local corpus.
func (s *WeaviateStore) PrincipleCoverage(ctx context.Context, articles []int) (*model.HLEGCoverage, error) {
	return s.local.PrincipleCoverage(ctx, articles)
}

// Search runs a BM25 query over the LegalProvision class. Source filters
// map to the source property; an article range additionally restricts
// matches to article provisions. Query failures fall back to the local
// keyword scan so search degrades instead of erroring.
func (s *WeaviateStore) Search(ctx context.Context, query string, searchFilters *model.SearchFilters) (*model.SearchResult, error) {
	if s.client == nil {
		return s.local.Search(ctx, query, searchFilters)
	}

	ctx, span := knowledgeTracer.Start(ctx, "knowledge.SearchBM25")
	defer span.End()

	limit := defaultSearchLimit
	source := model.SearchSourceAll
	var articleRange []int
	if searchFilters != nil {
		if searchFilters.Limit > 0 {
			limit = searchFilters.Limit
		}
		if searchFilters.Source != "" {
			source = searchFilters.Source
		}
		if len(searchFilters.ArticleRange) == 2 {
			articleRange = searchFilters.ArticleRange
		}
	}

	var operands []*filters.WhereBuilder
	if source != model.SearchSourceAll {
		operands = append(operands, filters.Where().
			WithPath([]string{"source"}).
			WithOperator(filters.Equal).
			WithValueString(source))
	}
	if articleRange != nil {
		operands = append(operands,
			filters.Where().
				WithPath([]string{"docType"}).
				WithOperator(filters.Equal).
				WithValueString("article"),
			filters.Where().
				WithPath([]string{"articleNumber"}).
				WithOperator(filters.GreaterThanEqual).
				WithValueInt(int64(articleRange[0])),
			filters.Where().
				WithPath([]string{"articleNumber"}).
				WithOperator(filters.LessThanEqual).
				WithValueInt(int64(articleRange[1])))
	}

	fields := []graphql.Field{
		{Name: "provisionId"},
		{Name: "docType"},
		{Name: "articleNumber"},
		{Name: "recitalNumber"},
		{Name: "requirementId"},
		{Name: "title"},
		{Name: "text"},
	}

	getBuilder := s.client.GraphQL().Get().
		WithClassName(LegalProvisionClassName).
		WithFields(fields...).
		WithBM25(s.client.GraphQL().Bm25ArgBuilder().WithQuery(query)).
		WithLimit(limit)

	switch len(operands) {
	case 0:
	case 1:
		getBuilder = getBuilder.WithWhere(operands[0])
	default:
		getBuilder = getBuilder.WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands(operands))
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		slog.Warn("Weaviate search failed, falling back to local scan",
			slog.String("error", err.Error()))
		return s.local.Search(ctx, query, searchFilters)
	}
	if len(result.Errors) > 0 {
		slog.Warn("Weaviate search returned errors, falling back to local scan",
			slog.String("error", result.Errors[0].Message))
		return s.local.Search(ctx, query, searchFilters)
	}

	matches := parseProvisionMatches(result)
	legalSearchesTotal.WithLabelValues(source).Inc()

	return &model.SearchResult{
		Results:      matches,
		TotalMatches: len(matches),
		Query:        query,
	}, nil
}

// parseProvisionMatches converts a GraphQL response into search matches.
func parseProvisionMatches(result *models.GraphQLResponse) []model.SearchMatch {
	matches := []model.SearchMatch{}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return matches
	}
	objects, ok := data[LegalProvisionClassName].([]interface{})
	if !ok {
		return matches
	}

	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		matches = append(matches, model.SearchMatch{
			Type:          wvString(m, "docType"),
			Reference:     wvString(m, "title"),
			Text:          truncate(wvString(m, "text"), maxSearchTextLen),
			ArticleNumber: wvInt(m, "articleNumber"),
			RecitalNumber: wvInt(m, "recitalNumber"),
			RequirementID: wvString(m, "requirementId"),
		})
	}
	return matches
}

// wvString safely extracts a string property from a GraphQL object.
func wvString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// wvInt safely extracts an int property from a GraphQL object. Weaviate
// returns numbers as float64.
func wvInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}
