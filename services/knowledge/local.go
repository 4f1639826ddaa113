// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains LocalStore, the corpus-backed Store implementation,
// and the query logic it shares with WeaviateStore's local fallbacks.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// maxSupportingRecitals caps the recitals attached to an article.
	maxSupportingRecitals = 5

	// maxRecitalTextLen caps recital text attached to an article.
	maxRecitalTextLen = 500

	// maxSearchTextLen caps provision text in search matches.
	maxSearchTextLen = 300

	// defaultSearchLimit is the match cap when the filter leaves it unset.
	defaultSearchLimit = 10
)

// =============================================================================
// LocalStore
// =============================================================================

// LocalStore serves all knowledge queries from an in-memory corpus.
//
// # Description
//
// The corpus loads once at construction, from TERE4AI_CORPUS_PATH when set
// and the embedded copy otherwise. A CorpusWatcher may swap in a reloaded
// corpus at any time; the RWMutex makes the swap safe against concurrent
// queries.
type LocalStore struct {
	mu     sync.RWMutex
	corpus *Corpus
}

// Verify interface compliance at compile time.
var _ Store = (*LocalStore)(nil)

// NewLocalStore builds a store from TERE4AI_CORPUS_PATH when the variable
// is set, falling back to the corpus compiled into the binary.
func NewLocalStore() (*LocalStore, error) {
	if path := os.Getenv(CorpusPathEnv); path != "" {
		corpus, err := LoadCorpusFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading corpus override: %w", err)
		}
		slog.Info("Loaded corpus override",
			slog.String("path", path),
			slog.Int("articles", len(corpus.Articles)))
		return &LocalStore{corpus: corpus}, nil
	}

	corpus, err := LoadEmbeddedCorpus()
	if err != nil {
		return nil, fmt.Errorf("loading embedded corpus: %w", err)
	}
	return &LocalStore{corpus: corpus}, nil
}

// NewLocalStoreFromCorpus wraps an already-loaded corpus.
func NewLocalStoreFromCorpus(corpus *Corpus) *LocalStore {
	return &LocalStore{corpus: corpus}
}

// snapshot returns the current corpus for a read operation.
func (s *LocalStore) snapshot() *Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

// swap replaces the corpus. Queries in flight keep the corpus they
// snapshotted.
func (s *LocalStore) swap(corpus *Corpus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = corpus
}

// =============================================================================
// Store Implementation
// =============================================================================

// Classify runs the deterministic risk rules over the extracted features.
func (s *LocalStore) Classify(ctx context.Context, features model.SystemFeatures) (*model.Classification, error) {
	_, span := knowledgeTracer.Start(ctx, "knowledge.Classify")
	defer span.End()

	result := classifySystem(s.snapshot(), features)

	span.SetAttributes(
		attribute.String("domain", features.Domain),
		attribute.String("risk_level", string(result.RiskLevel)),
	)
	classificationsTotal.WithLabelValues(string(result.RiskLevel)).Inc()

	return result, nil
}

// ApplicableArticles expands a risk level into article summaries.
//
// High risk yields Articles 8-27 (Chapter III, Sections 2 and 3), limited
// risk yields Article 50, and the other levels yield nothing. Article
// numbers missing from the corpus produce a titled skeleton so requirement
// generation degrades instead of failing.
func (s *LocalStore) ApplicableArticles(ctx context.Context, level model.RiskLevel, annexCategory string) ([]model.ArticleSummary, error) {
	_, span := knowledgeTracer.Start(ctx, "knowledge.ApplicableArticles")
	defer span.End()

	var numbers []int
	switch level {
	case model.RiskHigh:
		for n := 8; n <= 27; n++ {
			numbers = append(numbers, n)
		}
	case model.RiskLimited:
		numbers = []int{50}
	}

	corpus := s.snapshot()
	summaries := make([]model.ArticleSummary, 0, len(numbers))
	for _, num := range numbers {
		summaries = append(summaries, corpus.articleSummary(num))
	}

	span.SetAttributes(
		attribute.String("risk_level", string(level)),
		attribute.Int("article_count", len(summaries)),
	)
	return summaries, nil
}

// ArticleDetail returns the full citation bundle for one article: text,
// paragraph structure, supporting recitals, and HLEG mappings. Unknown
// article numbers return ErrArticleNotFound.
func (s *LocalStore) ArticleDetail(ctx context.Context, number int) (*model.Article, error) {
	_, span := knowledgeTracer.Start(ctx, "knowledge.ArticleDetail")
	defer span.End()
	span.SetAttributes(attribute.Int("article", number))

	corpus := s.snapshot()
	art := corpus.article(number)
	if art == nil {
		return nil, fmt.Errorf("article %d: %w", number, ErrArticleNotFound)
	}

	return &model.Article{
		Number:       art.Number,
		Title:        art.Title,
		FullText:     art.fullText(),
		Paragraphs:   modelParagraphs(art.Paragraphs),
		Recitals:     corpus.recitalsFor(number),
		HLEGMappings: corpus.hlegMappingsFor(number),
		Section:      sectionForArticle(number),
		Category:     categoryForArticle(number),
	}, nil
}

// PrincipleCoverage maps a set of articles onto the seven HLEG principles.
func (s *LocalStore) PrincipleCoverage(ctx context.Context, articles []int) (*model.HLEGCoverage, error) {
	_, span := knowledgeTracer.Start(ctx, "knowledge.PrincipleCoverage")
	defer span.End()

	coverage := s.snapshot().principleCoverage(articles)

	span.SetAttributes(
		attribute.Int("article_count", len(articles)),
		attribute.Float64("coverage", coverage.Coverage),
	)
	return coverage, nil
}

// Search performs case-insensitive keyword search over articles, recitals,
// and HLEG requirements, in that fill order.
func (s *LocalStore) Search(ctx context.Context, query string, filters *model.SearchFilters) (*model.SearchResult, error) {
	_, span := knowledgeTracer.Start(ctx, "knowledge.Search")
	defer span.End()

	result := s.snapshot().search(query, filters)

	source := model.SearchSourceAll
	if filters != nil && filters.Source != "" {
		source = filters.Source
	}
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("matches", result.TotalMatches),
	)
	legalSearchesTotal.WithLabelValues(source).Inc()

	return result, nil
}

// =============================================================================
// Corpus Queries
// =============================================================================

// articleSummary builds the light article view, with a skeleton for
// numbers missing from the corpus.
func (c *Corpus) articleSummary(number int) model.ArticleSummary {
	summary := model.ArticleSummary{
		Number:     number,
		Title:      fmt.Sprintf("Article %d", number),
		Section:    sectionForArticle(number),
		Paragraphs: []model.Paragraph{},
		Category:   categoryForArticle(number),
	}

	art := c.article(number)
	if art == nil {
		slog.Debug("No corpus entry for article, using skeleton", slog.Int("article", number))
		return summary
	}

	if art.Title != "" {
		summary.Title = art.Title
	}
	summary.Paragraphs = modelParagraphs(art.Paragraphs)
	return summary
}

// recitalsFor returns the recitals that reference the article by number,
// ordered by recital number, capped at maxSupportingRecitals.
func (c *Corpus) recitalsFor(number int) []model.RecitalRef {
	var matched []CorpusRecital
	for _, r := range c.Recitals {
		if mentionsArticle(r.Text, number) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Number < matched[j].Number })

	if len(matched) > maxSupportingRecitals {
		matched = matched[:maxSupportingRecitals]
	}

	out := make([]model.RecitalRef, 0, len(matched))
	for _, r := range matched {
		out = append(out, model.RecitalRef{
			Number: r.Number,
			Text:   truncate(r.Text, maxRecitalTextLen),
		})
	}
	return out
}

// hlegMappingsFor returns the article's HLEG mappings, one per principle.
func (c *Corpus) hlegMappingsFor(number int) []model.HLEGMapping {
	seen := make(map[string]bool)
	var out []model.HLEGMapping
	for _, m := range c.mappingsByArticle[number] {
		if seen[m.Principle] {
			continue
		}
		seen[m.Principle] = true
		out = append(out, model.HLEGMapping{
			RequirementID:   m.Principle,
			RequirementName: c.principleName(m.Principle),
			Relevance:       m.Relevance,
			Rationale:       m.Rationale,
			Subtopics:       m.Subtopics,
		})
	}
	return out
}

// principleCoverage aggregates the HLEG mappings of the given articles into
// a coverage matrix. Coverage is covered principles over the canonical
// seven, in [0, 1].
func (c *Corpus) principleCoverage(articles []int) *model.HLEGCoverage {
	wanted := make(map[int]bool, len(articles))
	for _, n := range articles {
		wanted[n] = true
	}

	principles := make(map[string]model.PrincipleCoverageEntry)
	subtopicSets := make(map[string]map[string]bool)
	total := 0

	for _, m := range c.ArticleMappings {
		if !wanted[m.Article] {
			continue
		}

		entry, ok := principles[m.Principle]
		if !ok {
			entry = model.PrincipleCoverageEntry{Name: c.principleName(m.Principle)}
			subtopicSets[m.Principle] = make(map[string]bool)
		}
		if !containsInt(entry.Articles, m.Article) {
			entry.Articles = append(entry.Articles, m.Article)
		}
		if m.Relevance > entry.MaxRelevance {
			entry.MaxRelevance = m.Relevance
		}
		for _, st := range m.Subtopics {
			subtopicSets[m.Principle][st] = true
		}
		principles[m.Principle] = entry
		total++
	}

	for id, set := range subtopicSets {
		entry := principles[id]
		entry.Subtopics = sortedKeys(set)
		principles[id] = entry
	}

	uncovered := []string{}
	for _, pid := range model.CanonicalHLEGPrincipleIDs {
		if _, ok := principles[pid]; !ok {
			uncovered = append(uncovered, pid)
		}
	}

	return &model.HLEGCoverage{
		Principles:          principles,
		Coverage:            float64(len(principles)) / float64(len(model.CanonicalHLEGPrincipleIDs)),
		UncoveredPrinciples: uncovered,
		TotalMappings:       total,
	}
}

// search runs the keyword scan. Articles fill first, then recitals, then
// HLEG requirements, each consuming what remains of the limit.
func (c *Corpus) search(query string, filters *model.SearchFilters) *model.SearchResult {
	source := model.SearchSourceAll
	limit := defaultSearchLimit
	var articleRange []int
	if filters != nil {
		if filters.Source != "" {
			source = filters.Source
		}
		if filters.Limit > 0 {
			limit = filters.Limit
		}
		if len(filters.ArticleRange) == 2 {
			articleRange = filters.ArticleRange
		}
	}

	q := strings.ToLower(query)
	results := make([]model.SearchMatch, 0, limit)

	if source == model.SearchSourceEUAIAct || source == model.SearchSourceAll {
		for _, art := range c.Articles {
			if len(results) >= limit {
				break
			}
			if articleRange != nil && (art.Number < articleRange[0] || art.Number > articleRange[1]) {
				continue
			}
			for _, p := range art.Paragraphs {
				if len(results) >= limit {
					break
				}
				if !strings.Contains(strings.ToLower(p.Text), q) {
					continue
				}
				results = append(results, model.SearchMatch{
					Type:          "article",
					Reference:     fmt.Sprintf("Article %d(%d)", art.Number, p.Index),
					Text:          truncate(p.Text, maxSearchTextLen),
					ArticleNumber: art.Number,
				})
			}
		}

		for _, r := range c.Recitals {
			if len(results) >= limit {
				break
			}
			if !strings.Contains(strings.ToLower(r.Text), q) {
				continue
			}
			results = append(results, model.SearchMatch{
				Type:          "recital",
				Reference:     fmt.Sprintf("Recital (%d)", r.Number),
				Text:          truncate(r.Text, maxSearchTextLen),
				RecitalNumber: r.Number,
			})
		}
	}

	if source == model.SearchSourceHLEG || source == model.SearchSourceAll {
		for _, p := range c.HLEGPrinciples {
			if len(results) >= limit {
				break
			}
			if !strings.Contains(strings.ToLower(p.ShortDescription), q) &&
				!strings.Contains(strings.ToLower(p.Name), q) {
				continue
			}
			results = append(results, model.SearchMatch{
				Type:          "hleg",
				Reference:     p.Name,
				Text:          p.ShortDescription,
				RequirementID: p.ID,
			})
		}
	}

	return &model.SearchResult{
		Results:      results,
		TotalMatches: len(results),
		Query:        query,
	}
}

// principleName resolves a principle ID to its display name.
func (c *Corpus) principleName(id string) string {
	if p, ok := c.principleIndex[id]; ok {
		return p.Name
	}
	return model.HLEGPrincipleName(id)
}

// =============================================================================
// Helpers
// =============================================================================

// mentionsArticle reports whether text references the article by number.
// A trailing digit means a different article: "Article 5" must not match
// "Article 50".
func mentionsArticle(text string, number int) bool {
	ref := fmt.Sprintf("Article %d", number)
	start := 0
	for {
		i := strings.Index(text[start:], ref)
		if i < 0 {
			return false
		}
		end := start + i + len(ref)
		if end >= len(text) || text[end] < '0' || text[end] > '9' {
			return true
		}
		start = end
	}
}

// modelParagraphs converts corpus paragraphs to the model form.
func modelParagraphs(paragraphs []CorpusParagraph) []model.Paragraph {
	out := make([]model.Paragraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		var points []model.Point
		for _, pt := range p.Points {
			points = append(points, model.Point{Marker: pt.Marker, Text: pt.Text})
		}
		out = append(out, model.Paragraph{Index: p.Index, Text: p.Text, Points: points})
	}
	return out
}

// truncate shortens s to max bytes with an ellipsis marker.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
