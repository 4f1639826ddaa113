// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains the YAML corpus schema, the embedded default corpus,
// and the loader that parses and indexes a corpus for querying.
package knowledge

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxCorpusFileSize is the maximum allowed corpus file size (4MB).
	MaxCorpusFileSize = 4 * 1024 * 1024

	// CorpusPathEnv names the environment variable that overrides the
	// embedded corpus with an external file.
	CorpusPathEnv = "TERE4AI_CORPUS_PATH"
)

// =============================================================================
// Embedded Default Corpus
// =============================================================================

//go:embed data/corpus.yaml
var embeddedCorpusYAML []byte

// =============================================================================
// YAML Schema
// =============================================================================

// Corpus is the parsed regulatory corpus: EU AI Act provisions, AI HLEG
// principles, and the mappings between them. Construct one through
// LoadEmbeddedCorpus or LoadCorpusFile; the loader builds the lookup
// indexes the query methods rely on. A loaded Corpus is immutable.
type Corpus struct {
	Articles            []CorpusArticle       `yaml:"articles"`
	Recitals            []CorpusRecital       `yaml:"recitals"`
	AnnexIII            []AnnexSection        `yaml:"annex_iii"`
	ProhibitedPractices []ProhibitedProvision `yaml:"prohibited_practices"`
	HLEGPrinciples      []HLEGPrinciple       `yaml:"hleg_principles"`
	ArticleMappings     []ArticleHLEGMapping  `yaml:"article_hleg_mappings"`

	articleIndex      map[int]*CorpusArticle
	annexIndex        map[string]*AnnexSection
	prohibitedIndex   map[string]*ProhibitedProvision
	principleIndex    map[string]*HLEGPrinciple
	mappingsByArticle map[int][]ArticleHLEGMapping
}

// CorpusArticle is one EU AI Act article in the corpus file.
type CorpusArticle struct {
	Number     int               `yaml:"number"`
	Title      string            `yaml:"title"`
	Paragraphs []CorpusParagraph `yaml:"paragraphs"`
}

// CorpusParagraph is one numbered paragraph with optional lettered points.
type CorpusParagraph struct {
	Index  int           `yaml:"index"`
	Text   string        `yaml:"text"`
	Points []CorpusPoint `yaml:"points,omitempty"`
}

// CorpusPoint is one lettered point of a paragraph.
type CorpusPoint struct {
	Marker string `yaml:"marker"`
	Text   string `yaml:"text"`
}

// CorpusRecital is one recital of the Act's preamble.
type CorpusRecital struct {
	Number int    `yaml:"number"`
	Text   string `yaml:"text"`
}

// AnnexSection is one Annex III high-risk area, keyed by its section
// identifier ("1" through "8", plus detail entries such as "5_a").
type AnnexSection struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// ProhibitedProvision is one Article 5(1) prohibition, keyed by its point
// identifier ("1_a", "1_c", "1_f", "1_h").
type ProhibitedProvision struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// HLEGPrinciple is one of the seven trustworthy-AI requirements from the
// 2019 AI HLEG ethics guidelines.
type HLEGPrinciple struct {
	ID               string         `yaml:"id"`
	Order            int            `yaml:"order"`
	Name             string         `yaml:"name"`
	ShortDescription string         `yaml:"short_description"`
	Subtopics        []HLEGSubtopic `yaml:"subtopics"`
}

// HLEGSubtopic is one named subtopic under an HLEG principle.
type HLEGSubtopic struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// ArticleHLEGMapping aligns one article with one HLEG principle.
// Subtopics carry the subtopic labels the alignment touches.
type ArticleHLEGMapping struct {
	Article   int      `yaml:"article"`
	Principle string   `yaml:"principle"`
	Relevance float64  `yaml:"relevance"`
	Rationale string   `yaml:"rationale"`
	Subtopics []string `yaml:"subtopics"`
}

// =============================================================================
// Loading
// =============================================================================

// LoadEmbeddedCorpus parses the corpus compiled into the binary.
func LoadEmbeddedCorpus() (*Corpus, error) {
	return parseCorpus(embeddedCorpusYAML)
}

// LoadCorpusFile parses a corpus from an external YAML file. The path is
// resolved to an absolute path and the file size is capped at
// MaxCorpusFileSize before reading.
func LoadCorpusFile(path string) (*Corpus, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving corpus path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat corpus file: %w", err)
	}
	if info.Size() > MaxCorpusFileSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes (max %d)",
			ErrCorpusInvalid, info.Size(), MaxCorpusFileSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	return parseCorpus(data)
}

// parseCorpus unmarshals corpus YAML, validates it, and builds the lookup
// indexes.
func parseCorpus(data []byte) (*Corpus, error) {
	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling YAML: %v", ErrCorpusInvalid, err)
	}

	if len(corpus.Articles) == 0 {
		return nil, fmt.Errorf("%w: no articles", ErrCorpusInvalid)
	}
	if len(corpus.HLEGPrinciples) != len(model.CanonicalHLEGPrincipleIDs) {
		return nil, fmt.Errorf("%w: expected %d HLEG principles, got %d",
			ErrCorpusInvalid, len(model.CanonicalHLEGPrincipleIDs), len(corpus.HLEGPrinciples))
	}

	corpus.articleIndex = make(map[int]*CorpusArticle, len(corpus.Articles))
	for i := range corpus.Articles {
		art := &corpus.Articles[i]
		if art.Number <= 0 {
			return nil, fmt.Errorf("%w: article at index %d has non-positive number %d",
				ErrCorpusInvalid, i, art.Number)
		}
		if _, dup := corpus.articleIndex[art.Number]; dup {
			return nil, fmt.Errorf("%w: duplicate article %d", ErrCorpusInvalid, art.Number)
		}
		corpus.articleIndex[art.Number] = art
	}

	corpus.annexIndex = make(map[string]*AnnexSection, len(corpus.AnnexIII))
	for i := range corpus.AnnexIII {
		corpus.annexIndex[corpus.AnnexIII[i].ID] = &corpus.AnnexIII[i]
	}

	corpus.prohibitedIndex = make(map[string]*ProhibitedProvision, len(corpus.ProhibitedPractices))
	for i := range corpus.ProhibitedPractices {
		corpus.prohibitedIndex[corpus.ProhibitedPractices[i].ID] = &corpus.ProhibitedPractices[i]
	}

	corpus.principleIndex = make(map[string]*HLEGPrinciple, len(corpus.HLEGPrinciples))
	for i := range corpus.HLEGPrinciples {
		p := &corpus.HLEGPrinciples[i]
		if !model.IsCanonicalHLEGPrincipleID(p.ID) {
			return nil, fmt.Errorf("%w: unknown HLEG principle %q", ErrCorpusInvalid, p.ID)
		}
		if _, dup := corpus.principleIndex[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate HLEG principle %q", ErrCorpusInvalid, p.ID)
		}
		corpus.principleIndex[p.ID] = p
	}

	corpus.mappingsByArticle = make(map[int][]ArticleHLEGMapping)
	for i, m := range corpus.ArticleMappings {
		if !model.IsCanonicalHLEGPrincipleID(m.Principle) {
			return nil, fmt.Errorf("%w: mapping at index %d references unknown principle %q",
				ErrCorpusInvalid, i, m.Principle)
		}
		if _, ok := corpus.articleIndex[m.Article]; !ok {
			return nil, fmt.Errorf("%w: mapping at index %d references unknown article %d",
				ErrCorpusInvalid, i, m.Article)
		}
		principle := corpus.principleIndex[m.Principle]
		for _, label := range m.Subtopics {
			if !principle.hasSubtopicLabel(label) {
				slog.Warn("mapping references subtopic not defined under principle",
					slog.Int("article", m.Article),
					slog.String("principle", m.Principle),
					slog.String("subtopic", label))
			}
		}
		corpus.mappingsByArticle[m.Article] = append(corpus.mappingsByArticle[m.Article], m)
	}

	return &corpus, nil
}

func (p *HLEGPrinciple) hasSubtopicLabel(label string) bool {
	for _, st := range p.Subtopics {
		if st.Label == label {
			return true
		}
	}
	return false
}

// =============================================================================
// Corpus Lookups
// =============================================================================

// article returns the corpus article by number, or nil.
func (c *Corpus) article(number int) *CorpusArticle {
	return c.articleIndex[number]
}

// prohibitedText returns the provision text for an Article 5(1) point
// identifier.
func (c *Corpus) prohibitedText(id string) string {
	if p, ok := c.prohibitedIndex[id]; ok {
		return p.Text
	}
	return "Prohibited practice under Article 5."
}

// annexText returns the descriptive text for an Annex III section
// identifier.
func (c *Corpus) annexText(id string) string {
	if s, ok := c.annexIndex[id]; ok {
		return s.Text
	}
	return fmt.Sprintf("High-risk category %s", id)
}

// article50Text returns the first paragraph of Article 50, the canonical
// statement of the transparency obligation.
func (c *Corpus) article50Text() string {
	if art := c.article(50); art != nil && len(art.Paragraphs) > 0 {
		return art.Paragraphs[0].Text
	}
	return "Providers shall ensure that AI systems intended to interact directly with " +
		"natural persons are designed and developed in such a way that the natural " +
		"persons concerned are informed that they are interacting with an AI system..."
}

// fullText joins an article's paragraph texts.
func (a *CorpusArticle) fullText() string {
	texts := make([]string, 0, len(a.Paragraphs))
	for _, p := range a.Paragraphs {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// =============================================================================
// Section and Category Tables
// =============================================================================

// sectionForArticle names the chapter/section an article belongs to.
func sectionForArticle(num int) string {
	switch {
	case num <= 7:
		return "Chapter I - General Provisions"
	case num >= 8 && num <= 15:
		return "Chapter III, Section 2 - Requirements for high-risk AI systems"
	case num >= 16 && num <= 27:
		return "Chapter III, Section 3 - Obligations of providers and deployers"
	case num >= 28 && num <= 39:
		return "Chapter III, Section 4 - Notifying authorities and notified bodies"
	case num >= 40 && num <= 49:
		return "Chapter III, Section 5 - Standards, conformity assessment"
	case num == 50:
		return "Chapter IV - Transparency obligations"
	default:
		return "Other"
	}
}

// articleCategories maps article numbers to requirement categories.
var articleCategories = map[int]string{
	8:  "general_requirements",
	9:  "risk_management",
	10: "data_governance",
	11: "documentation",
	12: "record_keeping",
	13: "transparency",
	14: "human_oversight",
	15: "accuracy_robustness",
	16: "provider_obligations",
	17: "provider_obligations",
	18: "provider_obligations",
	19: "provider_obligations",
	20: "provider_obligations",
	21: "provider_obligations",
	22: "provider_obligations",
	23: "importer_obligations",
	24: "distributor_obligations",
	25: "product_integration",
	26: "deployer_obligations",
	27: "deployer_obligations",
	50: "transparency_limited",
}

// categoryForArticle names the requirement category for an article.
func categoryForArticle(num int) string {
	if cat, ok := articleCategories[num]; ok {
		return cat
	}
	return "general"
}
