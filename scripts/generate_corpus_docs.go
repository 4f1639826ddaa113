// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// generate_corpus_docs generates a markdown reference from the embedded
// regulatory corpus.
//
// Usage:
//
//	go run scripts/generate_corpus_docs.go > docs/corpus_reference.md
//
// The generated documentation includes:
//   - Article inventory grouped by chapter
//   - Annex III high-risk areas and Article 5 prohibitions
//   - HLEG principles with their subtopics
//   - The article-to-principle alignment table
//   - Summary statistics
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/tere4ai/services/knowledge"
)

// ArticleChapter represents one chapter grouping of articles.
type ArticleChapter struct {
	Name        string
	Description string
	Articles    []knowledge.CorpusArticle
}

func main() {
	corpus, err := knowledge.LoadEmbeddedCorpus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading embedded corpus: %v\n", err)
		os.Exit(1)
	}

	chapters := groupByChapter(corpus.Articles)
	generateMarkdown(corpus, chapters)
}

// groupByChapter buckets articles into the Act's chapter structure.
func groupByChapter(articles []knowledge.CorpusArticle) []ArticleChapter {
	chapterMap := map[string]*ArticleChapter{
		"general": {
			Name:        "Chapter I - General Provisions",
			Description: "Scope, definitions, and AI literacy obligations that apply regardless of risk level.",
		},
		"requirements": {
			Name:        "Chapter III, Section 2 - Requirements for High-Risk AI Systems",
			Description: "The substantive requirements a high-risk system must satisfy before it is placed on the market.",
		},
		"obligations": {
			Name:        "Chapter III, Section 3 - Obligations of Operators",
			Description: "What providers, importers, distributors, and deployers of high-risk systems must each do.",
		},
		"transparency": {
			Name:        "Chapter IV - Transparency Obligations",
			Description: "Disclosure duties for systems that interact with people or generate synthetic content.",
		},
		"other": {
			Name:        "Other Provisions",
			Description: "Articles outside the chapters above that the corpus carries for citation purposes.",
		},
	}

	for _, article := range articles {
		switch {
		case article.Number <= 7:
			chapterMap["general"].Articles = append(chapterMap["general"].Articles, article)
		case article.Number >= 8 && article.Number <= 15:
			chapterMap["requirements"].Articles = append(chapterMap["requirements"].Articles, article)
		case article.Number >= 16 && article.Number <= 27:
			chapterMap["obligations"].Articles = append(chapterMap["obligations"].Articles, article)
		case article.Number == 50:
			chapterMap["transparency"].Articles = append(chapterMap["transparency"].Articles, article)
		default:
			chapterMap["other"].Articles = append(chapterMap["other"].Articles, article)
		}
	}

	order := []string{"general", "requirements", "obligations", "transparency", "other"}

	var result []ArticleChapter
	for _, key := range order {
		chapter := chapterMap[key]
		if len(chapter.Articles) == 0 {
			continue
		}
		sort.Slice(chapter.Articles, func(i, j int) bool {
			return chapter.Articles[i].Number < chapter.Articles[j].Number
		})
		result = append(result, *chapter)
	}

	return result
}

// generateMarkdown outputs the full markdown documentation.
func generateMarkdown(corpus *knowledge.Corpus, chapters []ArticleChapter) {
	fmt.Println("# EU AI Act Corpus Reference")
	fmt.Println()
	fmt.Println("## Overview")
	fmt.Println()
	fmt.Println("This document provides a reference for the regulatory corpus embedded in the TERE4AI gateway.")
	fmt.Println("The corpus source lives in `services/knowledge/data/corpus.yaml` and is compiled into the")
	fmt.Println("binary; set `TERE4AI_CORPUS_PATH` to load an external copy at runtime instead.")
	fmt.Println()
	fmt.Printf("**Generated:** %s\n", time.Now().Format("2006-01-02 15:04:05 UTC"))
	fmt.Println()

	// Statistics
	totalParagraphs := 0
	totalPoints := 0
	for _, article := range corpus.Articles {
		totalParagraphs += len(article.Paragraphs)
		for _, paragraph := range article.Paragraphs {
			totalPoints += len(paragraph.Points)
		}
	}

	fmt.Println("## Summary Statistics")
	fmt.Println()
	fmt.Println("| Metric | Count |")
	fmt.Println("|--------|-------|")
	fmt.Printf("| Articles | %d |\n", len(corpus.Articles))
	fmt.Printf("| Article Paragraphs | %d |\n", totalParagraphs)
	fmt.Printf("| Lettered Points | %d |\n", totalPoints)
	fmt.Printf("| Recitals | %d |\n", len(corpus.Recitals))
	fmt.Printf("| Annex III Sections | %d |\n", len(corpus.AnnexIII))
	fmt.Printf("| Prohibited Practices | %d |\n", len(corpus.ProhibitedPractices))
	fmt.Printf("| HLEG Principles | %d |\n", len(corpus.HLEGPrinciples))
	fmt.Printf("| Article-HLEG Mappings | %d |\n", len(corpus.ArticleMappings))
	fmt.Println()

	// Table of contents
	fmt.Println("## Table of Contents")
	fmt.Println()
	for i, chapter := range chapters {
		fmt.Printf("%d. [%s](#%s)\n", i+1, chapter.Name, anchorFor(chapter.Name))
	}
	fmt.Printf("%d. [Annex III High-Risk Areas](#annex-iii-high-risk-areas)\n", len(chapters)+1)
	fmt.Printf("%d. [Prohibited Practices](#prohibited-practices)\n", len(chapters)+2)
	fmt.Printf("%d. [HLEG Principles](#hleg-principles)\n", len(chapters)+3)
	fmt.Printf("%d. [Article to Principle Alignment](#article-to-principle-alignment)\n", len(chapters)+4)
	fmt.Printf("%d. [Recitals](#recitals)\n", len(chapters)+5)
	fmt.Println()

	// Article inventory per chapter
	fmt.Println("---")
	fmt.Println()
	for _, chapter := range chapters {
		fmt.Printf("## %s\n", chapter.Name)
		fmt.Println()
		fmt.Println(chapter.Description)
		fmt.Println()
		fmt.Println("| Article | Title | Paragraphs | Points |")
		fmt.Println("|---------|-------|------------|--------|")
		for _, article := range chapter.Articles {
			points := 0
			for _, paragraph := range article.Paragraphs {
				points += len(paragraph.Points)
			}
			fmt.Printf("| %d | %s | %d | %d |\n",
				article.Number,
				article.Title,
				len(article.Paragraphs),
				points,
			)
		}
		fmt.Println()
	}

	// Annex III
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Annex III High-Risk Areas")
	fmt.Println()
	fmt.Println("Systems falling under these areas are classified high-risk under Article 6(2) unless the")
	fmt.Println("Article 6(3) derogation applies. Lettered entries are the detail provisions the classifier")
	fmt.Println("cites for specific use cases.")
	fmt.Println()
	fmt.Println("| Section | Title | Excerpt |")
	fmt.Println("|---------|-------|---------|")
	for _, section := range corpus.AnnexIII {
		fmt.Printf("| %s | %s | %s |\n", section.ID, section.Title, excerpt(section.Text, 90))
	}
	fmt.Println()

	// Prohibited practices
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Prohibited Practices")
	fmt.Println()
	fmt.Println("Article 5(1) provisions. A system matching one of these is classified unacceptable and the")
	fmt.Println("pipeline stops after classification instead of generating requirements.")
	fmt.Println()
	fmt.Println("| Provision | Label | Excerpt |")
	fmt.Println("|-----------|-------|---------|")
	for _, provision := range corpus.ProhibitedPractices {
		fmt.Printf("| 5(%s) | %s | %s |\n",
			strings.ReplaceAll(provision.ID, "_", ")("),
			provision.Label,
			excerpt(provision.Text, 90),
		)
	}
	fmt.Println()

	// HLEG principles
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## HLEG Principles")
	fmt.Println()
	fmt.Println("The seven requirements for trustworthy AI from the 2019 AI HLEG ethics guidelines. The")
	fmt.Println("specifier attaches these as secondary citations next to the binding EU AI Act articles.")
	fmt.Println()

	principles := make([]knowledge.HLEGPrinciple, len(corpus.HLEGPrinciples))
	copy(principles, corpus.HLEGPrinciples)
	sort.Slice(principles, func(i, j int) bool { return principles[i].Order < principles[j].Order })

	for _, principle := range principles {
		fmt.Printf("### %d. %s\n", principle.Order, principle.Name)
		fmt.Println()
		fmt.Println(principle.ShortDescription)
		fmt.Println()
		if len(principle.Subtopics) > 0 {
			labels := make([]string, 0, len(principle.Subtopics))
			for _, subtopic := range principle.Subtopics {
				labels = append(labels, subtopic.Label)
			}
			fmt.Printf("**Subtopics:** %s\n", strings.Join(labels, ", "))
			fmt.Println()
		}
	}

	// Article-HLEG alignment
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Article to Principle Alignment")
	fmt.Println()
	fmt.Println("This table maps each article to the principles it serves. Relevance is the weight the")
	fmt.Println("specifier uses when picking the principle to cite alongside an article.")
	fmt.Println()

	mappings := make([]knowledge.ArticleHLEGMapping, len(corpus.ArticleMappings))
	copy(mappings, corpus.ArticleMappings)
	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].Article != mappings[j].Article {
			return mappings[i].Article < mappings[j].Article
		}
		return mappings[i].Relevance > mappings[j].Relevance
	})

	fmt.Println("| Article | Principle | Relevance | Subtopics |")
	fmt.Println("|---------|-----------|-----------|-----------|")
	for _, mapping := range mappings {
		fmt.Printf("| %d | %s | %.2f | %s |\n",
			mapping.Article,
			mapping.Principle,
			mapping.Relevance,
			strings.Join(mapping.Subtopics, ", "),
		)
	}
	fmt.Println()

	// Recitals
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Recitals")
	fmt.Println()
	fmt.Println("Preamble recitals the corpus carries as supporting citations.")
	fmt.Println()
	fmt.Println("| Recital | Excerpt |")
	fmt.Println("|---------|---------|")
	for _, recital := range corpus.Recitals {
		fmt.Printf("| %d | %s |\n", recital.Number, excerpt(recital.Text, 120))
	}
	fmt.Println()
}

// anchorFor converts a heading into its markdown anchor.
func anchorFor(heading string) string {
	anchor := strings.ToLower(heading)
	anchor = strings.ReplaceAll(anchor, ",", "")
	anchor = strings.ReplaceAll(anchor, " - ", "---")
	anchor = strings.ReplaceAll(anchor, " ", "-")
	return anchor
}

// excerpt flattens text to a single line and truncates it for table cells.
func excerpt(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	flat = strings.ReplaceAll(flat, "|", "\\|")
	if len(flat) <= limit {
		return flat
	}
	return flat[:limit] + "..."
}
