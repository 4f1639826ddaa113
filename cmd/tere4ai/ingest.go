// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/spf13/cobra"
)

// runIngest loads the regulatory corpus into Weaviate. Talks to the
// database directly rather than through the gateway, so it works
// before the gateway is up.
func runIngest(cmd *cobra.Command, args []string) {
	corpus, err := loadIngestCorpus(args)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	fmt.Printf("Loaded corpus: %d articles, %d recitals, %d HLEG principles\n",
		len(corpus.Articles), len(corpus.Recitals), len(corpus.HLEGPrinciples))

	client, err := knowledge.NewWeaviateClient(weaviateURL)
	if err != nil {
		log.Fatalf("Failed to connect to Weaviate at %s: %v", weaviateURL, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := SpinWhile("Checking LegalProvision schema", func() error {
		return knowledge.EnsureSchema(ctx, client)
	}); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	var count int
	if err := SpinWhile("Ingesting provisions", func() error {
		var ingestErr error
		count, ingestErr = knowledge.IngestCorpus(ctx, client, corpus)
		return ingestErr
	}); err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("%s\n", successStyle.Render(
		fmt.Sprintf("Ingested %d provision chunks into %s", count, weaviateURL)))
}

// loadIngestCorpus reads the corpus from the file argument, or falls
// back to the embedded corpus.
func loadIngestCorpus(args []string) (*knowledge.Corpus, error) {
	if len(args) == 1 {
		return knowledge.LoadCorpusFile(args[0])
	}
	return knowledge.LoadEmbeddedCorpus()
}
