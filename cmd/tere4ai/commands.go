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
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL    string
	apiKey       string
	extraContext string
	outputFormat string
	outputPath   string
	runExample   int
	listLimit    int
	weaviateURL  string

	rootCmd = &cobra.Command{
		Use:   "tere4ai",
		Short: "A cli for EU AI Act requirements analysis",
		Long: `tere4ai turns a plain-language description of an AI system into
				a traceable set of EU AI Act requirements. Describe the system,
				get its risk classification, and receive requirements with
				article-level citations.`,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [description-file]",
		Short: "Analyze an AI system description against the EU AI Act",
		Long: `analyze submits a system description to the gateway and follows the
				run until the report is ready. The description comes from a file
				argument, from stdin when piped (or when the argument is "-"),
				or from an interactive form when run in a terminal.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runAnalyze, // Defined in analyze.go
	}

	examplesCmd = &cobra.Command{
		Use:   "examples",
		Short: "List the bundled example systems, or analyze one with --run",
		Long: `examples shows the example systems bundled with the gateway. In a
				terminal it opens an interactive picker and analyzes the selected
				system; when piped it prints the list. --run N skips the picker.`,
		Run: runExamples, // Defined in examples.go
	}

	reportCmd = &cobra.Command{
		Use:   "report [report-id]",
		Short: "Show an archived report, or list recent reports when no ID is given",
		Args:  cobra.MaximumNArgs(1),
		Run:   runReport, // Defined in report.go
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest [corpus-file]",
		Short: "Load the regulatory corpus into Weaviate for hybrid search",
		Args:  cobra.MaximumNArgs(1),
		Run:   runIngest, // Defined in ingest.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show client and server versions",
		Run:   runVersion, // Defined in version.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:12280",
		"Base URL of the TERE4AI gateway")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("TERE4AI_API_KEY"),
		"API key for the gateway (defaults to TERE4AI_API_KEY)")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&extraContext, "context", "",
		"Additional context to clarify the description")
	analyzeCmd.Flags().StringVarP(&outputFormat, "format", "f", "markdown",
		"Report output format: markdown or json")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write the report to a file instead of stdout")

	rootCmd.AddCommand(examplesCmd)
	examplesCmd.Flags().IntVar(&runExample, "run", 0,
		"Analyze example N from the list instead of printing it")

	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&outputFormat, "format", "f", "markdown",
		"Report output format: markdown or json")
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write the report to a file instead of stdout")
	reportCmd.Flags().IntVar(&listLimit, "limit", 10,
		"Number of reports to list when no ID is given")

	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&weaviateURL, "weaviate", defaultWeaviateURL(),
		"Weaviate base URL (defaults to TERE4AI_WEAVIATE_URL)")

	rootCmd.AddCommand(versionCmd)
}

// defaultWeaviateURL resolves the ingest target from the environment.
func defaultWeaviateURL() string {
	if url := os.Getenv("TERE4AI_WEAVIATE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
