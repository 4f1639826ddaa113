//go:build ignore

// Test script to exercise the full analysis pipeline against a live LLM
// backend. Run with: go run scripts/test_pipeline.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/AleutianAI/tere4ai/services/gateway/export"
	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/llm"
	"github.com/AleutianAI/tere4ai/services/pipeline"
)

const testDescription = `We are building a CV screening assistant for our HR
department. It reads incoming applications, scores candidates against the job
profile, and ranks them for the recruiter. Recruiters see the ranked list with
score explanations and make the final interview decision themselves. The model
is a gradient boosted classifier trained on five years of hiring outcomes.`

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                 TERE4AI PIPELINE INTEGRATION TEST                 ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")

	// 1. Load the regulatory corpus
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 1: Loading regulatory corpus                               │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	store, err := knowledge.NewLocalStore()
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	fmt.Println("  ✓ Corpus loaded")

	// 2. Connect the LLM backend
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 2: Connecting LLM backend                                  │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	client, err := llm.New(os.Getenv("TERE4AI_LLM_PROVIDER"), os.Getenv("TERE4AI_MODEL"))
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}
	fmt.Println("  ✓ LLM client created")

	// 3. Build the orchestrator
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 3: Building the orchestrator                               │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	orchestrator := pipeline.NewOrchestrator(store, client, pipeline.AgentConfigFromEnv())
	fmt.Println("  ✓ Orchestrator ready")

	// 4. Run the four-phase pipeline on the canned description
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 4: Running the pipeline                                    │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	result := orchestrator.Run(ctx, pipeline.RunInput{
		Description: testDescription,
		Progress: func(phase pipeline.Phase, message string) {
			fmt.Printf("  → %-11s %s\n", string(phase)+":", message)
		},
	})
	if !result.Success {
		log.Fatalf("Pipeline failed: %s", result.Err)
	}
	fmt.Printf("  ✓ Run complete in %dms\n", result.TotalDurationMs)

	// 5. Render the report
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 5: Rendering the report                                    │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	report := result.Report
	riskLevel := "unclassified"
	if report.RiskClassification != nil {
		riskLevel = string(report.RiskClassification.Level)
	}
	fmt.Printf("  ✓ Risk level:       %s\n", riskLevel)
	fmt.Printf("  ✓ Requirements:     %d\n", len(report.Requirements))
	fmt.Printf("  ✓ Article coverage: %.0f%%\n", report.Metrics.ArticleCoverage*100)
	fmt.Println()
	if err := export.WriteMarkdown(os.Stdout, report); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}

	// Summary
	fmt.Println("\n╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    TEST SUMMARY                                   ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════════╣")
	fmt.Println("║  Corpus:           ✓ Loaded                                       ║")
	fmt.Println("║  LLM Backend:      ✓ Connected                                    ║")
	fmt.Println("║  Orchestrator:     ✓ Built                                        ║")
	fmt.Println("║  Pipeline Run:     ✓ Complete                                     ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════════╣")
	fmt.Println("║  Pipeline:         ✓ FULLY OPERATIONAL                            ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
}
