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
	"os"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func runExamples(cmd *cobra.Command, args []string) {
	client := newGatewayClient(serverURL, apiKey)
	examples, err := client.Examples(context.Background())
	if err != nil {
		log.Fatalf("Failed to fetch examples: %v", err)
	}

	selected := runExample
	if selected == 0 && isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stderr.Fd()) {
		choice, err := pickExample(examples)
		if err != nil {
			log.Fatalf("Example picker failed: %v", err)
		}
		if choice < 0 {
			return
		}
		selected = choice + 1
	}

	if selected > 0 {
		if selected > len(examples) {
			log.Fatalf("No example %d: the gateway has %d examples", selected, len(examples))
		}
		ex := examples[selected-1]
		fmt.Fprintf(os.Stderr, "%s %s\n",
			dimStyle.Render("Analyzing example:"), titleStyle.Render(ex.Name))
		runAnalysisAndRender(ex.Description, "")
		return
	}

	for i, ex := range examples {
		fmt.Printf("%s %s  %s\n",
			titleStyle.Render(fmt.Sprintf("%d.", i+1)),
			titleStyle.Render(ex.Name),
			renderRiskBadge(model.RiskLevel(ex.ExpectedRiskLevel)))
		fmt.Printf("   %s\n\n", ex.Description)
	}
	fmt.Println(dimStyle.Render("Analyze one with: tere4ai examples --run N"))
}
