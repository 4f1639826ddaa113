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

	"github.com/spf13/cobra"
)

func runReport(cmd *cobra.Command, args []string) {
	client := newGatewayClient(serverURL, apiKey)
	ctx := context.Background()

	if len(args) == 0 {
		listReports(ctx, client)
		return
	}

	report, err := client.GetReport(ctx, args[0])
	if err != nil {
		log.Fatalf("Failed to fetch report %s: %v", args[0], err)
	}
	renderReport(report)
}

// listReports prints recent archive entries, newest first.
func listReports(ctx context.Context, client *gatewayClient) {
	summaries, err := client.ListReports(ctx, listLimit)
	if err != nil {
		log.Fatalf("Failed to list reports: %v", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No archived reports yet. Run an analysis first: tere4ai analyze")
		return
	}

	fmt.Printf("%-38s %-17s %-28s %-13s %s\n",
		"REPORT ID", "GENERATED", "SYSTEM", "RISK", "REQS")
	for _, s := range summaries {
		fmt.Printf("%-38s %-17s %-28s %-13s %d\n",
			s.ReportID,
			s.GeneratedAt.Local().Format("2006-01-02 15:04"),
			truncate(s.SystemName, 28),
			s.RiskLevel,
			s.RequirementCount)
	}
	fmt.Println(dimStyle.Render("\nShow one with: tere4ai report <report-id>"))
}

// truncate shortens s to max characters with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
