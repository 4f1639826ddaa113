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
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/gateway/export"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// reportFetchRetries bounds the wait between the final progress frame
// and the report endpoint turning ready.
const reportFetchRetries = 10

func runAnalyze(cmd *cobra.Command, args []string) {
	description, err := readDescription(args)
	if err != nil {
		log.Fatalf("Failed to read system description: %v", err)
	}

	runAnalysisAndRender(description, extraContext)
}

// runAnalysisAndRender submits a description, follows the run to
// completion, and renders the report. Shared by "analyze" and
// "examples --run".
func runAnalysisAndRender(description, additionalContext string) {
	description = strings.TrimSpace(description)
	if len(description) < datatypes.MinDescriptionLen {
		log.Fatalf("Description too short: need at least %d characters, got %d",
			datatypes.MinDescriptionLen, len(description))
	}

	client := newGatewayClient(serverURL, apiKey)
	ctx := context.Background()

	accepted, err := client.StartAnalysis(ctx, description, additionalContext)
	if err != nil {
		log.Fatalf("Failed to start analysis: %v", err)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n",
		dimStyle.Render("Analysis started, job"), accepted.JobID)

	if err := watchJob(ctx, client, accepted.JobID); err != nil {
		log.Fatalf("Failed while following analysis: %v", err)
	}

	report, err := fetchReport(ctx, client, accepted.JobID)
	if err != nil {
		log.Fatalf("Failed to fetch report: %v", err)
	}

	if len(report.ProcessingErrors) > 0 {
		fmt.Fprintf(os.Stderr, "%s\n", errorStyle.Render("Analysis failed:"))
		for _, procErr := range report.ProcessingErrors {
			fmt.Fprintf(os.Stderr, "  %s\n", procErr)
		}
		os.Exit(1)
	}

	renderReport(report)
}

// readDescription resolves the system description from the file
// argument, stdin, or an interactive form, in that order.
func readDescription(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	stdinIsPipe := !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd())
	if (len(args) == 1 && args[0] == "-") || stdinIsPipe {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	return promptDescription()
}

// promptDescription collects the description and optional context
// through an interactive form. Fills the package-level extraContext
// only when the flag did not already set it.
func promptDescription() (string, error) {
	var description string
	formContext := extraContext

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Describe your AI system").
				Description("What does it do, who uses it, where is it deployed?").
				Placeholder("A chatbot that answers customer billing questions...").
				CharLimit(datatypes.MaxDescriptionLen).
				Value(&description).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) < datatypes.MinDescriptionLen {
						return fmt.Errorf("need at least %d characters", datatypes.MinDescriptionLen)
					}
					return nil
				}),
			huh.NewText().
				Title("Additional context (optional)").
				Description("Deployment constraints, user groups, anything ambiguous.").
				CharLimit(datatypes.MaxAdditionalContextLen).
				Value(&formContext),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}

	extraContext = formContext
	return description, nil
}

// watchJob follows a running job until it reaches a terminal state.
// Uses the live progress UI on a terminal, a plain polling loop
// otherwise.
func watchJob(ctx context.Context, client *gatewayClient, jobID string) error {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return watchJobInteractive(ctx, client, jobID)
	}
	return watchJobPlain(ctx, client, jobID)
}

// watchJobPlain polls the job status and prints one line per phase
// change. Used for piped output and CI.
func watchJobPlain(ctx context.Context, client *gatewayClient, jobID string) error {
	lastPhase := ""
	for {
		status, err := client.JobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		if status.Phase != lastPhase {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s: %s\n", status.Progress, status.Phase, status.Message)
			lastPhase = status.Phase
		}
		if status.Status == "complete" || status.Status == "failed" {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// fetchReport retrieves the finished report, retrying briefly while the
// job's terminal state propagates.
func fetchReport(ctx context.Context, client *gatewayClient, jobID string) (*model.Report, error) {
	var lastErr error
	for i := 0; i < reportFetchRetries; i++ {
		report, err := client.JobReport(ctx, jobID)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, errReportNotReady) {
			return nil, err
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	return nil, lastErr
}

// renderReport prints the risk badge to stderr and writes the report in
// the selected format to stdout or the output file.
func renderReport(report *model.Report) {
	var level model.RiskLevel
	if report.RiskClassification != nil {
		level = report.RiskClassification.Level
	}
	fmt.Fprintf(os.Stderr, "\n%s  %s\n\n",
		renderRiskBadge(level),
		dimStyle.Render(fmt.Sprintf("%d requirements, report %s",
			len(report.Requirements), report.ReportID)))

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	var err error
	switch outputFormat {
	case "json":
		err = export.WriteJSON(out, report)
	case "markdown", "md":
		err = export.WriteMarkdown(out, report)
	default:
		log.Fatalf("Unsupported format %q: use markdown or json", outputFormat)
	}
	if err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "%s\n", successStyle.Render("Report written to "+outputPath))
	}
}
