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
	"fmt"
	"strings"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Styles
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	phaseStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	barFilledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	unacceptableBadge = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("124")).
				Padding(0, 1)

	highBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("208")).
			Padding(0, 1)

	limitedBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("220")).
			Padding(0, 1)

	minimalBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("42")).
			Padding(0, 1)

	unknownBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("240")).
			Padding(0, 1)
)

// renderRiskBadge renders a colored badge for a risk classification.
func renderRiskBadge(level model.RiskLevel) string {
	switch level {
	case model.RiskUnacceptable:
		return unacceptableBadge.Render("UNACCEPTABLE - PROHIBITED")
	case model.RiskHigh:
		return highBadge.Render("HIGH RISK")
	case model.RiskLimited:
		return limitedBadge.Render("LIMITED RISK")
	case model.RiskMinimal:
		return minimalBadge.Render("MINIMAL RISK")
	default:
		return unknownBadge.Render("UNCLASSIFIED")
	}
}

// renderProgressBar renders a fixed-width bar for a 0-100 percentage.
func renderProgressBar(progress int) string {
	const width = 30
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * width / 100
	bar := barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3d%%", bar, progress)
}
