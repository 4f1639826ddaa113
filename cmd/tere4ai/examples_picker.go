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
	"os"

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// exampleItem wraps one example system for the list display. The
// original index survives filtering, so the selection maps back to the
// fetched slice.
type exampleItem struct {
	index   int
	example datatypes.ExampleSystem
}

func (i exampleItem) Title() string {
	return fmt.Sprintf("%s  (%s risk)", i.example.Name, i.example.ExpectedRiskLevel)
}
func (i exampleItem) Description() string { return i.example.Description }
func (i exampleItem) FilterValue() string { return i.example.Name }

// pickerModel drives the interactive example chooser.
type pickerModel struct {
	examples list.Model
	choice   int
}

// Init is a no-op; the list needs no startup command.
func (m pickerModel) Init() tea.Cmd {
	return nil
}

// Update handles sizing, selection, and cancellation.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.examples.SetSize(msg.Width-2, msg.Height-2)
		return m, nil

	case tea.KeyMsg:
		// Let the list consume keys while a filter is being typed.
		if m.examples.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if item, ok := m.examples.SelectedItem().(exampleItem); ok {
				m.choice = item.index
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.examples, cmd = m.examples.Update(msg)
	return m, cmd
}

// View renders the list.
func (m pickerModel) View() string {
	return "\n" + m.examples.View()
}

// pickExample shows the interactive chooser and returns the index of
// the selected example, or -1 when the user backs out.
func pickExample(examples []datatypes.ExampleSystem) (int, error) {
	items := make([]list.Item, 0, len(examples))
	for i, example := range examples {
		items = append(items, exampleItem{index: i, example: example})
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetHeight(2)
	delegate.SetSpacing(1)

	exampleList := list.New(items, delegate, 0, 0)
	exampleList.Title = "Select an example system to analyze"
	exampleList.SetShowStatusBar(false)
	exampleList.SetFilteringEnabled(true)

	p := tea.NewProgram(
		pickerModel{examples: exampleList, choice: -1},
		tea.WithOutput(os.Stderr),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return -1, err
	}
	result, ok := finalModel.(pickerModel)
	if !ok {
		return -1, fmt.Errorf("unexpected model type from bubbletea: %T", finalModel)
	}
	return result.choice, nil
}
