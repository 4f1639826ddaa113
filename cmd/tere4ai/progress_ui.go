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
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameMsg delivers one progress frame to the bubbletea model.
type frameMsg progressFrame

// streamClosedMsg signals that the frame channel has closed.
type streamClosedMsg struct{}

// watchModel is the bubbletea model for the live analysis view.
//
// # Description
//
// watchModel renders the current pipeline phase with a progress bar,
// consuming frames from a channel fed by the websocket stream (or the
// polling fallback). It quits when a terminal frame arrives or the
// stream closes.
//
// # Limitations
//
//   - Ctrl+C abandons the view only; the analysis keeps running
//     server-side and stays reachable through "tere4ai report"
type watchModel struct {
	frames      <-chan progressFrame
	phase       string
	message     string
	progress    int
	sawTerminal bool
	cancelled   bool
}

// waitForFrame returns a command that blocks for the next frame.
func waitForFrame(frames <-chan progressFrame) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-frames
		if !ok {
			return streamClosedMsg{}
		}
		return frameMsg(frame)
	}
}

// Init starts listening for progress frames.
func (m watchModel) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

// Update handles progress frames and key events.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if msg.Phase != "" {
			m.phase = msg.Phase
		}
		if msg.Message != "" {
			m.message = msg.Message
		}
		if msg.Progress > m.progress {
			m.progress = msg.Progress
		}
		if progressFrame(msg).isTerminal() {
			m.sawTerminal = true
			return m, tea.Quit
		}
		return m, waitForFrame(m.frames)

	case streamClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the phase, bar, and message on a single line.
func (m watchModel) View() string {
	if m.sawTerminal || m.cancelled {
		return ""
	}
	phase := m.phase
	if phase == "" {
		phase = "queued"
	}
	return fmt.Sprintf("%s %s  %s\n",
		renderProgressBar(m.progress),
		phaseStyle.Render(phase),
		dimStyle.Render(m.message))
}

// watchJobInteractive follows a job with the live progress view.
//
// # Description
//
// Streams progress over the job websocket, falling back to status
// polling when the websocket cannot be established. If the stream drops
// before a terminal frame, finishes the wait with plain polling so the
// caller always returns on a terminal job.
func watchJobInteractive(ctx context.Context, client *gatewayClient, jobID string) error {
	frames, stop, err := client.StreamProgress(ctx, jobID)
	if err != nil {
		frames, stop = pollProgress(ctx, client, jobID)
	}
	defer stop()

	p := tea.NewProgram(watchModel{frames: frames}, tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(watchModel)
	if !ok {
		return fmt.Errorf("unexpected model type from bubbletea: %T", finalModel)
	}

	if result.cancelled {
		return fmt.Errorf("cancelled; the analysis keeps running, check it later with: tere4ai report")
	}
	if !result.sawTerminal {
		// Stream dropped mid-run; wait out the rest by polling.
		return watchJobPlain(ctx, client, jobID)
	}
	return nil
}

// pollProgress adapts status polling to the frame channel interface
// used by the progress view.
func pollProgress(ctx context.Context, client *gatewayClient, jobID string) (<-chan progressFrame, func()) {
	frames := make(chan progressFrame)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(frames)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			status, err := client.JobStatus(ctx, jobID)
			if err != nil {
				return
			}
			frame := progressFrame{
				JobID:    status.JobID,
				Status:   status.Status,
				Phase:    status.Phase,
				Progress: status.Progress,
				Message:  status.Message,
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
			if frame.isTerminal() {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return frames, cancel
}
