// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// errorExporter fails every call so the error paths can be observed.
type errorExporter struct {
	exportErr error
	flushErr  error
	closeErr  error
}

func (e *errorExporter) Export(ctx context.Context, entry LogEntry) error { return e.exportErr }
func (e *errorExporter) Flush(ctx context.Context) error                 { return e.flushErr }
func (e *errorExporter) Close() error                                    { return e.closeErr }

func TestNopExporter(t *testing.T) {
	exp := &NopExporter{}
	ctx := context.Background()

	if err := exp.Export(ctx, LogEntry{Message: "test"}); err != nil {
		t.Errorf("Export() error = %v", err)
	}
	if err := exp.Flush(ctx); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestBufferedExporter_Export(t *testing.T) {
	exp := NewBufferedExporter()
	ctx := context.Background()

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Message:   "job complete",
		Service:   "gateway",
		Attrs:     map[string]any{"job_id": "j1"},
	}
	if err := exp.Export(ctx, entry); err != nil {
		t.Errorf("Export() error = %v", err)
	}

	entries := exp.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "job complete" {
		t.Errorf("Message = %v, want 'job complete'", entries[0].Message)
	}
	if entries[0].Attrs["job_id"] != "j1" {
		t.Errorf("Attrs[job_id] = %v, want j1", entries[0].Attrs["job_id"])
	}
}

func TestBufferedExporter_Entries_ReturnsCopy(t *testing.T) {
	exp := NewBufferedExporter()
	_ = exp.Export(context.Background(), LogEntry{Message: "original"})

	entries := exp.Entries()
	entries[0].Message = "mutated"

	fresh := exp.Entries()
	if fresh[0].Message != "original" {
		t.Error("Entries() should return a copy, not the backing slice")
	}
}

func TestWriterExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	exp := NewWriterExporter(&buf)

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Message:   "classification done",
		Attrs:     map[string]any{"tier": "high"},
	}
	if err := exp.Export(context.Background(), entry); err != nil {
		t.Errorf("Export() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("Output should contain level, got: %s", out)
	}
	if !strings.Contains(out, "classification done") {
		t.Errorf("Output should contain message, got: %s", out)
	}
}

func TestLogger_ExportErrorSilentlyDropped(t *testing.T) {
	logger := New(Config{
		Level:    LevelInfo,
		Exporter: &errorExporter{exportErr: errors.New("export failed")},
		Quiet:    true,
	})
	defer logger.Close()

	// A failing exporter must never block or panic the caller
	logger.Info("this export will fail")
	time.Sleep(50 * time.Millisecond)
}

func TestLogger_Close_ExporterError(t *testing.T) {
	tests := []struct {
		name     string
		exporter *errorExporter
		wantSub  string
	}{
		{
			name:     "flush error",
			exporter: &errorExporter{flushErr: errors.New("flush boom")},
			wantSub:  "flush exporter",
		},
		{
			name:     "close error",
			exporter: &errorExporter{closeErr: errors.New("close boom")},
			wantSub:  "close exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(Config{
				Exporter: tt.exporter,
				Quiet:    true,
			})
			err := logger.Close()
			if err == nil {
				t.Fatal("Close() should return the exporter error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Close() error = %v, want substring %q", err, tt.wantSub)
			}
		})
	}
}
