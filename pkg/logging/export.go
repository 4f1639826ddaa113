// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// LogExporter ships log entries to an external system: object storage,
// a log aggregator, an OTLP collector. Hosted gateway deployments plug
// one into Config.Exporter; local runs leave it nil.
//
// Export is called once per entry on a background goroutine with a
// one-second timeout, so implementations should buffer internally and
// upload in batches. When the buffer fills, drop oldest rather than
// block. Flush runs at shutdown with a five-second timeout and must
// drain the buffer; Close follows Flush and releases connections.
type LogExporter interface {
	Export(ctx context.Context, entry LogEntry) error
	Flush(ctx context.Context) error
	Close() error
}

// LogEntry is the destination-neutral form of one log line handed to
// exporters. Attrs carries the flattened key-value pairs.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Service   string
	Attrs     map[string]any
}

// =============================================================================
// Built-in Exporters
// =============================================================================

// NopExporter discards every entry. It stands in where an exporter is
// required but export is disabled.
type NopExporter struct{}

var _ LogExporter = (*NopExporter)(nil)

func (NopExporter) Export(context.Context, LogEntry) error { return nil }

func (NopExporter) Flush(context.Context) error { return nil }

func (NopExporter) Close() error { return nil }

// BufferedExporter keeps entries in memory. Tests use it to assert on
// what was logged:
//
//	exporter := logging.NewBufferedExporter()
//	logger := logging.New(logging.Config{Exporter: exporter})
//	logger.Info("report archived", "report_id", id)
//	entries := exporter.Entries()
type BufferedExporter struct {
	mu  sync.Mutex
	buf []LogEntry
}

// NewBufferedExporter creates an empty BufferedExporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{buf: make([]LogEntry, 0, 100)}
}

// Export appends the entry to the buffer.
func (b *BufferedExporter) Export(_ context.Context, entry LogEntry) error {
	b.mu.Lock()
	b.buf = append(b.buf, entry)
	b.mu.Unlock()
	return nil
}

// Flush is a no-op; the buffer is the destination.
func (b *BufferedExporter) Flush(context.Context) error { return nil }

// Close is a no-op.
func (b *BufferedExporter) Close() error { return nil }

// Entries returns a copy of everything exported so far.
func (b *BufferedExporter) Entries() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LogEntry, len(b.buf))
	copy(out, b.buf)
	return out
}

// WriterExporter renders entries as text lines on an io.Writer it does
// not own.
type WriterExporter struct {
	mu  sync.Mutex
	dst io.Writer
}

// NewWriterExporter creates a WriterExporter over w.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{dst: w}
}

// Export writes one formatted line.
func (w *WriterExporter) Export(_ context.Context, entry LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.dst, "[%s] %s: %s %v\n",
		entry.Timestamp.Format(time.RFC3339),
		entry.Level,
		entry.Message,
		entry.Attrs,
	)
	return err
}

// Flush is a no-op; writes are immediate.
func (w *WriterExporter) Flush(context.Context) error { return nil }

// Close is a no-op.
func (w *WriterExporter) Close() error { return nil }
