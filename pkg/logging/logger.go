// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for TERE4AI components.
//
// Everything is built on log/slog; this package layers destinations on
// top of it. A logger always has stderr (unless Quiet), optionally a
// date-stamped JSON file, and optionally a LogExporter for shipping
// entries to an external system:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                         Logger                              │
//	│  ┌─────────────┐  ┌─────────────┐  ┌─────────────────────┐ │
//	│  │   stderr    │  │  log file   │  │   LogExporter       │ │
//	│  │  (default)  │  │  (optional) │  │   (hosted)          │ │
//	│  └─────────────┘  └─────────────┘  └─────────────────────┘ │
//	└─────────────────────────────────────────────────────────────┘
//
// The gateway builds its logger from environment config in
// cmd/gateway and installs it process-wide through Slog():
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.ParseLevel(os.Getenv("TERE4AI_LOG_LEVEL")),
//	    LogDir:  os.Getenv("TERE4AI_LOG_DIR"),
//	    Service: "gateway",
//	    JSON:    true,
//	})
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// File logs land in LogDir as {service}_{date}.log, always JSON. The
// exporter seam is for hosted deployments that ship logs off the box;
// see export.go.
//
// # Levels
//
// Debug, Info, Warn, Error, following slog conventions. Info is the
// operational baseline: run started, report archived, corpus reloaded.
// Debug is for development noise, Warn for degraded-but-running
// (retries, fallback search), Error for failed operations.
//
// # Security Considerations
//
// Nothing here redacts. Submission text, API keys, and report content
// must not be passed as log attributes; log lengths, IDs, and counts
// instead:
//
//	// BAD: logs the full user-provided description
//	logger.Info("analyze", "description", req.Description)
//
//	// GOOD: log metadata only
//	logger.Info("analyze", "description_len", len(req.Description))
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// Levels
// =============================================================================

// Level is the log severity: Debug < Info < Warn < Error. A logger
// discards everything below its configured minimum.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel maps Level onto the slog scale. Unknown values read as
// Info so a corrupted config can not silence the log.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel reads a level name from config or the environment.
// Matching ignores case, "warning" is accepted for Warn, and anything
// unrecognized falls back to LevelInfo.
func ParseLevel(name string) Level {
	switch name {
	case "debug", "DEBUG", "Debug":
		return LevelDebug
	case "warn", "WARN", "Warn", "warning":
		return LevelWarn
	case "error", "ERROR", "Error":
		return LevelError
	default:
		return LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Logger. The zero value is usable: Info and
// above, text format, stderr only.
type Config struct {
	// Level is the minimum severity written anywhere. Default: LevelInfo.
	Level Level

	// LogDir enables file logging. When set, the directory is created
	// (0750) if missing and entries are appended to
	// "{Service}_{YYYY-MM-DD}.log" in JSON, alongside stderr. A
	// leading ~ expands to the user's home directory. When the
	// directory cannot be created or the file cannot be opened, the
	// logger runs without the file rather than failing construction.
	LogDir string

	// Service tags every entry with a "service" attribute and names
	// the log file. The gateway uses "gateway"; empty means no
	// attribute and a "tere4ai" file prefix.
	Service string

	// JSON switches stderr output from human-readable text to JSON.
	// File output is JSON regardless; it exists to be parsed.
	JSON bool

	// Quiet drops the stderr destination, leaving only the file and
	// exporter. Meant for tests and embedded use.
	Quiet bool

	// Exporter, when set, receives every entry at or above Level
	// asynchronously. Export failures are dropped; logging must not
	// fail because the export target is down.
	Exporter LogExporter
}

// =============================================================================
// Logger
// =============================================================================

// Logger is a slog.Logger fanned out to up to three destinations, plus
// the cleanup those destinations need. Safe for concurrent use.
//
// Close releases the file handle and flushes the exporter; callers
// that configure either must defer it.
type Logger struct {
	slog     *slog.Logger
	config   Config
	file     *os.File
	exporter LogExporter

	// mu serializes Close against itself.
	mu sync.Mutex
}

// New builds a Logger from config. Construction cannot fail: an
// unusable LogDir degrades to stderr-only (see Config.LogDir), and
// with Quiet set and no other destination the logger still writes to
// stderr rather than devnull.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	logger := &Logger{
		config:   config,
		exporter: config.Exporter,
	}

	var dests []slog.Handler
	if !config.Quiet {
		if config.JSON {
			dests = append(dests, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			dests = append(dests, slog.NewTextHandler(os.Stderr, opts))
		}
	}
	if config.LogDir != "" {
		if f := openLogFile(config.LogDir, config.Service); f != nil {
			logger.file = f
			dests = append(dests, slog.NewJSONHandler(f, opts))
		}
	}

	var root slog.Handler
	switch len(dests) {
	case 0:
		root = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		root = dests[0]
	default:
		root = &multiHandler{handlers: dests}
	}

	if config.Service != "" {
		root = root.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(root)
	return logger
}

// openLogFile prepares the dated log file under dir, returning nil
// when the directory or file is not writable.
func openLogFile(dir, service string) *os.File {
	path := expandPath(dir)
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil
	}
	if service == "" {
		service = "tere4ai"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(path, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil
	}
	return file
}

// Default returns an Info-level, stderr-only logger tagged as service
// "tere4ai". Suitable for CLI paths that need nothing configured.
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "tere4ai",
	})
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs at Info level.
//
//	logger.Info("analysis complete", "job_id", jobID, "duration_ms", ms)
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs at Error level. There is no Fatal; callers that must
// terminate log the error and exit themselves.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

// With returns a child logger carrying additional attributes. The
// child shares the parent's file handle and exporter, so Close on
// either tears down both; close the parent last.
//
//	jobLogger := logger.With("job_id", jobID)
//	jobLogger.Info("phase change", "phase", phase)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(args...),
		config:   l.config,
		file:     l.file,
		exporter: l.exporter,
	}
}

// Slog exposes the underlying slog.Logger for features this wrapper
// does not carry, and for slog.SetDefault at process entry points.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close flushes and closes the exporter, then syncs and closes the log
// file. The first error is returned; later steps still run.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	record := func(step string, err error) {
		if err != nil && first == nil {
			first = fmt.Errorf("%s: %w", step, err)
		}
	}

	if l.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		record("flush exporter", l.exporter.Flush(ctx))
		cancel()
		record("close exporter", l.exporter.Close())
	}
	if l.file != nil {
		record("sync log file", l.file.Sync())
		record("close log file", l.file.Close())
	}
	return first
}

// log routes one entry to slog and, when configured, to the exporter.
// The export happens on its own goroutine so a slow target never
// stalls the caller.
func (l *Logger) log(level Level, msg string, args ...any) {
	switch level {
	case LevelDebug:
		l.slog.Debug(msg, args...)
	case LevelInfo:
		l.slog.Info(msg, args...)
	case LevelWarn:
		l.slog.Warn(msg, args...)
	case LevelError:
		l.slog.Error(msg, args...)
	}

	if l.exporter == nil || level < l.config.Level {
		return
	}
	ent := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Service:   l.config.Service,
		Attrs:     argsToMap(args),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.exporter.Export(ctx, ent)
	}()
}

// =============================================================================
// Handler Fan-Out
// =============================================================================

// multiHandler delivers each record to every handler that accepts its
// level, letting stderr and the file filter independently.
type multiHandler struct {
	handlers []slog.Handler
}

func (mh *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sub := range mh.handlers {
		if sub.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (mh *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, sub := range mh.handlers {
		if !sub.Enabled(ctx, r.Level) {
			continue
		}
		if err := sub.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (mh *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(mh.handlers))
	for i, sub := range mh.handlers {
		out[i] = sub.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (mh *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(mh.handlers))
	for i, sub := range mh.handlers {
		out[i] = sub.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}

// =============================================================================
// Helpers
// =============================================================================

// expandPath resolves a leading ~ against the user's home directory.
// Anything else passes through unchanged.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// argsToMap flattens slog-style key-value args for LogEntry.Attrs.
// Non-string keys and a trailing orphan value are dropped, matching
// how slog itself tolerates malformed pairs.
func argsToMap(args []any) map[string]any {
	attrs := make(map[string]any)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs[key] = args[i+1]
	}
	return attrs
}
