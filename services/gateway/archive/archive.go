// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive persists completed compliance reports in Badger.
//
// # Description
//
// Reports live under two key families. "report:<id>" holds the full
// report JSON and serves point lookups. "report_meta:<rfc3339>:<id>"
// holds a small summary and exists purely for listing: the timestamp
// prefix makes lexicographic key order chronological, so a reverse
// iteration yields newest-first without touching the full documents.
//
// # Limitations
//
//   - Reports are never rewritten. The archive is append-only except
//     for Badger's own garbage collection.
//   - The in-memory variant loses everything on restart; it exists for
//     tests and for running without any configured archive directory.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

// ErrReportNotFound is returned by Get for an unknown report ID.
var ErrReportNotFound = errors.New("report not found")

const (
	reportKeyPrefix = "report:"
	metaKeyPrefix   = "report_meta:"

	defaultListLimit = 50
)

// Uploader mirrors archived reports to secondary storage. Upload
// failures are logged, never fatal: the local archive is the source
// of truth and the mirror is best-effort.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, data []byte) error
}

// ReportSummary is the listing view of an archived report.
type ReportSummary struct {
	ReportID         string    `json:"report_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	SystemName       string    `json:"system_name,omitempty"`
	RiskLevel        string    `json:"risk_level,omitempty"`
	RequirementCount int       `json:"requirement_count"`
}

// Store is a Badger-backed report archive.
type Store struct {
	db       *badger.DB
	uploader Uploader
}

// Open opens (or creates) a disk-backed archive at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	opts := badger.DefaultOptions(dir).WithLogger(newBadgerLogger())
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenInMemory opens an archive that lives entirely in memory.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(newBadgerLogger())
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory archive: %w", err)
	}

	return &Store{db: db}, nil
}

// SetUploader attaches a secondary-storage mirror. Call before the
// store is shared between goroutines.
func (s *Store) SetUploader(u Uploader) {
	s.uploader = u
}

// Put archives the report under its report ID.
//
// The full document and its listing summary are written in one
// transaction. When an uploader is attached the document is also
// mirrored; a mirror failure is logged and swallowed.
func (s *Store) Put(ctx context.Context, report *model.Report) error {
	data, err := s.write(report)
	if err != nil {
		return err
	}

	if s.uploader != nil {
		objectPath := "reports/" + report.ReportID + ".json"
		if err := s.uploader.Upload(ctx, objectPath, data); err != nil {
			slog.Warn("Report mirror upload failed",
				slog.String("report_id", report.ReportID),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

// PutLocal archives the report without mirroring it, even when an
// uploader is attached. Used for reports that must not leave the
// deployment.
func (s *Store) PutLocal(report *model.Report) error {
	_, err := s.write(report)
	return err
}

// write stores the report document and its listing summary in one
// transaction, returning the marshaled document.
func (s *Store) write(report *model.Report) ([]byte, error) {
	if report.ReportID == "" {
		return nil, errors.New("report has no ID")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	summary, err := json.Marshal(summarize(report))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report summary: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(reportKey(report.ReportID), data); err != nil {
			return err
		}
		return txn.Set(metaKey(report), summary)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive report: %w", err)
	}

	return data, nil
}

// Get retrieves an archived report by ID.
func (s *Store) Get(id string) (*model.Report, error) {
	var report model.Report

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	return &report, nil
}

// List returns report summaries, newest first. A non-positive limit
// uses the default of 50.
func (s *Store) List(limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	summaries := make([]ReportSummary, 0, limit)
	prefix := []byte(metaKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible meta key so the reverse pass
		// starts at the newest entry.
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(summaries) < limit; it.Next() {
			var summary ReportSummary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				return err
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return summaries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func reportKey(id string) []byte {
	return []byte(reportKeyPrefix + id)
}

// metaKey builds the listing key. RFC3339 in UTC is fixed-width for
// whole-second timestamps, so lexicographic order matches time order;
// the ID suffix keeps keys unique within a second.
func metaKey(report *model.Report) []byte {
	ts := report.GeneratedAt.UTC().Format(time.RFC3339)
	return []byte(metaKeyPrefix + ts + ":" + report.ReportID)
}

func summarize(report *model.Report) ReportSummary {
	summary := ReportSummary{
		ReportID:         report.ReportID,
		GeneratedAt:      report.GeneratedAt,
		RequirementCount: len(report.Requirements),
	}
	if report.SystemDescription != nil {
		summary.SystemName = report.SystemDescription.Name
	}
	if report.RiskClassification != nil {
		summary.RiskLevel = string(report.RiskClassification.Level)
	}
	return summary
}

// badgerLogger adapts Badger's logger interface onto slog. Badger's
// info-level output is chatty at startup, so it maps to debug.
type badgerLogger struct {
	l *slog.Logger
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{l: slog.Default().With(slog.String("component", "archive"))}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
