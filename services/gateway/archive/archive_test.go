// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/tere4ai/services/pipeline/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})
	return store
}

func reportAt(t *testing.T, generatedAt time.Time, systemName string) *model.Report {
	t.Helper()
	report := model.NewReport()
	report.GeneratedAt = generatedAt
	report.SystemDescription = &model.SystemDescription{
		RawDescription: "A chatbot that answers customer support questions.",
		Name:           systemName,
		Domain:         model.DomainConsumer,
	}
	report.RiskClassification = &model.RiskClassification{Level: model.RiskLimited}
	report.Requirements = []model.Requirement{
		{ID: "REQ-001", Title: "Disclose AI interaction", Category: model.CategoryTransparencyLimited},
	}
	return report
}

func TestStorePutGet(t *testing.T) {
	store := newTestStore(t)
	report := reportAt(t, time.Now(), "Support Bot")

	if err := store.Put(context.Background(), report); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(report.ReportID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ReportID != report.ReportID {
		t.Errorf("ReportID = %q, want %q", got.ReportID, report.ReportID)
	}
	if got.SystemDescription == nil || got.SystemDescription.Name != "Support Bot" {
		t.Errorf("system description not preserved: %+v", got.SystemDescription)
	}
	if len(got.Requirements) != 1 {
		t.Errorf("Requirements = %d, want 1", len(got.Requirements))
	}
}

func TestStoreGetUnknownReport(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get("no-such-report"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get err = %v, want ErrReportNotFound", err)
	}
}

func TestStorePutRequiresID(t *testing.T) {
	store := newTestStore(t)
	report := model.NewReport()
	report.ReportID = ""

	if err := store.Put(context.Background(), report); err == nil {
		t.Error("expected error for report without ID")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	names := []string{"First", "Second", "Third"}
	for i, name := range names {
		report := reportAt(t, base.Add(time.Duration(i)*time.Minute), name)
		if err := store.Put(context.Background(), report); err != nil {
			t.Fatalf("Put %s returned error: %v", name, err)
		}
	}

	summaries, err := store.List(0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("List = %d summaries, want 3", len(summaries))
	}

	wantOrder := []string{"Third", "Second", "First"}
	for i, want := range wantOrder {
		if summaries[i].SystemName != want {
			t.Errorf("summaries[%d].SystemName = %q, want %q", i, summaries[i].SystemName, want)
		}
	}
	if summaries[0].RiskLevel != "limited" {
		t.Errorf("RiskLevel = %q, want %q", summaries[0].RiskLevel, "limited")
	}
	if summaries[0].RequirementCount != 1 {
		t.Errorf("RequirementCount = %d, want 1", summaries[0].RequirementCount)
	}
}

func TestStoreListHonorsLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		report := reportAt(t, base.Add(time.Duration(i)*time.Minute), "System")
		if err := store.Put(context.Background(), report); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
	}

	summaries, err := store.List(2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("List = %d summaries, want 2", len(summaries))
	}
}

type stubUploader struct {
	paths []string
	err   error
}

func (u *stubUploader) Upload(_ context.Context, objectPath string, _ []byte) error {
	u.paths = append(u.paths, objectPath)
	return u.err
}

func TestStorePutMirrorsToUploader(t *testing.T) {
	store := newTestStore(t)
	uploader := &stubUploader{}
	store.SetUploader(uploader)

	report := reportAt(t, time.Now(), "Mirrored")
	if err := store.Put(context.Background(), report); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if len(uploader.paths) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploader.paths))
	}
	want := "reports/" + report.ReportID + ".json"
	if uploader.paths[0] != want {
		t.Errorf("object path = %q, want %q", uploader.paths[0], want)
	}
}

func TestStorePutSurvivesUploadFailure(t *testing.T) {
	store := newTestStore(t)
	store.SetUploader(&stubUploader{err: errors.New("bucket unavailable")})

	report := reportAt(t, time.Now(), "Local Only")
	if err := store.Put(context.Background(), report); err != nil {
		t.Fatalf("Put returned error despite warn-only mirror: %v", err)
	}

	if _, err := store.Get(report.ReportID); err != nil {
		t.Errorf("report not archived locally: %v", err)
	}
}

func TestStorePutLocalSkipsUploader(t *testing.T) {
	store := newTestStore(t)
	uploader := &stubUploader{}
	store.SetUploader(uploader)

	report := reportAt(t, time.Now(), "Flagged Submission")
	if err := store.PutLocal(report); err != nil {
		t.Fatalf("PutLocal returned error: %v", err)
	}

	if len(uploader.paths) != 0 {
		t.Errorf("uploads = %d, want 0", len(uploader.paths))
	}
	if _, err := store.Get(report.ReportID); err != nil {
		t.Errorf("report not archived locally: %v", err)
	}
}
