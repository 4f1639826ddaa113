// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/tere4ai/services/gateway/archive"
	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/gateway/jobs"
	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/pipeline"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
	"github.com/AleutianAI/tere4ai/services/policy_engine"
)

// =============================================================================
// Stubs
// =============================================================================

// stubRunner is a scripted pipeline. If release is non-nil, Run blocks
// on it after reporting its first phase, letting tests observe a job
// mid-flight.
type stubRunner struct {
	result  *pipeline.RunResult
	release chan struct{}
	started chan struct{}
}

func (s *stubRunner) Run(_ context.Context, input pipeline.RunInput) *pipeline.RunResult {
	if input.Progress != nil {
		input.Progress(pipeline.PhaseEliciting, "Extracting system characteristics...")
	}
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	if s.release != nil {
		<-s.release
	}
	if input.Progress != nil {
		input.Progress(pipeline.PhaseSpecifying, "Generating requirements...")
	}
	return s.result
}

func successRunResult() *pipeline.RunResult {
	report := model.NewReport()
	report.RiskClassification = &model.RiskClassification{Level: model.RiskLimited}
	report.Requirements = []model.Requirement{
		{ID: "REQ-001", Title: "Disclose AI interaction", Category: model.CategoryTransparencyLimited},
	}
	return &pipeline.RunResult{Report: report, TotalDurationMs: 40, Success: true}
}

func failedRunResult() *pipeline.RunResult {
	report := model.NewReport()
	report.ProcessingErrors = []string{"elicitation failed: model unavailable"}
	return &pipeline.RunResult{Report: report, TotalDurationMs: 12, Success: false, Err: "elicitation failed"}
}

type stubKnowledgeStore struct {
	article    *model.Article
	articleErr error
	search     *model.SearchResult
	searchErr  error
}

func (s *stubKnowledgeStore) Classify(context.Context, model.SystemFeatures) (*model.Classification, error) {
	return &model.Classification{RiskLevel: model.RiskMinimal}, nil
}

func (s *stubKnowledgeStore) ApplicableArticles(context.Context, model.RiskLevel, string) ([]model.ArticleSummary, error) {
	return nil, nil
}

func (s *stubKnowledgeStore) ArticleDetail(context.Context, int) (*model.Article, error) {
	return s.article, s.articleErr
}

func (s *stubKnowledgeStore) PrincipleCoverage(context.Context, []int) (*model.HLEGCoverage, error) {
	return nil, nil
}

func (s *stubKnowledgeStore) Search(_ context.Context, query string, _ *model.SearchFilters) (*model.SearchResult, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.search != nil {
		return s.search, nil
	}
	return &model.SearchResult{Query: query, Results: []model.SearchMatch{}}, nil
}

// =============================================================================
// Harness
// =============================================================================

type testGateway struct {
	router  *gin.Engine
	manager *jobs.Manager
	store   *archive.Store
}

func newTestGateway(t *testing.T, runner Runner, maxJobs int) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := jobs.NewManager(maxJobs)
	store, err := archive.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	scanner, err := policy_engine.NewPolicyEngine()
	if err != nil {
		t.Fatalf("NewPolicyEngine returned error: %v", err)
	}

	router := gin.New()
	router.POST("/v1/analyze", AnalyzeSystem(runner, manager, store, nil, scanner))
	router.GET("/v1/jobs/:jobId", JobStatus(manager))
	router.GET("/v1/jobs/:jobId/report", JobReport(manager))
	router.GET("/v1/jobs/:jobId/export/:format", ExportJobReport(manager))
	router.GET("/v1/jobs/:jobId/ws", JobProgressWS(manager))
	router.GET("/v1/reports", ListReports(store))
	router.GET("/v1/reports/:reportId", GetReport(store))

	return &testGateway{router: router, manager: manager, store: store}
}

func (g *testGateway) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func (g *testGateway) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func startAnalysis(t *testing.T, g *testGateway) datatypes.AnalyzeAccepted {
	t.Helper()
	w := g.post(t, "/v1/analyze", datatypes.AnalyzeRequest{
		Description: "A chatbot that answers customer support questions about orders.",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("analyze status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	var accepted datatypes.AnalyzeAccepted
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("failed to decode 202 body: %v", err)
	}
	return accepted
}

func waitForTerminal(t *testing.T, manager *jobs.Manager, jobID string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := manager.Get(jobID)
		if ok && job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return jobs.Job{}
}

// =============================================================================
// Analyze
// =============================================================================

func TestAnalyzeAccepted(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	accepted := startAnalysis(t, g)

	if accepted.JobID == "" {
		t.Error("missing job ID")
	}
	if accepted.Status != "queued" {
		t.Errorf("status = %q, want %q", accepted.Status, "queued")
	}
	if want := "/v1/jobs/" + accepted.JobID; accepted.StatusURL != want {
		t.Errorf("StatusURL = %q, want %q", accepted.StatusURL, want)
	}
	if want := "/v1/jobs/" + accepted.JobID + "/report"; accepted.ReportURL != want {
		t.Errorf("ReportURL = %q, want %q", accepted.ReportURL, want)
	}

	job := waitForTerminal(t, g.manager, accepted.JobID)
	if job.Status != jobs.StatusComplete {
		t.Errorf("final status = %q, want %q", job.Status, jobs.StatusComplete)
	}
}

func TestAnalyzeRejectsShortDescription(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	w := g.post(t, "/v1/analyze", datatypes.AnalyzeRequest{Description: "too short"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAnalyzeRejectsMalformedBody(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAnalyzeOverCapacity(t *testing.T) {
	runner := &stubRunner{
		result:  successRunResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	g := newTestGateway(t, runner, 1)

	startAnalysis(t, g)
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline never started")
	}

	w := g.post(t, "/v1/analyze", datatypes.AnalyzeRequest{
		Description: "Another system description long enough to pass validation.",
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	close(runner.release)
}

// =============================================================================
// Jobs
// =============================================================================

func TestJobStatusUnknownJob(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	w := g.get(t, "/v1/jobs/no-such-job")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestJobReportNotReady(t *testing.T) {
	runner := &stubRunner{
		result:  successRunResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	g := newTestGateway(t, runner, 10)

	accepted := startAnalysis(t, g)
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline never started")
	}

	w := g.get(t, "/v1/jobs/"+accepted.JobID+"/report")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var body struct {
		Error  string                     `json:"error"`
		Status datatypes.JobStatusResponse `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status.JobID != accepted.JobID {
		t.Errorf("embedded status job ID = %q, want %q", body.Status.JobID, accepted.JobID)
	}

	close(runner.release)
}

func TestJobReportComplete(t *testing.T) {
	result := successRunResult()
	g := newTestGateway(t, &stubRunner{result: result}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	w := g.get(t, accepted.ReportURL)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var report model.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.ReportID != result.Report.ReportID {
		t.Errorf("ReportID = %q, want %q", report.ReportID, result.Report.ReportID)
	}
}

func TestJobReportForFailedRun(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: failedRunResult()}, 10)

	accepted := startAnalysis(t, g)
	job := waitForTerminal(t, g.manager, accepted.JobID)
	if job.Status != jobs.StatusFailed {
		t.Fatalf("final status = %q, want %q", job.Status, jobs.StatusFailed)
	}

	w := g.get(t, accepted.ReportURL)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var report model.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if len(report.ProcessingErrors) == 0 {
		t.Error("failed run report should carry processing errors")
	}
}

func TestFailedRunIsNotArchived(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: failedRunResult()}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	summaries, err := g.store.List(0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("archive has %d reports, want 0", len(summaries))
	}
}

func TestSuccessfulRunIsArchived(t *testing.T) {
	result := successRunResult()
	g := newTestGateway(t, &stubRunner{result: result}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	// Archiving happens after Finish; give the goroutine a moment.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := g.store.Get(result.Report.ReportID); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("successful run never appeared in the archive")
}

// recordingUploader captures mirror uploads. The upload runs on the
// pipeline goroutine, so access is locked.
type recordingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordingUploader) Upload(_ context.Context, objectPath string, _ []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, objectPath)
	return nil
}

func (u *recordingUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.paths)
}

func TestPublicSubmissionIsMirrored(t *testing.T) {
	result := successRunResult()
	g := newTestGateway(t, &stubRunner{result: result}, 10)
	uploader := &recordingUploader{}
	g.store.SetUploader(uploader)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if uploader.count() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("public submission report was never mirrored")
}

func TestFlaggedSubmissionIsNotMirrored(t *testing.T) {
	result := successRunResult()
	g := newTestGateway(t, &stubRunner{result: result}, 10)
	uploader := &recordingUploader{}
	g.store.SetUploader(uploader)

	w := g.post(t, "/v1/analyze", datatypes.AnalyzeRequest{
		Description: "The system loads training data with key AKIA1234567890123456 from S3.",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("analyze status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	var accepted datatypes.AnalyzeAccepted
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("failed to decode 202 body: %v", err)
	}
	waitForTerminal(t, g.manager, accepted.JobID)

	// Wait for the local archive write, then confirm no mirror call.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := g.store.Get(result.Report.ReportID); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := g.store.Get(result.Report.ReportID); err != nil {
		t.Fatalf("flagged run never appeared in the local archive: %v", err)
	}
	if got := uploader.count(); got != 0 {
		t.Errorf("mirror uploads = %d, want 0", got)
	}
}

// =============================================================================
// Export
// =============================================================================

func TestExportJSON(t *testing.T) {
	result := successRunResult()
	g := newTestGateway(t, &stubRunner{result: result}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	w := g.get(t, "/v1/jobs/"+accepted.JobID+"/export/json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, result.Report.ReportID) {
		t.Errorf("Content-Disposition = %q, want attachment with report ID", cd)
	}
}

func TestExportMarkdown(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	w := g.get(t, "/v1/jobs/"+accepted.JobID+"/export/markdown")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q, want text/markdown", ct)
	}
	if !strings.Contains(w.Body.String(), "# AI System Compliance Report") {
		t.Error("markdown export missing report header")
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	w := g.get(t, "/v1/jobs/"+accepted.JobID+"/export/pdf")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// =============================================================================
// Reports
// =============================================================================

func TestListReportsAfterRun(t *testing.T) {
	result := successRunResult()
	g := newTestGateway(t, &stubRunner{result: result}, 10)

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := g.get(t, "/v1/reports")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body struct {
			Reports []archive.ReportSummary `json:"reports"`
			Count   int                     `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Count == 1 && body.Reports[0].ReportID == result.Report.ReportID {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("report listing never showed the archived run")
}

func TestGetReportUnknown(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	w := g.get(t, "/v1/reports/"+uuid.New().String())
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetReportRejectsMalformedID(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	w := g.get(t, "/v1/reports/..%2F..%2Fetc%2Fpasswd")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestListReportsRejectsBadLimit(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)

	for _, limit := range []string{"abc", "0", "-3"} {
		w := g.get(t, "/v1/reports?limit="+limit)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want %d", limit, w.Code, http.StatusBadRequest)
		}
	}
}

// =============================================================================
// Knowledge
// =============================================================================

func newKnowledgeRouter(store knowledge.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/knowledge/search", SearchKnowledge(store))
	router.GET("/v1/knowledge/articles/:number", GetArticle(store))
	return router
}

func TestSearchKnowledge(t *testing.T) {
	store := &stubKnowledgeStore{
		search: &model.SearchResult{
			Query:        "risk management",
			TotalMatches: 1,
			Results: []model.SearchMatch{
				{Type: "article", Reference: "Article 9", ArticleNumber: 9, Text: "A risk management system..."},
			},
		},
	}
	router := newKnowledgeRouter(store)

	body, _ := json.Marshal(datatypes.SearchRequest{Query: "risk management"})
	req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var result model.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.TotalMatches != 1 {
		t.Errorf("TotalMatches = %d, want 1", result.TotalMatches)
	}
}

func TestSearchKnowledgeRejectsShortQuery(t *testing.T) {
	router := newKnowledgeRouter(&stubKnowledgeStore{})

	body, _ := json.Marshal(datatypes.SearchRequest{Query: "x"})
	req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetArticle(t *testing.T) {
	store := &stubKnowledgeStore{
		article: &model.Article{Number: 9, Title: "Risk management system"},
	}
	router := newKnowledgeRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/articles/9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var article model.Article
	if err := json.Unmarshal(w.Body.Bytes(), &article); err != nil {
		t.Fatalf("failed to decode article: %v", err)
	}
	if article.Number != 9 {
		t.Errorf("Number = %d, want 9", article.Number)
	}
}

func TestGetArticleRejectsNonInteger(t *testing.T) {
	router := newKnowledgeRouter(&stubKnowledgeStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/articles/nine", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	router := newKnowledgeRouter(&stubKnowledgeStore{articleErr: knowledge.ErrArticleNotFound})

	req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/articles/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// =============================================================================
// Websocket
// =============================================================================

func TestJobProgressWSAfterCompletion(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)
	server := httptest.NewServer(g.router)
	defer server.Close()

	accepted := startAnalysis(t, g)
	waitForTerminal(t, g.manager, accepted.JobID)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/jobs/" + accepted.JobID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// A late subscriber gets the terminal event, then the final frame.
	var event jobs.ProgressEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read terminal event: %v", err)
	}
	if event.Status != jobs.StatusComplete {
		t.Errorf("event status = %q, want %q", event.Status, jobs.StatusComplete)
	}
	if event.Progress != 100 {
		t.Errorf("event progress = %d, want 100", event.Progress)
	}

	var final struct {
		JobID     string `json:"job_id"`
		Status    string `json:"status"`
		ReportURL string `json:"report_url"`
	}
	if err := conn.ReadJSON(&final); err != nil {
		t.Fatalf("failed to read final frame: %v", err)
	}
	if want := "/v1/jobs/" + accepted.JobID + "/report"; final.ReportURL != want {
		t.Errorf("report URL = %q, want %q", final.ReportURL, want)
	}
}

func TestJobProgressWSUnknownJob(t *testing.T) {
	g := newTestGateway(t, &stubRunner{result: successRunResult()}, 10)
	server := httptest.NewServer(g.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/jobs/no-such-job/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown job")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %v, want 404", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}

// =============================================================================
// Examples and Health
// =============================================================================

func TestListExamples(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/examples", ListExamples())

	req := httptest.NewRequest(http.MethodGet, "/v1/examples", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Examples []datatypes.ExampleSystem `json:"examples"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Examples) != 4 {
		t.Fatalf("examples = %d, want 4", len(body.Examples))
	}

	found := false
	for _, ex := range body.Examples {
		if ex.Name == "Hospital Triage Assistant" {
			found = true
			if ex.ExpectedRiskLevel != "high" {
				t.Errorf("triage example risk = %q, want %q", ex.ExpectedRiskLevel, "high")
			}
		}
	}
	if !found {
		t.Error("missing Hospital Triage Assistant example")
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HealthCheck("0.1.0"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
	if body["service"] != "tere4ai-gateway" {
		t.Errorf("service = %q, want %q", body["service"], "tere4ai-gateway")
	}
	if body["version"] != "0.1.0" {
		t.Errorf("version = %q, want %q", body["version"], "0.1.0")
	}
}
