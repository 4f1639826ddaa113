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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
	"github.com/AleutianAI/tere4ai/services/pipeline/model"
	"github.com/gorilla/websocket"
)

// errReportNotReady signals that the job exists but has not finished.
var errReportNotReady = errors.New("report not ready")

// healthInfo is the body of GET /health.
type healthInfo struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// reportSummary is one entry of GET /v1/reports.
type reportSummary struct {
	ReportID         string    `json:"report_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	SystemName       string    `json:"system_name"`
	RiskLevel        string    `json:"risk_level"`
	RequirementCount int       `json:"requirement_count"`
}

// reportList is the body of GET /v1/reports.
type reportList struct {
	Reports []reportSummary `json:"reports"`
	Count   int             `json:"count"`
}

// exampleList is the body of GET /v1/examples.
type exampleList struct {
	Examples []datatypes.ExampleSystem `json:"examples"`
}

// progressFrame is one message on the job progress websocket. Regular
// frames carry phase and progress; the final frame carries the report URL.
type progressFrame struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Phase     string `json:"phase,omitempty"`
	Progress  int    `json:"progress,omitempty"`
	Message   string `json:"message,omitempty"`
	ReportURL string `json:"report_url,omitempty"`
}

// isTerminal reports whether the frame ends the stream.
func (f progressFrame) isTerminal() bool {
	return f.Status == "complete" || f.Status == "failed"
}

// apiError is the gateway's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// gatewayClient talks to the TERE4AI gateway HTTP API.
type gatewayClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// newGatewayClient creates a client for the given gateway base URL.
func newGatewayClient(baseURL, apiKey string) *gatewayClient {
	return &gatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// doJSON performs a request and decodes the response body into out.
// Non-2xx responses are turned into errors carrying the gateway's
// error message when one is present.
func (c *gatewayClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var envelope apiError
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, envelope.Error)
		}
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health fetches the gateway's health and version info.
func (c *gatewayClient) Health(ctx context.Context) (healthInfo, error) {
	var info healthInfo
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &info)
	return info, err
}

// StartAnalysis submits a description for analysis and returns the
// accepted job.
func (c *gatewayClient) StartAnalysis(ctx context.Context, description, additionalContext string) (datatypes.AnalyzeAccepted, error) {
	req := datatypes.AnalyzeRequest{
		Description:       description,
		AdditionalContext: additionalContext,
	}
	var accepted datatypes.AnalyzeAccepted
	err := c.doJSON(ctx, http.MethodPost, "/v1/analyze", req, &accepted)
	return accepted, err
}

// JobStatus fetches the current state of an analysis job.
func (c *gatewayClient) JobStatus(ctx context.Context, jobID string) (datatypes.JobStatusResponse, error) {
	var status datatypes.JobStatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &status)
	return status, err
}

// JobReport fetches the finished report for a job. Returns
// errReportNotReady while the job is still running.
func (c *gatewayClient) JobReport(ctx context.Context, jobID string) (*model.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobID+"/report", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var report model.Report
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return nil, fmt.Errorf("decoding report: %w", err)
		}
		return &report, nil
	case http.StatusBadRequest:
		return nil, errReportNotReady
	default:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
}

// ListReports fetches summaries of archived reports, newest first.
func (c *gatewayClient) ListReports(ctx context.Context, limit int) ([]reportSummary, error) {
	path := fmt.Sprintf("/v1/reports?limit=%d", limit)
	var list reportList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Reports, nil
}

// GetReport fetches one archived report by ID.
func (c *gatewayClient) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	var report model.Report
	if err := c.doJSON(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(reportID), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Examples fetches the bundled example systems.
func (c *gatewayClient) Examples(ctx context.Context) ([]datatypes.ExampleSystem, error) {
	var list exampleList
	if err := c.doJSON(ctx, http.MethodGet, "/v1/examples", nil, &list); err != nil {
		return nil, err
	}
	return list.Examples, nil
}

// StreamProgress opens the job's progress websocket and delivers frames
// on the returned channel. The channel closes when the stream ends. The
// returned stop function closes the connection early; it is safe to call
// after the channel has closed.
func (c *gatewayClient) StreamProgress(ctx context.Context, jobID string) (<-chan progressFrame, func(), error) {
	wsURL, err := c.websocketURL("/v1/jobs/" + jobID + "/ws")
	if err != nil {
		return nil, nil, err
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("X-API-Key", c.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("progress stream rejected (%d): %w", resp.StatusCode, err)
		}
		return nil, nil, fmt.Errorf("dialing progress stream: %w", err)
	}

	frames := make(chan progressFrame)
	go func() {
		defer close(frames)
		defer conn.Close()
		for {
			var frame progressFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
			if frame.isTerminal() && frame.ReportURL != "" {
				// The report-URL frame is the last one the server sends.
				return
			}
		}
	}()

	stop := func() { _ = conn.Close() }
	return frames, stop, nil
}

// websocketURL converts the client's base URL into a ws:// or wss:// URL
// for the given path.
func (c *gatewayClient) websocketURL(path string) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme: %s", parsed.Scheme)
	}
	parsed.Path = path
	return parsed.String(), nil
}
