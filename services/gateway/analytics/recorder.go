// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analytics records per-run outcomes in InfluxDB for trend
// dashboards. Prometheus answers "how is the gateway doing right now";
// this answers "what kinds of systems have people analyzed this month".
package analytics

import (
	"context"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/AleutianAI/tere4ai/services/pipeline"
)

const runMeasurement = "tere4ai_runs"

// Recorder writes one point per completed pipeline run.
//
// A nil *Recorder is valid and records nothing, so callers can hold
// one unconditionally and skip the configured-or-not check.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewRecorder connects to InfluxDB. The connection is lazy; a wrong
// URL surfaces on the first write, as a warning.
func NewRecorder(url, token, org, bucket string) *Recorder {
	client := influxdb2.NewClient(url, token)
	return &Recorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

// Record writes the run outcome. Failures are logged and swallowed:
// analytics must never affect request handling.
func (r *Recorder) Record(ctx context.Context, result *pipeline.RunResult) {
	if r == nil || result == nil {
		return
	}

	status := "failed"
	if result.Success {
		status = "success"
	}
	riskLevel := "unknown"
	if result.Report != nil && result.Report.RiskClassification != nil {
		riskLevel = string(result.Report.RiskClassification.Level)
	}

	requirementCount := 0
	articleCoverage := 0.0
	if result.Report != nil {
		requirementCount = len(result.Report.Requirements)
		articleCoverage = result.Report.Metrics.ArticleCoverage
	}

	point := influxdb2.NewPointWithMeasurement(runMeasurement).
		AddTag("risk_level", riskLevel).
		AddTag("status", status).
		AddField("duration_ms", result.TotalDurationMs).
		AddField("requirement_count", requirementCount).
		AddField("article_coverage", articleCoverage).
		SetTime(time.Now())

	if err := r.writeAPI.WritePoint(ctx, point); err != nil {
		slog.Warn("Failed to record run analytics", slog.String("error", err.Error()))
	}
}

// Close releases the underlying client. Safe on nil.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.client.Close()
}
