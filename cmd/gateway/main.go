// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gateway starts the TERE4AI HTTP server.
//
// This is the main entry point for the containerized gateway service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - TERE4AI_PORT: HTTP server port (default: 12280)
//   - TERE4AI_LLM_PROVIDER: LLM provider - local, openai, ollama, claude (default: openai)
//   - TERE4AI_MODEL: Model name override for the pipeline agents (optional)
//   - TERE4AI_WEAVIATE_URL: Weaviate vector DB URL (optional)
//   - TERE4AI_CORPUS_PATH: Regulatory corpus JSON file, hot-reloaded (optional)
//   - TERE4AI_ARCHIVE_DIR: Report archive directory (default: in-memory)
//   - TERE4AI_GCS_BUCKET: GCS bucket for report mirroring (optional)
//   - TERE4AI_GCS_CREDENTIALS_FILE: GCS service account key file (optional)
//   - TERE4AI_API_KEY: API key for request authentication (optional)
//   - TERE4AI_MAX_JOBS: Tracked analysis job cap (default: 100)
//   - TERE4AI_LLM_RPM: Outbound LLM requests per minute, 0 = unlimited (default: 0)
//   - TERE4AI_TRACE_EXPORTER: otlp, stdout, or none (default: none)
//   - TERE4AI_METRIC_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector for otlp traces
//   - INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET: run analytics (optional)
//   - TERE4AI_LOG_LEVEL: debug, info, warn, or error (default: info)
//   - TERE4AI_LOG_DIR: directory for JSON log files (optional)
//
// # Usage
//
//	# Build
//	go build -o gateway ./cmd/gateway
//
//	# Run
//	./gateway
//
//	# Or via container
//	podman-compose up gateway
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/tere4ai/pkg/logging"
	"github.com/AleutianAI/tere4ai/services/gateway"
)

func main() {
	// Setup structured logging
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("TERE4AI_LOG_LEVEL")),
		LogDir:  os.Getenv("TERE4AI_LOG_DIR"),
		Service: "gateway",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Build configuration from environment variables
	cfg := gateway.Config{
		Port:                 getEnvInt("TERE4AI_PORT", 12280),
		LLMBackend:           getEnvString("TERE4AI_LLM_PROVIDER", "openai"),
		Model:                os.Getenv("TERE4AI_MODEL"),
		WeaviateURL:          os.Getenv("TERE4AI_WEAVIATE_URL"),
		OTelEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceExporter:        getEnvString("TERE4AI_TRACE_EXPORTER", "none"),
		MetricExporter:       getEnvString("TERE4AI_METRIC_EXPORTER", "prometheus"),
		CorpusPath:           os.Getenv("TERE4AI_CORPUS_PATH"),
		ArchiveDir:           os.Getenv("TERE4AI_ARCHIVE_DIR"),
		GCSBucket:            os.Getenv("TERE4AI_GCS_BUCKET"),
		GCSCredentialsFile:   os.Getenv("TERE4AI_GCS_CREDENTIALS_FILE"),
		InfluxURL:            os.Getenv("INFLUXDB_URL"),
		InfluxToken:          os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:            os.Getenv("INFLUXDB_ORG"),
		InfluxBucket:         os.Getenv("INFLUXDB_BUCKET"),
		APIKey:               os.Getenv("TERE4AI_API_KEY"),
		MaxJobs:              getEnvInt("TERE4AI_MAX_JOBS", 100),
		LLMRequestsPerMinute: getEnvInt("TERE4AI_LLM_RPM", 0),
	}

	slog.Info("Starting TERE4AI gateway",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"weaviate_url", cfg.WeaviateURL,
		"archive_dir", cfg.ArchiveDir,
	)

	svc, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
