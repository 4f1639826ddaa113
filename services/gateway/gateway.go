// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway provides the HTTP service for TERE4AI.
//
// This package contains the main gateway type that coordinates all
// components of the service: HTTP routing, the requirements pipeline,
// the regulatory knowledge store, job tracking, the report archive,
// and observability infrastructure.
//
// # Usage
//
//	cfg := gateway.Config{Port: 12280, LLMBackend: "openai"}
//	svc, err := gateway.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
//
// # Import Path
//
//	import "github.com/AleutianAI/tere4ai/services/gateway"
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/tere4ai/services/gateway/analytics"
	"github.com/AleutianAI/tere4ai/services/gateway/archive"
	"github.com/AleutianAI/tere4ai/services/gateway/jobs"
	"github.com/AleutianAI/tere4ai/services/gateway/middleware"
	"github.com/AleutianAI/tere4ai/services/gateway/observability"
	"github.com/AleutianAI/tere4ai/services/gateway/routes"
	"github.com/AleutianAI/tere4ai/services/knowledge"
	"github.com/AleutianAI/tere4ai/services/llm"
	"github.com/AleutianAI/tere4ai/services/pipeline"
	"github.com/AleutianAI/tere4ai/services/policy_engine"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version is the gateway release version reported by GET /health.
const Version = "0.1.0"

// serviceName identifies the gateway in traces and spans.
const serviceName = "tere4ai-gateway"

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the gateway service.
//
// # Description
//
// Service abstracts the gateway lifecycle, enabling testing and
// alternative implementations. The interface follows the minimal surface
// area principle - only essential lifecycle methods are exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
//
// # Limitations
//
//   - No graceful shutdown method yet (planned for future)
//   - Run() blocks until server error
//
// # Assumptions
//
//   - Service is fully initialized before Run() is called
//   - Run() is called at most once per Service instance
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	//
	// # Description
	//
	// Starts the Gin HTTP server on the configured port. This method
	// blocks until the server stops (due to error or shutdown signal).
	//
	// # Outputs
	//
	//   - error: Non-nil if server fails to start or encounters fatal error
	//
	// # Examples
	//
	//   if err := svc.Run(); err != nil {
	//       log.Fatalf("server error: %v", err)
	//   }
	//
	// # Limitations
	//
	//   - Blocks until server stops
	//   - Cleanup is automatic on return
	//
	// # Assumptions
	//
	//   - Service was successfully created via New()
	//   - Port is available and not in use
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Description
	//
	// Provides access to the configured Gin router, primarily for
	// integration testing where direct HTTP calls are needed.
	//
	// # Outputs
	//
	//   - *gin.Engine: The configured router with all routes registered
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	//
	// # Assumptions
	//
	//   - Caller will not modify the router
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds gateway configuration options.
//
// # Description
//
// Config centralizes all configuration for the gateway service.
// Values can be populated from environment variables, config files,
// or programmatically for testing.
//
// # Required Fields
//
// None - all fields have sensible defaults.
//
// # Examples
//
//	// Minimal config (uses all defaults)
//	cfg := Config{}
//
//	// Custom port and LLM backend
//	cfg := Config{
//	    Port:       8080,
//	    LLMBackend: "claude",
//	}
//
//	// Full configuration
//	cfg := Config{
//	    Port:           12280,
//	    LLMBackend:     "openai",
//	    WeaviateURL:    "http://localhost:8080",
//	    OTelEndpoint:   "localhost:4317",
//	    TraceExporter:  "otlp",
//	    MetricExporter: "prometheus",
//	    ArchiveDir:     "./data/reports",
//	}
type Config struct {
	// Port is the HTTP server port. Default: 12280
	Port int

	// LLMBackend specifies the LLM provider.
	// Valid values: "local", "llamacpp", "openai", "ollama", "claude", "anthropic"
	// Default: "openai"
	LLMBackend string

	// Model overrides the model name used by the pipeline agents.
	// If empty, the TERE4AI_MODEL environment variable or the backend
	// default is used.
	Model string

	// WeaviateURL is the Weaviate vector database URL.
	// If empty, knowledge search falls back to local keyword matching.
	// Example: "http://localhost:8080"
	WeaviateURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Only used when TraceExporter is "otlp".
	OTelEndpoint string

	// TraceExporter selects the trace exporter.
	// Valid values: "otlp", "stdout", "none"
	// Default: "none"
	TraceExporter string

	// MetricExporter selects the OpenTelemetry metric exporter.
	// Valid values: "prometheus", "stdout", "none"
	// Default: "prometheus"
	MetricExporter string

	// CorpusPath is the path to a regulatory corpus YAML file.
	// If set, the file is watched and hot-reloaded on change.
	// If empty, the embedded corpus is used.
	CorpusPath string

	// ArchiveDir is the directory for the persistent report archive.
	// If empty, reports are kept in memory and lost on restart.
	ArchiveDir string

	// GCSBucket is a Google Cloud Storage bucket to mirror reports to.
	// If empty, mirroring is disabled.
	GCSBucket string

	// GCSCredentialsFile is the path to a GCS service account key file.
	// If empty, application default credentials are used.
	GCSCredentialsFile string

	// InfluxURL is the InfluxDB server URL for run analytics.
	// If empty, analytics are disabled.
	InfluxURL string

	// InfluxToken is the InfluxDB API token.
	InfluxToken string

	// InfluxOrg is the InfluxDB organization name.
	InfluxOrg string

	// InfluxBucket is the InfluxDB bucket for run measurements.
	InfluxBucket string

	// APIKey protects all endpoints except /health and /metrics.
	// If empty, authentication is disabled.
	APIKey string

	// MaxJobs caps the number of tracked analysis jobs. Default: 100
	MaxJobs int

	// LLMRequestsPerMinute throttles outbound LLM calls.
	// Zero disables client-side throttling.
	LLMRequestsPerMinute int
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service is the main implementation that coordinates:
//   - HTTP routing via Gin
//   - The elicit/classify/specify/validate pipeline
//   - The regulatory knowledge store (local or Weaviate-backed)
//   - Async job tracking with progress streaming
//   - The persistent report archive (with optional GCS mirroring)
//   - Submission scanning via the embedded policy engine
//   - OpenTelemetry tracing and Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New() returns.
//
// # Limitations
//
//   - No hot-reload of configuration (the corpus file is the exception)
//   - Single LLM backend per instance
type service struct {
	config            Config
	router            *gin.Engine
	store             knowledge.Store
	watcher           *knowledge.CorpusWatcher
	llmClient         llm.LLMClient
	orchestrator      *pipeline.Orchestrator
	manager           *jobs.Manager
	reports           *archive.Store
	uploader          *archive.GCSUploader
	recorder          *analytics.Recorder
	scanner           *policy_engine.PolicyEngine
	telemetryShutdown func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new gateway Service with the given configuration.
//
// # Description
//
// New initializes all gateway components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing and metrics
//  3. Loads the regulatory knowledge store (file, embedded, or Weaviate)
//  4. Creates the LLM client based on backend type
//  5. Opens the report archive (on disk or in memory)
//  6. Connects run analytics if InfluxDB is configured
//  7. Loads the submission policy engine
//  8. Builds the pipeline orchestrator and job manager
//  9. Sets up HTTP routes
//
// Optional dependencies (Weaviate, GCS, InfluxDB) degrade gracefully:
// a failure to reach them logs a warning and the gateway runs without.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run gateway service
//   - error: Non-nil if initialization fails
//
// # Examples
//
//	cfg := Config{Port: 12280, LLMBackend: "ollama"}
//	svc, err := New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// # Limitations
//
//   - LLM client creation may fail if required credentials are missing
//
// # Assumptions
//
//   - Environment variables are set for LLM providers (API keys, URLs)
//   - ArchiveDir is writable if configured
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	ctx := context.Background()

	shutdown, err := observability.Init(ctx, observability.TelemetryConfig{
		ServiceName:    serviceName,
		OTLPEndpoint:   s.config.OTelEndpoint,
		TraceExporter:  s.config.TraceExporter,
		MetricExporter: s.config.MetricExporter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	if observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus pipeline metrics")
	}

	if err := s.initKnowledge(ctx); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize knowledge store: %w", err)
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if err := s.initArchive(ctx); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize report archive: %w", err)
	}

	s.initAnalytics()

	scanner, err := policy_engine.NewPolicyEngine()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	s.scanner = scanner

	agentCfg := pipeline.AgentConfigFromEnv()
	if s.config.Model != "" {
		agentCfg.Model = s.config.Model
	}
	s.orchestrator = pipeline.NewOrchestrator(s.store, s.llmClient, agentCfg)
	s.manager = jobs.NewManager(s.config.MaxJobs)

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
//
// # Description
//
// Starts the Gin HTTP server on the configured port. This method
// blocks until the server stops due to error or shutdown signal.
// All held resources are released when Run returns.
//
// # Outputs
//
//   - error: Non-nil if server fails to start or encounters fatal error
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting gateway server", "port", s.config.Port, "version", Version)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12280
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "openai"
	}
	if cfg.MetricExporter == "" {
		cfg.MetricExporter = observability.MetricExporterPrometheus
	}
	if cfg.TraceExporter == "" {
		cfg.TraceExporter = observability.TraceExporterNone
	}
	if cfg.MaxJobs == 0 {
		cfg.MaxJobs = 100
	}
	return cfg
}

// initKnowledge loads the regulatory knowledge store.
//
// # Description
//
// Loads the corpus from CorpusPath (with a hot-reload watcher) or falls
// back to the embedded corpus. If WeaviateURL is configured and reachable,
// wraps the local store so searches run as hybrid vector queries.
//
// # Outputs
//
//   - error: Non-nil if the corpus cannot be loaded
//
// # Limitations
//
//   - A failed Weaviate connection is not fatal; search stays local
func (s *service) initKnowledge(ctx context.Context) error {
	var local *knowledge.LocalStore

	if s.config.CorpusPath != "" {
		corpus, err := knowledge.LoadCorpusFile(s.config.CorpusPath)
		if err != nil {
			return fmt.Errorf("loading corpus from %s: %w", s.config.CorpusPath, err)
		}
		local = knowledge.NewLocalStoreFromCorpus(corpus)

		watcher, err := knowledge.NewCorpusWatcher(s.config.CorpusPath, local)
		if err != nil {
			slog.Warn("Corpus watcher unavailable, hot reload disabled", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			slog.Warn("Corpus watcher failed to start, hot reload disabled", "error", err)
		} else {
			s.watcher = watcher
			slog.Info("Watching corpus file for changes", "path", s.config.CorpusPath)
		}
	} else {
		var err error
		local, err = knowledge.NewLocalStore()
		if err != nil {
			return fmt.Errorf("loading embedded corpus: %w", err)
		}
	}

	s.store = local

	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")
	if weaviateURL == "" {
		slog.Info("Weaviate URL not configured, using local keyword search")
		return nil
	}

	client, err := knowledge.NewWeaviateClient(weaviateURL)
	if err != nil {
		slog.Warn("Weaviate initialization failed, using local keyword search",
			"error", err)
		return nil
	}
	s.store = knowledge.NewWeaviateStore(local, client)
	slog.Info("Weaviate hybrid search enabled", "url", weaviateURL)

	return nil
}

// initLLMClient creates the LLM provider client.
//
// # Outputs
//
//   - error: Non-nil if LLM client creation fails
func (s *service) initLLMClient() error {
	client, err := llm.New(s.config.LLMBackend, s.config.Model)
	if err != nil {
		return err
	}

	if s.config.LLMRequestsPerMinute > 0 {
		client = llm.NewRateLimitedClient(client, s.config.LLMRequestsPerMinute)
		slog.Info("LLM request throttling enabled",
			"requests_per_minute", s.config.LLMRequestsPerMinute)
	}

	s.llmClient = client
	return nil
}

// initArchive opens the report archive and the optional GCS mirror.
//
// # Outputs
//
//   - error: Non-nil if the archive database cannot be opened
//
// # Limitations
//
//   - A failed GCS connection is not fatal; mirroring is skipped
func (s *service) initArchive(ctx context.Context) error {
	var (
		store *archive.Store
		err   error
	)
	if s.config.ArchiveDir != "" {
		store, err = archive.Open(s.config.ArchiveDir)
	} else {
		slog.Info("Archive directory not configured, keeping reports in memory")
		store, err = archive.OpenInMemory()
	}
	if err != nil {
		return err
	}
	s.reports = store

	if s.config.GCSBucket == "" {
		return nil
	}

	uploader, err := archive.NewGCSUploader(ctx, s.config.GCSBucket, s.config.GCSCredentialsFile)
	if err != nil {
		slog.Warn("GCS report mirroring unavailable", "error", err)
		return nil
	}
	s.uploader = uploader
	s.reports.SetUploader(uploader)
	slog.Info("GCS report mirroring enabled", "bucket", s.config.GCSBucket)

	return nil
}

// initAnalytics connects the InfluxDB run recorder if configured.
func (s *service) initAnalytics() {
	if s.config.InfluxURL == "" {
		return
	}
	s.recorder = analytics.NewRecorder(
		s.config.InfluxURL,
		s.config.InfluxToken,
		s.config.InfluxOrg,
		s.config.InfluxBucket,
	)
	slog.Info("InfluxDB run analytics enabled", "url", s.config.InfluxURL)
}

// initRouter sets up the Gin HTTP router with all routes.
//
// # Assumptions
//
//   - All dependencies (pipeline, job manager, archive) are initialized
func (s *service) initRouter() {
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware(serviceName))

	if s.config.APIKey != "" {
		s.router.Use(middleware.APIKeyAuth(s.config.APIKey))
		slog.Info("API key authentication enabled")
	}

	routes.SetupRoutes(s.router, s.orchestrator, s.manager, s.store, s.reports, s.recorder, s.scanner, Version)
}

// cleanup releases all resources held by the service.
//
// # Description
//
// Called when Run() exits or on initialization failure. Stops the corpus
// watcher, closes the analytics client, the GCS uploader, and the archive
// database, then shuts down telemetry.
func (s *service) cleanup() {
	if s.watcher != nil {
		s.watcher.Stop()
	}

	if s.recorder != nil {
		s.recorder.Close()
	}

	if s.uploader != nil {
		if err := s.uploader.Close(); err != nil {
			slog.Warn("GCS uploader close error", "error", err)
		}
	}

	if s.reports != nil {
		if err := s.reports.Close(); err != nil {
			slog.Warn("Report archive close error", "error", err)
		}
	}

	if s.telemetryShutdown != nil {
		s.telemetryShutdown(context.Background())
	}
}
