// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file wires OpenTelemetry tracing and metrics for the gateway.
// The pipeline and knowledge packages create spans and instruments
// against the global providers; Init decides where that telemetry
// actually goes.

package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Exporter selector values for TelemetryConfig.
const (
	TraceExporterOTLP   = "otlp"
	TraceExporterStdout = "stdout"
	TraceExporterNone   = "none"

	MetricExporterPrometheus = "prometheus"
	MetricExporterStdout     = "stdout"
	MetricExporterNone       = "none"
)

// shutdownTimeout bounds how long provider shutdown may take.
const shutdownTimeout = 5 * time.Second

// TelemetryConfig selects where traces and OTel metrics are exported.
//
// # Description
//
// TraceExporter is one of "otlp", "stdout", or "none"; MetricExporter
// one of "prometheus", "stdout", or "none". Empty values mean none.
// OTLPEndpoint is only read for the otlp trace exporter and uses an
// insecure gRPC connection, appropriate for an internal collector.
type TelemetryConfig struct {
	ServiceName    string
	OTLPEndpoint   string
	TraceExporter  string
	MetricExporter string
}

// Init installs the global tracer and meter providers per the config.
//
// # Outputs
//
//   - func(context.Context): shutdown function flushing both providers
//   - error: non-nil if an exporter could not be constructed
//
// # Examples
//
//	shutdown, err := observability.Init(ctx, observability.TelemetryConfig{
//	    ServiceName:   "tere4ai-gateway",
//	    TraceExporter: "stdout",
//	})
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
func Init(ctx context.Context, cfg TelemetryConfig) (func(context.Context), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdowns []func(context.Context) error

	traceProvider, err := buildTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	if traceProvider != nil {
		otel.SetTracerProvider(traceProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
		shutdowns = append(shutdowns, traceProvider.Shutdown)
		slog.Info("Tracing enabled", slog.String("exporter", cfg.TraceExporter))
	}

	meterProvider, err := buildMeterProvider(cfg, res)
	if err != nil {
		return nil, err
	}
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
		shutdowns = append(shutdowns, meterProvider.Shutdown)
		slog.Info("OTel metrics enabled", slog.String("exporter", cfg.MetricExporter))
	}

	shutdown := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				slog.Error("Telemetry shutdown error", slog.String("error", err.Error()))
			}
		}
	}

	return shutdown, nil
}

// buildTracerProvider constructs the tracer provider for the selected
// exporter, or nil when tracing is disabled.
func buildTracerProvider(ctx context.Context, cfg TelemetryConfig,
	res *resource.Resource) (*sdktrace.TracerProvider, error) {

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case TraceExporterOTLP:
		conn, dialErr := grpc.NewClient(cfg.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", dialErr)
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
	case TraceExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
	case TraceExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter: %q", cfg.TraceExporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	), nil
}

// buildMeterProvider constructs the meter provider for the selected
// exporter, or nil when OTel metrics are disabled. The prometheus
// exporter bridges OTel instruments into the default Prometheus
// registry, so /metrics serves both instrument families.
func buildMeterProvider(cfg TelemetryConfig,
	res *resource.Resource) (*sdkmetric.MeterProvider, error) {

	var reader sdkmetric.Reader

	switch cfg.MetricExporter {
	case MetricExporterPrometheus:
		exporter, err := otelprom.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
	case MetricExporterStdout:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(30*time.Second))
	case MetricExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown metric exporter: %q", cfg.MetricExporter)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
