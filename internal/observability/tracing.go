// Package observability provides OpenTelemetry tracing setup.
//
// Spans cover the expensive paths: ingestion (chunk + embed + upsert),
// retrieval, generation and every agent run phase. They export over
// OTLP/HTTP to whatever collector listens on the configured endpoint
// (an OpenTelemetry Collector, Jaeger with OTLP enabled, or a vendor
// agent). Tracing is off by default; with it off the global provider
// stays a no-op and span creation costs almost nothing.
//
// Verify the endpoint is reachable with:
//
//	curl -v http://localhost:4318/v1/traces
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/koopa0/sage/internal/config"
)

// DefaultEndpoint is the default OTLP/HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// Setup installs the global tracer provider per cfg and returns a shutdown
// function that flushes pending spans. When tracing is disabled the
// returned shutdown is a no-op and the global provider is left untouched.
func Setup(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		logger.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sage"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Environment),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", serviceName,
		"environment", cfg.Environment,
	)
	return provider.Shutdown, nil
}
