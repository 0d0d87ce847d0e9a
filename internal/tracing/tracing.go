// Package tracing wraps OpenTelemetry span creation for run and tool
// execution, grounded on the teacher pack's registry.Observability
// StartSpan/EndSpan pattern (goadesign-goa-ai/runtime/registry/observability.go),
// adapted to the turn runtime's run/tool spans instead of MCP registry ops.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/serialagent/gateway"

// Config controls whether and how spans are exported.
type Config struct {
	Enabled     bool
	Protocol    string // "grpc" (default) or "http"
	Endpoint    string // host:port, no scheme
	ServiceName string
}

// Init wires a global TracerProvider per cfg. When disabled it installs
// nothing, leaving otel's default no-op provider in place, so call sites
// never need a feature check. The returned
// shutdown func should run on process exit.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case "http":
		exporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
	default:
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
	}
	if err != nil {
		return nil, fmt.Errorf("tracing: build exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "serialagent-gateway"
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartRunSpan starts a span covering one turn's execution.
func StartRunSpan(ctx context.Context, sessionKey, agentID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "turn.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sa.session_key", sessionKey),
			attribute.String("sa.agent_id", agentID),
		),
	)
}

// StartToolSpan starts a span covering one tool dispatch.
func StartToolSpan(ctx context.Context, toolName, route string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sa.tool_name", toolName),
			attribute.String("sa.route", route),
		),
	)
}

// StartProviderSpan starts a span covering one LLM provider call.
func StartProviderSpan(ctx context.Context, providerID, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "provider.chat",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sa.provider", providerID),
			attribute.String("sa.model", model),
		),
	)
}

// End finalizes a span with the call's outcome and duration.
func End(span trace.Span, start time.Time, err error) {
	span.SetAttributes(attribute.Int64("sa.duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
