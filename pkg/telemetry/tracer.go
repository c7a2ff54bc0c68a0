package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// noopTracer serves span starts on a nil *Tracer so callers never have
// to nil-check before instrumenting a code path.
var noopTracer = noop.NewTracerProvider().Tracer("")

// Tracer wraps the OpenTelemetry tracer for the design pipeline.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NewTracer creates a tracer from the given configuration. When tracing
// is disabled the returned tracer generates spans against a provider
// with no exporter attached.
func NewTracer(cfg TracingConfig, serviceVersion string) (*Tracer, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "designcore"
	}

	if !cfg.Enabled {
		return &Tracer{
			provider: sdktrace.NewTracerProvider(),
			tracer:   otel.Tracer(serviceName),
			config:   cfg,
		}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "otlp":
		exporter, err = otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	case "", "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	sampler := sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(cfg.SampleRatio),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		config:   cfg,
	}, nil
}

// Start begins a new span with the given name. Safe on a nil Tracer.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil {
		return noopTracer.Start(ctx, spanName, opts...)
	}
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartCompileSpan starts a span for a workspace compilation.
func (t *Tracer) StartCompileSpan(ctx context.Context, part string) (context.Context, trace.Span) {
	return t.Start(ctx, "compile.workspace", trace.WithAttributes(
		AttrPart.String(part),
	))
}

// StartSequenceSpan starts a span for a sequence execution.
func (t *Tracer) StartSequenceSpan(ctx context.Context, opCount int) (context.Context, trace.Span) {
	return t.Start(ctx, "sequence.execute", trace.WithAttributes(
		attribute.Int("sequence.operations", opCount),
	))
}

// StartBoundarySpan starts a span for an evaluator round trip.
func (t *Tracer) StartBoundarySpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return t.Start(ctx, "boundary.round_trip", trace.WithAttributes(
		AttrBoundaryOp.String(op),
	))
}

// RecordError records an error on the span and marks it failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span as successful.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Shutdown flushes pending spans and stops the provider. Safe on a nil
// Tracer, like the span helpers.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Common attribute keys for design pipeline tracing.
var (
	AttrPart       = attribute.Key("design.part")
	AttrIntentHash = attribute.Key("intent.hash")
	AttrOperation  = attribute.Key("operation.id")
	AttrCategory   = attribute.Key("operation.category")
	AttrBoundaryOp = attribute.Key("boundary.op")
	AttrStatus     = attribute.Key("result.status")
)
