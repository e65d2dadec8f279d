// Package telemetry manages OTLP trace export and credential masking for
// span attributes. A nil or unconfigured manager is a no-op, so callers
// instrument unconditionally.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/verity-ai/chatstream-go"

// Config wires the manager. Endpoint selects the OTLP/HTTP collector; when
// it is empty and no TracerProvider is injected, spans are discarded.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	Endpoint    string
	Insecure    bool
	SampleRatio float64

	// TracerProvider overrides the exporter wiring (tests).
	TracerProvider trace.TracerProvider

	Filter FilterConfig
}

// Manager owns the tracer provider and the masking filter.
type Manager struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
	filter   *filter
}

var defaultManager atomic.Pointer[Manager]

// SetDefault installs the process-wide manager used by the package-level
// helpers. Passing nil clears it.
func SetDefault(m *Manager) {
	defaultManager.Store(m)
}

// Default returns the process-wide manager, which may be nil.
func Default() *Manager {
	return defaultManager.Load()
}

// NewManager builds a manager from cfg. Filter patterns are compiled
// eagerly so a bad pattern fails here rather than on first span.
func NewManager(cfg Config) (*Manager, error) {
	f, err := newFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	return &Manager{
		provider: provider,
		tracer:   provider.Tracer(tracerName),
		filter:   f,
	}, nil
}

func newProvider(cfg Config) (trace.TracerProvider, error) {
	if cfg.TracerProvider != nil {
		return cfg.TracerProvider, nil
	}
	if cfg.Endpoint == "" {
		return noop.NewTracerProvider(), nil
	}

	opts := []otlptracehttp.Option{}
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	), nil
}

// StartSpan opens a span on the manager's tracer. A nil manager uses a
// no-op tracer so instrumentation sites never branch.
func (m *Manager) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return noop.NewTracerProvider().Tracer(tracerName).Start(ctx, name, opts...)
	}
	return m.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes and stops the tracer provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if closer, ok := m.provider.(interface{ Shutdown(context.Context) error }); ok {
		return closer.Shutdown(ctx)
	}
	return nil
}

// MaskText applies the masking filter.
func (m *Manager) MaskText(s string) string {
	if m == nil {
		return s
	}
	return m.filter.mask(s)
}

// SanitizeAttributes masks string and string-slice attribute values.
func (m *Manager) SanitizeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	if m == nil {
		return attrs
	}
	return m.filter.sanitize(attrs)
}

// StartSpan opens a span on the default manager.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Default().StartSpan(ctx, name, opts...)
}

// EndSpan records err on the span, sets the final status, and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// MaskText applies the default manager's filter.
func MaskText(s string) string {
	return Default().MaskText(s)
}

// SanitizeAttributes masks attributes through the default manager.
func SanitizeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	return Default().SanitizeAttributes(attrs...)
}
