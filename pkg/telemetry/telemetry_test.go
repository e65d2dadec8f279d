package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupManager(t *testing.T) (*Manager, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	mgr, err := NewManager(Config{
		ServiceName:    "chatstream-test",
		TracerProvider: tp,
		Filter: FilterConfig{
			Mask:     "***REDACTED***",
			Patterns: []string{`session\s*[=:]\s*\d+`},
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	SetDefault(mgr)
	t.Cleanup(func() {
		SetDefault(nil)
		_ = mgr.Shutdown(context.Background())
	})
	return mgr, exporter
}

func TestSpanStatusFollowsError(t *testing.T) {
	_, exporter := setupManager(t)

	_, span := StartSpan(context.Background(), "send.request")
	EndSpan(span, errors.New("upstream timeout"))

	_, span = StartSpan(context.Background(), "send.cleanup")
	EndSpan(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status)
	}
	if spans[1].Status.Code != codes.Ok {
		t.Fatalf("expected ok status, got %v", spans[1].Status)
	}
}

func TestMaskTextPatterns(t *testing.T) {
	mgr, _ := setupManager(t)

	masked := mgr.MaskText("run sk-secret-003 for session=9999")
	if strings.Contains(masked, "sk-secret") || strings.Contains(masked, "9999") {
		t.Fatalf("expected mask applied, got %q", masked)
	}
	if !strings.Contains(masked, "***REDACTED***") {
		t.Fatalf("expected replacement text, got %q", masked)
	}

	// Package-level helper routes through the default manager.
	if got := MaskText("Authorization: Bearer abc.def.ghi"); strings.Contains(got, "abc.def") {
		t.Fatalf("bearer token not masked: %q", got)
	}
}

func TestSanitizeAttributes(t *testing.T) {
	mgr, _ := setupManager(t)

	attrs := mgr.SanitizeAttributes(
		attribute.String("request.input", "key sk-secret-004 inline"),
		attribute.StringSlice("notes", []string{"session: 7777", "plain"}),
		attribute.Int("llm.rounds", 2),
	)
	if strings.Contains(attrs[0].Value.AsString(), "sk-secret") {
		t.Fatalf("string attribute not masked: %+v", attrs[0])
	}
	for _, v := range attrs[1].Value.AsStringSlice() {
		if strings.Contains(v, "7777") {
			t.Fatalf("string slice entry not masked: %q", v)
		}
	}
	if attrs[2].Value.AsInt64() != 2 {
		t.Fatalf("non-string attribute altered: %+v", attrs[2])
	}
}

func TestNilManagerIsNoop(t *testing.T) {
	SetDefault(nil)

	ctx, span := StartSpan(context.Background(), "noop.span")
	if ctx == nil || span == nil {
		t.Fatalf("nil manager must still return a usable span")
	}
	if span.SpanContext().TraceID().IsValid() {
		t.Fatalf("noop span should not carry a real trace id")
	}
	EndSpan(span, errors.New("ignored"))

	if got := MaskText("sk-secret-005"); got != "sk-secret-005" {
		t.Fatalf("nil manager should pass text through, got %q", got)
	}
}

func TestUnconfiguredManagerDiscardsSpans(t *testing.T) {
	mgr, err := NewManager(Config{ServiceName: "chatstream-test"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	_, span := mgr.StartSpan(context.Background(), "discarded")
	if span.SpanContext().TraceID().IsValid() {
		t.Fatalf("unconfigured manager should discard spans")
	}
	if err := mgr.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewManagerRejectsBadPattern(t *testing.T) {
	_, err := NewManager(Config{
		Filter: FilterConfig{Patterns: []string{`(`}},
	})
	if err == nil || !strings.Contains(err.Error(), "compile filter pattern") {
		t.Fatalf("expected pattern error, got %v", err)
	}
}
