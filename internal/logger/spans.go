package logger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanExporter writes finished spans as debug lines, so --verbose shows
// how long each pipeline stage took.
type SpanExporter struct{}

var _ sdktrace.SpanExporter = SpanExporter{}

// ExportSpans implements sdktrace.SpanExporter.
func (SpanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !IsVerbose() {
		return nil
	}
	for _, s := range spans {
		elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Millisecond)
		if s.Status().Code == codes.Error {
			Debug("span %s failed after %s: %s", s.Name(), elapsed, s.Status().Description)
			continue
		}
		Debug("span %s took %s", s.Name(), elapsed)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (SpanExporter) Shutdown(context.Context) error {
	return nil
}

// NewTracerProvider returns a provider that exports synchronously to SpanExporter.
func NewTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(SpanExporter{}))
}
