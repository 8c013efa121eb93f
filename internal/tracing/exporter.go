package tracing

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// LogExporter escreve cada span finalizado no logger, em nível debug
type LogExporter struct {
	logger *zap.Logger
}

// NewLogExporter cria o exporter. logger nil descarta os spans.
func NewLogExporter(logger *zap.Logger) *LogExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogExporter{logger: logger}
}

// ExportSpans implementa sdktrace.SpanExporter
func (e *LogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !e.logger.Core().Enabled(zap.DebugLevel) {
		return nil
	}

	for _, s := range spans {
		sc := s.SpanContext()
		fields := []zap.Field{
			zap.String("span", s.Name()),
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
			zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
			zap.String("status", s.Status().Code.String()),
		}
		if parent := s.Parent(); parent.IsValid() {
			fields = append(fields, zap.String("parent_id", parent.SpanID().String()))
		}
		if s.Status().Code == codes.Error {
			fields = append(fields, zap.String("error", s.Status().Description))
		}
		for _, attr := range s.Attributes() {
			fields = append(fields, zap.String(string(attr.Key), attr.Value.Emit()))
		}
		e.logger.Debug("Span finished", fields...)
	}
	return nil
}

// Shutdown implementa sdktrace.SpanExporter
func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
