package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceName identifica o processo nos spans exportados
const ServiceName = "familychat"

// NewProvider cria o TracerProvider do processo. Sem processors, os spans
// finalizados vão em lote para o LogExporter.
func NewProvider(version string, logger *zap.Logger, processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	if len(processors) == 0 {
		processors = []sdktrace.SpanProcessor{sdktrace.NewBatchSpanProcessor(NewLogExporter(logger))}
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		logger.Warn("Failed to create trace resource, using default", zap.Error(err))
		res = resource.Default()
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// Setup cria o provider e o instala como global. Os spans do ADK também
// saem por ele, já que o ADK inicia cada span no provider global.
func Setup(version string, logger *zap.Logger, processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	tp := NewProvider(version, logger, processors...)
	otel.SetTracerProvider(tp)
	return tp
}
