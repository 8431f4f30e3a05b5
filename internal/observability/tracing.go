package observability

import (
	"context"
	"time"

	"github.com/tendapos/auth-service/internal/config"
	"github.com/tendapos/auth-service/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
)

var tracerProvider *sdktrace.TracerProvider

// InitTracer installs the OTLP trace pipeline when tracing is enabled.
// Failures are logged, not fatal: the service runs untraced rather than not
// at all.
func InitTracer(cfg *config.Config, logger *logging.SafeLogger) {
	if !cfg.TracingEnabled {
		logger.Info("tracing is disabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.TracingEndpoint),
	)
	if err != nil {
		logger.Error("failed to create OTLP exporter", zap.Error(err))
		return
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String("pos-auth"),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
	))
	if err != nil {
		logger.Error("failed to build trace resource", zap.Error(err))
		return
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer initialized", zap.String("endpoint", cfg.TracingEndpoint))
}

// ShutdownTracer flushes buffered spans. Safe to call when tracing never
// started.
func ShutdownTracer(logger *logging.SafeLogger) {
	if tracerProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", zap.Error(err))
	}
}
