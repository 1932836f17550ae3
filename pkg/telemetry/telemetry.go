// Package telemetry provides OpenTelemetry tracing for the rating pipeline.
//
// Tracing is configured from the standard environment variables and is off
// unless OTEL_ENABLED=true:
//
//	OTEL_ENABLED                    - Enable/disable tracing (default: false)
//	OTEL_SERVICE_NAME               - Service name (default: rating-solver)
//	OTEL_SERVICE_VERSION            - Service version (default: unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT     - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL     - Protocol: grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS      - Headers for authentication (e.g., Authorization=Bearer xxx)
//	OTEL_EXPORTER_OTLP_INSECURE     - Use insecure connection (default: false)
//	OTEL_TRACES_SAMPLER             - Sampler type (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG         - Sampler argument (e.g., ratio)
//	OTEL_RESOURCE_ATTRIBUTES        - Additional resource attributes
//
// When disabled the global no-op provider stays in place, so StartSpan is
// always safe to call.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by this module.
const InstrumentationName = "github.com/pairwise-ratings"

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc flushes and stops the TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init installs the global TracerProvider when tracing is enabled.
func Init(ctx context.Context) (ShutdownFunc, error) {
	cfg := loadConfig()
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Enabled returns whether OpenTelemetry tracing is enabled.
func Enabled() bool {
	return loadConfig().Enabled
}

// GetConfig returns the cached telemetry configuration.
func GetConfig() *Config {
	return loadConfig()
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartSpan starts a span named name with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
