package telemetry

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// createExporter creates an OTLP trace exporter for the configured protocol.
func createExporter(ctx context.Context, cfg *Config) (*otlptrace.Exporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "http/protobuf", "http":
		return otlptracehttp.New(ctx, httpOptions(cfg)...)
	default:
		return otlptracegrpc.New(ctx, grpcOptions(cfg)...)
	}
}

func grpcOptions(cfg *Config) []otlptracegrpc.Option {
	var opts []otlptracegrpc.Option

	if cfg.Endpoint != "" {
		// gRPC dials host:port, not a URL
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure || strings.HasPrefix(cfg.Endpoint, "http://") {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	return opts
}

func httpOptions(cfg *Config) []otlptracehttp.Option {
	var opts []otlptracehttp.Option

	insecureConn := cfg.Insecure
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if strings.HasPrefix(endpoint, "http://") {
			insecureConn = true
		}
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	if insecureConn {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// createSampler maps OTEL_TRACES_SAMPLER to a sampler. Unknown or empty
// values sample everything.
func createSampler(cfg *Config) sdktrace.Sampler {
	switch cfg.Sampler {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(parseRatio(cfg.SamplerArg))
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(parseRatio(cfg.SamplerArg)))
	default:
		return sdktrace.AlwaysSample()
	}
}

// parseRatio parses a ratio clamped to [0, 1]; unparsable input means 1.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1.0
	default:
		return ratio
	}
}
