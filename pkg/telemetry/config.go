package telemetry

import (
	"os"
	"strings"
)

// DefaultServiceName is reported when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "rating-solver"

// Config holds OpenTelemetry configuration loaded from environment variables.
type Config struct {
	// Enabled is OTEL_ENABLED == "true" (case-insensitive).
	Enabled bool

	// ServiceName is OTEL_SERVICE_NAME, defaults to "rating-solver".
	ServiceName string

	// ServiceVersion is OTEL_SERVICE_VERSION, defaults to "unknown".
	ServiceVersion string

	// Endpoint is OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string

	// Protocol is OTEL_EXPORTER_OTLP_PROTOCOL: grpc (default) or http/protobuf.
	Protocol string

	// Headers is OTEL_EXPORTER_OTLP_HEADERS in "key1=value1,key2=value2" form.
	Headers map[string]string

	// Insecure is OTEL_EXPORTER_OTLP_INSECURE.
	Insecure bool

	// Sampler is OTEL_TRACES_SAMPLER: always_on, always_off, traceidratio,
	// parentbased_always_on, parentbased_always_off or parentbased_traceidratio.
	Sampler string

	// SamplerArg is OTEL_TRACES_SAMPLER_ARG, the ratio for ratio samplers.
	SamplerArg string

	// ResourceAttrs is OTEL_RESOURCE_ATTRIBUTES in "key=value,..." form.
	ResourceAttrs map[string]string
}

// LoadFromEnv loads configuration from the process environment.
func LoadFromEnv() *Config {
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) *Config {
	orDefault := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	return &Config{
		Enabled:        strings.EqualFold(getenv("OTEL_ENABLED"), "true"),
		ServiceName:    orDefault("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion: orDefault("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Protocol:       orDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		Headers:        parseKeyValuePairs(getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       strings.EqualFold(getenv("OTEL_EXPORTER_OTLP_INSECURE"), "true"),
		Sampler:        getenv("OTEL_TRACES_SAMPLER"),
		SamplerArg:     getenv("OTEL_TRACES_SAMPLER_ARG"),
		ResourceAttrs:  parseKeyValuePairs(getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

// parseKeyValuePairs parses "k1=v1,k2=v2". Values may contain '='; pairs
// without a key are skipped.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}
