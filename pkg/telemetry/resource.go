package telemetry

import (
	"context"
	"os"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// cpusKey records the hardware concurrency the solver sizes its pool from.
const cpusKey = attribute.Key("solver.cpus")

func buildResource(_ context.Context, cfg *Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, resourceAttributes(cfg, os.Hostname)...),
	)
}

// resourceAttributes lists the process attributes attached to every span.
// User attributes from the config are appended last and may not override
// the service identity.
func resourceAttributes(cfg *Config, hostname func() (string, error)) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5+len(cfg.ResourceAttrs))
	attrs = append(attrs,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.ProcessRuntimeName("go"),
		semconv.ProcessRuntimeVersion(runtime.Version()),
		cpusKey.Int(runtime.NumCPU()),
	)
	if host, err := hostname(); err == nil && host != "" {
		attrs = append(attrs, semconv.HostName(host))
	}
	for k, v := range cfg.ResourceAttrs {
		switch attribute.Key(k) {
		case semconv.ServiceNameKey, semconv.ServiceVersionKey:
			continue
		}
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
