package app

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const tracerName = "github.com/samvad-hq/samvad-query-probe/internal/app"

// newTracerProvider builds the provider for the configured exporter. It
// returns nil for "none"; the query client then falls back to the global
// (no-op) tracer.
func newTracerProvider(kind, service string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exp),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
		), nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", kind)
	}
}
