// Package telemetry wires OpenTelemetry tracing for imports.
//
// Tracing is off by default. When off, a no-op provider is installed and
// spans started by the import engine cost nothing. When on, spans are
// batched to a stdout exporter writing to the given writer.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/JonMunkholm/uniimport"

// Provider owns the installed tracer provider. Shutdown flushes pending spans.
type Provider struct {
	shutdown func(context.Context) error
}

// Init installs a global tracer provider. w defaults to stderr.
func Init(enabled bool, serviceName string, w io.Writer) (*Provider, error) {
	if !enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		return &Provider{shutdown: func(context.Context) error { return nil }}, nil
	}
	if w == nil {
		w = os.Stderr
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)
	return &Provider{shutdown: tp.Shutdown}, nil
}

// Shutdown flushes spans. Call it with a short-lived context on exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// Tracer returns a tracer with the given instrumentation name (or the module scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}
