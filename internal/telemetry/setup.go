package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"

	"github.com/MuntasirSZN/fetchttp/internal/errdef"
)

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

const instrumentationName = "github.com/MuntasirSZN/fetchttp"

// Setup builds a tracer provider exporting over OTLP/gRPC. With export
// disabled it returns a no-op provider and a shutdown that does nothing.
func Setup(ctx context.Context, cfg Config) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled() {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOptions(cfg)...))
	if err != nil {
		return nil, nil, errdef.Wrap(errdef.CodeTelemetry, err, "create otlp exporter")
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.Version))
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return errdef.Wrap(errdef.CodeTelemetry, err, "shutdown tracer provider")
		}
		return nil
	}
	return tp, shutdown, nil
}

// Tracer returns the tracer fetch spans are recorded on.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(instrumentationName)
}

func clientOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(userAgent(cfg))),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts = append(opts, otlptracegrpc.WithTimeout(timeout))
	return opts
}

func userAgent(cfg Config) string {
	name := cfg.ServiceName
	if name == "" {
		name = "fetchttp"
	}
	if cfg.Version != "" {
		return name + "/" + cfg.Version
	}
	return name
}
