package telemetry

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// shutdownStack collects cleanup functions and runs them in reverse order.
type shutdownStack []func(context.Context) error

func (s *shutdownStack) push(fn func(context.Context) error) {
	*s = append(*s, fn)
}

func (s *shutdownStack) run(ctx context.Context) error {
	var errs error
	for i := len(*s) - 1; i >= 0; i-- {
		errs = errors.Join(errs, (*s)[i](ctx))
	}
	*s = nil
	return errs
}

// setupTracing returns the tracer for the service. When tracing is disabled, the tracer is a noop
// and nothing is registered globally.
func setupTracing(ctx context.Context, enabled bool, opts Options, stack *shutdownStack) (trace.Tracer, error) {
	if !enabled {
		return noop.NewTracerProvider().Tracer(opts.ServiceName), nil
	}

	res, err := newResource(opts)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create otel resource")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	provider, err := newTracerProvider(ctx, res, opts)
	if err != nil {
		return nil, err
	}
	stack.push(provider.Shutdown)
	otel.SetTracerProvider(provider)

	return provider.Tracer(opts.ServiceName), nil
}

func newResource(opts Options) (*resource.Resource, error) {
	return resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		))
}

func newTracerProvider(ctx context.Context, res *resource.Resource, opts Options) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(opts.Endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, eris.Wrap(err, "failed to create OTLP trace exporter")
	}

	var sampler sdktrace.Sampler
	switch opts.TraceSampleRate {
	case 1.0:
		sampler = sdktrace.AlwaysSample()
	case 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.TraceSampleRate))
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	), nil
}

// newLogger creates a logger with the configured level, format, and output.
func newLogger(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := opts.LogWriter
	if out == nil {
		out = os.Stdout
	}

	writer := out
	if opts.LogFormat == LogFormatPretty {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}
