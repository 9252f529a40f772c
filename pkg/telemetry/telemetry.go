package telemetry

import (
	"context"
	"os"
	"time"

	"github.com/kyanite-engine/kyanite/pkg/telemetry/sentry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// sentryFlushTimeout bounds how long Shutdown waits for buffered Sentry events.
const sentryFlushTimeout = 2 * time.Second

// Telemetry bundles the logger, tracer and error reporting of a service.
type Telemetry struct {
	Logger      zerolog.Logger
	Tracer      trace.Tracer
	serviceName string

	shutdown shutdownStack
}

// New sets up logging, tracing and Sentry from the environment, overridden by opts.
func New(opts Options) (*Telemetry, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load otel config")
	}

	options := newDefaultOptions()
	config.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid otel options")
	}

	t := &Telemetry{
		Logger:      newLogger(options),
		serviceName: options.ServiceName,
	}

	t.Tracer, err = setupTracing(context.Background(), config.Enabled, options, &t.shutdown)
	if err != nil {
		return nil, eris.Wrap(err, "failed to setup tracing")
	}

	if err := sentry.New(options.SentryOptions); err != nil {
		_ = t.shutdown.run(context.Background())
		return nil, eris.Wrap(err, "failed to setup sentry")
	}
	t.shutdown.push(func(ctx context.Context) error {
		sentry.Shutdown(ctx, sentryFlushTimeout)
		return nil
	})

	return t, nil
}

// Shutdown flushes and stops the exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.shutdown.run(ctx)
}

// GetLogger returns a component-specific logger.
func (t *Telemetry) GetLogger(component string) zerolog.Logger {
	return t.Logger.With().Str("component", t.serviceName+"."+component).Logger()
}

// GetLoggerWithTrace returns a component-specific logger enriched with trace context.
func (t *Telemetry) GetLoggerWithTrace(ctx context.Context, component string) zerolog.Logger {
	span := trace.SpanFromContext(ctx)

	logger := t.Logger.With().Str("component", t.serviceName+"."+component)

	if span.IsRecording() {
		spanCtx := span.SpanContext()
		logger = logger.
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String())
	}

	return logger.Logger()
}

func init() { //nolint:gochecknoinits // Its fine
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	log.Logger = zerolog.New(consoleWriter). //nolint:reassign // Its fine
							With().
							Timestamp().
							Caller().
							Logger()
}

// GetGlobalLogger returns a component-specific logger using the global console logger. Packages
// use it when the host didn't hand them a logger.
func GetGlobalLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// SetGlobalLogLevel sets the level of every logger. Unknown levels fall back to info.
func SetGlobalLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
