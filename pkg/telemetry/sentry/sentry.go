// Package sentry reports engine panics and failed frames to Sentry. Every function is a no-op until
// New has been called with a DSN.
package sentry

import (
	"context"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"
)

// flushTimeout bounds how long a recovered panic waits for its event to be sent.
const flushTimeout = 5 * time.Second

type Options struct {
	Dsn         string
	Environment string
	Tags        map[string]string
}

// New initializes the global Sentry client. An empty DSN leaves Sentry disabled.
func New(opt Options) error {
	if opt.Dsn == "" {
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:         opt.Dsn,
		Environment: opt.Environment,
		Tags:        opt.Tags,
	})
	if err != nil {
		return eris.Wrap(err, "failed to initialize sentry")
	}
	return nil
}

// RecoverAndFlush reports a panic, if any, and flushes buffered events. It must be deferred
// directly. With repanic the panic continues after the flush.
func RecoverAndFlush(repanic bool) {
	if !Enabled() {
		return
	}
	if r := recover(); r != nil {
		sentrygo.CurrentHub().Recover(r)
		sentrygo.Flush(flushTimeout)
		if repanic {
			panic(r)
		}
		return
	}
	sentrygo.Flush(flushTimeout)
}

// CaptureException reports a handled error, tagged with the trace of ctx and the given tags.
func CaptureException(ctx context.Context, err error, tags map[string]string) {
	if !Enabled() || err == nil {
		return
	}
	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			scope.SetTag("trace_id", spanCtx.TraceID().String())
			scope.SetTag("span_id", spanCtx.SpanID().String())
		}
		scope.SetTags(tags)
		sentrygo.CaptureException(err)
	})
}

// Shutdown flushes buffered events, waiting at most timeout or until the context deadline.
func Shutdown(ctx context.Context, timeout time.Duration) {
	if !Enabled() {
		return
	}
	t := timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until > 0 && until < t {
			t = until
		}
	}
	if t <= 0 {
		t = 1 * time.Second
	}
	sentrygo.Flush(t)
}

// Enabled reports whether a Sentry client is initialized.
func Enabled() bool {
	return sentrygo.CurrentHub().Client() != nil
}
