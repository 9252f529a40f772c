package ecs

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kyanite-engine/kyanite/pkg/assert"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Tick runs every pipeline in order, and every system of a pipeline in registration order, then
// applies the queued structural changes. dt is passed through to the systems.
//
// A failing system doesn't stop the tick. Its error is logged, the remaining systems still run, and
// the errors of all failed systems are returned joined together.
func (w *World) Tick(dt float64) error {
	return w.TickContext(context.Background(), dt)
}

// TickContext is Tick with a parent context for the tick's span.
func (w *World) TickContext(ctx context.Context, dt float64) error {
	w.started = true
	w.tick++

	ctx, span := w.tracer.Start(ctx, "ecs.tick", trace.WithAttributes(
		attribute.Int64("tick", int64(w.tick)), //nolint:gosec // won't overflow
		attribute.Float64("dt", dt),
	))
	defer span.End()

	var errs []error
	w.iterating.Store(true)
	defer w.iterating.Store(false)
	for _, p := range w.pipelines {
		for _, s := range p.systems {
			if err := w.runSystem(ctx, s, dt); err != nil {
				w.logger.Error().
					Err(err).
					Str("system", s.name).
					Str("pipeline", p.name).
					Uint64("tick", w.tick).
					Msg("system failed")
				errs = append(errs, err)
			}

			if w.options.commitMode == CommitAfterSystem {
				w.iterating.Store(false)
				w.commit()
				w.iterating.Store(true)
			}
		}
	}
	w.iterating.Store(false)

	applied := w.commit()
	span.SetAttributes(attribute.Int("commands", applied))

	if len(errs) > 0 {
		err := eris.Wrapf(errors.Join(errs...), "tick %d: %d systems failed", w.tick, len(errs))
		span.RecordError(err)
		span.SetStatus(codes.Error, "systems failed")
		return err
	}
	return nil
}

// runSystem runs one system over every non-empty archetype it matches. Parallel systems split the
// work into views of at most chunkSize rows and run them on up to workers goroutines; runSystem
// returns once all of them are done.
func (w *World) runSystem(ctx context.Context, s *system, dt float64) error {
	_, span := w.tracer.Start(ctx, "ecs.system", trace.WithAttributes(
		attribute.String("system", s.name),
		attribute.String("pipeline", s.pipeline),
		attribute.Bool("parallel", s.parallel),
	))
	defer span.End()

	s.refresh(&w.store)

	var err error
	if s.parallel {
		err = w.runParallel(s, dt)
	} else {
		err = w.runSequential(s, dt)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "system failed")
		return eris.Wrapf(err, "system %s failed", s.name)
	}
	return nil
}

func (w *World) runSequential(s *system, dt float64) error {
	for _, m := range s.matches {
		n := m.arch.len()
		if n == 0 {
			continue
		}
		view := w.newView(s, m, 0, n)
		if err := s.fn(dt, &view); err != nil {
			return err
		}
	}
	return nil
}

// runParallel turns a panic in a worker into that view's error, since nothing above the worker
// goroutine could recover it. Failed assertions are raised again on the calling goroutine once every
// worker is done, so they stay fatal in development builds like they are for sequential systems.
func (w *World) runParallel(s *system, dt float64) error {
	g := new(errgroup.Group)
	g.SetLimit(w.options.workers)

	var failure atomic.Pointer[assert.Failure]
	chunk := w.options.chunkSize
	for _, m := range s.matches {
		n := m.arch.len()
		for start := 0; start < n; start += chunk {
			view := w.newView(s, m, start, min(start+chunk, n))
			g.Go(func() (err error) {
				defer func() {
					r := recover()
					if r == nil {
						return
					}
					if f, ok := r.(assert.Failure); ok {
						failure.CompareAndSwap(nil, &f)
					}
					err = eris.Errorf("panic in rows %d-%d of archetype %d: %v", view.start, view.end, view.arch.id, r)
				}()
				return s.fn(dt, &view)
			})
		}
	}
	err := g.Wait()
	if f := failure.Load(); f != nil {
		panic(*f)
	}
	return err
}

func (w *World) newView(s *system, m systemMatch, start, end int) View {
	return View{
		world:   w,
		arch:    m.arch,
		ids:     s.order,
		columns: m.columns,
		start:   start,
		end:     end,
	}
}
