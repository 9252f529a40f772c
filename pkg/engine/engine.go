package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/telemetry"
	"github.com/kyanite-engine/kyanite/pkg/telemetry/sentry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Engine runs a world at a fixed frame rate with the built-in systems wired to its collaborators.
type Engine struct {
	world     *ecs.World
	resources *ResourceManager
	options   Options
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// New creates an engine with a fresh world. Configuration is read from the environment and
// overridden by opts. tel may be nil, in which case the global logger and a noop tracer are used.
func New(opts Options, tel *telemetry.Telemetry) (*Engine, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	options := newDefaultOptions()
	cfg.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid engine options")
	}

	logger := telemetry.GetGlobalLogger("engine")
	var tracer trace.Tracer = noop.NewTracerProvider().Tracer("engine")
	if tel != nil {
		logger = tel.GetLogger("engine")
		tracer = tel.Tracer
	}

	worldOpts := []ecs.WorldOption{ecs.WithLogger(logger.With().Str("subsystem", "ecs").Logger()), ecs.WithTracer(tracer)}
	world, err := ecs.NewWorld(append(worldOpts, options.WorldOptions...)...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create world")
	}
	if err := RegisterComponents(world); err != nil {
		return nil, eris.Wrap(err, "failed to register components")
	}
	if err := RegisterSystems(world, Systems{Renderer: options.Renderer, Physics: options.Physics}); err != nil {
		return nil, eris.Wrap(err, "failed to register systems")
	}

	return &Engine{
		world:     world,
		resources: NewResourceManager(options.Files, options.Assets, options.AssetCacheBytes, logger),
		options:   options,
		logger:    logger,
		tracer:    tracer,
	}, nil
}

// World returns the engine's world. Game code registers its own components and systems on it
// before the first frame. Systems in the default pipeline run before world transforms are
// composed; see PipelineLateUpdate.
func (e *Engine) World() *ecs.World {
	return e.world
}

// Resources returns the engine's resource manager.
func (e *Engine) Resources() *ResourceManager {
	return e.resources
}

// Step runs one frame with the given delta time in seconds.
func (e *Engine) Step(ctx context.Context, dt float64) error {
	ctx, span := e.tracer.Start(ctx, "engine.frame", trace.WithAttributes(attribute.Float64("dt", dt)))
	defer span.End()

	frames, _ := e.options.Renderer.(FrameRenderer)
	if frames != nil {
		if err := frames.StartFrame(); err != nil {
			span.RecordError(err)
			return eris.Wrap(err, "failed to start frame")
		}
	}

	tickErr := e.world.TickContext(ctx, dt)

	// The frame is ended even if systems failed, so the renderer never stays mid-frame.
	if frames != nil {
		if err := frames.EndFrame(); err != nil {
			tickErr = errors.Join(tickErr, eris.Wrap(err, "failed to end frame"))
		}
	}
	if tickErr != nil {
		span.RecordError(tickErr)
		return tickErr
	}
	return nil
}

// Run runs frames at the configured tick rate until ctx is cancelled. Each frame gets the real time
// elapsed since the previous one. A failed frame is logged and reported, and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	defer sentry.RecoverAndFlush(true)

	interval := time.Duration(float64(time.Second) / e.options.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info().Float64("tick_rate", e.options.TickRate).Msg("engine started")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Uint64("frames", e.world.CurrentTick()).Msg("engine stopped")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			if err := e.Step(ctx, dt); err != nil {
				e.logger.Error().Err(err).Uint64("frame", e.world.CurrentTick()).Msg("frame failed")
				sentry.CaptureException(ctx, err, map[string]string{"component": "engine"})
			}
		}
	}
}
