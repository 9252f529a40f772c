package ecs

import (
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/kyanite-engine/kyanite/pkg/telemetry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultChunkSize is the default maximum number of rows in a view handed to a parallel system.
const DefaultChunkSize = 1024

// CommitMode controls when queued structural changes are applied.
type CommitMode string

const (
	// CommitEndOfTick applies queued changes once, after every pipeline has run.
	CommitEndOfTick CommitMode = "end_of_tick"
	// CommitAfterSystem applies queued changes after each system, so later systems in the same
	// tick observe them.
	CommitAfterSystem CommitMode = "after_system"
)

// WorldConfig holds the configuration of a World that can be set through environment variables.
type WorldConfig struct {
	// Maximum number of concurrent tasks for parallel systems. 0 means GOMAXPROCS.
	Workers int `env:"KYANITE_ECS_WORKERS" envDefault:"0"`

	// Maximum number of rows in a view handed to a parallel system.
	ChunkSize int `env:"KYANITE_ECS_CHUNK_SIZE" envDefault:"1024"`

	// When queued structural changes are applied, either end_of_tick or after_system.
	CommitMode string `env:"KYANITE_ECS_COMMIT_MODE" envDefault:"end_of_tick"`
}

// LoadWorldConfig loads the world configuration from environment variables.
func LoadWorldConfig() (WorldConfig, error) {
	cfg := WorldConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse world config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *WorldConfig) validate() error {
	if cfg.Workers < 0 {
		return eris.New("workers cannot be negative")
	}
	if cfg.ChunkSize <= 0 {
		return eris.New("chunk size must be positive")
	}
	switch CommitMode(cfg.CommitMode) {
	case CommitEndOfTick, CommitAfterSystem:
	default:
		return eris.Errorf("invalid commit mode %q: must be either '%s' or '%s'",
			cfg.CommitMode, CommitEndOfTick, CommitAfterSystem)
	}
	return nil
}

// Options returns the world options equivalent to the configuration.
func (cfg WorldConfig) Options() []WorldOption {
	return []WorldOption{
		WithWorkers(cfg.Workers),
		WithChunkSize(cfg.ChunkSize),
		WithCommitMode(CommitMode(cfg.CommitMode)),
	}
}

// worldOptions holds the resolved options of a World.
type worldOptions struct {
	workers    int
	chunkSize  int
	commitMode CommitMode
	logger     *zerolog.Logger
	tracer     trace.Tracer
}

// newDefaultWorldOptions creates world options with default values.
func newDefaultWorldOptions() worldOptions {
	return worldOptions{
		workers:    runtime.GOMAXPROCS(0),
		chunkSize:  DefaultChunkSize,
		commitMode: CommitEndOfTick,
		logger:     nil,
		tracer:     nil,
	}
}

// validate checks the options after all overrides were applied.
func (opt *worldOptions) validate() error {
	if opt.workers <= 0 {
		return eris.New("workers must be positive")
	}
	if opt.chunkSize <= 0 {
		return eris.New("chunk size must be positive")
	}
	if opt.commitMode != CommitEndOfTick && opt.commitMode != CommitAfterSystem {
		return eris.Errorf("invalid commit mode %q", opt.commitMode)
	}
	return nil
}

// resolveLogger returns the configured logger, or the package's global logger.
func (opt *worldOptions) resolveLogger() zerolog.Logger {
	if opt.logger != nil {
		return *opt.logger
	}
	return telemetry.GetGlobalLogger("ecs")
}

// resolveTracer returns the configured tracer, or a tracer that records nothing.
func (opt *worldOptions) resolveTracer() trace.Tracer {
	if opt.tracer != nil {
		return opt.tracer
	}
	return noop.NewTracerProvider().Tracer("ecs")
}

// WorldOption configures a World.
type WorldOption func(*worldOptions)

// WithWorkers sets the maximum number of concurrent tasks for parallel systems. Values <= 0 keep
// the default of GOMAXPROCS.
func WithWorkers(n int) WorldOption {
	return func(opt *worldOptions) {
		if n > 0 {
			opt.workers = n
		}
	}
}

// WithChunkSize sets the maximum number of rows in a view handed to a parallel system.
func WithChunkSize(n int) WorldOption {
	return func(opt *worldOptions) { opt.chunkSize = n }
}

// WithCommitMode sets when queued structural changes are applied.
func WithCommitMode(mode CommitMode) WorldOption {
	return func(opt *worldOptions) { opt.commitMode = mode }
}

// WithLogger sets the logger of the world.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(opt *worldOptions) { opt.logger = &logger }
}

// WithTracer sets the tracer used for tick and system spans.
func WithTracer(tracer trace.Tracer) WorldOption {
	return func(opt *worldOptions) { opt.tracer = tracer }
}
