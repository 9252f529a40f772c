package engine

import (
	"github.com/caarlos0/env/v11"
	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/rotisserie/eris"
)

// Config holds the engine configuration that can be set through environment variables.
type Config struct {
	// Number of frames per second Run aims for.
	TickRate float64 `env:"KYANITE_TICK_RATE" envDefault:"60"`

	// Size of the resource manager's file cache in bytes.
	AssetCacheBytes int `env:"KYANITE_ASSET_CACHE_BYTES" envDefault:"4194304"`
}

// LoadConfig loads the engine configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse engine config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.TickRate <= 0 {
		return eris.New("tick rate must be positive")
	}
	if cfg.AssetCacheBytes <= 0 {
		return eris.New("asset cache size must be positive")
	}
	return nil
}

// applyToOptions applies the configuration values to the given Options.
func (cfg *Config) applyToOptions(opt *Options) {
	opt.TickRate = cfg.TickRate
	opt.AssetCacheBytes = cfg.AssetCacheBytes
}

// Options configures an Engine. Zero values keep the configured or default value.
type Options struct {
	TickRate        float64 // Frames per second of Run
	AssetCacheBytes int     // Size of the file cache

	Files    FileSystem   // Source of asset files, required
	Assets   AssetBackend // Creates textures, shaders and materials, required
	Renderer Renderer     // Receives sprite draws, optional
	Physics  Physics      // Creates rigid bodies, optional

	WorldOptions []ecs.WorldOption // Passed through to ecs.NewWorld
}

func newDefaultOptions() Options {
	return Options{
		TickRate:        60,
		AssetCacheBytes: 4 << 20,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.TickRate != 0 {
		opt.TickRate = newOpt.TickRate
	}
	if newOpt.AssetCacheBytes != 0 {
		opt.AssetCacheBytes = newOpt.AssetCacheBytes
	}
	if newOpt.Files != nil {
		opt.Files = newOpt.Files
	}
	if newOpt.Assets != nil {
		opt.Assets = newOpt.Assets
	}
	if newOpt.Renderer != nil {
		opt.Renderer = newOpt.Renderer
	}
	if newOpt.Physics != nil {
		opt.Physics = newOpt.Physics
	}
	opt.WorldOptions = append(opt.WorldOptions, newOpt.WorldOptions...)
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.TickRate <= 0 {
		return eris.New("tick rate must be positive")
	}
	if opt.AssetCacheBytes <= 0 {
		return eris.New("asset cache size must be positive")
	}
	if opt.Files == nil {
		return eris.New("file system is required")
	}
	if opt.Assets == nil {
		return eris.New("asset backend is required")
	}
	return nil
}
