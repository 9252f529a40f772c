package main

import (
	"math/rand/v2"
	"time"

	"github.com/kyanite-engine/kyanite/internal/demo"
	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/kyanite-engine/kyanite/pkg/telemetry"
	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// Profiling:
// kyanite profile --mode cpu --out ./prof
// go tool pprof -http=":8000" ./prof/cpu.pprof

var profileModes = map[string]func(*profile.Profile){
	"cpu":    profile.CPUProfile,
	"mem":    profile.MemProfile,
	"allocs": profile.MemProfileAllocs,
	"block":  profile.BlockProfile,
	"mutex":  profile.MutexProfile,
	"trace":  profile.TraceProfile,
}

type profileOptions struct {
	mode     string
	out      string
	entities int
	ticks    int
	workers  int
}

func newProfileCmd() *cobra.Command {
	var opts profileOptions

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Tick a headless world and write a pprof profile",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runProfile(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", "cpu", "profile to record (cpu, mem, allocs, block, mutex, trace)")
	flags.StringVar(&opts.out, "out", ".", "directory the profile is written to")
	flags.IntVar(&opts.entities, "entities", 100_000, "number of moving entities")
	flags.IntVar(&opts.ticks, "ticks", 500, "number of ticks to run")
	flags.IntVar(&opts.workers, "workers", 0, "parallel system workers, 0 uses the configured default")
	return cmd
}

func runProfile(opts profileOptions) error {
	mode, ok := profileModes[opts.mode]
	if !ok {
		return eris.Errorf("unknown profile mode %q", opts.mode)
	}
	logger := telemetry.GetGlobalLogger("profile")

	w, err := ecs.NewWorld(ecs.WithWorkers(opts.workers), ecs.WithLogger(logger))
	if err != nil {
		return err
	}
	arena := demo.Arena{Width: 1000, Height: 1000}
	if err := engine.RegisterComponents(w); err != nil {
		return err
	}
	if err := demo.RegisterComponents(w); err != nil {
		return err
	}
	if err := engine.RegisterSystems(w, engine.Systems{}); err != nil {
		return err
	}
	if err := demo.RegisterSystems(w, arena); err != nil {
		return err
	}
	if err := populate(w, opts.entities, arena); err != nil {
		return err
	}

	p := profile.Start(mode, profile.ProfilePath(opts.out), profile.NoShutdownHook, profile.Quiet)
	start := time.Now()
	for range opts.ticks {
		if err := w.Tick(1.0 / 60); err != nil {
			p.Stop()
			return err
		}
	}
	elapsed := time.Since(start)
	p.Stop()

	logger.Info().
		Int("entities", w.EntityCount()).
		Int("archetypes", w.ArchetypeCount()).
		Int("ticks", opts.ticks).
		Dur("elapsed", elapsed).
		Float64("ticks_per_second", float64(opts.ticks)/elapsed.Seconds()).
		Str("mode", opts.mode).
		Str("out", opts.out).
		Msg("profile written")
	return nil
}

// populate spawns moving entities, giving every tenth one an orbiting child.
func populate(w *ecs.World, n int, arena demo.Arena) error {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range n {
		pos := engine.Vec3{X: rng.Float64() * arena.Width, Y: rng.Float64() * arena.Height}
		vel := engine.Vec3{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10}
		e, err := w.CreateEntity("body", engine.NewTransform(pos, 0, engine.One), engine.Velocity{Linear: vel})
		if err != nil {
			return err
		}
		if i%10 != 0 {
			continue
		}
		child, err := w.CreateEntity("satellite",
			engine.NewTransform(engine.Vec3{}, 0, engine.One),
			demo.Orbit{Radius: 3, Rate: 2})
		if err != nil {
			return err
		}
		if err := w.SetParent(child, e); err != nil {
			return err
		}
	}
	return nil
}
