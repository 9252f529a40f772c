// Package demo is a small scene for the terminal renderer: ships bounce around an arena with
// moons orbiting them and leave fading trails behind.
package demo

import (
	"embed"
	"io/fs"
	"math"
	"math/rand/v2"

	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/rotisserie/eris"
)

//go:embed assets
var assets embed.FS

// Files returns the demo's asset files.
func Files() engine.FileSystem {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// The directory is embedded, so this only fails if the embed pattern changes.
		panic(err)
	}
	return engine.FSFileSystem{FS: sub}
}

// Layers the sprites are drawn on, back to front.
const (
	layerStars = iota
	layerTrail
	layerMoons
	layerShips
)

// Options configures the scene.
type Options struct {
	Ships    int
	Stars    int
	MaxSpeed float64 // Units per second
	Arena    Arena
	Seed     uint64
}

// Materials are the handles of the demo's materials.
type Materials struct {
	Ship, Moon, Spark, Star engine.Handle
}

// LoadMaterials creates the demo materials.
func LoadMaterials(rm *engine.ResourceManager) (Materials, error) {
	var m Materials
	for _, mat := range []struct {
		path   string
		handle *engine.Handle
	}{
		{"materials/ship.json", &m.Ship},
		{"materials/moon.json", &m.Moon},
		{"materials/spark.json", &m.Spark},
		{"materials/star.json", &m.Star},
	} {
		h, err := rm.CreateMaterial(mat.path)
		if err != nil {
			return Materials{}, eris.Wrap(err, "failed to load demo materials")
		}
		*mat.handle = h
	}
	return m, nil
}

// Setup registers the demo components and systems on the engine's world and spawns the scene.
func Setup(eng *engine.Engine, opts Options) error {
	if opts.Arena.Width <= 0 || opts.Arena.Height <= 0 {
		return eris.Errorf("arena must have a positive size, got %vx%v", opts.Arena.Width, opts.Arena.Height)
	}

	w := eng.World()
	if err := RegisterComponents(w); err != nil {
		return eris.Wrap(err, "failed to register demo components")
	}
	if err := RegisterSystems(w, opts.Arena); err != nil {
		return eris.Wrap(err, "failed to register demo systems")
	}

	mats, err := LoadMaterials(eng.Resources())
	if err != nil {
		return err
	}
	return Spawn(w, mats, opts)
}

// Spawn creates the stars and ships of the scene.
func Spawn(w *ecs.World, mats Materials, opts Options) error {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	randomPoint := func() engine.Vec3 {
		return engine.Vec3{X: rng.Float64() * opts.Arena.Width, Y: rng.Float64() * opts.Arena.Height}
	}

	for range opts.Stars {
		_, err := w.CreateEntity("star",
			engine.NewTransform(randomPoint(), 0, engine.One),
			engine.Sprite{Material: mats.Star, Layer: layerStars})
		if err != nil {
			return eris.Wrap(err, "failed to spawn star")
		}
	}

	for range opts.Ships {
		heading := rng.Float64() * 2 * math.Pi
		speed := opts.MaxSpeed * (0.25 + 0.75*rng.Float64())

		ship, err := w.CreateEntity("ship",
			engine.NewTransform(randomPoint(), heading, engine.One),
			engine.Velocity{Linear: engine.Vec3{X: speed * math.Cos(heading), Y: speed * math.Sin(heading)}},
			engine.Sprite{Material: mats.Ship, Layer: layerShips},
			Emitter{Interval: 0.15, TTL: 1.2, Material: mats.Spark})
		if err != nil {
			return eris.Wrap(err, "failed to spawn ship")
		}

		moon, err := w.CreateEntity("moon",
			engine.NewTransform(engine.Vec3{}, 0, engine.One),
			engine.Sprite{Material: mats.Moon, Layer: layerMoons},
			Orbit{Radius: 2, Rate: 1.5 + rng.Float64(), Angle: rng.Float64() * 2 * math.Pi})
		if err != nil {
			return eris.Wrap(err, "failed to spawn moon")
		}
		if err := w.SetParent(moon, ship); err != nil {
			return eris.Wrap(err, "failed to attach moon")
		}
	}
	return nil
}
