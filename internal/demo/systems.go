package demo

import (
	"math"

	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/rotisserie/eris"
)

// Arena is the rectangle moving entities stay inside, in world units.
type Arena struct {
	Width  float64
	Height float64
}

// BounceSystem reflects the velocity of entities that leave the arena and puts them back on its
// edge. Children are skipped since their local position is relative to the parent.
func BounceSystem(arena Arena) ecs.SystemFunc {
	return func(_ float64, view *ecs.View) error {
		transforms := ecs.Buffer[engine.Transform](view, 0)
		velocities := ecs.Buffer[engine.Velocity](view, 1)
		entities := view.Entities()
		w := view.World()

		for i := range transforms {
			if w.Parent(entities[i]) != ecs.Null {
				continue
			}
			p, v := &transforms[i].LocalPosition, &velocities[i].Linear
			p.X, v.X = bounce(p.X, v.X, arena.Width)
			p.Y, v.Y = bounce(p.Y, v.Y, arena.Height)
		}
		return nil
	}
}

// bounce keeps pos in [0, limit), mirroring it at the edge it crossed.
func bounce(pos, vel, limit float64) (float64, float64) {
	top := math.Nextafter(limit, 0)
	switch {
	case pos < 0:
		return min(-pos, top), math.Abs(vel)
	case pos > top:
		return min(max(2*limit-pos, 0), top), -math.Abs(vel)
	default:
		return pos, vel
	}
}

// OrbitSystem advances orbits and places the entity on its circle.
func OrbitSystem(dt float64, view *ecs.View) error {
	orbits := ecs.Buffer[Orbit](view, 0)
	transforms := ecs.Buffer[engine.Transform](view, 1)

	for i := range orbits {
		o := &orbits[i]
		o.Angle = math.Mod(o.Angle+o.Rate*dt, 2*math.Pi)
		transforms[i].LocalPosition = engine.Vec3{
			X: o.Radius * math.Cos(o.Angle),
			Y: o.Radius * math.Sin(o.Angle),
		}
		transforms[i].LocalRotation = o.Angle
	}
	return nil
}

// EmitterSystem queues a particle at the emitter's world position every interval.
func EmitterSystem(dt float64, view *ecs.View) error {
	emitters := ecs.Buffer[Emitter](view, 0)
	transforms := ecs.Buffer[engine.Transform](view, 1)
	cmds := view.Commands()

	for i := range emitters {
		e := &emitters[i]
		if e.Interval <= 0 {
			return eris.Errorf("entity %d has an emitter without an interval", view.Entities()[i])
		}
		e.Elapsed += dt
		for e.Elapsed >= e.Interval {
			e.Elapsed -= e.Interval
			cmds.Create("particle",
				engine.NewTransform(transforms[i].Position, 0, engine.One),
				engine.Sprite{Material: e.Material, Layer: layerTrail},
				Lifetime{Remaining: e.TTL})
		}
	}
	return nil
}

// LifetimeSystem counts lifetimes down and queues the destruction of expired entities.
func LifetimeSystem(dt float64, view *ecs.View) error {
	lifetimes := ecs.Buffer[Lifetime](view, 0)
	entities := view.Entities()
	cmds := view.Commands()

	for i := range lifetimes {
		lifetimes[i].Remaining -= dt
		if lifetimes[i].Remaining <= 0 {
			cmds.Destroy(entities[i])
		}
	}
	return nil
}

// RegisterSystems registers the demo systems after the engine's built-in ones. Bounce and orbit
// write local transforms ahead of the hierarchy; the emitter spawns at world positions, so it runs
// after them in engine.PipelineLateUpdate.
func RegisterSystems(w *ecs.World, arena Arena) error {
	systems := []struct {
		name     string
		requires []ecs.ComponentKey
		fn       ecs.SystemFunc
		pipeline string
	}{
		{"bounce", []ecs.ComponentKey{ecs.Of[engine.Transform](), ecs.Of[engine.Velocity]()}, BounceSystem(arena), engine.PipelineUpdate},
		{"orbit", []ecs.ComponentKey{ecs.Of[Orbit](), ecs.Of[engine.Transform]()}, OrbitSystem, engine.PipelineUpdate},
		{"lifetime", []ecs.ComponentKey{ecs.Of[Lifetime]()}, LifetimeSystem, engine.PipelineUpdate},
		{"emitter", []ecs.ComponentKey{ecs.Of[Emitter](), ecs.Of[engine.Transform]()}, EmitterSystem, engine.PipelineLateUpdate},
	}
	for _, s := range systems {
		_, err := w.RegisterSystem(s.name, s.requires, s.fn, ecs.InPipeline(s.pipeline), ecs.Parallel())
		if err != nil {
			return err
		}
	}
	return nil
}
