package demo

import (
	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/engine"
)

// Orbit circles an entity around its parent.
type Orbit struct {
	Radius float64
	Rate   float64 // Radians per second
	Angle  float64
}

func (Orbit) Name() string { return "orbit" }

// Emitter leaves a trail of particles behind an entity.
type Emitter struct {
	Interval float64 // Seconds between particles
	Elapsed  float64
	TTL      float64 // Lifetime of each particle
	Material engine.Handle
}

func (Emitter) Name() string { return "emitter" }

// Lifetime destroys an entity once Remaining drops to zero.
type Lifetime struct {
	Remaining float64
}

func (Lifetime) Name() string { return "lifetime" }

// RegisterComponents registers the demo components. The engine components must be registered too.
func RegisterComponents(w *ecs.World) error {
	if _, err := ecs.RegisterComponent[Orbit](w); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Emitter](w); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Lifetime](w); err != nil {
		return err
	}
	return nil
}
