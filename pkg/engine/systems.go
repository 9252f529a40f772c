package engine

import (
	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/rotisserie/eris"
)

// Pipeline names used by the built-in systems, in execution order. PipelineUpdate is the world's
// default pipeline; gameplay systems that write local transforms belong there. PipelineLateUpdate
// composes world transforms, so systems registered in it after RegisterSystems read current world
// values.
const (
	PipelineUpdate     = ecs.DefaultPipeline
	PipelineLateUpdate = "onLateUpdate"
	PipelineRender     = "onRender"
)

// MovementSystem advances the local position of every entity with a Velocity.
func MovementSystem(dt float64, view *ecs.View) error {
	transforms := ecs.Buffer[Transform](view, 0)
	velocities := ecs.Buffer[Velocity](view, 1)
	for i := range transforms {
		transforms[i].LocalPosition = transforms[i].LocalPosition.Add(velocities[i].Linear.Scale(dt))
	}
	return nil
}

// hierarchySystem composes world transforms from local transforms down the entity hierarchy. A
// child's world position and rotation are its parent's plus its local values, and its world scale
// is the component-wise product. Entities without a parent, or whose parent has no Transform, take
// their local values.
//
// Parents may live in other archetypes or later rows, so every entity's world transform is derived
// from the local transforms of its whole ancestor chain. Results are memoized for the frame.
type hierarchySystem struct {
	frame  uint64
	worlds map[ecs.EntityID]Transform
}

func newHierarchySystem() *hierarchySystem {
	return &hierarchySystem{worlds: make(map[ecs.EntityID]Transform)}
}

func (h *hierarchySystem) run(_ float64, view *ecs.View) error {
	w := view.World()
	if frame := w.CurrentTick(); frame != h.frame {
		h.frame = frame
		clear(h.worlds)
	}

	transforms := ecs.Buffer[Transform](view, 0)
	for i, e := range view.Entities() {
		world := h.resolve(w, e, transforms[i])
		transforms[i].Position = world.Position
		transforms[i].Rotation = world.Rotation
		transforms[i].Scale = world.Scale
	}
	return nil
}

// resolve returns the world transform of e, whose own transform is local.
func (h *hierarchySystem) resolve(w *ecs.World, e ecs.EntityID, local Transform) Transform {
	if world, ok := h.worlds[e]; ok {
		return world
	}

	world := Transform{
		Position: local.LocalPosition,
		Rotation: local.LocalRotation,
		Scale:    local.LocalScale,
	}
	if parent := w.Parent(e); parent != ecs.Null {
		if pt := ecs.Get[Transform](w, parent); pt != nil {
			pw := h.resolve(w, parent, *pt)
			world.Position = pw.Position.Add(local.LocalPosition)
			world.Rotation = pw.Rotation + local.LocalRotation
			world.Scale = pw.Scale.Mul(local.LocalScale)
		}
	}

	h.worlds[e] = world
	return world
}

// renderSystem submits one draw per sprite.
type renderSystem struct {
	renderer Renderer
}

func (r renderSystem) run(_ float64, view *ecs.View) error {
	sprites := ecs.Buffer[Sprite](view, 0)
	transforms := ecs.Buffer[Transform](view, 1)
	entities := view.Entities()

	for i := range sprites {
		t := transforms[i]
		err := r.renderer.SubmitDraw(DrawCommand{
			Entity:   entities[i],
			Material: sprites[i].Material,
			Layer:    sprites[i].Layer,
			Position: t.Position,
			Rotation: t.Rotation,
			Scale:    t.Scale,
			Model:    SpriteMatrix(t.Position, t.Rotation, t.Scale),
		})
		if err != nil {
			return eris.Wrapf(err, "failed to draw entity %d", entities[i])
		}
	}
	return nil
}

// physicsSystem creates a physics body for every rigid body that doesn't have one yet.
type physicsSystem struct {
	physics Physics
}

func (p physicsSystem) run(_ float64, view *ecs.View) error {
	bodies := ecs.Buffer[RigidBody](view, 0)
	transforms := ecs.Buffer[Transform](view, 1)
	entities := view.Entities()

	for i := range bodies {
		if bodies[i].Body != 0 {
			continue
		}
		handle, err := p.physics.CreateRigidBody(BodyDesc{
			Entity:   entities[i],
			Shape:    bodies[i].Shape,
			Position: transforms[i].Position,
			Width:    bodies[i].Width,
			Height:   bodies[i].Height,
			Radius:   bodies[i].Radius,
		})
		if err != nil {
			return eris.Wrapf(ErrResourceLoadFailure, "rigid body of entity %d: %v", entities[i], err)
		}
		bodies[i].Body = handle
	}
	return nil
}

// Systems are the collaborators of the built-in systems. A nil collaborator skips its system.
type Systems struct {
	Renderer Renderer
	Physics  Physics
}

// RegisterSystems registers the built-in systems. Movement runs in PipelineUpdate, hierarchy and
// then physics in PipelineLateUpdate, and rendering in PipelineRender. Systems registered in
// PipelineUpdate afterwards still run before hierarchy. The world's components must already be
// registered with RegisterComponents.
func RegisterSystems(w *ecs.World, deps Systems) error {
	if err := w.AddPipeline(PipelineLateUpdate); err != nil {
		return err
	}
	if err := w.AddPipeline(PipelineRender); err != nil {
		return err
	}

	_, err := w.RegisterSystem("movement",
		[]ecs.ComponentKey{ecs.Of[Transform](), ecs.Of[Velocity]()},
		MovementSystem, ecs.Parallel())
	if err != nil {
		return err
	}

	_, err = w.RegisterSystem("hierarchy",
		[]ecs.ComponentKey{ecs.Of[Transform]()},
		newHierarchySystem().run, ecs.InPipeline(PipelineLateUpdate))
	if err != nil {
		return err
	}

	if deps.Physics != nil {
		_, err = w.RegisterSystem("physics",
			[]ecs.ComponentKey{ecs.Of[RigidBody](), ecs.Of[Transform]()},
			physicsSystem{physics: deps.Physics}.run, ecs.InPipeline(PipelineLateUpdate))
		if err != nil {
			return err
		}
	}

	if deps.Renderer != nil {
		_, err = w.RegisterSystem("render",
			[]ecs.ComponentKey{ecs.Of[Sprite](), ecs.Of[Transform]()},
			renderSystem{renderer: deps.Renderer}.run,
			ecs.InPipeline(PipelineRender), ecs.Parallel())
		if err != nil {
			return err
		}
	}
	return nil
}
