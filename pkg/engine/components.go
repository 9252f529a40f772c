package engine

import "github.com/kyanite-engine/kyanite/pkg/ecs"

// Transform places an entity in the scene. The Local fields are relative to the parent entity and
// are the ones gameplay code writes. Position, Rotation and Scale are the composed world values,
// written by the hierarchy system each frame.
type Transform struct {
	LocalPosition Vec3
	LocalRotation float64 // Radians around the Z axis
	LocalScale    Vec3

	Position Vec3
	Rotation float64
	Scale    Vec3
}

// NewTransform returns a transform whose local and world values are both the given values.
func NewTransform(position Vec3, rotation float64, scale Vec3) Transform {
	return Transform{
		LocalPosition: position,
		LocalRotation: rotation,
		LocalScale:    scale,
		Position:      position,
		Rotation:      rotation,
		Scale:         scale,
	}
}

func (Transform) Name() string { return "transform" }

// Velocity moves an entity's local position every frame.
type Velocity struct {
	Linear Vec3 // Units per second
}

func (Velocity) Name() string { return "velocity" }

// Sprite draws an entity with a material.
type Sprite struct {
	Material Handle
	Layer    int // Sprites on higher layers are drawn on top
}

func (Sprite) Name() string { return "sprite" }

// BodyShape is the collider shape of a rigid body.
type BodyShape uint8

const (
	ShapeBox BodyShape = iota
	ShapeCircle
)

// RigidBody gives an entity a physics body. Body is zero until the physics system created it.
type RigidBody struct {
	Shape  BodyShape
	Width  float64 // Box only
	Height float64 // Box only
	Radius float64 // Circle only
	Body   Handle
}

func (RigidBody) Name() string { return "rigid_body" }

// RegisterComponents registers the engine's built-in components with the world.
func RegisterComponents(w *ecs.World) error {
	if _, err := ecs.RegisterComponent[Transform](w); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Velocity](w); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Sprite](w); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[RigidBody](w); err != nil {
		return err
	}
	return nil
}
