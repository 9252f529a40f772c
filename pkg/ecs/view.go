package ecs

import (
	"github.com/kyanite-engine/kyanite/pkg/assert"
)

// View is a read/write window over a range of rows of one archetype. It exposes the entity IDs of
// the rows and one buffer per component the system requested, in the order the system declared
// them. A view is only valid for the duration of the system invocation it was passed to.
type View struct {
	world   *World
	arch    *archetype
	ids     []ComponentID    // Requested components in declaration order
	columns []abstractColumn // Column of each requested component
	start   int
	end     int
}

// Len returns the number of rows in the view. Every buffer of the view has exactly this length.
func (v *View) Len() int {
	return v.end - v.start
}

// Entities returns the entity ID of each row.
func (v *View) Entities() []EntityID {
	return v.arch.entities[v.start:v.end:v.end]
}

// ComponentID returns the ID of the k-th requested component.
func (v *View) ComponentID(k int) ComponentID {
	return v.ids[k]
}

// Archetype returns the ID of the archetype the view reads from.
func (v *View) Archetype() int {
	return v.arch.id
}

// Raw returns the packed bytes of the k-th requested component, which must be a raw component.
// Row r starts at r*Stride(k). Returns nil if the component is typed.
func (v *View) Raw(k int) []byte {
	col, ok := v.columns[k].(*rawColumn)
	assert.That(ok, "component %d of the view is not a raw component", k)
	if !ok {
		return nil
	}
	return col.window(v.start, v.end)
}

// Stride returns the distance in bytes between rows of the k-th requested component when it is a
// raw component, or 0 for typed components.
func (v *View) Stride(k int) int {
	if col, ok := v.columns[k].(*rawColumn); ok {
		return col.stride
	}
	return 0
}

// World returns the world the view belongs to. Systems may read other entities through it, for
// example a parent's transform, but structural changes must go through Commands.
func (v *View) World() *World {
	return v.world
}

// Commands returns the structural change queue. Changes are applied in the commit phase.
func (v *View) Commands() *Commands {
	return v.world.queue
}

// Buffer returns the k-th requested component of the view as a typed slice. The slice aliases the
// archetype's storage, so writes are visible to later systems. Returns nil if T doesn't match the
// component's type.
func Buffer[T Component](v *View, k int) []T {
	col, ok := v.columns[k].(*column[T])
	assert.That(ok, "component %d of the view is not of type %T", k, *new(T))
	if !ok {
		return nil
	}
	return col.window(v.start, v.end)
}
