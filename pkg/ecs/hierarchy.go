package ecs

import (
	"slices"

	"github.com/rotisserie/eris"
)

// hierarchy stores the parent/child relation between entities. Entities without a parent are
// roots. Children keep the order in which they were attached.
type hierarchy struct {
	parents  map[EntityID]EntityID   // Child -> parent
	children map[EntityID][]EntityID // Parent -> children
}

func newHierarchy() hierarchy {
	return hierarchy{
		parents:  make(map[EntityID]EntityID),
		children: make(map[EntityID][]EntityID),
	}
}

// attach makes parent the parent of child. Returns ErrHierarchyCycle if child is parent or one of
// its ancestors.
func (h *hierarchy) attach(child, parent EntityID) error {
	for ancestor := parent; ancestor != Null; ancestor = h.parents[ancestor] {
		if ancestor == child {
			return eris.Wrapf(ErrHierarchyCycle, "entity %d cannot be a child of %d", child, parent)
		}
	}
	if h.parents[child] == parent {
		return nil
	}
	h.unlink(child)
	h.parents[child] = parent
	h.children[parent] = append(h.children[parent], child)
	return nil
}

// unlink removes child from its parent's children, making it a root.
func (h *hierarchy) unlink(child EntityID) {
	parent, ok := h.parents[child]
	if !ok {
		return
	}
	delete(h.parents, child)
	siblings := slices.DeleteFunc(h.children[parent], func(e EntityID) bool { return e == child })
	if len(siblings) == 0 {
		delete(h.children, parent)
	} else {
		h.children[parent] = siblings
	}
}

// detach removes a destroyed entity from the relation. Its children become roots.
func (h *hierarchy) detach(e EntityID) {
	h.unlink(e)
	for _, child := range h.children[e] {
		delete(h.parents, child)
	}
	delete(h.children, e)
}

// SetParent makes parent the parent of child. Passing Null as parent makes child a root. Both
// entities must be alive and the change must not create a cycle.
func (w *World) SetParent(child, parent EntityID) error {
	if parent == Null {
		return w.ClearParent(child)
	}
	if w.deferred("SetParent", command{kind: commandSetParent, entity: child, parent: parent}) {
		return nil
	}
	return w.setParent(child, parent)
}

// ClearParent makes child a root.
func (w *World) ClearParent(child EntityID) error {
	if w.deferred("ClearParent", command{kind: commandClearParent, entity: child}) {
		return nil
	}
	if !w.Alive(child) {
		return eris.Wrapf(ErrEntityNotFound, "entity %d", child)
	}
	w.hierarchy.unlink(child)
	return nil
}

// Parent returns the parent of an entity, or Null for roots.
func (w *World) Parent(e EntityID) EntityID {
	return w.hierarchy.parents[e]
}

// Children returns the children of an entity in the order they were attached.
func (w *World) Children(e EntityID) []EntityID {
	return slices.Clone(w.hierarchy.children[e])
}

func (w *World) setParent(child, parent EntityID) error {
	if !w.Alive(child) {
		return eris.Wrapf(ErrEntityNotFound, "child entity %d", child)
	}
	if !w.Alive(parent) {
		return eris.Wrapf(ErrEntityNotFound, "parent entity %d", parent)
	}
	return w.hierarchy.attach(child, parent)
}
