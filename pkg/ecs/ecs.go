package ecs

import (
	"slices"

	"github.com/kyanite-engine/kyanite/pkg/assert"
	"github.com/rotisserie/eris"
)

// -------------------------------------------------------------------------------------------------
// Entity lifecycle
// -------------------------------------------------------------------------------------------------

// CreateEntity creates an entity with the given initial components and returns its ID. The name
// is informational and doesn't need to be unique. Nothing is created if any component is invalid.
//
// Called from inside a system, the creation is deferred to the commit phase but the returned ID is
// already valid for use with Commands.
func (w *World) CreateEntity(name string, components ...Component) (EntityID, error) {
	if _, _, err := w.components.signatureOf(components); err != nil {
		return Null, eris.Wrapf(err, "failed to create entity %q", name)
	}

	id := w.index.reserve()
	if w.deferred("CreateEntity", command{kind: commandCreate, entity: id, name: name, components: components}) {
		return id, nil
	}
	if err := w.create(id, name, components); err != nil {
		return Null, err
	}
	return id, nil
}

// DestroyEntity destroys an entity and frees its row. Its children become roots.
func (w *World) DestroyEntity(e EntityID) error {
	if w.deferred("DestroyEntity", command{kind: commandDestroy, entity: e}) {
		return nil
	}
	return w.destroy(e)
}

// Alive reports whether the entity exists.
func (w *World) Alive(e EntityID) bool {
	_, ok := w.index.get(e)
	return ok
}

// Name returns the name the entity was created with.
func (w *World) Name(e EntityID) string {
	return w.index.names[e]
}

// Lookup returns the live entity with the lowest ID among those created with the given name.
func (w *World) Lookup(name string) (EntityID, bool) {
	found := Null
	for id, n := range w.index.names {
		if n == name && (found == Null || id < found) {
			found = id
		}
	}
	return found, found != Null
}

// Location returns the archetype and row of an entity.
func (w *World) Location(e EntityID) (EntityLocation, bool) {
	return w.index.get(e)
}

// Signature returns the set of components of an entity.
func (w *World) Signature(e EntityID) (Signature, error) {
	arch, _, err := w.store.locate(e)
	if err != nil {
		return Signature{}, err
	}
	return arch.signature, nil
}

// Components returns copies of all component values of an entity ordered by component ID. Raw
// components are returned as RawComponent.
func (w *World) Components(e EntityID) ([]Component, error) {
	arch, row, err := w.store.locate(e)
	if err != nil {
		return nil, err
	}
	out := make([]Component, len(arch.columns))
	for i, col := range arch.columns {
		out[i] = col.getAbstract(row)
	}
	return out, nil
}

// -------------------------------------------------------------------------------------------------
// Component access
// -------------------------------------------------------------------------------------------------

// AddComponent sets a component value on an entity, adding the component if the entity doesn't
// have it yet. The component type must be registered.
func (w *World) AddComponent(e EntityID, component Component) error {
	if component == nil {
		return eris.New("component cannot be nil")
	}
	id, err := w.components.getID(component.Name())
	if err != nil {
		return err
	}
	if err := w.components.validateValue(id, component); err != nil {
		return err
	}
	if w.deferred("AddComponent", command{kind: commandSet, entity: e, components: []Component{component}}) {
		return nil
	}
	return w.store.set(e, id, component)
}

// AddRaw sets the bytes of a raw component on an entity, adding the component if needed. data must
// be exactly the component's size and is copied.
func (w *World) AddRaw(e EntityID, id ComponentID, data []byte) error {
	ct, ok := w.components.get(id)
	if !ok {
		return eris.Wrapf(ErrComponentNotRegistered, "component id %d", id)
	}
	return w.AddComponent(e, RawComponent{Type: ct.Name, Data: slices.Clone(data)})
}

// RemoveComponent removes a component from an entity. Returns ErrComponentNotFound if the entity
// doesn't have it.
func (w *World) RemoveComponent(e EntityID, id ComponentID) error {
	if _, ok := w.components.get(id); !ok {
		return eris.Wrapf(ErrComponentNotRegistered, "component id %d", id)
	}
	if w.deferred("RemoveComponent", command{kind: commandRemove, entity: e, component: id}) {
		return nil
	}
	return w.store.remove(e, id)
}

// HasComponent reports whether the entity is alive and has the component.
func (w *World) HasComponent(e EntityID, id ComponentID) bool {
	arch, _, err := w.store.locate(e)
	if err != nil {
		return false
	}
	return arch.signature.Has(id)
}

// GetRaw returns the bytes of a component of an entity, or nil if the entity is dead or doesn't
// have it. The slice aliases the component storage and is invalidated by any structural change.
func (w *World) GetRaw(e EntityID, id ComponentID) []byte {
	arch, row, err := w.store.locate(e)
	if err != nil {
		return nil
	}
	col, ok := arch.column(id)
	if !ok {
		return nil
	}
	raw, ok := col.(*rawColumn)
	if !ok {
		return nil
	}
	return raw.row(row)
}

// Set sets a typed component on an entity, adding the component if the entity doesn't have it.
func Set[T Component](w *World, e EntityID, component T) error {
	id, err := ComponentIDOf[T](w)
	if err != nil {
		return err
	}
	if err := w.components.validateValue(id, component); err != nil {
		return err
	}
	if w.deferred("Set", command{kind: commandSet, entity: e, components: []Component{component}}) {
		return nil
	}

	arch, row, err := w.store.ensure(e, id)
	if err != nil {
		return err
	}
	col, _ := arch.column(id)
	typed, ok := col.(*column[T])
	assert.That(ok, "column of component %s has the wrong type", component.Name())
	typed.set(row, component)
	return nil
}

// Get returns a pointer to a typed component of an entity, or nil if the entity is dead or doesn't
// have it. The pointer aliases the component storage and is invalidated by any structural change.
func Get[T Component](w *World, e EntityID) *T {
	id, err := ComponentIDOf[T](w)
	if err != nil {
		return nil
	}
	arch, row, err := w.store.locate(e)
	if err != nil {
		return nil
	}
	col, ok := arch.column(id)
	if !ok {
		return nil
	}
	typed, ok := col.(*column[T])
	if !ok {
		return nil
	}
	return typed.get(row)
}

// Has reports whether the entity is alive and has the typed component.
func Has[T Component](w *World, e EntityID) bool {
	id, err := ComponentIDOf[T](w)
	if err != nil {
		return false
	}
	return w.HasComponent(e, id)
}

// Remove removes a typed component from an entity.
func Remove[T Component](w *World, e EntityID) error {
	id, err := ComponentIDOf[T](w)
	if err != nil {
		return err
	}
	return w.RemoveComponent(e, id)
}

// -------------------------------------------------------------------------------------------------
// Internal structural operations
// -------------------------------------------------------------------------------------------------

// deferred handles a structural change requested while systems are iterating. Such changes would
// invalidate the views handed to systems, so in dev builds they panic. In release builds the change
// is queued for the commit phase instead. Returns true if the change was deferred.
func (w *World) deferred(op string, cmd command) bool {
	if !w.iterating.Load() {
		return false
	}

	assert.That(false, "%s called while systems are iterating: %v", op, ErrStructuralViolation)

	w.logger.Warn().
		Str("op", op).
		Uint64("entity", uint64(cmd.entity)).
		Msg("structural change during iteration deferred to commit")
	w.queue.push(cmd)
	return true
}

// create places a reserved entity with its components.
func (w *World) create(id EntityID, name string, components []Component) error {
	if _, err := w.store.place(id, components); err != nil {
		return eris.Wrapf(err, "failed to create entity %q", name)
	}
	if name != "" {
		w.index.names[id] = name
	}
	return nil
}

// destroy removes an entity from the store and the hierarchy.
func (w *World) destroy(e EntityID) error {
	if err := w.store.destroy(e); err != nil {
		return err
	}
	w.hierarchy.detach(e)
	return nil
}

// setComponent writes a component value, resolving its ID from its name.
func (w *World) setComponent(e EntityID, component Component) error {
	if component == nil {
		return eris.New("component cannot be nil")
	}
	id, err := w.components.getID(component.Name())
	if err != nil {
		return err
	}
	return w.store.set(e, id, component)
}
