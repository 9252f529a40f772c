package ecs

import (
	"github.com/kyanite-engine/kyanite/pkg/assert"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// archetypeStore groups entities with identical signatures into archetypes and owns all component
// memory. It is the only writer of the entity index.
type archetypeStore struct {
	archetypes []*archetype           // All archetypes, the index is the archetype ID
	byKey      map[string]archetypeID // Normalized signature key -> archetype ID
	registry   *componentRegistry
	index      *entityIndex
	logger     *zerolog.Logger
}

// newArchetypeStore creates a store backed by the given registry and entity index.
func newArchetypeStore(registry *componentRegistry, index *entityIndex, logger *zerolog.Logger) archetypeStore {
	return archetypeStore{
		archetypes: make([]*archetype, 0),
		byKey:      make(map[string]archetypeID),
		registry:   registry,
		index:      index,
		logger:     logger,
	}
}

// findOrCreate returns the archetype with exactly the given signature, creating it if needed.
func (s *archetypeStore) findOrCreate(signature Signature) *archetype {
	key := signature.key()
	if aid, ok := s.byKey[key]; ok {
		return s.archetypes[aid]
	}

	aid := archetypeID(len(s.archetypes))
	arch := newArchetype(aid, signature, s.registry)
	s.archetypes = append(s.archetypes, arch)
	s.byKey[key] = aid

	s.logger.Debug().Int("archetype", aid).Uints32("components", arch.ids).Msg("created archetype")
	return arch
}

// addTarget returns the archetype reached by adding a component to arch.
func (s *archetypeStore) addTarget(arch *archetype, id ComponentID) *archetype {
	if aid, ok := arch.addEdges[id]; ok {
		return s.archetypes[aid]
	}
	target := s.findOrCreate(arch.signature.With(id))
	arch.addEdges[id] = target.id
	target.removeEdges[id] = arch.id
	return target
}

// removeTarget returns the archetype reached by removing a component from arch.
func (s *archetypeStore) removeTarget(arch *archetype, id ComponentID) *archetype {
	if aid, ok := arch.removeEdges[id]; ok {
		return s.archetypes[aid]
	}
	target := s.findOrCreate(arch.signature.Without(id))
	arch.removeEdges[id] = target.id
	target.addEdges[id] = arch.id
	return target
}

// locate returns the archetype and row of a live entity.
func (s *archetypeStore) locate(eid EntityID) (*archetype, int, error) {
	loc, ok := s.index.get(eid)
	if !ok {
		return nil, 0, eris.Wrapf(ErrEntityNotFound, "entity %d", eid)
	}
	return s.archetypes[loc.Archetype], loc.Row, nil
}

// -------------------------------------------------------------------------------------------------
// Structural operations
// -------------------------------------------------------------------------------------------------

// place puts a new entity with its initial components into the archetype matching their signature
// and records its location. Nothing is written if any component is invalid.
func (s *archetypeStore) place(eid EntityID, components []Component) (EntityLocation, error) {
	signature, ids, err := s.registry.signatureOf(components)
	if err != nil {
		return EntityLocation{}, err
	}

	arch := s.findOrCreate(signature)
	row := arch.newRow(eid)
	for i, c := range components {
		column, ok := arch.column(ids[i])
		assert.That(ok, "archetype is missing a column of its signature")
		err := column.setAbstract(row, c)
		assert.That(err == nil, "component value passed validation but failed to set: %v", err)
	}

	loc := EntityLocation{Archetype: arch.id, Row: row}
	s.index.set(eid, loc)
	return loc, nil
}

// ensure makes sure the entity has a slot for the component, moving it to the archetype with the
// component added if needed. Returns the archetype and row holding the entity afterwards.
func (s *archetypeStore) ensure(eid EntityID, id ComponentID) (*archetype, int, error) {
	arch, row, err := s.locate(eid)
	if err != nil {
		return nil, 0, err
	}
	if arch.slot(id) != noSlot {
		return arch, row, nil
	}

	target := s.addTarget(arch, id)
	return target, s.move(eid, arch, row, target), nil
}

// set writes a component value, adding the component to the entity if it doesn't have it.
func (s *archetypeStore) set(eid EntityID, id ComponentID, value Component) error {
	if err := s.registry.validateValue(id, value); err != nil {
		return err
	}

	arch, row, err := s.ensure(eid, id)
	if err != nil {
		return err
	}

	column, _ := arch.column(id)
	return column.setAbstract(row, value)
}

// remove removes a component from the entity, moving it to the archetype without the component.
func (s *archetypeStore) remove(eid EntityID, id ComponentID) error {
	arch, row, err := s.locate(eid)
	if err != nil {
		return err
	}
	if arch.slot(id) == noSlot {
		return eris.Wrapf(ErrComponentNotFound, "entity %d, component %d", eid, id)
	}

	s.move(eid, arch, row, s.removeTarget(arch, id))
	return nil
}

// destroy removes the entity's row from its archetype and tombstones its index entry.
func (s *archetypeStore) destroy(eid EntityID) error {
	arch, row, err := s.locate(eid)
	if err != nil {
		return err
	}

	moved, swapped := arch.removeRow(row)
	if swapped {
		s.index.setRow(moved, row)
	}

	ok := s.index.remove(eid)
	assert.That(ok, "destroyed entity wasn't in the index")
	return nil
}

// move moves an entity from src to dst, keeping both its own location and the location of the
// entity swapped into its old row up to date. Returns the entity's new row.
func (s *archetypeStore) move(eid EntityID, src *archetype, row int, dst *archetype) int {
	assert.That(src.id != dst.id, "entity moved into its existing archetype")

	newRow, moved, swapped := src.moveRow(dst, row)
	s.index.set(eid, EntityLocation{Archetype: dst.id, Row: newRow})
	if swapped {
		s.index.setRow(moved, row)
	}
	return newRow
}

// -------------------------------------------------------------------------------------------------
// Queries
// -------------------------------------------------------------------------------------------------

// matching returns the archetypes with ID >= from whose signature contains required, in creation
// order.
func (s *archetypeStore) matching(required Signature, from int) []*archetype {
	var archs []*archetype
	for _, arch := range s.archetypes[from:] {
		if arch.signature.Contains(required) {
			archs = append(archs, arch)
		}
	}
	return archs
}

// exact returns the archetype with exactly the given signature, or nil.
func (s *archetypeStore) exact(signature Signature) *archetype {
	if aid, ok := s.byKey[signature.key()]; ok {
		return s.archetypes[aid]
	}
	return nil
}
