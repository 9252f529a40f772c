package ecs

import (
	"github.com/kyanite-engine/kyanite/pkg/assert"
)

const noSlot = -1

// archetype represents a collection of entities with exactly the same component types. It stores
// one column per component plus the entity IDs; row r of every slice describes the same entity.
// Columns are kept in ascending component ID order.
type archetype struct {
	id        archetypeID      // Corresponds to the index in the store's archetypes slice
	signature Signature        // Components contained in this archetype
	entities  []EntityID       // Entity in each row
	ids       []ComponentID    // Component ID of each column
	columns   []abstractColumn // Columns containing component data
	slots     []int            // Component ID -> column index, noSlot if absent

	// Cached archetype transitions when adding or removing a single component.
	addEdges    map[ComponentID]archetypeID
	removeEdges map[ComponentID]archetypeID
}

// newArchetype creates an archetype for the given signature using the registry's column factories.
func newArchetype(aid archetypeID, signature Signature, registry *componentRegistry) *archetype {
	ids := signature.IDs()
	columns := make([]abstractColumn, len(ids))

	slots := make([]int, 0)
	if len(ids) > 0 {
		slots = make([]int, ids[len(ids)-1]+1)
	}
	for i := range slots {
		slots[i] = noSlot
	}

	for i, id := range ids {
		columns[i] = registry.factories[id]()
		slots[id] = i
	}

	return &archetype{
		id:          aid,
		signature:   signature,
		entities:    make([]EntityID, 0),
		ids:         ids,
		columns:     columns,
		slots:       slots,
		addEdges:    make(map[ComponentID]archetypeID),
		removeEdges: make(map[ComponentID]archetypeID),
	}
}

// len returns the number of rows in the archetype.
func (a *archetype) len() int {
	return len(a.entities)
}

// slot returns the column index of a component, or noSlot if the archetype doesn't contain it.
func (a *archetype) slot(id ComponentID) int {
	if int(id) >= len(a.slots) {
		return noSlot
	}
	return a.slots[id]
}

// column returns the column of a component.
func (a *archetype) column(id ComponentID) (abstractColumn, bool) {
	s := a.slot(id)
	if s == noSlot {
		return nil, false
	}
	return a.columns[s], true
}

// newRow appends a row for the entity with every component zero-initialized, so the length of each
// column matches the length of the entities slice. Returns the new row.
func (a *archetype) newRow(eid EntityID) int {
	a.entities = append(a.entities, eid)

	for _, column := range a.columns {
		column.extend()
		assert.That(column.len() == len(a.entities), "column components length doesn't match entities")
	}

	return len(a.entities) - 1
}

// removeRow removes a row by swapping the last row into it and truncating every slice. Returns the
// entity that now occupies row and true if a swap happened, so the caller can fix its location.
func (a *archetype) removeRow(row int) (EntityID, bool) {
	assert.That(row < len(a.entities), "row %d out of range in archetype %d", row, a.id)

	lastIndex := len(a.entities) - 1
	a.entities[row] = a.entities[lastIndex]
	a.entities = a.entities[:lastIndex]

	for _, column := range a.columns {
		column.remove(row)
		assert.That(column.len() == len(a.entities), "column components length doesn't match entities")
	}

	// If the removed row was the last one, nothing was swapped.
	if row == lastIndex {
		return Null, false
	}
	return a.entities[row], true
}

// moveRow moves the entity in row to the destination archetype. Components present in both
// archetypes are copied; components only in the destination are left zeroed for the caller to set.
// Returns the entity's row in the destination, plus the entity swapped into row in this archetype.
func (a *archetype) moveRow(destination *archetype, row int) (int, EntityID, bool) {
	eid := a.entities[row]
	newRow := destination.newRow(eid)

	for i, src := range a.columns {
		dst, ok := destination.column(a.ids[i])
		if !ok {
			continue
		}
		src.copyRow(dst, row, newRow)
	}

	moved, swapped := a.removeRow(row)
	return newRow, moved, swapped
}
