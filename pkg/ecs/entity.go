package ecs

import (
	"sync/atomic"

	"github.com/kyanite-engine/kyanite/pkg/assert"
)

// EntityID is a unique identifier for an entity. IDs are assigned in strictly increasing order
// starting at 1 and are never reused within a world.
type EntityID uint64

// Null is the zero entity. It never refers to a live entity.
const Null EntityID = 0

// archetypeID is the unique identifier for an archetype. It is the index in the archetypes slice.
type archetypeID = int

// EntityLocation is the position of an entity in the archetype store.
type EntityLocation struct {
	Archetype archetypeID // Index of the archetype holding the entity
	Row       int         // Row of the entity in the archetype's columns
}

// locationTombstone marks an ID that is reserved, destroyed, or was never allocated.
const locationTombstone = -1

const initialIndexCapacity = 128

// entityIndex maps entity IDs to their archetype location. It is written only by the archetype
// store during placement, moves, and destruction. Locations are stored densely by ID so a lookup
// is a bounds check and a slice read.
type entityIndex struct {
	lastID    atomic.Uint64       // The last reserved ID; only ever incremented
	locations []EntityLocation    // Entity ID -> location
	names     map[EntityID]string // Informational entity names, not unique
	alive     int                 // Number of placed entities
}

// init prepares an empty entity index. The index holds an atomic counter and must not be copied
// afterwards.
func (ei *entityIndex) init() {
	ei.locations = make([]EntityLocation, initialIndexCapacity)
	for i := range ei.locations {
		ei.locations[i].Archetype = locationTombstone
	}
	ei.names = make(map[EntityID]string)
}

// reserve returns a fresh entity ID. It is safe to call concurrently, which lets parallel systems
// reserve IDs for entities created through the structural change queue.
func (ei *entityIndex) reserve() EntityID {
	return EntityID(ei.lastID.Add(1))
}

// reserved reports whether the ID has been handed out by reserve.
func (ei *entityIndex) reserved(id EntityID) bool {
	return id != Null && uint64(id) <= ei.lastID.Load()
}

// get returns the location of an entity and whether it is alive.
func (ei *entityIndex) get(id EntityID) (EntityLocation, bool) {
	if id >= EntityID(len(ei.locations)) {
		return EntityLocation{}, false
	}
	loc := ei.locations[id]
	if loc.Archetype == locationTombstone {
		return EntityLocation{}, false
	}
	return loc, true
}

// set stores the location of an entity, growing the table if needed.
func (ei *entityIndex) set(id EntityID, loc EntityLocation) {
	assert.That(loc.Archetype >= 0 && loc.Row >= 0, "location must point at a valid row")

	if id >= EntityID(len(ei.locations)) {
		oldLen := len(ei.locations)
		newLen := max(oldLen*2, int(id)+1) //nolint:gosec // IDs fit in int on 64-bit platforms
		grown := make([]EntityLocation, newLen)
		copy(grown, ei.locations)
		for i := oldLen; i < newLen; i++ {
			grown[i].Archetype = locationTombstone
		}
		ei.locations = grown
	}

	if ei.locations[id].Archetype == locationTombstone {
		ei.alive++
	}
	ei.locations[id] = loc
}

// setRow updates the row of an entity that stays in the same archetype, used after swap-remove.
func (ei *entityIndex) setRow(id EntityID, row int) {
	assert.That(id < EntityID(len(ei.locations)), "moved entity is not indexed")
	assert.That(ei.locations[id].Archetype != locationTombstone, "moved entity is not alive")
	ei.locations[id].Row = row
}

// remove tombstones an entity. Returns true if the entity was alive.
func (ei *entityIndex) remove(id EntityID) bool {
	if id >= EntityID(len(ei.locations)) || ei.locations[id].Archetype == locationTombstone {
		return false
	}
	ei.locations[id] = EntityLocation{Archetype: locationTombstone}
	delete(ei.names, id)
	ei.alive--
	return true
}
