package ecs

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// World is the runtime context of the ECS. It owns the component registry, the entity index, the
// archetype store, the entity hierarchy, the system pipelines and the structural change queue.
// Independent worlds share no state.
//
// A World is not safe for concurrent use, except from inside parallel systems during a tick, which
// may read components and use the structural change queue.
type World struct {
	components componentRegistry // Component type registry
	index      entityIndex       // Entity ID -> archetype location
	store      archetypeStore    // Archetypes and their columns
	hierarchy  hierarchy         // Parent/child relation between entities
	queue      *Commands         // Deferred structural changes

	pipelines     []*pipeline    // Pipelines in execution order
	pipelineIndex map[string]int // Pipeline name -> index in pipelines
	systems       []*system      // All systems, the index is the system ID

	iterating atomic.Bool // Whether systems are currently running
	started   bool        // Whether the first tick has begun; closes registration
	tick      uint64      // Number of ticks started

	options worldOptions
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewWorld creates a new world with an empty default pipeline.
func NewWorld(opts ...WorldOption) (*World, error) {
	options := newDefaultWorldOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world options")
	}

	w := &World{
		components:    newComponentRegistry(),
		hierarchy:     newHierarchy(),
		pipelines:     make([]*pipeline, 0),
		pipelineIndex: make(map[string]int),
		systems:       make([]*system, 0),
		options:       options,
		logger:        options.resolveLogger(),
		tracer:        options.resolveTracer(),
	}
	w.index.init()
	w.store = newArchetypeStore(&w.components, &w.index, &w.logger)
	w.queue = newCommands(w)

	// Every world starts with the default pipeline.
	if err := w.AddPipeline(DefaultPipeline); err != nil {
		return nil, err
	}
	return w, nil
}

// CurrentTick returns the number of ticks started so far.
func (w *World) CurrentTick() uint64 {
	return w.tick
}

// Commands returns the world's structural change queue.
func (w *World) Commands() *Commands {
	return w.queue
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.index.alive
}

// ArchetypeCount returns the number of archetypes created so far. Archetypes are never removed.
func (w *World) ArchetypeCount() int {
	return len(w.store.archetypes)
}

// Matching returns the IDs of the archetypes containing every component in required, in creation
// order.
func (w *World) Matching(required Signature) []int {
	archs := w.store.matching(required, 0)
	ids := make([]int, len(archs))
	for i, arch := range archs {
		ids[i] = arch.id
	}
	return ids
}

// ArchetypeSignature returns the signature of the archetype with the given ID.
func (w *World) ArchetypeSignature(id int) (Signature, bool) {
	if id < 0 || id >= len(w.store.archetypes) {
		return Signature{}, false
	}
	return w.store.archetypes[id].signature, true
}

// ArchetypeLen returns the number of entities in the archetype with the given ID.
func (w *World) ArchetypeLen(id int) int {
	if id < 0 || id >= len(w.store.archetypes) {
		return 0
	}
	return w.store.archetypes[id].len()
}
