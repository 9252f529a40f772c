package ecs

import (
	"github.com/rotisserie/eris"
)

// SystemID is a unique identifier for a system.
type SystemID uint32

// SystemFunc is the callback of a system. It is invoked once per view built for the system in a
// tick, with the tick's delta time.
type SystemFunc func(dt float64, view *View) error

// system is a registered system.
type system struct {
	id       SystemID
	name     string
	pipeline string
	required Signature     // Components an archetype must contain to match
	order    []ComponentID // Component order of the view buffers
	parallel bool
	fn       SystemFunc

	// Cached archetype matches. Archetypes are only ever appended, so scanned is the number of
	// archetypes already examined and only newer ones need to be checked.
	matches []systemMatch
	scanned int
}

// systemMatch is an archetype matched by a system with its columns in the system's order.
type systemMatch struct {
	arch    *archetype
	columns []abstractColumn
}

// refresh matches the archetypes created since the last refresh.
func (s *system) refresh(store *archetypeStore) {
	if s.scanned == len(store.archetypes) {
		return
	}
	for _, arch := range store.matching(s.required, s.scanned) {
		columns := make([]abstractColumn, len(s.order))
		for i, id := range s.order {
			columns[i], _ = arch.column(id)
		}
		s.matches = append(s.matches, systemMatch{arch: arch, columns: columns})
	}
	s.scanned = len(store.archetypes)
}

// systemConfig holds all configurable options for system registration.
type systemConfig struct {
	// The pipeline the system is appended to.
	pipeline string
	// Whether the per-archetype work of the system may run concurrently.
	parallel bool
}

// newSystemConfig creates a new system config with default values.
func newSystemConfig() systemConfig {
	return systemConfig{
		pipeline: DefaultPipeline,
		parallel: false,
	}
}

// SystemOption is a function that configures a system.
type SystemOption func(*systemConfig)

// InPipeline returns an option to append the system to the named pipeline.
func InPipeline(name string) SystemOption {
	return func(cfg *systemConfig) { cfg.pipeline = name }
}

// Parallel returns an option that lets the system process its views concurrently. The system must
// only write to the rows of the view it is given.
func Parallel() SystemOption {
	return func(cfg *systemConfig) { cfg.parallel = true }
}

// ComponentKey identifies a component type required by a system. It is resolved to a component ID
// when the system is registered.
type ComponentKey struct {
	name string
	id   ComponentID
	byID bool
}

// Of returns the key of a typed component.
func Of[T Component]() ComponentKey {
	var zero T
	return ComponentKey{name: zero.Name()}
}

// Named returns the key of the component registered under name.
func Named(name string) ComponentKey {
	return ComponentKey{name: name}
}

// ByID returns the key of the component with the given ID.
func ByID(id ComponentID) ComponentKey {
	return ComponentKey{id: id, byID: true}
}

// resolve returns the ID of the component the key refers to.
func (k ComponentKey) resolve(registry *componentRegistry) (ComponentID, error) {
	if k.byID {
		if _, ok := registry.get(k.id); !ok {
			return 0, eris.Wrapf(ErrComponentNotRegistered, "component id %d", k.id)
		}
		return k.id, nil
	}
	return registry.getID(k.name)
}

// RegisterSystem registers a system that runs fn for every archetype containing all the required
// components. The view buffers follow the order of requires. Registration is all-or-nothing: if any
// component isn't registered, or the pipeline doesn't exist, nothing is recorded.
//
// Example:
//
//	w.RegisterSystem("movement", []ecs.ComponentKey{ecs.Of[Position](), ecs.Of[Velocity]()},
//		func(dt float64, view *ecs.View) error {
//			positions := ecs.Buffer[Position](view, 0)
//			velocities := ecs.Buffer[Velocity](view, 1)
//			for i := range view.Len() {
//				positions[i].X += velocities[i].X * dt
//			}
//			return nil
//		})
func (w *World) RegisterSystem(
	name string, requires []ComponentKey, fn SystemFunc, opts ...SystemOption,
) (SystemID, error) {
	if w.started {
		return 0, eris.Wrapf(ErrRegistrationClosed, "system %s", name)
	}
	if name == "" {
		return 0, eris.New("system name cannot be empty")
	}
	if fn == nil {
		return 0, eris.Errorf("system %s has no callback", name)
	}
	if len(requires) == 0 {
		return 0, eris.Errorf("system %s must require at least one component", name)
	}

	cfg := newSystemConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	pipelineIdx, ok := w.pipelineIndex[cfg.pipeline]
	if !ok {
		return 0, eris.Wrapf(ErrPipelineNotFound, "system %s, pipeline %s", name, cfg.pipeline)
	}

	var required Signature
	order := make([]ComponentID, len(requires))
	for i, key := range requires {
		id, err := key.resolve(&w.components)
		if err != nil {
			return 0, eris.Wrapf(err, "failed to register system %s", name)
		}
		if required.Has(id) {
			return 0, eris.Errorf("system %s requires component %d more than once", name, id)
		}
		required.bits.Set(id)
		order[i] = id
	}

	sid := SystemID(len(w.systems)) //nolint:gosec // won't overflow
	s := &system{
		id:       sid,
		name:     name,
		pipeline: cfg.pipeline,
		required: required,
		order:    order,
		parallel: cfg.parallel,
		fn:       fn,
	}
	w.systems = append(w.systems, s)
	w.pipelines[pipelineIdx].systems = append(w.pipelines[pipelineIdx].systems, s)

	w.logger.Debug().
		Str("system", name).
		Str("pipeline", cfg.pipeline).
		Bool("parallel", cfg.parallel).
		Uints32("components", order).
		Msg("registered system")
	return sid, nil
}
