package ecs

import (
	"unsafe"

	"github.com/google/uuid"
	"github.com/kyanite-engine/kyanite/pkg/assert"
	"github.com/rotisserie/eris"
)

// Component is the interface that all typed components must implement.
// Components are pure data containers that can be attached to entities.
type Component interface { //nolint:iface // We may add more methods in the future.
	// Name returns a unique string identifier for the component type. It is the registration-time
	// type tag, so it must be consistent across program executions.
	Name() string
}

// ComponentID is a unique identifier for a component type. IDs are assigned sequentially at
// registration time and double as the component's bit index in a Signature.
type ComponentID = uint32

// Layout is the storage layout of a component type.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// ComponentType describes a registered component type.
type ComponentType struct {
	ID     ComponentID
	Name   string
	UUID   uuid.UUID // Stable across runs, derived from Name
	Layout Layout
	Raw    bool // Byte-addressed storage registered through RegisterRawComponent
}

// componentNamespace is the UUID namespace used to derive component UUIDs from their names.
var componentNamespace = uuid.MustParse("6f1c2b8e-8d7a-4c53-9a0e-3f6d1b2a7c45") //nolint:gochecknoglobals // constant

// RawComponent is a component value for byte-addressed component types registered with
// RegisterRawComponent. Data must be exactly Layout.Size bytes long.
type RawComponent struct {
	Type string // Name of the registered component type
	Data []byte
}

// Name returns the registered component type name.
func (r RawComponent) Name() string {
	return r.Type
}

// componentRegistry manages component type registration and lookup.
type componentRegistry struct {
	catalog    map[string]ComponentID    // Component name -> component ID
	byUUID     map[uuid.UUID]ComponentID // Component UUID -> component ID
	types      []ComponentType           // Component ID -> descriptor
	factories  []columnFactory           // Component ID -> column factory
	validators []valueValidator          // Component ID -> value check
}

// valueValidator checks that a component value can be stored in a component type's column.
type valueValidator func(Component) error

// newTypedValidator returns a validator accepting only values of type T.
func newTypedValidator[T Component]() valueValidator {
	return func(c Component) error {
		if _, ok := c.(T); !ok {
			var zero T
			return eris.Errorf("component %s must be %T, got %T", zero.Name(), zero, c)
		}
		return nil
	}
}

// newRawValidator returns a validator accepting RawComponent values of the layout's size.
func newRawValidator(name string, layout Layout) valueValidator {
	return func(c Component) error {
		raw, ok := c.(RawComponent)
		if !ok {
			return eris.Errorf("component %s is raw and must be set with RawComponent", name)
		}
		if uintptr(len(raw.Data)) != layout.Size {
			return eris.Errorf("component %s expects %d bytes, got %d", name, layout.Size, len(raw.Data))
		}
		return nil
	}
}

// newComponentRegistry creates a new component registry.
func newComponentRegistry() componentRegistry {
	return componentRegistry{
		catalog:    make(map[string]ComponentID),
		byUUID:     make(map[uuid.UUID]ComponentID),
		types:      make([]ComponentType, 0),
		factories:  make([]columnFactory, 0),
		validators: make([]valueValidator, 0),
	}
}

// register registers a component type and returns its ID. If a component with the same name is
// already registered with the same layout, its existing ID is returned.
func (cr *componentRegistry) register(
	name string, layout Layout, raw bool, factory columnFactory, validator valueValidator,
) (ComponentID, error) {
	if name == "" {
		return 0, eris.New("component name cannot be empty")
	}

	if id, exists := cr.catalog[name]; exists {
		existing := cr.types[id]
		if existing.Layout != layout || existing.Raw != raw {
			return 0, eris.Wrapf(ErrLayoutMismatch, "component %s", name)
		}
		return id, nil
	}

	id := ComponentID(len(cr.types))
	ct := ComponentType{
		ID:     id,
		Name:   name,
		UUID:   uuid.NewSHA1(componentNamespace, []byte(name)),
		Layout: layout,
		Raw:    raw,
	}
	cr.catalog[name] = id
	cr.byUUID[ct.UUID] = id
	cr.types = append(cr.types, ct)
	cr.factories = append(cr.factories, factory)
	cr.validators = append(cr.validators, validator)
	assert.That(len(cr.types) == len(cr.factories), "component id doesn't match number of components")

	return id, nil
}

// getID returns a component's ID given a name.
func (cr *componentRegistry) getID(name string) (ComponentID, error) {
	id, exists := cr.catalog[name]
	if !exists {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component %s", name)
	}
	return id, nil
}

// get returns the descriptor of a component ID.
func (cr *componentRegistry) get(id ComponentID) (ComponentType, bool) {
	if int(id) >= len(cr.types) {
		return ComponentType{}, false
	}
	return cr.types[id], true
}

// count returns the number of registered component types.
func (cr *componentRegistry) count() int {
	return len(cr.types)
}

// signatureOf returns the signature of a set of component values. Returns an error if a component
// isn't registered or appears more than once.
func (cr *componentRegistry) signatureOf(components []Component) (Signature, []ComponentID, error) {
	var sig Signature
	ids := make([]ComponentID, len(components))
	for i, c := range components {
		if c == nil {
			return Signature{}, nil, eris.New("component cannot be nil")
		}
		id, err := cr.getID(c.Name())
		if err != nil {
			return Signature{}, nil, err
		}
		if sig.Has(id) {
			return Signature{}, nil, eris.Errorf("duplicate component %s", c.Name())
		}
		if err := cr.validateValue(id, c); err != nil {
			return Signature{}, nil, err
		}
		sig.bits.Set(id)
		ids[i] = id
	}
	return sig, ids, nil
}

// validateValue checks that a component value can be stored in the column of the given type.
func (cr *componentRegistry) validateValue(id ComponentID, c Component) error {
	if c == nil {
		return eris.New("component cannot be nil")
	}
	return cr.validators[id](c)
}

// -------------------------------------------------------------------------------------------------
// Public registration API
// -------------------------------------------------------------------------------------------------

// RegisterComponent registers a typed component with the world and returns its ID. Registering the
// same type twice returns the existing ID.
func RegisterComponent[T Component](w *World) (ComponentID, error) {
	var zero T
	layout := Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
	return w.registerComponent(zero.Name(), layout, false, newColumnFactory[T](), newTypedValidator[T]())
}

// RegisterRawComponent registers a byte-addressed component type with the given size and alignment.
// Alignment must be a power of two. Registering the same name with the same layout returns the
// existing ID.
func RegisterRawComponent(w *World, name string, size, align uintptr) (ComponentID, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, eris.Errorf("alignment of component %s must be a power of two, got %d", name, align)
	}
	layout := Layout{Size: size, Align: align}
	return w.registerComponent(
		name, layout, true, newRawColumnFactory(name, layout), newRawValidator(name, layout),
	)
}

// ComponentIDOf returns the ID of a typed component.
// Returns ErrComponentNotRegistered if the component was never registered.
func ComponentIDOf[T Component](w *World) (ComponentID, error) {
	var zero T
	return w.components.getID(zero.Name())
}

// ComponentID returns the ID of the component registered under name.
func (w *World) ComponentID(name string) (ComponentID, error) {
	return w.components.getID(name)
}

// ComponentIDByUUID returns the ID of the component with the given UUID.
func (w *World) ComponentIDByUUID(id uuid.UUID) (ComponentID, error) {
	cid, ok := w.components.byUUID[id]
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component uuid %s", id)
	}
	return cid, nil
}

// ComponentType returns the descriptor of a registered component.
func (w *World) ComponentType(id ComponentID) (ComponentType, bool) {
	return w.components.get(id)
}

// ComponentTypes returns the descriptors of all registered components ordered by ID.
func (w *World) ComponentTypes() []ComponentType {
	out := make([]ComponentType, len(w.components.types))
	copy(out, w.components.types)
	return out
}

func (w *World) registerComponent(
	name string, layout Layout, raw bool, factory columnFactory, validator valueValidator,
) (ComponentID, error) {
	if w.started {
		return 0, eris.Wrapf(ErrRegistrationClosed, "component %s", name)
	}

	before := w.components.count()
	id, err := w.components.register(name, layout, raw, factory, validator)
	if err != nil {
		return 0, err
	}
	if w.components.count() > before {
		w.logger.Debug().
			Str("component", name).
			Uint32("id", id).
			Uint64("size", uint64(layout.Size)).
			Uint64("align", uint64(layout.Align)).
			Bool("raw", raw).
			Msg("registered component")
	}
	return id, nil
}
