package ecs

import "github.com/rotisserie/eris"

var (
	// ErrComponentNotRegistered is returned when resolving or requiring a component type that was
	// never registered with the world.
	ErrComponentNotRegistered = eris.New("component type is not registered")

	// ErrEntityNotFound is returned when operating on a destroyed or unknown entity.
	ErrEntityNotFound = eris.New("entity does not exist")

	// ErrComponentNotFound is returned when an entity doesn't contain the requested component.
	ErrComponentNotFound = eris.New("entity does not have component")

	// ErrStructuralViolation is returned when a structural mutation is attempted while systems are
	// iterating. In release builds the mutation is deferred to the commit phase instead.
	ErrStructuralViolation = eris.New("structural mutation during system iteration")

	// ErrRegistrationClosed is returned when registering components or systems after the first tick.
	ErrRegistrationClosed = eris.New("registration is closed after the first tick")

	// ErrLayoutMismatch is returned when a component name is registered twice with different layouts.
	ErrLayoutMismatch = eris.New("component already registered with a different layout")

	// ErrPipelineNotFound is returned when a system is attached to a pipeline that doesn't exist.
	ErrPipelineNotFound = eris.New("pipeline does not exist")

	// ErrHierarchyCycle is returned when a parent assignment would make an entity its own ancestor.
	ErrHierarchyCycle = eris.New("parent assignment creates a cycle")
)
