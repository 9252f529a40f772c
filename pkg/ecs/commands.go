package ecs

import (
	"slices"
	"sync"

	"github.com/rotisserie/eris"
)

type commandKind uint8

const (
	commandCreate commandKind = iota
	commandDestroy
	commandSet
	commandRemove
	commandSetParent
	commandClearParent
)

func (k commandKind) String() string {
	switch k {
	case commandCreate:
		return "create"
	case commandDestroy:
		return "destroy"
	case commandSet:
		return "set"
	case commandRemove:
		return "remove"
	case commandSetParent:
		return "set_parent"
	case commandClearParent:
		return "clear_parent"
	default:
		return "unknown"
	}
}

// command is a queued structural change.
type command struct {
	kind       commandKind
	entity     EntityID
	parent     EntityID
	name       string
	components []Component
	component  ComponentID
}

// Commands queues structural changes requested while systems run. The queue is applied in order
// during the commit phase of the tick. It is safe for concurrent use, so parallel systems can
// share it.
type Commands struct {
	world *World
	mu    sync.Mutex
	ops   []command
}

func newCommands(w *World) *Commands {
	return &Commands{world: w, ops: make([]command, 0)}
}

// Create queues the creation of an entity and returns the ID it will have. The ID is reserved
// immediately, so it can be used in later commands of the same queue.
func (c *Commands) Create(name string, components ...Component) EntityID {
	id := c.world.index.reserve()
	c.push(command{kind: commandCreate, entity: id, name: name, components: slices.Clone(components)})
	return id
}

// Destroy queues the destruction of an entity.
func (c *Commands) Destroy(e EntityID) {
	c.push(command{kind: commandDestroy, entity: e})
}

// Add queues setting a component value on an entity.
func (c *Commands) Add(e EntityID, component Component) {
	c.push(command{kind: commandSet, entity: e, components: []Component{component}})
}

// AddRaw queues setting the bytes of a raw component on an entity. data is copied.
func (c *Commands) AddRaw(e EntityID, id ComponentID, data []byte) {
	ct, ok := c.world.components.get(id)
	if !ok {
		c.world.logger.Warn().Uint32("component", id).Msg("dropped queued raw component of unknown type")
		return
	}
	c.Add(e, RawComponent{Type: ct.Name, Data: slices.Clone(data)})
}

// Remove queues removing a component from an entity.
func (c *Commands) Remove(e EntityID, id ComponentID) {
	c.push(command{kind: commandRemove, entity: e, component: id})
}

// SetParent queues making parent the parent of child. Null makes child a root.
func (c *Commands) SetParent(child, parent EntityID) {
	if parent == Null {
		c.push(command{kind: commandClearParent, entity: child})
		return
	}
	c.push(command{kind: commandSetParent, entity: child, parent: parent})
}

// Len returns the number of queued changes.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

func (c *Commands) push(cmd command) {
	c.mu.Lock()
	c.ops = append(c.ops, cmd)
	c.mu.Unlock()
}

// drain returns the queued changes and empties the queue.
func (c *Commands) drain() []command {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := c.ops
	c.ops = make([]command, 0, len(ops))
	return ops
}

// commit applies all queued structural changes in order. Changes that fail, for example because
// their entity was destroyed by an earlier change, are logged and skipped.
func (w *World) commit() int {
	ops := w.queue.drain()
	for _, op := range ops {
		if err := w.apply(op); err != nil {
			w.logger.Warn().
				Err(err).
				Stringer("op", op.kind).
				Uint64("entity", uint64(op.entity)).
				Msg("skipped queued structural change")
		}
	}
	return len(ops)
}

func (w *World) apply(op command) error {
	switch op.kind {
	case commandCreate:
		return w.create(op.entity, op.name, op.components)
	case commandDestroy:
		return w.destroy(op.entity)
	case commandSet:
		return w.setComponent(op.entity, op.components[0])
	case commandRemove:
		return w.store.remove(op.entity, op.component)
	case commandSetParent:
		return w.setParent(op.entity, op.parent)
	case commandClearParent:
		if !w.Alive(op.entity) {
			return eris.Wrapf(ErrEntityNotFound, "entity %d", op.entity)
		}
		w.hierarchy.unlink(op.entity)
		return nil
	default:
		return eris.Errorf("unknown command kind %d", op.kind)
	}
}
