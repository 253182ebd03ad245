package ecs

import (
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// System updates a world each frame.
type System interface {
	Update(w *World)
}

// World owns entities, component storage, system order, the component
// lifecycle event log, and the attached physics worlds.
type World struct {
	entities entityStore
	stores   map[component.ID]*SparseSet
	systems  []System
	events   eventLog
	delta    float64

	physicsWorlds []*physics.World
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{stores: make(map[component.ID]*SparseSet)}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity removes every component of the entity, emitting Removed
// events, then retires the handle. It reports whether the entity was alive.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.entities.isAlive(e) {
		return false
	}
	for id, store := range w.stores {
		if old, ok := store.Remove(e); ok {
			w.events.push(Event{Entity: e, Component: id, Kind: EventRemoved, Value: old})
		}
	}
	return w.entities.destroy(e)
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if s == nil {
		return
	}
	w.systems = append(w.systems, s)
}

// Update runs all systems once with the given frame delta, then compacts
// the event log.
func (w *World) Update(delta float64) {
	w.delta = delta
	for _, s := range w.systems {
		s.Update(w)
	}
	w.events.compact()
}

// Delta returns the frame delta of the current update.
func (w *World) Delta() float64 {
	return w.delta
}

// EventReader returns a new cursor over the component event log.
func (w *World) EventReader() *EventReader {
	return w.events.newReader()
}

// AttachPhysics adds a physics world. Several worlds, from any mix of
// backends, can run side by side; a handle component binds its entity to
// the world that created the handle.
func (w *World) AttachPhysics(pw *physics.World) {
	if pw == nil {
		return
	}
	w.physicsWorlds = append(w.physicsWorlds, pw)
}

// PhysicsWorlds returns the attached physics worlds.
func (w *World) PhysicsWorlds() []*physics.World {
	return w.physicsWorlds
}

func (w *World) store(id component.ID) *SparseSet {
	s, ok := w.stores[id]
	if !ok {
		s = &SparseSet{}
		w.stores[id] = s
	}
	return s
}

// AddComponent inserts or replaces the component value, emitting Added or
// Modified accordingly.
func (w *World) AddComponent(e Entity, id component.ID, v any) error {
	if id == 0 {
		return component.ErrInvalidComponentKind
	}
	if !w.entities.isAlive(e) {
		return component.ErrEntityNotAlive
	}
	if w.store(id).Set(e, v) {
		w.events.push(Event{Entity: e, Component: id, Kind: EventModified, Value: v})
	} else {
		w.events.push(Event{Entity: e, Component: id, Kind: EventAdded, Value: v})
	}
	return nil
}

// GetComponent returns the raw component value.
func (w *World) GetComponent(e Entity, id component.ID) (any, bool) {
	s, ok := w.stores[id]
	if !ok || !s.Has(e) {
		return nil, false
	}
	return s.Get(e), true
}

// HasComponent reports whether the entity carries the component.
func (w *World) HasComponent(e Entity, id component.ID) bool {
	s, ok := w.stores[id]
	return ok && s.Has(e)
}

// RemoveComponent deletes the component, emitting Removed if present.
func (w *World) RemoveComponent(e Entity, id component.ID) bool {
	s, ok := w.stores[id]
	if !ok {
		return false
	}
	old, removed := s.Remove(e)
	if !removed {
		return false
	}
	w.events.push(Event{Entity: e, Component: id, Kind: EventRemoved, Value: old})
	return true
}

// ReplaceComponent updates a component value without emitting an event.
// It is meant for synchronization systems writing derived state, so their
// writes are not mistaken for user mutations. The component must exist.
func (w *World) ReplaceComponent(e Entity, id component.ID, v any) bool {
	s, ok := w.stores[id]
	if !ok || !s.Has(e) {
		return false
	}
	s.Set(e, v)
	return true
}

// MarkModified emits a Modified event without touching the stored value.
// Use it after mutating a component held by pointer.
func (w *World) MarkModified(e Entity, id component.ID) {
	if v, ok := w.GetComponent(e, id); ok {
		w.events.push(Event{Entity: e, Component: id, Kind: EventModified, Value: v})
	}
}
