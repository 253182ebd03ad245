package ecs

import "github.com/milk9111/physkit/ecs/component"

// Add inserts or replaces a component on an entity.
func Add[T any](w *World, e Entity, kind component.Kind[T], value T) error {
	return w.AddComponent(e, kind.ID(), value)
}

// Remove deletes a component, reporting whether it was present.
func Remove[T any](w *World, e Entity, kind component.Kind[T]) bool {
	return w.RemoveComponent(e, kind.ID())
}

// Has reports whether the entity carries the component.
func Has[T any](w *World, e Entity, kind component.Kind[T]) bool {
	return w.HasComponent(e, kind.ID())
}

// Get returns the component value for the entity.
func Get[T any](w *World, e Entity, kind component.Kind[T]) (T, bool) {
	var zero T
	value, ok := w.GetComponent(e, kind.ID())
	if !ok {
		return zero, false
	}
	cast, ok := value.(T)
	if !ok {
		return zero, false
	}
	return cast, true
}
