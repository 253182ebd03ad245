// Package component defines the typed component-kind machinery and the
// physics-facing components the bridge systems operate on.
package component

import (
	"errors"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

// ID identifies a component kind at runtime.
type ID uint32

var nextID atomic.Uint32

// Kind ties a component ID to its Go type so world access stays typed.
type Kind[T any] struct {
	id ID
}

// NewKind allocates a fresh component kind. Call once per component type,
// at package init.
func NewKind[T any]() Kind[T] {
	return Kind[T]{id: ID(nextID.Add(1))}
}

func (k Kind[T]) ID() ID {
	return k.id
}

func (k Kind[T]) Valid() bool {
	return k.id != 0
}
