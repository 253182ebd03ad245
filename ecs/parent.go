package ecs

import "github.com/milk9111/physkit/ecs/component"

// Parent places an entity in a transform hierarchy under another entity.
type Parent struct {
	Entity Entity
}

var ParentKind = component.NewKind[Parent]()
