// Package system contains the bridge between the ECS and the physics
// servers: entity/shape/transform/joint synchronization, attachment
// resolution, scripted behaviors, and the fixed-step driver.
package system

import (
	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// SyncEntity mirrors component lifecycle into backend entity associations.
// A body or area component added to an entity registers the entity with
// the backend; removal clears the association and releases the handle,
// which drops the backend resource on the next step.
type SyncEntity struct {
	reader *ecs.EventReader
}

// NewSyncEntity creates the system with an event cursor on the world.
func NewSyncEntity(w *ecs.World) *SyncEntity {
	return &SyncEntity{reader: w.EventReader()}
}

func (s *SyncEntity) Update(w *ecs.World) {
	for _, ev := range s.reader.Read() {
		switch ev.Component {
		case component.RigidBodyKind.ID():
			rb, ok := ev.Value.(component.RigidBody)
			if !ok || rb.World == nil || rb.Handle == nil {
				continue
			}
			switch ev.Kind {
			case ecs.EventAdded:
				rb.World.RigidBodyServer().SetEntity(rb.Handle.Tag(), physics.EntityRef(ev.Entity))
			case ecs.EventRemoved:
				rb.World.RigidBodyServer().SetEntity(rb.Handle.Tag(), 0)
				rb.Handle.Release()
			}
		case component.AreaKind.ID():
			area, ok := ev.Value.(component.Area)
			if !ok || area.World == nil || area.Handle == nil {
				continue
			}
			switch ev.Kind {
			case ecs.EventAdded:
				area.World.AreaServer().SetEntity(area.Handle.Tag(), physics.EntityRef(ev.Entity))
			case ecs.EventRemoved:
				area.World.AreaServer().SetEntity(area.Handle.Tag(), 0)
				area.Handle.Release()
			}
		}
	}
}
