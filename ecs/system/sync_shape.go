package system

import (
	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
)

// SyncShape keeps shape associations automatic: put a Shape component next
// to a RigidBody or Area component and the backend association follows.
// Removing the Shape strips the body; removing the body leaves the shape
// available for other users.
type SyncShape struct {
	reader *ecs.EventReader
}

// NewSyncShape creates the system with an event cursor on the world.
func NewSyncShape(w *ecs.World) *SyncShape {
	return &SyncShape{reader: w.EventReader()}
}

func (s *SyncShape) Update(w *ecs.World) {
	dirty := map[ecs.Entity]bool{}
	for _, ev := range s.reader.Read() {
		switch ev.Component {
		case component.RigidBodyKind.ID(), component.AreaKind.ID(), component.ShapeKind.ID():
			dirty[ev.Entity] = true
		}
		// The Shape component owns the shape handle.
		if ev.Component == component.ShapeKind.ID() && ev.Kind == ecs.EventRemoved {
			if sh, ok := ev.Value.(component.Shape); ok && sh.Handle != nil {
				sh.Handle.Release()
			}
		}
	}

	for e := range dirty {
		shape, hasShape := ecs.Get(w, e, component.ShapeKind)

		if rb, ok := ecs.Get(w, e, component.RigidBodyKind); ok && rb.World != nil && rb.Handle != nil {
			if hasShape && shape.Handle != nil {
				rb.World.RigidBodyServer().SetShape(rb.Handle.Tag(), shape.Handle.Tag())
			} else {
				rb.World.RigidBodyServer().SetShape(rb.Handle.Tag(), 0)
			}
		}
		if area, ok := ecs.Get(w, e, component.AreaKind); ok && area.World != nil && area.Handle != nil {
			if hasShape && shape.Handle != nil {
				area.World.AreaServer().SetShape(area.Handle.Tag(), shape.Handle.Tag())
			} else {
				area.World.AreaServer().SetShape(area.Handle.Tag(), 0)
			}
		}
	}
}
