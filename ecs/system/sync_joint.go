package system

import (
	"log"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// SyncJoint attaches an entity's body to its joint. Assign a joint handle
// (cloned for the second entity) next to the RigidBody components of the
// two entities to constrain; the backend joint activates once both bodies
// are attached, and detaches automatically when either component goes.
type SyncJoint struct {
	reader *ecs.EventReader
	// Active attachments, so removal detaches the exact pair.
	attached map[ecs.Entity]jointAttachment
}

type jointAttachment struct {
	world *physics.World
	joint physics.JointTag
	body  physics.RigidBodyTag
}

// NewSyncJoint creates the system with an event cursor on the world.
func NewSyncJoint(w *ecs.World) *SyncJoint {
	return &SyncJoint{
		reader:   w.EventReader(),
		attached: map[ecs.Entity]jointAttachment{},
	}
}

func (s *SyncJoint) Update(w *ecs.World) {
	detach := map[ecs.Entity]bool{}
	attach := map[ecs.Entity]bool{}

	for _, ev := range s.reader.Read() {
		switch ev.Component {
		case component.RigidBodyKind.ID():
			switch ev.Kind {
			case ecs.EventAdded:
				attach[ev.Entity] = true
			case ecs.EventModified:
				detach[ev.Entity] = true
				attach[ev.Entity] = true
			case ecs.EventRemoved:
				detach[ev.Entity] = true
			}
		case component.JointKind.ID():
			switch ev.Kind {
			case ecs.EventAdded:
				attach[ev.Entity] = true
			case ecs.EventModified:
				detach[ev.Entity] = true
				attach[ev.Entity] = true
			case ecs.EventRemoved:
				detach[ev.Entity] = true
				if j, ok := ev.Value.(component.Joint); ok && j.Handle != nil {
					j.Handle.Release()
				}
			}
		}
	}

	// Detach before attach so a modification needs no special case.
	for e := range detach {
		if a, ok := s.attached[e]; ok {
			a.world.JointServer().DetachBody(a.joint, a.body)
			delete(s.attached, e)
		}
	}

	for e := range attach {
		if _, already := s.attached[e]; already {
			continue
		}
		joint, ok := ecs.Get(w, e, component.JointKind)
		if !ok || joint.World == nil || joint.Handle == nil {
			continue
		}
		rb, ok := ecs.Get(w, e, component.RigidBodyKind)
		if !ok || rb.World == nil || rb.Handle == nil {
			continue
		}
		if err := joint.World.JointServer().AttachBody(joint.Handle.Tag(), rb.Handle.Tag()); err != nil {
			log.Printf("SyncJoint: entity=%v attach: %v", e, err)
			continue
		}
		s.attached[e] = jointAttachment{
			world: joint.World,
			joint: joint.Handle.Tag(),
			body:  rb.Handle.Tag(),
		}
	}
}
