package system

import (
	"log"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// The transform sync is split in two systems so the physics stepping can
// overlap everything that only reads transforms.
//
// SyncTransformFrom runs after SyncTransformTo and copies the backend pose
// of every root body back into the Transform component, so an edit made
// this frame reaches the backend before the copy-back. Writes go through
// ReplaceComponent so they do not read back as user edits.
type SyncTransformFrom struct{}

// NewSyncTransformFrom creates the physics-to-engine half.
func NewSyncTransformFrom(w *ecs.World) *SyncTransformFrom {
	return &SyncTransformFrom{}
}

func (s *SyncTransformFrom) Update(w *ecs.World) {
	for _, e := range w.Query(component.TransformKind.ID(), component.RigidBodyKind.ID()) {
		// A parented body's final pose depends on its parent; the
		// attachment pass owns it.
		if ecs.Has(w, e, ecs.ParentKind) {
			continue
		}
		rb, ok := ecs.Get(w, e, component.RigidBodyKind)
		if !ok || rb.World == nil || rb.Handle == nil {
			continue
		}
		pose := rb.World.RigidBodyServer().Transform(rb.Handle.Tag())
		w.ReplaceComponent(e, component.TransformKind.ID(), component.FromPose(pose))
	}
}

// SyncTransformTo pushes engine-side transform edits to the backend. It
// reacts to Transform adds and modifications, and to freshly added bodies
// and areas, which need their initial pose.
type SyncTransformTo struct {
	reader *ecs.EventReader
}

// NewSyncTransformTo creates the engine-to-physics half.
func NewSyncTransformTo(w *ecs.World) *SyncTransformTo {
	return &SyncTransformTo{reader: w.EventReader()}
}

func (s *SyncTransformTo) Update(w *ecs.World) {
	dirty := map[ecs.Entity]bool{}
	for _, ev := range s.reader.Read() {
		switch ev.Component {
		case component.TransformKind.ID():
			if ev.Kind == ecs.EventAdded || ev.Kind == ecs.EventModified {
				dirty[ev.Entity] = true
			}
		case component.RigidBodyKind.ID(), component.AreaKind.ID():
			if ev.Kind == ecs.EventAdded {
				dirty[ev.Entity] = true
			}
		}
	}

	for e := range dirty {
		tf, ok := ecs.Get(w, e, component.TransformKind)
		if !ok {
			continue
		}
		// Entities under an Attachment are positioned in the substep pass.
		if ecs.Has(w, e, component.AttachmentKind) {
			continue
		}
		pose := tf.Pose()
		if parent, ok := ecs.Get(w, e, ecs.ParentKind); ok {
			pose = worldPose(w, parent.Entity).Mul(pose)
		}

		if rb, ok := ecs.Get(w, e, component.RigidBodyKind); ok && rb.World != nil && rb.Handle != nil {
			rb.World.RigidBodyServer().SetTransform(rb.Handle.Tag(), pose)
		}
		if area, ok := ecs.Get(w, e, component.AreaKind); ok && area.World != nil && area.Handle != nil {
			area.World.AreaServer().SetTransform(area.Handle.Tag(), pose)
		}
	}
}

// worldPose resolves an entity's world pose by walking the parent chain.
// A cyclic chain is cut at the revisited entity, which is treated as a
// root.
func worldPose(w *ecs.World, e ecs.Entity) physics.Transform {
	return chainPose(w, e, map[ecs.Entity]bool{})
}

func chainPose(w *ecs.World, e ecs.Entity, seen map[ecs.Entity]bool) (pose physics.Transform) {
	if seen[e] {
		log.Printf("SyncTransformTo: parent cycle at entity=%v", e)
		return physics.Transform{}
	}
	seen[e] = true
	if tf, ok := ecs.Get(w, e, component.TransformKind); ok {
		pose = tf.Pose()
	}
	if parent, ok := ecs.Get(w, e, ecs.ParentKind); ok {
		pose = chainPose(w, parent.Entity, seen).Mul(pose)
	}
	return pose
}
