package system

import (
	"log"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// Attachment resolves the world pose of entities riding a parent, every
// physics substep. A rigid body moves during stepping; an area or a
// kinematic body attached to it must follow inside the substep loop or the
// interaction lags a frame.
//
// The system runs from the Stepper. Registered on its own it would also
// run once per frame outside the substeps, which is wasted work, so it
// skips those executions.
type Attachment struct {
	time              *physics.Time
	skipNextExecution bool
}

// NewAttachment creates the resolver bound to the physics clock.
func NewAttachment(time *physics.Time) *Attachment {
	return &Attachment{time: time}
}

func (s *Attachment) Update(w *ecs.World) {
	if s.time != nil {
		if !s.time.InSubStep() {
			s.skipNextExecution = true
		} else if s.skipNextExecution {
			s.skipNextExecution = false
			return
		}
	}

	resolved := map[ecs.Entity]physics.Transform{}
	visiting := map[ecs.Entity]bool{}
	for _, e := range w.Query(component.AttachmentKind.ID(), ecs.ParentKind.ID()) {
		s.resolve(w, e, resolved, visiting)
	}
}

// resolve computes and applies the world pose of e, resolving ancestors
// first. The memo keeps shared parent chains linear; the visiting set cuts
// cyclic chains at the revisited entity, which keeps its rest pose.
func (s *Attachment) resolve(w *ecs.World, e ecs.Entity, resolved map[ecs.Entity]physics.Transform, visiting map[ecs.Entity]bool) physics.Transform {
	if pose, done := resolved[e]; done {
		return pose
	}
	if visiting[e] {
		log.Printf("Attachment: parent cycle at entity=%v", e)
		pose := s.restPose(w, e)
		resolved[e] = pose
		return pose
	}
	visiting[e] = true

	parent, hasParent := ecs.Get(w, e, ecs.ParentKind)
	if !hasParent {
		pose := s.restPose(w, e)
		resolved[e] = pose
		return pose
	}

	parentPose := s.parentPose(w, parent.Entity, resolved, visiting)
	pose := parentPose
	if tf, ok := ecs.Get(w, e, component.TransformKind); ok {
		pose = parentPose.Mul(tf.Pose())
	}
	resolved[e] = pose

	if att, ok := ecs.Get(w, e, component.AttachmentKind); ok {
		att.CachedPose = pose
		w.ReplaceComponent(e, component.AttachmentKind.ID(), att)
	}

	// Areas take precedence: an area attached to a body entity is the
	// common sensor-on-character setup.
	if area, ok := ecs.Get(w, e, component.AreaKind); ok && area.World != nil && area.Handle != nil {
		area.World.AreaServer().SetTransform(area.Handle.Tag(), pose)
	} else if rb, ok := ecs.Get(w, e, component.RigidBodyKind); ok && rb.World != nil && rb.Handle != nil {
		rb.World.RigidBodyServer().SetTransform(rb.Handle.Tag(), pose)
	}
	return pose
}

func (s *Attachment) parentPose(w *ecs.World, parent ecs.Entity, resolved map[ecs.Entity]physics.Transform, visiting map[ecs.Entity]bool) physics.Transform {
	if rb, ok := ecs.Get(w, parent, component.RigidBodyKind); ok && rb.World != nil && rb.Handle != nil {
		return rb.World.RigidBodyServer().Transform(rb.Handle.Tag())
	}
	if ecs.Has(w, parent, component.AttachmentKind) && ecs.Has(w, parent, ecs.ParentKind) {
		return s.resolve(w, parent, resolved, visiting)
	}
	if !ecs.Has(w, parent, component.TransformKind) {
		log.Printf("Attachment: parent %v is neither a body, an attachment, nor transformed; children stay at origin", parent)
	}
	return s.restPose(w, parent)
}

func (s *Attachment) restPose(w *ecs.World, e ecs.Entity) physics.Transform {
	if tf, ok := ecs.Get(w, e, component.TransformKind); ok {
		return tf.Pose()
	}
	return physics.Transform{}
}
