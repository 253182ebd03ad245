package component

import "github.com/milk9111/physkit/physics"

// RigidBody binds an entity to a backend body. The component owns the
// handle: the sync layer releases it when the component (or the entity)
// goes away, which drops the backend resource.
type RigidBody struct {
	World  *physics.World
	Handle *physics.RigidBodyHandle
}

// NewRigidBody creates a body on the given physics world.
func NewRigidBody(pw *physics.World, desc *physics.RigidBodyDesc) (RigidBody, error) {
	h, err := pw.RigidBodyServer().CreateBody(desc)
	if err != nil {
		return RigidBody{}, err
	}
	return RigidBody{World: pw, Handle: h}, nil
}

var RigidBodyKind = NewKind[RigidBody]()

// Area binds an entity to a backend overlap volume.
type Area struct {
	World  *physics.World
	Handle *physics.AreaHandle
}

// NewArea creates an area on the given physics world.
func NewArea(pw *physics.World, desc *physics.AreaDesc) (Area, error) {
	h, err := pw.AreaServer().CreateArea(desc)
	if err != nil {
		return Area{}, err
	}
	return Area{World: pw, Handle: h}, nil
}

var AreaKind = NewKind[Area]()

// Shape binds an entity to a collision shape. Adding it next to a
// RigidBody or Area component is enough; the shape sync system performs
// the association automatically.
type Shape struct {
	World  *physics.World
	Handle *physics.ShapeHandle
}

// NewShape creates a shape on the given physics world.
func NewShape(pw *physics.World, desc physics.ShapeDesc) (Shape, error) {
	h, err := pw.ShapeServer().CreateShape(desc)
	if err != nil {
		return Shape{}, err
	}
	return Shape{World: pw, Handle: h}, nil
}

// Share returns a co-owning copy for another entity wearing the shape.
func (s Shape) Share() Shape {
	return Shape{World: s.World, Handle: s.Handle.Clone()}
}

var ShapeKind = NewKind[Shape]()

// Joint binds an entity to a two-body constraint. Assign the same joint
// handle (cloned) to the two entities to constrain; the joint sync system
// attaches their bodies.
type Joint struct {
	World  *physics.World
	Handle *physics.JointHandle
}

// NewJoint creates a joint on the given physics world.
func NewJoint(pw *physics.World, desc physics.JointDesc, anchor physics.Transform) (Joint, error) {
	h, err := pw.JointServer().CreateJoint(desc, anchor)
	if err != nil {
		return Joint{}, err
	}
	return Joint{World: pw, Handle: h}, nil
}

// Share returns a co-owning copy for the second constrained entity.
func (j Joint) Share() Joint {
	return Joint{World: j.World, Handle: j.Handle.Clone()}
}

var JointKind = NewKind[Joint]()

// Attachment caches the world pose of an entity riding a parent. It is
// resolved every physics substep so kinematic bodies and areas attached to
// a moving body track it inside the stepping, not once per frame.
type Attachment struct {
	CachedPose physics.Transform
}

var AttachmentKind = NewKind[Attachment]()

// Script attaches a Tengo behavior that runs before each physics step.
type Script struct {
	Name   string
	Source string
}

var ScriptKind = NewKind[Script]()
