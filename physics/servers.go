// Package physics defines the server interfaces through which the engine
// drives interchangeable physics backends, the reference-counted handles
// that track backend resources, and the fixed-step time resource.
//
// A backend implements the five server interfaces once; the rest of the
// engine only ever talks to them through the World facade, so swapping the
// physics engine never touches game code. Backends with functionality that
// does not fit the servers can still expose it directly; the facade is a
// floor, not a ceiling.
package physics

import "errors"

var (
	// ErrUnknownTag is returned by servers when a tag does not name a live
	// resource, typically because every handle to it was released.
	ErrUnknownTag = errors.New("physics: unknown resource tag")
	// ErrBadDesc is returned when a descriptor cannot be realized by the
	// backend, for example a convex shape with fewer than three points.
	ErrBadDesc = errors.New("physics: invalid descriptor")
	// ErrJointFull is returned when attaching a third body to a joint.
	ErrJointFull = errors.New("physics: joint already has two bodies")
)

// EntityRef identifies the engine-side entity owning a physics resource.
// The zero value means "no entity". The physics layer treats it as opaque;
// it exists so backend events can be routed back to ECS entities.
type EntityRef uint64

// WorldServer manipulates the simulation as a whole.
type WorldServer interface {
	// Step advances the simulation by the configured time step, destroying
	// any garbage-collected resources first.
	Step()
	// SetTimeStep sets the fixed step duration in seconds.
	SetTimeStep(dt float64)
	// SetGravity sets the world gravity.
	SetGravity(g Vec2)
	// Gravity returns the world gravity.
	Gravity() Vec2
}

// RigidBodyServer manipulates rigid, static, and kinematic bodies.
type RigidBodyServer interface {
	// CreateBody creates a body and returns its owning handle. Releasing
	// every clone of the handle destroys the body.
	CreateBody(desc *RigidBodyDesc) (*RigidBodyHandle, error)

	// SetEntity associates the engine entity owning this body. Zero clears.
	SetEntity(body RigidBodyTag, entity EntityRef) error
	// Entity returns the associated entity, zero if none.
	Entity(body RigidBodyTag) EntityRef

	// SetShape sets the body collision shape; zero tag leaves it shapeless.
	SetShape(body RigidBodyTag, shape ShapeTag) error
	// Shape returns the body shape tag, zero if none.
	Shape(body RigidBodyTag) ShapeTag

	// SetTransform teleports the body.
	SetTransform(body RigidBodyTag, t Transform) error
	// Transform returns the current body pose.
	Transform(body RigidBodyTag) Transform

	// SetMode changes how the body is simulated.
	SetMode(body RigidBodyTag, mode BodyMode) error
	// Mode returns the body mode.
	Mode(body RigidBodyTag) BodyMode

	SetFriction(body RigidBodyTag, friction float64) error
	Friction(body RigidBodyTag) float64
	SetBounciness(body RigidBodyTag, bounciness float64) error
	Bounciness(body RigidBodyTag) float64

	// ClearForces zeroes accumulated forces and torques.
	ClearForces(body RigidBodyTag) error
	ApplyForce(body RigidBodyTag, force Vec2) error
	ApplyTorque(body RigidBodyTag, torque float64) error
	ApplyForceAtPosition(body RigidBodyTag, force, position Vec2) error
	ApplyImpulse(body RigidBodyTag, impulse Vec2) error
	ApplyAngularImpulse(body RigidBodyTag, impulse float64) error
	ApplyImpulseAtPosition(body RigidBodyTag, impulse, position Vec2) error

	SetLinearVelocity(body RigidBodyTag, velocity Vec2) error
	LinearVelocity(body RigidBodyTag) Vec2
	SetAngularVelocity(body RigidBodyTag, velocity float64) error
	AngularVelocity(body RigidBodyTag) float64
	// LinearVelocityAtPosition returns the velocity of the body point at
	// the given world position.
	LinearVelocityAtPosition(body RigidBodyTag, position Vec2) Vec2
}

// OverlapKind tells whether an overlap started or ended.
type OverlapKind int

const (
	OverlapEnter OverlapKind = iota
	OverlapExit
)

// OverlapEvent reports a body entering or leaving an area during a step.
type OverlapEvent struct {
	Kind   OverlapKind
	Body   RigidBodyTag
	Entity EntityRef
}

// AreaServer manipulates overlap-detection volumes.
type AreaServer interface {
	// CreateArea creates an area and returns its owning handle.
	CreateArea(desc *AreaDesc) (*AreaHandle, error)

	SetEntity(area AreaTag, entity EntityRef) error
	Entity(area AreaTag) EntityRef

	SetShape(area AreaTag, shape ShapeTag) error
	Shape(area AreaTag) ShapeTag

	SetTransform(area AreaTag, t Transform) error
	Transform(area AreaTag) Transform

	SetBelongTo(area AreaTag, groups []CollisionGroup) error
	BelongTo(area AreaTag) []CollisionGroup
	SetCollideWith(area AreaTag, groups []CollisionGroup) error
	CollideWith(area AreaTag) []CollisionGroup

	// OverlapEvents drains the events recorded since the previous call.
	// Check it every substep or events from intermediate steps are lost.
	OverlapEvents(area AreaTag) []OverlapEvent
}

// ShapeServer manages collision shapes. Shapes are sharable: the same
// shape tag can be assigned to any number of bodies and areas.
type ShapeServer interface {
	// CreateShape realizes a shape descriptor and returns its handle.
	CreateShape(desc ShapeDesc) (*ShapeHandle, error)
	// UpdateShape swaps the descriptor in place; every body and area using
	// the shape is refitted.
	UpdateShape(shape ShapeTag, desc ShapeDesc) error
	// Desc returns the current descriptor of the shape.
	Desc(shape ShapeTag) (ShapeDesc, error)
}

// JointServer manages two-body constraints. A joint is created detached;
// it becomes active once two bodies are attached, which the sync layer
// does automatically when a joint handle lands on entities with bodies.
type JointServer interface {
	// CreateJoint creates a joint with its anchor at the given world pose.
	CreateJoint(desc JointDesc, anchor Transform) (*JointHandle, error)
	// AttachBody adds a body to the joint. A joint holds at most two.
	AttachBody(joint JointTag, body RigidBodyTag) error
	// DetachBody removes a body from the joint, deactivating it.
	DetachBody(joint JointTag, body RigidBodyTag) error
}

// World is the facade a backend hands to the engine: one server per
// resource category plus the shared garbage collector.
type World struct {
	backend string
	gc      *GarbageCollector
	world   WorldServer
	bodies  RigidBodyServer
	areas   AreaServer
	shapes  ShapeServer
	joints  JointServer
}

// NewWorld assembles a facade. Called by backends; engine code receives a
// ready World from Backend.NewWorld or the registry.
func NewWorld(backend string, gc *GarbageCollector, world WorldServer, bodies RigidBodyServer, areas AreaServer, shapes ShapeServer, joints JointServer) *World {
	return &World{
		backend: backend,
		gc:      gc,
		world:   world,
		bodies:  bodies,
		areas:   areas,
		shapes:  shapes,
		joints:  joints,
	}
}

// Backend returns the name of the backend that created this world.
func (w *World) Backend() string { return w.backend }

// GC returns the world garbage collector.
func (w *World) GC() *GarbageCollector { return w.gc }

// WorldServer returns the world server.
func (w *World) WorldServer() WorldServer { return w.world }

// RigidBodyServer returns the rigid body server.
func (w *World) RigidBodyServer() RigidBodyServer { return w.bodies }

// AreaServer returns the area server.
func (w *World) AreaServer() AreaServer { return w.areas }

// ShapeServer returns the shape server.
func (w *World) ShapeServer() ShapeServer { return w.shapes }

// JointServer returns the joint server.
func (w *World) JointServer() JointServer { return w.joints }
