package chipmunk

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/physkit/physics"
)

type body struct {
	tag    physics.RigidBodyTag
	cb     *cp.Body
	entity physics.EntityRef

	shape    physics.ShapeTag
	cpShapes []*cp.Shape

	mode       physics.BodyMode
	mass       float64
	friction   float64
	bounciness float64
	lockRot    bool
	filter     cp.ShapeFilter

	// Disabled bodies leave the space entirely.
	inSpace bool
}

func bodyType(mode physics.BodyMode) int {
	switch mode {
	case physics.BodyModeStatic:
		return cp.BODY_STATIC
	case physics.BodyModeKinematic:
		return cp.BODY_KINEMATIC
	default:
		return cp.BODY_DYNAMIC
	}
}

// applyMassProperties restores mass and moment after a type switch or a
// shape change; Chipmunk recomputes them on its own terms otherwise.
func (b *body) applyMassProperties(st *state) {
	if b.mode != physics.BodyModeDynamic {
		return
	}
	b.cb.SetMass(b.mass)
	if b.lockRot {
		b.cb.SetMoment(math.Inf(1))
		return
	}
	moment := b.mass
	if sh := st.shapes[b.shape]; sh != nil {
		moment = momentFor(b.mass, sh.desc)
	}
	b.cb.SetMoment(moment)
}

// dropShapes removes the body's realized collision shapes from the space.
func (b *body) dropShapes(st *state) {
	for _, cs := range b.cpShapes {
		if b.inSpace {
			st.space.RemoveShape(cs)
		}
		delete(st.bodyByShape, cs)
	}
	b.cpShapes = nil
}

// wearShape realizes the associated shape descriptor onto the body.
func (b *body) wearShape(st *state) {
	b.dropShapes(st)
	sh := st.shapes[b.shape]
	if sh == nil {
		return
	}
	b.cpShapes = buildShapes(b.cb, sh.desc)
	for _, cs := range b.cpShapes {
		cs.SetFriction(b.friction)
		cs.SetElasticity(b.bounciness)
		cs.SetFilter(b.filter)
		cs.SetCollisionType(collisionTypeBody)
		if b.inSpace {
			st.space.AddShape(cs)
		}
		st.bodyByShape[cs] = b.tag
	}
	b.applyMassProperties(st)
}

type bodyServer state

func (s *bodyServer) CreateBody(desc *physics.RigidBodyDesc) (*physics.RigidBodyHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if desc == nil {
		desc = physics.NewRigidBodyDesc()
	}

	mass := desc.Mass
	if mass <= 0 {
		mass = 1
	}
	moment := mass
	if desc.LockRotation {
		moment = math.Inf(1)
	}
	cb := cp.NewBody(mass, moment)
	cb.SetType(bodyType(desc.Mode))

	b := &body{
		tag:        physics.RigidBodyTag(st.tag()),
		cb:         cb,
		mode:       desc.Mode,
		mass:       mass,
		friction:   desc.Friction,
		bounciness: desc.Bounciness,
		lockRot:    desc.LockRotation,
		filter: cp.NewShapeFilter(cp.NO_GROUP,
			uint(physics.GroupMask(desc.BelongTo)),
			uint(physics.GroupMask(desc.CollideWith))),
	}
	if desc.Mode != physics.BodyModeDisabled {
		st.space.AddBody(cb)
		b.inSpace = true
	}
	st.bodies[b.tag] = b
	return physics.NewHandle(b.tag, st.gc), nil
}

func (s *bodyServer) body(tag physics.RigidBodyTag) *body {
	return (*state)(s).bodies[tag]
}

func (s *bodyServer) SetEntity(tag physics.RigidBodyTag, entity physics.EntityRef) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.entity = entity
	return nil
}

func (s *bodyServer) Entity(tag physics.RigidBodyTag) physics.EntityRef {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.entity
	}
	return 0
}

func (s *bodyServer) SetShape(tag physics.RigidBodyTag, shapeTag physics.ShapeTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	if sh := st.shapes[b.shape]; sh != nil {
		delete(sh.bodies, tag)
	}
	b.shape = shapeTag
	if sh := st.shapes[shapeTag]; sh != nil {
		sh.bodies[tag] = struct{}{}
	}
	b.wearShape(st)
	return nil
}

func (s *bodyServer) Shape(tag physics.RigidBodyTag) physics.ShapeTag {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.shape
	}
	return 0
}

func (s *bodyServer) SetTransform(tag physics.RigidBodyTag, t physics.Transform) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.SetPosition(vec(t.Position))
	b.cb.SetAngle(t.Angle)
	if b.inSpace && b.mode == physics.BodyModeStatic {
		// Static bodies never step, so their shape bounds must be
		// re-cached by hand after a teleport.
		b.cb.EachShape(func(sh *cp.Shape) { sh.CacheBB() })
	}
	return nil
}

func (s *bodyServer) Transform(tag physics.RigidBodyTag) physics.Transform {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return physics.Transform{Position: unvec(b.cb.Position()), Angle: b.cb.Angle()}
	}
	return physics.Transform{}
}

func (s *bodyServer) SetMode(tag physics.RigidBodyTag, mode physics.BodyMode) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	if mode == b.mode {
		return nil
	}

	wasDisabled := b.mode == physics.BodyModeDisabled
	b.mode = mode

	if mode == physics.BodyModeDisabled {
		b.dropShapes(st)
		if b.inSpace {
			st.space.RemoveBody(b.cb)
			b.inSpace = false
		}
		return nil
	}
	if wasDisabled {
		st.space.AddBody(b.cb)
		b.inSpace = true
		b.cb.SetType(bodyType(mode))
		b.wearShape(st)
		return nil
	}
	b.cb.SetType(bodyType(mode))
	b.applyMassProperties(st)
	return nil
}

func (s *bodyServer) Mode(tag physics.RigidBodyTag) physics.BodyMode {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.mode
	}
	return physics.BodyModeDisabled
}

func (s *bodyServer) SetFriction(tag physics.RigidBodyTag, friction float64) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.friction = friction
	for _, cs := range b.cpShapes {
		cs.SetFriction(friction)
	}
	return nil
}

func (s *bodyServer) Friction(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.friction
	}
	return 0
}

func (s *bodyServer) SetBounciness(tag physics.RigidBodyTag, bounciness float64) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.bounciness = bounciness
	for _, cs := range b.cpShapes {
		cs.SetElasticity(bounciness)
	}
	return nil
}

func (s *bodyServer) Bounciness(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.bounciness
	}
	return 0
}

func (s *bodyServer) ClearForces(tag physics.RigidBodyTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.SetForce(cp.Vector{})
	b.cb.SetTorque(0)
	return nil
}

func (s *bodyServer) ApplyForce(tag physics.RigidBodyTag, force physics.Vec2) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.ApplyForceAtWorldPoint(vec(force), b.cb.Position())
	return nil
}

func (s *bodyServer) ApplyTorque(tag physics.RigidBodyTag, torque float64) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.SetTorque(b.cb.Torque() + torque)
	return nil
}

func (s *bodyServer) ApplyForceAtPosition(tag physics.RigidBodyTag, force, position physics.Vec2) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.ApplyForceAtWorldPoint(vec(force), vec(position))
	return nil
}

func (s *bodyServer) ApplyImpulse(tag physics.RigidBodyTag, impulse physics.Vec2) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.ApplyImpulseAtWorldPoint(vec(impulse), b.cb.Position())
	return nil
}

func (s *bodyServer) ApplyAngularImpulse(tag physics.RigidBodyTag, impulse float64) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	if moment := b.cb.Moment(); moment > 0 && !math.IsInf(moment, 1) {
		b.cb.SetAngularVelocity(b.cb.AngularVelocity() + impulse/moment)
	}
	return nil
}

func (s *bodyServer) ApplyImpulseAtPosition(tag physics.RigidBodyTag, impulse, position physics.Vec2) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.ApplyImpulseAtWorldPoint(vec(impulse), vec(position))
	return nil
}

func (s *bodyServer) SetLinearVelocity(tag physics.RigidBodyTag, velocity physics.Vec2) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.SetVelocityVector(vec(velocity))
	return nil
}

func (s *bodyServer) LinearVelocity(tag physics.RigidBodyTag) physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return unvec(b.cb.Velocity())
	}
	return physics.Vec2{}
}

func (s *bodyServer) SetAngularVelocity(tag physics.RigidBodyTag, velocity float64) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.cb.SetAngularVelocity(velocity)
	return nil
}

func (s *bodyServer) AngularVelocity(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.cb.AngularVelocity()
	}
	return 0
}

func (s *bodyServer) LinearVelocityAtPosition(tag physics.RigidBodyTag, position physics.Vec2) physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.Vec2{}
	}
	// v + w x r, measured at a world position.
	r := unvec(b.cb.Position()).Sub(position)
	v := unvec(b.cb.Velocity())
	w := b.cb.AngularVelocity()
	return physics.Vec2{X: v.X + w*r.Y, Y: v.Y - w*r.X}
}
