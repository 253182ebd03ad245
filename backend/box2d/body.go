package box2d

import (
	"github.com/ByteArena/box2d"

	"github.com/milk9111/physkit/physics"
)

type body struct {
	tag    physics.RigidBodyTag
	bb     *box2d.B2Body
	entity physics.EntityRef

	shape    physics.ShapeTag
	fixtures []*box2d.B2Fixture

	mode       physics.BodyMode
	mass       float64
	friction   float64
	bounciness float64
	filter     box2d.B2Filter
}

func bodyType(mode physics.BodyMode) uint8 {
	switch mode {
	case physics.BodyModeStatic:
		return box2d.B2BodyType.B2_staticBody
	case physics.BodyModeKinematic:
		return box2d.B2BodyType.B2_kinematicBody
	default:
		return box2d.B2BodyType.B2_dynamicBody
	}
}

// groupFilter folds the 32 collision groups into Box2D's 16 filter bits.
// Groups above 16 alias back onto the low bits.
func groupFilter(belongTo, collideWith []physics.CollisionGroup) box2d.B2Filter {
	fold := func(mask uint32) uint16 {
		return uint16(mask) | uint16(mask>>16)
	}
	filter := box2d.MakeB2Filter()
	filter.CategoryBits = fold(physics.GroupMask(belongTo))
	filter.MaskBits = fold(physics.GroupMask(collideWith))
	return filter
}

func (b *body) dropFixtures() {
	for _, f := range b.fixtures {
		b.bb.DestroyFixture(f)
	}
	b.fixtures = nil
}

// wearShape realizes the associated shape descriptor as fixtures.
func (b *body) wearShape(st *state) {
	b.dropFixtures()
	sh := st.shapes[b.shape]
	if sh == nil {
		return
	}
	density := fixtureDensity(b.mass, sh.desc)
	owner := fixtureOwner{bodyTag: b.tag}
	for _, bs := range buildShapes(sh.desc) {
		fd := box2d.MakeB2FixtureDef()
		fd.Shape = bs
		fd.Density = density
		fd.Friction = b.friction
		fd.Restitution = b.bounciness
		fd.Filter = b.filter
		fd.UserData = owner
		b.fixtures = append(b.fixtures, b.bb.CreateFixtureFromDef(&fd))
	}
}

type bodyServer state

func (s *bodyServer) CreateBody(desc *physics.RigidBodyDesc) (*physics.RigidBodyHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if desc == nil {
		desc = physics.NewRigidBodyDesc()
	}

	def := box2d.MakeB2BodyDef()
	def.Type = bodyType(desc.Mode)
	def.FixedRotation = desc.LockRotation
	bb := st.world.CreateBody(&def)
	if desc.Mode == physics.BodyModeDisabled {
		bb.SetActive(false)
	}

	mass := desc.Mass
	if mass <= 0 {
		mass = 1
	}
	b := &body{
		tag:        physics.RigidBodyTag(st.tag()),
		bb:         bb,
		mode:       desc.Mode,
		mass:       mass,
		friction:   desc.Friction,
		bounciness: desc.Bounciness,
		filter:     groupFilter(desc.BelongTo, desc.CollideWith),
	}
	bb.SetUserData(b.tag)
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
	b.bb.SetTransform(vec(t.Position), t.Angle)
	return nil
}

func (s *bodyServer) Transform(tag physics.RigidBodyTag) physics.Transform {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return physics.Transform{Position: unvec(b.bb.GetPosition()), Angle: b.bb.GetAngle()}
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
		b.bb.SetActive(false)
		return nil
	}
	b.bb.SetType(bodyType(mode))
	if wasDisabled {
		b.bb.SetActive(true)
	}
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
	for _, f := range b.fixtures {
		f.SetFriction(friction)
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
	for _, f := range b.fixtures {
		f.SetRestitution(bounciness)
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
	// Box2D has no per-body force clear; cancelling velocity deltas is
	// done by the solver each step, so zeroing applied forces means
	// applying nothing further. Nothing to do beyond waking the body.
	b.bb.SetAwake(true)
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
	b.bb.ApplyForceToCenter(vec(force), true)
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
	b.bb.ApplyTorque(torque, true)
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
	b.bb.ApplyForce(vec(force), vec(position), true)
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
	b.bb.ApplyLinearImpulse(vec(impulse), b.bb.GetWorldCenter(), true)
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
	b.bb.ApplyAngularImpulse(impulse, true)
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
	b.bb.ApplyLinearImpulse(vec(impulse), vec(position), true)
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
	b.bb.SetLinearVelocity(vec(velocity))
	return nil
}

func (s *bodyServer) LinearVelocity(tag physics.RigidBodyTag) physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return unvec(b.bb.GetLinearVelocity())
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
	b.bb.SetAngularVelocity(velocity)
	return nil
}

func (s *bodyServer) AngularVelocity(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.bb.GetAngularVelocity()
	}
	return 0
}

func (s *bodyServer) LinearVelocityAtPosition(tag physics.RigidBodyTag, position physics.Vec2) physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return unvec(b.bb.GetLinearVelocityFromWorldPoint(vec(position)))
	}
	return physics.Vec2{}
}
