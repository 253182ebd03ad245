// Package physicstest provides an in-memory physics backend. It solves
// nothing: bodies integrate velocity linearly and areas report overlaps
// pushed by the test. It exists so the bridge systems and engine code can
// be exercised without a real engine behind the servers.
package physicstest

import (
	"sync"

	"github.com/milk9111/physkit/physics"
)

// BackendName is the registry name of the test backend.
const BackendName = "test"

// Backend creates in-memory worlds.
type Backend struct{}

func (Backend) Name() string { return BackendName }

func (Backend) NewWorld() (*physics.World, error) {
	return NewWorld(), nil
}

// NewWorld returns a fresh in-memory world facade.
func NewWorld() *physics.World {
	s := &state{
		gc:      physics.NewGarbageCollector(),
		bodies:  map[physics.RigidBodyTag]*body{},
		areas:   map[physics.AreaTag]*area{},
		shapes:  map[physics.ShapeTag]*shape{},
		joints:  map[physics.JointTag]*joint{},
		gravity: physics.Vec2{Y: -9.81},
		dt:      1.0 / 60.0,
	}
	return physics.NewWorld(BackendName, s.gc,
		(*worldServer)(s), (*bodyServer)(s), (*areaServer)(s), (*shapeServer)(s), (*jointServer)(s))
}

type body struct {
	entity  physics.EntityRef
	shape   physics.ShapeTag
	pose    physics.Transform
	mode    physics.BodyMode
	frict   float64
	bounce  float64
	linVel  physics.Vec2
	angVel  float64
	force   physics.Vec2
	torque  float64
	mass    float64
}

type area struct {
	entity      physics.EntityRef
	shape       physics.ShapeTag
	pose        physics.Transform
	belongTo    []physics.CollisionGroup
	collideWith []physics.CollisionGroup
	events      []physics.OverlapEvent
}

type shape struct {
	desc    physics.ShapeDesc
}

type joint struct {
	desc    physics.JointDesc
	anchor  physics.Transform
	bodies  []physics.RigidBodyTag
}

// state backs every server of one world. All five servers are views over
// the same struct, which keeps resource cross-references trivial.
type state struct {
	mu sync.Mutex
	gc *physics.GarbageCollector

	nextTag uint64
	bodies  map[physics.RigidBodyTag]*body
	areas   map[physics.AreaTag]*area
	shapes  map[physics.ShapeTag]*shape
	joints  map[physics.JointTag]*joint

	gravity physics.Vec2
	dt      float64
	steps   int
}

func (s *state) tag() uint64 {
	s.nextTag++
	return s.nextTag
}

type worldServer state

func (s *worldServer) Step() {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()

	joints, bodies, areas, shapes := st.gc.Drain()
	for _, t := range joints {
		delete(st.joints, t)
	}
	for _, t := range bodies {
		delete(st.bodies, t)
	}
	for _, t := range areas {
		delete(st.areas, t)
	}
	for _, t := range shapes {
		delete(st.shapes, t)
	}

	for _, b := range st.bodies {
		if b.mode != physics.BodyModeDynamic && b.mode != physics.BodyModeKinematic {
			continue
		}
		if b.mode == physics.BodyModeDynamic {
			b.linVel = b.linVel.Add(st.gravity.Scale(st.dt))
			if b.mass > 0 {
				b.linVel = b.linVel.Add(b.force.Scale(st.dt / b.mass))
				b.angVel += b.torque * st.dt / b.mass
			}
		}
		b.pose.Position = b.pose.Position.Add(b.linVel.Scale(st.dt))
		b.pose.Angle += b.angVel * st.dt
	}
	st.steps++
}

func (s *worldServer) SetTimeStep(dt float64) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if dt > 0 {
		st.dt = dt
	}
}

func (s *worldServer) SetGravity(g physics.Vec2) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.gravity = g
}

func (s *worldServer) Gravity() physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.gravity
}

// Steps returns how many times the world stepped. Test hook.
func Steps(w *physics.World) int {
	s, _ := w.WorldServer().(*worldServer)
	if s == nil {
		return 0
	}
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.steps
}

// PushOverlap records an overlap event on an area. Test hook.
func PushOverlap(w *physics.World, area physics.AreaTag, ev physics.OverlapEvent) {
	s, _ := w.AreaServer().(*areaServer)
	if s == nil {
		return
	}
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := st.areas[area]; a != nil {
		a.events = append(a.events, ev)
	}
}

// BodyCount returns how many live bodies the world holds. Test hook.
func BodyCount(w *physics.World) int {
	s, _ := w.WorldServer().(*worldServer)
	if s == nil {
		return 0
	}
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.bodies)
}

type bodyServer state

func (s *bodyServer) CreateBody(desc *physics.RigidBodyDesc) (*physics.RigidBodyHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if desc == nil {
		desc = physics.NewRigidBodyDesc()
	}
	tag := physics.RigidBodyTag(st.tag())
	st.bodies[tag] = &body{
		mode:   desc.Mode,
		mass:   desc.Mass,
		frict:  desc.Friction,
		bounce: desc.Bounciness,
	}
	return physics.NewHandle(tag, st.gc), nil
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

func (s *bodyServer) SetShape(tag physics.RigidBodyTag, shape physics.ShapeTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	b := s.body(tag)
	if b == nil {
		return physics.ErrUnknownTag
	}
	b.shape = shape
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
	b.pose = t
	return nil
}

func (s *bodyServer) Transform(tag physics.RigidBodyTag) physics.Transform {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.pose
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
	b.mode = mode
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
	b.frict = friction
	return nil
}

func (s *bodyServer) Friction(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.frict
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
	b.bounce = bounciness
	return nil
}

func (s *bodyServer) Bounciness(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.bounce
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
	b.force = physics.Vec2{}
	b.torque = 0
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
	b.force = b.force.Add(force)
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
	b.torque += torque
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
	b.force = b.force.Add(force)
	b.torque += position.Sub(b.pose.Position).Cross(force)
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
	if b.mass > 0 {
		b.linVel = b.linVel.Add(impulse.Scale(1 / b.mass))
	}
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
	if b.mass > 0 {
		b.angVel += impulse / b.mass
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
	if b.mass > 0 {
		b.linVel = b.linVel.Add(impulse.Scale(1 / b.mass))
		b.angVel += position.Sub(b.pose.Position).Cross(impulse) / b.mass
	}
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
	b.linVel = velocity
	return nil
}

func (s *bodyServer) LinearVelocity(tag physics.RigidBodyTag) physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.linVel
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
	b.angVel = velocity
	return nil
}

func (s *bodyServer) AngularVelocity(tag physics.RigidBodyTag) float64 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if b := s.body(tag); b != nil {
		return b.angVel
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
	r := position.Sub(b.pose.Position)
	return b.linVel.Add(physics.Vec2{X: -b.angVel * r.Y, Y: b.angVel * r.X})
}

type areaServer state

func (s *areaServer) CreateArea(desc *physics.AreaDesc) (*physics.AreaHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if desc == nil {
		desc = physics.NewAreaDesc()
	}
	tag := physics.AreaTag(st.tag())
	st.areas[tag] = &area{
		belongTo:    append([]physics.CollisionGroup(nil), desc.BelongTo...),
		collideWith: append([]physics.CollisionGroup(nil), desc.CollideWith...),
	}
	return physics.NewHandle(tag, st.gc), nil
}

func (s *areaServer) area(tag physics.AreaTag) *area {
	return (*state)(s).areas[tag]
}

func (s *areaServer) SetEntity(tag physics.AreaTag, entity physics.EntityRef) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil {
		return physics.ErrUnknownTag
	}
	a.entity = entity
	return nil
}

func (s *areaServer) Entity(tag physics.AreaTag) physics.EntityRef {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return a.entity
	}
	return 0
}

func (s *areaServer) SetShape(tag physics.AreaTag, shape physics.ShapeTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil {
		return physics.ErrUnknownTag
	}
	a.shape = shape
	return nil
}

func (s *areaServer) Shape(tag physics.AreaTag) physics.ShapeTag {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return a.shape
	}
	return 0
}

func (s *areaServer) SetTransform(tag physics.AreaTag, t physics.Transform) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil {
		return physics.ErrUnknownTag
	}
	a.pose = t
	return nil
}

func (s *areaServer) Transform(tag physics.AreaTag) physics.Transform {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return a.pose
	}
	return physics.Transform{}
}

func (s *areaServer) SetBelongTo(tag physics.AreaTag, groups []physics.CollisionGroup) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil {
		return physics.ErrUnknownTag
	}
	a.belongTo = append([]physics.CollisionGroup(nil), groups...)
	return nil
}

func (s *areaServer) BelongTo(tag physics.AreaTag) []physics.CollisionGroup {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return append([]physics.CollisionGroup(nil), a.belongTo...)
	}
	return nil
}

func (s *areaServer) SetCollideWith(tag physics.AreaTag, groups []physics.CollisionGroup) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil {
		return physics.ErrUnknownTag
	}
	a.collideWith = append([]physics.CollisionGroup(nil), groups...)
	return nil
}

func (s *areaServer) CollideWith(tag physics.AreaTag) []physics.CollisionGroup {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return append([]physics.CollisionGroup(nil), a.collideWith...)
	}
	return nil
}

func (s *areaServer) OverlapEvents(tag physics.AreaTag) []physics.OverlapEvent {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil || len(a.events) == 0 {
		return nil
	}
	out := a.events
	a.events = nil
	return out
}

type shapeServer state

func (s *shapeServer) CreateShape(desc physics.ShapeDesc) (*physics.ShapeHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if desc.Kind == physics.ShapeConvex && len(desc.Points) < 3 {
		return nil, physics.ErrBadDesc
	}
	tag := physics.ShapeTag(st.tag())
	st.shapes[tag] = &shape{desc: desc}
	return physics.NewHandle(tag, st.gc), nil
}

func (s *shapeServer) UpdateShape(tag physics.ShapeTag, desc physics.ShapeDesc) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	sh := st.shapes[tag]
	if sh == nil {
		return physics.ErrUnknownTag
	}
	sh.desc = desc
	return nil
}

func (s *shapeServer) Desc(tag physics.ShapeTag) (physics.ShapeDesc, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	sh := st.shapes[tag]
	if sh == nil {
		return physics.ShapeDesc{}, physics.ErrUnknownTag
	}
	return sh.desc, nil
}

type jointServer state

func (s *jointServer) CreateJoint(desc physics.JointDesc, anchor physics.Transform) (*physics.JointHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	tag := physics.JointTag(st.tag())
	st.joints[tag] = &joint{desc: desc, anchor: anchor}
	return physics.NewHandle(tag, st.gc), nil
}

func (s *jointServer) AttachBody(tag physics.JointTag, body physics.RigidBodyTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	j := st.joints[tag]
	if j == nil {
		return physics.ErrUnknownTag
	}
	if len(j.bodies) >= 2 {
		return physics.ErrJointFull
	}
	j.bodies = append(j.bodies, body)
	return nil
}

func (s *jointServer) DetachBody(tag physics.JointTag, body physics.RigidBodyTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	j := st.joints[tag]
	if j == nil {
		return physics.ErrUnknownTag
	}
	for i, b := range j.bodies {
		if b == body {
			j.bodies = append(j.bodies[:i], j.bodies[i+1:]...)
			return nil
		}
	}
	return nil
}

// JointBodies returns the bodies attached to a joint. Test hook.
func JointBodies(w *physics.World, tag physics.JointTag) []physics.RigidBodyTag {
	s, _ := w.JointServer().(*jointServer)
	if s == nil {
		return nil
	}
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if j := st.joints[tag]; j != nil {
		return append([]physics.RigidBodyTag(nil), j.bodies...)
	}
	return nil
}

func init() {
	physics.Register(Backend{})
}
