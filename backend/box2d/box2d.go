// Package box2d runs the physics servers on a Box2D world via
// github.com/ByteArena/box2d. Importing the package registers the backend
// under the name "box2d".
package box2d

import (
	"sync"

	"github.com/ByteArena/box2d"

	"github.com/milk9111/physkit/physics"
)

// BackendName is the registry name of the Box2D backend.
const BackendName = "box2d"

const (
	velocityIterations = 8
	positionIterations = 3
)

func init() {
	physics.Register(Backend{})
}

// Backend creates Box2D-backed worlds.
type Backend struct{}

func (Backend) Name() string { return BackendName }

func (Backend) NewWorld() (*physics.World, error) {
	return NewWorld(), nil
}

// NewWorld returns a world facade over a fresh Box2D world.
func NewWorld() *physics.World {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, -9.81))
	s := &state{
		gc:      physics.NewGarbageCollector(),
		world:   &world,
		bodies:  map[physics.RigidBodyTag]*body{},
		areas:   map[physics.AreaTag]*area{},
		shapes:  map[physics.ShapeTag]*shape{},
		joints:  map[physics.JointTag]*joint{},
		gravity: physics.Vec2{Y: -9.81},
		dt:      1.0 / 60.0,
	}
	s.world.SetContactListener(&overlapListener{st: s})
	return physics.NewWorld(BackendName, s.gc,
		(*worldServer)(s), (*bodyServer)(s), (*areaServer)(s), (*shapeServer)(s), (*jointServer)(s))
}

// state backs every server of one world.
type state struct {
	mu    sync.Mutex
	gc    *physics.GarbageCollector
	world *box2d.B2World

	nextTag uint64
	bodies  map[physics.RigidBodyTag]*body
	areas   map[physics.AreaTag]*area
	shapes  map[physics.ShapeTag]*shape
	joints  map[physics.JointTag]*joint

	gravity physics.Vec2
	dt      float64
}

func (st *state) tag() uint64 {
	st.nextTag++
	return st.nextTag
}

// fixtureOwner is stashed in fixture user data so the contact listener can
// tell areas from bodies without extra maps.
type fixtureOwner struct {
	bodyTag physics.RigidBodyTag
	areaTag physics.AreaTag
}

// overlapListener turns sensor contacts into Enter/Exit overlap events.
// Box2D calls it from inside Step, under the state lock Step holds.
type overlapListener struct {
	st *state
}

func (l *overlapListener) BeginContact(contact box2d.B2ContactInterface) {
	l.record(contact, physics.OverlapEnter)
}

func (l *overlapListener) EndContact(contact box2d.B2ContactInterface) {
	l.record(contact, physics.OverlapExit)
}

func (l *overlapListener) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {
}

func (l *overlapListener) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
}

func (l *overlapListener) record(contact box2d.B2ContactInterface, kind physics.OverlapKind) {
	ownerA, okA := contact.GetFixtureA().GetUserData().(fixtureOwner)
	ownerB, okB := contact.GetFixtureB().GetUserData().(fixtureOwner)
	if !okA || !okB {
		return
	}
	areaOwner, bodyOwner := ownerA, ownerB
	if !areaOwner.areaTag.Valid() {
		areaOwner, bodyOwner = ownerB, ownerA
	}
	a := l.st.areas[areaOwner.areaTag]
	b := l.st.bodies[bodyOwner.bodyTag]
	if a == nil || b == nil {
		return
	}
	a.events = append(a.events, physics.OverlapEvent{
		Kind:   kind,
		Body:   b.tag,
		Entity: b.entity,
	})
}

type worldServer state

func (s *worldServer) Step() {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()

	joints, bodies, areas, shapes := st.gc.Drain()
	for _, t := range joints {
		st.destroyJoint(t)
	}
	for _, t := range bodies {
		st.destroyBody(t)
	}
	for _, t := range areas {
		st.destroyArea(t)
	}
	for _, t := range shapes {
		st.destroyShape(t)
	}

	st.world.Step(st.dt, velocityIterations, positionIterations)
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
	st.world.SetGravity(vec(g))
}

func (s *worldServer) Gravity() physics.Vec2 {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.gravity
}

func (st *state) destroyJoint(tag physics.JointTag) {
	j := st.joints[tag]
	if j == nil {
		return
	}
	j.dropJoint(st)
	delete(st.joints, tag)
}

func (st *state) destroyBody(tag physics.RigidBodyTag) {
	b := st.bodies[tag]
	if b == nil {
		return
	}
	// Box2D destroys attached joints with the body; forget them first.
	for _, j := range st.joints {
		j.forgetBody(tag)
	}
	if sh := st.shapes[b.shape]; sh != nil {
		delete(sh.bodies, tag)
	}
	st.world.DestroyBody(b.bb)
	delete(st.bodies, tag)
}

func (st *state) destroyArea(tag physics.AreaTag) {
	a := st.areas[tag]
	if a == nil {
		return
	}
	if sh := st.shapes[a.shape]; sh != nil {
		delete(sh.areas, tag)
	}
	st.world.DestroyBody(a.bb)
	delete(st.areas, tag)
}

func (st *state) destroyShape(tag physics.ShapeTag) {
	sh := st.shapes[tag]
	if sh == nil {
		return
	}
	for bt := range sh.bodies {
		if b := st.bodies[bt]; b != nil {
			b.dropFixtures()
			b.shape = 0
		}
	}
	for at := range sh.areas {
		if a := st.areas[at]; a != nil {
			a.dropFixtures()
			a.shape = 0
		}
	}
	delete(st.shapes, tag)
}

func vec(v physics.Vec2) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v.X, v.Y)
}

func unvec(v box2d.B2Vec2) physics.Vec2 {
	return physics.Vec2{X: v.X, Y: v.Y}
}
