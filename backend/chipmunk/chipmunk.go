// Package chipmunk runs the physics servers on a Chipmunk2D space via
// github.com/jakecoffman/cp. Importing the package registers the backend
// under the name "chipmunk".
package chipmunk

import (
	"sync"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/physkit/physics"
)

// BackendName is the registry name of the Chipmunk backend.
const BackendName = "chipmunk"

const spaceIterations = 20

const (
	collisionTypeBody cp.CollisionType = iota + 1
	collisionTypeArea
)

func init() {
	physics.Register(Backend{})
}

// Backend creates Chipmunk-backed worlds.
type Backend struct{}

func (Backend) Name() string { return BackendName }

func (Backend) NewWorld() (*physics.World, error) {
	return NewWorld(), nil
}

// NewWorld returns a world facade over a fresh Chipmunk space.
func NewWorld() *physics.World {
	space := cp.NewSpace()
	space.Iterations = spaceIterations
	space.SetGravity(cp.Vector{Y: -9.81})

	s := &state{
		gc:          physics.NewGarbageCollector(),
		space:       space,
		bodies:      map[physics.RigidBodyTag]*body{},
		areas:       map[physics.AreaTag]*area{},
		shapes:      map[physics.ShapeTag]*shape{},
		joints:      map[physics.JointTag]*joint{},
		bodyByShape: map[*cp.Shape]physics.RigidBodyTag{},
		areaByShape: map[*cp.Shape]physics.AreaTag{},
		gravity:     physics.Vec2{Y: -9.81},
		dt:          1.0 / 60.0,
	}
	s.setupOverlapHandler()
	return physics.NewWorld(BackendName, s.gc,
		(*worldServer)(s), (*bodyServer)(s), (*areaServer)(s), (*shapeServer)(s), (*jointServer)(s))
}

// state backs every server of one world. The servers are views over the
// same struct so resources can cross-reference without indirection.
type state struct {
	mu    sync.Mutex
	gc    *physics.GarbageCollector
	space *cp.Space

	nextTag uint64
	bodies  map[physics.RigidBodyTag]*body
	areas   map[physics.AreaTag]*area
	shapes  map[physics.ShapeTag]*shape
	joints  map[physics.JointTag]*joint

	// Reverse maps for the overlap handler.
	bodyByShape map[*cp.Shape]physics.RigidBodyTag
	areaByShape map[*cp.Shape]physics.AreaTag

	gravity physics.Vec2
	dt      float64
}

func (st *state) tag() uint64 {
	st.nextTag++
	return st.nextTag
}

// setupOverlapHandler records Enter/Exit events whenever a body shape
// touches an area sensor. Chipmunk fires Begin and Separate for sensor
// pairs without solving them, which is exactly the overlap semantic.
func (st *state) setupOverlapHandler() {
	handler := st.space.NewCollisionHandler(collisionTypeArea, collisionTypeBody)
	handler.UserData = st
	handler.BeginFunc = func(arb *cp.Arbiter, _ *cp.Space, userData interface{}) bool {
		if w, ok := userData.(*state); ok {
			w.recordOverlap(arb, physics.OverlapEnter)
		}
		return true
	}
	handler.SeparateFunc = func(arb *cp.Arbiter, _ *cp.Space, userData interface{}) {
		if w, ok := userData.(*state); ok {
			w.recordOverlap(arb, physics.OverlapExit)
		}
	}
}

// recordOverlap runs inside space.Step, under the state lock Step holds.
func (st *state) recordOverlap(arb *cp.Arbiter, kind physics.OverlapKind) {
	shapeA, shapeB := arb.Shapes()
	areaShape, bodyShape := shapeA, shapeB
	if _, ok := st.areaByShape[areaShape]; !ok {
		areaShape, bodyShape = shapeB, shapeA
	}

	a := st.areas[st.areaByShape[areaShape]]
	b := st.bodies[st.bodyByShape[bodyShape]]
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

	st.space.Step(st.dt)
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
	st.space.SetGravity(vec(g))
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
	j.dropConstraints(st.space)
	delete(st.joints, tag)
}

func (st *state) destroyBody(tag physics.RigidBodyTag) {
	b := st.bodies[tag]
	if b == nil {
		return
	}
	// Constraints become dangling the moment their body dies.
	for _, j := range st.joints {
		j.detach(st.space, tag)
	}
	b.dropShapes(st)
	if sh := st.shapes[b.shape]; sh != nil {
		delete(sh.bodies, tag)
	}
	if b.inSpace {
		st.space.RemoveBody(b.cb)
	}
	delete(st.bodies, tag)
}

func (st *state) destroyArea(tag physics.AreaTag) {
	a := st.areas[tag]
	if a == nil {
		return
	}
	a.dropShapes(st)
	if sh := st.shapes[a.shape]; sh != nil {
		delete(sh.areas, tag)
	}
	st.space.RemoveBody(a.cb)
	delete(st.areas, tag)
}

func (st *state) destroyShape(tag physics.ShapeTag) {
	sh := st.shapes[tag]
	if sh == nil {
		return
	}
	// Strip the shape off anything still wearing it.
	for bt := range sh.bodies {
		if b := st.bodies[bt]; b != nil {
			b.dropShapes(st)
			b.shape = 0
		}
	}
	for at := range sh.areas {
		if a := st.areas[at]; a != nil {
			a.dropShapes(st)
			a.shape = 0
		}
	}
	delete(st.shapes, tag)
}

func vec(v physics.Vec2) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func unvec(v cp.Vector) physics.Vec2 {
	return physics.Vec2{X: v.X, Y: v.Y}
}
