package chipmunk

import (
	"github.com/jakecoffman/cp"

	"github.com/milk9111/physkit/physics"
)

// area is a kinematic sensor body. It collides with nothing; its shapes
// only feed the overlap handler.
type area struct {
	tag    physics.AreaTag
	cb     *cp.Body
	entity physics.EntityRef

	shape    physics.ShapeTag
	cpShapes []*cp.Shape

	belongTo    []physics.CollisionGroup
	collideWith []physics.CollisionGroup

	events []physics.OverlapEvent
}

func (a *area) filter() cp.ShapeFilter {
	return cp.NewShapeFilter(cp.NO_GROUP,
		uint(physics.GroupMask(a.belongTo)),
		uint(physics.GroupMask(a.collideWith)))
}

func (a *area) dropShapes(st *state) {
	for _, cs := range a.cpShapes {
		st.space.RemoveShape(cs)
		delete(st.areaByShape, cs)
	}
	a.cpShapes = nil
}

func (a *area) wearShape(st *state) {
	a.dropShapes(st)
	sh := st.shapes[a.shape]
	if sh == nil {
		return
	}
	a.cpShapes = buildShapes(a.cb, sh.desc)
	for _, cs := range a.cpShapes {
		cs.SetSensor(true)
		cs.SetFilter(a.filter())
		cs.SetCollisionType(collisionTypeArea)
		st.space.AddShape(cs)
		st.areaByShape[cs] = a.tag
	}
}

type areaServer state

func (s *areaServer) CreateArea(desc *physics.AreaDesc) (*physics.AreaHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if desc == nil {
		desc = physics.NewAreaDesc()
	}

	cb := cp.NewKinematicBody()
	st.space.AddBody(cb)
	a := &area{
		tag:         physics.AreaTag(st.tag()),
		cb:          cb,
		belongTo:    desc.BelongTo,
		collideWith: desc.CollideWith,
	}
	st.areas[a.tag] = a
	return physics.NewHandle(a.tag, st.gc), nil
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

func (s *areaServer) SetShape(tag physics.AreaTag, shapeTag physics.ShapeTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	a := s.area(tag)
	if a == nil {
		return physics.ErrUnknownTag
	}
	if sh := st.shapes[a.shape]; sh != nil {
		delete(sh.areas, tag)
	}
	a.shape = shapeTag
	if sh := st.shapes[shapeTag]; sh != nil {
		sh.areas[tag] = struct{}{}
	}
	a.wearShape(st)
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
	a.cb.SetPosition(vec(t.Position))
	a.cb.SetAngle(t.Angle)
	a.cb.EachShape(func(sh *cp.Shape) { sh.CacheBB() })
	return nil
}

func (s *areaServer) Transform(tag physics.AreaTag) physics.Transform {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return physics.Transform{Position: unvec(a.cb.Position()), Angle: a.cb.Angle()}
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
	a.belongTo = groups
	for _, cs := range a.cpShapes {
		cs.SetFilter(a.filter())
	}
	return nil
}

func (s *areaServer) BelongTo(tag physics.AreaTag) []physics.CollisionGroup {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return a.belongTo
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
	a.collideWith = groups
	for _, cs := range a.cpShapes {
		cs.SetFilter(a.filter())
	}
	return nil
}

func (s *areaServer) CollideWith(tag physics.AreaTag) []physics.CollisionGroup {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return a.collideWith
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
	events := a.events
	a.events = nil
	return events
}
