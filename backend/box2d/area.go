package box2d

import (
	"github.com/ByteArena/box2d"

	"github.com/milk9111/physkit/physics"
)

// area is a kinematic body wearing sensor fixtures. Sensors never solve;
// they only feed the contact listener.
type area struct {
	tag    physics.AreaTag
	bb     *box2d.B2Body
	entity physics.EntityRef

	shape    physics.ShapeTag
	fixtures []*box2d.B2Fixture

	belongTo    []physics.CollisionGroup
	collideWith []physics.CollisionGroup

	events []physics.OverlapEvent
}

func (a *area) dropFixtures() {
	for _, f := range a.fixtures {
		a.bb.DestroyFixture(f)
	}
	a.fixtures = nil
}

func (a *area) wearShape(st *state) {
	a.dropFixtures()
	sh := st.shapes[a.shape]
	if sh == nil {
		return
	}
	owner := fixtureOwner{areaTag: a.tag}
	filter := groupFilter(a.belongTo, a.collideWith)
	for _, bs := range buildShapes(sh.desc) {
		fd := box2d.MakeB2FixtureDef()
		fd.Shape = bs
		fd.IsSensor = true
		fd.Filter = filter
		fd.UserData = owner
		a.fixtures = append(a.fixtures, a.bb.CreateFixtureFromDef(&fd))
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

	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_kinematicBody
	bb := st.world.CreateBody(&def)
	a := &area{
		tag:         physics.AreaTag(st.tag()),
		bb:          bb,
		belongTo:    desc.BelongTo,
		collideWith: desc.CollideWith,
	}
	bb.SetUserData(a.tag)
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
	a.bb.SetTransform(vec(t.Position), t.Angle)
	return nil
}

func (s *areaServer) Transform(tag physics.AreaTag) physics.Transform {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if a := s.area(tag); a != nil {
		return physics.Transform{Position: unvec(a.bb.GetPosition()), Angle: a.bb.GetAngle()}
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
	filter := groupFilter(a.belongTo, a.collideWith)
	for _, f := range a.fixtures {
		f.SetFilterData(filter)
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
	filter := groupFilter(a.belongTo, a.collideWith)
	for _, f := range a.fixtures {
		f.SetFilterData(filter)
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
