package box2d

import (
	"log"
	"math"

	"github.com/ByteArena/box2d"

	"github.com/milk9111/physkit/physics"
)

// planeHalfSpan is how far the edge approximating an unbounded plane
// reaches on each side of its origin.
const planeHalfSpan = 1e4

type shape struct {
	desc   physics.ShapeDesc
	bodies map[physics.RigidBodyTag]struct{}
	areas  map[physics.AreaTag]struct{}
}

// buildShapes realizes a descriptor as Box2D shapes. Compound descriptors
// and capsules produce several; everything else one.
func buildShapes(desc physics.ShapeDesc) []box2d.B2ShapeInterface {
	return appendShapes(nil, desc, physics.Transform{})
}

func appendShapes(out []box2d.B2ShapeInterface, desc physics.ShapeDesc, offset physics.Transform) []box2d.B2ShapeInterface {
	switch desc.Kind {
	case physics.ShapeCircle:
		circle := box2d.MakeB2CircleShape()
		circle.M_radius = desc.Radius
		circle.M_p = vec(offset.Position)
		return append(out, &circle)
	case physics.ShapeBox:
		poly := box2d.MakeB2PolygonShape()
		poly.SetAsBoxFromCenterAndAngle(desc.HalfExtents.X, desc.HalfExtents.Y, vec(offset.Position), offset.Angle)
		return append(out, &poly)
	case physics.ShapeSegment:
		edge := box2d.MakeB2EdgeShape()
		edge.Set(vec(offset.Apply(desc.A)), vec(offset.Apply(desc.B)))
		return append(out, &edge)
	case physics.ShapeCapsule:
		// Box2D has no capsule; a box with circle caps is close enough.
		box := box2d.MakeB2PolygonShape()
		box.SetAsBoxFromCenterAndAngle(desc.Radius, desc.HalfHeight, vec(offset.Position), offset.Angle)
		top := box2d.MakeB2CircleShape()
		top.M_radius = desc.Radius
		top.M_p = vec(offset.Apply(physics.Vec2{Y: desc.HalfHeight}))
		bottom := box2d.MakeB2CircleShape()
		bottom.M_radius = desc.Radius
		bottom.M_p = vec(offset.Apply(physics.Vec2{Y: -desc.HalfHeight}))
		return append(out, &box, &top, &bottom)
	case physics.ShapeConvex:
		verts := make([]box2d.B2Vec2, len(desc.Points))
		for i, p := range desc.Points {
			verts[i] = vec(offset.Apply(p))
		}
		poly := box2d.MakeB2PolygonShape()
		poly.Set(verts, len(verts))
		return append(out, &poly)
	case physics.ShapePlane:
		edge := box2d.MakeB2EdgeShape()
		edge.Set(vec(offset.Apply(physics.Vec2{X: -planeHalfSpan})), vec(offset.Apply(physics.Vec2{X: planeHalfSpan})))
		return append(out, &edge)
	case physics.ShapeCompound:
		for _, child := range desc.Children {
			out = appendShapes(out, child.Shape, offset.Mul(child.Offset))
		}
		return out
	}
	log.Printf("Box2D: unknown shape kind %v, ignored", desc.Kind)
	return out
}

// fixtureDensity converts the descriptor mass into a density so Box2D's
// computed mass lands on the requested one.
func fixtureDensity(mass float64, desc physics.ShapeDesc) float64 {
	area := shapeArea(desc)
	if area <= 0 {
		return mass
	}
	return mass / area
}

func shapeArea(desc physics.ShapeDesc) float64 {
	switch desc.Kind {
	case physics.ShapeCircle:
		return math.Pi * desc.Radius * desc.Radius
	case physics.ShapeBox:
		return 4 * desc.HalfExtents.X * desc.HalfExtents.Y
	case physics.ShapeCapsule:
		return 4*desc.Radius*desc.HalfHeight + math.Pi*desc.Radius*desc.Radius
	case physics.ShapeConvex:
		// Shoelace over the hull.
		var area float64
		n := len(desc.Points)
		for i := 0; i < n; i++ {
			a, b := desc.Points[i], desc.Points[(i+1)%n]
			area += a.X*b.Y - b.X*a.Y
		}
		return math.Abs(area) / 2
	case physics.ShapeCompound:
		var area float64
		for _, child := range desc.Children {
			area += shapeArea(child.Shape)
		}
		return area
	}
	return 0
}

func validateShape(desc physics.ShapeDesc) error {
	switch desc.Kind {
	case physics.ShapeConvex:
		if len(desc.Points) < 3 {
			return physics.ErrBadDesc
		}
	case physics.ShapeCompound:
		for _, child := range desc.Children {
			if err := validateShape(child.Shape); err != nil {
				return err
			}
		}
	}
	return nil
}

type shapeServer state

func (s *shapeServer) CreateShape(desc physics.ShapeDesc) (*physics.ShapeHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := validateShape(desc); err != nil {
		return nil, err
	}
	tag := physics.ShapeTag(st.tag())
	st.shapes[tag] = &shape{
		desc:   desc,
		bodies: map[physics.RigidBodyTag]struct{}{},
		areas:  map[physics.AreaTag]struct{}{},
	}
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
	if err := validateShape(desc); err != nil {
		return err
	}
	sh.desc = desc
	for bt := range sh.bodies {
		if b := st.bodies[bt]; b != nil {
			b.wearShape(st)
		}
	}
	for at := range sh.areas {
		if a := st.areas[at]; a != nil {
			a.wearShape(st)
		}
	}
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
