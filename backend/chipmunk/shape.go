package chipmunk

import (
	"log"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/physkit/physics"
)

// planeHalfSpan is how far the segment approximating an unbounded plane
// reaches on each side of its origin.
const planeHalfSpan = 1e4

type shape struct {
	desc   physics.ShapeDesc
	bodies map[physics.RigidBodyTag]struct{}
	areas  map[physics.AreaTag]struct{}
}

// buildShapes realizes a descriptor as Chipmunk shapes on the given body.
// Compound descriptors produce one shape per child; everything else one.
func buildShapes(cb *cp.Body, desc physics.ShapeDesc) []*cp.Shape {
	return appendShapes(nil, cb, desc, physics.Transform{})
}

func appendShapes(out []*cp.Shape, cb *cp.Body, desc physics.ShapeDesc, offset physics.Transform) []*cp.Shape {
	switch desc.Kind {
	case physics.ShapeCircle:
		return append(out, cp.NewCircle(cb, desc.Radius, vec(offset.Position)))
	case physics.ShapeBox:
		hx, hy := desc.HalfExtents.X, desc.HalfExtents.Y
		bb := cp.BB{
			L: offset.Position.X - hx,
			B: offset.Position.Y - hy,
			R: offset.Position.X + hx,
			T: offset.Position.Y + hy,
		}
		return append(out, cp.NewBox2(cb, bb, 0))
	case physics.ShapeSegment:
		a := offset.Apply(desc.A)
		b := offset.Apply(desc.B)
		return append(out, cp.NewSegment(cb, vec(a), vec(b), desc.Thickness))
	case physics.ShapeCapsule:
		a := offset.Apply(physics.Vec2{Y: -desc.HalfHeight})
		b := offset.Apply(physics.Vec2{Y: desc.HalfHeight})
		return append(out, cp.NewSegment(cb, vec(a), vec(b), desc.Radius))
	case physics.ShapeConvex:
		verts := make([]cp.Vector, len(desc.Points))
		for i, p := range desc.Points {
			verts[i] = vec(offset.Apply(p))
		}
		return append(out, cp.NewPolyShapeRaw(cb, len(verts), verts, 0))
	case physics.ShapePlane:
		a := offset.Apply(physics.Vec2{X: -planeHalfSpan})
		b := offset.Apply(physics.Vec2{X: planeHalfSpan})
		return append(out, cp.NewSegment(cb, vec(a), vec(b), 0))
	case physics.ShapeCompound:
		for _, child := range desc.Children {
			out = appendShapes(out, cb, child.Shape, offset.Mul(child.Offset))
		}
		return out
	}
	log.Printf("Chipmunk: unknown shape kind %v, ignored", desc.Kind)
	return out
}

// momentFor computes the rotational inertia of a descriptor at the given
// mass, for bodies that rotate freely.
func momentFor(mass float64, desc physics.ShapeDesc) float64 {
	switch desc.Kind {
	case physics.ShapeCircle:
		return cp.MomentForCircle(mass, 0, desc.Radius, cp.Vector{})
	case physics.ShapeBox:
		return cp.MomentForBox(mass, 2*desc.HalfExtents.X, 2*desc.HalfExtents.Y)
	case physics.ShapeSegment:
		return cp.MomentForSegment(mass, vec(desc.A), vec(desc.B), desc.Thickness)
	case physics.ShapeCapsule:
		a := cp.Vector{Y: -desc.HalfHeight}
		b := cp.Vector{Y: desc.HalfHeight}
		return cp.MomentForSegment(mass, a, b, desc.Radius)
	case physics.ShapeConvex:
		verts := make([]cp.Vector, len(desc.Points))
		for i, p := range desc.Points {
			verts[i] = vec(p)
		}
		return cp.MomentForPoly(mass, len(verts), verts, cp.Vector{}, 0)
	case physics.ShapeCompound:
		var moment float64
		if len(desc.Children) == 0 {
			return mass
		}
		share := mass / float64(len(desc.Children))
		for _, child := range desc.Children {
			moment += momentFor(share, child.Shape)
		}
		return moment
	}
	return mass
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
	// Refit everything wearing the shape.
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
