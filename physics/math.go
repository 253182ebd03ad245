package physics

import "math"

// Vec2 is a planar vector.
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the z component of the 3D cross product.
func (v Vec2) Cross(o Vec2) float64 {
	return v.X*o.Y - v.Y*o.X
}

func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Rotate rotates the vector by angle radians counter-clockwise.
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Transform is a planar isometry: a translation and a rotation.
// It is the pose exchanged between the engine and a physics backend.
type Transform struct {
	Position Vec2
	Angle    float64
}

// Mul composes two transforms, applying o in t's local space.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Position: t.Position.Add(o.Position.Rotate(t.Angle)),
		Angle:    t.Angle + o.Angle,
	}
}

// Apply maps a local point into world space.
func (t Transform) Apply(p Vec2) Vec2 {
	return t.Position.Add(p.Rotate(t.Angle))
}

// Inverse returns the transform mapping world space back to local space.
func (t Transform) Inverse() Transform {
	return Transform{
		Position: t.Position.Scale(-1).Rotate(-t.Angle),
		Angle:    -t.Angle,
	}
}
