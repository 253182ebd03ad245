package component

import "github.com/milk9111/physkit/physics"

// Transform is the engine-side pose of an entity. The sync systems copy it
// to the backend when it changes and back from the backend after stepping.
type Transform struct {
	Position physics.Vec2
	Angle    float64
}

// Pose returns the transform as a physics isometry.
func (t Transform) Pose() physics.Transform {
	return physics.Transform{Position: t.Position, Angle: t.Angle}
}

// FromPose builds a Transform from a physics isometry.
func FromPose(p physics.Transform) Transform {
	return Transform{Position: p.Position, Angle: p.Angle}
}

var TransformKind = NewKind[Transform]()
