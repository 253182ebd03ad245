package physics

// BodyMode controls how a backend simulates a rigid body.
type BodyMode int

const (
	// BodyModeDynamic bodies move under forces and collisions. Default.
	BodyModeDynamic BodyMode = iota
	// BodyModeStatic bodies never move.
	BodyModeStatic
	// BodyModeKinematic bodies move only through user-set velocity and are
	// unaffected by forces and constraints.
	BodyModeKinematic
	// BodyModeDisabled bodies are ignored by the backend entirely.
	BodyModeDisabled
)

func (m BodyMode) String() string {
	switch m {
	case BodyModeDynamic:
		return "dynamic"
	case BodyModeStatic:
		return "static"
	case BodyModeKinematic:
		return "kinematic"
	case BodyModeDisabled:
		return "disabled"
	}
	return "unknown"
}

// CollisionGroup is a broad-phase filtering group in the range 1..32.
type CollisionGroup uint8

// DefaultCollisionGroup is the group every resource belongs to unless told
// otherwise.
const DefaultCollisionGroup CollisionGroup = 1

// GroupMask folds a group list into a 32-bit mask for backends that filter
// with category/mask bits.
func GroupMask(groups []CollisionGroup) uint32 {
	var mask uint32
	for _, g := range groups {
		if g >= 1 && g <= 32 {
			mask |= 1 << (g - 1)
		}
	}
	if mask == 0 {
		mask = 1 << (DefaultCollisionGroup - 1)
	}
	return mask
}

// RigidBodyDesc carries everything a backend needs to create a body.
type RigidBodyDesc struct {
	Mode       BodyMode
	Mass       float64
	Friction   float64
	Bounciness float64
	// LockRotation pins the body angle, the common setup for characters.
	LockRotation bool
	BelongTo     []CollisionGroup
	CollideWith  []CollisionGroup
}

// NewRigidBodyDesc returns a dynamic unit-mass descriptor in the default
// collision group.
func NewRigidBodyDesc() *RigidBodyDesc {
	return &RigidBodyDesc{
		Mode:        BodyModeDynamic,
		Mass:        1,
		Friction:    0.5,
		BelongTo:    []CollisionGroup{DefaultCollisionGroup},
		CollideWith: []CollisionGroup{DefaultCollisionGroup},
	}
}

// AreaDesc describes an overlap-detection volume.
type AreaDesc struct {
	BelongTo    []CollisionGroup
	CollideWith []CollisionGroup
}

// NewAreaDesc returns an area descriptor in the default collision group.
func NewAreaDesc() *AreaDesc {
	return &AreaDesc{
		BelongTo:    []CollisionGroup{DefaultCollisionGroup},
		CollideWith: []CollisionGroup{DefaultCollisionGroup},
	}
}

// ShapeKind discriminates ShapeDesc variants.
type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapeBox
	ShapeSegment
	ShapeCapsule
	ShapeConvex
	ShapePlane
	ShapeCompound
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeBox:
		return "box"
	case ShapeSegment:
		return "segment"
	case ShapeCapsule:
		return "capsule"
	case ShapeConvex:
		return "convex"
	case ShapePlane:
		return "plane"
	case ShapeCompound:
		return "compound"
	}
	return "unknown"
}

// ShapeDesc describes a collision shape. Only the fields for Kind are read.
type ShapeDesc struct {
	Kind ShapeKind

	// Circle, Capsule.
	Radius float64
	// Box: half extents.
	HalfExtents Vec2
	// Segment endpoints; Thickness pads the segment.
	A, B      Vec2
	Thickness float64
	// Capsule half height (distance from center to each cap center).
	HalfHeight float64
	// Convex: counter-clockwise hull points.
	Points []Vec2
	// Compound: child shapes with local offsets.
	Children []CompoundChild
}

// CompoundChild is one piece of a compound shape.
type CompoundChild struct {
	Offset Transform
	Shape  ShapeDesc
}

// CircleShape is a circle of the given radius.
func CircleShape(radius float64) ShapeDesc {
	return ShapeDesc{Kind: ShapeCircle, Radius: radius}
}

// BoxShape is a box with the given half extents.
func BoxShape(halfExtents Vec2) ShapeDesc {
	return ShapeDesc{Kind: ShapeBox, HalfExtents: halfExtents}
}

// SegmentShape is a line segment from a to b padded by thickness.
func SegmentShape(a, b Vec2, thickness float64) ShapeDesc {
	return ShapeDesc{Kind: ShapeSegment, A: a, B: b, Thickness: thickness}
}

// CapsuleShape is a vertical capsule.
func CapsuleShape(halfHeight, radius float64) ShapeDesc {
	return ShapeDesc{Kind: ShapeCapsule, HalfHeight: halfHeight, Radius: radius}
}

// ConvexShape is a convex hull over the given points.
func ConvexShape(points []Vec2) ShapeDesc {
	return ShapeDesc{Kind: ShapeConvex, Points: points}
}

// PlaneShape is an unbounded ground with +Y normal, usually a world margin.
// Backends without infinite planes approximate it with a long segment.
func PlaneShape() ShapeDesc {
	return ShapeDesc{Kind: ShapePlane}
}

// CompoundShape glues child shapes together at local offsets.
func CompoundShape(children ...CompoundChild) ShapeDesc {
	return ShapeDesc{Kind: ShapeCompound, Children: children}
}

// JointKind discriminates JointDesc variants.
type JointKind int

const (
	// JointFixed welds two bodies at the anchor pose.
	JointFixed JointKind = iota
	// JointPin keeps two bodies at a fixed distance from the anchor.
	JointPin
	// JointSpring connects two bodies with a damped spring.
	JointSpring
)

func (k JointKind) String() string {
	switch k {
	case JointFixed:
		return "fixed"
	case JointPin:
		return "pin"
	case JointSpring:
		return "spring"
	}
	return "unknown"
}

// JointDesc describes a two-body constraint. The spring fields are read
// only for JointSpring.
type JointDesc struct {
	Kind      JointKind
	RestLen   float64
	Stiffness float64
	Damping   float64
}
