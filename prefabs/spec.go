// Package prefabs loads declarative scene specs and instantiates them
// into a world. Specs are YAML files resolved from disk first and the
// embedded copies second, so edits take effect without a rebuild.
package prefabs

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/physkit/physics"
)

// SceneSpec is a whole scene: named shapes, entities wearing them, and
// joints tying entities together.
type SceneSpec struct {
	Name     string               `yaml:"name"`
	Gravity  *Vec2Spec            `yaml:"gravity"`
	Shapes   map[string]ShapeSpec `yaml:"shapes"`
	Entities []EntitySpec         `yaml:"entities"`
	Joints   []JointSpec          `yaml:"joints"`
}

func LoadSceneSpec(filename string) (SceneSpec, error) {
	return LoadSpec[SceneSpec](filename)
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

type Vec2Spec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (v Vec2Spec) Vec() physics.Vec2 {
	return physics.Vec2{X: v.X, Y: v.Y}
}

type TransformSpec struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Angle float64 `yaml:"angle"`
}

func (t TransformSpec) Pose() physics.Transform {
	return physics.Transform{Position: physics.Vec2{X: t.X, Y: t.Y}, Angle: t.Angle}
}

// EntitySpec describes one entity. Body and Area are each optional;
// Shape names an entry of the scene's shape table.
type EntitySpec struct {
	Name      string         `yaml:"name"`
	Body      *BodySpec      `yaml:"body"`
	Area      *AreaSpec      `yaml:"area"`
	Shape     string         `yaml:"shape"`
	Transform *TransformSpec `yaml:"transform"`
	// Parent attaches the entity to the named entity; Transform becomes
	// the local offset.
	Parent string `yaml:"parent"`
	Script string `yaml:"script"`
}

type BodySpec struct {
	Mode         string  `yaml:"mode"`
	Mass         float64 `yaml:"mass"`
	Friction     float64 `yaml:"friction"`
	Bounciness   float64 `yaml:"bounciness"`
	LockRotation bool    `yaml:"lock_rotation"`
	BelongTo     []int   `yaml:"belong_to"`
	CollideWith  []int   `yaml:"collide_with"`
}

// Desc converts the spec into a body descriptor, starting from the
// defaults so omitted fields keep them.
func (s BodySpec) Desc() (*physics.RigidBodyDesc, error) {
	desc := physics.NewRigidBodyDesc()
	switch s.Mode {
	case "", "dynamic":
		desc.Mode = physics.BodyModeDynamic
	case "static":
		desc.Mode = physics.BodyModeStatic
	case "kinematic":
		desc.Mode = physics.BodyModeKinematic
	case "disabled":
		desc.Mode = physics.BodyModeDisabled
	default:
		return nil, fmt.Errorf("prefabs: unknown body mode %q: %w", s.Mode, physics.ErrBadDesc)
	}
	if s.Mass > 0 {
		desc.Mass = s.Mass
	}
	if s.Friction > 0 {
		desc.Friction = s.Friction
	}
	desc.Bounciness = s.Bounciness
	desc.LockRotation = s.LockRotation
	if groups := collisionGroups(s.BelongTo); groups != nil {
		desc.BelongTo = groups
	}
	if groups := collisionGroups(s.CollideWith); groups != nil {
		desc.CollideWith = groups
	}
	return desc, nil
}

type AreaSpec struct {
	BelongTo    []int `yaml:"belong_to"`
	CollideWith []int `yaml:"collide_with"`
}

func (s AreaSpec) Desc() *physics.AreaDesc {
	desc := physics.NewAreaDesc()
	if groups := collisionGroups(s.BelongTo); groups != nil {
		desc.BelongTo = groups
	}
	if groups := collisionGroups(s.CollideWith); groups != nil {
		desc.CollideWith = groups
	}
	return desc
}

func collisionGroups(raw []int) []physics.CollisionGroup {
	if len(raw) == 0 {
		return nil
	}
	groups := make([]physics.CollisionGroup, 0, len(raw))
	for _, g := range raw {
		if g >= 1 && g <= 32 {
			groups = append(groups, physics.CollisionGroup(g))
		}
	}
	return groups
}

type ShapeSpec struct {
	Kind string `yaml:"kind"`

	Radius     float64    `yaml:"radius"`
	HalfW      float64    `yaml:"half_w"`
	HalfH      float64    `yaml:"half_h"`
	A          Vec2Spec   `yaml:"a"`
	B          Vec2Spec   `yaml:"b"`
	Thickness  float64    `yaml:"thickness"`
	HalfHeight float64    `yaml:"half_height"`
	Points     []Vec2Spec `yaml:"points"`

	Children []ChildShapeSpec `yaml:"children"`
}

type ChildShapeSpec struct {
	Offset TransformSpec `yaml:"offset"`
	Shape  ShapeSpec     `yaml:"shape"`
}

// Desc converts the spec into a shape descriptor.
func (s ShapeSpec) Desc() (physics.ShapeDesc, error) {
	switch s.Kind {
	case "circle":
		return physics.CircleShape(s.Radius), nil
	case "box":
		return physics.BoxShape(physics.Vec2{X: s.HalfW, Y: s.HalfH}), nil
	case "segment":
		return physics.SegmentShape(s.A.Vec(), s.B.Vec(), s.Thickness), nil
	case "capsule":
		return physics.CapsuleShape(s.HalfHeight, s.Radius), nil
	case "convex":
		points := make([]physics.Vec2, len(s.Points))
		for i, p := range s.Points {
			points[i] = p.Vec()
		}
		return physics.ConvexShape(points), nil
	case "plane":
		return physics.PlaneShape(), nil
	case "compound":
		children := make([]physics.CompoundChild, 0, len(s.Children))
		for _, child := range s.Children {
			desc, err := child.Shape.Desc()
			if err != nil {
				return physics.ShapeDesc{}, err
			}
			children = append(children, physics.CompoundChild{
				Offset: child.Offset.Pose(),
				Shape:  desc,
			})
		}
		return physics.CompoundShape(children...), nil
	}
	return physics.ShapeDesc{}, fmt.Errorf("prefabs: unknown shape kind %q: %w", s.Kind, physics.ErrBadDesc)
}

type JointSpec struct {
	Kind      string        `yaml:"kind"`
	Anchor    TransformSpec `yaml:"anchor"`
	RestLen   float64       `yaml:"rest_len"`
	Stiffness float64       `yaml:"stiffness"`
	Damping   float64       `yaml:"damping"`
	// Bodies names the two entities the joint ties together.
	Bodies []string `yaml:"bodies"`
}

func (s JointSpec) Desc() (physics.JointDesc, error) {
	desc := physics.JointDesc{
		RestLen:   s.RestLen,
		Stiffness: s.Stiffness,
		Damping:   s.Damping,
	}
	switch s.Kind {
	case "", "fixed":
		desc.Kind = physics.JointFixed
	case "pin":
		desc.Kind = physics.JointPin
	case "spring":
		desc.Kind = physics.JointSpring
	default:
		return desc, fmt.Errorf("prefabs: unknown joint kind %q: %w", s.Kind, physics.ErrBadDesc)
	}
	return desc, nil
}
