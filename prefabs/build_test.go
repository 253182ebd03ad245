package prefabs

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
	"github.com/milk9111/physkit/physics/physicstest"
)

func parseScene(t *testing.T, src string) SceneSpec {
	t.Helper()
	var scene SceneSpec
	if err := yaml.Unmarshal([]byte(src), &scene); err != nil {
		t.Fatalf("unmarshal scene: %v", err)
	}
	return scene
}

func TestShapeSpecDesc(t *testing.T) {
	cases := []struct {
		name string
		spec ShapeSpec
		want physics.ShapeKind
		err  error
	}{
		{"circle", ShapeSpec{Kind: "circle", Radius: 1}, physics.ShapeCircle, nil},
		{"box", ShapeSpec{Kind: "box", HalfW: 1, HalfH: 2}, physics.ShapeBox, nil},
		{"capsule", ShapeSpec{Kind: "capsule", HalfHeight: 1, Radius: 0.5}, physics.ShapeCapsule, nil},
		{"plane", ShapeSpec{Kind: "plane"}, physics.ShapePlane, nil},
		{"unknown", ShapeSpec{Kind: "dodecahedron"}, 0, physics.ErrBadDesc},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			desc, err := c.spec.Desc()
			if !errors.Is(err, c.err) {
				t.Fatalf("err = %v, want %v", err, c.err)
			}
			if err == nil && desc.Kind != c.want {
				t.Fatalf("kind = %v, want %v", desc.Kind, c.want)
			}
		})
	}
}

func TestBodySpecDescDefaults(t *testing.T) {
	desc, err := BodySpec{}.Desc()
	if err != nil {
		t.Fatalf("Desc: %v", err)
	}
	if desc.Mode != physics.BodyModeDynamic || desc.Mass != 1 {
		t.Fatalf("defaults not kept: %+v", desc)
	}

	if _, err := (BodySpec{Mode: "liquid"}).Desc(); !errors.Is(err, physics.ErrBadDesc) {
		t.Fatalf("bad mode err = %v, want ErrBadDesc", err)
	}
}

func TestBuildScene(t *testing.T) {
	scene := parseScene(t, `
name: test
gravity: { x: 0, y: -5 }
shapes:
  ball: { kind: circle, radius: 0.5 }
entities:
  - name: ground
    body: { mode: static }
    shape: ball
    transform: { x: 0, y: 0 }
  - name: ball
    body: { mass: 2 }
    shape: ball
    transform: { x: 0, y: 4 }
  - name: sensor
    area: {}
    shape: ball
    parent: ball
    transform: { y: 1 }
joints:
  - kind: pin
    anchor: { x: 0, y: 4 }
    bodies: [ground, ball]
`)

	w := ecs.NewWorld()
	pw := physicstest.NewWorld()
	entities, err := Build(w, pw, scene)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(entities) != 3 {
		t.Fatalf("built %d entities, want 3", len(entities))
	}
	if g := pw.WorldServer().Gravity(); g.Y != -5 {
		t.Fatalf("gravity = %v, want -5", g.Y)
	}

	ball := entities["ball"]
	rb, ok := ecs.Get(w, ball, component.RigidBodyKind)
	if !ok {
		t.Fatalf("ball has no rigid body component")
	}
	if mode := pw.RigidBodyServer().Mode(rb.Handle.Tag()); mode != physics.BodyModeDynamic {
		t.Fatalf("ball mode = %v, want dynamic", mode)
	}
	if !ecs.Has(w, ball, component.ShapeKind) {
		t.Fatalf("ball has no shape component")
	}

	sensor := entities["sensor"]
	if !ecs.Has(w, sensor, component.AreaKind) || !ecs.Has(w, sensor, component.AttachmentKind) {
		t.Fatalf("sensor missing area or attachment component")
	}
	parent, ok := ecs.Get(w, sensor, ecs.ParentKind)
	if !ok || parent.Entity != ball {
		t.Fatalf("sensor parent = %+v, want %v", parent, ball)
	}

	if !ecs.Has(w, entities["ground"], component.JointKind) || !ecs.Has(w, ball, component.JointKind) {
		t.Fatalf("joint component missing on a constrained entity")
	}
}

func TestBuildSceneErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unknown_shape", `
entities:
  - name: a
    body: {}
    shape: ghost
`},
		{"unknown_parent", `
entities:
  - name: a
    body: {}
    parent: ghost
`},
		{"joint_unknown_entity", `
entities:
  - name: a
    body: {}
joints:
  - kind: pin
    bodies: [a, ghost]
`},
		{"joint_wrong_arity", `
entities:
  - name: a
    body: {}
joints:
  - kind: pin
    bodies: [a]
`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := ecs.NewWorld()
			pw := physicstest.NewWorld()
			if _, err := Build(w, pw, parseScene(t, c.src)); err == nil {
				t.Fatalf("Build succeeded, want error")
			}
		})
	}
}

func TestLoadEmbeddedScenes(t *testing.T) {
	for _, name := range []string{"stack.yaml", "pendulum.yaml"} {
		scene, err := LoadSceneSpec(name)
		if err != nil {
			t.Fatalf("LoadSceneSpec(%s): %v", name, err)
		}
		if len(scene.Entities) == 0 {
			t.Fatalf("scene %s has no entities", name)
		}

		w := ecs.NewWorld()
		pw := physicstest.NewWorld()
		if _, err := Build(w, pw, scene); err != nil {
			t.Fatalf("Build(%s): %v", name, err)
		}
	}
}
