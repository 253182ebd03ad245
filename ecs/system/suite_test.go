package system_test

import (
	"math"
	"testing"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/ecs/system"
	"github.com/milk9111/physkit/physics"
	"github.com/milk9111/physkit/physics/physicstest"
)

const frame = 1.0 / 60

func newBridgedWorld(t *testing.T, opts ...system.Option) (*ecs.World, *physics.World, *system.Suite) {
	t.Helper()
	w := ecs.NewWorld()
	pw := physicstest.NewWorld()
	w.AttachPhysics(pw)
	suite := system.Register(w, opts...)
	return w, pw, suite
}

func mustBody(t *testing.T, pw *physics.World, desc *physics.RigidBodyDesc) component.RigidBody {
	t.Helper()
	rb, err := component.NewRigidBody(pw, desc)
	if err != nil {
		t.Fatalf("NewRigidBody: %v", err)
	}
	return rb
}

func TestBodyEntityAssociation(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)

	e := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	if err := ecs.Add(w, e, component.RigidBodyKind, rb); err != nil {
		t.Fatalf("Add: %v", err)
	}

	w.Update(frame)

	if got := pw.RigidBodyServer().Entity(rb.Handle.Tag()); got != physics.EntityRef(e) {
		t.Fatalf("backend entity = %v, want %v", got, e)
	}
}

func TestBodyComponentRemovalDropsResource(t *testing.T) {
	cases := []struct {
		name    string
		viaKill bool
	}{
		{"remove_component", false},
		{"destroy_entity", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, pw, _ := newBridgedWorld(t)

			e := w.CreateEntity()
			rb := mustBody(t, pw, physics.NewRigidBodyDesc())
			ecs.Add(w, e, component.RigidBodyKind, rb)
			w.Update(frame)

			if physicstest.BodyCount(pw) != 1 {
				t.Fatalf("body count = %d, want 1", physicstest.BodyCount(pw))
			}

			if c.viaKill {
				w.DestroyEntity(e)
			} else {
				ecs.Remove(w, e, component.RigidBodyKind)
			}
			w.Update(frame)

			if physicstest.BodyCount(pw) != 0 {
				t.Fatalf("body count = %d after removal, want 0", physicstest.BodyCount(pw))
			}
		})
	}
}

func TestShapeAutoAssociation(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)

	e := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	sh, err := component.NewShape(pw, physics.CircleShape(0.5))
	if err != nil {
		t.Fatalf("NewShape: %v", err)
	}
	ecs.Add(w, e, component.RigidBodyKind, rb)
	ecs.Add(w, e, component.ShapeKind, sh)

	w.Update(frame)

	if got := pw.RigidBodyServer().Shape(rb.Handle.Tag()); got != sh.Handle.Tag() {
		t.Fatalf("body shape = %v, want %v", got, sh.Handle.Tag())
	}

	// Dropping the shape component strips the body.
	ecs.Remove(w, e, component.ShapeKind)
	w.Update(frame)
	if got := pw.RigidBodyServer().Shape(rb.Handle.Tag()); got != 0 {
		t.Fatalf("body shape after removal = %v, want 0", got)
	}
}

func TestTransformPushedToBackend(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)

	e := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	ecs.Add(w, e, component.RigidBodyKind, rb)
	ecs.Add(w, e, component.TransformKind, component.Transform{
		Position: physics.Vec2{X: 4, Y: 9},
		Angle:    1.5,
	})

	// Zero delta: sync runs, stepping does not, so the backend keeps the
	// exact pushed pose.
	w.Update(0)

	pose := pw.RigidBodyServer().Transform(rb.Handle.Tag())
	if pose.Position != (physics.Vec2{X: 4, Y: 9}) || pose.Angle != 1.5 {
		t.Fatalf("backend pose = %+v, want 4,9@1.5", pose)
	}
}

func TestTransformCopiedBackAfterStep(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)
	pw.WorldServer().SetGravity(physics.Vec2{})

	e := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	ecs.Add(w, e, component.RigidBodyKind, rb)
	ecs.Add(w, e, component.TransformKind, component.Transform{})
	pw.RigidBodyServer().SetLinearVelocity(rb.Handle.Tag(), physics.Vec2{X: 60})

	w.Update(frame) // pushes pose, steps once
	w.Update(0)     // copies the stepped pose back

	tf, ok := ecs.Get(w, e, component.TransformKind)
	if !ok {
		t.Fatalf("transform component missing")
	}
	if tf.Position.X <= 0 {
		t.Fatalf("transform X = %v, want > 0 after moving body", tf.Position.X)
	}
}

func TestBackendPoseDoesNotEchoAsUserEdit(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)

	e := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	ecs.Add(w, e, component.RigidBodyKind, rb)
	ecs.Add(w, e, component.TransformKind, component.Transform{})

	w.Update(frame)

	reader := w.EventReader()
	w.Update(frame)
	for _, ev := range reader.Read() {
		if ev.Component == component.TransformKind.ID() {
			t.Fatalf("sync wrote Transform through the event log: %+v", ev)
		}
	}
}

func TestJointAttachesBothBodies(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)

	e1 := w.CreateEntity()
	e2 := w.CreateEntity()
	rb1 := mustBody(t, pw, physics.NewRigidBodyDesc())
	rb2 := mustBody(t, pw, physics.NewRigidBodyDesc())
	joint, err := component.NewJoint(pw, physics.JointDesc{Kind: physics.JointPin}, physics.Transform{})
	if err != nil {
		t.Fatalf("NewJoint: %v", err)
	}

	ecs.Add(w, e1, component.RigidBodyKind, rb1)
	ecs.Add(w, e2, component.RigidBodyKind, rb2)
	ecs.Add(w, e1, component.JointKind, joint)
	ecs.Add(w, e2, component.JointKind, joint.Share())

	w.Update(frame)

	bodies := physicstest.JointBodies(pw, joint.Handle.Tag())
	if len(bodies) != 2 {
		t.Fatalf("joint has %d bodies %v, want 2", len(bodies), bodies)
	}

	// Removing one side detaches exactly that body.
	ecs.Remove(w, e1, component.JointKind)
	w.Update(frame)
	bodies = physicstest.JointBodies(pw, joint.Handle.Tag())
	if len(bodies) != 1 || bodies[0] != rb2.Handle.Tag() {
		t.Fatalf("joint bodies after detach = %v, want [%v]", bodies, rb2.Handle.Tag())
	}
}

func TestStepperFixedRate(t *testing.T) {
	cases := []struct {
		name      string
		deltas    []float64
		wantSteps int
	}{
		{"one_frame_one_step", []float64{frame}, 1},
		{"double_frame_two_steps", []float64{2 * frame}, 2},
		{"spike_clamped", []float64{10}, 8},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, pw, suite := newBridgedWorld(t)
			for _, d := range c.deltas {
				w.Update(d)
			}
			if got := physicstest.Steps(pw); got != c.wantSteps {
				t.Fatalf("backend stepped %d times, want %d", got, c.wantSteps)
			}
			if got := suite.Stepper.FrameSteps(); got != c.wantSteps {
				t.Fatalf("FrameSteps = %d, want %d", got, c.wantSteps)
			}
		})
	}
}

func TestSideBySideWorlds(t *testing.T) {
	w := ecs.NewWorld()
	pwA := physicstest.NewWorld()
	pwB := physicstest.NewWorld()
	w.AttachPhysics(pwA)
	w.AttachPhysics(pwB)
	system.Register(w)

	eA := w.CreateEntity()
	eB := w.CreateEntity()
	rbA := mustBody(t, pwA, physics.NewRigidBodyDesc())
	rbB := mustBody(t, pwB, physics.NewRigidBodyDesc())
	ecs.Add(w, eA, component.RigidBodyKind, rbA)
	ecs.Add(w, eB, component.RigidBodyKind, rbB)

	w.Update(frame)

	if got := pwA.RigidBodyServer().Entity(rbA.Handle.Tag()); got != physics.EntityRef(eA) {
		t.Fatalf("world A entity = %v, want %v", got, eA)
	}
	if got := pwB.RigidBodyServer().Entity(rbB.Handle.Tag()); got != physics.EntityRef(eB) {
		t.Fatalf("world B entity = %v, want %v", got, eB)
	}
	if physicstest.Steps(pwA) != 1 || physicstest.Steps(pwB) != 1 {
		t.Fatalf("both worlds should step once, got %d and %d", physicstest.Steps(pwA), physicstest.Steps(pwB))
	}

	// Removing A's body must not touch B.
	ecs.Remove(w, eA, component.RigidBodyKind)
	w.Update(frame)
	if physicstest.BodyCount(pwA) != 0 || physicstest.BodyCount(pwB) != 1 {
		t.Fatalf("body counts = %d,%d, want 0,1", physicstest.BodyCount(pwA), physicstest.BodyCount(pwB))
	}
}

func TestAttachedAreaFollowsParentBody(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)
	pw.WorldServer().SetGravity(physics.Vec2{})

	parent := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	ecs.Add(w, parent, component.RigidBodyKind, rb)
	ecs.Add(w, parent, component.TransformKind, component.Transform{})
	pw.RigidBodyServer().SetLinearVelocity(rb.Handle.Tag(), physics.Vec2{X: 60})

	child := w.CreateEntity()
	area, err := component.NewArea(pw, physics.NewAreaDesc())
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	ecs.Add(w, child, component.AreaKind, area)
	ecs.Add(w, child, component.TransformKind, component.Transform{Position: physics.Vec2{Y: 2}})
	ecs.Add(w, child, ecs.ParentKind, ecs.Parent{Entity: parent})
	ecs.Add(w, child, component.AttachmentKind, component.Attachment{})

	w.Update(frame)

	// The attachment resolves before each substep, so the area sits at
	// the pose the body entered the step with: origin plus the offset.
	areaPose := pw.AreaServer().Transform(area.Handle.Tag())
	if areaPose.Position != (physics.Vec2{Y: 2}) {
		t.Fatalf("area pose = %+v, want offset 0,2 from parent", areaPose.Position)
	}

	w.Update(frame)

	// Next frame the parent has moved; the area must follow.
	bodyPose := pw.RigidBodyServer().Transform(rb.Handle.Tag())
	areaPose = pw.AreaServer().Transform(area.Handle.Tag())
	if bodyPose.Position.X <= 0 {
		t.Fatalf("parent body did not move, pose = %+v", bodyPose.Position)
	}
	if areaPose.Position.X <= 0 || areaPose.Position.Y != 2 {
		t.Fatalf("area pose = %+v, want to trail parent at %+v with Y offset 2", areaPose.Position, bodyPose.Position)
	}
}

func TestTransformEditOverridesBackendPose(t *testing.T) {
	w, pw, _ := newBridgedWorld(t)
	pw.WorldServer().SetGravity(physics.Vec2{})

	e := w.CreateEntity()
	rb := mustBody(t, pw, physics.NewRigidBodyDesc())
	ecs.Add(w, e, component.RigidBodyKind, rb)
	ecs.Add(w, e, component.TransformKind, component.Transform{})
	pw.RigidBodyServer().SetLinearVelocity(rb.Handle.Tag(), physics.Vec2{X: 60})

	w.Update(frame)

	// Teleport after the body drifted. The edit must reach the backend,
	// not be clobbered by the copy-back of the drifted pose.
	ecs.Add(w, e, component.TransformKind, component.Transform{
		Position: physics.Vec2{X: -7, Y: 3},
	})
	pw.RigidBodyServer().SetLinearVelocity(rb.Handle.Tag(), physics.Vec2{})
	w.Update(0)

	pose := pw.RigidBodyServer().Transform(rb.Handle.Tag())
	if pose.Position != (physics.Vec2{X: -7, Y: 3}) {
		t.Fatalf("backend pose = %+v, want the edit -7,3", pose.Position)
	}
	tf, _ := ecs.Get(w, e, component.TransformKind)
	if tf.Position != (physics.Vec2{X: -7, Y: 3}) {
		t.Fatalf("component pose = %+v, want the edit -7,3", tf.Position)
	}
}

func TestParentCycleResolvesWithoutRecursing(t *testing.T) {
	t.Run("transform_push", func(t *testing.T) {
		w, pw, _ := newBridgedWorld(t)

		e1 := w.CreateEntity()
		e2 := w.CreateEntity()
		rb := mustBody(t, pw, physics.NewRigidBodyDesc())
		ecs.Add(w, e1, component.RigidBodyKind, rb)
		ecs.Add(w, e1, component.TransformKind, component.Transform{Position: physics.Vec2{X: 1}})
		ecs.Add(w, e1, ecs.ParentKind, ecs.Parent{Entity: e2})
		ecs.Add(w, e2, component.TransformKind, component.Transform{Position: physics.Vec2{X: 2}})
		ecs.Add(w, e2, ecs.ParentKind, ecs.Parent{Entity: e1})

		w.Update(0)

		// The chain is cut at the revisited entity, so the pose composes
		// each local transform once: 1 + 2 + 1.
		pose := pw.RigidBodyServer().Transform(rb.Handle.Tag())
		if pose.Position.X != 4 {
			t.Fatalf("backend pose X = %v, want 4", pose.Position.X)
		}
	})

	t.Run("attachment_pass", func(t *testing.T) {
		w, pw, _ := newBridgedWorld(t)
		pw.WorldServer().SetGravity(physics.Vec2{})

		e1 := w.CreateEntity()
		e2 := w.CreateEntity()
		area, err := component.NewArea(pw, physics.NewAreaDesc())
		if err != nil {
			t.Fatalf("NewArea: %v", err)
		}
		ecs.Add(w, e1, component.AreaKind, area)
		ecs.Add(w, e1, component.TransformKind, component.Transform{Position: physics.Vec2{Y: 1}})
		ecs.Add(w, e1, ecs.ParentKind, ecs.Parent{Entity: e2})
		ecs.Add(w, e1, component.AttachmentKind, component.Attachment{})
		ecs.Add(w, e2, component.TransformKind, component.Transform{})
		ecs.Add(w, e2, ecs.ParentKind, ecs.Parent{Entity: e1})
		ecs.Add(w, e2, component.AttachmentKind, component.Attachment{})

		w.Update(frame)

		// Resolution must terminate; the area ends up at a finite pose.
		pose := pw.AreaServer().Transform(area.Handle.Tag())
		if math.IsNaN(pose.Position.Y) {
			t.Fatalf("area pose = %+v", pose.Position)
		}
	})
}

func TestLateAttachedWorldGetsTimeStep(t *testing.T) {
	clock := physics.NewTime()
	clock.SetFramesPerSecond(30)

	w := ecs.NewWorld()
	first := physicstest.NewWorld()
	w.AttachPhysics(first)
	system.Register(w, system.WithTime(clock))

	w.Update(1.0 / 30)

	// A world attached after the first frame must still be told the
	// fixed step before it runs.
	late := physicstest.NewWorld()
	late.WorldServer().SetGravity(physics.Vec2{})
	w.AttachPhysics(late)
	bh, err := late.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	late.RigidBodyServer().SetLinearVelocity(bh.Tag(), physics.Vec2{X: 30})

	w.Update(1.0 / 30)

	pose := late.RigidBodyServer().Transform(bh.Tag())
	if math.Abs(pose.Position.X-1) > 1e-9 {
		t.Fatalf("body X = %v after one 1/30 step at 30 units/s, want 1", pose.Position.X)
	}
}
