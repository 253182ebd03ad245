package box2d_test

import (
	"errors"
	"testing"

	"github.com/milk9111/physkit/backend/box2d"
	"github.com/milk9111/physkit/physics"
)

func step(w *physics.World, n int) {
	for i := 0; i < n; i++ {
		w.WorldServer().Step()
	}
}

func TestOpenByName(t *testing.T) {
	w, err := physics.Open(box2d.BackendName)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.Backend() != box2d.BackendName {
		t.Fatalf("backend = %q, want %q", w.Backend(), box2d.BackendName)
	}
}

func TestBodyFallsUnderGravity(t *testing.T) {
	w := box2d.NewWorld()

	bh, err := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	sh, err := w.ShapeServer().CreateShape(physics.CircleShape(0.5))
	if err != nil {
		t.Fatalf("CreateShape: %v", err)
	}
	w.RigidBodyServer().SetShape(bh.Tag(), sh.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{Y: 10}})

	step(w, 60)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.Y >= 10 {
		t.Fatalf("body did not fall, Y = %v", pose.Position.Y)
	}
}

func TestKinematicBodyIgnoresGravity(t *testing.T) {
	w := box2d.NewWorld()

	desc := physics.NewRigidBodyDesc()
	desc.Mode = physics.BodyModeKinematic
	bh, _ := w.RigidBodyServer().CreateBody(desc)
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{Y: 5}})
	w.RigidBodyServer().SetLinearVelocity(bh.Tag(), physics.Vec2{X: 1})

	step(w, 60)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.Y != 5 {
		t.Fatalf("kinematic body fell to Y = %v", pose.Position.Y)
	}
	if pose.Position.X <= 0 {
		t.Fatalf("kinematic body ignored its velocity, X = %v", pose.Position.X)
	}
}

func TestBodyRestsOnGround(t *testing.T) {
	w := box2d.NewWorld()

	ground := physics.NewRigidBodyDesc()
	ground.Mode = physics.BodyModeStatic
	gh, _ := w.RigidBodyServer().CreateBody(ground)
	gs, _ := w.ShapeServer().CreateShape(physics.PlaneShape())
	w.RigidBodyServer().SetShape(gh.Tag(), gs.Tag())

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	bs, _ := w.ShapeServer().CreateShape(physics.BoxShape(physics.Vec2{X: 0.5, Y: 0.5}))
	w.RigidBodyServer().SetShape(bh.Tag(), bs.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{Y: 3}})

	step(w, 300)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.Y < 0 || pose.Position.Y > 1 {
		t.Fatalf("body should rest on the plane, Y = %v", pose.Position.Y)
	}
}

func TestAreaReportsOverlap(t *testing.T) {
	w := box2d.NewWorld()
	w.WorldServer().SetGravity(physics.Vec2{})

	ah, err := w.AreaServer().CreateArea(physics.NewAreaDesc())
	if err != nil {
		t.Fatalf("CreateArea: %v", err)
	}
	as, _ := w.ShapeServer().CreateShape(physics.BoxShape(physics.Vec2{X: 1, Y: 1}))
	w.AreaServer().SetShape(ah.Tag(), as.Tag())

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	bs, _ := w.ShapeServer().CreateShape(physics.CircleShape(0.25))
	w.RigidBodyServer().SetShape(bh.Tag(), bs.Tag())
	w.RigidBodyServer().SetEntity(bh.Tag(), 42)
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{X: -5}})
	w.RigidBodyServer().SetLinearVelocity(bh.Tag(), physics.Vec2{X: 5})

	var enters, exits int
	for i := 0; i < 240; i++ {
		w.WorldServer().Step()
		for _, ev := range w.AreaServer().OverlapEvents(ah.Tag()) {
			switch ev.Kind {
			case physics.OverlapEnter:
				enters++
				if ev.Body != bh.Tag() || ev.Entity != 42 {
					t.Fatalf("enter event = %+v, want body %v entity 42", ev, bh.Tag())
				}
			case physics.OverlapExit:
				exits++
			}
		}
	}

	if enters != 1 || exits != 1 {
		t.Fatalf("enters = %d exits = %d, want 1 and 1", enters, exits)
	}
}

func TestReleasedResourcesDestroyed(t *testing.T) {
	w := box2d.NewWorld()

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	tag := bh.Tag()
	bh.Release()
	step(w, 1)

	if err := w.RigidBodyServer().SetTransform(tag, physics.Transform{}); !errors.Is(err, physics.ErrUnknownTag) {
		t.Fatalf("server call on destroyed body = %v, want ErrUnknownTag", err)
	}
}

func TestSpringJointSettlesAtRestLength(t *testing.T) {
	w := box2d.NewWorld()
	w.WorldServer().SetGravity(physics.Vec2{})

	anchorDesc := physics.NewRigidBodyDesc()
	anchorDesc.Mode = physics.BodyModeStatic
	ah, _ := w.RigidBodyServer().CreateBody(anchorDesc)

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	bs, _ := w.ShapeServer().CreateShape(physics.CircleShape(0.25))
	w.RigidBodyServer().SetShape(bh.Tag(), bs.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{X: 4}})

	jh, err := w.JointServer().CreateJoint(physics.JointDesc{
		Kind:      physics.JointSpring,
		RestLen:   2,
		Stiffness: 4,
		Damping:   0.9,
	}, physics.Transform{})
	if err != nil {
		t.Fatalf("CreateJoint: %v", err)
	}
	w.JointServer().AttachBody(jh.Tag(), ah.Tag())
	w.JointServer().AttachBody(jh.Tag(), bh.Tag())

	step(w, 600)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.X < 1 || pose.Position.X > 3 {
		t.Fatalf("spring settled at X = %v, want near rest length 2", pose.Position.X)
	}
}

func TestJointRejectsThirdBody(t *testing.T) {
	w := box2d.NewWorld()

	h1, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	h2, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	h3, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())

	jh, _ := w.JointServer().CreateJoint(physics.JointDesc{Kind: physics.JointFixed}, physics.Transform{})
	w.JointServer().AttachBody(jh.Tag(), h1.Tag())
	w.JointServer().AttachBody(jh.Tag(), h2.Tag())
	if err := w.JointServer().AttachBody(jh.Tag(), h3.Tag()); !errors.Is(err, physics.ErrJointFull) {
		t.Fatalf("third attach = %v, want ErrJointFull", err)
	}
}

func TestUpdateShapeRefitsAllWearers(t *testing.T) {
	w := box2d.NewWorld()

	ground := physics.NewRigidBodyDesc()
	ground.Mode = physics.BodyModeStatic
	gh, _ := w.RigidBodyServer().CreateBody(ground)
	gs, _ := w.ShapeServer().CreateShape(physics.PlaneShape())
	w.RigidBodyServer().SetShape(gh.Tag(), gs.Tag())

	shared, err := w.ShapeServer().CreateShape(physics.CircleShape(0.25))
	if err != nil {
		t.Fatalf("CreateShape: %v", err)
	}

	var bodies []physics.RigidBodyTag
	for _, x := range []float64{-2, 2} {
		bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
		w.RigidBodyServer().SetShape(bh.Tag(), shared.Tag())
		w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{X: x, Y: 3}})
		bodies = append(bodies, bh.Tag())
	}

	step(w, 300)
	for _, bt := range bodies {
		if y := w.RigidBodyServer().Transform(bt).Position.Y; y > 0.6 {
			t.Fatalf("small circle rests at Y = %v, want near 0.25", y)
		}
	}

	// Growing the shared shape must push every wearer up.
	if err := w.ShapeServer().UpdateShape(shared.Tag(), physics.CircleShape(1)); err != nil {
		t.Fatalf("UpdateShape: %v", err)
	}
	step(w, 300)

	for _, bt := range bodies {
		if y := w.RigidBodyServer().Transform(bt).Position.Y; y < 0.75 {
			t.Fatalf("grown circle rests at Y = %v, want near 1", y)
		}
	}
}
