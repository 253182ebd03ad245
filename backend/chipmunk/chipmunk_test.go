package chipmunk_test

import (
	"errors"
	"math"
	"testing"

	"github.com/milk9111/physkit/backend/chipmunk"
	"github.com/milk9111/physkit/physics"
)

func step(w *physics.World, n int) {
	for i := 0; i < n; i++ {
		w.WorldServer().Step()
	}
}

func TestOpenByName(t *testing.T) {
	w, err := physics.Open(chipmunk.BackendName)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.Backend() != chipmunk.BackendName {
		t.Fatalf("backend = %q, want %q", w.Backend(), chipmunk.BackendName)
	}
}

func TestBodyFallsUnderGravity(t *testing.T) {
	w := chipmunk.NewWorld()

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
	if v := w.RigidBodyServer().LinearVelocity(bh.Tag()); v.Y >= 0 {
		t.Fatalf("body velocity Y = %v, want negative", v.Y)
	}
}

func TestStaticBodyStaysPut(t *testing.T) {
	w := chipmunk.NewWorld()

	desc := physics.NewRigidBodyDesc()
	desc.Mode = physics.BodyModeStatic
	bh, err := w.RigidBodyServer().CreateBody(desc)
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	sh, _ := w.ShapeServer().CreateShape(physics.BoxShape(physics.Vec2{X: 1, Y: 1}))
	w.RigidBodyServer().SetShape(bh.Tag(), sh.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{Y: 5}})

	step(w, 30)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.Y != 5 {
		t.Fatalf("static body moved to Y = %v", pose.Position.Y)
	}
}

func TestBodyRestsOnGround(t *testing.T) {
	w := chipmunk.NewWorld()

	ground := physics.NewRigidBodyDesc()
	ground.Mode = physics.BodyModeStatic
	gh, _ := w.RigidBodyServer().CreateBody(ground)
	gs, _ := w.ShapeServer().CreateShape(physics.PlaneShape())
	w.RigidBodyServer().SetShape(gh.Tag(), gs.Tag())

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	bs, _ := w.ShapeServer().CreateShape(physics.CircleShape(0.5))
	w.RigidBodyServer().SetShape(bh.Tag(), bs.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{Y: 3}})

	step(w, 300)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.Y < 0 || pose.Position.Y > 1 {
		t.Fatalf("body should rest on the plane, Y = %v", pose.Position.Y)
	}
}

func TestAreaReportsOverlap(t *testing.T) {
	w := chipmunk.NewWorld()
	w.WorldServer().SetGravity(physics.Vec2{})

	ah, err := w.AreaServer().CreateArea(physics.NewAreaDesc())
	if err != nil {
		t.Fatalf("CreateArea: %v", err)
	}
	as, _ := w.ShapeServer().CreateShape(physics.BoxShape(physics.Vec2{X: 1, Y: 1}))
	w.AreaServer().SetShape(ah.Tag(), as.Tag())
	w.AreaServer().SetEntity(ah.Tag(), 7)

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
	w := chipmunk.NewWorld()

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	tag := bh.Tag()
	bh.Release()
	step(w, 1)

	if err := w.RigidBodyServer().SetTransform(tag, physics.Transform{}); !errors.Is(err, physics.ErrUnknownTag) {
		t.Fatalf("server call on destroyed body = %v, want ErrUnknownTag", err)
	}
}

func TestConvexShapeNeedsThreePoints(t *testing.T) {
	w := chipmunk.NewWorld()
	_, err := w.ShapeServer().CreateShape(physics.ConvexShape([]physics.Vec2{{X: 1}, {Y: 1}}))
	if !errors.Is(err, physics.ErrBadDesc) {
		t.Fatalf("CreateShape = %v, want ErrBadDesc", err)
	}
}

func TestPinJointTethersBodies(t *testing.T) {
	w := chipmunk.NewWorld()
	w.WorldServer().SetGravity(physics.Vec2{})

	anchorDesc := physics.NewRigidBodyDesc()
	anchorDesc.Mode = physics.BodyModeStatic
	ah, _ := w.RigidBodyServer().CreateBody(anchorDesc)

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	bs, _ := w.ShapeServer().CreateShape(physics.CircleShape(0.25))
	w.RigidBodyServer().SetShape(bh.Tag(), bs.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{X: 2}})

	jh, err := w.JointServer().CreateJoint(physics.JointDesc{Kind: physics.JointPin}, physics.Transform{})
	if err != nil {
		t.Fatalf("CreateJoint: %v", err)
	}
	if err := w.JointServer().AttachBody(jh.Tag(), ah.Tag()); err != nil {
		t.Fatalf("AttachBody anchor: %v", err)
	}
	if err := w.JointServer().AttachBody(jh.Tag(), bh.Tag()); err != nil {
		t.Fatalf("AttachBody swinger: %v", err)
	}

	w.RigidBodyServer().SetLinearVelocity(bh.Tag(), physics.Vec2{X: 10})
	step(w, 300)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	dist := math.Hypot(pose.Position.X, pose.Position.Y)
	if dist > 4 {
		t.Fatalf("pinned body escaped to distance %v", dist)
	}
}

func TestJointRejectsThirdBody(t *testing.T) {
	w := chipmunk.NewWorld()

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
	w := chipmunk.NewWorld()

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

func TestStaticBodyTeleportMovesCollision(t *testing.T) {
	w := chipmunk.NewWorld()

	platform := physics.NewRigidBodyDesc()
	platform.Mode = physics.BodyModeStatic
	ph, _ := w.RigidBodyServer().CreateBody(platform)
	ps, _ := w.ShapeServer().CreateShape(physics.BoxShape(physics.Vec2{X: 5, Y: 0.5}))
	w.RigidBodyServer().SetShape(ph.Tag(), ps.Tag())
	w.RigidBodyServer().SetTransform(ph.Tag(), physics.Transform{Position: physics.Vec2{Y: -100}})

	// Teleport up under the ball. The ball must land on the refit
	// platform, not fall through the stale bounds.
	w.RigidBodyServer().SetTransform(ph.Tag(), physics.Transform{})

	bh, _ := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	bs, _ := w.ShapeServer().CreateShape(physics.CircleShape(0.5))
	w.RigidBodyServer().SetShape(bh.Tag(), bs.Tag())
	w.RigidBodyServer().SetTransform(bh.Tag(), physics.Transform{Position: physics.Vec2{Y: 3}})

	step(w, 300)

	pose := w.RigidBodyServer().Transform(bh.Tag())
	if pose.Position.Y < 0.5 || pose.Position.Y > 2 {
		t.Fatalf("ball should rest on the moved platform, Y = %v", pose.Position.Y)
	}
}
