package physics_test

import (
	"testing"

	"github.com/milk9111/physkit/physics"
	"github.com/milk9111/physkit/physics/physicstest"
)

func TestOpenRegisteredBackend(t *testing.T) {
	found := false
	for _, name := range physics.Backends() {
		if name == physicstest.BackendName {
			found = true
		}
	}
	if !found {
		t.Fatalf("test backend not registered; got %v", physics.Backends())
	}

	w, err := physics.Open(physicstest.BackendName)
	if err != nil {
		t.Fatalf("Open(%q): %v", physicstest.BackendName, err)
	}
	if w.Backend() != physicstest.BackendName {
		t.Fatalf("world backend = %q, want %q", w.Backend(), physicstest.BackendName)
	}
	for _, srv := range []any{w.WorldServer(), w.RigidBodyServer(), w.AreaServer(), w.ShapeServer(), w.JointServer()} {
		if srv == nil {
			t.Fatalf("world exposes a nil server")
		}
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := physics.Open("no-such-engine"); err == nil {
		t.Fatalf("Open of unknown backend should fail")
	}
}

func TestReleasedBodyDestroyedOnStep(t *testing.T) {
	w := physicstest.NewWorld()

	h, err := w.RigidBodyServer().CreateBody(physics.NewRigidBodyDesc())
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	if physicstest.BodyCount(w) != 1 {
		t.Fatalf("body count = %d, want 1", physicstest.BodyCount(w))
	}

	clone := h.Clone()
	h.Release()
	w.WorldServer().Step()
	if physicstest.BodyCount(w) != 1 {
		t.Fatalf("body dropped while a clone is alive")
	}

	clone.Release()
	w.WorldServer().Step()
	if physicstest.BodyCount(w) != 0 {
		t.Fatalf("body count = %d after last release, want 0", physicstest.BodyCount(w))
	}
	if err := w.RigidBodyServer().SetFriction(h.Tag(), 1); err == nil {
		t.Fatalf("server call on destroyed tag should fail")
	}
}
