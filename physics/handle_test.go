package physics

import "testing"

func TestHandleLifetime(t *testing.T) {
	cases := []struct {
		name        string
		clones      int
		releases    int
		wantQueued  bool
		wantPending bool
	}{
		{"release_only_owner", 0, 1, true, true},
		{"clone_keeps_alive", 1, 1, false, false},
		{"release_all_clones", 2, 3, true, true},
		{"double_release_noop", 0, 2, true, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gc := NewGarbageCollector()
			h := NewHandle(RigidBodyTag(7), gc)

			handles := []*RigidBodyHandle{h}
			for i := 0; i < c.clones; i++ {
				clone := h.Clone()
				if clone == nil {
					t.Fatalf("Clone returned nil for live handle")
				}
				if clone.Tag() != h.Tag() {
					t.Fatalf("clone tag = %d, want %d", clone.Tag(), h.Tag())
				}
				handles = append(handles, clone)
			}

			for i := 0; i < c.releases; i++ {
				handles[i%len(handles)].Release()
			}

			if gc.Pending() != c.wantPending {
				t.Fatalf("gc.Pending() = %v, want %v", gc.Pending(), c.wantPending)
			}
			_, bodies, _, _ := gc.Drain()
			queued := len(bodies) == 1 && bodies[0] == RigidBodyTag(7)
			if queued != c.wantQueued {
				t.Fatalf("queued = %v (bodies %v), want %v", queued, bodies, c.wantQueued)
			}
			if len(bodies) > 1 {
				t.Fatalf("tag queued %d times, want at most once", len(bodies))
			}
		})
	}
}

func TestHandleCloneAfterRelease(t *testing.T) {
	gc := NewGarbageCollector()
	h := NewHandle(ShapeTag(3), gc)
	h.Release()

	if h.Valid() {
		t.Fatalf("handle should be invalid after release")
	}
	if clone := h.Clone(); clone != nil {
		t.Fatalf("Clone of released handle should return nil, got tag %d", clone.Tag())
	}
}

func TestGarbageCollectorDrainOrder(t *testing.T) {
	gc := NewGarbageCollector()
	NewHandle(JointTag(1), gc).Release()
	NewHandle(RigidBodyTag(2), gc).Release()
	NewHandle(AreaTag(3), gc).Release()
	NewHandle(ShapeTag(4), gc).Release()

	joints, bodies, areas, shapes := gc.Drain()
	if len(joints) != 1 || joints[0] != JointTag(1) {
		t.Fatalf("joints = %v", joints)
	}
	if len(bodies) != 1 || bodies[0] != RigidBodyTag(2) {
		t.Fatalf("bodies = %v", bodies)
	}
	if len(areas) != 1 || areas[0] != AreaTag(3) {
		t.Fatalf("areas = %v", areas)
	}
	if len(shapes) != 1 || shapes[0] != ShapeTag(4) {
		t.Fatalf("shapes = %v", shapes)
	}

	if gc.Pending() {
		t.Fatalf("gc should be empty after drain")
	}
}
