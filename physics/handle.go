package physics

import (
	"sync"
	"sync/atomic"
)

// Opaque resource tags minted by a physics backend. A zero tag is invalid.
// Backends are free to pack an index and a generation into the value; the
// abstraction never inspects it.
type (
	RigidBodyTag uint64
	AreaTag      uint64
	ShapeTag     uint64
	JointTag     uint64
)

func (t RigidBodyTag) Valid() bool { return t != 0 }
func (t AreaTag) Valid() bool      { return t != 0 }
func (t ShapeTag) Valid() bool     { return t != 0 }
func (t JointTag) Valid() bool     { return t != 0 }

// Tag is the set of resource tag types tracked by handles.
type Tag interface {
	RigidBodyTag | AreaTag | ShapeTag | JointTag
}

// Handle owns a backend resource tag. Handles are reference counted:
// Clone shares ownership, Release drops it, and when the last owner
// releases, the tag is queued on the world garbage collector. The backend
// drains the collector during Step and destroys the resource.
//
// A Handle can be stored anywhere (component, resource, plain variable);
// the resource stays alive as long as any clone does.
type Handle[T Tag] struct {
	shared *sharedTag[T]
}

type sharedTag[T Tag] struct {
	tag  T
	gc   *GarbageCollector
	refs atomic.Int32
}

// NewHandle wraps a freshly created resource tag. Called by backends only.
func NewHandle[T Tag](tag T, gc *GarbageCollector) *Handle[T] {
	shared := &sharedTag[T]{tag: tag, gc: gc}
	shared.refs.Store(1)
	return &Handle[T]{shared: shared}
}

// Tag returns the resource tag. It does not extend the resource lifetime;
// keep a clone of the handle for that.
func (h *Handle[T]) Tag() T {
	var zero T
	if h == nil || h.shared == nil {
		return zero
	}
	return h.shared.tag
}

// Valid reports whether the handle still owns a live resource.
func (h *Handle[T]) Valid() bool {
	return h != nil && h.shared != nil && h.shared.refs.Load() > 0
}

// Clone returns a new co-owning handle.
func (h *Handle[T]) Clone() *Handle[T] {
	if h == nil || h.shared == nil {
		return nil
	}
	for {
		refs := h.shared.refs.Load()
		if refs <= 0 {
			return nil
		}
		if h.shared.refs.CompareAndSwap(refs, refs+1) {
			return &Handle[T]{shared: h.shared}
		}
	}
}

// Release drops this handle's ownership. The last release queues the tag
// for destruction. Releasing an already released handle is a no-op.
func (h *Handle[T]) Release() {
	if h == nil || h.shared == nil {
		return
	}
	for {
		refs := h.shared.refs.Load()
		if refs <= 0 {
			return
		}
		if !h.shared.refs.CompareAndSwap(refs, refs-1) {
			continue
		}
		if refs == 1 && h.shared.gc != nil {
			h.shared.gc.queue(h.shared.tag)
		}
		return
	}
}

// Handle aliases for the four resource categories.
type (
	RigidBodyHandle = Handle[RigidBodyTag]
	AreaHandle      = Handle[AreaTag]
	ShapeHandle     = Handle[ShapeTag]
	JointHandle     = Handle[JointTag]
)

// GarbageCollector accumulates tags whose handles are all released.
// Each backend drains it on step and runs its own destruction pipeline.
type GarbageCollector struct {
	mu     sync.Mutex
	bodies []RigidBodyTag
	areas  []AreaTag
	shapes []ShapeTag
	joints []JointTag
}

func NewGarbageCollector() *GarbageCollector {
	return &GarbageCollector{}
}

func (gc *GarbageCollector) queue(tag any) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	switch t := tag.(type) {
	case RigidBodyTag:
		gc.bodies = append(gc.bodies, t)
	case AreaTag:
		gc.areas = append(gc.areas, t)
	case ShapeTag:
		gc.shapes = append(gc.shapes, t)
	case JointTag:
		gc.joints = append(gc.joints, t)
	}
}

// Drain returns and clears everything queued so far. Joints come first so
// a backend can tear down constraints before the bodies they reference.
func (gc *GarbageCollector) Drain() (joints []JointTag, bodies []RigidBodyTag, areas []AreaTag, shapes []ShapeTag) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	joints, gc.joints = gc.joints, nil
	bodies, gc.bodies = gc.bodies, nil
	areas, gc.areas = gc.areas, nil
	shapes, gc.shapes = gc.shapes, nil
	return joints, bodies, areas, shapes
}

// Pending reports whether anything is queued for destruction.
func (gc *GarbageCollector) Pending() bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return len(gc.bodies)+len(gc.areas)+len(gc.shapes)+len(gc.joints) > 0
}
