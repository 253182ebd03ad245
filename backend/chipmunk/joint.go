package chipmunk

import (
	"github.com/jakecoffman/cp"

	"github.com/milk9111/physkit/physics"
)

// joint is a two-body constraint. It sits dormant until both slots are
// filled; attaching the second body realizes the Chipmunk constraints.
type joint struct {
	desc   physics.JointDesc
	anchor physics.Transform

	bodies      []physics.RigidBodyTag
	constraints []*cp.Constraint
}

func (j *joint) dropConstraints(space *cp.Space) {
	for _, c := range j.constraints {
		space.RemoveConstraint(c)
	}
	j.constraints = nil
}

// detach removes one body from the joint. Any realized constraints die
// with it; the joint waits for a replacement body.
func (j *joint) detach(space *cp.Space, tag physics.RigidBodyTag) {
	for i, bt := range j.bodies {
		if bt == tag {
			j.bodies = append(j.bodies[:i], j.bodies[i+1:]...)
			j.dropConstraints(space)
			return
		}
	}
}

// realize builds the Chipmunk constraints once both bodies are present.
func (j *joint) realize(st *state) {
	if len(j.bodies) != 2 {
		return
	}
	a := st.bodies[j.bodies[0]]
	b := st.bodies[j.bodies[1]]
	if a == nil || b == nil {
		return
	}

	pivot := vec(j.anchor.Position)
	switch j.desc.Kind {
	case physics.JointFixed:
		// A pivot plus a unity gear welds the pair.
		j.constraints = append(j.constraints,
			cp.NewPivotJoint(a.cb, b.cb, pivot),
			cp.NewGearJoint(a.cb, b.cb, 0, 1))
	case physics.JointPin:
		j.constraints = append(j.constraints,
			cp.NewPivotJoint(a.cb, b.cb, pivot))
	case physics.JointSpring:
		// Springs run between body centers; the anchor only places the
		// joint in the world for backends that need it.
		j.constraints = append(j.constraints,
			cp.NewDampedSpring(a.cb, b.cb, cp.Vector{}, cp.Vector{},
				j.desc.RestLen, j.desc.Stiffness, j.desc.Damping))
	}
	for _, c := range j.constraints {
		st.space.AddConstraint(c)
	}
}

type jointServer state

func (s *jointServer) CreateJoint(desc physics.JointDesc, anchor physics.Transform) (*physics.JointHandle, error) {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	tag := physics.JointTag(st.tag())
	st.joints[tag] = &joint{desc: desc, anchor: anchor}
	return physics.NewHandle(tag, st.gc), nil
}

func (s *jointServer) AttachBody(tag physics.JointTag, body physics.RigidBodyTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	j := st.joints[tag]
	if j == nil {
		return physics.ErrUnknownTag
	}
	if st.bodies[body] == nil {
		return physics.ErrUnknownTag
	}
	if len(j.bodies) >= 2 {
		return physics.ErrJointFull
	}
	for _, bt := range j.bodies {
		if bt == body {
			return nil
		}
	}
	j.bodies = append(j.bodies, body)
	j.realize(st)
	return nil
}

func (s *jointServer) DetachBody(tag physics.JointTag, body physics.RigidBodyTag) error {
	st := (*state)(s)
	st.mu.Lock()
	defer st.mu.Unlock()
	j := st.joints[tag]
	if j == nil {
		return physics.ErrUnknownTag
	}
	j.detach(st.space, body)
	return nil
}
