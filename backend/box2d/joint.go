package box2d

import (
	"github.com/ByteArena/box2d"

	"github.com/milk9111/physkit/physics"
)

// joint sits dormant until both body slots are filled; attaching the
// second body realizes the Box2D joint.
type joint struct {
	desc   physics.JointDesc
	anchor physics.Transform

	bodies []physics.RigidBodyTag
	bj     box2d.B2JointInterface
}

func (j *joint) dropJoint(st *state) {
	if j.bj != nil {
		st.world.DestroyJoint(j.bj)
		j.bj = nil
	}
}

func (j *joint) detach(st *state, tag physics.RigidBodyTag) {
	for i, bt := range j.bodies {
		if bt == tag {
			j.bodies = append(j.bodies[:i], j.bodies[i+1:]...)
			j.dropJoint(st)
			return
		}
	}
}

// forgetBody drops a body that Box2D is destroying; the joint dies with
// it inside DestroyBody, so only the bookkeeping goes.
func (j *joint) forgetBody(tag physics.RigidBodyTag) {
	for i, bt := range j.bodies {
		if bt == tag {
			j.bodies = append(j.bodies[:i], j.bodies[i+1:]...)
			j.bj = nil
			return
		}
	}
}

func (j *joint) realize(st *state) {
	if len(j.bodies) != 2 || j.bj != nil {
		return
	}
	a := st.bodies[j.bodies[0]]
	b := st.bodies[j.bodies[1]]
	if a == nil || b == nil {
		return
	}

	anchor := vec(j.anchor.Position)
	switch j.desc.Kind {
	case physics.JointFixed:
		def := box2d.MakeB2WeldJointDef()
		def.Initialize(a.bb, b.bb, anchor)
		j.bj = st.world.CreateJoint(&def)
	case physics.JointPin:
		def := box2d.MakeB2RevoluteJointDef()
		def.Initialize(a.bb, b.bb, anchor)
		j.bj = st.world.CreateJoint(&def)
	case physics.JointSpring:
		// Springs run between body centers; the anchor only places the
		// joint in the world.
		def := box2d.MakeB2DistanceJointDef()
		def.Initialize(a.bb, b.bb, a.bb.GetWorldCenter(), b.bb.GetWorldCenter())
		def.Length = j.desc.RestLen
		def.FrequencyHz = j.desc.Stiffness
		def.DampingRatio = j.desc.Damping
		j.bj = st.world.CreateJoint(&def)
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
	j.detach(st, body)
	return nil
}
