package system

import (
	"fmt"
	"log"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/ecs/component"
	"github.com/milk9111/physkit/physics"
)

// Script runs Tengo behaviors attached to body entities. A script defines
// an update function and is dispatched every physics substep, before the
// step, so applied forces land in the same step:
//
//	update := func(body, dt) {
//	    body.apply_force(0, 120)
//	}
//
// The body object exposes position/velocity reads and force, impulse,
// torque, and velocity writes. Script errors are logged and disable the
// script; they never stop the simulation.
type Script struct {
	time  *physics.Time
	cache map[ecs.Entity]*scriptRuntime
}

type scriptRuntime struct {
	name     string
	compiled *tengo.Compiled
	broken   bool
}

const scriptDispatch = `
update(__body, __dt)
`

// NewScript creates the scripted-behavior system bound to the physics
// clock, so scripts see the fixed substep delta.
func NewScript(time *physics.Time) *Script {
	if time == nil {
		time = physics.NewTime()
	}
	return &Script{time: time, cache: map[ecs.Entity]*scriptRuntime{}}
}

func (s *Script) Update(w *ecs.World) {
	for _, e := range w.Query(component.ScriptKind.ID(), component.RigidBodyKind.ID()) {
		spec, ok := ecs.Get(w, e, component.ScriptKind)
		if !ok || strings.TrimSpace(spec.Source) == "" {
			continue
		}
		rb, ok := ecs.Get(w, e, component.RigidBodyKind)
		if !ok || rb.World == nil || rb.Handle == nil {
			continue
		}

		rt, err := s.runtime(e, spec)
		if err != nil {
			log.Printf("Script: entity=%v compile %s: %v", e, spec.Name, err)
			continue
		}
		if rt.broken {
			continue
		}

		body := buildScriptBody(rb)
		if err := rt.compiled.Set("__body", body); err != nil {
			log.Printf("Script: entity=%v bind %s: %v", e, spec.Name, err)
			continue
		}
		if err := rt.compiled.Set("__dt", s.time.DeltaSeconds()); err != nil {
			log.Printf("Script: entity=%v bind %s: %v", e, spec.Name, err)
			continue
		}
		if err := rt.compiled.Run(); err != nil {
			rt.broken = true
			log.Printf("Script: entity=%v run %s: %v (disabled)", e, spec.Name, err)
		}
	}
}

func (s *Script) runtime(e ecs.Entity, spec component.Script) (*scriptRuntime, error) {
	if rt, ok := s.cache[e]; ok && rt.name == spec.Name {
		return rt, nil
	}

	src := spec.Source + "\n" + scriptDispatch
	script := tengo.NewScript([]byte(src))
	_ = script.Add("__body", map[string]any{})
	_ = script.Add("__dt", 0.0)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("system: compile script %s: %w", spec.Name, err)
	}

	rt := &scriptRuntime{name: spec.Name, compiled: compiled}
	s.cache[e] = rt
	return rt, nil
}

// buildScriptBody exposes the rigid body to the script.
func buildScriptBody(rb component.RigidBody) map[string]any {
	server := rb.World.RigidBodyServer()
	tag := rb.Handle.Tag()
	pose := server.Transform(tag)
	vel := server.LinearVelocity(tag)

	twoFloats := func(name string, apply func(x, y float64)) tengo.Object {
		return &tengo.UserFunction{
			Name: name,
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) != 2 {
					return nil, tengo.ErrWrongNumArguments
				}
				x, ok := tengo.ToFloat64(args[0])
				if !ok {
					return nil, tengo.ErrInvalidArgumentType{Name: "x", Expected: "float", Found: args[0].TypeName()}
				}
				y, ok := tengo.ToFloat64(args[1])
				if !ok {
					return nil, tengo.ErrInvalidArgumentType{Name: "y", Expected: "float", Found: args[1].TypeName()}
				}
				apply(x, y)
				return tengo.UndefinedValue, nil
			},
		}
	}
	oneFloat := func(name string, apply func(v float64)) tengo.Object {
		return &tengo.UserFunction{
			Name: name,
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) != 1 {
					return nil, tengo.ErrWrongNumArguments
				}
				v, ok := tengo.ToFloat64(args[0])
				if !ok {
					return nil, tengo.ErrInvalidArgumentType{Name: "v", Expected: "float", Found: args[0].TypeName()}
				}
				apply(v)
				return tengo.UndefinedValue, nil
			},
		}
	}

	return map[string]any{
		"x":     pose.Position.X,
		"y":     pose.Position.Y,
		"angle": pose.Angle,
		"vx":    vel.X,
		"vy":    vel.Y,
		"apply_force": twoFloats("apply_force", func(x, y float64) {
			server.ApplyForce(tag, physics.Vec2{X: x, Y: y})
		}),
		"apply_impulse": twoFloats("apply_impulse", func(x, y float64) {
			server.ApplyImpulse(tag, physics.Vec2{X: x, Y: y})
		}),
		"set_velocity": twoFloats("set_velocity", func(x, y float64) {
			server.SetLinearVelocity(tag, physics.Vec2{X: x, Y: y})
		}),
		"apply_torque": oneFloat("apply_torque", func(v float64) {
			server.ApplyTorque(tag, v)
		}),
	}
}
