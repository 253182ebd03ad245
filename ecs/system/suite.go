package system

import (
	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/physics"
)

// Suite bundles the physics bridge systems in their required order:
//
//	SyncEntity | SyncShape | SyncTransformTo | SyncTransformFrom |
//	SyncJoint | Stepper(substeps: Attachment, Script, extras)
//
// Transform edits push to the backend before the backend pose is copied
// out, so an edit made this frame is never clobbered by last step's
// results; the stepper runs its substeps after all sync systems.
type Suite struct {
	Time    *physics.Time
	Stepper *Stepper
}

// Option tweaks suite construction.
type Option func(*config)

type config struct {
	time    *physics.Time
	scripts bool
	substep []ecs.System
}

// WithTime supplies a preconfigured physics clock.
func WithTime(t *physics.Time) Option {
	return func(c *config) { c.time = t }
}

// WithScripts enables the Tengo behavior system.
func WithScripts() Option {
	return func(c *config) { c.scripts = true }
}

// WithSubStepSystem registers an extra system to run every substep, after
// attachment resolution and before stepping. Use it for gameplay logic
// that must see every intermediate physics state.
func WithSubStepSystem(s ecs.System) Option {
	return func(c *config) { c.substep = append(c.substep, s) }
}

// Register wires the physics bridge into the world and returns the suite.
func Register(w *ecs.World, opts ...Option) *Suite {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.time == nil {
		cfg.time = physics.NewTime()
	}

	substep := []ecs.System{NewAttachment(cfg.time)}
	if cfg.scripts {
		substep = append(substep, NewScript(cfg.time))
	}
	substep = append(substep, cfg.substep...)

	stepper := NewStepper(cfg.time, substep...)

	w.AddSystem(NewSyncEntity(w))
	w.AddSystem(NewSyncShape(w))
	w.AddSystem(NewSyncTransformTo(w))
	w.AddSystem(NewSyncTransformFrom(w))
	w.AddSystem(NewSyncJoint(w))
	w.AddSystem(stepper)

	return &Suite{Time: cfg.time, Stepper: stepper}
}
