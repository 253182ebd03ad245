package system

import (
	"github.com/milk9111/physkit/ecs"
	"github.com/milk9111/physkit/physics"
)

// Stepper is the fixed-step driver. Each frame it banks the frame delta on
// the physics clock and runs the resulting number of substeps; inside each
// substep it first dispatches the substep systems (attachment resolution,
// scripted behaviors), then steps every attached physics world.
//
// Register it after the sync systems so a frame's ECS mutations reach the
// backend before stepping.
type Stepper struct {
	time       *physics.Time
	substep    []ecs.System
	stepSent   map[*physics.World]float64
	frameSteps int
}

// NewStepper creates a driver over the given clock and substep systems.
func NewStepper(time *physics.Time, substep ...ecs.System) *Stepper {
	if time == nil {
		time = physics.NewTime()
	}
	return &Stepper{
		time:     time,
		substep:  substep,
		stepSent: map[*physics.World]float64{},
	}
}

// Time returns the physics clock.
func (s *Stepper) Time() *physics.Time {
	return s.time
}

// FrameSteps returns how many substeps the last Update ran.
func (s *Stepper) FrameSteps() int {
	return s.frameSteps
}

func (s *Stepper) Update(w *ecs.World) {
	steps := s.time.Consume(w.Delta())
	s.frameSteps = steps
	if steps == 0 {
		return
	}

	// Tracked per world so one attached after the first frame still gets
	// the clock's step.
	worlds := w.PhysicsWorlds()
	dt := s.time.DeltaSeconds()
	for _, pw := range worlds {
		if s.stepSent[pw] != dt {
			pw.WorldServer().SetTimeStep(dt)
			s.stepSent[pw] = dt
		}
	}

	s.time.BeginSubStep()
	for i := 0; i < steps; i++ {
		for _, sub := range s.substep {
			sub.Update(w)
		}
		for _, pw := range worlds {
			pw.WorldServer().Step()
		}
	}
	s.time.EndSubStep()
}
