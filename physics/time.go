package physics

// Time tracks the fixed-step physics clock.
//
// Frame deltas are variable; the simulation steps at a fixed rate. Each
// frame the delta lands in a time bank and the bank is spent in fixed-size
// substeps. A long frame would queue enough substeps to make the next
// frame even longer, so the bank is clamped to delta * maxSubSteps to
// break the spiral.
type Time struct {
	deltaSeconds float64
	maxSubSteps  int
	inSubStep    bool

	maxBankSize float64
	timeBank    float64
}

const (
	defaultFramesPerSecond = 60
	defaultMaxSubSteps     = 8
)

// NewTime returns a clock at 60 physics frames per second with at most 8
// substeps per engine frame.
func NewTime() *Time {
	t := &Time{}
	t.SetFramesPerSecond(defaultFramesPerSecond)
	t.SetMaxSubSteps(defaultMaxSubSteps)
	return t
}

// DeltaSeconds returns the fixed substep duration.
func (t *Time) DeltaSeconds() float64 { return t.deltaSeconds }

// InSubStep reports whether substep dispatch is in progress. Systems that
// run both per frame and per substep use it to tell the two apart.
func (t *Time) InSubStep() bool { return t.inSubStep }

// SetFramesPerSecond sets the fixed physics rate.
func (t *Time) SetFramesPerSecond(fps int) {
	if fps <= 0 {
		fps = defaultFramesPerSecond
	}
	t.deltaSeconds = 1.0 / float64(fps)
	t.maxBankSize = t.deltaSeconds * float64(t.maxSubSteps)
}

// SetMaxSubSteps bounds how many substeps one engine frame may run. Too
// high makes the clamp useless, too low makes the simulation lag behind
// real time; keep the default unless profiling says otherwise.
func (t *Time) SetMaxSubSteps(steps int) {
	if steps <= 0 {
		steps = defaultMaxSubSteps
	}
	t.maxSubSteps = steps
	t.maxBankSize = t.deltaSeconds * float64(t.maxSubSteps)
}

// MaxSubSteps returns the substep bound.
func (t *Time) MaxSubSteps() int { return t.maxSubSteps }

// Consume banks a frame delta and returns the number of fixed substeps to
// run for it.
func (t *Time) Consume(frameDelta float64) int {
	if frameDelta < 0 {
		frameDelta = 0
	}
	t.timeBank += frameDelta
	if t.timeBank > t.maxBankSize {
		t.timeBank = t.maxBankSize
	}
	steps := int(t.timeBank / t.deltaSeconds)
	t.timeBank -= float64(steps) * t.deltaSeconds
	return steps
}

// BeginSubStep marks substep dispatch as running.
func (t *Time) BeginSubStep() { t.inSubStep = true }

// EndSubStep marks substep dispatch as finished.
func (t *Time) EndSubStep() { t.inSubStep = false }
