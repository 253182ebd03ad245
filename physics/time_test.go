package physics

import (
	"math"
	"testing"
)

func TestTimeConsume(t *testing.T) {
	cases := []struct {
		name      string
		fps       int
		maxSteps  int
		deltas    []float64
		wantSteps []int
	}{
		{
			name:      "steady_sixty",
			fps:       60,
			maxSteps:  8,
			deltas:    []float64{1.0 / 60, 1.0 / 60, 1.0 / 60},
			wantSteps: []int{1, 1, 1},
		},
		{
			name:      "thirty_fps_frame_runs_two",
			fps:       60,
			maxSteps:  8,
			deltas:    []float64{1.0 / 30},
			wantSteps: []int{2},
		},
		{
			name:      "bank_carries_remainder",
			fps:       60,
			maxSteps:  8,
			deltas:    []float64{1.0 / 120, 1.0 / 120, 1.0 / 120},
			wantSteps: []int{0, 1, 0},
		},
		{
			name:      "spike_clamped_to_max",
			fps:       60,
			maxSteps:  4,
			deltas:    []float64{2.0},
			wantSteps: []int{4},
		},
		{
			name:      "negative_delta_ignored",
			fps:       60,
			maxSteps:  8,
			deltas:    []float64{-1, 1.0 / 60},
			wantSteps: []int{0, 1},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clock := NewTime()
			clock.SetFramesPerSecond(c.fps)
			clock.SetMaxSubSteps(c.maxSteps)

			for i, delta := range c.deltas {
				got := clock.Consume(delta)
				if got != c.wantSteps[i] {
					t.Fatalf("frame %d: Consume(%v) = %d steps, want %d", i, delta, got, c.wantSteps[i])
				}
			}
		})
	}
}

func TestTimeDefaults(t *testing.T) {
	clock := NewTime()
	if got := clock.DeltaSeconds(); math.Abs(got-1.0/60) > 1e-12 {
		t.Fatalf("default delta = %v, want 1/60", got)
	}
	if got := clock.MaxSubSteps(); got != 8 {
		t.Fatalf("default max substeps = %d, want 8", got)
	}
	if clock.InSubStep() {
		t.Fatalf("new clock should not be in substep")
	}
	clock.BeginSubStep()
	if !clock.InSubStep() {
		t.Fatalf("InSubStep should be true after BeginSubStep")
	}
	clock.EndSubStep()
	if clock.InSubStep() {
		t.Fatalf("InSubStep should be false after EndSubStep")
	}
}
