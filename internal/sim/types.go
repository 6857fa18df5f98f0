package sim

import (
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// Stepper advances a fluid state by one timestep.
type Stepper interface {
	Step(s physics.State, obs physics.Obstacle) (*physics.StepResult, error)
	Timestep() float64
}

// Frame is the fluid after Step steps. Correction and NeighborCounts are
// nil for the initial frame.
type Frame struct {
	Step           int
	Time           float64
	State          physics.State
	Correction     *tensor.Tensor
	NeighborCounts []float64
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}

type Config struct {
	Steps         int
	ValidateState bool
	// Every records one frame per Every steps; the final frame is always
	// kept. Zero means every step.
	Every int
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	History    map[string][]float64 // metric value after each step
	StepsTaken int
}

func newResult(metrics []Metric, steps int) *Result {
	r := &Result{
		Frames:  make([]Frame, 0, steps+1),
		Metrics: make(map[string]float64, len(metrics)),
		History: make(map[string][]float64, len(metrics)),
	}
	for _, m := range metrics {
		r.History[m.Name()] = make([]float64, 0, steps)
	}
	return r
}

// Final returns the last recorded frame.
func (r *Result) Final() Frame {
	return r.Frames[len(r.Frames)-1]
}
