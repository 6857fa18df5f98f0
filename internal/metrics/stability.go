package metrics

import (
	"math"

	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// MaxCorrection is the largest per-particle correction length seen over
// the rollout.
type MaxCorrection struct {
	name string
	max  float64
}

func NewMaxCorrection() *MaxCorrection {
	return &MaxCorrection{name: "max_correction"}
}

func (m *MaxCorrection) Name() string { return m.name }

func (m *MaxCorrection) Observe(f sim.Frame) {
	if f.Correction == nil {
		return
	}
	m.max = math.Max(m.max, maxNorm(f.Correction))
}

func (m *MaxCorrection) Value() float64 { return m.max }

func (m *MaxCorrection) Reset() { m.max = 0 }

// MaxSpeed is the largest particle speed seen over the rollout.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(f sim.Frame) {
	m.max = math.Max(m.max, maxNorm(f.State.Vel))
}

func (m *MaxSpeed) Value() float64 { return m.max }

func (m *MaxSpeed) Reset() { m.max = 0 }

// Stability is the fraction of steps in which no particle exceeded the
// speed threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f sim.Frame) {
	s.samples++
	if maxNorm(f.State.Vel) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

func maxNorm(t *tensor.Tensor) float64 {
	m := 0.0
	for _, n := range t.RowNorms() {
		m = math.Max(m, n)
	}
	return m
}
