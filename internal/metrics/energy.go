package metrics

import (
	"github.com/san-kum/fluidsim/internal/sim"
)

// KineticEnergy reports the mean ½|v|² per particle of the latest frame,
// assuming unit mass.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f sim.Frame) {
	e.value = MeanKineticEnergy(f)
}

func (e *KineticEnergy) Value() float64 { return e.value }

func (e *KineticEnergy) Reset() { e.value = 0 }

// MeanKineticEnergy computes the quantity reported by KineticEnergy for a
// single frame.
func MeanKineticEnergy(f sim.Frame) float64 {
	vel := f.State.Vel
	if vel.Rows == 0 {
		return 0
	}
	total := 0.0
	for _, v := range vel.Data {
		total += 0.5 * v * v
	}
	return total / float64(vel.Rows)
}

// MeanNeighbors reports the mean fluid neighbor count of the latest frame.
type MeanNeighbors struct {
	name  string
	value float64
}

func NewMeanNeighbors() *MeanNeighbors {
	return &MeanNeighbors{name: "mean_neighbors"}
}

func (m *MeanNeighbors) Name() string { return m.name }

func (m *MeanNeighbors) Observe(f sim.Frame) {
	if len(f.NeighborCounts) == 0 {
		m.value = 0
		return
	}
	sum := 0.0
	for _, c := range f.NeighborCounts {
		sum += c
	}
	m.value = sum / float64(len(f.NeighborCounts))
}

func (m *MeanNeighbors) Value() float64 { return m.value }

func (m *MeanNeighbors) Reset() { m.value = 0 }
