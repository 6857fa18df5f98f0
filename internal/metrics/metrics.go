// Package metrics provides rollout metrics for the fluid simulator.
package metrics

import "github.com/san-kum/fluidsim/internal/sim"

// DefaultStabilityThreshold is the speed, in scene units per second, above
// which a step counts as unstable.
const DefaultStabilityThreshold = 10.0

// Default returns a fresh set of the standard rollout metrics.
func Default() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewMeanNeighbors(),
		NewMaxCorrection(),
		NewMaxSpeed(),
		NewStability(DefaultStabilityThreshold),
	}
}
