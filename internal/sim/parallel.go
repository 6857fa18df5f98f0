package sim

import (
	"context"
	"sync"

	"github.com/san-kum/fluidsim/internal/physics"
)

// Ensemble runs one stepper from several initial states concurrently.
// Each run gets its own metrics from newMetrics.
type Ensemble struct {
	stepper    Stepper
	obstacle   physics.Obstacle
	newMetrics func() []Metric
}

func NewEnsemble(stepper Stepper, obstacle physics.Obstacle, newMetrics func() []Metric) *Ensemble {
	return &Ensemble{stepper: stepper, obstacle: obstacle, newMetrics: newMetrics}
}

func (e *Ensemble) Run(ctx context.Context, inits []physics.State, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(inits))
	errs := make([]error, len(inits))

	var wg sync.WaitGroup
	for i := range inits {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sim := New(e.stepper, e.obstacle)
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					sim.AddMetric(m)
				}
			}
			results[idx], errs[idx] = sim.Run(ctx, inits[idx], cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
