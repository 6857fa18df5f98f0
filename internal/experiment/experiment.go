// Package experiment turns a configuration into a ready-to-run dam-break
// rollout: the learned fluid with its weights, the initial particles, the
// box obstacle and a simulator carrying the standard metrics.
package experiment

import (
	"context"
	"fmt"
	"log"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
)

type Experiment struct {
	Name     string
	Config   *config.Config
	Fluid    *physics.LearnedFluid
	Init     physics.State
	Obstacle physics.Obstacle
	// Every is passed to sim.Config.Every.
	Every int

	simulator *sim.Simulator
}

// New validates cfg, builds the fluid and loads cfg.Checkpoint when set.
func New(name string, cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fluid, err := physics.NewLearnedFluid(cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.Checkpoint != "" {
		ck, err := storage.LoadCheckpoint(cfg.Checkpoint)
		if err != nil {
			return nil, err
		}
		unused, err := fluid.LoadParams(ck.Tensors)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", cfg.Checkpoint, err)
		}
		if len(unused) > 0 {
			log.Printf("checkpoint %s: %d unused tensors, first %s", cfg.Checkpoint, len(unused), unused[0])
		}
	}

	init, obs := physics.DamBreak(cfg.Scene, cfg.Model.OtherFeatsChannels, cfg.Model.Seed)
	e := &Experiment{
		Name:      name,
		Config:    cfg,
		Fluid:     fluid,
		Init:      init,
		Obstacle:  obs,
		Every:     1,
		simulator: sim.New(fluid, obs),
	}
	for _, m := range metrics.Default() {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) AddObserver(o sim.Observer) { e.simulator.AddObserver(o) }

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Steps:         e.Config.Rollout.Steps,
		ValidateState: e.Config.Rollout.ValidateState,
		Every:         e.Every,
	}
}

// Run rolls out Init. As with sim.Simulator.Run, a partial result may come
// back together with an error.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.Init, e.SimConfig())
}

// Metadata describes the experiment for the run store.
func (e *Experiment) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Preset:         e.Name,
		Model:          e.Config.Model,
		Checkpoint:     e.Config.Checkpoint,
		Particles:      e.Init.NumParticles(),
		ObstaclePoints: e.Obstacle.Points.Rows,
	}
}

func (e *Experiment) BoxSize() [3]float64 {
	var s [3]float64
	copy(s[:], e.Config.Scene.BoxSize)
	return s
}
