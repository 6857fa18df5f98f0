// Package automation runs scripted sequences of rollouts described in YAML
// and Monte-Carlo studies over perturbed initial conditions.
package automation

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario is a named list of rollouts run one after another.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single rollout. Preset defaults to "default" and Steps
// to the preset's rollout length.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Steps      int                `yaml:"steps"`
	Params     map[string]float64 `yaml:"params"`
	Checkpoint string             `yaml:"checkpoint"`
	Save       bool               `yaml:"save"`
}

// StepOutcome is what one scenario step produced. RunID is empty unless
// the step was saved.
type StepOutcome struct {
	Name   string
	RunID  string
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// StepConfig resolves the configuration a step runs with.
func (s ScenarioStep) StepConfig() (*config.Config, error) {
	preset := s.Preset
	if preset == "" {
		preset = "default"
	}
	cfg, err := config.GetPreset(preset)
	if err != nil {
		return nil, err
	}
	if s.Steps > 0 {
		cfg.Rollout.Steps = s.Steps
	}
	if s.Checkpoint != "" {
		cfg.Checkpoint = s.Checkpoint
	}
	for name, v := range s.Params {
		if err := cfg.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes the steps in order, reporting progress to w. Steps
// marked Save are written to store, which may be nil when none are.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, w io.Writer) ([]StepOutcome, error) {
	outcomes := make([]StepOutcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		fmt.Fprintf(w, "running step %d/%d: %s\n", i+1, len(scenario.Steps), name)

		cfg, err := step.StepConfig()
		if err != nil {
			return outcomes, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(name, cfg)
		if err != nil {
			return outcomes, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return outcomes, fmt.Errorf("step %d run: %w", i+1, err)
		}

		out := StepOutcome{Name: name, Result: result}
		if step.Save {
			if store == nil {
				return outcomes, fmt.Errorf("step %d: no run store to save to", i+1)
			}
			out.RunID, err = store.Save(exp.Metadata(), result)
			if err != nil {
				return outcomes, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

type MonteCarloConfig struct {
	Config *config.Config
	// Trials scene seeds are drawn as Seed, Seed+1, ... and jitter the
	// initial particles.
	Trials int
	Seed   int64
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Metrics map[string]float64
	// Stable is set when the state stayed finite and no step exceeded the
	// stability speed threshold.
	Stable bool
}

// RunMonteCarlo rolls out one learned fluid from Trials perturbed dam
// breaks concurrently.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial, got %d", cfg.Trials)
	}
	exp, err := experiment.New("montecarlo", cfg.Config)
	if err != nil {
		return nil, err
	}

	inits := make([]physics.State, cfg.Trials)
	for i := range inits {
		inits[i], _ = physics.DamBreak(cfg.Config.Scene, cfg.Config.Model.OtherFeatsChannels, cfg.Seed+int64(i))
	}

	simCfg := exp.SimConfig()
	simCfg.ValidateState = false
	ensemble := sim.NewEnsemble(exp.Fluid, exp.Obstacle, metrics.Default)
	runs, err := ensemble.Run(ctx, inits, simCfg)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		results[i] = MonteCarloResult{
			TrialID: i,
			Seed:    cfg.Seed + int64(i),
			Metrics: r.Metrics,
			Stable:  r.Final().State.IsFinite() && r.Metrics["stability"] == 1,
		}
	}
	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
