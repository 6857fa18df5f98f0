package automation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: dt study
description: coarse dam break at two timesteps
steps:
  - name: baseline
    preset: coarse
    steps: 2
    save: true
  - preset: coarse
    steps: 1
    params:
      timestep: 0.01
      seed: 4
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "dt study", sc.Name)
	require.Len(t, sc.Steps, 2)
	assert.True(t, sc.Steps[0].Save)
	assert.Equal(t, 0.01, sc.Steps[1].Params["timestep"])

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	assert.Error(t, err)
	_, err = LoadScenario(writeScenario(t, "steps: [\n"))
	assert.Error(t, err)
	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStepConfig(t *testing.T) {
	cfg, err := ScenarioStep{}.StepConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSteps, cfg.Rollout.Steps)

	cfg, err = ScenarioStep{Preset: "coarse", Steps: 7, Params: map[string]float64{"radius_scale": 2}}.StepConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Rollout.Steps)
	assert.Equal(t, 2.0, cfg.Model.RadiusScale)

	_, err = ScenarioStep{Preset: "nope"}.StepConfig()
	assert.ErrorIs(t, err, dynamo.ErrUnknownPreset)
	_, err = ScenarioStep{Params: map[string]float64{"gravity": 1}}.StepConfig()
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfiguration)
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	store := storage.New(t.TempDir())

	var log bytes.Buffer
	out, err := RunScenario(context.Background(), sc, store, &log)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "baseline", out[0].Name)
	assert.NotEmpty(t, out[0].RunID)
	assert.Equal(t, 2, out[0].Result.StepsTaken)
	assert.Equal(t, "step2", out[1].Name)
	assert.Empty(t, out[1].RunID)
	assert.Contains(t, log.String(), "running step 2/2: step2")

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, out[0].RunID, runs[0].ID)
}

func TestRunScenarioNeedsStore(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{{Preset: "coarse", Steps: 1, Save: true}}}
	out, err := RunScenario(context.Background(), sc, nil, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestRunMonteCarlo(t *testing.T) {
	cfg, err := config.GetPreset("coarse")
	require.NoError(t, err)
	cfg.Rollout.Steps = 2

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{Config: cfg, Trials: 3, Seed: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.TrialID)
		assert.Equal(t, int64(10+i), r.Seed)
		assert.Contains(t, r.Metrics, "kinetic_energy")
	}

	stable, unstable := MonteCarloStats(results)
	assert.Equal(t, 3, stable+unstable)

	_, err = RunMonteCarlo(context.Background(), &MonteCarloConfig{Config: cfg})
	assert.Error(t, err)
}

func TestMonteCarloStats(t *testing.T) {
	stable, unstable := MonteCarloStats([]MonteCarloResult{{Stable: true}, {}, {Stable: true}})
	assert.Equal(t, 2, stable)
	assert.Equal(t, 1, unstable)
}
