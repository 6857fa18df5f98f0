package main

import (
	"fmt"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/spf13/cobra"
)

// resolveConfig builds the configuration for cmd. Flags override the
// config file, which overrides the preset.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	name := preset
	if name == "" {
		name = "default"
	}
	cfg, err := config.GetPreset(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w (available: %v)", err, config.ListPresets())
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("checkpoint") {
		cfg.Checkpoint = checkpoint
	}
	if flags.Changed("seed") {
		cfg.Model.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Model.Timestep = dt
	}
	if flags.Changed("steps") {
		cfg.Rollout.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("validate") {
		cfg.Rollout.ValidateState = validate
	}
	if flags.Changed("data") {
		cfg.Rollout.OutputDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

// newExperiment resolves the configuration of cmd and builds it.
func newExperiment(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return experiment.New(name, cfg)
}
