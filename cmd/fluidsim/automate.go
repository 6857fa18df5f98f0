package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/san-kum/fluidsim/internal/automation"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/optim"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/spf13/cobra"
)

func sweepParams(cmd *cobra.Command, args []string) error {
	if len(gridArgs) == 0 {
		return fmt.Errorf("no --param given (tunable: %v)", config.TunableParams)
	}
	grid, err := optim.ParseGrid(gridArgs)
	if err != nil {
		return err
	}

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg, name, err := resolveConfig(cmd)
		if err != nil {
			return nil, err
		}
		cfg.Rollout.Steps, _ = cmd.Flags().GetInt("steps")
		for k, v := range params {
			if err := cfg.SetParam(k, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(name, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sweeping %d combinations, minimizing %s\n", grid.Size(), sweepMetric)
	best, evaluated, err := grid.Search(ctx, build, sweepMetric)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PARAMS\t%s\n", sweepMetric)
	for _, t := range evaluated {
		if t.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", optim.FormatParams(t.Params), t.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\n", optim.FormatParams(t.Params), t.Value)
	}
	w.Flush()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "best: %s (%s=%.6g)\n", optim.FormatParams(best.Params), sweepMetric, best.Value)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if sc.Description != "" {
		fmt.Fprintf(out, "%s: %s\n", sc.Name, sc.Description)
	}
	outcomes, err := automation.RunScenario(ctx, sc, storage.New(dataDir), out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tSTEPS\tKINETIC_ENERGY\tSTABILITY")
	for _, o := range outcomes {
		run := o.RunID
		if run == "" {
			run = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4g\t%.2f\n", o.Name, run, o.Result.StepsTaken,
			o.Result.Metrics["kinetic_energy"], o.Result.Metrics["stability"])
	}
	w.Flush()
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// Trials are short probes; --steps always applies.
	cfg.Rollout.Steps, _ = cmd.Flags().GetInt("steps")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Config: cfg,
		Trials: trials,
		Seed:   cfg.Model.Seed,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tSTABLE\tKINETIC_ENERGY\tMAX_SPEED")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%t\t%.4g\t%.4g\n", r.TrialID, r.Seed, r.Stable,
			r.Metrics["kinetic_energy"], r.Metrics["max_speed"])
	}
	w.Flush()

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Fprintf(out, "stable: %d/%d\n", stable, stable+unstable)
	return nil
}
