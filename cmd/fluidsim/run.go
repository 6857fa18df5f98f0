package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/tui"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	e.Every = every
	cfg := e.Config

	st := storage.New(cfg.Rollout.OutputDir)
	if err := st.Init(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case watch:
		r := tui.NewLiveRenderer(out, e.Name, e.BoxSize(), frameRate)
		r.Start()
		defer r.Stop()
		e.AddObserver(r)
	case !quiet:
		e.AddObserver(tui.NewProgress(cmd.ErrOrStderr(), cfg.Rollout.Steps, 100*time.Millisecond))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(out, "running %s: %d particles, %d wall samples, %d steps\n",
		e.Name, e.Init.NumParticles(), e.Obstacle.Points.Rows, cfg.Rollout.Steps)
	start := time.Now()

	result, runErr := e.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		log.Printf("rollout stopped early: %v", runErr)
	}
	elapsed := time.Since(start)

	runID, err := st.Save(e.Metadata(), result)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "steps: %d\n", result.StepsTaken)
	fmt.Fprintln(out, "\nmetrics:")
	printMetrics(out, result.Metrics)
	return runErr
}

func printMetrics(w io.Writer, values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, values[name])
	}
}

func stepOnce(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := e.Fluid.Step(e.Init, e.Obstacle)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	frame := sim.Frame{
		Step:           1,
		Time:           e.Fluid.Timestep(),
		State:          res.State,
		Correction:     res.Correction,
		NeighborCounts: res.NeighborCounts,
	}
	values := make(map[string]float64)
	for _, m := range metrics.Default() {
		m.Observe(frame)
		values[m.Name()] = m.Value()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d particles, %d wall samples, %d parameters\n",
		e.Name, e.Init.NumParticles(), e.Obstacle.Points.Rows, e.Fluid.Params().Count())
	fmt.Fprintf(out, "step took %v\n\n", elapsed.Round(time.Microsecond))
	printMetrics(out, values)

	n := min(showRows, res.State.NumParticles())
	if n <= 0 {
		return nil
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "I\tX\tY\tZ\tVX\tVY\tVZ\tNEIGHBORS")
	for i := 0; i < n; i++ {
		p, v := res.State.Pos.Row(i), res.State.Vel.Row(i)
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.0f\n",
			i, p[0], p[1], p[2], v[0], v[1], v[2], res.NeighborCounts[i])
	}
	return w.Flush()
}

func benchModel(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	out := cmd.OutOrStdout()
	n := e.Init.NumParticles()

	fmt.Fprintf(out, "benchmarking %s: %d particles, %d wall samples\n\n", e.Name, n, e.Obstacle.Points.Rows)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tELAPSED\tPARTICLES/S")
	last := time.Now()
	err = sim.New(e.Fluid, e.Obstacle).RunWithCallback(ctx, e.Init, sim.Config{Steps: benchSteps}, func(f sim.Frame) bool {
		elapsed := time.Since(last)
		fmt.Fprintf(w, "%d\t%v\t%.0f\n", f.Step, elapsed.Round(time.Microsecond), float64(n)/elapsed.Seconds())
		last = time.Now()
		return true
	})
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if ensemble < 2 {
		return nil
	}
	cfg := e.Config
	inits := make([]physics.State, ensemble)
	for i := range inits {
		inits[i], _ = physics.DamBreak(cfg.Scene, cfg.Model.OtherFeatsChannels, cfg.Model.Seed+int64(i))
	}
	start := time.Now()
	results, err := sim.NewEnsemble(e.Fluid, e.Obstacle, metrics.Default).Run(ctx, inits, sim.Config{Steps: benchSteps})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Fprintf(out, "\nensemble of %d: %v, %.1f steps/s\n", ensemble, elapsed.Round(time.Millisecond),
		float64(ensemble*benchSteps)/elapsed.Seconds())
	for i, r := range results {
		fmt.Fprintf(out, "  #%d kinetic_energy=%.6f max_speed=%.4f\n", i, r.Metrics["kinetic_energy"], r.Metrics["max_speed"])
	}
	return nil
}
