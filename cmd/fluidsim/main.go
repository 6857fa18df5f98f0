package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	checkpoint string

	seed      int64
	dt        float64
	steps     int
	every     int
	validate  bool
	watch     bool
	quiet     bool
	frameRate int

	showRows   int
	benchSteps int
	ensemble   int
	format     string
	outPath    string
	axis       string
	frameIdx   int
	plotMetric string
	seriesName string
	verify     bool

	gridArgs    []string
	sweepMetric string
	trials      int
)

// main registers the commands and runs the root command. Without a
// subcommand a preset picker opens and the chosen preset runs live.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "fluidsim",
		Short:        "learned particle fluid simulator",
		SilenceUsage: true,
		RunE:         pickAndRunLive,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultConfig().Rollout.OutputDir, "run directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "preset configuration (default \"default\")")
	rootCmd.PersistentFlags().StringVar(&checkpoint, "checkpoint", "", "safetensors checkpoint with network weights")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "roll out a dam break and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().IntVar(&every, "every", 1, "record every n-th frame")
	runCmd.Flags().BoolVar(&validate, "validate", true, "stop on non-finite state")
	runCmd.Flags().BoolVar(&watch, "watch", false, "redraw the fluid while running")
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "no progress output")
	runCmd.Flags().IntVar(&frameRate, "fps", 10, "frame rate for --watch")

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "advance the initial scene by one step and report it",
		Args:  cobra.NoArgs,
		RunE:  stepOnce,
	}
	addModelFlags(stepCmd)
	stepCmd.Flags().IntVar(&showRows, "show", 5, "particles to print")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotMetric, "metric", "", "plot only this metric")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json, a particle svg or a metric svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json, svg or series")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.<ext>)")
	exportCmd.Flags().StringVar(&axis, "axis", "xy", "projection for svg: xy or xz")
	exportCmd.Flags().IntVar(&frameIdx, "frame", -1, "frame index for svg, negative counts from the end")
	exportCmd.Flags().StringVar(&seriesName, "metric", "kinetic_energy", "metric for series")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time steps and ensemble throughput",
		Args:  cobra.NoArgs,
		RunE:  benchModel,
	}
	addModelFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchSteps, "steps", 5, "steps per rollout")
	benchCmd.Flags().IntVar(&ensemble, "ensemble", 4, "concurrent rollouts")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "create or inspect network checkpoints",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write freshly initialized weights",
		Args:  cobra.ExactArgs(1),
		RunE:  initCheckpoint,
	}
	addModelFlags(initCmd)
	inspectCmd := &cobra.Command{
		Use:   "inspect [path]",
		Short: "list the tensors of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectCheckpoint,
	}
	inspectCmd.Flags().BoolVar(&verify, "verify", false, "check the tensors load into the configured model")
	checkpointCmd.AddCommand(initCmd, inspectCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the fluid with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addModelFlags(liveCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search tunable parameters",
		Args:  cobra.NoArgs,
		RunE:  sweepParams,
	}
	addModelFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&gridArgs, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "max_speed", "metric to minimize")
	sweepCmd.Flags().Int("steps", 10, "steps per trial")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the rollouts listed in a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "roll out jittered dam breaks and count the stable ones",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addModelFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 8, "number of perturbed rollouts")
	monteCarloCmd.Flags().Int("steps", 10, "steps per trial")

	rootCmd.AddCommand(runCmd, stepCmd, listCmd, plotCmd, exportCmd, benchCmd, presetsCmd, checkpointCmd, liveCmd,
		sweepCmd, scenarioCmd, monteCarloCmd)
	return rootCmd
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", 0, "weight initialization and jitter seed")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultTimestep, "timestep")
}

func pickAndRunLive(cmd *cobra.Command, args []string) error {
	if preset == "" && configFile == "" {
		picker := viz.NewPicker("fluidsim presets", config.ListPresets(), config.PresetInfo)
		res, err := tea.NewProgram(picker).Run()
		if err != nil {
			return err
		}
		if preset = res.(viz.Picker).Selected(); preset == "" {
			return nil
		}
	}
	return runLive(cmd, args)
}

func runLive(cmd *cobra.Command, args []string) error {
	e, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	m := viz.NewModel(e.Name, e.Fluid, e.Init, e.Obstacle, e.BoxSize())
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
