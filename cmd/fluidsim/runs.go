package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/export"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/san-kum/fluidsim/internal/viz"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tPARTICLES\tSTEPS\tKINETIC ENERGY")
	for _, run := range runs {
		trend := ""
		if hist, err := st.LoadMetricHistory(run.ID); err == nil {
			trend = viz.Sparkline(hist["kinetic_energy"], 16)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Steps,
			trend,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	hist, err := st.LoadMetricHistory(args[0])
	if err != nil {
		return err
	}

	names := make([]string, 0, len(hist))
	for name := range hist {
		if plotMetric == "" || name == plotMetric {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no metric data to plot")
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "preset: %s\n", meta.Preset)
	fmt.Fprintf(out, "steps: %d\n\n", meta.Steps)
	for _, name := range names {
		if len(hist[name]) == 0 {
			continue
		}
		graph := asciigraph.Plot(hist[name],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	path := outPath
	if path == "" {
		ext := format
		if format == "series" {
			ext = "svg"
		}
		path = runID + "." + ext
	}

	switch format {
	case "json":
		frames, err := st.LoadFrames(runID)
		if err != nil {
			return err
		}
		if err := export.JSONFile(path, meta, frames); err != nil {
			return err
		}
	case "svg":
		frames, err := st.LoadFrames(runID)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("run %s has no frames", runID)
		}
		i := frameIdx
		if i < 0 {
			i += len(frames)
		}
		if i < 0 || i >= len(frames) {
			return fmt.Errorf("frame %d out of range [0, %d)", frameIdx, len(frames))
		}
		proj := export.XY
		if axis == "xz" {
			proj = export.XZ
		}
		svg := export.ParticlesToSVG(frames[i].State.Pos, nil, proj, 800, 800)
		if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
			return err
		}
	case "series":
		hist, err := st.LoadMetricHistory(runID)
		if err != nil {
			return err
		}
		svg := export.SeriesToSVG(hist[seriesName], 800, 300, "#00aaff")
		if svg == "" {
			return fmt.Errorf("metric %q has fewer than two samples", seriesName)
		}
		if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (json, svg, series)", format)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", runID, path)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.PresetInfo[name])
	}
	return w.Flush()
}
