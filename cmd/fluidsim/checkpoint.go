package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/storage"
	"github.com/spf13/cobra"
)

func initCheckpoint(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	fluid, err := physics.NewLearnedFluid(cfg.Model)
	if err != nil {
		return err
	}
	params := fluid.Params()
	meta := map[string]string{
		"preset":         name,
		"layer_channels": fmt.Sprint(cfg.Model.LayerChannels),
		"kernel_size":    fmt.Sprint(cfg.Model.KernelSize),
		"seed":           fmt.Sprint(cfg.Model.Seed),
	}
	if err := storage.SaveCheckpoint(args[0], params, meta); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tensors (%d parameters) to %s\n", len(params), params.Count(), args[0])
	return nil
}

func inspectCheckpoint(cmd *cobra.Command, args []string) error {
	ck, err := storage.LoadCheckpoint(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	keys := make([]string, 0, len(ck.Metadata))
	for k := range ck.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %s\n", k, ck.Metadata[k])
	}
	if len(keys) > 0 {
		fmt.Fprintln(out)
	}

	total := 0
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSHAPE\tPARAMS")
	for _, name := range ck.Names() {
		t := ck.Tensors[name]
		total += len(t.Data)
		fmt.Fprintf(w, "%s\t%dx%d\t%d\n", name, t.Rows, t.Cols, len(t.Data))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d tensors, %d parameters\n", len(ck.Tensors), total)

	if !verify {
		return nil
	}
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	fluid, err := physics.NewLearnedFluid(cfg.Model)
	if err != nil {
		return err
	}
	unused, err := fluid.LoadParams(ck.Tensors)
	if err != nil {
		return fmt.Errorf("incompatible with configured model: %w", err)
	}
	fmt.Fprintln(out, "compatible with configured model")
	if len(unused) > 0 {
		fmt.Fprintf(out, "unused: %s\n", strings.Join(unused, ", "))
	}
	return nil
}
