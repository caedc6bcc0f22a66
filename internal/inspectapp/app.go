// internal/inspectapp/app.go

// Package inspectapp implements scell-inspect: a read-only look at what a
// checkpoint contains, for deciding the next round's --drop-cluster.
package inspectapp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"scell-core/checkpoint"
	"scell-core/cluster"
	"scell-core/sc"
	"scell/internal/version"
	"scell/internal/writers"
	"scell/pkg/api"
)

type options struct {
	Checkpoint string
	Output     string
	Version    bool
}

func newFlagSet(name string) (*flag.FlagSet, *options) {
	o := &options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: summarize a scell checkpoint

Version: %s

Usage:
  %s --checkpoint run1/round1.ckpt

Flags:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	fs.StringVar(&o.Checkpoint, "checkpoint", "", "checkpoint file to inspect")
	fs.StringVar(&o.Checkpoint, "c", "", "alias of --checkpoint")
	fs.StringVar(&o.Output, "output", "tsv", "cluster table format: tsv | json [tsv]")
	fs.BoolVar(&o.Version, "version", false, "print version and exit")
	fs.BoolVar(&o.Version, "v", false, "alias of --version")
	return fs, o
}

// RunContext is the scell-inspect entry point.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	fs, opts := newFlagSet("scell-inspect")
	fs.SetOutput(stderr)

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.Version {
		_, _ = fmt.Fprintf(stdout, "scell-inspect version %s\n", version.Version)
		return 0
	}
	if opts.Checkpoint == "" {
		_, _ = fmt.Fprintln(stderr, "--checkpoint is required")
		return 2
	}
	switch opts.Output {
	case "tsv", "json":
	default:
		_, _ = fmt.Fprintf(stderr, "invalid --output %q\n", opts.Output)
		return 2
	}
	if err := ctx.Err(); err != nil {
		return 1
	}

	if err := run(opts, stdout); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func run(opts *options, stdout io.Writer) error {
	var ds sc.Dataset
	if err := checkpoint.Load(opts.Checkpoint, &ds); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "checkpoint:      %s\n", opts.Checkpoint)
	fmt.Fprintf(stdout, "round completed: %d\n", ds.Round)
	fmt.Fprintf(stdout, "cells:           %d\n", ds.NCells())
	fmt.Fprintf(stdout, "genes:           %d\n", ds.Raw.NGenes())
	fmt.Fprintf(stdout, "variable genes:  %d\n", len(ds.VarGenes))
	if ds.PCA != nil {
		fmt.Fprintf(stdout, "components:      %d\n", ds.PCA.NPCs)
	}
	if ds.Clusters != nil {
		fmt.Fprintf(stdout, "clusters:        %d\n", len(cluster.Sizes(ds.Clusters)))
	}
	if ds.Meta != nil {
		for _, c := range ds.Meta.Columns() {
			lv, err := ds.Meta.Levels(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "metadata %-8s %d levels %v\n", c+":", len(lv), head(lv, 6))
		}
	}

	if ds.Clusters == nil || ds.Metrics == nil {
		return nil
	}
	qcs, err := ds.ClusterQCTable()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	out := make([]api.ClusterQCV1, len(qcs))
	for i, c := range qcs {
		out[i] = api.ClusterQCV1{
			Cluster:        c.Cluster,
			Cells:          c.Cells,
			MedianGenes:    c.MedianGenes,
			MedianCounts:   c.MedianCounts,
			MedianMitoFrac: c.MedianMitoFrac,
			MaxMitoFrac:    c.MaxMitoFrac,
		}
	}
	if err := writers.WriteClusterQC(opts.Output, stdout, out); err != nil {
		if writers.IsBrokenPipe(err) {
			return nil
		}
		return err
	}
	return nil
}

// head truncates a level list so a high-cardinality column does not flood
// the summary.
func head(vs []string, n int) []string {
	if len(vs) <= n {
		return vs
	}
	return append(append([]string{}, vs[:n]...), "...")
}
