// internal/markersapp/app.go

// Package markersapp implements scell-markers: one-vs-rest marker genes
// for every cluster stored in a checkpoint.
package markersapp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"scell-core/checkpoint"
	"scell-core/markers"
	"scell-core/sc"
	"scell/internal/logging"
	"scell/internal/version"
	"scell/internal/writers"
	"scell/pkg/api"
)

type options struct {
	Checkpoint string
	MinPct     float64
	MinLogFC   float64
	All        bool // include under-expressed markers
	Display    int  // per-cluster rows on stdout
	Export     int  // per-cluster rows in the exported table (0 = all)
	OutDir     string
	Output     string
	Threads    int
	Quiet      bool
	Verbose    bool
	Version    bool
}

func newFlagSet(name string) (*flag.FlagSet, *options) {
	o := &options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: per-cluster marker genes from a scell checkpoint

Version: %s

Usage:
  %s --checkpoint run1/round3.ckpt --out-dir run1

Flags:
`, name, version.Version, name)
		fs.PrintDefaults()
	}

	fs.StringVar(&o.Checkpoint, "checkpoint", "", "checkpoint file holding clustered cells")
	fs.StringVar(&o.Checkpoint, "c", "", "alias of --checkpoint")
	fs.Float64Var(&o.MinPct, "min-pct", 0.25, "min fraction of in-cluster cells expressing a gene")
	fs.Float64Var(&o.MinLogFC, "min-logfc", 0.25, "min natural-log fold-change, cluster vs rest")
	fs.BoolVar(&o.All, "all", false, "report under-expressed markers too, not only positive ones")
	fs.IntVar(&o.Display, "display", 2, "markers per cluster printed to stdout")
	fs.IntVar(&o.Export, "top", 10, "markers per cluster in the exported table (0 = all)")
	fs.StringVar(&o.OutDir, "out-dir", ".", "directory for the exported marker table")
	fs.StringVar(&o.OutDir, "o", ".", "alias of --out-dir")
	fs.StringVar(&o.Output, "output", "tsv", "table format: tsv | json [tsv]")
	fs.IntVar(&o.Threads, "threads", 0, "cluster-level worker threads (0 = all CPUs)")
	fs.IntVar(&o.Threads, "t", 0, "alias of --threads")
	fs.BoolVar(&o.Quiet, "quiet", false, "log warnings only")
	fs.BoolVar(&o.Quiet, "q", false, "alias of --quiet")
	fs.BoolVar(&o.Verbose, "verbose", false, "log debug detail")
	fs.BoolVar(&o.Version, "version", false, "print version and exit")
	fs.BoolVar(&o.Version, "v", false, "alias of --version")
	return fs, o
}

func validate(o *options) error {
	if o.Checkpoint == "" {
		return errors.New("--checkpoint is required")
	}
	switch o.Output {
	case "tsv", "json":
	default:
		return fmt.Errorf("invalid --output %q", o.Output)
	}
	if o.Display < 0 || o.Export < 0 {
		return errors.New("--display and --top must be >= 0")
	}
	return nil
}

// RunContext is the scell-markers entry point.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	fs, opts := newFlagSet("scell-markers")
	fs.SetOutput(stderr)

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.Version {
		_, _ = fmt.Fprintf(stdout, "scell-markers version %s\n", version.Version)
		return 0
	}
	if err := validate(opts); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	log := logging.New(stderr, opts.Verbose, opts.Quiet)
	defer func() { _ = log.Sync() }()

	if err := run(ctx, opts, stdout, log); err != nil {
		log.Error("marker discovery failed", zap.Error(err))
		return 1
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func run(ctx context.Context, opts *options, stdout io.Writer, log *zap.Logger) error {
	var ds sc.Dataset
	if err := checkpoint.Load(opts.Checkpoint, &ds); err != nil {
		return err
	}
	if ds.Clusters == nil {
		return fmt.Errorf("checkpoint %s has no cluster labels", opts.Checkpoint)
	}
	if ds.Norm == nil {
		return fmt.Errorf("checkpoint %s has no normalized matrix", opts.Checkpoint)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info("loaded checkpoint",
		zap.String("path", opts.Checkpoint),
		zap.Int("round", ds.Round),
		zap.Int("cells", ds.NCells()),
	)

	p := markers.Params{
		MinPct:       opts.MinPct,
		MinLogFC:     opts.MinLogFC,
		OnlyPositive: !opts.All,
		Workers:      opts.Threads,
	}
	found, err := markers.Find(ds.Norm, ds.Clusters, p)
	if err != nil {
		return err
	}
	log.Info("markers found", zap.Int("total", len(found)))

	export := found
	if opts.Export > 0 {
		export = markers.TopN(found, opts.Export)
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(opts.OutDir, fmt.Sprintf("markers.round%d.%s", ds.Round, opts.Output))
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writers.WriteMarkers(opts.Output, fh, toMarkerV1(export)); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}
	log.Info("marker table written", zap.String("path", path), zap.Int("rows", len(export)))

	// A short per-cluster digest on stdout for a quick identity call.
	display := markers.TopN(found, opts.Display)
	if err := writers.WriteMarkers(opts.Output, stdout, toMarkerV1(display)); err != nil {
		if writers.IsBrokenPipe(err) {
			return nil
		}
		return err
	}
	return nil
}

func toMarkerV1(ms []markers.Marker) []api.MarkerV1 {
	out := make([]api.MarkerV1, len(ms))
	for i, m := range ms {
		out[i] = api.MarkerV1{
			Cluster: m.Cluster,
			Gene:    m.Gene,
			LogFC:   m.LogFC,
			PctIn:   m.PctIn,
			PctOut:  m.PctOut,
			MeanIn:  m.MeanIn,
			MeanOut: m.MeanOut,
			PValue:  m.PValue,
			FDR:     m.FDR,
		}
	}
	return out
}
