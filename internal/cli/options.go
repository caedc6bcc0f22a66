// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"

	"scell/internal/version"
)

// Options holds all scell flags. Numeric analysis parameters default to a
// -1 sentinel so the config layer can tell "flag given" from "flag
// omitted".
type Options struct {
	// Input
	MatrixFile string
	MetaFile   string
	Resume     string

	// Round control
	Round       int
	DropCluster int

	// Parameter overrides (sentinel: -1 = not set)
	ConfigFile  string
	MinGenes    int
	MaxGenes    int
	MaxMitoFrac float64
	MitoPrefix  string
	PCs         int
	Resolution  float64
	Neighbors   int
	Seed        int64
	Threads     int

	// Output
	OutDir string
	Output string // tsv | json

	// Misc
	Quiet   bool
	Verbose bool
	Version bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: single-cell RNA-seq QC, clustering and refinement

Version: %s

One invocation runs one refinement round: filter, normalize, select
variable genes, scale, reduce, embed, cluster, then write a checkpoint and
per-cluster QC tables. Review the QC table, then resume the checkpoint with
--drop-cluster to remove the low-quality cluster and run the next round.

Usage:
  %s --matrix expr.tsv --metadata cells.tsv --out-dir run1
  %s --resume run1/round1.ckpt --drop-cluster 3 --out-dir run1

Flags:
`, name, version.Version, name, name)
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs registers flags, parses argv, and validates.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var o Options

	// Input
	fs.StringVar(&o.MatrixFile, "matrix", "", "tab-delimited genes×cells log-TPM matrix (.tsv, .tsv.gz, or '-')")
	fs.StringVar(&o.MetaFile, "metadata", "", "per-cell metadata table keyed by barcode")
	fs.StringVar(&o.Resume, "resume", "", "checkpoint file from the previous round")
	fs.StringVar(&o.MatrixFile, "m", "", "alias of --matrix")
	fs.StringVar(&o.Resume, "r", "", "alias of --resume")

	// Round control
	fs.IntVar(&o.Round, "round", 0, "round number (0=auto: 1 for --matrix, previous+1 for --resume)")
	fs.IntVar(&o.DropCluster, "drop-cluster", -1, "cluster label to remove before this round (requires --resume)")

	// Parameters
	fs.StringVar(&o.ConfigFile, "config", "", "YAML parameter file overriding the built-in defaults")
	fs.IntVar(&o.MinGenes, "min-genes", -1, "min detected genes per cell [round default: 200]")
	fs.IntVar(&o.MaxGenes, "max-genes", -1, "max detected genes per cell [round default: 6000]")
	fs.Float64Var(&o.MaxMitoFrac, "max-mito", -1, "mitochondrial-fraction ceiling [round default: 0.05, then 0.025]")
	fs.StringVar(&o.MitoPrefix, "mito-prefix", "", "gene-symbol prefix marking mitochondrial genes [MT-]")
	fs.IntVar(&o.PCs, "pcs", -1, "principal components carried forward [round default: 10, then 11]")
	fs.Float64Var(&o.Resolution, "resolution", -1, "community-detection resolution [0.6]")
	fs.IntVar(&o.Neighbors, "neighbors", -1, "neighbors per cell in the SNN graph [30]")
	fs.Int64Var(&o.Seed, "seed", -1, "random seed [42]")
	fs.IntVar(&o.Threads, "threads", -1, "worker threads for resampling and markers (0=all CPUs)")
	fs.IntVar(&o.Threads, "t", -1, "alias of --threads")

	// Output
	fs.StringVar(&o.OutDir, "out-dir", ".", "directory for checkpoints and exported tables")
	fs.StringVar(&o.OutDir, "o", ".", "alias of --out-dir")
	fs.StringVar(&o.Output, "output", "tsv", "table format: tsv | json [tsv]")

	// Misc
	fs.BoolVar(&o.Quiet, "quiet", false, "log warnings only")
	fs.BoolVar(&o.Quiet, "q", false, "alias of --quiet")
	fs.BoolVar(&o.Verbose, "verbose", false, "log per-stage debug detail")
	fs.BoolVar(&o.Version, "version", false, "print version and exit")
	fs.BoolVar(&o.Version, "v", false, "alias of --version")

	if err := fs.Parse(argv); err != nil {
		return o, err
	}
	if o.Version {
		return o, nil
	}
	return o, Validate(&o)
}

// Validate applies the CLI invariants.
func Validate(o *Options) error {
	usingMatrix := o.MatrixFile != ""
	usingResume := o.Resume != ""
	switch {
	case usingMatrix && usingResume:
		return errors.New("--matrix conflicts with --resume")
	case !usingMatrix && !usingResume:
		return errors.New("provide --matrix (first round) or --resume (later rounds)")
	case usingMatrix && o.MetaFile == "":
		return errors.New("--matrix requires --metadata")
	case usingMatrix && o.DropCluster >= 0:
		return errors.New("--drop-cluster requires --resume: the first round has no clusters yet")
	}
	if o.Round < 0 {
		return errors.New("--round must be ≥ 0")
	}
	switch o.Output {
	case "tsv", "json":
	default:
		return fmt.Errorf("invalid --output %q", o.Output)
	}
	if o.MaxMitoFrac > 1 {
		return errors.New("--max-mito is a fraction in [0,1]")
	}
	if o.Quiet && o.Verbose {
		return errors.New("--quiet conflicts with --verbose")
	}
	return nil
}
