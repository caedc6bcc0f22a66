// internal/app/app.go
package app

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
	"scell-core/expr"
	"scell-core/meta"
	"scell-core/qc"
	"scell-core/sc"
	"scell/internal/cli"
	"scell/internal/config"
	"scell/internal/logging"
	"scell/internal/pipeline"
	"scell/internal/version"
	"scell/internal/writers"
	"scell/pkg/api"
)

// RunContext is the scell entry point: one invocation runs one refinement
// round and leaves a checkpoint plus the review tables behind.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	fs := cli.NewFlagSet("scell")
	fs.SetOutput(stderr)

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.Version {
		_, _ = fmt.Fprintf(stdout, "scell version %s\n", version.Version)
		return 0
	}

	log := logging.New(stderr, opts.Verbose, opts.Quiet)
	defer func() { _ = log.Sync() }()

	if err := runRound(ctx, opts, stdout, log); err != nil {
		log.Error("round failed", zap.Error(err))
		return 1
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func runRound(ctx context.Context, opts cli.Options, stdout io.Writer, log *zap.Logger) error {
	ds, round, droppedCluster, err := prepareDataset(opts, log)
	if err != nil {
		return err
	}
	params, err := ResolveParams(opts, round)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info("starting round",
		zap.Int("round", round),
		zap.Int("cells", ds.NCells()),
		zap.Int("genes", ds.Raw.NGenes()),
	)
	res, err := pipeline.RunRound(ds, params, round, log)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return err
	}
	ckptPath := filepath.Join(opts.OutDir, fmt.Sprintf("round%d.ckpt", round))
	if err := checkpoint.Save(ckptPath, res.Dataset); err != nil {
		return err
	}
	log.Info("checkpoint written", zap.String("path", ckptPath))

	if err := writeRoundFiles(opts, round, res); err != nil {
		return err
	}

	summary := api.RoundSummaryV1{
		Round:          round,
		CellsIn:        res.CellsIn,
		CellsDropped:   res.CellsDropped,
		ClusterDropped: droppedCluster,
		VariableGenes:  res.VarGenes,
		PCsUsed:        res.PCsUsed,
		SignificantPCs: res.SignificantPCs,
		ElbowPCs:       res.ElbowPCs,
		Clusters:       res.Clusters,
		Resolution:     params.Resolution,
		Checkpoint:     ckptPath,
	}
	sumPath := filepath.Join(opts.OutDir, fmt.Sprintf("round%d.summary.json", round))
	if err := writeFile(sumPath, func(w io.Writer) error {
		return writers.EncodePretty(w, summary)
	}); err != nil {
		return err
	}

	// The per-cluster QC table goes to stdout too: it is what the operator
	// reads before choosing --drop-cluster for the next round.
	if err := writers.WriteClusterQC(opts.Output, stdout, toClusterQCV1(res.QC)); err != nil {
		if writers.IsBrokenPipe(err) {
			return nil
		}
		return err
	}
	return nil
}

// prepareDataset loads the round's input: a fresh matrix and metadata pair
// on the first round, a checkpoint (optionally minus one cluster) on later
// rounds. It returns the dataset, the 1-based round number, and the label
// dropped (-1 when none).
func prepareDataset(opts cli.Options, log *zap.Logger) (*sc.Dataset, int, int, error) {
	if opts.Resume == "" {
		round := opts.Round
		if round == 0 {
			round = 1
		}
		params, err := ResolveParams(opts, round)
		if err != nil {
			return nil, 0, 0, err
		}
		ds, err := loadDataset(opts.MatrixFile, opts.MetaFile, params, log)
		if err != nil {
			return nil, 0, 0, err
		}
		return ds, round, -1, nil
	}

	var ds sc.Dataset
	if err := checkpoint.Load(opts.Resume, &ds); err != nil {
		return nil, 0, 0, err
	}
	log.Info("resumed checkpoint",
		zap.String("path", opts.Resume),
		zap.Int("round_completed", ds.Round),
		zap.Int("cells", ds.NCells()),
	)
	round := opts.Round
	if round == 0 {
		round = ds.Round + 1
	}

	cur := &ds
	dropped := -1
	if opts.DropCluster >= 0 {
		next, removed, err := cur.DropCluster(opts.DropCluster)
		if err != nil {
			return nil, 0, 0, err
		}
		log.Info("dropped cluster",
			zap.Int("cluster", opts.DropCluster),
			zap.Int("cells_removed", removed),
			zap.Int("cells_left", next.NCells()),
		)
		cur = next
		dropped = opts.DropCluster
	}
	return cur, round, dropped, nil
}

// loadDataset reads the expression matrix and metadata and applies the
// construction filter: genes detected in enough cells, cells detecting
// enough genes. The heavier per-round thresholds come later.
func loadDataset(matrixPath, metaPath string, p config.Params, log *zap.Logger) (*sc.Dataset, error) {
	raw, err := expr.LoadTSV(matrixPath)
	if err != nil {
		return nil, err
	}
	table, err := meta.LoadTSV(metaPath)
	if err != nil {
		return nil, err
	}
	log.Info("loaded input",
		zap.Int("genes", raw.NGenes()),
		zap.Int("cells", raw.NCells()),
	)

	keepG, err := qc.FilterGenes(raw, p.MinCellsPerGene)
	if err != nil {
		return nil, err
	}
	if raw, err = raw.SubsetGenes(keepG); err != nil {
		return nil, err
	}

	metrics := qc.Compute(raw, p.MitoPrefix)
	keepC, err := qc.FilterCells(metrics, qc.CellThresholds{MinGenes: p.MinGenes})
	if err != nil {
		return nil, err
	}
	if raw, err = raw.SubsetCells(keepC); err != nil {
		return nil, err
	}
	if table, err = table.Subset(raw.Cells()); err != nil {
		return nil, err
	}
	log.Info("construction filter",
		zap.Int("genes_kept", raw.NGenes()),
		zap.Int("cells_kept", raw.NCells()),
		zap.Int("min_cells_per_gene", p.MinCellsPerGene),
		zap.Int("min_genes_per_cell", p.MinGenes),
	)
	return sc.New(raw, table, qc.Compute(raw, p.MitoPrefix))
}

// ResolveParams layers the round parameters: built-in defaults, then the
// YAML file, then explicit flags.
func ResolveParams(opts cli.Options, round int) (config.Params, error) {
	var file *config.File
	if opts.ConfigFile != "" {
		var err error
		if file, err = config.Load(opts.ConfigFile); err != nil {
			return config.Params{}, err
		}
	}
	p := file.Resolve(round)

	if opts.MinGenes >= 0 {
		p.MinGenes = opts.MinGenes
	}
	if opts.MaxGenes >= 0 {
		p.MaxGenes = opts.MaxGenes
	}
	if opts.MaxMitoFrac >= 0 {
		p.MaxMitoFrac = opts.MaxMitoFrac
	}
	if opts.MitoPrefix != "" {
		p.MitoPrefix = opts.MitoPrefix
	}
	if opts.PCs >= 0 {
		p.PCs = opts.PCs
	}
	if opts.Resolution >= 0 {
		p.Resolution = opts.Resolution
	}
	if opts.Neighbors >= 0 {
		p.Neighbors = opts.Neighbors
	}
	if opts.Seed >= 0 {
		p.Seed = opts.Seed
	}
	if opts.Threads >= 0 {
		p.Threads = opts.Threads
	}
	return p, nil
}

func writeRoundFiles(opts cli.Options, round int, res *pipeline.Result) error {
	ext := opts.Output
	ds := res.Dataset

	qcPath := filepath.Join(opts.OutDir, fmt.Sprintf("cluster_qc.round%d.%s", round, ext))
	if err := writeFile(qcPath, func(w io.Writer) error {
		return writers.WriteClusterQC(ext, w, toClusterQCV1(res.QC))
	}); err != nil {
		return err
	}

	embPath := filepath.Join(opts.OutDir, fmt.Sprintf("tsne.round%d.%s", round, ext))
	rows := make([]writers.EmbeddingRow, ds.NCells())
	for i, cell := range ds.Cells() {
		rows[i] = writers.EmbeddingRow{Cell: cell, X: ds.TSNE.At(i, 0), Y: ds.TSNE.At(i, 1)}
	}
	if err := writeFile(embPath, func(w io.Writer) error {
		return writers.WriteEmbedding(ext, w, rows)
	}); err != nil {
		return err
	}

	metaPath := filepath.Join(opts.OutDir, fmt.Sprintf("metadata.round%d.tsv", round))
	return writeFile(metaPath, ds.Meta.WriteTSV)
}

func toClusterQCV1(qcs []sc.ClusterQC) []api.ClusterQCV1 {
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
	return out
}

func writeFile(path string, write func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
