// internal/pipeline/round.go

// Package pipeline runs one refinement round over a dataset: QC filter,
// normalize, select variable genes, scale, reduce, embed, cluster, and
// summarize per-cluster QC. Cluster removal between rounds stays with the
// caller; a round never decides which cells are low quality.
package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"scell-core/cluster"
	"scell-core/normalize"
	"scell-core/qc"
	"scell-core/reduce"
	"scell-core/sc"
	"scell/internal/config"
)

// jackstrawAlpha is the per-component significance level used when
// counting significant components for the round summary.
const jackstrawAlpha = 0.05

// Result reports what one round did and carries the updated dataset.
type Result struct {
	Dataset *sc.Dataset

	CellsIn      int // cells entering the round, before QC filtering
	CellsDropped int // cells removed by the QC filter

	VarGenes       int
	PCsUsed        int
	SignificantPCs int
	ElbowPCs       int

	Clusters int
	QC       []sc.ClusterQC
}

// RunRound executes the full per-round analysis on ds and returns a fresh
// dataset (the input is not mutated past the QC subset). round is 1-based
// and is stamped onto the result dataset.
func RunRound(ds *sc.Dataset, p config.Params, round int, log *zap.Logger) (*Result, error) {
	if ds == nil || ds.Raw == nil {
		return nil, fmt.Errorf("pipeline: no dataset")
	}
	start := time.Now()
	res := &Result{CellsIn: ds.NCells()}

	// QC metrics are recomputed each round so the filter always reflects
	// the current cell set.
	metrics := qc.Compute(ds.Raw, p.MitoPrefix)
	ds.Metrics = metrics

	keep, err := qc.FilterCells(metrics, qc.CellThresholds{
		MinGenes:    p.MinGenes,
		MaxGenes:    p.MaxGenes,
		MaxMitoFrac: p.MaxMitoFrac,
	})
	if err != nil {
		return nil, err
	}
	res.CellsDropped = res.CellsIn - len(keep)
	log.Info("qc filter",
		zap.Int("cells_in", res.CellsIn),
		zap.Int("cells_kept", len(keep)),
		zap.Int("min_genes", p.MinGenes),
		zap.Int("max_genes", p.MaxGenes),
		zap.Float64("max_mito", p.MaxMitoFrac),
	)
	if ds, err = ds.SubsetCells(keep); err != nil {
		return nil, err
	}
	ds.Round = round
	if err := ds.AttachQCColumns(); err != nil {
		return nil, err
	}

	norm, err := normalize.LibrarySize(ds.Raw, p.ScaleTotal)
	if err != nil {
		return nil, err
	}
	if err := ds.SetNorm(norm); err != nil {
		return nil, err
	}

	varGenes, _, err := normalize.VariableGenes(norm, normalize.HVGParams{
		MeanLow:    p.MeanLow,
		MeanHigh:   p.MeanHigh,
		DispCutoff: p.DispCutoff,
	})
	if err != nil {
		return nil, err
	}
	ds.VarGenes = varGenes
	res.VarGenes = len(varGenes)
	log.Info("variable genes", zap.Int("selected", len(varGenes)))

	scaled, err := normalize.ScaleRegress(norm, ds.Metrics.MitoFracs(), p.ScaleClip)
	if err != nil {
		return nil, err
	}
	if err := ds.SetScaled(scaled); err != nil {
		return nil, err
	}

	pca, err := reduce.Run(scaled, varGenes, p.PCs)
	if err != nil {
		return nil, err
	}
	if err := pca.Project(scaled); err != nil {
		return nil, err
	}
	ds.PCA = pca
	res.PCsUsed = pca.NPCs

	jp := reduce.JackstrawParams{
		Replicates: p.JackstrawReps,
		Prop:       p.JackstrawProp,
		Seed:       uint64(p.Seed),
		Workers:    p.Threads,
	}
	if err := reduce.Jackstraw(pca, scaled, jp); err != nil {
		return nil, err
	}
	res.SignificantPCs = pca.SignificantPCs(jackstrawAlpha)
	res.ElbowPCs = reduce.Elbow(pca.Explained)
	log.Info("reduction",
		zap.Int("components", pca.NPCs),
		zap.Int("significant", res.SignificantPCs),
		zap.Int("elbow", res.ElbowPCs),
	)
	if res.SignificantPCs < res.PCsUsed {
		log.Warn("carrying more components than the resampling test supports",
			zap.Int("used", res.PCsUsed),
			zap.Int("significant", res.SignificantPCs),
		)
	}

	y, err := reduce.TSNE(pca.Scores, pca.NPCs, reduce.TSNEParams{
		Perplexity: p.Perplexity,
		Iterations: p.TSNEIterations,
		Seed:       p.Seed,
	})
	if err != nil {
		return nil, err
	}
	if err := ds.SetTSNE(y); err != nil {
		return nil, err
	}

	labels, err := cluster.Louvain(componentView(pca), cluster.Params{
		K:          p.Neighbors,
		Resolution: p.Resolution,
		Seed:       uint64(p.Seed),
	})
	if err != nil {
		return nil, err
	}
	if err := ds.SetClusters(labels); err != nil {
		return nil, err
	}
	res.Clusters = len(cluster.Sizes(labels))
	log.Info("clustering",
		zap.Int("clusters", res.Clusters),
		zap.Float64("resolution", p.Resolution),
		zap.Int("neighbors", p.Neighbors),
	)

	if res.QC, err = ds.ClusterQCTable(); err != nil {
		return nil, err
	}
	res.Dataset = ds
	log.Info("round complete",
		zap.Int("round", round),
		zap.Int("cells", ds.NCells()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// componentView returns the cell scores over the retained components.
func componentView(p *reduce.PCA) *mat.Dense {
	n, _ := p.Scores.Dims()
	return mat.DenseCopyOf(p.Scores.Slice(0, n, 0, p.NPCs))
}
