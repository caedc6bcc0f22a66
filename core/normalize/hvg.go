// core/normalize/hvg.go
package normalize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"scell-core/expr"
)

// HVGParams selects variable genes by mean-expression window and binned
// dispersion z-score.
type HVGParams struct {
	MeanLow     float64 // lower bound on log-mean expression
	MeanHigh    float64 // upper bound on log-mean expression
	DispCutoff  float64 // min dispersion z-score within a mean bin
	Bins        int     // number of mean bins for z-scoring (0 = 20)
}

// DefaultHVGParams mirrors the workflow's fixed window and cutoff.
func DefaultHVGParams() HVGParams {
	return HVGParams{MeanLow: 0.0125, MeanHigh: 3, DispCutoff: 0.5, Bins: 20}
}

// GeneStats carries the per-gene selection diagnostics.
type GeneStats struct {
	Gene       string
	Mean       float64 // log of mean un-logged expression
	Dispersion float64 // log variance/mean of un-logged expression
	ZDisp      float64 // dispersion z-scored within its mean bin
	Variable   bool
}

// VariableGenes computes per-gene mean and dispersion on the un-logged
// scale, z-scores dispersion within mean bins, and selects genes inside the
// mean window whose z-scored dispersion clears the cutoff. Gene order of
// the input is preserved in the returned stats.
func VariableGenes(norm *expr.Matrix, p HVGParams) ([]string, []GeneStats, error) {
	if p.Bins <= 0 {
		p.Bins = 20
	}
	if p.MeanHigh <= p.MeanLow {
		return nil, nil, fmt.Errorf("normalize: mean window [%v, %v] is empty", p.MeanLow, p.MeanHigh)
	}

	ng := norm.NGenes()
	stats := make([]GeneStats, ng)
	row := make([]float64, norm.NCells())
	raw := make([]float64, norm.NCells())
	for i := 0; i < ng; i++ {
		row = norm.GeneValues(i, row)
		for j, v := range row {
			raw[j] = math.Expm1(v)
		}
		mean := stat.Mean(raw, nil)
		variance := stat.Variance(raw, nil)
		gs := GeneStats{Gene: norm.Genes()[i]}
		gs.Mean = math.Log1p(mean)
		if mean > 0 && variance > 0 {
			gs.Dispersion = math.Log(variance / mean)
		}
		stats[i] = gs
	}

	// Bin genes by mean, z-score dispersion within each bin.
	minMean, maxMean := stats[0].Mean, stats[0].Mean
	for _, gs := range stats {
		minMean = math.Min(minMean, gs.Mean)
		maxMean = math.Max(maxMean, gs.Mean)
	}
	width := (maxMean - minMean) / float64(p.Bins)
	binOf := func(m float64) int {
		if width <= 0 {
			return 0
		}
		b := int((m - minMean) / width)
		if b >= p.Bins {
			b = p.Bins - 1
		}
		return b
	}
	binVals := make([][]float64, p.Bins)
	for _, gs := range stats {
		b := binOf(gs.Mean)
		binVals[b] = append(binVals[b], gs.Dispersion)
	}
	binMean := make([]float64, p.Bins)
	binSD := make([]float64, p.Bins)
	for b, vals := range binVals {
		if len(vals) == 0 {
			continue
		}
		binMean[b] = stat.Mean(vals, nil)
		if len(vals) > 1 {
			binSD[b] = stat.StdDev(vals, nil)
		}
	}

	var selected []string
	for i := range stats {
		b := binOf(stats[i].Mean)
		if binSD[b] > 0 {
			stats[i].ZDisp = (stats[i].Dispersion - binMean[b]) / binSD[b]
		} else {
			stats[i].ZDisp = stats[i].Dispersion - binMean[b]
		}
		if stats[i].Mean >= p.MeanLow && stats[i].Mean <= p.MeanHigh && stats[i].ZDisp >= p.DispCutoff {
			stats[i].Variable = true
			selected = append(selected, stats[i].Gene)
		}
	}
	if len(selected) == 0 {
		return nil, stats, fmt.Errorf("normalize: no variable genes in window [%v, %v] with cutoff %v",
			p.MeanLow, p.MeanHigh, p.DispCutoff)
	}
	return selected, stats, nil
}
