// core/markers/markers.go
package markers

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"scell-core/expr"
)

// Params filters candidate markers before ranking. A zero gate keeps
// everything; negative means "use the workflow default".
type Params struct {
	MinPct       float64 // min fraction of in-cluster cells expressing (negative = 0.25)
	MinLogFC     float64 // min natural-log fold-change (negative = 0.25)
	OnlyPositive bool    // keep over-expressed markers only
	Workers      int     // cluster-level parallelism (0 = all CPUs)
}

// DefaultParams matches the workflow literals: positive markers expressed
// in a quarter of the cluster with at least a 0.25 log fold-change.
func DefaultParams() Params {
	return Params{MinPct: 0.25, MinLogFC: 0.25, OnlyPositive: true}
}

// Marker is one (cluster, gene) record.
type Marker struct {
	Cluster int
	Gene    string
	LogFC   float64 // ln fold-change, cluster vs rest
	PctIn   float64 // fraction expressing inside the cluster
	PctOut  float64 // fraction expressing in the rest
	MeanIn  float64
	MeanOut float64
	PValue  float64 // Mann-Whitney, two-sided
	FDR     float64 // Benjamini-Hochberg within cluster
}

// Find computes one-vs-rest markers for every cluster label present in
// labels, on the normalized matrix. Results are sorted by (cluster,
// descending LogFC, gene).
func Find(norm *expr.Matrix, labels []int, p Params) ([]Marker, error) {
	if norm.NCells() != len(labels) {
		return nil, fmt.Errorf("markers: %d labels for %d cells", len(labels), norm.NCells())
	}
	if p.MinPct < 0 {
		p.MinPct = 0.25
	}
	if p.MinLogFC < 0 {
		p.MinLogFC = 0.25
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}

	var clusters []int
	seen := map[int]bool{}
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			clusters = append(clusters, l)
		}
	}
	sort.Ints(clusters)
	if len(clusters) < 2 {
		return nil, fmt.Errorf("markers: need at least 2 clusters, have %d", len(clusters))
	}

	perCluster := make([][]Marker, len(clusters))
	var g errgroup.Group
	g.SetLimit(p.Workers)
	for ci, cl := range clusters {
		ci, cl := ci, cl
		g.Go(func() error {
			ms, err := oneVsRest(norm, labels, cl, p)
			if err != nil {
				return err
			}
			perCluster[ci] = ms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Marker
	for _, ms := range perCluster {
		out = append(out, ms...)
	}
	return out, nil
}

func oneVsRest(norm *expr.Matrix, labels []int, cluster int, p Params) ([]Marker, error) {
	var in, rest []int
	for j, l := range labels {
		if l == cluster {
			in = append(in, j)
		} else {
			rest = append(rest, j)
		}
	}

	row := make([]float64, norm.NCells())
	var cand []Marker
	inVals := make([]float64, len(in))
	outVals := make([]float64, len(rest))
	for i := 0; i < norm.NGenes(); i++ {
		row = norm.GeneValues(i, row)

		var sumIn, sumOut float64
		nzIn, nzOut := 0, 0
		for k, j := range in {
			v := row[j]
			inVals[k] = v
			sumIn += v
			if v > 0 {
				nzIn++
			}
		}
		for k, j := range rest {
			v := row[j]
			outVals[k] = v
			sumOut += v
			if v > 0 {
				nzOut++
			}
		}

		m := Marker{
			Cluster: cluster,
			Gene:    norm.Genes()[i],
			PctIn:   float64(nzIn) / float64(len(in)),
			PctOut:  float64(nzOut) / float64(len(rest)),
			MeanIn:  sumIn / float64(len(in)),
			MeanOut: sumOut / float64(len(rest)),
		}
		// The pct gate applies before any statistics: a gene expressed in
		// too few of the cluster's cells is out no matter the effect size.
		if m.PctIn < p.MinPct {
			continue
		}
		const eps = 1e-9
		m.LogFC = math.Log((expMean(inVals) + eps) / (expMean(outVals) + eps))
		if m.LogFC < p.MinLogFC && (p.OnlyPositive || -m.LogFC < p.MinLogFC) {
			continue
		}
		m.PValue = mannWhitneyU(inVals, outVals)
		cand = append(cand, m)
	}

	ps := make([]float64, len(cand))
	for i, m := range cand {
		ps[i] = m.PValue
	}
	for i, q := range benjaminiHochberg(ps) {
		cand[i].FDR = q
	}

	sort.Slice(cand, func(a, b int) bool {
		if cand[a].LogFC != cand[b].LogFC {
			return cand[a].LogFC > cand[b].LogFC
		}
		return cand[a].Gene < cand[b].Gene
	})
	return cand, nil
}

// expMean is the mean on the un-logged scale, the scale fold-changes are
// reported on.
func expMean(logVals []float64) float64 {
	var s float64
	for _, v := range logVals {
		s += math.Expm1(v)
	}
	return s / float64(len(logVals))
}

// TopN keeps the n strongest markers per cluster, preserving the ranking
// from Find.
func TopN(ms []Marker, n int) []Marker {
	count := map[int]int{}
	var out []Marker
	for _, m := range ms {
		if count[m.Cluster] < n {
			count[m.Cluster]++
			out = append(out, m)
		}
	}
	return out
}
