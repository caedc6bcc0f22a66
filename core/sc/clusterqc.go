// core/sc/clusterqc.go
package sc

import (
	"fmt"
	"sort"
)

// ClusterQC summarizes the QC-metric distribution of one cluster. This
// table is the decision surface for the manual low-quality-cluster call.
type ClusterQC struct {
	Cluster        int
	Cells          int
	MedianGenes    float64
	MedianCounts   float64
	MedianMitoFrac float64
	MaxMitoFrac    float64
}

// ClusterQCTable computes per-cluster QC summaries for the current labels,
// ordered by label.
func (d *Dataset) ClusterQCTable() ([]ClusterQC, error) {
	if d.Clusters == nil {
		return nil, fmt.Errorf("sc: no cluster labels")
	}
	if d.Metrics == nil {
		return nil, fmt.Errorf("sc: no QC metrics")
	}
	byLabel := map[int][]int{}
	for j, l := range d.Clusters {
		byLabel[l] = append(byLabel[l], j)
	}
	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	out := make([]ClusterQC, 0, len(labels))
	for _, l := range labels {
		cells := byLabel[l]
		genes := make([]float64, len(cells))
		counts := make([]float64, len(cells))
		mito := make([]float64, len(cells))
		maxMito := 0.0
		for k, j := range cells {
			m := d.Metrics.PerCell[j]
			genes[k] = float64(m.NGenes)
			counts[k] = m.Counts
			mito[k] = m.MitoFrac
			if m.MitoFrac > maxMito {
				maxMito = m.MitoFrac
			}
		}
		out = append(out, ClusterQC{
			Cluster:        l,
			Cells:          len(cells),
			MedianGenes:    median(genes),
			MedianCounts:   median(counts),
			MedianMitoFrac: median(mito),
			MaxMitoFrac:    maxMito,
		})
	}
	return out, nil
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
