// core/qc/filter.go
package qc

import (
	"fmt"

	"scell-core/expr"
)

// Construction-time defaults: genes seen in too few cells and near-empty
// cells never enter the analysis object.
const (
	DefaultMinCellsPerGene = 3
	DefaultMinGenesPerCell = 200
)

// CellThresholds is the per-round hard filter. Cells outside
// [MinGenes, MaxGenes] detected genes or above MaxMitoFrac are excluded.
type CellThresholds struct {
	MinGenes    int
	MaxGenes    int
	MaxMitoFrac float64
}

func (t CellThresholds) Validate() error {
	if t.MinGenes < 0 || t.MaxGenes < 0 {
		return fmt.Errorf("qc: negative gene bound")
	}
	if t.MaxGenes > 0 && t.MinGenes > t.MaxGenes {
		return fmt.Errorf("qc: min genes (%d) exceeds max genes (%d)", t.MinGenes, t.MaxGenes)
	}
	if t.MaxMitoFrac < 0 || t.MaxMitoFrac > 1 {
		return fmt.Errorf("qc: mito ceiling %v outside [0,1]", t.MaxMitoFrac)
	}
	return nil
}

// Keep reports whether one cell passes the thresholds. A MaxGenes or
// MaxMitoFrac of zero disables that bound.
func (t CellThresholds) Keep(c CellMetrics) bool {
	if c.NGenes < t.MinGenes {
		return false
	}
	if t.MaxGenes > 0 && c.NGenes > t.MaxGenes {
		return false
	}
	if t.MaxMitoFrac > 0 && c.MitoFrac > t.MaxMitoFrac {
		return false
	}
	return true
}

// FilterCells returns the column indices of cells passing the thresholds.
// Applying the same thresholds to an already-filtered matrix keeps every
// cell (the filter is idempotent).
func FilterCells(metrics *Metrics, t CellThresholds) ([]int, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var keep []int
	for j, c := range metrics.PerCell {
		if t.Keep(c) {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("qc: no cells survive thresholds (min %d, max %d, mito %.3f)",
			t.MinGenes, t.MaxGenes, t.MaxMitoFrac)
	}
	return keep, nil
}

// FilterGenes returns the row indices of genes detected (value > 0) in at
// least minCells cells.
func FilterGenes(m *expr.Matrix, minCells int) ([]int, error) {
	var keep []int
	row := make([]float64, m.NCells())
	for i := 0; i < m.NGenes(); i++ {
		row = m.GeneValues(i, row)
		n := 0
		for _, v := range row {
			if v > 0 {
				n++
			}
		}
		if n >= minCells {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("qc: no genes detected in >= %d cells", minCells)
	}
	return keep, nil
}
