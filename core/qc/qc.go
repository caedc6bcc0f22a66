// core/qc/qc.go
package qc

import (
	"math"
	"strings"

	"scell-core/expr"
)

// DefaultMitoPrefix selects mitochondrial genes by symbol.
const DefaultMitoPrefix = "MT-"

// CellMetrics holds the per-cell quality metrics. Counts and MitoFrac are
// computed on the un-logged scale (expm1 of the stored values): the input
// matrix carries log-transformed TPM.
type CellMetrics struct {
	NGenes   int     // genes with nonzero expression
	Counts   float64 // total un-logged counts
	MitoFrac float64 // mito counts / total counts
}

// Metrics is the QC table for a matrix, aligned with its cell order.
type Metrics struct {
	Cells   []string
	PerCell []CellMetrics
}

// Compute derives per-cell metrics from a log-scale matrix. Genes whose
// symbol starts with mitoPrefix (case-insensitive) count toward MitoFrac.
func Compute(m *expr.Matrix, mitoPrefix string) *Metrics {
	if mitoPrefix == "" {
		mitoPrefix = DefaultMitoPrefix
	}
	prefix := strings.ToUpper(mitoPrefix)
	mito := make([]bool, m.NGenes())
	for i, g := range m.Genes() {
		mito[i] = strings.HasPrefix(strings.ToUpper(g), prefix)
	}

	out := &Metrics{
		Cells:   m.Cells(),
		PerCell: make([]CellMetrics, m.NCells()),
	}
	col := make([]float64, m.NGenes())
	for j := 0; j < m.NCells(); j++ {
		col = m.CellValues(j, col)
		var cm CellMetrics
		var mitoCounts float64
		for i, v := range col {
			if v <= 0 {
				continue
			}
			cm.NGenes++
			c := math.Expm1(v)
			cm.Counts += c
			if mito[i] {
				mitoCounts += c
			}
		}
		if cm.Counts > 0 {
			cm.MitoFrac = mitoCounts / cm.Counts
		}
		out.PerCell[j] = cm
	}
	return out
}

// Subset returns metrics restricted to the given cell positions, in order.
func (m *Metrics) Subset(keep []int) *Metrics {
	out := &Metrics{
		Cells:   make([]string, len(keep)),
		PerCell: make([]CellMetrics, len(keep)),
	}
	for k, j := range keep {
		out.Cells[k] = m.Cells[j]
		out.PerCell[k] = m.PerCell[j]
	}
	return out
}

// MitoFracs returns the mito fractions as a plain vector (covariate input
// for scaling).
func (m *Metrics) MitoFracs() []float64 {
	out := make([]float64, len(m.PerCell))
	for i, c := range m.PerCell {
		out[i] = c.MitoFrac
	}
	return out
}
