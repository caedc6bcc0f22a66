// core/normalize/normalize.go
package normalize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"scell-core/expr"
)

// DefaultScaleTotal is the common per-cell total after library-size
// normalization.
const DefaultScaleTotal = 1e4

// LibrarySize rescales every cell to scaleTotal un-logged counts and
// re-applies log1p. The input matrix is log-scale (the source data is a
// union of independently normalized sub-datasets, so totals differ per
// cell). The transform is monotonic within a cell.
func LibrarySize(m *expr.Matrix, scaleTotal float64) (*expr.Matrix, error) {
	if scaleTotal <= 0 {
		scaleTotal = DefaultScaleTotal
	}
	ng, nc := m.NGenes(), m.NCells()
	out := mat.NewDense(ng, nc, nil)
	col := make([]float64, ng)
	for j := 0; j < nc; j++ {
		col = m.CellValues(j, col)
		var total float64
		for _, v := range col {
			if v > 0 {
				total += math.Expm1(v)
			}
		}
		if total <= 0 {
			return nil, fmt.Errorf("normalize: cell %q has zero total counts", m.Cells()[j])
		}
		f := scaleTotal / total
		for i, v := range col {
			if v > 0 {
				out.Set(i, j, math.Log1p(math.Expm1(v)*f))
			}
		}
	}
	return expr.New(m.Genes(), m.Cells(), out)
}
