// core/normalize/scale.go
package normalize

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"scell-core/expr"
)

// DefaultScaleClip caps scaled values at ±10 so a handful of extreme cells
// cannot dominate a component.
const DefaultScaleClip = 10.0

// ScaleRegress centers every gene to zero mean / unit variance after
// regressing out a per-cell nuisance covariate (ordinary least squares,
// residuals kept). A nil covariate skips the regression. clip <= 0 applies
// DefaultScaleClip.
func ScaleRegress(norm *expr.Matrix, covariate []float64, clip float64) (*expr.Matrix, error) {
	if covariate != nil && len(covariate) != norm.NCells() {
		return nil, fmt.Errorf("normalize: covariate has %d values for %d cells", len(covariate), norm.NCells())
	}
	if clip <= 0 {
		clip = DefaultScaleClip
	}
	ng, nc := norm.NGenes(), norm.NCells()
	out := mat.NewDense(ng, nc, nil)
	row := make([]float64, nc)
	res := make([]float64, nc)
	for i := 0; i < ng; i++ {
		row = norm.GeneValues(i, row)

		if covariate != nil && stat.Variance(covariate, nil) > 0 {
			alpha, beta := stat.LinearRegression(covariate, row, nil, false)
			for j, v := range row {
				res[j] = v - (alpha + beta*covariate[j])
			}
		} else {
			copy(res, row)
		}

		mean := stat.Mean(res, nil)
		sd := stat.StdDev(res, nil)
		for j := range res {
			v := res[j] - mean
			if sd > 0 {
				v /= sd
			}
			if v > clip {
				v = clip
			} else if v < -clip {
				v = -clip
			}
			out.Set(i, j, v)
		}
	}
	return expr.New(norm.Genes(), norm.Cells(), out)
}
