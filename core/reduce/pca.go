// core/reduce/pca.go
package reduce

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"scell-core/expr"
)

// PCA holds the linear reduction of the scaled variable-gene submatrix.
// Scores are per-cell coordinates, Loadings per-variable-gene weights.
// Projected extends the loadings to every retained gene for interpretation;
// it never feeds clustering.
type PCA struct {
	NPCs     int
	VarGenes []string
	Cells    []string

	Scores   *mat.Dense // cells × NPCs
	Loadings *mat.Dense // len(VarGenes) × NPCs

	ProjectedGenes []string
	Projected      *mat.Dense // len(ProjectedGenes) × NPCs

	Explained []float64 // fraction of total variance per component
	PValues   []float64 // resampling significance, set by Jackstraw

	Singular []float64
}

// Run computes a thin SVD of the cells×genes view of the scaled matrix
// restricted to varGenes and keeps the k leading components.
func Run(scaled *expr.Matrix, varGenes []string, k int) (*PCA, error) {
	if k <= 0 {
		return nil, fmt.Errorf("reduce: component count %d", k)
	}
	sub, err := scaled.SubsetGeneNames(varGenes)
	if err != nil {
		return nil, err
	}
	nc, ng := sub.NCells(), sub.NGenes()
	if limit := minInt(nc, ng); k > limit {
		k = limit
	}

	// cells × genes
	x := mat.NewDense(nc, ng, nil)
	for i := 0; i < ng; i++ {
		for j := 0; j < nc; j++ {
			x.Set(j, i, sub.At(i, j))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("reduce: SVD failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	var total float64
	for _, sv := range s {
		total += sv * sv
	}
	if total <= 0 {
		return nil, fmt.Errorf("reduce: scaled matrix has no variance")
	}

	p := &PCA{
		NPCs:      k,
		VarGenes:  append([]string(nil), varGenes...),
		Cells:     append([]string(nil), sub.Cells()...),
		Scores:    mat.NewDense(nc, k, nil),
		Loadings:  mat.NewDense(ng, k, nil),
		Explained: make([]float64, k),
		Singular:  append([]float64(nil), s[:k]...),
	}
	for c := 0; c < k; c++ {
		p.Explained[c] = s[c] * s[c] / total
		for j := 0; j < nc; j++ {
			p.Scores.Set(j, c, u.At(j, c)*s[c])
		}
		for i := 0; i < ng; i++ {
			p.Loadings.Set(i, c, v.At(i, c))
		}
	}
	return p, nil
}

// Project computes component weights for every gene of the scaled matrix
// (variable or not) by projecting each gene's profile onto the unit cell
// factors.
func (p *PCA) Project(scaled *expr.Matrix) error {
	if scaled.NCells() != len(p.Cells) {
		return fmt.Errorf("reduce: projecting %d cells onto a %d-cell PCA", scaled.NCells(), len(p.Cells))
	}
	ng, nc := scaled.NGenes(), scaled.NCells()
	proj := mat.NewDense(ng, p.NPCs, nil)
	row := make([]float64, nc)
	for i := 0; i < ng; i++ {
		row = scaled.GeneValues(i, row)
		for c := 0; c < p.NPCs; c++ {
			if p.Singular[c] <= 0 {
				continue
			}
			var dot float64
			for j := 0; j < nc; j++ {
				dot += row[j] * p.Scores.At(j, c)
			}
			proj.Set(i, c, dot/(p.Singular[c]*p.Singular[c]))
		}
	}
	p.ProjectedGenes = append([]string(nil), scaled.Genes()...)
	p.Projected = proj
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
