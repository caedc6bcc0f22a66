// core/expr/matrix.go
package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense genes×cells expression matrix with named rows (gene
// symbols) and columns (cell barcodes). Name slices and matrix dimensions
// always agree; subsetting returns a fresh Matrix, never a view.
type Matrix struct {
	genes   []string
	cells   []string
	geneIdx map[string]int
	cellIdx map[string]int
	data    *mat.Dense
}

// New validates names against data dimensions and builds the index maps.
func New(genes, cells []string, data *mat.Dense) (*Matrix, error) {
	r, c := data.Dims()
	if r != len(genes) || c != len(cells) {
		return nil, fmt.Errorf("expr: matrix is %dx%d but %d genes / %d cells named", r, c, len(genes), len(cells))
	}
	gi, err := index("gene", genes)
	if err != nil {
		return nil, err
	}
	ci, err := index("cell", cells)
	if err != nil {
		return nil, err
	}
	return &Matrix{
		genes:   append([]string(nil), genes...),
		cells:   append([]string(nil), cells...),
		geneIdx: gi,
		cellIdx: ci,
		data:    data,
	}, nil
}

func index(kind string, names []string) (map[string]int, error) {
	m := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("expr: empty %s name at position %d", kind, i)
		}
		if _, dup := m[n]; dup {
			return nil, fmt.Errorf("expr: duplicate %s name %q", kind, n)
		}
		m[n] = i
	}
	return m, nil
}

func (m *Matrix) NGenes() int { return len(m.genes) }
func (m *Matrix) NCells() int { return len(m.cells) }

// Genes returns the gene symbols in row order. Callers must not mutate.
func (m *Matrix) Genes() []string { return m.genes }

// Cells returns the cell barcodes in column order. Callers must not mutate.
func (m *Matrix) Cells() []string { return m.cells }

func (m *Matrix) At(gene, cell int) float64 { return m.data.At(gene, cell) }

func (m *Matrix) Set(gene, cell int, v float64) { m.data.Set(gene, cell, v) }

// Data exposes the backing dense matrix for numeric routines.
func (m *Matrix) Data() *mat.Dense { return m.data }

// GeneIndex returns the row of a gene symbol, or -1.
func (m *Matrix) GeneIndex(name string) int {
	if i, ok := m.geneIdx[name]; ok {
		return i
	}
	return -1
}

// CellIndex returns the column of a cell barcode, or -1.
func (m *Matrix) CellIndex(name string) int {
	if i, ok := m.cellIdx[name]; ok {
		return i
	}
	return -1
}

// GeneValues copies row i (expression of one gene across cells) into dst,
// allocating when dst is nil or too short.
func (m *Matrix) GeneValues(i int, dst []float64) []float64 {
	if cap(dst) < len(m.cells) {
		dst = make([]float64, len(m.cells))
	}
	dst = dst[:len(m.cells)]
	for j := range dst {
		dst[j] = m.data.At(i, j)
	}
	return dst
}

// CellValues copies column j (one cell's expression profile) into dst.
func (m *Matrix) CellValues(j int, dst []float64) []float64 {
	if cap(dst) < len(m.genes) {
		dst = make([]float64, len(m.genes))
	}
	dst = dst[:len(m.genes)]
	for i := range dst {
		dst[i] = m.data.At(i, j)
	}
	return dst
}

// SubsetGenes returns a new matrix with rows restricted to keep (by row
// index, in the given order).
func (m *Matrix) SubsetGenes(keep []int) (*Matrix, error) {
	if len(keep) == 0 {
		return nil, fmt.Errorf("expr: gene subset is empty")
	}
	genes := make([]string, len(keep))
	data := mat.NewDense(len(keep), len(m.cells), nil)
	for r, i := range keep {
		if i < 0 || i >= len(m.genes) {
			return nil, fmt.Errorf("expr: gene index %d out of range", i)
		}
		genes[r] = m.genes[i]
		for j := range m.cells {
			data.Set(r, j, m.data.At(i, j))
		}
	}
	return New(genes, m.cells, data)
}

// SubsetCells returns a new matrix with columns restricted to keep (by
// column index, in the given order).
func (m *Matrix) SubsetCells(keep []int) (*Matrix, error) {
	if len(keep) == 0 {
		return nil, fmt.Errorf("expr: cell subset is empty")
	}
	cells := make([]string, len(keep))
	data := mat.NewDense(len(m.genes), len(keep), nil)
	for c, j := range keep {
		if j < 0 || j >= len(m.cells) {
			return nil, fmt.Errorf("expr: cell index %d out of range", j)
		}
		cells[c] = m.cells[j]
		for i := range m.genes {
			data.Set(i, c, m.data.At(i, j))
		}
	}
	return New(m.genes, cells, data)
}

// SubsetGeneNames is SubsetGenes keyed by symbol.
func (m *Matrix) SubsetGeneNames(names []string) (*Matrix, error) {
	keep := make([]int, len(names))
	for k, n := range names {
		i := m.GeneIndex(n)
		if i < 0 {
			return nil, fmt.Errorf("expr: unknown gene %q", n)
		}
		keep[k] = i
	}
	return m.SubsetGenes(keep)
}

// Clone deep-copies the matrix.
func (m *Matrix) Clone() *Matrix {
	var d mat.Dense
	d.CloneFrom(m.data)
	out, _ := New(m.genes, m.cells, &d)
	return out
}
