// core/expr/matrix_test.go
package expr

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func mustMatrix(t *testing.T, genes, cells []string, vals []float64) *Matrix {
	t.Helper()
	m, err := NewFromValues(genes, cells, vals)
	if err != nil {
		t.Fatalf("NewFromValues: %v", err)
	}
	return m
}

func TestNewRejectsBadShapes(t *testing.T) {
	d := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if _, err := New([]string{"A"}, []string{"c1", "c2"}, d); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if _, err := New([]string{"A", "A"}, []string{"c1", "c2"}, d); err == nil {
		t.Fatal("expected duplicate gene error")
	}
	if _, err := New([]string{"A", "B"}, []string{"c1", ""}, d); err == nil {
		t.Fatal("expected empty cell name error")
	}
}

func TestSubsetCellsKeepsNamesAligned(t *testing.T) {
	m := mustMatrix(t, []string{"A", "B"}, []string{"c1", "c2", "c3"},
		[]float64{
			1, 2, 3,
			4, 5, 6,
		})
	sub, err := m.SubsetCells([]int{2, 0})
	if err != nil {
		t.Fatalf("SubsetCells: %v", err)
	}
	if got := sub.Cells(); got[0] != "c3" || got[1] != "c1" {
		t.Errorf("cells = %v, want [c3 c1]", got)
	}
	if sub.At(1, 0) != 6 || sub.At(1, 1) != 4 {
		t.Errorf("values did not follow the reorder: %v %v", sub.At(1, 0), sub.At(1, 1))
	}
	if sub.CellIndex("c2") != -1 {
		t.Error("dropped cell still indexed")
	}
}

func TestSubsetGeneNames(t *testing.T) {
	m := mustMatrix(t, []string{"A", "B", "C"}, []string{"c1"}, []float64{1, 2, 3})
	sub, err := m.SubsetGeneNames([]string{"C", "A"})
	if err != nil {
		t.Fatalf("SubsetGeneNames: %v", err)
	}
	if sub.NGenes() != 2 || sub.At(0, 0) != 3 || sub.At(1, 0) != 1 {
		t.Errorf("unexpected subset: genes=%v", sub.Genes())
	}
	if _, err := m.SubsetGeneNames([]string{"Z"}); err == nil {
		t.Error("expected unknown gene error")
	}
	if _, err := m.SubsetGenes(nil); err == nil {
		t.Error("expected empty subset error")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := mustMatrix(t, []string{"A"}, []string{"c1", "c2"}, []float64{1, 2})
	cl := m.Clone()
	cl.Set(0, 0, 99)
	if m.At(0, 0) != 1 {
		t.Error("clone shares backing storage with original")
	}
}
