// internal/pipeline/round_test.go
package pipeline

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"scell-core/expr"
	"scell-core/meta"
	"scell-core/qc"
	"scell-core/sc"
	"scell/internal/config"
)

// twoPopDataset builds 40 cells in two expression programs plus one
// mitochondrial gene, log scale, with deterministic jitter so every gene
// has variance.
func twoPopDataset(t *testing.T) *sc.Dataset {
	t.Helper()
	const nGenes, nCells = 31, 40
	genes := make([]string, nGenes)
	for i := 0; i < nGenes-1; i++ {
		genes[i] = "G" + string(rune('A'+i/10)) + string(rune('0'+i%10))
	}
	genes[nGenes-1] = "MT-ND1"
	cells := make([]string, nCells)
	for j := range cells {
		cells[j] = "CELL" + string(rune('A'+j/10)) + string(rune('0'+j%10))
	}

	values := make([]float64, nGenes*nCells)
	for i := 0; i < nGenes; i++ {
		for j := 0; j < nCells; j++ {
			jitter := 0.3 * math.Sin(float64(i*7+j*13))
			v := 1.0 + jitter
			switch {
			case i < 10 && j < 20:
				v += 3 // program A
			case i >= 10 && i < 20 && j >= 20:
				v += 3 // program B
			case i == nGenes-1:
				v = 0.5 + 0.1*jitter // mito, low everywhere
			}
			if v < 0 {
				v = 0
			}
			values[i*nCells+j] = v
		}
	}

	raw, err := expr.NewFromValues(genes, cells, values)
	if err != nil {
		t.Fatal(err)
	}
	table, err := meta.NewTable(cells)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := sc.New(raw, table, qc.Compute(raw, "MT-"))
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

// testParams keeps the round fast: loose QC, all genes variable, few
// jackstraw replicates, short embedding.
func testParams() config.Params {
	p := config.Defaults(1)
	p.MinGenes = 5
	p.MaxGenes = 1000
	p.MaxMitoFrac = 1.0
	p.MeanLow = 0
	p.MeanHigh = 100
	p.DispCutoff = -100
	p.PCs = 5
	p.JackstrawReps = 10
	p.JackstrawProp = 0.2
	p.Perplexity = 5
	p.TSNEIterations = 60
	p.Neighbors = 10
	p.Threads = 2
	return p
}

func TestRunRoundEndToEnd(t *testing.T) {
	ds := twoPopDataset(t)
	res, err := RunRound(ds, testParams(), 1, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	out := res.Dataset

	if res.CellsIn != 40 {
		t.Errorf("cells in = %d, want 40", res.CellsIn)
	}
	if res.CellsDropped != 40-out.NCells() {
		t.Errorf("dropped %d but %d cells remain of 40", res.CellsDropped, out.NCells())
	}
	if out.Round != 1 {
		t.Errorf("round = %d", out.Round)
	}
	if res.VarGenes == 0 || len(out.VarGenes) != res.VarGenes {
		t.Errorf("variable genes: result %d, dataset %d", res.VarGenes, len(out.VarGenes))
	}
	if out.PCA == nil || out.PCA.NPCs != res.PCsUsed {
		t.Fatalf("pca missing or component mismatch: %+v", res)
	}
	if len(out.PCA.PValues) != out.PCA.NPCs {
		t.Errorf("jackstraw p-values: %d for %d components", len(out.PCA.PValues), out.PCA.NPCs)
	}
	if r, c := out.TSNE.Dims(); r != out.NCells() || c != 2 {
		t.Errorf("t-SNE dims %dx%d", r, c)
	}
	if len(out.Clusters) != out.NCells() {
		t.Fatalf("%d labels for %d cells", len(out.Clusters), out.NCells())
	}
	if res.Clusters < 2 {
		t.Errorf("two expression programs should yield >= 2 clusters, got %d", res.Clusters)
	}
	if len(res.QC) != res.Clusters {
		t.Errorf("%d QC rows for %d clusters", len(res.QC), res.Clusters)
	}
	for _, col := range []string{"cluster", "tsne_1", "tsne_2", "n_gene", "n_umi", "percent_mito"} {
		if !out.Meta.HasColumn(col) {
			t.Errorf("metadata missing column %q", col)
		}
	}
	if err := out.Validate(); err != nil {
		t.Errorf("result dataset invalid: %v", err)
	}
}

func TestRunRoundDeterministic(t *testing.T) {
	p := testParams()
	a, err := RunRound(twoPopDataset(t), p, 1, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunRound(twoPopDataset(t), p, 1, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Dataset.Clusters) != len(b.Dataset.Clusters) {
		t.Fatal("label lengths differ")
	}
	for i := range a.Dataset.Clusters {
		if a.Dataset.Clusters[i] != b.Dataset.Clusters[i] {
			t.Fatalf("labels diverge at cell %d with a fixed seed", i)
		}
	}
}

func TestRunRoundAfterDrop(t *testing.T) {
	p := testParams()
	first, err := RunRound(twoPopDataset(t), p, 1, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if first.Clusters < 2 {
		t.Skipf("need >= 2 clusters to exercise drop, got %d", first.Clusters)
	}
	dropped, n, err := first.Dataset.DropCluster(first.QC[len(first.QC)-1].Cluster)
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 || dropped.NCells() >= first.Dataset.NCells() {
		t.Fatalf("drop removed %d cells, %d remain", n, dropped.NCells())
	}

	second, err := RunRound(dropped, p, 2, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if second.Dataset.Round != 2 {
		t.Errorf("round = %d", second.Dataset.Round)
	}
	if second.CellsIn != dropped.NCells() {
		t.Errorf("second round started from %d cells, want %d", second.CellsIn, dropped.NCells())
	}
}

func TestRunRoundRejectsEmptyFilter(t *testing.T) {
	p := testParams()
	p.MinGenes = 10000 // nothing can pass
	if _, err := RunRound(twoPopDataset(t), p, 1, zap.NewNop()); err == nil {
		t.Fatal("expected error when the QC filter removes every cell")
	}
}
