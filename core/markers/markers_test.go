// core/markers/markers_test.go
package markers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scell-core/expr"
)

// 20 cells: 10 in cluster 0, 10 in cluster 1.
// CD8A: high in cluster 1, broadly expressed there.
// RARE: huge effect but expressed in only 2/10 of cluster 1.
// HOUSE: flat everywhere.
func markerMatrix(t *testing.T) (*expr.Matrix, []int) {
	t.Helper()
	genes := []string{"CD8A", "RARE", "HOUSE"}
	nc := 20
	labels := make([]int, nc)
	vals := make([]float64, len(genes)*nc)
	for j := 0; j < nc; j++ {
		inOne := j >= 10
		if inOne {
			labels[j] = 1
		}
		if inOne {
			vals[0*nc+j] = math.Log1p(50)
			if j < 12 {
				vals[1*nc+j] = math.Log1p(500)
			}
		} else {
			if j == 0 {
				vals[0*nc+j] = math.Log1p(1)
			}
		}
		vals[2*nc+j] = math.Log1p(10)
	}
	m, err := expr.NewFromValues(genes, []string{
		"c00", "c01", "c02", "c03", "c04", "c05", "c06", "c07", "c08", "c09",
		"c10", "c11", "c12", "c13", "c14", "c15", "c16", "c17", "c18", "c19",
	}, vals)
	require.NoError(t, err)
	return m, labels
}

func TestFindPositiveMarkers(t *testing.T) {
	m, labels := markerMatrix(t)
	ms, err := Find(m, labels, DefaultParams())
	require.NoError(t, err)

	byGene := map[string]Marker{}
	for _, mk := range ms {
		if mk.Cluster == 1 {
			byGene[mk.Gene] = mk
		}
	}
	cd8, ok := byGene["CD8A"]
	require.True(t, ok, "CD8A should be a cluster-1 marker: %+v", ms)
	assert.Greater(t, cd8.LogFC, 0.25)
	assert.GreaterOrEqual(t, cd8.PctIn, 0.9)
	assert.Less(t, cd8.PValue, 0.01)

	assert.NotContains(t, byGene, "HOUSE", "flat gene must not be a marker")
}

func TestMinPctExcludesRareGene(t *testing.T) {
	m, labels := markerMatrix(t)
	ms, err := Find(m, labels, Params{MinPct: 0.25, MinLogFC: 0.25, OnlyPositive: true})
	require.NoError(t, err)
	for _, mk := range ms {
		assert.NotEqual(t, "RARE", mk.Gene,
			"gene expressed in 2/10 of the cluster passed the 0.25 pct gate")
	}
}

func TestZeroPctGateDisablesFilter(t *testing.T) {
	m, labels := markerMatrix(t)
	ms, err := Find(m, labels, Params{MinPct: 0, MinLogFC: 0.25, OnlyPositive: true})
	require.NoError(t, err)
	var rare bool
	for _, mk := range ms {
		if mk.Cluster == 1 && mk.Gene == "RARE" {
			rare = true
		}
	}
	assert.True(t, rare, "a zero pct gate must keep the 2/10-expressed gene: %+v", ms)

	// Negative still means "use the workflow default".
	ms, err = Find(m, labels, Params{MinPct: -1, MinLogFC: 0.25, OnlyPositive: true})
	require.NoError(t, err)
	for _, mk := range ms {
		assert.NotEqual(t, "RARE", mk.Gene)
	}
}

func TestFindNeedsTwoClusters(t *testing.T) {
	m, labels := markerMatrix(t)
	for i := range labels {
		labels[i] = 0
	}
	_, err := Find(m, labels, DefaultParams())
	require.Error(t, err)
}

func TestFindLabelLengthMismatch(t *testing.T) {
	m, _ := markerMatrix(t)
	_, err := Find(m, []int{0, 1}, DefaultParams())
	require.Error(t, err)
}

func TestTopN(t *testing.T) {
	ms := []Marker{
		{Cluster: 0, Gene: "A"}, {Cluster: 0, Gene: "B"}, {Cluster: 0, Gene: "C"},
		{Cluster: 1, Gene: "D"},
	}
	top := TopN(ms, 2)
	require.Len(t, top, 3)
	assert.Equal(t, "A", top[0].Gene)
	assert.Equal(t, "B", top[1].Gene)
	assert.Equal(t, "D", top[2].Gene)
}

func TestMannWhitneyU(t *testing.T) {
	shifted := mannWhitneyU(
		[]float64{5, 6, 7, 8, 9, 10, 11, 12},
		[]float64{0, 1, 2, 0, 1, 2, 0, 1},
	)
	assert.Less(t, shifted, 0.01, "clearly shifted samples")

	same := mannWhitneyU(
		[]float64{1, 2, 3, 4, 5, 6},
		[]float64{1, 2, 3, 4, 5, 6},
	)
	assert.Greater(t, same, 0.9, "identical samples")
}

func TestBenjaminiHochberg(t *testing.T) {
	q := benjaminiHochberg([]float64{0.01, 0.04, 0.03, 0.5})
	require.Len(t, q, 4)
	assert.InDelta(t, 0.04, q[0], 1e-12) // 0.01*4/1
	assert.InDelta(t, 0.5, q[3], 1e-12)
	for _, v := range q {
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Empty(t, benjaminiHochberg(nil))
}
