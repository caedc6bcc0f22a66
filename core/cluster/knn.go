// core/cluster/knn.go
package cluster

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// neighborLists computes the k nearest neighbors (Euclidean, excluding
// self) for every row of scores. Brute force: cell counts here are in the
// thousands, not millions.
func neighborLists(scores *mat.Dense, k int) ([][]int, error) {
	n, d := scores.Dims()
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		return nil, fmt.Errorf("cluster: need at least 2 cells for a neighbor graph")
	}

	type cand struct {
		idx  int
		dist float64
	}
	out := make([][]int, n)
	cands := make([]cand, 0, n-1)
	for i := 0; i < n; i++ {
		cands = cands[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			var dist float64
			for c := 0; c < d; c++ {
				diff := scores.At(i, c) - scores.At(j, c)
				dist += diff * diff
			}
			cands = append(cands, cand{j, dist})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})
		nb := make([]int, k)
		for c := 0; c < k; c++ {
			nb[c] = cands[c].idx
		}
		sort.Ints(nb)
		out[i] = nb
	}
	return out, nil
}

// snnWeight is the shared-nearest-neighbor Jaccard overlap of two sorted
// neighbor lists (each list implicitly includes its own cell).
func snnWeight(i, j int, ni, nj []int) float64 {
	shared := 0
	a, b := 0, 0
	for a < len(ni) && b < len(nj) {
		switch {
		case ni[a] == nj[b]:
			shared++
			a++
			b++
		case ni[a] < nj[b]:
			a++
		default:
			b++
		}
	}
	if contains(ni, j) {
		shared++
	}
	if contains(nj, i) {
		shared++
	}
	union := len(ni) + len(nj) + 2 - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func contains(sorted []int, x int) bool {
	i := sort.SearchInts(sorted, x)
	return i < len(sorted) && sorted[i] == x
}
