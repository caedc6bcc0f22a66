// core/cluster/louvain.go
package cluster

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// Params drives graph clustering on component scores. Resolution is the
// only granularity lever the workflow exposes.
type Params struct {
	K          int     // neighbors per cell (0 = 30)
	Resolution float64 // 0 = 0.6
	PruneBelow float64 // drop SNN edges weaker than this (0 = 1/15)
	Seed       uint64
}

// DefaultParams matches the workflow literals.
func DefaultParams() Params {
	return Params{K: 30, Resolution: 0.6, PruneBelow: 1.0 / 15}
}

// Louvain builds a pruned shared-nearest-neighbor graph over the cells'
// component scores and extracts communities by modularity optimization.
// Labels are renumbered by descending community size, so label 0 is always
// the largest cluster.
func Louvain(scores *mat.Dense, p Params) ([]int, error) {
	if p.K <= 0 {
		p.K = 30
	}
	if p.Resolution <= 0 {
		p.Resolution = 0.6
	}
	if p.PruneBelow <= 0 {
		p.PruneBelow = 1.0 / 15
	}

	n, _ := scores.Dims()
	neighbors, err := neighborLists(scores, p.K)
	if err != nil {
		return nil, err
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for _, j := range neighbors[i] {
			if j <= i {
				continue
			}
			w := snnWeight(i, j, neighbors[i], neighbors[j])
			if w < p.PruneBelow {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: w})
		}
	}

	reduced := community.Modularize(g, p.Resolution, rand.NewSource(p.Seed))
	comms := reduced.Communities()
	if len(comms) == 0 {
		return nil, fmt.Errorf("cluster: modularity optimization produced no communities")
	}

	// Sort communities by size (desc), then by smallest member for ties, so
	// label assignment is stable.
	sort.Slice(comms, func(a, b int) bool {
		if len(comms[a]) != len(comms[b]) {
			return len(comms[a]) > len(comms[b])
		}
		return minID(comms[a]) < minID(comms[b])
	})

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for label, comm := range comms {
		for _, node := range comm {
			labels[node.ID()] = label
		}
	}
	for i, l := range labels {
		if l < 0 {
			return nil, fmt.Errorf("cluster: cell %d received no community", i)
		}
	}
	return labels, nil
}

func minID(nodes []graph.Node) int64 {
	m := nodes[0].ID()
	for _, n := range nodes[1:] {
		if n.ID() < m {
			m = n.ID()
		}
	}
	return m
}

// Sizes tallies cells per label.
func Sizes(labels []int) map[int]int {
	out := map[int]int{}
	for _, l := range labels {
		out[l]++
	}
	return out
}
