// core/reduce/jackstraw.go
package reduce

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"scell-core/expr"
)

// JackstrawParams drives the component-significance resampling: Prop of the
// variable genes are permuted across cells, the reduction is re-run, and
// the permuted explained-variance spectrum forms the null.
type JackstrawParams struct {
	Replicates int     // 0 = 100
	Prop       float64 // 0 = 0.01
	Seed       uint64
	Workers    int // 0 = all CPUs
}

// Jackstraw fills p.PValues with empirical one-sided p-values per
// component: the fraction of permuted replicates whose matching component
// explains at least as much variance as the observed one. Each replicate
// draws from a deterministic per-replicate seed, so results do not depend
// on worker scheduling.
func Jackstraw(p *PCA, scaled *expr.Matrix, jp JackstrawParams) error {
	if jp.Replicates <= 0 {
		jp.Replicates = 100
	}
	if jp.Prop <= 0 {
		jp.Prop = 0.01
	}
	if jp.Workers <= 0 {
		jp.Workers = runtime.NumCPU()
	}

	sub, err := scaled.SubsetGeneNames(p.VarGenes)
	if err != nil {
		return err
	}
	nPerm := int(jp.Prop * float64(sub.NGenes()))
	if nPerm < 1 {
		nPerm = 1
	}

	exceed := make([]int, p.NPCs)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(jp.Workers)
	for rep := 0; rep < jp.Replicates; rep++ {
		rep := rep
		g.Go(func() error {
			rng := rand.New(rand.NewSource(jp.Seed + uint64(rep)*7919))
			perm := sub.Clone()
			permuteGenes(perm, nPerm, rng)
			null, err := Run(perm, perm.Genes(), p.NPCs)
			if err != nil {
				return fmt.Errorf("reduce: replicate %d: %w", rep, err)
			}
			mu.Lock()
			for c := 0; c < p.NPCs && c < null.NPCs; c++ {
				if null.Explained[c] >= p.Explained[c] {
					exceed[c]++
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.PValues = make([]float64, p.NPCs)
	for c := range p.PValues {
		p.PValues[c] = (float64(exceed[c]) + 1) / (float64(jp.Replicates) + 1)
	}
	return nil
}

// SignificantPCs counts leading components with p below alpha, stopping at
// the first non-significant one.
func (p *PCA) SignificantPCs(alpha float64) int {
	n := 0
	for _, pv := range p.PValues {
		if pv >= alpha {
			break
		}
		n++
	}
	return n
}

// permuteGenes shuffles the values of nPerm randomly chosen genes across
// cells, in place.
func permuteGenes(m *expr.Matrix, nPerm int, rng *rand.Rand) {
	rows := rng.Perm(m.NGenes())[:nPerm]
	vals := make([]float64, m.NCells())
	for _, i := range rows {
		vals = m.GeneValues(i, vals)
		rng.Shuffle(len(vals), func(a, b int) { vals[a], vals[b] = vals[b], vals[a] })
		for j, v := range vals {
			m.Set(i, j, v)
		}
	}
}
