// core/reduce/tsne.go
package reduce

import (
	"fmt"
	"math/rand"

	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"
)

// TSNEParams configures the 2-D visualization embedding computed on the
// leading principal components. The embedding is cosmetic: cluster
// assignment never reads it.
type TSNEParams struct {
	Perplexity   float64 // 0 = 30
	LearningRate float64 // 0 = 300
	Iterations   int     // 0 = 1000
	Seed         int64
}

// TSNE runs Barnes-Hut t-SNE on the first dims columns of scores and
// returns cells×2 coordinates.
func TSNE(scores *mat.Dense, dims int, p TSNEParams) (*mat.Dense, error) {
	if scores == nil {
		return nil, fmt.Errorf("reduce: t-SNE needs component scores")
	}
	nc, k := scores.Dims()
	if dims <= 0 || dims > k {
		dims = k
	}
	if nc < 4 {
		return nil, fmt.Errorf("reduce: %d cells is too few for t-SNE", nc)
	}
	if p.Perplexity <= 0 {
		p.Perplexity = 30
	}
	if maxPerp := float64(nc-1) / 3; p.Perplexity > maxPerp {
		p.Perplexity = maxPerp
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 300
	}
	if p.Iterations <= 0 {
		p.Iterations = 1000
	}

	x := scores.Slice(0, nc, 0, dims)
	rand.Seed(p.Seed) // go-tsne draws its initial layout from the global source
	t := tsne.NewTSNE(2, p.Perplexity, p.LearningRate, p.Iterations, false)
	y := t.EmbedData(x, nil)
	return mat.DenseCopyOf(y), nil
}
