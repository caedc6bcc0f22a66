// core/markers/stats.go
package markers

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// mannWhitneyU computes a two-sided Mann-Whitney U p-value with the normal
// approximation and tie correction. Suitable for the group sizes seen per
// cluster; exact enumeration is not attempted.
func mannWhitneyU(a, b []float64) float64 {
	n1, n2 := len(a), len(b)
	if n1 == 0 || n2 == 0 {
		return 1
	}

	type obs struct {
		v     float64
		group int
	}
	all := make([]obs, 0, n1+n2)
	for _, v := range a {
		all = append(all, obs{v, 0})
	}
	for _, v := range b {
		all = append(all, obs{v, 1})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].v < all[j].v })

	// midranks with tie groups
	ranks := make([]float64, len(all))
	var tieTerm float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		r := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[k] = r
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}

	var r1 float64
	for i, o := range all {
		if o.group == 0 {
			r1 += ranks[i]
		}
	}
	u1 := r1 - float64(n1)*float64(n1+1)/2
	mu := float64(n1) * float64(n2) / 2

	n := float64(n1 + n2)
	sigma2 := float64(n1) * float64(n2) / 12 * (n + 1 - tieTerm/(n*(n-1)))
	if sigma2 <= 0 {
		return 1
	}
	z := (u1 - mu) / math.Sqrt(sigma2)
	// continuity correction toward the mean
	if z > 0 {
		z -= 0.5 / math.Sqrt(sigma2)
	} else if z < 0 {
		z += 0.5 / math.Sqrt(sigma2)
	}
	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))
	if p > 1 {
		p = 1
	}
	return p
}

// benjaminiHochberg converts p-values to FDR-adjusted q-values.
func benjaminiHochberg(p []float64) []float64 {
	n := len(p)
	if n == 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	q := make([]float64, n)
	prev := 1.0
	for rank := n - 1; rank >= 0; rank-- {
		i := idx[rank]
		v := p[i] * float64(n) / float64(rank+1)
		if v > prev {
			v = prev
		}
		prev = v
		q[i] = v
	}
	return q
}
