// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
)

// HypergeomUpper returns P(X >= k) for X hypergeometric: n draws without
// replacement from a population of size N holding K successes.
func HypergeomUpper(k, N, K, n int) float64 {
	if K < 0 || n < 0 || K > N || n > N {
		return math.NaN()
	}
	lo := max(k, 0, n-(N-K))
	hi := min(K, n)
	if lo > hi {
		return 0
	}
	if k <= max(0, n-(N-K)) {
		return 1
	}
	logTotal := combin.LogGeneralizedBinomial(float64(N), float64(n))
	terms := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		terms = append(terms,
			combin.LogGeneralizedBinomial(float64(K), float64(i))+
				combin.LogGeneralizedBinomial(float64(N-K), float64(n-i))-
				logTotal)
	}
	return math.Min(1, math.Exp(floats.LogSumExp(terms)))
}

// AdjustBH applies the Benjamini-Hochberg correction. The result is
// aligned with p.
func AdjustBH(p []float64) []float64 {
	m := len(p)
	out := make([]float64, m)
	if m == 0 {
		return out
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })

	running := 1.0
	for rank := m; rank >= 1; rank-- {
		i := order[rank-1]
		v := p[i] * float64(m) / float64(rank)
		running = math.Min(running, v)
		out[i] = running
	}
	return out
}
