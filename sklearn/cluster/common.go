// Package cluster implements k-means clustering: Lloyd's algorithm (KMeans)
// and the mini-batch variant (MiniBatchKMeans).
package cluster

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/scigo/workflows/core/parallel"
	"github.com/scigo/workflows/pkg/errors"
)

const (
	InitKMeansPlusPlus = "k-means++"
	InitRandom         = "random"

	// rows below this are assigned on the calling goroutine
	parallelThreshold = 4096
)

// params holds the hyperparameters shared by both estimators.
type params struct {
	nClusters        int
	init             string
	maxIter          int
	tol              float64
	randomState      int64
	nInit            int // <= 0 picks 1 for k-means++ and 10 for random
	batchSize        int
	maxNoImprovement int
	nJobs            int
}

// KMeansOption configures KMeans and MiniBatchKMeans.
type KMeansOption func(*params)

// WithKMeansNClusters sets the number of clusters.
func WithKMeansNClusters(n int) KMeansOption {
	return func(p *params) { p.nClusters = n }
}

// WithKMeansInit sets the seeding method, "k-means++" or "random".
func WithKMeansInit(init string) KMeansOption {
	return func(p *params) { p.init = init }
}

// WithKMeansMaxIter bounds the number of iterations of a single run.
func WithKMeansMaxIter(maxIter int) KMeansOption {
	return func(p *params) { p.maxIter = maxIter }
}

// WithKMeansTol sets the convergence tolerance, relative to the mean
// per-feature variance of the training data. KMeans stops when the squared
// center shift of an iteration falls to it; MiniBatchKMeans applies the same
// bound per batch. Zero disables the shift test for MiniBatchKMeans.
func WithKMeansTol(tol float64) KMeansOption {
	return func(p *params) { p.tol = tol }
}

// WithKMeansRandomState seeds center initialisation and mini-batch draws.
func WithKMeansRandomState(seed int64) KMeansOption {
	return func(p *params) { p.randomState = seed }
}

// WithKMeansNInit sets how many seedings are tried; the run with the lowest
// inertia wins.
func WithKMeansNInit(n int) KMeansOption {
	return func(p *params) { p.nInit = n }
}

// WithKMeansBatchSize sets the mini-batch size (MiniBatchKMeans only).
func WithKMeansBatchSize(n int) KMeansOption {
	return func(p *params) { p.batchSize = n }
}

// WithKMeansNJobs bounds the goroutines used for label assignment. Values
// <= 0 use GOMAXPROCS. Results do not depend on it.
func WithKMeansNJobs(n int) KMeansOption {
	return func(p *params) { p.nJobs = n }
}

func (p *params) validate(nSamples int) error {
	if p.nClusters <= 0 {
		return errors.NewValidationError("n_clusters", "must be positive", p.nClusters)
	}
	if nSamples < p.nClusters {
		return errors.NewValidationError("n_clusters", "n_samples must be >= n_clusters", nSamples)
	}
	if p.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", p.maxIter)
	}
	if p.tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", p.tol)
	}
	if p.init != InitKMeansPlusPlus && p.init != InitRandom {
		return errors.NewValidationError("init", "must be 'k-means++' or 'random'", p.init)
	}
	return nil
}

func (p *params) runs() int {
	if p.nInit > 0 {
		return p.nInit
	}
	if p.init == InitRandom {
		return 10
	}
	return 1
}

func asDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i, v := range a {
		d := v - b[i]
		s += d * d
	}
	return s
}

// meanVariance is the mean of the per-column population variances.
func meanVariance(X *mat.Dense) float64 {
	n, p := X.Dims()
	col := make([]float64, n)
	var total float64
	for j := 0; j < p; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(p)
}

// initCenters seeds k centers from rows of X.
func initCenters(X *mat.Dense, k int, method string, rng *rand.Rand) *mat.Dense {
	if method == InitRandom {
		n, p := X.Dims()
		centers := mat.NewDense(k, p, nil)
		for c, idx := range rng.Perm(n)[:k] {
			centers.SetRow(c, X.RawRowView(idx))
		}
		return centers
	}
	return kmeansPlusPlus(X, k, rng)
}

// kmeansPlusPlus is greedy k-means++: each new center is the best of
// 2+ln(k) candidates drawn with probability proportional to the squared
// distance to the nearest existing center.
func kmeansPlusPlus(X *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, p := X.Dims()
	centers := mat.NewDense(k, p, nil)
	trials := 2 + int(math.Log(float64(k)))

	first := rng.IntN(n)
	centers.SetRow(0, X.RawRowView(first))

	closest := make([]float64, n)
	for i := 0; i < n; i++ {
		closest[i] = sqDist(X.RawRowView(i), X.RawRowView(first))
	}
	pot := floats.Sum(closest)

	cum := make([]float64, n)
	candDist := make([]float64, n)
	bestDist := make([]float64, n)
	for c := 1; c < k; c++ {
		floats.CumSum(cum, closest)

		bestPot, bestID := math.Inf(1), -1
		for t := 0; t < trials; t++ {
			id := sort.SearchFloat64s(cum, rng.Float64()*pot)
			if id >= n {
				id = n - 1
			}
			cand := X.RawRowView(id)
			var candPot float64
			for i := 0; i < n; i++ {
				d := math.Min(closest[i], sqDist(X.RawRowView(i), cand))
				candDist[i] = d
				candPot += d
			}
			if candPot < bestPot {
				bestPot, bestID = candPot, id
				copy(bestDist, candDist)
			}
		}

		centers.SetRow(c, X.RawRowView(bestID))
		copy(closest, bestDist)
		pot = bestPot
	}
	return centers
}

// assignLabels writes the index of the nearest center of each row of X into
// labels and the squared distance to it into dist. Each goroutine owns a
// disjoint row range.
func assignLabels(X, centers *mat.Dense, labels []int, dist []float64, nJobs int) {
	n, _ := X.Dims()
	k, _ := centers.Dims()
	parallel.ParallelizeWithThreshold(n, parallelThreshold, nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			row := X.RawRowView(i)
			best, bestD := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				if d := sqDist(row, centers.RawRowView(c)); d < bestD {
					best, bestD = c, d
				}
			}
			labels[i] = best
			dist[i] = bestD
		}
	})
}

// distinctLabels counts the clusters that received at least one row.
func distinctLabels(labels []int, k int) int {
	seen := make([]bool, k)
	count := 0
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			count++
		}
	}
	return count
}

func copyDense(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}
