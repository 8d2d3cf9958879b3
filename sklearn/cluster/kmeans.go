package cluster

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/core/random"
	"github.com/scigo/workflows/pkg/errors"
)

// KMeans is k-means clustering fitted with Lloyd's algorithm.
//
// A run stops when the labels no longer change, when the squared center
// shift summed over clusters falls to tol times the mean feature variance,
// or after maxIter iterations.
//
//	km := cluster.NewKMeans(
//	    cluster.WithKMeansNClusters(4),
//	    cluster.WithKMeansMaxIter(200),
//	    cluster.WithKMeansTol(1e-5),
//	    cluster.WithKMeansRandomState(42),
//	)
//	err := km.Fit(X)
//	labels, err := km.Predict(X)
type KMeans struct {
	params
	state *model.StateManager

	mu      sync.RWMutex
	centers *mat.Dense
	labels  []int
	inertia float64
	nIter   int
}

// NewKMeans returns a KMeans with scikit-learn defaults: 8 clusters,
// k-means++ seeding, 300 iterations, tol 1e-4.
func NewKMeans(options ...KMeansOption) *KMeans {
	km := &KMeans{
		params: params{
			nClusters: 8,
			init:      InitKMeansPlusPlus,
			maxIter:   300,
			tol:       1e-4,
		},
		state: model.NewStateManager(),
	}
	for _, opt := range options {
		opt(&km.params)
	}
	return km
}

// Fit computes cluster centers for X.
func (km *KMeans) Fit(X mat.Matrix) error {
	n, p := X.Dims()
	if err := km.validate(n); err != nil {
		return err
	}
	Xd := asDense(X)
	tol := km.tol * meanVariance(Xd)
	rng := random.New(km.randomState)

	var (
		bestCenters *mat.Dense
		bestLabels  []int
		bestInertia = math.Inf(1)
		bestNIter   int
	)
	for run := 0; run < km.runs(); run++ {
		centers := initCenters(Xd, km.nClusters, km.init, rng)
		labels, inertia, nIter := km.lloyd(Xd, centers, tol)
		if inertia < bestInertia {
			bestCenters, bestLabels, bestInertia, bestNIter = centers, labels, inertia, nIter
		}
	}

	if d := distinctLabels(bestLabels, km.nClusters); d < km.nClusters {
		errors.Warn(errors.NewConvergenceWarning("KMeans", bestNIter,
			fmt.Sprintf("number of distinct clusters (%d) found smaller than n_clusters (%d)", d, km.nClusters)))
	}

	km.mu.Lock()
	km.centers, km.labels, km.inertia, km.nIter = bestCenters, bestLabels, bestInertia, bestNIter
	km.mu.Unlock()
	km.state.SetFitted(n, p)
	return nil
}

// lloyd refines centers in place and returns the final labels, inertia and
// iteration count.
func (km *KMeans) lloyd(X, centers *mat.Dense, tol float64) ([]int, float64, int) {
	n, p := X.Dims()
	k := km.nClusters

	labels := make([]int, n)
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	dist := make([]float64, n)
	sums := mat.NewDense(k, p, nil)
	counts := make([]int, k)

	strict := false
	nIter := 0
	for iter := 0; iter < km.maxIter; iter++ {
		nIter = iter + 1
		assignLabels(X, centers, labels, dist, km.nJobs)

		sums.Zero()
		for c := range counts {
			counts[c] = 0
		}
		for i, l := range labels {
			floats.Add(sums.RawRowView(l), X.RawRowView(i))
			counts[l]++
		}
		relocateEmpty(X, sums, counts, labels, dist)

		var shift float64
		for c := 0; c < k; c++ {
			row := sums.RawRowView(c)
			floats.Scale(1/float64(counts[c]), row)
			shift += sqDist(row, centers.RawRowView(c))
		}
		centers.Copy(sums)

		if equalLabels(labels, prev) {
			strict = true
			break
		}
		if shift <= tol {
			break
		}
		copy(prev, labels)
	}

	if !strict {
		// labels must match the final centers
		assignLabels(X, centers, labels, dist, km.nJobs)
	}
	return labels, floats.Sum(dist), nIter
}

// relocateEmpty moves each empty cluster onto one of the rows farthest from
// their current center, taking that row out of its old cluster.
func relocateEmpty(X, sums *mat.Dense, counts, labels []int, dist []float64) {
	var empty []int
	for c, cnt := range counts {
		if cnt == 0 {
			empty = append(empty, c)
		}
	}
	if len(empty) == 0 {
		return
	}

	order := make([]int, len(dist))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] > dist[order[b]] })

	moved := 0
	for _, idx := range order {
		if moved == len(empty) {
			break
		}
		old := labels[idx]
		if counts[old] < 2 {
			continue
		}
		row := X.RawRowView(idx)
		floats.Sub(sums.RawRowView(old), row)
		counts[old]--
		c := empty[moved]
		copy(sums.RawRowView(c), row)
		counts[c] = 1
		moved++
	}
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Predict returns the index of the closest fitted center for each row.
func (km *KMeans) Predict(X mat.Matrix) ([]int, error) {
	if err := km.state.RequireFitted("KMeans", "Predict"); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := km.state.RequireFeatures("KMeans.Predict", p); err != nil {
		return nil, err
	}

	km.mu.RLock()
	defer km.mu.RUnlock()
	labels := make([]int, n)
	assignLabels(asDense(X), km.centers, labels, make([]float64, n), km.nJobs)
	return labels, nil
}

// FitPredict fits on X and returns the training labels.
func (km *KMeans) FitPredict(X mat.Matrix) ([]int, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return km.Labels(), nil
}

// ClusterCenters returns a copy of the k×p center matrix.
func (km *KMeans) ClusterCenters() *mat.Dense {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return copyDense(km.centers)
}

// Labels returns a copy of the training labels.
func (km *KMeans) Labels() []int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return append([]int(nil), km.labels...)
}

// Inertia is the sum of squared distances of training rows to their center.
func (km *KMeans) Inertia() float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.inertia
}

// NIter is the number of iterations of the selected run.
func (km *KMeans) NIter() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.nIter
}

var _ model.Clusterer = (*KMeans)(nil)
