package cluster

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/core/random"
	"github.com/scigo/workflows/pkg/errors"
)

// MiniBatchKMeans fits k-means on random mini-batches, moving each center
// towards its batch members with a per-center learning rate 1/count.
//
// Fitting stops after maxIter batches, once the squared center shift of a
// batch falls to tol times the mean feature variance, or once the full-data
// inertia has not improved on its best value for maxNoImprovement
// consecutive batches. Each Fit reseeds from the random state.
type MiniBatchKMeans struct {
	params
	state *model.StateManager

	mu      sync.RWMutex
	rng     *rand.Rand
	centers *mat.Dense
	counts  []int
	labels  []int
	inertia float64
	nIter   int
}

// NewMiniBatchKMeans returns a MiniBatchKMeans with 8 clusters, batches of
// 1024 rows, 100 iterations and 3 seedings.
func NewMiniBatchKMeans(options ...KMeansOption) *MiniBatchKMeans {
	mb := &MiniBatchKMeans{
		params: params{
			nClusters:        8,
			init:             InitKMeansPlusPlus,
			maxIter:          100,
			batchSize:        1024,
			nInit:            3,
			maxNoImprovement: 10,
		},
		state: model.NewStateManager(),
	}
	for _, opt := range options {
		opt(&mb.params)
	}
	mb.rng = random.New(mb.randomState)
	return mb
}

// Fit runs nInit mini-batch fits on X and keeps the lowest-inertia one.
func (mb *MiniBatchKMeans) Fit(X mat.Matrix) error {
	n, p := X.Dims()
	if err := mb.validate(n); err != nil {
		return err
	}
	if mb.batchSize <= 0 {
		return errors.NewValidationError("batch_size", "must be positive", mb.batchSize)
	}
	Xd := asDense(X)

	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.rng = random.New(mb.randomState)
	tol := mb.tol * meanVariance(Xd)
	bestInertia := math.Inf(1)
	var (
		bestCenters *mat.Dense
		bestCounts  []int
		bestNIter   int
	)
	for run := 0; run < mb.runs(); run++ {
		centers, counts, nIter := mb.fitSingleRun(Xd, tol)
		inertia := inertiaOf(Xd, centers, mb.nJobs)
		if inertia < bestInertia {
			bestCenters, bestCounts, bestInertia, bestNIter = centers, counts, inertia, nIter
		}
	}

	mb.centers, mb.counts, mb.nIter = bestCenters, bestCounts, bestNIter
	mb.labels = make([]int, n)
	dist := make([]float64, n)
	assignLabels(Xd, mb.centers, mb.labels, dist, mb.nJobs)
	mb.inertia = floats.Sum(dist)
	mb.state.SetFitted(n, p)
	return nil
}

// fitSingleRun returns the centers, counts and batch count of one seeding.
// tol is an absolute bound on the squared center shift.
func (mb *MiniBatchKMeans) fitSingleRun(X *mat.Dense, tol float64) (*mat.Dense, []int, int) {
	n, _ := X.Dims()
	centers := initCenters(X, mb.nClusters, mb.init, mb.rng)
	counts := make([]int, mb.nClusters)
	prev := mat.DenseCopyOf(centers)

	batch := make([]int, min(mb.batchSize, n))
	bestInertia := math.Inf(1)
	noImprovement := 0
	nIter := 0
	for iter := 0; iter < mb.maxIter; iter++ {
		nIter = iter + 1
		for i := range batch {
			batch[i] = mb.rng.IntN(n)
		}
		prev.Copy(centers)
		updateCenters(X, batch, centers, counts)

		if tol > 0 && centerShift(prev, centers) <= tol {
			break
		}

		inertia := inertiaOf(X, centers, mb.nJobs)
		if inertia < bestInertia {
			bestInertia = inertia
			noImprovement = 0
			continue
		}
		noImprovement++
		if noImprovement >= mb.maxNoImprovement {
			break
		}
	}
	return centers, counts, nIter
}

// centerShift is the summed squared distance between matching rows.
func centerShift(a, b *mat.Dense) float64 {
	k, _ := a.Dims()
	var shift float64
	for c := 0; c < k; c++ {
		shift += sqDist(a.RawRowView(c), b.RawRowView(c))
	}
	return shift
}

// PartialFit updates the centers with a single pass over the rows of X.
// The first call seeds the centers from X.
func (mb *MiniBatchKMeans) PartialFit(X mat.Matrix) error {
	n, p := X.Dims()
	Xd := asDense(X)

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.state.IsFitted() {
		if err := mb.validate(n); err != nil {
			return err
		}
		mb.centers = initCenters(Xd, mb.nClusters, mb.init, mb.rng)
		mb.counts = make([]int, mb.nClusters)
	} else if err := mb.state.RequireFeatures("MiniBatchKMeans.PartialFit", p); err != nil {
		return err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	updateCenters(Xd, idx, mb.centers, mb.counts)
	mb.nIter++

	mb.labels = make([]int, n)
	dist := make([]float64, n)
	assignLabels(Xd, mb.centers, mb.labels, dist, mb.nJobs)
	mb.inertia = floats.Sum(dist)
	seen, _ := mb.state.Dimensions()
	mb.state.SetFitted(seen+n, p)
	return nil
}

// updateCenters moves the nearest center of each batch row towards it.
func updateCenters(X *mat.Dense, batch []int, centers *mat.Dense, counts []int) {
	k, _ := centers.Dims()
	for _, idx := range batch {
		row := X.RawRowView(idx)
		best, bestD := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if d := sqDist(row, centers.RawRowView(c)); d < bestD {
				best, bestD = c, d
			}
		}
		counts[best]++
		eta := 1 / float64(counts[best])
		center := centers.RawRowView(best)
		for j, v := range row {
			center[j] += eta * (v - center[j])
		}
	}
}

func inertiaOf(X, centers *mat.Dense, nJobs int) float64 {
	n, _ := X.Dims()
	dist := make([]float64, n)
	assignLabels(X, centers, make([]int, n), dist, nJobs)
	return floats.Sum(dist)
}

// Predict returns the index of the closest center for each row.
func (mb *MiniBatchKMeans) Predict(X mat.Matrix) ([]int, error) {
	if err := mb.state.RequireFitted("MiniBatchKMeans", "Predict"); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := mb.state.RequireFeatures("MiniBatchKMeans.Predict", p); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	labels := make([]int, n)
	assignLabels(asDense(X), mb.centers, labels, make([]float64, n), mb.nJobs)
	return labels, nil
}

// ClusterCenters returns a copy of the k×p center matrix.
func (mb *MiniBatchKMeans) ClusterCenters() *mat.Dense {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return copyDense(mb.centers)
}

// Labels returns the labels of the rows seen by the last Fit or PartialFit.
func (mb *MiniBatchKMeans) Labels() []int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return append([]int(nil), mb.labels...)
}

// Inertia of the rows seen by the last Fit or PartialFit.
func (mb *MiniBatchKMeans) Inertia() float64 {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.inertia
}

// NIter is the number of mini-batches processed by the selected run.
func (mb *MiniBatchKMeans) NIter() int {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.nIter
}

var _ model.Clusterer = (*MiniBatchKMeans)(nil)
