package workflows

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/performance"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
	"github.com/scigo/workflows/sklearn/cluster"
)

// ClusteringResult is the outcome of RunClustering.
type ClusteringResult struct {
	X       *mat.Dense
	Labels  []int
	Centers *mat.Dense
	Inertia float64
	NIter   int
	// Elapsed covers fitting and prediction.
	Elapsed time.Duration
}

type iterativeClusterer interface {
	model.Clusterer
	NIter() int
}

func newClusterer(c cfg.ClusteringConfig) iterativeClusterer {
	opts := []cluster.KMeansOption{
		cluster.WithKMeansNClusters(c.NClusters),
		cluster.WithKMeansMaxIter(c.MaxIter),
		cluster.WithKMeansTol(c.Tol),
		cluster.WithKMeansRandomState(c.RandomState),
		cluster.WithKMeansNJobs(c.NJobs),
	}
	if c.Algorithm == "minibatch" {
		opts = append(opts, cluster.WithKMeansBatchSize(c.BatchSize))
		return cluster.NewMiniBatchKMeans(opts...)
	}
	return cluster.NewKMeans(opts...)
}

// RunClustering generates Gaussian blobs around c.Centers, fits k-means to
// them and assigns every point a cluster.
func RunClustering(ctx context.Context, c cfg.ClusteringConfig, env Env) (*ClusteringResult, error) {
	env = env.withDefaults()
	logger := env.Logger.With(log.ComponentKey, "clustering")
	mem := env.reporter("clustering", performance.StyleBytes)

	mem.Report("Before dataset generation")
	ds, err := datasets.MakeBlobs(c.SamplesPerCenter, c.Centers, c.ClusterStd, c.RandomState)
	if err != nil {
		return nil, errors.Wrap(err, "generate blobs")
	}
	mem.Report("After dataset generation")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := env.Now()
	km := newClusterer(c)
	if err := errors.SafeExecute("clustering fit", func() error { return km.Fit(ds.X) }); err != nil {
		return nil, err
	}
	mem.Report("After model fitting")

	var labels []int
	err = errors.SafeExecute("clustering predict", func() error {
		var err error
		labels, err = km.Predict(ds.X)
		return err
	})
	if err != nil {
		return nil, err
	}
	elapsed := env.Now().Sub(start)
	fmt.Fprintf(env.Out, "Elapsed time: %v\n", elapsed)
	mem.Report("After prediction")

	res := &ClusteringResult{
		X:       ds.X,
		Labels:  labels,
		Centers: km.ClusterCenters(),
		Inertia: km.Inertia(),
		NIter:   km.NIter(),
		Elapsed: elapsed,
	}
	n, p := ds.Dims()
	logger.Info("clustering finished",
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.NClustersKey, c.NClusters,
		log.IterationKey, res.NIter,
		log.InertiaKey, res.Inertia,
		log.DurationMsKey, elapsed.Milliseconds(),
	)

	if c.SaveDir != "" {
		if err := saveClusters(c.SaveDir, res); err != nil {
			return nil, err
		}
		mem.Report("After saving to disk")
	}
	if c.PlotPath != "" {
		if err := plotClusters(c.PlotPath, res); err != nil {
			return nil, err
		}
		logger.Info("cluster plot written", "path", c.PlotPath)
	}
	return res, nil
}
