package datasets

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/random"
	"github.com/scigo/workflows/pkg/errors"
)

// MakeBlobs draws nPerCenter isotropic Gaussian points around each row of
// centers and shuffles them. Y holds the index of the generating center.
func MakeBlobs(nPerCenter int, centers [][]float64, clusterStd float64, seed int64) (*Dataset, error) {
	if nPerCenter <= 0 {
		return nil, errors.NewValidationError("n_samples", "must be positive", nPerCenter)
	}
	if len(centers) == 0 {
		return nil, errors.NewValidationError("centers", "at least one center is required", len(centers))
	}
	if clusterStd < 0 {
		return nil, errors.NewValidationError("cluster_std", "must be non-negative", clusterStd)
	}
	nFeatures := len(centers[0])
	for i, c := range centers {
		if len(c) != nFeatures {
			return nil, errors.NewDimensionError(fmt.Sprintf("MakeBlobs center %d", i), nFeatures, len(c), 1)
		}
	}

	rng := random.New(seed)
	n := nPerCenter * len(centers)
	data := make([]float64, 0, n*nFeatures)
	labels := make([]float64, 0, n)
	for k, center := range centers {
		for i := 0; i < nPerCenter; i++ {
			for _, mu := range center {
				data = append(data, mu+clusterStd*rng.NormFloat64())
			}
			labels = append(labels, float64(k))
		}
	}

	X := mat.NewDense(n, nFeatures, nil)
	Y := mat.NewVecDense(n, nil)
	for dst, src := range rng.Perm(n) {
		X.SetRow(dst, data[src*nFeatures:(src+1)*nFeatures])
		Y.SetVec(dst, labels[src])
	}

	names := make([]string, nFeatures)
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j)
	}
	return newDataset("blobs", X, Y, names, nil)
}

// MakeRegression builds a random linear regression problem: standard normal
// features, nInformative non-zero coefficients drawn from U(0, 100), and
// Gaussian noise with standard deviation noise. The true coefficients are
// returned as well.
func MakeRegression(nSamples, nFeatures, nInformative int, noise float64, seed int64) (*Dataset, []float64, error) {
	if nSamples <= 0 || nFeatures <= 0 {
		return nil, nil, errors.NewValidationError("shape", "n_samples and n_features must be positive", [2]int{nSamples, nFeatures})
	}
	if nInformative < 0 || nInformative > nFeatures {
		return nil, nil, errors.NewValidationError("n_informative", "must be within [0, n_features]", nInformative)
	}

	rng := random.New(seed)
	X := mat.NewDense(nSamples, nFeatures, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}
	coef := make([]float64, nFeatures)
	for j := 0; j < nInformative; j++ {
		coef[j] = 100 * rng.Float64()
	}

	Y := mat.NewVecDense(nSamples, nil)
	Y.MulVec(X, mat.NewVecDense(nFeatures, coef))
	if noise > 0 {
		for i := 0; i < nSamples; i++ {
			Y.SetVec(i, Y.AtVec(i)+noise*rng.NormFloat64())
		}
	}

	names := make([]string, nFeatures)
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j)
	}
	ds, err := newDataset("regression", X, Y, names, nil)
	return ds, coef, err
}
