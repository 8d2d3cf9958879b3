// Package datasets provides the sample datasets used by the workflows:
// synthetic generators (blobs, linear regression), the Iris data embedded in
// the binary, and the Diabetes data downloaded once and cached on disk.
package datasets

import (
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/pkg/errors"
)

// Dataset is a feature matrix with one target value per row.
type Dataset struct {
	Name         string
	X            *mat.Dense
	Y            *mat.VecDense
	FeatureNames []string
	TargetNames  []string
}

// newDataset checks that X and Y agree on the number of rows.
func newDataset(name string, X *mat.Dense, Y *mat.VecDense, featureNames, targetNames []string) (*Dataset, error) {
	r, c := X.Dims()
	if Y != nil && Y.Len() != r {
		return nil, errors.NewDimensionError(name, r, Y.Len(), 0)
	}
	if featureNames != nil && len(featureNames) != c {
		return nil, errors.NewDimensionError(name+" feature names", c, len(featureNames), 1)
	}
	return &Dataset{
		Name:         name,
		X:            X,
		Y:            Y,
		FeatureNames: featureNames,
		TargetNames:  targetNames,
	}, nil
}

// Dims returns the number of samples and features.
func (d *Dataset) Dims() (nSamples, nFeatures int) {
	return d.X.Dims()
}
