package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is a supervised estimator that learns from X and targets y.
type Fitter interface {
	Fit(X mat.Matrix, y mat.Vector) error
}

// Predictor produces one prediction per row of X.
type Predictor interface {
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Scorer returns the estimator's default metric on (X, y): accuracy for
// classifiers, R² for regressors.
type Scorer interface {
	Score(X mat.Matrix, y mat.Vector) (float64, error)
}

// Regressor is a fitted-and-scored regression model.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier predicts class labels and per-class probabilities.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns an n×len(Classes()) matrix of class probabilities.
	PredictProba(X mat.Matrix) (*mat.Dense, error)

	// Classes returns the sorted labels seen during Fit.
	Classes() []float64
}

// Clusterer partitions unlabelled rows into clusters.
type Clusterer interface {
	Fit(X mat.Matrix) error

	// Predict assigns each row of X the index of its nearest cluster.
	Predict(X mat.Matrix) ([]int, error)

	ClusterCenters() *mat.Dense
	Inertia() float64
}

// Transformer learns a column-wise transformation and applies it.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
	FitTransform(X mat.Matrix) (*mat.Dense, error)
}
