// Package preprocessing provides feature scaling transformers.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/pkg/errors"
)

// StandardScaler centres each column and scales it to unit population
// variance. Columns with (near) zero variance keep a scale of 1.
type StandardScaler struct {
	state *model.StateManager

	withMean bool
	withStd  bool

	mean  []float64
	scale []float64
}

// ScalerOption configures a StandardScaler.
type ScalerOption func(*StandardScaler)

// WithMean toggles centring. Default true.
func WithMean(on bool) ScalerOption {
	return func(s *StandardScaler) { s.withMean = on }
}

// WithStd toggles scaling to unit variance. Default true.
func WithStd(on bool) ScalerOption {
	return func(s *StandardScaler) { s.withStd = on }
}

// NewStandardScaler returns a StandardScaler.
//
//	scaler := preprocessing.NewStandardScaler()
//	Xs, err := scaler.FitTransform(X)
func NewStandardScaler(opts ...ScalerOption) *StandardScaler {
	s := &StandardScaler{
		state:    model.NewStateManager(),
		withMean: true,
		withStd:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit computes the per-column mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.mean = make([]float64, c)
	s.scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.withMean {
			s.mean[j] = mean
		}
		s.scale[j] = 1
		if s.withStd {
			if sd := math.Sqrt(variance); sd > 1e-8*math.Max(1, math.Abs(mean)) {
				s.scale[j] = sd
			}
		}
	}

	s.state.SetFitted(r, c)
	return nil
}

// Transform standardises X with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	return s.apply("Transform", X, func(v float64, j int) float64 {
		return (v - s.mean[j]) / s.scale[j]
	})
}

// FitTransform fits on X and returns X standardised.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardised data back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	return s.apply("InverseTransform", X, func(v float64, j int) float64 {
		return v*s.scale[j] + s.mean[j]
	})
}

func (s *StandardScaler) apply(method string, X mat.Matrix, f func(v float64, j int) float64) (*mat.Dense, error) {
	if err := s.state.RequireFitted("StandardScaler", method); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler."+method, c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 { return f(v, j) }, X)
	return out, nil
}

// Mean returns the fitted column means (zeros when centring is disabled).
func (s *StandardScaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Scale returns the fitted column standard deviations.
func (s *StandardScaler) Scale() []float64 { return append([]float64(nil), s.scale...) }

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool { return s.state.IsFitted() }

var _ model.Transformer = (*StandardScaler)(nil)
