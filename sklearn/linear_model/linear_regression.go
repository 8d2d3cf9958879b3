package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/pkg/errors"
)

// LinearRegression is ordinary least squares solved by QR factorization.
type LinearRegression struct {
	linearModel

	fitIntercept bool
}

// LinearRegressionOption configures a LinearRegression.
type LinearRegressionOption func(*LinearRegression)

// NewLinearRegression returns an OLS model that fits an intercept.
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		linearModel:  newLinearModel("LinearRegression"),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// WithLRFitIntercept toggles the intercept. Without it the data is assumed
// centered.
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) { lr.fitIntercept = fit }
}

// Fit solves min ||y - Xw - b||² for w and b.
func (lr *LinearRegression) Fit(X mat.Matrix, y mat.Vector) error {
	c, err := preprocess("LinearRegression.Fit", X, y, lr.fitIntercept)
	if err != nil {
		return err
	}
	n, p := len(c.y), len(c.cols)
	if n < p {
		return errors.NewValueError("LinearRegression.Fit", "fewer samples than features")
	}

	A := mat.NewDense(n, p, nil)
	for j, col := range c.cols {
		A.SetCol(j, col)
	}
	var qr mat.QR
	qr.Factorize(A)

	var w mat.VecDense
	if err := qr.SolveVecTo(&w, false, mat.NewVecDense(n, c.y)); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular design matrix", err)
	}
	lr.setFitted(c, mat.Col(nil, 0, &w))
	return nil
}

var _ model.Regressor = (*LinearRegression)(nil)
