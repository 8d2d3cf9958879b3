// Package linear_model implements linear regression estimators: ordinary
// least squares and the coordinate-descent family (ElasticNet, Lasso).
package linear_model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/metrics"
	"github.com/scigo/workflows/pkg/errors"
)

// linearModel holds the fitted parameters shared by every estimator here:
// predictions are X·coef + intercept.
type linearModel struct {
	name  string
	state *model.StateManager

	coef      []float64
	intercept float64
}

func newLinearModel(name string) linearModel {
	return linearModel{name: name, state: model.NewStateManager()}
}

// centered is a column-major copy of X with the means removed, ready for
// solvers that work feature by feature.
type centered struct {
	cols  [][]float64
	xMean []float64
	y     []float64
	yMean float64
}

// preprocess validates (X, y) and copies them into a centered layout. With
// fitIntercept false the means are zero and the data is copied unchanged.
func preprocess(op string, X mat.Matrix, y mat.Vector, fitIntercept bool) (*centered, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError(op, n, y.Len(), 0)
	}
	if err := errors.CheckMatrix(op, X, 0); err != nil {
		return nil, err
	}

	c := &centered{
		cols:  make([][]float64, p),
		xMean: make([]float64, p),
		y:     make([]float64, n),
	}
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, X)
		if fitIntercept {
			c.xMean[j] = floats.Sum(col) / float64(n)
			floats.AddConst(-c.xMean[j], col)
		}
		c.cols[j] = col
	}
	for i := range c.y {
		c.y[i] = y.AtVec(i)
	}
	if err := errors.CheckNumericalStability(op, c.y, 0); err != nil {
		return nil, err
	}
	if fitIntercept {
		c.yMean = floats.Sum(c.y) / float64(n)
		floats.AddConst(-c.yMean, c.y)
	}
	return c, nil
}

// setFitted stores coef and derives the intercept from the centering means.
func (m *linearModel) setFitted(c *centered, coef []float64) {
	m.coef = coef
	m.intercept = c.yMean - floats.Dot(c.xMean, coef)
	m.state.SetFitted(len(c.y), len(coef))
}

// Predict returns X·coef + intercept.
func (m *linearModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := m.state.RequireFitted(m.name, "Predict"); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := m.state.RequireFeatures(m.name+".Predict", p); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(n, nil)
	out.MulVec(X, mat.NewVecDense(p, append([]float64(nil), m.coef...)))
	for i := 0; i < n; i++ {
		out.SetVec(i, out.AtVec(i)+m.intercept)
	}
	return out, nil
}

// Score returns the R² of Predict(X) against y.
func (m *linearModel) Score(X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// Coef returns a copy of the fitted coefficients, nil before Fit.
func (m *linearModel) Coef() []float64 {
	if m.coef == nil {
		return nil
	}
	return append([]float64(nil), m.coef...)
}

// Intercept returns the fitted intercept.
func (m *linearModel) Intercept() float64 { return m.intercept }

// IsFitted reports whether Fit has succeeded.
func (m *linearModel) IsFitted() bool { return m.state.IsFitted() }
