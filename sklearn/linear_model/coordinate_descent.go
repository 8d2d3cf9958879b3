package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/model"
	"github.com/scigo/workflows/core/random"
	"github.com/scigo/workflows/pkg/errors"
)

const (
	SelectionCyclic = "cyclic"
	SelectionRandom = "random"
)

// ElasticNet is linear regression with combined L1 and L2 penalties,
// minimizing
//
//	1/(2n)·||y - Xw||² + alpha·l1Ratio·||w||₁ + alpha·(1-l1Ratio)/2·||w||²
//
// by coordinate descent. Iteration stops once the duality gap drops below
// tol·||y||², or after maxIter sweeps with a ConvergenceWarning.
type ElasticNet struct {
	linearModel

	alpha        float64
	l1Ratio      float64
	fitIntercept bool
	maxIter      int
	tol          float64
	positive     bool
	selection    string
	randomState  int64

	nIter   int
	dualGap float64
}

// ElasticNetOption configures ElasticNet and Lasso.
type ElasticNetOption func(*ElasticNet)

// NewElasticNet returns an ElasticNet with alpha 1, l1Ratio 0.5, 1000
// iterations and tol 1e-4.
func NewElasticNet(options ...ElasticNetOption) *ElasticNet {
	return newElasticNet("ElasticNet", 0.5, options)
}

func newElasticNet(name string, l1Ratio float64, options []ElasticNetOption) *ElasticNet {
	en := &ElasticNet{
		linearModel:  newLinearModel(name),
		alpha:        1.0,
		l1Ratio:      l1Ratio,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-4,
		selection:    SelectionCyclic,
	}
	for _, opt := range options {
		opt(en)
	}
	return en
}

// WithAlpha sets the overall penalty strength.
func WithAlpha(alpha float64) ElasticNetOption {
	return func(en *ElasticNet) { en.alpha = alpha }
}

// WithL1Ratio sets the L1 share of the penalty, in [0, 1].
func WithL1Ratio(r float64) ElasticNetOption {
	return func(en *ElasticNet) { en.l1Ratio = r }
}

// WithFitIntercept toggles the intercept.
func WithFitIntercept(fit bool) ElasticNetOption {
	return func(en *ElasticNet) { en.fitIntercept = fit }
}

// WithMaxIter bounds the number of coordinate sweeps.
func WithMaxIter(n int) ElasticNetOption {
	return func(en *ElasticNet) { en.maxIter = n }
}

// WithTol sets the duality gap tolerance, relative to ||y||².
func WithTol(tol float64) ElasticNetOption {
	return func(en *ElasticNet) { en.tol = tol }
}

// WithPositive constrains the coefficients to be non-negative.
func WithPositive(on bool) ElasticNetOption {
	return func(en *ElasticNet) { en.positive = on }
}

// WithSelection sets the coordinate order, "cyclic" or "random".
func WithSelection(s string) ElasticNetOption {
	return func(en *ElasticNet) { en.selection = s }
}

// WithRandomState seeds random coordinate selection.
func WithRandomState(seed int64) ElasticNetOption {
	return func(en *ElasticNet) { en.randomState = seed }
}

func (en *ElasticNet) validate() error {
	switch {
	case en.alpha < 0 || math.IsNaN(en.alpha):
		return errors.NewValidationError("alpha", "must be non-negative", en.alpha)
	case en.l1Ratio < 0 || en.l1Ratio > 1:
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", en.l1Ratio)
	case en.maxIter <= 0:
		return errors.NewValidationError("max_iter", "must be positive", en.maxIter)
	case en.tol < 0:
		return errors.NewValidationError("tol", "must be non-negative", en.tol)
	case en.selection != SelectionCyclic && en.selection != SelectionRandom:
		return errors.NewValidationError("selection", "must be 'cyclic' or 'random'", en.selection)
	}
	return nil
}

// Fit runs coordinate descent from w = 0.
func (en *ElasticNet) Fit(X mat.Matrix, y mat.Vector) error {
	if err := en.validate(); err != nil {
		return err
	}
	c, err := preprocess(en.name+".Fit", X, y, en.fitIntercept)
	if err != nil {
		return err
	}
	n := float64(len(c.y))
	w, gap, nIter, converged := en.descend(c.cols, c.y, en.alpha*en.l1Ratio*n, en.alpha*(1-en.l1Ratio)*n)
	if !converged {
		errors.Warn(errors.NewConvergenceWarning(en.name, nIter,
			fmt.Sprintf("objective did not converge, duality gap %.3e > tolerance %.3e; "+
				"consider increasing the number of iterations", gap, en.tol*floats.Dot(c.y, c.y))))
	}
	if err := errors.CheckNumericalStability(en.name+".Fit", w, nIter); err != nil {
		return err
	}

	en.nIter, en.dualGap = nIter, gap
	en.setFitted(c, w)
	return nil
}

// descend minimizes 1/2·||y - Xw||² + l1·||w||₁ + l2/2·||w||² over the
// columns cols of X. It returns the weights, the final duality gap, the
// number of sweeps and whether the gap met the tolerance.
func (en *ElasticNet) descend(cols [][]float64, y []float64, l1, l2 float64) ([]float64, float64, int, bool) {
	p := len(cols)
	w := make([]float64, p)
	R := append([]float64(nil), y...)
	normCols := make([]float64, p)
	for j, col := range cols {
		normCols[j] = floats.Dot(col, col)
	}
	tol := en.tol * floats.Dot(y, y)

	var rng interface{ IntN(int) int }
	if en.selection == SelectionRandom {
		rng = random.New(en.randomState)
	}

	gap := tol + 1
	for iter := 0; iter < en.maxIter; iter++ {
		var wMax, dwMax float64
		for f := 0; f < p; f++ {
			j := f
			if rng != nil {
				j = rng.IntN(p)
			}
			if normCols[j] == 0 {
				continue
			}
			old := w[j]
			if old != 0 {
				floats.AddScaled(R, old, cols[j])
			}
			tmp := floats.Dot(cols[j], R)
			if en.positive && tmp < 0 {
				w[j] = 0
			} else {
				w[j] = math.Copysign(math.Max(math.Abs(tmp)-l1, 0), tmp) / (normCols[j] + l2)
			}
			if w[j] != 0 {
				floats.AddScaled(R, -w[j], cols[j])
			}
			dwMax = math.Max(dwMax, math.Abs(w[j]-old))
			wMax = math.Max(wMax, math.Abs(w[j]))
		}

		if wMax == 0 || dwMax/wMax < en.tol || iter == en.maxIter-1 {
			gap = dualityGap(cols, y, R, w, l1, l2, en.positive)
			if gap <= tol {
				return w, gap, iter + 1, true
			}
		}
	}
	return w, gap, en.maxIter, false
}

// dualityGap is the gap between the primal objective at w and the dual
// objective at the rescaled residual R.
func dualityGap(cols [][]float64, y, R, w []float64, l1, l2 float64, positive bool) float64 {
	var dualNorm float64
	for j, col := range cols {
		xta := floats.Dot(col, R) - l2*w[j]
		if !positive {
			xta = math.Abs(xta)
		}
		dualNorm = math.Max(dualNorm, xta)
	}

	rNorm2 := floats.Dot(R, R)
	wNorm2 := floats.Dot(w, w)
	var gap, scale float64
	if dualNorm > l1 {
		scale = l1 / dualNorm
		gap = 0.5 * (rNorm2 + rNorm2*scale*scale)
	} else {
		scale = 1
		gap = rNorm2
	}
	gap += l1*floats.Norm(w, 1) - scale*floats.Dot(R, y) + 0.5*l2*(1+scale*scale)*wNorm2
	return gap
}

// NIter is the number of coordinate sweeps run by the last Fit.
func (en *ElasticNet) NIter() int { return en.nIter }

// DualGap is the duality gap reached by the last Fit, in the solver's
// unnormalized units.
func (en *ElasticNet) DualGap() float64 { return en.dualGap }

// Alpha returns the penalty strength.
func (en *ElasticNet) Alpha() float64 { return en.alpha }

// Lasso is ElasticNet with a pure L1 penalty:
//
//	1/(2n)·||y - Xw||² + alpha·||w||₁
type Lasso struct {
	*ElasticNet
}

// NewLasso returns a Lasso with alpha 1, 1000 iterations and tol 1e-4. A
// WithL1Ratio option is ignored.
func NewLasso(options ...ElasticNetOption) *Lasso {
	en := newElasticNet("Lasso", 1, options)
	en.l1Ratio = 1
	return &Lasso{ElasticNet: en}
}

var (
	_ model.Regressor = (*ElasticNet)(nil)
	_ model.Regressor = (*Lasso)(nil)
)
