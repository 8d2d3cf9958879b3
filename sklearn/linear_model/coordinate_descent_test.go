package linear_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/pkg/errors"
)

// line is y = 2x + 1 on x = 1..4.
func line() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{3, 5, 7, 9})
	return X, y
}

func TestLasso_SingleFeatureSoftThreshold(t *testing.T) {
	X, y := line()
	// centered x·y = 10, ||x||² = 5, alpha·n = 2: w = (10-2)/5
	lasso := NewLasso(WithAlpha(0.5))
	require.NoError(t, lasso.Fit(X, y))

	require.Len(t, lasso.Coef(), 1)
	assert.InDelta(t, 1.6, lasso.Coef()[0], 1e-12)
	assert.InDelta(t, 2.0, lasso.Intercept(), 1e-12)
	assert.Equal(t, 2, lasso.NIter())
	assert.InDelta(t, 0, lasso.DualGap(), 1e-9)

	pred, err := lasso.Predict(mat.NewDense(1, 1, []float64{10}))
	require.NoError(t, err)
	assert.InDelta(t, 18.0, pred.AtVec(0), 1e-12)
}

func TestLasso_LargeAlphaZeroesEverything(t *testing.T) {
	ds, _, err := datasets.MakeRegression(50, 4, 4, 1, 3)
	require.NoError(t, err)

	lasso := NewLasso(WithAlpha(1e6))
	require.NoError(t, lasso.Fit(ds.X, ds.Y))
	assert.Equal(t, []float64{0, 0, 0, 0}, lasso.Coef())
	assert.Equal(t, 1, lasso.NIter())

	var mean float64
	for i := 0; i < 50; i++ {
		mean += ds.Y.AtVec(i)
	}
	assert.InDelta(t, mean/50, lasso.Intercept(), 1e-9)
}

func TestLasso_RecoversSparseSupport(t *testing.T) {
	ds, coef, err := datasets.MakeRegression(200, 8, 3, 1, 42)
	require.NoError(t, err)

	lasso := NewLasso(WithAlpha(1))
	require.NoError(t, lasso.Fit(ds.X, ds.Y))

	got := lasso.Coef()
	for j := 0; j < 3; j++ {
		assert.InDelta(t, coef[j], got[j], 2.5, "informative coefficient %d", j)
	}
	for j := 3; j < 8; j++ {
		assert.Zero(t, got[j], "uninformative coefficient %d", j)
	}

	r2, err := lasso.Score(ds.X, ds.Y)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.99)
}

func TestLasso_ZeroAlphaMatchesLeastSquares(t *testing.T) {
	ds, _, err := datasets.MakeRegression(100, 5, 5, 5, 7)
	require.NoError(t, err)

	ols := NewLinearRegression()
	require.NoError(t, ols.Fit(ds.X, ds.Y))

	lasso := NewLasso(WithAlpha(0), WithTol(1e-12), WithMaxIter(10000))
	require.NoError(t, lasso.Fit(ds.X, ds.Y))

	assert.InDeltaSlice(t, ols.Coef(), lasso.Coef(), 1e-4)
	assert.InDelta(t, ols.Intercept(), lasso.Intercept(), 1e-4)
}

func TestLasso_RandomSelectionAgreesWithCyclic(t *testing.T) {
	ds, _, err := datasets.MakeRegression(120, 6, 4, 2, 11)
	require.NoError(t, err)

	cyclic := NewLasso(WithAlpha(0.3), WithTol(1e-10), WithMaxIter(5000))
	require.NoError(t, cyclic.Fit(ds.X, ds.Y))
	shuffled := NewLasso(WithAlpha(0.3), WithTol(1e-10), WithMaxIter(5000),
		WithSelection(SelectionRandom), WithRandomState(5))
	require.NoError(t, shuffled.Fit(ds.X, ds.Y))

	assert.InDeltaSlice(t, cyclic.Coef(), shuffled.Coef(), 1e-4)
}

func TestLasso_NonConvergenceWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	ds, _, err := datasets.MakeRegression(100, 6, 6, 10, 1)
	require.NoError(t, err)
	lasso := NewLasso(WithAlpha(0.1), WithMaxIter(1), WithTol(1e-15))
	require.NoError(t, lasso.Fit(ds.X, ds.Y))

	require.Len(t, warnings, 1)
	var cw *errors.ConvergenceWarning
	require.True(t, errors.As(warnings[0], &cw))
	assert.Equal(t, "Lasso", cw.Algorithm)
	assert.Equal(t, 1, cw.Iterations)
	assert.True(t, lasso.IsFitted(), "a non-converged fit is still usable")
}

func TestLasso_Positive(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{-2, -4, -6, -8})

	lasso := NewLasso(WithAlpha(0.01), WithPositive(true))
	require.NoError(t, lasso.Fit(X, y))
	assert.Equal(t, []float64{0}, lasso.Coef())
}

func TestLasso_IgnoresL1Ratio(t *testing.T) {
	lasso := NewLasso(WithL1Ratio(0.2))
	assert.Equal(t, 1.0, lasso.l1Ratio)
}

func TestElasticNet_PureL2(t *testing.T) {
	X, y := line()
	// l1Ratio 0 is ridge: w = x·y / (||x||² + alpha·n)
	en := NewElasticNet(WithAlpha(0.5), WithL1Ratio(0))
	require.NoError(t, en.Fit(X, y))
	assert.InDelta(t, 10.0/7.0, en.Coef()[0], 1e-9)
}

func TestElasticNet_NoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{2, 4, 6})

	en := NewElasticNet(WithAlpha(0), WithFitIntercept(false), WithTol(1e-12))
	require.NoError(t, en.Fit(X, y))
	assert.Zero(t, en.Intercept())
	assert.InDelta(t, 2.0, en.Coef()[0], 1e-9)
}

func TestElasticNet_Errors(t *testing.T) {
	X, y := line()

	var ve *errors.ValidationError
	assert.True(t, errors.As(NewLasso(WithAlpha(-1)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewElasticNet(WithL1Ratio(2)).Fit(X, y), &ve))
	assert.True(t, errors.As(NewLasso(WithSelection("greedy")).Fit(X, y), &ve))
	assert.True(t, errors.As(NewLasso(WithMaxIter(0)).Fit(X, y), &ve))

	var de *errors.DimensionError
	assert.True(t, errors.As(NewLasso().Fit(X, mat.NewVecDense(3, nil)), &de))

	lasso := NewLasso()
	_, err := lasso.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Nil(t, lasso.Coef())

	require.NoError(t, lasso.Fit(X, y))
	_, err = lasso.Predict(mat.NewDense(1, 2, nil))
	assert.True(t, errors.As(err, &de))
}
