package errors

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with cause",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "scigo: Fit: invalid input: test error",
		},
		{
			name:    "without cause",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "scigo: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 4, 3, 1)
	assert.Equal(t, "scigo: Predict: dimension mismatch on axis 1 (features). Expected 4, got 3", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Lasso", "Predict")
	assert.Equal(t, "scigo: Lasso: this model is not fitted yet. Call Fit() before using Predict()", err.Error())

	var notFitted *NotFittedError
	assert.True(t, As(err, &notFitted))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("alpha", "must be non-negative", -0.5)
	assert.Equal(t, "scigo: validation failed for parameter 'alpha': must be non-negative (got: -0.5)", err.Error())
}

func TestConvergenceWarningMessage(t *testing.T) {
	w := NewConvergenceWarning("CoordinateDescent", 1000, "duality gap 0.1 above tolerance 0.01")
	assert.Equal(t, "CoordinateDescent failed to converge after 1000 iterations: duality gap 0.1 above tolerance 0.01", w.Error())

	w = NewConvergenceWarning("KMeans", 300, "")
	assert.Contains(t, w.Error(), "Consider increasing max_iter")
}

func TestWarnRouting(t *testing.T) {
	var fallback, structured []error
	SetWarningHandler(func(w error) { fallback = append(fallback, w) })
	t.Cleanup(func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	})

	Warn(NewConvergenceWarning("KMeans", 10, ""))
	require.Len(t, fallback, 1)

	SetZerologWarnFunc(func(w error) { structured = append(structured, w) })
	Warn(NewUndefinedMetricWarning("r2", "fewer than two samples", math.NaN()))
	assert.Len(t, fallback, 1)
	require.Len(t, structured, 1)

	var metricWarn *UndefinedMetricWarning
	assert.True(t, As(structured[0], &metricWarn))
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d rows", "Fit", 10)
	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.Contains(t, wrapped.Error(), "in Fit: expected 10 rows")
}

func TestStackTrace(t *testing.T) {
	err := NewValueError("LoadIris", "bad row")
	assert.NotEmpty(t, StackTrace(err))
	assert.Empty(t, StackTrace(fmt.Errorf("plain")))
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("coef", []float64{1, 2, 3}, 0))

	err := CheckNumericalStability("coef", []float64{1, math.NaN()}, 7)
	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 7, numErr.Iteration)

	assert.Error(t, CheckScalar("gap", math.Inf(1), 1))
	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 2.0, SafeDivide(4, 2))
}
