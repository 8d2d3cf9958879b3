package workflows

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/metrics"
	"github.com/scigo/workflows/performance"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
	"github.com/scigo/workflows/sklearn/linear_model"
	"github.com/scigo/workflows/sklearn/model_selection"
)

// RegressionResult is the outcome of RunRegression.
type RegressionResult struct {
	YValid      *mat.VecDense
	Predictions *mat.VecDense
	R2          float64
	MSE         float64
	Intercept   float64
	Coef        []float64
	NIter       int
}

// RunRegression fits a Lasso model to the Diabetes data and scores it on
// the validation rows. The Diabetes files come from env.Source, which
// defaults to the files bundled in the binary.
func RunRegression(ctx context.Context, c cfg.RegressionConfig, env Env) (*RegressionResult, error) {
	env = env.withDefaults()
	logger := env.Logger.With(log.ComponentKey, "regression")
	mem := env.reporter("regression", performance.StyleMegabytes)

	mem.Report("Before loading dataset")
	ds, err := datasets.LoadDiabetes(ctx, env.Source)
	if err != nil {
		return nil, errors.Wrap(err, "load diabetes")
	}
	split, err := model_selection.TrainTestSplit(ds.X, ds.Y,
		model_selection.WithTestSize(c.TestSize),
		model_selection.WithRandomState(c.RandomState),
	)
	if err != nil {
		return nil, err
	}

	mem.Report("Before training the model")
	lasso := linear_model.NewLasso(
		linear_model.WithAlpha(c.Alpha),
		linear_model.WithMaxIter(c.MaxIter),
		linear_model.WithTol(c.Tol),
	)
	if err := errors.SafeExecute("lasso fit", func() error { return lasso.Fit(split.XTrain, split.YTrain) }); err != nil {
		return nil, err
	}
	mem.Report("After training the model")

	if c.PrintCoefficients {
		fmt.Fprintf(env.Out, "Intercept: %s\n", FormatFloat(lasso.Intercept()))
		fmt.Fprintf(env.Out, "Coefficients: %s\n", FormatFloatArray(lasso.Coef()))
	}

	mem.Report("Before prediction")
	pred, err := lasso.Predict(split.XTest)
	if err != nil {
		return nil, err
	}
	mem.Report("After prediction")

	r2, err := metrics.R2Score(split.YTest, pred)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(env.Out, "R²: %s\n", FormatFloat(r2))
	mse, err := metrics.MSE(split.YTest, pred)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(env.Out, "Mean Squared Error: %s\n", FormatFloat(mse))

	logger.Info("regression finished",
		log.RegularizationKey, lasso.Alpha(),
		log.IterationKey, lasso.NIter(),
		log.DualGapKey, lasso.DualGap(),
		log.R2ScoreKey, r2,
		log.MSEKey, mse,
	)
	return &RegressionResult{
		YValid:      split.YTest,
		Predictions: pred,
		R2:          r2,
		MSE:         mse,
		Intercept:   lasso.Intercept(),
		Coef:        lasso.Coef(),
		NIter:       lasso.NIter(),
	}, nil
}
