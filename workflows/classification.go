package workflows

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/metrics"
	"github.com/scigo/workflows/performance"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
	"github.com/scigo/workflows/sklearn/model_selection"
	"github.com/scigo/workflows/sklearn/tree"
)

// ClassificationResult is the outcome of RunClassification.
type ClassificationResult struct {
	YTest       *mat.VecDense
	Predictions *mat.VecDense
	// Confusion is indexed by Labels on both axes: true rows, predicted
	// columns.
	Confusion   *mat.Dense
	Labels      []float64
	Accuracy    float64
	Importances []float64
	Depth       int
	NLeaves     int
}

// RunClassification trains a decision tree on the Iris data and evaluates
// it on the held-out rows.
func RunClassification(ctx context.Context, c cfg.ClassificationConfig, env Env) (*ClassificationResult, error) {
	env = env.withDefaults()
	logger := env.Logger.With(log.ComponentKey, "classification")
	mem := env.reporter("decisiontree", performance.StyleMegabytes)
	criterion := title(c.Criterion)

	mem.Report("Before loading dataset")
	ds, err := datasets.LoadIris()
	if err != nil {
		return nil, errors.Wrap(err, "load iris")
	}
	split, err := model_selection.TrainTestSplit(ds.X, ds.Y,
		model_selection.WithTestSize(c.TestSize),
		model_selection.WithRandomState(c.RandomState),
	)
	if err != nil {
		return nil, err
	}
	mem.Report("After loading dataset")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmt.Fprintf(env.Out, "Training model with %s criterion ...\n", criterion)
	mem.Report(fmt.Sprintf("Before training %s model", criterion))
	dt := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(c.Criterion),
		tree.WithMaxDepth(c.MaxDepth),
		tree.WithMinSamplesSplit(c.MinSamplesSplit),
		tree.WithMinSamplesLeaf(c.MinSamplesLeaf),
		tree.WithRandomState(c.RandomState),
	)
	if err := errors.SafeExecute("decision tree fit", func() error { return dt.Fit(split.XTrain, split.YTrain) }); err != nil {
		return nil, err
	}
	mem.Report(fmt.Sprintf("After training %s model", criterion))

	pred, err := dt.Predict(split.XTest)
	if err != nil {
		return nil, err
	}
	cm, labels, err := metrics.ConfusionMatrix(split.YTest, pred)
	if err != nil {
		return nil, err
	}
	acc, err := metrics.Accuracy(split.YTest, pred)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(env.Out, FormatIntMatrix(cm))
	fmt.Fprintf(env.Out, "Test accuracy with %s criterion: %.2f%%\n", criterion, acc*100)

	importances, err := dt.FeatureImportances()
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(env.Out, "Features importances: %s\n", FormatFloatArray(importances))

	if c.PrintTree {
		text, err := dt.ExportText(ds.FeatureNames)
		if err != nil {
			return nil, err
		}
		fmt.Fprint(env.Out, text)
	}

	nTrain, _ := split.XTrain.Dims()
	logger.Info("classification finished",
		log.SamplesKey, nTrain,
		log.ClassesKey, len(dt.Classes()),
		log.MaxDepthKey, dt.Depth(),
		log.AccuracyKey, acc,
	)
	return &ClassificationResult{
		YTest:       split.YTest,
		Predictions: pred,
		Confusion:   cm,
		Labels:      labels,
		Accuracy:    acc,
		Importances: importances,
		Depth:       dt.Depth(),
		NLeaves:     dt.NLeaves(),
	}, nil
}

// title upper-cases the first letter of a criterion name for display.
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
