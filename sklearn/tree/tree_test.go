package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/sklearn/model_selection"
)

func TestDecisionTreeClassifier_FitPredict_Binary(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithCriterion(CriterionGini), WithMaxDepth(5))
	require.NoError(t, dt.Fit(X, y))

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, pred))

	// one split separates the two groups, midway between 1 and 3
	root := dt.Root()
	require.False(t, root.IsLeaf())
	assert.Equal(t, 2.0, root.Threshold)
	assert.Equal(t, 1, dt.Depth())
	assert.Equal(t, 2, dt.NLeaves())

	pred, err = dt.Predict(mat.NewDense(2, 2, []float64{0.5, 0.5, 3.5, 3.5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, pred.RawVector().Data)
}

func TestDecisionTreeClassifier_PredictProba(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewVecDense(6, []float64{0, 0, 1, 0, 1, 1})

	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, floats.Sum(proba.RawRowView(i)), 1e-12)
	}
	// the stump splits at 1.5: {0,0} left, {1,0,1,1} right
	assert.Equal(t, 1.5, dt.Root().Threshold)
	assert.Equal(t, 1.0, proba.At(0, 0))
	assert.Equal(t, 0.75, proba.At(5, 1))
}

func TestDecisionTreeClassifier_XORNeedsDepth(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0, 0, 0.1, 1, 1, 1, 0.9,
		0, 1, 0.1, 1, 1, 0, 0.9, 0,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	deep := NewDecisionTreeClassifier(WithMaxDepth(5), WithRandomState(1))
	require.NoError(t, deep.Fit(X, y))
	score, err := deep.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	stump := NewDecisionTreeClassifier(WithMaxDepth(1), WithRandomState(1))
	require.NoError(t, stump.Fit(X, y))
	score, err = stump.Score(X, y)
	require.NoError(t, err)
	assert.Less(t, score, 1.0)
}

func TestDecisionTreeClassifier_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0, 1, 1, 0,
		5, 5, 5, 6, 6, 5,
		10, 0, 10, 1, 11, 0,
	})
	y := mat.NewVecDense(9, []float64{2, 2, 2, 5, 5, 5, 7, 7, 7})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, []float64{2, 5, 7}, dt.Classes())

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, pred))

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 3, c)
	assert.Equal(t, 1.0, proba.At(4, 1))
}

func TestDecisionTreeClassifier_Entropy(t *testing.T) {
	ds, err := datasets.LoadIris()
	require.NoError(t, err)

	dt := NewDecisionTreeClassifier(WithCriterion(CriterionEntropy), WithMaxDepth(3))
	require.NoError(t, dt.Fit(ds.X, ds.Y))
	score, err := dt.Score(ds.X, ds.Y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)
	assert.LessOrEqual(t, dt.Depth(), 3)
}

func TestDecisionTreeClassifier_FeatureImportances(t *testing.T) {
	// only feature 0 carries the label
	X := mat.NewDense(6, 2, []float64{
		0, 7, 1, 3, 2, 9,
		10, 3, 11, 7, 12, 9,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, imp)

	pure := NewDecisionTreeClassifier()
	require.NoError(t, pure.Fit(X, mat.NewVecDense(6, []float64{1, 1, 1, 1, 1, 1})))
	imp, err = pure.FeatureImportances()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, imp, "a single leaf has no importances")
	assert.Equal(t, 1, pure.NLeaves())
}

func TestDecisionTreeClassifier_Iris(t *testing.T) {
	ds, err := datasets.LoadIris()
	require.NoError(t, err)
	split, err := model_selection.TrainTestSplit(ds.X, ds.Y,
		model_selection.WithTestSize(0.2), model_selection.WithRandomState(42))
	require.NoError(t, err)

	dt := NewDecisionTreeClassifier(
		WithCriterion(CriterionGini),
		WithMaxDepth(100),
		WithMinSamplesSplit(2),
		WithMinSamplesLeaf(1),
	)
	require.NoError(t, dt.Fit(split.XTrain, split.YTrain))

	train, err := dt.Score(split.XTrain, split.YTrain)
	require.NoError(t, err)
	assert.Equal(t, 1.0, train, "an unbounded tree fits distinct training rows exactly")

	test, err := dt.Score(split.XTest, split.YTest)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, test, 0.8)

	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, floats.Sum(imp), 1e-12)
	// petal measurements dominate
	assert.Greater(t, imp[2]+imp[3], 0.8)
}

func TestDecisionTreeClassifier_MinSamples(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	y := mat.NewVecDense(10, []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1})

	dt := NewDecisionTreeClassifier(WithMinSamplesSplit(5), WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))

	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			assert.GreaterOrEqual(t, n.NSamples, 2)
			return
		}
		assert.GreaterOrEqual(t, n.NSamples, 5)
		walk(n.Left)
		walk(n.Right)
	}
	walk(dt.Root())
	assert.LessOrEqual(t, dt.NLeaves(), 5)
}

func TestDecisionTreeClassifier_MinImpurityDecrease(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewVecDense(6, []float64{0, 0, 1, 0, 1, 1})

	dt := NewDecisionTreeClassifier(WithMinImpurityDecrease(0.5))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.NLeaves())
}

func TestDecisionTreeClassifier_ExportText(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	text, err := dt.ExportText([]string{"x"})
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"|--- x <= 1.50",
		"|   |--- class: 0",
		"|--- x >  1.50",
		"|   |--- class: 1",
		"",
	}, "\n"), text)
}

func TestDecisionTreeClassifier_Errors(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(2, []float64{0, 1})

	dt := NewDecisionTreeClassifier()
	_, err := dt.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	_, err = dt.PredictProba(X)
	assert.True(t, errors.As(err, &nf))
	_, err = dt.FeatureImportances()
	assert.True(t, errors.As(err, &nf))

	var ve *errors.ValidationError
	assert.True(t, errors.As(NewDecisionTreeClassifier(WithCriterion("mse")).Fit(X, y), &ve))
	assert.True(t, errors.As(NewDecisionTreeClassifier(WithMinSamplesSplit(1)).Fit(X, y), &ve))

	var de *errors.DimensionError
	assert.True(t, errors.As(dt.Fit(X, mat.NewVecDense(3, nil)), &de))

	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, nil))
	assert.True(t, errors.As(err, &de))
}
