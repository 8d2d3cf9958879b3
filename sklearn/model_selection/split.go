// Package model_selection provides train/test splitting.
package model_selection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/core/random"
	"github.com/scigo/workflows/pkg/errors"
)

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

type splitConfig struct {
	testSize    float64
	randomState int64
	shuffle     bool
}

// WithTestSize sets the fraction of rows held out, in (0, 1). Default 0.25.
func WithTestSize(f float64) SplitOption {
	return func(c *splitConfig) { c.testSize = f }
}

// WithRandomState seeds the shuffle.
func WithRandomState(seed int64) SplitOption {
	return func(c *splitConfig) { c.randomState = seed }
}

// WithShuffle toggles shuffling. Without it the last rows form the test set.
func WithShuffle(on bool) SplitOption {
	return func(c *splitConfig) { c.shuffle = on }
}

// Split is the result of TrainTestSplit. TrainIndex and TestIndex are row
// indices into the original input.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.VecDense

	TrainIndex, TestIndex []int
}

// SplitSizes returns the test and train row counts for n samples:
// ceil(testSize·n) and the rest.
func SplitSizes(n int, testSize float64) (nTrain, nTest int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return 0, 0, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest = int(math.Ceil(testSize * float64(n)))
	nTrain = n - nTest
	if nTrain <= 0 || nTest <= 0 {
		return 0, 0, errors.NewValueError("TrainTestSplit",
			"with the given test_size the resulting train or test set would be empty")
	}
	return nTrain, nTest, nil
}

// TrainTestSplit partitions the rows of X and y into disjoint train and test
// sets. With shuffling (the default) a seeded permutation is drawn and its
// first ceil(testSize·n) entries form the test set.
func TrainTestSplit(X mat.Matrix, y mat.Vector, opts ...SplitOption) (*Split, error) {
	cfg := splitConfig{testSize: 0.25, shuffle: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	n, p := X.Dims()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "TrainTestSplit")
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	nTrain, nTest, err := SplitSizes(n, cfg.testSize)
	if err != nil {
		return nil, err
	}

	var perm []int
	if cfg.shuffle {
		perm = random.New(cfg.randomState).Perm(n)
	} else {
		// test rows come last, matching an unshuffled split's train-first order
		perm = make([]int, n)
		for i := range perm {
			perm[i] = (i + nTrain) % n
		}
	}

	s := &Split{
		XTrain:     mat.NewDense(nTrain, p, nil),
		XTest:      mat.NewDense(nTest, p, nil),
		YTrain:     mat.NewVecDense(nTrain, nil),
		YTest:      mat.NewVecDense(nTest, nil),
		TestIndex:  append([]int(nil), perm[:nTest]...),
		TrainIndex: append([]int(nil), perm[nTest:]...),
	}
	row := make([]float64, p)
	for i, src := range s.TestIndex {
		s.XTest.SetRow(i, mat.Row(row, src, X))
		s.YTest.SetVec(i, y.AtVec(src))
	}
	for i, src := range s.TrainIndex {
		s.XTrain.SetRow(i, mat.Row(row, src, X))
		s.YTrain.SetVec(i, y.AtVec(src))
	}
	return s, nil
}
