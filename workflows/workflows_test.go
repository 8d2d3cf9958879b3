package workflows

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/performance"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
)

func oneMiB() (performance.Sample, error) {
	return performance.Sample{Bytes: 1 << 20, Source: performance.SourceProcfs}, nil
}

// tickingClock advances by step on every call.
func tickingClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func testEnv(out *bytes.Buffer) Env {
	return Env{Out: out, Sampler: oneMiB, Now: tickingClock(1500 * time.Millisecond)}
}

func lines(out *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func smallBlobs() cfg.ClusteringConfig {
	c := cfg.Defaults().Clustering
	c.SamplesPerCenter = 500
	return c
}

func TestRunClustering(t *testing.T) {
	var out bytes.Buffer
	c := smallBlobs()
	res, err := RunClustering(context.Background(), c, testEnv(&out))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Before dataset generation: Memory used: 1048576 bytes",
		"After dataset generation: Memory used: 1048576 bytes",
		"After model fitting: Memory used: 1048576 bytes",
		"Elapsed time: 1.5s",
		"After prediction: Memory used: 1048576 bytes",
	}, lines(&out))

	require.Len(t, res.Labels, 2000)
	for _, l := range res.Labels {
		assert.True(t, l >= 0 && l < 4)
	}
	assert.Equal(t, 1500*time.Millisecond, res.Elapsed)
	assert.Positive(t, res.NIter)

	// every generating center is recovered by one fitted center
	for _, want := range c.Centers {
		best := math.Inf(1)
		for k := 0; k < 4; k++ {
			best = math.Min(best, floats.Distance(want, res.Centers.RawRowView(k), 2))
		}
		assert.Less(t, best, 0.2, "center %v", want)
	}

	again, err := RunClustering(context.Background(), c, testEnv(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, res.Labels, again.Labels)
	assert.Equal(t, res.Inertia, again.Inertia)
}

func TestRunClustering_MiniBatch(t *testing.T) {
	c := smallBlobs()
	c.Algorithm = "minibatch"
	c.BatchSize = 256
	res, err := RunClustering(context.Background(), c, testEnv(&bytes.Buffer{}))
	require.NoError(t, err)

	for _, want := range c.Centers {
		best := math.Inf(1)
		for k := 0; k < 4; k++ {
			best = math.Min(best, floats.Distance(want, res.Centers.RawRowView(k), 2))
		}
		assert.Less(t, best, 0.5, "center %v", want)
	}
}

func TestRunClustering_SaveAndPlot(t *testing.T) {
	dir := t.TempDir()
	c := smallBlobs()
	c.SaveDir = filepath.Join(dir, "npy")
	c.PlotPath = filepath.Join(dir, "clusters.png")

	var out bytes.Buffer
	res, err := RunClustering(context.Background(), c, testEnv(&out))
	require.NoError(t, err)
	assert.Equal(t, "After saving to disk: Memory used: 1048576 bytes", lines(&out)[5])

	f, err := os.Open(filepath.Join(c.SaveDir, MembershipsFile))
	require.NoError(t, err)
	defer f.Close()
	var memberships []uint64
	require.NoError(t, npyio.Read(f, &memberships))
	require.Len(t, memberships, len(res.Labels))
	for i, l := range res.Labels {
		assert.Equal(t, uint64(l), memberships[i])
	}

	g, err := os.Open(filepath.Join(c.SaveDir, DatasetFile))
	require.NoError(t, err)
	defer g.Close()
	var X mat.Dense
	require.NoError(t, npyio.Read(g, &X))
	assert.True(t, mat.Equal(res.X, &X))

	info, err := os.Stat(c.PlotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunClustering_Errors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunClustering(ctx, smallBlobs(), testEnv(&bytes.Buffer{}))
	assert.ErrorIs(t, err, context.Canceled)

	c := smallBlobs()
	c.NClusters = 0
	_, err = RunClustering(context.Background(), c, testEnv(&bytes.Buffer{}))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRunClassification(t *testing.T) {
	var out bytes.Buffer
	res, err := RunClassification(context.Background(), cfg.Defaults().Classification, testEnv(&out))
	require.NoError(t, err)

	got := lines(&out)
	require.Len(t, got, 10)
	assert.Equal(t, []string{
		"Before loading dataset - RSS: 1.00 MB",
		"After loading dataset - RSS: 1.00 MB",
		"Training model with Gini criterion ...",
		"Before training Gini model - RSS: 1.00 MB",
		"After training Gini model - RSS: 1.00 MB",
	}, got[:5])
	assert.Equal(t, FormatIntMatrix(res.Confusion), strings.Join(got[5:8], "\n"))
	assert.Equal(t, fmt.Sprintf("Test accuracy with Gini criterion: %.2f%%", res.Accuracy*100), got[8])
	assert.Equal(t, "Features importances: "+FormatFloatArray(res.Importances), got[9])

	require.Equal(t, 30, res.YTest.Len())
	r, c := res.Confusion.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []float64{0, 1, 2}, res.Labels)
	assert.Equal(t, 30.0, mat.Sum(res.Confusion))
	assert.InDelta(t, res.Accuracy, mat.Trace(res.Confusion)/30, 1e-12)
	assert.GreaterOrEqual(t, res.Accuracy, 0.8)
	assert.LessOrEqual(t, res.Accuracy, 1.0)
	assert.InDelta(t, 1.0, floats.Sum(res.Importances), 1e-9)

	again, err := RunClassification(context.Background(), cfg.Defaults().Classification, testEnv(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.True(t, mat.Equal(res.Predictions, again.Predictions))
	assert.Equal(t, res.Importances, again.Importances)
}

func TestRunClassification_EntropyAndTree(t *testing.T) {
	c := cfg.Defaults().Classification
	c.Criterion = "entropy"
	c.PrintTree = true

	var out bytes.Buffer
	_, err := RunClassification(context.Background(), c, testEnv(&out))
	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "Training model with Entropy criterion ...\n")
	assert.Contains(t, text, "After training Entropy model - RSS: 1.00 MB\n")
	assert.Contains(t, text, "|--- class: ")
}

func TestRunClassification_BadConfig(t *testing.T) {
	c := cfg.Defaults().Classification
	c.MinSamplesSplit = 1
	_, err := RunClassification(context.Background(), c, testEnv(&bytes.Buffer{}))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

// diabetesSource serves gzip tables with the Diabetes layout and a target
// that is linear in the raw features.
type diabetesSource map[string][]byte

func (d diabetesSource) Fetch(_ context.Context, name string) ([]byte, error) {
	b, ok := d[name]
	if !ok {
		return nil, errors.ErrDatasetUnavailable
	}
	return b, nil
}

func newDiabetesSource(t *testing.T) diabetesSource {
	t.Helper()
	var xb, yb strings.Builder
	for i := 0; i < 442; i++ {
		row := make([]float64, 10)
		for j := range row {
			row[j] = 50 + 10*math.Sin(0.37*float64(i*(j+1))+float64(j))
			fmt.Fprintf(&xb, "%.6f ", row[j])
		}
		xb.WriteString("\n")
		fmt.Fprintf(&yb, "%.6f\n", 150+3*row[0]-2*row[3]+row[7])
	}
	return diabetesSource{
		"diabetes_data_raw.csv.gz": gzipBytes(t, xb.String()),
		"diabetes_target.csv.gz":   gzipBytes(t, yb.String()),
	}
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRunRegression(t *testing.T) {
	var out bytes.Buffer
	reg := prometheus.NewRegistry()
	metrics := performance.NewMemoryMetrics(reg)
	logger, logs := log.NewTestLogger(log.LevelInfo)

	env := testEnv(&out)
	env.Source = newDiabetesSource(t)
	env.Metrics = metrics
	env.Logger = logger

	res, err := RunRegression(context.Background(), cfg.Defaults().Regression, env)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Before loading dataset - RSS: 1.00 MB",
		"Before training the model - RSS: 1.00 MB",
		"After training the model - RSS: 1.00 MB",
		"Before prediction - RSS: 1.00 MB",
		"After prediction - RSS: 1.00 MB",
		"R²: " + FormatFloat(res.R2),
		"Mean Squared Error: " + FormatFloat(res.MSE),
	}, lines(&out))

	assert.Equal(t, 45, res.YValid.Len())
	assert.Len(t, res.Coef, 10)
	assert.LessOrEqual(t, res.R2, 1.0)
	assert.Greater(t, res.R2, 0.5)
	assert.Positive(t, res.MSE)

	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.Samples.WithLabelValues("regression")))
	assert.True(t, logger.ContainsMessage("regression finished"))
	assert.Contains(t, logs.String(), log.R2ScoreKey)

	again, err := RunRegression(context.Background(), cfg.Defaults().Regression,
		Env{Out: &bytes.Buffer{}, Sampler: oneMiB, Source: env.Source})
	require.NoError(t, err)
	assert.Equal(t, res.R2, again.R2)
	assert.Equal(t, res.Coef, again.Coef)
}

func TestRunRegression_PrintCoefficients(t *testing.T) {
	c := cfg.Defaults().Regression
	c.PrintCoefficients = true

	var out bytes.Buffer
	env := testEnv(&out)
	env.Source = newDiabetesSource(t)
	res, err := RunRegression(context.Background(), c, env)
	require.NoError(t, err)

	got := lines(&out)
	assert.Equal(t, "After training the model - RSS: 1.00 MB", got[2])
	assert.Equal(t, "Intercept: "+FormatFloat(res.Intercept), got[3])
	assert.True(t, strings.HasPrefix(got[4], "Coefficients: ["))
	assert.Contains(t, out.String(), "Before prediction - RSS: 1.00 MB")
}

func TestRunRegression_Errors(t *testing.T) {
	var out bytes.Buffer
	env := testEnv(&out)
	env.Source = diabetesSource{}
	_, err := RunRegression(context.Background(), cfg.Defaults().Regression, env)
	assert.True(t, errors.Is(err, errors.ErrDatasetUnavailable))
	assert.Equal(t, "Before loading dataset - RSS: 1.00 MB\n", out.String())
}

// requireBundledDiabetes skips unless datasets/data holds the Diabetes files.
func requireBundledDiabetes(t *testing.T) {
	t.Helper()
	src := datasets.BundledSource{}
	if !src.Has("diabetes_data_raw.csv.gz") || !src.Has("diabetes_target.csv.gz") {
		t.Skip("Diabetes files are not bundled in datasets/data")
	}
}

func TestRunRegression_BundledDiabetes(t *testing.T) {
	requireBundledDiabetes(t)
	run := func() *RegressionResult {
		var out bytes.Buffer
		// no Source: the workflow reads the bundled files
		res, err := RunRegression(context.Background(), cfg.Defaults().Regression, testEnv(&out))
		require.NoError(t, err)
		assert.Len(t, lines(&out), 7)
		return res
	}
	res := run()
	assert.Equal(t, 45, res.YValid.Len())
	assert.GreaterOrEqual(t, res.R2, 0.0)
	assert.LessOrEqual(t, res.R2, 1.0)
	assert.Positive(t, res.MSE)

	again := run()
	assert.Equal(t, res.R2, again.R2)
	assert.Equal(t, res.MSE, again.MSE)
	assert.Equal(t, res.Coef, again.Coef)
}

func TestEnv_DefaultSourceIsBundled(t *testing.T) {
	env := Env{}.withDefaults()
	assert.IsType(t, datasets.BundledSource{}, env.Source)
}

func TestMemoryLinesWhenUnavailable(t *testing.T) {
	var out bytes.Buffer
	env := Env{
		Out:     &out,
		Sampler: func() (performance.Sample, error) { return performance.Sample{}, errors.New("no /proc") },
		Source:  newDiabetesSource(t),
	}
	_, err := RunRegression(context.Background(), cfg.Defaults().Regression, env)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "Before loading dataset - RSS: unavailable\n"))
}
