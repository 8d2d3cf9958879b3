// Package cfg loads workflow settings. Defaults reproduce the reference
// runs; a YAML file named by CONFIG_FILE and SCIGO_* environment variables
// (optionally from a .env file) override them.
package cfg

import (
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/scigo/workflows/datasets"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/pkg/log"
)

// Settings is the complete configuration of the three workflows.
type Settings struct {
	LogLevel string `yaml:"logLevel"`
	// MetricsTextfile, when set, receives the memory gauges after a run.
	MetricsTextfile string `yaml:"metricsTextfile"`

	Data           DataConfig           `yaml:"data"`
	Clustering     ClusteringConfig     `yaml:"clustering"`
	Classification ClassificationConfig `yaml:"classification"`
	Regression     RegressionConfig     `yaml:"regression"`
}

// Dataset sources.
const (
	SourceBundled = "bundled"
	SourceRemote  = "remote"
)

// DataConfig selects where the Diabetes files come from. The bundled source
// reads the files embedded in the binary; remote downloads them and caches
// them under Home.
type DataConfig struct {
	Source     string        `yaml:"source"`
	Home       string        `yaml:"home"`
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retryCount"`
	Offline    bool          `yaml:"offline"`
}

// ClusteringConfig drives the blob clustering workflow.
type ClusteringConfig struct {
	Centers          [][]float64 `yaml:"centers"`
	SamplesPerCenter int         `yaml:"samplesPerCenter"`
	ClusterStd       float64     `yaml:"clusterStd"`
	RandomState      int64       `yaml:"randomState"`

	// Algorithm is "lloyd" or "minibatch".
	Algorithm string  `yaml:"algorithm"`
	NClusters int     `yaml:"nClusters"`
	MaxIter   int     `yaml:"maxIter"`
	Tol       float64 `yaml:"tol"`
	BatchSize int     `yaml:"batchSize"`
	NJobs     int     `yaml:"nJobs"`

	// SaveDir, when set, receives clustered_dataset.npy,
	// clustered_memberships.npy and cluster_centers.npy.
	SaveDir string `yaml:"saveDir"`
	// PlotPath, when set, receives a PNG scatter plot of the clusters.
	PlotPath string `yaml:"plotPath"`
}

// ClassificationConfig drives the Iris decision tree workflow.
type ClassificationConfig struct {
	TestSize        float64 `yaml:"testSize"`
	RandomState     int64   `yaml:"randomState"`
	Criterion       string  `yaml:"criterion"`
	MaxDepth        int     `yaml:"maxDepth"`
	MinSamplesSplit int     `yaml:"minSamplesSplit"`
	MinSamplesLeaf  int     `yaml:"minSamplesLeaf"`
	PrintTree       bool    `yaml:"printTree"`
}

// RegressionConfig drives the Diabetes Lasso workflow.
type RegressionConfig struct {
	TestSize          float64 `yaml:"testSize"`
	RandomState       int64   `yaml:"randomState"`
	Alpha             float64 `yaml:"alpha"`
	MaxIter           int     `yaml:"maxIter"`
	Tol               float64 `yaml:"tol"`
	PrintCoefficients bool    `yaml:"printCoefficients"`
}

// Defaults returns the settings of the reference runs.
func Defaults() Settings {
	return Settings{
		LogLevel: "warn",
		Data: DataConfig{
			Source:     SourceBundled,
			Home:       defaultDataHome(),
			BaseURL:    datasets.DefaultBaseURL,
			Timeout:    30 * time.Second,
			RetryCount: 3,
		},
		Clustering: ClusteringConfig{
			Centers:          [][]float64{{10, 10}, {1, 12}, {20, 30}, {-20, 30}},
			SamplesPerCenter: 10000,
			ClusterStd:       1.0,
			RandomState:      42,
			Algorithm:        "lloyd",
			NClusters:        4,
			MaxIter:          200,
			Tol:              1e-5,
			BatchSize:        1024,
		},
		Classification: ClassificationConfig{
			TestSize:        0.2,
			RandomState:     42,
			Criterion:       "gini",
			MaxDepth:        100,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
		},
		Regression: RegressionConfig{
			TestSize:    0.1,
			RandomState: 42,
			Alpha:       0.3,
			MaxIter:     1000,
			Tol:         1e-4,
		},
	}
}

func defaultDataHome() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "scigo"
	}
	return "scigo_data"
}

// Load reads .env from the working directory if present, then the YAML file
// named by CONFIG_FILE if set, then SCIGO_* overrides.
func Load() (Settings, error) {
	return load(".env")
}

func load(envFile string) (Settings, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, errors.Wrapf(err, "load %s", envFile)
	}

	s := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := s.mergeYAML(path); err != nil {
			return Settings{}, err
		}
	}
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// mergeYAML overlays the keys present in the file onto s.
func (s *Settings) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

func (s *Settings) applyEnv() {
	s.LogLevel = getEnvOrDefault("SCIGO_LOG_LEVEL", s.LogLevel)
	s.MetricsTextfile = getEnvOrDefault("SCIGO_METRICS_TEXTFILE", s.MetricsTextfile)
	s.Data.Source = getEnvOrDefault("SCIGO_DATA_SOURCE", s.Data.Source)
	s.Data.Home = getEnvOrDefault("SCIGO_DATA_HOME", s.Data.Home)
	s.Data.BaseURL = getEnvOrDefault("SCIGO_DIABETES_BASE_URL", s.Data.BaseURL)
	s.Data.Offline = getBoolFromEnvOrConfig("SCIGO_OFFLINE", s.Data.Offline)
	s.Clustering.SaveDir = getEnvOrDefault("SCIGO_CLUSTERING_SAVE_DIR", s.Clustering.SaveDir)
	s.Clustering.PlotPath = getEnvOrDefault("SCIGO_CLUSTERING_PLOT", s.Clustering.PlotPath)
	s.Clustering.NJobs = getIntFromEnvOrConfig("SCIGO_NJOBS", s.Clustering.NJobs)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntFromEnvOrConfig(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBoolFromEnvOrConfig(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Validate checks the settings that no estimator validates on its own.
func (s Settings) Validate() error {
	c := s.Clustering
	switch {
	case len(c.Centers) == 0:
		return errors.NewValidationError("clustering.centers", "at least one center is required", c.Centers)
	case c.SamplesPerCenter <= 0:
		return errors.NewValidationError("clustering.samplesPerCenter", "must be positive", c.SamplesPerCenter)
	case c.ClusterStd < 0:
		return errors.NewValidationError("clustering.clusterStd", "must be non-negative", c.ClusterStd)
	case c.Algorithm != "lloyd" && c.Algorithm != "minibatch":
		return errors.NewValidationError("clustering.algorithm", "must be 'lloyd' or 'minibatch'", c.Algorithm)
	}
	if cr := s.Classification.Criterion; cr != "gini" && cr != "entropy" {
		return errors.NewValidationError("classification.criterion", "must be 'gini' or 'entropy'", cr)
	}
	for _, ts := range []struct {
		name string
		v    float64
	}{
		{"classification.testSize", s.Classification.TestSize},
		{"regression.testSize", s.Regression.TestSize},
	} {
		if ts.v <= 0 || ts.v >= 1 {
			return errors.NewValidationError(ts.name, "must be in (0, 1)", ts.v)
		}
	}
	if src := s.Data.Source; src != SourceBundled && src != SourceRemote {
		return errors.NewValidationError("data.source", "must be 'bundled' or 'remote'", src)
	}
	if s.Data.RetryCount < 0 {
		return errors.NewValidationError("data.retryCount", "must be non-negative", s.Data.RetryCount)
	}
	return nil
}

// OpenSource returns the configured dataset source and a function that
// releases it. Only the remote source touches the network or Home.
func (d DataConfig) OpenSource(logger log.Logger) (datasets.Source, func() error, error) {
	if d.Source != SourceRemote {
		return datasets.BundledSource{}, func() error { return nil }, nil
	}
	fetcher, err := datasets.NewFetcher(d.FetcherConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	return fetcher, fetcher.Close, nil
}

// FetcherConfig converts d for datasets.NewFetcher.
func (d DataConfig) FetcherConfig() datasets.FetcherConfig {
	return datasets.FetcherConfig{
		BaseURL:    d.BaseURL,
		DataHome:   d.Home,
		Timeout:    d.Timeout,
		RetryCount: d.RetryCount,
		Offline:    d.Offline,
	}
}
