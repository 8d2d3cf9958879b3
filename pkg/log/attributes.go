package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "KMeans", "Lasso".
	ModelNameKey = "model.name"

	// OperationKey is the estimator method being run: "fit", "predict", ...
	OperationKey = "ml.operation"

	// ComponentKey names the package or workflow emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: "training", "inference", ...
	PhaseKey = "ml.phase"

	// StageKey labels a workflow checkpoint such as "after fit".
	StageKey = "workflow.stage"
)

// Data shape.
const (
	DatasetKey  = "data.name"
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"

	// CacheHitKey reports whether a dataset was served from the local cache.
	CacheHitKey = "data.cache_hit"
)

// Performance and metrics.
const (
	DurationMsKey   = "perf.duration_ms"
	MemoryUsageKey  = "perf.memory_bytes"
	MemorySourceKey = "perf.memory_source"

	AccuracyKey = "metrics.accuracy"
	R2ScoreKey  = "metrics.r2_score"
	MSEKey      = "metrics.mse"
	InertiaKey  = "metrics.inertia"

	// IterationKey is the number of iterations an iterative solver ran.
	IterationKey = "training.iteration"
	DualGapKey   = "training.dual_gap"
)

// Hyperparameters.
const (
	RandomSeedKey     = "config.random_seed"
	RegularizationKey = "hyperparams.regularization"
	MaxDepthKey       = "hyperparams.max_depth"
	NClustersKey      = "hyperparams.n_clusters"
)

// Errors.
const (
	ErrorKey      = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard values for OperationKey and PhaseKey.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationLoad         = "load"
	OperationSplit        = "split"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
