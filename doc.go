// Package scigo is the root of three machine-learning workflows and the
// estimator library they consume.
//
// # Commands
//
//	go run ./cmd/clustering         k-means on four Gaussian blobs
//	go run ./cmd/decisiontree       Gini decision tree on Iris
//	go run ./cmd/linear_regression  Lasso on Diabetes
//
// Each command prints the process memory before and after its stages,
// followed by its metrics. Defaults reproduce the reference runs; set
// CONFIG_FILE to a YAML file or use the SCIGO_* environment variables to
// change them (see internal/cfg).
//
// # Library
//
// The estimators follow the scikit-learn API on gonum matrices:
//
//	km := cluster.NewKMeans(cluster.WithKMeansNClusters(4))
//	if err := km.Fit(X); err != nil {
//	    return err
//	}
//	labels, err := km.Predict(X)
//
// Packages:
//
//   - datasets: blob and regression generators, embedded Iris and Diabetes, remote fetcher
//   - sklearn/cluster: KMeans, MiniBatchKMeans
//   - sklearn/tree: DecisionTreeClassifier
//   - sklearn/linear_model: LinearRegression, ElasticNet, Lasso
//   - sklearn/model_selection: TrainTestSplit
//   - metrics, preprocessing: scores and scalers
//   - performance: memory sampling and prometheus gauges
//
// Errors are typed (pkg/errors) and carry stack traces; logging goes through
// the zerolog-backed pkg/log.
package scigo
