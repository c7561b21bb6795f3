package log

// Standard attribute keys, so log records stay greppable across packages.

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "LogisticRegression".
	ModelNameKey = "model.name"

	// OperationKey names the operation being performed: "fit", "predict",
	// "cross_validate", "collect_parameters".
	OperationKey = "ml.operation"

	// SolverKey records the configured solver label.
	SolverKey = "ml.solver"
)

// Data shape.
const (
	// SamplesKey is the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// FoldsKey is the cross-validation fold count.
	FoldsKey = "data.folds"
)

// Result metrics.
const (
	// AccuracyKey holds a classification accuracy score.
	AccuracyKey = "metric.accuracy"

	// ROCAUCKey holds a ROC-AUC score.
	ROCAUCKey = "metric.roc_auc"

	// DurationMsKey records operation wall time in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
