// Package manufacturingnet provides shallow machine learning methods
// wrapped behind interactive, operator-friendly runners.
//
// The shallow package is the entry point: it collects hyperparameters
// through a guided prompt sequence (or a YAML preset), trains a model
// on a train/test split, cross validates it, and prints a report.
//
//	X, y := loadDataset()
//	runner := shallow.NewLogRegression(X, y)
//	result, err := runner.Run()
//
// The supporting packages are usable on their own: linear_model holds
// the logistic regression estimator, model_selection the splitting and
// cross-validation helpers, metrics the classification scores, and
// preprocessing the feature scalers. All of them exchange data as
// gonum matrices.
package manufacturingnet
