package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is a model that can be trained.
type Fitter interface {
	// Fit trains the model on attributes X and labels y.
	Fit(X, y mat.Matrix) error
}

// Predictor is a model that can predict labels for new attributes.
type Predictor interface {
	// Predict returns an n x 1 matrix of predicted labels.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is the contract the wrapper expects from a classification
// estimator.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns an n x nClasses matrix of class probabilities.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during fitting.
	Classes() []int
}
