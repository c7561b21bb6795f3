package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/core/parallel"
	"github.com/ParensAllTheWayDown/ManufacturingNet/metrics"
	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// DefaultFolds is the fold count used when a caller leaves it unset.
const DefaultFolds = 5

// Estimator is the subset of a model needed for cross-validation scoring.
type Estimator interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// KFold splits sample indices into k contiguous folds. The first
// n mod k folds receive one extra sample.
type KFold struct {
	NSplits int
}

// NewKFold creates a KFold with the given number of splits.
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// Folds returns the test-index set of each fold over n samples.
func (k *KFold) Folds(n int) ([][]int, error) {
	if k.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", k.NSplits)
	}
	if k.NSplits > n {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", k.NSplits)
	}

	folds := make([][]int, k.NSplits)
	base := n / k.NSplits
	extra := n % k.NSplits

	idx := 0
	for f := 0; f < k.NSplits; f++ {
		size := base
		if f < extra {
			size++
		}
		fold := make([]int, size)
		for i := 0; i < size; i++ {
			fold[i] = idx
			idx++
		}
		folds[f] = fold
	}

	return folds, nil
}

// CrossValScore fits a fresh estimator per fold and returns the accuracy
// of each fold's held-out predictions, over the entire dataset. workers
// bounds the fold-level parallelism; values below two run sequentially.
func CrossValScore(newEstimator func() Estimator, X, y mat.Matrix, folds, workers int) ([]float64, error) {
	if newEstimator == nil {
		return nil, errors.NewValueError("CrossValScore", "nil estimator factory")
	}
	if X == nil || y == nil {
		return nil, errors.NewValueError("CrossValScore", "nil matrix")
	}

	nSamples, _ := X.Dims()
	yRows, _ := y.Dims()
	if yRows != nSamples {
		return nil, errors.NewDimensionError("CrossValScore", nSamples, yRows, 0)
	}
	if folds <= 0 {
		folds = DefaultFolds
	}

	kf := NewKFold(folds)
	testSets, err := kf.Folds(nSamples)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, folds)
	foldErrs := make([]error, folds)

	runFold := func(f int) {
		XTrain, XTest, yTrain, yTest := foldPartition(X, y, testSets[f])

		est := newEstimator()
		if err := est.Fit(XTrain, yTrain); err != nil {
			foldErrs[f] = errors.Wrapf(err, "fold %d fit failed", f)
			return
		}

		pred, err := est.Predict(XTest)
		if err != nil {
			foldErrs[f] = errors.Wrapf(err, "fold %d predict failed", f)
			return
		}

		score, err := metrics.AccuracyMatrix(yTest, pred)
		if err != nil {
			foldErrs[f] = errors.Wrapf(err, "fold %d scoring failed", f)
			return
		}
		scores[f] = score
	}

	if workers > 1 {
		parallel.ParallelizeWorkers(folds, workers, func(start, end int) {
			for f := start; f < end; f++ {
				runFold(f)
			}
		})
	} else {
		for f := 0; f < folds; f++ {
			runFold(f)
		}
	}

	for _, err := range foldErrs {
		if err != nil {
			return nil, err
		}
	}

	return scores, nil
}

// foldPartition builds the train and test matrices for one fold.
func foldPartition(X, y mat.Matrix, testIdx []int) (XTrain, XTest, yTrain, yTest *mat.Dense) {
	nSamples, nFeatures := X.Dims()
	_, yCols := y.Dims()

	inTest := make(map[int]bool, len(testIdx))
	for _, i := range testIdx {
		inTest[i] = true
	}

	trainIdx := make([]int, 0, nSamples-len(testIdx))
	for i := 0; i < nSamples; i++ {
		if !inTest[i] {
			trainIdx = append(trainIdx, i)
		}
	}

	XTrain = mat.NewDense(len(trainIdx), nFeatures, nil)
	yTrain = mat.NewDense(len(trainIdx), yCols, nil)
	XTest = mat.NewDense(len(testIdx), nFeatures, nil)
	yTest = mat.NewDense(len(testIdx), yCols, nil)

	copyRows(XTrain, yTrain, X, y, trainIdx)
	copyRows(XTest, yTest, X, y, testIdx)

	return XTrain, XTest, yTrain, yTest
}
