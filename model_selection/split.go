// Package model_selection provides dataset partitioning: random
// train/test splits and k-fold cross-validation.
package model_selection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// TrainTestSplit randomly partitions X and y into training and testing
// sets. testSize is the fraction of rows held out, exclusive between 0
// and 1. A non-negative seed makes the permutation reproducible; pass a
// negative seed for an unseeded split.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	if X == nil || y == nil {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit", "nil matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit", "empty attribute matrix")
	}
	if yRows != nSamples {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", nSamples, yRows, 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Round(float64(nSamples) * testSize))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= nSamples {
		nTest = nSamples - 1
	}
	nTrain := nSamples - nTest

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	perm := rng.Perm(nSamples)

	XTrain = mat.NewDense(nTrain, nFeatures, nil)
	XTest = mat.NewDense(nTest, nFeatures, nil)
	yTrain = mat.NewDense(nTrain, yCols, nil)
	yTest = mat.NewDense(nTest, yCols, nil)

	copyRows(XTrain, yTrain, X, y, perm[:nTrain])
	copyRows(XTest, yTest, X, y, perm[nTrain:])

	return XTrain, XTest, yTrain, yTest, nil
}

// copyRows copies the given source rows of X and y into the destination
// matrices in order.
func copyRows(XDst, yDst *mat.Dense, X, y mat.Matrix, rows []int) {
	_, nFeatures := X.Dims()
	_, yCols := y.Dims()

	for i, src := range rows {
		for j := 0; j < nFeatures; j++ {
			XDst.Set(i, j, X.At(src, j))
		}
		for j := 0; j < yCols; j++ {
			yDst.Set(i, j, y.At(src, j))
		}
	}
}
