// Package metrics implements the classification scores used by the
// logistic-regression wrapper.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// AccuracyScore returns the fraction of positions where yTrue and yPred
// agree.
func AccuracyScore(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AccuracyScore", "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AccuracyScore", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("AccuracyScore", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// AccuracyMatrix computes AccuracyScore over the first column of each
// input matrix.
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := firstColumns("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AccuracyScore(yTrueVec, yPredVec)
}

// AUC computes the area under the ROC curve via the rank-statistic
// formulation (Mann-Whitney U), averaging ranks across score ties.
// yTrue must contain only 0 and 1. When only one class is present the
// curve is undefined; 0.5 is reported along with an UndefinedMetricWarning.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUC", "nil vector")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	if yScore.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yScore.Len(), 0)
	}

	nPos := 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError("AUC", "labels must be binary (0 or 1)")
		}
	}
	nNeg := n - nPos

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present", 0.5))
		return 0.5, nil
	}

	// Rank the scores ascending, assigning tied scores their average rank.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return yScore.AtVec(order[a]) < yScore.AtVec(order[b])
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yScore.AtVec(order[j]) == yScore.AtVec(order[i]) {
			j++
		}
		// Ranks are 1-based; ties share the average of their span.
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[order[k]] = avgRank
		}
		i = j
	}

	var rankSumPos float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			rankSumPos += ranks[i]
		}
	}

	u := rankSumPos - float64(nPos)*float64(nPos+1)/2.0
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix computes AUC over the first column of each input matrix.
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	yTrueVec, yScoreVec, err := firstColumns("AUCMatrix", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return AUC(yTrueVec, yScoreVec)
}

// firstColumns validates two matrices and extracts their first columns as
// vectors.
func firstColumns(op string, a, b mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if a == nil || b == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}

	aRows, aCols := a.Dims()
	bRows, bCols := b.Dims()

	if aRows == 0 || aCols == 0 || bRows == 0 || bCols == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if aRows != bRows {
		return nil, nil, errors.NewDimensionError(op, aRows, bRows, 0)
	}

	aVec := mat.NewVecDense(aRows, nil)
	bVec := mat.NewVecDense(bRows, nil)
	for i := 0; i < aRows; i++ {
		aVec.SetVec(i, a.At(i, 0))
		bVec.SetVec(i, b.At(i, 0))
	}

	return aVec, bVec, nil
}
