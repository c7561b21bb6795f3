// Package preprocessing holds feature transformations applied before
// training.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// StandardScaler centers each feature to zero mean and unit variance.
// Fit learns the statistics; Transform applies them to any matrix with
// the same feature count.
type StandardScaler struct {
	mean  []float64
	scale []float64

	nFeatures int
	fitted    bool
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns the per-feature mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	if X == nil {
		return errors.NewValueError("StandardScaler.Fit", "nil matrix")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.mean = make([]float64, cols)
	s.scale = make([]float64, cols)

	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += X.At(i, j)
		}
		s.mean[j] = sum / float64(rows)

		var sqDiff float64
		for i := 0; i < rows; i++ {
			d := X.At(i, j) - s.mean[j]
			sqDiff += d * d
		}
		s.scale[j] = math.Sqrt(sqDiff / float64(rows))
		// A constant feature keeps its value instead of dividing by zero.
		if s.scale[j] == 0 {
			s.scale[j] = 1
		}
	}

	s.nFeatures = cols
	s.fitted = true
	return nil
}

// Transform returns a scaled copy of X using the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !s.fitted {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	rows, cols := X.Dims()
	if cols != s.nFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (X.At(i, j)-s.mean[j])/s.scale[j])
		}
	}
	return out, nil
}

// FitTransform fits on X and returns its scaled copy.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Mean returns the learned per-feature means.
func (s *StandardScaler) Mean() []float64 { return s.mean }

// Scale returns the learned per-feature standard deviations.
func (s *StandardScaler) Scale() []float64 { return s.scale }

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool { return s.fitted }
