package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() failed: %v", err)
	}

	rows, cols := scaled.Dims()
	for j := 0; j < cols; j++ {
		var sum, sqSum float64
		for i := 0; i < rows; i++ {
			sum += scaled.At(i, j)
			sqSum += scaled.At(i, j) * scaled.At(i, j)
		}
		mean := sum / float64(rows)
		std := math.Sqrt(sqSum/float64(rows) - mean*mean)

		if math.Abs(mean) > 1e-6 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-6 {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}
}

func TestStandardScaler_LearnedStatistics(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{2, 4, 6})

	scaler := NewStandardScaler()
	if err := scaler.Fit(X); err != nil {
		t.Fatalf("Fit() failed: %v", err)
	}

	if got := scaler.Mean()[0]; math.Abs(got-4) > 1e-6 {
		t.Errorf("Mean()[0] = %v, want 4", got)
	}
	wantStd := math.Sqrt(8.0 / 3.0)
	if got := scaler.Scale()[0]; math.Abs(got-wantStd) > 1e-6 {
		t.Errorf("Scale()[0] = %v, want %v", got, wantStd)
	}
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if got := scaled.At(i, 0); got != 0 {
			t.Errorf("scaled[%d] = %v, want 0 for a constant feature", i, got)
		}
	}
}

func TestStandardScaler_NotFitted(t *testing.T) {
	scaler := NewStandardScaler()

	_, err := scaler.Transform(mat.NewDense(2, 2, nil))
	if err == nil {
		t.Fatal("Transform() before Fit() should fail")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("error = %v, want NotFittedError", err)
	}
}

func TestStandardScaler_FeatureMismatch(t *testing.T) {
	scaler := NewStandardScaler()
	if err := scaler.Fit(mat.NewDense(3, 2, nil)); err != nil {
		t.Fatalf("Fit() failed: %v", err)
	}

	_, err := scaler.Transform(mat.NewDense(3, 5, nil))
	if err == nil {
		t.Fatal("Transform() with a different feature count should fail")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("error = %v, want DimensionError", err)
	}
}
