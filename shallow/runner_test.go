package shallow

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/core/model"
	"github.com/ParensAllTheWayDown/ManufacturingNet/model_selection"
	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// fakeEstimator gives the runner deterministic answers and records how
// it was driven.
type fakeEstimator struct {
	classes []int
	fitErr  error
	pred    *mat.Dense
	proba   *mat.Dense

	fitCalls     int
	predictCalls int
}

func (f *fakeEstimator) Fit(X, y mat.Matrix) error {
	f.fitCalls++
	return f.fitErr
}

func (f *fakeEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	f.predictCalls++
	if f.pred != nil {
		return f.pred, nil
	}
	rows, _ := X.Dims()
	return mat.NewDense(rows, 1, nil), nil
}

func (f *fakeEstimator) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if f.proba != nil {
		return f.proba, nil
	}
	rows, _ := X.Dims()
	proba := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		proba.Set(i, 0, 0.5)
		proba.Set(i, 1, 0.5)
	}
	return proba, nil
}

func (f *fakeEstimator) Classes() []int       { return f.classes }
func (f *fakeEstimator) Coef() *mat.Dense     { return mat.NewDense(1, 2, []float64{0.1, 0.2}) }
func (f *fakeEstimator) Intercept() []float64 { return []float64{0.3} }
func (f *fakeEstimator) NIter() []int         { return []int{7} }

// fakeCollab wires the runner to canned collaborator behavior and
// records the calls it receives.
type fakeCollab struct {
	estimator *fakeEstimator

	newEstimatorCalls int
	splitCalls        int
	rocFirstArg       *mat.VecDense

	accuracyValue float64
	rocValue      float64
	crossValue    []float64
	crossErr      error
}

func (f *fakeCollab) collaborators() collaborators {
	return collaborators{
		newEstimator: func(cfg Config) Classifier {
			f.newEstimatorCalls++
			return f.estimator
		},
		split: func(X, y mat.Matrix, testSize float64, seed int64) (*mat.Dense, *mat.Dense, *mat.Dense, *mat.Dense, error) {
			f.splitCalls++
			return model_selection.TrainTestSplit(X, y, testSize, seed)
		},
		accuracy: func(yTrue, yPred mat.Matrix) (float64, error) {
			return f.accuracyValue, nil
		},
		rocAUC: func(yTrue, yScore mat.Matrix) (float64, error) {
			rows, _ := yTrue.Dims()
			f.rocFirstArg = mat.NewVecDense(rows, nil)
			for i := 0; i < rows; i++ {
				f.rocFirstArg.SetVec(i, yTrue.At(i, 0))
			}
			return f.rocValue, nil
		},
		crossVal: func(newEstimator func() model_selection.Estimator, X, y mat.Matrix, folds, workers int) ([]float64, error) {
			if f.crossErr != nil {
				return nil, f.crossErr
			}
			scores := make([]float64, folds)
			for i := range scores {
				scores[i] = f.crossValue[i%len(f.crossValue)]
			}
			return scores, nil
		},
	}
}

func binaryDataset(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X.Set(i, 0, 1.0+float64(i%5)*0.1)
			X.Set(i, 1, 1.0)
			y.Set(i, 0, 1)
		} else {
			X.Set(i, 0, -1.0-float64(i%5)*0.1)
			X.Set(i, 1, -1.0)
			y.Set(i, 0, 0)
		}
	}
	return X, y
}

func newTestRunner(t *testing.T, X, y mat.Matrix, fc *fakeCollab) (*LogRegression, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	lr := NewLogRegression(X, y,
		WithCollector(PresetCollector{Config: DefaultConfig()}),
		WithOutput(&out),
		withCollaborators(fc.collaborators()),
	)
	return lr, &out
}

func TestLogRegression_RunRowMismatch(t *testing.T) {
	X := mat.NewDense(4, 2, nil)
	y := mat.NewDense(3, 1, nil)
	fc := &fakeCollab{estimator: &fakeEstimator{classes: []int{0, 1}}}
	lr, out := newTestRunner(t, X, y, fc)

	_, err := lr.Run()
	if err == nil {
		t.Fatal("Run() with mismatched rows should fail")
	}
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("error = %v, want DimensionError", err)
	}
	if fc.newEstimatorCalls != 0 {
		t.Error("no estimator should be built for a bad dataset")
	}
	if lr.Regression() != nil {
		t.Error("Regression() should stay nil")
	}
	if got := lr.State(); got != model.Uninitialized {
		t.Errorf("State() = %v, want Uninitialized", got)
	}
	if !strings.Contains(out.String(), "same number of rows") {
		t.Error("expected the row mismatch diagnostic")
	}
}

func TestLogRegression_RunMissingInputs(t *testing.T) {
	tests := []struct {
		name string
		X    mat.Matrix
		y    mat.Matrix
		want string
	}{
		{name: "nil attributes", X: nil, y: mat.NewDense(3, 1, nil), want: "attributes is missing"},
		{name: "nil labels", X: mat.NewDense(3, 2, nil), y: nil, want: "labels is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCollab{estimator: &fakeEstimator{classes: []int{0, 1}}}
			lr, out := newTestRunner(t, tt.X, tt.y, fc)

			if _, err := lr.Run(); err == nil {
				t.Fatal("Run() should fail")
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q should contain %q", out.String(), tt.want)
			}
		})
	}
}

func TestLogRegression_RunFitFault(t *testing.T) {
	X, y := binaryDataset(20)
	fc := &fakeCollab{
		estimator: &fakeEstimator{
			classes: []int{0, 1},
			fitErr:  errors.New("singular gradient"),
		},
	}
	lr, out := newTestRunner(t, X, y, fc)

	_, err := lr.Run()
	if err == nil {
		t.Fatal("Run() should surface the training fault")
	}
	var modelErr *errors.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("error = %v, want ModelError", err)
	}

	if got := lr.State(); got != model.Failed {
		t.Errorf("State() = %v, want Failed", got)
	}
	if lr.Regression() != nil {
		t.Error("Regression() should be cleared after a fault")
	}
	if lr.Result() != nil {
		t.Error("Result() should be cleared after a fault")
	}
	if !strings.Contains(out.String(), "An exception occurred while training") {
		t.Error("expected the training fault diagnostic")
	}
	if !strings.Contains(out.String(), "singular gradient") {
		t.Error("expected the underlying exception message")
	}
}

func TestLogRegression_RunPanicInFit(t *testing.T) {
	X, y := binaryDataset(20)
	fc := &fakeCollab{estimator: &fakeEstimator{classes: []int{0, 1}}}
	collab := fc.collaborators()
	collab.newEstimator = func(cfg Config) Classifier {
		return panickyEstimator{&fakeEstimator{classes: []int{0, 1}}}
	}

	var out bytes.Buffer
	lr := NewLogRegression(X, y,
		WithCollector(PresetCollector{Config: DefaultConfig()}),
		WithOutput(&out),
		withCollaborators(collab),
	)

	_, err := lr.Run()
	if err == nil {
		t.Fatal("Run() should convert the panic into an error")
	}
	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Errorf("error = %v, want a wrapped PanicError", err)
	}
	if got := lr.State(); got != model.Failed {
		t.Errorf("State() = %v, want Failed", got)
	}
}

type panickyEstimator struct{ *fakeEstimator }

func (panickyEstimator) Fit(X, y mat.Matrix) error { panic("index out of range") }

type panickyPredictor struct{ *fakeEstimator }

func (panickyPredictor) Predict(X mat.Matrix) (mat.Matrix, error) { panic("stale weights") }

func TestLogRegression_RunPanicInPredict(t *testing.T) {
	X, y := binaryDataset(20)
	fc := &fakeCollab{estimator: &fakeEstimator{classes: []int{0, 1}}}
	collab := fc.collaborators()
	collab.newEstimator = func(cfg Config) Classifier {
		return panickyPredictor{&fakeEstimator{classes: []int{0, 1}}}
	}

	var out bytes.Buffer
	lr := NewLogRegression(X, y,
		WithCollector(PresetCollector{Config: DefaultConfig()}),
		WithOutput(&out),
		withCollaborators(collab),
	)

	_, err := lr.Run()
	if err == nil {
		t.Fatal("Run() should convert the predict panic into an error")
	}
	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Errorf("error = %v, want a wrapped PanicError", err)
	}
	if got := lr.State(); got != model.Failed {
		t.Errorf("State() = %v, want Failed", got)
	}
	if lr.Regression() != nil {
		t.Error("Regression() should be cleared after a fault")
	}
}

func TestLogRegression_RunPanicInCrossValidation(t *testing.T) {
	X, y := binaryDataset(20)
	fc := &fakeCollab{
		estimator:     &fakeEstimator{classes: []int{0, 1}},
		accuracyValue: 1.0,
		rocValue:      1.0,
	}
	collab := fc.collaborators()
	collab.crossVal = func(newEstimator func() model_selection.Estimator, X, y mat.Matrix, folds, workers int) ([]float64, error) {
		panic("fold bounds")
	}

	var out bytes.Buffer
	lr := NewLogRegression(X, y,
		WithCollector(PresetCollector{Config: DefaultConfig()}),
		WithOutput(&out),
		withCollaborators(collab),
	)

	_, err := lr.Run()
	if err == nil {
		t.Fatal("Run() should convert the cross-validation panic into an error")
	}
	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Errorf("error = %v, want a wrapped PanicError", err)
	}
	if got := lr.State(); got != model.Failed {
		t.Errorf("State() = %v, want Failed", got)
	}
}

func TestLogRegression_RunSuccess(t *testing.T) {
	X, y := binaryDataset(40)
	pred := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		pred.Set(i, 0, float64(i%2))
	}
	fc := &fakeCollab{
		estimator: &fakeEstimator{
			classes: []int{0, 1},
			pred:    pred,
		},
		accuracyValue: 0.9,
		rocValue:      0.8,
		crossValue:    []float64{1.0},
	}
	lr, out := newTestRunner(t, X, y, fc)

	result, err := lr.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := lr.State(); got != model.Fitted {
		t.Errorf("State() = %v, want Fitted", got)
	}
	if lr.Regression() == nil {
		t.Error("Regression() should return the trained estimator")
	}
	if result != lr.Result() {
		t.Error("Run() should return the stored result")
	}

	if math.Abs(result.Accuracy-0.9) > 1e-12 {
		t.Errorf("Accuracy = %v, want 0.9", result.Accuracy)
	}
	if math.Abs(result.ROCAUC-0.8) > 1e-12 {
		t.Errorf("ROCAUC = %v, want 0.8", result.ROCAUC)
	}
	if len(result.CrossValScores) != model_selection.DefaultFolds {
		t.Errorf("CrossValScores count = %d, want %d", len(result.CrossValScores), model_selection.DefaultFolds)
	}
	if len(result.Intercept) != 1 || result.Intercept[0] != 0.3 {
		t.Errorf("Intercept = %v, want [0.3]", result.Intercept)
	}
	if len(result.NIter) != 1 || result.NIter[0] != 7 {
		t.Errorf("NIter = %v, want [7]", result.NIter)
	}

	// The scalar metric is scored against the predicted labels, mapped
	// to a 0/1 indicator.
	if fc.rocFirstArg == nil {
		t.Fatal("rocAUC was never called")
	}
	for i := 0; i < fc.rocFirstArg.Len(); i++ {
		if got, want := fc.rocFirstArg.AtVec(i), pred.At(i, 0); got != want {
			t.Errorf("rocAUC first arg[%d] = %v, want predicted label %v", i, got, want)
		}
	}

	report := out.String()
	for _, want := range []string{
		"LogRegression Results",
		"Accuracy:",
		"ROC AUC:",
		"Cross validation:",
		"Call Predict() to make predictions for new data.",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestLogRegression_RunMulticlassSkipsROCAUC(t *testing.T) {
	X, y := binaryDataset(30)
	fc := &fakeCollab{
		estimator:     &fakeEstimator{classes: []int{0, 1, 2}},
		accuracyValue: 0.7,
		crossValue:    []float64{0.7},
	}
	lr, out := newTestRunner(t, X, y, fc)

	result, err := lr.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !math.IsNaN(result.ROCAUC) {
		t.Errorf("ROCAUC = %v, want NaN for a multiclass problem", result.ROCAUC)
	}
	if fc.rocFirstArg != nil {
		t.Error("rocAUC should not be called for a multiclass problem")
	}
	if !strings.Contains(out.String(), "n/a (multiclass)") {
		t.Error("report should mark ROC AUC as unavailable")
	}
}

func TestLogRegression_PredictBeforeRun(t *testing.T) {
	X, y := binaryDataset(20)
	fc := &fakeCollab{estimator: &fakeEstimator{classes: []int{0, 1}}}
	lr, out := newTestRunner(t, X, y, fc)

	_, err := lr.Predict(mat.NewDense(2, 2, nil))
	if err == nil {
		t.Fatal("Predict() before Run() should fail")
	}
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("error = %v, want NotFittedError", err)
	}
	if fc.estimator.predictCalls != 0 {
		t.Error("the estimator must not be asked to predict")
	}
	if !strings.Contains(out.String(), "Have you called Run() yet?") {
		t.Error("expected the missing model diagnostic")
	}
}

func TestLogRegression_PredictAfterRun(t *testing.T) {
	X, y := binaryDataset(40)
	fc := &fakeCollab{
		estimator:     &fakeEstimator{classes: []int{0, 1}},
		accuracyValue: 1.0,
		rocValue:      1.0,
		crossValue:    []float64{1.0},
	}
	lr, out := newTestRunner(t, X, y, fc)

	if _, err := lr.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	out.Reset()

	pred, err := lr.Predict(mat.NewDense(3, 2, nil))
	if err != nil {
		t.Fatalf("Predict() failed: %v", err)
	}
	rows, cols := pred.Dims()
	if rows != 3 || cols != 1 {
		t.Errorf("Predict() dims = %dx%d, want 3x1", rows, cols)
	}
	if !strings.Contains(out.String(), "Predictions") {
		t.Error("expected the prediction listing")
	}
}

func TestLogRegression_SettersResetDataset(t *testing.T) {
	fc := &fakeCollab{estimator: &fakeEstimator{classes: []int{0, 1}}}
	lr, _ := newTestRunner(t, nil, nil, fc)

	X, y := binaryDataset(10)
	lr.SetAttributes(X)
	lr.SetLabels(y)

	if lr.Attributes() != mat.Matrix(X) {
		t.Error("Attributes() should return the replacement dataset")
	}
	if lr.Labels() != mat.Matrix(y) {
		t.Error("Labels() should return the replacement dataset")
	}
}

func TestLogRegression_FullStack(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 100
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		center := -2.0
		if i%2 == 0 {
			center = 2.0
			y.Set(i, 0, 1)
		}
		for j := 0; j < 3; j++ {
			X.Set(i, j, center+rng.NormFloat64()*0.5)
		}
	}

	cfg := DefaultConfig()
	cfg.RandomState = 42

	var out bytes.Buffer
	lr := NewLogRegression(X, y,
		WithCollector(PresetCollector{Config: cfg}),
		WithOutput(&out),
	)

	result, err := lr.Run()
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := lr.State(); got != model.Fitted {
		t.Errorf("State() = %v, want Fitted", got)
	}
	if result.Accuracy < 0.7 {
		t.Errorf("Accuracy = %v, want at least 0.7 on separable data", result.Accuracy)
	}
	if math.IsNaN(result.ROCAUC) || result.ROCAUC < 0 || result.ROCAUC > 1 {
		t.Errorf("ROCAUC = %v, want a value in [0, 1]", result.ROCAUC)
	}
	if len(result.CrossValScores) != model_selection.DefaultFolds {
		t.Errorf("CrossValScores count = %d, want %d", len(result.CrossValScores), model_selection.DefaultFolds)
	}
	for i, score := range result.CrossValScores {
		if score < 0 || score > 1 {
			t.Errorf("CrossValScores[%d] = %v, want a value in [0, 1]", i, score)
		}
	}
	if got := len(result.Classes); got != 2 {
		t.Errorf("Classes count = %d, want 2", got)
	}

	// A second run reconfigures from Fitted without complaint.
	if _, err := lr.Run(); err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
}
