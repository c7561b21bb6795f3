package shallow

import (
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/core/model"
	"github.com/ParensAllTheWayDown/ManufacturingNet/linear_model"
	"github.com/ParensAllTheWayDown/ManufacturingNet/metrics"
	"github.com/ParensAllTheWayDown/ManufacturingNet/model_selection"
	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
	pkglog "github.com/ParensAllTheWayDown/ManufacturingNet/pkg/log"
)

// Classifier is the estimator contract LogRegression drives. It extends
// the base classifier with the learned attributes the report prints.
type Classifier interface {
	model.Classifier

	Coef() *mat.Dense
	Intercept() []float64
	NIter() []int
}

// Result holds everything a completed run learned.
type Result struct {
	// Classes are the sorted class labels seen during training.
	Classes []int
	// Coefficients is the nClasses x nFeatures weight matrix.
	Coefficients *mat.Dense
	// Intercept holds one bias term per class.
	Intercept []float64
	// NIter holds the iteration count each class converged at.
	NIter []int

	// Accuracy is the mean accuracy on the held-out test split.
	Accuracy float64
	// ROCAUC ranks the positive class probabilities against the
	// predicted test labels. NaN when the problem is not binary.
	ROCAUC float64
	// CrossValScores holds one accuracy per cross validation fold,
	// computed over the entire dataset.
	CrossValScores []float64
}

// collaborators are the seams Run is wired through. Production wiring
// points at linear_model, model_selection and metrics; tests swap in
// fakes.
type collaborators struct {
	newEstimator func(cfg Config) Classifier
	split        func(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error)
	accuracy     func(yTrue, yPred mat.Matrix) (float64, error)
	rocAUC       func(yTrue, yScore mat.Matrix) (float64, error)
	crossVal     func(newEstimator func() model_selection.Estimator, X, y mat.Matrix, folds, workers int) ([]float64, error)
}

func defaultCollaborators() collaborators {
	return collaborators{
		newEstimator: func(cfg Config) Classifier { return estimatorFromConfig(cfg) },
		split:        model_selection.TrainTestSplit,
		accuracy:     metrics.AccuracyMatrix,
		rocAUC:       metrics.AUCMatrix,
		crossVal:     model_selection.CrossValScore,
	}
}

// estimatorFromConfig translates a collected Config into estimator
// options.
func estimatorFromConfig(cfg Config) *linear_model.LogisticRegression {
	return linear_model.NewLogisticRegression(
		linear_model.WithPenalty(cfg.Penalty),
		linear_model.WithDual(cfg.Dual),
		linear_model.WithTol(cfg.Tol),
		linear_model.WithC(cfg.C),
		linear_model.WithFitIntercept(cfg.FitIntercept),
		linear_model.WithInterceptScaling(cfg.InterceptScaling),
		linear_model.WithClassWeight(cfg.ClassWeight),
		linear_model.WithRandomState(cfg.RandomState),
		linear_model.WithSolver(cfg.Solver),
		linear_model.WithMaxIter(cfg.MaxIter),
		linear_model.WithMultiClass(cfg.MultiClass),
		linear_model.WithVerbose(cfg.Verbose),
		linear_model.WithWarmStart(cfg.WarmStart),
		linear_model.WithNJobs(cfg.NJobs),
		linear_model.WithL1Ratio(cfg.L1Ratio),
	)
}

// LogRegression wraps a logistic regression estimator behind an
// interactive configure-train-report cycle. Construct it with the
// dataset, call Run to collect parameters and train, then Predict for
// new data.
type LogRegression struct {
	attributes mat.Matrix
	labels     mat.Matrix

	collector Collector
	out       io.Writer
	collab    collaborators
	state     *model.StateMachine
	rocPath   string

	cfg        Config
	regression Classifier
	result     *Result
}

// RunnerOption configures a LogRegression.
type RunnerOption func(*LogRegression)

// WithCollector replaces the interactive parameter collector.
func WithCollector(c Collector) RunnerOption {
	return func(lr *LogRegression) { lr.collector = c }
}

// WithOutput redirects prompt and report output.
func WithOutput(w io.Writer) RunnerOption {
	return func(lr *LogRegression) { lr.out = w }
}

// WithROCPlot writes a ROC curve image to path after a successful
// binary run.
func WithROCPlot(path string) RunnerOption {
	return func(lr *LogRegression) { lr.rocPath = path }
}

func withCollaborators(c collaborators) RunnerOption {
	return func(lr *LogRegression) { lr.collab = c }
}

// NewLogRegression builds a runner over the given attributes and
// labels. Both must have the same number of rows; that is checked at
// the start of Run so the datasets can still be swapped beforehand.
func NewLogRegression(attributes, labels mat.Matrix, opts ...RunnerOption) *LogRegression {
	lr := &LogRegression{
		attributes: attributes,
		labels:     labels,
		out:        os.Stdout,
		collab:     defaultCollaborators(),
		state:      model.NewStateMachine(),
	}
	for _, opt := range opts {
		opt(lr)
	}
	if lr.collector == nil {
		lr.collector = NewParameterCollector(os.Stdin, lr.out)
	}
	return lr
}

// SetAttributes replaces the independent variables for the next run.
func (lr *LogRegression) SetAttributes(attributes mat.Matrix) {
	lr.attributes = attributes
}

// SetLabels replaces the dependent variable for the next run.
func (lr *LogRegression) SetLabels(labels mat.Matrix) {
	lr.labels = labels
}

// Attributes returns the current independent variables.
func (lr *LogRegression) Attributes() mat.Matrix { return lr.attributes }

// Labels returns the current dependent variable.
func (lr *LogRegression) Labels() mat.Matrix { return lr.labels }

// Regression returns the trained estimator, or nil before a successful
// run.
func (lr *LogRegression) Regression() Classifier { return lr.regression }

// Result returns the most recent run's outcome, or nil.
func (lr *LogRegression) Result() *Result { return lr.result }

// State reports where the runner is in its lifecycle.
func (lr *LogRegression) State() model.RunState { return lr.state.Current() }

// Run collects hyperparameters, trains the model on a train/test
// split, scores it, cross validates over the whole dataset, and prints
// a report. A training fault clears the model handle and moves the
// runner to the failed state; a fresh Run starts the cycle over.
func (lr *LogRegression) Run() (*Result, error) {
	if err := lr.checkInputs(); err != nil {
		return nil, err
	}

	lr.cfg = lr.collector.Collect()
	if err := lr.state.Transition(model.Configured); err != nil {
		return nil, err
	}

	start := time.Now()
	estimator := lr.collab.newEstimator(lr.cfg)

	XTrain, XTest, yTrain, yTest, err := lr.collab.split(lr.attributes, lr.labels, lr.cfg.TestSize, lr.cfg.RandomState)
	if err != nil {
		return nil, lr.fail("split", err)
	}

	if err := errors.SafeExecute("fit", func() error {
		return estimator.Fit(XTrain, yTrain)
	}); err != nil {
		return nil, lr.fail("fit", err)
	}

	result := &Result{
		Classes:      estimator.Classes(),
		Coefficients: estimator.Coef(),
		Intercept:    estimator.Intercept(),
		NIter:        estimator.NIter(),
	}

	var pred mat.Matrix
	if err := errors.SafeExecute("predict", func() error {
		var predErr error
		pred, predErr = estimator.Predict(XTest)
		return predErr
	}); err != nil {
		return nil, lr.fail("predict", err)
	}
	result.Accuracy, err = lr.collab.accuracy(yTest, pred)
	if err != nil {
		return nil, lr.fail("accuracy", err)
	}

	result.ROCAUC = math.NaN()
	if len(result.Classes) == 2 {
		var proba mat.Matrix
		if err := errors.SafeExecute("predict_proba", func() error {
			var probaErr error
			proba, probaErr = estimator.PredictProba(XTest)
			return probaErr
		}); err != nil {
			return nil, lr.fail("predict_proba", err)
		}
		proba1 := positiveColumn(proba)
		positive := result.Classes[1]
		// The reported ROC AUC ranks probabilities against the
		// predicted test labels. The ROC plot uses the true labels.
		result.ROCAUC, err = lr.collab.rocAUC(binaryIndicator(pred, positive), proba1)
		if err != nil {
			return nil, lr.fail("roc_auc", err)
		}
		if lr.rocPath != "" {
			if err := saveROCPlot(lr.rocPath, binaryIndicator(yTest, positive), proba1); err != nil {
				slog.Warn("failed to save roc plot", pkglog.ErrAttr(err))
			}
		}
	}

	if err := errors.SafeExecute("cross_validation", func() error {
		var cvErr error
		result.CrossValScores, cvErr = lr.collab.crossVal(func() model_selection.Estimator {
			return lr.collab.newEstimator(lr.cfg)
		}, lr.attributes, lr.labels, lr.cfg.Folds(), lr.cfg.NJobs)
		return cvErr
	}); err != nil {
		return nil, lr.fail("cross_validation", err)
	}

	lr.regression = estimator
	lr.result = result
	if err := lr.state.Transition(model.Fitted); err != nil {
		return nil, err
	}

	rows, cols := lr.attributes.Dims()
	slog.Info("logistic regression run complete",
		slog.String(pkglog.ModelNameKey, "LogRegression"),
		slog.String(pkglog.SolverKey, lr.cfg.Solver),
		slog.Int(pkglog.SamplesKey, rows),
		slog.Int(pkglog.FeaturesKey, cols),
		slog.Int(pkglog.FoldsKey, lr.cfg.Folds()),
		slog.Float64(pkglog.AccuracyKey, result.Accuracy),
		slog.Float64(pkglog.ROCAUCKey, result.ROCAUC),
		slog.Int64(pkglog.DurationMsKey, time.Since(start).Milliseconds()),
	)

	lr.renderReport(result)
	return result, nil
}

// Predict returns predicted labels for new attributes. It requires a
// successful Run first.
func (lr *LogRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if lr.regression == nil || !lr.state.IsFitted() {
		failure(lr.out, "The regression model seems to be missing. Have you called Run() yet?")
		return nil, errors.NewNotFittedError("LogRegression", "Predict")
	}

	var pred mat.Matrix
	if err := errors.SafeExecute("predict", func() error {
		var predErr error
		pred, predErr = lr.regression.Predict(X)
		return predErr
	}); err != nil {
		failure(lr.out, "An exception occurred while predicting. Check your attributes.")
		failure(lr.out, "Here is the exception message:")
		failure(lr.out, err.Error())
		slog.Error("prediction failed",
			slog.String(pkglog.OperationKey, "predict"),
			pkglog.ErrAttr(err),
		)
		return nil, errors.NewModelError("predict", "prediction fault", err)
	}

	renderPredictions(lr.out, pred)
	return pred, nil
}

// checkInputs validates the dataset handles before any collection
// happens, so a bad dataset never consumes operator input.
func (lr *LogRegression) checkInputs() error {
	if lr.attributes == nil {
		failure(lr.out, "attributes is missing; call SetAttributes(newAttributes) to fix this!")
		failure(lr.out, "newAttributes should be a populated dataset of independent variables.")
		return errors.NewValueError("check_inputs", "attributes dataset is missing")
	}
	if lr.labels == nil {
		failure(lr.out, "labels is missing; call SetLabels(newLabels) to fix this!")
		failure(lr.out, "newLabels should be a populated dataset of dependent variables.")
		return errors.NewValueError("check_inputs", "labels dataset is missing")
	}
	aRows, _ := lr.attributes.Dims()
	lRows, _ := lr.labels.Dims()
	if aRows != lRows {
		failure(lr.out, "attributes and labels don't have the same number of rows. Make sure the number of samples in each dataset matches!")
		return errors.NewDimensionError("check_inputs", aRows, lRows, 0)
	}
	return nil
}

// fail reports a run fault, drops the model handle, and moves the
// runner to the failed state. There is no retry; the next Run starts
// from a clean configuration.
func (lr *LogRegression) fail(op string, err error) error {
	failure(lr.out, "An exception occurred while training the regression model. Check your attributes and labels.")
	failure(lr.out, "Here is the exception message:")
	failure(lr.out, err.Error())

	slog.Error("logistic regression run failed",
		slog.String(pkglog.ModelNameKey, "LogRegression"),
		slog.String(pkglog.OperationKey, op),
		pkglog.ErrAttr(err),
	)

	lr.regression = nil
	lr.result = nil
	if terr := lr.state.Transition(model.Failed); terr != nil {
		slog.Warn("state transition rejected", pkglog.ErrAttr(terr))
	}
	return errors.NewModelError(op, "training fault", err)
}

// binaryIndicator maps the first column of m onto 1 where the value
// equals positive and 0 elsewhere.
func binaryIndicator(m mat.Matrix, positive int) *mat.VecDense {
	rows, _ := m.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		if int(m.At(i, 0)) == positive {
			out.SetVec(i, 1)
		}
	}
	return out
}

// positiveColumn extracts the positive class probability column. For a
// binary problem that is column 1 of the probability matrix.
func positiveColumn(proba mat.Matrix) *mat.VecDense {
	rows, cols := proba.Dims()
	col := cols - 1
	if col < 1 {
		col = 0
	}
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, proba.At(i, col))
	}
	return out
}
