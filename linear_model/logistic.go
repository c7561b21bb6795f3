// Package linear_model implements the logistic-regression estimator that
// backs the interactive wrapper. It follows the scikit-learn surface:
// Fit, Predict, PredictProba, Score, plus accessors for the learned
// classes, coefficients, intercepts and iteration counts.
package linear_model

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/core/model"
	"github.com/ParensAllTheWayDown/ManufacturingNet/core/parallel"
	"github.com/ParensAllTheWayDown/ManufacturingNet/metrics"
	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
	mnlog "github.com/ParensAllTheWayDown/ManufacturingNet/pkg/log"
)

// Hyperparameter value sets accepted by validateParams.
var (
	validPenalties  = map[string]bool{"l1": true, "l2": true, "elasticnet": true, "none": true}
	validSolvers    = map[string]bool{"newton-cg": true, "lbfgs": true, "liblinear": true, "sag": true, "saga": true}
	validMultiClass = map[string]bool{"auto": true, "ovr": true, "multinomial": true}
)

// LogisticRegression is a logistic-regression classifier.
//
// All solver labels share a single gradient-descent core; the solver
// hyperparameter is validated and recorded so configurations written for
// scikit-learn keep their meaning, but it does not select a different
// optimizer here.
type LogisticRegression struct {
	// Hyperparameters
	penalty          string
	dual             bool
	tol              float64
	c                float64 // inverse regularization strength
	fitIntercept     bool
	interceptScaling float64
	classWeight      string // "none" or "balanced"
	randomState      int64  // negative means unseeded
	solver           string
	maxIter          int
	multiClass       string
	verbose          int
	warmStart        bool
	nJobs            int
	l1Ratio          float64

	// Learned parameters
	coef      *mat.Dense // (1, nFeatures) binary; (nClasses, nFeatures) multiclass
	intercept []float64
	classes   []int
	nIter     []int
	nFeatures int

	fitted bool
	rng    *rand.Rand
}

var _ model.Classifier = (*LogisticRegression)(nil)

// Option configures a LogisticRegression.
type Option func(*LogisticRegression)

// NewLogisticRegression creates a classifier with scikit-learn's defaults.
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	lr := &LogisticRegression{
		penalty:          "l2",
		dual:             false,
		tol:              1e-4,
		c:                1.0,
		fitIntercept:     true,
		interceptScaling: 1.0,
		classWeight:      "none",
		randomState:      -1,
		solver:           "lbfgs",
		maxIter:          100,
		multiClass:       "auto",
		verbose:          0,
		warmStart:        false,
		nJobs:            0,
		l1Ratio:          0.5,
	}

	for _, opt := range opts {
		opt(lr)
	}

	if lr.randomState >= 0 {
		lr.rng = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return lr
}

// WithPenalty sets the regularization norm: "l1", "l2", "elasticnet" or "none".
func WithPenalty(penalty string) Option {
	return func(lr *LogisticRegression) { lr.penalty = penalty }
}

// WithDual enables the dual formulation (liblinear with l2 only).
func WithDual(dual bool) Option {
	return func(lr *LogisticRegression) { lr.dual = dual }
}

// WithTol sets the stopping tolerance.
func WithTol(tol float64) Option {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithC sets the inverse regularization strength.
func WithC(c float64) Option {
	return func(lr *LogisticRegression) { lr.c = c }
}

// WithFitIntercept controls whether a bias term is learned.
func WithFitIntercept(fit bool) Option {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithInterceptScaling sets the synthetic intercept feature value.
func WithInterceptScaling(scaling float64) Option {
	return func(lr *LogisticRegression) { lr.interceptScaling = scaling }
}

// WithClassWeight sets the class weighting mode: "none" or "balanced".
func WithClassWeight(mode string) Option {
	return func(lr *LogisticRegression) { lr.classWeight = mode }
}

// WithRandomState seeds weight initialization. Negative leaves it unseeded.
func WithRandomState(seed int64) Option {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

// WithSolver sets the solver label.
func WithSolver(solver string) Option {
	return func(lr *LogisticRegression) { lr.solver = solver }
}

// WithMaxIter caps the optimization iterations.
func WithMaxIter(maxIter int) Option {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithMultiClass sets the multi-class strategy: "auto", "ovr" or "multinomial".
func WithMultiClass(mc string) Option {
	return func(lr *LogisticRegression) { lr.multiClass = mc }
}

// WithVerbose enables progress logging during fitting.
func WithVerbose(verbose int) Option {
	return func(lr *LogisticRegression) { lr.verbose = verbose }
}

// WithWarmStart reuses the previous solution as initialization.
func WithWarmStart(warm bool) Option {
	return func(lr *LogisticRegression) { lr.warmStart = warm }
}

// WithNJobs hints the computation parallelism.
func WithNJobs(n int) Option {
	return func(lr *LogisticRegression) { lr.nJobs = n }
}

// WithL1Ratio sets the elastic-net mixing parameter in [0, 1].
func WithL1Ratio(ratio float64) Option {
	return func(lr *LogisticRegression) { lr.l1Ratio = ratio }
}

// Clone returns an unfitted copy with the same hyperparameters.
// Cross-validation uses it to train one estimator per fold.
func (lr *LogisticRegression) Clone() *LogisticRegression {
	return NewLogisticRegression(
		WithPenalty(lr.penalty),
		WithDual(lr.dual),
		WithTol(lr.tol),
		WithC(lr.c),
		WithFitIntercept(lr.fitIntercept),
		WithInterceptScaling(lr.interceptScaling),
		WithClassWeight(lr.classWeight),
		WithRandomState(lr.randomState),
		WithSolver(lr.solver),
		WithMaxIter(lr.maxIter),
		WithMultiClass(lr.multiClass),
		WithVerbose(lr.verbose),
		WithWarmStart(lr.warmStart),
		WithNJobs(lr.nJobs),
		WithL1Ratio(lr.l1Ratio),
	)
}

// validateParams rejects hyperparameter combinations scikit-learn would
// refuse, so presets written against it fail the same way here.
func (lr *LogisticRegression) validateParams() error {
	if !validPenalties[lr.penalty] {
		return errors.NewValidationError("penalty", "must be one of l1, l2, elasticnet, none", lr.penalty)
	}
	if !validSolvers[lr.solver] {
		return errors.NewValidationError("solver", "must be one of newton-cg, lbfgs, liblinear, sag, saga", lr.solver)
	}
	if !validMultiClass[lr.multiClass] {
		return errors.NewValidationError("multi_class", "must be one of auto, ovr, multinomial", lr.multiClass)
	}
	if lr.dual && !(lr.solver == "liblinear" && lr.penalty == "l2") {
		return errors.NewValidationError("dual", "only supported with the liblinear solver and l2 penalty", lr.dual)
	}
	if lr.penalty == "l1" && !(lr.solver == "liblinear" || lr.solver == "saga") {
		return errors.NewValidationError("penalty", "l1 requires the liblinear or saga solver", lr.solver)
	}
	if lr.penalty == "elasticnet" {
		if lr.solver != "saga" {
			return errors.NewValidationError("penalty", "elasticnet requires the saga solver", lr.solver)
		}
		if lr.l1Ratio < 0 || lr.l1Ratio > 1 {
			return errors.NewValidationError("l1_ratio", "must be in [0, 1]", lr.l1Ratio)
		}
	}
	if lr.multiClass == "multinomial" && lr.solver == "liblinear" {
		return errors.NewValidationError("multi_class", "multinomial is not supported by liblinear", lr.solver)
	}
	if lr.c <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.c)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if lr.tol <= 0 {
		return errors.NewValidationError("tol", "must be positive", lr.tol)
	}
	return nil
}

// Fit trains the classifier on attributes X and labels y (n x 1).
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validateParams(); err != nil {
		return err
	}
	if X == nil || y == nil {
		return errors.NewValueError("LogisticRegression.Fit", "nil input matrix")
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", "y must be a column vector")
	}

	lr.extractClasses(y)
	if len(lr.classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "need at least two classes in y")
	}

	// Warm start only reuses weights whose shape still fits the data:
	// same feature count and one coefficient row per trained problem.
	wantRows := 1
	if len(lr.classes) > 2 {
		wantRows = len(lr.classes)
	}
	coefRows := 0
	if lr.coef != nil {
		coefRows, _ = lr.coef.Dims()
	}
	reuse := lr.warmStart && lr.coef != nil && lr.nFeatures == nFeatures && coefRows == wantRows
	lr.nFeatures = nFeatures
	if !reuse {
		lr.initializeWeights(nFeatures)
	}

	weights := lr.sampleWeights(y)

	if lr.verbose > 0 {
		slog.Debug("fitting logistic regression",
			mnlog.ModelNameKey, "LogisticRegression",
			mnlog.OperationKey, "fit",
			mnlog.SolverKey, lr.solver,
			mnlog.SamplesKey, nSamples,
			mnlog.FeaturesKey, nFeatures,
		)
	}

	var err error
	switch {
	case len(lr.classes) == 2:
		err = lr.fitClass(X, y, weights, 0, lr.classes[1])
	case lr.multiClass == "multinomial":
		err = lr.fitMultinomial(X, y, weights)
	default:
		// "auto" and "ovr" both train one-vs-rest binary problems.
		err = lr.fitOVR(X, y, weights)
	}
	if err != nil {
		return err
	}

	lr.fitted = true
	return nil
}

// extractClasses collects the sorted set of distinct labels in y.
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	classSet := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classSet[int(y.At(i, 0))] = true
	}

	lr.classes = make([]int, 0, len(classSet))
	for class := range classSet {
		lr.classes = append(lr.classes, class)
	}
	sort.Ints(lr.classes)
}

// initializeWeights seeds coefficient rows with small random values.
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nRows := 1
	if len(lr.classes) > 2 {
		nRows = len(lr.classes)
	}

	lr.coef = mat.NewDense(nRows, nFeatures, nil)
	lr.intercept = make([]float64, nRows)
	lr.nIter = make([]int, nRows)

	for i := 0; i < nRows; i++ {
		for j := 0; j < nFeatures; j++ {
			lr.coef.Set(i, j, lr.rng.NormFloat64()*0.01)
		}
	}
}

// sampleWeights returns per-sample weights. "balanced" weights each
// sample by n / (nClasses * count(class)) so rare classes pull harder.
func (lr *LogisticRegression) sampleWeights(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	weights := make([]float64, rows)

	if lr.classWeight != "balanced" {
		for i := range weights {
			weights[i] = 1.0
		}
		return weights
	}

	counts := make(map[int]int)
	for i := 0; i < rows; i++ {
		counts[int(y.At(i, 0))]++
	}
	for i := 0; i < rows; i++ {
		label := int(y.At(i, 0))
		weights[i] = float64(rows) / (float64(len(counts)) * float64(counts[label]))
	}
	return weights
}

// penaltyGrad returns the regularization gradient for a single weight.
func (lr *LogisticRegression) penaltyGrad(w float64) float64 {
	lambda := 1.0 / lr.c
	switch lr.penalty {
	case "l2":
		return lambda * w
	case "l1":
		return lambda * sign(w)
	case "elasticnet":
		return lambda * (lr.l1Ratio*sign(w) + (1-lr.l1Ratio)*w)
	default:
		return 0
	}
}

// fitClass runs gradient descent on one binary subproblem: samples with
// label positiveClass against everything else, written into coefficient
// row classIdx.
func (lr *LogisticRegression) fitClass(X, y mat.Matrix, sampleWeight []float64, classIdx, positiveClass int) error {
	nSamples, nFeatures := X.Dims()

	target := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		if int(y.At(i, 0)) == positiveClass {
			target[i] = 1.0
		}
	}

	weights := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		weights[j] = lr.coef.At(classIdx, j)
	}
	intercept := lr.intercept[classIdx]

	const baseLearningRate = 1.0
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := intercept * lr.interceptScaling
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sampleWeight[i] * (sigmoid(z) - target[i])
			gradIntercept += residual * lr.interceptScaling
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] = gradWeights[j]/float64(nSamples) + lr.penaltyGrad(weights[j])
		}
		gradIntercept /= float64(nSamples)

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			intercept -= learningRate * gradIntercept
		}

		lr.nIter[classIdx] = iter + 1

		if lr.verbose > 0 && (iter+1)%100 == 0 {
			slog.Debug("gradient descent progress",
				mnlog.OperationKey, "fit",
				"class_index", classIdx,
				"iteration", iter+1,
			)
		}

		if maxAbsGrad(gradWeights, gradIntercept) < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}

	for j := 0; j < nFeatures; j++ {
		lr.coef.Set(classIdx, j, weights[j])
	}
	lr.intercept[classIdx] = intercept

	return nil
}

// fitOVR trains one binary classifier per class.
func (lr *LogisticRegression) fitOVR(X, y mat.Matrix, sampleWeight []float64) error {
	for classIdx, class := range lr.classes {
		if err := lr.fitClass(X, y, sampleWeight, classIdx, class); err != nil {
			return errors.Wrapf(err, "one-vs-rest fit failed for class %d", class)
		}
	}
	return nil
}

// fitMultinomial trains all classes jointly with softmax gradient descent.
func (lr *LogisticRegression) fitMultinomial(X, y mat.Matrix, sampleWeight []float64) error {
	nSamples, nFeatures := X.Dims()
	nClasses := len(lr.classes)

	classIdx := make(map[int]int, nClasses)
	for i, c := range lr.classes {
		classIdx[c] = i
	}

	const baseLearningRate = 1.0
	converged := false
	iterations := 0

	for iter := 0; iter < lr.maxIter; iter++ {
		gradW := mat.NewDense(nClasses, nFeatures, nil)
		gradB := make([]float64, nClasses)

		for i := 0; i < nSamples; i++ {
			probs := lr.softmaxRow(X, i)
			yi := classIdx[int(y.At(i, 0))]
			for k := 0; k < nClasses; k++ {
				indicator := 0.0
				if k == yi {
					indicator = 1.0
				}
				residual := sampleWeight[i] * (probs[k] - indicator)
				gradB[k] += residual * lr.interceptScaling
				for j := 0; j < nFeatures; j++ {
					gradW.Set(k, j, gradW.At(k, j)+residual*X.At(i, j))
				}
			}
		}

		maxGrad := 0.0
		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))

		for k := 0; k < nClasses; k++ {
			gradB[k] /= float64(nSamples)
			if math.Abs(gradB[k]) > maxGrad {
				maxGrad = math.Abs(gradB[k])
			}
			if lr.fitIntercept {
				lr.intercept[k] -= learningRate * gradB[k]
			}
			for j := 0; j < nFeatures; j++ {
				g := gradW.At(k, j)/float64(nSamples) + lr.penaltyGrad(lr.coef.At(k, j))
				if math.Abs(g) > maxGrad {
					maxGrad = math.Abs(g)
				}
				lr.coef.Set(k, j, lr.coef.At(k, j)-learningRate*g)
			}
		}

		iterations = iter + 1
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	for k := range lr.nIter {
		lr.nIter[k] = iterations
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}

	return nil
}

// softmaxRow computes class probabilities for row i of X using the
// current weights.
func (lr *LogisticRegression) softmaxRow(X mat.Matrix, i int) []float64 {
	nClasses := len(lr.classes)
	scores := make([]float64, nClasses)
	maxScore := math.Inf(-1)

	for k := 0; k < nClasses; k++ {
		s := lr.intercept[k] * lr.interceptScaling
		for j := 0; j < lr.nFeatures; j++ {
			s += X.At(i, j) * lr.coef.At(k, j)
		}
		scores[k] = s
		if s > maxScore {
			maxScore = s
		}
	}

	sum := 0.0
	for k := range scores {
		scores[k] = math.Exp(scores[k] - maxScore)
		sum += scores[k]
	}
	for k := range scores {
		scores[k] /= sum
	}
	return scores
}

// Predict returns an n x 1 matrix of predicted class labels.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.fitted {
		return nil, errors.NewNotFittedError("LogisticRegression", "Predict")
	}
	if err := lr.checkFeatures(X, "Predict"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)

	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(nSamples, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if len(lr.classes) == 2 {
				z := lr.intercept[0] * lr.interceptScaling
				for j := 0; j < lr.nFeatures; j++ {
					z += X.At(i, j) * lr.coef.At(0, j)
				}
				if sigmoid(z) >= 0.5 {
					predictions.Set(i, 0, float64(lr.classes[1]))
				} else {
					predictions.Set(i, 0, float64(lr.classes[0]))
				}
			} else {
				best, bestScore := 0, math.Inf(-1)
				for k := range lr.classes {
					s := lr.intercept[k] * lr.interceptScaling
					for j := 0; j < lr.nFeatures; j++ {
						s += X.At(i, j) * lr.coef.At(k, j)
					}
					if s > bestScore {
						bestScore = s
						best = k
					}
				}
				predictions.Set(i, 0, float64(lr.classes[best]))
			}
		}
	})

	return predictions, nil
}

// PredictProba returns an n x nClasses matrix of class probabilities,
// columns ordered by Classes().
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lr.fitted {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	if err := lr.checkFeatures(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	nClasses := len(lr.classes)
	probas := mat.NewDense(nSamples, nClasses, nil)

	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(nSamples, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if nClasses == 2 {
				z := lr.intercept[0] * lr.interceptScaling
				for j := 0; j < lr.nFeatures; j++ {
					z += X.At(i, j) * lr.coef.At(0, j)
				}
				p1 := sigmoid(z)
				probas.Set(i, 0, 1.0-p1)
				probas.Set(i, 1, p1)
			} else {
				for k, p := range lr.softmaxRow(X, i) {
					probas.Set(i, k, p)
				}
			}
		}
	})

	return probas, nil
}

// Score returns the mean accuracy of Predict on X against y.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// checkFeatures validates the column count of a prediction input.
func (lr *LogisticRegression) checkFeatures(X mat.Matrix, method string) error {
	if X == nil {
		return errors.NewValueError("LogisticRegression."+method, "nil input matrix")
	}
	_, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures {
		return errors.NewDimensionError("LogisticRegression."+method, lr.nFeatures, nFeatures, 1)
	}
	return nil
}

// IsFitted reports whether Fit has completed successfully.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.fitted
}

// Classes returns a copy of the sorted class labels seen during fitting.
func (lr *LogisticRegression) Classes() []int {
	out := make([]int, len(lr.classes))
	copy(out, lr.classes)
	return out
}

// Coef returns the learned coefficient matrix: one row for binary
// problems, one row per class otherwise.
func (lr *LogisticRegression) Coef() *mat.Dense {
	return lr.coef
}

// Intercept returns the learned intercept terms.
func (lr *LogisticRegression) Intercept() []float64 {
	return lr.intercept
}

// NIter returns the iterations taken per coefficient row.
func (lr *LogisticRegression) NIter() []int {
	return lr.nIter
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func sign(w float64) float64 {
	switch {
	case w > 0:
		return 1
	case w < 0:
		return -1
	default:
		return 0
	}
}

func maxAbsGrad(gradWeights []float64, gradIntercept float64) float64 {
	maxGrad := math.Abs(gradIntercept)
	for _, g := range gradWeights {
		if math.Abs(g) > maxGrad {
			maxGrad = math.Abs(g)
		}
	}
	return maxGrad
}
