// Package shallow provides the interactive wrapper around the
// logistic-regression estimator: parameter collection, the run/predict
// lifecycle and report rendering.
package shallow

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ParensAllTheWayDown/ManufacturingNet/model_selection"
	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// DefaultTestSize is the held-out fraction used when the operator
// accepts the defaults.
const DefaultTestSize = 0.25

// Config is the immutable parameter record built once per run. Zero is
// not a useful Config; start from DefaultConfig.
type Config struct {
	// TestSize is the fraction of the dataset held out for testing,
	// exclusive between 0 and 1.
	TestSize float64 `yaml:"test_size"`

	// CV is the cross-validation fold count. Zero means unset, in which
	// case the collaborator's default fold count applies.
	CV int `yaml:"cv"`

	// Penalty selects the regularization norm: l1, l2, elasticnet or none.
	Penalty string `yaml:"penalty"`

	// Dual selects the dual formulation (liblinear with l2 only).
	Dual bool `yaml:"dual"`

	// Tol is the solver stopping tolerance.
	Tol float64 `yaml:"tol"`

	// C is the inverse regularization strength.
	C float64 `yaml:"c"`

	// FitIntercept adds a bias term to the decision function.
	FitIntercept bool `yaml:"fit_intercept"`

	// InterceptScaling is the synthetic intercept feature value, used
	// only when FitIntercept is set.
	InterceptScaling float64 `yaml:"intercept_scaling"`

	// ClassWeight is "none" or "balanced".
	ClassWeight string `yaml:"class_weight"`

	// RandomState seeds data shuffling and weight initialization.
	// Negative means unseeded.
	RandomState int64 `yaml:"random_state"`

	// Solver names the optimization algorithm.
	Solver string `yaml:"solver"`

	// MaxIter caps the solver iterations.
	MaxIter int `yaml:"max_iter"`

	// MultiClass is "auto", "ovr" or "multinomial".
	MultiClass string `yaml:"multi_class"`

	// Verbose enables solver progress output when positive.
	Verbose int `yaml:"verbose"`

	// WarmStart reuses the previous solution as initialization.
	WarmStart bool `yaml:"warm_start"`

	// NJobs hints the computation parallelism. Zero means unset.
	NJobs int `yaml:"n_jobs"`

	// L1Ratio is the elastic-net mixing parameter, used only when
	// Penalty is elasticnet.
	L1Ratio float64 `yaml:"l1_ratio"`
}

// DefaultConfig returns the record produced when the operator accepts
// all defaults.
func DefaultConfig() Config {
	return Config{
		TestSize:         DefaultTestSize,
		CV:               0,
		Penalty:          "l2",
		Dual:             false,
		Tol:              1e-4,
		C:                1.0,
		FitIntercept:     true,
		InterceptScaling: 1.0,
		ClassWeight:      "none",
		RandomState:      -1,
		Solver:           "lbfgs",
		MaxIter:          100,
		MultiClass:       "auto",
		Verbose:          0,
		WarmStart:        false,
		NJobs:            0,
		L1Ratio:          0.5,
	}
}

// Folds returns the effective cross-validation fold count.
func (c Config) Folds() int {
	if c.CV <= 0 {
		return model_selection.DefaultFolds
	}
	return c.CV
}

// Validate checks the wrapper-level fields. Estimator hyperparameters
// are validated by the estimator itself at fit time.
func (c Config) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.CV == 1 || c.CV < 0 {
		return errors.NewValidationError("cv", "must be 0 (unset) or at least 2", c.CV)
	}
	return nil
}

// LoadConfig reads a YAML preset file over the defaults, so a preset
// only needs the fields it changes.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
