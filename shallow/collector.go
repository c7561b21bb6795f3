package shallow

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// Collector produces a Config for a run.
type Collector interface {
	Collect() Config
}

// PresetCollector is a Collector that returns a fixed Config without
// prompting, for scripted runs.
type PresetCollector struct {
	Config Config
}

// Collect returns the preset Config.
func (p PresetCollector) Collect() Config {
	return p.Config
}

// quitSentinel stops parameter collection early. Matching is
// case-insensitive; every field gathered so far is kept and the rest
// stay at their defaults.
const quitSentinel = "q"

// field describes one prompt of the collection sequence. parse applies
// the raw input to the config; a parse error means the input was not
// usable and the field keeps its prior value. That lenient fallback is
// the collector's contract: malformed input other than the quit
// sentinel is "no change", never a hard error.
type field struct {
	name   string
	prompt string
	gate   func(*Config) bool
	parse  func(raw string, cfg *Config) error
}

// parameterFields returns the prompt sequence in its fixed order.
// Gated fields are only asked when their condition holds.
func parameterFields() []field {
	return []field{
		{
			name:   "test_size",
			prompt: "What fraction of the dataset should be the testing set? Input a decimal (default 0.25): ",
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return err
				}
				if v <= 0 || v >= 1 {
					return errors.NewValidationError("test_size", "must be in (0, 1)", v)
				}
				cfg.TestSize = v
				return nil
			},
		},
		{
			name:   "cv",
			prompt: "Input the number of folds for cross validation (default 5): ",
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					return err
				}
				if v < 2 {
					return errors.NewValidationError("cv", "must be at least 2", v)
				}
				cfg.CV = v
				return nil
			},
		},
		{
			name:   "penalty",
			prompt: "Which norm should be used in penalization?\nEnter 1 for 'l1', 2 for 'l2', 3 for 'elasticnet', or 4 for 'none' (default l2): ",
			parse: func(raw string, cfg *Config) error {
				return parseChoice(raw, map[string]string{
					"1": "l1", "2": "l2", "3": "elasticnet", "4": "none",
				}, &cfg.Penalty)
			},
		},
		{
			name:   "dual",
			prompt: "Use dual formulation (y/N)? ",
			parse: func(raw string, cfg *Config) error {
				return parseYesNo(raw, &cfg.Dual)
			},
		},
		{
			name:   "tol",
			prompt: "Enter a number for the tolerance for stopping criteria (default 0.0001): ",
			parse: func(raw string, cfg *Config) error {
				return parsePositiveFloat(raw, "tol", &cfg.Tol)
			},
		},
		{
			name:   "c",
			prompt: "Enter a positive number for the inverse of regularization strength C (default 1.0): ",
			parse: func(raw string, cfg *Config) error {
				return parsePositiveFloat(raw, "C", &cfg.C)
			},
		},
		{
			name:   "fit_intercept",
			prompt: "Include a y-intercept in the model (Y/n)? ",
			parse: func(raw string, cfg *Config) error {
				return parseYesNo(raw, &cfg.FitIntercept)
			},
		},
		{
			name:   "intercept_scaling",
			prompt: "Enter a number for the intercept scaling factor (default 1.0): ",
			gate:   func(cfg *Config) bool { return cfg.FitIntercept },
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return err
				}
				cfg.InterceptScaling = v
				return nil
			},
		},
		{
			name:   "class_weight",
			prompt: "Automatically balance the class weights (y/N)? ",
			parse: func(raw string, cfg *Config) error {
				var balanced bool
				if err := parseYesNo(raw, &balanced); err != nil {
					return err
				}
				if balanced {
					cfg.ClassWeight = "balanced"
				} else {
					cfg.ClassWeight = "none"
				}
				return nil
			},
		},
		{
			name:   "random_state",
			prompt: "Input an integer for the random number seed: ",
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
				if err != nil {
					return err
				}
				cfg.RandomState = v
				return nil
			},
		},
		{
			name:   "solver",
			prompt: "Which algorithm should be used in the optimization problem?\nEnter 1 for 'newton-cg', 2 for 'lbfgs', 3 for 'liblinear', 4 for 'sag', or 5 for 'saga' (default lbfgs): ",
			parse: func(raw string, cfg *Config) error {
				return parseChoice(raw, map[string]string{
					"1": "newton-cg", "2": "lbfgs", "3": "liblinear", "4": "sag", "5": "saga",
				}, &cfg.Solver)
			},
		},
		{
			name:   "max_iter",
			prompt: "Enter the max number of iterations (default 100): ",
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					return err
				}
				if v < 1 {
					return errors.NewValidationError("max_iter", "must be positive", v)
				}
				cfg.MaxIter = v
				return nil
			},
		},
		{
			name:   "multi_class",
			prompt: "Please choose a multiclass scheme.\nEnter 1 for one-vs-rest, 2 for multinomial, or 3 to automatically choose (default auto): ",
			parse: func(raw string, cfg *Config) error {
				return parseChoice(raw, map[string]string{
					"1": "ovr", "2": "multinomial", "3": "auto",
				}, &cfg.MultiClass)
			},
		},
		{
			name:   "verbose",
			prompt: "Enable verbose output during training (y/N)? ",
			parse: func(raw string, cfg *Config) error {
				var on bool
				if err := parseYesNo(raw, &on); err != nil {
					return err
				}
				if on {
					cfg.Verbose = 1
				} else {
					cfg.Verbose = 0
				}
				return nil
			},
		},
		{
			name:   "warm_start",
			prompt: "Enable warm start? This will use the previous solution for fitting (y/N): ",
			parse: func(raw string, cfg *Config) error {
				return parseYesNo(raw, &cfg.WarmStart)
			},
		},
		{
			name:   "n_jobs",
			prompt: "Input the number of jobs for computation: ",
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil {
					return err
				}
				cfg.NJobs = v
				return nil
			},
		},
		{
			name:   "l1_ratio",
			prompt: "Enter a number for the Elastic-Net mixing parameter (default 0.5): ",
			gate:   func(cfg *Config) bool { return cfg.Penalty == "elasticnet" },
			parse: func(raw string, cfg *Config) error {
				v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return err
				}
				if v < 0 || v > 1 {
					return errors.NewValidationError("l1_ratio", "must be in [0, 1]", v)
				}
				cfg.L1Ratio = v
				return nil
			},
		},
	}
}

// ParameterCollector walks the operator through each hyperparameter in
// a fixed order, or returns the defaults outright.
type ParameterCollector struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewParameterCollector reads responses from in and writes prompts to out.
func NewParameterCollector(in io.Reader, out io.Writer) *ParameterCollector {
	return &ParameterCollector{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Collect runs the question sequence and returns a fully populated
// Config. Every field ends up with either an operator-supplied value or
// its default.
func (pc *ParameterCollector) Collect() Config {
	cfg := DefaultConfig()

	banner(pc.out, "Parameter inputs for LogRegression")

	if answer := pc.ask("Use default parameters (Y/n)? "); !strings.EqualFold(strings.TrimSpace(answer), "n") {
		banner(pc.out, "End of parameter inputs.")
		return cfg
	}

	fmt.Fprintln(pc.out, "\nIf you are unsure about a parameter, press enter to use its default value.")
	fmt.Fprintf(pc.out, "If you finish entering parameters early, enter '%s' to skip ahead.\n\n", quitSentinel)

	for _, f := range parameterFields() {
		if f.gate != nil && !f.gate(&cfg) {
			continue
		}

		raw := pc.ask(f.prompt)
		if strings.EqualFold(strings.TrimSpace(raw), quitSentinel) {
			break
		}
		// Malformed input keeps the field's prior value.
		_ = f.parse(raw, &cfg)
	}

	banner(pc.out, "End of parameter inputs.")
	return cfg
}

// ask prints a prompt and returns the raw response line. Reaching end
// of input behaves like the quit sentinel.
func (pc *ParameterCollector) ask(prompt string) string {
	fmt.Fprint(pc.out, prompt)
	if !pc.scanner.Scan() {
		return quitSentinel
	}
	return pc.scanner.Text()
}

// parseYesNo reads a y/n answer into dst. An empty or unrecognized
// answer is a parse failure, so the field keeps its prior value.
func parseYesNo(raw string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes":
		*dst = true
		return nil
	case "n", "no":
		*dst = false
		return nil
	default:
		return errors.Newf("not a yes/no answer: %q", raw)
	}
}

// parseChoice maps a menu selection onto its value.
func parseChoice(raw string, choices map[string]string, dst *string) error {
	value, ok := choices[strings.TrimSpace(raw)]
	if !ok {
		return errors.Newf("not a menu option: %q", raw)
	}
	*dst = value
	return nil
}

// parsePositiveFloat reads a strictly positive float into dst.
func parsePositiveFloat(raw, name string, dst *float64) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return err
	}
	if v <= 0 {
		return errors.NewValidationError(name, "must be positive", v)
	}
	*dst = v
	return nil
}
