package shallow

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/mat"
)

var (
	bannerColor  = color.New(color.FgCyan, color.Bold)
	headerColor  = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
)

// banner prints a section divider around msg.
func banner(w io.Writer, msg string) {
	bannerColor.Fprintf(w, "\n= %s =\n\n", msg)
}

// failure prints a diagnostic line the operator is meant to act on.
func failure(w io.Writer, msg string) {
	failureColor.Fprintln(w, msg)
}

// renderReport prints the run summary: learned attributes first, then
// the evaluation metrics.
func (lr *LogRegression) renderReport(r *Result) {
	w := lr.out

	banner(w, "LogRegression Results")

	headerColor.Fprintln(w, "Classes:")
	fmt.Fprintln(w, formatClasses(r.Classes))
	headerColor.Fprintln(w, "Coefficients:")
	fmt.Fprintf(w, "%v\n", mat.Formatted(r.Coefficients, mat.Prefix(""), mat.Squeeze()))
	headerColor.Fprintln(w, "Intercept:")
	fmt.Fprintln(w, formatFloats(r.Intercept))
	headerColor.Fprintln(w, "Number of iterations:")
	fmt.Fprintln(w, formatInts(r.NIter))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-20s %.6f\n", "Accuracy:", r.Accuracy)
	if math.IsNaN(r.ROCAUC) {
		fmt.Fprintf(w, "%-20s %s\n", "ROC AUC:", "n/a (multiclass)")
	} else {
		fmt.Fprintf(w, "%-20s %.6f\n", "ROC AUC:", r.ROCAUC)
	}
	fmt.Fprintf(w, "%-20s %s\n", "Cross validation:", formatFloats(r.CrossValScores))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Call Predict() to make predictions for new data.")

	banner(w, "End of results.")
}

// renderPredictions prints predicted labels one per line.
func renderPredictions(w io.Writer, pred mat.Matrix) {
	banner(w, "Predictions")
	rows, _ := pred.Dims()
	for i := 0; i < rows; i++ {
		fmt.Fprintf(w, "%g\n", pred.At(i, 0))
	}
	banner(w, "End of predictions.")
}

func formatClasses(classes []int) string {
	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
