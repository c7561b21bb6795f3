// Command shallowlearn trains a logistic regression model on a CSV
// dataset through the interactive parameter collector. The last CSV
// column is the class label; every other column is a feature.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/log"
	"github.com/ParensAllTheWayDown/ManufacturingNet/preprocessing"
	"github.com/ParensAllTheWayDown/ManufacturingNet/shallow"
)

func main() {
	preset := flag.String("preset", "", "YAML preset file; skips the interactive prompts")
	rocPath := flag.String("roc", "", "write a ROC curve image to this path after a binary run")
	scale := flag.Bool("scale", false, "standardize features to zero mean and unit variance before training")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] dataset.csv\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetupLogger(*logLevel)

	attributes, labels, err := loadCSV(flag.Arg(0))
	if err != nil {
		slog.Error("failed to load dataset", log.ErrAttr(err))
		os.Exit(1)
	}

	if *scale {
		scaled, err := preprocessing.NewStandardScaler().FitTransform(attributes)
		if err != nil {
			slog.Error("failed to scale dataset", log.ErrAttr(err))
			os.Exit(1)
		}
		attributes = scaled
	}

	opts := []shallow.RunnerOption{}
	if *preset != "" {
		cfg, err := shallow.LoadConfig(*preset)
		if err != nil {
			slog.Error("failed to load preset", log.ErrAttr(err))
			os.Exit(1)
		}
		opts = append(opts, shallow.WithCollector(shallow.PresetCollector{Config: cfg}))
	}
	if *rocPath != "" {
		opts = append(opts, shallow.WithROCPlot(*rocPath))
	}

	runner := shallow.NewLogRegression(attributes, labels, opts...)
	if _, err := runner.Run(); err != nil {
		os.Exit(1)
	}
}

// loadCSV reads a numeric CSV file into an attributes matrix and a
// labels column. A non-numeric first row is treated as a header and
// skipped.
func loadCSV(path string) (*mat.Dense, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening dataset %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	var rows [][]float64
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading dataset %s", path)
		}
		line++

		values := make([]float64, len(record))
		parseErr := error(nil)
		for i, field := range record {
			values[i], parseErr = strconv.ParseFloat(field, 64)
			if parseErr != nil {
				break
			}
		}
		if parseErr != nil {
			if line == 1 {
				continue // header row
			}
			return nil, nil, errors.Wrapf(parseErr, "dataset %s line %d", path, line)
		}
		if len(values) < 2 {
			return nil, nil, errors.Newf("dataset %s line %d: need at least one feature and a label", path, line)
		}
		rows = append(rows, values)
	}

	if len(rows) == 0 {
		return nil, nil, errors.Wrapf(errors.ErrEmptyData, "dataset %s", path)
	}

	nCols := len(rows[0])
	attributes := mat.NewDense(len(rows), nCols-1, nil)
	labels := mat.NewDense(len(rows), 1, nil)
	for i, row := range rows {
		if len(row) != nCols {
			return nil, nil, errors.Newf("dataset %s: row %d has %d columns, want %d", path, i+1, len(row), nCols)
		}
		for j := 0; j < nCols-1; j++ {
			attributes.Set(i, j, row[j])
		}
		labels.Set(i, 0, row[nCols-1])
	}
	return attributes, labels, nil
}
