package shallow

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ParensAllTheWayDown/ManufacturingNet/pkg/errors"
)

// rocPoints sweeps the decision threshold over the scores and returns
// the (false positive rate, true positive rate) curve. yTrue must hold
// binary 0/1 labels; the curve starts at (0, 0) and ends at (1, 1).
func rocPoints(yTrue, yScore *mat.VecDense) (plotter.XYs, error) {
	n := yTrue.Len()
	if n != yScore.Len() {
		return nil, errors.NewDimensionError("roc_points", n, yScore.Len(), 0)
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "roc_points")
	}

	var positives, negatives float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			positives++
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return nil, errors.NewValueError("roc_points", "labels contain a single class")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return yScore.AtVec(order[a]) > yScore.AtVec(order[b])
	})

	pts := plotter.XYs{{X: 0, Y: 0}}
	var tp, fp float64
	for idx := 0; idx < n; {
		// Samples sharing a score move together so ties do not
		// fabricate intermediate points.
		threshold := yScore.AtVec(order[idx])
		for idx < n && yScore.AtVec(order[idx]) == threshold {
			if yTrue.AtVec(order[idx]) == 1 {
				tp++
			} else {
				fp++
			}
			idx++
		}
		pts = append(pts, plotter.XY{X: fp / negatives, Y: tp / positives})
	}
	return pts, nil
}

// saveROCPlot renders the ROC curve for true labels against predicted
// scores and writes it to path. The image format follows the file
// extension.
func saveROCPlot(path string, yTrue, yScore mat.Matrix) error {
	yt, ys, err := vectorPair("roc_plot", yTrue, yScore)
	if err != nil {
		return err
	}
	pts, err := rocPoints(yt, ys)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Receiver Operating Characteristic"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "roc_plot: build curve")
	}
	p.Add(curve)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "roc_plot: build chance line")
	}
	chance.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "roc_plot: save %s", path)
	}
	return nil
}

// vectorPair coerces two single-column matrices into vectors of equal
// length.
func vectorPair(op string, a, b mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	aRows, _ := a.Dims()
	bRows, _ := b.Dims()
	if aRows != bRows {
		return nil, nil, errors.NewDimensionError(op, aRows, bRows, 0)
	}
	av := mat.NewVecDense(aRows, nil)
	bv := mat.NewVecDense(bRows, nil)
	for i := 0; i < aRows; i++ {
		av.SetVec(i, a.At(i, 0))
		bv.SetVec(i, b.At(i, 0))
	}
	return av, bv, nil
}
