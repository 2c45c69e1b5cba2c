package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/algo-transcribe/analysis"
)

// PlotHistory draws best and mean fitness per generation. The image format
// follows the extension of path.
func PlotHistory(path string, history []analysis.Stats) error {
	if len(history) == 0 {
		return fmt.Errorf("empty history")
	}
	p := plot.New()
	p.Title.Text = "Fitness"
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"

	bestPts := make(plotter.XYs, len(history))
	meanPts := make(plotter.XYs, len(history))
	for i, st := range history {
		bestPts[i].X = float64(i)
		bestPts[i].Y = st.Best
		meanPts[i].X = float64(i)
		meanPts[i].Y = st.Mean
	}

	bestLine, err := plotter.NewLine(bestPts)
	if err != nil {
		return err
	}
	meanLine, err := plotter.NewLine(meanPts)
	if err != nil {
		return err
	}
	meanLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(bestLine, meanLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("mean", meanLine)
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
