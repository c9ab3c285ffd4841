package jitter

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var colors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	{R: 127, G: 127, B: 127, A: 255},
	{R: 188, G: 189, B: 34, A: 255},
	{R: 23, G: 190, B: 207, A: 255},
}

// SavePlot draws horizontal center of every object over frames, raw dashed and stabilized solid.
// Image format follows file extension of path.
func SavePlot(path string, observations []Observation) error {
	keys, tracks := GroupByTrack(observations)
	if len(keys) == 0 {
		return errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = "Box center X: raw vs stabilized"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Center X (px)"

	for i, key := range keys {
		track := tracks[key]
		rawPts := make(plotter.XYs, 0, len(track))
		stablePts := make(plotter.XYs, 0, len(track))
		for _, observation := range track {
			rawPts = append(rawPts, plotter.XY{X: float64(observation.Frame), Y: float64(observation.Raw.Center().Data0)})
			stablePts = append(stablePts, plotter.XY{X: float64(observation.Frame), Y: float64(observation.Stable.Center().Data0)})
		}
		lineColor := colors[i%len(colors)]

		rawLine, err := plotter.NewLine(rawPts)
		if err != nil {
			return errors.Wrapf(err, "Can't build raw line of %s", key)
		}
		rawLine.Color = lineColor
		rawLine.Width = vg.Points(1)
		rawLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(rawLine)
		p.Legend.Add(fmt.Sprintf("%s raw", key), rawLine)

		stableLine, err := plotter.NewLine(stablePts)
		if err != nil {
			return errors.Wrapf(err, "Can't build stabilized line of %s", key)
		}
		stableLine.Color = lineColor
		stableLine.Width = vg.Points(2)
		p.Add(stableLine)
		p.Legend.Add(fmt.Sprintf("%s stable", key), stableLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
