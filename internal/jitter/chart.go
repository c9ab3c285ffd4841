package jitter

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// RenderChart writes HTML scatter chart of box centers, one raw and one stabilized series per object
func RenderChart(w io.Writer, title string, frameWidth, frameHeight int, observations []Observation) error {
	keys, tracks := GroupByTrack(observations)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("tracks=%d observations=%d", len(keys), len(observations))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0.0, Max: float64(frameWidth), Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0.0, Max: float64(frameHeight), Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
	)

	for _, key := range keys {
		track := tracks[key]
		raw := make([]opts.ScatterData, 0, len(track))
		stable := make([]opts.ScatterData, 0, len(track))
		for _, observation := range track {
			rawCenter := observation.Raw.Center()
			stableCenter := observation.Stable.Center()
			raw = append(raw, opts.ScatterData{Value: []interface{}{rawCenter.Data0, rawCenter.Data1, observation.Frame}})
			stable = append(stable, opts.ScatterData{Value: []interface{}{stableCenter.Data0, stableCenter.Data1, observation.Frame}})
		}
		scatter.AddSeries(fmt.Sprintf("%s raw", key), raw, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
		scatter.AddSeries(fmt.Sprintf("%s stable", key), stable, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}

	if err := scatter.Render(w); err != nil {
		return errors.Wrap(err, "Can't render chart")
	}
	return nil
}
