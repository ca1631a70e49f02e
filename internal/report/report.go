// Package report renders an HTML scatter chart of track trajectories
// and report-to-track associations for a processed session. Diagnostic
// output only; nothing in the pipeline depends on it.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/yogzz2023/jn3/internal/assoc"
	"github.com/yogzz2023/jn3/internal/pipeline"
)

// Render writes an HTML chart of the session to w: one series per track
// trajectory (filtered XY positions over time), one series for
// associated reports and one for unassociated reports.
func Render(w io.Writer, res *pipeline.Result) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Track Associations",
			Theme:     "dark",
			Width:     "900px",
			Height:    "900px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Track trajectories and report associations",
			Subtitle: fmt.Sprintf("tracks=%d reports=%d hypotheses=%d", len(res.Tracks), len(res.Reports), len(res.Hypotheses)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
	)

	for i, track := range res.Tracks {
		data := make([]opts.ScatterData, 0, len(track.History))
		for _, snap := range track.History {
			data = append(data, opts.ScatterData{Value: []interface{}{snap.State[0], snap.State[1]}})
		}
		scatter.AddSeries(fmt.Sprintf("track %d (%s)", i, track.ID), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}

	var associated, orphaned []opts.ScatterData
	for i, r := range res.Reports {
		point := opts.ScatterData{Value: []interface{}{r.X, r.Y}}
		if i < len(res.Associations) && res.Associations[i].Track != assoc.Unassigned {
			associated = append(associated, point)
		} else {
			orphaned = append(orphaned, point)
		}
	}
	scatter.AddSeries("associated reports", associated,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	scatter.AddSeries("unassociated reports", orphaned,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render association chart: %w", err)
	}
	return nil
}

// WriteFile renders the session chart to an HTML file at path.
func WriteFile(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := Render(f, res); err != nil {
		return err
	}
	return f.Close()
}
