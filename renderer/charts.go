package renderer

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts writes a standalone HTML page with the distribution and the
// performance charts. Every call builds new chart instances.
func Charts(w io.Writer, d *Dashboard) error {
	theme := types.ThemeWesteros
	if d.DarkMode {
		theme = types.ThemeChalk
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: theme, PageTitle: "Crypto Portfolio"}),
		charts.WithTitleOpts(opts.Title{Title: "Portfolio Distribution", Subtitle: "valued at catalog prices"}),
	)
	items := make([]opts.PieData, 0, len(d.Distribution))
	for _, s := range d.Distribution {
		items = append(items, opts.PieData{Name: s.Label, Value: s.Value.Round(2).AsFloat()})
	}
	pie.AddSeries("distribution", items)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: theme}),
		charts.WithTitleOpts(opts.Title{Title: "Portfolio Performance", Subtitle: "illustrative data"}),
	)
	months := make([]string, 0, len(d.Trend))
	values := make([]opts.LineData, 0, len(d.Trend))
	for _, p := range d.Trend {
		months = append(months, p.Month)
		values = append(values, opts.LineData{Value: p.Value})
	}
	line.SetXAxis(months).AddSeries("Portfolio Value", values)

	page := components.NewPage()
	page.PageTitle = "Crypto Portfolio"
	page.AddCharts(pie, line)
	return page.Render(w)
}
