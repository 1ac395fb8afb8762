package scope

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ChartWriter renders an interactive HTML oscilloscope page. Attached to a
// recorder it can also be served while the run is still emitting.
type ChartWriter struct {
	Title    string
	Subtitle string
	source   *Recorder
	logger   *slog.Logger
}

func NewChartWriter(title string, source *Recorder) *ChartWriter {
	return &ChartWriter{
		Title:    title,
		Subtitle: "probe voltages over time",
		source:   source,
		logger:   slog.Default(),
	}
}

func (c *ChartWriter) SetLogger(logger *slog.Logger) { c.logger = logger }

func (c *ChartWriter) line(rec Recording) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Title,
			Subtitle: c.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "t (s)",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "V",
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)

	times := make([]string, len(rec.Time))
	for i, t := range rec.Time {
		times[i] = strconv.FormatFloat(t, 'g', 6, 64)
	}
	line.SetXAxis(times)

	for col, label := range rec.Labels {
		series := rec.column(col)
		items := make([]opts.LineData, len(series))
		for i, v := range series {
			items[i] = opts.LineData{Value: v}
		}
		line.AddSeries(label, items)
	}
	return line
}

// Render writes the page for rec.
func (c *ChartWriter) Render(w io.Writer, rec Recording) error {
	page := components.NewPage()
	page.PageTitle = c.Title
	page.AddCharts(c.line(rec))
	return page.Render(w)
}

// ServeHTTP renders the attached recorder's current contents.
func (c *ChartWriter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if c.source == nil {
		http.Error(w, "no recording attached", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(w, c.source.Snapshot()); err != nil {
		c.logger.Warn("rendering chart", "error", err)
	}
}
