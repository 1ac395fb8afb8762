package scope

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotWriter renders a recording as a static waveform image.
type PlotWriter struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

func NewPlotWriter(title string) *PlotWriter {
	return &PlotWriter{
		Title:  title,
		Width:  8 * vg.Inch,
		Height: 4 * vg.Inch,
	}
}

func (pw *PlotWriter) build(rec Recording) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = pw.Title
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "V"
	p.Add(plotter.NewGrid())

	for col, label := range rec.Labels {
		series := rec.column(col)
		pts := make(plotter.XYs, len(series))
		for i, v := range series {
			pts[i].X = rec.Time[i]
			pts[i].Y = v
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plotting %s: %w", label, err)
		}
		line.Color = plotutil.Color(col)
		line.Dashes = plotutil.Dashes(col / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(label, line)
	}
	p.Legend.Top = true
	return p, nil
}

// Render writes the image in the given format ("png", "svg", "pdf", ...).
func (pw *PlotWriter) Render(w io.Writer, rec Recording, format string) error {
	p, err := pw.build(rec)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(pw.Width, pw.Height, format)
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes the image to path, the format taken from its extension.
func (pw *PlotWriter) Save(path string, rec Recording) error {
	p, err := pw.build(rec)
	if err != nil {
		return err
	}
	if strings.TrimPrefix(filepath.Ext(path), ".") == "" {
		return fmt.Errorf("cannot infer image format from %q", path)
	}
	return p.Save(pw.Width, pw.Height, path)
}
