// Package render draws dashboard tables as PNG charts and XLSX workbooks.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/impulse-dash/backend/internal/dashboard"
)

var ErrPlaceholder = errors.New("chart has no data to draw")

var seriesColors = []color.Color{
	color.RGBA{R: 70, G: 130, B: 180, A: 255},
	color.RGBA{R: 221, G: 132, B: 82, A: 255},
	color.RGBA{R: 85, G: 168, B: 104, A: 255},
	color.RGBA{R: 196, G: 78, B: 82, A: 255},
	color.RGBA{R: 129, G: 114, B: 179, A: 255},
	color.RGBA{R: 147, G: 120, B: 96, A: 255},
}

type Options struct {
	WidthIn  float64
	HeightIn float64
}

func DefaultOptions() Options {
	return Options{WidthIn: 8, HeightIn: 5}
}

// PNG draws table as a PNG image.
func PNG(table dashboard.Table, opts Options) ([]byte, error) {
	if table.Placeholder() {
		return nil, fmt.Errorf("%w: %s", ErrPlaceholder, table.Error)
	}
	if opts.WidthIn <= 0 || opts.HeightIn <= 0 {
		opts = DefaultOptions()
	}

	p, err := newPlot(table)
	if err != nil {
		return nil, fmt.Errorf("failed to plot chart %q: %w", table.Chart, err)
	}

	wt, err := p.WriterTo(vg.Length(opts.WidthIn)*vg.Inch, vg.Length(opts.HeightIn)*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func newPlot(table dashboard.Table) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = table.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)

	var err error
	switch table.Kind {
	case dashboard.KindPie:
		err = shareBars(p, table)
	case dashboard.KindBar:
		if len(table.Series) > 0 {
			err = groupedBars(p, table)
		} else {
			err = countBars(p, table)
		}
	case dashboard.KindHistogram:
		err = histogram(p, table)
	case dashboard.KindBox:
		err = boxes(p, table)
	case dashboard.KindHeatmap:
		err = heatmap(p, table)
	default:
		err = fmt.Errorf("unknown chart kind %q", table.Kind)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func countBars(p *plot.Plot, table dashboard.Table) error {
	values := make(plotter.Values, len(table.Counts))
	for i, n := range table.Counts {
		values[i] = float64(n)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = seriesColors[0]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.Y.Label.Text = "Respondents"
	p.Y.Min = 0
	nominal(p, table.Categories)
	return nil
}

// shareBars draws a pie table as percentage bars; gonum/plot has no pie plotter.
func shareBars(p *plot.Plot, table dashboard.Table) error {
	total := 0
	for _, n := range table.Counts {
		total += n
	}
	if total == 0 {
		return ErrPlaceholder
	}
	values := make(plotter.Values, len(table.Counts))
	labels := make([]string, len(table.Counts))
	for i, n := range table.Counts {
		values[i] = 100 * float64(n) / float64(total)
		labels[i] = fmt.Sprintf("%s (%.1f%%)", table.Categories[i], values[i])
	}
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = seriesColors[0]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.Y.Label.Text = "Share (%)"
	p.Y.Min = 0
	p.Y.Max = 100
	nominal(p, labels)
	return nil
}

func groupedBars(p *plot.Plot, table dashboard.Table) error {
	width := vg.Points(14)
	n := len(table.Series)
	for i, s := range table.Series {
		values := make(plotter.Values, len(s.Values))
		for j, v := range s.Values {
			if v != nil {
				values[j] = *v
			}
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bars.Color = seriesColors[i%len(seriesColors)]
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * width
		p.Add(bars)
		p.Legend.Add(s.Field, bars)
	}
	p.Legend.Top = true
	p.Y.Label.Text = "Mean score"
	p.Y.Min = 0
	nominal(p, table.Categories)
	return nil
}

func histogram(p *plot.Plot, table dashboard.Table) error {
	h := table.Histogram
	if h == nil || len(h.Bins) == 0 {
		return ErrPlaceholder
	}
	values := make(plotter.Values, len(h.Bins))
	labels := make([]string, len(h.Bins))
	for i, b := range h.Bins {
		values[i] = float64(b.Count)
		labels[i] = fmt.Sprintf("%.2g-%.2g", b.Lower, b.Upper)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(32))
	if err != nil {
		return err
	}
	bars.Color = seriesColors[0]
	bars.LineStyle.Color = color.White
	p.Add(bars)
	p.X.Label.Text = h.Field
	p.Y.Label.Text = "Respondents"
	p.Y.Min = 0
	nominal(p, labels)
	return nil
}

// boxes draws precomputed summaries. NewBoxPlot needs sample values, so the
// five-number summary is seeded and then overwritten with the real statistics.
func boxes(p *plot.Plot, table dashboard.Table) error {
	if len(table.Summaries) == 0 {
		return ErrPlaceholder
	}
	labels := make([]string, len(table.Summaries))
	for i, cs := range table.Summaries {
		s := cs.Summary
		b, err := plotter.NewBoxPlot(vg.Points(28), float64(i), plotter.Values{s.Min, s.Q1, s.Median, s.Q3, s.Max})
		if err != nil {
			return err
		}
		b.Median = s.Median
		b.Quartile1 = s.Q1
		b.Quartile3 = s.Q3
		b.Min = s.Min
		b.Max = s.Max
		b.AdjLow = s.Min
		b.AdjHigh = s.Max
		b.Outside = nil
		b.FillColor = seriesColors[i%len(seriesColors)]
		p.Add(b)
		labels[i] = fmt.Sprintf("%s (n=%d)", cs.Category, s.Count)
	}
	nominal(p, labels)
	return nil
}

type matrixGrid struct {
	values [][]float64
}

func (g matrixGrid) Dims() (c, r int)   { return len(g.values), len(g.values) }
func (g matrixGrid) Z(c, r int) float64 { return g.values[r][c] }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

func heatmap(p *plot.Plot, table dashboard.Table) error {
	m := table.Matrix
	if m == nil || len(m.Values) == 0 {
		return ErrPlaceholder
	}
	for _, row := range m.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				return errors.New("correlation matrix contains NaN")
			}
		}
	}

	hm := plotter.NewHeatMap(matrixGrid{values: m.Values}, palette.Heat(32, 1))
	hm.Min = -1
	hm.Max = 1
	p.Add(hm)

	var labels plotter.XYLabels
	for r, row := range m.Values {
		for c, v := range row {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%.2f", v))
		}
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	p.NominalX(m.Fields...)
	p.NominalY(m.Fields...)
	return nil
}

func nominal(p *plot.Plot, labels []string) {
	p.NominalX(labels...)
	if len(labels) > 4 {
		p.X.Tick.Label.Rotation = math.Pi / 6
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
}
