package plot

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// palette follows the common ten-colour categorical cycle.
var palette = []drawing.Color{
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

// Box is the five-number summary of one group. Low and High are the whisker
// ends; Outliers lie beyond them.
type Box struct {
	Label    string
	Low      float64
	Q1       float64
	Median   float64
	Q3       float64
	High     float64
	Outliers []float64
}

// BoxPlot draws one box per group along the x axis.
type BoxPlot struct {
	Title  string
	XLabel string
	YLabel string
	Boxes  []Box
}

func (b *BoxPlot) Slug() string { return slugify("box", b.YLabel, "by", b.XLabel) }

func (b *BoxPlot) render(w io.Writer, size Size) error {
	if len(b.Boxes) == 0 {
		return errors.New("box plot has no groups")
	}
	var series []chart.Series
	ticks := make([]chart.Tick, 0, len(b.Boxes))
	lo, hi := math.Inf(1), math.Inf(-1)
	const half = 0.3
	for i, bx := range b.Boxes {
		x := float64(i + 1)
		col := palette[i%len(palette)]
		line := chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 1.5}
		series = append(series,
			chart.ContinuousSeries{
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 3},
				XValues: []float64{x - half, x + half, x + half, x - half, x - half},
				YValues: []float64{bx.Q1, bx.Q1, bx.Q3, bx.Q3, bx.Q1},
			},
			chart.ContinuousSeries{Style: chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 2.5},
				XValues: []float64{x - half, x + half}, YValues: []float64{bx.Median, bx.Median}},
			chart.ContinuousSeries{Style: line, XValues: []float64{x, x}, YValues: []float64{bx.Q3, bx.High}},
			chart.ContinuousSeries{Style: line, XValues: []float64{x, x}, YValues: []float64{bx.Low, bx.Q1}},
			chart.ContinuousSeries{Style: line, XValues: []float64{x - half/2, x + half/2}, YValues: []float64{bx.High, bx.High}},
			chart.ContinuousSeries{Style: line, XValues: []float64{x - half/2, x + half/2}, YValues: []float64{bx.Low, bx.Low}},
		)
		if len(bx.Outliers) > 0 {
			xs := make([]float64, len(bx.Outliers))
			for k := range xs {
				xs[k] = x
			}
			series = append(series, chart.ContinuousSeries{
				Style:   pointStyle(drawing.ColorBlack),
				XValues: xs,
				YValues: bx.Outliers,
			})
		}
		lo = math.Min(lo, bx.Low)
		hi = math.Max(hi, bx.High)
		for _, o := range bx.Outliers {
			lo = math.Min(lo, o)
			hi = math.Max(hi, o)
		}
		ticks = append(ticks, chart.Tick{Value: x, Label: bx.Label})
	}
	if hi <= lo {
		lo, hi = lo-0.5, hi+0.5
	}
	pad := (hi - lo) * 0.05
	ch := chart.Chart{
		Title:      b.Title,
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Name:  b.XLabel,
			Range: &chart.ContinuousRange{Min: 0.4, Max: float64(len(b.Boxes)) + 0.6},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  b.YLabel,
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			Ticks: niceTicks(lo-pad, hi+pad, 8),
		},
		Series: series,
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

// pointStyle returns a style that renders points only (no connecting line).
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}
