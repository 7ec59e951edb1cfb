package plot

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Scatter draws observations as points with the fitted line y = Intercept + Slope*x.
type Scatter struct {
	Title     string
	XLabel    string
	YLabel    string
	X         []float64
	Y         []float64
	Intercept float64
	Slope     float64
}

func (s *Scatter) Slug() string { return slugify("regression", s.YLabel, "vs", s.XLabel) }

func (s *Scatter) render(w io.Writer, size Size) error {
	if len(s.X) == 0 || len(s.X) != len(s.Y) {
		return errors.New("scatter needs equal, non-empty x and y")
	}
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for i, x := range s.X {
		xlo, xhi = math.Min(xlo, x), math.Max(xhi, x)
		ylo, yhi = math.Min(ylo, s.Y[i]), math.Max(yhi, s.Y[i])
	}
	fx := []float64{xlo, xhi}
	fy := []float64{s.Intercept + s.Slope*xlo, s.Intercept + s.Slope*xhi}
	for _, y := range fy {
		ylo, yhi = math.Min(ylo, y), math.Max(yhi, y)
	}
	if xhi <= xlo {
		xlo, xhi = xlo-0.5, xhi+0.5
	}
	if yhi <= ylo {
		ylo, yhi = ylo-0.5, yhi+0.5
	}
	xpad, ypad := (xhi-xlo)*0.05, (yhi-ylo)*0.05
	ch := chart.Chart{
		Title:      s.Title,
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Name:  s.XLabel,
			Range: &chart.ContinuousRange{Min: xlo - xpad, Max: xhi + xpad},
			Ticks: niceTicks(xlo-xpad, xhi+xpad, 8),
		},
		YAxis: chart.YAxis{
			Name:  s.YLabel,
			Range: &chart.ContinuousRange{Min: ylo - ypad, Max: yhi + ypad},
			Ticks: niceTicks(ylo-ypad, yhi+ypad, 8),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "observed",
				Style:   pointStyle(palette[0]),
				XValues: s.X,
				YValues: s.Y,
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("fit: y = %.4g + %.4g x", s.Intercept, s.Slope),
				Style:   chart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 2.5},
				XValues: fx,
				YValues: fy,
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}
