package plot

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	histFill   = drawing.Color{R: 31, G: 119, B: 180, A: 110}
	histStroke = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	kdeStroke  = drawing.Color{R: 13, G: 60, B: 110, A: 255}
)

// Histogram is a binned count chart with an optional density curve already
// scaled to count units.
type Histogram struct {
	Title  string
	XLabel string
	YLabel string
	// Edges has len(Counts)+1 ascending bin boundaries.
	Edges  []float64
	Counts []float64
	// DensityX/DensityY trace the overlay curve; both empty to omit it.
	DensityX []float64
	DensityY []float64
}

func (h *Histogram) Slug() string { return slugify("distribution", h.XLabel) }

func (h *Histogram) render(w io.Writer, size Size) error {
	if len(h.Counts) == 0 || len(h.Edges) != len(h.Counts)+1 {
		return errors.New("histogram needs len(edges) == len(counts)+1 > 1")
	}
	xs := make([]float64, 0, 2*len(h.Counts)+2)
	ys := make([]float64, 0, 2*len(h.Counts)+2)
	xs = append(xs, h.Edges[0])
	ys = append(ys, 0)
	top := 0.0
	for i, c := range h.Counts {
		xs = append(xs, h.Edges[i], h.Edges[i+1])
		ys = append(ys, c, c)
		top = math.Max(top, c)
	}
	xs = append(xs, h.Edges[len(h.Edges)-1])
	ys = append(ys, 0)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "count",
			Style:   chart.Style{StrokeColor: histStroke, StrokeWidth: 1.5, FillColor: histFill},
			XValues: xs,
			YValues: ys,
		},
	}
	if len(h.DensityX) > 1 && len(h.DensityX) == len(h.DensityY) {
		for _, y := range h.DensityY {
			top = math.Max(top, y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "density (KDE)",
			Style:   chart.Style{StrokeColor: kdeStroke, StrokeWidth: 2.5},
			XValues: h.DensityX,
			YValues: h.DensityY,
		})
	}
	if top <= 0 {
		top = 1
	}
	lo, hi := h.Edges[0], h.Edges[len(h.Edges)-1]
	if len(h.DensityX) > 1 {
		lo = math.Min(lo, h.DensityX[0])
		hi = math.Max(hi, h.DensityX[len(h.DensityX)-1])
	}
	ylabel := h.YLabel
	if ylabel == "" {
		ylabel = "Frequency"
	}
	ch := chart.Chart{
		Title:      h.Title,
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Name:  h.XLabel,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			Ticks: niceTicks(lo, hi, 8),
		},
		YAxis: chart.YAxis{
			Name:  ylabel,
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.05},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

// niceTicks generates up to about n tick marks over [lo, hi] on 1/2/2.5/5/10 steps.
func niceTicks(lo, hi float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	if hi <= lo {
		hi = lo + 1
	}
	mag := math.Pow(10, math.Floor(math.Log10((hi-lo)/float64(n-1))))
	best, bestScore := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Max(math.Ceil((hi-lo)/step), 2)
		if score := math.Abs(count - float64(n)); score < bestScore {
			best, bestScore = step, score
		}
	}
	var ticks []chart.Tick
	for v := math.Ceil(lo/best) * best; v <= hi+best*1e-9; v += best {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case v == 0:
		return "0"
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	case av >= 0.01:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.2g", v)
	}
}
