package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
	mstats "github.com/montanaflynn/stats"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
)

// DistributionResult is the binned distribution of one numeric column.
type DistributionResult struct {
	N       int       `json:"n"`
	Dropped int       `json:"dropped"`
	Edges   []float64 `json:"edges"`
	Counts  []float64 `json:"counts"`
	Mean    float64   `json:"mean"`
	StdDev  float64   `json:"std_dev"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	// Bandwidth of the kernel density overlay; 0 when it was not drawn.
	Bandwidth float64 `json:"bandwidth,omitempty"`
}

const kdePoints = 200

func (a *Analyzer) distribution(ctx context.Context, ds *dataset.Dataset, col string, res *Result) error {
	raw, err := ds.Floats(col)
	if err != nil {
		return err
	}
	xs := finite(raw)
	if len(xs) == 0 {
		return fmt.Errorf("%w: column %s has no numeric values", ErrInsufficientData, col)
	}
	d := &DistributionResult{N: len(xs), Dropped: len(raw) - len(xs)}
	s := stats.Sample{Xs: xs}
	d.Min, d.Max = s.Bounds()
	d.Mean = s.Mean()
	if len(xs) > 1 {
		d.StdDev = s.StdDev()
	}
	d.Edges, d.Counts = histogram(xs, d.Min, d.Max, a.opt.Bins)
	res.Distribution = d

	h := &plot.Histogram{
		Title:  fmt.Sprintf("Distribution of %s", col),
		XLabel: col,
		YLabel: "Frequency",
		Edges:  d.Edges,
		Counts: d.Counts,
	}
	if len(xs) > 1 && d.StdDev > 0 {
		kde := &stats.KDE{Sample: s}
		lo, hi := kde.Bounds()
		width := d.Edges[1] - d.Edges[0]
		scale := float64(len(xs)) * width
		h.DensityX = make([]float64, kdePoints)
		h.DensityY = make([]float64, kdePoints)
		for i := range h.DensityX {
			x := lo + (hi-lo)*float64(i)/float64(kdePoints-1)
			h.DensityX[i] = x
			h.DensityY[i] = kde.PDF(x) * scale
		}
		d.Bandwidth = kde.Bandwidth
	}
	a.chart(ctx, res, h)
	return nil
}

// histogram bins xs into equal-width bins over [lo, hi]. With bins <= 0 the
// count is the larger of the Sturges and Freedman-Diaconis estimates.
func histogram(xs []float64, lo, hi float64, bins int) ([]float64, []float64) {
	if hi <= lo {
		lo, hi = lo-0.5, hi+0.5
		bins = 1
	}
	if bins <= 0 {
		bins = autoBins(xs, lo, hi)
	}
	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + width*float64(i)
	}
	edges[bins] = hi
	counts := make([]float64, bins)
	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	return edges, counts
}

func autoBins(xs []float64, lo, hi float64) int {
	n := float64(len(xs))
	sturges := int(math.Ceil(math.Log2(n))) + 1
	best := sturges
	if iqr, err := mstats.InterQuartileRange(xs); err == nil && iqr > 0 {
		fd := 2 * iqr * math.Pow(n, -1.0/3)
		if k := int(math.Ceil((hi - lo) / fd)); k > best {
			best = k
		}
	}
	if best > 100 {
		best = 100
	}
	if best < 1 {
		best = 1
	}
	return best
}

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
