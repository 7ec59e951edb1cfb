package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
)

// Group is one level of a grouping column with its numeric observations.
type Group struct {
	Label  string    `json:"label"`
	Values []float64 `json:"-"`
	N      int       `json:"n"`
	Mean   float64   `json:"mean"`
}

// groupBy splits the numeric column value by the levels of column group, in
// order of first appearance. Rows missing either cell are dropped; the number
// of dropped rows is returned.
func groupBy(ds *dataset.Dataset, value, group string) ([]Group, int, error) {
	ys, err := ds.Floats(value)
	if err != nil {
		return nil, 0, err
	}
	keys, err := ds.Values(group)
	if err != nil {
		return nil, 0, err
	}
	levels, err := ds.Unique(group)
	if err != nil {
		return nil, 0, err
	}
	pos := make(map[string]int, len(levels))
	groups := make([]Group, len(levels))
	for i, l := range levels {
		pos[l] = i
		groups[i].Label = l
	}
	dropped := 0
	for r, k := range keys {
		y := ys[r]
		if k == "" || math.IsNaN(y) || math.IsInf(y, 0) {
			dropped++
			continue
		}
		g := &groups[pos[k]]
		g.Values = append(g.Values, y)
	}
	for i := range groups {
		groups[i].N = len(groups[i].Values)
		if groups[i].N > 0 {
			groups[i].Mean = stat.Mean(groups[i].Values, nil)
		}
	}
	return groups, dropped, nil
}

func nonEmpty(groups []Group) []Group {
	var out []Group
	for _, g := range groups {
		if g.N > 0 {
			out = append(out, g)
		}
	}
	return out
}

// boxPlot summarizes every non-empty group with 1.5 IQR whiskers.
func boxPlot(title, xlabel, ylabel string, groups []Group) *plot.BoxPlot {
	bp := &plot.BoxPlot{Title: title, XLabel: xlabel, YLabel: ylabel}
	for _, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		bp.Boxes = append(bp.Boxes, boxFor(g.Label, g.Values))
	}
	return bp
}

func boxFor(label string, xs []float64) plot.Box {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	b := plot.Box{
		Label:  label,
		Q1:     quantile(s, 0.25),
		Median: quantile(s, 0.5),
		Q3:     quantile(s, 0.75),
	}
	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.Low, b.High = b.Q1, b.Q3
	for _, x := range s {
		if x < lo || x > hi {
			b.Outliers = append(b.Outliers, x)
			continue
		}
		b.Low = math.Min(b.Low, x)
		b.High = math.Max(b.High, x)
	}
	return b
}
