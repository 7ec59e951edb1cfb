package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
)

// ChiSquareResult is a test of independence on the contingency table of two
// columns. Yates' continuity correction applies when DF is 1.
type ChiSquareResult struct {
	Chi2     float64     `json:"chi2"`
	P        float64     `json:"p"`
	DF       int         `json:"df"`
	Yates    bool        `json:"yates"`
	Rows     []string    `json:"rows"`
	Cols     []string    `json:"cols"`
	Observed [][]float64 `json:"observed"`
	Expected [][]float64 `json:"expected"`
	Dropped  int         `json:"dropped"`
}

func (a *Analyzer) chiSquare(ctx context.Context, ds *dataset.Dataset, first, second string, res *Result) error {
	r, err := crosstab(ds, first, second)
	if err != nil {
		return err
	}
	if err := r.test(); err != nil {
		return err
	}
	res.ChiSquare = r
	a.chart(ctx, res, &plot.Heatmap{
		Title:  fmt.Sprintf("Contingency Table: %s vs %s", first, second),
		XLabel: second,
		YLabel: first,
		Rows:   r.Rows,
		Cols:   r.Cols,
		Values: r.Observed,
	})
	return nil
}

// crosstab counts joint occurrences of the two columns' values. Labels are
// sorted; rows missing either cell are dropped.
func crosstab(ds *dataset.Dataset, first, second string) (*ChiSquareResult, error) {
	av, err := ds.Values(first)
	if err != nil {
		return nil, err
	}
	bv, err := ds.Values(second)
	if err != nil {
		return nil, err
	}
	type cell struct{ a, b string }
	counts := map[cell]float64{}
	rows, cols := map[string]bool{}, map[string]bool{}
	dropped := 0
	for i := range av {
		if av[i] == "" || bv[i] == "" {
			dropped++
			continue
		}
		counts[cell{av[i], bv[i]}]++
		rows[av[i]] = true
		cols[bv[i]] = true
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no rows with both %s and %s present", ErrInsufficientData, first, second)
	}
	r := &ChiSquareResult{Rows: sortLabels(rows), Cols: sortLabels(cols), Dropped: dropped}
	r.Observed = make([][]float64, len(r.Rows))
	for i, a := range r.Rows {
		r.Observed[i] = make([]float64, len(r.Cols))
		for j, b := range r.Cols {
			r.Observed[i][j] = counts[cell{a, b}]
		}
	}
	return r, nil
}

func (r *ChiSquareResult) test() error {
	nr, nc := len(r.Rows), len(r.Cols)
	rowSum := make([]float64, nr)
	colSum := make([]float64, nc)
	total := 0.0
	for i, row := range r.Observed {
		for j, o := range row {
			rowSum[i] += o
			colSum[j] += o
			total += o
		}
	}
	r.DF = (nr - 1) * (nc - 1)
	r.Expected = make([][]float64, nr)
	for i := range r.Expected {
		r.Expected[i] = make([]float64, nc)
		for j := range r.Expected[i] {
			r.Expected[i][j] = rowSum[i] * colSum[j] / total
		}
	}
	if r.DF == 0 {
		r.Chi2, r.P = 0, 1
		return nil
	}
	r.Yates = r.DF == 1
	chi2 := 0.0
	for i, row := range r.Observed {
		for j, o := range row {
			e := r.Expected[i][j]
			if e == 0 {
				return fmt.Errorf("%w: zero expected frequency", ErrInsufficientData)
			}
			if r.Yates {
				d := e - o
				o += math.Copysign(math.Min(0.5, math.Abs(d)), d)
			}
			chi2 += (o - e) * (o - e) / e
		}
	}
	r.Chi2 = chi2
	r.P = distuv.ChiSquared{K: float64(r.DF)}.Survival(chi2)
	return nil
}

// sortLabels orders labels numerically when they all parse as numbers and
// lexically otherwise.
func sortLabels(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	numeric := true
	nums := make(map[string]float64, len(set))
	for k := range set {
		out = append(out, k)
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			numeric = false
			continue
		}
		nums[k] = f
	}
	sort.Slice(out, func(i, j int) bool {
		if numeric && nums[out[i]] != nums[out[j]] {
			return nums[out[i]] < nums[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
