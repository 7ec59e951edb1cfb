package analysis

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// ANOVAResult is a one-way analysis of variance across all groups.
type ANOVAResult struct {
	F         float64 `json:"f"`
	P         float64 `json:"p"`
	DFBetween float64 `json:"df_between"`
	DFWithin  float64 `json:"df_within"`
	SSBetween float64 `json:"ss_between"`
	SSWithin  float64 `json:"ss_within"`
	Groups    []Group `json:"groups"`
	Dropped   int     `json:"dropped"`
}

func (a *Analyzer) anova(ctx context.Context, ds *dataset.Dataset, continuous, categorical string, res *Result) error {
	all, dropped, err := groupBy(ds, continuous, categorical)
	if err != nil {
		return err
	}
	a.chart(ctx, res, boxPlot(
		fmt.Sprintf("Boxplot of %s by %s", continuous, categorical),
		categorical, continuous, all))

	r, err := oneWayANOVA(nonEmpty(all))
	if err != nil {
		return err
	}
	r.Dropped = dropped
	res.ANOVA = r
	return nil
}

// oneWayANOVA computes the F statistic of groups and its upper-tail p-value.
func oneWayANOVA(groups []Group) (*ANOVAResult, error) {
	k := len(groups)
	if k < 2 {
		return nil, fmt.Errorf("%w: ANOVA needs at least 2 groups with data, got %d", ErrInsufficientData, k)
	}
	var all []float64
	for _, g := range groups {
		all = append(all, g.Values...)
	}
	n := len(all)
	if n <= k {
		return nil, fmt.Errorf("%w: ANOVA needs more observations (%d) than groups (%d)", ErrInsufficientData, n, k)
	}
	grand := stat.Mean(all, nil)
	var ssb, ssw float64
	for _, g := range groups {
		m, v := stat.MeanVariance(g.Values, nil)
		d := m - grand
		ssb += float64(len(g.Values)) * d * d
		if len(g.Values) > 1 {
			ssw += v * float64(len(g.Values)-1)
		}
	}
	if ssw == 0 {
		return nil, fmt.Errorf("%w: zero variance within groups", ErrInsufficientData)
	}
	dfb, dfw := float64(k-1), float64(n-k)
	f := (ssb / dfb) / (ssw / dfw)
	p := distuv.F{D1: dfb, D2: dfw}.Survival(f)
	return &ANOVAResult{
		F: f, P: p,
		DFBetween: dfb, DFWithin: dfw,
		SSBetween: ssb, SSWithin: ssw,
		Groups: groups,
	}, nil
}
