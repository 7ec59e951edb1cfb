package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// TTestResult is a pooled-variance two-sample t-test between the first two
// levels of the grouping column. Later levels are ignored.
type TTestResult struct {
	T       float64  `json:"t"`
	P       float64  `json:"p"`
	DF      float64  `json:"df"`
	Groups  [2]Group `json:"groups"`
	Ignored []string `json:"ignored,omitempty"`
	Dropped int      `json:"dropped"`
}

func (a *Analyzer) ttest(ctx context.Context, ds *dataset.Dataset, group, test string, res *Result) error {
	all, dropped, err := groupBy(ds, test, group)
	if err != nil {
		return err
	}
	if len(all) < 2 {
		return fmt.Errorf("%w: %s has %d distinct value(s), need 2", ErrInsufficientData, group, len(all))
	}
	g1, g2 := all[0], all[1]
	r, err := pooledTTest(g1.Values, g2.Values)
	if err != nil {
		return fmt.Errorf("%s=%s vs %s=%s: %w", group, g1.Label, group, g2.Label, err)
	}
	r.Groups = [2]Group{g1, g2}
	r.Dropped = dropped
	for _, g := range all[2:] {
		r.Ignored = append(r.Ignored, g.Label)
	}
	res.TTest = r

	a.chart(ctx, res, boxPlot(
		fmt.Sprintf("%s by %s - t-Test", test, group),
		group, test, all))
	return nil
}

func pooledTTest(x1, x2 []float64) (*TTestResult, error) {
	if len(x1) < 1 || len(x2) < 1 || len(x1)+len(x2) < 3 {
		return nil, fmt.Errorf("%w: groups of size %d and %d", ErrInsufficientData, len(x1), len(x2))
	}
	r, err := stats.TwoSampleTTest(stats.Sample{Xs: x1}, stats.Sample{Xs: x2}, stats.LocationDiffers)
	if err != nil {
		if errors.Is(err, stats.ErrZeroVariance) || errors.Is(err, stats.ErrSampleSize) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
		}
		return nil, err
	}
	if math.IsNaN(r.T) || math.IsNaN(r.P) {
		return nil, fmt.Errorf("%w: t statistic undefined for groups of size %d and %d", ErrInsufficientData, len(x1), len(x2))
	}
	return &TTestResult{T: r.T, P: r.P, DF: r.DoF}, nil
}
