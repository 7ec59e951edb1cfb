package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
)

type fakePlotter struct {
	charts []plot.Chart
	err    error
}

func (f *fakePlotter) Plot(_ context.Context, c plot.Chart) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.charts = append(f.charts, c)
	return fmt.Sprintf("charts/%02d-%s.png", len(f.charts), c.Slug()), nil
}

func newAnalyzer() (*Analyzer, *fakePlotter) {
	p := &fakePlotter{}
	return New(p, zerolog.Nop(), DefaultOptions()), p
}

func mustDataset(t *testing.T, records [][]string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords("test.csv", records, dataset.DefaultOptions())
	require.NoError(t, err)
	return ds
}

func snapshot(t *testing.T, ds *dataset.Dataset) ([]string, [][]string) {
	t.Helper()
	names, rows, err := ds.Head(-1)
	require.NoError(t, err)
	return names, rows
}

func mixedDataset(t *testing.T) *dataset.Dataset {
	return mustDataset(t, [][]string{
		{"score", "group", "x", "y", "review"},
		{"1", "a", "1", "3.1", "I love this place, the staff were wonderful"},
		{"2", "a", "2", "4.9", "Terrible service and the food was awful"},
		{"3", "a", "3", "7.2", "It was fine I guess"},
		{"4", "b", "4", "9.1", "Absolutely fantastic experience, great value"},
		{"5", "b", "5", "10.8", "Worst visit ever, I hate it"},
		{"6", "b", "6", "13.2", "Nice and friendly"},
	})
}

func TestRunRejectsUnknownColumnsWithoutSideEffects(t *testing.T) {
	ds := mixedDataset(t)
	names, rows := snapshot(t, ds)
	a, p := newAnalyzer()
	ctx := context.Background()

	for _, k := range Kinds {
		if k.Arity() == 0 {
			continue
		}
		cols := make([]string, k.Arity())
		for i := range cols {
			cols[i] = "missing"
		}
		cols[0] = "nope"
		_, err := a.Run(ctx, ds, Request{Kind: k, Columns: cols})
		require.Error(t, err, k)
		assert.True(t, errors.Is(err, ErrUnknownColumn), "%s: %v", k, err)
		var ce *ColumnError
		require.True(t, errors.As(err, &ce))
		assert.Contains(t, ce.Columns, "nope")

		// one valid, one invalid
		if k.Arity() == 2 {
			_, err = a.Run(ctx, ds, Request{Kind: k, Columns: []string{"score", "bogus"}})
			require.ErrorIs(t, err, ErrUnknownColumn)
		}
	}
	gotNames, gotRows := snapshot(t, ds)
	assert.Equal(t, names, gotNames)
	assert.Equal(t, rows, gotRows)
	assert.Empty(t, p.charts)
}

func TestRunValidatesRequestShape(t *testing.T) {
	ds := mixedDataset(t)
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: "median"})
	require.ErrorIs(t, err, ErrUnknownRoutine)
	_, err = a.Run(context.Background(), ds, Request{Kind: KindANOVA, Columns: []string{"score"}})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx, ds, Request{Kind: KindDistribution, Columns: []string{"score"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"1": KindDistribution, "ANOVA": KindANOVA, "t-test": KindTTest,
		"chi2": KindChiSquare, "ols": KindRegression, "6": KindSentiment,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("7")
	assert.ErrorIs(t, err, ErrUnknownRoutine)
}

func TestDistribution(t *testing.T) {
	ds := mustDataset(t, [][]string{{"v"}, {"1"}, {"2"}, {"2"}, {"3"}, {"3"}, {"3"}, {"4"}, {""}, {"10"}})
	a, p := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindDistribution, Columns: []string{"v"}})
	require.NoError(t, err)
	d := res.Distribution
	require.NotNil(t, d)
	assert.Equal(t, 8, d.N)
	assert.Equal(t, 1, d.Dropped)
	total := 0.0
	for _, c := range d.Counts {
		total += c
	}
	assert.Equal(t, 8.0, total)
	assert.Equal(t, 1.0, d.Edges[0])
	assert.Equal(t, 10.0, d.Edges[len(d.Edges)-1])
	assert.Greater(t, d.Bandwidth, 0.0)

	require.Len(t, p.charts, 1)
	h, ok := p.charts[0].(*plot.Histogram)
	require.True(t, ok)
	assert.Equal(t, "Distribution of v", h.Title)
	assert.Len(t, h.DensityX, kdePoints)
	assert.Equal(t, "charts/01-distribution-v.png", res.Chart)
}

func TestDistributionRejectsText(t *testing.T) {
	ds := mixedDataset(t)
	a, p := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindDistribution, Columns: []string{"group"}})
	require.ErrorIs(t, err, dataset.ErrNotNumeric)
	assert.Empty(t, p.charts)
}

func TestHistogramConstantColumn(t *testing.T) {
	edges, counts := histogram([]float64{5, 5, 5}, 5, 5, 0)
	assert.Equal(t, []float64{4.5, 5.5}, edges)
	assert.Equal(t, []float64{3}, counts)
}

func TestANOVAKnownValues(t *testing.T) {
	ds := mustDataset(t, [][]string{
		{"value", "g"},
		{"1", "x"}, {"4", "y"}, {"7", "z"},
		{"2", "x"}, {"5", "y"}, {"8", "z"},
		{"3", "x"}, {"6", "y"}, {"9", "z"},
	})
	a, p := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindANOVA, Columns: []string{"value", "g"}})
	require.NoError(t, err)
	r := res.ANOVA
	assert.InDelta(t, 27.0, r.F, 1e-9)
	assert.InDelta(t, 0.001, r.P, 1e-9)
	assert.Equal(t, 2.0, r.DFBetween)
	assert.Equal(t, 6.0, r.DFWithin)
	require.Len(t, r.Groups, 3)
	assert.Equal(t, "x", r.Groups[0].Label)

	require.Len(t, p.charts, 1)
	bp := p.charts[0].(*plot.BoxPlot)
	assert.Equal(t, "Boxplot of value by g", bp.Title)
	assert.Len(t, bp.Boxes, 3)
}

func TestANOVAEqualMeansGivesPOne(t *testing.T) {
	ds := mustDataset(t, [][]string{
		{"value", "g"},
		{"1", "a"}, {"2", "a"}, {"3", "a"},
		{"3", "b"}, {"2", "b"}, {"1", "b"},
	})
	a, _ := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindANOVA, Columns: []string{"value", "g"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.ANOVA.F, 1e-12)
	assert.InDelta(t, 1.0, res.ANOVA.P, 1e-12)
}

func TestANOVANeedsTwoGroups(t *testing.T) {
	ds := mustDataset(t, [][]string{{"value", "g"}, {"1", "a"}, {"2", "a"}})
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindANOVA, Columns: []string{"value", "g"}})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func ttestDataset(t *testing.T, third []string) *dataset.Dataset {
	records := [][]string{{"grp", "val"}}
	a := []string{"1", "2", "3", "4", "5"}
	b := []string{"2", "4", "6", "8", "10"}
	for i := range a {
		records = append(records, []string{"ctl", a[i]}, []string{"trt", b[i]})
		if i < len(third) {
			records = append(records, []string{"other", third[i]})
		}
	}
	return mustDataset(t, records)
}

func TestTTestKnownValues(t *testing.T) {
	ds := ttestDataset(t, []string{"100", "200", "300"})
	a, p := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindTTest, Columns: []string{"grp", "val"}})
	require.NoError(t, err)
	r := res.TTest
	assert.InDelta(t, -1.8973665961010275, r.T, 1e-9)
	assert.InDelta(t, 0.09434977284243774, r.P, 1e-6)
	assert.Equal(t, 8.0, r.DF)
	assert.Equal(t, "ctl", r.Groups[0].Label)
	assert.Equal(t, "trt", r.Groups[1].Label)
	assert.Equal(t, []string{"other"}, r.Ignored)

	require.Len(t, p.charts, 1)
	bp := p.charts[0].(*plot.BoxPlot)
	assert.Equal(t, "val by grp - t-Test", bp.Title)
	assert.Len(t, bp.Boxes, 3)
}

func TestTTestIgnoresThirdGroup(t *testing.T) {
	a, _ := newAnalyzer()
	ctx := context.Background()
	req := Request{Kind: KindTTest, Columns: []string{"grp", "val"}}

	r1, err := a.Run(ctx, ttestDataset(t, []string{"100", "200", "300"}), req)
	require.NoError(t, err)
	r2, err := a.Run(ctx, ttestDataset(t, []string{"-7", "0.5", "1000000"}), req)
	require.NoError(t, err)
	assert.Equal(t, r1.TTest.T, r2.TTest.T)
	assert.Equal(t, r1.TTest.P, r2.TTest.P)
}

func TestTTestNeedsTwoLevels(t *testing.T) {
	ds := mustDataset(t, [][]string{{"grp", "val"}, {"a", "1"}, {"a", "2"}})
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindTTest, Columns: []string{"grp", "val"}})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func contingencyRecords(cells map[[2]string]int) [][]string {
	records := [][]string{{"a", "b"}}
	for _, k := range [][2]string{{"no", "no"}, {"no", "yes"}, {"yes", "no"}, {"yes", "yes"}} {
		for i := 0; i < cells[k]; i++ {
			records = append(records, []string{k[0], k[1]})
		}
	}
	return records
}

func TestChiSquareBalancedTableGivesPOne(t *testing.T) {
	ds := mustDataset(t, contingencyRecords(map[[2]string]int{
		{"no", "no"}: 5, {"no", "yes"}: 5, {"yes", "no"}: 5, {"yes", "yes"}: 5,
	}))
	a, p := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindChiSquare, Columns: []string{"a", "b"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.ChiSquare.Chi2, 1e-12)
	assert.InDelta(t, 1.0, res.ChiSquare.P, 1e-12)
	assert.Equal(t, 1, res.ChiSquare.DF)

	require.Len(t, p.charts, 1)
	hm := p.charts[0].(*plot.Heatmap)
	assert.Equal(t, "Contingency Table: a vs b", hm.Title)
	assert.Equal(t, [][]float64{{5, 5}, {5, 5}}, hm.Values)
}

func TestChiSquareYatesCorrection(t *testing.T) {
	ds := mustDataset(t, contingencyRecords(map[[2]string]int{
		{"no", "no"}: 10, {"no", "yes"}: 20, {"yes", "no"}: 30, {"yes", "yes"}: 40,
	}))
	a, _ := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindChiSquare, Columns: []string{"a", "b"}})
	require.NoError(t, err)
	r := res.ChiSquare
	assert.True(t, r.Yates)
	assert.Equal(t, []string{"no", "yes"}, r.Rows)
	assert.Equal(t, [][]float64{{10, 20}, {30, 40}}, r.Observed)
	assert.Equal(t, [][]float64{{12, 18}, {28, 42}}, r.Expected)
	assert.InDelta(t, 0.44642857142857145, r.Chi2, 1e-12)
	assert.InDelta(t, 0.5040358664525049, r.P, 1e-9)
}

func TestChiSquareSingleLevelIsDegenerate(t *testing.T) {
	ds := mustDataset(t, [][]string{{"a", "b"}, {"x", "p"}, {"x", "q"}})
	a, _ := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindChiSquare, Columns: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChiSquare.DF)
	assert.Equal(t, 1.0, res.ChiSquare.P)
}

func TestSortLabelsNumeric(t *testing.T) {
	got := sortLabels(map[string]bool{"10": true, "9": true, "1.5": true})
	assert.Equal(t, []string{"1.5", "9", "10"}, got)
	got = sortLabels(map[string]bool{"b": true, "10": true, "a": true})
	assert.Equal(t, []string{"10", "a", "b"}, got)
}

func regressionDataset(t *testing.T) *dataset.Dataset {
	ys := []string{"3.1", "4.9", "7.2", "9.1", "10.8", "13.2", "15.1", "16.8", "19.3", "20.9"}
	records := [][]string{{"x", "y"}}
	for i, y := range ys {
		records = append(records, []string{fmt.Sprint(i + 1), y})
	}
	records = append(records, []string{"11", ""})
	return mustDataset(t, records)
}

func TestRegressionSummary(t *testing.T) {
	ds := regressionDataset(t)
	a, p := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindRegression, Columns: []string{"x", "y"}})
	require.NoError(t, err)
	r := res.Regression
	require.NotNil(t, r)
	assert.Equal(t, 10, r.N)
	assert.Equal(t, 1, r.Dropped)
	assert.InDelta(t, 1.06, r.Intercept(), 1e-9)
	assert.InDelta(t, 1.9963636363636361, r.Slope(), 1e-9)
	assert.InDelta(t, 0.12846412068367682, r.Coef[0].StdErr, 1e-9)
	assert.InDelta(t, 0.020703867700046924, r.Coef[1].StdErr, 1e-9)
	assert.InDelta(t, 96.42467123952456, r.Coef[1].T, 1e-4)
	assert.InDelta(t, 3.492773328777968e-05, r.Coef[0].P, 1e-8)
	assert.InDelta(t, 0.9991403134430447, r.RSquared, 1e-12)
	assert.InDelta(t, 0.9990328526234252, r.AdjRSquared, 1e-12)
	assert.InDelta(t, 9297.717223650394, r.F.Stat, 1e-3)
	assert.InDelta(t, 3.6366884653346343, r.LogLik, 1e-9)
	assert.InDelta(t, -3.2733769306692686, r.AIC, 1e-9)
	assert.InDelta(t, -2.668206744681177, r.BIC, 1e-9)
	assert.InDelta(t, 3.1765132040196304, r.DurbinWatson, 1e-9)
	assert.InDelta(t, 0.6857954763819945, r.JarqueBera.Stat, 1e-9)
	assert.InDelta(t, 0.7097107841580996, r.JarqueBera.P, 1e-9)
	require.NotNil(t, r.Omnibus)
	assert.Less(t, r.Coef[1].Lower, r.Slope())
	assert.Greater(t, r.Coef[1].Upper, r.Slope())

	// cross-check against gonum's simple regression
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	y := []float64{3.1, 4.9, 7.2, 9.1, 10.8, 13.2, 15.1, 16.8, 19.3, 20.9}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	assert.InDelta(t, alpha, r.Intercept(), 1e-9)
	assert.InDelta(t, beta, r.Slope(), 1e-9)
	assert.InDelta(t, stat.RSquared(x, y, nil, alpha, beta), r.RSquared, 1e-9)

	s := r.Summary()
	for _, want := range []string{"OLS Regression Results", "Dep. Variable:", "R-squared:", "0.999", "Durbin-Watson:", "3.177", "const", "1.0600", "Note: 1 row(s)"} {
		assert.Contains(t, s, want)
	}

	require.Len(t, p.charts, 1)
	sc := p.charts[0].(*plot.Scatter)
	assert.Equal(t, "Regression: y vs x", sc.Title)
	assert.Len(t, sc.X, 10)
}

func TestRegressionConstantPredictor(t *testing.T) {
	ds := mustDataset(t, [][]string{{"x", "y"}, {"1", "2"}, {"1", "3"}, {"1", "4"}})
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindRegression, Columns: []string{"x", "y"}})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestRegressionRejectsText(t *testing.T) {
	ds := mixedDataset(t)
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindRegression, Columns: []string{"group", "y"}})
	require.ErrorIs(t, err, dataset.ErrNotNumeric)
}

func TestChartFailureIsAWarning(t *testing.T) {
	ds := mixedDataset(t)
	p := &fakePlotter{err: errors.New("disk full")}
	a := New(p, zerolog.Nop(), DefaultOptions())
	res, err := a.Run(context.Background(), ds, Request{Kind: KindDistribution, Columns: []string{"score"}})
	require.NoError(t, err)
	assert.Empty(t, res.Chart)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "disk full")
}

func TestNilPlotterSkipsCharts(t *testing.T) {
	a := New(nil, zerolog.Nop(), DefaultOptions())
	res, err := a.Run(context.Background(), mixedDataset(t), Request{Kind: KindANOVA, Columns: []string{"score", "group"}})
	require.NoError(t, err)
	assert.Empty(t, res.Chart)
	assert.Empty(t, res.Warnings)
}

func TestSentimentSigns(t *testing.T) {
	ds := mixedDataset(t)
	a, p := newAnalyzer()
	res, err := a.Run(context.Background(), ds, Request{Kind: KindSentiment})
	require.NoError(t, err)
	s := res.Sentiment
	require.NotNil(t, s)
	// "group" is the first textual column
	assert.Equal(t, "group", s.Column)
	assert.Equal(t, []string{"group", SentimentColumn}, s.Header)
	assert.Contains(t, ds.Names(), SentimentColumn)
	assert.Empty(t, p.charts)

	texts := mustDataset(t, [][]string{
		{"id", "comment"},
		{"1", "I love this, it is wonderful and amazing!"},
		{"2", "This is terrible, awful and I hate it."},
	})
	res, err = a.Run(context.Background(), texts, Request{Kind: KindSentiment})
	require.NoError(t, err)
	assert.Equal(t, "comment", res.Sentiment.Column)
	scores, err := texts.Floats(SentimentColumn)
	require.NoError(t, err)
	assert.Greater(t, scores[0], 0.0)
	assert.Less(t, scores[1], 0.0)
	assert.Equal(t, 1, res.Sentiment.Positive)
	assert.Equal(t, 1, res.Sentiment.Negative)
}

func TestSentimentWithoutTextColumn(t *testing.T) {
	ds := mustDataset(t, [][]string{{"a", "b"}, {"1", "2.5"}, {"2", "-1e3"}})
	before, _ := snapshot(t, ds)
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindSentiment})
	require.ErrorIs(t, err, ErrNoTextColumn)
	assert.Equal(t, "no suitable text data found for sentiment analysis", err.Error())
	after, _ := snapshot(t, ds)
	assert.Equal(t, before, after)
	assert.NotContains(t, ds.Names(), SentimentColumn)
}

func TestSentimentScoresLeadingDateColumn(t *testing.T) {
	ds := mustDataset(t, [][]string{
		{"when", "review"},
		{"2024-01-01", "great"},
		{"2024-01-02", "awful"},
	})
	a, _ := newAnalyzer()
	a.WithScorer(stubScorer{"great": 0.9, "awful": -0.9})
	res, err := a.Run(context.Background(), ds, Request{Kind: KindSentiment})
	require.NoError(t, err)
	// dates are kept as written text and come first
	assert.Equal(t, "when", res.Sentiment.Column)
	assert.Equal(t, 2, res.Sentiment.Neutral)
	assert.Equal(t, []string{"when", SentimentColumn}, res.Sentiment.Header)
}

func TestSentimentWithoutRows(t *testing.T) {
	ds := mustDataset(t, [][]string{{"comment"}})
	// a header-only column has no values and therefore no textual kind
	a, _ := newAnalyzer()
	_, err := a.Run(context.Background(), ds, Request{Kind: KindSentiment})
	require.ErrorIs(t, err, ErrNoTextColumn)
}

type stubScorer map[string]float64

func (s stubScorer) Polarity(text string) float64 { return s[text] }

func TestSentimentUsesScorerAndSkipsMissing(t *testing.T) {
	ds := mustDataset(t, [][]string{{"note"}, {"up"}, {""}, {"down"}, {"flat"}})
	a, _ := newAnalyzer()
	a.WithScorer(stubScorer{"up": 0.8, "down": -0.6, "flat": 0})
	res, err := a.Run(context.Background(), ds, Request{Kind: KindSentiment})
	require.NoError(t, err)
	s := res.Sentiment
	assert.Equal(t, 3, s.Scored)
	assert.InDelta(t, (0.8-0.6)/3, s.Mean, 1e-12)
	assert.Equal(t, 1, s.Neutral)
	got, _ := ds.Floats(SentimentColumn)
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, []string{"up", "0.8"}, s.Head[0])
	assert.Equal(t, []string{"NaN", "NaN"}, s.Head[1])
}
