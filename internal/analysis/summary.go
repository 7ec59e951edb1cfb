package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// SummaryOptions controls the dataset description.
type SummaryOptions struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultSummaryOptions returns reasonable defaults for describing a dataset.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{SampleRows: 5, Outliers: true, OutlierThreshold: 3.5}
}

// Report is a markdown-friendly description of a dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Header   []string
	Samples  [][]string
	Warnings []string
	Groups   []GroupResult
	Corr     *CorrMatrix
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    dataset.Kind
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Q1     float64
	Median float64
	Q3     float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Describe summarizes every column of ds.
func Describe(ds *dataset.Dataset, opt SummaryOptions) (*Report, error) {
	if missing := ds.Absent(opt.GroupBy...); len(missing) > 0 {
		return nil, &ColumnError{Columns: missing}
	}
	rep := &Report{Name: ds.Name, Rows: ds.Rows()}
	var numCols []string
	for _, c := range ds.Columns() {
		clean, unit := splitUnits(c.Name)
		s := ColumnSummary{Name: clean, Kind: c.Kind, Unit: unit, Missing: c.Missing, NonNull: ds.Rows() - c.Missing}
		switch c.Kind {
		case dataset.KindNumeric:
			raw, err := ds.Floats(c.Name)
			if err != nil {
				return nil, err
			}
			describeNumeric(&s, finite(raw), opt)
			numCols = append(numCols, c.Name)
		case dataset.KindCategorical:
			vals, _ := ds.Values(c.Name)
			s.TopValues, s.Unique = topValues(vals, 8)
		case dataset.KindText:
			vals, _ := ds.Values(c.Name)
			for _, v := range vals {
				if v != "" && len(s.ExampleTexts) < 3 {
					s.ExampleTexts = append(s.ExampleTexts, v)
				}
			}
		}
		rep.Cols = append(rep.Cols, s)
	}

	// SampleRows <= 0 disables the head section.
	if opt.SampleRows > 0 {
		header, rows, err := ds.Head(opt.SampleRows)
		if err != nil {
			return nil, err
		}
		rep.Header, rep.Samples = header, rows
	}

	if len(opt.GroupBy) > 0 {
		groups, err := groupSummaries(ds, opt.GroupBy, numCols)
		if err != nil {
			return nil, err
		}
		rep.Groups = groups
	}
	if opt.Correlations && len(numCols) >= 2 {
		corr, err := correlations(ds, numCols)
		if err != nil {
			return nil, err
		}
		rep.Corr = corr
	}
	for _, c := range rep.Cols {
		if c.Kind == dataset.KindUnknown {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", safeName(c.Name)))
		}
	}
	return rep, nil
}

func describeNumeric(s *ColumnSummary, xs []float64, opt SummaryOptions) {
	if len(xs) == 0 {
		return
	}
	s.Min, _ = mstats.Min(xs)
	s.Max, _ = mstats.Max(xs)
	s.Mean, _ = mstats.Mean(xs)
	if len(xs) > 1 {
		s.Std, _ = mstats.StandardDeviationSample(xs)
	}
	s.Median, _ = mstats.Median(xs)
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	s.Q1, s.Q3 = quantile(sorted, 0.25), quantile(sorted, 0.75)

	if opt.Outliers && len(xs) >= 8 {
		median, mad := medianMAD(xs)
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		var cnt int
		maxAbsZ := 0.0
		if mad > 0 {
			for _, v := range xs {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > thr {
					cnt++
				}
				if az > maxAbsZ {
					maxAbsZ = az
				}
			}
		}
		s.OutliersCount = cnt
		s.OutliersMaxAbsZ = maxAbsZ
		s.OutlierThreshold = thr
	}
}

func topValues(vals []string, limit int) ([]CategoryCount, int) {
	counts := map[string]int{}
	for _, v := range vals {
		if v != "" {
			counts[v]++
		}
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, len(counts)
}

func groupSummaries(ds *dataset.Dataset, by []string, numCols []string) ([]GroupResult, error) {
	keys := make([][]string, len(by))
	for i, name := range by {
		v, err := ds.Values(name)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	nums := make([][]float64, len(numCols))
	for i, name := range numCols {
		v, err := ds.Floats(name)
		if err != nil {
			return nil, err
		}
		nums[i] = v
	}
	type acc struct {
		size int
		vals map[string][]float64
	}
	groups := map[string]*acc{}
	for r := 0; r < ds.Rows(); r++ {
		parts := make([]string, len(by))
		for i, name := range by {
			parts[i] = fmt.Sprintf("%s=%s", name, safeVal(keys[i][r]))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{vals: map[string][]float64{}}
			groups[key] = g
		}
		g.size++
		for i, name := range numCols {
			if x := nums[i][r]; isFinite(x) {
				g.vals[name] = append(g.vals[name], x)
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, g := range groups {
		gr := GroupResult{Key: k, Size: g.size, Metrics: map[string]NumSummary{}}
		for name, xs := range g.vals {
			lo, _ := mstats.Min(xs)
			hi, _ := mstats.Max(xs)
			gr.Metrics[name] = NumSummary{Count: len(xs), Min: lo, Max: hi, Mean: stat.Mean(xs, nil)}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, nil
}

// correlations computes pairwise-complete Pearson correlations.
func correlations(ds *dataset.Dataset, cols []string) (*CorrMatrix, error) {
	data := make([][]float64, len(cols))
	for i, name := range cols {
		v, err := ds.Floats(name)
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	n := len(cols)
	m := &CorrMatrix{Columns: cols, Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var xs, ys []float64
			for r := range data[a] {
				if isFinite(data[a][r]) && isFinite(data[b][r]) {
					xs = append(xs, data[a][r])
					ys = append(ys, data[b][r])
				}
			}
			r := 0.0
			if len(xs) >= 2 {
				r = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			r = math.Max(-1, math.Min(1, r))
			m.Values[a][b], m.Values[b][a] = r, r
		}
	}
	return m, nil
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case dataset.KindNumeric:
			b.WriteString(fmt.Sprintf(": min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g, mean %.4g, std %.4g",
				c.Min, c.Q1, c.Median, c.Q3, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case dataset.KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case dataset.KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString(": e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(clip(ex, 80)))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: r.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n| ")
		for i, h := range r.Header {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(h))
		}
		b.WriteString(" |\n|")
		for range r.Header {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, val := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(clip(val, 80)))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Alpha (%)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|kg|cm|USD|EUR|%|ppm|ppb)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
