package repl

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/statloom-cli/internal/analysis"
)

// Print writes the human-readable outcome of res.
func Print(w io.Writer, res *analysis.Result) {
	switch {
	case res.Distribution != nil:
		d := res.Distribution
		fmt.Fprintf(w, "Distribution of %s: n = %d, mean = %.4g, std = %.4g, min = %.4g, max = %.4g, bins = %d\n",
			res.Columns[0], d.N, d.Mean, d.StdDev, d.Min, d.Max, len(d.Counts))
		if d.Dropped > 0 {
			fmt.Fprintf(w, "%d missing value(s) ignored.\n", d.Dropped)
		}
	case res.ANOVA != nil:
		fmt.Fprintf(w, "ANOVA result: F-statistic = %v, p-value = %v\n", res.ANOVA.F, res.ANOVA.P)
	case res.TTest != nil:
		r := res.TTest
		fmt.Fprintf(w, "t-Test result: t-statistic = %v, p-value = %v\n", r.T, r.P)
		if len(r.Ignored) > 0 {
			fmt.Fprintf(w, "Compared %s and %s; ignored %v.\n", r.Groups[0].Label, r.Groups[1].Label, r.Ignored)
		}
	case res.ChiSquare != nil:
		fmt.Fprintf(w, "Chi-Square result: chi2 = %v, p-value = %v\n", res.ChiSquare.Chi2, res.ChiSquare.P)
	case res.Regression != nil:
		fmt.Fprint(w, res.Regression.Summary())
	case res.Sentiment != nil:
		s := res.Sentiment
		fmt.Fprintf(w, "Analyzing sentiment for text data in column: %s\n", s.Column)
		tw := tablewriter.NewWriter(w)
		tw.SetHeader(s.Header)
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		tw.AppendBulk(s.Head)
		tw.Render()
	}
	for _, msg := range res.Warnings {
		warnColor.Fprintf(w, "⚠ Warning: %s\n", msg)
	}
	if res.Chart != "" {
		okColor.Fprintf(w, "✓ Chart saved to %s\n", res.Chart)
	}
}
