// Package analysis runs the statistical routines over a loaded dataset.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
)

// Kind names an analysis routine.
type Kind string

const (
	KindDistribution Kind = "distribution"
	KindANOVA        Kind = "anova"
	KindTTest        Kind = "ttest"
	KindChiSquare    Kind = "chisquare"
	KindRegression   Kind = "regression"
	KindSentiment    Kind = "sentiment"
)

// Kinds lists the routines in menu order.
var Kinds = []Kind{KindDistribution, KindANOVA, KindTTest, KindChiSquare, KindRegression, KindSentiment}

// Arity is the number of column names a routine takes.
func (k Kind) Arity() int {
	switch k {
	case KindDistribution:
		return 1
	case KindSentiment:
		return 0
	default:
		return 2
	}
}

// ColumnRoles describes the expected columns in order.
func (k Kind) ColumnRoles() []string {
	switch k {
	case KindDistribution:
		return []string{"variable"}
	case KindANOVA:
		return []string{"continuous", "categorical"}
	case KindTTest:
		return []string{"grouping", "test"}
	case KindChiSquare:
		return []string{"first categorical", "second categorical"}
	case KindRegression:
		return []string{"independent", "dependent"}
	}
	return nil
}

// ParseKind accepts a routine name, a common alias, or its menu number.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "distribution", "dist", "hist", "histogram":
		return KindDistribution, nil
	case "2", "anova":
		return KindANOVA, nil
	case "3", "ttest", "t-test", "t":
		return KindTTest, nil
	case "4", "chisquare", "chi-square", "chi2":
		return KindChiSquare, nil
	case "5", "regression", "ols":
		return KindRegression, nil
	case "6", "sentiment":
		return KindSentiment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRoutine, s)
}

var (
	// ErrUnknownColumn is wrapped by *ColumnError.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNoTextColumn indicates sentiment analysis found no textual column.
	ErrNoTextColumn = errors.New("no suitable text data found for sentiment analysis")
	// ErrInsufficientData indicates too few usable observations for a statistic.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownRoutine indicates an unrecognized routine name.
	ErrUnknownRoutine = errors.New("unknown routine")
)

// ColumnError reports column references absent from the dataset.
type ColumnError struct {
	Columns []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownColumn, strings.Join(e.Columns, ", "))
}

func (e *ColumnError) Unwrap() error { return ErrUnknownColumn }

// Request selects a routine and the columns it operates on.
type Request struct {
	Kind    Kind     `json:"kind"`
	Columns []string `json:"columns,omitempty"`
}

// Result is the outcome of one routine. Only the section matching Kind is set.
type Result struct {
	Kind    Kind     `json:"kind"`
	Columns []string `json:"columns,omitempty"`
	// Chart is the rendered chart path, empty when charts are disabled or failed.
	Chart    string   `json:"chart,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	Distribution *DistributionResult `json:"distribution,omitempty"`
	ANOVA        *ANOVAResult        `json:"anova,omitempty"`
	TTest        *TTestResult        `json:"ttest,omitempty"`
	ChiSquare    *ChiSquareResult    `json:"chisquare,omitempty"`
	Regression   *RegressionResult   `json:"regression,omitempty"`
	Sentiment    *SentimentResult    `json:"sentiment,omitempty"`
}

// Plotter renders a chart and returns where it was written.
type Plotter interface {
	Plot(ctx context.Context, c plot.Chart) (string, error)
}

// Options tunes the routines.
type Options struct {
	// Bins is the histogram bin count; 0 picks one from the data.
	Bins int
	// HeadRows is how many rows the sentiment preview holds.
	HeadRows int
	// Confidence is the level for regression coefficient intervals.
	Confidence float64
}

// DefaultOptions returns the routine defaults.
func DefaultOptions() Options {
	return Options{HeadRows: 5, Confidence: 0.95}
}

// Analyzer executes requests. A nil Plotter disables charts.
type Analyzer struct {
	plotter Plotter
	log     zerolog.Logger
	opt     Options
	scorer  Scorer
}

// New returns an Analyzer using the VADER lexicon for sentiment.
func New(p Plotter, log zerolog.Logger, opt Options) *Analyzer {
	if opt.HeadRows <= 0 {
		opt.HeadRows = 5
	}
	if opt.Confidence <= 0 || opt.Confidence >= 1 {
		opt.Confidence = 0.95
	}
	return &Analyzer{plotter: p, log: log, opt: opt, scorer: NewVADER()}
}

// WithScorer replaces the sentiment scorer.
func (a *Analyzer) WithScorer(s Scorer) *Analyzer {
	a.scorer = s
	return a
}

// Run validates the request against ds and executes it. Column references are
// checked before anything else; a failed check leaves ds untouched.
func (a *Analyzer) Run(ctx context.Context, ds *dataset.Dataset, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	req.Kind = kind
	if len(req.Columns) != req.Kind.Arity() {
		return nil, fmt.Errorf("%s takes %d column(s), got %d", req.Kind, req.Kind.Arity(), len(req.Columns))
	}
	if missing := ds.Absent(req.Columns...); len(missing) > 0 {
		return nil, &ColumnError{Columns: missing}
	}
	a.log.Debug().Str("routine", string(req.Kind)).Strs("columns", req.Columns).Msg("running")

	res := &Result{Kind: req.Kind, Columns: req.Columns}
	switch req.Kind {
	case KindDistribution:
		err = a.distribution(ctx, ds, req.Columns[0], res)
	case KindANOVA:
		err = a.anova(ctx, ds, req.Columns[0], req.Columns[1], res)
	case KindTTest:
		err = a.ttest(ctx, ds, req.Columns[0], req.Columns[1], res)
	case KindChiSquare:
		err = a.chiSquare(ctx, ds, req.Columns[0], req.Columns[1], res)
	case KindRegression:
		err = a.regression(ctx, ds, req.Columns[0], req.Columns[1], res)
	case KindSentiment:
		err = a.sentiment(ds, res)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// chart renders c when a plotter is configured. Failures become warnings.
func (a *Analyzer) chart(ctx context.Context, res *Result, c plot.Chart) {
	if a.plotter == nil {
		return
	}
	path, err := a.plotter.Plot(ctx, c)
	if err != nil {
		a.log.Warn().Err(err).Str("chart", c.Slug()).Msg("chart failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("chart not rendered: %v", err))
		return
	}
	res.Chart = path
}
