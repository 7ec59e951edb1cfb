package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/jonreiter/govader"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// SentimentColumn is the name of the derived polarity column.
const SentimentColumn = "Sentiment"

// ErrNoRows indicates sentiment analysis on a dataset without rows.
var ErrNoRows = errors.New("no rows to analyze")

// Scorer assigns a text a polarity in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

type vaderScorer struct {
	a *govader.SentimentIntensityAnalyzer
}

// NewVADER returns a lexicon-based Scorer reporting the VADER compound score.
func NewVADER() Scorer {
	return vaderScorer{a: govader.NewSentimentIntensityAnalyzer()}
}

func (v vaderScorer) Polarity(text string) float64 {
	return v.a.PolarityScores(text).Compound
}

// SentimentResult summarizes the polarity column appended to the dataset.
type SentimentResult struct {
	Column   string     `json:"column"`
	Scored   int        `json:"scored"`
	Mean     float64    `json:"mean"`
	Positive int        `json:"positive"`
	Negative int        `json:"negative"`
	Neutral  int        `json:"neutral"`
	Header   []string   `json:"header"`
	Head     [][]string `json:"head"`
}

// polarityCutoff separates neutral from positive and negative compound scores.
const polarityCutoff = 0.05

func (a *Analyzer) sentiment(ds *dataset.Dataset, res *Result) error {
	col, ok := ds.FirstTextual()
	if !ok {
		return ErrNoTextColumn
	}
	if ds.Rows() == 0 {
		return fmt.Errorf("%w in column %s", ErrNoRows, col.Name)
	}
	texts, err := ds.Values(col.Name)
	if err != nil {
		return err
	}
	r := &SentimentResult{Column: col.Name}
	scores := make([]float64, len(texts))
	var scored []float64
	for i, t := range texts {
		if t == "" {
			scores[i] = math.NaN()
			continue
		}
		p := a.scorer.Polarity(t)
		scores[i] = p
		scored = append(scored, p)
		switch {
		case p >= polarityCutoff:
			r.Positive++
		case p <= -polarityCutoff:
			r.Negative++
		default:
			r.Neutral++
		}
	}
	r.Scored = len(scored)
	if r.Scored > 0 {
		r.Mean = stat.Mean(scored, nil)
	}
	if err := ds.SetFloats(SentimentColumn, scores); err != nil {
		return err
	}
	a.log.Debug().Str("column", col.Name).Int("scored", r.Scored).Msg("sentiment column added")
	header := []string{col.Name, SentimentColumn}
	if col.Name == SentimentColumn {
		header = header[1:]
	}
	r.Header, r.Head, err = ds.Head(a.opt.HeadRows, header...)
	if err != nil {
		return err
	}
	res.Columns = []string{col.Name}
	res.Sentiment = r
	return nil
}
