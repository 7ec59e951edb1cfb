package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
)

// Coefficient is one fitted parameter with its inference.
type Coefficient struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	StdErr float64 `json:"std_err"`
	T      float64 `json:"t"`
	P      float64 `json:"p"`
	Lower  float64 `json:"ci_lower"`
	Upper  float64 `json:"ci_upper"`
}

// Test is a statistic with its p-value.
type Test struct {
	Stat float64 `json:"stat"`
	P    float64 `json:"p"`
}

// RegressionResult is an ordinary least squares fit of Dependent on
// Independent with an intercept.
type RegressionResult struct {
	Dependent   string        `json:"dependent"`
	Independent string        `json:"independent"`
	N           int           `json:"n"`
	Dropped     int           `json:"dropped"`
	DFModel     float64       `json:"df_model"`
	DFResid     float64       `json:"df_resid"`
	RSquared    float64       `json:"r_squared"`
	AdjRSquared float64       `json:"adj_r_squared"`
	F           Test          `json:"f"`
	LogLik      float64       `json:"log_likelihood"`
	AIC         float64       `json:"aic"`
	BIC         float64       `json:"bic"`
	Coef        []Coefficient `json:"coefficients"`
	Confidence  float64       `json:"confidence"`

	// Residual diagnostics.
	DurbinWatson float64 `json:"durbin_watson"`
	Skew         float64 `json:"skew"`
	Kurtosis     float64 `json:"kurtosis"`
	JarqueBera   Test    `json:"jarque_bera"`
	// Omnibus is the D'Agostino K² normality test; nil below 8 observations.
	Omnibus  *Test    `json:"omnibus,omitempty"`
	CondNo   float64  `json:"cond_no"`
	Warnings []string `json:"warnings,omitempty"`
}

// Intercept and Slope return the fitted line.
func (r *RegressionResult) Intercept() float64 { return r.Coef[0].Value }
func (r *RegressionResult) Slope() float64 { return r.Coef[1].Value }

func (a *Analyzer) regression(ctx context.Context, ds *dataset.Dataset, independent, dependent string, res *Result) error {
	xs, err := ds.Floats(independent)
	if err != nil {
		return err
	}
	ys, err := ds.Floats(dependent)
	if err != nil {
		return err
	}
	var x, y []float64
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			x = append(x, xs[i])
			y = append(y, ys[i])
		}
	}
	r, err := ols(x, y, a.opt.Confidence)
	if err != nil {
		return err
	}
	r.Independent, r.Dependent = independent, dependent
	r.Coef[1].Name = independent
	r.Dropped = len(xs) - len(x)
	res.Regression = r

	a.chart(ctx, res, &plot.Scatter{
		Title:     fmt.Sprintf("Regression: %s vs %s", dependent, independent),
		XLabel:    independent,
		YLabel:    dependent,
		X:         x,
		Y:         y,
		Intercept: r.Intercept(),
		Slope:     r.Slope(),
	})
	return nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ols fits y = b0 + b1*x by least squares.
func ols(x, y []float64, confidence float64) (*RegressionResult, error) {
	n := len(x)
	const k = 2
	if n <= k {
		return nil, fmt.Errorf("%w: regression needs at least %d complete rows, got %d", ErrInsufficientData, k+1, n)
	}
	X := mat.NewDense(n, k, nil)
	for i, v := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, v)
	}
	Y := mat.NewVecDense(n, y)

	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: singular design matrix, the independent variable may be constant: %v", ErrInsufficientData, err)
	}
	var xty, beta mat.VecDense
	xty.MulVec(X.T(), Y)
	beta.MulVec(&inv, &xty)

	var fitted, resid mat.VecDense
	fitted.MulVec(X, &beta)
	resid.SubVec(Y, &fitted)
	e := make([]float64, n)
	for i := range e {
		e[i] = resid.AtVec(i)
	}

	ssr := mat.Dot(&resid, &resid)
	ybar := stat.Mean(y, nil)
	tss := 0.0
	for _, v := range y {
		tss += (v - ybar) * (v - ybar)
	}
	dfm, dfr := float64(k-1), float64(n-k)
	r := &RegressionResult{
		N:          n,
		DFModel:    dfm,
		DFResid:    dfr,
		Confidence: confidence,
	}
	if tss > 0 {
		r.RSquared = 1 - ssr/tss
		r.AdjRSquared = 1 - (1-r.RSquared)*float64(n-1)/dfr
	} else {
		r.Warnings = append(r.Warnings, "dependent variable is constant; R-squared is undefined")
	}
	sigma2 := ssr / dfr
	if ssr > 0 && tss > 0 {
		f := ((tss - ssr) / dfm) / sigma2
		r.F = Test{Stat: f, P: distuv.F{D1: dfm, D2: dfr}.Survival(f)}
	} else if tss > 0 {
		r.Warnings = append(r.Warnings, "perfect fit; F-statistic is infinite")
		r.F = Test{Stat: math.MaxFloat64, P: 0}
	}

	nf := float64(n)
	if ssr > 0 {
		r.LogLik = -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
		r.AIC = -2*r.LogLik + 2*k
		r.BIC = -2*r.LogLik + k*math.Log(nf)
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfr}
	tq := tdist.Quantile(1 - (1-confidence)/2)
	names := []string{"const", "x"}
	for j := 0; j < k; j++ {
		c := Coefficient{Name: names[j], Value: beta.AtVec(j)}
		c.StdErr = math.Sqrt(sigma2 * inv.At(j, j))
		if c.StdErr > 0 {
			c.T = c.Value / c.StdErr
			c.P = 2 * tdist.Survival(math.Abs(c.T))
		}
		c.Lower, c.Upper = c.Value-tq*c.StdErr, c.Value+tq*c.StdErr
		r.Coef = append(r.Coef, c)
	}

	r.residualDiagnostics(e)
	r.CondNo = mat.Cond(X, 2)
	if r.CondNo > 1e15 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("the condition number is large, %.3g; this might indicate strong multicollinearity or other numerical problems", r.CondNo))
	}
	return r, nil
}

func (r *RegressionResult) residualDiagnostics(e []float64) {
	n := float64(len(e))
	ss, num := 0.0, 0.0
	for i, v := range e {
		ss += v * v
		if i > 0 {
			d := v - e[i-1]
			num += d * d
		}
	}
	if ss > 0 {
		r.DurbinWatson = num / ss
	}
	m2 := stat.Moment(2, e, nil)
	if m2 <= 0 {
		return
	}
	r.Skew = stat.Moment(3, e, nil) / math.Pow(m2, 1.5)
	r.Kurtosis = stat.Moment(4, e, nil) / (m2 * m2)
	jb := n / 6 * (r.Skew*r.Skew + (r.Kurtosis-3)*(r.Kurtosis-3)/4)
	chi2 := distuv.ChiSquared{K: 2}
	r.JarqueBera = Test{Stat: jb, P: chi2.Survival(jb)}
	if len(e) >= 8 {
		zs := skewZ(r.Skew, n)
		zk := kurtosisZ(r.Kurtosis, n)
		if isFinite(zs) && isFinite(zk) {
			k2 := zs*zs + zk*zk
			r.Omnibus = &Test{Stat: k2, P: chi2.Survival(k2)}
		}
	}
}

// skewZ is D'Agostino's normal approximation for the sample skewness b.
func skewZ(b, n float64) float64 {
	y := b * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	if y == 0 {
		y = 1
	}
	return delta * math.Log(y/alpha+math.Sqrt((y/alpha)*(y/alpha)+1))
}

// kurtosisZ is Anscombe and Glynn's normal approximation for the sample
// (non-excess) kurtosis b.
func kurtosisZ(b, n float64) float64 {
	e := 3 * (n - 1) / (n + 1)
	varb := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (b - e) / math.Sqrt(varb)
	sb1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) * math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sb1*(2/sb1+math.Sqrt(1+4/(sb1*sb1)))
	t1 := 1 - 2/(9*a)
	denom := 1 + x*math.Sqrt(2/(a-4))
	if denom == 0 {
		return math.NaN()
	}
	t2 := math.Copysign(math.Cbrt((1-2/a)/math.Abs(denom)), denom)
	return (t1 - t2) / math.Sqrt(2/(9*a))
}

// Summary renders the fit in the familiar OLS results layout.
func (r *RegressionResult) Summary() string {
	var b strings.Builder
	const width = 78
	rule := func(c string) { b.WriteString(strings.Repeat(c, width) + "\n") }
	pair := func(l1, v1, l2, v2 string) {
		fmt.Fprintf(&b, "%-22s%16s   %-22s%15s\n", l1, v1, l2, v2)
	}
	title := "OLS Regression Results"
	fmt.Fprintf(&b, "%s%s\n", strings.Repeat(" ", (width-len(title))/2), title)
	rule("=")
	pair("Dep. Variable:", clip(r.Dependent, 16), "R-squared:", fmtStat(r.RSquared))
	pair("Model:", "OLS", "Adj. R-squared:", fmtStat(r.AdjRSquared))
	pair("Method:", "Least Squares", "F-statistic:", fmtStat(r.F.Stat))
	pair("No. Observations:", fmt.Sprint(r.N), "Prob (F-statistic):", fmtP(r.F.P))
	pair("Df Residuals:", fmt.Sprint(r.DFResid), "Log-Likelihood:", fmtStat(r.LogLik))
	pair("Df Model:", fmt.Sprint(r.DFModel), "AIC:", fmtStat(r.AIC))
	pair("Covariance Type:", "nonrobust", "BIC:", fmtStat(r.BIC))
	rule("=")

	lowPct := (1 - r.Confidence) / 2
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader([]string{"", "coef", "std err", "t", "P>|t|", fmt.Sprintf("[%.3g", lowPct), fmt.Sprintf("%.3g]", 1-lowPct)})
	tw.SetAutoFormatHeaders(false)
	tw.SetBorder(false)
	tw.SetColumnSeparator(" ")
	tw.SetCenterSeparator(" ")
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, c := range r.Coef {
		tw.Append([]string{
			clip(c.Name, 14),
			fmt.Sprintf("%.4f", c.Value),
			fmt.Sprintf("%.3f", c.StdErr),
			fmt.Sprintf("%.3f", c.T),
			fmt.Sprintf("%.3f", c.P),
			fmt.Sprintf("%.3f", c.Lower),
			fmt.Sprintf("%.3f", c.Upper),
		})
	}
	tw.Render()
	rule("=")

	omni, omniP := "-", "-"
	if r.Omnibus != nil {
		omni, omniP = fmt.Sprintf("%.3f", r.Omnibus.Stat), fmt.Sprintf("%.3f", r.Omnibus.P)
	}
	pair("Omnibus:", omni, "Durbin-Watson:", fmt.Sprintf("%.3f", r.DurbinWatson))
	pair("Prob(Omnibus):", omniP, "Jarque-Bera (JB):", fmt.Sprintf("%.3f", r.JarqueBera.Stat))
	pair("Skew:", fmt.Sprintf("%.3f", r.Skew), "Prob(JB):", fmtP(r.JarqueBera.P))
	pair("Kurtosis:", fmt.Sprintf("%.3f", r.Kurtosis), "Cond. No.", fmtStat(r.CondNo))
	rule("=")
	if r.Dropped > 0 {
		fmt.Fprintf(&b, "Note: %d row(s) with missing values were dropped.\n", r.Dropped)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	return b.String()
}

func fmtStat(v float64) string {
	switch {
	case v == math.MaxFloat64:
		return "inf"
	case v != 0 && (math.Abs(v) >= 1e5 || math.Abs(v) < 1e-3):
		return fmt.Sprintf("%.3g", v)
	default:
		return fmt.Sprintf("%.3f", v)
	}
}

func fmtP(p float64) string {
	if p != 0 && p < 1e-3 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.3f", p)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
