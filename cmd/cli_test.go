package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/KaramelBytes/statloom-cli/internal/config"
)

var initOnce sync.Once

// resetFlags restores every flag to its default so state from one
// invocation does not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	initOnce.Do(func() {
		color.NoColor = true
		cobra.OnInitialize(loadConfig)
	})
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfg = nil

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// mustRun is a helper to execute the root command with args.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

const groupsCSV = "value,g,text\n1,x,good\n2,x,great\n3,x,fine\n4,y,bad\n5,y,awful\n6,y,ok\n7,z,nice\n8,z,poor\n9,z,meh\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestInteractiveSession(t *testing.T) {
	p := writeFile(t, t.TempDir(), "groups.csv", groupsCSV)
	out, err := execute(t, "2\nvalue\ng\n7\n", p, "--no-charts")
	require.NoError(t, err)
	assert.Contains(t, out, "Data loaded successfully from "+p)
	assert.Contains(t, out, "Available variables: [value g text]")
	assert.Contains(t, out, "ANOVA result: F-statistic = 27")
	assert.True(t, strings.HasSuffix(out, "Exiting the program.\n"))
}

func TestInteractiveSessionPromptsForPath(t *testing.T) {
	p := writeFile(t, t.TempDir(), "groups.csv", groupsCSV)
	out, err := execute(t, p+"\n7\n", "--no-charts")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Enter the path to your dataset (CSV format): Data loaded successfully"))
}

func TestInteractiveSessionMissingFile(t *testing.T) {
	out, err := execute(t, "7\n", filepath.Join(t.TempDir(), "nope.csv"), "--no-charts")
	require.Error(t, err)
	var code exitCode
	require.True(t, errors.As(err, &code))
	assert.Equal(t, exitCode(1), code)
	assert.Equal(t, "File not found. Please check the file path.\n", out)
}

func TestRunJSON(t *testing.T) {
	p := writeFile(t, t.TempDir(), "groups.csv", groupsCSV)
	out := mustRun(t, "run", p, "anova", "value", "g", "--json", "--no-charts")
	var res struct {
		Kind  string `json:"kind"`
		ANOVA struct {
			F float64 `json:"f"`
			P float64 `json:"p"`
		} `json:"anova"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "anova", res.Kind)
	assert.InDelta(t, 27.0, res.ANOVA.F, 1e-9)
	assert.InDelta(t, 0.001, res.ANOVA.P, 1e-9)
}

func TestRunWritesChart(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "groups.csv", groupsCSV)
	charts := filepath.Join(dir, "charts")
	out := mustRun(t, "run", p, "distribution", "value", "--charts-dir", charts, "--no-open")
	assert.Contains(t, out, "Distribution of value: n = 9")
	assert.Contains(t, out, "✓ Chart saved to "+charts)

	matches, err := filepath.Glob(filepath.Join(charts, "*", "01-distribution-value.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRunSentimentAndErrors(t *testing.T) {
	p := writeFile(t, t.TempDir(), "groups.csv", groupsCSV)
	out := mustRun(t, "run", p, "sentiment", "--no-charts")
	// "g" is the first textual column
	assert.Contains(t, out, "Analyzing sentiment for text data in column: g")

	_, err := execute(t, "", "run", p, "ttest", "g", "--no-charts")
	assert.ErrorContains(t, err, "ttest needs 2 column(s): grouping, test")

	_, err = execute(t, "", "run", p, "median", "value", "--no-charts")
	assert.ErrorContains(t, err, "unknown routine")

	_, err = execute(t, "", "run", p, "chisquare", "g", "nope", "--no-charts")
	assert.ErrorContains(t, err, "unknown column: nope")
}

func TestDescribeGlobToOutput(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, "d1"), "metrics.csv", "col1,col2\nA,1\nB,2\nC,3\n")
	writeFile(t, filepath.Join(home, "d2"), "metrics.csv", "col1,col2\nD,4\nE,5\nF,6\n")
	outPath := filepath.Join(home, "out", "summary.md")

	out := mustRun(t, "describe", filepath.Join(home, "d*", "metrics.csv"), "--sample-rows", "0", "--quiet", "-o", outPath)
	assert.Empty(t, out)

	body, err := os.ReadFile(outPath)
	require.NoError(t, err)
	md := string(body)
	assert.Equal(t, 2, strings.Count(md, "[DATASET SUMMARY]"))
	assert.NotContains(t, md, "[HEAD]")
}

func TestDescribeGroupByToStdout(t *testing.T) {
	p := writeFile(t, t.TempDir(), "groups.csv", groupsCSV)
	out := mustRun(t, "describe", p, "--group-by", "g", "--correlations")
	assert.Contains(t, out, "[GROUP-BY SUMMARY]")
	assert.Contains(t, out, "[HEAD]")

	_, err := execute(t, "", "describe", filepath.Join(t.TempDir(), "*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestConfigSetAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	mustRun(t, "config", "set", "histogram_bins", "12", "--config", cfgPath)
	mustRun(t, "config", "set", "delimiter", ";", "--config", cfgPath)

	out := mustRun(t, "config", "show", "--config", cfgPath)
	assert.Contains(t, out, "histogram_bins: 12\n")
	assert.Contains(t, out, `delimiter: ";"`)

	_, err := execute(t, "", "config", "set", "bogus", "1", "--config", cfgPath)
	assert.ErrorContains(t, err, "unknown key: bogus")
	_, err = execute(t, "", "config", "set", "delimiter", ";;", "--config", cfgPath)
	assert.ErrorContains(t, err, "single character")
}

func TestSettingsFallBackToLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	saved := cfg
	t.Cleanup(func() { cfg = saved })
	cfg = nil

	loaded, err := cfgpkg.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	got := settings()
	assert.Equal(t, loaded, got)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".statloom", "charts"), got.ChartsDir)
}
