package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/statloom-cli/internal/config"
	"github.com/KaramelBytes/statloom-cli/internal/logging"
	"github.com/KaramelBytes/statloom-cli/internal/plot"
	"github.com/KaramelBytes/statloom-cli/internal/repl"
)

var (
	cfgFile string
	debug   bool
	// Chart flags (override config if set)
	flagChartsDir string
	flagNoCharts  bool
	flagNoOpen    bool

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zerolog.Nop()
)

// exitCode ends the process with the given status without further output.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

var rootCmd = &cobra.Command{
	Use:   "statloom [dataset]",
	Short: "StatLoom: interactive statistical analysis of tabular data",
	Long: `StatLoom loads a CSV, TSV or XLSX dataset and offers a menu of analyses:
variable distributions, ANOVA, t-tests, chi-square tests, OLS regression and
sentiment scoring. Charts are written as PNG files and opened in the system viewer.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		color.New(color.FgRed).Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.statloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagChartsDir, "charts-dir", "", "directory for rendered charts (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCharts, "no-charts", false, "do not render charts")
	rootCmd.PersistentFlags().BoolVar(&flagNoOpen, "no-open", false, "render charts without opening a viewer")
}

func loadConfig() {
	log = logging.New(os.Stderr, debug)
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("charts-dir") && flagChartsDir != "" {
		cfg.ChartsDir = flagChartsDir
	}
	if flagNoCharts {
		cfg.RenderCharts = false
	}
	if flagNoOpen {
		cfg.OpenCharts = false
	}
}

func settings() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

// newEngine builds the analysis engine. Charts of one invocation share a
// fresh directory under the configured charts dir.
func newEngine(c *cfgpkg.Global) *analysis.Analyzer {
	var p analysis.Plotter
	if c.RenderCharts {
		dir := repl.ChartDir(c.ChartsDir)
		p = plot.NewRenderer(dir, plot.Size{Width: c.ChartWidth, Height: c.ChartHeight}, c.OpenCharts, log)
		log.Debug().Str("dir", dir).Bool("open", c.OpenCharts).Msg("charts enabled")
	}
	return analysis.New(p, log, analysis.Options{
		Bins:       c.HistogramBins,
		HeadRows:   c.HeadRows,
		Confidence: 0.95,
	})
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := settings()
	opt, err := c.DatasetOptions()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	s := repl.New(cmd.InOrStdin(), out, newEngine(c), log)

	var path string
	if len(args) == 1 {
		path = args[0]
	} else if path, err = s.PromptPath(ctx); err != nil {
		fmt.Fprintln(out)
		return fmt.Errorf("no dataset path given: %w", err)
	}
	if err := s.Load(path, opt); err != nil {
		log.Debug().Err(err).Msg("load failed")
		return exitCode(1)
	}
	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out)
		return nil
	}
	return err
}
