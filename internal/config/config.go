package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// Global configuration structure.
type Global struct {
	// Charts
	ChartsDir    string `mapstructure:"charts_dir" yaml:"charts_dir"`
	RenderCharts bool   `mapstructure:"render_charts" yaml:"render_charts"`
	OpenCharts   bool   `mapstructure:"open_charts" yaml:"open_charts"`
	ChartWidth   int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight  int    `mapstructure:"chart_height" yaml:"chart_height"`

	// Analysis
	HistogramBins int `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	HeadRows      int `mapstructure:"head_rows" yaml:"head_rows"`

	// Loading
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows"`
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	SheetName          string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex         int    `mapstructure:"sheet_index" yaml:"sheet_index"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"charts_dir", "render_charts", "open_charts", "chart_width", "chart_height",
	"histogram_bins", "head_rows",
	"max_rows", "delimiter", "decimal_separator", "thousands_separator", "sheet_name", "sheet_index",
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".statloom"), nil
}

// Defaults returns the built-in configuration, the same values Load
// falls back to when neither a file nor the environment sets a key.
func Defaults() *Global {
	return &Global{
		ChartsDir:    defaultChartsDir(),
		RenderCharts: true,
		OpenCharts:   true,
		ChartWidth:   960,
		ChartHeight:  640,
		HeadRows:     5,
		SheetIndex:   1,
	}
}

func defaultChartsDir() string {
	dir, err := defaultDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "statloom", "charts")
	}
	return filepath.Join(dir, "charts")
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.statloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read into the environment first; existing variables win.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STATLOOM")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("charts_dir", d.ChartsDir)
	v.SetDefault("render_charts", d.RenderCharts)
	v.SetDefault("open_charts", d.OpenCharts)
	v.SetDefault("chart_width", d.ChartWidth)
	v.SetDefault("chart_height", d.ChartHeight)
	v.SetDefault("histogram_bins", d.HistogramBins)
	v.SetDefault("head_rows", d.HeadRows)
	v.SetDefault("max_rows", d.MaxRows)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("decimal_separator", d.DecimalSeparator)
	v.SetDefault("thousands_separator", d.ThousandsSeparator)
	v.SetDefault("sheet_name", d.SheetName)
	v.SetDefault("sheet_index", d.SheetIndex)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ChartsDir == "" {
		c.ChartsDir = d.ChartsDir
	}
	return &c, nil
}

// DatasetOptions maps the loading keys onto dataset options.
func (c *Global) DatasetOptions() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.MaxRows = c.MaxRows
	opt.SheetName = c.SheetName
	if c.SheetIndex > 0 {
		opt.SheetIndex = c.SheetIndex
	}
	var err error
	if opt.Delimiter, err = single("delimiter", c.Delimiter); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = single("decimal_separator", c.DecimalSeparator); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = single("thousands_separator", c.ThousandsSeparator); err != nil {
		return opt, err
	}
	return opt, nil
}

// single parses an optional one-character setting. "\t" and "tab" mean a tab.
func single(key, s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", key, s)
	}
	return r[0], nil
}
