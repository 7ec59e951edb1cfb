package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/statloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set StatLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		out := cmd.OutOrStdout()
		for _, key := range cfgpkg.Keys {
			fmt.Fprintf(out, "%s: %s\n", key, configValue(c, key))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Saved values come from file, env and defaults only, never from flags.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if _, err := c.DatasetOptions(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "charts_dir":
		return c.ChartsDir
	case "render_charts":
		return strconv.FormatBool(c.RenderCharts)
	case "open_charts":
		return strconv.FormatBool(c.OpenCharts)
	case "chart_width":
		return strconv.Itoa(c.ChartWidth)
	case "chart_height":
		return strconv.Itoa(c.ChartHeight)
	case "histogram_bins":
		if c.HistogramBins == 0 {
			return "auto"
		}
		return strconv.Itoa(c.HistogramBins)
	case "head_rows":
		return strconv.Itoa(c.HeadRows)
	case "max_rows":
		return strconv.Itoa(c.MaxRows)
	case "delimiter":
		return strconv.Quote(c.Delimiter)
	case "decimal_separator":
		return strconv.Quote(c.DecimalSeparator)
	case "thousands_separator":
		return strconv.Quote(c.ThousandsSeparator)
	case "sheet_name":
		return c.SheetName
	case "sheet_index":
		return strconv.Itoa(c.SheetIndex)
	}
	return ""
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "charts_dir":
		c.ChartsDir = val
	case "render_charts", "open_charts":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "render_charts" {
			c.RenderCharts = b
		} else {
			c.OpenCharts = b
		}
	case "chart_width", "chart_height", "histogram_bins", "head_rows", "max_rows", "sheet_index":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "chart_width":
			c.ChartWidth = i
		case "chart_height":
			c.ChartHeight = i
		case "histogram_bins":
			c.HistogramBins = i
		case "head_rows":
			c.HeadRows = i
		case "max_rows":
			c.MaxRows = i
		case "sheet_index":
			c.SheetIndex = i
		}
	case "delimiter":
		c.Delimiter = val
	case "decimal_separator":
		c.DecimalSeparator = val
	case "thousands_separator":
		c.ThousandsSeparator = val
	case "sheet_name":
		c.SheetName = strings.TrimSpace(val)
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return nil
}
