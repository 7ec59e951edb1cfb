package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statloom-cli/internal/analysis"
	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/utils"
)

var (
	descOutputPath string
	descDelimiter  string
	descDecimal    string
	descThousands  string
	descSampleRows int
	descMaxRows    int
	descGroupBy    []string
	descCorr       bool
	descOutliers   bool
	descOutlierThr float64
	descSheetName  string
	descSheetIndex int
	descQuiet      bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <files...>",
	Short: "Summarize one or more CSV/TSV/XLSX datasets as Markdown",
	Long: `Describe reports each column's kind, missing values, numeric statistics with
robust outlier counts, top categories and example texts. Optional group-by
summaries and Pearson correlations are appended. Glob patterns are expanded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		dopt, err := describeDatasetOptions()
		if err != nil {
			return err
		}
		sopt := analysis.DefaultSummaryOptions()
		sopt.SampleRows = descSampleRows
		sopt.GroupBy = descGroupBy
		sopt.Correlations = descCorr
		sopt.Outliers = descOutliers
		if descOutlierThr > 0 {
			sopt.OutlierThreshold = descOutlierThr
		}

		out := cmd.OutOrStdout()
		var docs []string
		total := len(files)
		for i, path := range files {
			if total > 1 && !descQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, err := dataset.Load(path, dopt)
			if err != nil {
				return err
			}
			rep, err := analysis.Describe(ds, sopt)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			log.Debug().Str("path", path).Int("rows", rep.Rows).Msg("described")
			docs = append(docs, rep.Markdown())
		}

		md := strings.Join(docs, "\n")
		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !descQuiet {
				fmt.Fprintf(out, "✓ Wrote summary to %s\n", descOutputPath)
			}
			return nil
		}
		fmt.Fprintln(out, md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	describeCmd.Flags().StringVar(&descDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (config default if omitted)")
	describeCmd.Flags().StringVar(&descDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	describeCmd.Flags().StringVar(&descThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	describeCmd.Flags().IntVar(&descMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	describeCmd.Flags().StringSliceVar(&descGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	describeCmd.Flags().BoolVar(&descCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	describeCmd.Flags().BoolVar(&descOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	describeCmd.Flags().Float64Var(&descOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	describeCmd.Flags().StringVar(&descSheetName, "sheet-name", "", "XLSX: sheet name to describe")
	describeCmd.Flags().IntVar(&descSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	describeCmd.Flags().BoolVar(&descQuiet, "quiet", false, "suppress progress and non-essential output")
}

// expandInputs resolves globs and literal paths, deduplicated and sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// describeDatasetOptions layers the describe flags over the configured loader options.
func describeDatasetOptions() (dataset.Options, error) {
	opt, err := settings().DatasetOptions()
	if err != nil {
		return opt, err
	}
	opt.MaxRows = descMaxRows
	if descDelimiter != "" {
		switch descDelimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", descDelimiter)
		}
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(descDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", descDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(descThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", descThousands)
	}
	if descSheetName != "" {
		opt.SheetName = descSheetName
	}
	if descSheetIndex > 0 {
		opt.SheetIndex = descSheetIndex
	}
	return opt, nil
}
