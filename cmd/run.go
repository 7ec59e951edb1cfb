package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statloom-cli/internal/analysis"
	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/repl"
	"github.com/KaramelBytes/statloom-cli/internal/utils"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run <file> <routine> [columns...]",
	Short: "Run a single analysis without the interactive menu",
	Long: `Run executes one routine against a dataset and prints the result.

Routines and their columns:
  distribution <variable>
  anova        <continuous> <categorical>
  ttest        <grouping> <test>
  chisquare    <first> <second>
  regression   <independent> <dependent>
  sentiment    (no columns; uses the first text column)`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := analysis.ParseKind(args[1])
		if err != nil {
			return fmt.Errorf("%w (choose one of %s)", err, kindNames())
		}
		cols := args[2:]
		if len(cols) != kind.Arity() {
			if roles := kind.ColumnRoles(); len(roles) > 0 {
				return fmt.Errorf("%s needs %d column(s): %s", kind, kind.Arity(), strings.Join(roles, ", "))
			}
			return fmt.Errorf("%s takes no columns", kind)
		}
		c := settings()
		opt, err := c.DatasetOptions()
		if err != nil {
			return err
		}
		ds, err := dataset.Load(args[0], opt)
		if err != nil {
			return err
		}
		res, err := newEngine(c).Run(cmd.Context(), ds, analysis.Request{Kind: kind, Columns: cols})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		repl.Print(out, res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
}

func kindNames() string {
	names := make([]string, len(analysis.Kinds))
	for i, k := range analysis.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
