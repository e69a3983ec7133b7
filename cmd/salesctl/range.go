package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdash/internal/core"
	"salesdash/internal/dashboard"
	"salesdash/internal/report"
)

var (
	rangeFrom         string
	rangeTo           string
	rangeBaselineFrom string
	rangeBaselineTo   string
	rangeBranch       string
)

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Compare a month window against a baseline window",
	Long: `Sum a window of months (--from, --to as YYYY-MM) and compare it with a
baseline window. Without --baseline-from/--baseline-to the baseline is the
same months one year earlier.`,
	Args: cobra.NoArgs,
	RunE: runRange,
}

func init() {
	rangeCmd.Flags().StringVar(&rangeFrom, "from", "", "First month of the window (YYYY-MM)")
	rangeCmd.Flags().StringVar(&rangeTo, "to", "", "Last month of the window (YYYY-MM)")
	rangeCmd.Flags().StringVar(&rangeBaselineFrom, "baseline-from", "", "First month of the baseline (YYYY-MM)")
	rangeCmd.Flags().StringVar(&rangeBaselineTo, "baseline-to", "", "Last month of the baseline (YYYY-MM)")
	rangeCmd.Flags().StringVar(&rangeBranch, "branch", "", "Branch to compare (default: all branches)")
	_ = rangeCmd.MarkFlagRequired("from")
	_ = rangeCmd.MarkFlagRequired("to")
	rangeCmd.MarkFlagsRequiredTogether("baseline-from", "baseline-to")
	rootCmd.AddCommand(rangeCmd)
}

func runRange(cmd *cobra.Command, _ []string) error {
	current, err := parseMonthRange(rangeFrom, rangeTo)
	if err != nil {
		return err
	}
	var baseline report.MonthRange
	if rangeBaselineFrom != "" {
		if baseline, err = parseMonthRange(rangeBaselineFrom, rangeBaselineTo); err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
	}

	rows, err := loadRows(cmd.Context())
	if err != nil {
		return err
	}
	view := dashboard.Range(rows, current, baseline, rangeBranch)

	scope := "all branches"
	if view.Branch != "" {
		scope = view.Branch
	}
	t := Table{
		Title:  fmt.Sprintf("%s vs %s (%s)", view.Current, view.Baseline, scope),
		Header: []string{"METRIC", "VALUE", "CLASS"},
		Rows:   cardRows(view.Cards),
	}
	return emit(cmd, view, t)
}

func parseMonthRange(from, to string) (report.MonthRange, error) {
	f, err := core.ParseYearMonth(from)
	if err != nil {
		return report.MonthRange{}, err
	}
	l, err := core.ParseYearMonth(to)
	if err != nil {
		return report.MonthRange{}, err
	}
	return report.NewMonthRange(f, l)
}
