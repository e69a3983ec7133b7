package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdash/internal/core"
	"salesdash/internal/dashboard"
)

var (
	compareBase    int
	compareCurrent int
	compareBranch  string
	compareMonth   int
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two years and one month of a branch",
	Long: `Print year-over-year growth over every branch, then the selected
month of one branch in both years. Years default to BASE_YEAR and
COMPARE_YEAR.`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().IntVar(&compareBase, "base", 0, "Base year (default: BASE_YEAR)")
	compareCmd.Flags().IntVar(&compareCurrent, "current", 0, "Compare year (default: COMPARE_YEAR)")
	compareCmd.Flags().StringVar(&compareBranch, "branch", "", "Branch for the month comparison (default: first branch)")
	compareCmd.Flags().IntVar(&compareMonth, "month", 0, "Calendar month 1-12 (default: first month with data)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	base, current := yearFlags(compareBase, compareCurrent)
	if compareMonth < 0 || compareMonth > 12 {
		return fmt.Errorf("month %d out of range", compareMonth)
	}
	rows, err := loadRows(cmd.Context())
	if err != nil {
		return err
	}

	view := dashboard.Comparison(rows, base, current, compareBranch, compareMonth)

	t := Table{
		Title:  fmt.Sprintf("Growth %d vs %d", base, current),
		Header: []string{"METRIC", "VALUE", "CLASS"},
	}
	for _, c := range view.Cards {
		t.Rows = append(t.Rows, []string{c.Title, c.Value, c.Class})
	}
	if view.Month != 0 {
		t.Footer = append(t.Footer, []string{view.Branch + ", " + core.MonthName(view.Month), itoa(base), itoa(current)})
		t.Footer = append(t.Footer, monthRows(view.Chart)...)
	}
	return emit(cmd, view, t)
}

// monthRows pairs the base and compare bars of each metric into one row.
func monthRows(c dashboard.Chart) [][]string {
	var rows [][]string
	for i, m := range core.Metrics {
		if 2*i+1 >= len(c.Traces) {
			break
		}
		rows = append(rows, []string{m.Title(), barValue(c.Traces[2*i]), barValue(c.Traces[2*i+1])})
	}
	return rows
}

func barValue(tr dashboard.Trace) string {
	if len(tr.Y) == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", tr.Y[0])
}
