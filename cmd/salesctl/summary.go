package main

import (
	"github.com/spf13/cobra"

	"salesdash/internal/dashboard"
	"salesdash/internal/report"
)

var summaryYear int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show totals and each branch's share of net sales",
	Long:  "Print total net sales, discounts and orders, then net sales per branch largest first. --year restricts both to one calendar year.",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryYear, "year", 0, "Calendar year to summarize (default: all rows)")
	rootCmd.AddCommand(summaryCmd)
}

// SummaryResponseCLI is the summary command's output.
type SummaryResponseCLI struct {
	Year   int                  `json:"year,omitempty" yaml:"year,omitempty"`
	Cards  []dashboard.KPICard  `json:"cards" yaml:"cards"`
	Shares []dashboard.ShareRow `json:"shares" yaml:"shares"`
}

func runSummary(cmd *cobra.Command, _ []string) error {
	rows, err := loadRows(cmd.Context())
	if err != nil {
		return err
	}
	if summaryYear != 0 {
		rows = report.Filter{Year: summaryYear}.Apply(rows)
	}

	contrib := dashboard.Contribution(rows, summaryYear)
	resp := SummaryResponseCLI{
		Year:   summaryYear,
		Cards:  dashboard.TotalCards(report.Totals(rows)),
		Shares: contrib.Shares,
	}

	t := Table{
		Title:  "Sales summary",
		Header: []string{"BRANCH", "NET SALES", "SHARE"},
		Footer: cardRows(resp.Cards),
	}
	if summaryYear != 0 {
		t.Title = "Sales summary " + itoa(summaryYear)
	}
	for _, s := range resp.Shares {
		t.Rows = append(t.Rows, []string{s.Branch, s.NetSales, s.Share})
	}
	return emit(cmd, resp, t)
}
