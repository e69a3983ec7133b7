package main

import (
	"github.com/spf13/cobra"

	"salesdash/internal/report"
)

var trendBranch string

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show monthly net sales, discounts and orders",
	Args:  cobra.NoArgs,
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().StringVar(&trendBranch, "branch", "", "Branch to chart (default: all branches)")
	rootCmd.AddCommand(trendCmd)
}

// TrendPointCLI is one month of the trend.
type TrendPointCLI struct {
	Month     string `json:"month" yaml:"month"`
	NetSales  string `json:"net_sales" yaml:"net_sales"`
	Discounts string `json:"discounts" yaml:"discounts"`
	Orders    string `json:"orders" yaml:"orders"`
}

func runTrend(cmd *cobra.Command, _ []string) error {
	rows, err := loadRows(cmd.Context())
	if err != nil {
		return err
	}

	points := report.MonthlySeries(rows, trendBranch)
	resp := make([]TrendPointCLI, 0, len(points))
	for _, p := range points {
		resp = append(resp, TrendPointCLI{
			Month:     p.Month.String(),
			NetSales:  report.FormatAmount(p.NetSales),
			Discounts: report.FormatAmount(p.Discounts),
			Orders:    report.FormatCount(p.Orders),
		})
	}

	title := "Monthly trend (all branches)"
	if trendBranch != "" {
		title = "Monthly trend for " + trendBranch
	}
	t := Table{Title: title, Header: []string{"MONTH", "NET SALES", "DISCOUNTS", "ORDERS"}}
	for _, p := range resp {
		t.Rows = append(t.Rows, []string{p.Month, p.NetSales, p.Discounts, p.Orders})
	}
	return emit(cmd, resp, t)
}
