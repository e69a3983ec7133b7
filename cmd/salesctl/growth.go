package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdash/internal/dashboard"
)

var (
	growthBase    int
	growthCurrent int
)

var growthCmd = &cobra.Command{
	Use:   "growth",
	Short: "Show the per-branch growth table",
	Args:  cobra.NoArgs,
	RunE:  runGrowth,
}

func init() {
	growthCmd.Flags().IntVar(&growthBase, "base", 0, "Base year (default: BASE_YEAR)")
	growthCmd.Flags().IntVar(&growthCurrent, "current", 0, "Compare year (default: COMPARE_YEAR)")
	rootCmd.AddCommand(growthCmd)
}

func runGrowth(cmd *cobra.Command, _ []string) error {
	base, current := yearFlags(growthBase, growthCurrent)
	rows, err := loadRows(cmd.Context())
	if err != nil {
		return err
	}

	view := dashboard.GrowthTable(rows, base, current)

	t := Table{
		Title: fmt.Sprintf("Branch growth %d vs %d", base, current),
		Header: []string{
			"BRANCH",
			"NET SALES " + itoa(base), "NET SALES " + itoa(current), "GROWTH",
			"DISCOUNTS GROWTH", "ORDERS " + itoa(base), "ORDERS " + itoa(current), "ORDERS GROWTH",
		},
		Footer: [][]string{growthCells(view.Total)},
	}
	for _, r := range view.Rows {
		t.Rows = append(t.Rows, growthCells(r))
	}
	return emit(cmd, view, t)
}

func growthCells(r dashboard.GrowthRow) []string {
	return []string{
		r.Branch,
		r.BaseNetSales, r.CurrentNetSales, r.NetSalesGrowth,
		r.DiscountsGrowth, r.BaseOrders, r.CurrentOrders, r.OrdersGrowth,
	}
}
