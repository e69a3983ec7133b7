package report

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatAmount renders a whole-unit amount with thousands separators,
// e.g. 1234567.5 -> "1,234,568". Halves round to even.
func FormatAmount(d decimal.Decimal) string {
	return humanize.Comma(d.RoundBank(0).IntPart())
}

// FormatCount renders an integer count with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent renders a growth rate with one decimal, e.g. "12.5%".
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
