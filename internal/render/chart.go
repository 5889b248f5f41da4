package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"velam/internal/core"
)

// DefaultChartWidth is the length of the longest bar.
const DefaultChartWidth = 40

const barRune = "█"

// Chart draws one horizontal bar per month. The bar is the month's inflow:
// contributions, returned loans and interest.
func Chart(ms []core.MonthlySummary, width int) string {
	if len(ms) == 0 {
		return "No data to display\n"
	}
	if width <= 0 {
		width = DefaultChartWidth
	}

	maxValue := decimal.NewFromInt(1)
	for _, m := range ms {
		if v := m.Inflow().Decimal(); v.GreaterThan(maxValue) {
			maxValue = v
		}
	}

	var b strings.Builder
	for _, m := range ms {
		v := m.Inflow().Decimal()
		n := int(v.Mul(decimal.NewFromInt(int64(width))).Div(maxValue).Round(0).IntPart())
		if n < 0 {
			n = 0
		}
		fmt.Fprintf(&b, "%s │%-*s %s\n", m.Month, width, strings.Repeat(barRune, n), Rupees(m.Inflow()))
	}
	return b.String()
}
