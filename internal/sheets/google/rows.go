package google

import (
	"fmt"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
)

// lastColumn is the widest column PeriodRows writes (Category, Item, Planned, Actual, Remaining).
const lastColumn = "E"

// TabName is the sheet title for a month.
func TabName(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func money(d decimal.Decimal) string {
	return core.RoundMoney(d).StringFixed(core.MoneyScale)
}

// PeriodRows lays out a summary as a header block, one row per category
// followed by its items, and a totals block.
func PeriodRows(ownerID string, s *core.PeriodSummary) [][]any {
	rows := [][]any{
		{"Owner", ownerID},
		{"Period", TabName(s.Year, s.Month)},
		{"Buffer", money(s.Buffer)},
		{},
		{"Category", "Item", "Planned", "Actual", "Remaining"},
	}

	for _, c := range s.Categories {
		name := c.Name
		if c.Emoji != "" {
			name = c.Emoji + " " + c.Name
		}
		rows = append(rows, []any{name, "", money(c.Planned), money(c.Actual), money(c.Planned.Sub(c.Actual))})
		for _, it := range c.Items {
			rows = append(rows, []any{"", it.Name, money(it.Planned), money(it.Actual), money(it.Remaining)})
		}
	}

	balanced := "no"
	if s.IsBalanced {
		balanced = "yes"
	}
	rows = append(rows,
		[]any{},
		[]any{"Planned income", money(s.PlannedIncome)},
		[]any{"Planned expenses", money(s.PlannedExpenses)},
		[]any{"Actual income", money(s.ActualIncome)},
		[]any{"Actual expenses", money(s.ActualExpenses)},
		[]any{"Remaining to budget", money(s.RemainingToBudget)},
		[]any{"Remaining actual", money(s.RemainingActual)},
		[]any{"Balanced", balanced},
	)
	return rows
}
