package services

import (
	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
)

// ItemActuals sums activity per budget item. A transaction that has splits
// contributes only through its splits, so it is never counted twice.
func ItemActuals(direct []core.Transaction, splits []core.Split) map[string]decimal.Decimal {
	actuals := make(map[string]decimal.Decimal)
	for _, tx := range direct {
		if tx.BudgetItemID == nil || tx.DeletedAt != nil || tx.HasSplits {
			continue
		}
		id := *tx.BudgetItemID
		actuals[id] = actuals[id].Add(tx.Amount.Abs())
	}
	for _, s := range splits {
		actuals[s.BudgetItemID] = actuals[s.BudgetItemID].Add(s.Amount.Abs())
	}
	return actuals
}

// SummarizePeriod derives totals for a period from its tree and item actuals.
//
// remainingToBudget = buffer + planned income - planned expenses. Categories of
// the income kind count as income; every other category is an expense.
func SummarizePeriod(p *core.Period, actuals map[string]decimal.Decimal) core.PeriodSummary {
	s := core.PeriodSummary{
		PeriodID:        p.ID,
		Year:            p.Year,
		Month:           p.Month,
		Buffer:          core.RoundMoney(p.Buffer),
		PlannedIncome:   decimal.Zero,
		PlannedExpenses: decimal.Zero,
		ActualIncome:    decimal.Zero,
		ActualExpenses:  decimal.Zero,
		Categories:      make([]core.CategorySummary, 0, len(p.Categories)),
	}

	for _, c := range p.Categories {
		cs := core.CategorySummary{
			ID:      c.ID,
			Type:    c.Type,
			Name:    c.Name,
			Emoji:   c.Emoji,
			Order:   c.Order,
			Planned: decimal.Zero,
			Actual:  decimal.Zero,
			Items:   make([]core.ItemSummary, 0, len(c.Items)),
		}
		for _, it := range c.Items {
			actual := actuals[it.ID]
			cs.Items = append(cs.Items, core.ItemSummary{
				ID:                 it.ID,
				Name:               it.Name,
				Order:              it.Order,
				RecurringPaymentID: it.RecurringPaymentID,
				Planned:            core.RoundMoney(it.Planned),
				Actual:             core.RoundMoney(actual),
				Remaining:          core.RoundMoney(it.Planned.Sub(actual)),
			})
			cs.Planned = cs.Planned.Add(it.Planned)
			cs.Actual = cs.Actual.Add(actual)
		}

		if c.Type.IsIncome() {
			s.PlannedIncome = s.PlannedIncome.Add(cs.Planned)
			s.ActualIncome = s.ActualIncome.Add(cs.Actual)
		} else {
			s.PlannedExpenses = s.PlannedExpenses.Add(cs.Planned)
			s.ActualExpenses = s.ActualExpenses.Add(cs.Actual)
		}
		cs.Planned = core.RoundMoney(cs.Planned)
		cs.Actual = core.RoundMoney(cs.Actual)
		s.Categories = append(s.Categories, cs)
	}

	remaining := p.Buffer.Add(s.PlannedIncome).Sub(s.PlannedExpenses)
	s.RemainingToBudget = core.RoundMoney(remaining)
	s.RemainingActual = core.RoundMoney(p.Buffer.Add(s.ActualIncome).Sub(s.ActualExpenses))
	s.IsBalanced = core.IsBalanced(remaining)
	s.PlannedIncome = core.RoundMoney(s.PlannedIncome)
	s.PlannedExpenses = core.RoundMoney(s.PlannedExpenses)
	s.ActualIncome = core.RoundMoney(s.ActualIncome)
	s.ActualExpenses = core.RoundMoney(s.ActualExpenses)
	return s
}

func periodItemIDs(p *core.Period) []string {
	var ids []string
	for _, c := range p.Categories {
		for _, it := range c.Items {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
