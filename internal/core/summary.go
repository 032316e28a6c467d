package core

import "github.com/shopspring/decimal"

// ItemSummary is the planned vs actual view of a single budget item.
type ItemSummary struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Order              int             `json:"order"`
	RecurringPaymentID *string         `json:"recurringPaymentId,omitempty"`
	Planned            decimal.Decimal `json:"planned"`
	Actual             decimal.Decimal `json:"actual"`
	Remaining          decimal.Decimal `json:"remaining"`
}

// CategorySummary groups item summaries under their category.
type CategorySummary struct {
	ID      string          `json:"id"`
	Type    CategoryType    `json:"categoryType"`
	Name    string          `json:"name"`
	Emoji   string          `json:"emoji"`
	Order   int             `json:"order"`
	Planned decimal.Decimal `json:"planned"`
	Actual  decimal.Decimal `json:"actual"`
	Items   []ItemSummary   `json:"items"`
}

// PeriodSummary is the derived state of a budget period.
type PeriodSummary struct {
	PeriodID          string            `json:"periodId"`
	Year              int               `json:"year"`
	Month             int               `json:"month"`
	Buffer            decimal.Decimal   `json:"buffer"`
	PlannedIncome     decimal.Decimal   `json:"plannedIncome"`
	PlannedExpenses   decimal.Decimal   `json:"plannedExpenses"`
	ActualIncome      decimal.Decimal   `json:"actualIncome"`
	ActualExpenses    decimal.Decimal   `json:"actualExpenses"`
	RemainingToBudget decimal.Decimal   `json:"remainingToBudget"`
	RemainingActual   decimal.Decimal   `json:"remainingActual"`
	IsBalanced        bool              `json:"isBalanced"`
	Categories        []CategorySummary `json:"categories"`
}
