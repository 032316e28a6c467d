// Package bank talks to the external bank data aggregation provider.
package bank

import (
	"context"

	"zerobudget/internal/core"
)

// Transaction is a provider record as received. Amount is a signed decimal
// string: positive values are money in, negative values money out.
type Transaction struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Date         string  `json:"date"`
	Amount       string  `json:"amount"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	Counterparty *string `json:"counterparty,omitempty"`
}

// ListOptions bounds a transaction listing. Zero dates are omitted.
type ListOptions struct {
	Count     int
	StartDate core.Date
	EndDate   core.Date
}

// Provider lists transactions of one linked account.
type Provider interface {
	ListTransactions(ctx context.Context, accessToken, accountID string, opts ListOptions) ([]Transaction, error)
}
