package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

// Suggestion proposes a budget item for an uncategorized transaction.
// BudgetItemID is set only when a period was given and it has an item with that name.
type Suggestion struct {
	ItemName     string  `json:"itemName"`
	BudgetItemID *string `json:"budgetItemId,omitempty"`
}

// UncategorizedTransaction is an unlinked transaction with an optional suggestion.
type UncategorizedTransaction struct {
	ID          string                 `json:"id"`
	Date        core.Date              `json:"date"`
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Type        core.TransactionType   `json:"type"`
	Merchant    *string                `json:"merchant,omitempty"`
	Status      core.TransactionStatus `json:"status"`
	AccountID   *string                `json:"accountId,omitempty"`
	Suggestion  *Suggestion            `json:"suggestion,omitempty"`
}

// ListUncategorized returns non-deleted transactions that are neither linked to
// an item nor split. Each one with a known merchant gets the item name that
// merchant was most often categorized under; with a period, the name is
// resolved to that period's item.
func (s *BudgetService) ListUncategorized(ctx context.Context, ownerID string, year, month int) ([]UncategorizedTransaction, error) {
	txs, err := s.store.ListUncategorized(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var merchants []string
	seen := map[string]bool{}
	for _, tx := range txs {
		if tx.Merchant != nil && !seen[*tx.Merchant] {
			seen[*tx.Merchant] = true
			merchants = append(merchants, *tx.Merchant)
		}
	}
	history, err := s.store.MerchantHistory(ctx, ownerID, merchants)
	if err != nil {
		return nil, err
	}
	best := bestItemPerMerchant(history)

	var itemsByName map[string]string
	if year != 0 || month != 0 {
		if err := core.ValidateMonth(year, month); err != nil {
			return nil, err
		}
		itemsByName, err = s.itemNamesInPeriod(ctx, ownerID, year, month)
		if err != nil {
			return nil, err
		}
	}

	out := make([]UncategorizedTransaction, 0, len(txs))
	for _, tx := range txs {
		u := UncategorizedTransaction{
			ID:          tx.ID,
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount,
			Type:        tx.Type,
			Merchant:    tx.Merchant,
			Status:      tx.Status,
			AccountID:   tx.AccountID,
		}
		if tx.Merchant != nil {
			if name, ok := best[*tx.Merchant]; ok {
				sug := &Suggestion{ItemName: name}
				if id, ok := itemsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
					sug.BudgetItemID = &id
				}
				u.Suggestion = sug
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// bestItemPerMerchant picks the most frequent item name per merchant; ties go to
// the most recently used name, then alphabetical order.
func bestItemPerMerchant(history []ledger.MerchantHistory) map[string]string {
	winners := map[string]ledger.MerchantHistory{}
	for _, h := range history {
		cur, ok := winners[h.Merchant]
		if !ok || beats(h, cur) {
			winners[h.Merchant] = h
		}
	}
	out := make(map[string]string, len(winners))
	for m, h := range winners {
		out[m] = h.ItemName
	}
	return out
}

func beats(a, b ledger.MerchantHistory) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	if !a.LastDate.Equal(b.LastDate.Time) {
		return a.LastDate.After(b.LastDate.Time)
	}
	return a.ItemName < b.ItemName
}

func (s *BudgetService) itemNamesInPeriod(ctx context.Context, ownerID string, year, month int) (map[string]string, error) {
	p, err := findPeriod(ctx, s.store, ownerID, year, month)
	if err != nil || p == nil {
		return nil, err
	}
	names := map[string]string{}
	for _, c := range p.Categories {
		for _, it := range c.Items {
			key := strings.ToLower(strings.TrimSpace(it.Name))
			if _, dup := names[key]; !dup {
				names[key] = it.ID
			}
		}
	}
	return names, nil
}
