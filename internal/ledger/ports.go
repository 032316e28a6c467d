// Package ledger defines the persistence ports the budgeting engines depend on.
//
// Every lookup that takes an owner id returns core.ErrNotFound both for missing
// rows and for rows that belong to another owner.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
)

// PeriodStore persists budget periods and their category/item tree.
type PeriodStore interface {
	GetPeriod(ctx context.Context, ownerID string, year, month int) (*core.Period, error)
	GetPeriodByID(ctx context.Context, ownerID, id string) (*core.Period, error)
	CreatePeriod(ctx context.Context, p *core.Period) error
	UpdatePeriodBuffer(ctx context.Context, ownerID, id string, buffer decimal.Decimal) error
	// ListOwners returns every owner that has a period or a recurring payment.
	ListOwners(ctx context.Context) ([]string, error)
}

// CategoryStore persists categories. ListCategories fills Items, ordered.
type CategoryStore interface {
	ListCategories(ctx context.Context, periodID string) ([]core.Category, error)
	GetCategory(ctx context.Context, ownerID, id string) (*core.Category, error)
	CreateCategory(ctx context.Context, c *core.Category) error
	UpdateCategory(ctx context.Context, c *core.Category) error
	DeleteCategory(ctx context.Context, id string) error
	DeleteCustomCategories(ctx context.Context, periodID string) (int64, error)
}

// ItemStore persists budget items.
type ItemStore interface {
	GetItem(ctx context.Context, ownerID, id string) (*core.BudgetItem, error)
	CreateItem(ctx context.Context, it *core.BudgetItem) error
	UpdateItem(ctx context.Context, it *core.BudgetItem) error
	DeleteItem(ctx context.Context, id string) error
	SetItemOrder(ctx context.Context, id string, order int) error
	DeleteItemsInPeriod(ctx context.Context, periodID string) (int64, error)
	ZeroPlannedInPeriod(ctx context.Context, periodID string) (int64, error)
	// ItemsForRecurring returns items linked to a payment together with their period.
	ItemsForRecurring(ctx context.Context, ownerID, paymentID string) ([]LinkedItem, error)
}

// LinkedItem is a budget item with the calendar period it belongs to.
type LinkedItem struct {
	Item  core.BudgetItem
	Year  int
	Month int
}

// TransactionUpdate carries the fields a provider re-sync may change.
type TransactionUpdate struct {
	Status      core.TransactionStatus
	Amount      decimal.Decimal
	Description string
	Merchant    *string
}

// MerchantHistory counts how often a merchant was categorized under an item name.
type MerchantHistory struct {
	Merchant string
	ItemName string
	Count    int
	LastDate core.Date
}

// TransactionStore persists transactions and splits.
type TransactionStore interface {
	GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error)
	// TransactionsByExternalIDs includes soft-deleted rows.
	TransactionsByExternalIDs(ctx context.Context, ownerID string, externalIDs []string) (map[string]core.Transaction, error)
	InsertTransactions(ctx context.Context, txs []core.Transaction) error
	UpdateSyncedTransaction(ctx context.Context, id string, upd TransactionUpdate) error
	AssignTransaction(ctx context.Context, id string, itemID *string) error
	SetTransactionDeleted(ctx context.Context, id string, at *time.Time) error
	ReplaceSplits(ctx context.Context, transactionID string, splits []core.Split) error
	ListSplits(ctx context.Context, transactionID string) ([]core.Split, error)
	// ItemActivity returns non-deleted transactions linked to the items and
	// splits allocated to them whose parent is not deleted.
	ItemActivity(ctx context.Context, itemIDs []string) ([]core.Transaction, []core.Split, error)
	// ListUncategorized returns non-deleted, unlinked transactions without splits.
	ListUncategorized(ctx context.Context, ownerID string) ([]core.Transaction, error)
	MerchantHistory(ctx context.Context, ownerID string, merchants []string) ([]MerchantHistory, error)
}

// RecurringStore persists recurring payments.
type RecurringStore interface {
	GetRecurring(ctx context.Context, ownerID, id string) (*core.RecurringPayment, error)
	ListRecurring(ctx context.Context, ownerID string, activeOnly bool) ([]core.RecurringPayment, error)
	CreateRecurring(ctx context.Context, p *core.RecurringPayment) error
	UpdateRecurring(ctx context.Context, p *core.RecurringPayment) error
	DeleteRecurring(ctx context.Context, ownerID, id string) error
}

// AccountStore persists linked bank accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, ownerID, id string) (*core.LinkedAccount, error)
	ListAccounts(ctx context.Context, ownerID string) ([]core.LinkedAccount, error)
	CreateAccount(ctx context.Context, a *core.LinkedAccount) error
	UpdateAccountSettings(ctx context.Context, a *core.LinkedAccount) error
	TouchAccountSynced(ctx context.Context, id string, at time.Time) error
	// ListSyncOwners returns every owner with at least one sync-enabled account.
	ListSyncOwners(ctx context.Context) ([]string, error)
}

// Store is the full ledger. WithTx runs fn against a transactional view; the
// Store passed to fn must be used for every call inside it.
type Store interface {
	PeriodStore
	CategoryStore
	ItemStore
	TransactionStore
	RecurringStore
	AccountStore
	WithTx(ctx context.Context, fn func(Store) error) error
}
