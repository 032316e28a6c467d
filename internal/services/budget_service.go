package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

// BudgetService handles period views and the category, item, transaction and
// account operations around them.
type BudgetService struct {
	store    ledger.Store
	rollover *RolloverEngine
}

// NewBudgetService creates a new budget service
func NewBudgetService(store ledger.Store, rollover *RolloverEngine) *BudgetService {
	return &BudgetService{store: store, rollover: rollover}
}

// PeriodSummary returns the derived state of a month, creating the period on first access.
func (s *BudgetService) PeriodSummary(ctx context.Context, ownerID string, year, month int) (*core.PeriodSummary, error) {
	p, _, err := s.rollover.EnsurePeriod(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, p)
}

func (s *BudgetService) summarize(ctx context.Context, p *core.Period) (*core.PeriodSummary, error) {
	direct, splits, err := s.store.ItemActivity(ctx, periodItemIDs(p))
	if err != nil {
		return nil, fmt.Errorf("load item activity: %w", err)
	}
	summary := SummarizePeriod(p, ItemActuals(direct, splits))
	return &summary, nil
}

// UpdateBuffer sets the carried-over amount of an existing period.
func (s *BudgetService) UpdateBuffer(ctx context.Context, ownerID string, year, month int, amount string) (*core.PeriodSummary, error) {
	buffer, err := core.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	p, _, err := s.rollover.EnsurePeriod(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePeriodBuffer(ctx, ownerID, p.ID, buffer); err != nil {
		return nil, err
	}
	p.Buffer = core.RoundMoney(buffer)
	return s.summarize(ctx, p)
}

// CategoryInput creates a custom category.
type CategoryInput struct {
	PeriodID string `json:"periodId"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
}

// CategoryPatch updates a category. Nil fields are left untouched.
type CategoryPatch struct {
	Name  *string `json:"name"`
	Emoji *string `json:"emoji"`
}

// CreateCategory adds a custom category at the end of the period.
func (s *BudgetService) CreateCategory(ctx context.Context, ownerID string, in CategoryInput) (*core.Category, error) {
	p, err := s.store.GetPeriodByID(ctx, ownerID, in.PeriodID)
	if err != nil {
		return nil, err
	}
	c := core.Category{
		PeriodID: p.ID,
		Type:     core.CustomType(in.Name),
		Name:     strings.TrimSpace(in.Name),
		Emoji:    strings.TrimSpace(in.Emoji),
		Order:    len(p.Categories),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for _, existing := range p.Categories {
		if existing.Type == c.Type {
			return nil, core.NewValidationError("name", "a category with this name already exists")
		}
	}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Custom category created", "owner_id", ownerID, "category_id", c.ID, "name", c.Name)
	return &c, nil
}

func (s *BudgetService) UpdateCategory(ctx context.Context, ownerID, id string, patch CategoryPatch) (*core.Category, error) {
	c, err := s.store.GetCategory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Emoji != nil {
		c.Emoji = strings.TrimSpace(*patch.Emoji)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes a custom category and its items. Default categories stay.
func (s *BudgetService) DeleteCategory(ctx context.Context, ownerID, id string) error {
	c, err := s.store.GetCategory(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if c.Type.IsDefault() {
		return core.NewValidationError("categoryType", "default categories cannot be deleted")
	}
	return s.store.DeleteCategory(ctx, id)
}

// ItemInput creates a budget item. Planned is a decimal string.
type ItemInput struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Planned    string `json:"planned"`
}

// ItemPatch updates a budget item. Nil fields are left untouched.
type ItemPatch struct {
	Name    *string `json:"name"`
	Planned *string `json:"planned"`
}

// ItemOrder assigns a position to an item.
type ItemOrder struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

func parsePlanned(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return d, err
	}
	if d.IsNegative() {
		return decimal.Zero, core.NewValidationError("planned", "cannot be negative")
	}
	return core.RoundMoney(d), nil
}

func (s *BudgetService) CreateItem(ctx context.Context, ownerID string, in ItemInput) (*core.BudgetItem, error) {
	c, err := s.store.GetCategory(ctx, ownerID, in.CategoryID)
	if err != nil {
		return nil, err
	}
	planned, err := parsePlanned(in.Planned)
	if err != nil {
		return nil, err
	}
	siblings, err := s.categoryItems(ctx, c)
	if err != nil {
		return nil, err
	}

	it := core.BudgetItem{
		CategoryID: c.ID,
		Name:       strings.TrimSpace(in.Name),
		Planned:    planned,
		Order:      nextItemOrder(siblings),
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateItem(ctx, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *BudgetService) categoryItems(ctx context.Context, c *core.Category) ([]core.BudgetItem, error) {
	cats, err := s.store.ListCategories(ctx, c.PeriodID)
	if err != nil {
		return nil, err
	}
	for _, cc := range cats {
		if cc.ID == c.ID {
			return cc.Items, nil
		}
	}
	return nil, nil
}

func (s *BudgetService) UpdateItem(ctx context.Context, ownerID, id string, patch ItemPatch) (*core.BudgetItem, error) {
	it, err := s.store.GetItem(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		it.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Planned != nil {
		if it.Planned, err = parsePlanned(*patch.Planned); err != nil {
			return nil, err
		}
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteItem removes an item. Its transactions become uncategorized and its splits are dropped.
func (s *BudgetService) DeleteItem(ctx context.Context, ownerID, id string) error {
	if _, err := s.store.GetItem(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.DeleteItem(ctx, id)
}

// ReorderItems applies positions atomically; every item must belong to the owner.
func (s *BudgetService) ReorderItems(ctx context.Context, ownerID string, orders []ItemOrder) error {
	if len(orders) == 0 {
		return core.NewValidationError("items", "nothing to reorder")
	}
	return s.store.WithTx(ctx, func(tx ledger.Store) error {
		for _, o := range orders {
			if o.Order < 0 {
				return core.NewValidationError("order", "cannot be negative")
			}
			if _, err := tx.GetItem(ctx, ownerID, o.ID); err != nil {
				return err
			}
			if err := tx.SetItemOrder(ctx, o.ID, o.Order); err != nil {
				return err
			}
		}
		return nil
	})
}

// TransactionInput creates a manual transaction. Amount is a positive decimal string.
type TransactionInput struct {
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Amount       string  `json:"amount"`
	Type         string  `json:"type"`
	Merchant     *string `json:"merchant"`
	BudgetItemID *string `json:"budgetItemId"`
}

// SplitInput allocates part of a transaction to an item.
type SplitInput struct {
	BudgetItemID string `json:"budgetItemId"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
}

func (s *BudgetService) CreateTransaction(ctx context.Context, ownerID string, in TransactionInput) (*core.Transaction, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	amount, err := core.ParsePositiveAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	tx := core.Transaction{
		OwnerID:     ownerID,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(in.Type))),
		Merchant:    in.Merchant,
		Status:      core.StatusPosted,
	}
	if in.BudgetItemID != nil && *in.BudgetItemID != "" {
		if _, err := s.store.GetItem(ctx, ownerID, *in.BudgetItemID); err != nil {
			return nil, err
		}
		tx.BudgetItemID = in.BudgetItemID
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	rows := []core.Transaction{tx}
	if err := s.store.InsertTransactions(ctx, rows); err != nil {
		return nil, err
	}
	return s.store.GetTransaction(ctx, ownerID, rows[0].ID)
}

// AssignTransaction links a transaction to an item, or unlinks it when itemID is nil.
func (s *BudgetService) AssignTransaction(ctx context.Context, ownerID, txID string, itemID *string) (*core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, ownerID, txID)
	if err != nil {
		return nil, err
	}
	if itemID != nil && *itemID == "" {
		itemID = nil
	}
	if itemID != nil {
		if _, err := s.store.GetItem(ctx, ownerID, *itemID); err != nil {
			return nil, err
		}
	}
	if err := s.store.AssignTransaction(ctx, tx.ID, itemID); err != nil {
		return nil, err
	}
	return s.store.GetTransaction(ctx, ownerID, tx.ID)
}

// SetSplits replaces the splits of a transaction. An empty list removes them.
// The allocated total may not exceed the transaction amount by a cent or more.
func (s *BudgetService) SetSplits(ctx context.Context, ownerID, txID string, in []SplitInput) ([]core.Split, error) {
	var out []core.Split
	err := s.store.WithTx(ctx, func(st ledger.Store) error {
		tx, err := st.GetTransaction(ctx, ownerID, txID)
		if err != nil {
			return err
		}

		splits := make([]core.Split, 0, len(in))
		total := decimal.Zero
		for _, si := range in {
			amount, err := core.ParsePositiveAmount(si.Amount)
			if err != nil {
				return err
			}
			if _, err := st.GetItem(ctx, ownerID, si.BudgetItemID); err != nil {
				return err
			}
			total = total.Add(amount)
			splits = append(splits, core.Split{
				BudgetItemID: si.BudgetItemID,
				Amount:       core.RoundMoney(amount),
				Description:  strings.TrimSpace(si.Description),
			})
		}
		if !total.Sub(tx.Amount.Abs()).LessThan(core.BalanceTolerance) {
			return core.NewValidationError("splits", "split total exceeds the transaction amount")
		}
		if err := st.ReplaceSplits(ctx, tx.ID, splits); err != nil {
			return err
		}
		out = splits
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTransaction soft-deletes a transaction so a re-sync does not bring it back.
func (s *BudgetService) DeleteTransaction(ctx context.Context, ownerID, txID string) error {
	tx, err := s.store.GetTransaction(ctx, ownerID, txID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.store.SetTransactionDeleted(ctx, tx.ID, &now)
}

func (s *BudgetService) RestoreTransaction(ctx context.Context, ownerID, txID string) (*core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, ownerID, txID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTransactionDeleted(ctx, tx.ID, nil); err != nil {
		return nil, err
	}
	tx.DeletedAt = nil
	return tx, nil
}

// AccountInput links a provider account.
type AccountInput struct {
	Name              string `json:"name"`
	Institution       string `json:"institution"`
	ProviderAccountID string `json:"providerAccountId"`
	AccessToken       string `json:"accessToken"`
	SyncStartDate     string `json:"syncStartDate"`
}

// AccountPatch updates account settings. Nil fields are left untouched.
type AccountPatch struct {
	Name          *string `json:"name"`
	SyncEnabled   *bool   `json:"syncEnabled"`
	SyncStartDate *string `json:"syncStartDate"`
}

func (s *BudgetService) CreateAccount(ctx context.Context, ownerID string, in AccountInput) (*core.LinkedAccount, error) {
	a := core.LinkedAccount{
		OwnerID:           ownerID,
		Name:              strings.TrimSpace(in.Name),
		Institution:       strings.TrimSpace(in.Institution),
		ProviderAccountID: strings.TrimSpace(in.ProviderAccountID),
		AccessToken:       strings.TrimSpace(in.AccessToken),
		SyncEnabled:       true,
	}
	if strings.TrimSpace(in.SyncStartDate) != "" {
		d, err := core.ParseDate(in.SyncStartDate)
		if err != nil {
			return nil, err
		}
		a.SyncStartDate = &d
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateAccount(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *BudgetService) ListAccounts(ctx context.Context, ownerID string) ([]core.LinkedAccount, error) {
	return s.store.ListAccounts(ctx, ownerID)
}

func (s *BudgetService) UpdateAccount(ctx context.Context, ownerID, id string, patch AccountPatch) (*core.LinkedAccount, error) {
	a, err := s.store.GetAccount(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		a.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.SyncEnabled != nil {
		a.SyncEnabled = *patch.SyncEnabled
	}
	if patch.SyncStartDate != nil {
		if strings.TrimSpace(*patch.SyncStartDate) == "" {
			a.SyncStartDate = nil
		} else {
			d, err := core.ParseDate(*patch.SyncStartDate)
			if err != nil {
				return nil, err
			}
			a.SyncStartDate = &d
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAccountSettings(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
