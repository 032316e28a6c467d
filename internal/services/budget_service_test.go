package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

func newBudget(t *testing.T) (*BudgetService, ledger.Store) {
	t.Helper()
	repo := newTestStore(t)
	return NewBudgetService(repo, NewRolloverEngine(repo, nil)), repo
}

func TestPeriodSummaryCreatesOnFirstAccess(t *testing.T) {
	svc, repo := newBudget(t)
	ctx := context.Background()

	summary, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Len(t, summary.Categories, len(core.DefaultCategories()))
	assert.True(t, summary.IsBalanced)

	p, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, p.ID, summary.PeriodID)

	_, err = svc.PeriodSummary(ctx, owner, 2025, 13)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestUpdateBuffer(t *testing.T) {
	svc, _ := newBudget(t)
	ctx := context.Background()

	summary, err := svc.UpdateBuffer(ctx, owner, 2025, 3, "150,75")
	require.NoError(t, err)
	assert.True(t, summary.Buffer.Equal(dec("150.75")))
	assert.True(t, summary.RemainingToBudget.Equal(dec("150.75")))

	_, err = svc.UpdateBuffer(ctx, owner, 2025, 3, "lots")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSplitsAreNotDoubleCounted(t *testing.T) {
	svc, _ := newBudget(t)
	ctx := context.Background()

	summary, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	food := summary.Categories[5]
	require.Equal(t, "Food", food.Name)

	groceries, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: food.ID, Name: "Groceries", Planned: "400"})
	require.NoError(t, err)
	household, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: food.ID, Name: "Household", Planned: "100"})
	require.NoError(t, err)
	assert.Equal(t, 1, household.Order)

	tx, err := svc.CreateTransaction(ctx, owner, TransactionInput{
		Date:         "2025-03-08",
		Description:  "Superstore",
		Amount:       "120",
		Type:         "expense",
		BudgetItemID: &groceries.ID,
	})
	require.NoError(t, err)

	splits, err := svc.SetSplits(ctx, owner, tx.ID, []SplitInput{
		{BudgetItemID: groceries.ID, Amount: "90"},
		{BudgetItemID: household.ID, Amount: "30"},
	})
	require.NoError(t, err)
	assert.Len(t, splits, 2)

	summary, err = svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	items := summary.Categories[5].Items
	require.Len(t, items, 2)
	assert.True(t, items[0].Actual.Equal(dec("90")), items[0].Actual.String())
	assert.True(t, items[1].Actual.Equal(dec("30")), items[1].Actual.String())
	assert.True(t, summary.ActualExpenses.Equal(dec("120")))

	_, err = svc.SetSplits(ctx, owner, tx.ID, []SplitInput{
		{BudgetItemID: groceries.ID, Amount: "100"},
		{BudgetItemID: household.ID, Amount: "20.01"},
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	// Clearing splits makes the direct link count again.
	_, err = svc.SetSplits(ctx, owner, tx.ID, nil)
	require.NoError(t, err)
	summary, err = svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.True(t, summary.Categories[5].Items[0].Actual.Equal(dec("120")))
}

func TestDeleteAndRestoreTransaction(t *testing.T) {
	svc, _ := newBudget(t)
	ctx := context.Background()

	summary, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	rent, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: summary.Categories[3].ID, Name: "Rent", Planned: "1200"})
	require.NoError(t, err)

	tx, err := svc.CreateTransaction(ctx, owner, TransactionInput{
		Date: "2025-03-01", Description: "Rent", Amount: "1200", Type: "expense", BudgetItemID: &rent.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, owner, tx.ID))
	summary, err = svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.True(t, summary.ActualExpenses.IsZero())

	restored, err := svc.RestoreTransaction(ctx, owner, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	summary, err = svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.True(t, summary.ActualExpenses.Equal(dec("1200")))
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, _ := newBudget(t)
	ctx := context.Background()
	missing := "no-such-item"

	tests := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"bad date", TransactionInput{Date: "yesterday", Amount: "1", Type: "expense"}, core.ErrValidation},
		{"negative amount", TransactionInput{Date: "2025-03-01", Amount: "-1", Type: "expense"}, core.ErrValidation},
		{"bad type", TransactionInput{Date: "2025-03-01", Amount: "1", Type: "transfer"}, core.ErrValidation},
		{"unknown item", TransactionInput{Date: "2025-03-01", Amount: "1", Type: "expense", BudgetItemID: &missing}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, owner, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCategoryLifecycle(t *testing.T) {
	svc, repo := newBudget(t)
	ctx := context.Background()

	summary, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)

	pets, err := svc.CreateCategory(ctx, owner, CategoryInput{PeriodID: summary.PeriodID, Name: "Pets", Emoji: "🐶"})
	require.NoError(t, err)
	assert.Equal(t, core.CustomType("pets"), pets.Type)
	assert.Equal(t, len(core.DefaultCategories()), pets.Order)

	name := "Animals"
	renamed, err := svc.UpdateCategory(ctx, owner, pets.ID, CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Animals", renamed.Name)

	require.NoError(t, svc.DeleteCategory(ctx, owner, pets.ID))
	err = svc.DeleteCategory(ctx, owner, summary.Categories[0].ID)
	assert.ErrorIs(t, err, core.ErrValidation)

	p, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Len(t, p.Categories, len(core.DefaultCategories()))
}

func TestCreateItemAppendsAfterHighestOrder(t *testing.T) {
	svc, repo := newBudget(t)
	ctx := context.Background()

	_, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	p, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	food := findCategory(t, p, core.KindFood)
	require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: food.ID, Name: "Groceries", Order: 0}))
	require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: food.ID, Name: "Dining out", Order: 7}))

	it, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: food.ID, Name: "Snacks", Planned: "15"})
	require.NoError(t, err)
	assert.Equal(t, 8, it.Order)
}

func TestReorderItems(t *testing.T) {
	svc, repo := newBudget(t)
	ctx := context.Background()

	summary, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	catID := summary.Categories[5].ID
	a, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: catID, Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: catID, Name: "B"})
	require.NoError(t, err)

	require.NoError(t, svc.ReorderItems(ctx, owner, []ItemOrder{{ID: a.ID, Order: 1}, {ID: b.ID, Order: 0}}))

	p, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	food := findCategory(t, p, core.KindFood)
	require.Len(t, food.Items, 2)
	assert.Equal(t, "B", food.Items[0].Name)

	err = svc.ReorderItems(ctx, owner, []ItemOrder{{ID: a.ID, Order: 0}, {ID: "ghost", Order: 1}})
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := repo.GetItem(ctx, owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Order)
}

func TestListUncategorizedSuggestsItems(t *testing.T) {
	svc, _ := newBudget(t)
	ctx := context.Background()
	cafe := "Blue Bottle"

	feb, err := svc.PeriodSummary(ctx, owner, 2025, 2)
	require.NoError(t, err)
	febFood := feb.Categories[5].ID
	coffee, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: febFood, Name: "Coffee"})
	require.NoError(t, err)
	dining, err := svc.CreateItem(ctx, owner, ItemInput{CategoryID: febFood, Name: "Dining out"})
	require.NoError(t, err)

	for i, itemID := range []string{coffee.ID, coffee.ID, dining.ID} {
		id := itemID
		_, err := svc.CreateTransaction(ctx, owner, TransactionInput{
			Date:         core.NewDate(2025, 2, 10+i).String(),
			Amount:       "4.50",
			Type:         "expense",
			Merchant:     &cafe,
			BudgetItemID: &id,
		})
		require.NoError(t, err)
	}

	mar, err := svc.PeriodSummary(ctx, owner, 2025, 3)
	require.NoError(t, err)
	var marCoffee string
	for _, it := range mar.Categories[5].Items {
		if it.Name == "Coffee" {
			marCoffee = it.ID
		}
	}
	require.NotEmpty(t, marCoffee)

	open, err := svc.CreateTransaction(ctx, owner, TransactionInput{
		Date: "2025-03-03", Amount: "5", Type: "expense", Merchant: &cafe,
	})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, owner, TransactionInput{
		Date: "2025-03-04", Amount: "70", Type: "expense", Description: "Cash",
	})
	require.NoError(t, err)

	list, err := svc.ListUncategorized(ctx, owner, 2025, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var withMerchant UncategorizedTransaction
	for _, u := range list {
		if u.ID == open.ID {
			withMerchant = u
		} else {
			assert.Nil(t, u.Suggestion)
		}
	}
	require.NotNil(t, withMerchant.Suggestion)
	assert.Equal(t, "Coffee", withMerchant.Suggestion.ItemName)
	require.NotNil(t, withMerchant.Suggestion.BudgetItemID)
	assert.Equal(t, marCoffee, *withMerchant.Suggestion.BudgetItemID)

	noPeriod, err := svc.ListUncategorized(ctx, owner, 0, 0)
	require.NoError(t, err)
	for _, u := range noPeriod {
		if u.Suggestion != nil {
			assert.Nil(t, u.Suggestion.BudgetItemID)
		}
	}
}

func TestBestItemPerMerchantTieBreak(t *testing.T) {
	history := []ledger.MerchantHistory{
		{Merchant: "m1", ItemName: "Fuel", Count: 2, LastDate: core.NewDate(2025, 1, 5)},
		{Merchant: "m1", ItemName: "Snacks", Count: 2, LastDate: core.NewDate(2025, 2, 5)},
		{Merchant: "m2", ItemName: "Books", Count: 1, LastDate: core.NewDate(2025, 2, 1)},
		{Merchant: "m2", ItemName: "Art", Count: 1, LastDate: core.NewDate(2025, 2, 1)},
		{Merchant: "m3", ItemName: "Rare", Count: 1, LastDate: core.NewDate(2025, 3, 1)},
		{Merchant: "m3", ItemName: "Usual", Count: 4, LastDate: core.NewDate(2024, 3, 1)},
	}

	got := bestItemPerMerchant(history)
	want := map[string]string{"m1": "Snacks", "m2": "Art", "m3": "Usual"}
	assert.Equal(t, want, got)
}

func TestAccountLifecycle(t *testing.T) {
	svc, _ := newBudget(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, owner, AccountInput{Name: "Checking", ProviderAccountID: "acc_1"})
	assert.ErrorIs(t, err, core.ErrValidation)

	acct, err := svc.CreateAccount(ctx, owner, AccountInput{
		Name: "Checking", Institution: "Test Bank", ProviderAccountID: "acc_1", AccessToken: "tok", SyncStartDate: "2025-01-01",
	})
	require.NoError(t, err)
	assert.True(t, acct.SyncEnabled)

	off := false
	empty := ""
	updated, err := svc.UpdateAccount(ctx, owner, acct.ID, AccountPatch{SyncEnabled: &off, SyncStartDate: &empty})
	require.NoError(t, err)
	assert.False(t, updated.SyncEnabled)
	assert.Nil(t, updated.SyncStartDate)

	list, err := svc.ListAccounts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tok", list[0].AccessToken)

}
