package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

// seedPeriod creates a period with one income and one housing category, each with one item.
func seedPeriod(t *testing.T, repo *SQLiteRepository, owner string) (*core.Period, core.BudgetItem, core.BudgetItem) {
	t.Helper()
	ctx := context.Background()

	p := &core.Period{OwnerID: owner, Year: 2025, Month: 3, Buffer: dec("100")}
	require.NoError(t, repo.CreatePeriod(ctx, p))

	income := &core.Category{PeriodID: p.ID, Type: core.DefaultType(core.KindIncome), Name: "Income", Order: 0}
	housing := &core.Category{PeriodID: p.ID, Type: core.DefaultType(core.KindHousing), Name: "Housing", Order: 1}
	require.NoError(t, repo.CreateCategory(ctx, income))
	require.NoError(t, repo.CreateCategory(ctx, housing))

	salary := &core.BudgetItem{CategoryID: income.ID, Name: "Salary", Planned: dec("3000")}
	rent := &core.BudgetItem{CategoryID: housing.ID, Name: "Rent", Planned: dec("1200.456")}
	require.NoError(t, repo.CreateItem(ctx, salary))
	require.NoError(t, repo.CreateItem(ctx, rent))

	return p, *salary, *rent
}

func TestPeriodRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedPeriod(t, repo, "owner-1")

	got, err := repo.GetPeriod(ctx, "owner-1", 2025, 3)
	require.NoError(t, err)
	assert.True(t, got.Buffer.Equal(dec("100")))
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "Income", got.Categories[0].Name)
	require.Len(t, got.Categories[1].Items, 1)
	assert.True(t, got.Categories[1].Items[0].Planned.Equal(dec("1200.46")), "planned is stored rounded")
	assert.Equal(t, core.DefaultType(core.KindHousing), got.Categories[1].Type)
}

func TestPeriodIsUniquePerOwnerAndMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePeriod(ctx, &core.Period{OwnerID: "a", Year: 2025, Month: 1}))
	assert.Error(t, repo.CreatePeriod(ctx, &core.Period{OwnerID: "a", Year: 2025, Month: 1}))
	assert.NoError(t, repo.CreatePeriod(ctx, &core.Period{OwnerID: "b", Year: 2025, Month: 1}))
}

func TestForeignOwnerIsNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p, _, rent := seedPeriod(t, repo, "owner-1")

	_, err := repo.GetPeriodByID(ctx, "intruder", p.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = repo.GetItem(ctx, "intruder", rent.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = repo.GetItem(ctx, "owner-1", rent.ID)
	assert.NoError(t, err)
}

func TestTransactionsByExternalIDsIncludesSoftDeleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	deletedAt := time.Now()
	txs := []core.Transaction{
		{OwnerID: "o", Date: core.NewDate(2025, 3, 1), Amount: dec("10"), Type: core.TxExpense,
			Status: core.StatusPosted, ExternalID: strPtr("ext-1")},
		{OwnerID: "o", Date: core.NewDate(2025, 3, 2), Amount: dec("20"), Type: core.TxExpense,
			Status: core.StatusPending, ExternalID: strPtr("ext-2"), DeletedAt: &deletedAt},
	}
	require.NoError(t, repo.InsertTransactions(ctx, txs))

	found, err := repo.TransactionsByExternalIDs(ctx, "o", []string{"ext-1", "ext-2", "ext-3"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.NotNil(t, found["ext-2"].DeletedAt)

	other, err := repo.TransactionsByExternalIDs(ctx, "someone-else", []string{"ext-1"})
	require.NoError(t, err)
	assert.Empty(t, other)

	// the external id is unique per owner
	dup := []core.Transaction{{OwnerID: "o", Date: core.NewDate(2025, 3, 1), Amount: dec("1"),
		Type: core.TxExpense, Status: core.StatusPosted, ExternalID: strPtr("ext-1")}}
	assert.Error(t, repo.InsertTransactions(ctx, dup))
}

func TestUpdateSyncedTransactionKeepsMerchantWhenAbsent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx := core.Transaction{OwnerID: "o", Date: core.NewDate(2025, 3, 1), Amount: dec("10"),
		Type: core.TxExpense, Status: core.StatusPending, ExternalID: strPtr("e"), Merchant: strPtr("Shop")}
	require.NoError(t, repo.InsertTransactions(ctx, []core.Transaction{tx}))
	found, err := repo.TransactionsByExternalIDs(ctx, "o", []string{"e"})
	require.NoError(t, err)
	id := found["e"].ID

	require.NoError(t, repo.UpdateSyncedTransaction(ctx, id, ledger.TransactionUpdate{
		Status: core.StatusPosted, Amount: dec("10.5"), Description: "SHOP 123",
	}))
	got, err := repo.GetTransaction(ctx, "o", id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPosted, got.Status)
	assert.True(t, got.Amount.Equal(dec("10.5")))
	require.NotNil(t, got.Merchant)
	assert.Equal(t, "Shop", *got.Merchant)
}

func TestItemActivityAndUncategorized(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, salary, rent := seedPeriod(t, repo, "o")

	now := time.Now()
	txs := []core.Transaction{
		{ID: "direct", OwnerID: "o", BudgetItemID: &rent.ID, Date: core.NewDate(2025, 3, 1),
			Amount: dec("1200"), Type: core.TxExpense, Status: core.StatusPosted},
		{ID: "deleted", OwnerID: "o", BudgetItemID: &rent.ID, Date: core.NewDate(2025, 3, 2),
			Amount: dec("50"), Type: core.TxExpense, Status: core.StatusPosted, DeletedAt: &now},
		{ID: "parent", OwnerID: "o", Date: core.NewDate(2025, 3, 3),
			Amount: dec("90"), Type: core.TxExpense, Status: core.StatusPosted},
		{ID: "loose", OwnerID: "o", Date: core.NewDate(2025, 3, 4),
			Amount: dec("5"), Type: core.TxExpense, Status: core.StatusPosted},
	}
	require.NoError(t, repo.InsertTransactions(ctx, txs))
	require.NoError(t, repo.ReplaceSplits(ctx, "parent", []core.Split{
		{BudgetItemID: rent.ID, Amount: dec("60")},
		{BudgetItemID: salary.ID, Amount: dec("30")},
	}))

	direct, splits, err := repo.ItemActivity(ctx, []string{rent.ID})
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, "direct", direct[0].ID)
	require.Len(t, splits, 1)
	assert.True(t, splits[0].Amount.Equal(dec("60")))

	uncategorized, err := repo.ListUncategorized(ctx, "o")
	require.NoError(t, err)
	require.Len(t, uncategorized, 1)
	assert.Equal(t, "loose", uncategorized[0].ID)

	parent, err := repo.GetTransaction(ctx, "o", "parent")
	require.NoError(t, err)
	assert.True(t, parent.HasSplits)
}

func TestDeletingItemUncategorizesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, _, rent := seedPeriod(t, repo, "o")

	require.NoError(t, repo.InsertTransactions(ctx, []core.Transaction{{ID: "t1", OwnerID: "o",
		BudgetItemID: &rent.ID, Date: core.NewDate(2025, 3, 1), Amount: dec("10"),
		Type: core.TxExpense, Status: core.StatusPosted}}))

	require.NoError(t, repo.DeleteItem(ctx, rent.ID))

	tx, err := repo.GetTransaction(ctx, "o", "t1")
	require.NoError(t, err)
	assert.Nil(t, tx.BudgetItemID)
}

func TestDeleteCustomCategoriesKeepsDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p, _, _ := seedPeriod(t, repo, "o")

	require.NoError(t, repo.CreateCategory(ctx, &core.Category{PeriodID: p.ID,
		Type: core.CustomType("pets"), Name: "Pets", Order: 5}))

	n, err := repo.DeleteCustomCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	cats, err := repo.ListCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestWithTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(s ledger.Store) error {
		if err := s.CreatePeriod(ctx, &core.Period{OwnerID: "o", Year: 2025, Month: 4}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetPeriod(ctx, "o", 2025, 4)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMerchantHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, salary, rent := seedPeriod(t, repo, "o")

	require.NoError(t, repo.InsertTransactions(ctx, []core.Transaction{
		{OwnerID: "o", BudgetItemID: &rent.ID, Merchant: strPtr("Landlord"), Date: core.NewDate(2025, 1, 1),
			Amount: dec("1"), Type: core.TxExpense, Status: core.StatusPosted},
		{OwnerID: "o", BudgetItemID: &rent.ID, Merchant: strPtr("Landlord"), Date: core.NewDate(2025, 2, 1),
			Amount: dec("1"), Type: core.TxExpense, Status: core.StatusPosted},
		{OwnerID: "o", BudgetItemID: &salary.ID, Merchant: strPtr("Landlord"), Date: core.NewDate(2025, 2, 5),
			Amount: dec("1"), Type: core.TxIncome, Status: core.StatusPosted},
	}))

	hist, err := repo.MerchantHistory(ctx, "o", []string{"Landlord"})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	counts := map[string]int{}
	for _, h := range hist {
		counts[h.ItemName] = h.Count
	}
	assert.Equal(t, 2, counts["Rent"])
	assert.Equal(t, 1, counts["Salary"])
}

func TestAccountsAndRecurring(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := core.NewDate(2025, 1, 1)
	acct := &core.LinkedAccount{OwnerID: "o", Name: "Checking", ProviderAccountID: "acc_1",
		AccessToken: "tok", SyncEnabled: true, SyncStartDate: &start}
	require.NoError(t, repo.CreateAccount(ctx, acct))

	synced := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchAccountSynced(ctx, acct.ID, synced))
	got, err := repo.GetAccount(ctx, "o", acct.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, got.LastSyncedAt.Equal(synced))
	require.NotNil(t, got.SyncStartDate)
	assert.Equal(t, "2025-01-01", got.SyncStartDate.String())

	ct := core.DefaultType(core.KindInsurance)
	pay := &core.RecurringPayment{OwnerID: "o", Name: "Car insurance", Amount: dec("600"),
		Frequency: core.Quarterly, NextDueDate: core.NewDate(2025, 4, 1), CategoryType: &ct, IsActive: true}
	require.NoError(t, repo.CreateRecurring(ctx, pay))

	list, err := repo.ListRecurring(ctx, "o", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CategoryType)
	assert.Equal(t, ct, *list[0].CategoryType)
	assert.Equal(t, core.Quarterly, list[0].Frequency)

	assert.ErrorIs(t, repo.DeleteRecurring(ctx, "intruder", pay.ID), core.ErrNotFound)
	assert.NoError(t, repo.DeleteRecurring(ctx, "o", pay.ID))
}
