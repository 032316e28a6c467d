package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

func TestDaysUntilDueUsesReferenceZone(t *testing.T) {
	// 02:00 UTC on March 1 is still February 28 five hours west of UTC.
	instant := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	due := core.NewDate(2025, 3, 1)

	west := FixedClock(instant, time.FixedZone("UTC-5", -5*3600))
	utc := FixedClock(instant, time.UTC)

	assert.Equal(t, 1, west.DaysUntilDue(due))
	assert.Equal(t, 0, utc.DaysUntilDue(due))

	year, month := west.CurrentPeriod()
	assert.Equal(t, 2025, year)
	assert.Equal(t, 2, month)
}

func TestDaysUntilDueOverdue(t *testing.T) {
	c := marchClock()
	assert.Equal(t, -5, c.DaysUntilDue(core.NewDate(2025, 3, 10)))
	assert.Equal(t, 17, c.DaysUntilDue(core.NewDate(2025, 4, 1)))
}

func TestRecurringServiceCreateValidates(t *testing.T) {
	svc := NewRecurringService(newTestStore(t), marchClock())
	ctx := context.Background()

	tests := []struct {
		name string
		in   RecurringInput
	}{
		{"empty name", RecurringInput{Name: " ", Amount: "10", Frequency: "monthly", NextDueDate: "2025-04-01"}},
		{"zero amount", RecurringInput{Name: "Gym", Amount: "0", Frequency: "monthly", NextDueDate: "2025-04-01"}},
		{"bad frequency", RecurringInput{Name: "Gym", Amount: "10", Frequency: "daily", NextDueDate: "2025-04-01"}},
		{"bad date", RecurringInput{Name: "Gym", Amount: "10", Frequency: "monthly", NextDueDate: "04/01/2025"}},
		{"bad category", RecurringInput{Name: "Gym", Amount: "10", Frequency: "monthly", NextDueDate: "2025-04-01", CategoryType: "hobbies"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner, tt.in)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

// A quarterly $600 premium is planned at $200 a month; paying $150 in February
// and $100 in March leaves it 41.67% funded.
func TestFundedAmountAccumulatesAcrossPeriods(t *testing.T) {
	repo := newTestStore(t)
	clock := marchClock()
	engine := NewRolloverEngine(repo, nil)
	svc := NewRecurringService(repo, clock)
	budget := NewBudgetService(repo, engine)
	ctx := context.Background()

	view, err := svc.Create(ctx, owner, RecurringInput{
		Name:         "Car insurance",
		Amount:       "600",
		Frequency:    "quarterly",
		NextDueDate:  "2025-04-01",
		CategoryType: "insurance",
	})
	require.NoError(t, err)
	assert.True(t, view.MonthlyContribution.Equal(dec("200")))
	assert.True(t, view.DisplayTarget.Equal(dec("600")))
	assert.True(t, view.FundedAmount.IsZero())
	assert.Equal(t, 17, view.DaysUntilDue)

	_, _, err = engine.EnsurePeriod(ctx, owner, 2025, 2)
	require.NoError(t, err)
	_, _, err = engine.EnsurePeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)

	linked, err := repo.ItemsForRecurring(ctx, owner, view.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)

	payments := map[int]string{2: "150", 3: "100"}
	for _, li := range linked {
		assert.True(t, li.Item.Planned.Equal(dec("200")))
		itemID := li.Item.ID
		_, err := budget.CreateTransaction(ctx, owner, TransactionInput{
			Date:         core.NewDate(li.Year, li.Month, 3).String(),
			Description:  "Premium installment",
			Amount:       payments[li.Month],
			Type:         "expense",
			BudgetItemID: &itemID,
		})
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, owner, view.ID)
	require.NoError(t, err)
	assert.True(t, got.FundedAmount.Equal(dec("250")), got.FundedAmount.String())
	assert.True(t, got.PercentFunded.Equal(dec("41.67")), got.PercentFunded.String())
	assert.False(t, got.IsFullyFunded)
	assert.True(t, got.IsPaid)
}

func TestFundedAmountMonthlyCountsCurrentPeriodOnly(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	svc := NewRecurringService(repo, marchClock())
	budget := NewBudgetService(repo, engine)
	ctx := context.Background()

	view, err := svc.Create(ctx, owner, RecurringInput{
		Name:         "Internet",
		Amount:       "60",
		Frequency:    "monthly",
		NextDueDate:  "2025-03-20",
		CategoryType: "housing",
	})
	require.NoError(t, err)

	_, _, err = engine.EnsurePeriod(ctx, owner, 2025, 2)
	require.NoError(t, err)
	_, _, err = engine.EnsurePeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)

	linked, err := repo.ItemsForRecurring(ctx, owner, view.ID)
	require.NoError(t, err)
	var feb ledger.LinkedItem
	for _, li := range linked {
		if li.Month == 2 {
			feb = li
		}
	}
	require.NotEmpty(t, feb.Item.ID)

	itemID := feb.Item.ID
	_, err = budget.CreateTransaction(ctx, owner, TransactionInput{
		Date: "2025-02-20", Description: "Internet", Amount: "60", Type: "expense", BudgetItemID: &itemID,
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, view.ID)
	require.NoError(t, err)
	assert.True(t, got.FundedAmount.IsZero())
	assert.False(t, got.IsPaid)
	assert.True(t, got.PercentFunded.IsZero())
}

func TestRecurringServiceUpdateAndList(t *testing.T) {
	repo := newTestStore(t)
	svc := NewRecurringService(repo, marchClock())
	ctx := context.Background()

	later, err := svc.Create(ctx, owner, RecurringInput{Name: "Streaming", Amount: "15.99", Frequency: "monthly", NextDueDate: "2025-03-28"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, RecurringInput{Name: "Water", Amount: "90", Frequency: "quarterly", NextDueDate: "2025-03-18"})
	require.NoError(t, err)

	amount := "17.49"
	inactive := false
	updated, err := svc.Update(ctx, owner, later.ID, RecurringPatch{Amount: &amount, IsActive: &inactive})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(dec("17.49")))
	assert.False(t, updated.IsActive)

	views, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Water", views[0].Name)
	assert.Equal(t, 3, views[0].DaysUntilDue)

	require.NoError(t, svc.Delete(ctx, owner, later.ID))
	_, err = svc.Get(ctx, owner, later.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
