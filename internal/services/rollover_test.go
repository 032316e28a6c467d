package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerobudget/internal/core"
	"zerobudget/internal/storage"
)

const owner = "owner-1"

// seedMonth creates a period through the engine and adds the given items to
// the food category.
func seedMonth(t *testing.T, engine *RolloverEngine, repo *storage.SQLiteRepository, year, month int, items map[string]string) *core.Period {
	t.Helper()
	ctx := context.Background()

	p, _, err := engine.EnsurePeriod(ctx, owner, year, month)
	require.NoError(t, err)
	food := findCategory(t, p, core.KindFood)
	for name, planned := range items {
		require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: food.ID, Name: name, Planned: dec(planned)}))
	}
	p, err = repo.GetPeriod(ctx, owner, year, month)
	require.NoError(t, err)
	return p
}

func TestCopyPeriodWithoutSourceSeedsDefaults(t *testing.T) {
	repo := newTestStore(t)
	events := &recordingPublisher{}
	engine := NewRolloverEngine(repo, events)
	ctx := context.Background()

	result, err := engine.CopyPeriod(ctx, owner, 2025, 2, 2025, 3)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.False(t, result.SourceFound)
	assert.Equal(t, NoticeNoSource, result.Notice)
	assert.Equal(t, 0, result.ItemsCopied)

	p, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Len(t, p.Categories, len(core.DefaultCategories()))
	assert.Equal(t, 0, countItems(p))
	assert.True(t, p.Buffer.IsZero())

	summary := SummarizePeriod(p, nil)
	assert.True(t, summary.PlannedIncome.IsZero())
	assert.True(t, summary.PlannedExpenses.IsZero())
	assert.True(t, summary.IsBalanced)

	assert.Equal(t, []string{EventPeriodRolled}, events.events)
}

func TestCopyPeriodEmptySourceReportsNotice(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	seedMonth(t, engine, repo, 2025, 2, nil)

	result, err := engine.CopyPeriod(ctx, owner, 2025, 2, 2025, 3)
	require.NoError(t, err)
	assert.True(t, result.SourceFound)
	assert.Equal(t, NoticeNoSource, result.Notice)
}

func TestCopyPeriodIsIdempotent(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	feb := seedMonth(t, engine, repo, 2025, 2, map[string]string{"Groceries": "400", "Dining out": "120.50"})
	pets := &core.Category{PeriodID: feb.ID, Type: core.CustomType("Pets"), Name: "Pets", Emoji: "🐾", Order: 11}
	require.NoError(t, repo.CreateCategory(ctx, pets))
	require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: pets.ID, Name: "Vet", Planned: dec("50")}))

	insurance := core.DefaultType(core.KindInsurance)
	require.NoError(t, repo.CreateRecurring(ctx, &core.RecurringPayment{
		OwnerID:      owner,
		Name:         "Car insurance",
		Amount:       dec("600"),
		Frequency:    core.Quarterly,
		NextDueDate:  core.NewDate(2025, 4, 1),
		CategoryType: &insurance,
		IsActive:     true,
	}))

	first, err := engine.CopyPeriod(ctx, owner, 2025, 2, 2025, 3)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Empty(t, first.Notice)
	assert.Equal(t, 3, first.ItemsCopied)
	assert.Equal(t, 1, first.RecurringProjected)

	mar, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, countItems(mar))
	assert.Len(t, mar.Categories, len(core.DefaultCategories())+1)
	assert.True(t, findCategory(t, mar, core.KindInsurance).Items[0].Planned.Equal(dec("200")))

	second, err := engine.CopyPeriod(ctx, owner, 2025, 2, 2025, 3)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, 0, second.ItemsCopied)
	assert.Equal(t, 3, second.ItemsSkipped)
	assert.Equal(t, 0, second.RecurringProjected)
	assert.Equal(t, 0, second.CategoriesCreated)

	again, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, countItems(again))
	assert.Len(t, again.Categories, len(mar.Categories))
}

func TestCopyPeriodSkipsNamesCaseInsensitively(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	// March first so it does not inherit February's items.
	seedMonth(t, engine, repo, 2025, 3, map[string]string{"  GROCERIES ": "350"})
	seedMonth(t, engine, repo, 2025, 2, map[string]string{"Groceries": "400"})

	result, err := engine.CopyPeriod(ctx, owner, 2025, 2, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsSkipped)
	assert.Equal(t, 0, result.ItemsCopied)

	mar, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	food := findCategory(t, mar, core.KindFood)
	require.Len(t, food.Items, 1)
	assert.True(t, food.Items[0].Planned.Equal(dec("350")))
}

func TestCopyPeriodRejectsSameMonth(t *testing.T) {
	engine := NewRolloverEngine(newTestStore(t), nil)
	_, err := engine.CopyPeriod(context.Background(), owner, 2025, 3, 2025, 3)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = engine.CopyPeriod(context.Background(), owner, 2025, 0, 2025, 3)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestEnsurePeriodWrapsYear(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	dec2024 := seedMonth(t, engine, repo, 2024, 12, map[string]string{"Groceries": "410"})
	require.NoError(t, repo.UpdatePeriodBuffer(ctx, owner, dec2024.ID, dec("75")))

	jan, result, err := engine.EnsurePeriod(ctx, owner, 2025, 1)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Created)
	assert.Equal(t, 1, result.ItemsCopied)
	assert.True(t, jan.Buffer.Equal(dec("75")))

	food := findCategory(t, jan, core.KindFood)
	require.Len(t, food.Items, 1)
	assert.Equal(t, "Groceries", food.Items[0].Name)

	existing, result, err := engine.EnsurePeriod(ctx, owner, 2025, 1)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, jan.ID, existing.ID)
}

func TestResetPeriodZero(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	seedMonth(t, engine, repo, 2025, 3, map[string]string{"Groceries": "400", "Dining out": "80"})

	result, err := engine.ResetPeriod(ctx, owner, 2025, 3, ResetZero)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsZeroed)

	mar, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, countItems(mar))
	for _, it := range findCategory(t, mar, core.KindFood).Items {
		assert.True(t, it.Planned.IsZero(), it.Name)
	}
}

func TestResetPeriodReplaceRebuildsFromPreviousMonth(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	mar := seedMonth(t, engine, repo, 2025, 3, map[string]string{"Takeaway": "90"})
	seedMonth(t, engine, repo, 2025, 2, map[string]string{"Groceries": "400", "Dining out": "80", "Coffee": "20"})

	hobby := &core.Category{PeriodID: mar.ID, Type: core.CustomType("hobby"), Name: "Hobby", Order: 11}
	require.NoError(t, repo.CreateCategory(ctx, hobby))
	require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: hobby.ID, Name: "Paint", Planned: dec("25")}))

	housing := core.DefaultType(core.KindHousing)
	hobbyType := core.CustomType("hobby")
	internet := &core.RecurringPayment{OwnerID: owner, Name: "Internet", Amount: dec("35"), Frequency: core.Monthly,
		NextDueDate: core.NewDate(2025, 3, 12), CategoryType: &housing, IsActive: true}
	classes := &core.RecurringPayment{OwnerID: owner, Name: "Art classes", Amount: dec("60"), Frequency: core.Monthly,
		NextDueDate: core.NewDate(2025, 3, 2), CategoryType: &hobbyType, IsActive: true}
	require.NoError(t, repo.CreateRecurring(ctx, internet))
	require.NoError(t, repo.CreateRecurring(ctx, classes))

	result, err := engine.ResetPeriod(ctx, owner, 2025, 3, ResetReplace)
	require.NoError(t, err)
	assert.True(t, result.SourceFound)
	assert.Equal(t, 1, result.CategoriesDeleted)
	assert.Equal(t, 2, result.ItemsDeleted)
	assert.Equal(t, 3, result.ItemsCopied)
	assert.Equal(t, 1, result.RecurringProjected)

	got, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, mar.ID, got.ID)
	assert.Len(t, got.Categories, len(core.DefaultCategories()))
	for _, c := range got.Categories {
		assert.NotEqual(t, core.KindCustom, c.Type.Kind, "custom category %q survived the reset", c.Name)
	}

	// February's items replace Takeaway.
	food := findCategory(t, got, core.KindFood)
	names := make([]string, 0, len(food.Items))
	for _, it := range food.Items {
		names = append(names, it.Name)
	}
	assert.ElementsMatch(t, []string{"Groceries", "Dining out", "Coffee"}, names)

	home := findCategory(t, got, core.KindHousing)
	require.Len(t, home.Items, 1)
	assert.Equal(t, "Internet", home.Items[0].Name)
	require.NotNil(t, home.Items[0].RecurringPaymentID)
	assert.Equal(t, internet.ID, *home.Items[0].RecurringPaymentID)
	assert.True(t, home.Items[0].Planned.Equal(dec("35")))
}

func TestResetPeriodMissing(t *testing.T) {
	engine := NewRolloverEngine(newTestStore(t), nil)

	_, err := engine.ResetPeriod(context.Background(), owner, 2025, 3, ResetZero)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = engine.ResetPeriod(context.Background(), owner, 2025, 3, "wipe")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestProjectRecurringIsIdempotent(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	mar := seedMonth(t, engine, repo, 2025, 3, nil)

	health := core.DefaultType(core.KindHealth)
	fitness := core.CustomType("fitness")
	payments := []*core.RecurringPayment{
		{OwnerID: owner, Name: "Gym", Amount: dec("45"), Frequency: core.Monthly, NextDueDate: core.NewDate(2025, 3, 20), CategoryType: &health, IsActive: true},
		{OwnerID: owner, Name: "Climbing", Amount: dec("30"), Frequency: core.Monthly, NextDueDate: core.NewDate(2025, 3, 8), CategoryType: &fitness, IsActive: true},
		{OwnerID: owner, Name: "Uncategorized sub", Amount: dec("9.99"), Frequency: core.Monthly, NextDueDate: core.NewDate(2025, 3, 5), IsActive: true},
		{OwnerID: owner, Name: "Paused", Amount: dec("10"), Frequency: core.Monthly, NextDueDate: core.NewDate(2025, 3, 5), CategoryType: &health, IsActive: false},
	}
	for _, p := range payments {
		require.NoError(t, repo.CreateRecurring(ctx, p))
	}

	n, err := engine.ProjectRecurring(ctx, owner, mar.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = engine.ProjectRecurring(ctx, owner, mar.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	assert.Len(t, got.Categories, len(core.DefaultCategories()), "no category is created for a payment")
	assert.Equal(t, 1, countItems(got))

	hc := findCategory(t, got, core.KindHealth)
	require.Len(t, hc.Items, 1)
	assert.Equal(t, "Gym", hc.Items[0].Name)
	require.NotNil(t, hc.Items[0].RecurringPaymentID)
	assert.Equal(t, payments[0].ID, *hc.Items[0].RecurringPaymentID)
}

func TestProjectRecurringAppendsAfterHighestOrder(t *testing.T) {
	repo := newTestStore(t)
	engine := NewRolloverEngine(repo, nil)
	ctx := context.Background()

	mar := seedMonth(t, engine, repo, 2025, 3, nil)
	food := findCategory(t, mar, core.KindFood)
	require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: food.ID, Name: "Groceries", Planned: dec("400"), Order: 0}))
	require.NoError(t, repo.CreateItem(ctx, &core.BudgetItem{CategoryID: food.ID, Name: "Dining out", Planned: dec("80"), Order: 7}))

	foodType := core.DefaultType(core.KindFood)
	require.NoError(t, repo.CreateRecurring(ctx, &core.RecurringPayment{OwnerID: owner, Name: "Meal kit", Amount: dec("60"),
		Frequency: core.Monthly, NextDueDate: core.NewDate(2025, 3, 15), CategoryType: &foodType, IsActive: true}))

	n, err := engine.ProjectRecurring(ctx, owner, mar.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := repo.GetPeriod(ctx, owner, 2025, 3)
	require.NoError(t, err)
	for _, it := range findCategory(t, got, core.KindFood).Items {
		if it.Name == "Meal kit" {
			assert.Equal(t, 8, it.Order)
			return
		}
	}
	t.Fatal("Meal kit was not projected")
}

func TestNextItemOrder(t *testing.T) {
	tests := []struct {
		name   string
		orders []int
		want   int
	}{
		{"empty", nil, 0},
		{"dense", []int{0, 1, 2}, 3},
		{"sparse", []int{0, 7}, 8},
		{"unsorted", []int{4, 1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]core.BudgetItem, len(tt.orders))
			for i, o := range tt.orders {
				items[i].Order = o
			}
			if got := nextItemOrder(items); got != tt.want {
				t.Errorf("nextItemOrder() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProjectRecurringUnknownPeriod(t *testing.T) {
	engine := NewRolloverEngine(newTestStore(t), nil)
	_, err := engine.ProjectRecurring(context.Background(), owner, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHasDuplicate(t *testing.T) {
	link := "rp-1"
	other := "rp-2"
	items := []core.BudgetItem{
		{Name: "Rent"},
		{Name: "Insurance", RecurringPaymentID: &link},
	}

	tests := []struct {
		name      string
		candidate core.BudgetItem
		want      bool
	}{
		{"same name different case", core.BudgetItem{Name: "rent "}, true},
		{"shared recurring link", core.BudgetItem{Name: "Premium", RecurringPaymentID: &link}, true},
		{"different link and name", core.BudgetItem{Name: "Premium", RecurringPaymentID: &other}, false},
		{"new name", core.BudgetItem{Name: "Water"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasDuplicate(items, tt.candidate); got != tt.want {
				t.Errorf("hasDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}
