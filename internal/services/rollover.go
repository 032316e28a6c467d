package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

// ResetMode selects how ResetPeriod clears a period.
type ResetMode string

const (
	// ResetZero keeps every item and sets planned amounts to zero.
	ResetZero ResetMode = "zero"
	// ResetReplace rebuilds the period from the previous month.
	ResetReplace ResetMode = "replace"
)

// NoticeNoSource is reported when there was nothing to copy from.
const NoticeNoSource = "no_source"

// RolloverResult reports what a copy or reset changed.
type RolloverResult struct {
	PeriodID           string `json:"periodId"`
	Created            bool   `json:"created"`
	SourceFound        bool   `json:"sourceFound"`
	Notice             string `json:"notice,omitempty"`
	CategoriesCreated  int    `json:"categoriesCreated"`
	ItemsCopied        int    `json:"itemsCopied"`
	ItemsSkipped       int    `json:"itemsSkipped"`
	ItemsZeroed        int    `json:"itemsZeroed,omitempty"`
	ItemsDeleted       int    `json:"itemsDeleted,omitempty"`
	CategoriesDeleted  int    `json:"categoriesDeleted,omitempty"`
	RecurringProjected int    `json:"recurringProjected"`
}

// RolloverEngine creates, copies and resets budget periods.
type RolloverEngine struct {
	store  ledger.Store
	events EventPublisher
}

// NewRolloverEngine creates a rollover engine. events may be nil.
func NewRolloverEngine(store ledger.Store, events EventPublisher) *RolloverEngine {
	return &RolloverEngine{store: store, events: events}
}

// CopyPeriod copies the structure of the source month into the target month,
// creating the target if needed, then projects recurring payments into it.
// Running it twice yields the same target.
func (e *RolloverEngine) CopyPeriod(ctx context.Context, ownerID string, srcYear, srcMonth, dstYear, dstMonth int) (*RolloverResult, error) {
	if err := core.ValidateMonth(srcYear, srcMonth); err != nil {
		return nil, err
	}
	if err := core.ValidateMonth(dstYear, dstMonth); err != nil {
		return nil, err
	}
	if srcYear == dstYear && srcMonth == dstMonth {
		return nil, core.NewValidationError("targetMonth", "source and target must differ")
	}

	result := &RolloverResult{}
	err := e.store.WithTx(ctx, func(s ledger.Store) error {
		source, err := findPeriod(ctx, s, ownerID, srcYear, srcMonth)
		if err != nil {
			return err
		}

		target, created, err := ensureTarget(ctx, s, ownerID, dstYear, dstMonth, source)
		if err != nil {
			return err
		}
		result.PeriodID = target.ID
		result.Created = created

		if err := copyStructure(ctx, s, source, target, result); err != nil {
			return err
		}

		projected, err := projectRecurring(ctx, s, ownerID, target.ID)
		if err != nil {
			return err
		}
		result.RecurringProjected = projected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copy period %04d-%02d to %04d-%02d: %w", srcYear, srcMonth, dstYear, dstMonth, err)
	}

	slog.InfoContext(ctx, "Copied budget period",
		"owner_id", ownerID,
		"source", fmt.Sprintf("%04d-%02d", srcYear, srcMonth),
		"target", fmt.Sprintf("%04d-%02d", dstYear, dstMonth),
		"created", result.Created,
		"items_copied", result.ItemsCopied,
		"items_skipped", result.ItemsSkipped,
		"recurring_projected", result.RecurringProjected,
		"notice", result.Notice)

	publish(ctx, e.events, EventPeriodRolled, PeriodRolledEvent{
		OwnerID: ownerID, Year: dstYear, Month: dstMonth, Result: result,
	})
	return result, nil
}

// EnsurePeriod returns the period for (year, month), creating it from the
// previous month when it does not exist yet. The result is nil when the
// period already existed.
func (e *RolloverEngine) EnsurePeriod(ctx context.Context, ownerID string, year, month int) (*core.Period, *RolloverResult, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return nil, nil, err
	}
	p, err := e.store.GetPeriod(ctx, ownerID, year, month)
	if err == nil {
		return p, nil, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, nil, err
	}

	prevYear, prevMonth := core.PreviousMonth(year, month)
	result, err := e.CopyPeriod(ctx, ownerID, prevYear, prevMonth, year, month)
	if err != nil {
		return nil, nil, err
	}
	p, err = e.store.GetPeriod(ctx, ownerID, year, month)
	if err != nil {
		return nil, nil, fmt.Errorf("reload period after creation: %w", core.ErrInconsistent)
	}
	return p, result, nil
}

// ResetPeriod clears an existing period according to mode.
func (e *RolloverEngine) ResetPeriod(ctx context.Context, ownerID string, year, month int, mode ResetMode) (*RolloverResult, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	if mode != ResetZero && mode != ResetReplace {
		return nil, core.NewValidationError("mode", "must be zero or replace")
	}

	result := &RolloverResult{}
	err := e.store.WithTx(ctx, func(s ledger.Store) error {
		target, err := s.GetPeriod(ctx, ownerID, year, month)
		if err != nil {
			return err
		}
		result.PeriodID = target.ID

		if mode == ResetZero {
			n, err := s.ZeroPlannedInPeriod(ctx, target.ID)
			if err != nil {
				return err
			}
			result.ItemsZeroed = int(n)
			result.SourceFound = true
			return nil
		}

		items, err := s.DeleteItemsInPeriod(ctx, target.ID)
		if err != nil {
			return err
		}
		cats, err := s.DeleteCustomCategories(ctx, target.ID)
		if err != nil {
			return err
		}
		result.ItemsDeleted = int(items)
		result.CategoriesDeleted = int(cats)

		if err := seedDefaults(ctx, s, target.ID, result); err != nil {
			return err
		}
		if target, err = s.GetPeriodByID(ctx, ownerID, target.ID); err != nil {
			return err
		}

		prevYear, prevMonth := core.PreviousMonth(year, month)
		source, err := findPeriod(ctx, s, ownerID, prevYear, prevMonth)
		if err != nil {
			return err
		}
		if err := copyStructure(ctx, s, source, target, result); err != nil {
			return err
		}

		projected, err := projectRecurring(ctx, s, ownerID, target.ID)
		if err != nil {
			return err
		}
		result.RecurringProjected = projected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset period %04d-%02d (%s): %w", year, month, mode, err)
	}

	slog.InfoContext(ctx, "Reset budget period",
		"owner_id", ownerID,
		"period", fmt.Sprintf("%04d-%02d", year, month),
		"mode", mode,
		"items_zeroed", result.ItemsZeroed,
		"items_deleted", result.ItemsDeleted,
		"items_copied", result.ItemsCopied)

	publish(ctx, e.events, EventPeriodRolled, PeriodRolledEvent{
		OwnerID: ownerID, Year: year, Month: month, Result: result,
	})
	return result, nil
}

// ProjectRecurring adds an item for every active recurring payment that has no
// linked item in the period yet. It returns the number of items created.
func (e *RolloverEngine) ProjectRecurring(ctx context.Context, ownerID, periodID string) (int, error) {
	var n int
	err := e.store.WithTx(ctx, func(s ledger.Store) error {
		if _, err := s.GetPeriodByID(ctx, ownerID, periodID); err != nil {
			return err
		}
		var err error
		n, err = projectRecurring(ctx, s, ownerID, periodID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("project recurring payments: %w", err)
	}
	return n, nil
}

// findPeriod returns nil without error when the period does not exist.
func findPeriod(ctx context.Context, s ledger.Store, ownerID string, year, month int) (*core.Period, error) {
	p, err := s.GetPeriod(ctx, ownerID, year, month)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func ensureTarget(ctx context.Context, s ledger.Store, ownerID string, year, month int, source *core.Period) (*core.Period, bool, error) {
	target, err := findPeriod(ctx, s, ownerID, year, month)
	if err != nil {
		return nil, false, err
	}
	if target != nil {
		return target, false, nil
	}

	buffer := decimal.Zero
	if source != nil {
		buffer = source.Buffer
	}
	p := &core.Period{OwnerID: ownerID, Year: year, Month: month, Buffer: buffer}
	if err := s.CreatePeriod(ctx, p); err != nil {
		return nil, false, err
	}
	if err := seedDefaults(ctx, s, p.ID, nil); err != nil {
		return nil, false, err
	}

	target, err = findPeriod(ctx, s, ownerID, year, month)
	if err != nil {
		return nil, false, err
	}
	if target == nil {
		return nil, false, fmt.Errorf("period %04d-%02d missing after creation: %w", year, month, core.ErrInconsistent)
	}
	return target, true, nil
}

// seedDefaults creates every default category the period does not have yet.
func seedDefaults(ctx context.Context, s ledger.Store, periodID string, result *RolloverResult) error {
	existing, err := s.ListCategories(ctx, periodID)
	if err != nil {
		return err
	}
	have := make(map[core.CategoryType]bool, len(existing))
	for _, c := range existing {
		have[c.Type] = true
	}
	for _, tmpl := range core.DefaultCategories() {
		if have[tmpl.Type] {
			continue
		}
		c := &core.Category{PeriodID: periodID, Type: tmpl.Type, Name: tmpl.Name, Emoji: tmpl.Emoji, Order: tmpl.Order}
		if err := s.CreateCategory(ctx, c); err != nil {
			return err
		}
		if result != nil {
			result.CategoriesCreated++
		}
	}
	return nil
}

// copyStructure copies categories and non-recurring items from source into target.
func copyStructure(ctx context.Context, s ledger.Store, source, target *core.Period, result *RolloverResult) error {
	if source == nil {
		result.Notice = NoticeNoSource
		return nil
	}
	result.SourceFound = true
	if len(periodItemIDs(source)) == 0 {
		result.Notice = NoticeNoSource
	}

	byType := make(map[core.CategoryType]*core.Category, len(target.Categories))
	for i := range target.Categories {
		byType[target.Categories[i].Type] = &target.Categories[i]
	}

	for _, srcCat := range source.Categories {
		dst, ok := byType[srcCat.Type]
		if !ok {
			dst = &core.Category{
				PeriodID: target.ID,
				Type:     srcCat.Type,
				Name:     srcCat.Name,
				Emoji:    srcCat.Emoji,
				Order:    srcCat.Order,
			}
			if err := s.CreateCategory(ctx, dst); err != nil {
				return err
			}
			byType[dst.Type] = dst
			result.CategoriesCreated++
		}

		for _, srcItem := range srcCat.Items {
			if srcItem.RecurringPaymentID != nil {
				continue
			}
			if hasDuplicate(dst.Items, srcItem) {
				result.ItemsSkipped++
				continue
			}
			it := core.BudgetItem{
				CategoryID: dst.ID,
				Name:       srcItem.Name,
				Planned:    srcItem.Planned,
				Order:      srcItem.Order,
			}
			if err := s.CreateItem(ctx, &it); err != nil {
				return err
			}
			dst.Items = append(dst.Items, it)
			result.ItemsCopied++
		}
	}
	return nil
}

// hasDuplicate matches by case-insensitive name or by a shared recurring link.
func hasDuplicate(items []core.BudgetItem, candidate core.BudgetItem) bool {
	name := strings.TrimSpace(candidate.Name)
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Name), name) {
			return true
		}
		if candidate.RecurringPaymentID != nil && it.RecurringPaymentID != nil &&
			*candidate.RecurringPaymentID == *it.RecurringPaymentID {
			return true
		}
	}
	return false
}

// nextItemOrder places a new item after the highest existing order.
func nextItemOrder(items []core.BudgetItem) int {
	next := 0
	for _, it := range items {
		if it.Order >= next {
			next = it.Order + 1
		}
	}
	return next
}

func projectRecurring(ctx context.Context, s ledger.Store, ownerID, periodID string) (int, error) {
	payments, err := s.ListRecurring(ctx, ownerID, true)
	if err != nil {
		return 0, err
	}
	if len(payments) == 0 {
		return 0, nil
	}

	cats, err := s.ListCategories(ctx, periodID)
	if err != nil {
		return 0, err
	}
	linked := map[string]bool{}
	byType := map[core.CategoryType]*core.Category{}
	for i := range cats {
		byType[cats[i].Type] = &cats[i]
		for _, it := range cats[i].Items {
			if it.RecurringPaymentID != nil {
				linked[*it.RecurringPaymentID] = true
			}
		}
	}

	created := 0
	for _, p := range payments {
		if linked[p.ID] {
			continue
		}
		if p.CategoryType == nil {
			slog.DebugContext(ctx, "Recurring payment has no category type, not projected",
				"recurring_id", p.ID,
				"name", p.Name)
			continue
		}

		cat, ok := byType[*p.CategoryType]
		if !ok {
			slog.DebugContext(ctx, "Period has no category for recurring payment, not projected",
				"recurring_id", p.ID,
				"category_type", p.CategoryType.String())
			continue
		}

		contribution, err := MonthlyContribution(p)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to compute monthly contribution",
				"recurring_id", p.ID,
				"error", err)
			continue
		}
		paymentID := p.ID
		it := core.BudgetItem{
			CategoryID:         cat.ID,
			Name:               p.Name,
			Planned:            core.RoundMoney(contribution),
			Order:              nextItemOrder(cat.Items),
			RecurringPaymentID: &paymentID,
		}
		if err := s.CreateItem(ctx, &it); err != nil {
			return created, err
		}
		cat.Items = append(cat.Items, it)
		linked[p.ID] = true
		created++
	}
	return created, nil
}
