package storage

import (
	"context"
	"database/sql"
	"fmt"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

const itemColumns = `i.id, i.category_id, i.name, i.planned, i.sort_order, i.recurring_payment_id`

func scanItem(row interface{ Scan(...any) error }) (core.BudgetItem, error) {
	var (
		it  core.BudgetItem
		rec sql.NullString
	)
	if err := row.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Planned, &it.Order, &rec); err != nil {
		return it, err
	}
	it.RecurringPaymentID = stringPtr(rec)
	return it, nil
}

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c       core.Category
		rawType string
	)
	if err := row.Scan(&c.ID, &c.PeriodID, &rawType, &c.Name, &c.Emoji, &c.Order); err != nil {
		return c, err
	}
	t, err := core.ParseCategoryType(rawType)
	if err != nil {
		return c, fmt.Errorf("category %s: %w", c.ID, err)
	}
	c.Type = t
	return c, nil
}

// ListCategories returns the period's categories in display order, each with its items.
func (r *SQLiteRepository) ListCategories(ctx context.Context, periodID string) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, period_id, category_type, name, emoji, sort_order
		FROM categories WHERE period_id = ?
		ORDER BY sort_order, name`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var cats []core.Category
	index := map[string]int{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category: %w", err)
		}
		index[c.ID] = len(cats)
		cats = append(cats, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.q.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM budget_items i JOIN categories c ON c.id = i.category_id
		WHERE c.period_id = ?
		ORDER BY i.sort_order, i.name`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		it, err := scanItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if i, ok := index[it.CategoryID]; ok {
			cats[i].Items = append(cats[i].Items, it)
		}
	}
	return cats, itemRows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id string) (*core.Category, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT c.id, c.period_id, c.category_type, c.name, c.emoji, c.sort_order
		FROM categories c JOIN budget_periods p ON p.id = c.period_id
		WHERE c.id = ? AND p.owner_id = ?`, id, ownerID)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category "+id)
	}
	return &c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.ID == "" {
		c.ID = newID()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (id, period_id, category_type, name, emoji, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.PeriodID, c.Type.String(), c.Name, c.Emoji, c.Order)
	if err != nil {
		return fmt.Errorf("create category %s: %w", c.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, emoji = ?, sort_order = ? WHERE id = ?`,
		c.Name, c.Emoji, c.Order, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, "category "+c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "category "+id)
}

// DeleteCustomCategories removes every non-default category of a period.
func (r *SQLiteRepository) DeleteCustomCategories(ctx context.Context, periodID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM categories WHERE period_id = ? AND category_type LIKE 'custom:%'`, periodID)
	if err != nil {
		return 0, fmt.Errorf("delete custom categories: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) GetItem(ctx context.Context, ownerID, id string) (*core.BudgetItem, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM budget_items i
		JOIN categories c ON c.id = i.category_id
		JOIN budget_periods p ON p.id = c.period_id
		WHERE i.id = ? AND p.owner_id = ?`, id, ownerID)
	it, err := scanItem(row)
	if err != nil {
		return nil, notFound(err, "budget item "+id)
	}
	return &it, nil
}

func (r *SQLiteRepository) CreateItem(ctx context.Context, it *core.BudgetItem) error {
	if it.ID == "" {
		it.ID = newID()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO budget_items (id, category_id, name, planned, sort_order, recurring_payment_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.CategoryID, it.Name, core.RoundMoney(it.Planned), it.Order, nullString(it.RecurringPaymentID))
	if err != nil {
		return fmt.Errorf("create budget item %s: %w", it.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateItem(ctx context.Context, it *core.BudgetItem) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE budget_items SET name = ?, planned = ?, recurring_payment_id = ?, updated_at = ?
		WHERE id = ?`,
		it.Name, core.RoundMoney(it.Planned), nullString(it.RecurringPaymentID), nowText(), it.ID)
	if err != nil {
		return fmt.Errorf("update budget item: %w", err)
	}
	return requireAffected(res, "budget item "+it.ID)
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM budget_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget item: %w", err)
	}
	return requireAffected(res, "budget item "+id)
}

func (r *SQLiteRepository) SetItemOrder(ctx context.Context, id string, order int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budget_items SET sort_order = ?, updated_at = ? WHERE id = ?`, order, nowText(), id)
	if err != nil {
		return fmt.Errorf("reorder budget item: %w", err)
	}
	return requireAffected(res, "budget item "+id)
}

func (r *SQLiteRepository) DeleteItemsInPeriod(ctx context.Context, periodID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM budget_items WHERE category_id IN (SELECT id FROM categories WHERE period_id = ?)`, periodID)
	if err != nil {
		return 0, fmt.Errorf("delete period items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ZeroPlannedInPeriod(ctx context.Context, periodID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE budget_items SET planned = '0', updated_at = ?
		WHERE category_id IN (SELECT id FROM categories WHERE period_id = ?)`, nowText(), periodID)
	if err != nil {
		return 0, fmt.Errorf("zero planned amounts: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ItemsForRecurring(ctx context.Context, ownerID, paymentID string) ([]ledger.LinkedItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+itemColumns+`, p.year, p.month
		FROM budget_items i
		JOIN categories c ON c.id = i.category_id
		JOIN budget_periods p ON p.id = c.period_id
		WHERE i.recurring_payment_id = ? AND p.owner_id = ?
		ORDER BY p.year, p.month`, paymentID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list items for recurring payment: %w", err)
	}
	defer rows.Close()

	var out []ledger.LinkedItem
	for rows.Next() {
		var (
			li  ledger.LinkedItem
			rec sql.NullString
		)
		if err := rows.Scan(&li.Item.ID, &li.Item.CategoryID, &li.Item.Name, &li.Item.Planned,
			&li.Item.Order, &rec, &li.Year, &li.Month); err != nil {
			return nil, fmt.Errorf("scan linked item: %w", err)
		}
		li.Item.RecurringPaymentID = stringPtr(rec)
		out = append(out, li)
	}
	return out, rows.Err()
}
