package storage

import (
	"context"
	"database/sql"
	"fmt"

	"zerobudget/internal/core"
)

const recurringColumns = `id, owner_id, name, amount, frequency, next_due_date, category_type, is_active`

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringPayment, error) {
	var (
		p        core.RecurringPayment
		freq     string
		due      string
		catType  sql.NullString
		isActive int
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Amount, &freq, &due, &catType, &isActive); err != nil {
		return p, err
	}
	p.Frequency = core.Frequency(freq)
	p.IsActive = isActive != 0
	d, err := core.ParseDate(due)
	if err != nil {
		return p, fmt.Errorf("recurring payment %s: %w", p.ID, err)
	}
	p.NextDueDate = d
	if catType.Valid && catType.String != "" {
		ct, err := core.ParseCategoryType(catType.String)
		if err != nil {
			return p, fmt.Errorf("recurring payment %s: %w", p.ID, err)
		}
		p.CategoryType = &ct
	}
	return p, nil
}

func categoryTypeColumn(ct *core.CategoryType) sql.NullString {
	if ct == nil || ct.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ct.String(), Valid: true}
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, ownerID, id string) (*core.RecurringPayment, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_payments WHERE id = ? AND owner_id = ?`, id, ownerID)
	p, err := scanRecurring(row)
	if err != nil {
		return nil, notFound(err, "recurring payment "+id)
	}
	return &p, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context, ownerID string, activeOnly bool) ([]core.RecurringPayment, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_payments WHERE owner_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	rows, err := r.q.QueryContext(ctx, query+` ORDER BY next_due_date, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recurring payments: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringPayment
	for rows.Next() {
		p, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, p *core.RecurringPayment) error {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO recurring_payments (id, owner_id, name, amount, frequency, next_due_date, category_type, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, core.RoundMoney(p.Amount), string(p.Frequency), p.NextDueDate.String(),
		categoryTypeColumn(p.CategoryType), boolInt(p.IsActive))
	if err != nil {
		return fmt.Errorf("create recurring payment %s: %w", p.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, p *core.RecurringPayment) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE recurring_payments
		SET name = ?, amount = ?, frequency = ?, next_due_date = ?, category_type = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		p.Name, core.RoundMoney(p.Amount), string(p.Frequency), p.NextDueDate.String(),
		categoryTypeColumn(p.CategoryType), boolInt(p.IsActive), nowText(), p.ID, p.OwnerID)
	if err != nil {
		return fmt.Errorf("update recurring payment: %w", err)
	}
	return requireAffected(res, "recurring payment "+p.ID)
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM recurring_payments WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete recurring payment: %w", err)
	}
	return requireAffected(res, "recurring payment "+id)
}
