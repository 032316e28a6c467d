package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
)

const periodColumns = `id, owner_id, year, month, buffer`

func scanPeriod(row interface{ Scan(...any) error }) (*core.Period, error) {
	var p core.Period
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Year, &p.Month, &p.Buffer); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPeriod loads a period with its categories and items.
func (r *SQLiteRepository) GetPeriod(ctx context.Context, ownerID string, year, month int) (*core.Period, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM budget_periods WHERE owner_id = ? AND year = ? AND month = ?`,
		ownerID, year, month)
	p, err := scanPeriod(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("period %04d-%02d", year, month))
	}
	return r.withCategories(ctx, p)
}

func (r *SQLiteRepository) GetPeriodByID(ctx context.Context, ownerID, id string) (*core.Period, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM budget_periods WHERE owner_id = ? AND id = ?`,
		ownerID, id)
	p, err := scanPeriod(row)
	if err != nil {
		return nil, notFound(err, "period "+id)
	}
	return r.withCategories(ctx, p)
}

func (r *SQLiteRepository) withCategories(ctx context.Context, p *core.Period) (*core.Period, error) {
	cats, err := r.ListCategories(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Categories = cats
	return p, nil
}

// CreatePeriod inserts the period row only; categories are created separately.
func (r *SQLiteRepository) CreatePeriod(ctx context.Context, p *core.Period) error {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO budget_periods (id, owner_id, year, month, buffer) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Year, p.Month, core.RoundMoney(p.Buffer))
	if err != nil {
		return fmt.Errorf("create period %04d-%02d: %w", p.Year, p.Month, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdatePeriodBuffer(ctx context.Context, ownerID, id string, buffer decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budget_periods SET buffer = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		core.RoundMoney(buffer), nowText(), ownerID, id)
	if err != nil {
		return fmt.Errorf("update period buffer: %w", err)
	}
	return requireAffected(res, "period "+id)
}

func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT owner_id FROM budget_periods
		UNION
		SELECT owner_id FROM recurring_payments
		ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}
