package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zerobudget/internal/core"
)

const accountColumns = `id, owner_id, name, institution, provider_account_id, access_token,
	sync_enabled, last_synced_at, sync_start_date`

func scanAccount(row interface{ Scan(...any) error }) (core.LinkedAccount, error) {
	var (
		a                 core.LinkedAccount
		enabled           int
		lastSynced, start sql.NullString
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Institution, &a.ProviderAccountID,
		&a.AccessToken, &enabled, &lastSynced, &start); err != nil {
		return a, err
	}
	a.SyncEnabled = enabled != 0
	var err error
	if a.LastSyncedAt, err = timePtr(lastSynced); err != nil {
		return a, err
	}
	if a.SyncStartDate, err = datePtr(start); err != nil {
		return a, err
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, ownerID, id string) (*core.LinkedAccount, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM linked_accounts WHERE id = ? AND owner_id = ?`, id, ownerID)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "linked account "+id)
	}
	return &a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.LinkedAccount, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM linked_accounts WHERE owner_id = ? ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	defer rows.Close()

	var out []core.LinkedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.LinkedAccount) error {
	if a.ID == "" {
		a.ID = newID()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO linked_accounts (id, owner_id, name, institution, provider_account_id, access_token,
			sync_enabled, last_synced_at, sync_start_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Institution, a.ProviderAccountID, a.AccessToken,
		boolInt(a.SyncEnabled), nullTime(a.LastSyncedAt), nullDate(a.SyncStartDate))
	if err != nil {
		return fmt.Errorf("create linked account %s: %w", a.Name, err)
	}
	return nil
}

// UpdateAccountSettings writes the user editable fields of an account.
func (r *SQLiteRepository) UpdateAccountSettings(ctx context.Context, a *core.LinkedAccount) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE linked_accounts SET name = ?, sync_enabled = ?, sync_start_date = ?
		WHERE id = ? AND owner_id = ?`,
		a.Name, boolInt(a.SyncEnabled), nullDate(a.SyncStartDate), a.ID, a.OwnerID)
	if err != nil {
		return fmt.Errorf("update linked account: %w", err)
	}
	return requireAffected(res, "linked account "+a.ID)
}

func (r *SQLiteRepository) TouchAccountSynced(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE linked_accounts SET last_synced_at = ? WHERE id = ?`, at.UTC().Format(timestampLayout), id)
	if err != nil {
		return fmt.Errorf("update last synced: %w", err)
	}
	return requireAffected(res, "linked account "+id)
}

func (r *SQLiteRepository) ListSyncOwners(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM linked_accounts WHERE sync_enabled = 1 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list sync owners: %w", err)
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
