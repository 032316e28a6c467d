package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

// insertBatchSize keeps multi-row inserts well below SQLite's bound-parameter limit.
const insertBatchSize = 400

const transactionColumns = `t.id, t.owner_id, t.budget_item_id, t.account_id, t.date, t.description,
	t.amount, t.type, t.merchant, t.external_id, t.status, t.deleted_at,
	EXISTS (SELECT 1 FROM split_transactions s WHERE s.transaction_id = t.id)`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx                                    core.Transaction
		item, account, merchant, ext, deleted sql.NullString
		date, txType, status                  string
	)
	if err := row.Scan(&tx.ID, &tx.OwnerID, &item, &account, &date, &tx.Description,
		&tx.Amount, &txType, &merchant, &ext, &status, &deleted, &tx.HasSplits); err != nil {
		return tx, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Date = d
	tx.Type = core.TransactionType(txType)
	tx.Status = core.TransactionStatus(status)
	tx.BudgetItemID = stringPtr(item)
	tx.AccountID = stringPtr(account)
	tx.Merchant = stringPtr(merchant)
	tx.ExternalID = stringPtr(ext)
	if tx.DeletedAt, err = timePtr(deleted); err != nil {
		return tx, err
	}
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (*core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.id = ? AND t.owner_id = ?`, id, ownerID)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction "+id)
	}
	return &tx, nil
}

// TransactionsByExternalIDs looks up previously imported rows, soft-deleted ones included.
func (r *SQLiteRepository) TransactionsByExternalIDs(ctx context.Context, ownerID string, externalIDs []string) (map[string]core.Transaction, error) {
	out := make(map[string]core.Transaction, len(externalIDs))
	for start := 0; start < len(externalIDs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(externalIDs))
		chunk := externalIDs[start:end]

		args := append([]any{ownerID}, stringArgs(chunk)...)
		rows, err := r.q.QueryContext(ctx,
			`SELECT `+transactionColumns+` FROM transactions t
			WHERE t.owner_id = ? AND t.external_id IN (`+placeholders(len(chunk))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("lookup transactions by external id: %w", err)
		}
		txs, err := collectTransactions(rows)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			if tx.ExternalID != nil {
				out[*tx.ExternalID] = tx
			}
		}
	}
	return out, nil
}

// InsertTransactions writes rows with one multi-row INSERT per batch.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	for start := 0; start < len(txs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(txs))
		batch := txs[start:end]

		var (
			sb   strings.Builder
			args []any
		)
		sb.WriteString(`INSERT INTO transactions (id, owner_id, budget_item_id, account_id, date, description,
			amount, type, merchant, external_id, status, deleted_at) VALUES `)
		for i := range batch {
			tx := &batch[i]
			if tx.ID == "" {
				tx.ID = newID()
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(" + placeholders(12) + ")")
			args = append(args, tx.ID, tx.OwnerID, nullString(tx.BudgetItemID), nullString(tx.AccountID),
				tx.Date.String(), tx.Description, core.RoundMoney(tx.Amount), string(tx.Type), nullString(tx.Merchant),
				nullString(tx.ExternalID), string(tx.Status), nullTime(tx.DeletedAt))
		}
		if _, err := r.q.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert %d transactions: %w", len(batch), err)
		}
	}
	return nil
}

func (r *SQLiteRepository) UpdateSyncedTransaction(ctx context.Context, id string, upd ledger.TransactionUpdate) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, amount = ?, description = ?, merchant = COALESCE(?, merchant), updated_at = ?
		WHERE id = ?`,
		string(upd.Status), core.RoundMoney(upd.Amount), upd.Description, nullString(upd.Merchant), nowText(), id)
	if err != nil {
		return fmt.Errorf("update synced transaction: %w", err)
	}
	return requireAffected(res, "transaction "+id)
}

func (r *SQLiteRepository) AssignTransaction(ctx context.Context, id string, itemID *string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET budget_item_id = ?, updated_at = ? WHERE id = ?`,
		nullString(itemID), nowText(), id)
	if err != nil {
		return fmt.Errorf("assign transaction: %w", err)
	}
	return requireAffected(res, "transaction "+id)
}

// SetTransactionDeleted soft-deletes (at != nil) or restores (at == nil) a transaction.
func (r *SQLiteRepository) SetTransactionDeleted(ctx context.Context, id string, at *time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		nullTime(at), nowText(), id)
	if err != nil {
		return fmt.Errorf("set transaction deleted: %w", err)
	}
	return requireAffected(res, "transaction "+id)
}

func (r *SQLiteRepository) ReplaceSplits(ctx context.Context, transactionID string, splits []core.Split) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM split_transactions WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("clear splits: %w", err)
	}
	for i := range splits {
		s := &splits[i]
		if s.ID == "" {
			s.ID = newID()
		}
		s.TransactionID = transactionID
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO split_transactions (id, transaction_id, budget_item_id, amount, description)
			VALUES (?, ?, ?, ?, ?)`,
			s.ID, transactionID, s.BudgetItemID, core.RoundMoney(s.Amount), s.Description); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}
	return nil
}

func scanSplits(rows *sql.Rows) ([]core.Split, error) {
	defer rows.Close()
	var out []core.Split
	for rows.Next() {
		var s core.Split
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.BudgetItemID, &s.Amount, &s.Description); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListSplits(ctx context.Context, transactionID string) ([]core.Split, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, transaction_id, budget_item_id, amount, description
		FROM split_transactions WHERE transaction_id = ? ORDER BY created_at, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	return scanSplits(rows)
}

func (r *SQLiteRepository) ItemActivity(ctx context.Context, itemIDs []string) ([]core.Transaction, []core.Split, error) {
	if len(itemIDs) == 0 {
		return nil, nil, nil
	}
	args := stringArgs(itemIDs)

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions t
		WHERE t.deleted_at IS NULL AND t.budget_item_id IN (`+placeholders(len(itemIDs))+`)
		ORDER BY t.date, t.id`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list item transactions: %w", err)
	}
	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, nil, err
	}

	splitRows, err := r.q.QueryContext(ctx, `
		SELECT s.id, s.transaction_id, s.budget_item_id, s.amount, s.description
		FROM split_transactions s JOIN transactions t ON t.id = s.transaction_id
		WHERE t.deleted_at IS NULL AND s.budget_item_id IN (`+placeholders(len(itemIDs))+`)
		ORDER BY s.id`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list item splits: %w", err)
	}
	splits, err := scanSplits(splitRows)
	if err != nil {
		return nil, nil, err
	}
	return txs, splits, nil
}

func (r *SQLiteRepository) ListUncategorized(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions t
		WHERE t.owner_id = ? AND t.deleted_at IS NULL AND t.budget_item_id IS NULL
		  AND NOT EXISTS (SELECT 1 FROM split_transactions s WHERE s.transaction_id = t.id)
		ORDER BY t.date DESC, t.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list uncategorized transactions: %w", err)
	}
	return collectTransactions(rows)
}

// MerchantHistory counts categorized, non-deleted transactions per (merchant, item name).
func (r *SQLiteRepository) MerchantHistory(ctx context.Context, ownerID string, merchants []string) ([]ledger.MerchantHistory, error) {
	if len(merchants) == 0 {
		return nil, nil
	}
	args := append([]any{ownerID}, stringArgs(merchants)...)
	rows, err := r.q.QueryContext(ctx, `
		SELECT t.merchant, i.name, COUNT(*), MAX(t.date)
		FROM transactions t JOIN budget_items i ON i.id = t.budget_item_id
		WHERE t.owner_id = ? AND t.deleted_at IS NULL
		  AND t.merchant IN (`+placeholders(len(merchants))+`)
		GROUP BY t.merchant, i.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("merchant history: %w", err)
	}
	defer rows.Close()

	var out []ledger.MerchantHistory
	for rows.Next() {
		var (
			h    ledger.MerchantHistory
			last string
		)
		if err := rows.Scan(&h.Merchant, &h.ItemName, &h.Count, &last); err != nil {
			return nil, fmt.Errorf("scan merchant history: %w", err)
		}
		if h.LastDate, err = core.ParseDate(last); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
