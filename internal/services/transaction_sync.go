package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zerobudget/internal/bank"
	"zerobudget/internal/core"
	"zerobudget/internal/ledger"
)

// TransactionSyncConfig holds configuration for the sync engine
type TransactionSyncConfig struct {
	// TransactionCount is the page size requested from the provider (default: 250)
	TransactionCount int

	// Lookback is how far before the last sync (or now) a window starts when
	// the caller gives no start date (default: 30 days)
	Lookback time.Duration
}

// DefaultTransactionSyncConfig returns sensible defaults
func DefaultTransactionSyncConfig() TransactionSyncConfig {
	return TransactionSyncConfig{
		TransactionCount: 250,
		Lookback:         30 * 24 * time.Hour,
	}
}

// SyncRequest selects what to sync. Empty AccountID means every sync-enabled account.
type SyncRequest struct {
	AccountID string     `json:"accountId,omitempty"`
	StartDate *core.Date `json:"startDate,omitempty"`
	EndDate   *core.Date `json:"endDate,omitempty"`
}

// SyncResult summarizes a sync run across accounts.
type SyncResult struct {
	Synced  int      `json:"synced"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// TransactionSync imports provider transactions into the ledger.
type TransactionSync struct {
	store    ledger.Store
	provider bank.Provider
	events   EventPublisher
	clock    Clock
	config   TransactionSyncConfig
}

// NewTransactionSync creates a sync engine. events may be nil.
func NewTransactionSync(store ledger.Store, provider bank.Provider, events EventPublisher, clock Clock, config TransactionSyncConfig) *TransactionSync {
	defaults := DefaultTransactionSyncConfig()
	if config.TransactionCount <= 0 {
		config.TransactionCount = defaults.TransactionCount
	}
	if config.Lookback <= 0 {
		config.Lookback = defaults.Lookback
	}
	return &TransactionSync{store: store, provider: provider, events: events, clock: clock, config: config}
}

// Sync pulls transactions for the requested accounts. A failing account is
// reported in Errors and does not stop the others. Only a bad request or an
// unknown account returns an error.
func (e *TransactionSync) Sync(ctx context.Context, ownerID string, req SyncRequest) (*SyncResult, error) {
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(req.StartDate.Time) {
		return nil, core.NewValidationError("endDate", "must not be before startDate")
	}

	accounts, err := e.accountsFor(ctx, ownerID, req.AccountID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Errors: []string{}}
	for _, acct := range accounts {
		if err := e.syncAccount(ctx, acct, req, result); err != nil {
			slog.ErrorContext(ctx, "Account sync failed",
				"owner_id", ownerID,
				"account_id", acct.ID,
				"error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", acct.Name, err))
		}
	}

	slog.InfoContext(ctx, "Transaction sync complete",
		"owner_id", ownerID,
		"accounts", len(accounts),
		"synced", result.Synced,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors))

	publish(ctx, e.events, EventTransactionsSynced, TransactionsSyncedEvent{OwnerID: ownerID, Result: result})
	return result, nil
}

func (e *TransactionSync) accountsFor(ctx context.Context, ownerID, accountID string) ([]core.LinkedAccount, error) {
	if accountID != "" {
		acct, err := e.store.GetAccount(ctx, ownerID, accountID)
		if err != nil {
			return nil, err
		}
		return []core.LinkedAccount{*acct}, nil
	}

	all, err := e.store.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, a := range all {
		if a.SyncEnabled {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

// window resolves the date range for an account.
func (e *TransactionSync) window(acct core.LinkedAccount, req SyncRequest) (core.Date, core.Date) {
	end := e.clock.Today()
	if req.EndDate != nil {
		end = *req.EndDate
	}

	var start core.Date
	switch {
	case req.StartDate != nil:
		start = *req.StartDate
	case acct.LastSyncedAt != nil:
		start = core.DateOf(acct.LastSyncedAt.In(e.clock.location()).Add(-e.config.Lookback))
	default:
		start = core.DateOf(e.clock.now().Add(-e.config.Lookback))
	}

	if acct.SyncStartDate != nil && start.Before(acct.SyncStartDate.Time) {
		start = *acct.SyncStartDate
	}
	return start, end
}

type syncCounts struct {
	synced, updated, skipped int
}

func (e *TransactionSync) syncAccount(ctx context.Context, acct core.LinkedAccount, req SyncRequest, result *SyncResult) error {
	start, end := e.window(acct, req)
	records, err := e.provider.ListTransactions(ctx, acct.AccessToken, acct.ProviderAccountID, bank.ListOptions{
		Count:     e.config.TransactionCount,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return &core.ProviderError{AccountID: acct.ID, Err: err}
	}

	incoming, recordErrs := normalizeRecords(acct, records)
	for _, rerr := range recordErrs {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", acct.Name, rerr))
	}

	var counts syncCounts
	err = e.store.WithTx(ctx, func(s ledger.Store) error {
		counts = syncCounts{}
		ids := make([]string, 0, len(incoming))
		for _, tx := range incoming {
			ids = append(ids, *tx.ExternalID)
		}
		existing, err := s.TransactionsByExternalIDs(ctx, acct.OwnerID, ids)
		if err != nil {
			return err
		}

		var inserts []core.Transaction
		for _, tx := range incoming {
			prev, ok := existing[*tx.ExternalID]
			if !ok {
				inserts = append(inserts, tx)
				continue
			}
			// Stored amounts are rounded to cents.
			if prev.Status == tx.Status && !core.AmountsDiffer(prev.Amount, core.RoundMoney(tx.Amount), core.SyncTolerance) {
				counts.skipped++
				continue
			}
			if err := s.UpdateSyncedTransaction(ctx, prev.ID, ledger.TransactionUpdate{
				Status:      tx.Status,
				Amount:      tx.Amount,
				Description: tx.Description,
				Merchant:    tx.Merchant,
			}); err != nil {
				return err
			}
			counts.updated++
		}

		if len(inserts) > 0 {
			if err := s.InsertTransactions(ctx, inserts); err != nil {
				return err
			}
		}
		counts.synced = len(inserts)

		return s.TouchAccountSynced(ctx, acct.ID, e.clock.now())
	})
	if err != nil {
		return fmt.Errorf("store transactions: %w", err)
	}

	result.Synced += counts.synced
	result.Updated += counts.updated
	result.Skipped += counts.skipped

	slog.InfoContext(ctx, "Account synced",
		"account_id", acct.ID,
		"window_start", start.String(),
		"window_end", end.String(),
		"fetched", len(records),
		"synced", counts.synced,
		"updated", counts.updated,
		"skipped", counts.skipped)
	return nil
}

var errMissingID = errors.New("record without id")

// normalizeRecords converts provider records into ledger rows, dropping repeats
// of the same provider id and collecting per-record parse errors.
func normalizeRecords(acct core.LinkedAccount, records []bank.Transaction) ([]core.Transaction, []error) {
	var (
		out  []core.Transaction
		errs []error
		seen = make(map[string]bool, len(records))
	)
	accountID := acct.ID
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			errs = append(errs, errMissingID)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		amount, err := core.ParseAmount(rec.Amount)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", id, err))
			continue
		}
		date, err := core.ParseDate(rec.Date)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", id, err))
			continue
		}

		status := core.StatusPosted
		if strings.EqualFold(rec.Status, string(core.StatusPending)) {
			status = core.StatusPending
		}

		externalID := id
		out = append(out, core.Transaction{
			OwnerID:     acct.OwnerID,
			AccountID:   &accountID,
			Date:        date,
			Description: rec.Description,
			Amount:      amount.Abs(),
			Type:        core.TypeForAmount(amount),
			Merchant:    rec.Counterparty,
			ExternalID:  &externalID,
			Status:      status,
		})
	}
	return out, errs
}
