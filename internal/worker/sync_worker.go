package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zerobudget/internal/amqp"
	"zerobudget/internal/core"
	"zerobudget/internal/services"
)

// Syncer runs one transaction sync for an owner.
type Syncer interface {
	Sync(ctx context.Context, ownerID string, req services.SyncRequest) (*services.SyncResult, error)
}

// OwnerLister lists owners with sync-enabled accounts.
type OwnerLister interface {
	ListSyncOwners(ctx context.Context) ([]string, error)
}

// SyncWorker turns queued sync requests and periodic sweeps into sync runs.
type SyncWorker struct {
	syncer Syncer
	owners OwnerLister
}

func NewSyncWorker(syncer Syncer, owners OwnerLister) *SyncWorker {
	return &SyncWorker{
		syncer: syncer,
		owners: owners,
	}
}

// HandleSyncRequest processes a single sync request from AMQP. Requests that
// can never succeed (unknown account, bad window) are logged and acknowledged;
// any other failure is returned so the delivery is retried.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	slog.InfoContext(ctx, "Processing sync request",
		"owner_id", msg.OwnerID,
		"account_id", msg.AccountID,
		"requested_at", msg.RequestedAt)

	req := services.SyncRequest{
		AccountID: msg.AccountID,
		StartDate: msg.StartDate,
		EndDate:   msg.EndDate,
	}

	result, err := w.syncer.Sync(ctx, msg.OwnerID, req)
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrValidation):
		slog.WarnContext(ctx, "Dropping sync request",
			"owner_id", msg.OwnerID,
			"account_id", msg.AccountID,
			"error", err)
		return nil
	case err != nil:
		return fmt.Errorf("sync owner %s: %w", msg.OwnerID, err)
	}

	slog.InfoContext(ctx, "Sync request completed",
		"owner_id", msg.OwnerID,
		"synced", result.Synced,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors))
	return nil
}

// SweepStats summarizes one SyncAllOwners pass.
type SweepStats struct {
	Owners int
	Synced int
	Failed int
}

// SyncAllOwners runs a default-window sync for every owner with a
// sync-enabled account. One owner failing does not stop the others.
func (w *SyncWorker) SyncAllOwners(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	owners, err := w.owners.ListSyncOwners(ctx)
	if err != nil {
		return stats, fmt.Errorf("list sync owners: %w", err)
	}
	if len(owners) == 0 {
		slog.InfoContext(ctx, "No accounts to sync")
		return stats, nil
	}

	for _, owner := range owners {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Owners++

		result, err := w.syncer.Sync(ctx, owner, services.SyncRequest{})
		if err != nil {
			stats.Failed++
			slog.ErrorContext(ctx, "Periodic sync failed", "owner_id", owner, "error", err)
			continue
		}
		stats.Synced += result.Synced
	}

	slog.InfoContext(ctx, "Periodic sync completed",
		"owners", stats.Owners,
		"synced", stats.Synced,
		"failed", stats.Failed)
	return stats, nil
}
