package services

import (
	"context"
	"log/slog"
)

const (
	EventPeriodRolled       = "period.rolled"
	EventTransactionsSynced = "transactions.synced"
)

// EventPublisher broadcasts ledger events. Delivery is best effort.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, payload any) error
}

// PeriodRolledEvent is published after a copy or reset.
type PeriodRolledEvent struct {
	OwnerID string          `json:"ownerId"`
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Result  *RolloverResult `json:"result"`
}

// TransactionsSyncedEvent is published after a sync run.
type TransactionsSyncedEvent struct {
	OwnerID string      `json:"ownerId"`
	Result  *SyncResult `json:"result"`
}

func publish(ctx context.Context, p EventPublisher, eventType string, payload any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, eventType, payload); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"event", eventType,
			"error", err)
	}
}
