package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zerobudget/internal/core"
)

// SyncRequestMessage asks the sync worker to import bank transactions for one owner.
type SyncRequestMessage struct {
	OwnerID     string     `json:"ownerId"`
	AccountID   string     `json:"accountId,omitempty"`
	StartDate   *core.Date `json:"startDate,omitempty"`
	EndDate     *core.Date `json:"endDate,omitempty"`
	RequestedAt time.Time  `json:"requestedAt"`
}

// NewSyncRequestMessage stamps a request with the current time.
func NewSyncRequestMessage(ownerID, accountID string, start, end *core.Date) *SyncRequestMessage {
	return &SyncRequestMessage{
		OwnerID:     ownerID,
		AccountID:   accountID,
		StartDate:   start,
		EndDate:     end,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON decodes and validates a sync request.
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.OwnerID) == "" {
		return nil, fmt.Errorf("sync request without owner")
	}
	return &msg, nil
}

// EventMessage wraps a ledger event for fan-out to interested consumers.
type EventMessage struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEventMessage marshals payload into an event envelope.
func NewEventMessage(eventType string, payload any) (*EventMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &EventMessage{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// EventRoutingKey is the routing key events of eventType are published with.
func EventRoutingKey(eventType string) string {
	return "event." + eventType
}
