package webhookevent

import (
	"time"

	"github.com/creditrail/creditrail/internal/types"
)

// ProcessedEvent records a webhook delivery that has been fully applied.
// The provider event id is the delivery-level idempotency boundary, distinct
// from the ledger's business-level reference ids: a manual replay can carry a
// new event id but still re-derive the same reference id, which the ledger's
// own uniqueness check absorbs.
type ProcessedEvent struct {
	ID          string    `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"event_id"` // provider event id
	EventType   string    `db:"event_type" json:"event_type"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}

func (e *ProcessedEvent) TableName() string {
	return "processed_webhook_events"
}

// New returns a processed-event record for the given delivery.
func New(eventID, eventType string) *ProcessedEvent {
	return &ProcessedEvent{
		ID:          types.GenerateUUIDWithPrefix(types.UUIDPrefixProcessedEvent),
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	}
}
