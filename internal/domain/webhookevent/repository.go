package webhookevent

import "context"

// Repository is the idempotency store for webhook deliveries. MarkProcessed
// must run inside the same transaction as the ledger write it guards, so
// there is no window between the check and the write.
type Repository interface {
	// IsProcessed reports whether the provider event id has been fully applied.
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed records the event id; duplicates return ErrAlreadyExists.
	MarkProcessed(ctx context.Context, e *ProcessedEvent) error
}
