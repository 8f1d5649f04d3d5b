package postgres

import (
	"context"

	"github.com/creditrail/creditrail/internal/domain/webhookevent"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
)

type webhookEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewWebhookEventRepository(client postgres.IClient, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{
		client: client,
		logger: logger,
	}
}

func (r *webhookEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.client.Querier(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)`, eventID)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check processed events").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, e *webhookevent.ProcessedEvent) error {
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO processed_webhook_events (id, event_id, event_type, processed_at)
		VALUES (:id, :event_id, :event_type, :processed_at)`, e)
	if err != nil {
		if isUniqueViolation(err) {
			// Two concurrent deliveries of the same event raced; the loser
			// rolls back its whole transaction, including any ledger write.
			return ierr.WithError(err).
				WithHintf("Event %s already marked processed", e.EventID).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to mark event processed").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
