package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/creditrail/creditrail/internal/domain/subscription"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{
		client: client,
		logger: logger,
	}
}

func (r *subscriptionRepository) Upsert(ctx context.Context, s *subscription.Subscription) error {
	if err := s.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	// Replaying an identical snapshot is a no-op change, not a duplicate.
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, status, provider_status, price_id,
			current_period_start, current_period_end, canceled_at,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :status, :provider_status, :price_id,
			:current_period_start, :current_period_end, :canceled_at,
			:created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			provider_status = EXCLUDED.provider_status,
			price_id = EXCLUDED.price_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = EXCLUDED.updated_at`, s)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := r.client.Querier(ctx).GetContext(ctx, &s,
		`SELECT * FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	err := r.client.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT * FROM subscriptions WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}
