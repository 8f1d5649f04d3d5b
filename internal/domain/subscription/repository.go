package subscription

import "context"

// Repository defines the interface for subscription persistence operations
type Repository interface {
	// Upsert inserts or replaces the snapshot by provider subscription id.
	Upsert(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByUserID(ctx context.Context, userID string) ([]*Subscription, error)
}
