package subscription

import (
	"time"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/types"
)

// Subscription is the raw provider subscription snapshot, keyed by the
// provider's subscription id. Re-applying an identical snapshot is an upsert
// no-op, which is what makes lifecycle events idempotent at the data level.
type Subscription struct {
	ID                 string                   `db:"id" json:"id"` // provider subscription id
	UserID             string                   `db:"user_id" json:"user_id"`
	Status             types.SubscriptionStatus `db:"status" json:"status"`
	ProviderStatus     string                   `db:"provider_status" json:"provider_status"`
	PriceID            string                   `db:"price_id" json:"price_id"`
	CurrentPeriodStart *time.Time               `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `db:"current_period_end" json:"current_period_end,omitempty"`
	CanceledAt         *time.Time               `db:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt          time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time                `db:"updated_at" json:"updated_at"`
}

func (s *Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Validate() error {
	if s.ID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Provider subscription id is the upsert key").
			Mark(ierr.ErrValidation)
	}
	if s.UserID == "" {
		return ierr.NewError("user_id is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
