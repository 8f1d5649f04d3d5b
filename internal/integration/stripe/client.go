package stripe

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/creditrail/creditrail/internal/config"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

// Gateway is the read-only view of the payment provider used for
// opportunistic consistency checks. Lookups are bounded and best-effort:
// callers must tolerate failure without blocking crediting.
type Gateway interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
}

// Client wraps the Stripe SDK client
type Client struct {
	api     *stripe.Client
	timeout time.Duration
	logger  *logger.Logger
}

// NewClient creates a new Stripe gateway client
func NewClient(cfg *config.Configuration, logger *logger.Logger) Gateway {
	timeout := time.Duration(cfg.Stripe.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		api:     stripe.NewClient(cfg.Stripe.SecretKey, nil),
		timeout: timeout,
		logger:  logger,
	}
}

// GetSubscription fetches the authoritative subscription state from Stripe.
// Retries transient failures with exponential backoff; the whole call is
// bounded by the configured request timeout.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var sub *stripe.Subscription
	operation := func() error {
		var err error
		sub, err = c.api.V1Subscriptions.Retrieve(ctx, subscriptionID, nil)
		if err != nil {
			if stripeErr, ok := err.(*stripe.Error); ok {
				switch stripeErr.Type {
				case stripe.ErrorTypeInvalidRequest:
					// Not retryable: the subscription does not exist.
					return backoff.Permanent(err)
				}
			}
			return err
		}
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to fetch subscription %s from Stripe", subscriptionID).
			Mark(ierr.ErrHTTPClient)
	}

	return snapshotFromSubscription(sub), nil
}

// snapshotFromSubscription converts the SDK subscription to the closed
// snapshot shape the rest of the system consumes.
func snapshotFromSubscription(sub *stripe.Subscription) *SubscriptionSnapshot {
	snap := &SubscriptionSnapshot{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0).UTC()
		snap.CanceledAt = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			snap.PriceID = item.Price.ID
		}
		if item.CurrentPeriodStart > 0 {
			t := time.Unix(item.CurrentPeriodStart, 0).UTC()
			snap.CurrentPeriodStart = &t
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			snap.CurrentPeriodEnd = &t
		}
	}
	return snap
}
