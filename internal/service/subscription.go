package service

import (
	"context"
	"time"

	"github.com/creditrail/creditrail/internal/domain/account"
	"github.com/creditrail/creditrail/internal/domain/subscription"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
)

// SubscriptionService keeps the raw subscription record and the account's
// status/tier projection in sync with provider lifecycle events. Lifecycle
// events never touch the credit ledger; credits move only on invoice payment.
type SubscriptionService interface {
	HandleSubscriptionChange(ctx context.Context, snap *stripe.SubscriptionSnapshot) error
	HandleSubscriptionDeleted(ctx context.Context, snap *stripe.SubscriptionSnapshot) error
	// Bootstrap pulls the current subscription state from the provider and
	// applies it, used when a checkout session completes before the lifecycle
	// webhook arrives.
	Bootstrap(ctx context.Context, subscriptionID string) error
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) HandleSubscriptionChange(ctx context.Context, snap *stripe.SubscriptionSnapshot) error {
	acct, err := s.accountForCustomer(ctx, snap.CustomerID, snap.ID)
	if err != nil {
		return err
	}

	status := types.SubscriptionStatusFromProvider(snap.Status)
	record := recordFromSnapshot(snap, acct.ID, status)

	plan, err := s.Catalog.ResolvePlan(ctx, snap.PriceID)
	if err != nil {
		// The price is not in the catalog (new plan not yet configured, or a
		// foreign product sharing the account). Record the raw state and the
		// status so dunning still works, but leave the tier untouched.
		s.Logger.Warnw("subscription price not in catalog, updating status only",
			"subscription_id", snap.ID,
			"user_id", acct.ID,
			"price_id", snap.PriceID,
			"error", err,
		)
		return s.DB.WithTx(ctx, func(ctx context.Context) error {
			if err := s.SubscriptionRepo.Upsert(ctx, record); err != nil {
				return err
			}
			return s.AccountRepo.UpdateSubscriptionStatus(ctx, acct.ID, status)
		})
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.SubscriptionRepo.Upsert(ctx, record); err != nil {
			return err
		}
		return s.AccountRepo.UpdateSubscriptionState(ctx, acct.ID, status, lo.ToPtr(plan.Key))
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("applied subscription change",
		"subscription_id", snap.ID,
		"user_id", acct.ID,
		"status", status,
		"tier", plan.Key,
	)
	return nil
}

func (s *subscriptionService) HandleSubscriptionDeleted(ctx context.Context, snap *stripe.SubscriptionSnapshot) error {
	acct, err := s.accountForCustomer(ctx, snap.CustomerID, snap.ID)
	if err != nil {
		return err
	}

	record := recordFromSnapshot(snap, acct.ID, types.SubscriptionStatusCanceled)
	if record.CanceledAt == nil {
		record.CanceledAt = lo.ToPtr(time.Now().UTC())
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.SubscriptionRepo.Upsert(ctx, record); err != nil {
			return err
		}
		return s.AccountRepo.UpdateSubscriptionState(ctx, acct.ID, types.SubscriptionStatusCanceled, nil)
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("applied subscription deletion",
		"subscription_id", snap.ID,
		"user_id", acct.ID,
	)
	return nil
}

func (s *subscriptionService) Bootstrap(ctx context.Context, subscriptionID string) error {
	snap, err := s.Gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	return s.HandleSubscriptionChange(ctx, snap)
}

func (s *subscriptionService) accountForCustomer(ctx context.Context, customerID, subscriptionID string) (*account.Account, error) {
	acct, err := s.AccountRepo.GetByProviderCustomerID(ctx, customerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("No account exists for provider customer %s", customerID).
				WithReportableDetails(map[string]any{
					"subscription_id": subscriptionID,
					"customer_id":     customerID,
				}).
				Mark(ierr.ErrProfileNotFound)
		}
		return nil, err
	}
	return acct, nil
}

func recordFromSnapshot(snap *stripe.SubscriptionSnapshot, userID string, status types.SubscriptionStatus) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                 snap.ID,
		UserID:             userID,
		Status:             status,
		ProviderStatus:     snap.Status,
		PriceID:            snap.PriceID,
		CurrentPeriodStart: snap.CurrentPeriodStart,
		CurrentPeriodEnd:   snap.CurrentPeriodEnd,
		CanceledAt:         snap.CanceledAt,
	}
}
