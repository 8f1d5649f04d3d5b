package service

import (
	"context"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/types"
)

// PurchaseService turns completed checkout sessions into credit pack grants.
// Subscription-mode sessions carry no credits themselves; those trigger a
// best-effort subscription bootstrap and the credits follow with the invoice.
type PurchaseService interface {
	HandleCheckoutSessionCompleted(ctx context.Context, env *stripe.CheckoutSessionEnvelope) error
}

// MetadataKeyPriceID is the checkout session metadata key the storefront sets
// to the purchased pack's price id.
const MetadataKeyPriceID = "price_id"

type purchaseService struct {
	ServiceParams
	ledger        LedgerService
	subscriptions SubscriptionService
}

func NewPurchaseService(params ServiceParams, ledger LedgerService, subscriptions SubscriptionService) PurchaseService {
	return &purchaseService{
		ServiceParams: params,
		ledger:        ledger,
		subscriptions: subscriptions,
	}
}

func (s *purchaseService) HandleCheckoutSessionCompleted(ctx context.Context, env *stripe.CheckoutSessionEnvelope) error {
	switch env.Mode {
	case "subscription":
		// The lifecycle webhook usually lands first; if it hasn't, pull the
		// state now. Failures are non-fatal since the lifecycle event will
		// arrive on its own.
		if env.SubscriptionID == "" {
			return nil
		}
		if err := s.subscriptions.Bootstrap(ctx, env.SubscriptionID); err != nil {
			s.Logger.Warnw("subscription bootstrap from checkout session failed",
				"session_id", env.ID,
				"subscription_id", env.SubscriptionID,
				"error", err,
			)
		}
		return nil
	case "payment":
		return s.handlePackPurchase(ctx, env)
	default:
		s.Logger.Debugw("ignoring checkout session mode", "session_id", env.ID, "mode", env.Mode)
		return nil
	}
}

func (s *purchaseService) handlePackPurchase(ctx context.Context, env *stripe.CheckoutSessionEnvelope) error {
	priceID := env.Metadata[MetadataKeyPriceID]
	if priceID == "" {
		// Without the metadata there is nothing to map the payment to, and a
		// redelivery carries the same payload. Flag it and acknowledge.
		s.Logger.Errorw("checkout session missing price_id metadata, cannot grant pack",
			"session_id", env.ID,
			"customer_id", env.CustomerID,
		)
		return nil
	}

	pack, err := s.Catalog.ResolvePack(ctx, priceID)
	if err != nil {
		return err
	}

	acct, err := s.AccountRepo.GetByProviderCustomerID(ctx, env.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHintf("No account exists for provider customer %s", env.CustomerID).
				WithReportableDetails(map[string]any{
					"session_id":  env.ID,
					"customer_id": env.CustomerID,
				}).
				Mark(ierr.ErrProfileNotFound)
		}
		return err
	}

	// Keyed by payment intent so the later charge.refunded event can trace
	// the grant; the session id is the fallback key.
	ref := types.SessionReference(env.ID)
	if env.PaymentIntentID != "" {
		ref = types.IntentReference(env.PaymentIntentID)
	}

	result, err := s.ledger.ApplyPackGrant(ctx, acct.ID, pack, ref)
	if err != nil {
		return err
	}

	s.Logger.Infow("processed credit pack purchase",
		"session_id", env.ID,
		"user_id", acct.ID,
		"pack", pack.Key,
		"credits", result.Credits.String(),
		"already_applied", result.AlreadyApplied,
	)
	return nil
}
