package service

import (
	"context"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/types"
)

// InvoiceService reconciles invoice payment events into cycle grants and
// dunning state.
type InvoiceService interface {
	// HandlePaymentSucceeded credits the user for a paid subscription invoice.
	HandlePaymentSucceeded(ctx context.Context, env *stripe.InvoiceEnvelope) error
	// HandlePaymentFailed moves the user into past_due without touching the
	// ledger.
	HandlePaymentFailed(ctx context.Context, env *stripe.InvoiceEnvelope) error
}

type invoiceService struct {
	ServiceParams
	plans  PlanService
	ledger LedgerService
}

func NewInvoiceService(params ServiceParams, plans PlanService, ledger LedgerService) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		plans:         plans,
		ledger:        ledger,
	}
}

func (s *invoiceService) HandlePaymentSucceeded(ctx context.Context, env *stripe.InvoiceEnvelope) error {
	if env.SubscriptionID == "" {
		// One-off invoices (credit packs go through checkout sessions) carry
		// no subscription and grant nothing here.
		s.Logger.Debugw("ignoring non-subscription invoice", "invoice_id", env.ID)
		return nil
	}

	acct, err := s.AccountRepo.GetByProviderCustomerID(ctx, env.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHintf("No account exists for provider customer %s", env.CustomerID).
				WithReportableDetails(map[string]any{
					"invoice_id":  env.ID,
					"customer_id": env.CustomerID,
				}).
				Mark(ierr.ErrProfileNotFound)
		}
		return err
	}

	priceID, err := s.plans.SelectInvoiceLine(ctx, env.Lines)
	if err != nil {
		return err
	}
	plan, err := s.plans.ResolvePlan(ctx, priceID)
	if err != nil {
		return err
	}

	result, err := s.ledger.ApplyCycleGrant(ctx, acct.ID, plan, types.InvoiceReference(env.ID))
	if err != nil {
		return err
	}

	s.Logger.Infow("reconciled invoice payment",
		"invoice_id", env.ID,
		"user_id", acct.ID,
		"plan", plan.Key,
		"delta", result.Delta.String(),
		"already_applied", result.AlreadyApplied,
	)
	return nil
}

func (s *invoiceService) HandlePaymentFailed(ctx context.Context, env *stripe.InvoiceEnvelope) error {
	if env.SubscriptionID == "" {
		s.Logger.Debugw("ignoring non-subscription invoice failure", "invoice_id", env.ID)
		return nil
	}

	acct, err := s.AccountRepo.GetByProviderCustomerID(ctx, env.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHintf("No account exists for provider customer %s", env.CustomerID).
				WithReportableDetails(map[string]any{
					"invoice_id":  env.ID,
					"customer_id": env.CustomerID,
				}).
				Mark(ierr.ErrProfileNotFound)
		}
		return err
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.AccountRepo.UpdateSubscriptionStatus(ctx, acct.ID, types.SubscriptionStatusPastDue); err != nil {
			return err
		}
		sub, err := s.SubscriptionRepo.Get(ctx, env.SubscriptionID)
		if err != nil {
			if ierr.IsNotFound(err) {
				// Invoice failure may beat the subscription.created event; the
				// account status flip above is the part that matters.
				s.Logger.Warnw("payment failed for unknown subscription record",
					"invoice_id", env.ID,
					"subscription_id", env.SubscriptionID,
				)
				return nil
			}
			return err
		}
		sub.Status = types.SubscriptionStatusPastDue
		if err := s.SubscriptionRepo.Upsert(ctx, sub); err != nil {
			return err
		}

		s.Logger.Infow("marked subscription past_due after failed payment",
			"invoice_id", env.ID,
			"user_id", acct.ID,
			"subscription_id", env.SubscriptionID,
		)
		return nil
	})
}
