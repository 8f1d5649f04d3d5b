package service

import (
	"context"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/types"
)

// RefundService traces a provider refund back to the grant it paid for and
// claws the credits back. A refund that cannot be correlated to any grant is
// acknowledged without effect: retrying the delivery would never produce a
// different answer, and money refunds must not be blocked on credit
// bookkeeping.
type RefundService interface {
	HandleRefund(ctx context.Context, env *stripe.RefundEnvelope) error
}

type refundService struct {
	ServiceParams
	ledger LedgerService
}

func NewRefundService(params ServiceParams, ledger LedgerService) RefundService {
	return &refundService{
		ServiceParams: params,
		ledger:        ledger,
	}
}

func (s *refundService) HandleRefund(ctx context.Context, env *stripe.RefundEnvelope) error {
	if env.CustomerID == "" {
		s.Logger.Warnw("refund carries no customer, acknowledging without effect",
			"charge_id", env.ChargeID,
			"payment_intent_id", env.PaymentIntentID,
		)
		return nil
	}

	acct, err := s.AccountRepo.GetByProviderCustomerID(ctx, env.CustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHintf("No account exists for provider customer %s", env.CustomerID).
				WithReportableDetails(map[string]any{
					"charge_id":   env.ChargeID,
					"customer_id": env.CustomerID,
				}).
				Mark(ierr.ErrProfileNotFound)
		}
		return err
	}

	// Candidate references in grant-key priority: subscription grants key on
	// the invoice, pack grants on the payment intent, falling back to the
	// checkout session when the intent was absent at grant time.
	var candidates []string
	if env.InvoiceID != "" {
		candidates = append(candidates, types.InvoiceReference(env.InvoiceID))
	}
	if env.PaymentIntentID != "" {
		candidates = append(candidates, types.IntentReference(env.PaymentIntentID))
	}
	if env.ChargeID != "" {
		candidates = append(candidates, types.SessionReference(env.ChargeID))
	}

	for _, ref := range candidates {
		result, err := s.ledger.ApplyClawback(ctx, acct.ID, ref, env.AmountRefunded)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return err
		}
		s.Logger.Infow("processed refund clawback",
			"user_id", acct.ID,
			"reference_id", ref,
			"refund_amount", env.AmountRefunded.String(),
			"reversed", result.Reversed.String(),
		)
		return nil
	}

	// Nothing to trace the refund back to. Log loudly for reconciliation but
	// acknowledge: a redelivery cannot correlate any better.
	s.Logger.Errorw("refund could not be correlated to any grant",
		"user_id", acct.ID,
		"charge_id", env.ChargeID,
		"payment_intent_id", env.PaymentIntentID,
		"invoice_id", env.InvoiceID,
		"refund_amount", env.AmountRefunded.String(),
		"error", ierr.ErrInsufficientCorrelation,
	)
	return nil
}
