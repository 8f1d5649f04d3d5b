package service

import (
	"context"
	"encoding/json"

	"github.com/creditrail/creditrail/internal/domain/webhookevent"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/types"
)

// WebhookOutcome summarizes what the router did with a delivery.
type WebhookOutcome string

const (
	WebhookOutcomeProcessed WebhookOutcome = "processed"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
)

// WebhookService routes provider webhook deliveries to the right handler
// under delivery-level idempotency: the handler's ledger writes and the
// processed-event mark commit in one transaction, so a crash between them is
// impossible and a redelivery either replays everything or nothing.
type WebhookService interface {
	ProcessEvent(ctx context.Context, eventID string, eventType types.WebhookEventType, payload json.RawMessage) (WebhookOutcome, error)
}

type webhookService struct {
	ServiceParams
	invoices      InvoiceService
	subscriptions SubscriptionService
	refunds       RefundService
	purchases     PurchaseService
}

func NewWebhookService(
	params ServiceParams,
	invoices InvoiceService,
	subscriptions SubscriptionService,
	refunds RefundService,
	purchases PurchaseService,
) WebhookService {
	return &webhookService{
		ServiceParams: params,
		invoices:      invoices,
		subscriptions: subscriptions,
		refunds:       refunds,
		purchases:     purchases,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, eventID string, eventType types.WebhookEventType, payload json.RawMessage) (WebhookOutcome, error) {
	if eventID == "" {
		return "", ierr.NewError("webhook event missing id").
			WithHint("Provider event id is required for idempotent processing").
			Mark(ierr.ErrValidation)
	}

	processed, err := s.ProcessedEventRepo.IsProcessed(ctx, eventID)
	if err != nil {
		return "", err
	}
	if processed {
		s.Logger.Infow("skipping already processed event",
			"event_id", eventID,
			"event_type", eventType,
		)
		return WebhookOutcomeDuplicate, nil
	}

	handler, err := s.route(eventType, payload)
	if err != nil {
		return "", err
	}
	if handler == nil {
		s.Logger.Debugw("ignoring unhandled event type",
			"event_id", eventID,
			"event_type", eventType,
		)
		return WebhookOutcomeIgnored, nil
	}

	ctx = types.SetEventID(ctx, eventID)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := handler(ctx); err != nil {
			return err
		}
		return s.ProcessedEventRepo.MarkProcessed(ctx, webhookevent.New(eventID, string(eventType)))
	})
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			// A concurrent delivery of the same event won the mark; everything
			// this attempt did rolled back with the transaction.
			s.Logger.Warnw("lost idempotency race to concurrent delivery",
				"event_id", eventID,
				"event_type", eventType,
			)
			return WebhookOutcomeDuplicate, nil
		}
		return "", err
	}

	s.Logger.Infow("processed webhook event",
		"event_id", eventID,
		"event_type", eventType,
	)
	return WebhookOutcomeProcessed, nil
}

// route decodes the payload for the event type and returns the handler to run
// inside the idempotency transaction. Decode failures surface here, before any
// transaction opens; a nil handler means the type is not ours to process.
func (s *webhookService) route(eventType types.WebhookEventType, payload json.RawMessage) (func(context.Context) error, error) {
	switch eventType {
	case types.WebhookEventTypeInvoicePaymentSucceeded:
		env, err := stripe.DecodeInvoice(payload)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return s.invoices.HandlePaymentSucceeded(ctx, env)
		}, nil

	case types.WebhookEventTypeInvoicePaymentFailed:
		env, err := stripe.DecodeInvoice(payload)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return s.invoices.HandlePaymentFailed(ctx, env)
		}, nil

	case types.WebhookEventTypeSubscriptionCreated, types.WebhookEventTypeSubscriptionUpdated:
		snap, err := stripe.DecodeSubscription(payload)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return s.subscriptions.HandleSubscriptionChange(ctx, snap)
		}, nil

	case types.WebhookEventTypeSubscriptionDeleted:
		snap, err := stripe.DecodeSubscription(payload)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return s.subscriptions.HandleSubscriptionDeleted(ctx, snap)
		}, nil

	case types.WebhookEventTypeChargeRefunded, types.WebhookEventTypeRefundCreated:
		env, err := stripe.DecodeRefund(payload)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return s.refunds.HandleRefund(ctx, env)
		}, nil

	case types.WebhookEventTypeCheckoutSessionComplete:
		env, err := stripe.DecodeCheckoutSession(payload)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return s.purchases.HandleCheckoutSessionCompleted(ctx, env)
		}, nil

	default:
		return nil, nil
	}
}
