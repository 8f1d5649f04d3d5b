package stripe

import (
	"encoding/json"
	"time"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/shopspring/decimal"
)

// The webhook payload DTOs below form a closed decoding boundary: each event
// type unmarshals into exactly one struct, and anything that fails to decode
// is rejected there instead of probing optional fields downstream.

// SubscriptionSnapshot is the provider subscription state the lifecycle
// manager consumes, whether it arrived in a webhook payload or via a gateway
// read.
type SubscriptionSnapshot struct {
	ID                 string     `json:"id"`
	CustomerID         string     `json:"customer_id"`
	Status             string     `json:"status"`
	PriceID            string     `json:"price_id"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
}

// subscriptionPayload mirrors the raw customer.subscription.* webhook object.
// Period fields appear at the top level on older API versions and on the
// items on newer ones; both are accepted.
type subscriptionPayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CanceledAt         int64  `json:"canceled_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// DecodeSubscription parses a customer.subscription.* payload.
func DecodeSubscription(raw json.RawMessage) (*SubscriptionSnapshot, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}
	if p.ID == "" {
		return nil, ierr.NewError("subscription payload missing id").
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	snap := &SubscriptionSnapshot{
		ID:         p.ID,
		CustomerID: p.Customer,
		Status:     p.Status,
	}
	if p.CanceledAt > 0 {
		t := time.Unix(p.CanceledAt, 0).UTC()
		snap.CanceledAt = &t
	}
	periodStart, periodEnd := p.CurrentPeriodStart, p.CurrentPeriodEnd
	if len(p.Items.Data) > 0 {
		item := p.Items.Data[0]
		snap.PriceID = item.Price.ID
		if periodStart == 0 {
			periodStart = item.CurrentPeriodStart
		}
		if periodEnd == 0 {
			periodEnd = item.CurrentPeriodEnd
		}
	}
	if periodStart > 0 {
		t := time.Unix(periodStart, 0).UTC()
		snap.CurrentPeriodStart = &t
	}
	if periodEnd > 0 {
		t := time.Unix(periodEnd, 0).UTC()
		snap.CurrentPeriodEnd = &t
	}
	return snap, nil
}

// InvoiceLine is one line of an invoice, reduced to the fields line
// selection needs.
type InvoiceLine struct {
	PriceID   string          `json:"price_id"`
	LineType  string          `json:"line_type"` // "subscription" or "other"
	Proration bool            `json:"proration"`
	Amount    decimal.Decimal `json:"amount"`
}

// LineTypeSubscription marks a line produced by the subscription itself
// rather than a one-off invoice item or proration adjustment.
const LineTypeSubscription = "subscription"

// InvoiceEnvelope is the decoded invoice.payment_succeeded /
// invoice.payment_failed payload.
type InvoiceEnvelope struct {
	ID             string        `json:"id"`
	CustomerID     string        `json:"customer_id"`
	SubscriptionID string        `json:"subscription_id"`
	Lines          []InvoiceLine `json:"lines"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Lines        struct {
		Data []struct {
			Type      string `json:"type"`
			Proration bool   `json:"proration"`
			Amount    int64  `json:"amount"`
			Price     struct {
				ID string `json:"id"`
			} `json:"price"`
			Pricing struct {
				PriceDetails struct {
					Price string `json:"price"`
				} `json:"price_details"`
			} `json:"pricing"`
			Parent struct {
				Type                    string `json:"type"`
				SubscriptionItemDetails struct {
					Proration bool `json:"proration"`
				} `json:"subscription_item_details"`
			} `json:"parent"`
		} `json:"data"`
	} `json:"lines"`
	Parent struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// DecodeInvoice parses an invoice.* payload. Line shape differs across
// provider API versions (price vs pricing.price_details, type vs parent.type);
// both generations decode to the same InvoiceLine.
func DecodeInvoice(raw json.RawMessage) (*InvoiceEnvelope, error) {
	var p invoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}
	if p.ID == "" {
		return nil, ierr.NewError("invoice payload missing id").
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}

	env := &InvoiceEnvelope{
		ID:             p.ID,
		CustomerID:     p.Customer,
		SubscriptionID: p.Subscription,
	}
	if env.SubscriptionID == "" {
		env.SubscriptionID = p.Parent.SubscriptionDetails.Subscription
	}

	for _, l := range p.Lines.Data {
		line := InvoiceLine{
			Amount: decimal.NewFromInt(l.Amount),
		}
		switch {
		case l.Price.ID != "":
			line.PriceID = l.Price.ID
		default:
			line.PriceID = l.Pricing.PriceDetails.Price
		}
		if l.Type == LineTypeSubscription || l.Parent.Type == "subscription_item_details" {
			line.LineType = LineTypeSubscription
		} else {
			line.LineType = "other"
		}
		line.Proration = l.Proration || l.Parent.SubscriptionItemDetails.Proration
		env.Lines = append(env.Lines, line)
	}

	return env, nil
}

// RefundEnvelope is the decoded charge.refunded / refund.created payload.
// AmountRefunded carries the refunded credits-equivalent amount in the
// provider's minor unit; correlation candidates are derived from the ids.
type RefundEnvelope struct {
	ChargeID        string          `json:"charge_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	InvoiceID       string          `json:"invoice_id"`
	CustomerID      string          `json:"customer_id"`
	AmountRefunded  decimal.Decimal `json:"amount_refunded"`
}

type chargePayload struct {
	Object         string `json:"object"`
	ID             string `json:"id"`
	Customer       string `json:"customer"`
	PaymentIntent  string `json:"payment_intent"`
	Invoice        string `json:"invoice"`
	AmountRefunded int64  `json:"amount_refunded"`
	// refund.created carries the charge as a nested reference and the
	// refunded amount under "amount".
	Charge string `json:"charge"`
	Amount int64  `json:"amount"`
}

// DecodeRefund parses a charge.refunded or refund.created payload into the
// common refund envelope.
func DecodeRefund(raw json.RawMessage) (*RefundEnvelope, error) {
	var p chargePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid refund data in webhook").
			Mark(ierr.ErrValidation)
	}

	env := &RefundEnvelope{
		CustomerID:      p.Customer,
		PaymentIntentID: p.PaymentIntent,
		InvoiceID:       p.Invoice,
	}
	if p.Object == "refund" {
		env.ChargeID = p.Charge
		env.AmountRefunded = decimal.NewFromInt(p.Amount)
	} else {
		env.ChargeID = p.ID
		env.AmountRefunded = decimal.NewFromInt(p.AmountRefunded)
	}
	if env.ChargeID == "" && env.PaymentIntentID == "" && env.InvoiceID == "" {
		return nil, ierr.NewError("refund payload carries no correlatable ids").
			WithHint("Invalid refund data in webhook").
			Mark(ierr.ErrValidation)
	}
	return env, nil
}

// CheckoutSessionEnvelope is the decoded checkout.session.completed payload.
type CheckoutSessionEnvelope struct {
	ID              string            `json:"id"`
	CustomerID      string            `json:"customer_id"`
	Mode            string            `json:"mode"` // "payment" or "subscription"
	PaymentIntentID string            `json:"payment_intent_id"`
	SubscriptionID  string            `json:"subscription_id"`
	Metadata        map[string]string `json:"metadata"`
}

type checkoutSessionPayload struct {
	ID            string            `json:"id"`
	Customer      string            `json:"customer"`
	Mode          string            `json:"mode"`
	PaymentIntent string            `json:"payment_intent"`
	Subscription  string            `json:"subscription"`
	Metadata      map[string]string `json:"metadata"`
}

// DecodeCheckoutSession parses a checkout.session.completed payload.
func DecodeCheckoutSession(raw json.RawMessage) (*CheckoutSessionEnvelope, error) {
	var p checkoutSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid checkout session data in webhook").
			Mark(ierr.ErrValidation)
	}
	if p.ID == "" {
		return nil, ierr.NewError("checkout session payload missing id").
			WithHint("Invalid checkout session data in webhook").
			Mark(ierr.ErrValidation)
	}
	return &CheckoutSessionEnvelope{
		ID:              p.ID,
		CustomerID:      p.Customer,
		Mode:            p.Mode,
		PaymentIntentID: p.PaymentIntent,
		SubscriptionID:  p.Subscription,
		Metadata:        p.Metadata,
	}, nil
}
