package types

import "fmt"

// SubscriptionStatus is the local lifecycle state tracked per user. It is a
// projection of the provider's subscription status onto the states the
// ledger cares about.
type SubscriptionStatus string

const (
	SubscriptionStatusNone     SubscriptionStatus = "none"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusNone, SubscriptionStatusActive, SubscriptionStatusTrialing,
		SubscriptionStatusPastDue, SubscriptionStatusCanceled:
		return nil
	default:
		return fmt.Errorf("invalid subscription status: %s", s)
	}
}

// SubscriptionStatusFromProvider maps a Stripe subscription status string to
// the local state machine. Unmapped provider states (incomplete, paused,
// unpaid) degrade to past_due rather than failing the event: the raw provider
// status is still persisted on the SubscriptionRecord.
func SubscriptionStatusFromProvider(status string) SubscriptionStatus {
	switch status {
	case "active":
		return SubscriptionStatusActive
	case "trialing":
		return SubscriptionStatusTrialing
	case "past_due", "unpaid", "incomplete", "paused":
		return SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return SubscriptionStatusCanceled
	default:
		return SubscriptionStatusNone
	}
}
