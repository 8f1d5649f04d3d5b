package types

// WebhookEventType enumerates the Stripe event types the router dispatches.
// Anything else is acknowledged and ignored so new provider event types never
// break delivery.
type WebhookEventType string

const (
	WebhookEventTypeInvoicePaymentSucceeded WebhookEventType = "invoice.payment_succeeded"
	WebhookEventTypeInvoicePaymentFailed    WebhookEventType = "invoice.payment_failed"
	WebhookEventTypeSubscriptionCreated     WebhookEventType = "customer.subscription.created"
	WebhookEventTypeSubscriptionUpdated     WebhookEventType = "customer.subscription.updated"
	WebhookEventTypeSubscriptionDeleted     WebhookEventType = "customer.subscription.deleted"
	WebhookEventTypeChargeRefunded          WebhookEventType = "charge.refunded"
	WebhookEventTypeRefundCreated           WebhookEventType = "refund.created"
	WebhookEventTypeCheckoutSessionComplete WebhookEventType = "checkout.session.completed"
)
