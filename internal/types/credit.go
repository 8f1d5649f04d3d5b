package types

import (
	"fmt"
	"strings"
)

// CreditPool identifies which of the two per-user balances a transaction
// settles against. Subscription-cycle credits and separately purchased
// credits are tracked independently.
type CreditPool string

const (
	CreditPoolSubscription CreditPool = "subscription"
	CreditPoolPurchased    CreditPool = "purchased"
)

func (p CreditPool) Validate() error {
	switch p {
	case CreditPoolSubscription, CreditPoolPurchased:
		return nil
	default:
		return fmt.Errorf("invalid credit pool: %s", p)
	}
}

// TransactionType classifies a ledger entry. The ledger is append-only;
// reversals are expressed as new entries (clawback, expiration), never as
// updates to prior rows.
type TransactionType string

const (
	TransactionTypePurchase     TransactionType = "purchase"
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypeUsage        TransactionType = "usage"
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypeBonus        TransactionType = "bonus"
	TransactionTypeClawback     TransactionType = "clawback"
	TransactionTypeExpiration   TransactionType = "expiration"
)

func (t TransactionType) Validate() error {
	switch t {
	case TransactionTypePurchase, TransactionTypeSubscription, TransactionTypeUsage,
		TransactionTypeRefund, TransactionTypeBonus, TransactionTypeClawback,
		TransactionTypeExpiration:
		return nil
	default:
		return fmt.Errorf("invalid transaction type: %s", t)
	}
}

// Reference id prefixes. The business-level correlation key linking a grant
// to the invoice/payment/session that caused it; refunds walk these in
// priority order when tracing a grant to reverse.
const (
	ReferencePrefixInvoice = "invoice_"
	ReferencePrefixIntent  = "pi_"
	ReferencePrefixSession = "session_"
)

// InvoiceReference builds the canonical reference id for a subscription
// invoice grant.
func InvoiceReference(invoiceID string) string {
	return ReferencePrefixInvoice + strings.TrimPrefix(invoiceID, ReferencePrefixInvoice)
}

// IntentReference builds the reference id for a payment-intent keyed grant.
func IntentReference(paymentIntentID string) string {
	return ReferencePrefixIntent + strings.TrimPrefix(paymentIntentID, ReferencePrefixIntent)
}

// SessionReference builds the reference id for a checkout-session keyed grant.
func SessionReference(sessionID string) string {
	return ReferencePrefixSession + strings.TrimPrefix(sessionID, ReferencePrefixSession)
}

// Metadata is a map of string key-value pairs attached to records
type Metadata map[string]string
