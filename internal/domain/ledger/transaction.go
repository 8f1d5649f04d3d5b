package ledger

import (
	"time"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable, append-only ledger entry. Amount is signed:
// grants are positive, usage/clawback/expiration entries are negative.
// ReferenceID is the business-level correlation key (invoice_<id>, pi_<id>,
// session_<id>) that refund clawback later resolves against.
type Transaction struct {
	ID          string                `db:"id" json:"id"`
	UserID      string                `db:"user_id" json:"user_id"`
	Pool        types.CreditPool      `db:"pool" json:"pool"`
	Amount      decimal.Decimal       `db:"amount" json:"amount"`
	Type        types.TransactionType `db:"type" json:"type"`
	ReferenceID *string               `db:"reference_id" json:"reference_id,omitempty"`
	Description string                `db:"description" json:"description"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}

func (t *Transaction) TableName() string {
	return "credit_transactions"
}

func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Ledger transactions must belong to a user").
			Mark(ierr.ErrValidation)
	}
	if err := t.Pool.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Unknown credit pool").
			Mark(ierr.ErrValidation)
	}
	if err := t.Type.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Unknown transaction type").
			Mark(ierr.ErrValidation)
	}
	if t.Amount.IsZero() {
		return ierr.NewError("amount must be non-zero").
			WithHint("Zero-delta outcomes are represented by writing no transaction at all").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// New returns a transaction with a fresh id and timestamp.
func New(userID string, pool types.CreditPool, amount decimal.Decimal, txType types.TransactionType, referenceID *string, description string) *Transaction {
	return &Transaction{
		ID:          types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
		UserID:      userID,
		Pool:        pool,
		Amount:      amount,
		Type:        txType,
		ReferenceID: referenceID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// NetAmount sums the signed amounts of a transaction group. A clawback may
// never push the net for a reference id below zero.
func NetAmount(txs []*Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range txs {
		net = net.Add(tx.Amount)
	}
	return net
}
