package ledger

import (
	"context"

	"github.com/creditrail/creditrail/internal/types"
)

// Repository defines the interface for ledger persistence operations. The
// store is append-only: there is no update or delete.
type Repository interface {
	// Create appends a transaction. The implementation enforces the
	// (user_id, reference_id, type) uniqueness invariant and returns
	// ErrAlreadyExists on a duplicate.
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	// FindGroupByReference returns all transactions for a user under a
	// reference id, oldest first. An empty result is ErrNotFound.
	FindGroupByReference(ctx context.Context, userID, referenceID string) ([]*Transaction, error)
	// FindByUserReferenceType returns the transaction for the uniqueness key,
	// or ErrNotFound. Used for the defensive duplicate re-check.
	FindByUserReferenceType(ctx context.Context, userID, referenceID string, txType types.TransactionType) (*Transaction, error)
	// ListByUser returns a user's transactions, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}
