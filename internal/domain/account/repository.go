package account

import (
	"context"

	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for account persistence operations.
// Balance mutations happen exclusively through AdjustBalance so the row
// update stays inside the same transaction as the ledger insert.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	// GetByProviderCustomerID looks an account up by the payment provider's
	// customer id. Missing accounts are ErrNotFound; callers on money paths
	// convert that to ErrProfileNotFound.
	GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*Account, error)
	// GetForUpdate loads the account row with a row-level lock when running
	// inside a transaction, so balance read and write form one atomic unit.
	GetForUpdate(ctx context.Context, id string) (*Account, error)
	// AdjustBalance applies a signed delta to one pool and returns the new
	// balance of that pool.
	AdjustBalance(ctx context.Context, id string, pool types.CreditPool, delta decimal.Decimal) (decimal.Decimal, error)
	// SetBalance overwrites one pool's balance. Used by expiration, where the
	// new balance is computed rather than accumulated.
	SetBalance(ctx context.Context, id string, pool types.CreditPool, balance decimal.Decimal) error
	// UpdateSubscriptionState sets the status and tier projection together.
	// A nil tier clears it.
	UpdateSubscriptionState(ctx context.Context, id string, status types.SubscriptionStatus, tier *string) error
	// UpdateSubscriptionStatus sets the status only, leaving the prior tier
	// in place. Used when plan resolution fails mid-lifecycle-event.
	UpdateSubscriptionStatus(ctx context.Context, id string, status types.SubscriptionStatus) error
}
