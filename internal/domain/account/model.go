package account

import (
	"time"

	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
)

// Account is the per-user billing state: the two materialized credit pool
// balances plus the subscription projection. Balances are mutated only
// through ledger writes; the lifecycle manager owns the status fields.
// Each balance always equals the running sum of that pool's transactions.
type Account struct {
	ID                  string                   `db:"id" json:"id"`
	ProviderCustomerID  string                   `db:"provider_customer_id" json:"provider_customer_id"`
	SubscriptionCredits decimal.Decimal          `db:"subscription_credits" json:"subscription_credits"`
	PurchasedCredits    decimal.Decimal          `db:"purchased_credits" json:"purchased_credits"`
	SubscriptionStatus  types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	SubscriptionTier    *string                  `db:"subscription_tier" json:"subscription_tier,omitempty"`
	CreatedAt           time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time                `db:"updated_at" json:"updated_at"`
}

func (a *Account) TableName() string {
	return "accounts"
}

// Balance returns the balance of the given pool.
func (a *Account) Balance(pool types.CreditPool) decimal.Decimal {
	if pool == types.CreditPoolPurchased {
		return a.PurchasedCredits
	}
	return a.SubscriptionCredits
}

// CombinedBalance is the pool-combined balance used as the calculator input
// on cycle grants.
func (a *Account) CombinedBalance() decimal.Decimal {
	return a.SubscriptionCredits.Add(a.PurchasedCredits)
}
