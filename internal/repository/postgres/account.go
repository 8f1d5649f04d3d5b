package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/creditrail/creditrail/internal/domain/account"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
)

type accountRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewAccountRepository(client postgres.IClient, logger *logger.Logger) account.Repository {
	return &accountRepository{
		client: client,
		logger: logger,
	}
}

// poolColumn maps a credit pool to its materialized balance column. Both
// columns live on the account row so a single row lock covers both pools.
func poolColumn(pool types.CreditPool) string {
	if pool == types.CreditPoolPurchased {
		return "purchased_credits"
	}
	return "subscription_credits"
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO accounts (
			id, provider_customer_id, subscription_credits, purchased_credits,
			subscription_status, subscription_tier, created_at, updated_at
		) VALUES (
			:id, :provider_customer_id, :subscription_credits, :purchased_credits,
			:subscription_status, :subscription_tier, :created_at, :updated_at
		)`, a)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Account already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create account").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	var a account.Account
	err := r.client.Querier(ctx).GetContext(ctx, &a,
		`SELECT * FROM accounts WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("account not found").
				WithHintf("Account %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get account").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *accountRepository) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*account.Account, error) {
	var a account.Account
	err := r.client.Querier(ctx).GetContext(ctx, &a,
		`SELECT * FROM accounts WHERE provider_customer_id = $1`, providerCustomerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("account not found for provider customer").
				WithReportableDetails(map[string]any{
					"provider_customer_id": providerCustomerID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to look up account by provider customer id").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *accountRepository) GetForUpdate(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT * FROM accounts WHERE id = $1`
	// Row lock only makes sense inside a transaction.
	if r.client.TxFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}

	var a account.Account
	err := r.client.Querier(ctx).GetContext(ctx, &a, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("account not found").
				WithHintf("Account %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to lock account row").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *accountRepository) AdjustBalance(ctx context.Context, id string, pool types.CreditPool, delta decimal.Decimal) (decimal.Decimal, error) {
	col := poolColumn(pool)
	var newBalance decimal.Decimal
	err := r.client.Querier(ctx).QueryRowxContext(ctx, `
		UPDATE accounts
		SET `+col+` = `+col+` + $1, updated_at = $2
		WHERE id = $3
		RETURNING `+col, delta, time.Now().UTC(), id).Scan(&newBalance)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, ierr.NewError("account not found").
				WithHintf("Account %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to adjust balance").
			Mark(ierr.ErrDatabase)
	}
	return newBalance, nil
}

func (r *accountRepository) SetBalance(ctx context.Context, id string, pool types.CreditPool, balance decimal.Decimal) error {
	col := poolColumn(pool)
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE accounts SET `+col+` = $1, updated_at = $2 WHERE id = $3`,
		balance, time.Now().UTC(), id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set balance").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("account not found").
			WithHintf("Account %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *accountRepository) UpdateSubscriptionState(ctx context.Context, id string, status types.SubscriptionStatus, tier *string) error {
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE accounts
		SET subscription_status = $1, subscription_tier = $2, updated_at = $3
		WHERE id = $4`,
		status, tier, time.Now().UTC(), id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription state").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("account not found").
			WithHintf("Account %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *accountRepository) UpdateSubscriptionStatus(ctx context.Context, id string, status types.SubscriptionStatus) error {
	res, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE accounts SET subscription_status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription status").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("account not found").
			WithHintf("Account %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
