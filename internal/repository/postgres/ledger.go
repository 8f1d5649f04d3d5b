package postgres

import (
	"context"
	"database/sql"

	"github.com/creditrail/creditrail/internal/domain/ledger"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
	"github.com/creditrail/creditrail/internal/types"
)

type ledgerRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewLedgerRepository(client postgres.IClient, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{
		client: client,
		logger: logger,
	}
}

func (r *ledgerRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO credit_transactions (
			id, user_id, pool, amount, type, reference_id, description, created_at
		) VALUES (
			:id, :user_id, :pool, :amount, :type, :reference_id, :description, :created_at
		)`, tx)
	if err != nil {
		if isUniqueViolation(err) {
			// (user_id, reference_id, type) already applied.
			return ierr.WithError(err).
				WithHint("A transaction with this reference and type already exists for the user").
				WithReportableDetails(map[string]any{
					"user_id":      tx.UserID,
					"reference_id": tx.ReferenceID,
					"type":         tx.Type,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to append ledger transaction").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("appended ledger transaction",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"pool", tx.Pool,
		"type", tx.Type,
		"amount", tx.Amount.String(),
	)
	return nil
}

func (r *ledgerRepository) Get(ctx context.Context, id string) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	err := r.client.Querier(ctx).GetContext(ctx, &tx,
		`SELECT * FROM credit_transactions WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("transaction not found").
				WithHintf("Transaction %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get transaction").
			Mark(ierr.ErrDatabase)
	}
	return &tx, nil
}

func (r *ledgerRepository) FindGroupByReference(ctx context.Context, userID, referenceID string) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	err := r.client.Querier(ctx).SelectContext(ctx, &txs, `
		SELECT * FROM credit_transactions
		WHERE user_id = $1 AND reference_id = $2
		ORDER BY created_at ASC`, userID, referenceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load transaction group").
			Mark(ierr.ErrDatabase)
	}
	if len(txs) == 0 {
		return nil, ierr.NewError("no transactions for reference").
			WithReportableDetails(map[string]any{
				"user_id":      userID,
				"reference_id": referenceID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return txs, nil
}

func (r *ledgerRepository) FindByUserReferenceType(ctx context.Context, userID, referenceID string, txType types.TransactionType) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	err := r.client.Querier(ctx).GetContext(ctx, &tx, `
		SELECT * FROM credit_transactions
		WHERE user_id = $1 AND reference_id = $2 AND type = $3`,
		userID, referenceID, txType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("transaction not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to look up transaction by uniqueness key").
			Mark(ierr.ErrDatabase)
	}
	return &tx, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*ledger.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var txs []*ledger.Transaction
	err := r.client.Querier(ctx).SelectContext(ctx, &txs, `
		SELECT * FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	return txs, nil
}
