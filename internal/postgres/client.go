package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/creditrail/creditrail/internal/config"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// Querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx, so
// repositories run unchanged inside or outside a transaction.
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction. Nested calls reuse
	// the transaction already in the context, so idempotency-store writes and
	// ledger writes share one boundary.
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// TxFromContext returns the transaction from context if it exists
	TxFromContext(ctx context.Context) *sqlx.Tx

	// Querier returns the current transaction if in a transaction, or the
	// regular connection pool.
	Querier(ctx context.Context) Querier
}

// Client wraps sqlx.DB to provide transaction management
type Client struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// Module provides an fx.Option to integrate the postgres client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewClient,
		),
	)
}

// NewDB opens the postgres connection pool from config
func NewDB(cfg *config.Configuration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

// NewClient creates a new client wrapper with transaction management
func NewClient(db *sqlx.DB, logger *logger.Logger) IClient {
	return &Client{
		db:     db,
		logger: logger,
	}
}

// WithTx wraps the given function in a transaction
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already in a transaction: reuse it, the outermost caller commits.
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.Errorw("failed to rollback transaction after panic", "error", rbErr)
			}
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// TxFromContext returns the transaction from context if it exists
func (c *Client) TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// Querier returns the current transaction client if in a transaction, or the
// regular client
func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}
