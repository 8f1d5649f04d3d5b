package service

import (
	"context"
	"fmt"

	"github.com/creditrail/creditrail/internal/domain/account"
	"github.com/creditrail/creditrail/internal/domain/catalog"
	"github.com/creditrail/creditrail/internal/domain/credit"
	"github.com/creditrail/creditrail/internal/domain/ledger"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// LedgerService owns all credit balance mutations. Every operation is
// serialized per user and runs balance read, cap computation, ledger append
// and balance update inside one transaction, so concurrent grants can never
// both observe the pre-grant balance.
type LedgerService interface {
	// ApplyCycleGrant grants a subscription cycle's credits, applying the
	// plan's expiration mode and rollover cap against the pool-combined
	// balance.
	ApplyCycleGrant(ctx context.Context, userID string, plan *catalog.PlanDefinition, referenceID string) (*CycleGrantResult, error)
	// ApplyPackGrant grants a purchased credit pack. Uncapped.
	ApplyPackGrant(ctx context.Context, userID string, pack *catalog.PackDefinition, referenceID string) (*PackGrantResult, error)
	// ApplyClawback reverses credits previously granted under referenceID,
	// up to the cumulative refunded amount and never past the net grant.
	ApplyClawback(ctx context.Context, userID, referenceID string, refundAmount decimal.Decimal) (*ClawbackResult, error)
	// GetAccount returns the account with its materialized balances.
	GetAccount(ctx context.Context, userID string) (*account.Account, error)
	// ListTransactions returns a user's ledger entries, newest first.
	ListTransactions(ctx context.Context, userID string, limit int) ([]*ledger.Transaction, error)
}

type CycleGrantResult struct {
	AlreadyApplied bool                `json:"already_applied"`
	Delta          decimal.Decimal     `json:"delta"`
	NewBalance     decimal.Decimal     `json:"new_balance"`
	ExpiredAmount  decimal.Decimal     `json:"expired_amount"`
	Outcome        credit.GrantOutcome `json:"outcome"`
}

type PackGrantResult struct {
	AlreadyApplied bool            `json:"already_applied"`
	Credits        decimal.Decimal `json:"credits"`
	NewBalance     decimal.Decimal `json:"new_balance"`
}

// PoolDebit reports how much a clawback took out of one pool.
type PoolDebit struct {
	Pool   types.CreditPool `json:"pool"`
	Amount decimal.Decimal  `json:"amount"`
}

type ClawbackResult struct {
	ReferenceID string          `json:"reference_id"`
	Reversed    decimal.Decimal `json:"reversed"`
	Pools       []PoolDebit     `json:"pools"`
}

type ledgerService struct {
	ServiceParams
	locks *userLocks
}

func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{
		ServiceParams: params,
		locks:         newUserLocks(),
	}
}

func (s *ledgerService) ApplyCycleGrant(ctx context.Context, userID string, plan *catalog.PlanDefinition, referenceID string) (*CycleGrantResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var result *CycleGrantResult
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		acct, err := s.AccountRepo.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		// Defensive re-check: the same reference may arrive under a new
		// delivery id (manual replay). An existing grant makes this a no-op.
		existing, err := s.LedgerRepo.FindByUserReferenceType(ctx, userID, referenceID, types.TransactionTypeSubscription)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			s.Logger.Infow("cycle grant already applied, skipping",
				"user_id", userID,
				"reference_id", referenceID,
				"transaction_id", existing.ID,
			)
			result = &CycleGrantResult{
				AlreadyApplied: true,
				Delta:          existing.Amount,
				NewBalance:     acct.CombinedBalance(),
			}
			return nil
		}

		current := acct.CombinedBalance()
		calc := credit.Calculate(current, plan.CreditsPerCycle, plan.ExpirationMode, plan.MaxRollover)
		delta := credit.GrantDelta(current, calc)
		outcome := credit.ClassifyGrant(delta, plan.CreditsPerCycle, calc)

		if calc.ExpiredAmount.Sign() != 0 {
			if err := s.expireBalances(ctx, acct, referenceID); err != nil {
				return err
			}
		}

		if !delta.IsZero() {
			grant := ledger.New(
				userID,
				types.CreditPoolSubscription,
				delta,
				types.TransactionTypeSubscription,
				lo.ToPtr(referenceID),
				fmt.Sprintf("cycle grant for plan %s (%s)", plan.Key, outcome),
			)
			if err := s.LedgerRepo.Create(ctx, grant); err != nil {
				if ierr.IsAlreadyExists(err) {
					// Lost a race with a concurrent replay of the same
					// reference; the other writer owns the grant.
					s.Logger.Warnw("cycle grant raced with duplicate reference",
						"user_id", userID,
						"reference_id", referenceID,
					)
					result = &CycleGrantResult{AlreadyApplied: true, NewBalance: acct.CombinedBalance()}
					return nil
				}
				return err
			}
			if _, err := s.AccountRepo.AdjustBalance(ctx, userID, types.CreditPoolSubscription, delta); err != nil {
				return err
			}
		}

		s.Logger.Infow("applied cycle grant",
			"user_id", userID,
			"plan", plan.Key,
			"reference_id", referenceID,
			"delta", delta.String(),
			"new_balance", calc.NewBalance.String(),
			"expired", calc.ExpiredAmount.String(),
			"outcome", outcome,
		)

		result = &CycleGrantResult{
			Delta:         delta,
			NewBalance:    calc.NewBalance,
			ExpiredAmount: calc.ExpiredAmount,
			Outcome:       outcome,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// expireBalances zeroes both pools ahead of an expiring-mode grant, writing
// one expiration entry per non-empty pool. The entries are bookkeeping: a
// duplicate (replayed reference) is logged and skipped rather than failing
// the grant, since under-crediting a paying user is worse than a missed
// audit line.
func (s *ledgerService) expireBalances(ctx context.Context, acct *account.Account, referenceID string) error {
	pools := []types.CreditPool{types.CreditPoolPurchased, types.CreditPoolSubscription}
	for _, pool := range pools {
		balance := acct.Balance(pool)
		if balance.IsZero() {
			continue
		}
		entry := ledger.New(
			acct.ID,
			pool,
			balance.Neg(),
			types.TransactionTypeExpiration,
			lo.ToPtr(referenceID),
			fmt.Sprintf("cycle expiration of %s pool", pool),
		)
		if err := s.LedgerRepo.Create(ctx, entry); err != nil {
			if ierr.IsAlreadyExists(err) {
				s.Logger.Warnw("expiration entry already recorded, continuing with grant",
					"user_id", acct.ID,
					"pool", pool,
					"reference_id", referenceID,
				)
				continue
			}
			return err
		}
		if err := s.AccountRepo.SetBalance(ctx, acct.ID, pool, decimal.Zero); err != nil {
			return err
		}
	}
	return nil
}

func (s *ledgerService) ApplyPackGrant(ctx context.Context, userID string, pack *catalog.PackDefinition, referenceID string) (*PackGrantResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var result *PackGrantResult
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		acct, err := s.AccountRepo.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := s.LedgerRepo.FindByUserReferenceType(ctx, userID, referenceID, types.TransactionTypePurchase)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			s.Logger.Infow("pack grant already applied, skipping",
				"user_id", userID,
				"reference_id", referenceID,
				"transaction_id", existing.ID,
			)
			result = &PackGrantResult{
				AlreadyApplied: true,
				Credits:        existing.Amount,
				NewBalance:     acct.PurchasedCredits,
			}
			return nil
		}

		grant := ledger.New(
			userID,
			types.CreditPoolPurchased,
			pack.Credits,
			types.TransactionTypePurchase,
			lo.ToPtr(referenceID),
			fmt.Sprintf("credit pack purchase: %s", pack.Key),
		)
		if err := s.LedgerRepo.Create(ctx, grant); err != nil {
			if ierr.IsAlreadyExists(err) {
				result = &PackGrantResult{AlreadyApplied: true, NewBalance: acct.PurchasedCredits}
				return nil
			}
			return err
		}

		newBalance, err := s.AccountRepo.AdjustBalance(ctx, userID, types.CreditPoolPurchased, pack.Credits)
		if err != nil {
			return err
		}

		s.Logger.Infow("applied pack grant",
			"user_id", userID,
			"pack", pack.Key,
			"reference_id", referenceID,
			"credits", pack.Credits.String(),
			"new_balance", newBalance.String(),
		)

		result = &PackGrantResult{Credits: pack.Credits, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) ApplyClawback(ctx context.Context, userID, referenceID string, refundAmount decimal.Decimal) (*ClawbackResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var result *ClawbackResult
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.AccountRepo.GetForUpdate(ctx, userID); err != nil {
			return err
		}

		group, err := s.LedgerRepo.FindGroupByReference(ctx, userID, referenceID)
		if err != nil {
			return err
		}

		// Net granted and already reversed, per pool. Expiration and usage
		// entries sharing the reference are not part of the grant envelope.
		granted := map[types.CreditPool]decimal.Decimal{}
		reversed := map[types.CreditPool]decimal.Decimal{}
		for _, tx := range group {
			switch tx.Type {
			case types.TransactionTypePurchase, types.TransactionTypeSubscription, types.TransactionTypeBonus:
				granted[tx.Pool] = granted[tx.Pool].Add(tx.Amount)
			case types.TransactionTypeClawback, types.TransactionTypeRefund:
				reversed[tx.Pool] = reversed[tx.Pool].Add(tx.Amount.Neg())
			}
		}

		totalGranted := decimal.Zero
		totalReversed := decimal.Zero
		for _, pool := range []types.CreditPool{types.CreditPoolPurchased, types.CreditPoolSubscription} {
			if granted[pool].Sign() > 0 {
				totalGranted = totalGranted.Add(granted[pool])
			}
			totalReversed = totalReversed.Add(reversed[pool])
		}
		if totalGranted.Sign() <= 0 {
			return ierr.NewError("reference carries no reversible grant").
				WithReportableDetails(map[string]any{
					"user_id":      userID,
					"reference_id": referenceID,
				}).
				Mark(ierr.ErrNotFound)
		}

		// amount_refunded is cumulative across partial refunds: the target is
		// the total reversal so far, and only the remainder is clawed now.
		target := decimal.Min(refundAmount, totalGranted)
		remaining := target.Sub(totalReversed)
		if remaining.Sign() <= 0 {
			s.Logger.Infow("clawback already covers refunded amount, skipping",
				"user_id", userID,
				"reference_id", referenceID,
				"refund_amount", refundAmount.String(),
				"already_reversed", totalReversed.String(),
			)
			result = &ClawbackResult{ReferenceID: referenceID, Reversed: decimal.Zero}
			return nil
		}

		// One refund event may debit both pools; a shared code groups its rows
		// in audit views.
		batch := types.GenerateShortIDWithPrefix("RC")

		var debits []PoolDebit
		for _, pool := range []types.CreditPool{types.CreditPoolPurchased, types.CreditPoolSubscription} {
			if remaining.Sign() <= 0 {
				break
			}
			available := granted[pool].Sub(reversed[pool])
			if available.Sign() <= 0 {
				continue
			}
			debit := decimal.Min(remaining, available)

			entry := ledger.New(
				userID,
				pool,
				debit.Neg(),
				types.TransactionTypeClawback,
				lo.ToPtr(referenceID),
				fmt.Sprintf("refund clawback %s against %s", batch, referenceID),
			)
			if err := s.LedgerRepo.Create(ctx, entry); err != nil {
				return err
			}
			if _, err := s.AccountRepo.AdjustBalance(ctx, userID, pool, debit.Neg()); err != nil {
				return err
			}

			debits = append(debits, PoolDebit{Pool: pool, Amount: debit})
			remaining = remaining.Sub(debit)
		}

		total := decimal.Zero
		for _, d := range debits {
			total = total.Add(d.Amount)
		}

		s.Logger.Infow("applied refund clawback",
			"user_id", userID,
			"reference_id", referenceID,
			"refund_amount", refundAmount.String(),
			"reversed", total.String(),
		)

		result = &ClawbackResult{ReferenceID: referenceID, Reversed: total, Pools: debits}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	return s.AccountRepo.Get(ctx, userID)
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID string, limit int) ([]*ledger.Transaction, error) {
	return s.LedgerRepo.ListByUser(ctx, userID, limit)
}
