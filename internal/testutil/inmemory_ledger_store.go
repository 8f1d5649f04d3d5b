package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/creditrail/creditrail/internal/domain/ledger"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
)

// InMemoryLedgerStore implements ledger.Repository
type InMemoryLedgerStore struct {
	mu           sync.RWMutex
	transactions []*ledger.Transaction
}

// NewInMemoryLedgerStore creates a new in-memory ledger store
func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{}
}

func copyTransaction(tx *ledger.Transaction) *ledger.Transaction {
	if tx == nil {
		return nil
	}
	cp := *tx
	if tx.ReferenceID != nil {
		cp.ReferenceID = lo.ToPtr(*tx.ReferenceID)
	}
	return &cp
}

// grantTypes are the transaction types the uniqueness invariant covers.
// Expirations and clawbacks legitimately repeat under one reference.
func isGrantType(t types.TransactionType) bool {
	switch t {
	case types.TransactionTypePurchase, types.TransactionTypeSubscription, types.TransactionTypeBonus:
		return true
	default:
		return false
	}
}

func (s *InMemoryLedgerStore) Create(ctx context.Context, tx *ledger.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ReferenceID != nil && isGrantType(tx.Type) {
		for _, existing := range s.transactions {
			if existing.UserID == tx.UserID &&
				existing.Type == tx.Type &&
				existing.ReferenceID != nil &&
				*existing.ReferenceID == *tx.ReferenceID {
				return ierr.NewError("transaction already exists for reference").
					WithReportableDetails(map[string]any{
						"user_id":      tx.UserID,
						"reference_id": *tx.ReferenceID,
						"type":         tx.Type,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}

	cp := copyTransaction(tx)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.transactions = append(s.transactions, cp)
	return nil
}

func (s *InMemoryLedgerStore) Get(ctx context.Context, id string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.ID == id {
			return copyTransaction(tx), nil
		}
	}
	return nil, transactionNotFound(id)
}

func (s *InMemoryLedgerStore) FindGroupByReference(ctx context.Context, userID, referenceID string) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var group []*ledger.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.ReferenceID != nil && *tx.ReferenceID == referenceID {
			group = append(group, copyTransaction(tx))
		}
	}
	if len(group) == 0 {
		return nil, transactionNotFound(referenceID)
	}
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].CreatedAt.Before(group[j].CreatedAt)
	})
	return group, nil
}

func (s *InMemoryLedgerStore) FindByUserReferenceType(ctx context.Context, userID, referenceID string, txType types.TransactionType) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.Type == txType && tx.ReferenceID != nil && *tx.ReferenceID == referenceID {
			return copyTransaction(tx), nil
		}
	}
	return nil, transactionNotFound(referenceID)
}

func (s *InMemoryLedgerStore) ListByUser(ctx context.Context, userID string, limit int) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, copyTransaction(tx))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Clear removes all transactions
func (s *InMemoryLedgerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = nil
}

func transactionNotFound(key string) error {
	return ierr.NewError("transaction not found").
		WithHintf("No ledger transaction found for %s", key).
		Mark(ierr.ErrNotFound)
}
