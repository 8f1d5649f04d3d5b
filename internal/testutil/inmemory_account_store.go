package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/creditrail/creditrail/internal/domain/account"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryAccountStore implements account.Repository
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
}

// NewInMemoryAccountStore creates a new in-memory account store
func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		accounts: make(map[string]*account.Account),
	}
}

func copyAccount(a *account.Account) *account.Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.SubscriptionTier != nil {
		cp.SubscriptionTier = lo.ToPtr(*a.SubscriptionTier)
	}
	return &cp
}

func (s *InMemoryAccountStore) Create(ctx context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return ierr.NewError("account already exists").
			WithHintf("Account %s already exists", a.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range s.accounts {
		if existing.ProviderCustomerID == a.ProviderCustomerID {
			return ierr.NewError("provider customer id already mapped").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	s.accounts[a.ID] = copyAccount(a)
	return nil
}

func (s *InMemoryAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, accountNotFound(id)
	}
	return copyAccount(a), nil
}

func (s *InMemoryAccountStore) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.ProviderCustomerID == providerCustomerID {
			return copyAccount(a), nil
		}
	}
	return nil, accountNotFound(providerCustomerID)
}

func (s *InMemoryAccountStore) GetForUpdate(ctx context.Context, id string) (*account.Account, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryAccountStore) AdjustBalance(ctx context.Context, id string, pool types.CreditPool, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, accountNotFound(id)
	}
	var balance decimal.Decimal
	if pool == types.CreditPoolPurchased {
		a.PurchasedCredits = a.PurchasedCredits.Add(delta)
		balance = a.PurchasedCredits
	} else {
		a.SubscriptionCredits = a.SubscriptionCredits.Add(delta)
		balance = a.SubscriptionCredits
	}
	a.UpdatedAt = time.Now().UTC()
	return balance, nil
}

func (s *InMemoryAccountStore) SetBalance(ctx context.Context, id string, pool types.CreditPool, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return accountNotFound(id)
	}
	if pool == types.CreditPoolPurchased {
		a.PurchasedCredits = balance
	} else {
		a.SubscriptionCredits = balance
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryAccountStore) UpdateSubscriptionState(ctx context.Context, id string, status types.SubscriptionStatus, tier *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return accountNotFound(id)
	}
	a.SubscriptionStatus = status
	a.SubscriptionTier = tier
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryAccountStore) UpdateSubscriptionStatus(ctx context.Context, id string, status types.SubscriptionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return accountNotFound(id)
	}
	a.SubscriptionStatus = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Clear removes all accounts
func (s *InMemoryAccountStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*account.Account)
}

func accountNotFound(key string) error {
	return ierr.NewError("account not found").
		WithHintf("Account %s was not found", key).
		Mark(ierr.ErrNotFound)
}
