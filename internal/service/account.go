package service

import (
	"context"

	"github.com/creditrail/creditrail/internal/domain/account"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/types"
)

// AccountService provisions and reads accounts. An account must exist before
// any webhook for its provider customer can be reconciled; signup flows call
// Create as soon as the provider customer is known.
type AccountService interface {
	Create(ctx context.Context, userID, providerCustomerID string) (*account.Account, error)
	Get(ctx context.Context, userID string) (*account.Account, error)
}

type accountService struct {
	ServiceParams
}

func NewAccountService(params ServiceParams) AccountService {
	return &accountService{ServiceParams: params}
}

func (s *accountService) Create(ctx context.Context, userID, providerCustomerID string) (*account.Account, error) {
	if providerCustomerID == "" {
		return nil, ierr.NewError("provider_customer_id is required").
			WithHint("The provider customer id links webhook deliveries to the account").
			Mark(ierr.ErrValidation)
	}
	if userID == "" {
		userID = types.GenerateUUIDWithPrefix(types.UUIDPrefixAccount)
	}

	acct := &account.Account{
		ID:                 userID,
		ProviderCustomerID: providerCustomerID,
		SubscriptionStatus: types.SubscriptionStatusNone,
	}
	if err := s.AccountRepo.Create(ctx, acct); err != nil {
		return nil, err
	}

	s.Logger.Infow("created account",
		"user_id", acct.ID,
		"provider_customer_id", providerCustomerID,
	)
	return acct, nil
}

func (s *accountService) Get(ctx context.Context, userID string) (*account.Account, error) {
	return s.AccountRepo.Get(ctx, userID)
}
