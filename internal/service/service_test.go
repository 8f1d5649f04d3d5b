package service

import (
	"github.com/creditrail/creditrail/internal/domain/account"
	"github.com/creditrail/creditrail/internal/testutil"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
)

// newTestParams assembles ServiceParams from the suite's in-memory stores.
func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		AccountRepo:        stores.AccountRepo,
		LedgerRepo:         stores.LedgerRepo,
		SubscriptionRepo:   stores.SubscriptionRepo,
		ProcessedEventRepo: stores.ProcessedEventRepo,
		Catalog:            s.GetCatalog(),
		Gateway:            s.GetGateway(),
	}
}

// seedAccount creates an account with the given pool balances.
func seedAccount(s *testutil.BaseServiceTestSuite, userID, customerID string, subscriptionCredits, purchasedCredits int64) *account.Account {
	acct := &account.Account{
		ID:                  userID,
		ProviderCustomerID:  customerID,
		SubscriptionCredits: decimal.NewFromInt(subscriptionCredits),
		PurchasedCredits:    decimal.NewFromInt(purchasedCredits),
		SubscriptionStatus:  types.SubscriptionStatusNone,
	}
	s.Require().NoError(s.GetStores().AccountRepo.Create(s.GetContext(), acct))
	return acct
}
