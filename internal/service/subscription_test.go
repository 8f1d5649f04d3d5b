package service

import (
	"testing"
	"time"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/testutil"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	subscriptions SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.subscriptions = NewSubscriptionService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *SubscriptionServiceSuite) snapshot(status, priceID string) *stripe.SubscriptionSnapshot {
	return &stripe.SubscriptionSnapshot{
		ID:                 "sub_1",
		CustomerID:         "cus_1",
		Status:             status,
		PriceID:            priceID,
		CurrentPeriodStart: lo.ToPtr(s.GetNow().Add(-time.Hour)),
		CurrentPeriodEnd:   lo.ToPtr(s.GetNow().Add(30 * 24 * time.Hour)),
	}
}

func (s *SubscriptionServiceSuite) TestChangeProjectsStatusAndTier() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	s.NoError(s.subscriptions.HandleSubscriptionChange(s.GetContext(), s.snapshot("active", "price_starter")))

	acct, err := s.GetStores().AccountRepo.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, acct.SubscriptionStatus)
	s.Require().NotNil(acct.SubscriptionTier)
	s.Equal("starter", *acct.SubscriptionTier)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("user_1", sub.UserID)
	s.Equal("active", sub.ProviderStatus)
	s.Equal("price_starter", sub.PriceID)
}

func (s *SubscriptionServiceSuite) TestChangeWithUnknownPriceKeepsTier() {
	acct := seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	s.Require().NoError(s.GetStores().AccountRepo.UpdateSubscriptionState(
		s.GetContext(), acct.ID, types.SubscriptionStatusActive, lo.ToPtr("starter")))

	s.NoError(s.subscriptions.HandleSubscriptionChange(s.GetContext(), s.snapshot("past_due", "price_foreign")))

	updated, err := s.GetStores().AccountRepo.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, updated.SubscriptionStatus)
	s.Require().NotNil(updated.SubscriptionTier)
	s.Equal("starter", *updated.SubscriptionTier)

	// The raw record is still written so the provider state is not lost.
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal("price_foreign", sub.PriceID)
}

func (s *SubscriptionServiceSuite) TestDeletedClearsTier() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	s.Require().NoError(s.subscriptions.HandleSubscriptionChange(s.GetContext(), s.snapshot("active", "price_starter")))

	snap := s.snapshot("canceled", "price_starter")
	snap.CanceledAt = lo.ToPtr(s.GetNow())
	s.NoError(s.subscriptions.HandleSubscriptionDeleted(s.GetContext(), snap))

	acct, err := s.GetStores().AccountRepo.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, acct.SubscriptionStatus)
	s.Nil(acct.SubscriptionTier)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "sub_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.NotNil(sub.CanceledAt)
}

func (s *SubscriptionServiceSuite) TestChangeMissingProfile() {
	err := s.subscriptions.HandleSubscriptionChange(s.GetContext(), s.snapshot("active", "price_starter"))
	s.Error(err)
	s.True(ierr.IsProfileNotFound(err))
}

func (s *SubscriptionServiceSuite) TestBootstrapPullsFromGateway() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	s.GetGateway().SetSubscription(s.snapshot("trialing", "price_starter"))

	s.NoError(s.subscriptions.Bootstrap(s.GetContext(), "sub_1"))

	acct, err := s.GetStores().AccountRepo.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrialing, acct.SubscriptionStatus)
}
