package service

import (
	"testing"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/testutil"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PurchaseServiceSuite struct {
	testutil.BaseServiceTestSuite
	purchases PurchaseService
	ledger    LedgerService
}

func TestPurchaseService(t *testing.T) {
	suite.Run(t, new(PurchaseServiceSuite))
}

func (s *PurchaseServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite)
	s.ledger = NewLedgerService(params)
	subscriptions := NewSubscriptionService(params)
	s.purchases = NewPurchaseService(params, s.ledger, subscriptions)
}

func (s *PurchaseServiceSuite) TestPaymentModeGrantsPack() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := &stripe.CheckoutSessionEnvelope{
		ID:              "cs_1",
		CustomerID:      "cus_1",
		Mode:            "payment",
		PaymentIntentID: "pi_1",
		Metadata:        map[string]string{"price_id": "price_pack_small"},
	}
	s.NoError(s.purchases.HandleCheckoutSessionCompleted(s.GetContext(), env))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(500).Equal(acct.PurchasedCredits))

	// Grant keys on the payment intent for later refund correlation.
	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Require().Len(txs, 1)
	s.Equal(types.IntentReference("pi_1"), *txs[0].ReferenceID)
}

func (s *PurchaseServiceSuite) TestPaymentModeFallsBackToSessionReference() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := &stripe.CheckoutSessionEnvelope{
		ID:         "cs_1",
		CustomerID: "cus_1",
		Mode:       "payment",
		Metadata:   map[string]string{"price_id": "price_pack_small"},
	}
	s.NoError(s.purchases.HandleCheckoutSessionCompleted(s.GetContext(), env))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Require().Len(txs, 1)
	s.Equal(types.SessionReference("cs_1"), *txs[0].ReferenceID)
}

func (s *PurchaseServiceSuite) TestPaymentModeMissingMetadataIsAcknowledged() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := &stripe.CheckoutSessionEnvelope{
		ID:         "cs_1",
		CustomerID: "cus_1",
		Mode:       "payment",
	}
	s.NoError(s.purchases.HandleCheckoutSessionCompleted(s.GetContext(), env))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Empty(txs)
}

func (s *PurchaseServiceSuite) TestPaymentModeUnknownPriceIsRetryable() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := &stripe.CheckoutSessionEnvelope{
		ID:         "cs_1",
		CustomerID: "cus_1",
		Mode:       "payment",
		Metadata:   map[string]string{"price_id": "price_unconfigured"},
	}
	err := s.purchases.HandleCheckoutSessionCompleted(s.GetContext(), env)
	s.Error(err)
	s.True(ierr.IsUnknownPriceID(err))
}

func (s *PurchaseServiceSuite) TestSubscriptionModeBootstrapsFromGateway() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	s.GetGateway().SetSubscription(&stripe.SubscriptionSnapshot{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "active",
		PriceID:    "price_starter",
	})

	env := &stripe.CheckoutSessionEnvelope{
		ID:             "cs_1",
		CustomerID:     "cus_1",
		Mode:           "subscription",
		SubscriptionID: "sub_1",
	}
	s.NoError(s.purchases.HandleCheckoutSessionCompleted(s.GetContext(), env))

	acct, err := s.GetStores().AccountRepo.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, acct.SubscriptionStatus)
}

func (s *PurchaseServiceSuite) TestSubscriptionModeGatewayFailureIsNonFatal() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := &stripe.CheckoutSessionEnvelope{
		ID:             "cs_1",
		CustomerID:     "cus_1",
		Mode:           "subscription",
		SubscriptionID: "sub_missing",
	}
	s.NoError(s.purchases.HandleCheckoutSessionCompleted(s.GetContext(), env))
}
