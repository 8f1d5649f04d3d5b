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

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	invoices InvoiceService
	ledger   LedgerService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite)
	plans := NewPlanService(params)
	s.ledger = NewLedgerService(params)
	s.invoices = NewInvoiceService(params, plans, s.ledger)
}

func subscriptionInvoice(id, customerID string, lines ...stripe.InvoiceLine) *stripe.InvoiceEnvelope {
	return &stripe.InvoiceEnvelope{
		ID:             id,
		CustomerID:     customerID,
		SubscriptionID: "sub_1",
		Lines:          lines,
	}
}

func (s *InvoiceServiceSuite) TestPaymentSucceededGrantsCycleCredits() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 1100, 0)

	env := subscriptionInvoice("in_1", "cus_1", stripe.InvoiceLine{
		PriceID:  "price_pro",
		LineType: stripe.LineTypeSubscription,
		Amount:   decimal.NewFromInt(4900),
	})
	s.NoError(s.invoices.HandlePaymentSucceeded(s.GetContext(), env))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(1200).Equal(acct.SubscriptionCredits))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
	s.True(decimal.NewFromInt(100).Equal(txs[0].Amount))
	s.Equal(types.InvoiceReference("in_1"), *txs[0].ReferenceID)
}

func (s *InvoiceServiceSuite) TestPaymentSucceededPrefersSubscriptionLine() {
	// Upgrade invoices carry the old plan on the subscription line and the
	// new one on a positive proration line; the subscription line wins when
	// it resolves.
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := subscriptionInvoice("in_1", "cus_1",
		stripe.InvoiceLine{
			PriceID:  "price_starter",
			LineType: stripe.LineTypeSubscription,
			Amount:   decimal.NewFromInt(900),
		},
		stripe.InvoiceLine{
			PriceID:   "price_pro",
			LineType:  "other",
			Proration: true,
			Amount:    decimal.NewFromInt(500),
		},
	)
	s.NoError(s.invoices.HandlePaymentSucceeded(s.GetContext(), env))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	// starter grants 100, not pro's 1000
	s.True(decimal.NewFromInt(100).Equal(acct.SubscriptionCredits))
}

func (s *InvoiceServiceSuite) TestPaymentSucceededFallsBackToProrationLine() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := subscriptionInvoice("in_1", "cus_1",
		stripe.InvoiceLine{
			PriceID:  "price_unconfigured",
			LineType: "other",
			Amount:   decimal.NewFromInt(900),
		},
		stripe.InvoiceLine{
			PriceID:   "price_pro",
			LineType:  "other",
			Proration: true,
			Amount:    decimal.NewFromInt(500),
		},
	)
	s.NoError(s.invoices.HandlePaymentSucceeded(s.GetContext(), env))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(acct.SubscriptionCredits))
}

func (s *InvoiceServiceSuite) TestPaymentSucceededNoResolvableLine() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := subscriptionInvoice("in_1", "cus_1", stripe.InvoiceLine{
		PriceID:  "price_unconfigured",
		LineType: stripe.LineTypeSubscription,
		Amount:   decimal.NewFromInt(900),
	})
	err := s.invoices.HandlePaymentSucceeded(s.GetContext(), env)
	s.Error(err)
	s.True(ierr.IsNoResolvablePrice(err))
}

func (s *InvoiceServiceSuite) TestPaymentSucceededMissingProfile() {
	env := subscriptionInvoice("in_1", "cus_unknown", stripe.InvoiceLine{
		PriceID:  "price_starter",
		LineType: stripe.LineTypeSubscription,
		Amount:   decimal.NewFromInt(900),
	})
	err := s.invoices.HandlePaymentSucceeded(s.GetContext(), env)
	s.Error(err)
	s.True(ierr.IsProfileNotFound(err))
}

func (s *InvoiceServiceSuite) TestPaymentSucceededIgnoresNonSubscriptionInvoice() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	env := &stripe.InvoiceEnvelope{
		ID:         "in_1",
		CustomerID: "cus_1",
		Lines: []stripe.InvoiceLine{
			{PriceID: "price_starter", LineType: stripe.LineTypeSubscription},
		},
	}
	s.NoError(s.invoices.HandlePaymentSucceeded(s.GetContext(), env))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Empty(txs)
}

func (s *InvoiceServiceSuite) TestPaymentFailedMarksPastDueWithoutLedgerWrites() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 100, 0)

	env := subscriptionInvoice("in_1", "cus_1")
	s.NoError(s.invoices.HandlePaymentFailed(s.GetContext(), env))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, acct.SubscriptionStatus)
	s.True(decimal.NewFromInt(100).Equal(acct.SubscriptionCredits))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Empty(txs)
}
