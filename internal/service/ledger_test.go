package service

import (
	"testing"

	"github.com/creditrail/creditrail/internal/domain/catalog"
	"github.com/creditrail/creditrail/internal/domain/ledger"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/testutil"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceSuite struct {
	testutil.BaseServiceTestSuite
	ledger LedgerService
	plans  PlanService
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite)
	s.ledger = NewLedgerService(params)
	s.plans = NewPlanService(params)
}

func (s *LedgerServiceSuite) mustPlan(priceID string) *catalog.PlanDefinition {
	plan, err := s.plans.ResolvePlan(s.GetContext(), priceID)
	s.Require().NoError(err)
	return plan
}

func (s *LedgerServiceSuite) mustPack(priceID string) *catalog.PackDefinition {
	pack, err := s.plans.ResolvePack(s.GetContext(), priceID)
	s.Require().NoError(err)
	return pack
}

func (s *LedgerServiceSuite) TestApplyCycleGrantFull() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 100, 0)

	result, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", s.mustPlan("price_starter"), types.InvoiceReference("in_1"))
	s.NoError(err)
	s.False(result.AlreadyApplied)
	s.True(decimal.NewFromInt(100).Equal(result.Delta))
	s.True(decimal.NewFromInt(200).Equal(result.NewBalance))
	s.True(result.ExpiredAmount.IsZero())

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(200).Equal(acct.SubscriptionCredits))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
	s.Equal(types.TransactionTypeSubscription, txs[0].Type)
	s.Equal(types.CreditPoolSubscription, txs[0].Pool)
	s.True(decimal.NewFromInt(100).Equal(txs[0].Amount))
}

func (s *LedgerServiceSuite) TestApplyCycleGrantPartiallyCapped() {
	// pro: 1000 per cycle, rollover cap 1200.
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 1100, 0)

	result, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", s.mustPlan("price_pro"), types.InvoiceReference("in_1"))
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(result.Delta))
	s.True(decimal.NewFromInt(1200).Equal(result.NewBalance))
	s.True(result.ExpiredAmount.IsZero())

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
	s.True(decimal.NewFromInt(100).Equal(txs[0].Amount))
}

func (s *LedgerServiceSuite) TestApplyCycleGrantAtCapWritesNothing() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 600, 0)

	result, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", s.mustPlan("price_starter"), types.InvoiceReference("in_1"))
	s.NoError(err)
	s.True(result.Delta.IsZero())
	s.True(decimal.NewFromInt(600).Equal(result.NewBalance))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Empty(txs)
}

func (s *LedgerServiceSuite) TestApplyCycleGrantDowngradePullsBalanceDown() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 2000, 0)

	result, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", s.mustPlan("price_starter"), types.InvoiceReference("in_1"))
	s.NoError(err)
	s.True(decimal.NewFromInt(-1400).Equal(result.Delta))
	s.True(decimal.NewFromInt(600).Equal(result.NewBalance))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(600).Equal(acct.SubscriptionCredits))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
	s.True(decimal.NewFromInt(-1400).Equal(txs[0].Amount))
}

func (s *LedgerServiceSuite) TestApplyCycleGrantExpiringModeZeroesBothPools() {
	// cycle plan: 100 per cycle, end_of_cycle. The whole combined prior
	// balance expires, the grant lands in the subscription pool.
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 300, 200)

	result, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", s.mustPlan("price_cycle"), types.InvoiceReference("in_1"))
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(result.Delta))
	s.True(decimal.NewFromInt(100).Equal(result.NewBalance))
	s.True(decimal.NewFromInt(500).Equal(result.ExpiredAmount))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(acct.SubscriptionCredits))
	s.True(acct.PurchasedCredits.IsZero())

	// Two expiration entries (one per pool) plus the grant.
	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 3)

	var expirations, grants int
	for _, tx := range txs {
		switch tx.Type {
		case types.TransactionTypeExpiration:
			expirations++
		case types.TransactionTypeSubscription:
			grants++
		}
	}
	s.Equal(2, expirations)
	s.Equal(1, grants)
}

func (s *LedgerServiceSuite) TestApplyCycleGrantReplayIsNoOp() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	ref := types.InvoiceReference("in_1")
	plan := s.mustPlan("price_starter")

	first, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", plan, ref)
	s.NoError(err)
	s.False(first.AlreadyApplied)

	second, err := s.ledger.ApplyCycleGrant(s.GetContext(), "user_1", plan, ref)
	s.NoError(err)
	s.True(second.AlreadyApplied)

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(acct.SubscriptionCredits))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
}

func (s *LedgerServiceSuite) TestApplyPackGrant() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	result, err := s.ledger.ApplyPackGrant(s.GetContext(), "user_1", s.mustPack("price_pack_small"), types.IntentReference("pi_1"))
	s.NoError(err)
	s.False(result.AlreadyApplied)
	s.True(decimal.NewFromInt(500).Equal(result.NewBalance))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(500).Equal(acct.PurchasedCredits))
	s.True(acct.SubscriptionCredits.IsZero())

	replay, err := s.ledger.ApplyPackGrant(s.GetContext(), "user_1", s.mustPack("price_pack_small"), types.IntentReference("pi_1"))
	s.NoError(err)
	s.True(replay.AlreadyApplied)

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
}

func (s *LedgerServiceSuite) TestApplyClawbackPartialThenCumulative() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	ref := types.IntentReference("pi_1")
	_, err := s.ledger.ApplyPackGrant(s.GetContext(), "user_1", s.mustPack("price_pack_small"), ref)
	s.Require().NoError(err)

	// First partial refund: 200 of the 500 grant.
	result, err := s.ledger.ApplyClawback(s.GetContext(), "user_1", ref, decimal.NewFromInt(200))
	s.NoError(err)
	s.True(decimal.NewFromInt(200).Equal(result.Reversed))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(300).Equal(acct.PurchasedCredits))

	// Second event reports the cumulative refunded amount (350); only the
	// additional 150 is reversed.
	result, err = s.ledger.ApplyClawback(s.GetContext(), "user_1", ref, decimal.NewFromInt(350))
	s.NoError(err)
	s.True(decimal.NewFromInt(150).Equal(result.Reversed))

	acct, err = s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(150).Equal(acct.PurchasedCredits))

	// A replay of the same cumulative amount reverses nothing further.
	result, err = s.ledger.ApplyClawback(s.GetContext(), "user_1", ref, decimal.NewFromInt(350))
	s.NoError(err)
	s.True(result.Reversed.IsZero())
}

func (s *LedgerServiceSuite) TestApplyClawbackNeverExceedsNetGrant() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)
	ref := types.IntentReference("pi_1")
	_, err := s.ledger.ApplyPackGrant(s.GetContext(), "user_1", s.mustPack("price_pack_small"), ref)
	s.Require().NoError(err)

	result, err := s.ledger.ApplyClawback(s.GetContext(), "user_1", ref, decimal.NewFromInt(10000))
	s.NoError(err)
	s.True(decimal.NewFromInt(500).Equal(result.Reversed))

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(acct.PurchasedCredits.IsZero())

	// The reference group nets to zero, never negative.
	group, err := s.GetStores().LedgerRepo.FindGroupByReference(s.GetContext(), "user_1", ref)
	s.NoError(err)
	s.True(ledger.NetAmount(group).IsZero())
}

func (s *LedgerServiceSuite) TestApplyClawbackUnknownReference() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	_, err := s.ledger.ApplyClawback(s.GetContext(), "user_1", types.IntentReference("pi_missing"), decimal.NewFromInt(100))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
