package service

import (
	"encoding/json"
	"testing"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/testutil"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	webhooks WebhookService
	ledger   LedgerService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite)
	plans := NewPlanService(params)
	s.ledger = NewLedgerService(params)
	invoices := NewInvoiceService(params, plans, s.ledger)
	subscriptions := NewSubscriptionService(params)
	refunds := NewRefundService(params, s.ledger)
	purchases := NewPurchaseService(params, s.ledger, subscriptions)
	s.webhooks = NewWebhookService(params, invoices, subscriptions, refunds, purchases)
}

func (s *WebhookServiceSuite) process(eventID string, eventType types.WebhookEventType, payload string) (WebhookOutcome, error) {
	return s.webhooks.ProcessEvent(s.GetContext(), eventID, eventType, json.RawMessage(payload))
}

const paidInvoicePayload = `{
	"id": "in_1",
	"customer": "cus_1",
	"subscription": "sub_1",
	"lines": {"data": [{"type": "subscription", "amount": 900, "price": {"id": "price_starter"}}]}
}`

func (s *WebhookServiceSuite) TestInvoicePaymentSucceededEndToEnd() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	outcome, err := s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(acct.SubscriptionCredits))
}

func (s *WebhookServiceSuite) TestDuplicateDeliveryIsSkipped() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	outcome, err := s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)

	outcome, err = s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.NoError(err)
	s.Equal(WebhookOutcomeDuplicate, outcome)

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
}

func (s *WebhookServiceSuite) TestManualReplayWithNewEventIDDoesNotDoubleGrant() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	_, err := s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.NoError(err)

	// Same invoice, fresh delivery id: the ledger's reference check absorbs it.
	outcome, err := s.process("evt_2", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(acct.SubscriptionCredits))

	txs, err := s.ledger.ListTransactions(s.GetContext(), "user_1", 0)
	s.NoError(err)
	s.Len(txs, 1)
}

func (s *WebhookServiceSuite) TestRetryableFailureLeavesEventUnmarked() {
	// No account yet: the delivery fails retryably. After the account shows
	// up, the same event id goes through.
	_, err := s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.Error(err)
	s.True(ierr.IsProfileNotFound(err))

	processed, err := s.GetStores().ProcessedEventRepo.IsProcessed(s.GetContext(), "evt_1")
	s.NoError(err)
	s.False(processed)

	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	outcome, err := s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)
}

func (s *WebhookServiceSuite) TestUnknownEventTypeIsIgnored() {
	outcome, err := s.process("evt_1", "customer.created", `{"id": "cus_1"}`)
	s.NoError(err)
	s.Equal(WebhookOutcomeIgnored, outcome)
}

func (s *WebhookServiceSuite) TestMissingEventIDIsRejected() {
	_, err := s.process("", types.WebhookEventTypeInvoicePaymentSucceeded, paidInvoicePayload)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WebhookServiceSuite) TestSubscriptionLifecycleEvent() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	payload := `{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"items": {"data": [{"price": {"id": "price_starter"}, "current_period_start": 1735689600, "current_period_end": 1738368000}]}
	}`
	outcome, err := s.process("evt_1", types.WebhookEventTypeSubscriptionCreated, payload)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)

	acct, err := s.GetStores().AccountRepo.Get(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, acct.SubscriptionStatus)
	s.Require().NotNil(acct.SubscriptionTier)
	s.Equal("starter", *acct.SubscriptionTier)
}

func (s *WebhookServiceSuite) TestPackPurchaseThenRefundFlow() {
	seedAccount(&s.BaseServiceTestSuite, "user_1", "cus_1", 0, 0)

	checkout := `{
		"id": "cs_1",
		"customer": "cus_1",
		"mode": "payment",
		"payment_intent": "pi_1",
		"metadata": {"price_id": "price_pack_small"}
	}`
	outcome, err := s.process("evt_1", types.WebhookEventTypeCheckoutSessionComplete, checkout)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)

	acct, err := s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(decimal.NewFromInt(500).Equal(acct.PurchasedCredits))

	refund := `{
		"object": "charge",
		"id": "ch_1",
		"customer": "cus_1",
		"payment_intent": "pi_1",
		"amount_refunded": 500
	}`
	outcome, err = s.process("evt_2", types.WebhookEventTypeChargeRefunded, refund)
	s.NoError(err)
	s.Equal(WebhookOutcomeProcessed, outcome)

	acct, err = s.ledger.GetAccount(s.GetContext(), "user_1")
	s.NoError(err)
	s.True(acct.PurchasedCredits.IsZero())
}

func (s *WebhookServiceSuite) TestMalformedPayloadIsTerminal() {
	_, err := s.process("evt_1", types.WebhookEventTypeInvoicePaymentSucceeded, `{"customer": "cus_1"}`)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
