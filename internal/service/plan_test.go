package service

import (
	"testing"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	plans PlanService
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.plans = NewPlanService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *PlanServiceSuite) TestResolveUnknownPrice() {
	_, err := s.plans.Resolve(s.GetContext(), "price_unconfigured")
	s.Error(err)
	s.True(ierr.IsUnknownPriceID(err))
}

func (s *PlanServiceSuite) TestSelectInvoiceLine() {
	subscription := func(priceID string) stripe.InvoiceLine {
		return stripe.InvoiceLine{PriceID: priceID, LineType: stripe.LineTypeSubscription, Amount: decimal.NewFromInt(900)}
	}
	proration := func(priceID string, amount int64) stripe.InvoiceLine {
		return stripe.InvoiceLine{PriceID: priceID, LineType: "other", Proration: true, Amount: decimal.NewFromInt(amount)}
	}
	other := func(priceID string) stripe.InvoiceLine {
		return stripe.InvoiceLine{PriceID: priceID, LineType: "other", Amount: decimal.NewFromInt(100)}
	}

	tests := []struct {
		name    string
		lines   []stripe.InvoiceLine
		want    string
		wantErr bool
	}{
		{
			name:  "single subscription line",
			lines: []stripe.InvoiceLine{subscription("price_starter")},
			want:  "price_starter",
		},
		{
			name:  "subscription line beats positive proration",
			lines: []stripe.InvoiceLine{subscription("price_starter"), proration("price_pro", 500)},
			want:  "price_starter",
		},
		{
			name:  "positive proration beats other resolvable line",
			lines: []stripe.InvoiceLine{other("price_starter"), proration("price_pro", 500)},
			want:  "price_pro",
		},
		{
			name:  "negative proration is skipped",
			lines: []stripe.InvoiceLine{proration("price_pro", -500), other("price_starter")},
			want:  "price_starter",
		},
		{
			name:  "unresolvable subscription line falls through",
			lines: []stripe.InvoiceLine{subscription("price_unconfigured"), proration("price_pro", 500)},
			want:  "price_pro",
		},
		{
			name:  "any resolvable line as last resort",
			lines: []stripe.InvoiceLine{other("price_unconfigured"), other("price_pack_small")},
			want:  "price_pack_small",
		},
		{
			name:    "no resolvable line",
			lines:   []stripe.InvoiceLine{other("price_unconfigured"), subscription("price_foreign")},
			wantErr: true,
		},
		{
			name:    "empty invoice",
			lines:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.plans.SelectInvoiceLine(s.GetContext(), tt.lines)
			if tt.wantErr {
				s.Error(err)
				s.True(ierr.IsNoResolvablePrice(err))
				return
			}
			s.NoError(err)
			s.Equal(tt.want, got)
		})
	}
}
