package service

import (
	"context"

	"github.com/creditrail/creditrail/internal/domain/catalog"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
)

// PlanService resolves price ids against the static catalog and selects the
// effective price line from multi-line invoices.
type PlanService interface {
	Resolve(ctx context.Context, priceID string) (*catalog.Match, error)
	ResolvePlan(ctx context.Context, priceID string) (*catalog.PlanDefinition, error)
	ResolvePack(ctx context.Context, priceID string) (*catalog.PackDefinition, error)
	// SelectInvoiceLine picks the price id that applies to an invoice.
	SelectInvoiceLine(ctx context.Context, lines []stripe.InvoiceLine) (string, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) Resolve(ctx context.Context, priceID string) (*catalog.Match, error) {
	return s.Catalog.Resolve(ctx, priceID)
}

func (s *planService) ResolvePlan(ctx context.Context, priceID string) (*catalog.PlanDefinition, error) {
	return s.Catalog.ResolvePlan(ctx, priceID)
}

func (s *planService) ResolvePack(ctx context.Context, priceID string) (*catalog.PackDefinition, error) {
	return s.Catalog.ResolvePack(ctx, priceID)
}

// SelectInvoiceLine picks one price id from an invoice's lines:
//
//  1. the first subscription-type line with a resolvable price,
//  2. else the first positive proration line with a resolvable price — on an
//     upgrade the subscription line may still carry the old plan while the
//     positive proration line carries the new one,
//  3. else the first line with any resolvable price.
//
// No match is an ErrNoResolvablePrice.
func (s *planService) SelectInvoiceLine(ctx context.Context, lines []stripe.InvoiceLine) (string, error) {
	resolvable := func(priceID string) bool {
		if priceID == "" {
			return false
		}
		_, err := s.Catalog.Resolve(ctx, priceID)
		return err == nil
	}

	for _, l := range lines {
		if l.LineType == stripe.LineTypeSubscription && resolvable(l.PriceID) {
			return l.PriceID, nil
		}
	}
	for _, l := range lines {
		if l.Proration && l.Amount.Sign() > 0 && resolvable(l.PriceID) {
			return l.PriceID, nil
		}
	}
	for _, l := range lines {
		if resolvable(l.PriceID) {
			return l.PriceID, nil
		}
	}

	return "", ierr.NewError("no invoice line resolves to a configured price").
		WithHint("None of the invoice lines reference a catalog price; check the plan catalog").
		WithReportableDetails(map[string]any{
			"line_count": len(lines),
		}).
		Mark(ierr.ErrNoResolvablePrice)
}
