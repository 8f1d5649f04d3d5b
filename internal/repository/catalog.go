package repository

import (
	"context"

	"github.com/creditrail/creditrail/internal/config"
	"github.com/creditrail/creditrail/internal/domain/catalog"
	ierr "github.com/creditrail/creditrail/internal/errors"
)

// staticCatalogResolver resolves price ids against the configured plan/pack
// catalog. The catalog is read-only at runtime, so lookups are plain map
// reads with no locking.
type staticCatalogResolver struct {
	plans map[string]*catalog.PlanDefinition // by price id
	packs map[string]*catalog.PackDefinition // by price id
}

// NewStaticCatalogResolver builds a resolver from configuration. Config
// validation has already rejected duplicate price ids.
func NewStaticCatalogResolver(cfg *config.Configuration) catalog.Resolver {
	plans := make(map[string]*catalog.PlanDefinition, len(cfg.Catalog.Plans))
	for _, p := range cfg.Catalog.Plans {
		plans[p.PriceID] = catalog.PlanFromConfig(p)
	}
	packs := make(map[string]*catalog.PackDefinition, len(cfg.Catalog.Packs))
	for _, p := range cfg.Catalog.Packs {
		packs[p.PriceID] = catalog.PackFromConfig(p)
	}
	return &staticCatalogResolver{plans: plans, packs: packs}
}

func (r *staticCatalogResolver) Resolve(ctx context.Context, priceID string) (*catalog.Match, error) {
	if plan, ok := r.plans[priceID]; ok {
		return &catalog.Match{Kind: catalog.MatchKindPlan, Plan: plan}, nil
	}
	if pack, ok := r.packs[priceID]; ok {
		return &catalog.Match{Kind: catalog.MatchKindPack, Pack: pack}, nil
	}
	return nil, unknownPriceID(priceID)
}

func (r *staticCatalogResolver) ResolvePlan(ctx context.Context, priceID string) (*catalog.PlanDefinition, error) {
	if plan, ok := r.plans[priceID]; ok {
		return plan, nil
	}
	return nil, unknownPriceID(priceID)
}

func (r *staticCatalogResolver) ResolvePack(ctx context.Context, priceID string) (*catalog.PackDefinition, error) {
	if pack, ok := r.packs[priceID]; ok {
		return pack, nil
	}
	return nil, unknownPriceID(priceID)
}

func unknownPriceID(priceID string) error {
	return ierr.NewError("price id is not in the catalog").
		WithHintf("Price %s is not configured; add it to the catalog before redelivering", priceID).
		WithReportableDetails(map[string]any{
			"price_id": priceID,
		}).
		Mark(ierr.ErrUnknownPriceID)
}
