package catalog

import "context"

// Resolver maps opaque provider price ids onto catalog definitions. It must
// be total over the configured catalog: unknown ids return an
// ErrUnknownPriceID-marked error, never a silent default.
type Resolver interface {
	// Resolve returns the plan or pack a price id belongs to.
	Resolve(ctx context.Context, priceID string) (*Match, error)
	// ResolvePlan is Resolve restricted to plans; a pack price id is an
	// ErrUnknownPriceID for this call.
	ResolvePlan(ctx context.Context, priceID string) (*PlanDefinition, error)
	// ResolvePack is Resolve restricted to packs.
	ResolvePack(ctx context.Context, priceID string) (*PackDefinition, error)
}
