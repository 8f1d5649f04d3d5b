package catalog

import (
	"github.com/creditrail/creditrail/internal/config"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PlanDefinition is a subscription plan in the static catalog.
type PlanDefinition struct {
	Key             string               `json:"key"`
	PriceID         string               `json:"price_id"`
	CreditsPerCycle decimal.Decimal      `json:"credits_per_cycle"`
	MaxRollover     *decimal.Decimal     `json:"max_rollover,omitempty"` // nil = uncapped
	ExpirationMode  types.ExpirationMode `json:"expiration_mode"`
}

// PackDefinition is a one-time credit pack in the static catalog.
type PackDefinition struct {
	Key     string          `json:"key"`
	PriceID string          `json:"price_id"`
	Credits decimal.Decimal `json:"credits"`
}

// MatchKind discriminates what a price id resolved to.
type MatchKind string

const (
	MatchKindPlan MatchKind = "plan"
	MatchKindPack MatchKind = "pack"
)

// Match is the result of resolving a price id against the catalog. Exactly
// one of Plan/Pack is set, according to Kind.
type Match struct {
	Kind MatchKind       `json:"kind"`
	Plan *PlanDefinition `json:"plan,omitempty"`
	Pack *PackDefinition `json:"pack,omitempty"`
}

// PlanFromConfig converts a config entry to a domain plan definition.
func PlanFromConfig(c config.PlanConfig) *PlanDefinition {
	var maxRollover *decimal.Decimal
	if c.MaxRollover != nil {
		maxRollover = lo.ToPtr(decimal.NewFromInt(*c.MaxRollover))
	}
	return &PlanDefinition{
		Key:             c.Key,
		PriceID:         c.PriceID,
		CreditsPerCycle: decimal.NewFromInt(c.CreditsPerCycle),
		MaxRollover:     maxRollover,
		ExpirationMode:  c.ExpirationMode,
	}
}

// PackFromConfig converts a config entry to a domain pack definition.
func PackFromConfig(c config.PackConfig) *PackDefinition {
	return &PackDefinition{
		Key:     c.Key,
		PriceID: c.PriceID,
		Credits: decimal.NewFromInt(c.Credits),
	}
}
