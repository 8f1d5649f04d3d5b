package testutil

import (
	"context"
	"sync"

	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/integration/stripe"
)

var _ stripe.Gateway = (*MockStripeGateway)(nil)

// MockStripeGateway is a canned-response payment provider gateway for tests.
type MockStripeGateway struct {
	mu            sync.RWMutex
	subscriptions map[string]*stripe.SubscriptionSnapshot
}

// NewMockStripeGateway creates a new mock gateway
func NewMockStripeGateway() *MockStripeGateway {
	return &MockStripeGateway{
		subscriptions: make(map[string]*stripe.SubscriptionSnapshot),
	}
}

// SetSubscription registers a snapshot to be returned by GetSubscription.
func (g *MockStripeGateway) SetSubscription(snap *stripe.SubscriptionSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscriptions[snap.ID] = snap
}

func (g *MockStripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.SubscriptionSnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap, ok := g.subscriptions[subscriptionID]
	if !ok {
		return nil, ierr.NewError("subscription not found at provider").
			WithHintf("No provider subscription %s", subscriptionID).
			Mark(ierr.ErrHTTPClient)
	}
	cp := *snap
	return &cp, nil
}

// Clear removes all canned subscriptions
func (g *MockStripeGateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscriptions = make(map[string]*stripe.SubscriptionSnapshot)
}
