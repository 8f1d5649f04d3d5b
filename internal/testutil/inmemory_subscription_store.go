package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/creditrail/creditrail/internal/domain/subscription"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription.Subscription
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subscriptions: make(map[string]*subscription.Subscription),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	cp := *sub
	if sub.CurrentPeriodStart != nil {
		cp.CurrentPeriodStart = lo.ToPtr(*sub.CurrentPeriodStart)
	}
	if sub.CurrentPeriodEnd != nil {
		cp.CurrentPeriodEnd = lo.ToPtr(*sub.CurrentPeriodEnd)
	}
	if sub.CanceledAt != nil {
		cp.CanceledAt = lo.ToPtr(*sub.CanceledAt)
	}
	return &cp
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copySubscription(sub)
	now := time.Now().UTC()
	if existing, ok := s.subscriptions[sub.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.subscriptions[sub.ID] = cp
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, subscriptionNotFound(id)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetByUserID(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID != userID {
			continue
		}
		subs = append(subs, copySubscription(sub))
	}
	if len(subs) == 0 {
		return nil, subscriptionNotFound(userID)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].UpdatedAt.After(subs[j].UpdatedAt)
	})
	return subs, nil
}

// Clear removes all subscriptions
func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]*subscription.Subscription)
}

func subscriptionNotFound(key string) error {
	return ierr.NewError("subscription not found").
		WithHintf("No subscription found for %s", key).
		Mark(ierr.ErrNotFound)
}
