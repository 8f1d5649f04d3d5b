package testutil

import (
	"context"
	"sync"

	"github.com/creditrail/creditrail/internal/domain/webhookevent"
	ierr "github.com/creditrail/creditrail/internal/errors"
)

// InMemoryProcessedEventStore implements webhookevent.Repository
type InMemoryProcessedEventStore struct {
	mu     sync.RWMutex
	events map[string]*webhookevent.ProcessedEvent // by provider event id
}

// NewInMemoryProcessedEventStore creates a new in-memory processed event store
func NewInMemoryProcessedEventStore() *InMemoryProcessedEventStore {
	return &InMemoryProcessedEventStore{
		events: make(map[string]*webhookevent.ProcessedEvent),
	}
}

func (s *InMemoryProcessedEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[eventID]
	return ok, nil
}

func (s *InMemoryProcessedEventStore) MarkProcessed(ctx context.Context, e *webhookevent.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.EventID]; ok {
		return ierr.NewError("event already processed").
			WithHintf("Event %s has already been recorded", e.EventID).
			Mark(ierr.ErrAlreadyExists)
	}
	cp := *e
	s.events[e.EventID] = &cp
	return nil
}

// Clear removes all processed events
func (s *InMemoryProcessedEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*webhookevent.ProcessedEvent)
}
