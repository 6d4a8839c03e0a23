package memory

import (
	"context"
	"sync"

	"assetup/pkg/platform/ledgerevents"
)

// Store keeps events in memory for tests and single-node deployments.
type Store struct {
	mu     sync.RWMutex
	events []ledgerevents.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event ledgerevents.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns a copy of all stored events in append order.
func (s *Store) List(_ context.Context) []ledgerevents.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledgerevents.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByAction filters stored events by action, preserving order.
func (s *Store) ByAction(_ context.Context, action ledgerevents.Action) []ledgerevents.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledgerevents.Event
	for _, e := range s.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
