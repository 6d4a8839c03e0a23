// Package registrar stores the set of principals authorized to register
// assets.
package registrar

import (
	"context"
	"sync"

	id "assetup/pkg/domain"
)

type InMemory struct {
	mu      sync.RWMutex
	members map[id.Principal]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.Principal]struct{})}
}

func (s *InMemory) Add(_ context.Context, principal id.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[principal] = struct{}{}
	return nil
}

func (s *InMemory) Remove(_ context.Context, principal id.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, principal)
	return nil
}

func (s *InMemory) Contains(_ context.Context, principal id.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[principal]
	return ok, nil
}
