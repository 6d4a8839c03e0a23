// Package revenue stores the per-asset revenue-sharing toggle.
package revenue

import (
	"context"
	"sync"

	id "assetup/pkg/domain"
)

type InMemory struct {
	mu      sync.RWMutex
	enabled map[id.AssetID]bool
}

func NewInMemory() *InMemory {
	return &InMemory{enabled: make(map[id.AssetID]bool)}
}

func (s *InMemory) SetEnabled(_ context.Context, assetID id.AssetID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.enabled[assetID] = true
	} else {
		delete(s.enabled, assetID)
	}
	return nil
}

func (s *InMemory) Enabled(_ context.Context, assetID id.AssetID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[assetID], nil
}
