// Package restriction stores the per-asset transfer policy record.
package restriction

import (
	"context"
	"sync"

	"assetup/internal/restriction/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type InMemory struct {
	mu           sync.RWMutex
	restrictions map[id.AssetID]models.Restriction
}

func NewInMemory() *InMemory {
	return &InMemory{restrictions: make(map[id.AssetID]models.Restriction)}
}

// Set replaces any existing restriction for the asset.
func (s *InMemory) Set(_ context.Context, r models.Restriction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.GeographicAllowed = append([]string(nil), r.GeographicAllowed...)
	s.restrictions[r.AssetID] = r
	return nil
}

func (s *InMemory) Get(_ context.Context, assetID id.AssetID) (*models.Restriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restrictions[assetID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := r
	out.GeographicAllowed = append([]string(nil), r.GeographicAllowed...)
	return &out, nil
}

func (s *InMemory) Remove(_ context.Context, assetID id.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.restrictions, assetID)
	return nil
}
