// Package asset persists registry records and the per-owner index.
package asset

import (
	"context"
	"sync"

	"assetup/internal/registry/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	assets  map[id.RegistryID]models.Asset
	byOwner map[id.Principal][]id.RegistryID
}

func NewInMemory() *InMemory {
	return &InMemory{
		assets:  make(map[id.RegistryID]models.Asset),
		byOwner: make(map[id.Principal][]id.RegistryID),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[a.ID]; exists {
		return sentinel.ErrConflict
	}
	s.assets[a.ID] = cloneAsset(*a)
	s.byOwner[a.Owner] = append(s.byOwner[a.Owner], a.ID)
	return nil
}

func (s *InMemory) Get(_ context.Context, registryID id.RegistryID) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[registryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneAsset(a)
	return &out, nil
}

// Update persists the record and moves the owner-index entry when the
// owner changed.
func (s *InMemory) Update(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.assets[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prev.Owner != a.Owner {
		s.byOwner[prev.Owner] = removeID(s.byOwner[prev.Owner], a.ID)
		s.byOwner[a.Owner] = append(s.byOwner[a.Owner], a.ID)
	}
	s.assets[a.ID] = cloneAsset(*a)
	return nil
}

func (s *InMemory) ByOwner(_ context.Context, owner id.Principal) ([]id.RegistryID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[owner]
	out := make([]id.RegistryID, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.assets)), nil
}

func cloneAsset(a models.Asset) models.Asset {
	if a.Attributes != nil {
		attrs := make(map[string]string, len(a.Attributes))
		for k, v := range a.Attributes {
			attrs[k] = v
		}
		a.Attributes = attrs
	}
	return a
}

func removeID(ids []id.RegistryID, target id.RegistryID) []id.RegistryID {
	for i, rid := range ids {
		if rid == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
