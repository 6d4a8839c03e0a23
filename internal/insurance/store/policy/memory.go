// Package policy persists insurance policies and the per-asset index.
package policy

import (
	"context"
	"sync"

	"assetup/internal/insurance/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	policies map[id.PolicyID]models.Policy
	byAsset  map[id.RegistryID][]id.PolicyID
}

func NewInMemory() *InMemory {
	return &InMemory{
		policies: make(map[id.PolicyID]models.Policy),
		byAsset:  make(map[id.RegistryID][]id.PolicyID),
	}
}

func (s *InMemory) Create(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policies[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.policies[p.ID] = *p
	s.byAsset[p.AssetID] = append(s.byAsset[p.AssetID], p.ID)
	return nil
}

func (s *InMemory) Get(_ context.Context, policyID id.PolicyID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.policies[p.ID] = *p
	return nil
}

func (s *InMemory) ByAsset(_ context.Context, assetID id.RegistryID) ([]id.PolicyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAsset[assetID]
	out := make([]id.PolicyID, len(ids))
	copy(out, ids)
	return out, nil
}
