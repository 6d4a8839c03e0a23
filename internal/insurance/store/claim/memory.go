// Package claim persists insurance claims and the per-asset index.
package claim

import (
	"context"
	"sync"

	"assetup/internal/insurance/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	claims  map[models.ClaimID]models.Claim
	byAsset map[id.RegistryID][]models.ClaimID
}

func NewInMemory() *InMemory {
	return &InMemory{
		claims:  make(map[models.ClaimID]models.Claim),
		byAsset: make(map[id.RegistryID][]models.ClaimID),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.claims[c.ID] = *c
	s.byAsset[c.AssetID] = append(s.byAsset[c.AssetID], c.ID)
	return nil
}

func (s *InMemory) Get(_ context.Context, claimID models.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *InMemory) Update(_ context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.claims[c.ID] = *c
	return nil
}

func (s *InMemory) ByAsset(_ context.Context, assetID id.RegistryID) ([]models.ClaimID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAsset[assetID]
	out := make([]models.ClaimID, len(ids))
	copy(out, ids)
	return out, nil
}
