package asset

import (
	"context"
	"sync"

	"assetup/internal/token/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

// InMemory keeps tokenized assets in a map for tests and single-node use.
type InMemory struct {
	mu     sync.RWMutex
	assets map[id.AssetID]models.TokenizedAsset
}

func NewInMemory() *InMemory {
	return &InMemory{assets: make(map[id.AssetID]models.TokenizedAsset)}
}

func (s *InMemory) Create(_ context.Context, asset *models.TokenizedAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[asset.ID]; exists {
		return sentinel.ErrConflict
	}
	s.assets[asset.ID] = *asset
	return nil
}

func (s *InMemory) Get(_ context.Context, assetID id.AssetID) (*models.TokenizedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, exists := s.assets[assetID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	copied := asset
	return &copied, nil
}

func (s *InMemory) Update(_ context.Context, asset *models.TokenizedAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[asset.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.assets[asset.ID] = *asset
	return nil
}
