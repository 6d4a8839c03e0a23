// Package proposal stores detokenization proposals, one slot per asset.
package proposal

import (
	"context"
	"sync"

	"assetup/internal/detokenization/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.Mutex
	proposals map[id.AssetID]models.Proposal
	nextID    uint64
}

func NewInMemory() *InMemory {
	return &InMemory{proposals: make(map[id.AssetID]models.Proposal), nextID: 1}
}

// Create assigns a fresh proposal ID and stores the record. Returns
// ErrConflict while a live proposal occupies the asset's slot.
func (s *InMemory) Create(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.proposals[p.AssetID]; ok && existing.Live() {
		return sentinel.ErrConflict
	}
	p.ProposalID = id.ProposalID(s.nextID)
	s.nextID++
	s.proposals[p.AssetID] = *p
	return nil
}

func (s *InMemory) Get(_ context.Context, assetID id.AssetID) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[assetID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[p.AssetID]; !ok {
		return sentinel.ErrNotFound
	}
	s.proposals[p.AssetID] = *p
	return nil
}
