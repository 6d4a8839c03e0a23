// Package lease persists lease records, the per-asset active slot, and the
// lessee index.
package lease

import (
	"context"
	"sync"

	"assetup/internal/lease/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	leases   map[id.LeaseID]models.Lease
	active   map[id.RegistryID]id.LeaseID
	byLessee map[id.Principal][]id.LeaseID
}

func NewInMemory() *InMemory {
	return &InMemory{
		leases:   make(map[id.LeaseID]models.Lease),
		active:   make(map[id.RegistryID]id.LeaseID),
		byLessee: make(map[id.Principal][]id.LeaseID),
	}
}

// Create stores the lease and claims the asset's active slot. Returns
// ErrInvalidState when another active lease holds the slot.
func (s *InMemory) Create(_ context.Context, l *models.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leases[l.ID]; exists {
		return sentinel.ErrConflict
	}
	if activeID, ok := s.active[l.AssetID]; ok {
		if existing, found := s.leases[activeID]; found && existing.Status == models.StatusActive {
			return sentinel.ErrInvalidState
		}
	}
	s.leases[l.ID] = *l
	s.active[l.AssetID] = l.ID
	s.byLessee[l.Lessee] = append(s.byLessee[l.Lessee], l.ID)
	return nil
}

func (s *InMemory) Get(_ context.Context, leaseID id.LeaseID) (*models.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leases[leaseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := l
	return &out, nil
}

// Update persists the record; a lease leaving Active releases the asset's
// slot.
func (s *InMemory) Update(_ context.Context, l *models.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leases[l.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.leases[l.ID] = *l
	if l.Status != models.StatusActive && s.active[l.AssetID] == l.ID {
		delete(s.active, l.AssetID)
	}
	return nil
}

// ActiveByAsset returns the asset's active lease, if any.
func (s *InMemory) ActiveByAsset(_ context.Context, assetID id.RegistryID) (*models.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	activeID, ok := s.active[assetID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	l, ok := s.leases[activeID]
	if !ok || l.Status != models.StatusActive {
		return nil, sentinel.ErrNotFound
	}
	out := l
	return &out, nil
}

func (s *InMemory) ByLessee(_ context.Context, lessee id.Principal) ([]id.LeaseID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byLessee[lessee]
	out := make([]id.LeaseID, len(ids))
	copy(out, ids)
	return out, nil
}
