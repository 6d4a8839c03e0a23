package lock

import (
	"context"
	"sync"

	"assetup/internal/token/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type lockKey struct {
	asset  id.AssetID
	holder id.Principal
}

// InMemory keeps time-locks in a map. Expiry is evaluated by the service
// against the ledger clock, not here; the store only records presence.
type InMemory struct {
	mu    sync.RWMutex
	locks map[lockKey]models.Lock
}

func NewInMemory() *InMemory {
	return &InMemory{locks: make(map[lockKey]models.Lock)}
}

func (s *InMemory) Set(_ context.Context, lock models.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lockKey{lock.AssetID, lock.Holder}] = lock
	return nil
}

func (s *InMemory) Get(_ context.Context, assetID id.AssetID, holder id.Principal) (*models.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[lockKey{assetID, holder}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := lock
	return &copied, nil
}

func (s *InMemory) Remove(_ context.Context, assetID id.AssetID, holder id.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, lockKey{assetID, holder})
	return nil
}
