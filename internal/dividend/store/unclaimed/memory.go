// Package unclaimed stores per-holder accrued dividend balances awaiting
// claim.
package unclaimed

import (
	"context"
	"sync"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
)

type entryKey struct {
	asset  id.AssetID
	holder id.Principal
}

type InMemory struct {
	mu      sync.Mutex
	entries map[entryKey]amount.Amount
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[entryKey]amount.Amount)}
}

func (s *InMemory) Get(_ context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[entryKey{assetID, holder}], nil
}

func (s *InMemory) Credit(_ context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{assetID, holder}
	next, err := s.entries[key].Add(amt)
	if err != nil {
		return err
	}
	s.entries[key] = next
	return nil
}

// Take zeroes the entry and returns the amount it held, as one atomic step.
func (s *InMemory) Take(_ context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{assetID, holder}
	amt := s.entries[key]
	delete(s.entries, key)
	return amt, nil
}
