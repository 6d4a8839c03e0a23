// Package whitelist stores the per-asset ordered allow-list of principals.
// The list doubles as the accredited-investor registry when an asset's
// restriction requires accreditation.
package whitelist

import (
	"context"
	"sync"

	id "assetup/pkg/domain"
)

type InMemory struct {
	mu    sync.RWMutex
	lists map[id.AssetID]*orderedSet
}

// orderedSet preserves insertion order for List while keeping Contains O(1).
type orderedSet struct {
	members map[id.Principal]struct{}
	order   []id.Principal
}

func NewInMemory() *InMemory {
	return &InMemory{lists: make(map[id.AssetID]*orderedSet)}
}

// Add appends the principal; adding a present principal is a no-op. Returns
// whether the set changed.
func (s *InMemory) Add(_ context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.lists[assetID]
	if !ok {
		set = &orderedSet{members: make(map[id.Principal]struct{})}
		s.lists[assetID] = set
	}
	if _, present := set.members[principal]; present {
		return false, nil
	}
	set.members[principal] = struct{}{}
	set.order = append(set.order, principal)
	return true, nil
}

// Remove deletes the principal; removing an absent principal is a no-op.
// Returns whether the set changed.
func (s *InMemory) Remove(_ context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.lists[assetID]
	if !ok {
		return false, nil
	}
	if _, present := set.members[principal]; !present {
		return false, nil
	}
	delete(set.members, principal)
	for i, p := range set.order {
		if p == principal {
			set.order = append(set.order[:i], set.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *InMemory) Contains(_ context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.lists[assetID]
	if !ok {
		return false, nil
	}
	_, present := set.members[principal]
	return present, nil
}

func (s *InMemory) List(_ context.Context, assetID id.AssetID) ([]id.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.lists[assetID]
	if !ok {
		return nil, nil
	}
	out := make([]id.Principal, len(set.order))
	copy(out, set.order)
	return out, nil
}
