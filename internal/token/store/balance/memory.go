package balance

import (
	"context"
	"sync"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

// InMemory keeps per-asset balances and the incremental holder set. Each
// semantic mutation runs under one mutex section so a transfer's debit and
// credit commit together.
type InMemory struct {
	mu     sync.RWMutex
	assets map[id.AssetID]*assetBalances
}

// assetBalances tracks amounts plus the insertion-ordered holder set.
// A holder appears in order iff its amount is positive.
type assetBalances struct {
	amounts map[id.Principal]amount.Amount
	order   []id.Principal
}

func NewInMemory() *InMemory {
	return &InMemory{assets: make(map[id.AssetID]*assetBalances)}
}

func (s *InMemory) forAsset(assetID id.AssetID) *assetBalances {
	ab, ok := s.assets[assetID]
	if !ok {
		ab = &assetBalances{amounts: make(map[id.Principal]amount.Amount)}
		s.assets[assetID] = ab
	}
	return ab
}

func (s *InMemory) Get(_ context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ab, ok := s.assets[assetID]
	if !ok {
		return amount.Zero(), nil
	}
	return ab.amounts[holder], nil
}

func (s *InMemory) Holders(_ context.Context, assetID id.AssetID) ([]id.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ab, ok := s.assets[assetID]
	if !ok {
		return nil, nil
	}
	out := make([]id.Principal, len(ab.order))
	copy(out, ab.order)
	return out, nil
}

func (s *InMemory) Credit(_ context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ab := s.forAsset(assetID)
	return ab.credit(holder, amt)
}

func (s *InMemory) Debit(_ context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ab, ok := s.assets[assetID]
	if !ok {
		return sentinel.ErrInsufficient
	}
	return ab.debit(holder, amt)
}

// Move debits from and credits to as one atomic step. Insufficient funds
// leave both balances untouched.
func (s *InMemory) Move(_ context.Context, assetID id.AssetID, from, to id.Principal, amt amount.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ab, ok := s.assets[assetID]
	if !ok {
		return sentinel.ErrInsufficient
	}
	// Validate the debit before applying either side.
	current := ab.amounts[from]
	if current.Cmp(amt) < 0 {
		return sentinel.ErrInsufficient
	}
	if err := ab.debit(from, amt); err != nil {
		return err
	}
	return ab.credit(to, amt)
}

func (ab *assetBalances) credit(holder id.Principal, amt amount.Amount) error {
	current, existed := ab.amounts[holder]
	next, err := current.Add(amt)
	if err != nil {
		return err
	}
	ab.amounts[holder] = next
	if !existed || !current.IsPositive() {
		ab.order = append(ab.order, holder)
	}
	return nil
}

func (ab *assetBalances) debit(holder id.Principal, amt amount.Amount) error {
	current := ab.amounts[holder]
	if current.Cmp(amt) < 0 {
		return sentinel.ErrInsufficient
	}
	next, err := current.Sub(amt)
	if err != nil {
		return err
	}
	if next.IsZero() {
		delete(ab.amounts, holder)
		ab.removeFromOrder(holder)
		return nil
	}
	ab.amounts[holder] = next
	return nil
}

func (ab *assetBalances) removeFromOrder(holder id.Principal) {
	for i, h := range ab.order {
		if h == holder {
			ab.order = append(ab.order[:i], ab.order[i+1:]...)
			return
		}
	}
}
