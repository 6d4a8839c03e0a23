// Package poll stores per-proposal vote tallies and the set of principals
// that already voted.
package poll

import (
	"context"
	"sync"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

type pollKey struct {
	asset    id.AssetID
	proposal id.ProposalID
}

type pollState struct {
	tally amount.Amount
	voted map[id.Principal]struct{}
}

type InMemory struct {
	mu    sync.Mutex
	polls map[pollKey]*pollState
}

func NewInMemory() *InMemory {
	return &InMemory{polls: make(map[pollKey]*pollState)}
}

// AddVote records the voter and adds weight to the tally as one atomic
// step. Returns ErrConflict when the voter already voted.
func (s *InMemory) AddVote(_ context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal, weight amount.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pollKey{assetID, proposalID}
	poll, ok := s.polls[key]
	if !ok {
		poll = &pollState{voted: make(map[id.Principal]struct{})}
		s.polls[key] = poll
	}
	if _, voted := poll.voted[voter]; voted {
		return sentinel.ErrConflict
	}
	next, err := poll.tally.Add(weight)
	if err != nil {
		return err
	}
	poll.tally = next
	poll.voted[voter] = struct{}{}
	return nil
}

// Tally returns the accumulated weight; ErrNotFound for a proposal nobody
// has voted on.
func (s *InMemory) Tally(_ context.Context, assetID id.AssetID, proposalID id.ProposalID) (amount.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollKey{assetID, proposalID}]
	if !ok {
		return amount.Zero(), sentinel.ErrNotFound
	}
	return poll.tally, nil
}

func (s *InMemory) HasVoted(_ context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollKey{assetID, proposalID}]
	if !ok {
		return false, nil
	}
	_, voted := poll.voted[voter]
	return voted, nil
}
