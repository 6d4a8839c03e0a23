// Package service implements balance-weighted proposal voting. Vote weight
// is read live from the token ledger at cast time, not frozen when the
// proposal opens.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"assetup/internal/auth"
	"assetup/internal/platform/metrics"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/platform/tx"
	"assetup/pkg/requestcontext"
)

// WeightSource reads voting weight and the pass threshold from the token
// ledger. Implemented by the token service.
type WeightSource interface {
	Balance(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	VotingThreshold(ctx context.Context, assetID id.AssetID) (amount.Amount, error)
}

// PollStore persists tallies and the voted set. AddVote is atomic and
// returns ErrConflict on a repeat vote.
type PollStore interface {
	AddVote(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal, weight amount.Amount) error
	Tally(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (amount.Amount, error)
	HasVoted(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) (bool, error)
}

type Service struct {
	weights  WeightSource
	polls    PollStore
	verifier auth.Verifier
	tx       tx.Runner
	events   ledgerevents.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher ledgerevents.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(weights WeightSource, polls PollStore, verifier auth.Verifier, opts ...Option) (*Service, error) {
	if weights == nil {
		return nil, fmt.Errorf("weight source is required")
	}
	if polls == nil {
		return nil, fmt.Errorf("poll store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		weights:  weights,
		polls:    polls,
		verifier: verifier,
		tx:       tx.PassthroughRunner{},
		events:   ledgerevents.NopPublisher{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CastVote adds the voter's current balance to the proposal's tally. Each
// principal votes at most once per proposal.
func (s *Service) CastVote(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) error {
	if err := s.verifier.RequireActor(ctx, voter); err != nil {
		return err
	}

	var weight amount.Amount
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		weight, err = s.weights.Balance(txCtx, assetID, voter)
		if err != nil {
			return err
		}
		if !weight.IsPositive() {
			return dErrors.New(dErrors.CodeInvalidInput, "insufficient voting power")
		}
		if err := s.polls.AddVote(txCtx, assetID, proposalID, voter, weight); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyExists, "already voted on this proposal")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.VotesCast.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:      ledgerevents.TopicVoting,
		Action:     ledgerevents.ActionVoteCast,
		AssetID:    assetID,
		ProposalID: proposalID,
		Principal:  voter,
		Amount:     weight.String(),
	})
	return nil
}

// Tally returns the proposal's accumulated weight. A proposal nobody has
// voted on reads as not found.
func (s *Service) Tally(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (amount.Amount, error) {
	tally, err := s.polls.Tally(ctx, assetID, proposalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return amount.Zero(), dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return amount.Zero(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tally")
	}
	return tally, nil
}

// HasVoted reports whether the voter already cast on this proposal.
func (s *Service) HasVoted(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) (bool, error) {
	voted, err := s.polls.HasVoted(ctx, assetID, proposalID, voter)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check vote record")
	}
	return voted, nil
}

// Passed reports whether the tally has reached the asset's minimum voting
// threshold. A proposal without votes counts as tally zero.
func (s *Service) Passed(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (bool, error) {
	threshold, err := s.weights.VotingThreshold(ctx, assetID)
	if err != nil {
		return false, err
	}
	tally, err := s.polls.Tally(ctx, assetID, proposalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			tally = amount.Zero()
		} else {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tally")
		}
	}
	if !threshold.IsPositive() {
		return true, nil
	}
	return tally.Cmp(threshold) >= 0, nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
