// Package service implements the vote-gated detokenization workflow: a
// holder proposes, the proposal accumulates balance-weighted votes, and a
// passed proposal is executed exactly once, permanently freezing the asset.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"assetup/internal/auth"
	"assetup/internal/detokenization/models"
	"assetup/internal/platform/metrics"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/platform/tx"
	"assetup/pkg/requestcontext"
)

// VoteGate answers whether a proposal has reached the asset's voting
// threshold. Implemented by the voting service.
type VoteGate interface {
	Passed(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (bool, error)
}

// AssetFinalizer flips the asset's terminal detokenized flag. Implemented
// by the token service.
type AssetFinalizer interface {
	FinalizeDetokenization(ctx context.Context, assetID id.AssetID) error
}

// ProposalStore persists one proposal slot per asset. Create assigns a
// fresh proposal ID and returns ErrConflict while a live proposal exists.
type ProposalStore interface {
	Create(ctx context.Context, p *models.Proposal) error
	Get(ctx context.Context, assetID id.AssetID) (*models.Proposal, error)
	Update(ctx context.Context, p *models.Proposal) error
}

type Service struct {
	proposals ProposalStore
	votes     VoteGate
	finalizer AssetFinalizer
	verifier  auth.Verifier
	tx        tx.Runner
	events    ledgerevents.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
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

func New(proposals ProposalStore, votes VoteGate, finalizer AssetFinalizer, verifier auth.Verifier, opts ...Option) (*Service, error) {
	if proposals == nil {
		return nil, fmt.Errorf("proposal store is required")
	}
	if votes == nil {
		return nil, fmt.Errorf("vote gate is required")
	}
	if finalizer == nil {
		return nil, fmt.Errorf("asset finalizer is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		proposals: proposals,
		votes:     votes,
		finalizer: finalizer,
		verifier:  verifier,
		tx:        tx.PassthroughRunner{},
		events:    ledgerevents.NopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Propose opens a detokenization proposal for the asset. At most one live
// proposal exists per asset.
func (s *Service) Propose(ctx context.Context, assetID id.AssetID, proposer id.Principal) (*models.Proposal, error) {
	if err := s.verifier.RequireActor(ctx, proposer); err != nil {
		return nil, err
	}

	p := &models.Proposal{
		AssetID:    assetID,
		Proposer:   proposer,
		ProposedAt: requestcontext.Now(ctx),
	}
	if err := s.proposals.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "detokenization already proposed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create proposal")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:      ledgerevents.TopicDetokenization,
		Action:     ledgerevents.ActionDetokenizeProposed,
		AssetID:    assetID,
		ProposalID: p.ProposalID,
		Principal:  proposer,
	})
	return p, nil
}

// Execute finalizes a passed proposal: the asset is marked detokenized and
// the proposal executed, both exactly once.
func (s *Service) Execute(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.get(txCtx, assetID)
		if err != nil {
			return err
		}
		if p.ProposalID != proposalID {
			return dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		if p.Executed {
			return dErrors.New(dErrors.CodeStateConflict, "proposal already executed")
		}

		passed, err := s.votes.Passed(txCtx, assetID, proposalID)
		if err != nil {
			return err
		}
		if !passed {
			return dErrors.New(dErrors.CodeUnauthorized, "detokenization not approved by vote")
		}

		if err := s.finalizer.FinalizeDetokenization(txCtx, assetID); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		p.Executed = true
		p.ExecutedAt = &now
		if err := s.proposals.Update(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark proposal executed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DetokenizationsExecuted.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:      ledgerevents.TopicDetokenization,
		Action:     ledgerevents.ActionDetokenizeExecuted,
		AssetID:    assetID,
		ProposalID: proposalID,
	})
	return nil
}

// IsActive reports whether an unexecuted proposal exists for the asset.
func (s *Service) IsActive(ctx context.Context, assetID id.AssetID) (bool, error) {
	p, err := s.proposals.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	return p.Live(), nil
}

// Get returns the asset's current proposal record.
func (s *Service) Get(ctx context.Context, assetID id.AssetID) (*models.Proposal, error) {
	return s.get(ctx, assetID)
}

func (s *Service) get(ctx context.Context, assetID id.AssetID) (*models.Proposal, error) {
	p, err := s.proposals.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	return p, nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
