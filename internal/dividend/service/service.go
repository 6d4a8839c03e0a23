// Package service implements pro-rata dividend accrual and claiming over
// the live holder set.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"assetup/internal/auth"
	"assetup/internal/platform/metrics"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/tx"
	"assetup/pkg/requestcontext"
)

// HoldingsSource reads the live ownership snapshot a distribution is split
// over. Implemented by the token service.
type HoldingsSource interface {
	Holders(ctx context.Context, assetID id.AssetID) ([]id.Principal, error)
	Balance(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	TotalSupply(ctx context.Context, assetID id.AssetID) (amount.Amount, error)
}

// UnclaimedStore persists accrued dividends awaiting claim. Take is atomic:
// it zeroes the entry and returns what it held.
type UnclaimedStore interface {
	Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	Credit(ctx context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error
	Take(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
}

// RevenueStore persists the per-asset revenue-sharing toggle.
type RevenueStore interface {
	SetEnabled(ctx context.Context, assetID id.AssetID, enabled bool) error
	Enabled(ctx context.Context, assetID id.AssetID) (bool, error)
}

type Service struct {
	holdings  HoldingsSource
	unclaimed UnclaimedStore
	revenue   RevenueStore
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

func New(holdings HoldingsSource, unclaimed UnclaimedStore, revenue RevenueStore, verifier auth.Verifier, opts ...Option) (*Service, error) {
	if holdings == nil {
		return nil, fmt.Errorf("holdings source is required")
	}
	if unclaimed == nil {
		return nil, fmt.Errorf("unclaimed store is required")
	}
	if revenue == nil {
		return nil, fmt.Errorf("revenue store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		holdings:  holdings,
		unclaimed: unclaimed,
		revenue:   revenue,
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

// Distribute splits totalAmount across the current holder set pro rata to
// balance. Each share is total * balance / supply with integer truncation;
// the rounding dust is not distributed.
func (s *Service) Distribute(ctx context.Context, assetID id.AssetID, totalAmount amount.Amount) error {
	if !totalAmount.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "distribution amount must be positive")
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		enabled, err := s.revenue.Enabled(txCtx, assetID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revenue sharing")
		}
		if !enabled {
			return dErrors.New(dErrors.CodeStateConflict, "revenue sharing is not enabled")
		}

		supply, err := s.holdings.TotalSupply(txCtx, assetID)
		if err != nil {
			return err
		}
		if !supply.IsPositive() {
			return dErrors.New(dErrors.CodeNotFound, "asset not tokenized")
		}
		holders, err := s.holdings.Holders(txCtx, assetID)
		if err != nil {
			return err
		}

		for _, holder := range holders {
			balance, err := s.holdings.Balance(txCtx, assetID, holder)
			if err != nil {
				return err
			}
			share, err := totalAmount.MulDiv(balance, supply)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeArithmeticFault, "dividend share overflow")
			}
			if !share.IsPositive() {
				continue
			}
			if err := s.unclaimed.Credit(txCtx, assetID, holder, share); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit dividend")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DividendsDistributed.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:   ledgerevents.TopicDividend,
		Action:  ledgerevents.ActionDividendsPaid,
		AssetID: assetID,
		Amount:  totalAmount.String(),
	})
	return nil
}

// Claim pays out the holder's accrued dividends and zeroes the entry.
// Actual value transfer to the holder's external account happens downstream
// of the returned amount.
func (s *Service) Claim(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	if err := s.verifier.RequireActor(ctx, holder); err != nil {
		return amount.Zero(), err
	}

	var claimed amount.Amount
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		amt, err := s.unclaimed.Take(txCtx, assetID, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim dividends")
		}
		if !amt.IsPositive() {
			return dErrors.New(dErrors.CodeNotFound, "no dividends to claim")
		}
		claimed = amt
		return nil
	})
	if err != nil {
		return amount.Zero(), err
	}

	if s.metrics != nil {
		s.metrics.DividendsClaimed.Inc()
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicDividend,
		Action:    ledgerevents.ActionDividendsClaimed,
		AssetID:   assetID,
		Principal: holder,
		Amount:    claimed.String(),
	})
	return claimed, nil
}

// Unclaimed returns the holder's accrued balance without claiming it.
func (s *Service) Unclaimed(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	amt, err := s.unclaimed.Get(ctx, assetID, holder)
	if err != nil {
		return amount.Zero(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unclaimed dividends")
	}
	return amt, nil
}

// EnableRevenueSharing turns the per-asset toggle on.
func (s *Service) EnableRevenueSharing(ctx context.Context, assetID id.AssetID) error {
	return s.setRevenueSharing(ctx, assetID, true)
}

// DisableRevenueSharing turns the toggle off. Already-accrued unclaimed
// balances stay claimable.
func (s *Service) DisableRevenueSharing(ctx context.Context, assetID id.AssetID) error {
	return s.setRevenueSharing(ctx, assetID, false)
}

func (s *Service) setRevenueSharing(ctx context.Context, assetID id.AssetID, enabled bool) error {
	if err := s.revenue.SetEnabled(ctx, assetID, enabled); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to toggle revenue sharing")
	}
	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicDividend,
		Action:    ledgerevents.ActionRevenueSharingSet,
		AssetID:   assetID,
		Reference: fmt.Sprintf("enabled=%t", enabled),
	})
	return nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
