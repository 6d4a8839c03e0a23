// Package service implements the lease lifecycle over registered assets.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"assetup/internal/auth"
	"assetup/internal/lease/models"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/requestcontext"
)

// LeaseStore persists leases, the per-asset active slot, and the lessee
// index.
type LeaseStore interface {
	Create(ctx context.Context, l *models.Lease) error
	Get(ctx context.Context, leaseID id.LeaseID) (*models.Lease, error)
	Update(ctx context.Context, l *models.Lease) error
	ActiveByAsset(ctx context.Context, assetID id.RegistryID) (*models.Lease, error)
	ByLessee(ctx context.Context, lessee id.Principal) ([]id.LeaseID, error)
}

type Service struct {
	leases   LeaseStore
	verifier auth.Verifier
	events   ledgerevents.Publisher
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher ledgerevents.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

func New(leases LeaseStore, verifier auth.Verifier, opts ...Option) (*Service, error) {
	if leases == nil {
		return nil, fmt.Errorf("lease store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		leases:   leases,
		verifier: verifier,
		events:   ledgerevents.NopPublisher{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// LeaseParams carries the inputs for CreateLease.
type LeaseParams struct {
	AssetID       id.RegistryID
	Lessor        id.Principal
	Lessee        id.Principal
	Start         time.Time
	End           time.Time
	RentPerPeriod amount.Amount
	Deposit       amount.Amount
}

// CreateLease opens a new active lease. The lessor is the acting party. An
// asset with a live lease cannot be leased again.
func (s *Service) CreateLease(ctx context.Context, p LeaseParams) (*models.Lease, error) {
	if err := s.verifier.RequireActor(ctx, p.Lessor); err != nil {
		return nil, err
	}

	lease := &models.Lease{
		ID:            id.NewLeaseID(),
		AssetID:       p.AssetID,
		Lessor:        p.Lessor,
		Lessee:        p.Lessee,
		Start:         p.Start,
		End:           p.End,
		RentPerPeriod: p.RentPerPeriod,
		Deposit:       p.Deposit,
		Status:        models.StatusActive,
	}
	if err := lease.Validate(); err != nil {
		return nil, err
	}
	if err := s.leases.Create(ctx, lease); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeStateConflict, "asset already has an active lease")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "lease already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create lease")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:        ledgerevents.TopicLease,
		Action:       ledgerevents.ActionLeaseCreated,
		Principal:    p.Lessor,
		Counterparty: p.Lessee,
		Amount:       p.RentPerPeriod.String(),
		Reference:    lease.ID.String(),
	})
	return lease, nil
}

// ReturnLeasedAsset closes an active lease. Lessor or lessee only.
func (s *Service) ReturnLeasedAsset(ctx context.Context, leaseID id.LeaseID, caller id.Principal) error {
	if err := s.verifier.RequireActor(ctx, caller); err != nil {
		return err
	}
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if caller != lease.Lessor && caller != lease.Lessee {
		return dErrors.New(dErrors.CodeUnauthorized, "only the lessor or lessee may return the asset")
	}
	if lease.Status != models.StatusActive {
		return dErrors.Newf(dErrors.CodeStateConflict, "lease cannot be returned from status %s", lease.Status)
	}

	lease.Status = models.StatusReturned
	if err := s.leases.Update(ctx, lease); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to return lease")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicLease,
		Action:    ledgerevents.ActionLeaseReturned,
		Principal: caller,
		Reference: leaseID.String(),
	})
	return nil
}

// CancelLease voids an active lease before its start date. Lessor only.
func (s *Service) CancelLease(ctx context.Context, leaseID id.LeaseID, lessor id.Principal) error {
	if err := s.verifier.RequireActor(ctx, lessor); err != nil {
		return err
	}
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if lessor != lease.Lessor {
		return dErrors.New(dErrors.CodeUnauthorized, "only the lessor may cancel")
	}
	if lease.Status != models.StatusActive {
		return dErrors.Newf(dErrors.CodeStateConflict, "lease cannot be cancelled from status %s", lease.Status)
	}
	if !requestcontext.Now(ctx).Before(lease.Start) {
		return dErrors.New(dErrors.CodeStateConflict, "lease has already started")
	}

	lease.Status = models.StatusCancelled
	if err := s.leases.Update(ctx, lease); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel lease")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicLease,
		Action:    ledgerevents.ActionLeaseCancelled,
		Principal: lessor,
		Reference: leaseID.String(),
	})
	return nil
}

// ExpireLease marks an active lease expired once its end date has passed.
// Anyone may call it.
func (s *Service) ExpireLease(ctx context.Context, leaseID id.LeaseID) error {
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if lease.Status != models.StatusActive {
		return dErrors.Newf(dErrors.CodeStateConflict, "lease cannot expire from status %s", lease.Status)
	}
	if !lease.End.Before(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeStateConflict, "lease has not reached its end date")
	}

	lease.Status = models.StatusExpired
	if err := s.leases.Update(ctx, lease); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire lease")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicLease,
		Action:    ledgerevents.ActionLeaseExpired,
		Reference: leaseID.String(),
	})
	return nil
}

// GetLease returns the lease record.
func (s *Service) GetLease(ctx context.Context, leaseID id.LeaseID) (*models.Lease, error) {
	lease, err := s.leases.Get(ctx, leaseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "lease not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lease")
	}
	return lease, nil
}

// AssetActiveLease returns the asset's live lease, if any.
func (s *Service) AssetActiveLease(ctx context.Context, assetID id.RegistryID) (*models.Lease, error) {
	lease, err := s.leases.ActiveByAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset has no active lease")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active lease")
	}
	return lease, nil
}

// LesseeLeases lists the lease IDs a principal has rented.
func (s *Service) LesseeLeases(ctx context.Context, lessee id.Principal) ([]id.LeaseID, error) {
	ids, err := s.leases.ByLessee(ctx, lessee)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list leases")
	}
	return ids, nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
