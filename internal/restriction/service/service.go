// Package service implements the restriction gate: the per-asset whitelist
// and accreditation policy every transfer must clear before committing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"assetup/internal/restriction/models"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/requestcontext"
)

// RestrictionStore persists the per-asset policy record.
type RestrictionStore interface {
	Set(ctx context.Context, r models.Restriction) error
	Get(ctx context.Context, assetID id.AssetID) (*models.Restriction, error)
	Remove(ctx context.Context, assetID id.AssetID) error
}

// WhitelistStore persists the ordered allow-list. Add and Remove report
// whether the set changed so the service can skip events on no-ops.
type WhitelistStore interface {
	Add(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error)
	Remove(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error)
	Contains(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error)
	List(ctx context.Context, assetID id.AssetID) ([]id.Principal, error)
}

// Service evaluates transfer policy. It implements the token service's
// TransferGate.
type Service struct {
	restrictions RestrictionStore
	whitelist    WhitelistStore
	events       ledgerevents.Publisher
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher ledgerevents.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

func New(restrictions RestrictionStore, whitelist WhitelistStore, opts ...Option) (*Service, error) {
	if restrictions == nil {
		return nil, fmt.Errorf("restriction store is required")
	}
	if whitelist == nil {
		return nil, fmt.Errorf("whitelist store is required")
	}

	svc := &Service{
		restrictions: restrictions,
		whitelist:    whitelist,
		events:       ledgerevents.NopPublisher{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SetRestriction replaces the asset's policy record wholesale.
func (s *Service) SetRestriction(ctx context.Context, assetID id.AssetID, requireAccredited bool, geographicAllowed []string) error {
	r := models.Restriction{
		AssetID:           assetID,
		RequireAccredited: requireAccredited,
		GeographicAllowed: geographicAllowed,
		UpdatedAt:         requestcontext.Now(ctx),
	}
	if err := s.restrictions.Set(ctx, r); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set restriction")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicTransfer,
		Action:    ledgerevents.ActionRestrictionSet,
		AssetID:   assetID,
		Reference: fmt.Sprintf("require_accredited=%t", requireAccredited),
	})
	return nil
}

// GetRestriction returns the asset's policy record.
func (s *Service) GetRestriction(ctx context.Context, assetID id.AssetID) (*models.Restriction, error) {
	r, err := s.restrictions.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no restriction set")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load restriction")
	}
	return r, nil
}

// AddToWhitelist appends a principal. Adding a present principal is a no-op
// and emits no event.
func (s *Service) AddToWhitelist(ctx context.Context, assetID id.AssetID, principal id.Principal) error {
	if principal.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	changed, err := s.whitelist.Add(ctx, assetID, principal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add to whitelist")
	}
	if !changed {
		return nil
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicTransfer,
		Action:    ledgerevents.ActionWhitelistAdded,
		AssetID:   assetID,
		Principal: principal,
	})
	return nil
}

// RemoveFromWhitelist deletes a principal. Removing an absent principal is a
// no-op and emits no event.
func (s *Service) RemoveFromWhitelist(ctx context.Context, assetID id.AssetID, principal id.Principal) error {
	changed, err := s.whitelist.Remove(ctx, assetID, principal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove from whitelist")
	}
	if !changed {
		return nil
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicTransfer,
		Action:    ledgerevents.ActionWhitelistRemoved,
		AssetID:   assetID,
		Principal: principal,
	})
	return nil
}

// IsWhitelisted reports membership.
func (s *Service) IsWhitelisted(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	present, err := s.whitelist.Contains(ctx, assetID, principal)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check whitelist")
	}
	return present, nil
}

// Whitelist returns the allow-list in insertion order.
func (s *Service) Whitelist(ctx context.Context, assetID id.AssetID) ([]id.Principal, error) {
	list, err := s.whitelist.List(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list whitelist")
	}
	return list, nil
}

// ValidateTransfer applies the gate in order:
//
//  1. A non-empty whitelist must contain the recipient.
//  2. When a restriction record requires accreditation, the recipient must
//     also appear in the whitelist, which doubles as the accreditation
//     registry. Without a restriction record this check is skipped.
//
// An empty whitelist with no restriction record allows everything.
func (s *Service) ValidateTransfer(ctx context.Context, assetID id.AssetID, from, to id.Principal) error {
	list, err := s.whitelist.List(ctx, assetID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load whitelist")
	}
	listed := false
	for _, p := range list {
		if p == to {
			listed = true
			break
		}
	}
	if len(list) > 0 && !listed {
		return dErrors.New(dErrors.CodeRestrictionViolation, "recipient is not whitelisted")
	}

	r, err := s.restrictions.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load restriction")
	}

	if r.RequireAccredited && !listed {
		return dErrors.New(dErrors.CodeRestrictionViolation, "accredited investor verification required")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
