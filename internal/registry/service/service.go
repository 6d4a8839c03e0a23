// Package service implements the physical-asset registry: registrar-gated
// registration, metadata stewardship, ownership transfer, and retirement.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"assetup/internal/auth"
	"assetup/internal/registry/models"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/requestcontext"
)

// AssetStore persists registry records and the owner index.
type AssetStore interface {
	Create(ctx context.Context, a *models.Asset) error
	Get(ctx context.Context, registryID id.RegistryID) (*models.Asset, error)
	Update(ctx context.Context, a *models.Asset) error
	ByOwner(ctx context.Context, owner id.Principal) ([]id.RegistryID, error)
	Count(ctx context.Context) (uint64, error)
}

// RegistrarStore persists the authorized-registrar set.
type RegistrarStore interface {
	Add(ctx context.Context, principal id.Principal) error
	Remove(ctx context.Context, principal id.Principal) error
	Contains(ctx context.Context, principal id.Principal) (bool, error)
}

type Service struct {
	assets     AssetStore
	registrars RegistrarStore
	verifier   auth.Verifier
	admin      id.Principal
	events     ledgerevents.Publisher
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher ledgerevents.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

func New(assets AssetStore, registrars RegistrarStore, verifier auth.Verifier, admin id.Principal, opts ...Option) (*Service, error) {
	if assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if registrars == nil {
		return nil, fmt.Errorf("registrar store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if admin.IsZero() {
		return nil, fmt.Errorf("admin principal is required")
	}

	svc := &Service{
		assets:     assets,
		registrars: registrars,
		verifier:   verifier,
		admin:      admin,
		events:     ledgerevents.NopPublisher{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterParams carries the inputs for RegisterAsset.
type RegisterParams struct {
	Name          string
	Description   string
	MetadataURI   string
	PurchaseValue amount.Amount
	Owner         id.Principal
	Attributes    map[string]string
}

// RegisterAsset records a new physical asset. Only the admin or an
// authorized registrar may register.
func (s *Service) RegisterAsset(ctx context.Context, p RegisterParams, caller id.Principal) (*models.Asset, error) {
	if err := s.verifier.RequireActor(ctx, caller); err != nil {
		return nil, err
	}
	authorized, err := s.isRegistrar(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized registrar")
	}

	a := &models.Asset{
		ID:            id.NewRegistryID(),
		Name:          p.Name,
		Description:   p.Description,
		MetadataURI:   p.MetadataURI,
		PurchaseValue: p.PurchaseValue,
		Owner:         p.Owner,
		Status:        models.StatusActive,
		Attributes:    p.Attributes,
		RegisteredAt:  requestcontext.Now(ctx),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.assets.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "asset already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register asset")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicRegistry,
		Action:    ledgerevents.ActionAssetRegistered,
		Principal: a.Owner,
		Reference: a.ID.String(),
	})
	return a, nil
}

// MetadataUpdate carries optional field changes; nil means keep current.
type MetadataUpdate struct {
	Description *string
	MetadataURI *string
	Attributes  map[string]string
}

// UpdateMetadata changes descriptive fields. Owner or admin only.
func (s *Service) UpdateMetadata(ctx context.Context, registryID id.RegistryID, update MetadataUpdate, caller id.Principal) error {
	if err := s.verifier.RequireActor(ctx, caller); err != nil {
		return err
	}
	a, err := s.GetAsset(ctx, registryID)
	if err != nil {
		return err
	}
	if caller != a.Owner && caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner or admin may update metadata")
	}

	if update.Description != nil {
		a.Description = *update.Description
	}
	if update.MetadataURI != nil {
		a.MetadataURI = *update.MetadataURI
	}
	if update.Attributes != nil {
		a.Attributes = update.Attributes
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.assets.Update(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update asset")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicRegistry,
		Action:    ledgerevents.ActionAssetUpdated,
		Principal: caller,
		Reference: registryID.String(),
	})
	return nil
}

// TransferOwnership reassigns the asset. Current owner only.
func (s *Service) TransferOwnership(ctx context.Context, registryID id.RegistryID, newOwner id.Principal, caller id.Principal) error {
	if err := s.verifier.RequireActor(ctx, caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}
	a, err := s.GetAsset(ctx, registryID)
	if err != nil {
		return err
	}
	if caller != a.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may transfer ownership")
	}
	if a.Status == models.StatusRetired {
		return dErrors.New(dErrors.CodeStateConflict, "asset is retired")
	}

	oldOwner := a.Owner
	now := requestcontext.Now(ctx)
	a.Owner = newOwner
	a.Status = models.StatusTransferred
	a.LastTransferAt = &now
	if err := s.assets.Update(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:        ledgerevents.TopicRegistry,
		Action:       ledgerevents.ActionAssetTransferred,
		Principal:    oldOwner,
		Counterparty: newOwner,
		Reference:    registryID.String(),
	})
	return nil
}

// RetireAsset marks the asset retired. Owner or admin only.
func (s *Service) RetireAsset(ctx context.Context, registryID id.RegistryID, caller id.Principal) error {
	if err := s.verifier.RequireActor(ctx, caller); err != nil {
		return err
	}
	a, err := s.GetAsset(ctx, registryID)
	if err != nil {
		return err
	}
	if caller != a.Owner && caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner or admin may retire an asset")
	}
	if a.Status == models.StatusRetired {
		return dErrors.New(dErrors.CodeStateConflict, "asset is already retired")
	}

	a.Status = models.StatusRetired
	if err := s.assets.Update(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retire asset")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicRegistry,
		Action:    ledgerevents.ActionAssetRetired,
		Principal: caller,
		Reference: registryID.String(),
	})
	return nil
}

// GetAsset returns the registry record.
func (s *Service) GetAsset(ctx context.Context, registryID id.RegistryID) (*models.Asset, error) {
	a, err := s.assets.Get(ctx, registryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return a, nil
}

// AssetsByOwner lists the owner's registry IDs.
func (s *Service) AssetsByOwner(ctx context.Context, owner id.Principal) ([]id.RegistryID, error) {
	ids, err := s.assets.ByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assets")
	}
	return ids, nil
}

// TotalAssetCount reports registered assets.
func (s *Service) TotalAssetCount(ctx context.Context) (uint64, error) {
	count, err := s.assets.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count assets")
	}
	return count, nil
}

// AddRegistrar authorizes a principal to register assets. Admin only.
func (s *Service) AddRegistrar(ctx context.Context, registrar id.Principal) error {
	if err := s.verifier.RequireActor(ctx, s.admin); err != nil {
		return err
	}
	if registrar.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "registrar is required")
	}
	if err := s.registrars.Add(ctx, registrar); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add registrar")
	}
	return nil
}

// RemoveRegistrar revokes a registrar. Admin only.
func (s *Service) RemoveRegistrar(ctx context.Context, registrar id.Principal) error {
	if err := s.verifier.RequireActor(ctx, s.admin); err != nil {
		return err
	}
	if err := s.registrars.Remove(ctx, registrar); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove registrar")
	}
	return nil
}

// IsAuthorizedRegistrar reports whether the principal may register assets.
// The admin is always authorized.
func (s *Service) IsAuthorizedRegistrar(ctx context.Context, principal id.Principal) (bool, error) {
	return s.isRegistrar(ctx, principal)
}

func (s *Service) isRegistrar(ctx context.Context, principal id.Principal) (bool, error) {
	if principal == s.admin {
		return true, nil
	}
	authorized, err := s.registrars.Contains(ctx, principal)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
	}
	return authorized, nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
