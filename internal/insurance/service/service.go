// Package service implements the insurance policy lifecycle over registered
// assets.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"assetup/internal/auth"
	"assetup/internal/insurance/models"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/requestcontext"
)

// PolicyStore persists policies and the per-asset index.
type PolicyStore interface {
	Create(ctx context.Context, p *models.Policy) error
	Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	Update(ctx context.Context, p *models.Policy) error
	ByAsset(ctx context.Context, assetID id.RegistryID) ([]id.PolicyID, error)
}

// ClaimStore persists claims and the per-asset index.
type ClaimStore interface {
	Create(ctx context.Context, c *models.Claim) error
	Get(ctx context.Context, claimID models.ClaimID) (*models.Claim, error)
	Update(ctx context.Context, c *models.Claim) error
	ByAsset(ctx context.Context, assetID id.RegistryID) ([]models.ClaimID, error)
}

type Service struct {
	policies PolicyStore
	claims   ClaimStore
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

func New(policies PolicyStore, claims ClaimStore, verifier auth.Verifier, opts ...Option) (*Service, error) {
	if policies == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if claims == nil {
		return nil, fmt.Errorf("claim store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	svc := &Service{
		policies: policies,
		claims:   claims,
		verifier: verifier,
		events:   ledgerevents.NopPublisher{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// PolicyParams carries the inputs for CreatePolicy.
type PolicyParams struct {
	Holder     id.Principal
	Insurer    id.Principal
	AssetID    id.RegistryID
	Type       models.PolicyType
	Coverage   amount.Amount
	Deductible amount.Amount
	Premium    amount.Amount
	StartDate  time.Time
	EndDate    time.Time
	AutoRenew  bool
}

// CreatePolicy opens a new active policy. The insurer is the acting party.
func (s *Service) CreatePolicy(ctx context.Context, p PolicyParams) (*models.Policy, error) {
	if err := s.verifier.RequireActor(ctx, p.Insurer); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	policy := &models.Policy{
		ID:          id.NewPolicyID(),
		Holder:      p.Holder,
		Insurer:     p.Insurer,
		AssetID:     p.AssetID,
		Type:        p.Type,
		Coverage:    p.Coverage,
		Deductible:  p.Deductible,
		Premium:     p.Premium,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Status:      models.PolicyActive,
		AutoRenew:   p.AutoRenew,
		LastPayment: now,
	}
	if err := policy.Validate(now); err != nil {
		return nil, err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "policy already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:        ledgerevents.TopicInsurance,
		Action:       ledgerevents.ActionPolicyCreated,
		Principal:    p.Insurer,
		Counterparty: p.Holder,
		Amount:       p.Coverage.String(),
		Reference:    policy.ID.String(),
	})
	return policy, nil
}

// CancelPolicy moves an active or suspended policy to cancelled. Holder or
// insurer only.
func (s *Service) CancelPolicy(ctx context.Context, policyID id.PolicyID, caller id.Principal) error {
	if err := s.verifier.RequireActor(ctx, caller); err != nil {
		return err
	}
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if caller != policy.Holder && caller != policy.Insurer {
		return dErrors.New(dErrors.CodeUnauthorized, "only the holder or insurer may cancel")
	}
	if !policy.Cancellable() {
		return dErrors.Newf(dErrors.CodeStateConflict, "policy cannot be cancelled from status %s", policy.Status)
	}

	policy.Status = models.PolicyCancelled
	if err := s.policies.Update(ctx, policy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel policy")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicInsurance,
		Action:    ledgerevents.ActionPolicyCancelled,
		Principal: caller,
		Reference: policyID.String(),
	})
	return nil
}

// SuspendPolicy moves an active policy to suspended. Insurer only.
func (s *Service) SuspendPolicy(ctx context.Context, policyID id.PolicyID, insurer id.Principal) error {
	if err := s.verifier.RequireActor(ctx, insurer); err != nil {
		return err
	}
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if insurer != policy.Insurer {
		return dErrors.New(dErrors.CodeUnauthorized, "only the insurer may suspend")
	}
	if policy.Status != models.PolicyActive {
		return dErrors.Newf(dErrors.CodeStateConflict, "policy cannot be suspended from status %s", policy.Status)
	}

	policy.Status = models.PolicySuspended
	if err := s.policies.Update(ctx, policy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend policy")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicInsurance,
		Action:    ledgerevents.ActionPolicySuspended,
		Principal: insurer,
		Reference: policyID.String(),
	})
	return nil
}

// ExpirePolicy marks a policy expired once its end date has passed. Anyone
// may call it.
func (s *Service) ExpirePolicy(ctx context.Context, policyID id.PolicyID) error {
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if !policy.EndDate.Before(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeStateConflict, "policy has not reached its end date")
	}
	if !policy.Cancellable() {
		return dErrors.Newf(dErrors.CodeStateConflict, "policy cannot expire from status %s", policy.Status)
	}

	policy.Status = models.PolicyExpired
	if err := s.policies.Update(ctx, policy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire policy")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicInsurance,
		Action:    ledgerevents.ActionPolicyExpired,
		Reference: policyID.String(),
	})
	return nil
}

// RenewPolicy extends an active or expired policy with a new end date and
// premium, reactivating it. Insurer only.
func (s *Service) RenewPolicy(ctx context.Context, policyID id.PolicyID, newEndDate time.Time, newPremium amount.Amount, insurer id.Principal) error {
	if err := s.verifier.RequireActor(ctx, insurer); err != nil {
		return err
	}
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if insurer != policy.Insurer {
		return dErrors.New(dErrors.CodeUnauthorized, "only the insurer may renew")
	}
	if policy.Status != models.PolicyActive && policy.Status != models.PolicyExpired {
		return dErrors.Newf(dErrors.CodeStateConflict, "policy cannot be renewed from status %s", policy.Status)
	}

	now := requestcontext.Now(ctx)
	if !newEndDate.After(now) {
		return dErrors.New(dErrors.CodeInvalidInput, "new end date must be in the future")
	}
	if !newPremium.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "premium must be positive")
	}

	policy.EndDate = newEndDate
	policy.Premium = newPremium
	policy.Status = models.PolicyActive
	policy.LastPayment = now
	if err := s.policies.Update(ctx, policy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to renew policy")
	}

	s.publish(ctx, ledgerevents.Event{
		Topic:     ledgerevents.TopicInsurance,
		Action:    ledgerevents.ActionPolicyRenewed,
		Principal: insurer,
		Amount:    newPremium.String(),
		Reference: policyID.String(),
	})
	return nil
}

// GetPolicy returns the policy record.
func (s *Service) GetPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	policy, err := s.policies.Get(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return policy, nil
}

// AssetPolicies lists policy IDs covering a registered asset.
func (s *Service) AssetPolicies(ctx context.Context, assetID id.RegistryID) ([]id.PolicyID, error) {
	ids, err := s.policies.ByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return ids, nil
}

func (s *Service) publish(ctx context.Context, event ledgerevents.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	s.events.Publish(ctx, event)
}
