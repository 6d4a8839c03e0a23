package service

import (
	"context"
	"errors"

	"assetup/internal/insurance/models"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/requestcontext"
)

// ClaimParams carries the inputs for FileClaim.
type ClaimParams struct {
	PolicyID id.PolicyID
	Claimant id.Principal
	Type     models.ClaimType
	Amount   amount.Amount
}

// FileClaim opens a claim against an active policy.
func (s *Service) FileClaim(ctx context.Context, p ClaimParams) (*models.Claim, error) {
	if err := s.verifier.RequireActor(ctx, p.Claimant); err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim amount must be positive")
	}

	policy, err := s.GetPolicy(ctx, p.PolicyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyActive {
		return nil, dErrors.Newf(dErrors.CodeStateConflict, "claims require an active policy, not %s", policy.Status)
	}

	c := &models.Claim{
		ID:       id.NewPolicyID(),
		PolicyID: p.PolicyID,
		AssetID:  policy.AssetID,
		Claimant: p.Claimant,
		Type:     p.Type,
		Amount:   p.Amount,
		Status:   models.ClaimSubmitted,
		FiledAt:  requestcontext.Now(ctx),
	}
	if err := s.claims.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "claim already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to file claim")
	}
	return c, nil
}

// ReviewClaim moves a submitted claim under review. Policy insurer only.
func (s *Service) ReviewClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal) error {
	return s.transitionClaim(ctx, claimID, insurer, func(c *models.Claim) error {
		if c.Status != models.ClaimSubmitted {
			return dErrors.Newf(dErrors.CodeStateConflict, "claim cannot move to review from status %s", c.Status)
		}
		c.Status = models.ClaimUnderReview
		return nil
	})
}

// ApproveClaim approves an under-review claim for the given amount, capped
// by the policy's coverage. Policy insurer only.
func (s *Service) ApproveClaim(ctx context.Context, claimID models.ClaimID, approvedAmount amount.Amount, insurer id.Principal) error {
	if !approvedAmount.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "approved amount must be positive")
	}
	return s.transitionClaim(ctx, claimID, insurer, func(c *models.Claim) error {
		if c.Status != models.ClaimUnderReview {
			return dErrors.Newf(dErrors.CodeStateConflict, "claim cannot be approved from status %s", c.Status)
		}
		policy, err := s.GetPolicy(ctx, c.PolicyID)
		if err != nil {
			return err
		}
		if approvedAmount.Cmp(policy.Coverage) > 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "approved amount exceeds coverage")
		}
		c.Status = models.ClaimApproved
		c.ApprovedAmount = approvedAmount
		return nil
	})
}

// RejectClaim rejects a submitted or under-review claim. Policy insurer only.
func (s *Service) RejectClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal) error {
	return s.transitionClaim(ctx, claimID, insurer, func(c *models.Claim) error {
		if c.Status != models.ClaimSubmitted && c.Status != models.ClaimUnderReview {
			return dErrors.Newf(dErrors.CodeStateConflict, "claim cannot be rejected from status %s", c.Status)
		}
		c.Status = models.ClaimRejected
		return nil
	})
}

// DisputeClaim lets the claimant contest a rejection.
func (s *Service) DisputeClaim(ctx context.Context, claimID models.ClaimID, claimant id.Principal) error {
	if err := s.verifier.RequireActor(ctx, claimant); err != nil {
		return err
	}
	c, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if claimant != c.Claimant {
		return dErrors.New(dErrors.CodeUnauthorized, "only the claimant may dispute")
	}
	if c.Status != models.ClaimRejected {
		return dErrors.Newf(dErrors.CodeStateConflict, "claim cannot be disputed from status %s", c.Status)
	}

	c.Status = models.ClaimDisputed
	if err := s.claims.Update(ctx, c); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claim")
	}
	return nil
}

// PayClaim settles an approved claim. Policy insurer only.
func (s *Service) PayClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal) error {
	return s.transitionClaim(ctx, claimID, insurer, func(c *models.Claim) error {
		if c.Status != models.ClaimApproved {
			return dErrors.Newf(dErrors.CodeStateConflict, "claim cannot be paid from status %s", c.Status)
		}
		c.Status = models.ClaimPaid
		return nil
	})
}

// GetClaim returns the claim record.
func (s *Service) GetClaim(ctx context.Context, claimID models.ClaimID) (*models.Claim, error) {
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	return c, nil
}

// AssetClaims lists claim IDs filed against a registered asset.
func (s *Service) AssetClaims(ctx context.Context, assetID id.RegistryID) ([]models.ClaimID, error) {
	ids, err := s.claims.ByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return ids, nil
}

// transitionClaim loads the claim, checks the caller is the policy's
// insurer, applies the transition, and persists.
func (s *Service) transitionClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal, apply func(*models.Claim) error) error {
	if err := s.verifier.RequireActor(ctx, insurer); err != nil {
		return err
	}
	c, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	policy, err := s.GetPolicy(ctx, c.PolicyID)
	if err != nil {
		return err
	}
	if insurer != policy.Insurer {
		return dErrors.New(dErrors.CodeUnauthorized, "only the policy insurer may act on this claim")
	}
	if err := apply(c); err != nil {
		return err
	}
	if err := s.claims.Update(ctx, c); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update claim")
	}
	return nil
}
