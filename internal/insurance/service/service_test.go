package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	"assetup/internal/insurance/models"
	claimStore "assetup/internal/insurance/store/claim"
	policyStore "assetup/internal/insurance/store/policy"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// =============================================================================
// Insurance Service Test Suite
// =============================================================================
// Justification for unit tests: the policy and claim state machines have
// many role-by-status combinations; driving them with a pinned ledger clock
// covers each transition edge deterministically.

type InsuranceServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
	t0      time.Time
	asset   id.RegistryID
}

func TestInsuranceServiceSuite(t *testing.T) {
	suite.Run(t, new(InsuranceServiceSuite))
}

func (s *InsuranceServiceSuite) SetupTest() {
	var err error
	s.service, err = New(policyStore.NewInMemory(), claimStore.NewInMemory(), auth.AllowAll{})
	s.Require().NoError(err)

	s.t0 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.t0)
	s.asset = id.NewRegistryID()
}

func (s *InsuranceServiceSuite) createPolicy() *models.Policy {
	policy, err := s.service.CreatePolicy(s.ctx, PolicyParams{
		Holder:     "GHOLDER",
		Insurer:    "GINSURER",
		AssetID:    s.asset,
		Type:       models.PolicyProperty,
		Coverage:   amount.FromInt64(100000),
		Deductible: amount.FromInt64(5000),
		Premium:    amount.FromInt64(1200),
		StartDate:  s.t0,
		EndDate:    s.t0.AddDate(1, 0, 0),
	})
	s.Require().NoError(err)
	return policy
}

// at shifts the ledger clock.
func (s *InsuranceServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// =============================================================================
// CreatePolicy Tests
// =============================================================================

func (s *InsuranceServiceSuite) TestCreatePolicy() {
	s.Run("valid policy starts active and is indexed", func() {
		policy := s.createPolicy()
		s.Equal(models.PolicyActive, policy.Status)

		ids, err := s.service.AssetPolicies(s.ctx, s.asset)
		s.Require().NoError(err)
		s.Equal([]id.PolicyID{policy.ID}, ids)
	})

	s.Run("deductible at coverage is rejected", func() {
		_, err := s.service.CreatePolicy(s.ctx, PolicyParams{
			Holder: "GHOLDER", Insurer: "GINSURER", AssetID: s.asset,
			Coverage:   amount.FromInt64(1000),
			Deductible: amount.FromInt64(1000),
			Premium:    amount.FromInt64(10),
			StartDate:  s.t0, EndDate: s.t0.AddDate(1, 0, 0),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("start date in the past is rejected", func() {
		_, err := s.service.CreatePolicy(s.ctx, PolicyParams{
			Holder: "GHOLDER", Insurer: "GINSURER", AssetID: s.asset,
			Coverage:   amount.FromInt64(1000),
			Deductible: amount.FromInt64(100),
			Premium:    amount.FromInt64(10),
			StartDate:  s.t0.Add(-time.Hour), EndDate: s.t0.AddDate(1, 0, 0),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("inverted date range is rejected", func() {
		_, err := s.service.CreatePolicy(s.ctx, PolicyParams{
			Holder: "GHOLDER", Insurer: "GINSURER", AssetID: s.asset,
			Coverage:   amount.FromInt64(1000),
			Deductible: amount.FromInt64(100),
			Premium:    amount.FromInt64(10),
			StartDate:  s.t0.AddDate(1, 0, 0), EndDate: s.t0,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Policy Lifecycle Tests
// =============================================================================

func (s *InsuranceServiceSuite) TestCancelPolicy() {
	policy := s.createPolicy()

	s.Run("stranger cannot cancel", func() {
		err := s.service.CancelPolicy(s.ctx, policy.ID, "GRANDO")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("holder cancels an active policy", func() {
		s.NoError(s.service.CancelPolicy(s.ctx, policy.ID, "GHOLDER"))

		got, err := s.service.GetPolicy(s.ctx, policy.ID)
		s.Require().NoError(err)
		s.Equal(models.PolicyCancelled, got.Status)
	})

	s.Run("cancelled is terminal", func() {
		err := s.service.CancelPolicy(s.ctx, policy.ID, "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *InsuranceServiceSuite) TestSuspendAndRenew() {
	policy := s.createPolicy()

	s.Run("only insurer suspends", func() {
		err := s.service.SuspendPolicy(s.ctx, policy.ID, "GHOLDER")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.NoError(s.service.SuspendPolicy(s.ctx, policy.ID, "GINSURER"))
	})

	s.Run("suspended policy cannot be suspended again", func() {
		err := s.service.SuspendPolicy(s.ctx, policy.ID, "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("suspended policy cannot be renewed", func() {
		err := s.service.RenewPolicy(s.ctx, policy.ID, s.t0.AddDate(2, 0, 0), amount.FromInt64(1300), "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *InsuranceServiceSuite) TestExpireAndRenew() {
	policy := s.createPolicy()
	afterEnd := s.at(policy.EndDate.Add(time.Hour))

	s.Run("expiry before the end date is rejected", func() {
		err := s.service.ExpirePolicy(s.ctx, policy.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("anyone may expire past the end date", func() {
		s.NoError(s.service.ExpirePolicy(afterEnd, policy.ID))

		got, err := s.service.GetPolicy(s.ctx, policy.ID)
		s.Require().NoError(err)
		s.Equal(models.PolicyExpired, got.Status)
	})

	s.Run("insurer renews an expired policy back to active", func() {
		newEnd := policy.EndDate.AddDate(1, 0, 0)
		s.NoError(s.service.RenewPolicy(afterEnd, policy.ID, newEnd, amount.FromInt64(1500), "GINSURER"))

		got, err := s.service.GetPolicy(s.ctx, policy.ID)
		s.Require().NoError(err)
		s.Equal(models.PolicyActive, got.Status)
		s.Equal(amount.FromInt64(1500), got.Premium)
		s.True(got.EndDate.Equal(newEnd))
	})

	s.Run("renewal end date must be in the future", func() {
		err := s.service.RenewPolicy(afterEnd, policy.ID, s.t0, amount.FromInt64(1500), "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Claim Workflow Tests
// =============================================================================

func (s *InsuranceServiceSuite) TestClaimWorkflow() {
	policy := s.createPolicy()

	claim, err := s.service.FileClaim(s.ctx, ClaimParams{
		PolicyID: policy.ID,
		Claimant: "GHOLDER",
		Type:     models.ClaimDamage,
		Amount:   amount.FromInt64(20000),
	})
	s.Require().NoError(err)
	s.Equal(models.ClaimSubmitted, claim.Status)

	s.Run("approval requires review first", func() {
		err := s.service.ApproveClaim(s.ctx, claim.ID, amount.FromInt64(15000), "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("only the policy insurer reviews", func() {
		err := s.service.ReviewClaim(s.ctx, claim.ID, "GRANDO")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.NoError(s.service.ReviewClaim(s.ctx, claim.ID, "GINSURER"))
	})

	s.Run("approval above coverage is rejected", func() {
		err := s.service.ApproveClaim(s.ctx, claim.ID, amount.FromInt64(200000), "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("approve then pay", func() {
		s.NoError(s.service.ApproveClaim(s.ctx, claim.ID, amount.FromInt64(15000), "GINSURER"))
		s.NoError(s.service.PayClaim(s.ctx, claim.ID, "GINSURER"))

		got, err := s.service.GetClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.ClaimPaid, got.Status)
		s.Equal(amount.FromInt64(15000), got.ApprovedAmount)
	})

	s.Run("paid claim cannot be paid again", func() {
		err := s.service.PayClaim(s.ctx, claim.ID, "GINSURER")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *InsuranceServiceSuite) TestClaimDispute() {
	policy := s.createPolicy()
	claim, err := s.service.FileClaim(s.ctx, ClaimParams{
		PolicyID: policy.ID, Claimant: "GHOLDER",
		Type: models.ClaimTheft, Amount: amount.FromInt64(500),
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.RejectClaim(s.ctx, claim.ID, "GINSURER"))

	s.Run("only the claimant disputes", func() {
		err := s.service.DisputeClaim(s.ctx, claim.ID, "GRANDO")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejected claim becomes disputed", func() {
		s.NoError(s.service.DisputeClaim(s.ctx, claim.ID, "GHOLDER"))

		got, err := s.service.GetClaim(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.ClaimDisputed, got.Status)
	})
}

func (s *InsuranceServiceSuite) TestFileClaimRequiresActivePolicy() {
	policy := s.createPolicy()
	s.Require().NoError(s.service.CancelPolicy(s.ctx, policy.ID, "GHOLDER"))

	_, err := s.service.FileClaim(s.ctx, ClaimParams{
		PolicyID: policy.ID, Claimant: "GHOLDER",
		Type: models.ClaimLoss, Amount: amount.FromInt64(100),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
}
