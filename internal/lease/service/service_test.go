package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	"assetup/internal/lease/models"
	leaseStore "assetup/internal/lease/store/lease"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// =============================================================================
// Lease Service Test Suite
// =============================================================================
// Justification for unit tests: the lease lifecycle mixes role checks with
// clock-dependent transitions (cancel before start, expire after end); a
// pinned ledger clock makes each edge deterministic.

type LeaseServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
	t0      time.Time
	asset   id.RegistryID
}

func TestLeaseServiceSuite(t *testing.T) {
	suite.Run(t, new(LeaseServiceSuite))
}

func (s *LeaseServiceSuite) SetupTest() {
	var err error
	s.service, err = New(leaseStore.NewInMemory(), auth.AllowAll{})
	s.Require().NoError(err)

	s.t0 = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.t0)
	s.asset = id.NewRegistryID()
}

// createLease opens a lease running from t0+24h to t0+30d.
func (s *LeaseServiceSuite) createLease() *models.Lease {
	lease, err := s.service.CreateLease(s.ctx, LeaseParams{
		AssetID:       s.asset,
		Lessor:        "GLESSOR",
		Lessee:        "GLESSEE",
		Start:         s.t0.Add(24 * time.Hour),
		End:           s.t0.AddDate(0, 1, 0),
		RentPerPeriod: amount.FromInt64(500),
		Deposit:       amount.FromInt64(1000),
	})
	s.Require().NoError(err)
	return lease
}

// at shifts the ledger clock.
func (s *LeaseServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// =============================================================================
// CreateLease Tests
// =============================================================================

func (s *LeaseServiceSuite) TestCreateLease() {
	s.Run("valid lease starts active and fills the asset slot", func() {
		lease := s.createLease()
		s.Equal(models.StatusActive, lease.Status)

		active, err := s.service.AssetActiveLease(s.ctx, s.asset)
		s.Require().NoError(err)
		s.Equal(lease.ID, active.ID)

		ids, err := s.service.LesseeLeases(s.ctx, "GLESSEE")
		s.Require().NoError(err)
		s.Equal([]id.LeaseID{lease.ID}, ids)
	})

	s.Run("second lease on a leased asset is rejected", func() {
		// Fresh asset: the previous subtest left s.asset leased.
		s.asset = id.NewRegistryID()
		s.createLease()
		_, err := s.service.CreateLease(s.ctx, LeaseParams{
			AssetID:       s.asset,
			Lessor:        "GLESSOR",
			Lessee:        "GOTHER",
			Start:         s.t0,
			End:           s.t0.AddDate(0, 2, 0),
			RentPerPeriod: amount.FromInt64(700),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("inverted date range is rejected", func() {
		_, err := s.service.CreateLease(s.ctx, LeaseParams{
			AssetID:       s.asset,
			Lessor:        "GLESSOR",
			Lessee:        "GLESSEE",
			Start:         s.t0.AddDate(0, 1, 0),
			End:           s.t0,
			RentPerPeriod: amount.FromInt64(500),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("negative rent is rejected", func() {
		_, err := s.service.CreateLease(s.ctx, LeaseParams{
			AssetID:       s.asset,
			Lessor:        "GLESSOR",
			Lessee:        "GLESSEE",
			Start:         s.t0,
			End:           s.t0.AddDate(0, 1, 0),
			RentPerPeriod: amount.FromInt64(-1),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Lease Lifecycle Tests
// =============================================================================

func (s *LeaseServiceSuite) TestReturnLeasedAsset() {
	lease := s.createLease()

	s.Run("stranger cannot return", func() {
		err := s.service.ReturnLeasedAsset(s.ctx, lease.ID, "GRANDO")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("lessee returns the asset and frees the slot", func() {
		err := s.service.ReturnLeasedAsset(s.ctx, lease.ID, "GLESSEE")
		s.Require().NoError(err)

		got, err := s.service.GetLease(s.ctx, lease.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusReturned, got.Status)

		_, err = s.service.AssetActiveLease(s.ctx, s.asset)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("returned lease cannot be returned again", func() {
		err := s.service.ReturnLeasedAsset(s.ctx, lease.ID, "GLESSOR")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("freed asset can be leased again", func() {
		_, err := s.service.CreateLease(s.ctx, LeaseParams{
			AssetID:       s.asset,
			Lessor:        "GLESSOR",
			Lessee:        "GOTHER",
			Start:         s.t0,
			End:           s.t0.AddDate(0, 1, 0),
			RentPerPeriod: amount.FromInt64(600),
		})
		s.Require().NoError(err)
	})
}

func (s *LeaseServiceSuite) TestCancelLease() {
	lease := s.createLease()

	s.Run("only the lessor may cancel", func() {
		err := s.service.CancelLease(s.ctx, lease.ID, "GLESSEE")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("cancel after the start date is rejected", func() {
		started := s.at(lease.Start.Add(time.Hour))
		err := s.service.CancelLease(started, lease.ID, "GLESSOR")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("lessor cancels before the start date", func() {
		err := s.service.CancelLease(s.ctx, lease.ID, "GLESSOR")
		s.Require().NoError(err)

		got, err := s.service.GetLease(s.ctx, lease.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, got.Status)

		_, err = s.service.AssetActiveLease(s.ctx, s.asset)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cancelled lease cannot be cancelled again", func() {
		err := s.service.CancelLease(s.ctx, lease.ID, "GLESSOR")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *LeaseServiceSuite) TestExpireLease() {
	lease := s.createLease()

	s.Run("expire before the end date is rejected", func() {
		err := s.service.ExpireLease(s.ctx, lease.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("anyone expires the lease after its end date", func() {
		ended := s.at(lease.End.Add(time.Hour))
		err := s.service.ExpireLease(ended, lease.ID)
		s.Require().NoError(err)

		got, err := s.service.GetLease(s.ctx, lease.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, got.Status)
	})

	s.Run("expired lease cannot expire again", func() {
		ended := s.at(lease.End.Add(time.Hour))
		err := s.service.ExpireLease(ended, lease.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *LeaseServiceSuite) TestGetLease() {
	s.Run("unknown lease is not found", func() {
		_, err := s.service.GetLease(s.ctx, id.NewLeaseID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
