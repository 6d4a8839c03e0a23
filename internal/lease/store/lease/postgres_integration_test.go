//go:build integration

package lease_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assetup/internal/lease/models"
	leasestore "assetup/internal/lease/store/lease"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/testutil/containers"
)

type PostgresLeaseSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *leasestore.Postgres
}

func TestPostgresLeaseSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLeaseSuite))
}

func (s *PostgresLeaseSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = leasestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresLeaseSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "leases")
	s.Require().NoError(err)
}

func (s *PostgresLeaseSuite) newLease(asset id.RegistryID) *models.Lease {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return &models.Lease{
		ID:            id.NewLeaseID(),
		AssetID:       asset,
		Lessor:        "GLESSOR",
		Lessee:        "GLESSEE",
		Start:         start,
		End:           start.AddDate(0, 1, 0),
		RentPerPeriod: amount.FromInt64(500),
		Deposit:       amount.FromInt64(1000),
		Status:        models.StatusActive,
	}
}

func (s *PostgresLeaseSuite) TestCreateAndActiveByAsset() {
	ctx := context.Background()
	asset := id.NewRegistryID()
	lease := s.newLease(asset)

	s.Require().NoError(s.store.Create(ctx, lease))

	got, err := s.store.ActiveByAsset(ctx, asset)
	s.Require().NoError(err)
	s.Equal(lease.ID, got.ID)
	s.Equal(models.StatusActive, got.Status)
}

func (s *PostgresLeaseSuite) TestSecondActiveLeaseRejected() {
	ctx := context.Background()
	asset := id.NewRegistryID()

	s.Require().NoError(s.store.Create(ctx, s.newLease(asset)))

	err := s.store.Create(ctx, s.newLease(asset))
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresLeaseSuite) TestReturnedLeaseFreesAsset() {
	ctx := context.Background()
	asset := id.NewRegistryID()
	lease := s.newLease(asset)

	s.Require().NoError(s.store.Create(ctx, lease))

	lease.Status = models.StatusReturned
	s.Require().NoError(s.store.Update(ctx, lease))

	_, err := s.store.ActiveByAsset(ctx, asset)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, s.newLease(asset)))
}

// TestConcurrentCreates verifies the partial unique index under contention:
// racing leases for the same asset leave exactly one active.
func (s *PostgresLeaseSuite) TestConcurrentCreates() {
	ctx := context.Background()
	asset := id.NewRegistryID()
	const goroutines = 20

	var wg sync.WaitGroup
	var created atomic.Int32
	var rejected atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.Create(ctx, s.newLease(asset))
			switch {
			case err == nil:
				created.Add(1)
			case s.ErrorIs(err, sentinel.ErrInvalidState):
				rejected.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), created.Load(), "exactly one lease should win")
	s.Equal(int32(goroutines-1), rejected.Load(), "losers should report the asset as already leased")
}
