package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	assetStore "assetup/internal/registry/store/asset"
	registrarStore "assetup/internal/registry/store/registrar"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================

type RegistryServiceSuite struct {
	suite.Suite
	service *Service
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

const adminPrincipal = id.Principal("GADMIN")

func (s *RegistryServiceSuite) SetupTest() {
	var err error
	s.service, err = New(
		assetStore.NewInMemory(), registrarStore.NewInMemory(),
		auth.AllowAll{}, adminPrincipal,
	)
	s.Require().NoError(err)
}

func (s *RegistryServiceSuite) register(ctx context.Context, owner id.Principal) id.RegistryID {
	a, err := s.service.RegisterAsset(ctx, RegisterParams{
		Name:          "Warehouse 12",
		Description:   "Dockside storage",
		PurchaseValue: amount.FromInt64(250000),
		Owner:         owner,
	}, adminPrincipal)
	s.Require().NoError(err)
	return a.ID
}

// =============================================================================
// RegisterAsset Tests
// =============================================================================

func (s *RegistryServiceSuite) TestRegisterAsset() {
	ctx := context.Background()

	s.Run("admin registers directly", func() {
		rid := s.register(ctx, "GOWNER")

		a, err := s.service.GetAsset(ctx, rid)
		s.NoError(err)
		s.Equal("Warehouse 12", a.Name)
		s.Equal(id.Principal("GOWNER"), a.Owner)

		count, err := s.service.TotalAssetCount(ctx)
		s.Require().NoError(err)
		s.Equal(uint64(1), count)
	})

	s.Run("unauthorized caller is rejected", func() {
		_, err := s.service.RegisterAsset(ctx, RegisterParams{
			Name: "Crane", Owner: "GOWNER",
		}, "GRANDO")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("granted registrar may register", func() {
		s.Require().NoError(s.service.AddRegistrar(ctx, "GREGISTRAR"))

		_, err := s.service.RegisterAsset(ctx, RegisterParams{
			Name: "Crane 3", Owner: "GOWNER",
		}, "GREGISTRAR")
		s.NoError(err)
	})

	s.Run("revoked registrar is rejected again", func() {
		s.Require().NoError(s.service.RemoveRegistrar(ctx, "GREGISTRAR"))

		_, err := s.service.RegisterAsset(ctx, RegisterParams{
			Name: "Crane 4", Owner: "GOWNER",
		}, "GREGISTRAR")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("name length is validated", func() {
		_, err := s.service.RegisterAsset(ctx, RegisterParams{
			Name: "ab", Owner: "GOWNER",
		}, adminPrincipal)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.RegisterAsset(ctx, RegisterParams{
			Name: strings.Repeat("x", 101), Owner: "GOWNER",
		}, adminPrincipal)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("negative purchase value is rejected", func() {
		_, err := s.service.RegisterAsset(ctx, RegisterParams{
			Name:          "Crane 5",
			Owner:         "GOWNER",
			PurchaseValue: amount.FromInt64(-1),
		}, adminPrincipal)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("short metadata URI is rejected", func() {
		_, err := s.service.RegisterAsset(ctx, RegisterParams{
			Name:        "Crane 6",
			Owner:       "GOWNER",
			MetadataURI: "ipfs://x",
		}, adminPrincipal)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Metadata / Ownership Tests
// =============================================================================

func (s *RegistryServiceSuite) TestUpdateMetadata() {
	ctx := context.Background()
	rid := s.register(ctx, "GOWNER")

	s.Run("owner updates description", func() {
		desc := "Renovated 2026"
		s.NoError(s.service.UpdateMetadata(ctx, rid, MetadataUpdate{Description: &desc}, "GOWNER"))

		a, err := s.service.GetAsset(ctx, rid)
		s.Require().NoError(err)
		s.Equal("Renovated 2026", a.Description)
	})

	s.Run("admin may update too", func() {
		s.NoError(s.service.UpdateMetadata(ctx, rid, MetadataUpdate{
			Attributes: map[string]string{"zone": "B"},
		}, adminPrincipal))
	})

	s.Run("stranger is rejected", func() {
		desc := "defaced"
		err := s.service.UpdateMetadata(ctx, rid, MetadataUpdate{Description: &desc}, "GRANDO")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *RegistryServiceSuite) TestTransferOwnership() {
	ctx := context.Background()
	rid := s.register(ctx, "GOWNER")

	s.Run("owner transfers and indexes move", func() {
		s.NoError(s.service.TransferOwnership(ctx, rid, "GBUYER", "GOWNER"))

		a, err := s.service.GetAsset(ctx, rid)
		s.Require().NoError(err)
		s.Equal(id.Principal("GBUYER"), a.Owner)
		s.NotNil(a.LastTransferAt)

		oldList, err := s.service.AssetsByOwner(ctx, "GOWNER")
		s.Require().NoError(err)
		s.Empty(oldList)

		newList, err := s.service.AssetsByOwner(ctx, "GBUYER")
		s.Require().NoError(err)
		s.Equal([]id.RegistryID{rid}, newList)
	})

	s.Run("previous owner can no longer transfer", func() {
		err := s.service.TransferOwnership(ctx, rid, "GOWNER", "GOWNER")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *RegistryServiceSuite) TestRetireAsset() {
	ctx := context.Background()
	rid := s.register(ctx, "GOWNER")

	s.NoError(s.service.RetireAsset(ctx, rid, "GOWNER"))

	s.Run("retire is terminal", func() {
		err := s.service.RetireAsset(ctx, rid, adminPrincipal)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("retired asset cannot change hands", func() {
		err := s.service.TransferOwnership(ctx, rid, "GBUYER", "GOWNER")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *RegistryServiceSuite) TestGetAssetMissing() {
	_, err := s.service.GetAsset(context.Background(), id.NewRegistryID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
