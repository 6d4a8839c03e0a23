package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	revenueStore "assetup/internal/dividend/store/revenue"
	unclaimedStore "assetup/internal/dividend/store/unclaimed"
	tokenService "assetup/internal/token/service"
	assetStore "assetup/internal/token/store/asset"
	balanceStore "assetup/internal/token/store/balance"
	lockStore "assetup/internal/token/store/lock"
	"assetup/pkg/amount"
	dErrors "assetup/pkg/domain-errors"
)

// =============================================================================
// Dividend Service Test Suite
// =============================================================================
// Justification for unit tests: pro-rata splitting with integer truncation
// and the claim-exactly-once rule are pure arithmetic invariants best pinned
// down against a real token service with known balances.

type DividendServiceSuite struct {
	suite.Suite
	tokens  *tokenService.Service
	service *Service
}

func TestDividendServiceSuite(t *testing.T) {
	suite.Run(t, new(DividendServiceSuite))
}

func (s *DividendServiceSuite) SetupTest() {
	var err error
	s.tokens, err = tokenService.New(
		assetStore.NewInMemory(), balanceStore.NewInMemory(), lockStore.NewInMemory(),
		auth.AllowAll{},
	)
	s.Require().NoError(err)

	s.service, err = New(s.tokens, unclaimedStore.NewInMemory(), revenueStore.NewInMemory(), auth.AllowAll{})
	s.Require().NoError(err)
}

// setupHolders tokenizes asset 42 with supply 1000 split 600/400 between
// A and B, with revenue sharing on.
func (s *DividendServiceSuite) setupHolders(ctx context.Context) {
	_, err := s.tokens.Tokenize(ctx, tokenService.TokenizeParams{
		AssetID:     42,
		Symbol:      "PROP",
		TotalSupply: amount.FromInt64(1000),
		Tokenizer:   "GA",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.tokens.Transfer(ctx, 42, "GA", "GB", amount.FromInt64(400)))
	s.Require().NoError(s.service.EnableRevenueSharing(ctx, 42))
}

// =============================================================================
// Distribute Tests
// =============================================================================

func (s *DividendServiceSuite) TestDistribute() {
	ctx := context.Background()
	s.setupHolders(ctx)

	s.Run("credits each holder pro rata", func() {
		s.Require().NoError(s.service.Distribute(ctx, 42, amount.FromInt64(1000)))

		a, err := s.service.Unclaimed(ctx, 42, "GA")
		s.Require().NoError(err)
		b, err := s.service.Unclaimed(ctx, 42, "GB")
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(600), a)
		s.Equal(amount.FromInt64(400), b)
	})

	s.Run("repeat distribution accrues on top", func() {
		s.Require().NoError(s.service.Distribute(ctx, 42, amount.FromInt64(100)))

		a, err := s.service.Unclaimed(ctx, 42, "GA")
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(660), a)
	})

	s.Run("integer truncation drops the remainder", func() {
		// 7 * 600/1000 = 4.2 -> 4, 7 * 400/1000 = 2.8 -> 2; 1 unit of dust.
		s.Require().NoError(s.service.Distribute(ctx, 42, amount.FromInt64(7)))

		a, err := s.service.Unclaimed(ctx, 42, "GA")
		s.Require().NoError(err)
		b, err := s.service.Unclaimed(ctx, 42, "GB")
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(664), a)
		s.Equal(amount.FromInt64(402), b)
	})

	s.Run("non-positive amount is rejected", func() {
		err := s.service.Distribute(ctx, 42, amount.Zero())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("disabled revenue sharing blocks distribution", func() {
		s.Require().NoError(s.service.DisableRevenueSharing(ctx, 42))
		err := s.service.Distribute(ctx, 42, amount.FromInt64(100))
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
		s.Contains(err.Error(), "revenue sharing")
	})

	s.Run("unknown asset is rejected", func() {
		s.Require().NoError(s.service.EnableRevenueSharing(ctx, 99))
		err := s.service.Distribute(ctx, 99, amount.FromInt64(100))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Claim Tests
// =============================================================================

func (s *DividendServiceSuite) TestClaim() {
	ctx := context.Background()
	s.setupHolders(ctx)
	s.Require().NoError(s.service.Distribute(ctx, 42, amount.FromInt64(1000)))

	s.Run("claim pays out and zeroes the entry", func() {
		claimed, err := s.service.Claim(ctx, 42, "GA")
		s.NoError(err)
		s.Equal(amount.FromInt64(600), claimed)

		remaining, err := s.service.Unclaimed(ctx, 42, "GA")
		s.Require().NoError(err)
		s.True(remaining.IsZero())
	})

	s.Run("second claim finds nothing", func() {
		_, err := s.service.Claim(ctx, 42, "GA")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "no dividends to claim")
	})

	s.Run("other holder's entry is untouched", func() {
		claimed, err := s.service.Claim(ctx, 42, "GB")
		s.NoError(err)
		s.Equal(amount.FromInt64(400), claimed)
	})

	s.Run("non-holder has nothing to claim", func() {
		_, err := s.service.Claim(ctx, 42, "GNOBODY")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DividendServiceSuite) TestDisableKeepsAccrued() {
	ctx := context.Background()
	s.setupHolders(ctx)
	s.Require().NoError(s.service.Distribute(ctx, 42, amount.FromInt64(1000)))
	s.Require().NoError(s.service.DisableRevenueSharing(ctx, 42))

	claimed, err := s.service.Claim(ctx, 42, "GB")
	s.NoError(err)
	s.Equal(amount.FromInt64(400), claimed)
}
