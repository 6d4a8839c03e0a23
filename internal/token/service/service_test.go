package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	"assetup/internal/token/models"
	assetStore "assetup/internal/token/store/asset"
	balanceStore "assetup/internal/token/store/balance"
	lockStore "assetup/internal/token/store/lock"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/platform/ledgerevents"
	"assetup/pkg/requestcontext"
)

// =============================================================================
// Token Service Test Suite
// =============================================================================
// Justification for unit tests: supply conservation, holder-set maintenance,
// and lock expiry are timing- and ordering-sensitive invariants that need
// precise control of the ledger clock, which E2E tests cannot provide.

type TokenServiceSuite struct {
	suite.Suite
	assets   *assetStore.InMemory
	balances *balanceStore.InMemory
	locks    *lockStore.InMemory
	service  *Service
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	s.assets = assetStore.NewInMemory()
	s.balances = balanceStore.NewInMemory()
	s.locks = lockStore.NewInMemory()

	var err error
	s.service, err = New(s.assets, s.balances, s.locks, auth.AllowAll{})
	s.Require().NoError(err)
}

func (s *TokenServiceSuite) tokenize(ctx context.Context, assetID id.AssetID, supply int64, tokenizer id.Principal) *models.TokenizedAsset {
	asset, err := s.service.Tokenize(ctx, TokenizeParams{
		AssetID:            assetID,
		Symbol:             "PROP",
		TotalSupply:        amount.FromInt64(supply),
		Decimals:           7,
		MinVotingThreshold: amount.FromInt64(supply / 2),
		Tokenizer:          tokenizer,
	})
	s.Require().NoError(err)
	return asset
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *TokenServiceSuite) TestNew() {
	s.Run("nil asset store returns error", func() {
		_, err := New(nil, s.balances, s.locks, auth.AllowAll{})
		s.Error(err)
		s.Contains(err.Error(), "asset store is required")
	})

	s.Run("nil balance store returns error", func() {
		_, err := New(s.assets, nil, s.locks, auth.AllowAll{})
		s.Error(err)
		s.Contains(err.Error(), "balance store is required")
	})

	s.Run("nil verifier returns error", func() {
		_, err := New(s.assets, s.balances, s.locks, nil)
		s.Error(err)
		s.Contains(err.Error(), "verifier is required")
	})

	s.Run("valid stores return configured service", func() {
		svc, err := New(s.assets, s.balances, s.locks, auth.AllowAll{})
		s.NoError(err)
		s.NotNil(svc)
	})
}

// =============================================================================
// Tokenize Tests
// =============================================================================

func (s *TokenServiceSuite) TestTokenize() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")

	s.Run("credits full supply to tokenizer", func() {
		asset := s.tokenize(ctx, 1, 1000, owner)
		s.Equal(id.AssetID(1), asset.ID)

		balance, err := s.service.Balance(ctx, 1, owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(1000), balance)

		holders, err := s.service.Holders(ctx, 1)
		s.NoError(err)
		s.Equal([]id.Principal{owner}, holders)
	})

	s.Run("duplicate tokenization is rejected", func() {
		s.tokenize(ctx, 2, 1000, owner)
		_, err := s.service.Tokenize(ctx, TokenizeParams{
			AssetID:     2,
			Symbol:      "PROP",
			TotalSupply: amount.FromInt64(500),
			Tokenizer:   owner,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("zero supply is rejected", func() {
		_, err := s.service.Tokenize(ctx, TokenizeParams{
			AssetID:     3,
			Symbol:      "PROP",
			TotalSupply: amount.Zero(),
			Tokenizer:   owner,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty symbol is rejected", func() {
		_, err := s.service.Tokenize(ctx, TokenizeParams{
			AssetID:     4,
			TotalSupply: amount.FromInt64(100),
			Tokenizer:   owner,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("excess decimals are rejected", func() {
		_, err := s.service.Tokenize(ctx, TokenizeParams{
			AssetID:     5,
			Symbol:      "PROP",
			TotalSupply: amount.FromInt64(100),
			Decimals:    19,
			Tokenizer:   owner,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Mint / Burn Tests
// =============================================================================

func (s *TokenServiceSuite) TestMint() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")
	s.tokenize(ctx, 1, 1000, owner)

	s.Run("tokenizer mint grows supply and balance together", func() {
		asset, err := s.service.Mint(ctx, 1, amount.FromInt64(500), owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(1500), asset.TotalSupply)

		balance, err := s.service.Balance(ctx, 1, owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(1500), balance)
	})

	s.Run("non-tokenizer mint is rejected", func() {
		_, err := s.service.Mint(ctx, 1, amount.FromInt64(10), "GSTRANGER")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("mint on unknown asset is rejected", func() {
		_, err := s.service.Mint(ctx, 99, amount.FromInt64(10), owner)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-positive amount is rejected", func() {
		_, err := s.service.Mint(ctx, 1, amount.Zero(), owner)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *TokenServiceSuite) TestBurn() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")
	s.tokenize(ctx, 1, 1000, owner)

	s.Run("tokenizer burn shrinks supply and balance together", func() {
		asset, err := s.service.Burn(ctx, 1, amount.FromInt64(400), owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(600), asset.TotalSupply)

		balance, err := s.service.Balance(ctx, 1, owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(600), balance)
	})

	s.Run("burn beyond balance is rejected", func() {
		_, err := s.service.Burn(ctx, 1, amount.FromInt64(601), owner)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "insufficient balance")
	})

	s.Run("non-tokenizer burn is rejected", func() {
		_, err := s.service.Burn(ctx, 1, amount.FromInt64(10), "GSTRANGER")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Transfer Tests
// =============================================================================

func (s *TokenServiceSuite) TestTransfer() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")
	buyer := id.Principal("GBUYER")
	s.tokenize(ctx, 1, 1000, owner)

	s.Run("transfer conserves supply across holders", func() {
		err := s.service.Transfer(ctx, 1, owner, buyer, amount.FromInt64(400))
		s.NoError(err)

		ownerBal, err := s.service.Balance(ctx, 1, owner)
		s.Require().NoError(err)
		buyerBal, err := s.service.Balance(ctx, 1, buyer)
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(600), ownerBal)
		s.Equal(amount.FromInt64(400), buyerBal)

		asset, err := s.service.GetAsset(ctx, 1)
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(1000), asset.TotalSupply)

		holders, err := s.service.Holders(ctx, 1)
		s.Require().NoError(err)
		s.Equal([]id.Principal{owner, buyer}, holders)
	})

	s.Run("transfer of one past balance fails without mutation", func() {
		err := s.service.Transfer(ctx, 1, owner, buyer, amount.FromInt64(601))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		ownerBal, err := s.service.Balance(ctx, 1, owner)
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(600), ownerBal)
	})

	s.Run("full-balance transfer removes sender from holder set", func() {
		err := s.service.Transfer(ctx, 1, owner, buyer, amount.FromInt64(600))
		s.NoError(err)

		holders, err := s.service.Holders(ctx, 1)
		s.Require().NoError(err)
		s.Equal([]id.Principal{buyer}, holders)

		ownerBal, err := s.service.Balance(ctx, 1, owner)
		s.Require().NoError(err)
		s.True(ownerBal.IsZero())
	})

	s.Run("transfer on unknown asset is rejected", func() {
		err := s.service.Transfer(ctx, 99, owner, buyer, amount.FromInt64(1))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

type denyGate struct{}

func (denyGate) ValidateTransfer(context.Context, id.AssetID, id.Principal, id.Principal) error {
	return dErrors.New(dErrors.CodeRestrictionViolation, "recipient is not whitelisted")
}

func (s *TokenServiceSuite) TestTransferGate() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")

	svc, err := New(s.assets, s.balances, s.locks, auth.AllowAll{}, WithTransferGate(denyGate{}))
	s.Require().NoError(err)

	s.tokenize(ctx, 1, 1000, owner)

	err = svc.Transfer(ctx, 1, owner, "GBUYER", amount.FromInt64(100))
	s.True(dErrors.HasCode(err, dErrors.CodeRestrictionViolation))

	balance, err := svc.Balance(ctx, 1, owner)
	s.Require().NoError(err)
	s.Equal(amount.FromInt64(1000), balance)
}

// =============================================================================
// Lock Tests
// =============================================================================

func (s *TokenServiceSuite) TestLocks() {
	owner := id.Principal("GOWNER")
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithActor(context.Background(), owner)
	ctx = requestcontext.WithTime(ctx, t0)

	s.tokenize(ctx, 1, 1000, owner)

	s.Run("locked balance blocks transfer and burn until expiry", func() {
		s.Require().NoError(s.service.Lock(ctx, 1, owner, t0.Add(time.Hour)))

		locked, err := s.service.IsLocked(ctx, 1, owner)
		s.Require().NoError(err)
		s.True(locked)

		err = s.service.Transfer(ctx, 1, owner, "GBUYER", amount.FromInt64(1))
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
		s.Contains(err.Error(), "tokens are locked")

		_, err = s.service.Burn(ctx, 1, amount.FromInt64(1), owner)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("expired lock reads unlocked and operations resume", func() {
		later := requestcontext.WithTime(ctx, t0.Add(2*time.Hour))

		locked, err := s.service.IsLocked(later, 1, owner)
		s.Require().NoError(err)
		s.False(locked)

		asset, err := s.service.Burn(later, 1, amount.FromInt64(100), owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(900), asset.TotalSupply)
	})

	s.Run("anyone may clear an expired lock", func() {
		later := requestcontext.WithActor(context.Background(), "GSTRANGER")
		later = requestcontext.WithTime(later, t0.Add(2*time.Hour))
		s.NoError(s.service.Unlock(later, 1, owner))

		_, err := s.locks.Get(later, 1, owner)
		s.Error(err)
	})

	s.Run("unlock clears an active lock early", func() {
		s.Require().NoError(s.service.Lock(ctx, 1, owner, t0.Add(time.Hour)))
		s.NoError(s.service.Unlock(ctx, 1, owner))

		locked, err := s.service.IsLocked(ctx, 1, owner)
		s.Require().NoError(err)
		s.False(locked)
	})

	s.Run("unlock without a lock reports not found", func() {
		err := s.service.Unlock(ctx, 1, "GNEVERLOCKED")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("expiry in the past is rejected", func() {
		err := s.service.Lock(ctx, 1, owner, t0.Add(-time.Minute))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("only tokenizer may lock other holders", func() {
		strangerCtx := requestcontext.WithActor(context.Background(), "GSTRANGER")
		strangerCtx = requestcontext.WithTime(strangerCtx, t0)
		err := s.service.Lock(strangerCtx, 1, owner, t0.Add(time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Ownership / Valuation Tests
// =============================================================================

func (s *TokenServiceSuite) TestOwnershipPercentage() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")
	buyer := id.Principal("GBUYER")
	s.tokenize(ctx, 1, 1000, owner)
	s.Require().NoError(s.service.Transfer(ctx, 1, owner, buyer, amount.FromInt64(250)))

	s.Run("basis points truncate toward zero", func() {
		bps, err := s.service.OwnershipPercentage(ctx, 1, buyer)
		s.NoError(err)
		s.Equal(amount.FromInt64(2500), bps)

		bps, err = s.service.OwnershipPercentage(ctx, 1, owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(7500), bps)
	})

	s.Run("non-holder owns zero basis points", func() {
		bps, err := s.service.OwnershipPercentage(ctx, 1, "GNOBODY")
		s.NoError(err)
		s.True(bps.IsZero())
	})
}

func (s *TokenServiceSuite) TestUpdateValuation() {
	owner := id.Principal("GOWNER")
	ctx := requestcontext.WithActor(context.Background(), owner)

	svc, err := New(s.assets, s.balances, s.locks, auth.ContextVerifier{})
	s.Require().NoError(err)

	_, err = svc.Tokenize(ctx, TokenizeParams{
		AssetID:     1,
		Symbol:      "PROP",
		TotalSupply: amount.FromInt64(1000),
		Tokenizer:   owner,
	})
	s.Require().NoError(err)

	s.Run("tokenizer updates valuation", func() {
		s.NoError(svc.UpdateValuation(ctx, 1, amount.FromInt64(500000)))
		asset, err := svc.GetAsset(ctx, 1)
		s.Require().NoError(err)
		s.Equal(amount.FromInt64(500000), asset.Valuation)
	})

	s.Run("non-tokenizer cannot update valuation", func() {
		strangerCtx := requestcontext.WithActor(context.Background(), "GSTRANGER")
		err := svc.UpdateValuation(strangerCtx, 1, amount.FromInt64(1))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("non-positive valuation is rejected", func() {
		err := svc.UpdateValuation(ctx, 1, amount.Zero())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Detokenization Freeze Tests
// =============================================================================

func (s *TokenServiceSuite) TestFinalizeDetokenization() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")
	s.tokenize(ctx, 1, 1000, owner)

	s.Require().NoError(s.service.FinalizeDetokenization(ctx, 1))

	s.Run("finalize is not repeatable", func() {
		err := s.service.FinalizeDetokenization(ctx, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("supply mutations are frozen", func() {
		_, err := s.service.Mint(ctx, 1, amount.FromInt64(1), owner)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))

		_, err = s.service.Burn(ctx, 1, amount.FromInt64(1), owner)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))

		err = s.service.Transfer(ctx, 1, owner, "GBUYER", amount.FromInt64(1))
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("reads still work", func() {
		balance, err := s.service.Balance(ctx, 1, owner)
		s.NoError(err)
		s.Equal(amount.FromInt64(1000), balance)
	})
}

// =============================================================================
// Event Emission Tests
// =============================================================================

func (s *TokenServiceSuite) TestEvents() {
	ctx := context.Background()
	owner := id.Principal("GOWNER")

	publisher := ledgerevents.NewChannelPublisher(16, nil)
	svc, err := New(s.assets, s.balances, s.locks, auth.AllowAll{}, WithEvents(publisher))
	s.Require().NoError(err)

	_, err = svc.Tokenize(ctx, TokenizeParams{
		AssetID:     1,
		Symbol:      "PROP",
		TotalSupply: amount.FromInt64(1000),
		Tokenizer:   owner,
	})
	s.Require().NoError(err)

	event := <-publisher.Inbox()
	s.Equal(ledgerevents.TopicToken, event.Topic)
	s.Equal(ledgerevents.ActionAssetTokenized, event.Action)
	s.Equal(id.AssetID(1), event.AssetID)
	s.Equal("1000", event.Amount)
}
