package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	tokenService "assetup/internal/token/service"
	assetStore "assetup/internal/token/store/asset"
	balanceStore "assetup/internal/token/store/balance"
	lockStore "assetup/internal/token/store/lock"
	pollStore "assetup/internal/voting/store/poll"
	"assetup/pkg/amount"
	dErrors "assetup/pkg/domain-errors"
)

// =============================================================================
// Voting Service Test Suite
// =============================================================================
// Justification for unit tests: one-vote-per-principal and live-weight
// semantics interact with balance movement; exercising them against a real
// token service catches weight snapshots taken at the wrong instant.

type VotingServiceSuite struct {
	suite.Suite
	tokens  *tokenService.Service
	service *Service
}

func TestVotingServiceSuite(t *testing.T) {
	suite.Run(t, new(VotingServiceSuite))
}

func (s *VotingServiceSuite) SetupTest() {
	var err error
	s.tokens, err = tokenService.New(
		assetStore.NewInMemory(), balanceStore.NewInMemory(), lockStore.NewInMemory(),
		auth.AllowAll{},
	)
	s.Require().NoError(err)

	s.service, err = New(s.tokens, pollStore.NewInMemory(), auth.AllowAll{})
	s.Require().NoError(err)
}

// setupAsset tokenizes asset 42 with supply 1000, threshold 500, split
// 600/400 between A and B.
func (s *VotingServiceSuite) setupAsset(ctx context.Context) {
	_, err := s.tokens.Tokenize(ctx, tokenService.TokenizeParams{
		AssetID:            42,
		Symbol:             "PROP",
		TotalSupply:        amount.FromInt64(1000),
		MinVotingThreshold: amount.FromInt64(500),
		Tokenizer:          "GA",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.tokens.Transfer(ctx, 42, "GA", "GB", amount.FromInt64(400)))
}

// =============================================================================
// CastVote Tests
// =============================================================================

func (s *VotingServiceSuite) TestCastVote() {
	ctx := context.Background()
	s.setupAsset(ctx)

	s.Run("vote weight equals current balance", func() {
		s.Require().NoError(s.service.CastVote(ctx, 42, 1, "GA"))

		tally, err := s.service.Tally(ctx, 42, 1)
		s.NoError(err)
		s.Equal(amount.FromInt64(600), tally)
	})

	s.Run("repeat vote by same principal is rejected", func() {
		err := s.service.CastVote(ctx, 42, 1, "GA")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
		s.Contains(err.Error(), "already voted")
	})

	s.Run("second voter accumulates the tally", func() {
		s.Require().NoError(s.service.CastVote(ctx, 42, 1, "GB"))

		tally, err := s.service.Tally(ctx, 42, 1)
		s.NoError(err)
		s.Equal(amount.FromInt64(1000), tally)
	})

	s.Run("zero balance means no voting power", func() {
		err := s.service.CastVote(ctx, 42, 1, "GNOBODY")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "voting power")
	})

	s.Run("unknown asset is rejected", func() {
		err := s.service.CastVote(ctx, 99, 1, "GA")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *VotingServiceSuite) TestLiveWeight() {
	ctx := context.Background()
	s.setupAsset(ctx)

	// B transfers to A before A votes; A's weight reflects the move.
	s.Require().NoError(s.tokens.Transfer(ctx, 42, "GB", "GA", amount.FromInt64(100)))
	s.Require().NoError(s.service.CastVote(ctx, 42, 7, "GA"))

	tally, err := s.service.Tally(ctx, 42, 7)
	s.NoError(err)
	s.Equal(amount.FromInt64(700), tally)
}

// =============================================================================
// Tally / HasVoted / Passed Tests
// =============================================================================

func (s *VotingServiceSuite) TestTallyUnknownProposal() {
	ctx := context.Background()
	s.setupAsset(ctx)

	_, err := s.service.Tally(ctx, 42, 99)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VotingServiceSuite) TestHasVoted() {
	ctx := context.Background()
	s.setupAsset(ctx)
	s.Require().NoError(s.service.CastVote(ctx, 42, 1, "GA"))

	voted, err := s.service.HasVoted(ctx, 42, 1, "GA")
	s.NoError(err)
	s.True(voted)

	voted, err = s.service.HasVoted(ctx, 42, 1, "GB")
	s.NoError(err)
	s.False(voted)
}

func (s *VotingServiceSuite) TestPassed() {
	ctx := context.Background()
	s.setupAsset(ctx)

	s.Run("unvoted proposal has not passed", func() {
		passed, err := s.service.Passed(ctx, 42, 1)
		s.NoError(err)
		s.False(passed)
	})

	s.Run("tally at or above threshold passes", func() {
		s.Require().NoError(s.service.CastVote(ctx, 42, 1, "GA"))
		passed, err := s.service.Passed(ctx, 42, 1)
		s.NoError(err)
		s.True(passed)
	})

	s.Run("tally below threshold does not pass", func() {
		s.Require().NoError(s.service.CastVote(ctx, 42, 2, "GB"))
		passed, err := s.service.Passed(ctx, 42, 2)
		s.NoError(err)
		s.False(passed)
	})
}
