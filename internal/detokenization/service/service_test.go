package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	proposalStore "assetup/internal/detokenization/store/proposal"
	tokenService "assetup/internal/token/service"
	assetStore "assetup/internal/token/store/asset"
	balanceStore "assetup/internal/token/store/balance"
	lockStore "assetup/internal/token/store/lock"
	votingService "assetup/internal/voting/service"
	pollStore "assetup/internal/voting/store/poll"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// =============================================================================
// Detokenization Workflow Test Suite
// =============================================================================
// Justification for unit tests: the workflow spans three services (proposal
// slot, vote gate, asset freeze) and its exactly-once guarantee only shows
// up under full wiring, which these tests assemble from real components.

type DetokenizationSuite struct {
	suite.Suite
	tokens  *tokenService.Service
	voting  *votingService.Service
	service *Service
}

func TestDetokenizationSuite(t *testing.T) {
	suite.Run(t, new(DetokenizationSuite))
}

func (s *DetokenizationSuite) SetupTest() {
	var err error
	s.tokens, err = tokenService.New(
		assetStore.NewInMemory(), balanceStore.NewInMemory(), lockStore.NewInMemory(),
		auth.AllowAll{},
	)
	s.Require().NoError(err)

	s.voting, err = votingService.New(s.tokens, pollStore.NewInMemory(), auth.AllowAll{})
	s.Require().NoError(err)

	s.service, err = New(proposalStore.NewInMemory(), s.voting, s.tokens, auth.AllowAll{})
	s.Require().NoError(err)

	_, err = s.tokens.Tokenize(context.Background(), tokenService.TokenizeParams{
		AssetID:            42,
		Symbol:             "PROP",
		TotalSupply:        amount.FromInt64(1000),
		MinVotingThreshold: amount.FromInt64(500),
		Tokenizer:          "GA",
	})
	s.Require().NoError(err)
}

// =============================================================================
// Propose Tests
// =============================================================================

func (s *DetokenizationSuite) TestPropose() {
	ctx := context.Background()

	s.Run("first proposal opens and is active", func() {
		p, err := s.service.Propose(ctx, 42, "GA")
		s.NoError(err)
		s.NotZero(p.ProposalID)

		active, err := s.service.IsActive(ctx, 42)
		s.Require().NoError(err)
		s.True(active)
	})

	s.Run("second live proposal is rejected", func() {
		_, err := s.service.Propose(ctx, 42, "GB")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("asset without proposal is inactive", func() {
		active, err := s.service.IsActive(ctx, 7)
		s.NoError(err)
		s.False(active)
	})
}

// =============================================================================
// Execute Tests
// =============================================================================

func (s *DetokenizationSuite) TestExecute() {
	ctx := context.Background()
	p, err := s.service.Propose(ctx, 42, "GA")
	s.Require().NoError(err)

	s.Run("execute before the vote passes is rejected", func() {
		err := s.service.Execute(ctx, 42, p.ProposalID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "not approved")
	})

	s.Run("execute after the vote passes freezes the asset", func() {
		// GA holds the full supply of 1000, above the 500 threshold.
		s.Require().NoError(s.voting.CastVote(ctx, 42, p.ProposalID, "GA"))

		s.NoError(s.service.Execute(ctx, 42, p.ProposalID))

		asset, err := s.tokens.GetAsset(ctx, 42)
		s.Require().NoError(err)
		s.True(asset.Detokenized)

		_, err = s.tokens.Mint(ctx, 42, amount.FromInt64(1), "GA")
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))

		active, err := s.service.IsActive(ctx, 42)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("repeat execute is rejected", func() {
		err := s.service.Execute(ctx, 42, p.ProposalID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
		s.Contains(err.Error(), "already executed")
	})

	s.Run("unknown proposal id is rejected", func() {
		err := s.service.Execute(ctx, 42, id.ProposalID(99))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("asset without proposal is rejected", func() {
		err := s.service.Execute(ctx, 7, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
