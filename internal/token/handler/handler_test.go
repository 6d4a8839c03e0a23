package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"assetup/internal/auth"
	"assetup/internal/platform/metrics"
	"assetup/internal/platform/middleware"
	"assetup/internal/token/models"
	"assetup/internal/token/service"
	assetstore "assetup/internal/token/store/asset"
	balancestore "assetup/internal/token/store/balance"
	lockstore "assetup/internal/token/store/lock"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	"assetup/pkg/testutil"
)

// bearerValidator treats the bearer token itself as the principal, so tests
// pick an actor per request without minting real JWTs.
type bearerValidator struct{}

func (bearerValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	p, ok := id.ParsePrincipal(token)
	if !ok {
		return nil, fmt.Errorf("bad token")
	}
	return &middleware.JWTClaims{Principal: p}, nil
}

type TokenHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestTokenHandlerSuite(t *testing.T) {
	suite.Run(t, new(TokenHandlerSuite))
}

func (s *TokenHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := service.New(
		assetstore.NewInMemory(),
		balancestore.NewInMemory(),
		lockstore.NewInMemory(),
		auth.AllowAll{},
		service.WithLogger(logger),
	)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, logger, testMetrics, bearerValidator{}).Register(s.router)
}

// metrics register against the default prometheus registry, so a single
// instance is shared across the suite.
var testMetrics = metrics.New()

func (s *TokenHandlerSuite) tokenize(actor string, supply int64) {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets", map[string]any{
		"asset_id":             "1",
		"symbol":               "BLDG",
		"total_supply":         amount.FromInt64(supply),
		"decimals":             2,
		"min_voting_threshold": amount.FromInt64(supply/2 + 1),
		"metadata": models.TokenMetadata{
			Name:     "Harbor Tower",
			Category: models.CategoryRealEstate,
		},
	})
	req.Header.Set("Authorization", "Bearer "+actor)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
}

// ============================================================
// Tokenize
// ============================================================

func (s *TokenHandlerSuite) TestTokenizeCreatesAssetAndCreditsTokenizer() {
	s.tokenize("GALICE", 10000)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/1"))
	testutil.AssertStatusOK(s.T(), rr)
	asset := testutil.UnmarshalResponse[models.TokenizedAsset](s.T(), rr)
	s.Equal("BLDG", asset.Symbol)
	s.Equal(id.Principal("GALICE"), asset.Tokenizer)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/1/balances/GALICE"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "balance", "10000")
}

func (s *TokenHandlerSuite) TestTokenizeRequiresAuth() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets", map[string]any{
		"asset_id": "1",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *TokenHandlerSuite) TestTokenizeDuplicateAssetConflicts() {
	s.tokenize("GALICE", 10000)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets", map[string]any{
		"asset_id":             "1",
		"symbol":               "BLDG",
		"total_supply":         amount.FromInt64(500),
		"decimals":             2,
		"min_voting_threshold": amount.FromInt64(251),
		"metadata": models.TokenMetadata{
			Name:     "Harbor Tower",
			Category: models.CategoryRealEstate,
		},
	})
	req.Header.Set("Authorization", "Bearer GALICE")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "already_exists")
}

// ============================================================
// Transfer
// ============================================================

func (s *TokenHandlerSuite) TestTransferMovesBalanceFromCaller() {
	s.tokenize("GALICE", 10000)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/1/transfer", map[string]any{
		"to":     "GBOB",
		"amount": amount.FromInt64(2500),
	})
	req.Header.Set("Authorization", "Bearer GALICE")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/1/balances/GBOB"))
	testutil.AssertJSONContains(s.T(), rr, "balance", "2500")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/1/ownership/GBOB"))
	testutil.AssertJSONContains(s.T(), rr, "basis_points", "2500")
}

func (s *TokenHandlerSuite) TestTransferInsufficientBalance() {
	s.tokenize("GALICE", 100)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/1/transfer", map[string]any{
		"to":     "GALICE",
		"amount": amount.FromInt64(101),
	})
	req.Header.Set("Authorization", "Bearer GBOB")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

// ============================================================
// Mint and burn
// ============================================================

func (s *TokenHandlerSuite) TestMintOnlyByTokenizer() {
	s.tokenize("GALICE", 10000)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/1/mint", map[string]any{
		"amount": amount.FromInt64(500),
	})
	req.Header.Set("Authorization", "Bearer GBOB")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "unauthorized")

	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/1/mint", map[string]any{
		"amount": amount.FromInt64(500),
	})
	req.Header.Set("Authorization", "Bearer GALICE")
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	asset := testutil.UnmarshalResponse[models.TokenizedAsset](s.T(), rr)
	s.Equal(amount.FromInt64(10500), asset.TotalSupply)
}

func (s *TokenHandlerSuite) TestBurnReducesSupply() {
	s.tokenize("GALICE", 10000)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/1/burn", map[string]any{
		"amount": amount.FromInt64(400),
	})
	req.Header.Set("Authorization", "Bearer GALICE")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	asset := testutil.UnmarshalResponse[models.TokenizedAsset](s.T(), rr)
	s.Equal(amount.FromInt64(9600), asset.TotalSupply)
}

// ============================================================
// Reads and errors
// ============================================================

func (s *TokenHandlerSuite) TestGetUnknownAssetReturnsNotFound() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/99"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *TokenHandlerSuite) TestBadAssetIDRejected() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/not-a-number"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *TokenHandlerSuite) TestHoldersListsInAcquisitionOrder() {
	s.tokenize("GALICE", 10000)

	for _, to := range []string{"GBOB", "GCAROL"} {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/1/transfer", map[string]any{
			"to":     to,
			"amount": amount.FromInt64(100),
		})
		req.Header.Set("Authorization", "Bearer GALICE")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	}

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assets/1/holders"))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[map[string][]id.Principal](s.T(), rr)
	s.Equal([]id.Principal{"GALICE", "GBOB", "GCAROL"}, (*resp)["holders"])
}
