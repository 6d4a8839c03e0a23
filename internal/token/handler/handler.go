// Package handler exposes the token ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assetup/internal/platform/metrics"
	"assetup/internal/platform/middleware"
	"assetup/internal/token/models"
	"assetup/internal/token/service"
	"assetup/internal/transport/http/shared"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Service defines the token operations the transport layer needs.
type Service interface {
	Tokenize(ctx context.Context, p service.TokenizeParams) (*models.TokenizedAsset, error)
	Mint(ctx context.Context, assetID id.AssetID, amt amount.Amount, minter id.Principal) (*models.TokenizedAsset, error)
	Burn(ctx context.Context, assetID id.AssetID, amt amount.Amount, burner id.Principal) (*models.TokenizedAsset, error)
	Transfer(ctx context.Context, assetID id.AssetID, from, to id.Principal, amt amount.Amount) error
	GetAsset(ctx context.Context, assetID id.AssetID) (*models.TokenizedAsset, error)
	Balance(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	Holders(ctx context.Context, assetID id.AssetID) ([]id.Principal, error)
	OwnershipPercentage(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	UpdateValuation(ctx context.Context, assetID id.AssetID, newValuation amount.Amount) error
	Lock(ctx context.Context, assetID id.AssetID, holder id.Principal, until time.Time) error
	Unlock(ctx context.Context, assetID id.AssetID, holder id.Principal) error
	IsLocked(ctx context.Context, assetID id.AssetID, holder id.Principal) (bool, error)
}

// Handler handles token ledger endpoints.
type Handler struct {
	logger       *slog.Logger
	tokens       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new token Handler.
func New(
	tokens Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		tokens:       tokens,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the token routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/assets/{assetID}", h.handleGetAsset)
		pr.Get("/assets/{assetID}/holders", h.handleHolders)
		pr.Get("/assets/{assetID}/balances/{principal}", h.handleBalance)
		pr.Get("/assets/{assetID}/ownership/{principal}", h.handleOwnership)
		pr.Get("/assets/{assetID}/locks/{principal}", h.handleLockStatus)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/assets", h.handleTokenize)
		ar.Post("/assets/{assetID}/mint", h.handleMint)
		ar.Post("/assets/{assetID}/burn", h.handleBurn)
		ar.Post("/assets/{assetID}/transfer", h.handleTransfer)
		ar.Put("/assets/{assetID}/valuation", h.handleUpdateValuation)
		ar.Post("/assets/{assetID}/locks", h.handleLock)
		ar.Delete("/assets/{assetID}/locks/{principal}", h.handleUnlock)
	})
}

func (h *Handler) common(r chi.Router) {
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.LatencyMiddleware(h.metrics))
}

// handleTokenize brings an asset onto the ledger. The authenticated
// principal becomes the tokenizer and receives the full supply.
func (h *Handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	assetID, err := id.ParseAssetID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}

	asset, err := h.tokens.Tokenize(ctx, service.TokenizeParams{
		AssetID:            assetID,
		Symbol:             req.Symbol,
		TotalSupply:        req.TotalSupply,
		Decimals:           req.Decimals,
		MinVotingThreshold: req.MinVotingThreshold,
		Tokenizer:          requestcontext.Actor(ctx),
		Metadata:           req.Metadata,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "tokenize failed")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	h.handleSupplyChange(w, r, h.tokens.Mint, "mint failed")
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	h.handleSupplyChange(w, r, h.tokens.Burn, "burn failed")
}

func (h *Handler) handleSupplyChange(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, id.AssetID, amount.Amount, id.Principal) (*models.TokenizedAsset, error),
	logMsg string,
) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req supplyChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	asset, err := op(ctx, assetID, req.Amount, requestcontext.Actor(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, logMsg)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

// handleTransfer moves tokens from the authenticated principal.
func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	to, ok := id.ParsePrincipal(req.To)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "recipient is required"))
		return
	}

	if err := h.tokens.Transfer(ctx, assetID, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		h.writeServiceError(ctx, w, err, "transfer failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	asset, err := h.tokens.GetAsset(ctx, assetID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get asset failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleHolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	holders, err := h.tokens.Holders(ctx, assetID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list holders failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]id.Principal{"holders": holders})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	holder, ok := h.principal(w, r)
	if !ok {
		return
	}

	balance, err := h.tokens.Balance(ctx, assetID, holder)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get balance failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{Holder: holder.String(), Balance: balance})
}

func (h *Handler) handleOwnership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	holder, ok := h.principal(w, r)
	if !ok {
		return
	}

	bps, err := h.tokens.OwnershipPercentage(ctx, assetID, holder)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get ownership failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, ownershipResponse{Holder: holder.String(), BasisPoints: bps})
}

func (h *Handler) handleUpdateValuation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req valuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.tokens.UpdateValuation(ctx, assetID, req.Valuation); err != nil {
		h.writeServiceError(ctx, w, err, "update valuation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	holder, ok := id.ParsePrincipal(req.Holder)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "holder is required"))
		return
	}
	until, err := time.Parse(time.RFC3339, req.Until)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "until must be RFC 3339"))
		return
	}

	if err := h.tokens.Lock(ctx, assetID, holder, until); err != nil {
		h.writeServiceError(ctx, w, err, "lock failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	holder, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.tokens.Unlock(ctx, assetID, holder); err != nil {
		h.writeServiceError(ctx, w, err, "unlock failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	holder, ok := h.principal(w, r)
	if !ok {
		return
	}

	locked, err := h.tokens.IsLocked(ctx, assetID, holder)
	if err != nil {
		h.writeServiceError(ctx, w, err, "lock status failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, lockStatusResponse{Holder: holder.String(), Locked: locked})
}

func (h *Handler) assetID(w http.ResponseWriter, r *http.Request) (id.AssetID, bool) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return 0, false
	}
	return assetID, true
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (id.Principal, bool) {
	principal, ok := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return "", false
	}
	return principal, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, logMsg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
