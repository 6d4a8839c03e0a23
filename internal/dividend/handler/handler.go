// Package handler exposes dividend distribution and claims over HTTP.
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
	"assetup/internal/transport/http/shared"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Service defines the dividend operations the transport layer needs.
type Service interface {
	Distribute(ctx context.Context, assetID id.AssetID, totalAmount amount.Amount) error
	Claim(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	Unclaimed(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error)
	EnableRevenueSharing(ctx context.Context, assetID id.AssetID) error
	DisableRevenueSharing(ctx context.Context, assetID id.AssetID) error
}

type distributeRequest struct {
	Amount amount.Amount `json:"amount"`
}

type revenueSharingRequest struct {
	Enabled bool `json:"enabled"`
}

type claimResponse struct {
	Holder string        `json:"holder"`
	Amount amount.Amount `json:"amount"`
}

// Handler handles dividend endpoints.
type Handler struct {
	logger       *slog.Logger
	dividends    Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new dividend Handler.
func New(
	dividends Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		dividends:    dividends,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the dividend routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/assets/{assetID}/dividends/{principal}", h.handleUnclaimed)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/assets/{assetID}/dividends", h.handleDistribute)
		ar.Post("/assets/{assetID}/dividends/claim", h.handleClaim)
		ar.Put("/assets/{assetID}/revenue-sharing", h.handleRevenueSharing)
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

// handleDistribute credits every holder pro rata from the posted amount.
func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.dividends.Distribute(ctx, assetID, req.Amount); err != nil {
		h.writeServiceError(ctx, w, err, "distribute failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClaim pays out the authenticated principal's accrued balance.
func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	holder := requestcontext.Actor(ctx)
	paid, err := h.dividends.Claim(ctx, assetID, holder)
	if err != nil {
		h.writeServiceError(ctx, w, err, "claim failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, claimResponse{Holder: holder.String(), Amount: paid})
}

func (h *Handler) handleUnclaimed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	holder, ok := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return
	}

	unclaimed, err := h.dividends.Unclaimed(ctx, assetID, holder)
	if err != nil {
		h.writeServiceError(ctx, w, err, "unclaimed lookup failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, claimResponse{Holder: holder.String(), Amount: unclaimed})
}

func (h *Handler) handleRevenueSharing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req revenueSharingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	var err error
	if req.Enabled {
		err = h.dividends.EnableRevenueSharing(ctx, assetID)
	} else {
		err = h.dividends.DisableRevenueSharing(ctx, assetID)
	}
	if err != nil {
		h.writeServiceError(ctx, w, err, "revenue sharing update failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assetID(w http.ResponseWriter, r *http.Request) (id.AssetID, bool) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return 0, false
	}
	return assetID, true
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
