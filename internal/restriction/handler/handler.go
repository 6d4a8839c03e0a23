// Package handler exposes transfer restrictions and the whitelist over HTTP.
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
	"assetup/internal/restriction/models"
	"assetup/internal/transport/http/shared"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
)

// Service defines the restriction operations the transport layer needs.
type Service interface {
	SetRestriction(ctx context.Context, assetID id.AssetID, requireAccredited bool, geographicAllowed []string) error
	GetRestriction(ctx context.Context, assetID id.AssetID) (*models.Restriction, error)
	AddToWhitelist(ctx context.Context, assetID id.AssetID, principal id.Principal) error
	RemoveFromWhitelist(ctx context.Context, assetID id.AssetID, principal id.Principal) error
	IsWhitelisted(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error)
	Whitelist(ctx context.Context, assetID id.AssetID) ([]id.Principal, error)
}

type setRestrictionRequest struct {
	RequireAccredited bool     `json:"require_accredited"`
	GeographicAllowed []string `json:"geographic_allowed"`
}

type whitelistAddRequest struct {
	Principal string `json:"principal"`
}

type whitelistStatusResponse struct {
	Principal   string `json:"principal"`
	Whitelisted bool   `json:"whitelisted"`
}

// Handler handles restriction endpoints.
type Handler struct {
	logger       *slog.Logger
	restrictions Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new restriction Handler.
func New(
	restrictions Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		restrictions: restrictions,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the restriction routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/assets/{assetID}/restrictions", h.handleGetRestriction)
		pr.Get("/assets/{assetID}/whitelist", h.handleWhitelist)
		pr.Get("/assets/{assetID}/whitelist/{principal}", h.handleWhitelistStatus)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Put("/assets/{assetID}/restrictions", h.handleSetRestriction)
		ar.Post("/assets/{assetID}/whitelist", h.handleAddToWhitelist)
		ar.Delete("/assets/{assetID}/whitelist/{principal}", h.handleRemoveFromWhitelist)
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

// handleSetRestriction replaces the asset's restriction record wholesale.
func (h *Handler) handleSetRestriction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req setRestrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.restrictions.SetRestriction(ctx, assetID, req.RequireAccredited, req.GeographicAllowed); err != nil {
		h.writeServiceError(ctx, w, err, "set restriction failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetRestriction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	restriction, err := h.restrictions.GetRestriction(ctx, assetID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get restriction failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, restriction)
}

func (h *Handler) handleAddToWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	var req whitelistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	principal, ok := id.ParsePrincipal(req.Principal)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "principal is required"))
		return
	}

	if err := h.restrictions.AddToWhitelist(ctx, assetID, principal); err != nil {
		h.writeServiceError(ctx, w, err, "whitelist add failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveFromWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.restrictions.RemoveFromWhitelist(ctx, assetID, principal); err != nil {
		h.writeServiceError(ctx, w, err, "whitelist remove failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	members, err := h.restrictions.Whitelist(ctx, assetID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "whitelist list failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]id.Principal{"whitelist": members})
}

func (h *Handler) handleWhitelistStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	listed, err := h.restrictions.IsWhitelisted(ctx, assetID, principal)
	if err != nil {
		h.writeServiceError(ctx, w, err, "whitelist status failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, whitelistStatusResponse{Principal: principal.String(), Whitelisted: listed})
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
