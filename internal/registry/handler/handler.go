// Package handler exposes the physical asset registry over HTTP.
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
	"assetup/internal/registry/models"
	"assetup/internal/registry/service"
	"assetup/internal/transport/http/shared"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Service defines the registry operations the transport layer needs.
type Service interface {
	RegisterAsset(ctx context.Context, p service.RegisterParams, caller id.Principal) (*models.Asset, error)
	UpdateMetadata(ctx context.Context, registryID id.RegistryID, update service.MetadataUpdate, caller id.Principal) error
	TransferOwnership(ctx context.Context, registryID id.RegistryID, newOwner id.Principal, caller id.Principal) error
	RetireAsset(ctx context.Context, registryID id.RegistryID, caller id.Principal) error
	GetAsset(ctx context.Context, registryID id.RegistryID) (*models.Asset, error)
	AssetsByOwner(ctx context.Context, owner id.Principal) ([]id.RegistryID, error)
	TotalAssetCount(ctx context.Context) (uint64, error)
	AddRegistrar(ctx context.Context, registrar id.Principal) error
	RemoveRegistrar(ctx context.Context, registrar id.Principal) error
	IsAuthorizedRegistrar(ctx context.Context, principal id.Principal) (bool, error)
}

type registerRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	MetadataURI   string            `json:"metadata_uri"`
	PurchaseValue amount.Amount     `json:"purchase_value"`
	Owner         string            `json:"owner"`
	Attributes    map[string]string `json:"attributes"`
}

type metadataUpdateRequest struct {
	Description *string           `json:"description"`
	MetadataURI *string           `json:"metadata_uri"`
	Attributes  map[string]string `json:"attributes"`
}

type transferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type countResponse struct {
	Total uint64 `json:"total"`
}

type registrarStatusResponse struct {
	Principal  string `json:"principal"`
	Authorized bool   `json:"authorized"`
}

// Handler handles registry endpoints.
type Handler struct {
	logger       *slog.Logger
	registry     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new registry Handler.
func New(
	registry Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/registry/assets/{registryID}", h.handleGetAsset)
		pr.Get("/registry/owners/{principal}/assets", h.handleAssetsByOwner)
		pr.Get("/registry/stats", h.handleStats)
		pr.Get("/registry/registrars/{principal}", h.handleRegistrarStatus)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/registry/assets", h.handleRegisterAsset)
		ar.Patch("/registry/assets/{registryID}", h.handleUpdateMetadata)
		ar.Post("/registry/assets/{registryID}/transfer", h.handleTransferOwnership)
		ar.Post("/registry/assets/{registryID}/retire", h.handleRetireAsset)
		ar.Put("/registry/registrars/{principal}", h.handleAddRegistrar)
		ar.Delete("/registry/registrars/{principal}", h.handleRemoveRegistrar)
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

// handleRegisterAsset records a physical asset. The authenticated principal
// must be an authorized registrar.
func (h *Handler) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	owner, ok := id.ParsePrincipal(req.Owner)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "owner is required"))
		return
	}

	asset, err := h.registry.RegisterAsset(ctx, service.RegisterParams{
		Name:          req.Name,
		Description:   req.Description,
		MetadataURI:   req.MetadataURI,
		PurchaseValue: req.PurchaseValue,
		Owner:         owner,
		Attributes:    req.Attributes,
	}, requestcontext.Actor(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "register asset failed")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, ok := h.registryID(w, r)
	if !ok {
		return
	}

	var req metadataUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	update := service.MetadataUpdate{
		Description: req.Description,
		MetadataURI: req.MetadataURI,
		Attributes:  req.Attributes,
	}
	if err := h.registry.UpdateMetadata(ctx, registryID, update, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "update metadata failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, ok := h.registryID(w, r)
	if !ok {
		return
	}

	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newOwner, ok := id.ParsePrincipal(req.NewOwner)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "new owner is required"))
		return
	}

	if err := h.registry.TransferOwnership(ctx, registryID, newOwner, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "transfer ownership failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRetireAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, ok := h.registryID(w, r)
	if !ok {
		return
	}

	if err := h.registry.RetireAsset(ctx, registryID, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "retire asset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, ok := h.registryID(w, r)
	if !ok {
		return
	}

	asset, err := h.registry.GetAsset(ctx, registryID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get asset failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleAssetsByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.principal(w, r)
	if !ok {
		return
	}

	ids, err := h.registry.AssetsByOwner(ctx, owner)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list assets failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]id.RegistryID{"assets": ids})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.registry.TotalAssetCount(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "asset count failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, countResponse{Total: total})
}

func (h *Handler) handleAddRegistrar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrar, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.registry.AddRegistrar(ctx, registrar); err != nil {
		h.writeServiceError(ctx, w, err, "add registrar failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveRegistrar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrar, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.registry.RemoveRegistrar(ctx, registrar); err != nil {
		h.writeServiceError(ctx, w, err, "remove registrar failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegistrarStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	authorized, err := h.registry.IsAuthorizedRegistrar(ctx, principal)
	if err != nil {
		h.writeServiceError(ctx, w, err, "registrar status failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, registrarStatusResponse{
		Principal:  principal.String(),
		Authorized: authorized,
	})
}

func (h *Handler) registryID(w http.ResponseWriter, r *http.Request) (id.RegistryID, bool) {
	registryID, err := id.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registry id"))
		return "", false
	}
	return registryID, true
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
