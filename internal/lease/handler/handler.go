// Package handler exposes asset leasing over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assetup/internal/lease/models"
	"assetup/internal/lease/service"
	"assetup/internal/platform/metrics"
	"assetup/internal/platform/middleware"
	"assetup/internal/transport/http/shared"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Service defines the lease operations the transport layer needs.
type Service interface {
	CreateLease(ctx context.Context, p service.LeaseParams) (*models.Lease, error)
	ReturnLeasedAsset(ctx context.Context, leaseID id.LeaseID, caller id.Principal) error
	CancelLease(ctx context.Context, leaseID id.LeaseID, lessor id.Principal) error
	ExpireLease(ctx context.Context, leaseID id.LeaseID) error
	GetLease(ctx context.Context, leaseID id.LeaseID) (*models.Lease, error)
	AssetActiveLease(ctx context.Context, assetID id.RegistryID) (*models.Lease, error)
	LesseeLeases(ctx context.Context, lessee id.Principal) ([]id.LeaseID, error)
}

type createLeaseRequest struct {
	AssetID       string        `json:"asset_id"`
	Lessee        string        `json:"lessee"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	RentPerPeriod amount.Amount `json:"rent_per_period"`
	Deposit       amount.Amount `json:"deposit"`
}

// Handler handles lease endpoints.
type Handler struct {
	logger       *slog.Logger
	leases       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new lease Handler.
func New(
	leases Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		leases:       leases,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the lease routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/leases/{leaseID}", h.handleGetLease)
		pr.Get("/leases/assets/{registryID}/active", h.handleAssetActiveLease)
		pr.Get("/leases/lessees/{principal}", h.handleLesseeLeases)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/leases", h.handleCreateLease)
		ar.Post("/leases/{leaseID}/return", h.handleReturnLease)
		ar.Post("/leases/{leaseID}/cancel", h.handleCancelLease)
		ar.Post("/leases/{leaseID}/expire", h.handleExpireLease)
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

// handleCreateLease opens a lease with the authenticated principal as the
// lessor.
func (h *Handler) handleCreateLease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	assetID, err := id.ParseRegistryID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}
	lessee, ok := id.ParsePrincipal(req.Lessee)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "lessee is required"))
		return
	}

	lease, err := h.leases.CreateLease(ctx, service.LeaseParams{
		AssetID:       assetID,
		Lessor:        requestcontext.Actor(ctx),
		Lessee:        lessee,
		Start:         req.Start,
		End:           req.End,
		RentPerPeriod: req.RentPerPeriod,
		Deposit:       req.Deposit,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "create lease failed")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, lease)
}

func (h *Handler) handleReturnLease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leaseID, ok := h.leaseID(w, r)
	if !ok {
		return
	}

	if err := h.leases.ReturnLeasedAsset(ctx, leaseID, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "return lease failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCancelLease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leaseID, ok := h.leaseID(w, r)
	if !ok {
		return
	}

	if err := h.leases.CancelLease(ctx, leaseID, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "cancel lease failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExpireLease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leaseID, ok := h.leaseID(w, r)
	if !ok {
		return
	}

	if err := h.leases.ExpireLease(ctx, leaseID); err != nil {
		h.writeServiceError(ctx, w, err, "expire lease failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetLease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leaseID, ok := h.leaseID(w, r)
	if !ok {
		return
	}

	lease, err := h.leases.GetLease(ctx, leaseID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get lease failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, lease)
}

func (h *Handler) handleAssetActiveLease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, err := id.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registry id"))
		return
	}

	lease, err := h.leases.AssetActiveLease(ctx, registryID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "active lease lookup failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, lease)
}

func (h *Handler) handleLesseeLeases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lessee, ok := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return
	}

	ids, err := h.leases.LesseeLeases(ctx, lessee)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list leases failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]id.LeaseID{"leases": ids})
}

func (h *Handler) leaseID(w http.ResponseWriter, r *http.Request) (id.LeaseID, bool) {
	leaseID, err := id.ParseLeaseID(chi.URLParam(r, "leaseID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid lease id"))
		return "", false
	}
	return leaseID, true
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
