// Package handler exposes vote-gated detokenization over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assetup/internal/detokenization/models"
	"assetup/internal/platform/metrics"
	"assetup/internal/platform/middleware"
	"assetup/internal/transport/http/shared"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Service defines the detokenization operations the transport layer needs.
type Service interface {
	Propose(ctx context.Context, assetID id.AssetID, proposer id.Principal) (*models.Proposal, error)
	Execute(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) error
	IsActive(ctx context.Context, assetID id.AssetID) (bool, error)
	Get(ctx context.Context, assetID id.AssetID) (*models.Proposal, error)
}

// Handler handles detokenization endpoints.
type Handler struct {
	logger          *slog.Logger
	detokenizations Service
	metrics         *metrics.Metrics
	jwtValidator    middleware.JWTValidator
}

// New creates a new detokenization Handler.
func New(
	detokenizations Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:          logger,
		detokenizations: detokenizations,
		metrics:         metrics,
		jwtValidator:    jwtValidator,
	}
}

// Register registers the detokenization routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/assets/{assetID}/detokenization", h.handleGet)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/assets/{assetID}/detokenization", h.handlePropose)
		ar.Post("/assets/{assetID}/detokenization/{proposalID}/execute", h.handleExecute)
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

// handlePropose opens a detokenization proposal in the authenticated
// principal's name.
func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	proposal, err := h.detokenizations.Propose(ctx, assetID, requestcontext.Actor(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "propose failed")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, proposal)
}

// handleExecute retires the asset once the vote has passed.
func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id"))
		return
	}

	if err := h.detokenizations.Execute(ctx, assetID, proposalID); err != nil {
		h.writeServiceError(ctx, w, err, "execute failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}

	proposal, err := h.detokenizations.Get(ctx, assetID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get proposal failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, proposal)
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
