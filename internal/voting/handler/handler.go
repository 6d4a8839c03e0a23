// Package handler exposes weighted governance voting over HTTP.
package handler

import (
	"context"
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

// Service defines the voting operations the transport layer needs.
type Service interface {
	CastVote(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) error
	Tally(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (amount.Amount, error)
	HasVoted(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) (bool, error)
	Passed(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (bool, error)
}

type tallyResponse struct {
	Tally amount.Amount `json:"tally"`
}

type passedResponse struct {
	Passed bool `json:"passed"`
}

type votedResponse struct {
	Voter id.Principal `json:"voter"`
	Voted bool         `json:"voted"`
}

// Handler handles voting endpoints.
type Handler struct {
	logger       *slog.Logger
	voting       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new voting Handler.
func New(
	voting Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		voting:       voting,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the voting routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/assets/{assetID}/proposals/{proposalID}/tally", h.handleTally)
		pr.Get("/assets/{assetID}/proposals/{proposalID}/passed", h.handlePassed)
		pr.Get("/assets/{assetID}/proposals/{proposalID}/votes/{principal}", h.handleHasVoted)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/assets/{assetID}/proposals/{proposalID}/votes", h.handleCastVote)
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

// handleCastVote records the authenticated principal's vote at their
// current balance weight.
func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, proposalID, ok := h.pollKey(w, r)
	if !ok {
		return
	}

	if err := h.voting.CastVote(ctx, assetID, proposalID, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "cast vote failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTally(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, proposalID, ok := h.pollKey(w, r)
	if !ok {
		return
	}

	tally, err := h.voting.Tally(ctx, assetID, proposalID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "tally failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, tallyResponse{Tally: tally})
}

func (h *Handler) handlePassed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, proposalID, ok := h.pollKey(w, r)
	if !ok {
		return
	}

	passed, err := h.voting.Passed(ctx, assetID, proposalID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "passed check failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, passedResponse{Passed: passed})
}

func (h *Handler) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, proposalID, ok := h.pollKey(w, r)
	if !ok {
		return
	}
	voter, ok := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return
	}

	voted, err := h.voting.HasVoted(ctx, assetID, proposalID, voter)
	if err != nil {
		h.writeServiceError(ctx, w, err, "has voted check failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, votedResponse{Voter: voter, Voted: voted})
}

func (h *Handler) pollKey(w http.ResponseWriter, r *http.Request) (id.AssetID, id.ProposalID, bool) {
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return 0, 0, false
	}
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id"))
		return 0, 0, false
	}
	return assetID, proposalID, true
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
