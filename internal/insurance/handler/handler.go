// Package handler exposes insurance policies and claims over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assetup/internal/insurance/models"
	"assetup/internal/insurance/service"
	"assetup/internal/platform/metrics"
	"assetup/internal/platform/middleware"
	"assetup/internal/transport/http/shared"
	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	dErrors "assetup/pkg/domain-errors"
	"assetup/pkg/requestcontext"
)

// Service defines the insurance operations the transport layer needs.
type Service interface {
	CreatePolicy(ctx context.Context, p service.PolicyParams) (*models.Policy, error)
	CancelPolicy(ctx context.Context, policyID id.PolicyID, caller id.Principal) error
	SuspendPolicy(ctx context.Context, policyID id.PolicyID, insurer id.Principal) error
	ExpirePolicy(ctx context.Context, policyID id.PolicyID) error
	RenewPolicy(ctx context.Context, policyID id.PolicyID, newEndDate time.Time, newPremium amount.Amount, insurer id.Principal) error
	GetPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	AssetPolicies(ctx context.Context, assetID id.RegistryID) ([]id.PolicyID, error)
	FileClaim(ctx context.Context, p service.ClaimParams) (*models.Claim, error)
	ReviewClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal) error
	ApproveClaim(ctx context.Context, claimID models.ClaimID, approvedAmount amount.Amount, insurer id.Principal) error
	RejectClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal) error
	DisputeClaim(ctx context.Context, claimID models.ClaimID, claimant id.Principal) error
	PayClaim(ctx context.Context, claimID models.ClaimID, insurer id.Principal) error
	GetClaim(ctx context.Context, claimID models.ClaimID) (*models.Claim, error)
	AssetClaims(ctx context.Context, assetID id.RegistryID) ([]models.ClaimID, error)
}

type createPolicyRequest struct {
	Holder     string            `json:"holder"`
	AssetID    string            `json:"asset_id"`
	Type       models.PolicyType `json:"type"`
	Coverage   amount.Amount     `json:"coverage"`
	Deductible amount.Amount     `json:"deductible"`
	Premium    amount.Amount     `json:"premium"`
	StartDate  time.Time         `json:"start_date"`
	EndDate    time.Time         `json:"end_date"`
	AutoRenew  bool              `json:"auto_renew"`
}

type renewPolicyRequest struct {
	EndDate time.Time     `json:"end_date"`
	Premium amount.Amount `json:"premium"`
}

type fileClaimRequest struct {
	PolicyID string           `json:"policy_id"`
	Type     models.ClaimType `json:"type"`
	Amount   amount.Amount    `json:"amount"`
}

type approveClaimRequest struct {
	ApprovedAmount amount.Amount `json:"approved_amount"`
}

// Handler handles insurance endpoints.
type Handler struct {
	logger       *slog.Logger
	insurance    Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new insurance Handler.
func New(
	insurance Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		insurance:    insurance,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the insurance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		h.common(pr)
		pr.Get("/insurance/policies/{policyID}", h.handleGetPolicy)
		pr.Get("/insurance/claims/{claimID}", h.handleGetClaim)
		pr.Get("/insurance/assets/{registryID}/policies", h.handleAssetPolicies)
		pr.Get("/insurance/assets/{registryID}/claims", h.handleAssetClaims)
	})

	r.Group(func(ar chi.Router) {
		h.common(ar)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/insurance/policies", h.handleCreatePolicy)
		ar.Post("/insurance/policies/{policyID}/cancel", h.handleCancelPolicy)
		ar.Post("/insurance/policies/{policyID}/suspend", h.handleSuspendPolicy)
		ar.Post("/insurance/policies/{policyID}/expire", h.handleExpirePolicy)
		ar.Post("/insurance/policies/{policyID}/renew", h.handleRenewPolicy)
		ar.Post("/insurance/claims", h.handleFileClaim)
		ar.Post("/insurance/claims/{claimID}/review", h.handleReviewClaim)
		ar.Post("/insurance/claims/{claimID}/approve", h.handleApproveClaim)
		ar.Post("/insurance/claims/{claimID}/reject", h.handleRejectClaim)
		ar.Post("/insurance/claims/{claimID}/dispute", h.handleDisputeClaim)
		ar.Post("/insurance/claims/{claimID}/pay", h.handlePayClaim)
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

// handleCreatePolicy opens a policy with the authenticated principal as the
// insurer.
func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	holder, ok := id.ParsePrincipal(req.Holder)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "holder is required"))
		return
	}
	assetID, err := id.ParseRegistryID(req.AssetID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return
	}

	policy, err := h.insurance.CreatePolicy(ctx, service.PolicyParams{
		Holder:     holder,
		Insurer:    requestcontext.Actor(ctx),
		AssetID:    assetID,
		Type:       req.Type,
		Coverage:   req.Coverage,
		Deductible: req.Deductible,
		Premium:    req.Premium,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		AutoRenew:  req.AutoRenew,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "create policy failed")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, policy)
}

func (h *Handler) handleCancelPolicy(w http.ResponseWriter, r *http.Request) {
	h.policyTransition(w, r, h.insurance.CancelPolicy, "cancel policy failed")
}

func (h *Handler) handleSuspendPolicy(w http.ResponseWriter, r *http.Request) {
	h.policyTransition(w, r, h.insurance.SuspendPolicy, "suspend policy failed")
}

func (h *Handler) handleExpirePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	if err := h.insurance.ExpirePolicy(ctx, policyID); err != nil {
		h.writeServiceError(ctx, w, err, "expire policy failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRenewPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	var req renewPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.insurance.RenewPolicy(ctx, policyID, req.EndDate, req.Premium, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "renew policy failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	policy, err := h.insurance.GetPolicy(ctx, policyID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get policy failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleAssetPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, ok := h.registryID(w, r)
	if !ok {
		return
	}

	ids, err := h.insurance.AssetPolicies(ctx, registryID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list policies failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]id.PolicyID{"policies": ids})
}

// handleFileClaim opens a claim in the authenticated principal's name.
func (h *Handler) handleFileClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req fileClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	policyID, err := id.ParsePolicyID(req.PolicyID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return
	}

	claim, err := h.insurance.FileClaim(ctx, service.ClaimParams{
		PolicyID: policyID,
		Claimant: requestcontext.Actor(ctx),
		Type:     req.Type,
		Amount:   req.Amount,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "file claim failed")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, claim)
}

func (h *Handler) handleReviewClaim(w http.ResponseWriter, r *http.Request) {
	h.claimTransition(w, r, h.insurance.ReviewClaim, "review claim failed")
}

func (h *Handler) handleApproveClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}

	var req approveClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.insurance.ApproveClaim(ctx, claimID, req.ApprovedAmount, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "approve claim failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRejectClaim(w http.ResponseWriter, r *http.Request) {
	h.claimTransition(w, r, h.insurance.RejectClaim, "reject claim failed")
}

func (h *Handler) handleDisputeClaim(w http.ResponseWriter, r *http.Request) {
	h.claimTransition(w, r, h.insurance.DisputeClaim, "dispute claim failed")
}

func (h *Handler) handlePayClaim(w http.ResponseWriter, r *http.Request) {
	h.claimTransition(w, r, h.insurance.PayClaim, "pay claim failed")
}

func (h *Handler) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}

	claim, err := h.insurance.GetClaim(ctx, claimID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get claim failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) handleAssetClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registryID, ok := h.registryID(w, r)
	if !ok {
		return
	}

	ids, err := h.insurance.AssetClaims(ctx, registryID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list claims failed")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]models.ClaimID{"claims": ids})
}

func (h *Handler) policyTransition(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, id.PolicyID, id.Principal) error,
	logMsg string,
) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	if err := op(ctx, policyID, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, logMsg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) claimTransition(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, models.ClaimID, id.Principal) error,
	logMsg string,
) {
	ctx := r.Context()
	claimID, ok := h.claimID(w, r)
	if !ok {
		return
	}

	if err := op(ctx, claimID, requestcontext.Actor(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, logMsg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) policyID(w http.ResponseWriter, r *http.Request) (id.PolicyID, bool) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return "", false
	}
	return policyID, true
}

func (h *Handler) claimID(w http.ResponseWriter, r *http.Request) (models.ClaimID, bool) {
	claimID, err := id.ParsePolicyID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return "", false
	}
	return claimID, true
}

func (h *Handler) registryID(w http.ResponseWriter, r *http.Request) (id.RegistryID, bool) {
	registryID, err := id.ParseRegistryID(chi.URLParam(r, "registryID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registry id"))
		return "", false
	}
	return registryID, true
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
