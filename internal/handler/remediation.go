package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auditai/backend/internal/apierrors"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/remediation"
	"github.com/auditai/backend/internal/repository"
)

// RemediationHandler exposes the remediation lifecycle over HTTP.
type RemediationHandler struct {
	executor  *remediation.Executor
	recs      repository.RecommendationRepository
	projectID string
	provider  model.CloudProvider
}

func NewRemediationHandler(executor *remediation.Executor, recs repository.RecommendationRepository, projectID string, provider model.CloudProvider) *RemediationHandler {
	return &RemediationHandler{
		executor:  executor,
		recs:      recs,
		projectID: projectID,
		provider:  provider,
	}
}

type proposeRequest struct {
	RecommendationID string            `json:"recommendation_id"`
	RequestedBy      string            `json:"requested_by"`
	Provider         string            `json:"provider,omitempty"`
	Params           map[string]string `json:"params,omitempty"`
}

// Propose creates a remediation action from a stored recommendation.
func (h *RemediationHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}
	if req.RecommendationID == "" {
		apierrors.NewBadRequestError("recommendation_id is required").Write(w, r)
		return
	}
	if req.RequestedBy == "" {
		req.RequestedBy = "system"
	}

	provider := h.provider
	switch model.CloudProvider(req.Provider) {
	case model.CloudProviderGCP, model.CloudProviderAWS:
		provider = model.CloudProvider(req.Provider)
	case "":
	default:
		apierrors.NewBadRequestError("unknown provider "+req.Provider).Write(w, r)
		return
	}

	rec, err := h.recs.GetByID(r.Context(), req.RecommendationID)
	if errors.Is(err, repository.ErrNotFound) {
		apierrors.NewNotFoundError("recommendation", req.RecommendationID).Write(w, r)
		return
	}
	if err != nil {
		apierrors.NewInternalError("failed to load recommendation").Write(w, r)
		return
	}

	action, err := h.executor.Propose(r.Context(), h.projectID, provider, rec, req.RequestedBy, req.Params)
	if errors.Is(err, remediation.ErrMissingResource) || errors.Is(err, remediation.ErrUnsupportedType) {
		apierrors.NewValidationError(err.Error(), nil).Write(w, r)
		return
	}
	if err != nil {
		apierrors.NewInternalError("failed to propose action").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusCreated, action)
}

// Pending lists actions awaiting approval.
func (h *RemediationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	actions, err := h.executor.Pending(r.Context(), h.projectID)
	if err != nil {
		apierrors.NewInternalError("failed to list actions").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":  actions,
		"total": len(actions),
	})
}

// GetByID returns one action.
func (h *RemediationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	action, err := h.executor.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, remediation.ErrActionNotFound) {
		apierrors.NewNotFoundError("action", chi.URLParam(r, "id")).Write(w, r)
		return
	}
	if err != nil {
		apierrors.NewInternalError("failed to load action").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, action)
}

type approvalRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// Approve approves a pending action.
func (h *RemediationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	json.NewDecoder(r.Body).Decode(&req)

	action, err := h.executor.Approve(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, action)
}

// Reject declines a pending action.
func (h *RemediationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	json.NewDecoder(r.Body).Decode(&req)

	action, err := h.executor.Reject(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, action)
}

// Cancel withdraws an action before execution.
func (h *RemediationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	json.NewDecoder(r.Body).Decode(&req)

	action, err := h.executor.Cancel(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, action)
}

// Execute applies an approved action against the cloud provider.
func (h *RemediationHandler) Execute(w http.ResponseWriter, r *http.Request) {
	action, err := h.executor.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil && action == nil {
		h.writeLifecycleError(w, r, err)
		return
	}
	// A failed execution still returns the action so the caller sees
	// the failure reason and any rollback data.
	WriteJSON(w, http.StatusOK, action)
}

// Rollback reverts a completed or failed action.
func (h *RemediationHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	json.NewDecoder(r.Body).Decode(&req)

	action, err := h.executor.Rollback(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, action)
}

func (h *RemediationHandler) writeLifecycleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, remediation.ErrActionNotFound):
		apierrors.NewNotFoundError("action", chi.URLParam(r, "id")).Write(w, r)
	case errors.Is(err, remediation.ErrInvalidState), errors.Is(err, remediation.ErrSelfApproval), errors.Is(err, remediation.ErrNothingToRevert):
		apierrors.NewConflictError(err.Error()).Write(w, r)
	default:
		apierrors.FromError(err).Write(w, r)
	}
}
