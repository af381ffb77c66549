package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auditai/backend/internal/apierrors"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/repository"
)

// agentService matches agent.Service.
type agentService interface {
	Analyze(ctx context.Context, query string, days int) (*model.AnalysisResult, error)
	Suggestions(ctx context.Context, days int) (*model.AnalysisResult, error)
	AuditReport(ctx context.Context, days int) (*model.AnalysisResult, error)
	ExplainRecommendation(ctx context.Context, id string) (*model.AnalysisResult, error)
}

// AgentHandler exposes the analysis agent over HTTP.
type AgentHandler struct {
	svc      agentService
	analyses repository.AnalysisRepository
	logger   *slog.Logger
}

func NewAgentHandler(svc agentService, analyses repository.AnalysisRepository, logger *slog.Logger) *AgentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentHandler{svc: svc, analyses: analyses, logger: logger}
}

type analyzeRequest struct {
	Query string `json:"query"`
	Days  int    `json:"days,omitempty"`
}

// Analyze runs a free-form analysis query through the agent.
func (h *AgentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}
	if req.Query == "" {
		apierrors.NewBadRequestError("query is required").Write(w, r)
		return
	}

	result, err := h.svc.Analyze(r.Context(), req.Query, req.Days)
	if err != nil {
		apierrors.NewInternalError("analysis failed").Write(w, r)
		return
	}

	h.persist(r.Context(), result)
	WriteJSON(w, http.StatusOK, result)
}

// Suggestions returns prioritized optimization suggestions.
func (h *AgentHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	result, err := h.svc.Suggestions(r.Context(), days)
	if err != nil {
		apierrors.NewInternalError("suggestion generation failed").Write(w, r)
		return
	}

	h.persist(r.Context(), result)
	WriteJSON(w, http.StatusOK, result)
}

// Report generates the full audit report.
func (h *AgentHandler) Report(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	result, err := h.svc.AuditReport(r.Context(), days)
	if err != nil {
		apierrors.NewInternalError("report generation failed").Write(w, r)
		return
	}

	h.persist(r.Context(), result)
	WriteJSON(w, http.StatusOK, result)
}

// Explain explains a single recommendation in context.
func (h *AgentHandler) Explain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.NewBadRequestError("recommendation id is required").Write(w, r)
		return
	}

	result, err := h.svc.ExplainRecommendation(r.Context(), id)
	if err != nil {
		apierrors.NewNotFoundError("recommendation", id).Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// History lists recent analysis runs.
func (h *AgentHandler) History(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	limit := queryInt(r, "limit", 20)

	results, err := h.analyses.ListRecent(r.Context(), projectID, limit)
	if err != nil {
		apierrors.NewInternalError("failed to load history").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":  results,
		"total": len(results),
	})
}

// persist writes the result to history without failing the request.
func (h *AgentHandler) persist(ctx context.Context, result *model.AnalysisResult) {
	if h.analyses == nil {
		return
	}
	if err := h.analyses.SaveResult(ctx, result); err != nil {
		h.logger.Warn("analysis result not persisted", "error", err)
	}
}
