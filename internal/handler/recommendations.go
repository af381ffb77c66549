package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/auditai/backend/internal/apierrors"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/repository"
	"github.com/auditai/backend/internal/terraform"
)

// aggregatorService matches recommend.Aggregator.
type aggregatorService interface {
	Aggregate(ctx context.Context, window model.DateRange) (*model.RecommendationSet, error)
}

// RecommendationsHandler serves stored recommendations and on-demand
// aggregation runs.
type RecommendationsHandler struct {
	aggregator aggregatorService
	recs       repository.RecommendationRepository
	generator  *terraform.Generator
	validator  *terraform.Validator
	logger     *slog.Logger
}

func NewRecommendationsHandler(
	aggregator aggregatorService,
	recs repository.RecommendationRepository,
	generator *terraform.Generator,
	logger *slog.Logger,
) *RecommendationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationsHandler{
		aggregator: aggregator,
		recs:       recs,
		generator:  generator,
		validator:  terraform.NewValidator(),
		logger:     logger,
	}
}

// Refresh runs a fresh aggregation, persists the result and returns
// the full set including any collector failures.
func (h *RecommendationsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	set, err := h.aggregator.Aggregate(r.Context(), model.LastDays(days))
	if err != nil {
		apierrors.NewInternalError("aggregation failed").Write(w, r)
		return
	}

	if err := h.recs.SaveSet(r.Context(), set); err != nil {
		h.logger.Warn("recommendation set not persisted", "error", err)
	}

	WriteJSON(w, http.StatusOK, set)
}

// List returns stored recommendations with optional filtering.
func (h *RecommendationsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.RecommendationFilter{
		ProjectID: r.URL.Query().Get("project_id"),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []model.RecommendationType{model.RecommendationType(t)}
	}
	if s := r.URL.Query().Get("severity"); s != "" {
		filter.Severities = []model.Severity{model.Severity(s)}
	}
	if m := r.URL.Query().Get("min_savings"); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil && v > 0 {
			filter.MinSavings = v
		}
	}

	recs, err := h.recs.List(r.Context(), filter)
	if err != nil {
		apierrors.NewInternalError("failed to list recommendations").Write(w, r)
		return
	}

	var totalMonthly float64
	for _, rec := range recs {
		totalMonthly += rec.MonthlySavings
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":                  recs,
		"total":                 len(recs),
		"total_monthly_savings": totalMonthly,
	})
}

// Summary aggregates the stored active recommendations: totals plus the
// by-severity split.
func (h *RecommendationsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	recs, err := h.recs.List(r.Context(), model.RecommendationFilter{
		ProjectID: r.URL.Query().Get("project_id"),
	})
	if err != nil {
		apierrors.NewInternalError("failed to list recommendations").Write(w, r)
		return
	}

	set := model.RecommendationSet{Recommendations: make([]model.Recommendation, 0, len(recs))}
	for _, rec := range recs {
		set.Recommendations = append(set.Recommendations, *rec)
	}

	WriteJSON(w, http.StatusOK, set.Summary())
}

// GetByID returns a single stored recommendation.
func (h *RecommendationsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.recs.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		apierrors.NewNotFoundError("recommendation", id).Write(w, r)
		return
	}
	if err != nil {
		apierrors.NewInternalError("failed to load recommendation").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

type statusUpdateRequest struct {
	Status model.RecommendationStatus `json:"status"`
}

var allowedStatuses = map[model.RecommendationStatus]bool{
	model.RecommendationStatusActive:    true,
	model.RecommendationStatusClaimed:   true,
	model.RecommendationStatusSucceeded: true,
	model.RecommendationStatusDismissed: true,
}

// UpdateStatus records what the user did with a recommendation.
func (h *RecommendationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.NewBadRequestError("invalid request body").Write(w, r)
		return
	}
	if !allowedStatuses[req.Status] {
		apierrors.NewBadRequestError("unknown status "+string(req.Status)).Write(w, r)
		return
	}

	err := h.recs.UpdateStatus(r.Context(), id, req.Status)
	if errors.Is(err, repository.ErrNotFound) {
		apierrors.NewNotFoundError("recommendation", id).Write(w, r)
		return
	}
	if err != nil {
		apierrors.NewInternalError("failed to update status").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

// Terraform returns a remediation snippet for one recommendation.
func (h *RecommendationsHandler) Terraform(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.recs.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		apierrors.NewNotFoundError("recommendation", id).Write(w, r)
		return
	}
	if err != nil {
		apierrors.NewInternalError("failed to load recommendation").Write(w, r)
		return
	}

	if !h.generator.IsSupported(rec.Type) {
		apierrors.NewValidationError("no terraform template for type "+string(rec.Type), nil).Write(w, r)
		return
	}

	snippet, err := h.generator.Generate(rec)
	if err != nil {
		apierrors.NewInternalError("snippet generation failed").Write(w, r)
		return
	}

	formatted, err := h.validator.ValidateAndFormat(snippet)
	if err != nil {
		apierrors.NewInternalError("generated snippet is invalid").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"recommendation_id": rec.ID,
		"snippet":           formatted,
		"placeholders":      h.validator.CheckPlaceholders(formatted),
	})
}
