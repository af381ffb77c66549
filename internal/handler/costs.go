package handler

import (
	"net/http"

	"github.com/auditai/backend/internal/apierrors"
	"github.com/auditai/backend/internal/collector"
	"github.com/auditai/backend/internal/costmath"
	"github.com/auditai/backend/internal/model"
)

// CostsHandler serves billing and utilization data straight from the
// cloud APIs.
type CostsHandler struct {
	costs       collector.CostCollector
	utilization collector.UtilizationCollector
}

func NewCostsHandler(costs collector.CostCollector, utilization collector.UtilizationCollector) *CostsHandler {
	return &CostsHandler{costs: costs, utilization: utilization}
}

// Summary returns total spend with the per-service split.
func (h *CostsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	summary, err := h.costs.GetTotalCost(r.Context(), model.LastDays(days))
	if err != nil {
		apierrors.NewServiceUnavailableError("billing data").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// Trend returns the daily cost series with trend statistics.
func (h *CostsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	points, err := h.costs.GetCostTrend(r.Context(), model.LastDays(days))
	if err != nil {
		apierrors.NewServiceUnavailableError("billing data").Write(w, r)
		return
	}

	// 7-day moving average smooths weekly billing cycles.
	trend, err := costmath.AnalyzeCostTrend(points, 7)
	if err != nil {
		apierrors.NewInternalError("trend analysis failed").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data_points": points,
		"analysis":    trend,
	})
}

// Breakdown returns each service's share of total spend.
func (h *CostsHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	summary, err := h.costs.GetTotalCost(r.Context(), model.LastDays(days))
	if err != nil {
		apierrors.NewServiceUnavailableError("billing data").Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"total_cost": summary.TotalCost,
		"currency":   summary.Currency,
		"breakdown":  costmath.CalculateCostBreakdown(summary.ByService),
	})
}

// Projection projects current spend forward a month and a year.
func (h *CostsHandler) Projection(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	points, err := h.costs.GetCostTrend(r.Context(), model.LastDays(days))
	if err != nil {
		apierrors.NewServiceUnavailableError("billing data").Write(w, r)
		return
	}

	monthly, err := costmath.CalculateMonthlyProjection(points, days)
	if err != nil {
		apierrors.NewValidationError("not enough cost data to project", nil).Write(w, r)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"monthly": monthly,
		"annual":  costmath.CalculateAnnualProjection(monthly.ProjectedMonth, monthly.GrowthRate),
	})
}

// Utilization returns per-instance CPU metrics with idle flags.
func (h *CostsHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	metrics, err := h.utilization.GetResourceMetrics(r.Context(), model.LastDays(days))
	if err != nil {
		apierrors.NewServiceUnavailableError("monitoring data").Write(w, r)
		return
	}

	idle := 0
	for _, m := range metrics {
		if m.IsIdle {
			idle++
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":       metrics,
		"total":      len(metrics),
		"idle_count": idle,
	})
}
