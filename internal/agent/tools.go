package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/auditai/backend/internal/collector"
	"github.com/auditai/backend/internal/costmath"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/recommend"
)

// Toolset builds the concrete tools exposed to the model for one project.
// The last aggregation run is cached so savings lookups by recommendation id
// do not re-collect.
type Toolset struct {
	aggregator  *recommend.Aggregator
	costs       collector.CostCollector
	utilization collector.UtilizationCollector

	mu      sync.Mutex
	lastSet *model.RecommendationSet
}

func NewToolset(aggregator *recommend.Aggregator, costs collector.CostCollector, utilization collector.UtilizationCollector) *Toolset {
	return &Toolset{
		aggregator:  aggregator,
		costs:       costs,
		utilization: utilization,
	}
}

// Tools returns the full tool list for registry construction.
func (ts *Toolset) Tools() []Tool {
	return []Tool{
		&costAnalysisTool{ts},
		&resourceMetricsTool{ts},
		&recommendationsTool{ts},
		&infrastructureTool{ts},
		&savingsTool{ts},
	}
}

func (ts *Toolset) aggregate(ctx context.Context, days int) (*model.RecommendationSet, error) {
	set, err := ts.aggregator.Aggregate(ctx, model.LastDays(days))
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	ts.lastSet = set
	ts.mu.Unlock()
	return set, nil
}

func (ts *Toolset) cachedSet() *model.RecommendationSet {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastSet
}

// intArg reads an integer argument, tolerating the float64 the JSON decoder
// produces.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}

func stringArg(args map[string]any, key, fallback string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

var daysParameter = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"days": map[string]any{
			"type":        "integer",
			"description": "Number of days of history to analyze (default 30)",
		},
	},
}

// costAnalysisTool wraps the cost collector and the analytics engine.
type costAnalysisTool struct{ ts *Toolset }

func (t *costAnalysisTool) Name() string { return "get_cost_analysis" }

func (t *costAnalysisTool) Description() string {
	return "Fetch total spend, per-service cost breakdown with trends, and a monthly cost projection for the project"
}

func (t *costAnalysisTool) Parameters() map[string]any { return daysParameter }

func (t *costAnalysisTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	days := intArg(args, "days", 30)
	window := model.LastDays(days)

	summary, err := t.ts.costs.GetTotalCost(ctx, window)
	if err != nil {
		return Errf("cost data unavailable: %v", err)
	}

	payload := map[string]any{
		"total_cost": summary.TotalCost,
		"currency":   summary.Currency,
		"breakdown":  costmath.CalculateCostBreakdown(summary.ByService),
	}

	if trend, err := t.ts.costs.GetCostTrend(ctx, window); err == nil && len(trend) > 0 {
		if proj, err := costmath.CalculateMonthlyProjection(trend, days); err == nil {
			payload["monthly_projection"] = proj
		}
	}

	return Ok(payload)
}

// resourceMetricsTool wraps the utilization collector.
type resourceMetricsTool struct{ ts *Toolset }

func (t *resourceMetricsTool) Name() string { return "get_resource_metrics" }

func (t *resourceMetricsTool) Description() string {
	return "Fetch per-resource utilization metrics and idle flags for the project"
}

func (t *resourceMetricsTool) Parameters() map[string]any { return daysParameter }

func (t *resourceMetricsTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	if t.ts.utilization == nil {
		return Errf("utilization metrics are not configured for this project")
	}

	days := intArg(args, "days", 7)
	metrics, err := t.ts.utilization.GetResourceMetrics(ctx, model.LastDays(days))
	if err != nil {
		return Errf("utilization metrics unavailable: %v", err)
	}

	idle := 0
	for _, m := range metrics {
		if m.IsIdle {
			idle++
		}
	}
	return Ok(map[string]any{
		"metrics":        metrics,
		"resource_count": len(metrics),
		"idle_count":     idle,
	})
}

// recommendationsTool wraps the aggregator with an optional type filter.
type recommendationsTool struct{ ts *Toolset }

func (t *recommendationsTool) Name() string { return "get_recommendations" }

func (t *recommendationsTool) Description() string {
	return "Fetch ranked optimization recommendations, optionally filtered by type: idle, oversized, storage, or all"
}

func (t *recommendationsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendation_type": map[string]any{
				"type":        "string",
				"enum":        []string{"idle", "oversized", "storage", "all"},
				"description": "Restrict results to one recommendation category",
			},
		},
	}
}

func (t *recommendationsTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	set, err := t.ts.aggregate(ctx, 30)
	if err != nil {
		return Errf("recommendation collection failed: %v", err)
	}

	filter := stringArg(args, "recommendation_type", "all")
	recs := filterByType(set.Recommendations, filter)

	subset := &model.RecommendationSet{Recommendations: recs}
	return Ok(map[string]any{
		"recommendations": recs,
		"summary":         subset.Summary(),
		"partial":         set.Partial,
	})
}

func filterByType(recs []model.Recommendation, filter string) []model.Recommendation {
	if filter == "" || filter == "all" {
		return recs
	}
	var want []model.RecommendationType
	switch strings.ToLower(filter) {
	case "idle":
		want = []model.RecommendationType{model.RecommendationTypeIdleResource, model.RecommendationTypeUnusedDisk}
	case "oversized":
		want = []model.RecommendationType{model.RecommendationTypeOversizedResource}
	case "storage":
		want = []model.RecommendationType{model.RecommendationTypeSecurityIssue}
	default:
		return recs
	}

	out := make([]model.Recommendation, 0, len(recs))
	for _, rec := range recs {
		for _, w := range want {
			if rec.Type == w {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// infrastructureTool combines the aggregator and the analytics engine into a
// single full-picture report.
type infrastructureTool struct{ ts *Toolset }

func (t *infrastructureTool) Name() string { return "analyze_infrastructure" }

func (t *infrastructureTool) Description() string {
	return "Run a combined analysis: recommendations, cost breakdown, trend, and total potential savings for the project"
}

func (t *infrastructureTool) Parameters() map[string]any { return daysParameter }

func (t *infrastructureTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	days := intArg(args, "days", 30)
	set, err := t.ts.aggregate(ctx, days)
	if err != nil {
		return Errf("infrastructure analysis failed: %v", err)
	}

	payload := map[string]any{
		"recommendations": set.Recommendations,
		"summary":         set.Summary(),
		"savings":         costmath.CalculateTotalSavings(set.Recommendations),
		"partial":         set.Partial,
	}
	if set.CostSummary != nil {
		payload["total_cost"] = set.CostSummary.TotalCost
		payload["cost_breakdown"] = costmath.CalculateCostBreakdown(set.CostSummary.ByService)
	}
	if points, err := t.ts.costs.GetCostTrend(ctx, model.LastDays(days)); err == nil {
		if trend, err := costmath.AnalyzeCostTrend(points, 7); err == nil {
			payload["cost_trend"] = trend
		}
	}
	return Ok(payload)
}

// savingsTool computes ROI for one recommendation from the last aggregation
// run.
type savingsTool struct{ ts *Toolset }

func (t *savingsTool) Name() string { return "calculate_savings" }

func (t *savingsTool) Description() string {
	return "Calculate annual savings, payback period, and ROI for a specific recommendation id"
}

func (t *savingsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendation_id": map[string]any{
				"type":        "string",
				"description": "Id of the recommendation to evaluate",
			},
		},
		"required": []string{"recommendation_id"},
	}
}

func (t *savingsTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	id := stringArg(args, "recommendation_id", "")
	if id == "" {
		return Errf("recommendation_id is required")
	}

	set := t.ts.cachedSet()
	if set == nil {
		var err error
		set, err = t.ts.aggregate(ctx, 30)
		if err != nil {
			return Errf("recommendation collection failed: %v", err)
		}
	}

	for _, rec := range set.Recommendations {
		if rec.ID == id || rec.ResourceID == id {
			est := costmath.EstimateImplementationTime(rec.Difficulty, 1)
			implementationCost := float64(est.Hours) * 150 // loaded engineering rate
			roi := costmath.CalculateROI(rec.ID, rec.MonthlySavings, implementationCost, rec.Confidence)
			return Ok(map[string]any{
				"recommendation": rec,
				"roi":            roi,
				"implementation": est,
			})
		}
	}
	return Errf("recommendation %q not found in the current analysis", id)
}
