package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditai/backend/internal/collector"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/recommend"
)

type fakeAdvisory struct {
	category collector.AdvisoryCategory
	entries  []collector.RawAdvisory
}

func (f *fakeAdvisory) Category() collector.AdvisoryCategory { return f.category }

func (f *fakeAdvisory) ListRecommendations(ctx context.Context) ([]collector.RawAdvisory, error) {
	return f.entries, nil
}

type fakeCosts struct {
	summary model.CostSummary
	trend   []model.CostPoint
}

func (f *fakeCosts) GetTotalCost(ctx context.Context, w model.DateRange) (*model.CostSummary, error) {
	return &f.summary, nil
}

func (f *fakeCosts) GetCostTrend(ctx context.Context, w model.DateRange) ([]model.CostPoint, error) {
	if f.trend == nil {
		return nil, errors.New("no billing export")
	}
	return f.trend, nil
}

type fakeUtilization struct {
	metrics []model.ResourceMetric
}

func (f *fakeUtilization) GetResourceMetrics(ctx context.Context, w model.DateRange) ([]model.ResourceMetric, error) {
	return f.metrics, nil
}

func newTestToolset() *Toolset {
	registry := collector.NewRegistry()
	registry.Register(&fakeAdvisory{
		category: collector.CategoryIdleInstances,
		entries: []collector.RawAdvisory{
			{ResourceID: "instances/web-1", Title: "Delete idle instance", Recommender: "compute.instance.IdleResourceRecommender", Priority: collector.PriorityP2, MonthlySavings: 150},
		},
	})
	registry.Register(&fakeAdvisory{
		category: collector.CategoryStorage,
		entries: []collector.RawAdvisory{
			{ResourceID: "buckets/public-1", Title: "Secure public bucket", Recommender: "storage.bucket.AccessRecommender", Priority: collector.PriorityP1, MonthlySavings: 25},
		},
	})

	costs := &fakeCosts{summary: model.CostSummary{
		TotalCost: 1000,
		ByService: []model.ServiceCost{{Service: "Compute Engine", Cost: 600}, {Service: "Cloud Storage", Cost: 400}},
	}}
	util := &fakeUtilization{metrics: []model.ResourceMetric{
		{ResourceID: "instances/web-1", UtilizationPercent: 2.1, IsIdle: true},
		{ResourceID: "instances/api-1", UtilizationPercent: 64.0, IsIdle: false},
	}}

	agg := recommend.NewAggregator("proj-1", registry, costs, testLogger())
	return NewToolset(agg, costs, util)
}

func TestToolset_Names(t *testing.T) {
	names := make([]string, 0)
	for _, tool := range newTestToolset().Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{
		"get_cost_analysis",
		"get_resource_metrics",
		"get_recommendations",
		"analyze_infrastructure",
		"calculate_savings",
	}, names)
}

func TestCostAnalysisTool(t *testing.T) {
	r := NewRegistry(newTestToolset().Tools()...)
	result := r.Execute(context.Background(), "get_cost_analysis", map[string]any{"days": 30.0})

	require.Equal(t, toolStatusSuccess, result.Status)
	payload := result.Data.(map[string]any)
	assert.Equal(t, 1000.0, payload["total_cost"])

	breakdown := payload["breakdown"].([]model.CostBreakdown)
	require.Len(t, breakdown, 2)
	assert.Equal(t, 60.0, breakdown[0].Percentage)
}

func TestResourceMetricsTool(t *testing.T) {
	r := NewRegistry(newTestToolset().Tools()...)
	result := r.Execute(context.Background(), "get_resource_metrics", nil)

	require.Equal(t, toolStatusSuccess, result.Status)
	payload := result.Data.(map[string]any)
	assert.Equal(t, 2, payload["resource_count"])
	assert.Equal(t, 1, payload["idle_count"])
}

func TestRecommendationsTool_Filter(t *testing.T) {
	r := NewRegistry(newTestToolset().Tools()...)

	result := r.Execute(context.Background(), "get_recommendations", map[string]any{"recommendation_type": "idle"})
	require.Equal(t, toolStatusSuccess, result.Status)
	recs := result.Data.(map[string]any)["recommendations"].([]model.Recommendation)
	require.Len(t, recs, 1)
	assert.Equal(t, model.RecommendationTypeIdleResource, recs[0].Type)

	result = r.Execute(context.Background(), "get_recommendations", map[string]any{"recommendation_type": "all"})
	recs = result.Data.(map[string]any)["recommendations"].([]model.Recommendation)
	assert.Len(t, recs, 2)
}

// With a daily cost series available, the full-picture report carries a
// moving-average trend next to the breakdown.
func TestInfrastructureTool_IncludesCostTrend(t *testing.T) {
	ts := newTestToolset()
	costs := ts.costs.(*fakeCosts)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		costs.trend = append(costs.trend, model.CostPoint{
			Date: start.AddDate(0, 0, i),
			Cost: 100 + float64(i)*5,
		})
	}

	r := NewRegistry(ts.Tools()...)
	result := r.Execute(context.Background(), "analyze_infrastructure", map[string]any{"days": 14.0})
	require.Equal(t, toolStatusSuccess, result.Status)

	payload := result.Data.(map[string]any)
	trend, ok := payload["cost_trend"].(*model.TrendAnalysis)
	require.True(t, ok, "cost_trend missing from report payload")
	assert.Equal(t, model.TrendUp, trend.Trend)
}

func TestSavingsTool(t *testing.T) {
	ts := newTestToolset()
	r := NewRegistry(ts.Tools()...)

	// Prime the cache so the id is resolvable.
	prime := r.Execute(context.Background(), "analyze_infrastructure", nil)
	require.Equal(t, toolStatusSuccess, prime.Status)

	result := r.Execute(context.Background(), "calculate_savings", map[string]any{"recommendation_id": "instances/web-1"})
	require.Equal(t, toolStatusSuccess, result.Status)
	payload := result.Data.(map[string]any)
	roi := payload["roi"].(model.ROICalculation)
	assert.Equal(t, 1800.0, roi.AnnualSavings)
}

func TestSavingsTool_NotFound(t *testing.T) {
	r := NewRegistry(newTestToolset().Tools()...)
	result := r.Execute(context.Background(), "calculate_savings", map[string]any{"recommendation_id": "nope"})
	assert.Equal(t, toolStatusError, result.Status)
	assert.Contains(t, result.Message, "not found")
}

func TestSavingsTool_MissingID(t *testing.T) {
	r := NewRegistry(newTestToolset().Tools()...)
	result := r.Execute(context.Background(), "calculate_savings", nil)
	assert.Equal(t, toolStatusError, result.Status)
}

func TestFilterByType(t *testing.T) {
	recs := []model.Recommendation{
		{Type: model.RecommendationTypeIdleResource},
		{Type: model.RecommendationTypeUnusedDisk},
		{Type: model.RecommendationTypeOversizedResource},
		{Type: model.RecommendationTypeSecurityIssue},
	}
	assert.Len(t, filterByType(recs, "idle"), 2)
	assert.Len(t, filterByType(recs, "oversized"), 1)
	assert.Len(t, filterByType(recs, "storage"), 1)
	assert.Len(t, filterByType(recs, "all"), 4)
	assert.Len(t, filterByType(recs, ""), 4)
}
