package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditai/backend/internal/model"
)

type fakeCostSource struct {
	summary *model.CostSummary
	trend   []model.CostPoint
	err     error
}

func (f *fakeCostSource) GetTotalCost(context.Context, model.DateRange) (*model.CostSummary, error) {
	return f.summary, f.err
}

func (f *fakeCostSource) GetCostTrend(context.Context, model.DateRange) ([]model.CostPoint, error) {
	return f.trend, f.err
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestMergedCostCollector_GetTotalCost(t *testing.T) {
	gcp := &fakeCostSource{summary: &model.CostSummary{
		TotalCost: 100,
		Currency:  model.CurrencyUSD,
		ByService: []model.ServiceCost{
			{Service: "Compute Engine", Cost: 80},
			{Service: "Cloud Storage", Cost: 20},
		},
	}}
	aws := &fakeCostSource{summary: &model.CostSummary{
		TotalCost: 50,
		ByService: []model.ServiceCost{
			{Service: "Amazon EC2", Cost: 50},
		},
	}}

	m := NewMergedCostCollector(gcp, aws)
	summary, err := m.GetTotalCost(context.Background(), model.LastDays(30))
	require.NoError(t, err)

	assert.InDelta(t, 150, summary.TotalCost, 0.001)
	require.Len(t, summary.ByService, 3)
	// Descending by cost.
	assert.Equal(t, "Compute Engine", summary.ByService[0].Service)
	assert.Equal(t, "Amazon EC2", summary.ByService[1].Service)
}

func TestMergedCostCollector_TrendSumsByDate(t *testing.T) {
	gcp := &fakeCostSource{trend: []model.CostPoint{
		{Date: day(1), Cost: 10},
		{Date: day(2), Cost: 12},
	}}
	aws := &fakeCostSource{trend: []model.CostPoint{
		{Date: day(2), Cost: 3},
		{Date: day(3), Cost: 4},
	}}

	m := NewMergedCostCollector(gcp, aws)
	points, err := m.GetCostTrend(context.Background(), model.LastDays(7))
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, day(1), points[0].Date)
	assert.InDelta(t, 15, points[1].Cost, 0.001)
	assert.Equal(t, day(3), points[2].Date)
}

func TestMergedCostCollector_SourceFailureFails(t *testing.T) {
	ok := &fakeCostSource{summary: &model.CostSummary{TotalCost: 100}}
	broken := &fakeCostSource{err: errors.New("throttled")}

	m := NewMergedCostCollector(ok, broken)
	_, err := m.GetTotalCost(context.Background(), model.LastDays(30))
	assert.Error(t, err)
}
