package gcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditai/backend/internal/model"
)

func billingWindow() model.DateRange {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	return model.DateRange{Start: end.AddDate(0, 0, -30), End: end}
}

func TestBillingCollector_GetTotalCost(t *testing.T) {
	var gotReq billingQueryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"currencyCode": "USD",
			"rows": []map[string]any{
				{"service": "Compute Engine", "cost": 400.0},
				{"service": "Compute Engine", "cost": 200.0},
				{"service": "Cloud Storage", "cost": 200.0},
				{"service": "BigQuery", "cost": 200.0},
			},
		})
	}))
	defer server.Close()

	c := NewBillingCollector(testConfig(server.URL))
	summary, err := c.GetTotalCost(context.Background(), billingWindow())
	require.NoError(t, err)

	assert.Equal(t, "proj-1", gotReq.ProjectID)
	assert.Equal(t, "service", gotReq.GroupBy)
	assert.Equal(t, 1000.0, summary.TotalCost)
	assert.Equal(t, model.CurrencyUSD, summary.Currency)

	// Per-service rows merged and sorted descending.
	require.Len(t, summary.ByService, 3)
	assert.Equal(t, "Compute Engine", summary.ByService[0].Service)
	assert.Equal(t, 600.0, summary.ByService[0].Cost)
}

func TestBillingCollector_GetCostTrend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rows": []map[string]any{
				{"date": "2025-06-02", "cost": 20.0},
				{"date": "2025-06-01", "cost": 10.0},
				{"date": "2025-06-01", "cost": 5.0},
				{"date": "not-a-date", "cost": 99.0},
			},
		})
	}))
	defer server.Close()

	c := NewBillingCollector(testConfig(server.URL))
	points, err := c.GetCostTrend(context.Background(), billingWindow())
	require.NoError(t, err)

	// Same-day rows merge, bad dates drop, output is date-ordered.
	require.Len(t, points, 2)
	assert.Equal(t, 15.0, points[0].Cost)
	assert.Equal(t, 20.0, points[1].Cost)
	assert.True(t, points[0].Date.Before(points[1].Date))
}

func TestMonitoringCollector_GetResourceMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "cpu")
		json.NewEncoder(w).Encode(map[string]any{
			"timeSeries": []map[string]any{
				{
					"resource": map[string]any{
						"type":   "gce_instance",
						"labels": map[string]string{"instance_name": "web-1"},
					},
					"points": []map[string]any{
						{"value": map[string]any{"doubleValue": 0.02}},
						{"value": map[string]any{"doubleValue": 0.04}},
					},
				},
				{
					"resource": map[string]any{
						"type":   "gce_instance",
						"labels": map[string]string{"instance_name": "api-1"},
					},
					"points": []map[string]any{
						{"value": map[string]any{"doubleValue": 0.60}},
					},
				},
			},
		})
	}))
	defer server.Close()

	c := NewMonitoringCollector(testConfig(server.URL))
	metrics, err := c.GetResourceMetrics(context.Background(), billingWindow())
	require.NoError(t, err)

	require.Len(t, metrics, 2)
	assert.Equal(t, "web-1", metrics[0].ResourceID)
	assert.InDelta(t, 3.0, metrics[0].UtilizationPercent, 0.001)
	assert.True(t, metrics[0].IsIdle)

	assert.Equal(t, "api-1", metrics[1].ResourceID)
	assert.InDelta(t, 60.0, metrics[1].UtilizationPercent, 0.001)
	assert.False(t, metrics[1].IsIdle)
}

// A collector built without a credential provider must surface an error from
// its calls rather than crash.
func TestBillingCollector_NoCredentialProvider(t *testing.T) {
	c := NewBillingCollector(Config{ProjectID: "proj-1", BillingAccount: "ABCDEF-123456"})

	_, err := c.GetTotalCost(context.Background(), billingWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credential provider")
}
