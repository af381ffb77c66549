package gcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/auditai/backend/internal/model"
)

// BillingCollector reads cost data from the Cloud Billing API's BigQuery
// export query endpoint.
type BillingCollector struct {
	client *client
}

func NewBillingCollector(cfg Config) *BillingCollector {
	return &BillingCollector{client: newClient(cfg)}
}

// Wire types for the billing cost query.

type billingQueryRequest struct {
	ProjectID string `json:"projectId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	GroupBy   string `json:"groupBy,omitempty"`
}

type billingQueryResponse struct {
	CurrencyCode string `json:"currencyCode"`
	Rows         []struct {
		Service string  `json:"service"`
		Date    string  `json:"date"`
		Cost    float64 `json:"cost"`
	} `json:"rows"`
}

// GetTotalCost returns total spend and the per-service split for the window.
func (c *BillingCollector) GetTotalCost(ctx context.Context, window model.DateRange) (*model.CostSummary, error) {
	resp, err := c.query(ctx, window, "service")
	if err != nil {
		return nil, err
	}

	byService := make(map[string]float64)
	var total float64
	for _, row := range resp.Rows {
		byService[row.Service] += row.Cost
		total += row.Cost
	}

	services := make([]model.ServiceCost, 0, len(byService))
	for svc, cost := range byService {
		services = append(services, model.ServiceCost{Service: svc, Cost: cost})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Cost > services[j].Cost })

	currency := model.Currency(resp.CurrencyCode)
	if currency == "" {
		currency = model.CurrencyUSD
	}

	return &model.CostSummary{
		TotalCost: total,
		Currency:  currency,
		ByService: services,
		Window:    window,
	}, nil
}

// GetCostTrend returns the daily cost series for the window, ordered by date.
func (c *BillingCollector) GetCostTrend(ctx context.Context, window model.DateRange) ([]model.CostPoint, error) {
	resp, err := c.query(ctx, window, "date")
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]float64)
	for _, row := range resp.Rows {
		byDate[row.Date] += row.Cost
	}

	points := make([]model.CostPoint, 0, len(byDate))
	for date, cost := range byDate {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		points = append(points, model.CostPoint{Date: d, Cost: cost})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (c *BillingCollector) query(ctx context.Context, window model.DateRange, groupBy string) (*billingQueryResponse, error) {
	url := fmt.Sprintf("%s/billingAccounts/%s/costs:query", c.client.billingBaseURL, c.client.billingAccount)
	req := billingQueryRequest{
		ProjectID: c.client.projectID,
		StartDate: window.Start.Format("2006-01-02"),
		EndDate:   window.End.Format("2006-01-02"),
		GroupBy:   groupBy,
	}

	var resp billingQueryResponse
	if err := c.client.post(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("billing query failed: %w", err)
	}
	return &resp, nil
}
