package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/auditai/backend/internal/model"
)

// CostCollector reads spend data from Cost Explorer.
type CostCollector struct {
	ce costExplorerAPI
}

func NewCostCollector(ce costExplorerAPI) *CostCollector {
	return &CostCollector{ce: ce}
}

// GetTotalCost returns total spend plus the per-service split for the
// window.
func (c *CostCollector) GetTotalCost(ctx context.Context, window model.DateRange) (*model.CostSummary, error) {
	output, err := c.ce.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(window.Start.Format("2006-01-02")),
			End:   aws.String(window.End.Format("2006-01-02")),
		},
		Granularity: types.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []types.GroupDefinition{
			{Type: types.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cost data: %w", err)
	}

	byService := make(map[string]float64)
	var total float64
	for _, result := range output.ResultsByTime {
		for _, group := range result.Groups {
			var amount float64
			if cost, ok := group.Metrics["UnblendedCost"]; ok {
				amount = parseAmount(cost.Amount)
			}
			if len(group.Keys) > 0 {
				byService[group.Keys[0]] += amount
			}
			total += amount
		}
	}

	services := make([]model.ServiceCost, 0, len(byService))
	for svc, cost := range byService {
		services = append(services, model.ServiceCost{Service: svc, Cost: cost})
	}

	return &model.CostSummary{
		TotalCost: total,
		Currency:  model.CurrencyUSD,
		ByService: services,
		Window:    window,
	}, nil
}

// GetCostTrend returns the daily cost series for the window.
func (c *CostCollector) GetCostTrend(ctx context.Context, window model.DateRange) ([]model.CostPoint, error) {
	output, err := c.ce.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(window.Start.Format("2006-01-02")),
			End:   aws.String(window.End.Format("2006-01-02")),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{"UnblendedCost"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cost trend: %w", err)
	}

	points := make([]model.CostPoint, 0, len(output.ResultsByTime))
	for _, result := range output.ResultsByTime {
		if result.TimePeriod == nil || result.TimePeriod.Start == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", *result.TimePeriod.Start)
		if err != nil {
			continue
		}
		var amount float64
		if cost, ok := result.Total["UnblendedCost"]; ok {
			amount = parseAmount(cost.Amount)
		}
		points = append(points, model.CostPoint{Date: date, Cost: amount})
	}
	return points, nil
}
