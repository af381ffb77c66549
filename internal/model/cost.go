package model

import "time"

// CostPoint is a single dated cost observation.
type CostPoint struct {
	Date time.Time `json:"date"`
	Cost float64   `json:"cost"`
}

// ServiceCost is the spend of one service over the analysis window.
type ServiceCost struct {
	Service string  `json:"service"`
	Cost    float64 `json:"cost"`
}

// CostSummary is the aggregate cost context attached to an analysis run.
type CostSummary struct {
	TotalCost float64       `json:"total_cost"`
	Currency  Currency      `json:"currency"`
	ByService []ServiceCost `json:"by_service"`
	Trend     []CostPoint   `json:"trend,omitempty"`
	Window    DateRange     `json:"window"`
}

// CostBreakdown is one service's share of total spend for a run. Percentages
// across a run's breakdown sum to ~100 whenever total cost is nonzero.
type CostBreakdown struct {
	Service           string  `json:"service"`
	Cost              float64 `json:"cost"`
	Percentage        float64 `json:"percentage_of_total"`
	Trend             string  `json:"trend"`
	MonthlyProjection float64 `json:"monthly_projection"`
}

// MonthlyProjection projects a month of spend from daily observations.
type MonthlyProjection struct {
	CurrentMonth   float64 `json:"current_month"`
	ProjectedMonth float64 `json:"projected_month"`
	DailyAverage   float64 `json:"daily_average"`
	Trend          string  `json:"trend"`
	GrowthRate     float64 `json:"growth_rate"`
	Confidence     string  `json:"projection_confidence"`
}

// AnnualProjection compounds a monthly cost out to a year, quarter by
// quarter.
type AnnualProjection struct {
	AnnualCostNoGrowth   float64    `json:"annual_cost_no_growth"`
	AnnualCostWithGrowth float64    `json:"annual_cost_with_growth"`
	MonthlyAverage       float64    `json:"monthly_average"`
	ByQuarter            [4]float64 `json:"by_quarter"`
	MonthlyGrowthRate    float64    `json:"monthly_growth_rate"`
	TotalGrowthDollars   float64    `json:"total_growth_dollars"`
}

// ROICalculation holds the return-on-investment metrics for one
// recommendation.
type ROICalculation struct {
	RecommendationID   string  `json:"recommendation_id"`
	MonthlySavings     float64 `json:"monthly_savings"`
	AnnualSavings      float64 `json:"annual_savings"`
	ImplementationCost float64 `json:"implementation_cost"`
	PaybackMonths      float64 `json:"payback_months"`
	ROIPercentage      float64 `json:"roi_percentage"`
	Confidence         float64 `json:"confidence"`
}

// TrendAnalysis is the moving-average trend of a daily cost series.
type TrendAnalysis struct {
	Trend           string  `json:"trend"`
	TrendPercentage float64 `json:"trend_percentage"`
	MovingAverage   float64 `json:"moving_average"`
	Forecast30Days  float64 `json:"forecast_30_days"`
	Volatility      float64 `json:"volatility"`
	Confidence      string  `json:"confidence"`
}

// SavingsTotals aggregates savings across a recommendation set.
type SavingsTotals struct {
	MonthlyTotal        float64 `json:"monthly_total"`
	AnnualTotal         float64 `json:"annual_total"`
	Highest             float64 `json:"highest"`
	Average             float64 `json:"average"`
	ConfidenceWeighted  float64 `json:"confidence_weighted"`
	RecommendationCount int     `json:"recommendation_count"`
	HighConfidenceCount int     `json:"high_confidence_count"`
}

// ImplementationEstimate is a rough effort estimate for applying a
// recommendation.
type ImplementationEstimate struct {
	Hours        int `json:"hours"`
	BusinessDays int `json:"business_days"`
	CalendarDays int `json:"calendar_days"`
}

// ResourceMetric is one resource's utilization over the analysis window.
type ResourceMetric struct {
	ResourceID         string  `json:"resource_id"`
	ResourceType       string  `json:"resource_type,omitempty"`
	UtilizationPercent float64 `json:"utilization_percent"`
	IsIdle             bool    `json:"is_idle"`
}
