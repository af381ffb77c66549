// Package costmath implements deterministic cost analytics: breakdowns,
// projections, ROI, trend analysis, and recommendation prioritization.
// Everything here is a pure function over its inputs; no I/O.
package costmath

import (
	"fmt"
	"math"
	"sort"

	"github.com/auditai/backend/internal/model"
)

// Thresholds shared by the trend functions.
const (
	trendGrowthThreshold = 5.0  // percent change before a series counts as up/down
	breakdownUpFactor    = 1.1  // cost above 1.1x mean trends "up"
	breakdownDownFactor  = 0.9  // cost below 0.9x mean trends "down"
)

// CalculateCostBreakdown computes each service's share of total spend. The
// result is sorted by cost descending. A zero total yields an empty slice:
// there is nothing to break down, which is not an error.
func CalculateCostBreakdown(costsByService []model.ServiceCost) []model.CostBreakdown {
	var total float64
	for _, item := range costsByService {
		total += item.Cost
	}
	if total == 0 {
		return nil
	}

	mean := total / float64(len(costsByService))
	breakdowns := make([]model.CostBreakdown, 0, len(costsByService))
	for _, item := range costsByService {
		trend := model.TrendStable
		if item.Cost > mean*breakdownUpFactor {
			trend = model.TrendUp
		} else if item.Cost < mean*breakdownDownFactor {
			trend = model.TrendDown
		}

		breakdowns = append(breakdowns, model.CostBreakdown{
			Service:           item.Service,
			Cost:              round2(item.Cost),
			Percentage:        round2(item.Cost / total * 100),
			Trend:             trend,
			MonthlyProjection: round2(item.Cost),
		})
	}

	sort.SliceStable(breakdowns, func(i, j int) bool {
		return breakdowns[i].Cost > breakdowns[j].Cost
	})
	return breakdowns
}

// CalculateMonthlyProjection projects a full month of spend from daily
// observations. Growth rate compares the mean of the first half of the
// series against the second half.
func CalculateMonthlyProjection(dailyCosts []model.CostPoint, days int) (*model.MonthlyProjection, error) {
	if days <= 0 {
		return nil, fmt.Errorf("projection period must be positive, got %d days", days)
	}
	if len(dailyCosts) == 0 {
		return &model.MonthlyProjection{Trend: model.TrendStable, Confidence: model.ConfidenceLow}, nil
	}

	var currentMonth float64
	for _, p := range dailyCosts {
		currentMonth += p.Cost
	}
	dailyAverage := currentMonth / float64(days)
	projected := dailyAverage * 30

	var growthRate float64
	if len(dailyCosts) > 1 {
		half := len(dailyCosts) / 2
		firstAvg := meanCost(dailyCosts[:half])
		secondAvg := meanCost(dailyCosts[half:])
		if firstAvg > 0 {
			growthRate = (secondAvg - firstAvg) / firstAvg * 100
		}
	}

	trend := model.TrendStable
	if growthRate > trendGrowthThreshold {
		trend = model.TrendUp
	} else if growthRate < -trendGrowthThreshold {
		trend = model.TrendDown
	}

	return &model.MonthlyProjection{
		CurrentMonth:   round2(currentMonth),
		ProjectedMonth: round2(projected),
		DailyAverage:   round2(dailyAverage),
		Trend:          trend,
		GrowthRate:     round2(growthRate),
		Confidence:     confidenceLabel(len(dailyCosts)),
	}, nil
}

// CalculateAnnualProjection compounds a monthly cost out to four quarters.
// Growth is applied per quarter as (1+rate/100)^3, one compounding step per
// month of the quarter.
func CalculateAnnualProjection(monthlyCost, growthRate float64) model.AnnualProjection {
	annualNoGrowth := monthlyCost * 12

	var quarters [4]float64
	running := monthlyCost
	for q := 0; q < 4; q++ {
		quarters[q] = round2(running * 3)
		if growthRate != 0 {
			running *= math.Pow(1+growthRate/100, 3)
		}
	}

	var withGrowth float64
	for _, q := range quarters {
		withGrowth += q
	}

	return model.AnnualProjection{
		AnnualCostNoGrowth:   round2(annualNoGrowth),
		AnnualCostWithGrowth: round2(withGrowth),
		MonthlyAverage:       round2(monthlyCost),
		ByQuarter:            quarters,
		MonthlyGrowthRate:    growthRate,
		TotalGrowthDollars:   round2(withGrowth - annualNoGrowth),
	}
}

// CalculateROI computes payback and first-year ROI for a recommendation.
// With no implementation cost the ROI is reported as a sentinel 100% and
// payback is immediate; there is no division by zero anywhere.
func CalculateROI(recommendationID string, monthlySavings, implementationCost, confidence float64) model.ROICalculation {
	annualSavings := monthlySavings * 12

	var paybackMonths float64
	if monthlySavings > 0 && implementationCost > 0 {
		paybackMonths = implementationCost / monthlySavings
	}

	roiPct := 100.0
	if implementationCost > 0 {
		roiPct = (annualSavings - implementationCost) / implementationCost * 100
	}

	return model.ROICalculation{
		RecommendationID:   recommendationID,
		MonthlySavings:     round2(monthlySavings),
		AnnualSavings:      round2(annualSavings),
		ImplementationCost: round2(implementationCost),
		PaybackMonths:      round1(paybackMonths),
		ROIPercentage:      round2(roiPct),
		Confidence:         confidence,
	}
}

// CalculateTotalSavings aggregates savings across recommendations, including
// a confidence-weighted monthly total.
func CalculateTotalSavings(recs []model.Recommendation) model.SavingsTotals {
	totals := model.SavingsTotals{RecommendationCount: len(recs)}
	if len(recs) == 0 {
		return totals
	}

	for _, rec := range recs {
		totals.MonthlyTotal += rec.MonthlySavings
		totals.ConfidenceWeighted += rec.MonthlySavings * rec.Confidence
		if rec.MonthlySavings > totals.Highest {
			totals.Highest = rec.MonthlySavings
		}
		if rec.Confidence >= 0.8 {
			totals.HighConfidenceCount++
		}
	}
	totals.AnnualTotal = round2(totals.MonthlyTotal * 12)
	totals.Average = round2(totals.MonthlyTotal / float64(len(recs)))
	totals.MonthlyTotal = round2(totals.MonthlyTotal)
	totals.Highest = round2(totals.Highest)
	totals.ConfidenceWeighted = round2(totals.ConfidenceWeighted)
	return totals
}

// CalculatePaybackPeriod returns months to break even for an upfront cost
// given monthly savings net of any ongoing maintenance. Returns +Inf when
// net savings never cover the cost.
func CalculatePaybackPeriod(monthlySavings, upfrontCost, monthlyMaintenance float64) float64 {
	net := monthlySavings - monthlyMaintenance
	if net <= 0 {
		return math.Inf(1)
	}
	return round1(upfrontCost / net)
}

// AnalyzeCostTrend computes a moving-average trend over a daily cost series.
// Series shorter than the window report an insufficient_data trend rather
// than failing; volatility is the population standard deviation as a
// percentage of the mean.
func AnalyzeCostTrend(dailyCosts []model.CostPoint, windowDays int) (*model.TrendAnalysis, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d days", windowDays)
	}
	if len(dailyCosts) < windowDays {
		return &model.TrendAnalysis{
			Trend:      model.TrendInsufficientData,
			Confidence: confidenceLabel(len(dailyCosts)),
		}, nil
	}

	costs := make([]float64, len(dailyCosts))
	for i, p := range dailyCosts {
		costs[i] = p.Cost
	}

	movingAvg := make([]float64, 0, len(costs)-windowDays+1)
	for i := 0; i+windowDays <= len(costs); i++ {
		var sum float64
		for _, c := range costs[i : i+windowDays] {
			sum += c
		}
		movingAvg = append(movingAvg, sum/float64(windowDays))
	}

	trend := model.TrendStable
	var trendPct float64
	if len(movingAvg) >= 2 {
		half := len(movingAvg) / 2
		firstAvg := mean(movingAvg[:half])
		lastAvg := mean(movingAvg[half:])
		if firstAvg > 0 {
			trendPct = (lastAvg - firstAvg) / firstAvg * 100
		}
		if trendPct > trendGrowthThreshold {
			trend = model.TrendUp
		} else if trendPct < -trendGrowthThreshold {
			trend = model.TrendDown
		}
	}

	avgCost := mean(costs)
	var volatility float64
	if avgCost > 0 {
		var variance float64
		for _, c := range costs {
			variance += (c - avgCost) * (c - avgCost)
		}
		variance /= float64(len(costs))
		volatility = math.Sqrt(variance) / avgCost * 100
	}

	currentAvg := movingAvg[len(movingAvg)-1]

	return &model.TrendAnalysis{
		Trend:           trend,
		TrendPercentage: round2(trendPct),
		MovingAverage:   round2(currentAvg),
		Forecast30Days:  round2(currentAvg * 30),
		Volatility:      round2(volatility),
		Confidence:      confidenceLabel(len(dailyCosts)),
	}, nil
}

// DifficultyWeight favors quick wins when prioritizing: easy changes score
// triple, hard ones score straight savings.
func DifficultyWeight(d model.Difficulty) float64 {
	switch d {
	case model.DifficultyEasy:
		return 3
	case model.DifficultyMedium:
		return 2
	case model.DifficultyHard:
		return 1
	}
	return 2
}

// PrioritizeRecommendations orders recommendations by
// savings x difficulty weight x confidence, highest first. The sort is
// stable, so equal scores keep their input order. The input slice is not
// modified.
func PrioritizeRecommendations(recs []model.Recommendation) []model.Recommendation {
	scored := make([]model.Recommendation, len(recs))
	copy(scored, recs)
	for i := range scored {
		scored[i].PriorityScore = round2(scored[i].MonthlySavings * DifficultyWeight(scored[i].Difficulty) * scored[i].Confidence)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PriorityScore > scored[j].PriorityScore
	})
	return scored
}

// EstimateImplementationTime maps difficulty and resource count onto a rough
// hour/day estimate.
func EstimateImplementationTime(difficulty model.Difficulty, resourceCount int) model.ImplementationEstimate {
	type estimate struct {
		base        float64
		perResource float64
	}
	estimates := map[model.Difficulty]estimate{
		model.DifficultyEasy:   {base: 1, perResource: 0.5},
		model.DifficultyMedium: {base: 4, perResource: 2},
		model.DifficultyHard:   {base: 16, perResource: 8},
	}
	est, ok := estimates[difficulty]
	if !ok {
		est = estimates[model.DifficultyMedium]
	}

	extra := 0.0
	if resourceCount > 1 {
		extra = est.perResource * float64(resourceCount-1)
	}
	totalHours := est.base + extra

	return model.ImplementationEstimate{
		Hours:        int(totalHours),
		BusinessDays: int(totalHours/8) + 1,
		CalendarDays: int(totalHours/6) + 1,
	}
}

// confidenceLabel grades statistical reliability by data volume.
func confidenceLabel(dataPoints int) string {
	switch {
	case dataPoints >= 30:
		return model.ConfidenceHigh
	case dataPoints >= 14:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func meanCost(points []model.CostPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Cost
	}
	return sum / float64(len(points))
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
