package model

import "time"

// RecommendationType classifies what kind of optimization a recommendation is.
type RecommendationType string

const (
	RecommendationTypeIdleResource      RecommendationType = "idle_resource"
	RecommendationTypeOversizedResource RecommendationType = "oversized_resource"
	RecommendationTypeUnusedDisk        RecommendationType = "unused_disk"
	RecommendationTypeSecurityIssue     RecommendationType = "security_issue"
	RecommendationTypeCostOptimization  RecommendationType = "cost_optimization"
)

// Recommendation is a normalized optimization recommendation. It is built
// once per analysis run from a raw advisory entry and is immutable after
// construction.
type Recommendation struct {
	ID             string             `json:"id" db:"id"`
	ResourceID     string             `json:"resource_id" db:"resource_id"`
	Title          string             `json:"title" db:"title"`
	Description    string             `json:"description" db:"description"`
	Type           RecommendationType `json:"recommendation_type" db:"recommendation_type"`
	Severity       Severity           `json:"severity" db:"severity"`
	RiskLevel      RiskLevel          `json:"risk_level" db:"risk_level"`
	Difficulty     Difficulty         `json:"difficulty" db:"difficulty"`
	MonthlySavings float64            `json:"monthly_savings" db:"monthly_savings"`
	AnnualSavings  float64            `json:"annual_savings" db:"annual_savings"`
	Confidence     float64            `json:"confidence" db:"confidence"`
	Source         string             `json:"source" db:"source"`
	RecommenderID  string             `json:"recommender_id,omitempty" db:"recommender_id"`
	ActionItems    []string           `json:"action_items" db:"action_items"`
	PriorityScore  float64            `json:"priority_score,omitempty" db:"priority_score"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

// RecommendationStatus tracks what the user did with a persisted
// recommendation.
type RecommendationStatus string

const (
	RecommendationStatusActive    RecommendationStatus = "active"
	RecommendationStatusClaimed   RecommendationStatus = "claimed"
	RecommendationStatusSucceeded RecommendationStatus = "succeeded"
	RecommendationStatusDismissed RecommendationStatus = "dismissed"
)

// RecommendationFilter defines filtering options for stored recommendations.
type RecommendationFilter struct {
	ProjectID  string
	Types      []RecommendationType
	Severities []Severity
	MinSavings float64
}

// RecommendationSummary aggregates a recommendation set for display.
type RecommendationSummary struct {
	TotalRecommendations int              `json:"total_recommendations"`
	TotalMonthlySavings  float64          `json:"total_monthly_savings"`
	TotalAnnualSavings   float64          `json:"total_annual_savings"`
	BySeverity           map[Severity]int `json:"by_severity"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// CollectorFailure records a single collector that failed during an
// aggregation run. Failures degrade the result to partial; they never abort
// the run.
type CollectorFailure struct {
	Collector string `json:"collector"`
	Error     string `json:"error"`
}

// RecommendationSet is the combined output of one aggregation run: the
// filtered, normalized recommendations plus the cost context they were
// produced against.
type RecommendationSet struct {
	ProjectID       string             `json:"project_id"`
	Window          DateRange          `json:"window"`
	Recommendations []Recommendation   `json:"recommendations"`
	CostSummary     *CostSummary       `json:"cost_summary,omitempty"`
	Partial         bool               `json:"partial"`
	Failures        []CollectorFailure `json:"failures,omitempty"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// Summary computes the display summary for the set.
func (s *RecommendationSet) Summary() RecommendationSummary {
	sum := RecommendationSummary{
		TotalRecommendations: len(s.Recommendations),
		BySeverity:           make(map[Severity]int),
		GeneratedAt:          time.Now().UTC(),
	}
	for _, rec := range s.Recommendations {
		sum.TotalMonthlySavings += rec.MonthlySavings
		sum.TotalAnnualSavings += rec.AnnualSavings
		sum.BySeverity[rec.Severity]++
	}
	return sum
}
