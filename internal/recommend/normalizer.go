// Package recommend turns raw vendor advisories into canonical, ranked
// recommendations for one cloud project.
package recommend

import (
	"strings"
	"time"

	"github.com/auditai/backend/internal/collector"
	"github.com/auditai/backend/internal/model"
)

// priorityConfidence maps a vendor priority tier onto a fixed confidence
// scalar. Tiers we have never seen get a conservative middle value.
var priorityConfidence = map[collector.AdvisoryPriority]float64{
	collector.PriorityP1: 0.95,
	collector.PriorityP2: 0.85,
	collector.PriorityP3: 0.75,
	collector.PriorityP4: 0.60,
}

const defaultConfidence = 0.70

// prioritySeverity maps a vendor priority tier onto our severity scale.
var prioritySeverity = map[collector.AdvisoryPriority]model.Severity{
	collector.PriorityP1: model.SeverityCritical,
	collector.PriorityP2: model.SeverityHigh,
	collector.PriorityP3: model.SeverityMedium,
	collector.PriorityP4: model.SeverityLow,
}

// Normalizer converts raw advisory entries into canonical Recommendation
// records. It classifies but never filters; savings thresholds are the
// Aggregator's policy.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize builds the canonical record for one raw advisory entry.
func (n *Normalizer) Normalize(source string, raw collector.RawAdvisory) model.Recommendation {
	annual := raw.AnnualSavings
	if annual == 0 {
		annual = raw.MonthlySavings * 12
	}

	rec := model.Recommendation{
		ID:             model.NewID(),
		ResourceID:     raw.ResourceID,
		Title:          raw.Title,
		Description:    raw.Description,
		Type:           Classify(raw.Recommender),
		Severity:       DetermineSeverity(raw.Priority, raw.MonthlySavings),
		RiskLevel:      RiskLevel(raw.Title),
		Difficulty:     Difficulty(raw.Title),
		MonthlySavings: raw.MonthlySavings,
		AnnualSavings:  annual,
		Confidence:     Confidence(raw.Priority),
		Source:         source,
		RecommenderID:  raw.Recommender,
		ActionItems:    raw.Actions,
		CreatedAt:      n.now(),
	}
	return rec
}

// NormalizeAll maps a batch of raw advisories from one source.
func (n *Normalizer) NormalizeAll(source string, raws []collector.RawAdvisory) []model.Recommendation {
	recs := make([]model.Recommendation, 0, len(raws))
	for _, raw := range raws {
		recs = append(recs, n.Normalize(source, raw))
	}
	return recs
}

// Classify derives the recommendation type from the originating recommender
// rule identifier.
func Classify(recommenderID string) model.RecommendationType {
	id := strings.ToLower(recommenderID)
	switch {
	case strings.Contains(id, "disk") && strings.Contains(id, "idle"):
		return model.RecommendationTypeUnusedDisk
	case strings.Contains(id, "idle"):
		return model.RecommendationTypeIdleResource
	case strings.Contains(id, "machinetype") || strings.Contains(id, "changetype"):
		return model.RecommendationTypeOversizedResource
	case strings.Contains(id, "storage"):
		return model.RecommendationTypeSecurityIssue
	default:
		return model.RecommendationTypeCostOptimization
	}
}

// DetermineSeverity takes the more severe of the vendor's own priority tier
// and a dollar-impact ladder, so a cheap-but-urgent advisory is not buried
// and a high-value one is not under-ranked by a lazy source tag.
func DetermineSeverity(priority collector.AdvisoryPriority, monthlySavings float64) model.Severity {
	fromPriority, ok := prioritySeverity[priority]
	if !ok {
		fromPriority = model.SeverityLow
	}

	fromSavings := model.SeverityLow
	switch {
	case monthlySavings > 1000:
		fromSavings = model.SeverityCritical
	case monthlySavings > 500:
		fromSavings = model.SeverityHigh
	case monthlySavings > 100:
		fromSavings = model.SeverityMedium
	}

	return model.MaxSeverity(fromPriority, fromSavings)
}

// RiskLevel grades the danger of applying the change from the action title.
// Destructive verbs imply irreversible data loss; reshape verbs imply
// downtime.
func RiskLevel(title string) model.RiskLevel {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "delete") || strings.Contains(t, "remove"):
		return model.RiskHigh
	case strings.Contains(t, "resize") || strings.Contains(t, "change") || strings.Contains(t, "modify"):
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// Difficulty estimates implementation effort from the action title. The
// default is Hard: when in doubt, assume the change needs planning.
func Difficulty(title string) model.Difficulty {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "secure") || strings.Contains(t, "security"):
		return model.DifficultyEasy
	case strings.Contains(t, "delete") || strings.Contains(t, "resize"):
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

// Confidence maps the vendor priority tier to a fixed confidence scalar.
func Confidence(priority collector.AdvisoryPriority) float64 {
	if c, ok := priorityConfidence[priority]; ok {
		return c
	}
	return defaultConfidence
}
