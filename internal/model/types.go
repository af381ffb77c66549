// Package model contains the core domain entities for AuditAI.
package model

import (
	"time"

	"github.com/google/uuid"
)

// CloudProvider represents supported cloud providers.
type CloudProvider string

const (
	CloudProviderGCP CloudProvider = "gcp"
	CloudProviderAWS CloudProvider = "aws"
)

// Currency represents monetary currency codes.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Severity represents recommendation urgency, derived from the advisory's
// own priority and its dollar impact.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities for max-of comparisons; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// MaxSeverity returns the more severe of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// RiskLevel represents the risk of applying a recommendation, not the risk
// of leaving it unapplied.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// Difficulty represents implementation effort.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Trend direction labels for cost series.
const (
	TrendUp               = "up"
	TrendDown             = "down"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// Confidence labels for projections, keyed by data volume.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// DateRange represents a time period.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the range length in whole days, never less than 1.
func (r DateRange) Days() int {
	d := int(r.End.Sub(r.Start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// LastDays builds a range ending now and starting days ago.
func LastDays(days int) DateRange {
	end := time.Now().UTC()
	return DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// NewID generates an opaque unique identifier.
func NewID() string {
	return uuid.New().String()
}
