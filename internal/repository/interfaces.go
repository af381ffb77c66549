// Package repository provides PostgreSQL persistence for analysis
// runs, recommendations and remediation actions.
package repository

import (
	"context"
	"errors"

	"github.com/auditai/backend/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// RecommendationRepository stores the output of aggregation runs and
// the user's status on each recommendation.
type RecommendationRepository interface {
	SaveSet(ctx context.Context, set *model.RecommendationSet) error
	List(ctx context.Context, filter model.RecommendationFilter) ([]*model.Recommendation, error)
	GetByID(ctx context.Context, id string) (*model.Recommendation, error)
	UpdateStatus(ctx context.Context, id string, status model.RecommendationStatus) error
}

// AnalysisRepository keeps the history of agent analysis runs.
type AnalysisRepository interface {
	SaveResult(ctx context.Context, result *model.AnalysisResult) error
	ListRecent(ctx context.Context, projectID string, limit int) ([]*model.AnalysisResult, error)
}
