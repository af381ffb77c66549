package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/auditai/backend/internal/model"
)

// PostgresAnalysisRepository implements AnalysisRepository for
// PostgreSQL.
type PostgresAnalysisRepository struct {
	db *sql.DB
}

func NewPostgresAnalysisRepository(db *sql.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{db: db}
}

var _ AnalysisRepository = (*PostgresAnalysisRepository)(nil)

func (r *PostgresAnalysisRepository) SaveResult(ctx context.Context, result *model.AnalysisResult) error {
	toolCallsJSON, _ := json.Marshal(result.ToolCalls)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, project_id, status, query, analysis, message, tool_calls, iterations, fallback_used, days_analyzed, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, model.NewID(), result.ProjectID, result.Status, result.Query, result.Analysis, result.Message,
		toolCallsJSON, result.Iterations, result.FallbackUsed, result.DaysAnalyzed, result.GeneratedAt)
	return err
}

func (r *PostgresAnalysisRepository) ListRecent(ctx context.Context, projectID string, limit int) ([]*model.AnalysisResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, query, analysis, message, tool_calls, iterations, fallback_used, project_id, days_analyzed, generated_at
		FROM analysis_runs WHERE project_id = $1 ORDER BY generated_at DESC LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.AnalysisResult
	for rows.Next() {
		var res model.AnalysisResult
		var toolCallsJSON []byte
		err := rows.Scan(&res.Status, &res.Query, &res.Analysis, &res.Message, &toolCallsJSON,
			&res.Iterations, &res.FallbackUsed, &res.ProjectID, &res.DaysAnalyzed, &res.GeneratedAt)
		if err != nil {
			return nil, err
		}
		json.Unmarshal(toolCallsJSON, &res.ToolCalls)
		results = append(results, &res)
	}
	return results, rows.Err()
}
