package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/auditai/backend/internal/model"
)

// PostgresRecommendationRepository implements RecommendationRepository
// for PostgreSQL.
type PostgresRecommendationRepository struct {
	db *sql.DB
}

func NewPostgresRecommendationRepository(db *sql.DB) *PostgresRecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

var _ RecommendationRepository = (*PostgresRecommendationRepository)(nil)

// SaveSet upserts all recommendations of one aggregation run. The same
// resource and type from a later run replaces the earlier row so
// savings estimates stay current; user status survives the update.
func (r *PostgresRecommendationRepository) SaveSet(ctx context.Context, set *model.RecommendationSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (id, project_id, resource_id, title, description, recommendation_type, severity, risk_level, difficulty, monthly_savings, annual_savings, confidence, source, recommender_id, action_items, priority_score, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (project_id, resource_id, recommendation_type)
		DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description, severity = EXCLUDED.severity,
			risk_level = EXCLUDED.risk_level, difficulty = EXCLUDED.difficulty, monthly_savings = EXCLUDED.monthly_savings,
			annual_savings = EXCLUDED.annual_savings, confidence = EXCLUDED.confidence, action_items = EXCLUDED.action_items,
			priority_score = EXCLUDED.priority_score
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range set.Recommendations {
		rec := &set.Recommendations[i]
		actionsJSON, _ := json.Marshal(rec.ActionItems)
		_, err := stmt.ExecContext(ctx, rec.ID, set.ProjectID, rec.ResourceID, rec.Title, rec.Description,
			rec.Type, rec.Severity, rec.RiskLevel, rec.Difficulty, rec.MonthlySavings, rec.AnnualSavings,
			rec.Confidence, rec.Source, rec.RecommenderID, actionsJSON, rec.PriorityScore,
			model.RecommendationStatusActive, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("saving recommendation %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

const recommendationColumns = `id, resource_id, title, description, recommendation_type, severity, risk_level, difficulty, monthly_savings, annual_savings, confidence, source, recommender_id, action_items, priority_score, created_at`

func (r *PostgresRecommendationRepository) List(ctx context.Context, filter model.RecommendationFilter) ([]*model.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE project_id = $1 AND monthly_savings >= $2`
	args := []any{filter.ProjectID, filter.MinSavings}

	if len(filter.Types) > 0 {
		placeholders := ""
		for _, t := range filter.Types {
			if placeholders != "" {
				placeholders += ", "
			}
			args = append(args, t)
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += " AND recommendation_type IN (" + placeholders + ")"
	}
	if len(filter.Severities) > 0 {
		placeholders := ""
		for _, s := range filter.Severities {
			if placeholders != "" {
				placeholders += ", "
			}
			args = append(args, s)
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += " AND severity IN (" + placeholders + ")"
	}
	query += " ORDER BY priority_score DESC, monthly_savings DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*model.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *PostgresRecommendationRepository) GetByID(ctx context.Context, id string) (*model.Recommendation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1`, id)
	rec, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PostgresRecommendationRepository) UpdateStatus(ctx context.Context, id string, status model.RecommendationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recommendations SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (*model.Recommendation, error) {
	var rec model.Recommendation
	var actionsJSON []byte
	err := row.Scan(&rec.ID, &rec.ResourceID, &rec.Title, &rec.Description, &rec.Type, &rec.Severity,
		&rec.RiskLevel, &rec.Difficulty, &rec.MonthlySavings, &rec.AnnualSavings, &rec.Confidence,
		&rec.Source, &rec.RecommenderID, &actionsJSON, &rec.PriorityScore, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(actionsJSON, &rec.ActionItems)
	return &rec, nil
}
