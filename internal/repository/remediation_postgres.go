package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/auditai/backend/internal/remediation"
)

// PostgresActionRepository implements remediation.ActionStore for
// PostgreSQL.
type PostgresActionRepository struct {
	db *sql.DB
}

func NewPostgresActionRepository(db *sql.DB) *PostgresActionRepository {
	return &PostgresActionRepository{db: db}
}

var _ remediation.ActionStore = (*PostgresActionRepository)(nil)

const actionColumns = `id, project_id, recommendation_id, recommendation_type, provider, resource_id, title, risk, estimated_savings, status, requested_by, approved_by, failure_reason, params, rollback_data, created_at, approved_at, executed_at, completed_at`

func (r *PostgresActionRepository) SaveAction(ctx context.Context, action *remediation.Action) error {
	paramsJSON, _ := json.Marshal(action.Params)
	rollbackJSON, _ := json.Marshal(action.RollbackData)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO remediation_actions (`+actionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, action.ID, action.ProjectID, action.RecommendationID, action.Type, action.Provider,
		action.ResourceID, action.Title, action.Risk, action.EstimatedSavings, action.Status,
		action.RequestedBy, action.ApprovedBy, action.FailureReason, paramsJSON, rollbackJSON,
		action.CreatedAt, action.ApprovedAt, action.ExecutedAt, action.CompletedAt)
	return err
}

func (r *PostgresActionRepository) UpdateAction(ctx context.Context, action *remediation.Action) error {
	paramsJSON, _ := json.Marshal(action.Params)
	rollbackJSON, _ := json.Marshal(action.RollbackData)
	res, err := r.db.ExecContext(ctx, `
		UPDATE remediation_actions
		SET status = $2, approved_by = $3, failure_reason = $4, params = $5, rollback_data = $6,
			approved_at = $7, executed_at = $8, completed_at = $9
		WHERE id = $1
	`, action.ID, action.Status, action.ApprovedBy, action.FailureReason, paramsJSON, rollbackJSON,
		action.ApprovedAt, action.ExecutedAt, action.CompletedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return remediation.ErrActionNotFound
	}
	return nil
}

func (r *PostgresActionRepository) GetAction(ctx context.Context, id string) (*remediation.Action, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM remediation_actions WHERE id = $1`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remediation.ErrActionNotFound
	}
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (r *PostgresActionRepository) ListActions(ctx context.Context, projectID string, status remediation.ActionStatus) ([]*remediation.Action, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM remediation_actions
		WHERE project_id = $1 AND status = $2 ORDER BY created_at DESC
	`, projectID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*remediation.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func (r *PostgresActionRepository) AppendAudit(ctx context.Context, entry *remediation.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO remediation_audit (id, action_id, status, actor, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.ActionID, entry.Status, entry.Actor, entry.Detail, entry.CreatedAt)
	return err
}

// AuditTrail returns the transitions recorded for one action, oldest
// first.
func (r *PostgresActionRepository) AuditTrail(ctx context.Context, actionID string) ([]*remediation.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action_id, status, actor, detail, created_at
		FROM remediation_audit WHERE action_id = $1 ORDER BY created_at
	`, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*remediation.AuditEntry
	for rows.Next() {
		var e remediation.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActionID, &e.Status, &e.Actor, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func scanAction(row rowScanner) (*remediation.Action, error) {
	var action remediation.Action
	var paramsJSON, rollbackJSON []byte
	err := row.Scan(&action.ID, &action.ProjectID, &action.RecommendationID, &action.Type, &action.Provider,
		&action.ResourceID, &action.Title, &action.Risk, &action.EstimatedSavings, &action.Status,
		&action.RequestedBy, &action.ApprovedBy, &action.FailureReason, &paramsJSON, &rollbackJSON,
		&action.CreatedAt, &action.ApprovedAt, &action.ExecutedAt, &action.CompletedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(paramsJSON, &action.Params)
	json.Unmarshal(rollbackJSON, &action.RollbackData)
	return &action, nil
}
