package remediation

import (
	"time"

	"github.com/auditai/backend/internal/model"
)

// ActionStatus tracks a remediation action through its approval and
// execution lifecycle.
type ActionStatus string

const (
	StatusPendingApproval ActionStatus = "pending_approval"
	StatusApproved        ActionStatus = "approved"
	StatusRejected        ActionStatus = "rejected"
	StatusExecuting       ActionStatus = "executing"
	StatusCompleted       ActionStatus = "completed"
	StatusFailed          ActionStatus = "failed"
	StatusRolledBack      ActionStatus = "rolled_back"
	StatusCancelled       ActionStatus = "cancelled"
)

// Action is a concrete change derived from a recommendation, held for
// approval before anything touches the cloud account.
type Action struct {
	ID               string                   `json:"id"`
	ProjectID        string                   `json:"projectId"`
	RecommendationID string                   `json:"recommendationId"`
	Type             model.RecommendationType `json:"type"`
	Provider         model.CloudProvider      `json:"provider"`
	ResourceID       string                   `json:"resourceId"`
	Title            string                   `json:"title"`
	Risk             model.RiskLevel          `json:"risk"`
	EstimatedSavings float64                  `json:"estimatedSavings"`
	Status           ActionStatus             `json:"status"`
	RequestedBy      string                   `json:"requestedBy"`
	ApprovedBy       string                   `json:"approvedBy,omitempty"`
	FailureReason    string                   `json:"failureReason,omitempty"`
	Params           map[string]string        `json:"params,omitempty"`
	RollbackData     map[string]string        `json:"rollbackData,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	ApprovedAt       *time.Time               `json:"approvedAt,omitempty"`
	ExecutedAt       *time.Time               `json:"executedAt,omitempty"`
	CompletedAt      *time.Time               `json:"completedAt,omitempty"`
}

// Terminal reports whether the action can no longer change state.
func (a *Action) Terminal() bool {
	switch a.Status {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusRolledBack:
		return true
	}
	return false
}

// AuditEntry records a single state transition for an action.
type AuditEntry struct {
	ID        string       `json:"id"`
	ActionID  string       `json:"actionId"`
	Status    ActionStatus `json:"status"`
	Actor     string       `json:"actor"`
	Detail    string       `json:"detail,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
