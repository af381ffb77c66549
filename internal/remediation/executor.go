package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/auditai/backend/internal/model"
)

var (
	ErrActionNotFound  = errors.New("remediation action not found")
	ErrInvalidState    = errors.New("invalid action state for operation")
	ErrNoCloudExecutor = errors.New("no executor registered for provider")
	ErrNothingToRevert = errors.New("action has no rollback data")
	ErrSelfApproval    = errors.New("actions cannot be approved by their requester")
	ErrMissingResource = errors.New("recommendation has no target resource")
	ErrUnsupportedType = errors.New("recommendation type has no remediation")
)

// ActionStore persists remediation actions and their audit trail.
type ActionStore interface {
	SaveAction(ctx context.Context, action *Action) error
	UpdateAction(ctx context.Context, action *Action) error
	GetAction(ctx context.Context, id string) (*Action, error)
	ListActions(ctx context.Context, projectID string, status ActionStatus) ([]*Action, error)
	AppendAudit(ctx context.Context, entry *AuditEntry) error
}

// CloudExecutor applies an approved action against a cloud provider.
// Execute returns rollback data sufficient to undo the change where
// the operation is reversible.
type CloudExecutor interface {
	Provider() model.CloudProvider
	Execute(ctx context.Context, action *Action) (map[string]string, error)
	Rollback(ctx context.Context, action *Action) error
}

// RecommendationDismisser is implemented by cloud executors that can
// propagate a rejection to the vendor's recommendation lifecycle.
type RecommendationDismisser interface {
	Dismiss(ctx context.Context, action *Action) error
}

// AutoApprovePolicy lets low-impact actions skip manual approval.
type AutoApprovePolicy struct {
	Enabled    bool
	MaxSavings float64
	MaxRisk    model.RiskLevel
}

func (p AutoApprovePolicy) allows(a *Action) bool {
	if !p.Enabled {
		return false
	}
	if a.EstimatedSavings > p.MaxSavings {
		return false
	}
	return riskRank(a.Risk) <= riskRank(p.MaxRisk)
}

func riskRank(r model.RiskLevel) int {
	switch r {
	case model.RiskLow:
		return 0
	case model.RiskMedium:
		return 1
	default:
		return 2
	}
}

// Executor owns the remediation lifecycle: propose from a
// recommendation, approve or reject, execute against the provider,
// and roll back when possible.
type Executor struct {
	store  ActionStore
	clouds map[model.CloudProvider]CloudExecutor
	policy AutoApprovePolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewExecutor(store ActionStore, policy AutoApprovePolicy, logger *slog.Logger, clouds ...CloudExecutor) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	byProvider := make(map[model.CloudProvider]CloudExecutor, len(clouds))
	for _, c := range clouds {
		byProvider[c.Provider()] = c
	}
	return &Executor{
		store:  store,
		clouds: byProvider,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Propose creates a pending action from a recommendation. Params carry
// provider-specific inputs such as the target instance type. Low-impact
// actions are approved immediately when the auto-approval policy
// allows it; everything else waits for a human.
func (e *Executor) Propose(ctx context.Context, projectID string, provider model.CloudProvider, rec *model.Recommendation, requestedBy string, params map[string]string) (*Action, error) {
	if rec.ResourceID == "" {
		return nil, ErrMissingResource
	}
	if !remediable(rec.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, rec.Type)
	}

	action := &Action{
		ID:               model.NewID(),
		ProjectID:        projectID,
		RecommendationID: rec.ID,
		Type:             rec.Type,
		Provider:         provider,
		ResourceID:       rec.ResourceID,
		Title:            rec.Title,
		Risk:             rec.RiskLevel,
		EstimatedSavings: rec.MonthlySavings,
		Status:           StatusPendingApproval,
		RequestedBy:      requestedBy,
		Params:           params,
		CreatedAt:        e.now(),
	}

	if e.policy.allows(action) {
		now := e.now()
		action.Status = StatusApproved
		action.ApprovedBy = "auto-approval"
		action.ApprovedAt = &now
	}

	if err := e.store.SaveAction(ctx, action); err != nil {
		return nil, fmt.Errorf("saving action: %w", err)
	}
	e.audit(ctx, action, requestedBy, "proposed from recommendation "+rec.ID)

	e.logger.Info("remediation action proposed",
		"action_id", action.ID,
		"type", action.Type,
		"resource", action.ResourceID,
		"status", action.Status)
	return action, nil
}

// Approve moves a pending action to approved. The requester cannot
// approve their own action.
func (e *Executor) Approve(ctx context.Context, actionID, approver string) (*Action, error) {
	action, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve action in state %s", ErrInvalidState, action.Status)
	}
	if approver != "" && approver == action.RequestedBy {
		return nil, ErrSelfApproval
	}

	now := e.now()
	action.Status = StatusApproved
	action.ApprovedBy = approver
	action.ApprovedAt = &now
	if err := e.store.UpdateAction(ctx, action); err != nil {
		return nil, err
	}
	e.audit(ctx, action, approver, "")
	return action, nil
}

// Reject declines a pending action with a reason.
func (e *Executor) Reject(ctx context.Context, actionID, approver, reason string) (*Action, error) {
	action, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot reject action in state %s", ErrInvalidState, action.Status)
	}

	action.Status = StatusRejected
	action.FailureReason = reason
	if err := e.store.UpdateAction(ctx, action); err != nil {
		return nil, err
	}
	e.audit(ctx, action, approver, reason)

	// Best effort: tell the vendor so the recommendation stops
	// resurfacing. The rejection itself is already recorded.
	if cloud, ok := e.clouds[action.Provider]; ok {
		if d, ok := cloud.(RecommendationDismisser); ok {
			if err := d.Dismiss(ctx, action); err != nil {
				e.logger.Warn("vendor recommendation not dismissed",
					"action_id", action.ID, "error", err)
			}
		}
	}
	return action, nil
}

// Cancel withdraws an action that has not started executing.
func (e *Executor) Cancel(ctx context.Context, actionID, actor string) (*Action, error) {
	action, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusPendingApproval && action.Status != StatusApproved {
		return nil, fmt.Errorf("%w: cannot cancel action in state %s", ErrInvalidState, action.Status)
	}

	action.Status = StatusCancelled
	if err := e.store.UpdateAction(ctx, action); err != nil {
		return nil, err
	}
	e.audit(ctx, action, actor, "")
	return action, nil
}

// Execute applies an approved action through the provider executor.
// Rollback data returned by the provider is persisted before the
// action is marked complete.
func (e *Executor) Execute(ctx context.Context, actionID string) (*Action, error) {
	action, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusApproved {
		return nil, fmt.Errorf("%w: cannot execute action in state %s", ErrInvalidState, action.Status)
	}
	cloud, ok := e.clouds[action.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCloudExecutor, action.Provider)
	}

	now := e.now()
	action.Status = StatusExecuting
	action.ExecutedAt = &now
	if err := e.store.UpdateAction(ctx, action); err != nil {
		return nil, err
	}
	e.audit(ctx, action, action.ApprovedBy, "")

	rollback, execErr := cloud.Execute(ctx, action)
	done := e.now()
	action.RollbackData = rollback
	action.CompletedAt = &done
	if execErr != nil {
		action.Status = StatusFailed
		action.FailureReason = execErr.Error()
		e.logger.Error("remediation failed",
			"action_id", action.ID,
			"resource", action.ResourceID,
			"error", execErr)
	} else {
		action.Status = StatusCompleted
		e.logger.Info("remediation completed",
			"action_id", action.ID,
			"resource", action.ResourceID,
			"monthly_savings", action.EstimatedSavings)
	}
	if err := e.store.UpdateAction(ctx, action); err != nil {
		return nil, err
	}
	e.audit(ctx, action, action.ApprovedBy, action.FailureReason)

	if execErr != nil {
		return action, fmt.Errorf("executing %s on %s: %w", action.Type, action.ResourceID, execErr)
	}
	return action, nil
}

// Rollback reverts a completed or failed action using the rollback
// data captured at execution time.
func (e *Executor) Rollback(ctx context.Context, actionID, actor string) (*Action, error) {
	action, err := e.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != StatusCompleted && action.Status != StatusFailed {
		return nil, fmt.Errorf("%w: cannot roll back action in state %s", ErrInvalidState, action.Status)
	}
	if len(action.RollbackData) == 0 {
		return nil, ErrNothingToRevert
	}
	cloud, ok := e.clouds[action.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCloudExecutor, action.Provider)
	}

	if err := cloud.Rollback(ctx, action); err != nil {
		return nil, fmt.Errorf("rolling back %s: %w", action.ResourceID, err)
	}

	action.Status = StatusRolledBack
	if err := e.store.UpdateAction(ctx, action); err != nil {
		return nil, err
	}
	e.audit(ctx, action, actor, "")
	e.logger.Info("remediation rolled back", "action_id", action.ID, "resource", action.ResourceID)
	return action, nil
}

// Pending lists actions awaiting approval for a project.
func (e *Executor) Pending(ctx context.Context, projectID string) ([]*Action, error) {
	return e.store.ListActions(ctx, projectID, StatusPendingApproval)
}

func (e *Executor) Get(ctx context.Context, actionID string) (*Action, error) {
	return e.store.GetAction(ctx, actionID)
}

func (e *Executor) audit(ctx context.Context, action *Action, actor, detail string) {
	entry := &AuditEntry{
		ID:        model.NewID(),
		ActionID:  action.ID,
		Status:    action.Status,
		Actor:     actor,
		Detail:    detail,
		CreatedAt: e.now(),
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		// Audit write failures must not block the action itself.
		e.logger.Warn("audit entry not recorded", "action_id", action.ID, "error", err)
	}
}

func remediable(t model.RecommendationType) bool {
	switch t {
	case model.RecommendationTypeIdleResource,
		model.RecommendationTypeOversizedResource,
		model.RecommendationTypeUnusedDisk,
		model.RecommendationTypeSecurityIssue:
		return true
	}
	return false
}
