package remediation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditai/backend/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	actions map[string]*Action
	audit   []*AuditEntry
}

func newMemStore() *memStore {
	return &memStore{actions: map[string]*Action{}}
}

func (s *memStore) SaveAction(_ context.Context, a *Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.actions[a.ID] = &cp
	return nil
}

func (s *memStore) UpdateAction(_ context.Context, a *Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[a.ID]; !ok {
		return ErrActionNotFound
	}
	cp := *a
	s.actions[a.ID] = &cp
	return nil
}

func (s *memStore) GetAction(_ context.Context, id string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, ErrActionNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) ListActions(_ context.Context, projectID string, status ActionStatus) ([]*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Action
	for _, a := range s.actions {
		if a.ProjectID == projectID && a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) AppendAudit(_ context.Context, e *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

type fakeCloud struct {
	provider model.CloudProvider
	rollback map[string]string
	execErr  error
	rbErr    error
	executed []string
	reverted []string
}

func (f *fakeCloud) Provider() model.CloudProvider { return f.provider }

func (f *fakeCloud) Execute(_ context.Context, a *Action) (map[string]string, error) {
	f.executed = append(f.executed, a.ID)
	return f.rollback, f.execErr
}

func (f *fakeCloud) Rollback(_ context.Context, a *Action) error {
	f.reverted = append(f.reverted, a.ID)
	return f.rbErr
}

func sampleRecommendation() *model.Recommendation {
	return &model.Recommendation{
		ID:             model.NewID(),
		ResourceID:     "i-0abc123",
		Title:          "Delete idle instance",
		Type:           model.RecommendationTypeIdleResource,
		RiskLevel:      model.RiskHigh,
		MonthlySavings: 150,
	}
}

func newTestExecutor(t *testing.T, policy AutoApprovePolicy, clouds ...CloudExecutor) (*Executor, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewExecutor(store, policy, nil, clouds...), store
}

func TestProposePendingApproval(t *testing.T) {
	exec, store := newTestExecutor(t, AutoApprovePolicy{})

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusPendingApproval, action.Status)
	assert.Equal(t, "proj-1", action.ProjectID)
	assert.Equal(t, "i-0abc123", action.ResourceID)
	assert.Equal(t, model.RiskHigh, action.Risk)
	assert.InDelta(t, 150, action.EstimatedSavings, 0.001)

	stored, err := store.GetAction(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, stored.Status)
	require.Len(t, store.audit, 1)
	assert.Equal(t, "alice", store.audit[0].Actor)
}

func TestProposeCarriesParams(t *testing.T) {
	exec, store := newTestExecutor(t, AutoApprovePolicy{})

	rec := sampleRecommendation()
	rec.Type = model.RecommendationTypeOversizedResource
	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, rec, "alice",
		map[string]string{"instance_type": "e2-small"})
	require.NoError(t, err)

	stored, err := store.GetAction(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Equal(t, "e2-small", stored.Params["instance_type"])
}

func TestProposeAutoApprovesLowImpact(t *testing.T) {
	policy := AutoApprovePolicy{Enabled: true, MaxSavings: 50, MaxRisk: model.RiskLow}
	exec, _ := newTestExecutor(t, policy)

	rec := sampleRecommendation()
	rec.RiskLevel = model.RiskLow
	rec.MonthlySavings = 20

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, rec, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, action.Status)
	assert.Equal(t, "auto-approval", action.ApprovedBy)
	require.NotNil(t, action.ApprovedAt)
}

func TestProposeAutoApprovePolicyLimits(t *testing.T) {
	policy := AutoApprovePolicy{Enabled: true, MaxSavings: 50, MaxRisk: model.RiskLow}
	exec, _ := newTestExecutor(t, policy)

	highSavings := sampleRecommendation()
	highSavings.RiskLevel = model.RiskLow
	highSavings.MonthlySavings = 500
	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, highSavings, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, action.Status, "savings above cap must not auto-approve")

	risky := sampleRecommendation()
	risky.MonthlySavings = 20
	action, err = exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, risky, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, action.Status, "high risk must not auto-approve")
}

func TestProposeRejectsInvalidInput(t *testing.T) {
	exec, _ := newTestExecutor(t, AutoApprovePolicy{})

	noResource := sampleRecommendation()
	noResource.ResourceID = ""
	_, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, noResource, "alice", nil)
	assert.ErrorIs(t, err, ErrMissingResource)

	costOpt := sampleRecommendation()
	costOpt.Type = model.RecommendationTypeCostOptimization
	_, err = exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, costOpt, "alice", nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestApproveLifecycle(t *testing.T) {
	exec, _ := newTestExecutor(t, AutoApprovePolicy{})
	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)

	_, err = exec.Approve(context.Background(), action.ID, "alice")
	assert.ErrorIs(t, err, ErrSelfApproval)

	approved, err := exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "bob", approved.ApprovedBy)

	_, err = exec.Approve(context.Background(), action.ID, "bob")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectAndCancel(t *testing.T) {
	exec, _ := newTestExecutor(t, AutoApprovePolicy{})

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	rejected, err := exec.Reject(context.Background(), action.ID, "bob", "too risky this quarter")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "too risky this quarter", rejected.FailureReason)
	assert.True(t, rejected.Terminal())

	action, err = exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	cancelled, err := exec.Cancel(context.Background(), action.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = exec.Execute(context.Background(), cancelled.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

// Rejecting an action dismisses the vendor recommendation so it stops
// showing up in collection runs. A dismiss failure is logged, not fatal.
func TestRejectDismissesVendorRecommendation(t *testing.T) {
	marker := &stubMarker{}
	exec, _ := newTestExecutor(t, AutoApprovePolicy{}, NewGCPCloud(marker, nil))

	recName := "projects/p/locations/us-central1-a/recommenders/google.compute.instance.IdleResourceRecommender/recommendations/rec-9"
	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderGCP, sampleRecommendation(), "alice",
		map[string]string{"recommendation_name": recName, "etag": "\"e-1\""})
	require.NoError(t, err)

	rejected, err := exec.Reject(context.Background(), action.ID, "bob", "keep the instance")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	require.Len(t, marker.dismissed, 1)
	assert.Equal(t, recName, marker.dismissed[0])
}

func TestRejectSurvivesDismissFailure(t *testing.T) {
	marker := &stubMarker{dismissErr: errors.New("recommender unavailable")}
	exec, _ := newTestExecutor(t, AutoApprovePolicy{}, NewGCPCloud(marker, nil))

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderGCP, sampleRecommendation(), "alice",
		map[string]string{"recommendation_name": "projects/p/recommendations/rec-1"})
	require.NoError(t, err)

	rejected, err := exec.Reject(context.Background(), action.ID, "bob", "not now")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Empty(t, marker.dismissed)
}

func TestExecuteCompletesAndStoresRollbackData(t *testing.T) {
	cloud := &fakeCloud{
		provider: model.CloudProviderAWS,
		rollback: map[string]string{"previous_state": "running"},
	}
	exec, store := newTestExecutor(t, AutoApprovePolicy{}, cloud)

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)

	done, err := exec.Execute(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "running", done.RollbackData["previous_state"])
	require.NotNil(t, done.ExecutedAt)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, []string{action.ID}, cloud.executed)

	stored, err := store.GetAction(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestExecuteRequiresApproval(t *testing.T) {
	cloud := &fakeCloud{provider: model.CloudProviderAWS}
	exec, _ := newTestExecutor(t, AutoApprovePolicy{}, cloud)

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), action.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, cloud.executed)
}

func TestExecuteFailureRecordsReason(t *testing.T) {
	cloud := &fakeCloud{
		provider: model.CloudProviderAWS,
		execErr:  errors.New("InsufficientInstanceCapacity"),
	}
	exec, store := newTestExecutor(t, AutoApprovePolicy{}, cloud)

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)

	failed, err := exec.Execute(context.Background(), action.ID)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.FailureReason, "InsufficientInstanceCapacity")

	stored, err := store.GetAction(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestExecuteUnknownProvider(t *testing.T) {
	exec, _ := newTestExecutor(t, AutoApprovePolicy{})

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), action.ID)
	assert.ErrorIs(t, err, ErrNoCloudExecutor)
}

func TestRollback(t *testing.T) {
	cloud := &fakeCloud{
		provider: model.CloudProviderAWS,
		rollback: map[string]string{"previous_state": "running"},
	}
	exec, _ := newTestExecutor(t, AutoApprovePolicy{}, cloud)

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), action.ID)
	require.NoError(t, err)

	rolled, err := exec.Rollback(context.Background(), action.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusRolledBack, rolled.Status)
	assert.Equal(t, []string{action.ID}, cloud.reverted)

	_, err = exec.Rollback(context.Background(), action.ID, "bob")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRollbackRequiresData(t *testing.T) {
	cloud := &fakeCloud{provider: model.CloudProviderAWS}
	exec, _ := newTestExecutor(t, AutoApprovePolicy{}, cloud)

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), action.ID)
	require.NoError(t, err)

	_, err = exec.Rollback(context.Background(), action.ID, "bob")
	assert.ErrorIs(t, err, ErrNothingToRevert)
}

func TestPendingLists(t *testing.T) {
	exec, _ := newTestExecutor(t, AutoApprovePolicy{})

	_, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Propose(context.Background(), "proj-2", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)

	pending, err := exec.Pending(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestAuditTrailCoversTransitions(t *testing.T) {
	cloud := &fakeCloud{
		provider: model.CloudProviderAWS,
		rollback: map[string]string{"previous_state": "running"},
	}
	exec, store := newTestExecutor(t, AutoApprovePolicy{}, cloud)

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	_, err = exec.Approve(context.Background(), action.ID, "bob")
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), action.ID)
	require.NoError(t, err)

	// proposed, approved, executing, completed
	require.Len(t, store.audit, 4)
	statuses := make([]ActionStatus, 0, len(store.audit))
	for _, e := range store.audit {
		statuses = append(statuses, e.Status)
		assert.Equal(t, action.ID, e.ActionID)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.Equal(t, []ActionStatus{StatusPendingApproval, StatusApproved, StatusExecuting, StatusCompleted}, statuses)
}

func TestExecutorTimestampsUseClock(t *testing.T) {
	store := newMemStore()
	cloud := &fakeCloud{provider: model.CloudProviderAWS, rollback: map[string]string{"x": "y"}}
	exec := NewExecutor(store, AutoApprovePolicy{}, nil, cloud)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exec.now = func() time.Time { return fixed }

	action, err := exec.Propose(context.Background(), "proj-1", model.CloudProviderAWS, sampleRecommendation(), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, fixed, action.CreatedAt)
}
