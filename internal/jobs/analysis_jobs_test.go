package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditai/backend/internal/model"
)

type stubAggregator struct {
	set *model.RecommendationSet
	err error
}

func (s *stubAggregator) Aggregate(_ context.Context, window model.DateRange) (*model.RecommendationSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.set.Window = window
	return s.set, nil
}

type stubReporter struct {
	result *model.AnalysisResult
	err    error
}

func (s *stubReporter) AuditReport(_ context.Context, days int) (*model.AnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.result.DaysAnalyzed = days
	return s.result, nil
}

type capturingRecRepo struct {
	saved []*model.RecommendationSet
	err   error
}

func (r *capturingRecRepo) SaveSet(_ context.Context, set *model.RecommendationSet) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, set)
	return nil
}

func (r *capturingRecRepo) List(context.Context, model.RecommendationFilter) ([]*model.Recommendation, error) {
	return nil, nil
}

func (r *capturingRecRepo) GetByID(context.Context, string) (*model.Recommendation, error) {
	return nil, nil
}

func (r *capturingRecRepo) UpdateStatus(context.Context, string, model.RecommendationStatus) error {
	return nil
}

type capturingAnalysisRepo struct {
	saved []*model.AnalysisResult
}

func (r *capturingAnalysisRepo) SaveResult(_ context.Context, result *model.AnalysisResult) error {
	r.saved = append(r.saved, result)
	return nil
}

func (r *capturingAnalysisRepo) ListRecent(context.Context, string, int) ([]*model.AnalysisResult, error) {
	return nil, nil
}

func TestRunAggregationPersistsSet(t *testing.T) {
	set := &model.RecommendationSet{
		ProjectID: "proj-1",
		Recommendations: []model.Recommendation{
			{ID: model.NewID(), Title: "Delete idle instance", MonthlySavings: 120},
		},
		GeneratedAt: time.Now().UTC(),
	}
	recs := &capturingRecRepo{}
	runner := NewAnalysisRunner(&stubAggregator{set: set}, &stubReporter{}, recs, &capturingAnalysisRepo{}, 30, nil)

	err := runner.RunAggregation(context.Background())
	require.NoError(t, err)
	require.Len(t, recs.saved, 1)
	assert.Equal(t, "proj-1", recs.saved[0].ProjectID)
	assert.Equal(t, 30, recs.saved[0].Window.Days())
}

func TestRunAggregationPersistsPartialResults(t *testing.T) {
	set := &model.RecommendationSet{
		ProjectID: "proj-1",
		Partial:   true,
		Failures:  []model.CollectorFailure{{Collector: "billing", Error: "403"}},
	}
	recs := &capturingRecRepo{}
	runner := NewAnalysisRunner(&stubAggregator{set: set}, &stubReporter{}, recs, &capturingAnalysisRepo{}, 30, nil)

	err := runner.RunAggregation(context.Background())
	require.NoError(t, err)
	require.Len(t, recs.saved, 1, "partial results must still be persisted")
	assert.True(t, recs.saved[0].Partial)
}

func TestRunAggregationPropagatesErrors(t *testing.T) {
	runner := NewAnalysisRunner(&stubAggregator{err: errors.New("project id required")}, &stubReporter{},
		&capturingRecRepo{}, &capturingAnalysisRepo{}, 30, nil)

	err := runner.RunAggregation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregating recommendations")
}

func TestRunAuditReportStoresHistory(t *testing.T) {
	reporter := &stubReporter{result: &model.AnalysisResult{
		Status:   model.AnalysisSuccess,
		Analysis: "weekly report",
	}}
	analyses := &capturingAnalysisRepo{}
	runner := NewAnalysisRunner(&stubAggregator{}, reporter, &capturingRecRepo{}, analyses, 7, nil)

	err := runner.RunAuditReport(context.Background())
	require.NoError(t, err)
	require.Len(t, analyses.saved, 1)
	assert.Equal(t, "weekly report", analyses.saved[0].Analysis)
	assert.Equal(t, 7, analyses.saved[0].DaysAnalyzed)
}

func TestRegisterAllUsesDefaultSchedules(t *testing.T) {
	runner := NewAnalysisRunner(&stubAggregator{}, &stubReporter{}, &capturingRecRepo{}, &capturingAnalysisRepo{}, 30, nil)
	s := NewScheduler(nil)

	err := runner.RegisterAll(s, "", "")
	require.NoError(t, err)

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	schedules := map[string]string{}
	for _, j := range jobs {
		schedules[j.Name] = j.Schedule
	}
	assert.Equal(t, DefaultAggregationSchedule, schedules["recommendation-aggregation"])
	assert.Equal(t, DefaultReportSchedule, schedules["audit-report"])
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(nil)
	err := s.Register("broken", "not a cron expr", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestSchedulerRunNowUnknownJob(t *testing.T) {
	s := NewScheduler(nil)
	err := s.RunNow("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
