package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/repository"
)

// Default cron schedules; overridable through configuration.
const (
	DefaultAggregationSchedule = "0 0 2 * * *" // daily at 02:00
	DefaultReportSchedule      = "0 0 6 * * 1" // Mondays at 06:00
)

// recommendationAggregator matches recommend.Aggregator.
type recommendationAggregator interface {
	Aggregate(ctx context.Context, window model.DateRange) (*model.RecommendationSet, error)
}

// reportGenerator matches the agent service.
type reportGenerator interface {
	AuditReport(ctx context.Context, days int) (*model.AnalysisResult, error)
}

// AnalysisRunner owns the recurring background work: nightly
// recommendation aggregation and the weekly audit report.
type AnalysisRunner struct {
	aggregator recommendationAggregator
	agent      reportGenerator
	recs       repository.RecommendationRepository
	analyses   repository.AnalysisRepository
	windowDays int
	logger     *slog.Logger
}

func NewAnalysisRunner(
	aggregator recommendationAggregator,
	agentSvc reportGenerator,
	recs repository.RecommendationRepository,
	analyses repository.AnalysisRepository,
	windowDays int,
	logger *slog.Logger,
) *AnalysisRunner {
	if windowDays <= 0 {
		windowDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisRunner{
		aggregator: aggregator,
		agent:      agentSvc,
		recs:       recs,
		analyses:   analyses,
		windowDays: windowDays,
		logger:     logger,
	}
}

// RunAggregation collects, normalizes and persists recommendations for
// the configured window. Partial results are persisted too; a partial
// run is better than none.
func (r *AnalysisRunner) RunAggregation(ctx context.Context) error {
	window := model.LastDays(r.windowDays)

	set, err := r.aggregator.Aggregate(ctx, window)
	if err != nil {
		return fmt.Errorf("aggregating recommendations: %w", err)
	}

	if set.Partial {
		r.logger.Warn("aggregation completed with failures",
			"failed_collectors", len(set.Failures))
	}

	if err := r.recs.SaveSet(ctx, set); err != nil {
		return fmt.Errorf("persisting recommendation set: %w", err)
	}

	summary := set.Summary()
	r.logger.Info("scheduled aggregation completed",
		"recommendations", summary.TotalRecommendations,
		"monthly_savings", summary.TotalMonthlySavings)
	return nil
}

// RunAuditReport asks the agent for a full audit report and stores it
// in the analysis history.
func (r *AnalysisRunner) RunAuditReport(ctx context.Context) error {
	result, err := r.agent.AuditReport(ctx, r.windowDays)
	if err != nil {
		return fmt.Errorf("generating audit report: %w", err)
	}

	if err := r.analyses.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("persisting audit report: %w", err)
	}

	r.logger.Info("scheduled audit report stored",
		"fallback_used", result.FallbackUsed,
		"tool_calls", len(result.ToolCalls))
	return nil
}

// RegisterAll wires the runner's jobs into the scheduler.
func (r *AnalysisRunner) RegisterAll(s *Scheduler, aggregationSchedule, reportSchedule string) error {
	if aggregationSchedule == "" {
		aggregationSchedule = DefaultAggregationSchedule
	}
	if reportSchedule == "" {
		reportSchedule = DefaultReportSchedule
	}
	if err := s.Register("recommendation-aggregation", aggregationSchedule, r.RunAggregation); err != nil {
		return err
	}
	return s.Register("audit-report", reportSchedule, r.RunAuditReport)
}
