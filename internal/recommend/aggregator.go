package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auditai/backend/internal/collector"
	"github.com/auditai/backend/internal/costmath"
	"github.com/auditai/backend/internal/model"
)

// DefaultMinMonthlySavings is the floor below which a recommendation is
// treated as noise and dropped.
const DefaultMinMonthlySavings = 10.0

// DefaultCollectorTimeout bounds each individual collector call.
const DefaultCollectorTimeout = 30 * time.Second

var (
	ErrEmptyProjectID = errors.New("project id is required")
	ErrInvalidWindow  = errors.New("analysis window must span at least one day")
)

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithMinMonthlySavings overrides the savings floor.
func WithMinMonthlySavings(min float64) AggregatorOption {
	return func(a *Aggregator) { a.minMonthlySavings = min }
}

// WithCollectorTimeout overrides the per-collector call timeout.
func WithCollectorTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.collectorTimeout = d }
}

// Aggregator produces the ranked recommendation set for one project and
// window. Collector failures degrade the result to partial instead of
// aborting the run.
type Aggregator struct {
	projectID         string
	registry          *collector.Registry
	costs             collector.CostCollector
	normalizer        *Normalizer
	minMonthlySavings float64
	collectorTimeout  time.Duration
	logger            *slog.Logger
}

func NewAggregator(projectID string, registry *collector.Registry, costs collector.CostCollector, logger *slog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		projectID:         projectID,
		registry:          registry,
		costs:             costs,
		normalizer:        NewNormalizer(),
		minMonthlySavings: DefaultMinMonthlySavings,
		collectorTimeout:  DefaultCollectorTimeout,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate runs one full collection pass: fan out to every advisory
// collector and the cost collector concurrently, normalize, filter by the
// savings floor, and prioritize. An empty advisory result is a valid run,
// not an error.
func (a *Aggregator) Aggregate(ctx context.Context, window model.DateRange) (*model.RecommendationSet, error) {
	if a.projectID == "" {
		return nil, ErrEmptyProjectID
	}
	if !window.End.After(window.Start) {
		return nil, ErrInvalidWindow
	}

	var (
		mu       sync.Mutex
		recs     []model.Recommendation
		failures []model.CollectorFailure
		summary  *model.CostSummary
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, c := range a.registry.All() {
		c := c
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, a.collectorTimeout)
			defer cancel()

			raws, err := c.ListRecommendations(cctx)
			if err != nil {
				a.logger.Warn("advisory collector failed",
					slog.String("project_id", a.projectID),
					slog.String("collector", string(c.Category())),
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, model.CollectorFailure{
					Collector: string(c.Category()),
					Error:     err.Error(),
				})
				mu.Unlock()
				return nil
			}

			normalized := a.normalizer.NormalizeAll(string(c.Category()), raws)
			mu.Lock()
			recs = append(recs, normalized...)
			mu.Unlock()
			return nil
		})
	}

	if a.costs != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, a.collectorTimeout)
			defer cancel()

			cs, err := a.costs.GetTotalCost(cctx, window)
			if err != nil {
				a.logger.Warn("cost collector failed",
					slog.String("project_id", a.projectID),
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, model.CollectorFailure{
					Collector: "cost",
					Error:     err.Error(),
				})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			summary = cs
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Collector errors are absorbed above; this only fires on context
		// cancellation.
		return nil, fmt.Errorf("aggregation cancelled: %w", err)
	}

	filtered := a.filterBySavings(recs)
	ranked := costmath.PrioritizeRecommendations(filtered)

	a.logger.Info("aggregation complete",
		slog.String("project_id", a.projectID),
		slog.Int("collected", len(recs)),
		slog.Int("kept", len(ranked)),
		slog.Int("failures", len(failures)))

	return &model.RecommendationSet{
		ProjectID:       a.projectID,
		Window:          window,
		Recommendations: ranked,
		CostSummary:     summary,
		Partial:         len(failures) > 0,
		Failures:        failures,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// filterBySavings drops recommendations under the savings floor. The floor is
// inclusive: exactly the minimum is kept.
func (a *Aggregator) filterBySavings(recs []model.Recommendation) []model.Recommendation {
	kept := make([]model.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.MonthlySavings >= a.minMonthlySavings {
			kept = append(kept, rec)
		}
	}
	return kept
}
