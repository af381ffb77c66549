package collector

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auditai/backend/internal/model"
)

// MergedCostCollector combines spend data from several accounts into a
// single view. Sources are queried concurrently; one failing source
// fails the whole call since a partial total would be misleading.
type MergedCostCollector struct {
	sources []CostCollector
}

func NewMergedCostCollector(sources ...CostCollector) *MergedCostCollector {
	return &MergedCostCollector{sources: sources}
}

// GetTotalCost sums totals across all sources and merges the
// per-service splits. The reported currency is taken from the first
// source; mixed-currency accounts are not supported.
func (m *MergedCostCollector) GetTotalCost(ctx context.Context, window model.DateRange) (*model.CostSummary, error) {
	summaries := make([]*model.CostSummary, len(m.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range m.sources {
		i, src := i, src
		g.Go(func() error {
			s, err := src.GetTotalCost(gctx, window)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byService := make(map[string]float64)
	var total float64
	currency := model.CurrencyUSD
	for i, s := range summaries {
		total += s.TotalCost
		for _, svc := range s.ByService {
			byService[svc.Service] += svc.Cost
		}
		if i == 0 && s.Currency != "" {
			currency = s.Currency
		}
	}

	services := make([]model.ServiceCost, 0, len(byService))
	for svc, cost := range byService {
		services = append(services, model.ServiceCost{Service: svc, Cost: cost})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Cost > services[j].Cost })

	return &model.CostSummary{
		TotalCost: total,
		Currency:  currency,
		ByService: services,
		Window:    window,
	}, nil
}

// GetCostTrend sums the daily series across sources, keyed by date.
func (m *MergedCostCollector) GetCostTrend(ctx context.Context, window model.DateRange) ([]model.CostPoint, error) {
	byDate := make(map[time.Time]float64)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		src := src
		g.Go(func() error {
			points, err := src.GetCostTrend(gctx, window)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, p := range points {
				byDate[p.Date.UTC().Truncate(24*time.Hour)] += p.Cost
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make([]model.CostPoint, 0, len(byDate))
	for date, cost := range byDate {
		points = append(points, model.CostPoint{Date: date, Cost: cost})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
