// Package collector defines read-only data source abstractions for one
// account/project: cost, utilization, and vendor advisory recommendations.
// Implementations live in subpackages; the aggregation core only sees these
// interfaces.
package collector

import (
	"context"

	"github.com/auditai/backend/internal/model"
)

// Credentials is an opaque per-account credential token, supplied at
// construction time by the surrounding application. Collectors pass it
// through to their SDK or HTTP client; the core never inspects it.
type Credentials struct {
	ProjectID string
	Token     string
	Extra     map[string]string
}

// CredentialProvider supplies credentials for a given project.
type CredentialProvider interface {
	Credentials(ctx context.Context, projectID string) (Credentials, error)
}

// StaticCredentials is a CredentialProvider that always returns the same
// token. Used for single-tenant deployments and tests.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(ctx context.Context, projectID string) (Credentials, error) {
	c := Credentials(s)
	if c.ProjectID == "" {
		c.ProjectID = projectID
	}
	return c, nil
}

// AdvisoryCategory identifies which vendor recommender an advisory collector
// wraps.
type AdvisoryCategory string

const (
	CategoryIdleInstances AdvisoryCategory = "idle_instances"
	CategoryMachineType   AdvisoryCategory = "machine_type"
	CategoryIdleDisks     AdvisoryCategory = "idle_disks"
	CategoryStorage       AdvisoryCategory = "storage"
)

// AdvisoryPriority is the vendor's own priority tier for an advisory entry.
type AdvisoryPriority string

const (
	PriorityP1 AdvisoryPriority = "P1"
	PriorityP2 AdvisoryPriority = "P2"
	PriorityP3 AdvisoryPriority = "P3"
	PriorityP4 AdvisoryPriority = "P4"
)

// RawAdvisory is one vendor-specific optimization or security suggestion,
// exactly as the recommender system reported it. The normalizer turns these
// into canonical model.Recommendation records.
type RawAdvisory struct {
	RecommendationID string
	ResourceID       string
	Title            string
	Description      string
	Recommender      string
	Priority         AdvisoryPriority
	MonthlySavings   float64
	AnnualSavings    float64
	Actions          []string
	State            string
	Etag             string
}

// CostCollector abstracts access to billing data for one project.
type CostCollector interface {
	// GetTotalCost returns total spend plus the per-service split for the
	// window.
	GetTotalCost(ctx context.Context, window model.DateRange) (*model.CostSummary, error)

	// GetCostTrend returns the daily cost series for the window.
	GetCostTrend(ctx context.Context, window model.DateRange) ([]model.CostPoint, error)
}

// UtilizationCollector abstracts access to resource utilization metrics.
type UtilizationCollector interface {
	GetResourceMetrics(ctx context.Context, window model.DateRange) ([]model.ResourceMetric, error)
}

// AdvisoryCollector abstracts one vendor recommender category.
type AdvisoryCollector interface {
	// Category identifies the recommender this collector wraps.
	Category() AdvisoryCategory

	// ListRecommendations returns the active advisory entries. An empty
	// slice is a valid result, not an error.
	ListRecommendations(ctx context.Context) ([]RawAdvisory, error)
}

// Registry holds the configured advisory collectors for one project. More
// than one collector may serve the same category, one per provider.
type Registry struct {
	collectors []AdvisoryCollector
	byCategory map[AdvisoryCategory][]AdvisoryCollector
}

// NewRegistry creates an empty advisory collector registry.
func NewRegistry() *Registry {
	return &Registry{byCategory: make(map[AdvisoryCategory][]AdvisoryCollector)}
}

// Register adds a collector. Registration order is preserved so aggregation
// runs are deterministic.
func (r *Registry) Register(c AdvisoryCollector) {
	cat := c.Category()
	r.collectors = append(r.collectors, c)
	r.byCategory[cat] = append(r.byCategory[cat], c)
}

// Get retrieves the collectors registered for a category.
func (r *Registry) Get(cat AdvisoryCategory) []AdvisoryCollector {
	return r.byCategory[cat]
}

// All returns collectors in registration order.
func (r *Registry) All() []AdvisoryCollector {
	out := make([]AdvisoryCollector, len(r.collectors))
	copy(out, r.collectors)
	return out
}
