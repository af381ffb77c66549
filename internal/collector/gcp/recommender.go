package gcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/auditai/backend/internal/collector"
)

// recommenderIDs maps our advisory categories onto GCP recommender rule
// identifiers.
var recommenderIDs = map[collector.AdvisoryCategory]string{
	collector.CategoryIdleInstances: "google.compute.instance.IdleResourceRecommender",
	collector.CategoryMachineType:   "google.compute.instance.MachineTypeRecommender",
	collector.CategoryIdleDisks:     "google.compute.disk.IdleResourceRecommender",
	collector.CategoryStorage:       "google.storage.bucket.SoftDeleteRecommender",
}

// RecommenderCollector wraps one GCP recommender category.
type RecommenderCollector struct {
	client   *client
	category collector.AdvisoryCategory
	location string
}

// NewRecommenderCollector builds a collector for one advisory category.
func NewRecommenderCollector(cfg Config, category collector.AdvisoryCategory) (*RecommenderCollector, error) {
	if _, ok := recommenderIDs[category]; !ok {
		return nil, fmt.Errorf("no recommender mapped for category %q", category)
	}
	return &RecommenderCollector{
		client:   newClient(cfg),
		category: category,
		location: "global",
	}, nil
}

// NewAllRecommenderCollectors builds one collector per known category and
// registers them.
func NewAllRecommenderCollectors(cfg Config, registry *collector.Registry) error {
	for _, cat := range []collector.AdvisoryCategory{
		collector.CategoryIdleInstances,
		collector.CategoryMachineType,
		collector.CategoryIdleDisks,
		collector.CategoryStorage,
	} {
		c, err := NewRecommenderCollector(cfg, cat)
		if err != nil {
			return err
		}
		registry.Register(c)
	}
	return nil
}

func (c *RecommenderCollector) Category() collector.AdvisoryCategory {
	return c.category
}

// Wire types for the Recommender API.

type recommenderListResponse struct {
	Recommendations []gcpRecommendation `json:"recommendations"`
	NextPageToken   string              `json:"nextPageToken"`
}

type gcpRecommendation struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Priority      string `json:"priority"`
	Etag          string `json:"etag"`
	PrimaryImpact struct {
		Category       string `json:"category"`
		CostProjection struct {
			Cost     money  `json:"cost"`
			Duration string `json:"duration"`
		} `json:"costProjection"`
	} `json:"primaryImpact"`
	Content struct {
		OperationGroups []struct {
			Operations []struct {
				Action   string `json:"action"`
				Resource string `json:"resource"`
			} `json:"operations"`
		} `json:"operationGroups"`
	} `json:"content"`
	StateInfo struct {
		State string `json:"state"`
	} `json:"stateInfo"`
}

// ListRecommendations fetches all active advisory entries for this category,
// following pagination.
func (c *RecommenderCollector) ListRecommendations(ctx context.Context) ([]collector.RawAdvisory, error) {
	recommenderID := recommenderIDs[c.category]
	base := fmt.Sprintf("%s/projects/%s/locations/%s/recommenders/%s/recommendations",
		c.client.recommenderBaseURL, c.client.projectID, c.location, recommenderID)

	var out []collector.RawAdvisory
	pageToken := ""
	for {
		url := base
		if pageToken != "" {
			url += "?pageToken=" + queryEscape(pageToken)
		}

		var resp recommenderListResponse
		if err := c.client.get(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("failed to list %s recommendations: %w", c.category, err)
		}

		for _, rec := range resp.Recommendations {
			if rec.StateInfo.State != "" && rec.StateInfo.State != "ACTIVE" {
				continue
			}
			out = append(out, toRawAdvisory(recommenderID, rec))
		}

		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

// MarkClaimed tells the recommender a recommendation is being acted on.
func (c *RecommenderCollector) MarkClaimed(ctx context.Context, name, etag string) error {
	return c.mark(ctx, name, etag, "markClaimed")
}

// MarkSucceeded tells the recommender a recommendation was applied.
func (c *RecommenderCollector) MarkSucceeded(ctx context.Context, name, etag string) error {
	return c.mark(ctx, name, etag, "markSucceeded")
}

// MarkDismissed tells the recommender a recommendation was rejected.
func (c *RecommenderCollector) MarkDismissed(ctx context.Context, name, etag string) error {
	return c.mark(ctx, name, etag, "markDismissed")
}

func (c *RecommenderCollector) mark(ctx context.Context, name, etag, verb string) error {
	url := fmt.Sprintf("%s/%s:%s", c.client.recommenderBaseURL, name, verb)
	payload := map[string]string{"etag": etag}
	if err := c.client.post(ctx, url, payload, nil); err != nil {
		return fmt.Errorf("failed to %s recommendation: %w", verb, err)
	}
	return nil
}

// toRawAdvisory converts a wire recommendation into the canonical raw form.
// Cost projections arrive scoped to an arbitrary duration; savings are
// normalized to a 30-day month.
func toRawAdvisory(recommenderID string, rec gcpRecommendation) collector.RawAdvisory {
	monthly := normalizeToMonthly(rec.PrimaryImpact.CostProjection.Cost.Dollars(), rec.PrimaryImpact.CostProjection.Duration)

	var actions []string
	var resourceID string
	for _, group := range rec.Content.OperationGroups {
		for _, op := range group.Operations {
			if resourceID == "" && op.Resource != "" {
				resourceID = shortResourceName(op.Resource)
			}
			if op.Action != "" {
				actions = append(actions, fmt.Sprintf("%s %s", op.Action, shortResourceName(op.Resource)))
			}
		}
	}

	return collector.RawAdvisory{
		RecommendationID: rec.Name,
		ResourceID:       resourceID,
		Title:            rec.Description,
		Description:      rec.Description,
		Recommender:      recommenderID,
		Priority:         collector.AdvisoryPriority(rec.Priority),
		MonthlySavings:   monthly,
		Actions:          actions,
		State:            rec.StateInfo.State,
		Etag:             rec.Etag,
	}
}

// normalizeToMonthly scales a cost over a protobuf duration ("2592000s") to
// a 30-day figure. Unparseable durations are assumed monthly already.
func normalizeToMonthly(amount float64, duration string) float64 {
	secs, err := strconv.ParseFloat(strings.TrimSuffix(duration, "s"), 64)
	if err != nil || secs <= 0 {
		return amount
	}
	const monthSeconds = 30 * 24 * 3600
	return amount * monthSeconds / secs
}

// shortResourceName trims the full API path down to the trailing
// type/name pair.
func shortResourceName(resource string) string {
	parts := strings.Split(resource, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return resource
}
