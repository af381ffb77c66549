package remediation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auditai/backend/internal/model"
)

// RecommendationMarker advances a recommendation through the vendor's
// lifecycle states. The Recommender collectors implement it.
type RecommendationMarker interface {
	MarkClaimed(ctx context.Context, name, etag string) error
	MarkSucceeded(ctx context.Context, name, etag string) error
	MarkDismissed(ctx context.Context, name, etag string) error
}

// GCPCloud handles GCP actions. Changes themselves are applied through
// generated Terraform outside this service, so executing an action
// here claims the vendor recommendation and records the state; there
// is nothing to roll back.
type GCPCloud struct {
	marker RecommendationMarker
	logger *slog.Logger
}

func NewGCPCloud(marker RecommendationMarker, logger *slog.Logger) *GCPCloud {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCPCloud{marker: marker, logger: logger}
}

func (c *GCPCloud) Provider() model.CloudProvider {
	return model.CloudProviderGCP
}

func (c *GCPCloud) Execute(ctx context.Context, action *Action) (map[string]string, error) {
	name := action.Params["recommendation_name"]
	etag := action.Params["etag"]
	if name == "" {
		return nil, fmt.Errorf("params.recommendation_name is required for GCP actions")
	}

	if err := c.marker.MarkClaimed(ctx, name, etag); err != nil {
		return nil, fmt.Errorf("claiming recommendation: %w", err)
	}
	if err := c.marker.MarkSucceeded(ctx, name, etag); err != nil {
		return nil, fmt.Errorf("marking recommendation succeeded: %w", err)
	}

	c.logger.Info("recommendation marked succeeded",
		"recommendation", name,
		"resource", action.ResourceID)
	return nil, nil
}

// Dismiss tells the vendor the recommendation was declined so it stops
// resurfacing in collection runs. Actions proposed without a vendor
// recommendation attached have nothing to dismiss.
func (c *GCPCloud) Dismiss(ctx context.Context, action *Action) error {
	name := action.Params["recommendation_name"]
	if name == "" {
		return nil
	}
	if err := c.marker.MarkDismissed(ctx, name, action.Params["etag"]); err != nil {
		return fmt.Errorf("dismissing recommendation: %w", err)
	}
	c.logger.Info("recommendation dismissed",
		"recommendation", name,
		"resource", action.ResourceID)
	return nil
}

func (c *GCPCloud) Rollback(ctx context.Context, action *Action) error {
	return fmt.Errorf("rollback not supported for %s actions", model.CloudProviderGCP)
}
