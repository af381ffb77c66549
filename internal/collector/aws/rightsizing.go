package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/auditai/backend/internal/collector"
)

const rightsizingRecommender = "aws.costexplorer.RightsizingRecommendation"

// RightsizingCollector exposes Cost Explorer rightsizing recommendations as
// machine-type advisories.
type RightsizingCollector struct {
	ce costExplorerAPI
}

func NewRightsizingCollector(ce costExplorerAPI) *RightsizingCollector {
	return &RightsizingCollector{ce: ce}
}

func (c *RightsizingCollector) Category() collector.AdvisoryCategory {
	return collector.CategoryMachineType
}

// ListRecommendations fetches EC2 rightsizing advisories.
func (c *RightsizingCollector) ListRecommendations(ctx context.Context) ([]collector.RawAdvisory, error) {
	output, err := c.ce.GetRightsizingRecommendation(ctx, &costexplorer.GetRightsizingRecommendationInput{
		Service: aws.String("AmazonEC2"),
		Configuration: &types.RightsizingRecommendationConfiguration{
			RecommendationTarget: types.RecommendationTargetSameInstanceFamily,
			BenefitsConsidered:   true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get rightsizing recommendations: %w", err)
	}

	var raws []collector.RawAdvisory
	for _, rec := range output.RightsizingRecommendations {
		resourceID := "unknown"
		if rec.CurrentInstance != nil && rec.CurrentInstance.ResourceId != nil {
			resourceID = *rec.CurrentInstance.ResourceId
		}

		switch rec.RightsizingType {
		case types.RightsizingTypeModify:
			if rec.ModifyRecommendationDetail == nil {
				continue
			}
			var savings float64
			target := "unknown"
			for _, t := range rec.ModifyRecommendationDetail.TargetInstances {
				savings = parseAmount(t.EstimatedMonthlySavings)
				if t.ResourceDetails != nil && t.ResourceDetails.EC2ResourceDetails != nil && t.ResourceDetails.EC2ResourceDetails.InstanceType != nil {
					target = *t.ResourceDetails.EC2ResourceDetails.InstanceType
				}
			}
			current := currentInstanceType(rec.CurrentInstance)
			raws = append(raws, collector.RawAdvisory{
				RecommendationID: resourceID,
				ResourceID:       resourceID,
				Title:            fmt.Sprintf("Resize instance %s from %s to %s", resourceID, current, target),
				Description:      fmt.Sprintf("EC2 instance %s is overprovisioned; changing %s to %s saves an estimated $%.2f/mo", resourceID, current, target, savings),
				Recommender:      rightsizingRecommender,
				Priority:         priorityFromSavings(savings),
				MonthlySavings:   savings,
				Actions: []string{
					fmt.Sprintf("Stop instance %s", resourceID),
					fmt.Sprintf("Change instance type from %s to %s", current, target),
					fmt.Sprintf("Start instance %s and verify workload health", resourceID),
				},
			})

		case types.RightsizingTypeTerminate:
			var savings float64
			if rec.TerminateRecommendationDetail != nil {
				savings = parseAmount(rec.TerminateRecommendationDetail.EstimatedMonthlySavings)
			}
			raws = append(raws, collector.RawAdvisory{
				RecommendationID: resourceID,
				ResourceID:       resourceID,
				Title:            fmt.Sprintf("Delete idle instance %s", resourceID),
				Description:      fmt.Sprintf("EC2 instance %s shows no meaningful utilization; terminating it saves an estimated $%.2f/mo", resourceID, savings),
				Recommender:      "aws.costexplorer.IdleInstanceRecommendation",
				Priority:         priorityFromSavings(savings),
				MonthlySavings:   savings,
				Actions: []string{
					fmt.Sprintf("Snapshot volumes attached to %s", resourceID),
					fmt.Sprintf("Terminate instance %s", resourceID),
				},
			})
		}
	}
	return raws, nil
}

// priorityFromSavings derives a priority tier from dollar impact, since Cost
// Explorer advisories carry no tier of their own.
func priorityFromSavings(monthly float64) collector.AdvisoryPriority {
	switch {
	case monthly > 500:
		return collector.PriorityP1
	case monthly > 100:
		return collector.PriorityP2
	case monthly > 25:
		return collector.PriorityP3
	default:
		return collector.PriorityP4
	}
}

func currentInstanceType(instance *types.CurrentInstance) string {
	if instance != nil && instance.ResourceDetails != nil &&
		instance.ResourceDetails.EC2ResourceDetails != nil &&
		instance.ResourceDetails.EC2ResourceDetails.InstanceType != nil {
		return *instance.ResourceDetails.EC2ResourceDetails.InstanceType
	}
	return "unknown"
}
