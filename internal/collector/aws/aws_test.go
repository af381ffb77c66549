package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditai/backend/internal/collector"
	"github.com/auditai/backend/internal/model"
)

type stubCostExplorer struct {
	costOutput        *costexplorer.GetCostAndUsageOutput
	rightsizingOutput *costexplorer.GetRightsizingRecommendationOutput
	err               error
}

func (s *stubCostExplorer) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	return s.costOutput, s.err
}

func (s *stubCostExplorer) GetRightsizingRecommendation(ctx context.Context, params *costexplorer.GetRightsizingRecommendationInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetRightsizingRecommendationOutput, error) {
	return s.rightsizingOutput, s.err
}

func awsWindow() model.DateRange {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	return model.DateRange{Start: end.AddDate(0, 0, -30), End: end}
}

func TestCostCollector_GetTotalCost(t *testing.T) {
	stub := &stubCostExplorer{costOutput: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []types.ResultByTime{
			{
				Groups: []types.Group{
					{
						Keys:    []string{"Amazon Elastic Compute Cloud - Compute"},
						Metrics: map[string]types.MetricValue{"UnblendedCost": {Amount: aws.String("612.40")}},
					},
					{
						Keys:    []string{"Amazon Simple Storage Service"},
						Metrics: map[string]types.MetricValue{"UnblendedCost": {Amount: aws.String("87.60")}},
					},
				},
			},
		},
	}}

	c := NewCostCollector(stub)
	summary, err := c.GetTotalCost(context.Background(), awsWindow())
	require.NoError(t, err)

	assert.InDelta(t, 700.0, summary.TotalCost, 0.001)
	assert.Equal(t, model.CurrencyUSD, summary.Currency)
	assert.Len(t, summary.ByService, 2)
}

func TestCostCollector_GetCostTrend(t *testing.T) {
	stub := &stubCostExplorer{costOutput: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []types.ResultByTime{
			{
				TimePeriod: &types.DateInterval{Start: aws.String("2025-06-01")},
				Total:      map[string]types.MetricValue{"UnblendedCost": {Amount: aws.String("23.10")}},
			},
			{
				TimePeriod: &types.DateInterval{Start: aws.String("2025-06-02")},
				Total:      map[string]types.MetricValue{"UnblendedCost": {Amount: aws.String("25.90")}},
			},
		},
	}}

	c := NewCostCollector(stub)
	points, err := c.GetCostTrend(context.Background(), awsWindow())
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, 23.10, points[0].Cost)
	assert.Equal(t, 25.90, points[1].Cost)
}

func TestCostCollector_Error(t *testing.T) {
	c := NewCostCollector(&stubCostExplorer{err: errors.New("throttled")})
	_, err := c.GetTotalCost(context.Background(), awsWindow())
	assert.ErrorContains(t, err, "throttled")
}

func TestRightsizingCollector(t *testing.T) {
	stub := &stubCostExplorer{rightsizingOutput: &costexplorer.GetRightsizingRecommendationOutput{
		RightsizingRecommendations: []types.RightsizingRecommendation{
			{
				RightsizingType: types.RightsizingTypeModify,
				CurrentInstance: &types.CurrentInstance{
					ResourceId: aws.String("i-0abc123"),
					ResourceDetails: &types.ResourceDetails{
						EC2ResourceDetails: &types.EC2ResourceDetails{InstanceType: aws.String("m5.xlarge")},
					},
				},
				ModifyRecommendationDetail: &types.ModifyRecommendationDetail{
					TargetInstances: []types.TargetInstance{
						{
							EstimatedMonthlySavings: aws.String("180.00"),
							ResourceDetails: &types.ResourceDetails{
								EC2ResourceDetails: &types.EC2ResourceDetails{InstanceType: aws.String("m5.large")},
							},
						},
					},
				},
			},
			{
				RightsizingType: types.RightsizingTypeTerminate,
				CurrentInstance: &types.CurrentInstance{ResourceId: aws.String("i-0dead99")},
				TerminateRecommendationDetail: &types.TerminateRecommendationDetail{
					EstimatedMonthlySavings: aws.String("42.50"),
				},
			},
		},
	}}

	c := NewRightsizingCollector(stub)
	assert.Equal(t, collector.CategoryMachineType, c.Category())

	raws, err := c.ListRecommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 2)

	resize := raws[0]
	assert.Equal(t, "i-0abc123", resize.ResourceID)
	assert.Contains(t, resize.Title, "Resize")
	assert.Contains(t, resize.Title, "m5.large")
	assert.Equal(t, 180.0, resize.MonthlySavings)
	assert.Equal(t, collector.PriorityP2, resize.Priority)
	assert.Len(t, resize.Actions, 3)

	terminate := raws[1]
	assert.Contains(t, terminate.Title, "Delete idle instance")
	assert.Equal(t, 42.50, terminate.MonthlySavings)
	assert.Equal(t, collector.PriorityP3, terminate.Priority)
}

func TestPriorityFromSavings(t *testing.T) {
	assert.Equal(t, collector.PriorityP1, priorityFromSavings(600))
	assert.Equal(t, collector.PriorityP2, priorityFromSavings(150))
	assert.Equal(t, collector.PriorityP3, priorityFromSavings(30))
	assert.Equal(t, collector.PriorityP4, priorityFromSavings(5))
}
