package gcp

import (
	"context"
	"fmt"

	"github.com/auditai/backend/internal/model"
)

// IdleCPUThreshold is the average CPU percentage below which a resource is
// flagged idle.
const IdleCPUThreshold = 5.0

// MonitoringCollector reads utilization metrics from the Cloud Monitoring
// time-series API.
type MonitoringCollector struct {
	client *client
}

func NewMonitoringCollector(cfg Config) *MonitoringCollector {
	return &MonitoringCollector{client: newClient(cfg)}
}

type timeSeriesResponse struct {
	TimeSeries []struct {
		Resource struct {
			Type   string            `json:"type"`
			Labels map[string]string `json:"labels"`
		} `json:"resource"`
		Points []struct {
			Value struct {
				DoubleValue float64 `json:"doubleValue"`
			} `json:"value"`
		} `json:"points"`
	} `json:"timeSeries"`
	NextPageToken string `json:"nextPageToken"`
}

// GetResourceMetrics returns average CPU utilization per instance over the
// window, with idle flags.
func (c *MonitoringCollector) GetResourceMetrics(ctx context.Context, window model.DateRange) ([]model.ResourceMetric, error) {
	filter := `metric.type="compute.googleapis.com/instance/cpu/utilization"`
	url := fmt.Sprintf("%s/projects/%s/timeSeries?filter=%s&interval.startTime=%s&interval.endTime=%s",
		c.client.monitoringBaseURL, c.client.projectID,
		queryEscape(filter),
		queryEscape(window.Start.Format("2006-01-02T15:04:05Z")),
		queryEscape(window.End.Format("2006-01-02T15:04:05Z")))

	var metrics []model.ResourceMetric
	pageToken := ""
	for {
		pageURL := url
		if pageToken != "" {
			pageURL += "&pageToken=" + queryEscape(pageToken)
		}

		var resp timeSeriesResponse
		if err := c.client.get(ctx, pageURL, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch utilization metrics: %w", err)
		}

		for _, series := range resp.TimeSeries {
			if len(series.Points) == 0 {
				continue
			}
			var sum float64
			for _, p := range series.Points {
				sum += p.Value.DoubleValue
			}
			// The API reports utilization as a 0..1 ratio.
			avgPct := sum / float64(len(series.Points)) * 100

			id := series.Resource.Labels["instance_id"]
			if name := series.Resource.Labels["instance_name"]; name != "" {
				id = name
			}
			metrics = append(metrics, model.ResourceMetric{
				ResourceID:         id,
				ResourceType:       series.Resource.Type,
				UtilizationPercent: avgPct,
				IsIdle:             avgPct < IdleCPUThreshold,
			})
		}

		if resp.NextPageToken == "" {
			return metrics, nil
		}
		pageToken = resp.NextPageToken
	}
}
