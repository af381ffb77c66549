// Package gcp implements the collector interfaces against the Google Cloud
// REST APIs: Cloud Billing for cost data, Cloud Monitoring for utilization,
// and the Recommender API for advisories.
package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/auditai/backend/internal/collector"
)

// Config configures the shared GCP REST client.
type Config struct {
	ProjectID      string
	BillingAccount string
	Credentials    collector.CredentialProvider
	Timeout        time.Duration

	// BaseURL overrides let tests point at a local server.
	BillingBaseURL     string
	MonitoringBaseURL  string
	RecommenderBaseURL string
}

const (
	defaultBillingBaseURL     = "https://cloudbilling.googleapis.com/v1"
	defaultMonitoringBaseURL  = "https://monitoring.googleapis.com/v3"
	defaultRecommenderBaseURL = "https://recommender.googleapis.com/v1"
)

// client is the shared HTTP plumbing for all GCP collectors.
type client struct {
	projectID      string
	billingAccount string
	credentials    collector.CredentialProvider
	httpClient     *http.Client

	billingBaseURL     string
	monitoringBaseURL  string
	recommenderBaseURL string
}

func newClient(cfg Config) *client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BillingBaseURL == "" {
		cfg.BillingBaseURL = defaultBillingBaseURL
	}
	if cfg.MonitoringBaseURL == "" {
		cfg.MonitoringBaseURL = defaultMonitoringBaseURL
	}
	if cfg.RecommenderBaseURL == "" {
		cfg.RecommenderBaseURL = defaultRecommenderBaseURL
	}
	return &client{
		projectID:          cfg.ProjectID,
		billingAccount:     cfg.BillingAccount,
		credentials:        cfg.Credentials,
		httpClient:         &http.Client{Timeout: cfg.Timeout},
		billingBaseURL:     cfg.BillingBaseURL,
		monitoringBaseURL:  cfg.MonitoringBaseURL,
		recommenderBaseURL: cfg.RecommenderBaseURL,
	}
}

func (c *client) doRequest(ctx context.Context, method, rawURL string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.credentials == nil {
		return fmt.Errorf("no credential provider configured for project %s", c.projectID)
	}
	creds, err := c.credentials.Credentials(ctx, c.projectID)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gcp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gcp api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gcp response: %w", err)
		}
	}
	return nil
}

func (c *client) get(ctx context.Context, rawURL string, out any) error {
	return c.doRequest(ctx, http.MethodGet, rawURL, nil, out)
}

func (c *client) post(ctx context.Context, rawURL string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, rawURL, body, out)
}

// money is the Recommender API's units+nanos currency representation.
type money struct {
	CurrencyCode string `json:"currencyCode"`
	Units        string `json:"units"`
	Nanos        int64  `json:"nanos"`
}

// Dollars converts the units+nanos pair into a float amount. Savings come
// back negative from the API (they reduce cost); callers get the absolute
// value.
func (m money) Dollars() float64 {
	units, _ := strconv.ParseFloat(m.Units, 64)
	v := units + float64(m.Nanos)/1e9
	if v < 0 {
		v = -v
	}
	return v
}

func queryEscape(s string) string {
	return url.QueryEscape(s)
}
