package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GCP_PROJECT_ID", "demo-project")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "demo-project", cfg.GCP.ProjectID)
	assert.Equal(t, "gemini-2.0-flash", cfg.GenAI.Model)
	assert.Equal(t, 30, cfg.Analysis.WindowDays)
	assert.InDelta(t, 10, cfg.Analysis.MinMonthlySavings, 0.001)
	assert.Equal(t, 30*time.Second, cfg.Analysis.CollectorTimeout)
	assert.False(t, cfg.AWS.Enabled)
	assert.False(t, cfg.Remediation.AutoApprove)
	assert.True(t, cfg.Jobs.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYSIS_MIN_MONTHLY_SAVINGS", "25.5")
	t.Setenv("GEMINI_TIMEOUT", "2m")
	t.Setenv("GCP_ACCESS_TOKEN", "ya29.token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ya29.token", cfg.GCP.AccessToken)
	assert.InDelta(t, 25.5, cfg.Analysis.MinMonthlySavings, 0.001)
	assert.Equal(t, 2*time.Minute, cfg.GenAI.Timeout)
}

func TestValidateRequiresProjectID(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("DB_PASSWORD", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GCP_PROJECT_ID")
}

func TestValidateAWSCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AWS_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AWS_ASSUME_ROLE_ARN", "arn:aws:iam::123456789012:role/audit")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AWS.Enabled)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "auditai", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=auditai sslmode=disable", db.DSN())
}
