// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	GCP         GCPConfig
	AWS         AWSConfig
	GenAI       GenAIConfig
	Analysis    AnalysisConfig
	Remediation RemediationConfig
	Jobs        JobsConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// GCPConfig holds settings for the audited GCP project.
type GCPConfig struct {
	ProjectID      string
	BillingAccount string
	AccessToken    string
	Timeout        time.Duration
}

// AWSConfig holds settings for the optional AWS account.
type AWSConfig struct {
	Enabled       bool
	Region        string
	AccessKeyID   string
	SecretKey     string
	AssumeRoleARN string
	ExternalID    string
}

// GenAIConfig holds settings for the Gemini model behind the agent.
type GenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AnalysisConfig holds recommendation aggregation settings.
type AnalysisConfig struct {
	WindowDays        int
	MinMonthlySavings float64
	CollectorTimeout  time.Duration
}

// RemediationConfig holds the auto-approval policy for remediation
// actions.
type RemediationConfig struct {
	AutoApprove           bool
	AutoApproveMaxSavings float64
}

// JobsConfig holds background job settings.
type JobsConfig struct {
	Enabled             bool
	AggregationSchedule string
	ReportSchedule      string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "auditai"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "auditai"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_MAX_LIFETIME", 5*time.Minute),
		},
		GCP: GCPConfig{
			ProjectID:      getEnv("GCP_PROJECT_ID", ""),
			BillingAccount: getEnv("GCP_BILLING_ACCOUNT", ""),
			AccessToken:    getEnv("GCP_ACCESS_TOKEN", ""),
			Timeout:        getEnvDuration("GCP_API_TIMEOUT", 30*time.Second),
		},
		AWS: AWSConfig{
			Enabled:       getEnvBool("AWS_ENABLED", false),
			Region:        getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AssumeRoleARN: getEnv("AWS_ASSUME_ROLE_ARN", ""),
			ExternalID:    getEnv("AWS_EXTERNAL_ID", ""),
		},
		GenAI: GenAIConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Analysis: AnalysisConfig{
			WindowDays:        getEnvInt("ANALYSIS_WINDOW_DAYS", 30),
			MinMonthlySavings: getEnvFloat("ANALYSIS_MIN_MONTHLY_SAVINGS", 10),
			CollectorTimeout:  getEnvDuration("ANALYSIS_COLLECTOR_TIMEOUT", 30*time.Second),
		},
		Remediation: RemediationConfig{
			AutoApprove:           getEnvBool("REMEDIATION_AUTO_APPROVE", false),
			AutoApproveMaxSavings: getEnvFloat("REMEDIATION_AUTO_APPROVE_MAX_SAVINGS", 50),
		},
		Jobs: JobsConfig{
			Enabled:             getEnvBool("JOBS_ENABLED", true),
			AggregationSchedule: getEnv("JOB_AGGREGATION_SCHEDULE", ""),
			ReportSchedule:      getEnv("JOB_REPORT_SCHEDULE", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.GCP.ProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.AWS.Enabled && c.AWS.AccessKeyID == "" && c.AWS.AssumeRoleARN == "" {
		return fmt.Errorf("AWS_ACCESS_KEY_ID or AWS_ASSUME_ROLE_ARN is required when AWS_ENABLED")
	}
	if c.Analysis.WindowDays < 1 {
		return fmt.Errorf("ANALYSIS_WINDOW_DAYS must be at least 1")
	}
	return nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Helper functions
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
