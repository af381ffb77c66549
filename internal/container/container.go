// Package container provides dependency injection.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/auditai/backend/internal/agent"
	"github.com/auditai/backend/internal/collector"
	awscollector "github.com/auditai/backend/internal/collector/aws"
	"github.com/auditai/backend/internal/collector/gcp"
	"github.com/auditai/backend/internal/config"
	"github.com/auditai/backend/internal/genai"
	"github.com/auditai/backend/internal/jobs"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/recommend"
	"github.com/auditai/backend/internal/remediation"
	"github.com/auditai/backend/internal/repository"
	"github.com/auditai/backend/internal/terraform"
)

// Container holds all application dependencies.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	registry    *collector.Registry
	costs       collector.CostCollector
	utilization collector.UtilizationCollector
	aggregator  *recommend.Aggregator
	agentSvc    *agent.Service
	executor    *remediation.Executor
	generator   *terraform.Generator

	recRepo      repository.RecommendationRepository
	analysisRepo repository.AnalysisRepository
	actionRepo   *repository.PostgresActionRepository

	scheduler *jobs.Scheduler
	runner    *jobs.AnalysisRunner
}

// New creates a new dependency container.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		cfg:    cfg,
		logger: logger,
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c.db = db
	logger.Info("database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)

	c.recRepo = repository.NewPostgresRecommendationRepository(db)
	c.analysisRepo = repository.NewPostgresAnalysisRepository(db)
	c.actionRepo = repository.NewPostgresActionRepository(db)

	// Collectors for the audited GCP project.
	gcpCfg := gcp.Config{
		ProjectID:      cfg.GCP.ProjectID,
		BillingAccount: cfg.GCP.BillingAccount,
		Credentials: collector.StaticCredentials{
			ProjectID: cfg.GCP.ProjectID,
			Token:     cfg.GCP.AccessToken,
		},
		Timeout: cfg.GCP.Timeout,
	}
	billing := gcp.NewBillingCollector(gcpCfg)
	c.utilization = gcp.NewMonitoringCollector(gcpCfg)

	c.registry = collector.NewRegistry()
	if err := gcp.NewAllRecommenderCollectors(gcpCfg, c.registry); err != nil {
		return nil, fmt.Errorf("failed to initialize recommender collectors: %w", err)
	}

	c.costs = billing

	// Remediation executors, keyed by provider. GCP changes go through
	// the Recommender mark APIs; direct mutation happens via Terraform.
	clouds := []remediation.CloudExecutor{}
	marker, err := gcp.NewRecommenderCollector(gcpCfg, collector.CategoryIdleInstances)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recommendation marker: %w", err)
	}
	clouds = append(clouds, remediation.NewGCPCloud(marker, logger))

	// Register the AWS account if enabled.
	if cfg.AWS.Enabled {
		ce, err := awscollector.NewCostExplorerClient(ctx, awscollector.Config{
			Region:        cfg.AWS.Region,
			AccessKeyID:   cfg.AWS.AccessKeyID,
			SecretKey:     cfg.AWS.SecretKey,
			AssumeRoleARN: cfg.AWS.AssumeRoleARN,
			ExternalID:    cfg.AWS.ExternalID,
		})
		if err != nil {
			logger.Warn("failed to initialize AWS collectors", "error", err)
		} else {
			c.registry.Register(awscollector.NewRightsizingCollector(ce))
			c.costs = collector.NewMergedCostCollector(billing, awscollector.NewCostCollector(ce))
			logger.Info("AWS collectors registered", "region", cfg.AWS.Region)
		}

		if cfg.AWS.AccessKeyID != "" {
			awsCloud, err := remediation.NewAWSCloud(ctx, remediation.AWSCloudConfig{
				Region:          cfg.AWS.Region,
				AccessKeyID:     cfg.AWS.AccessKeyID,
				SecretAccessKey: cfg.AWS.SecretKey,
			}, logger)
			if err != nil {
				logger.Warn("failed to initialize AWS remediation", "error", err)
			} else {
				clouds = append(clouds, awsCloud)
				logger.Info("AWS remediation enabled", "region", cfg.AWS.Region)
			}
		}
	}

	c.aggregator = recommend.NewAggregator(cfg.GCP.ProjectID, c.registry, c.costs, logger,
		recommend.WithMinMonthlySavings(cfg.Analysis.MinMonthlySavings),
		recommend.WithCollectorTimeout(cfg.Analysis.CollectorTimeout),
	)

	// Gemini behind the cooldown wrapper, so a provider outage degrades
	// to template answers instead of failing requests.
	gemini := genai.NewGeminiClient(genai.GeminiConfig{
		APIKey:  cfg.GenAI.APIKey,
		Model:   cfg.GenAI.Model,
		Timeout: cfg.GenAI.Timeout,
	})
	client := genai.NewResilientClient(gemini, genai.NewCooldown(), logger)

	toolset := agent.NewToolset(c.aggregator, c.costs, c.utilization)
	c.agentSvc = agent.NewService(cfg.GCP.ProjectID, client, toolset, c.aggregator, logger)

	c.executor = remediation.NewExecutor(c.actionRepo, remediation.AutoApprovePolicy{
		Enabled:    cfg.Remediation.AutoApprove,
		MaxSavings: cfg.Remediation.AutoApproveMaxSavings,
		MaxRisk:    model.RiskLow,
	}, logger, clouds...)

	generator, err := terraform.NewGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terraform generator: %w", err)
	}
	c.generator = generator

	c.scheduler = jobs.NewScheduler(logger)
	c.runner = jobs.NewAnalysisRunner(c.aggregator, c.agentSvc, c.recRepo, c.analysisRepo,
		cfg.Analysis.WindowDays, logger)

	return c, nil
}

// Start starts background jobs.
func (c *Container) Start(ctx context.Context) error {
	if err := c.runner.RegisterAll(c.scheduler, c.cfg.Jobs.AggregationSchedule, c.cfg.Jobs.ReportSchedule); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}
	return c.scheduler.Start()
}

// Stop gracefully stops all components.
func (c *Container) Stop(ctx context.Context) error {
	c.logger.Info("stopping container components")

	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	if c.db != nil {
		c.db.Close()
	}

	return nil
}

// Accessors

func (c *Container) Config() *config.Config                      { return c.cfg }
func (c *Container) Logger() *slog.Logger                        { return c.logger }
func (c *Container) DB() *sql.DB                                 { return c.db }
func (c *Container) Registry() *collector.Registry               { return c.registry }
func (c *Container) Costs() collector.CostCollector              { return c.costs }
func (c *Container) Utilization() collector.UtilizationCollector { return c.utilization }
func (c *Container) Aggregator() *recommend.Aggregator           { return c.aggregator }
func (c *Container) AgentService() *agent.Service                { return c.agentSvc }
func (c *Container) RemediationExecutor() *remediation.Executor  { return c.executor }
func (c *Container) TerraformGenerator() *terraform.Generator    { return c.generator }

func (c *Container) RecommendationRepository() repository.RecommendationRepository {
	return c.recRepo
}

func (c *Container) AnalysisRepository() repository.AnalysisRepository { return c.analysisRepo }

func (c *Container) ActionRepository() *repository.PostgresActionRepository { return c.actionRepo }

func (c *Container) Scheduler() *jobs.Scheduler { return c.scheduler }
