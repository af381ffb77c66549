package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/auditai/backend/internal/apierrors"
	"github.com/auditai/backend/internal/config"
	"github.com/auditai/backend/internal/container"
	"github.com/auditai/backend/internal/correlation"
	"github.com/auditai/backend/internal/handler"
	"github.com/auditai/backend/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctr, err := container.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlation.Middleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apierrors.ErrorHandler)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", correlation.HeaderName},
		ExposedHeaders:   []string{correlation.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := ctr.DB().PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"healthy"}`))
	})

	agentHandler := handler.NewAgentHandler(ctr.AgentService(), ctr.AnalysisRepository(), logger)
	recsHandler := handler.NewRecommendationsHandler(ctr.Aggregator(), ctr.RecommendationRepository(), ctr.TerraformGenerator(), logger)
	costsHandler := handler.NewCostsHandler(ctr.Costs(), ctr.Utilization())
	remediationHandler := handler.NewRemediationHandler(ctr.RemediationExecutor(), ctr.RecommendationRepository(),
		cfg.GCP.ProjectID, model.CloudProviderGCP)

	r.Route("/api/v1", func(r chi.Router) {
		// Costs
		r.Get("/costs/summary", costsHandler.Summary)
		r.Get("/costs/breakdown", costsHandler.Breakdown)
		r.Get("/costs/trend", costsHandler.Trend)
		r.Get("/costs/projection", costsHandler.Projection)
		r.Get("/costs/utilization", costsHandler.Utilization)

		// Recommendations
		r.Post("/recommendations/refresh", recsHandler.Refresh)
		r.Get("/recommendations", recsHandler.List)
		r.Get("/recommendations/summary", recsHandler.Summary)
		r.Get("/recommendations/{id}", recsHandler.GetByID)
		r.Patch("/recommendations/{id}/status", recsHandler.UpdateStatus)
		r.Get("/recommendations/{id}/terraform", recsHandler.Terraform)
		r.Get("/recommendations/{id}/explain", agentHandler.Explain)

		// Agent
		r.Post("/agent/analyze", agentHandler.Analyze)
		r.Get("/agent/suggestions", agentHandler.Suggestions)
		r.Get("/agent/report", agentHandler.Report)
		r.Get("/agent/history", agentHandler.History)

		// Remediation
		r.Post("/remediations", remediationHandler.Propose)
		r.Get("/remediations", remediationHandler.Pending)
		r.Get("/remediations/{id}", remediationHandler.GetByID)
		r.Post("/remediations/{id}/approve", remediationHandler.Approve)
		r.Post("/remediations/{id}/reject", remediationHandler.Reject)
		r.Post("/remediations/{id}/cancel", remediationHandler.Cancel)
		r.Post("/remediations/{id}/execute", remediationHandler.Execute)
		r.Post("/remediations/{id}/rollback", remediationHandler.Rollback)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Jobs.Enabled {
		if err := ctr.Start(ctx); err != nil {
			logger.Error("failed to start background jobs", "error", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}

		if err := ctr.Stop(shutdownCtx); err != nil {
			logger.Error("container shutdown error", "error", err)
		}
	}()

	logger.Info("AuditAI API server starting", "addr", addr, "project", cfg.GCP.ProjectID)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
