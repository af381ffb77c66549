package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/auditai/backend/internal/genai"
	"github.com/auditai/backend/internal/model"
	"github.com/auditai/backend/internal/recommend"
)

const systemPrompt = `You are a cloud infrastructure auditor. You answer questions about one cloud project's costs, resource utilization, and optimization opportunities.

Use the available tools to fetch real data before answering; never invent numbers. Quote dollar amounts from tool results. Be direct and specific: name resources, state savings, and rank actions by impact. When data is partial, say which source failed.`

// fallbackReporter is implemented by the resilience wrapper so results can
// flag degraded output.
type fallbackReporter interface {
	FallbackUsed() bool
}

// Service is the caller-facing entry point for agentic analysis of one
// project.
type Service struct {
	projectID  string
	client     genai.Client
	registry   *Registry
	aggregator *recommend.Aggregator
	logger     *slog.Logger
}

func NewService(projectID string, client genai.Client, toolset *Toolset, aggregator *recommend.Aggregator, logger *slog.Logger) *Service {
	return &Service{
		projectID:  projectID,
		client:     client,
		registry:   NewRegistry(toolset.Tools()...),
		aggregator: aggregator,
		logger:     logger,
	}
}

// Analyze answers a free-form query by running one bounded tool-calling
// session.
func (s *Service) Analyze(ctx context.Context, query string, days int) (*model.AnalysisResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if days <= 0 {
		days = 30
	}

	session := NewSession(s.client, s.registry, s.logger, systemPrompt, query)
	text, err := session.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis session failed: %w", err)
	}

	result := &model.AnalysisResult{
		Status:       model.AnalysisSuccess,
		Query:        query,
		Analysis:     text,
		ToolCalls:    session.ToolCalls,
		Iterations:   session.Iterations,
		ProjectID:    s.projectID,
		DaysAnalyzed: days,
		GeneratedAt:  time.Now().UTC(),
	}
	if fr, ok := s.client.(fallbackReporter); ok {
		result.FallbackUsed = fr.FallbackUsed()
	}
	return result, nil
}

// Suggestions produces a short list of proactive optimization suggestions
// without interactive tool use: one aggregation pass, one model call.
func (s *Service) Suggestions(ctx context.Context, days int) (*model.AnalysisResult, error) {
	if days <= 0 {
		days = 30
	}

	set, err := s.aggregator.Aggregate(ctx, model.LastDays(days))
	if err != nil {
		return nil, fmt.Errorf("failed to collect recommendations: %w", err)
	}

	prompt := suggestionsPrompt(set)
	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}

	result := &model.AnalysisResult{
		Status:       model.AnalysisSuccess,
		Analysis:     text,
		ProjectID:    s.projectID,
		DaysAnalyzed: days,
		GeneratedAt:  time.Now().UTC(),
	}
	if fr, ok := s.client.(fallbackReporter); ok {
		result.FallbackUsed = fr.FallbackUsed()
	}
	return result, nil
}

// AuditReport generates a narrative audit report over the window: findings,
// spend picture, and ranked actions.
func (s *Service) AuditReport(ctx context.Context, days int) (*model.AnalysisResult, error) {
	if days <= 0 {
		days = 30
	}

	set, err := s.aggregator.Aggregate(ctx, model.LastDays(days))
	if err != nil {
		return nil, fmt.Errorf("failed to collect audit data: %w", err)
	}

	text, err := s.client.Generate(ctx, reportPrompt(set, days))
	if err != nil {
		return nil, fmt.Errorf("report generation failed: %w", err)
	}

	result := &model.AnalysisResult{
		Status:       model.AnalysisSuccess,
		Analysis:     text,
		ProjectID:    s.projectID,
		DaysAnalyzed: days,
		GeneratedAt:  time.Now().UTC(),
	}
	if fr, ok := s.client.(fallbackReporter); ok {
		result.FallbackUsed = fr.FallbackUsed()
	}
	return result, nil
}

// ExplainRecommendation produces a plain-language explanation of one
// recommendation: what it means, the risk of applying it, and how to start.
func (s *Service) ExplainRecommendation(ctx context.Context, id string) (*model.AnalysisResult, error) {
	set, err := s.aggregator.Aggregate(ctx, model.LastDays(30))
	if err != nil {
		return nil, fmt.Errorf("failed to collect recommendations: %w", err)
	}

	var found *model.Recommendation
	for i := range set.Recommendations {
		if set.Recommendations[i].ID == id || set.Recommendations[i].ResourceID == id {
			found = &set.Recommendations[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("recommendation %q not found", id)
	}

	prompt := fmt.Sprintf(`Explain this cloud optimization recommendation to a non-expert in at most three short paragraphs. Cover what it means, what could go wrong when applying it (risk level: %s), and the first concrete step.

Title: %s
Description: %s
Monthly savings: $%.2f
Difficulty: %s
Actions: %s`,
		found.RiskLevel, found.Title, found.Description, found.MonthlySavings, found.Difficulty, strings.Join(found.ActionItems, "; "))

	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("explanation generation failed: %w", err)
	}

	return &model.AnalysisResult{
		Status:      model.AnalysisSuccess,
		Analysis:    text,
		ProjectID:   s.projectID,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func suggestionsPrompt(set *model.RecommendationSet) string {
	var sb strings.Builder
	sb.WriteString("Based on the audit findings below, suggest the three highest-impact optimization actions. One sentence each, lead with the dollar figure.\n\n")
	writeFindings(&sb, set)
	return sb.String()
}

func reportPrompt(set *model.RecommendationSet, days int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a concise infrastructure audit report covering the last %d days. Structure: spend overview, key findings, recommended actions in priority order, total savings potential.\n\n", days)
	writeFindings(&sb, set)
	return sb.String()
}

func writeFindings(sb *strings.Builder, set *model.RecommendationSet) {
	if set.CostSummary != nil {
		fmt.Fprintf(sb, "Total spend: $%.2f\n", set.CostSummary.TotalCost)
		for _, svc := range set.CostSummary.ByService {
			fmt.Fprintf(sb, "- %s: $%.2f\n", svc.Service, svc.Cost)
		}
		sb.WriteString("\n")
	}

	sum := set.Summary()
	fmt.Fprintf(sb, "Findings (%d, potential savings $%.2f/mo):\n", sum.TotalRecommendations, sum.TotalMonthlySavings)
	for _, rec := range set.Recommendations {
		fmt.Fprintf(sb, "- [%s] %s ($%.2f/mo, risk %s, difficulty %s)\n",
			rec.Severity, rec.Title, rec.MonthlySavings, rec.RiskLevel, rec.Difficulty)
	}
	if set.Partial {
		sb.WriteString("\nNote: some data sources failed during collection; findings may be incomplete.\n")
	}
}
