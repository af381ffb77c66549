package genai

import "strings"

// intent keys for fallback template selection.
const (
	intentCostReduction = "cost-reduction"
	intentSecurity      = "security"
	intentPerformance   = "performance"
	intentGeneral       = "general"
)

// FallbackGenerator produces deterministic, rule-based analysis text when the
// generative model is unavailable. Responses are canned best-practice
// guidance, clearly labeled as degraded output.
type FallbackGenerator struct {
	templates map[string]string
}

func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{templates: fallbackTemplates}
}

// Generate keyword-matches the query against known intents and returns the
// matching template.
func (f *FallbackGenerator) Generate(query string) string {
	return f.templates[classifyIntent(query)]
}

func classifyIntent(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "cost") || strings.Contains(q, "saving") || strings.Contains(q, "spend") || strings.Contains(q, "cheap") || strings.Contains(q, "reduce"):
		return intentCostReduction
	case strings.Contains(q, "secur") || strings.Contains(q, "vulnerab") || strings.Contains(q, "access") || strings.Contains(q, "permission"):
		return intentSecurity
	case strings.Contains(q, "performance") || strings.Contains(q, "slow") || strings.Contains(q, "latency") || strings.Contains(q, "speed"):
		return intentPerformance
	default:
		return intentGeneral
	}
}

var fallbackTemplates = map[string]string{
	intentCostReduction: `[Rule-based analysis — AI assistant temporarily unavailable]

Cost Reduction Checklist:
1. Review idle compute instances: resources below 5% CPU for 7+ days are strong candidates for shutdown or deletion.
2. Right-size overprovisioned machines: match machine types to observed peak utilization plus 20% headroom.
3. Delete unattached persistent disks and stale snapshots.
4. Move infrequently accessed storage to colder tiers (Nearline/Coldline/Archive).
5. Purchase committed-use discounts for baseline workloads running 24/7.

Run the recommendations report for your project to see ranked, dollar-quantified actions.`,

	intentSecurity: `[Rule-based analysis — AI assistant temporarily unavailable]

Security Review Checklist:
1. Audit storage buckets for public access; remove allUsers/allAuthenticatedUsers bindings.
2. Review IAM roles for over-broad grants; prefer predefined roles over Owner/Editor.
3. Rotate service account keys older than 90 days.
4. Enable audit logging on data-access operations for sensitive datasets.
5. Restrict firewall rules that allow 0.0.0.0/0 on management ports.

Run the recommendations report filtered to security issues for project-specific findings.`,

	intentPerformance: `[Rule-based analysis — AI assistant temporarily unavailable]

Performance Review Checklist:
1. Check instances sustained above 80% CPU; scale up or out before saturation.
2. Verify disk types match workload IOPS requirements (pd-ssd for latency-sensitive paths).
3. Review regional placement relative to your users to cut network latency.
4. Enable CDN caching for static assets.
5. Inspect slow query logs on managed databases for missing indexes.

Utilization metrics for your project are available through the resource metrics report.`,

	intentGeneral: `[Rule-based analysis — AI assistant temporarily unavailable]

Infrastructure Review Summary:
Your project's cost, utilization, and advisory data remain fully available. Suggested next steps:
1. Run the recommendations report for ranked cost and security findings.
2. Review the cost breakdown to identify the services driving spend.
3. Check resource metrics for idle or overloaded instances.

The AI assistant will resume personalized analysis once capacity returns.`,
}
