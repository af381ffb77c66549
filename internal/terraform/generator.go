// Package terraform generates remediation snippets in HCL for normalized
// recommendations, and validates the output before it is shown to a user.
package terraform

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/auditai/backend/internal/model"
)

// Generator renders Terraform HCL for a recommendation.
type Generator struct {
	templates map[model.RecommendationType]*template.Template
}

func NewGenerator() (*Generator, error) {
	g := &Generator{templates: make(map[model.RecommendationType]*template.Template)}
	for recType, body := range templateSources {
		tmpl, err := template.New(string(recType)).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", recType, err)
		}
		g.templates[recType] = tmpl
	}
	return g, nil
}

// templateData is the view passed to every snippet template.
type templateData struct {
	RecommendationID string
	ResourceName     string
	TerraformName    string
	Title            string
	MonthlySavings   float64
	GeneratedAt      string
}

// Generate renders the snippet for one recommendation.
func (g *Generator) Generate(rec *model.Recommendation) (string, error) {
	tmpl, ok := g.templates[rec.Type]
	if !ok {
		return "", fmt.Errorf("no terraform template for recommendation type %q", rec.Type)
	}

	data := templateData{
		RecommendationID: rec.ID,
		ResourceName:     resourceName(rec.ResourceID),
		TerraformName:    terraformName(rec.ResourceID),
		Title:            rec.Title,
		MonthlySavings:   rec.MonthlySavings,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// IsSupported reports whether a snippet can be generated for the type.
func (g *Generator) IsSupported(recType model.RecommendationType) bool {
	_, ok := g.templates[recType]
	return ok
}

// SupportedTypes lists the recommendation types with templates.
func (g *Generator) SupportedTypes() []model.RecommendationType {
	types := make([]model.RecommendationType, 0, len(g.templates))
	for t := range g.templates {
		types = append(types, t)
	}
	return types
}

// resourceName trims a path-style resource id down to its final segment.
func resourceName(resourceID string) string {
	parts := strings.Split(resourceID, "/")
	return parts[len(parts)-1]
}

// terraformName sanitizes a resource id into a valid Terraform identifier.
func terraformName(resourceID string) string {
	name := resourceName(resourceID)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" {
		return "resource"
	}
	return name
}

var templateSources = map[model.RecommendationType]string{
	model.RecommendationTypeIdleResource: `# {{.Title}}
# Estimated savings: ${{printf "%.2f" .MonthlySavings}}/mo
# Generated {{.GeneratedAt}} for recommendation {{.RecommendationID}}
#
# Stops the idle instance. Remove the resource block entirely (and run
# terraform apply) once you have confirmed nothing depends on it.

resource "google_compute_instance" "{{.TerraformName}}" {
  name = "{{.ResourceName}}"

  desired_status = "TERMINATED"

  lifecycle {
    prevent_destroy = false
  }
}
`,

	model.RecommendationTypeOversizedResource: `# {{.Title}}
# Estimated savings: ${{printf "%.2f" .MonthlySavings}}/mo
# Generated {{.GeneratedAt}} for recommendation {{.RecommendationID}}
#
# Replace MACHINE_TYPE with the target type from the recommendation before
# applying. The instance restarts during the change.

resource "google_compute_instance" "{{.TerraformName}}" {
  name         = "{{.ResourceName}}"
  machine_type = "MACHINE_TYPE"

  allow_stopping_for_update = true
}
`,

	model.RecommendationTypeUnusedDisk: `# {{.Title}}
# Estimated savings: ${{printf "%.2f" .MonthlySavings}}/mo
# Generated {{.GeneratedAt}} for recommendation {{.RecommendationID}}
#
# Snapshot before deletion, then remove the disk resource from state.

resource "google_compute_snapshot" "{{.TerraformName}}_final" {
  name        = "{{.ResourceName}}-final-snapshot"
  source_disk = "{{.ResourceName}}"
}

removed {
  from = google_compute_disk.{{.TerraformName}}

  lifecycle {
    destroy = true
  }
}
`,

	model.RecommendationTypeSecurityIssue: `# {{.Title}}
# Generated {{.GeneratedAt}} for recommendation {{.RecommendationID}}
#
# Enforces uniform bucket-level access and blocks public grants.

resource "google_storage_bucket" "{{.TerraformName}}" {
  name = "{{.ResourceName}}"

  uniform_bucket_level_access = true
  public_access_prevention    = "enforced"
}
`,

	model.RecommendationTypeCostOptimization: `# {{.Title}}
# Estimated savings: ${{printf "%.2f" .MonthlySavings}}/mo
# Generated {{.GeneratedAt}} for recommendation {{.RecommendationID}}
#
# Commitment purchases are irreversible; review the term and resource
# profile before applying.

resource "google_compute_commitment" "{{.TerraformName}}" {
  name = "{{.ResourceName}}-commitment"
  plan = "TWELVE_MONTH"

  resources {
    type   = "VCPU"
    amount = "4"
  }
  resources {
    type   = "MEMORY"
    amount = "16"
  }
}
`,
}
