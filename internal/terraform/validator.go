package terraform

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// ValidationResult reports whether a generated snippet parses as HCL.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Warnings  []ValidationError `json:"warnings,omitempty"`
	Formatted string            `json:"formatted,omitempty"`
}

type ValidationError struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// Validator parses and formats generated HCL.
type Validator struct {
	parser *hclparse.Parser
}

func NewValidator() *Validator {
	return &Validator{parser: hclparse.NewParser()}
}

// Validate parses the snippet and collects diagnostics. Valid snippets come
// back formatted.
func (v *Validator) Validate(hclCode string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	file, diags := v.parser.ParseHCL([]byte(hclCode), "generated.tf")
	for _, diag := range diags {
		verr := ValidationError{Message: diag.Detail}
		if diag.Subject != nil {
			verr.Line = diag.Subject.Start.Line
			verr.Column = diag.Subject.Start.Column
		}
		if diag.Severity == hcl.DiagError {
			result.Valid = false
			result.Errors = append(result.Errors, verr)
		} else {
			result.Warnings = append(result.Warnings, verr)
		}
	}

	if result.Valid && file != nil {
		result.Formatted = v.Format(hclCode)
	}
	return result
}

// Format canonically formats the snippet; unparseable input passes through
// unchanged.
func (v *Validator) Format(hclCode string) string {
	f, diags := hclwrite.ParseConfig([]byte(hclCode), "generated.tf", hcl.InitialPos)
	if diags.HasErrors() {
		return hclCode
	}
	return string(f.Bytes())
}

// CheckPlaceholders flags template artifacts that leaked into the output.
func (v *Validator) CheckPlaceholders(hclCode string) []string {
	var found []string
	for _, pattern := range []string{"{{.", "{{ .", "<no value>"} {
		if strings.Contains(hclCode, pattern) {
			found = append(found, fmt.Sprintf("unsubstituted placeholder: %s", pattern))
		}
	}
	return found
}

// ValidateAndFormat returns the formatted snippet or a combined error.
func (v *Validator) ValidateAndFormat(hclCode string) (string, error) {
	result := v.Validate(hclCode)
	if !result.Valid {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			if e.Line > 0 {
				msgs = append(msgs, fmt.Sprintf("line %d: %s", e.Line, e.Message))
			} else {
				msgs = append(msgs, e.Message)
			}
		}
		return "", fmt.Errorf("hcl validation failed: %s", strings.Join(msgs, "; "))
	}
	return result.Formatted, nil
}
