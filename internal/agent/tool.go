// Package agent runs bounded tool-calling sessions against a generative
// model to answer free-form questions about a cloud project.
package agent

import (
	"context"
	"fmt"

	"github.com/auditai/backend/internal/genai"
)

// ToolResult is the structured outcome of one tool execution. Tool handlers
// never return Go errors to the session loop; failures are encoded here and
// fed back to the model so it can self-correct.
type ToolResult struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	toolStatusSuccess = "success"
	toolStatusError   = "error"
)

// Ok wraps a successful tool payload.
func Ok(data any) ToolResult {
	return ToolResult{Status: toolStatusSuccess, Data: data}
}

// Errf wraps a tool failure message.
func Errf(format string, args ...any) ToolResult {
	return ToolResult{Status: toolStatusError, Message: fmt.Sprintf(format, args...)}
}

// Tool is one named capability the model may invoke during a session.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns a JSON-schema-shaped description of the tool's
	// arguments.
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) ToolResult
}

// Registry maps tool names to handlers. Registration order is preserved so
// the schema list sent to the model is deterministic.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Execute runs the named tool. An unknown name yields an error result, not a
// Go error, so the model sees its own mistake.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) ToolResult {
	t, ok := r.tools[name]
	if !ok {
		return Errf("unknown tool %q", name)
	}
	return t.Execute(ctx, args)
}

// Schemas returns the tool descriptions in registration order.
func (r *Registry) Schemas() []genai.ToolSchema {
	schemas := make([]genai.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schemas = append(schemas, genai.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return schemas
}
