// Package genai provides the generative model client used by the
// orchestration agent, plus the quota-aware resilience wrapper around it.
package genai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Role labels for conversation messages.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// Message is one turn in the running conversation history.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
	// ToolCalls records the invocations a model turn requested. The wire
	// history must replay them before their responses or the provider
	// rejects the request.
	ToolCalls []FunctionCall `json:"tool_calls,omitempty"`
	// ToolName and ToolResult carry a tool response turn back to the model.
	ToolName   string `json:"tool_name,omitempty"`
	ToolResult any    `json:"tool_result,omitempty"`
}

// ToolSchema describes one callable tool to the model.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ModelResponse is the model's reply to one turn: free text, tool requests,
// or both.
type ModelResponse struct {
	Text      string         `json:"text,omitempty"`
	ToolCalls []FunctionCall `json:"tool_calls,omitempty"`
}

// Client is the generative model abstraction the agent is built against.
type Client interface {
	// Generate answers a plain prompt with no tool access.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithTools sends the running message history together with the
	// available tool schemas and returns text and/or tool invocations.
	GenerateWithTools(ctx context.Context, messages []Message, tools []ToolSchema) (*ModelResponse, error)
}

// QuotaError signals that the model provider rejected the call for quota or
// rate-limit reasons. RetryAfter already includes a safety buffer.
type QuotaError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("model quota exhausted: %s (retry after %s)", e.Message, e.RetryAfter)
}

// IsQuotaError reports whether err is a quota/rate-limit failure.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

const (
	defaultRetryAfter = 60 * time.Second
	retryAfterBuffer  = 5 * time.Second
)

var retryInPattern = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)`)

// parseRetryAfter extracts a retry delay from a provider error payload.
// Falls back to a fixed default when the payload carries no usable hint; the
// buffer is always added so we never retry a hair too early.
func parseRetryAfter(message string) time.Duration {
	if m := retryInPattern.FindStringSubmatch(message); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil && secs > 0 {
			return time.Duration(secs*float64(time.Second)) + retryAfterBuffer
		}
	}
	return defaultRetryAfter + retryAfterBuffer
}
