package model

import "time"

// ToolCallStatus marks whether one tool invocation succeeded.
type ToolCallStatus string

const (
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallFailed  ToolCallStatus = "failed"
)

// ToolCall is the audit record of one tool invocation during an agent
// session. Immutable once recorded.
type ToolCall struct {
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input_parameters,omitempty"`
	Result   any            `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Status   ToolCallStatus `json:"status"`
}

// AnalysisStatus is the top-level outcome of an analysis request.
type AnalysisStatus string

const (
	AnalysisSuccess AnalysisStatus = "success"
	AnalysisError   AnalysisStatus = "error"
)

// AnalysisResult is what the orchestration agent hands back to the API
// layer. FallbackUsed flags rule-based degraded output so the UI can signal
// reduced confidence.
type AnalysisResult struct {
	Status       AnalysisStatus `json:"status"`
	Query        string         `json:"query,omitempty"`
	Analysis     string         `json:"analysis,omitempty"`
	Message      string         `json:"message,omitempty"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	Iterations   int            `json:"iterations,omitempty"`
	FallbackUsed bool           `json:"fallback_used,omitempty"`
	ProjectID    string         `json:"project_id,omitempty"`
	DaysAnalyzed int            `json:"days_analyzed,omitempty"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
