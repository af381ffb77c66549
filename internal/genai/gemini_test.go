package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A tool response is only valid on the wire when the model turn that
// requested it comes first, carrying the matching functionCall part.
func TestToGeminiContents_FunctionCallPrecedesResponse(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Text: "how much am I spending?"},
		{Role: RoleModel, ToolCalls: []FunctionCall{
			{Name: "get_cost_summary", Args: map[string]any{"days": 30.0}},
		}},
		{Role: RoleTool, ToolName: "get_cost_summary", ToolResult: map[string]any{"total": 120.5}},
	}

	contents := toGeminiContents(messages)
	require.Len(t, contents, 3)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "how much am I spending?", contents[0].Parts[0].Text)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 1)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "get_cost_summary", contents[1].Parts[0].FunctionCall.Name)
	assert.Equal(t, map[string]any{"days": 30.0}, contents[1].Parts[0].FunctionCall.Args)

	assert.Equal(t, "user", contents[2].Role)
	require.NotNil(t, contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "get_cost_summary", contents[2].Parts[0].FunctionResponse.Name)
}

func TestToGeminiContents_ModelTextAndCalls(t *testing.T) {
	messages := []Message{
		{Role: RoleModel, Text: "let me check", ToolCalls: []FunctionCall{
			{Name: "get_utilization"},
		}},
	}

	contents := toGeminiContents(messages)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "let me check", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].FunctionCall)
	assert.Equal(t, "get_utilization", contents[0].Parts[1].FunctionCall.Name)
}
