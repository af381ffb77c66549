package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/auditai/backend/internal/genai"
	"github.com/auditai/backend/internal/model"
)

// MaxIterations bounds the tool-call loop of one session. A model that asks
// for tools on every turn is cut off here with whatever text it produced
// last.
const MaxIterations = 5

type sessionState int

const (
	stateAwaitingModel sessionState = iota
	stateExecutingTools
	stateDone
)

// forcedCompletionText is returned when the loop cap fires before the model
// ever produced free text.
const forcedCompletionText = "Analysis complete. The data gathered so far is attached in the tool call trail; ask a follow-up question to dig deeper into any part of it."

// Session is one bounded request/tool-call/response exchange. Messages and
// tool calls are appended, never mutated, so a finished session is a
// deterministic replay log.
type Session struct {
	Query      string
	Messages   []genai.Message
	ToolCalls  []model.ToolCall
	Iterations int
	FinalText  string

	state    sessionState
	client   genai.Client
	registry *Registry
	logger   *slog.Logger
}

func NewSession(client genai.Client, registry *Registry, logger *slog.Logger, systemPrompt, query string) *Session {
	return &Session{
		Query: query,
		Messages: []genai.Message{
			{Role: genai.RoleUser, Text: systemPrompt + "\n\n" + query},
		},
		state:    stateAwaitingModel,
		client:   client,
		registry: registry,
		logger:   logger,
	}
}

// Run drives the state machine to completion and returns the final text. The
// ToolCalls field holds the audit trail of how the answer was produced.
func (s *Session) Run(ctx context.Context) (string, error) {
	schemas := s.registry.Schemas()
	var lastText string

	for s.state != stateDone {
		resp, err := s.client.GenerateWithTools(ctx, s.Messages, schemas)
		if err != nil {
			return "", err
		}
		if resp.Text != "" {
			lastText = resp.Text
		}
		// The model turn goes into the history even when it is pure
		// functionCalls: the provider rejects a functionResponse with no
		// preceding call.
		if resp.Text != "" || len(resp.ToolCalls) > 0 {
			s.Messages = append(s.Messages, genai.Message{
				Role:      genai.RoleModel,
				Text:      resp.Text,
				ToolCalls: resp.ToolCalls,
			})
		}

		if len(resp.ToolCalls) == 0 {
			s.state = stateDone
			break
		}

		s.Iterations++
		s.state = stateExecutingTools
		s.executeTools(ctx, resp.ToolCalls)

		if s.Iterations >= MaxIterations {
			s.logger.Warn("session hit iteration cap, forcing completion",
				slog.String("query", s.Query),
				slog.Int("iterations", s.Iterations))
			s.state = stateDone
			break
		}
		s.state = stateAwaitingModel
	}

	if lastText == "" {
		lastText = forcedCompletionText
	}
	s.FinalText = lastText
	return lastText, nil
}

// executeTools runs the requested tools in the order the model asked for
// them, recording each call and feeding each result back into the history.
func (s *Session) executeTools(ctx context.Context, calls []genai.FunctionCall) {
	for _, call := range calls {
		started := time.Now()
		result := s.registry.Execute(ctx, call.Name, call.Args)

		record := model.ToolCall{
			ToolName: call.Name,
			Input:    call.Args,
			Status:   model.ToolCallSuccess,
		}
		if result.Status == toolStatusError {
			record.Status = model.ToolCallFailed
			record.Error = result.Message
		} else {
			record.Result = result.Data
		}
		s.ToolCalls = append(s.ToolCalls, record)

		s.Messages = append(s.Messages, genai.Message{
			Role:       genai.RoleTool,
			ToolName:   call.Name,
			ToolResult: result,
		})

		s.logger.Debug("tool executed",
			slog.String("tool", call.Name),
			slog.String("status", string(record.Status)),
			slog.Duration("took", time.Since(started)))
	}
}
