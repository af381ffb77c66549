package genai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls     int
	text      string
	toolCalls []FunctionCall
	err       error
}

func (s *stubClient) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubClient) GenerateWithTools(ctx context.Context, messages []Message, tools []ToolSchema) (*ModelResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ModelResponse{Text: s.text, ToolCalls: s.toolCalls}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCooldownAt(now *time.Time) *Cooldown {
	c := NewCooldown()
	c.now = func() time.Time { return *now }
	return c
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 35*time.Second, parseRetryAfter("quota exceeded, retry in 30 seconds"))
	assert.Equal(t, 17500*time.Millisecond, parseRetryAfter("please retry in 12.5s"))
	assert.Equal(t, 65*time.Second, parseRetryAfter("quota exceeded"))
	assert.Equal(t, 65*time.Second, parseRetryAfter(""))
}

func TestResilient_QuotaEntersCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := newCooldownAt(&now)
	stub := &stubClient{err: &QuotaError{Message: "quota exceeded", RetryAfter: 65 * time.Second}}
	rc := NewResilientClient(stub, cooldown, discardLogger())

	text, err := rc.Generate(context.Background(), "how do I reduce my cloud costs?")
	require.NoError(t, err)
	assert.Contains(t, text, "Rule-based analysis")
	assert.Contains(t, text, "Cost Reduction")
	assert.Equal(t, 1, stub.calls)
	assert.True(t, cooldown.Active())
}

func TestResilient_CooldownSkipsNetworkCall(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := newCooldownAt(&now)
	cooldown.Set(time.Minute)

	stub := &stubClient{text: "real answer"}
	rc := NewResilientClient(stub, cooldown, discardLogger())

	text, err := rc.Generate(context.Background(), "any query")
	require.NoError(t, err)
	assert.Contains(t, text, "Rule-based analysis")
	assert.Zero(t, stub.calls, "cooldown must skip the network round-trip")
}

func TestResilient_ExpiredCooldownReattempts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := newCooldownAt(&now)
	cooldown.Set(time.Minute)

	stub := &stubClient{text: "real answer"}
	rc := NewResilientClient(stub, cooldown, discardLogger())

	now = now.Add(2 * time.Minute)

	text, err := rc.Generate(context.Background(), "any query")
	require.NoError(t, err)
	assert.Equal(t, "real answer", text)
	assert.Equal(t, 1, stub.calls)
	assert.False(t, cooldown.Active(), "success resets the cooldown")
}

func TestResilient_TimeoutFallsBackWithoutCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := newCooldownAt(&now)
	stub := &stubClient{err: context.DeadlineExceeded}
	rc := NewResilientClient(stub, cooldown, discardLogger())

	text, err := rc.Generate(context.Background(), "is my storage secure?")
	require.NoError(t, err)
	assert.Contains(t, text, "Security Review")
	assert.False(t, cooldown.Active(), "timeout must not poison the quota cooldown")
}

func TestResilient_OtherErrorsPropagate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := newCooldownAt(&now)
	boom := errors.New("malformed request")
	stub := &stubClient{err: boom}
	rc := NewResilientClient(stub, cooldown, discardLogger())

	_, err := rc.Generate(context.Background(), "query")
	assert.ErrorIs(t, err, boom)
}

func TestResilient_GenerateWithToolsFallback(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := newCooldownAt(&now)
	stub := &stubClient{err: &QuotaError{Message: "rate limited", RetryAfter: time.Minute}}
	rc := NewResilientClient(stub, cooldown, discardLogger())

	resp, err := rc.GenerateWithTools(context.Background(), []Message{
		{Role: RoleUser, Text: "why is my app slow?"},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Performance Review")
	assert.Empty(t, resp.ToolCalls)
	assert.True(t, rc.FallbackUsed())
}

func TestClassifyIntent(t *testing.T) {
	assert.Equal(t, intentCostReduction, classifyIntent("how can I reduce spend?"))
	assert.Equal(t, intentSecurity, classifyIntent("check bucket permissions"))
	assert.Equal(t, intentPerformance, classifyIntent("latency is bad"))
	assert.Equal(t, intentGeneral, classifyIntent("tell me about my infrastructure"))
}

func TestFallbackIsDeterministic(t *testing.T) {
	f := NewFallbackGenerator()
	a := f.Generate("cut my costs")
	b := f.Generate("cut my costs")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}
