package genai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Cooldown is the process-wide rate-limit state. Multiple requests race to
// read and set it, so every access goes through the mutex.
type Cooldown struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{now: time.Now}
}

// Active reports whether the cooldown window is still open.
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.until)
}

// Set opens a cooldown window of the given length from now.
func (c *Cooldown) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = c.now().Add(d)
}

// Reset clears the cooldown immediately.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = time.Time{}
}

// ResilientClient wraps a model Client so quota exhaustion degrades to
// deterministic fallback text instead of failing the caller. While the
// cooldown window is open, calls skip the network round-trip entirely.
type ResilientClient struct {
	inner    Client
	cooldown *Cooldown
	fallback *FallbackGenerator
	logger   *slog.Logger
}

func NewResilientClient(inner Client, cooldown *Cooldown, logger *slog.Logger) *ResilientClient {
	return &ResilientClient{
		inner:    inner,
		cooldown: cooldown,
		fallback: NewFallbackGenerator(),
		logger:   logger,
	}
}

// Generate answers a plain prompt, substituting rule-based fallback text when
// the model is rate-limited or times out.
func (r *ResilientClient) Generate(ctx context.Context, prompt string) (string, error) {
	if r.cooldown.Active() {
		r.logger.Debug("model in cooldown, using fallback")
		return r.fallback.Generate(prompt), nil
	}

	text, err := r.inner.Generate(ctx, prompt)
	if err != nil {
		return r.handleFailure(prompt, err)
	}

	r.cooldown.Reset()
	return text, nil
}

// GenerateWithTools behaves like the wrapped call, except quota and timeout
// failures yield a plain-text fallback response with no tool requests.
func (r *ResilientClient) GenerateWithTools(ctx context.Context, messages []Message, tools []ToolSchema) (*ModelResponse, error) {
	if r.cooldown.Active() {
		r.logger.Debug("model in cooldown, using fallback")
		return &ModelResponse{Text: r.fallback.Generate(lastUserText(messages))}, nil
	}

	resp, err := r.inner.GenerateWithTools(ctx, messages, tools)
	if err != nil {
		text, ferr := r.handleFailure(lastUserText(messages), err)
		if ferr != nil {
			return nil, ferr
		}
		return &ModelResponse{Text: text}, nil
	}

	r.cooldown.Reset()
	return resp, nil
}

// FallbackUsed reports whether the next call would be served from fallback.
func (r *ResilientClient) FallbackUsed() bool {
	return r.cooldown.Active()
}

func (r *ResilientClient) handleFailure(prompt string, err error) (string, error) {
	var qe *QuotaError
	switch {
	case errors.As(err, &qe):
		r.logger.Warn("model quota exhausted, entering cooldown",
			slog.Duration("retry_after", qe.RetryAfter))
		r.cooldown.Set(qe.RetryAfter)
		return r.fallback.Generate(prompt), nil
	case errors.Is(err, context.DeadlineExceeded):
		// A hung model is as useless as an exhausted one, but the quota may
		// be fine, so the cooldown stays untouched.
		r.logger.Warn("model call timed out, using fallback")
		return r.fallback.Generate(prompt), nil
	default:
		return "", err
	}
}

// lastUserText finds the most recent user turn to key fallback intent on.
func lastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser && messages[i].Text != "" {
			return messages[i].Text
		}
	}
	return ""
}
