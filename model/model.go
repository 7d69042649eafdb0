// Package model defines the invocation contract to generation models and
// the error classification the retry layer depends on. Provider adapters
// live in the anthropic and openai subpackages; MockInvoker serves tests
// and examples.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pageforge-dev/pageforge/core"
)

// Message is one turn of the structured conversation sent to a model.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request captures one normalized model invocation.
type Request struct {
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
	MaxTokens int64     `json:"max_tokens"`
}

// Response is the generated text plus token-usage metadata of one call.
type Response struct {
	Text  string          `json:"text"`
	Usage core.TokenUsage `json:"usage"`
}

// Invoker performs a single generation call. Implementations classify
// transport failures into RateLimitedError, TimeoutError or ServiceError so
// callers can apply a uniform retry policy.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// RateLimitedError signals the provider throttled the call. Retryable.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model call rate limited, retry after %s", e.RetryAfter)
	}
	return "model call rate limited"
}

// Retryable marks the error as transient.
func (e *RateLimitedError) Retryable() bool { return true }

// TimeoutError signals the call exceeded its deadline. Retryable.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("model call timed out: %v", e.Err) }

func (e *TimeoutError) Unwrap() error { return e.Err }

// Retryable marks the error as transient.
func (e *TimeoutError) Retryable() bool { return true }

// ServiceError signals a non-transient provider failure. Not retried.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("model service error (status %d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err (or anything it wraps) is a transient
// invocation failure worth retrying with backoff.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// scriptStep is one canned outcome of a MockInvoker.
type scriptStep struct {
	text string
	err  error
}

// MockInvoker is a deterministic in-memory Invoker for tests and examples.
// Outcomes are matched in order of registration: first a per-call script
// (errors interleaved with successes), then substring-keyed canned
// responses, then a generic echo.
type MockInvoker struct {
	mu        sync.Mutex
	script    []scriptStep
	responses map[string]string
	requests  []Request
}

// NewMockInvoker constructs an empty MockInvoker.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{responses: map[string]string{}}
}

// AddResponse registers a canned completion returned when the last user
// message contains key.
func (m *MockInvoker) AddResponse(key, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = text
}

// QueueText appends a scripted successful completion consumed by the next call.
func (m *MockInvoker) QueueText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptStep{text: text})
}

// QueueError appends a scripted failure consumed by the next call.
func (m *MockInvoker) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptStep{err: err})
}

// Requests returns a copy of every request observed so far.
func (m *MockInvoker) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of invocations observed.
func (m *MockInvoker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Invoke implements Invoker.
func (m *MockInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TimeoutError{Err: err}
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		if step.err != nil {
			return nil, step.err
		}
		return &Response{Text: step.text, Usage: usageFor(req, step.text)}, nil
	}

	var last string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	for key, text := range m.responses {
		if strings.Contains(last, key) {
			m.mu.Unlock()
			return &Response{Text: text, Usage: usageFor(req, text)}, nil
		}
	}
	m.mu.Unlock()

	text := fmt.Sprintf("Mock response to: %s", last)
	return &Response{Text: text, Usage: usageFor(req, text)}, nil
}

// usageFor derives stable synthetic token counts from request/response sizes.
func usageFor(req Request, text string) core.TokenUsage {
	var in int64
	in += int64(len(req.System)) / 4
	for _, m := range req.Messages {
		in += int64(len(m.Content)) / 4
	}
	return core.TokenUsage{InputTokens: in, OutputTokens: int64(len(text)) / 4}
}
