// Package anthropic adapts the Anthropic Messages API to the model.Invoker
// contract, including classification of transport failures into the shared
// error taxonomy.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/model"
)

// Options configures the Anthropic invoker (default model id, temperature,
// API key). The per-request Model field overrides DefaultModel when set.
type Options struct {
	DefaultModel string
	Temperature  float64
	APIKey       string
}

// Invoker wraps the Anthropic Messages API behind model.Invoker.
type Invoker struct {
	client *anthropic.Client
	opts   Options
}

// NewInvoker creates an Anthropic invoker using the official client.
func NewInvoker(optFns ...func(o *Options)) *Invoker {
	opts := Options{
		DefaultModel: string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature:  0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Invoker{client: &client, opts: opts}
}

// NewInvokerFromClient creates an Anthropic invoker from an existing client.
func NewInvokerFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		DefaultModel: string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature:  0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

// Invoke implements model.Invoker with a single non-streaming Messages call.
func (m *Invoker) Invoke(ctx context.Context, req model.Request) (*model.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = m.opts.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelID),
		Messages:    buildMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	return &model.Response{
		Text: sb.String(),
		Usage: core.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// buildMessages converts normalized messages to the Anthropic param format.
func buildMessages(msgs []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Content == "" {
			continue
		}
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// classify maps SDK and context errors onto the shared taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.TimeoutError{Err: err}
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return &model.RateLimitedError{RetryAfter: retryAfter(apierr)}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &model.TimeoutError{Err: err}
		default:
			return &model.ServiceError{StatusCode: apierr.StatusCode, Message: apierr.Error()}
		}
	}
	return &model.ServiceError{Message: err.Error()}
}

// retryAfter extracts the Retry-After hint when the provider sends one.
func retryAfter(apierr *anthropic.Error) time.Duration {
	if apierr.Response == nil {
		return 0
	}
	if v := apierr.Response.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return 0
}
