// Package openai adapts the OpenAI Chat Completions API to the
// model.Invoker contract, classifying transport failures into the shared
// error taxonomy.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/model"
)

// Options configure the OpenAI invoker. Fields intentionally mirror a
// minimal subset of the Chat Completion parameters. An empty APIKey defers
// to the OPENAI_API_KEY environment variable.
type Options struct {
	DefaultModel string
	Temperature  float64
	APIKey       string
}

// Invoker wraps the OpenAI Chat Completions API behind model.Invoker.
type Invoker struct {
	client *openai.Client
	opts   Options
}

// NewInvoker creates an OpenAI invoker using the official client.
func NewInvoker(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Invoker{client: &client, opts: opts}
}

// NewInvokerFromClient creates an OpenAI invoker from an existing client.
func NewInvokerFromClient(client *openai.Client, optFns ...func(o *Options)) *Invoker {
	return &Invoker{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		DefaultModel: openai.ChatModelGPT4oMini,
		Temperature:  0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Invoke implements model.Invoker with a single non-streaming completion.
func (m *Invoker) Invoke(ctx context.Context, req model.Request) (*model.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = m.opts.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		if msg.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               modelID,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(maxTokens),
		Temperature:         openai.Float(m.opts.Temperature),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &model.ServiceError{Message: "empty completion response"}
	}

	return &model.Response{
		Text: resp.Choices[0].Message.Content,
		Usage: core.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// classify maps SDK and context errors onto the shared taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.TimeoutError{Err: err}
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return &model.RateLimitedError{}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &model.TimeoutError{Err: err}
		default:
			return &model.ServiceError{StatusCode: apierr.StatusCode, Message: apierr.Error()}
		}
	}
	return &model.ServiceError{Message: err.Error()}
}
