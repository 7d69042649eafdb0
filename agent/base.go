package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/model"
)

// defaultTopK mirrors the retrieval depth the generation service settled
// on for agent context coverage.
const defaultTopK = 10

// Base bundles the shared agent behavior: retrieval-augmented context
// building, the optional analyze-then-generate call pattern, JSON payload
// extraction and schema validation with one self-correction reprompt.
// Concrete agents embed it and differ only in configuration.
type Base struct {
	name            string
	deps            []string
	systemPrompt    string
	retrievalTopics string // empty disables the retrieval query
	topK            int
	twoStep         bool
	analysisModel   string
	generateModel   string
	maxTokens       int64
	// required lists gjson paths that must exist in the payload; requireAny
	// passes when at least one of its paths exists.
	required   []string
	requireAny []string
	// validate optionally replaces the required-fields check entirely.
	validate func(payload gjson.Result) error
}

// Name implements Agent.
func (b *Base) Name() string { return b.name }

// Dependencies implements Agent; the returned slice must not be mutated.
func (b *Base) Dependencies() []string { return b.deps }

// setTopK is reached through the Agent interface by pipeline options.
func (b *Base) setTopK(k int) {
	if k > 0 {
		b.topK = k
	}
}

// BuildContext composes the agent's bounded context: the instruction, the
// declared prior contributions and, when configured, one retrieval query
// over the documentation index. A missing or empty index degrades to
// generation without snippets.
func (b *Base) BuildContext(ctx context.Context, in Input, retriever core.Retriever) (*Context, error) {
	ac := &Context{Input: in}
	if b.retrievalTopics == "" || retriever == nil {
		return ac, nil
	}

	topK := b.topK
	if topK == 0 {
		topK = defaultTopK
	}
	query := b.retrievalTopics + " " + in.Instruction
	snippets, err := retriever.Query(ctx, query, topK)
	if err != nil {
		// Retrieval is best-effort; the agent still runs without context.
		return ac, nil
	}
	ac.Snippets = snippets
	return ac, nil
}

// Run implements Agent: zero-or-more analysis calls, one generation call,
// parse + validate with a single self-correction reprompt.
func (b *Base) Run(ctx context.Context, ac *Context, invoker model.Invoker) (*core.Contribution, error) {
	start := time.Now()
	var usage core.TokenUsage

	userPrompt := b.buildUserPrompt(ac)

	if b.twoStep {
		analysis, aUsage, err := b.analyze(ctx, userPrompt, invoker)
		if err != nil {
			return nil, err
		}
		usage.Add(aUsage)
		userPrompt += "\n\n## Scope Analysis\n" + analysis
	}

	messages := []model.Message{{Role: "user", Content: userPrompt}}
	resp, err := invoker.Invoke(ctx, model.Request{
		System:    b.systemPrompt,
		Messages:  messages,
		Model:     b.generateModel,
		MaxTokens: b.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	usage.Add(resp.Usage)

	payload, parseErr := b.parse(resp.Text)
	if parseErr != nil {
		// One self-correction attempt: feed the parse error back to the model.
		messages = append(messages,
			model.Message{Role: "assistant", Content: resp.Text},
			model.Message{Role: "user", Content: fmt.Sprintf(
				"Your previous response could not be used: %v. Respond again with a single valid JSON object only, no prose.", parseErr)},
		)
		retryResp, err := invoker.Invoke(ctx, model.Request{
			System:    b.systemPrompt,
			Messages:  messages,
			Model:     b.generateModel,
			MaxTokens: b.maxTokens,
		})
		if err != nil {
			return nil, err
		}
		usage.Add(retryResp.Usage)
		payload, parseErr = b.parse(retryResp.Text)
		if parseErr != nil {
			return nil, core.NewValidationError(b.name, parseErr.Error())
		}
	}

	reasoning, _ := payload["reasoning"].(string)
	delete(payload, "reasoning")

	return &core.Contribution{
		Agent:     b.name,
		Payload:   payload,
		Reasoning: reasoning,
		Model:     b.generateModel,
		Usage:     usage,
		Duration:  time.Since(start),
		Valid:     true,
	}, nil
}

// analyze issues the cheap scoping call of the two-step pattern.
func (b *Base) analyze(ctx context.Context, userPrompt string, invoker model.Invoker) (string, core.TokenUsage, error) {
	resp, err := invoker.Invoke(ctx, model.Request{
		System: "You analyze a page generation request and decide the scope of work for the " +
			b.name + " specialist. Reply with a short plan, no JSON.",
		Messages:  []model.Message{{Role: "user", Content: userPrompt}},
		Model:     b.analysisModel,
		MaxTokens: 1024,
	})
	if err != nil {
		return "", core.TokenUsage{}, err
	}
	return resp.Text, resp.Usage, nil
}

// buildUserPrompt renders the composed context into the model-facing text.
func (b *Base) buildUserPrompt(ac *Context) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## User Request\n%s\n\n## Mode\n%s\n", ac.Instruction, ac.Mode)

	if len(ac.Existing) > 0 {
		sb.WriteString("\n## Existing Page (for modification)\n```json\n")
		sb.WriteString(marshalIndent(ac.Existing))
		sb.WriteString("\n```\n")
	}

	if len(ac.Snippets) > 0 {
		sb.WriteString("\n## Relevant Documentation\n")
		sb.WriteString(FormatSnippets(ac.Snippets))
	}

	if len(ac.Prior) > 0 {
		sb.WriteString("\n## Previous Agent Outputs\n")
		for _, dep := range b.deps {
			c, ok := ac.Prior[dep]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "### %s\n```json\n%s\n```\n", c.Agent, marshalIndent(c.Payload))
		}
	}

	if len(ac.Merged) > 0 {
		sb.WriteString("\n## Merged Page\n```json\n")
		sb.WriteString(marshalIndent(ac.Merged))
		sb.WriteString("\n```\n")
	}

	if ac.CorrectionNote != "" {
		fmt.Fprintf(&sb, "\n## Correction Note\nA review pass found a problem with your earlier output: %s\nAddress it in this run.\n", ac.CorrectionNote)
	}

	fmt.Fprintf(&sb, "\n## Your Task\nGenerate the %s portion of the page definition. "+
		"Output valid JSON only, wrapped in ```json code blocks. "+
		"Include a brief \"reasoning\" field explaining your decisions.\n", b.name)

	return sb.String()
}

// parse extracts the JSON payload from the model output and checks it
// against the agent's schema.
func (b *Base) parse(text string) (map[string]any, error) {
	raw := extractJSONBlock(text)
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("no valid JSON object found in response")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, fmt.Errorf("response JSON is not an object")
	}

	if b.validate != nil {
		if err := b.validate(doc); err != nil {
			return nil, err
		}
	} else {
		for _, path := range b.required {
			if !doc.Get(path).Exists() {
				return nil, fmt.Errorf("missing required field %q", path)
			}
		}
		if len(b.requireAny) > 0 {
			found := false
			for _, path := range b.requireAny {
				if doc.Get(path).Exists() {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("expected at least one of %s", strings.Join(b.requireAny, ", "))
			}
		}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// extractJSONBlock finds the JSON body in a model response: fenced ```json
// blocks first, then plain fences, then the widest brace span.
func extractJSONBlock(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(text[start : end+1])
	}
	return ""
}

// FormatSnippets renders retrieval results as the numbered source blocks
// agents embed in their prompts. Only this compact rendering ever reaches a
// model; raw results are discarded with the stage.
func FormatSnippets(snippets []core.RetrievalResult) string {
	var sb strings.Builder
	for i, s := range snippets {
		fmt.Fprintf(&sb, "### Source %d: %s (type: %s, relevance: %.3f)\n%s\n",
			i+1, s.Source, s.Category, s.Score, s.Content)
		if i < len(snippets)-1 {
			sb.WriteString("\n---\n")
		}
	}
	return sb.String()
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
