package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/model"
)

var testTiers = Tiers{Fast: "fast-model", Balanced: "balanced-model"}

const layoutJSON = `{
	"reasoning": "one container with a button",
	"rootComponent": "page_root",
	"componentDefinition": {
		"page_root": {"key": "page_root", "name": "Container", "children": ["btn"]},
		"btn": {"key": "btn", "name": "Box"}
	}
}`

func TestTwoStepAgentRun(t *testing.T) {
	mock := model.NewMockInvoker()
	mock.QueueText("plan: a single container holding one button")
	mock.QueueText("```json\n" + layoutJSON + "\n```")

	layout := NewLayout(testTiers)
	ac, err := layout.BuildContext(context.Background(), Input{Instruction: "create a page"}, nil)
	require.NoError(t, err)

	contrib, err := layout.Run(context.Background(), ac, mock)
	require.NoError(t, err)

	assert.Equal(t, NameLayout, contrib.Agent)
	assert.True(t, contrib.Valid)
	assert.Equal(t, "one container with a button", contrib.Reasoning)
	assert.NotContains(t, contrib.Payload, "reasoning")
	assert.Equal(t, "page_root", contrib.Payload["rootComponent"])
	assert.Equal(t, "balanced-model", contrib.Model)

	// Analysis call plus generation call.
	require.Equal(t, 2, mock.Calls())
	reqs := mock.Requests()
	assert.Equal(t, "fast-model", reqs[0].Model)
	assert.Equal(t, "balanced-model", reqs[1].Model)
	assert.Contains(t, reqs[1].Messages[0].Content, "## Scope Analysis")
}

func TestSingleStepAgentRun(t *testing.T) {
	mock := model.NewMockInvoker()
	mock.QueueText(`{"componentStyles": {"btn": {"color": "red"}}}`)

	styles := NewStyles(testTiers)
	contrib, err := styles.Run(context.Background(), &Context{Input: Input{Instruction: "red button"}}, mock)
	require.NoError(t, err)

	assert.True(t, contrib.Valid)
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, "fast-model", mock.Requests()[0].Model)
}

func TestRunSelfCorrectsOnParseFailure(t *testing.T) {
	mock := model.NewMockInvoker()
	mock.QueueText("Sure! Here is the styling you asked for, in prose.")
	mock.QueueText("```json\n{\"componentStyles\": {\"btn\": {\"color\": \"red\"}}}\n```")

	styles := NewStyles(testTiers)
	contrib, err := styles.Run(context.Background(), &Context{Input: Input{Instruction: "red button"}}, mock)
	require.NoError(t, err)
	assert.True(t, contrib.Valid)
	require.Equal(t, 2, mock.Calls())

	// The reprompt carries the failed output and the parse error back.
	second := mock.Requests()[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "assistant", second.Messages[1].Role)
	assert.Contains(t, second.Messages[2].Content, "could not be used")
}

func TestRunFailsValidationAfterSecondParseFailure(t *testing.T) {
	mock := model.NewMockInvoker()
	mock.QueueText("still prose")
	mock.QueueText("more prose")

	styles := NewStyles(testTiers)
	_, err := styles.Run(context.Background(), &Context{Input: Input{Instruction: "x"}}, mock)

	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, NameStyles, ve.Field)
	assert.Equal(t, 2, mock.Calls())
}

func TestRunEnforcesRequiredFields(t *testing.T) {
	mock := model.NewMockInvoker()
	mock.QueueText(`{"wrong": true}`)
	mock.QueueText(`{"componentStyles": {}}`)

	styles := NewStyles(testTiers)
	contrib, err := styles.Run(context.Background(), &Context{Input: Input{Instruction: "x"}}, mock)
	require.NoError(t, err)
	assert.True(t, contrib.Valid)
	assert.Equal(t, 2, mock.Calls())
}

func TestRunPropagatesInvokerErrors(t *testing.T) {
	mock := model.NewMockInvoker()
	wantErr := &model.ServiceError{StatusCode: 500, Message: "boom"}
	mock.QueueError(wantErr)

	styles := NewStyles(testTiers)
	_, err := styles.Run(context.Background(), &Context{Input: Input{Instruction: "x"}}, mock)
	var se *model.ServiceError
	require.ErrorAs(t, err, &se)
}

func TestBuildContextRetrievalDegrades(t *testing.T) {
	layout := NewLayout(testTiers)

	// No retriever: context still builds.
	ac, err := layout.BuildContext(context.Background(), Input{Instruction: "page"}, nil)
	require.NoError(t, err)
	assert.Empty(t, ac.Snippets)

	// Failing retriever: degraded, not fatal.
	ac, err = layout.BuildContext(context.Background(), Input{Instruction: "page"}, failingRetriever{})
	require.NoError(t, err)
	assert.Empty(t, ac.Snippets)

	// Working retriever populates snippets.
	ac, err = layout.BuildContext(context.Background(), Input{Instruction: "page"}, stubRetriever{
		results: []core.RetrievalResult{{Source: "doc.md", Content: "layouts", Score: 0.9}},
	})
	require.NoError(t, err)
	assert.Len(t, ac.Snippets, 1)
}

func TestBuildUserPromptSections(t *testing.T) {
	styles := NewStyles(testTiers)
	ac := &Context{
		Input: Input{
			Instruction: "make it blue",
			Mode:        core.ModeModify,
			Existing:    map[string]any{"rootComponent": "root"},
			Prior: map[string]core.Contribution{
				NameComponent: {Agent: NameComponent, Payload: map[string]any{"components": map[string]any{}}, Valid: true},
			},
			CorrectionNote: "the button color failed contrast checks",
		},
		Snippets: []core.RetrievalResult{{Source: "colors.md", Content: "use hex colors", Score: 0.8, Category: core.CategoryDocumentation}},
	}

	prompt := styles.buildUserPrompt(ac)
	assert.Contains(t, prompt, "## User Request\nmake it blue")
	assert.Contains(t, prompt, "## Mode\nmodify")
	assert.Contains(t, prompt, "## Existing Page")
	assert.Contains(t, prompt, "## Relevant Documentation")
	assert.Contains(t, prompt, "## Previous Agent Outputs")
	assert.Contains(t, prompt, "### component")
	assert.Contains(t, prompt, "## Correction Note")
	assert.Contains(t, prompt, "Generate the styles portion")
}

func TestExtractJSONBlock(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"fenced json":  {"prefix\n```json\n{\"a\": 1}\n```\nsuffix", `{"a": 1}`},
		"plain fence":  {"```\n{\"a\": 1}\n```", `{"a": 1}`},
		"bare braces":  {"the result is {\"a\": 1} hope it helps", `{"a": 1}`},
		"no json": {"nothing here", ""},
		// An unterminated fence falls back to the widest brace span.
		"unterminated": {"```json\n{\"a\": 1}", `{"a": 1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSONBlock(tc.in))
		})
	}
}

func TestPipelineOrderAndDependencies(t *testing.T) {
	agents := Pipeline(testTiers)
	require.Len(t, agents, 7)

	order := make([]string, 0, len(agents))
	for _, a := range agents {
		order = append(order, a.Name())
	}
	assert.Equal(t, []string{
		NameLayout, NameComponent, NameEvents, NameStyles, NameAnimation, NameData, NameReview,
	}, order)

	byName := map[string]Agent{}
	for _, a := range agents {
		byName[a.Name()] = a
	}
	assert.Empty(t, byName[NameLayout].Dependencies())
	assert.Equal(t, []string{NameLayout}, byName[NameComponent].Dependencies())
	assert.Contains(t, byName[NameData].Dependencies(), NameEvents)
	assert.Contains(t, byName[NameData].Dependencies(), NameStyles)
	assert.Contains(t, byName[NameData].Dependencies(), NameAnimation)
	assert.Len(t, byName[NameReview].Dependencies(), 6)
}

func TestPipelineTopKOption(t *testing.T) {
	rec := &recordingRetriever{}

	agents := Pipeline(testTiers, WithTopK(3))
	_, err := agents[0].BuildContext(context.Background(), Input{Instruction: "page"}, rec)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.topK)

	// Non-positive values keep the default depth.
	agents = Pipeline(testTiers, WithTopK(0))
	_, err = agents[0].BuildContext(context.Background(), Input{Instruction: "page"}, rec)
	require.NoError(t, err)
	assert.Equal(t, defaultTopK, rec.topK)
}

type recordingRetriever struct {
	topK int
}

func (r *recordingRetriever) Query(_ context.Context, _ string, topK int) ([]core.RetrievalResult, error) {
	r.topK = topK
	return nil, nil
}

type stubRetriever struct {
	results []core.RetrievalResult
}

func (s stubRetriever) Query(context.Context, string, int) ([]core.RetrievalResult, error) {
	return s.results, nil
}

type failingRetriever struct{}

func (failingRetriever) Query(context.Context, string, int) ([]core.RetrievalResult, error) {
	return nil, errors.New("index unavailable")
}

func TestFormatSnippets(t *testing.T) {
	out := FormatSnippets([]core.RetrievalResult{
		{Source: "a.md", Content: "alpha", Score: 0.9, Category: core.CategoryDocumentation},
		{Source: "b.json", Content: "beta", Score: 0.5, Category: core.CategoryExample},
	})
	assert.Contains(t, out, "### Source 1: a.md")
	assert.Contains(t, out, "### Source 2: b.json")
	assert.Equal(t, 1, strings.Count(out, "---"))
}
