package pageforge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge/artifact"
	"github.com/pageforge-dev/pageforge/config"
	"github.com/pageforge-dev/pageforge/coordinator"
	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/internal/testutil"
	"github.com/pageforge-dev/pageforge/model"
	"github.com/pageforge-dev/pageforge/retrieval"
)

func newTestForge(t *testing.T, optFns ...func(o *Options)) (*PageForge, *model.MockInvoker) {
	t.Helper()
	mock := model.NewMockInvoker()
	testutil.WirePipeline(mock)

	cfg := config.Default()
	cfg.Retry.InitialInterval = time.Millisecond
	cfg.Retry.MaxInterval = time.Millisecond

	base := func(o *Options) { o.Invoker = mock }
	forge, err := New(cfg, append([]func(o *Options){base}, optFns...)...)
	require.NoError(t, err)
	return forge, mock
}

func TestGenerateEndToEnd(t *testing.T) {
	store := artifact.NewInMemoryStore()
	index := retrieval.NewInMemoryIndex(retrieval.Document{
		Source:   "components/button.md",
		Category: core.CategoryDocumentation,
		Content:  "Button components fire onClick events.",
	})
	forge, _ := newTestForge(t, func(o *Options) {
		o.Retriever = index
		o.ArtifactStore = store
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := forge.Generate(ctx, coordinator.Request{
		Instruction: "Create a signup page with a submit button",
	})
	require.NoError(t, err)

	page, ok := result["page"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "page_root", page["rootComponent"])
	assert.Equal(t, 1, store.Len())
}

func TestStartEventsResultFlow(t *testing.T) {
	forge, _ := newTestForge(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := forge.Start(ctx, coordinator.Request{Instruction: "Create a page"})
	require.NoError(t, err)

	ch, err := forge.Events(ctx, id, 0)
	require.NoError(t, err)
	events := testutil.Drain(ch)
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventDone, events[len(events)-1].Kind)

	status, err := forge.Status(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSucceeded, status)

	result, err := forge.Result(id)
	require.NoError(t, err)
	assert.Contains(t, result, "page")
}

func TestConfiguredRetrievalDepthReachesAgents(t *testing.T) {
	mock := model.NewMockInvoker()
	testutil.WirePipeline(mock)

	cfg := config.Default()
	cfg.Retry.InitialInterval = time.Millisecond
	cfg.Retry.MaxInterval = time.Millisecond
	cfg.Retrieval.TopK = 3

	rec := &recordingRetriever{}
	forge, err := New(cfg, func(o *Options) {
		o.Invoker = mock
		o.Retriever = rec
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err = forge.Generate(ctx, coordinator.Request{Instruction: "Create a signup page"})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.lastTopK())
}

// recordingRetriever captures the depth agents query with; agents run
// concurrently, so access is guarded.
type recordingRetriever struct {
	mu   sync.Mutex
	topK int
}

func (r *recordingRetriever) Query(_ context.Context, _ string, topK int) ([]core.RetrievalResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topK = topK
	return nil, nil
}

func (r *recordingRetriever) lastTopK() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topK
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "llama-farm"
	_, err := New(cfg)

	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGenerateValidationError(t *testing.T) {
	forge, _ := newTestForge(t)
	_, err := forge.Generate(context.Background(), coordinator.Request{Instruction: ""})

	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}
