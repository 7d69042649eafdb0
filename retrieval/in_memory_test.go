package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge/core"
)

func testIndex() *InMemoryIndex {
	return NewInMemoryIndex(
		Document{
			Source:   "components/button.md",
			Category: core.CategoryDocumentation,
			Content:  "Button components fire onClick events and support label properties.",
		},
		Document{
			Source:   "components/table.md",
			Category: core.CategoryDocumentation,
			Content:  "Table components render rows from a data binding path.",
		},
		Document{
			Source:   "examples/login_page.json",
			Category: core.CategoryExample,
			Content:  `{"componentDefinition": {"btn_login": {"name": "Button"}}}`,
		},
	)
}

func TestQueryRanksByOverlap(t *testing.T) {
	idx := testIndex()

	results, err := idx.Query(context.Background(), "button onClick events", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "components/button.md", results[0].Source)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestQueryRespectsTopK(t *testing.T) {
	idx := testIndex()

	results, err := idx.Query(context.Background(), "components", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = idx.Query(context.Background(), "components", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryEmptyIndexAndNoMatch(t *testing.T) {
	empty := NewInMemoryIndex()
	results, err := empty.Query(context.Background(), "anything at all", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	idx := testIndex()
	results, err = idx.Query(context.Background(), "zzzz qqqq", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryCancelledContext(t *testing.T) {
	idx := testIndex()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Query(ctx, "button", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddExtendsIndex(t *testing.T) {
	idx := NewInMemoryIndex()
	idx.Add(Document{Source: "new.md", Category: core.CategoryDocumentation, Content: "gradient backgrounds"})

	results, err := idx.Query(context.Background(), "gradient", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new.md", results[0].Source)
}
