package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSaveGet(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	saved := map[string]any{"page": map[string]any{"rootComponent": "root"}}
	require.NoError(t, store.Save("s1", saved))
	assert.Equal(t, 1, store.Len())

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	// Top-level mutation of the returned map does not leak back.
	got["extra"] = true
	again, err := store.Get("s1")
	require.NoError(t, err)
	assert.NotContains(t, again, "extra")
}

func TestInMemoryStoreOverwrite(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Save("s1", map[string]any{"v": 1}))
	require.NoError(t, store.Save("s1", map[string]any{"v": 2}))

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 2}, got)
	assert.Equal(t, 1, store.Len())
}
