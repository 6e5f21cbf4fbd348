package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, Run{
		Path:    "/var/log/build.log",
		Stage:   "build",
		Kind:    "missing-command",
		Details: `{"command":"cmake"}`,
		Lineno:  42,
		Origin:  "direct regex",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "/var/log/build.log", runs[0].Path)
	assert.Equal(t, "missing-command", runs[0].Kind)
	assert.Equal(t, 42, runs[0].Lineno)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestListOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, kind := range []string{"first", "second", "third"} {
		_, err := store.Record(ctx, Run{Path: "a.log", Kind: kind})
		require.NoError(t, err)
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestListEmpty(t *testing.T) {
	store := openTestStore(t)

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
