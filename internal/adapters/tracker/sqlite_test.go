package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteTracker(t *testing.T) {
	ctx := context.Background()

	newTracker := func(t *testing.T) *SQLiteTracker {
		t.Helper()
		tr, err := NewSQLiteTracker(filepath.Join(t.TempDir(), "processed.db"), zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = tr.Close() })
		return tr
	}

	t.Run("round trip", func(t *testing.T) {
		tr := newTracker(t)

		processed, err := tr.IsProcessed(ctx, "<m1@mail>")
		require.NoError(t, err)
		assert.False(t, processed)

		require.NoError(t, tr.MarkProcessed(ctx, "<m1@mail>", "dev-1", time.Now()))

		processed, err = tr.IsProcessed(ctx, "<m1@mail>")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("re-marking updates instead of failing", func(t *testing.T) {
		tr := newTracker(t)
		require.NoError(t, tr.MarkProcessed(ctx, "<m1@mail>", "dev-1", time.Now()))
		require.NoError(t, tr.MarkProcessed(ctx, "<m1@mail>", "dev-2", time.Now()))
	})

	t.Run("state survives reopening the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "processed.db")

		first, err := NewSQLiteTracker(path, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, first.MarkProcessed(ctx, "<m2@mail>", "dev-1", time.Now()))
		require.NoError(t, first.Close())

		second, err := NewSQLiteTracker(path, zap.NewNop())
		require.NoError(t, err)
		defer second.Close()

		processed, err := second.IsProcessed(ctx, "<m2@mail>")
		require.NoError(t, err)
		assert.True(t, processed)
	})
}
