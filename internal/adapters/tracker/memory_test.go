package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown message is unprocessed", func(t *testing.T) {
		tr := NewMemoryTracker(zap.NewNop())
		processed, err := tr.IsProcessed(ctx, "<m1@mail>")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("marked message is processed", func(t *testing.T) {
		tr := NewMemoryTracker(zap.NewNop())
		require.NoError(t, tr.MarkProcessed(ctx, "<m1@mail>", "dev-1", time.Now()))

		processed, err := tr.IsProcessed(ctx, "<m1@mail>")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("re-marking is idempotent", func(t *testing.T) {
		tr := NewMemoryTracker(zap.NewNop())
		require.NoError(t, tr.MarkProcessed(ctx, "<m1@mail>", "dev-1", time.Now()))
		require.NoError(t, tr.MarkProcessed(ctx, "<m1@mail>", "dev-2", time.Now()))

		processed, err := tr.IsProcessed(ctx, "<m1@mail>")
		require.NoError(t, err)
		assert.True(t, processed)
	})
}
