package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("counts down to zero then denies", func(t *testing.T) {
		store := NewInMemoryStore()
		const limit = 3

		for i := 0; i < limit; i++ {
			result, err := store.Allow(ctx, "user-a", limit, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, limit-i-1, result.Remaining)
		}

		result, err := store.Allow(ctx, "user-a", limit, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.GreaterOrEqual(t, result.RetryAfter(), 1)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := NewInMemoryStore()

		_, err := store.Allow(ctx, "user-a", 1, time.Minute)
		require.NoError(t, err)

		result, err := store.Allow(ctx, "user-b", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("window expiry frees capacity", func(t *testing.T) {
		store := NewInMemoryStore()
		window := 30 * time.Millisecond

		result, err := store.Allow(ctx, "user-a", 1, window)
		require.NoError(t, err)
		require.True(t, result.Allowed)

		result, err = store.Allow(ctx, "user-a", 1, window)
		require.NoError(t, err)
		require.False(t, result.Allowed)

		time.Sleep(window + 10*time.Millisecond)

		result, err = store.Allow(ctx, "user-a", 1, window)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}
