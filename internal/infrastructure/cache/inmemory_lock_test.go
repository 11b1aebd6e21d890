package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLock_Acquire(t *testing.T) {
	lock := NewInMemoryLock()
	ctx := context.Background()

	t.Run("first caller wins", func(t *testing.T) {
		token, ok, err := lock.Acquire(ctx, "job-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, token)

		_, ok, err = lock.Acquire(ctx, "job-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "held lock should not be granted twice")
	})

	t.Run("release frees the key", func(t *testing.T) {
		token, ok, _ := lock.Acquire(ctx, "job-2", time.Hour)
		require.True(t, ok)
		require.NoError(t, lock.Release(ctx, "job-2", token))
		assert.False(t, lock.Held("job-2"))

		_, ok, _ = lock.Acquire(ctx, "job-2", time.Hour)
		assert.True(t, ok)
	})

	t.Run("stale token does not release a new holder", func(t *testing.T) {
		now := time.Date(2026, 4, 15, 2, 0, 0, 0, time.UTC)
		l := NewInMemoryLock()
		l.now = func() time.Time { return now }

		old, ok, _ := l.Acquire(ctx, "job-3", time.Minute)
		require.True(t, ok)

		now = now.Add(2 * time.Minute)
		fresh, ok, _ := l.Acquire(ctx, "job-3", time.Minute)
		require.True(t, ok, "expired lock should be re-acquirable")

		require.NoError(t, l.Release(ctx, "job-3", old))
		assert.True(t, l.Held("job-3"))
		require.NoError(t, l.Release(ctx, "job-3", fresh))
		assert.False(t, l.Held("job-3"))
	})
}

func TestInMemoryLock_Concurrent(t *testing.T) {
	lock := NewInMemoryLock()
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := lock.Acquire(context.Background(), "sweep", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}
