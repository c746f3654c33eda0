package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func counting(calls *int32, value string) Producer[string] {
	return func(ctx context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestMemory_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("second get is a hit", func(t *testing.T) {
		var calls, hits int32
		c := NewMemory[string](TTL(time.Minute), WithHitHook(func(string) { atomic.AddInt32(&hits, 1) }))

		v, err := c.Get(ctx, "k", counting(&calls, "a"))
		require.NoError(t, err)
		assert.Equal(t, "a", v)

		v, err = c.Get(ctx, "k", counting(&calls, "b"))
		require.NoError(t, err)
		assert.Equal(t, "a", v)
		assert.Equal(t, int32(1), calls)
		assert.Equal(t, int32(1), hits)
	})

	t.Run("expired entries are produced again", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		var calls int32
		c := NewMemory[string](TTL(5*time.Minute), WithClock(clock.Now))

		_, _ = c.Get(ctx, "k", counting(&calls, "a"))
		clock.Advance(4 * time.Minute)
		_, _ = c.Get(ctx, "k", counting(&calls, "a"))
		assert.Equal(t, int32(1), calls)

		clock.Advance(time.Minute)
		v, err := c.Get(ctx, "k", counting(&calls, "fresh"))
		require.NoError(t, err)
		assert.Equal(t, "fresh", v)
		assert.Equal(t, int32(2), calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		var calls int32
		c := NewMemory[string](TTL(time.Minute))
		boom := errors.New("boom")

		_, err := c.Get(ctx, "k", func(context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "", boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.Len())

		v, err := c.Get(ctx, "k", counting(&calls, "ok"))
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, int32(2), calls)
	})

	t.Run("concurrent misses share one producer call", func(t *testing.T) {
		var calls int32
		c := NewMemory[int](nil)
		release := make(chan struct{})

		produce := func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return 42, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := c.Get(ctx, "k", produce)
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for _, v := range results {
			assert.Equal(t, 42, v)
		}
		assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
		assert.Equal(t, 1, c.Len())
	})
}

func TestMemory_CleanExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory[string](TTL(time.Minute), WithClock(clock.Now))

	c.Set("a", "1")
	clock.Advance(30 * time.Second)
	c.Set("b", "2")
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Len())

	c.Delete("b")
	assert.Equal(t, 0, c.Len())
}

func TestTTL_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Minute), TTL(time.Minute).Expiry(now))
	assert.True(t, TTL(0).Expiry(now).IsZero())
	assert.True(t, TTL(-time.Second).Expiry(now).IsZero())
}
