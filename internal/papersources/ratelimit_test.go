package papersources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	t.Run("allows the configured burst", func(t *testing.T) {
		rl := NewRateLimiter(10, 5)
		require.NotNil(t, rl)

		for i := 0; i < 5; i++ {
			assert.True(t, rl.Allow(), "should allow request %d within burst", i+1)
		}
		assert.False(t, rl.Allow())
	})

	t.Run("Semantic Scholar unauthenticated rate", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("blocks once burst is consumed", func(t *testing.T) {
		rl := NewRateLimiter(20, 1)
		ctx := context.Background()

		start := time.Now()
		require.NoError(t, rl.Wait(ctx))
		require.NoError(t, rl.Wait(ctx))
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("returns error on canceled context", func(t *testing.T) {
		rl := NewRateLimiter(0.1, 1)
		require.True(t, rl.Allow())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, rl.Wait(ctx))
	})
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	require.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	rl.SetRate(1000)
	time.Sleep(5 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestRateLimiter_Tokens(t *testing.T) {
	rl := NewRateLimiter(10, 3)
	assert.InDelta(t, 3.0, rl.Tokens(), 0.01)
	rl.Allow()
	assert.InDelta(t, 2.0, rl.Tokens(), 0.1)
}

func TestRateLimiter_Concurrency(t *testing.T) {
	rl := NewRateLimiter(1000, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := rl.Wait(ctx); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error during concurrent access: %v", err)
	}
}
