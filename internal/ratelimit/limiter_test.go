package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowparadise/reactor/internal/store/memory"
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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter() (*Limiter, *fakeClock, *memory.Store) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	s := memory.New()
	return New(s, WithClock(clock.Now)), clock, s
}

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	policy := Policy{Action: "searchKeyword", Window: time.Minute, Max: 3}

	t.Run("counts up to max then denies", func(t *testing.T) {
		l, clock, _ := newLimiter()

		for i := 1; i <= 3; i++ {
			d, err := l.Allow(ctx, "user-1", policy)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, i, d.Count)
			clock.Advance(time.Second)
		}

		d, err := l.Allow(ctx, "user-1", policy)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 3, d.Count)
	})

	t.Run("denial does not change state", func(t *testing.T) {
		l, _, s := newLimiter()

		for i := 0; i < 5; i++ {
			_, err := l.Allow(ctx, "user-1", policy)
			require.NoError(t, err)
		}

		w, ok := s.Window(Key(policy.Action, "user-1"))
		require.True(t, ok)
		assert.Equal(t, 3, w.Count)
	})

	t.Run("window resets once elapsed", func(t *testing.T) {
		l, clock, _ := newLimiter()
		start := clock.Now()

		for i := 0; i < 3; i++ {
			_, err := l.Allow(ctx, "user-1", policy)
			require.NoError(t, err)
		}

		clock.Advance(time.Minute - time.Millisecond)
		d, err := l.Allow(ctx, "user-1", policy)
		require.NoError(t, err)
		assert.False(t, d.Allowed, "still inside the window")

		clock.Advance(time.Millisecond)
		d, err = l.Allow(ctx, "user-1", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1, d.Count)
		assert.Equal(t, start.Add(time.Minute), d.WindowStart)
	})

	t.Run("subjects and actions are independent", func(t *testing.T) {
		l, _, _ := newLimiter()
		other := Policy{Action: "createReport", Window: time.Minute, Max: 1}

		for i := 0; i < 3; i++ {
			_, err := l.Allow(ctx, "user-1", policy)
			require.NoError(t, err)
		}

		d, err := l.Allow(ctx, "user-2", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = l.Allow(ctx, "user-1", other)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("zero max always denies", func(t *testing.T) {
		l, _, s := newLimiter()

		d, err := l.Allow(ctx, "user-1", Policy{Action: "closed", Window: time.Minute, Max: 0})
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		_, ok := s.Window(Key("closed", "user-1"))
		assert.False(t, ok, "rejected reset must not be persisted")
	})

	t.Run("concurrent callers never exceed max", func(t *testing.T) {
		l, _, _ := newLimiter()
		p := Policy{Action: "burst", Window: time.Minute, Max: 20}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := l.Allow(ctx, "user-1", p)
				if err != nil || !d.Allowed {
					return
				}
				mu.Lock()
				allowed++
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, allowed)
	})
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, Policy{Action: "a", Window: time.Second, Max: 1}.Validate())
	assert.Error(t, Policy{Window: time.Second, Max: 1}.Validate())
	assert.Error(t, Policy{Action: "a", Max: 1}.Validate())
	assert.Error(t, Policy{Action: "a", Window: time.Second, Max: -1}.Validate())
}
