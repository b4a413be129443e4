package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
}

func TestAllow_DefaultLimit(t *testing.T) {
	c := newClock()
	l := New(Config{}, NewMemoryStore(), WithClock(c.Now))

	for i := 1; i <= DefaultMaxRequests; i++ {
		d := l.Allow("10.0.0.1")
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, DefaultMaxRequests-i, d.Remaining)
	}

	d := l.Allow("10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, c.Now().Add(DefaultWindow), d.ResetTime)

	// other clients are independent
	assert.True(t, l.Allow("10.0.0.2").Allowed)
}

func TestAllow_DeniedRequestsDoNotCount(t *testing.T) {
	c := newClock()
	store := NewMemoryStore()
	l := New(Config{MaxRequests: 2, Window: time.Minute}, store, WithClock(c.Now))

	l.Allow("k")
	l.Allow("k")
	for i := 0; i < 5; i++ {
		assert.False(t, l.Allow("k").Allowed)
	}
	assert.Equal(t, 2, store.entries["k"].Count)
}

func TestAllow_WindowResets(t *testing.T) {
	c := newClock()
	l := New(Config{MaxRequests: 3, Window: time.Minute}, NewMemoryStore(), WithClock(c.Now))

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("k").Allowed)
	}
	require.False(t, l.Allow("k").Allowed)

	c.Advance(59 * time.Second)
	assert.False(t, l.Allow("k").Allowed)

	// now == ResetTime starts a fresh window
	c.Advance(time.Second)
	d := l.Allow("k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestAllow_ConcurrentNeverExceedsMax(t *testing.T) {
	l := New(Config{MaxRequests: 100, Window: time.Hour}, NewMemoryStore())

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("same-client").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
}

func TestSweep_RemovesExpired(t *testing.T) {
	c := newClock()
	store := NewMemoryStore()
	l := New(Config{MaxRequests: 5, Window: time.Minute}, store, WithClock(c.Now))

	l.Allow("a")
	c.Advance(30 * time.Second)
	l.Allow("b")
	require.Equal(t, 2, store.Len())

	c.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, store.Len())

	c.Advance(time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestRun_StopsOnStopAndContext(t *testing.T) {
	l := New(Config{CleanupInterval: time.Millisecond}, NewMemoryStore())
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	l.Stop()
	l.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	l2 := New(Config{CleanupInterval: time.Millisecond}, nil)
	done2 := make(chan struct{})
	go func() {
		l2.Run(ctx)
		close(done2)
	}()
	cancel()
	select {
	case <-done2:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Decision{ResetTime: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2*time.Second, d.RetryAfter(now))
	d = Decision{ResetTime: now.Add(3 * time.Second)}
	assert.Equal(t, 3*time.Second, d.RetryAfter(now))
	assert.Equal(t, time.Duration(0), d.RetryAfter(now.Add(time.Hour)))
}
