package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultWindow          = 15 * time.Minute
	DefaultMaxRequests     = 100
	DefaultCleanupInterval = time.Minute
)

type Config struct {
	Window          time.Duration
	MaxRequests     int
	CleanupInterval time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
}

// RetryAfter is the time left until the window resets, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	left := d.ResetTime.Sub(now)
	if left <= 0 {
		return 0
	}
	return (left + time.Second - 1) / time.Second * time.Second
}

// Limiter is a fixed-window rate limiter keyed by client identifier.
type Limiter struct {
	cfg   Config
	store Store
	now   func() time.Time

	stopOnce sync.Once
	stopC    chan struct{}
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, store Store, opts ...Option) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		stopC: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Config() Config { return l.cfg }

func (l *Limiter) Now() time.Time { return l.now() }

// Allow records a request for clientID. A denied request does not count.
func (l *Limiter) Allow(clientID string) Decision {
	return l.store.Hit(clientID, l.now(), l.cfg.MaxRequests, l.cfg.Window)
}

// Sweep removes expired windows once.
func (l *Limiter) Sweep() int {
	return l.store.Sweep(l.now())
}

// Run sweeps expired entries every CleanupInterval until ctx is done or Stop is called.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("rate limit sweep")
			}
		case <-ctx.Done():
			return
		case <-l.stopC:
			return
		}
	}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopC) })
}
